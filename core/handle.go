package core

import (
	"fmt"
)

// Named is implemented by actors that want a stable name in the router's
// directory. Names appear in dispatch errors and can be resolved with Lookup.
type Named interface {
	Name() string
}

// Handle pairs an actor's handle with its directory name.
type Handle struct {
	// ID is the handle allocated by Add
	ID ActorID

	// Name is the directory name, empty for anonymous actors
	Name string
}

// String returns a string representation of the handle.
func (h Handle) String() string {
	if h.Name != "" {
		return fmt.Sprintf(":%08x(%s)", uint32(h.ID), h.Name)
	}
	return fmt.Sprintf(":%08x", uint32(h.ID))
}

// directory maps actor handles to names and back.
type directory struct {
	byID   map[ActorID]string
	byName map[string]ActorID
}

func newDirectory() directory {
	return directory{
		byID:   make(map[ActorID]string),
		byName: make(map[string]ActorID),
	}
}

// reserve checks that name is free. An empty name always is.
func (d *directory) reserve(name string) error {
	if name == "" {
		return nil
	}
	if id, exists := d.byName[name]; exists {
		return fmt.Errorf("%w: %q is actor %d", ErrDuplicateName, name, id)
	}
	return nil
}

func (d *directory) bind(id ActorID, name string) {
	if name == "" {
		return
	}
	d.byID[id] = name
	d.byName[name] = id
}

func (d *directory) name(id ActorID) string {
	return d.byID[id]
}

func (d *directory) lookup(name string) (ActorID, bool) {
	id, ok := d.byName[name]
	return id, ok
}

func actorName(actor Actor) string {
	if n, ok := actor.(Named); ok {
		return n.Name()
	}
	return ""
}
