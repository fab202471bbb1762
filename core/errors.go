package core

import (
	"errors"
	"fmt"
)

// Router errors
var (
	ErrNilActor      = errors.New("nil actor")
	ErrInvalidTopic  = errors.New("topic is nil or not comparable")
	ErrReentrantRun  = errors.New("router is already running")
	ErrDispatchLimit = errors.New("dispatch limit reached")
	ErrDuplicateName = errors.New("actor name already taken")
)

// DispatchError reports the actor failure that aborted a run.
type DispatchError struct {
	// Seq is the dispatch sequence number of the envelope
	Seq uint64

	// Envelope is the envelope being delivered
	Envelope Envelope

	// Subscriber is the index of the failing registration for the topic
	Subscriber int

	// Actor is the failing actor's handle. Its ID is NoActor if the actor
	// was registered directly instead of added.
	Actor Handle

	Err error
}

func (e *DispatchError) Error() string {
	return fmt.Sprintf("dispatch %d on topic %s failed at subscriber %d (actor %s): %v",
		e.Seq, TopicName(e.Envelope.Topic()), e.Subscriber, e.Actor, e.Err)
}

func (e *DispatchError) Unwrap() error {
	return e.Err
}
