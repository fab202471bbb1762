package core

import (
	"context"
)

// Actor reacts to envelopes. Receive may update the actor's private state
// and returns the envelopes it wants sent, in order. It must not touch any
// other actor's state.
type Actor interface {
	// Receive handles one envelope delivered on a subscribed topic.
	// A returned error aborts the whole run.
	Receive(ctx context.Context, env Envelope) ([]Envelope, error)
}

// Subscriber is implemented by actors that choose their own subscriptions.
// Router.Add calls Subscribe once with the actor's handle.
type Subscriber interface {
	// Subscribe returns the topics to register and the initial envelopes
	// to send.
	Subscribe(id ActorID) ([]Topic, []Envelope)
}

// Sender enqueues envelopes for dispatch.
type Sender interface {
	// Send appends env to the pending queue. It never fails.
	Send(env Envelope)
}

// Tracer observes dispatch. Implementations must not affect it.
type Tracer interface {
	// Dispatched is called once per envelope taken off the queue, before
	// any subscriber sees it.
	Dispatched(seq uint64, env Envelope, subscribers int)
}

// Router owns the subscription table and the pending queue.
type Router interface {
	Sender

	// Register subscribes actor to topic. Registering the same actor twice
	// on a topic makes it receive every envelope twice.
	Register(topic Topic, actor Actor) error

	// Add allocates a handle for actor and applies its Subscriber
	// registrations, if any.
	Add(actor Actor) (ActorID, error)

	// Run dispatches pending envelopes until none remain or an actor fails.
	// It must not be called from inside Receive.
	Run(ctx context.Context) error

	// Pending returns the number of queued envelopes.
	Pending() int

	// Topics returns every topic with at least one subscriber.
	Topics() []Topic

	// Subscribers returns the number of registrations for topic.
	Subscribers(topic Topic) int

	// Stats returns runtime statistics.
	Stats() RouterStats
}
