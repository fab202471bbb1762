package core

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/exp/slices"

	"github.com/najoast/simactor/logging"
)

// subscriber is one registration in a topic's dispatch list.
type subscriber struct {
	id    ActorID
	actor Actor
}

// LocalRouter is the in-process, single-threaded Router. It is not safe for
// concurrent use: everything happens on the goroutine that calls Run.
type LocalRouter struct {
	// Map of topic to subscribers in registration order
	subscriptions map[Topic][]subscriber

	// Main lane, and the idle lane for deferred topics
	queue envelopeQueue
	idle  envelopeQueue

	// Counter for generating actor handles
	idCounter ActorID

	// Names of added actors that implement Named
	names directory

	// Dispatch sequence number, monotonic across runs
	seq uint64

	running bool
	stats   RouterStats
	opts    RouterOptions
	logger  *slog.Logger
}

var _ Router = (*LocalRouter)(nil)

// NewRouter creates a new Router instance.
func NewRouter(opts RouterOptions) *LocalRouter {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &LocalRouter{
		subscriptions: make(map[Topic][]subscriber),
		names:         newDirectory(),
		opts:          opts,
		logger:        logger.With(slog.String("component", "router")),
	}
}

// Register adds actor to the subscriber list for topic.
func (r *LocalRouter) Register(topic Topic, actor Actor) error {
	return r.register(topic, subscriber{id: NoActor, actor: actor})
}

func (r *LocalRouter) register(topic Topic, sub subscriber) error {
	if sub.actor == nil {
		return ErrNilActor
	}
	if !ValidTopic(topic) {
		return fmt.Errorf("cannot register on %s: %w", TopicName(topic), ErrInvalidTopic)
	}

	r.subscriptions[topic] = append(r.subscriptions[topic], sub)
	return nil
}

// Add allocates a handle for actor. If actor implements Named, its name is
// entered in the directory. If it implements Subscriber, its topics are
// registered and its initial envelopes are queued.
func (r *LocalRouter) Add(actor Actor) (ActorID, error) {
	if actor == nil {
		return NoActor, ErrNilActor
	}

	name := actorName(actor)
	if err := r.names.reserve(name); err != nil {
		return NoActor, err
	}

	// The handle and name are only committed once every topic is valid
	id := r.idCounter + 1

	var (
		topics  []Topic
		initial []Envelope
	)
	if s, ok := actor.(Subscriber); ok {
		topics, initial = s.Subscribe(id)
		for _, topic := range topics {
			if !ValidTopic(topic) {
				return NoActor, fmt.Errorf("actor %d cannot register on %s: %w", id, TopicName(topic), ErrInvalidTopic)
			}
		}
	}

	r.idCounter = id
	r.names.bind(id, name)
	for _, topic := range topics {
		r.subscriptions[topic] = append(r.subscriptions[topic], subscriber{id: id, actor: actor})
	}
	for _, env := range initial {
		r.Send(stampSender(env, id))
	}

	return id, nil
}

// Send appends env to the pending queue. Envelopes on deferred topics wait
// in the idle lane until the main lane is empty.
func (r *LocalRouter) Send(env Envelope) {
	if deferred(env.Topic()) {
		r.idle.push(env)
		return
	}
	r.queue.push(env)
}

// Run dispatches pending envelopes in FIFO order until both lanes are
// empty. The first actor error aborts the run and is returned as a
// *DispatchError. Envelopes still queued at that point stay queued.
func (r *LocalRouter) Run(ctx context.Context) error {
	if r.running {
		return ErrReentrantRun
	}
	r.running = true
	defer func() {
		r.running = false
		r.stats.Runs++
	}()

	r.stats.RunID = uuid.New()
	logger := r.logger.With(slog.String("run_id", r.stats.RunID.String()))
	logger.Info("run started", slog.Int("pending", r.Pending()))

	var dispatched uint64
	for {
		if r.opts.MaxDispatches > 0 && dispatched >= r.opts.MaxDispatches && r.Pending() > 0 {
			logger.Warn("dispatch limit reached",
				slog.Uint64("dispatched", dispatched),
				slog.Int("pending", r.Pending()))
			return fmt.Errorf("%w after %d envelopes", ErrDispatchLimit, dispatched)
		}

		env, ok := r.next()
		if !ok {
			break
		}
		dispatched++

		if err := r.dispatch(ctx, logger, env); err != nil {
			logger.Error("run aborted", slog.Any("error", err))
			return err
		}
	}

	logger.Info("run finished",
		slog.Uint64("dispatched", dispatched),
		slog.Uint64("dropped", r.stats.Dropped))
	return nil
}

// next pops the oldest main-lane envelope, falling back to the idle lane.
func (r *LocalRouter) next() (Envelope, bool) {
	if env, ok := r.queue.pop(); ok {
		return env, true
	}
	return r.idle.pop()
}

// dispatch delivers a single envelope to every subscriber of its topic.
func (r *LocalRouter) dispatch(ctx context.Context, logger *slog.Logger, env Envelope) error {
	r.seq++
	r.stats.Dispatched++
	seq := r.seq

	var subs []subscriber
	if ValidTopic(env.Topic()) {
		subs = r.subscriptions[env.Topic()]
	}

	if r.opts.Tracer != nil {
		r.opts.Tracer.Dispatched(seq, env, len(subs))
	}
	if logger.Enabled(ctx, logging.LevelTrace) {
		logger.Log(ctx, logging.LevelTrace, "envelope dispatched",
			slog.Uint64("seq", seq),
			slog.String("envelope", env.String()),
			slog.Int("subscribers", len(subs)))
	}

	if len(subs) == 0 {
		r.stats.Dropped++
		logger.Debug("envelope dropped",
			slog.Uint64("seq", seq),
			slog.String("topic", TopicName(env.Topic())))
		return nil
	}

	for i, sub := range subs {
		out, err := sub.actor.Receive(ctx, env)
		r.stats.Delivered++
		if err != nil {
			return &DispatchError{Seq: seq, Envelope: env, Subscriber: i, Actor: r.Handle(sub.id), Err: err}
		}
		for _, o := range out {
			r.Send(stampSender(o, sub.id))
		}
	}

	return nil
}

// Handle returns id together with its directory name.
func (r *LocalRouter) Handle(id ActorID) Handle {
	return Handle{ID: id, Name: r.names.name(id)}
}

// Lookup resolves a directory name to an actor handle.
func (r *LocalRouter) Lookup(name string) (ActorID, bool) {
	return r.names.lookup(name)
}

// Pending returns the number of queued envelopes across both lanes.
func (r *LocalRouter) Pending() int {
	return r.queue.len() + r.idle.len()
}

// Topics returns every topic with at least one subscriber, sorted by name.
func (r *LocalRouter) Topics() []Topic {
	topics := make([]Topic, 0, len(r.subscriptions))
	for topic := range r.subscriptions {
		topics = append(topics, topic)
	}

	slices.SortFunc(topics, func(a, b Topic) int {
		return strings.Compare(a.String(), b.String())
	})
	return topics
}

// Subscribers returns the number of registrations for topic.
func (r *LocalRouter) Subscribers(topic Topic) int {
	if !ValidTopic(topic) {
		return 0
	}
	return len(r.subscriptions[topic])
}

// Stats returns current runtime statistics.
func (r *LocalRouter) Stats() RouterStats {
	stats := r.stats
	stats.Pending = r.Pending()
	return stats
}

func stampSender(env Envelope, id ActorID) Envelope {
	if env.Sender() == NoActor && id != NoActor {
		return env.WithSender(id)
	}
	return env
}
