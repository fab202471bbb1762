package core

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/najoast/simactor/logging"
)

type testTopic string

func (t testTopic) String() string { return string(t) }

type deferredTopic string

func (t deferredTopic) String() string { return string(t) }
func (t deferredTopic) Deferred() bool { return true }

// sliceTopic is a Topic whose values cannot be map keys.
type sliceTopic []string

func (t sliceTopic) String() string { return fmt.Sprint([]string(t)) }

// boxTopic has a comparable type but holds an arbitrary value, so some of
// its values cannot be hashed.
type boxTopic struct{ v any }

func (t boxTopic) String() string { return fmt.Sprint(t.v) }

const (
	topicTick   testTopic = "tick"
	topicInfect testTopic = "infect"
	topicOther  testTopic = "other"
)

func newTestRouter(opts RouterOptions) *LocalRouter {
	opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewRouter(opts)
}

// recorder is an actor that logs what it saw into a shared journal.
type recorder struct {
	name    string
	journal *[]string
	emit    func(env Envelope) []Envelope
}

func (r *recorder) Receive(ctx context.Context, env Envelope) ([]Envelope, error) {
	*r.journal = append(*r.journal, fmt.Sprintf("%s:%s:%v", r.name, env.Topic(), env.Message()))
	if r.emit != nil {
		return r.emit(env), nil
	}
	return nil, nil
}

func TestEnvelope(t *testing.T) {
	env := NewEnvelope(topicTick, 7)

	if env.Topic() != topicTick {
		t.Errorf("Expected topic %s, got %s", topicTick, env.Topic())
	}
	if env.Sender() != NoActor {
		t.Errorf("Expected sender %d, got %d", NoActor, env.Sender())
	}
	if _, timed := env.Time(); timed {
		t.Error("New envelope should not carry a time")
	}

	stamped := env.WithTime(2.5).WithSender(3)
	if at, timed := stamped.Time(); !timed || at != 2.5 {
		t.Errorf("Expected time 2.5, got %v (timed=%t)", at, timed)
	}
	if stamped.Sender() != 3 {
		t.Errorf("Expected sender 3, got %d", stamped.Sender())
	}

	// The original is a value and must be unaffected
	if _, timed := env.Time(); timed {
		t.Error("WithTime must not modify the receiver")
	}
	if env.Sender() != NoActor {
		t.Error("WithSender must not modify the receiver")
	}

	if _, timed := stamped.WithoutTime().Time(); timed {
		t.Error("WithoutTime should clear the time")
	}
	if stamped.WithTopic(topicOther).Topic() != topicOther {
		t.Error("WithTopic should readdress the envelope")
	}

	if got := stamped.String(); got != "tick from=3 t=2.5 msg=int7" {
		t.Errorf("Unexpected rendering %q", got)
	}
	if got := (Envelope{}).String(); got != "<nil> from=0 msg=<none>" {
		t.Errorf("Unexpected zero rendering %q", got)
	}
}

func TestPayload(t *testing.T) {
	type flip struct{ On bool }

	env := NewEnvelope(topicInfect, flip{On: true})

	msg, ok := Payload[flip](env)
	if !ok || !msg.On {
		t.Errorf("Expected flip{On:true}, got %+v (ok=%t)", msg, ok)
	}

	if _, ok := Payload[string](env); ok {
		t.Error("Payload should reject a mismatched type")
	}
}

func TestRegisterValidation(t *testing.T) {
	router := newTestRouter(DefaultRouterOptions())

	if err := router.Register(topicTick, nil); !errors.Is(err, ErrNilActor) {
		t.Errorf("Expected ErrNilActor, got %v", err)
	}
	if err := router.Register(nil, Sink()); !errors.Is(err, ErrInvalidTopic) {
		t.Errorf("Expected ErrInvalidTopic for nil topic, got %v", err)
	}
	if err := router.Register(sliceTopic{"a"}, Sink()); !errors.Is(err, ErrInvalidTopic) {
		t.Errorf("Expected ErrInvalidTopic for slice topic, got %v", err)
	}
	if _, err := router.Add(nil); !errors.Is(err, ErrNilActor) {
		t.Errorf("Expected ErrNilActor from Add, got %v", err)
	}

	// A non-comparable topic can still be sent; it just has no subscribers
	router.Send(NewEnvelope(sliceTopic{"a"}, nil))
	if err := router.Run(context.Background()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if stats := router.Stats(); stats.Dropped != 1 {
		t.Errorf("Expected 1 dropped envelope, got %d", stats.Dropped)
	}
}

func TestUnhashableTopicValue(t *testing.T) {
	router := newTestRouter(DefaultRouterOptions())
	unhashable := boxTopic{v: []int{1}}

	if ValidTopic(unhashable) {
		t.Error("Topic holding a slice should not be valid")
	}
	if !ValidTopic(boxTopic{v: "a"}) {
		t.Error("Topic holding a string should be valid")
	}

	if err := router.Register(unhashable, Sink()); !errors.Is(err, ErrInvalidTopic) {
		t.Errorf("Expected ErrInvalidTopic, got %v", err)
	}
	if n := router.Subscribers(unhashable); n != 0 {
		t.Errorf("Expected no subscribers, got %d", n)
	}

	if err := router.Register(boxTopic{v: "a"}, Sink()); err != nil {
		t.Fatalf("Failed to register hashable box topic: %v", err)
	}

	router.Send(NewEnvelope(unhashable, nil))
	router.Send(NewEnvelope(boxTopic{v: "a"}, nil))
	if err := router.Run(context.Background()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if stats := router.Stats(); stats.Dropped != 1 || stats.Delivered != 1 {
		t.Errorf("Expected 1 dropped and 1 delivered, got %+v", stats)
	}
}

// badSubscriber asks for a valid topic followed by an invalid one.
type badSubscriber struct {
	topics []Topic
}

func (b *badSubscriber) Name() string { return "bad" }

func (b *badSubscriber) Subscribe(id ActorID) ([]Topic, []Envelope) {
	return b.topics, []Envelope{NewEnvelope(topicOther, "hello")}
}

func (b *badSubscriber) Receive(ctx context.Context, env Envelope) ([]Envelope, error) {
	return nil, nil
}

func TestAddRejectsInvalidSubscription(t *testing.T) {
	router := newTestRouter(DefaultRouterOptions())
	actor := &badSubscriber{topics: []Topic{topicTick, nil}}

	id, err := router.Add(actor)
	if !errors.Is(err, ErrInvalidTopic) || id != NoActor {
		t.Fatalf("Expected ErrInvalidTopic, got %d, %v", id, err)
	}

	// Nothing from the failed add is left behind
	if n := router.Subscribers(topicTick); n != 0 {
		t.Errorf("Expected no subscribers on %s, got %d", topicTick, n)
	}
	if _, ok := router.Lookup("bad"); ok {
		t.Error("Failed add should not bind its name")
	}
	if router.Pending() != 0 {
		t.Errorf("Expected no initial envelopes queued, got %d", router.Pending())
	}

	// A corrected retry gets the first handle and the same name
	actor.topics = []Topic{topicTick}
	id, err = router.Add(actor)
	if err != nil {
		t.Fatalf("Retry failed: %v", err)
	}
	if id != 1 {
		t.Errorf("Expected handle 1, got %d", id)
	}
	if got, ok := router.Lookup("bad"); !ok || got != id {
		t.Errorf("Expected name bound to %d, got %d (found=%t)", id, got, ok)
	}
	if n := router.Subscribers(topicTick); n != 1 {
		t.Errorf("Expected 1 subscriber, got %d", n)
	}
}

func TestDispatchLogging(t *testing.T) {
	tests := []struct {
		level      string
		dispatched int
	}{
		{level: "trace", dispatched: 2},
		{level: "debug", dispatched: 0},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			var buf bytes.Buffer
			opts := DefaultRouterOptions()
			opts.Logger = logging.New(&buf, logging.Config{Level: tt.level, Format: "json"})
			router := NewRouter(opts)

			router.Register(topicTick, Sink())
			router.Send(NewEnvelope(topicTick, 1))
			router.Send(NewEnvelope(topicOther, 2))
			if err := router.Run(context.Background()); err != nil {
				t.Fatalf("Run failed: %v", err)
			}

			out := buf.String()
			if n := strings.Count(out, `"msg":"envelope dispatched"`); n != tt.dispatched {
				t.Errorf("Expected %d dispatch lines, got %d:\n%s", tt.dispatched, n, out)
			}
			if tt.dispatched > 0 && !strings.Contains(out, `"level":"TRACE"`) {
				t.Errorf("Expected TRACE level in output:\n%s", out)
			}
			if !strings.Contains(out, `"msg":"run started"`) {
				t.Errorf("Expected run start to be logged:\n%s", out)
			}
		})
	}
}

func TestDispatchOrder(t *testing.T) {
	router := newTestRouter(DefaultRouterOptions())

	var journal []string
	for _, name := range []string{"a", "b", "c", "d"} {
		if err := router.Register(topicTick, &recorder{name: name, journal: &journal}); err != nil {
			t.Fatalf("Failed to register %s: %v", name, err)
		}
	}

	router.Send(NewEnvelope(topicTick, 1))
	router.Send(NewEnvelope(topicTick, 2))

	if err := router.Run(context.Background()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	expected := []string{
		"a:tick:1", "b:tick:1", "c:tick:1", "d:tick:1",
		"a:tick:2", "b:tick:2", "c:tick:2", "d:tick:2",
	}
	assertJournal(t, expected, journal)

	if router.Pending() != 0 {
		t.Errorf("Expected empty queue, got %d", router.Pending())
	}
}

func TestFanOutAndDuplicates(t *testing.T) {
	router := newTestRouter(DefaultRouterOptions())

	var journal []string
	a := &recorder{name: "a", journal: &journal}
	b := &recorder{name: "b", journal: &journal}

	router.Register(topicTick, a)
	router.Register(topicTick, b)
	router.Register(topicTick, a)

	if n := router.Subscribers(topicTick); n != 3 {
		t.Errorf("Expected 3 registrations, got %d", n)
	}

	router.Send(NewEnvelope(topicTick, "x"))
	if err := router.Run(context.Background()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	// Duplicate registration means duplicate delivery
	assertJournal(t, []string{"a:tick:x", "b:tick:x", "a:tick:x"}, journal)

	stats := router.Stats()
	if stats.Dispatched != 1 || stats.Delivered != 3 {
		t.Errorf("Expected 1 dispatched / 3 delivered, got %d / %d", stats.Dispatched, stats.Delivered)
	}
}

func TestZeroSubscribers(t *testing.T) {
	router := newTestRouter(DefaultRouterOptions())

	count := 0
	router.Register(topicTick, ActorFunc(func(ctx context.Context, env Envelope) ([]Envelope, error) {
		count++
		return nil, nil
	}))

	router.Send(NewEnvelope(topicOther, "nobody listens"))
	if err := router.Run(context.Background()); err != nil {
		t.Fatalf("Unroutable send should not fail the run: %v", err)
	}

	if count != 0 {
		t.Errorf("Expected untouched actor state, got count %d", count)
	}
	if stats := router.Stats(); stats.Dropped != 1 || stats.Delivered != 0 {
		t.Errorf("Expected 1 dropped / 0 delivered, got %d / %d", stats.Dropped, stats.Delivered)
	}
}

func TestBreadthFirst(t *testing.T) {
	router := newTestRouter(DefaultRouterOptions())

	var journal []string
	router.Register(topicTick, &recorder{name: "a", journal: &journal, emit: func(env Envelope) []Envelope {
		return Emit(NewEnvelope(topicOther, "a1"), NewEnvelope(topicOther, "a2"))
	}})
	router.Register(topicTick, &recorder{name: "b", journal: &journal, emit: func(env Envelope) []Envelope {
		return Emit(NewEnvelope(topicOther, "b1"))
	}})
	router.Register(topicOther, &recorder{name: "o", journal: &journal})

	router.Send(NewEnvelope(topicTick, 1))
	router.Send(NewEnvelope(topicTick, 2))

	if err := router.Run(context.Background()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	// Reactions go to the back of the queue, behind the second tick
	expected := []string{
		"a:tick:1", "b:tick:1",
		"a:tick:2", "b:tick:2",
		"o:other:a1", "o:other:a2", "o:other:b1",
		"o:other:a1", "o:other:a2", "o:other:b1",
	}
	assertJournal(t, expected, journal)
}

func TestActorErrorAbortsRun(t *testing.T) {
	router := newTestRouter(DefaultRouterOptions())

	boom := errors.New("boom")
	var journal []string

	router.Register(topicTick, &recorder{name: "a", journal: &journal})
	failing := ActorFunc(func(ctx context.Context, env Envelope) ([]Envelope, error) {
		if env.Message() == 2 {
			return nil, boom
		}
		return nil, nil
	})
	id, err := router.Add(failing)
	if err != nil {
		t.Fatalf("Failed to add actor: %v", err)
	}
	router.register(topicTick, subscriber{id: id, actor: failing})
	router.Register(topicTick, &recorder{name: "c", journal: &journal})

	for i := 1; i <= 3; i++ {
		router.Send(NewEnvelope(topicTick, i))
	}

	err = router.Run(context.Background())
	if !errors.Is(err, boom) {
		t.Fatalf("Expected the actor error to surface, got %v", err)
	}

	var dispatchErr *DispatchError
	if !errors.As(err, &dispatchErr) {
		t.Fatalf("Expected *DispatchError, got %T", err)
	}
	if dispatchErr.Seq != 2 || dispatchErr.Subscriber != 1 || dispatchErr.Actor.ID != id {
		t.Errorf("Unexpected dispatch error context: %+v", dispatchErr)
	}

	// No rollback: a saw envelope 2, c never did, envelope 3 is still queued
	assertJournal(t, []string{"a:tick:1", "c:tick:1", "a:tick:2"}, journal)
	if router.Pending() != 1 {
		t.Errorf("Expected 1 pending envelope after abort, got %d", router.Pending())
	}
}

func TestReentrantRun(t *testing.T) {
	router := newTestRouter(DefaultRouterOptions())

	router.Register(topicTick, ActorFunc(func(ctx context.Context, env Envelope) ([]Envelope, error) {
		return nil, router.Run(ctx)
	}))

	router.Send(NewEnvelope(topicTick, nil))
	err := router.Run(context.Background())
	if !errors.Is(err, ErrReentrantRun) {
		t.Fatalf("Expected ErrReentrantRun, got %v", err)
	}

	// The router is usable again once the outer run has returned
	router.Send(NewEnvelope(topicOther, nil))
	if err := router.Run(context.Background()); err != nil {
		t.Fatalf("Run after abort failed: %v", err)
	}
}

func TestSendFromActor(t *testing.T) {
	router := newTestRouter(DefaultRouterOptions())

	var journal []string
	router.Register(topicTick, ActorFunc(func(ctx context.Context, env Envelope) ([]Envelope, error) {
		router.Send(NewEnvelope(topicOther, "sent"))
		return Emit(NewEnvelope(topicOther, "returned")), nil
	}))
	router.Register(topicOther, &recorder{name: "o", journal: &journal})

	router.Send(NewEnvelope(topicTick, nil))
	if err := router.Run(context.Background()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	assertJournal(t, []string{"o:other:sent", "o:other:returned"}, journal)
}

func TestNonTerminationHazard(t *testing.T) {
	opts := DefaultRouterOptions()
	opts.MaxDispatches = 1000
	router := newTestRouter(opts)

	count := 0
	router.Register(topicTick, ActorFunc(func(ctx context.Context, env Envelope) ([]Envelope, error) {
		count++
		return Emit(NewEnvelope(topicTick, count)), nil
	}))

	router.Send(NewEnvelope(topicTick, 0))
	err := router.Run(context.Background())
	if !errors.Is(err, ErrDispatchLimit) {
		t.Fatalf("Expected a self-feeding actor to hit the dispatch limit, got %v", err)
	}
	if count != 1000 {
		t.Errorf("Expected 1000 deliveries, got %d", count)
	}
	if router.Pending() != 1 {
		t.Errorf("Expected the next envelope still pending, got %d", router.Pending())
	}
}

func TestTermination(t *testing.T) {
	opts := DefaultRouterOptions()
	opts.MaxDispatches = 1000
	router := newTestRouter(opts)

	// Counts down and stops emitting at zero
	router.Register(topicTick, ActorFunc(func(ctx context.Context, env Envelope) ([]Envelope, error) {
		n, _ := Payload[int](env)
		if n == 0 {
			return nil, nil
		}
		return Emit(NewEnvelope(topicTick, n-1)), nil
	}))

	router.Send(NewEnvelope(topicTick, 999))
	if err := router.Run(context.Background()); err != nil {
		t.Fatalf("Expected termination within the limit, got %v", err)
	}
	if stats := router.Stats(); stats.Dispatched != 1000 || stats.Pending != 0 {
		t.Errorf("Expected 1000 dispatched and empty queue, got %+v", stats)
	}
}

func TestInfectScenario(t *testing.T) {
	router := newTestRouter(DefaultRouterOptions())

	infected := false
	otherCalls := 0

	router.Register(topicInfect, ActorFunc(func(ctx context.Context, env Envelope) ([]Envelope, error) {
		infected = true
		return nil, nil
	}))
	router.Register(topicTick, ActorFunc(func(ctx context.Context, env Envelope) ([]Envelope, error) {
		otherCalls++
		return nil, nil
	}))

	router.Send(NewEnvelope(topicInfect, nil))
	if err := router.Run(context.Background()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if !infected {
		t.Error("Expected infected state after run")
	}
	if otherCalls != 0 {
		t.Errorf("Expected no other actor invoked, got %d calls", otherCalls)
	}
	if router.Pending() != 0 {
		t.Errorf("Expected empty queue, got %d", router.Pending())
	}
}

// selfRegistering subscribes itself to two topics and greets on start.
type selfRegistering struct {
	id   ActorID
	seen []Envelope
}

func (s *selfRegistering) Subscribe(id ActorID) ([]Topic, []Envelope) {
	s.id = id
	return []Topic{topicTick, topicOther}, []Envelope{NewEnvelope(topicOther, "hello")}
}

func (s *selfRegistering) Receive(ctx context.Context, env Envelope) ([]Envelope, error) {
	s.seen = append(s.seen, env)
	if env.Topic() == topicTick {
		return Emit(NewEnvelope(topicOther, "reply")), nil
	}
	return nil, nil
}

func TestAddSubscriber(t *testing.T) {
	router := newTestRouter(DefaultRouterOptions())

	first, err := router.Add(Sink())
	if err != nil {
		t.Fatalf("Failed to add sink: %v", err)
	}
	if first != 1 {
		t.Errorf("Expected first handle 1, got %d", first)
	}

	actor := &selfRegistering{}
	id, err := router.Add(actor)
	if err != nil {
		t.Fatalf("Failed to add actor: %v", err)
	}
	if id != 2 || actor.id != 2 {
		t.Errorf("Expected handle 2, got %d (actor saw %d)", id, actor.id)
	}
	if router.Pending() != 1 {
		t.Errorf("Expected initial envelope queued, got %d", router.Pending())
	}

	topics := router.Topics()
	if len(topics) != 2 || topics[0] != topicOther || topics[1] != topicTick {
		t.Errorf("Unexpected topics %v", topics)
	}

	router.Send(NewEnvelope(topicTick, nil))
	if err := router.Run(context.Background()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if len(actor.seen) != 3 {
		t.Fatalf("Expected 3 envelopes, got %d", len(actor.seen))
	}
	for _, env := range []Envelope{actor.seen[0], actor.seen[2]} {
		if env.Sender() != id {
			t.Errorf("Expected envelope %s stamped with sender %d", env, id)
		}
	}
	if actor.seen[1].Sender() != NoActor {
		t.Errorf("Driver envelope should keep sender %d, got %d", NoActor, actor.seen[1].Sender())
	}
}

type namedSink string

func (n namedSink) Name() string { return string(n) }

func (n namedSink) Receive(ctx context.Context, env Envelope) ([]Envelope, error) {
	if env.Message() == "fail" {
		return nil, errors.New("refused")
	}
	return nil, nil
}

func TestActorDirectory(t *testing.T) {
	router := newTestRouter(DefaultRouterOptions())

	anon, err := router.Add(Sink())
	if err != nil {
		t.Fatalf("Failed to add sink: %v", err)
	}
	id, err := router.Add(namedSink("population"))
	if err != nil {
		t.Fatalf("Failed to add named actor: %v", err)
	}

	if got, ok := router.Lookup("population"); !ok || got != id {
		t.Errorf("Expected population to resolve to %d, got %d (found=%t)", id, got, ok)
	}
	if _, ok := router.Lookup("missing"); ok {
		t.Error("Unknown name should not resolve")
	}
	if h := router.Handle(anon); h.Name != "" || h.String() != ":00000001" {
		t.Errorf("Unexpected anonymous handle %v", h)
	}
	if h := router.Handle(id); h.String() != ":00000002(population)" {
		t.Errorf("Unexpected named handle %v", h)
	}

	// A taken name is rejected before a handle is allocated
	dup, err := router.Add(namedSink("population"))
	if !errors.Is(err, ErrDuplicateName) || dup != NoActor {
		t.Errorf("Expected ErrDuplicateName, got %d, %v", dup, err)
	}
	next, err := router.Add(Sink())
	if err != nil || next != 3 {
		t.Errorf("Expected handle 3 after rejected add, got %d, %v", next, err)
	}

	// Anonymous actors never collide
	if _, err := router.Add(namedSink("")); err != nil {
		t.Errorf("Empty name should be accepted: %v", err)
	}

	router.register(topicTick, subscriber{id: id, actor: namedSink("population")})
	router.Send(NewEnvelope(topicTick, "fail"))

	var dispatchErr *DispatchError
	if err := router.Run(context.Background()); !errors.As(err, &dispatchErr) {
		t.Fatalf("Expected *DispatchError, got %v", err)
	}
	if dispatchErr.Actor.Name != "population" {
		t.Errorf("Expected the failing actor's name in the error, got %+v", dispatchErr.Actor)
	}
}

func TestDeferredLane(t *testing.T) {
	router := newTestRouter(DefaultRouterOptions())

	const settle deferredTopic = "settle"

	var journal []string
	router.Register(settle, &recorder{name: "s", journal: &journal})
	router.Register(topicTick, &recorder{name: "a", journal: &journal, emit: func(env Envelope) []Envelope {
		if env.Message() == 1 {
			return Emit(NewEnvelope(settle, "from-a"), NewEnvelope(topicTick, 2))
		}
		return nil
	}})

	router.Send(NewEnvelope(settle, "seed"))
	router.Send(NewEnvelope(topicTick, 1))

	if err := router.Run(context.Background()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	// Deferred envelopes wait for the main lane to empty, then run FIFO
	expected := []string{"a:tick:1", "a:tick:2", "s:settle:seed", "s:settle:from-a"}
	assertJournal(t, expected, journal)
}

type countingTracer struct {
	seqs []uint64
	subs []int
}

func (c *countingTracer) Dispatched(seq uint64, env Envelope, subscribers int) {
	c.seqs = append(c.seqs, seq)
	c.subs = append(c.subs, subscribers)
}

func TestTracerIsObservational(t *testing.T) {
	build := func(tracer Tracer) []string {
		opts := DefaultRouterOptions()
		opts.Tracer = tracer
		router := newTestRouter(opts)

		var journal []string
		router.Register(topicTick, &recorder{name: "a", journal: &journal, emit: func(env Envelope) []Envelope {
			if n, _ := Payload[int](env); n < 3 {
				return Emit(NewEnvelope(topicTick, n+1), NewEnvelope(topicOther, n))
			}
			return nil
		}})
		router.Send(NewEnvelope(topicTick, 0))
		if err := router.Run(context.Background()); err != nil {
			t.Fatalf("Run failed: %v", err)
		}
		return journal
	}

	tracer := &countingTracer{}
	assertJournal(t, build(nil), build(tracer))

	if len(tracer.seqs) != 7 {
		t.Fatalf("Expected 7 traced envelopes, got %d", len(tracer.seqs))
	}
	for i, seq := range tracer.seqs {
		if seq != uint64(i+1) {
			t.Errorf("Expected seq %d, got %d", i+1, seq)
		}
	}
	if tracer.subs[2] != 0 {
		t.Errorf("Expected unroutable envelope traced with 0 subscribers, got %d", tracer.subs[2])
	}
}

func TestQueue(t *testing.T) {
	var q envelopeQueue

	for i := 0; i < 500; i++ {
		q.push(NewEnvelope(topicTick, i))
		if i%3 == 0 {
			q.pop()
		}
	}

	expected := 500 - 167
	if q.len() != expected {
		t.Fatalf("Expected %d queued, got %d", expected, q.len())
	}

	prev := -1
	for {
		env, ok := q.pop()
		if !ok {
			break
		}
		n := env.Message().(int)
		if n <= prev {
			t.Fatalf("Queue lost FIFO order: %d after %d", n, prev)
		}
		prev = n
	}
	if prev != 499 {
		t.Errorf("Expected last element 499, got %d", prev)
	}
}

func assertJournal(t *testing.T, expected, actual []string) {
	t.Helper()
	if len(expected) != len(actual) {
		t.Fatalf("Expected %d entries %v, got %d %v", len(expected), expected, len(actual), actual)
	}
	for i := range expected {
		if expected[i] != actual[i] {
			t.Errorf("Entry %d: expected %q, got %q", i, expected[i], actual[i])
		}
	}
}
