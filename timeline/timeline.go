// Package timeline provides the discrete-event driver actor.
//
// A Timeline owns simulated time and a priority queue of scheduled
// envelopes. Each advance request moves the clock to the earliest scheduled
// time and emits every envelope due at that time. Once the router has
// handled everything those envelopes caused, the timeline either requests
// the next advance or halts because nothing is left.
package timeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/najoast/simactor/core"
)

// Timeline errors
var (
	ErrHalted         = errors.New("timeline is halted")
	ErrScheduleInPast = errors.New("event scheduled before current time")
	ErrBadSchedule    = errors.New("malformed schedule request")
)

// State is the timeline's position in its advance cycle.
type State uint8

const (
	// StateIdle means nothing has been scheduled or advanced yet
	StateIdle State = iota

	// StateAdvancing means an advance request is outstanding
	StateAdvancing

	// StateDraining means the current tick's events are being handled
	StateDraining

	// StateHalted means the event queue ran dry. It is terminal.
	StateHalted
)

// String returns the string representation of State.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAdvancing:
		return "advancing"
	case StateDraining:
		return "draining"
	case StateHalted:
		return "halted"
	default:
		return "unknown"
	}
}

// Options contains configuration options for creating a Timeline.
type Options struct {
	// AdvanceTopic is the topic advance requests travel on
	AdvanceTopic core.Topic

	// Name is the timeline's router directory name. Empty leaves it
	// anonymous.
	Name string

	// Logger receives state transitions at debug level
	Logger *slog.Logger
}

// DefaultOptions returns sensible default options.
func DefaultOptions() Options {
	return Options{
		AdvanceTopic: TopicAdvance,
		Name:         "timeline",
	}
}

// Timeline is the actor that drives simulated time.
type Timeline struct {
	id      core.ActorID
	now     core.Time
	events  eventQueue
	state   State
	ticks   uint64
	advance core.Topic
	name    string
	logger  *slog.Logger
}

var (
	_ core.Actor      = (*Timeline)(nil)
	_ core.Subscriber = (*Timeline)(nil)
	_ core.Named      = (*Timeline)(nil)
)

// New creates a Timeline at time zero.
func New(opts Options) *Timeline {
	if opts.AdvanceTopic == nil {
		opts.AdvanceTopic = TopicAdvance
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Timeline{
		advance: opts.AdvanceTopic,
		name:    opts.Name,
		logger:  logger.With(slog.String("component", "timeline")),
	}
}

// Name returns the directory name.
func (tl *Timeline) Name() string {
	return tl.name
}

// Now returns the current simulated time.
func (tl *Timeline) Now() core.Time {
	return tl.now
}

// State returns the current state.
func (tl *Timeline) State() State {
	return tl.state
}

// Len returns the number of scheduled events.
func (tl *Timeline) Len() int {
	return tl.events.len()
}

// Ticks returns how many distinct times the clock has advanced to.
func (tl *Timeline) Ticks() uint64 {
	return tl.ticks
}

// Schedule adds env at time at without going through the router. It is
// meant for preloading before a run and does not leave the Idle state.
func (tl *Timeline) Schedule(at core.Time, env core.Envelope) error {
	if tl.state == StateHalted {
		return ErrHalted
	}
	if at < tl.now {
		return fmt.Errorf("%w: %g < %g", ErrScheduleInPast, float64(at), float64(tl.now))
	}
	if !core.ValidTopic(env.Topic()) {
		return fmt.Errorf("%w: %w", ErrBadSchedule, core.ErrInvalidTopic)
	}

	tl.events.push(at, env)
	return nil
}

// Subscribe registers the timeline's channels.
func (tl *Timeline) Subscribe(id core.ActorID) ([]core.Topic, []core.Envelope) {
	tl.id = id
	return []core.Topic{
		tl.advance,
		TopicSchedule,
		TopicSettle,
		TopicTimeRequest,
		core.TopicStop,
		core.TopicDebug,
	}, nil
}

// Receive handles timeline channel envelopes and ignores everything else.
func (tl *Timeline) Receive(ctx context.Context, env core.Envelope) ([]core.Envelope, error) {
	switch env.Topic() {
	case tl.advance:
		return tl.onAdvance(), nil
	case TopicSchedule:
		return tl.onSchedule(env)
	case TopicSettle:
		return tl.onSettle(env), nil
	case TopicTimeRequest:
		return core.Emit(core.NewEnvelope(TopicTime, Now{Time: tl.now}).WithTime(tl.now)), nil
	case core.TopicStop:
		tl.stop()
		return nil, nil
	case core.TopicDebug:
		tl.dump(ctx)
		return nil, nil
	default:
		return nil, nil
	}
}

// onAdvance moves the clock to the earliest event time and emits every
// event due then, followed by a settle request.
func (tl *Timeline) onAdvance() []core.Envelope {
	if tl.state == StateHalted {
		return nil
	}

	next, ok := tl.events.peek()
	if !ok {
		tl.halt()
		return nil
	}

	tl.now = next.at
	tl.ticks++
	tl.setState(StateDraining)

	var out []core.Envelope
	for {
		ev, ok := tl.events.peek()
		if !ok || ev.at != tl.now {
			break
		}
		tl.events.pop()
		out = append(out, ev.env.WithTime(tl.now))
	}

	return append(out, core.NewEnvelope(TopicSettle, settle{owner: tl}).WithTime(tl.now))
}

func (tl *Timeline) onSchedule(env core.Envelope) ([]core.Envelope, error) {
	req, ok := core.Payload[Schedule](env)
	if !ok {
		return nil, fmt.Errorf("%w: payload %T", ErrBadSchedule, env.Message())
	}

	scheduled := req.Envelope
	if scheduled.Sender() == core.NoActor {
		scheduled = scheduled.WithSender(env.Sender())
	}
	if err := tl.Schedule(req.At, scheduled); err != nil {
		return nil, err
	}

	if tl.state == StateIdle {
		tl.setState(StateAdvancing)
		return core.Emit(core.NewEnvelope(TopicSettle, settle{owner: tl}).WithTime(tl.now)), nil
	}
	return nil, nil
}

// onSettle runs once the current tick has been fully handled.
func (tl *Timeline) onSettle(env core.Envelope) []core.Envelope {
	if s, ok := core.Payload[settle](env); !ok || s.owner != tl {
		return nil
	}
	if tl.state == StateHalted {
		return nil
	}

	if tl.events.len() == 0 {
		tl.halt()
		return nil
	}

	tl.setState(StateAdvancing)
	return core.Emit(core.NewEnvelope(tl.advance, Advance{}).WithTime(tl.now))
}

// dump logs the clock and queue on request.
func (tl *Timeline) dump(ctx context.Context) {
	attrs := []slog.Attr{
		slog.String("state", tl.state.String()),
		slog.Float64("now", float64(tl.now)),
		slog.Int("scheduled", tl.events.len()),
		slog.Uint64("ticks", tl.ticks),
	}
	if next, ok := tl.events.peek(); ok {
		attrs = append(attrs, slog.Float64("next", float64(next.at)))
	}
	tl.logger.LogAttrs(ctx, slog.LevelInfo, "timeline status", attrs...)
}

func (tl *Timeline) stop() {
	dropped := tl.events.len()
	tl.events.clear()
	tl.logger.Debug("stop requested", slog.Float64("now", float64(tl.now)), slog.Int("dropped_events", dropped))
	tl.halt()
}

func (tl *Timeline) halt() {
	tl.setState(StateHalted)
}

func (tl *Timeline) setState(s State) {
	if tl.state == s {
		return
	}
	tl.logger.Debug("state changed",
		slog.String("from", tl.state.String()),
		slog.String("to", s.String()),
		slog.Float64("now", float64(tl.now)))
	tl.state = s
}
