package core

import (
	"fmt"
	"log/slog"
	"reflect"
	"strings"

	"github.com/google/uuid"
)

// ActorID is the handle a Router assigns to an actor added with Add.
type ActorID uint32

// NoActor is the sender of envelopes seeded by the driver and the handle of
// actors registered directly with Register.
const NoActor ActorID = 0

// Time is simulated time. It has no relation to the wall clock.
type Time float64

// Topic identifies a logical channel. Any type may serve as a Topic as long
// as its dynamic values are comparable, since the router uses them as map
// keys.
type Topic interface {
	String() string
}

// Deferrable is implemented by topics whose envelopes must wait until the
// router has nothing else to dispatch.
type Deferrable interface {
	Deferred() bool
}

// SystemTopic is the topic type used by the runtime packages themselves.
type SystemTopic string

// String returns the topic name.
func (t SystemTopic) String() string {
	return string(t)
}

// System topics understood by the runtime packages.
const (
	// TopicStop requests an early exit. The timeline halts on it.
	TopicStop SystemTopic = "stop"

	// TopicDebug carries diagnostic requests. The timeline logs its state
	// on it.
	TopicDebug SystemTopic = "debug"
)

// Message is an envelope payload. Value types are preferred: a message is
// shared by every subscriber of its topic and must not be mutated after send.
type Message interface{}

// Envelope pairs a Message with the Topic it is sent on. The zero value has
// no topic and is dropped by the router.
type Envelope struct {
	topic   Topic
	message Message
	sender  ActorID
	at      Time
	timed   bool
}

// NewEnvelope creates an Envelope for msg on topic.
func NewEnvelope(topic Topic, msg Message) Envelope {
	return Envelope{topic: topic, message: msg}
}

// Topic returns the destination topic.
func (e Envelope) Topic() Topic {
	return e.topic
}

// Message returns the payload.
func (e Envelope) Message() Message {
	return e.message
}

// Sender returns the handle of the actor that produced the envelope.
func (e Envelope) Sender() ActorID {
	return e.sender
}

// Time returns the simulated time attached to the envelope, if any.
func (e Envelope) Time() (Time, bool) {
	return e.at, e.timed
}

// WithSender returns a copy of e sent by id.
func (e Envelope) WithSender(id ActorID) Envelope {
	e.sender = id
	return e
}

// WithTime returns a copy of e stamped with simulated time t.
func (e Envelope) WithTime(t Time) Envelope {
	e.at = t
	e.timed = true
	return e
}

// WithoutTime returns a copy of e with no simulated time.
func (e Envelope) WithoutTime() Envelope {
	e.at = 0
	e.timed = false
	return e
}

// WithTopic returns a copy of e addressed to topic.
func (e Envelope) WithTopic(topic Topic) Envelope {
	e.topic = topic
	return e
}

// String renders the envelope for diagnostics.
func (e Envelope) String() string {
	var b strings.Builder
	b.WriteString(TopicName(e.topic))
	fmt.Fprintf(&b, " from=%d", e.sender)
	if e.timed {
		fmt.Fprintf(&b, " t=%g", float64(e.at))
	}
	fmt.Fprintf(&b, " msg=%s", RenderMessage(e.message))
	return b.String()
}

// Payload returns the envelope message as an M.
func Payload[M any](e Envelope) (M, bool) {
	m, ok := e.message.(M)
	return m, ok
}

// TopicName renders topic, tolerating nil.
func TopicName(topic Topic) string {
	if topic == nil {
		return "<nil>"
	}
	return topic.String()
}

// RenderMessage renders msg for diagnostics.
func RenderMessage(msg Message) string {
	switch m := msg.(type) {
	case nil:
		return "<none>"
	case fmt.Stringer:
		return m.String()
	default:
		return fmt.Sprintf("%T%+v", msg, msg)
	}
}

// hashProbe is never written after init. Looking a key up in it forces the
// key to be hashed.
var hashProbe = map[Topic]struct{}{SystemTopic(""): {}}

// ValidTopic reports whether topic can be used as a subscription key. A
// comparable type can still hold an unhashable value in an interface field,
// so the value itself is hashed once.
func ValidTopic(topic Topic) (ok bool) {
	if topic == nil || !reflect.TypeOf(topic).Comparable() {
		return false
	}

	defer func() {
		if recover() != nil {
			ok = false
		}
	}()
	_, _ = hashProbe[topic]
	return true
}

func deferred(topic Topic) bool {
	d, ok := topic.(Deferrable)
	return ok && d.Deferred()
}

// RouterOptions contains configuration options for creating a Router.
type RouterOptions struct {
	// Logger receives run summaries and dropped-envelope notices
	Logger *slog.Logger

	// Tracer observes every dispatched envelope. Nil disables tracing.
	Tracer Tracer

	// MaxDispatches aborts a run after this many envelopes. Zero means
	// unlimited, which lets a self-feeding actor run forever.
	MaxDispatches uint64
}

// DefaultRouterOptions returns sensible default options.
func DefaultRouterOptions() RouterOptions {
	return RouterOptions{
		Logger:        nil,
		Tracer:        nil,
		MaxDispatches: 0,
	}
}

// RouterStats contains runtime statistics for a Router.
type RouterStats struct {
	// RunID identifies the most recent Run
	RunID uuid.UUID

	// Runs is the number of completed or aborted runs
	Runs int

	// Dispatched counts envelopes taken off the queue
	Dispatched uint64

	// Delivered counts individual actor invocations
	Delivered uint64

	// Dropped counts envelopes that had no subscribers
	Dropped uint64

	// Pending is the number of queued envelopes
	Pending int
}
