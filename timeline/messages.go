package timeline

import (
	"fmt"

	"github.com/najoast/simactor/core"
)

// Topic is the topic type of the timeline's channels.
type Topic string

// Timeline channels.
const (
	// TopicAdvance requests that the timeline move to the next event time.
	TopicAdvance Topic = "timeline.advance"

	// TopicSchedule carries a Schedule request.
	TopicSchedule Topic = "timeline.schedule"

	// TopicSettle is the timeline's deferred self message. It is only
	// dispatched once everything the current tick caused has been handled.
	TopicSettle Topic = "timeline.settle"

	// TopicTimeRequest asks the timeline for the current time.
	TopicTimeRequest Topic = "timeline.time_request"

	// TopicTime carries the Now answer.
	TopicTime Topic = "timeline.time"
)

// String returns the topic name.
func (t Topic) String() string {
	return string(t)
}

// Deferred reports whether envelopes on t wait for the router to go quiet.
func (t Topic) Deferred() bool {
	return t == TopicSettle
}

// Schedule asks the timeline to emit Envelope at simulated time At.
type Schedule struct {
	At       core.Time
	Envelope core.Envelope
}

func (s Schedule) String() string {
	return fmt.Sprintf("schedule@%g{%s}", float64(s.At), s.Envelope)
}

// Advance is the payload of advance requests the timeline emits.
type Advance struct{}

func (Advance) String() string {
	return "advance"
}

// Now answers a time request.
type Now struct {
	Time core.Time
}

// settle is addressed to the timeline that emitted it.
type settle struct {
	owner *Timeline
}

func (settle) String() string {
	return "settle"
}

// ScheduleAt builds a request to emit env at time at.
func ScheduleAt(at core.Time, env core.Envelope) core.Envelope {
	return core.NewEnvelope(TopicSchedule, Schedule{At: at, Envelope: env})
}

// AdvanceRequest builds an advance request on the default topic.
func AdvanceRequest() core.Envelope {
	return core.NewEnvelope(TopicAdvance, Advance{})
}
