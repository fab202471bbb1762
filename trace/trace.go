// Package trace observes router dispatches without influencing them.
//
// Printer writes a human readable line per envelope. Recorder writes a
// compact msgpack stream that ReadRecords can load back, so two runs with
// the same seed can be compared record by record.
package trace

import (
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/vmihailenco/msgpack/v5"
	"golang.org/x/exp/slices"

	"github.com/najoast/simactor/core"
)

// Record is one dispatched envelope.
type Record struct {
	Seq         uint64       `msgpack:"q"`
	Topic       string       `msgpack:"t"`
	Sender      core.ActorID `msgpack:"s,omitempty"`
	At          float64      `msgpack:"@,omitempty"`
	Timed       bool         `msgpack:"tm,omitempty"`
	Payload     string       `msgpack:"p"`
	Subscribers int          `msgpack:"n"`
}

// NewRecord captures env as dispatched with the given sequence number.
func NewRecord(seq uint64, env core.Envelope, subscribers int) Record {
	at, timed := env.Time()
	return Record{
		Seq:         seq,
		Topic:       core.TopicName(env.Topic()),
		Sender:      env.Sender(),
		At:          float64(at),
		Timed:       timed,
		Payload:     core.RenderMessage(env.Message()),
		Subscribers: subscribers,
	}
}

func (r Record) String() string {
	line := fmt.Sprintf("[%d] %s", r.Seq, r.Topic)
	if r.Sender != core.NoActor {
		line += fmt.Sprintf(" from=%d", r.Sender)
	}
	if r.Timed {
		line += fmt.Sprintf(" t=%g", r.At)
	}
	line += " msg=" + r.Payload
	if r.Subscribers == 0 {
		line += " (dropped)"
	}
	return line
}

// Printer writes one line per dispatched envelope.
type Printer struct {
	w   io.Writer
	err error
}

var _ core.Tracer = (*Printer)(nil)

// NewPrinter creates a Printer writing to w.
func NewPrinter(w io.Writer) *Printer {
	return &Printer{w: w}
}

// Dispatched implements core.Tracer.
func (p *Printer) Dispatched(seq uint64, env core.Envelope, subscribers int) {
	if p.err != nil {
		return
	}
	_, p.err = fmt.Fprintln(p.w, NewRecord(seq, env, subscribers))
}

// Err returns the first write error, if any.
func (p *Printer) Err() error {
	return p.err
}

// Recorder encodes dispatched envelopes as a msgpack stream.
type Recorder struct {
	mu    sync.Mutex
	enc   *msgpack.Encoder
	count int
	err   error
}

var _ core.Tracer = (*Recorder)(nil)

// NewRecorder creates a Recorder writing to w.
func NewRecorder(w io.Writer) *Recorder {
	enc := msgpack.NewEncoder(w)
	enc.UseCompactInts(true)
	return &Recorder{enc: enc}
}

// Dispatched implements core.Tracer. Encoding errors are kept and reported
// by Err so tracing can never abort a run.
func (r *Recorder) Dispatched(seq uint64, env core.Envelope, subscribers int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.err != nil {
		return
	}
	if err := r.enc.Encode(NewRecord(seq, env, subscribers)); err != nil {
		r.err = fmt.Errorf("encode record %d: %w", seq, err)
		return
	}
	r.count++
}

// Count returns the number of records written.
func (r *Recorder) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.count
}

// Err returns the first encoding error, if any.
func (r *Recorder) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.err
}

// ReadRecords decodes every record in a stream written by Recorder. A
// stream that ends inside a record is an error.
func ReadRecords(rd io.Reader) ([]Record, error) {
	dec := msgpack.NewDecoder(rd)

	var records []Record
	for {
		if _, err := dec.PeekCode(); errors.Is(err, io.EOF) {
			return records, nil
		}

		var rec Record
		if err := dec.Decode(&rec); err != nil {
			return records, fmt.Errorf("decode record %d: %w", len(records)+1, err)
		}
		records = append(records, rec)
	}
}

// Equal reports whether two traces match. When they differ, the index of
// the first mismatching record is returned; a length mismatch reports the
// length of the shorter trace.
func Equal(a, b []Record) (int, bool) {
	if slices.Equal(a, b) {
		return -1, true
	}
	n := min(len(a), len(b))
	for i := range n {
		if a[i] != b[i] {
			return i, false
		}
	}
	return n, false
}

// Multi fans a dispatch out to several tracers in order.
type Multi []core.Tracer

var _ core.Tracer = Multi(nil)

// Dispatched implements core.Tracer.
func (m Multi) Dispatched(seq uint64, env core.Envelope, subscribers int) {
	for _, t := range m {
		if t != nil {
			t.Dispatched(seq, env, subscribers)
		}
	}
}
