package metrics

import (
	"sync"
	"time"
)

// Event names emitted by a run.
const (
	RunStarted          = "run_started"
	RunCompleted        = "run_completed"
	RunFailed           = "run_failed"
	RunDurationSeconds  = "run_duration_seconds"
	SKUsEvaluated       = "skus_evaluated"
	SKUFailed           = "sku_failed"
	AlertsGenerated     = "alerts_generated"
	PurchaseOrdersDraft = "purchase_orders_drafted"
	ApprovalRequired    = "approval_required"
	SequenceCollision   = "sequence_collision"
	DeliveryRecorded    = "delivery_recorded"
	POTransition        = "po_transitions"
)

// Event is one measurement. Names ending in _seconds are durations.
type Event struct {
	Name   string
	Value  float64
	Labels map[string]string
	At     time.Time
}

// Sink receives run events. Implementations must be safe for concurrent use.
type Sink interface {
	Emit(e Event)
}

// Count emits a counter increment.
func Count(s Sink, name string, value float64, labels map[string]string) {
	if s == nil {
		return
	}
	s.Emit(Event{Name: name, Value: value, Labels: labels, At: time.Now()})
}

// Since emits the elapsed seconds since start.
func Since(s Sink, name string, start time.Time, labels map[string]string) {
	if s == nil {
		return
	}
	now := time.Now()
	s.Emit(Event{Name: name, Value: now.Sub(start).Seconds(), Labels: labels, At: now})
}

type noopSink struct{}

// Noop discards everything.
func Noop() Sink { return noopSink{} }

func (noopSink) Emit(Event) {}

// Recorder keeps every event in memory.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) Emit(e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

// Events returns a copy of everything recorded so far.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// Total sums the values of all events with the given name.
func (r *Recorder) Total(name string) float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	total := 0.0
	for _, e := range r.events {
		if e.Name == name {
			total += e.Value
		}
	}
	return total
}

// Fanout emits to every sink in order.
type Fanout []Sink

func (f Fanout) Emit(e Event) {
	for _, s := range f {
		if s != nil {
			s.Emit(e)
		}
	}
}
