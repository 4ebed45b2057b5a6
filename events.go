package gridlate

import "time"

// EventKind identifies the lifecycle stage an event reports.
type EventKind string

const (
	EventRunStarted    EventKind = "run_started"
	EventFormulaParsed EventKind = "formula_parsed"
	EventFormulaFailed EventKind = "formula_failed"
	EventCycleDetected EventKind = "cycle_detected"
	EventRunFinished   EventKind = "run_finished"
)

// Event is one observation from a translation run. Cell is empty for
// run-scoped events.
type Event struct {
	Kind      EventKind
	RunID     string
	Cell      string
	Err       error
	Payload   map[string]any
	Timestamp time.Time
}

// EventHandler receives events as a run progresses. Handlers must be
// safe for concurrent use; formula events fire from worker goroutines.
type EventHandler interface {
	Handle(ev Event)
}

// EventHandlerFunc adapts a function to the EventHandler interface.
type EventHandlerFunc func(ev Event)

func (f EventHandlerFunc) Handle(ev Event) { f(ev) }

// multiHandler fans one event out to several handlers in order.
type multiHandler []EventHandler

func (m multiHandler) Handle(ev Event) {
	for _, h := range m {
		h.Handle(ev)
	}
}

func newEvent(kind EventKind, runID string) Event {
	return Event{Kind: kind, RunID: runID, Timestamp: time.Now()}
}

// WithCell returns a copy of the event scoped to one cell.
func (ev Event) WithCell(cell string) Event {
	ev.Cell = cell
	return ev
}

// WithErr returns a copy of the event carrying an error.
func (ev Event) WithErr(err error) Event {
	ev.Err = err
	return ev
}

// WithPayload returns a copy of the event with one payload entry added.
func (ev Event) WithPayload(key string, value any) Event {
	next := make(map[string]any, len(ev.Payload)+1)
	for k, v := range ev.Payload {
		next[k] = v
	}
	next[key] = value
	ev.Payload = next
	return ev
}
