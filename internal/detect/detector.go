package detect

import (
	"sync"
	"time"

	"github.com/statuspulse/statuspulse/internal/timeseries"
)

// EventType marks a crossing between up and down.
type EventType string

const (
	FailureStarted EventType = "failure_started"
	Recovered      EventType = "recovered"
)

// Event is emitted exactly once per up/down crossing for a service.
type Event struct {
	Service  string            `json:"service"`
	Type     EventType         `json:"type"`
	At       time.Time         `json:"at"`
	Previous timeseries.Status `json:"previous"`
	Current  timeseries.Status `json:"current"`
}

// serviceState is the detector's memory for one service.
type serviceState struct {
	status       timeseries.Status
	transitionAt time.Time
}

// Detector holds one state machine per tracked service.
// Safe for concurrent use.
type Detector struct {
	mu     sync.Mutex
	states map[string]*serviceState
}

// New returns a ready-to-use Detector.
func New() *Detector {
	return &Detector{states: make(map[string]*serviceState)}
}

// Observe feeds one observed status for id into its state machine and
// returns the transition event, if any.
//
// Rules:
//   - prior unknown: the observation sets the baseline, no event.
//   - up -> down: FailureStarted.
//   - down -> up: Recovered.
//   - anything else: no event; an unknown sample never overwrites a
//     known prior state.
func (d *Detector) Observe(id string, status timeseries.Status, at time.Time) (Event, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	st, ok := d.states[id]
	if !ok {
		st = &serviceState{status: timeseries.StatusUnknown}
		d.states[id] = st
	}

	prev := st.status

	if prev == timeseries.StatusUnknown {
		if status.Known() {
			st.status = status
		}
		return Event{}, false
	}

	if !status.Known() || status == prev {
		return Event{}, false
	}

	st.status = status
	st.transitionAt = at

	ev := Event{
		Service:  id,
		At:       at,
		Previous: prev,
		Current:  status,
	}
	if status == timeseries.StatusDown {
		ev.Type = FailureStarted
	} else {
		ev.Type = Recovered
	}
	return ev, true
}

// State returns the current known state for id, StatusUnknown if the
// service has never produced a definite sample.
func (d *Detector) State(id string) timeseries.Status {
	d.mu.Lock()
	defer d.mu.Unlock()
	if st, ok := d.states[id]; ok {
		return st.status
	}
	return timeseries.StatusUnknown
}

// LastTransition returns when id last crossed between up and down.
// The boolean is false when no transition has happened yet.
func (d *Detector) LastTransition(id string) (time.Time, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if st, ok := d.states[id]; ok && !st.transitionAt.IsZero() {
		return st.transitionAt, true
	}
	return time.Time{}, false
}

// Remove discards the state machine for id. The next Observe for that id
// starts from a fresh baseline.
func (d *Detector) Remove(id string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.states, id)
}
