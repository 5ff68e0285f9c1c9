package incident

import (
	"sort"
	"sync"
	"time"

	"github.com/statuspulse/statuspulse/internal/detect"
)

// maxClosed bounds how many resolved incidents the log retains.
const maxClosed = 200

// Incident is one contiguous failure interval for a service.
// ResolvedAt is nil while the incident is still open.
type Incident struct {
	Service    string     `json:"service"`
	OpenedAt   time.Time  `json:"opened_at"`
	ResolvedAt *time.Time `json:"resolved_at,omitempty"`
}

// Log accumulates incidents from transition events. Safe for concurrent use.
type Log struct {
	mu     sync.Mutex
	open   map[string]*Incident
	closed []*Incident
}

// NewLog returns an empty Log.
func NewLog() *Log {
	return &Log{open: make(map[string]*Incident)}
}

// Record folds one transition event into the log.
// A FailureStarted while an incident is already open is ignored — the
// detector guarantees alternation, so this only happens if a caller
// replays events.
func (l *Log) Record(ev detect.Event) {
	l.mu.Lock()
	defer l.mu.Unlock()

	switch ev.Type {
	case detect.FailureStarted:
		if _, ok := l.open[ev.Service]; !ok {
			l.open[ev.Service] = &Incident{Service: ev.Service, OpenedAt: ev.At}
		}
	case detect.Recovered:
		inc, ok := l.open[ev.Service]
		if !ok {
			return
		}
		resolved := ev.At
		inc.ResolvedAt = &resolved
		delete(l.open, ev.Service)

		l.closed = append(l.closed, inc)
		if len(l.closed) > maxClosed {
			l.closed = l.closed[len(l.closed)-maxClosed:]
		}
	}
}

// Drop discards any open incident for a service that is no longer tracked.
func (l *Log) Drop(service string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.open, service)
}

// Open returns copies of all currently open incidents, oldest first.
func (l *Log) Open() []Incident {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]Incident, 0, len(l.open))
	for _, inc := range l.open {
		out = append(out, *inc)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].OpenedAt.Before(out[j].OpenedAt) })
	return out
}

// Recent returns up to n resolved incidents, newest first.
func (l *Log) Recent(n int) []Incident {
	l.mu.Lock()
	defer l.mu.Unlock()

	if n > len(l.closed) {
		n = len(l.closed)
	}
	out := make([]Incident, 0, n)
	for i := len(l.closed) - 1; i >= len(l.closed)-n; i-- {
		out = append(out, *l.closed[i])
	}
	return out
}
