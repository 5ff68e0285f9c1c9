package engine

import (
	"time"

	"github.com/statuspulse/statuspulse/internal/aggregate"
	"github.com/statuspulse/statuspulse/internal/timeseries"
)

// ServiceSnapshot is a read-only projection of one tracked service,
// consumed by the view layer. It never exposes mutable engine state.
type ServiceSnapshot struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	URL  string `json:"url"`

	// State is the detector's current known state.
	State timeseries.Status `json:"state"`

	// LastObservation is the most recent sample, nil before the first
	// refresh.
	LastObservation *timeseries.Observation `json:"last_observation,omitempty"`

	// LastTransitionAt is when the service last crossed between up and
	// down, nil if it never has.
	LastTransitionAt *time.Time `json:"last_transition_at,omitempty"`

	// Summary aggregates the engine's default window.
	Summary aggregate.Summary `json:"-"`
}

// Snapshot returns the projection for id over the engine's default window.
// Fails with ErrUnknownService for untracked ids.
func (e *Engine) Snapshot(id string) (ServiceSnapshot, error) {
	return e.SnapshotWindow(id, e.defaultWindow)
}

// SnapshotWindow is Snapshot with a caller-chosen lookback window.
func (e *Engine) SnapshotWindow(id string, window time.Duration) (ServiceSnapshot, error) {
	e.mu.RLock()
	rec, ok := e.records[id]
	e.mu.RUnlock()
	if !ok {
		return ServiceSnapshot{}, ErrUnknownService
	}

	summary, err := e.QueryUptime(id, window)
	if err != nil {
		return ServiceSnapshot{}, err
	}

	snap := ServiceSnapshot{
		ID:      rec.svc.ID,
		Name:    rec.svc.Name,
		URL:     rec.svc.URL,
		State:   e.detector.State(id),
		Summary: summary,
	}

	if last, ok, err := e.store.Last(id); err == nil && ok {
		obs := last
		snap.LastObservation = &obs
	}
	if at, ok := e.detector.LastTransition(id); ok {
		t := at
		snap.LastTransitionAt = &t
	}
	return snap, nil
}

// SnapshotAll returns projections for every tracked service, sorted by id.
func (e *Engine) SnapshotAll() []ServiceSnapshot {
	ids := e.TrackedIDs()
	out := make([]ServiceSnapshot, 0, len(ids))
	for _, id := range ids {
		snap, err := e.Snapshot(id)
		if err != nil {
			// Untracked between listing and snapshotting — skip.
			continue
		}
		out = append(out, snap)
	}
	return out
}
