package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/statuspulse/statuspulse/internal/aggregate"
	"github.com/statuspulse/statuspulse/internal/config"
	"github.com/statuspulse/statuspulse/internal/detect"
	"github.com/statuspulse/statuspulse/internal/probe"
	"github.com/statuspulse/statuspulse/internal/timeseries"
)

// ErrUnknownService mirrors the store's sentinel so callers only need one
// import to test for it.
var ErrUnknownService = timeseries.ErrUnknownService

// record is the engine's per-service unit: descriptor plus prober.
// History and detector state live in the store and detector, keyed by id.
type record struct {
	svc    config.Service
	prober probe.Prober
}

// RefreshResult is one service's outcome within a refresh cycle.
type RefreshResult struct {
	Observation timeseries.Observation
	Event       *detect.Event
	Err         error
}

// Options configures a new Engine.
type Options struct {
	Retention     time.Duration // absolute history cap
	DefaultWindow time.Duration // aggregation lookback when caller picks none
	ProbeTimeout  time.Duration // per-probe deadline
	ProbeConfig   config.ProbeConfig

	// NewProber is injectable for tests; defaults to probe.New.
	NewProber func(config.Service, config.ProbeConfig) (probe.Prober, error)
}

// Engine is the monitoring core. Safe for concurrent use.
type Engine struct {
	store    *timeseries.Store
	detector *detect.Detector
	events   *bus

	defaultWindow time.Duration
	probeTimeout  time.Duration
	probeCfg      config.ProbeConfig
	newProber     func(config.Service, config.ProbeConfig) (probe.Prober, error)

	mu      sync.RWMutex
	records map[string]*record

	now func() time.Time // injectable for deterministic tests
}

// New creates an Engine with an empty tracked set.
func New(opts Options) *Engine {
	if opts.NewProber == nil {
		opts.NewProber = probe.New
	}
	return &Engine{
		store:         timeseries.NewStore(opts.Retention),
		detector:      detect.New(),
		events:        newBus(),
		defaultWindow: opts.DefaultWindow,
		probeTimeout:  opts.ProbeTimeout,
		probeCfg:      opts.ProbeConfig,
		newProber:     opts.NewProber,
		records:       make(map[string]*record),
		now:           time.Now,
	}
}

// SetTrackedServices reconciles the tracked set against services: new ids
// get a fresh record, ids no longer present are discarded together with
// their history and detector state, existing ids keep both. A changed
// descriptor (url or probe settings) rebuilds the prober in place.
func (e *Engine) SetTrackedServices(services []config.Service) {
	e.mu.Lock()
	defer e.mu.Unlock()

	desired := make(map[string]config.Service, len(services))
	for _, svc := range services {
		desired[svc.ID] = svc
	}

	for id := range e.records {
		if _, ok := desired[id]; !ok {
			slog.Info("engine: untracking service", "service", id)
			delete(e.records, id)
			e.store.Deregister(id)
			e.detector.Remove(id)
		}
	}

	for id, svc := range desired {
		rec, ok := e.records[id]
		if ok && rec.svc == svc {
			continue
		}
		prober, err := e.newProber(svc, e.probeCfg)
		if err != nil {
			slog.Error("engine: skipping service, could not build prober",
				"service", id, "err", err)
			continue
		}
		if !ok {
			slog.Info("engine: tracking service", "service", id, "url", svc.URL)
			e.store.Register(id)
		} else {
			slog.Info("engine: service descriptor changed", "service", id)
		}
		e.records[id] = &record{svc: svc, prober: prober}
	}
}

// TrackedIDs returns the currently tracked service ids, sorted.
func (e *Engine) TrackedIDs() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	ids := make([]string, 0, len(e.records))
	for id := range e.records {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// RefreshOne samples id once: probes, appends the observation, prunes, and
// runs the detector. A probe failure is still recorded — as an
// unknown-status observation — and the collection error is returned
// alongside it. Fails with ErrUnknownService for untracked ids.
func (e *Engine) RefreshOne(ctx context.Context, id string) (timeseries.Observation, *detect.Event, error) {
	e.mu.RLock()
	rec, ok := e.records[id]
	e.mu.RUnlock()
	if !ok {
		return timeseries.Observation{}, nil, fmt.Errorf("refresh %q: %w", id, ErrUnknownService)
	}

	probeCtx, cancel := context.WithTimeout(ctx, e.probeTimeout)
	defer cancel()

	res, probeErr := rec.prober.Probe(probeCtx)

	obs := timeseries.Observation{At: e.now(), Status: timeseries.StatusUnknown}
	if probeErr == nil {
		obs.Status = res.Status
		obs.LatencyMs = res.LatencyMs
		obs.HasLatency = res.HasLatency
	} else {
		slog.Warn("engine: probe failed, recording unknown",
			"service", id, "err", probeErr)
	}

	if err := e.store.Append(id, obs); err != nil {
		// The service was untracked while the probe was in flight.
		return timeseries.Observation{}, nil, err
	}
	if err := e.store.Prune(id); err != nil {
		return timeseries.Observation{}, nil, err
	}

	ev, emitted := e.detector.Observe(id, obs.Status, obs.At)
	if emitted {
		slog.Info("engine: state transition",
			"service", id, "type", ev.Type,
			"previous", ev.Previous, "current", ev.Current)
		e.events.publish(ev)
		return obs, &ev, probeErr
	}
	return obs, nil, probeErr
}

// RefreshAll fans RefreshOne out over ids (all tracked ids when ids is
// nil), concurrently, and waits for every refresh to settle. Each refresh
// catches its own failure; the returned map never omits a requested id.
func (e *Engine) RefreshAll(ctx context.Context, ids []string) map[string]RefreshResult {
	if ids == nil {
		ids = e.TrackedIDs()
	}

	results := make([]RefreshResult, len(ids))
	var wg sync.WaitGroup
	for i, id := range ids {
		wg.Add(1)
		go func(i int, id string) {
			defer wg.Done()
			obs, ev, err := e.RefreshOne(ctx, id)
			results[i] = RefreshResult{Observation: obs, Event: ev, Err: err}
		}(i, id)
	}
	wg.Wait()

	out := make(map[string]RefreshResult, len(ids))
	for i, id := range ids {
		out[id] = results[i]
	}
	return out
}

// Cycle runs one full refresh of the tracked set and reports whether the
// cycle encountered a collection failure. Suitable as the scheduler's tick:
// services reporting themselves down are normal samples, only probe-level
// failures count.
func (e *Engine) Cycle(ctx context.Context) bool {
	results := e.RefreshAll(ctx, nil)

	failed := false
	for _, r := range results {
		var perr *probe.Error
		if errors.As(r.Err, &perr) {
			failed = true
			break
		}
	}
	return failed
}

// QueryUptime aggregates id's observations over window (the engine default
// when window <= 0). Fails with ErrUnknownService for untracked ids.
func (e *Engine) QueryUptime(id string, window time.Duration) (aggregate.Summary, error) {
	if window <= 0 {
		window = e.defaultWindow
	}
	obs, err := e.store.Since(id, window)
	if err != nil {
		return aggregate.Summary{}, err
	}
	return aggregate.Summarize(obs), nil
}

// Subscribe registers a listener for transition events. Each up/down
// crossing is delivered exactly once per subscription; repeated unchanged
// states never produce events.
func (e *Engine) Subscribe() *Subscription {
	return e.events.subscribe()
}
