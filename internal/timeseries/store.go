package timeseries

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

// ErrUnknownService is returned when an operation references a service id
// that is not registered in the store.
var ErrUnknownService = errors.New("unknown service")

// Store is a thread-safe observation history keyed by service id.
// Appends for one service are serialized by the caller (the refresh cycle
// settles before the next one starts); the mutex protects concurrent reads
// from the view surface against writes from the refresh path.
type Store struct {
	mu        sync.RWMutex
	series    map[string][]Observation
	retention time.Duration
	now       func() time.Time // injectable for deterministic tests
}

// NewStore creates a Store with the given absolute retention cap.
func NewStore(retention time.Duration) *Store {
	return &Store{
		series:    make(map[string][]Observation),
		retention: retention,
		now:       time.Now,
	}
}

// Register creates an empty series for id. Registering an existing id is a
// no-op — the service keeps its history across reconciliations.
func (s *Store) Register(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.series[id]; !ok {
		s.series[id] = nil
	}
}

// Deregister removes the series for id, releasing all stored observations.
func (s *Store) Deregister(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.series, id)
}

// Append adds obs to the end of id's series.
// Observations must arrive in non-decreasing timestamp order; duplicate
// timestamps are permitted and treated as distinct samples.
func (s *Store) Append(id string, obs Observation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	seq, ok := s.series[id]
	if !ok {
		return fmt.Errorf("append %q: %w", id, ErrUnknownService)
	}
	s.series[id] = append(seq, obs)
	return nil
}

// Prune discards observations for id older than the retention cap.
// Called after every append so unbounded growth never occurs.
func (s *Store) Prune(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	seq, ok := s.series[id]
	if !ok {
		return fmt.Errorf("prune %q: %w", id, ErrUnknownService)
	}
	cutoff := s.now().Add(-s.retention)
	// Series is chronological: find the first entry inside the window.
	i := 0
	for i < len(seq) && seq[i].At.Before(cutoff) {
		i++
	}
	if i > 0 {
		s.series[id] = append([]Observation(nil), seq[i:]...)
	}
	return nil
}

// Since returns id's observations with At >= now - window, oldest first.
// The returned slice is a copy; callers may range over it freely.
func (s *Store) Since(id string, window time.Duration) ([]Observation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	seq, ok := s.series[id]
	if !ok {
		return nil, fmt.Errorf("since %q: %w", id, ErrUnknownService)
	}
	cutoff := s.now().Add(-window)
	i := 0
	for i < len(seq) && seq[i].At.Before(cutoff) {
		i++
	}
	return append([]Observation(nil), seq[i:]...), nil
}

// Last returns the most recent observation for id. The boolean is false
// when the series is registered but still empty.
func (s *Store) Last(id string) (Observation, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	seq, ok := s.series[id]
	if !ok {
		return Observation{}, false, fmt.Errorf("last %q: %w", id, ErrUnknownService)
	}
	if len(seq) == 0 {
		return Observation{}, false, nil
	}
	return seq[len(seq)-1], true, nil
}
