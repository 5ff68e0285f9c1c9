package timeseries

import "time"

// Status is the tri-state reachability of a service at one sample point.
// StatusUnknown means no reliable sample was obtained — not that the
// target is down.
type Status string

const (
	StatusUp      Status = "up"
	StatusDown    Status = "down"
	StatusUnknown Status = "unknown"
)

// Known reports whether s carries a definite up/down verdict.
func (s Status) Known() bool {
	return s == StatusUp || s == StatusDown
}

// Observation is one sampled result for a service. Immutable once created.
type Observation struct {
	// At is when the sample was taken.
	At time.Time `json:"at"`

	// Status is the observed tri-state reachability.
	Status Status `json:"status"`

	// LatencyMs is the measured response time in milliseconds.
	// Only meaningful when HasLatency is true — failed or unknown samples
	// often carry no usable timing.
	LatencyMs int64 `json:"latency_ms"`

	// HasLatency reports whether LatencyMs holds a real measurement.
	HasLatency bool `json:"has_latency"`
}
