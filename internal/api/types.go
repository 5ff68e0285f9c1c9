package api

import (
	"time"

	"github.com/statuspulse/statuspulse/internal/aggregate"
	"github.com/statuspulse/statuspulse/internal/engine"
	"github.com/statuspulse/statuspulse/internal/timeseries"
)

// HealthResponse is the payload for GET /api/v1/health.
type HealthResponse struct {
	ServiceCount  int    `json:"service_count"`
	UpCount       int    `json:"up_count"`
	DownCount     int    `json:"down_count"`
	UnknownCount  int    `json:"unknown_count"`
	OpenIncidents int    `json:"open_incidents"`
	State         string `json:"state"` // "ok" | "degraded" | "unknown"
}

// ServiceResponse is one service entry in GET /api/v1/services or
// GET /api/v1/services/{id}.
type ServiceResponse struct {
	ID    string            `json:"id"`
	Name  string            `json:"name"`
	URL   string            `json:"url"`
	State timeseries.Status `json:"state"`

	// Uptime is the ratio over the requested window, null when the
	// window holds no samples — absence of data is not 100% or 0%.
	Uptime      *float64 `json:"uptime"`
	SampleCount int      `json:"sample_count"`

	Latencies []aggregate.LatencyPoint `json:"latencies,omitempty"`

	LastObservation  *timeseries.Observation `json:"last_observation,omitempty"`
	LastTransitionAt *time.Time              `json:"last_transition_at,omitempty"`
}

// RefreshResponse is the payload for POST /api/v1/services/{id}/refresh.
type RefreshResponse struct {
	Observation timeseries.Observation `json:"observation"`

	// ProbeError is set when the sample could not be collected; the
	// observation is then an unknown-status record.
	ProbeError string `json:"probe_error,omitempty"`
}

// errorResponse is a generic JSON error body.
type errorResponse struct {
	Error string `json:"error"`
}

// toServiceResponse converts an engine snapshot for the wire.
func toServiceResponse(snap engine.ServiceSnapshot) ServiceResponse {
	resp := ServiceResponse{
		ID:               snap.ID,
		Name:             snap.Name,
		URL:              snap.URL,
		State:            snap.State,
		SampleCount:      snap.Summary.SampleCount,
		Latencies:        snap.Summary.Latencies,
		LastObservation:  snap.LastObservation,
		LastTransitionAt: snap.LastTransitionAt,
	}
	if snap.Summary.Known() {
		ratio := snap.Summary.UptimeRatio
		resp.Uptime = &ratio
	}
	return resp
}
