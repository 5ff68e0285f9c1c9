package aggregate

import (
	"time"

	"github.com/statuspulse/statuspulse/internal/timeseries"
)

// UptimeUnknown is the sentinel UptimeRatio for an empty window.
// It is deliberately outside [0,1] so no renderer can mistake it for a
// real ratio.
const UptimeUnknown = -1.0

// LatencyPoint is one response-time sample in a Summary.
type LatencyPoint struct {
	At time.Time `json:"at"`
	Ms int64     `json:"ms"`
}

// Summary is the aggregate over one service's observation window.
type Summary struct {
	// UptimeRatio is in [0,1], or UptimeUnknown when SampleCount == 0.
	UptimeRatio float64

	// SampleCount is the number of observations in the window, including
	// unknown-status samples.
	SampleCount int

	// Latencies holds the response-time series, oldest first. Only
	// observations carrying a measured latency appear; gaps are not
	// interpolated.
	Latencies []LatencyPoint
}

// Known reports whether the summary carries a real uptime ratio.
func (s Summary) Known() bool { return s.SampleCount > 0 }

// Summarize computes the Summary for a window of observations.
// The slice is read in order; callers pass the output of Store.Since.
func Summarize(obs []timeseries.Observation) Summary {
	if len(obs) == 0 {
		return Summary{UptimeRatio: UptimeUnknown}
	}

	up := 0
	var latencies []LatencyPoint
	for _, o := range obs {
		if o.Status == timeseries.StatusUp {
			up++
		}
		if o.HasLatency {
			latencies = append(latencies, LatencyPoint{At: o.At, Ms: o.LatencyMs})
		}
	}

	return Summary{
		UptimeRatio: float64(up) / float64(len(obs)),
		SampleCount: len(obs),
		Latencies:   latencies,
	}
}
