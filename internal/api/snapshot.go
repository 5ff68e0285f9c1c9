package api

import (
	"time"

	"github.com/statuspulse/statuspulse/internal/engine"
)

// SnapshotResponse is the full-state payload shared by GET /api/v1/services
// consumers and the WebSocket hub.
type SnapshotResponse struct {
	Services    []ServiceResponse `json:"services"`
	GeneratedAt string            `json:"generated_at"` // RFC3339
}

// BuildSnapshot converts the engine's current projections for the wire.
func BuildSnapshot(eng *engine.Engine) SnapshotResponse {
	snaps := eng.SnapshotAll()
	out := make([]ServiceResponse, 0, len(snaps))
	for _, s := range snaps {
		out = append(out, toServiceResponse(s))
	}
	return SnapshotResponse{
		Services:    out,
		GeneratedAt: time.Now().UTC().Format(time.RFC3339),
	}
}
