package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/statuspulse/statuspulse/internal/engine"
	"github.com/statuspulse/statuspulse/internal/incident"
	"github.com/statuspulse/statuspulse/internal/timeseries"
)

// recentIncidentLimit bounds GET /api/v1/incidents?open=false responses.
const recentIncidentLimit = 50

// Handler is the HTTP handler for all /api/v1/* endpoints.
type Handler struct {
	engine    *engine.Engine
	incidents *incident.Log
	mux       *http.ServeMux
}

// New creates a Handler wired to the given engine and incident log and
// registers all routes.
func New(eng *engine.Engine, incidents *incident.Log) http.Handler {
	h := &Handler{engine: eng, incidents: incidents, mux: http.NewServeMux()}

	h.mux.HandleFunc("/api/v1/health", h.health)
	h.mux.HandleFunc("/api/v1/services", h.listServices)
	h.mux.HandleFunc("/api/v1/services/", h.serviceSubtree) // {id} and {id}/refresh
	h.mux.HandleFunc("/api/v1/incidents", h.listIncidents)

	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

// --- route handlers ---------------------------------------------------------

// health returns GET /api/v1/health — fleet rollup.
func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	snaps := h.engine.SnapshotAll()
	resp := HealthResponse{
		ServiceCount:  len(snaps),
		OpenIncidents: len(h.incidents.Open()),
	}
	for _, s := range snaps {
		switch s.State {
		case timeseries.StatusUp:
			resp.UpCount++
		case timeseries.StatusDown:
			resp.DownCount++
		default:
			resp.UnknownCount++
		}
	}

	switch {
	case len(snaps) == 0 || resp.UnknownCount == len(snaps):
		resp.State = "unknown"
	case resp.DownCount > 0:
		resp.State = "degraded"
	default:
		resp.State = "ok"
	}
	jsonResp(w, http.StatusOK, resp)
}

// listServices returns GET /api/v1/services — all tracked services.
func (h *Handler) listServices(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	snaps := h.engine.SnapshotAll()
	out := make([]ServiceResponse, 0, len(snaps))
	for _, s := range snaps {
		out = append(out, toServiceResponse(s))
	}
	jsonResp(w, http.StatusOK, out)
}

// serviceSubtree dispatches /api/v1/services/{id} and
// /api/v1/services/{id}/refresh.
func (h *Handler) serviceSubtree(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/v1/services/")
	if rest == "" {
		h.listServices(w, r)
		return
	}

	if id, ok := strings.CutSuffix(rest, "/refresh"); ok && id != "" && !strings.Contains(id, "/") {
		h.refreshService(w, r, id)
		return
	}
	if strings.Contains(rest, "/") {
		jsonErr(w, http.StatusNotFound, "no such route")
		return
	}
	h.getService(w, r, rest)
}

// getService returns GET /api/v1/services/{id}. The lookback window
// defaults to the engine's but can be overridden with ?window=5m.
func (h *Handler) getService(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	window := time.Duration(0)
	if raw := r.URL.Query().Get("window"); raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil || d <= 0 {
			jsonErr(w, http.StatusBadRequest, "invalid window")
			return
		}
		window = d
	}

	snap, err := h.engine.SnapshotWindow(id, window)
	if err != nil {
		if errors.Is(err, engine.ErrUnknownService) {
			jsonErr(w, http.StatusNotFound, "service not found")
			return
		}
		slog.Error("api: snapshot failed", "service", id, "err", err)
		jsonErr(w, http.StatusInternalServerError, "internal error")
		return
	}
	jsonResp(w, http.StatusOK, toServiceResponse(snap))
}

// refreshService handles POST /api/v1/services/{id}/refresh — a manual
// out-of-band recheck that does not disturb the scheduler cadence.
func (h *Handler) refreshService(w http.ResponseWriter, r *http.Request, id string) {
	if r.Method != http.MethodPost {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	obs, _, err := h.engine.RefreshOne(r.Context(), id)
	if err != nil {
		if errors.Is(err, engine.ErrUnknownService) {
			jsonErr(w, http.StatusNotFound, "service not found")
			return
		}
		// A collection failure was still recorded as an unknown sample;
		// report it alongside the observation rather than as an HTTP error.
		jsonResp(w, http.StatusOK, RefreshResponse{Observation: obs, ProbeError: err.Error()})
		return
	}
	jsonResp(w, http.StatusOK, RefreshResponse{Observation: obs})
}

// listIncidents returns GET /api/v1/incidents — open incidents by default,
// recently resolved ones with ?open=false.
func (h *Handler) listIncidents(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	if r.URL.Query().Get("open") == "false" {
		jsonResp(w, http.StatusOK, h.incidents.Recent(recentIncidentLimit))
		return
	}
	jsonResp(w, http.StatusOK, h.incidents.Open())
}

// --- helpers ----------------------------------------------------------------

func jsonResp(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("api: encode response", "err", err)
	}
}

func jsonErr(w http.ResponseWriter, code int, msg string) {
	jsonResp(w, code, errorResponse{Error: msg})
}
