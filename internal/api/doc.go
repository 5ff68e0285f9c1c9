// Package api implements the HTTP REST view surface for statuspulse.
//
// New(engine, incidents) returns an http.Handler that serves:
//
//	GET  /api/v1/health                — fleet rollup and per-state counts
//	GET  /api/v1/services              — all tracked services ([]ServiceResponse)
//	GET  /api/v1/services/{id}         — one service; honours ?window=15m
//	POST /api/v1/services/{id}/refresh — out-of-band recheck of one service
//	GET  /api/v1/incidents             — open incidents; ?open=false for resolved
//
// All endpoints respond with Content-Type: application/json, return 404 for
// unknown service ids and 405 for unsupported methods. The handlers only
// read engine projections — they never touch store or detector state
// directly. JSON types are defined in types.go. No external HTTP framework
// is used.
package api
