// Package ws implements the WebSocket hub for statuspulse — the engine's
// observer surface.
//
// Hub manages connected clients, pushes the current service snapshot on a
// configurable interval, and relays transition events the moment the engine
// emits them.
//
// The hub doubles as the engine's visibility signal: OnObserverChange is
// called with the client count whenever a client connects or disconnects,
// and the composition root maps that to scheduler suspend (count drops to
// zero) and resume (first observer arrives). An unobserved engine stops
// polling; a regained observer triggers an immediate refresh.
//
// Messages sent to clients:
//
//	{ "event": "snapshot",   "data": { /* GET /api/v1/services shape */ } }
//	{ "event": "transition", "data": { /* detect.Event */ } }
//
// The upgrader accepts all origins. Apply CORS restrictions at the reverse
// proxy level.
package ws
