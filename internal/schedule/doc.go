// Package schedule drives the shared refresh cadence with failure backoff
// and visibility-based suspension.
//
// The backoff rule is a pure function (Next) so its bounds and reset
// conditions are testable without timers: a cycle containing at least one
// collection failure doubles the interval up to the configured maximum; a
// clean cycle snaps back to the base interval. Individual services
// reporting themselves down are normal samples, not cycle failures.
//
// Scheduler runs the single-shot timer loop around an injected tick
// callback. Suspend cancels the pending timer; Resume fires a tick
// immediately rather than waiting out the remainder of the previous
// interval, so a surface that regains observation never shows stale data.
package schedule
