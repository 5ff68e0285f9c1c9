// Package engine owns the monitoring state: one history series and one
// detector state machine per tracked service, plus the event fan-out the
// view layer subscribes to.
//
// The engine performs no target I/O itself — probing is delegated to the
// injected prober, and a probe failure is recorded as an unknown-status
// observation so a broken collection pipeline is never mistaken for a down
// service. RefreshAll fans probes out concurrently and always settles every
// one of them; individual failures land in the per-service result map and
// feed the scheduler's backoff, they never abort sibling refreshes.
package engine
