// Package probe samples a service's reachability.
//
// A Prober returns a definite up/down verdict with timing, or an *Error
// when the sample itself could not be collected (timeout, network failure).
// A target answering with an error status is a normal "down" sample, not a
// collection failure — the distinction is what lets the engine record
// pipeline failures as unknown instead of down.
//
// Two implementations exist: HTTPProber judges from the response status
// code, MetricsProber scrapes a Prometheus text exposition endpoint and
// judges from a configured gauge. New builds the right one for a service.
package probe
