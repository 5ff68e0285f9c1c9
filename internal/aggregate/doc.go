// Package aggregate derives display statistics from observation windows.
//
// Summarize is a pure function over an already-filtered slice of
// observations: uptime ratio, sample count, and the latency series. An empty
// window yields the UptimeUnknown sentinel — absence of data is never
// rendered as 100% or 0% uptime. Samples with unknown reachability count
// toward the denominator but not the numerator: a collection failure is not
// an uptime credit.
package aggregate
