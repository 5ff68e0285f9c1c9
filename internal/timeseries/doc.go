// Package timeseries holds the per-service observation history.
//
// Store is a thread-safe, ring-bounded time series keyed by service id.
// Observations are appended in chronological order; Prune enforces the
// absolute retention cap after every append so history never grows without
// bound. Since narrows further to a caller-chosen lookback window at read
// time — the retention cap and the lookback window are distinct.
//
// Every accessor returns ErrUnknownService for ids that were never
// registered (or have been deregistered); a missing record is a programming
// error at the call site, never silently ignored.
package timeseries
