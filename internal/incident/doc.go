// Package incident accumulates transition events into an incident log.
//
// The engine itself never stores incidents — it only emits FailureStarted
// and Recovered events. This log is the collaborator that turns those
// crossings into half-open [opened, resolved) intervals: FailureStarted
// opens an incident for the service, the next Recovered closes it. At most
// one incident is open per service at a time.
package incident
