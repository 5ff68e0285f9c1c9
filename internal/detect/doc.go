// Package detect classifies state transitions between consecutive
// observations of a service.
//
// Each service runs a three-state machine (unknown, up, down). The first
// observation establishes a baseline and never emits an event, so a fresh
// load cannot produce spurious incident notifications. Only crossings
// between up and down emit events; an unknown sample after the baseline is
// set never overwrites a known state — a transient collection failure must
// not be mistaken for the service's own failure or recovery.
package detect
