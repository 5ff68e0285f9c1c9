package probe

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// Cause classifies a collection failure.
type Cause string

const (
	CauseTimeout Cause = "timeout"
	CauseNetwork Cause = "network"
	CauseOther   Cause = "other"
)

// Error is a collection failure: the probe could not obtain a reliable
// sample. It says nothing about the target's own health.
type Error struct {
	Cause Cause
	Err   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("probe failed (%s): %v", e.Cause, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// classify wraps err as an *Error with the proper cause.
func classify(err error) *Error {
	var netErr net.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return &Error{Cause: CauseTimeout, Err: err}
	case errors.As(err, &netErr) && netErr.Timeout():
		return &Error{Cause: CauseTimeout, Err: err}
	case errors.As(err, &netErr):
		return &Error{Cause: CauseNetwork, Err: err}
	default:
		return &Error{Cause: CauseOther, Err: err}
	}
}
