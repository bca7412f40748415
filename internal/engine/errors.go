package engine

import (
	"errors"
	"fmt"
)

// ErrSessionClosed is returned when a mutating operation reaches a session
// that already left IN_PROGRESS. The operation has no effect.
var ErrSessionClosed = errors.New("session is closed")

// ValidationError rejects an operation synchronously with no state change:
// out-of-range navigation, or an answer that is malformed for its question.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed: %s: %s", e.Field, e.Reason)
}

// UpstreamError marks a recoverable external-collaborator failure. The
// originating operation is aborted with state unchanged and may be retried
// by the caller.
type UpstreamError struct {
	Op  string
	Err error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("upstream %s unavailable: %v", e.Op, e.Err)
}

func (e *UpstreamError) Unwrap() error { return e.Err }
