// Package engine implements the run orchestrator: the state machine that
// drives one booking attempt through the browser, the email verification
// wait, and final submission, with single-flight admission and unconditional
// cleanup.
package engine

import (
	"errors"
	"fmt"

	"github.com/jonathan/court-agent/internal/types"
)

// ErrAlreadyRunning rejects a dispatch while another run is in flight. The
// engine guarantees at most one concurrent run; two browser sessions against
// the same identity would corrupt portal session state.
var ErrAlreadyRunning = errors.New("a booking run is already in progress")

// ValidationError reports a malformed configuration, rejected before a run
// starts, never during one.
type ValidationError struct {
	Cause error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid booking config: %v", e.Cause)
}

func (e *ValidationError) Unwrap() error {
	return e.Cause
}

// AutomationError reports a browser-stage failure: element not found, page
// load timeout, or interaction failure. Always terminal for the current run;
// portal state after a partial interaction is unknown, so no stage is retried.
type AutomationError struct {
	Stage  Stage
	Reason types.FailReason
	Cause  error
}

func (e *AutomationError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("automation failed at stage %s: %v", e.Stage, e.Cause)
	}
	return fmt.Sprintf("automation failed at stage %s", e.Stage)
}

func (e *AutomationError) Unwrap() error {
	return e.Cause
}

// VerificationTimeoutError reports that the verification code did not arrive
// before the deadline. Terminal.
type VerificationTimeoutError struct {
	Cause error
}

func (e *VerificationTimeoutError) Error() string {
	return fmt.Sprintf("email verification timed out: %v", e.Cause)
}

func (e *VerificationTimeoutError) Unwrap() error {
	return e.Cause
}

// CancelledError reports an explicit stop, either the Stop entry point or a
// cancelled parent context. Terminal, not retried.
type CancelledError struct {
	Stage Stage
}

func (e *CancelledError) Error() string {
	return fmt.Sprintf("run cancelled during stage %s", e.Stage)
}
