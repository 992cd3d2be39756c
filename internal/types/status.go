package types

import (
	"time"

	"github.com/google/uuid"
)

// RunState is the coarse lifecycle state of the engine's current run.
type RunState string

// Run states. Exactly one logical current run exists; terminal states persist
// until the next run starts.
const (
	StateIdle      RunState = "idle"
	StateRunning   RunState = "running"
	StateSucceeded RunState = "succeeded"
	StateFailed    RunState = "failed"
)

// Terminal reports whether the state is an end state of a run.
func (s RunState) Terminal() bool {
	return s == StateSucceeded || s == StateFailed
}

// FailReason classifies why a run failed. Downstream presentation relies on
// these instead of raw error text to tell "the portal changed" apart from
// "the network was slow" or "the user cancelled".
type FailReason string

// Failure classifications.
const (
	ReasonNone                FailReason = ""
	ReasonInvalidConfig       FailReason = "invalid_config"
	ReasonPageLoadTimeout     FailReason = "page_load_timeout"
	ReasonElementNotFound     FailReason = "element_not_found"
	ReasonVerificationTimeout FailReason = "verification_timeout"
	ReasonCancelled           FailReason = "cancelled"
	ReasonAlreadyRunning      FailReason = "already_running"
)

// RunStatus is an immutable snapshot of the current run, exposed read-only to
// observers. Only the orchestrator mutates the underlying state.
type RunStatus struct {
	State     RunState   `json:"state"`
	Stage     string     `json:"stage,omitempty"`
	RunID     uuid.UUID  `json:"run_id,omitempty"`
	ConfigID  uuid.UUID  `json:"config_id,omitempty"`
	Reason    FailReason `json:"reason,omitempty"`
	Message   string     `json:"message,omitempty"`
	StartedAt time.Time  `json:"started_at,omitempty"`
	UpdatedAt time.Time  `json:"updated_at,omitempty"`
}

// RunResult is the immutable record of one finished run. It is produced exactly
// once per run and appended to history by the result sink.
type RunResult struct {
	RunID      uuid.UUID         `json:"run_id"`
	ConfigID   uuid.UUID         `json:"config_id"`
	Success    bool              `json:"success"`
	Reason     FailReason        `json:"reason,omitempty"`
	Message    string            `json:"message"`
	Details    map[string]string `json:"details,omitempty"`
	StartedAt  time.Time         `json:"started_at"`
	FinishedAt time.Time         `json:"finished_at"`
}
