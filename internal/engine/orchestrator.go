package engine

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jonathan/court-agent/internal/browser"
	"github.com/jonathan/court-agent/internal/mail"
	"github.com/jonathan/court-agent/internal/schedule"
	"github.com/jonathan/court-agent/internal/types"
)

// Stage is one ordered step of the run state machine. Transitions are
// strictly forward; a stage failure terminates the run.
type Stage string

// Run stages, in execution order.
const (
	StageIdle              Stage = "idle"
	StageNavigating        Stage = "navigating"
	StageSelectingSport    Stage = "selecting_sport"
	StageSelectingTimeSlot Stage = "selecting_time_slot"
	StageFillingContact    Stage = "filling_contact"
	StageVerifyingEmail    Stage = "verifying_email"
	StageSubmitting        Stage = "submitting"
)

// Default stage timing.
const (
	DefaultPageLoadTimeout = 15 * time.Second
	DefaultSubmitSettle    = 2 * time.Second
)

// CodeWaiter awaits an emailed verification code received at-or-after since.
type CodeWaiter interface {
	AwaitCode(ctx context.Context, since time.Time) (string, error)
}

// ResultSink accepts finished run results for history persistence.
type ResultSink interface {
	AppendRun(ctx context.Context, result types.RunResult) error
}

// Selectors are the portal controls the orchestrator interacts with. The
// option templates take the sport label or slot time via fmt.
type Selectors struct {
	SportOption   string
	TimeSlot      string
	VerifyInput   string
	VerifyConfirm string
	Submit        string
}

// DefaultSelectors matches the target portal's booking form layout.
func DefaultSelectors() Selectors {
	return Selectors{
		SportOption:   `button[data-sport=%q]`,
		TimeSlot:      `button[data-time=%q]`,
		VerifyInput:   `input[name="verification_code"]`,
		VerifyConfirm: `button[data-action="confirm-code"]`,
		Submit:        `button[type="submit"]`,
	}
}

// Options wires the orchestrator's collaborators. Drivers and Sink are
// required; a nil Waiter fails any run that hits email verification. Zero
// timings and selectors fall back to defaults.
type Options struct {
	Drivers   browser.Factory
	Waiter    CodeWaiter
	Sink      ResultSink
	Contact   types.Contact
	Selectors Selectors

	PageLoadTimeout time.Duration
	SubmitSettle    time.Duration
}

// Orchestrator owns the engine's single run slot. It admits at most one run
// at a time, drives it through the stages, and exposes status snapshots.
type Orchestrator struct {
	opts   Options
	status *statusContainer

	admit chan struct{} // capacity 1: the single-flight slot

	mu        sync.Mutex
	cancelRun func() // set while a run holds the slot
}

// NewOrchestrator creates an orchestrator with the given collaborators.
func NewOrchestrator(opts Options) *Orchestrator {
	if opts.PageLoadTimeout <= 0 {
		opts.PageLoadTimeout = DefaultPageLoadTimeout
	}
	if opts.SubmitSettle <= 0 {
		opts.SubmitSettle = DefaultSubmitSettle
	}
	if opts.Selectors == (Selectors{}) {
		opts.Selectors = DefaultSelectors()
	}
	o := &Orchestrator{
		opts:   opts,
		status: newStatusContainer(),
		admit:  make(chan struct{}, 1),
	}
	o.admit <- struct{}{}
	return o
}

// Status returns an immutable snapshot of the current run status.
func (o *Orchestrator) Status() types.RunStatus {
	return o.status.Snapshot()
}

// Subscribe registers an observer called on every status transition.
func (o *Orchestrator) Subscribe(fn StatusObserver) {
	o.status.Subscribe(fn)
}

// RunAsync dispatches a run in the background, fire-and-forget. Admission is
// decided synchronously: if a run is in flight, ErrAlreadyRunning is returned
// and nothing is started.
func (o *Orchestrator) RunAsync(cfg types.BookingConfig) error {
	if err := cfg.Validate(); err != nil {
		return &ValidationError{Cause: err}
	}
	select {
	case <-o.admit:
	default:
		log.Printf("[ENGINE] dispatch for config %s rejected: already running", cfg.ID)
		return ErrAlreadyRunning
	}
	go func() {
		defer func() { o.admit <- struct{}{} }()
		o.run(context.Background(), cfg)
	}()
	return nil
}

// RunNow executes a run synchronously (the manual trigger path). The
// single-flight guard still applies.
func (o *Orchestrator) RunNow(ctx context.Context, cfg types.BookingConfig) (*types.RunResult, error) {
	if err := cfg.Validate(); err != nil {
		return nil, &ValidationError{Cause: err}
	}
	select {
	case <-o.admit:
	default:
		return nil, ErrAlreadyRunning
	}
	defer func() { o.admit <- struct{}{} }()
	result := o.run(ctx, cfg)
	return result, nil
}

// Stop cancels the in-flight run, if any. Safe to call when idle.
func (o *Orchestrator) Stop() {
	o.mu.Lock()
	cancel := o.cancelRun
	o.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// run executes one admitted booking attempt end to end. The caller already
// holds the single-flight slot.
func (o *Orchestrator) run(ctx context.Context, cfg types.BookingConfig) *types.RunResult {
	runCtx, cancel := context.WithCancel(ctx)
	runID := uuid.New()
	startedAt := time.Now()

	o.mu.Lock()
	o.cancelRun = cancel
	o.mu.Unlock()

	o.status.set(func(s *types.RunStatus) {
		*s = types.RunStatus{
			State:     types.StateRunning,
			Stage:     string(StageNavigating),
			RunID:     runID,
			ConfigID:  cfg.ID,
			StartedAt: startedAt,
		}
	})

	// Cleanup runs unconditionally, including mid-stage cancellation: the
	// run context is torn down (which unwinds any in-flight verification
	// attempt) and the cancel hook is cleared so the next run starts clean.
	defer func() {
		o.mu.Lock()
		o.cancelRun = nil
		o.mu.Unlock()
		cancel()
	}()

	err := o.execute(runCtx, cfg)

	result := &types.RunResult{
		RunID:      runID,
		ConfigID:   cfg.ID,
		StartedAt:  startedAt,
		FinishedAt: time.Now(),
		Details:    o.details(cfg, startedAt),
	}
	if err == nil {
		result.Success = true
		result.Message = fmt.Sprintf("booked %s at %s", cfg.Sport, result.Details["time"])
	} else {
		result.Reason = classifyReason(err)
		result.Message = err.Error()
	}

	o.finish(result)
	return result
}

// execute drives the ordered stages and returns the classified stage error,
// or nil on success.
func (o *Orchestrator) execute(ctx context.Context, cfg types.BookingConfig) error {
	driver, err := o.opts.Drivers(ctx)
	if err != nil {
		return o.failStage(StageNavigating, types.ReasonPageLoadTimeout,
			fmt.Errorf("failed to start browser: %w", err))
	}
	defer func() {
		if cerr := driver.Close(); cerr != nil {
			log.Printf("[ENGINE] browser close failed: %v", cerr)
		}
	}()

	slot := schedule.NextSlot(cfg, time.Now())

	// Navigating
	o.enterStage(StageNavigating)
	if err := driver.Navigate(ctx, cfg.FacilityURL); err != nil {
		return o.failStage(StageNavigating, types.ReasonPageLoadTimeout, err)
	}
	if err := driver.WaitForDOMReady(ctx, o.opts.PageLoadTimeout); err != nil {
		return o.failStage(StageNavigating, types.ReasonPageLoadTimeout, err)
	}

	// SelectingSport
	o.enterStage(StageSelectingSport)
	if err := driver.FindAndClick(ctx, fmt.Sprintf(o.opts.Selectors.SportOption, cfg.Sport)); err != nil {
		return o.failStage(StageSelectingSport, types.ReasonElementNotFound, err)
	}

	// SelectingTimeSlot
	o.enterStage(StageSelectingTimeSlot)
	if slot == nil {
		return o.failStage(StageSelectingTimeSlot, types.ReasonElementNotFound,
			fmt.Errorf("config has no schedulable slot"))
	}
	if err := driver.FindAndClick(ctx, fmt.Sprintf(o.opts.Selectors.TimeSlot, slot.Slot.String())); err != nil {
		return o.failStage(StageSelectingTimeSlot, types.ReasonElementNotFound, err)
	}

	// FillingContact: one call for all three fields plus the driver's review
	// pause. Never decomposed into sequential fills (detection avoidance).
	o.enterStage(StageFillingContact)
	c := o.opts.Contact
	if err := driver.FillAllContactFields(ctx, c.Name, c.Phone, c.Email); err != nil {
		return o.failStage(StageFillingContact, types.ReasonElementNotFound, err)
	}

	// VerifyingEmail, only when the portal demands it.
	required, err := driver.IsEmailVerificationRequired(ctx)
	if err != nil {
		return o.failStage(StageFillingContact, types.ReasonElementNotFound, err)
	}
	if required {
		o.enterStage(StageVerifyingEmail)
		if o.opts.Waiter == nil {
			return o.failStage(StageVerifyingEmail, types.ReasonVerificationTimeout,
				fmt.Errorf("portal requires email verification but no mailbox is configured"))
		}
		code, err := o.opts.Waiter.AwaitCode(ctx, time.Now())
		if err != nil {
			if errors.Is(err, mail.ErrDeadlineExceeded) {
				return &VerificationTimeoutError{Cause: err}
			}
			return o.failStage(StageVerifyingEmail, types.ReasonVerificationTimeout, err)
		}
		if err := driver.TypeText(ctx, code, o.opts.Selectors.VerifyInput); err != nil {
			return o.failStage(StageVerifyingEmail, types.ReasonElementNotFound, err)
		}
		if err := driver.FindAndClick(ctx, o.opts.Selectors.VerifyConfirm); err != nil {
			return o.failStage(StageVerifyingEmail, types.ReasonElementNotFound, err)
		}
	}

	// Submitting
	o.enterStage(StageSubmitting)
	if err := driver.FindAndClick(ctx, o.opts.Selectors.Submit); err != nil {
		return o.failStage(StageSubmitting, types.ReasonElementNotFound, err)
	}
	select {
	case <-time.After(o.opts.SubmitSettle):
	case <-ctx.Done():
		return &CancelledError{Stage: StageSubmitting}
	}

	return nil
}

// enterStage records the stage transition on the status container.
func (o *Orchestrator) enterStage(stage Stage) {
	o.status.set(func(s *types.RunStatus) {
		s.Stage = string(stage)
	})
}

// failStage classifies a stage error: cancellation wins over the stage's own
// failure reason.
func (o *Orchestrator) failStage(stage Stage, reason types.FailReason, err error) error {
	if errors.Is(err, context.Canceled) {
		return &CancelledError{Stage: stage}
	}
	return &AutomationError{Stage: stage, Reason: reason, Cause: err}
}

// finish appends the result to history, then records the terminal status so
// observers of the transition always find the result persisted. The sink
// write uses its own context: the run's may already be cancelled.
func (o *Orchestrator) finish(result *types.RunResult) {
	if o.opts.Sink != nil {
		sinkCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := o.opts.Sink.AppendRun(sinkCtx, *result); err != nil {
			log.Printf("[ENGINE] failed to persist run result %s: %v", result.RunID, err)
		}
	}

	o.status.set(func(s *types.RunStatus) {
		if result.Success {
			s.State = types.StateSucceeded
			s.Reason = types.ReasonNone
		} else {
			s.State = types.StateFailed
			s.Reason = result.Reason
		}
		s.Message = result.Message
	})
}

// details builds the observability detail map for a run.
func (o *Orchestrator) details(cfg types.BookingConfig, now time.Time) map[string]string {
	details := map[string]string{
		"facility": facilityNameFromURL(cfg.FacilityURL),
		"sport":    cfg.Sport,
	}
	if slot := schedule.NextSlot(cfg, now); slot != nil {
		details["time"] = fmt.Sprintf("%s %s", strings.ToLower(slot.Weekday.String()), slot.Slot)
	}
	return details
}

// classifyReason maps a classified stage error onto the run's fail reason.
func classifyReason(err error) types.FailReason {
	var automation *AutomationError
	var verification *VerificationTimeoutError
	var cancelled *CancelledError
	var validation *ValidationError
	switch {
	case errors.As(err, &cancelled):
		return types.ReasonCancelled
	case errors.As(err, &verification):
		return types.ReasonVerificationTimeout
	case errors.As(err, &automation):
		return automation.Reason
	case errors.As(err, &validation):
		return types.ReasonInvalidConfig
	default:
		return types.ReasonElementNotFound
	}
}

// facilityNameFromURL extracts a display name for the facility from its URL:
// the last path segment, or the host when the path is empty.
func facilityNameFromURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	segments := strings.Split(strings.Trim(u.Path, "/"), "/")
	if last := segments[len(segments)-1]; last != "" {
		return last
	}
	return u.Host
}
