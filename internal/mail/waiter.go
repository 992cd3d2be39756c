package mail

import (
	"context"
	"fmt"
	"log"
	"time"
)

// Defaults for the verification wait.
const (
	DefaultPollInterval = 10 * time.Second
	DefaultDeadline     = 5 * time.Minute
)

// ErrDeadlineExceeded reports that no verification code arrived before the
// waiter's deadline. It is terminal for the run, never silently retried.
var ErrDeadlineExceeded = fmt.Errorf("verification deadline exceeded")

// VerificationAttempt is the bounded-lifetime state of one verification wait:
// the search window start and the hard deadline. Selection holds no other
// state; repeated or duplicated mailbox fetches cannot change the outcome
// because Select is deterministic over a snapshot.
type VerificationAttempt struct {
	Since    time.Time
	Deadline time.Time
}

// NewVerificationAttempt starts an attempt whose search window opens at since.
func NewVerificationAttempt(since time.Time, deadline time.Duration) *VerificationAttempt {
	return &VerificationAttempt{
		Since:    since,
		Deadline: since.Add(deadline),
	}
}

// Select picks the code to use from one mailbox snapshot: among messages
// received at-or-after the window start, the most recently received message's
// code wins, so stale codes from earlier failed attempts are never honored.
// Deterministic for a fixed snapshot.
func (a *VerificationAttempt) Select(msgs []Message) string {
	var best Message
	var bestCode string
	for _, m := range msgs {
		if m.ReceivedAt.Before(a.Since) {
			continue
		}
		code := ExtractCode(m.Body)
		if code == "" {
			continue
		}
		if bestCode == "" || m.ReceivedAt.After(best.ReceivedAt) {
			best = m
			bestCode = code
		}
	}
	return bestCode
}

// Waiter polls a mailbox for a verification code under a hard deadline.
type Waiter struct {
	Mailbox Mailbox

	// Sender and Subject filter which messages count as verification mail.
	Sender  string
	Subject string

	// PollInterval defaults to DefaultPollInterval; Deadline to
	// DefaultDeadline.
	PollInterval time.Duration
	Deadline     time.Duration
}

// AwaitCode polls the mailbox until a code received at-or-after since shows
// up, the deadline passes, or the context is cancelled. Returns
// ErrDeadlineExceeded on timeout; context errors pass through unchanged so
// the caller can tell cancellation from timeout.
func (w *Waiter) AwaitCode(ctx context.Context, since time.Time) (string, error) {
	interval := w.PollInterval
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	deadline := w.Deadline
	if deadline <= 0 {
		deadline = DefaultDeadline
	}

	attempt := NewVerificationAttempt(since, deadline)

	waitCtx, cancel := context.WithDeadline(ctx, attempt.Deadline)
	defer cancel()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		code, err := w.poll(waitCtx, attempt)
		if err == nil && code != "" {
			return code, nil
		}
		if err != nil {
			log.Printf("[MAIL] poll failed: %v", err)
		}

		select {
		case <-waitCtx.Done():
			if ctx.Err() != nil {
				return "", ctx.Err()
			}
			return "", ErrDeadlineExceeded
		case <-ticker.C:
		}
	}
}

func (w *Waiter) poll(ctx context.Context, attempt *VerificationAttempt) (string, error) {
	msgs, err := w.Mailbox.Search(ctx, attempt.Since, w.Sender, w.Subject)
	if err != nil {
		return "", fmt.Errorf("mailbox search failed: %w", err)
	}
	return attempt.Select(msgs), nil
}
