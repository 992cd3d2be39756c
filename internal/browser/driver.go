// Package browser provides page navigation and DOM interaction for the booking
// portals. The engine only depends on the Driver contract; the chromedp
// implementation is one way to satisfy it.
package browser

import (
	"context"
	"time"
)

// Driver is the contract the run orchestrator drives a booking attempt
// through. Implementations own the session for the duration of a run and must
// pace interactions so the portal's bot detection is not tripped: field values
// are assigned instantly with synthetic form events, never typed key by key.
type Driver interface {
	// Navigate loads the given URL.
	Navigate(ctx context.Context, url string) error

	// WaitForDOMReady blocks until the document is ready or the timeout
	// elapses.
	WaitForDOMReady(ctx context.Context, timeout time.Duration) error

	// FindAndClick locates the element for the selector and clicks it.
	FindAndClick(ctx context.Context, selector string) error

	// TypeText sets the text of the element for the selector.
	TypeText(ctx context.Context, text, selector string) error

	// FillAllContactFields submits name, phone and email in a single call.
	// The simultaneous fill plus the implementation's review pause is the
	// contracted anti-detection behavior; callers must not decompose it into
	// sequential per-field fills.
	FillAllContactFields(ctx context.Context, name, phone, email string) error

	// IsEmailVerificationRequired reports whether the portal is asking for an
	// email verification code after contact submission.
	IsEmailVerificationRequired(ctx context.Context) (bool, error)

	// Close releases the browser session.
	Close() error
}

// Factory creates a fresh Driver for one run. The orchestrator closes the
// driver during cleanup, so sessions never leak across runs.
type Factory func(ctx context.Context) (Driver, error)
