package browser

import (
	"context"
	"fmt"
	"time"

	"github.com/chromedp/chromedp"
)

// reviewPause is how long the driver idles after filling the contact form,
// imitating a person glancing over the fields before moving on.
const reviewPause = 1500 * time.Millisecond

// fillFieldsJS assigns all three contact fields in one script and dispatches
// synthetic input/change events so framework-bound forms notice the values.
// Instant assignment is deliberate: per-character typing simulation is what
// the portals' bot detection flags.
const fillFieldsJS = `(function(name, phone, email) {
	const set = (selector, value) => {
		const el = document.querySelector(selector);
		if (!el) return false;
		el.value = value;
		el.dispatchEvent(new Event('input', { bubbles: true }));
		el.dispatchEvent(new Event('change', { bubbles: true }));
		return true;
	};
	return set('input[name="name"]', name) &&
		set('input[name="phone"]', phone) &&
		set('input[name="email"]', email);
})(%q, %q, %q)`

// ChromeDriver drives a headless Chrome session via chromedp.
type ChromeDriver struct {
	allocCancel   context.CancelFunc
	browserCancel context.CancelFunc
	browserCtx    context.Context
}

// NewChromeDriver starts a headless Chrome session. The returned driver must
// be closed by the caller.
func NewChromeDriver(ctx context.Context, headless bool) (Driver, error) {
	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx,
		append(chromedp.DefaultExecAllocatorOptions[:],
			chromedp.Flag("headless", headless),
			chromedp.Flag("disable-gpu", true),
			chromedp.Flag("no-sandbox", true),
			chromedp.Flag("disable-dev-shm-usage", true),
		)...,
	)

	browserCtx, browserCancel := chromedp.NewContext(allocCtx)

	// Start the browser process now so a missing Chrome binary fails fast
	// instead of mid-run.
	if err := chromedp.Run(browserCtx); err != nil {
		browserCancel()
		allocCancel()
		return nil, fmt.Errorf("failed to start browser: %w", err)
	}

	return &ChromeDriver{
		allocCancel:   allocCancel,
		browserCancel: browserCancel,
		browserCtx:    browserCtx,
	}, nil
}

// NewFactory returns a Factory producing ChromeDrivers.
func NewFactory(headless bool) Factory {
	return func(ctx context.Context) (Driver, error) {
		return NewChromeDriver(ctx, headless)
	}
}

// run executes chromedp actions against the session, bounded by the caller's
// context.
func (d *ChromeDriver) run(ctx context.Context, actions ...chromedp.Action) error {
	runCtx, cancel := mergeContext(d.browserCtx, ctx)
	defer cancel()
	return chromedp.Run(runCtx, actions...)
}

// mergeContext derives a session-bound context that is also cancelled when the
// caller's context ends.
func mergeContext(session, caller context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(session)
	stop := context.AfterFunc(caller, cancel)
	return ctx, func() {
		stop()
		cancel()
	}
}

// Navigate loads the given URL.
func (d *ChromeDriver) Navigate(ctx context.Context, url string) error {
	if err := d.run(ctx, chromedp.Navigate(url)); err != nil {
		return fmt.Errorf("failed to navigate to %s: %w", url, err)
	}
	return nil
}

// WaitForDOMReady waits for the document body under the given timeout.
func (d *ChromeDriver) WaitForDOMReady(ctx context.Context, timeout time.Duration) error {
	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := d.run(waitCtx, chromedp.WaitReady("body")); err != nil {
		return fmt.Errorf("page did not become ready: %w", err)
	}
	return nil
}

// FindAndClick clicks the first visible element matching the selector.
func (d *ChromeDriver) FindAndClick(ctx context.Context, selector string) error {
	if err := d.run(ctx, chromedp.Click(selector, chromedp.NodeVisible)); err != nil {
		return fmt.Errorf("failed to click %s: %w", selector, err)
	}
	return nil
}

// TypeText sets the value of the element matching the selector. Value
// assignment, not keystrokes (see package contract).
func (d *ChromeDriver) TypeText(ctx context.Context, text, selector string) error {
	if err := d.run(ctx, chromedp.SetValue(selector, text, chromedp.ByQuery)); err != nil {
		return fmt.Errorf("failed to set text on %s: %w", selector, err)
	}
	return nil
}

// FillAllContactFields fills name, phone and email in one script evaluation,
// then pauses briefly as a simulated review of the form.
func (d *ChromeDriver) FillAllContactFields(ctx context.Context, name, phone, email string) error {
	var ok bool
	script := fmt.Sprintf(fillFieldsJS, name, phone, email)
	if err := d.run(ctx,
		chromedp.Evaluate(script, &ok),
		chromedp.Sleep(reviewPause),
	); err != nil {
		return fmt.Errorf("failed to fill contact fields: %w", err)
	}
	if !ok {
		return fmt.Errorf("contact form fields not found")
	}
	return nil
}

// IsEmailVerificationRequired checks whether the portal rendered a
// verification code input after contact submission.
func (d *ChromeDriver) IsEmailVerificationRequired(ctx context.Context) (bool, error) {
	var required bool
	err := d.run(ctx, chromedp.Evaluate(
		`document.querySelector('input[name="verification_code"]') !== null`, &required))
	if err != nil {
		return false, fmt.Errorf("failed to check verification requirement: %w", err)
	}
	return required, nil
}

// Close tears down the browser session and its allocator.
func (d *ChromeDriver) Close() error {
	d.browserCancel()
	d.allocCancel()
	return nil
}
