package schedule

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jonathan/court-agent/internal/types"
)

// DefaultTickInterval is how often the loop re-evaluates trigger instants.
const DefaultTickInterval = time.Minute

// ConfigSource yields the enabled booking configs to evaluate each tick.
type ConfigSource interface {
	EnabledConfigs(ctx context.Context) ([]types.BookingConfig, error)
}

// SettingsSource reports whether global automation is switched on. The loop
// keeps ticking while disabled so re-enabling takes effect on the next minute
// boundary without a restart.
type SettingsSource interface {
	AutomationEnabled(ctx context.Context) (bool, error)
}

// Dispatcher receives due configs. Dispatch must not block the loop; admission
// control (at most one run at a time) is the dispatcher's concern, not ours.
type Dispatcher interface {
	RunAsync(cfg types.BookingConfig) error
}

// Loop ticks once per interval and hands configs whose trigger instant falls
// in the current window to the dispatcher, fire-and-forget.
type Loop struct {
	Configs  ConfigSource
	Settings SettingsSource
	Engine   Dispatcher

	// TickInterval defaults to DefaultTickInterval.
	TickInterval time.Duration

	// GraceWindow widens the match window beyond one tick, so a trigger
	// missed while the process was suspended still fires once instead of
	// silently rolling to next week. Zero keeps exact-minute firing.
	GraceWindow time.Duration

	mu    sync.Mutex
	fired map[uuid.UUID]time.Time
}

// Run ticks until the context is cancelled. Dispatch failures never stop the
// loop.
func (l *Loop) Run(ctx context.Context) error {
	interval := l.TickInterval
	if interval <= 0 {
		interval = DefaultTickInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case now := <-ticker.C:
			l.Tick(ctx, now)
		}
	}
}

// Tick evaluates every enabled config against now and dispatches the due ones.
// Two configs due in the same minute are both dispatched; the engine's
// single-flight guard decides which is admitted.
func (l *Loop) Tick(ctx context.Context, now time.Time) {
	enabled, err := l.Settings.AutomationEnabled(ctx)
	if err != nil {
		log.Printf("[LOOP] settings read failed: %v", err)
		return
	}
	if !enabled {
		return
	}

	configs, err := l.Configs.EnabledConfigs(ctx)
	if err != nil {
		log.Printf("[LOOP] config listing failed: %v", err)
		return
	}

	interval := l.TickInterval
	if interval <= 0 {
		interval = DefaultTickInterval
	}
	window := interval + l.GraceWindow

	for _, cfg := range configs {
		tr := dueTrigger(cfg, now, window)
		if tr == nil {
			continue
		}
		if l.alreadyFired(cfg.ID, tr.At) {
			continue
		}
		log.Printf("[LOOP] trigger due for config %s (%s %s slot)", cfg.ID, tr.Weekday, tr.Slot)
		if err := l.Engine.RunAsync(cfg); err != nil {
			log.Printf("[LOOP] dispatch rejected for config %s: %v", cfg.ID, err)
		}
	}
}

// alreadyFired records the instant and reports whether this exact trigger was
// dispatched before. Keeps a widened grace window from double-firing.
func (l *Loop) alreadyFired(configID uuid.UUID, at time.Time) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.fired == nil {
		l.fired = make(map[uuid.UUID]time.Time)
	}
	if prev, ok := l.fired[configID]; ok && prev.Equal(at) {
		return true
	}
	l.fired[configID] = at
	return false
}
