package engine

import (
	"sync"
	"time"

	"github.com/jonathan/court-agent/internal/types"
)

// StatusObserver is called on every status transition with an immutable
// snapshot. Observers must not block; the engine calls them synchronously.
type StatusObserver func(types.RunStatus)

// statusContainer is the single authoritative owner of the engine's run
// status. Only the orchestrator writes it; everyone else reads snapshots.
type statusContainer struct {
	mu        sync.RWMutex
	status    types.RunStatus
	observers []StatusObserver
}

func newStatusContainer() *statusContainer {
	return &statusContainer{
		status: types.RunStatus{
			State:     types.StateIdle,
			Stage:     string(StageIdle),
			UpdatedAt: time.Now(),
		},
	}
}

// Snapshot returns a copy of the current status.
func (c *statusContainer) Snapshot() types.RunStatus {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.status
}

// Subscribe registers an observer for future transitions.
func (c *statusContainer) Subscribe(fn StatusObserver) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.observers = append(c.observers, fn)
}

// set applies a mutation and notifies observers with the resulting snapshot.
func (c *statusContainer) set(mutate func(*types.RunStatus)) {
	c.mu.Lock()
	mutate(&c.status)
	c.status.UpdatedAt = time.Now()
	snapshot := c.status
	observers := append([]StatusObserver(nil), c.observers...)
	c.mu.Unlock()

	for _, fn := range observers {
		fn(snapshot)
	}
}
