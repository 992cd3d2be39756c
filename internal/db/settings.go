package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
)

const automationEnabledKey = "automation_enabled"

// AutomationEnabled reports whether global automation is switched on.
// Defaults to true when the setting was never written. Implements the
// schedule loop's SettingsSource.
func (db *DB) AutomationEnabled(ctx context.Context) (bool, error) {
	var value []byte
	err := db.pool.QueryRow(ctx,
		`SELECT value FROM settings WHERE key = $1`, automationEnabledKey).Scan(&value)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return true, nil
		}
		return false, fmt.Errorf("failed to read setting: %w", err)
	}

	var enabled bool
	if err := json.Unmarshal(value, &enabled); err != nil {
		return false, fmt.Errorf("failed to unmarshal setting: %w", err)
	}
	return enabled, nil
}

// SetAutomationEnabled flips the global automation switch. Takes effect on
// the loop's next tick; no restart needed.
func (db *DB) SetAutomationEnabled(ctx context.Context, enabled bool) error {
	value, err := json.Marshal(enabled)
	if err != nil {
		return fmt.Errorf("failed to marshal setting: %w", err)
	}
	_, err = db.pool.Exec(ctx,
		`INSERT INTO settings (key, value) VALUES ($1, $2)
		 ON CONFLICT (key) DO UPDATE SET value = $2, updated_at = NOW()`,
		automationEnabledKey, value)
	if err != nil {
		return fmt.Errorf("failed to write setting: %w", err)
	}
	return nil
}
