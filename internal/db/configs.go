package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/jonathan/court-agent/internal/types"
)

// CreateConfig inserts a booking config and returns its ID.
func (db *DB) CreateConfig(ctx context.Context, cfg types.BookingConfig) (uuid.UUID, error) {
	scheduleJSON, err := json.Marshal(cfg.Schedule)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to marshal schedule: %w", err)
	}

	var id uuid.UUID
	err = db.pool.QueryRow(ctx,
		`INSERT INTO booking_configs (facility_url, sport, party_size, enabled, schedule)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id`,
		cfg.FacilityURL, cfg.Sport, cfg.PartySize, cfg.Enabled, scheduleJSON,
	).Scan(&id)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to create config: %w", err)
	}
	return id, nil
}

// GetConfig retrieves one booking config, or nil when absent.
func (db *DB) GetConfig(ctx context.Context, id uuid.UUID) (*types.BookingConfig, error) {
	row := db.pool.QueryRow(ctx,
		`SELECT id, facility_url, sport, party_size, enabled, schedule, created_at, updated_at
		 FROM booking_configs WHERE id = $1`, id)
	cfg, err := scanConfig(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get config: %w", err)
	}
	return cfg, nil
}

// ListConfigs returns all booking configs, newest first.
func (db *DB) ListConfigs(ctx context.Context) ([]types.BookingConfig, error) {
	return db.queryConfigs(ctx,
		`SELECT id, facility_url, sport, party_size, enabled, schedule, created_at, updated_at
		 FROM booking_configs ORDER BY created_at DESC`)
}

// EnabledConfigs returns the configs the trigger loop should evaluate.
// Implements the schedule loop's ConfigSource.
func (db *DB) EnabledConfigs(ctx context.Context) ([]types.BookingConfig, error) {
	return db.queryConfigs(ctx,
		`SELECT id, facility_url, sport, party_size, enabled, schedule, created_at, updated_at
		 FROM booking_configs WHERE enabled ORDER BY created_at`)
}

// SetConfigEnabled flips a config's enabled flag.
func (db *DB) SetConfigEnabled(ctx context.Context, id uuid.UUID, enabled bool) error {
	tag, err := db.pool.Exec(ctx,
		`UPDATE booking_configs SET enabled = $2, updated_at = NOW() WHERE id = $1`, id, enabled)
	if err != nil {
		return fmt.Errorf("failed to update config: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("config %s not found", id)
	}
	return nil
}

// DeleteConfig removes a booking config.
func (db *DB) DeleteConfig(ctx context.Context, id uuid.UUID) error {
	if _, err := db.pool.Exec(ctx, `DELETE FROM booking_configs WHERE id = $1`, id); err != nil {
		return fmt.Errorf("failed to delete config: %w", err)
	}
	return nil
}

func (db *DB) queryConfigs(ctx context.Context, query string) ([]types.BookingConfig, error) {
	rows, err := db.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list configs: %w", err)
	}
	defer rows.Close()

	var out []types.BookingConfig
	for rows.Next() {
		cfg, err := scanConfig(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan config: %w", err)
		}
		out = append(out, *cfg)
	}
	return out, rows.Err()
}

func scanConfig(row pgx.Row) (*types.BookingConfig, error) {
	var cfg types.BookingConfig
	var scheduleJSON []byte
	if err := row.Scan(&cfg.ID, &cfg.FacilityURL, &cfg.Sport, &cfg.PartySize,
		&cfg.Enabled, &scheduleJSON, &cfg.CreatedAt, &cfg.UpdatedAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(scheduleJSON, &cfg.Schedule); err != nil {
		return nil, fmt.Errorf("failed to unmarshal schedule: %w", err)
	}
	return &cfg, nil
}
