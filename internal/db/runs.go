package db

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jonathan/court-agent/internal/types"
)

// AppendRun persists a finished run. Implements the engine's ResultSink.
func (db *DB) AppendRun(ctx context.Context, result types.RunResult) error {
	detailsJSON, err := json.Marshal(result.Details)
	if err != nil {
		return fmt.Errorf("failed to marshal details: %w", err)
	}

	_, err = db.pool.Exec(ctx,
		`INSERT INTO runs (id, config_id, success, reason, message, details, started_at, finished_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		result.RunID, result.ConfigID, result.Success, string(result.Reason),
		result.Message, detailsJSON, result.StartedAt, result.FinishedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to append run: %w", err)
	}
	return nil
}

// ListRuns returns the most recent runs, newest first.
func (db *DB) ListRuns(ctx context.Context, limit int) ([]types.RunResult, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := db.pool.Query(ctx,
		`SELECT id, config_id, success, reason, message, details, started_at, finished_at
		 FROM runs ORDER BY started_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var out []types.RunResult
	for rows.Next() {
		var r types.RunResult
		var reason string
		var detailsJSON []byte
		if err := rows.Scan(&r.RunID, &r.ConfigID, &r.Success, &reason, &r.Message,
			&detailsJSON, &r.StartedAt, &r.FinishedAt); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		r.Reason = types.FailReason(reason)
		if len(detailsJSON) > 0 {
			if err := json.Unmarshal(detailsJSON, &r.Details); err != nil {
				return nil, fmt.Errorf("failed to unmarshal details: %w", err)
			}
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
