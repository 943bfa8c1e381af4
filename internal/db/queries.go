package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/j-veylop/ai-dispatch-tui/internal/engine"
	"github.com/j-veylop/ai-dispatch-tui/internal/logger"
	"github.com/j-veylop/ai-dispatch-tui/internal/models"
)

const timestampLayout = "2006-01-02 15:04:05"

// InsertAPICall logs one backend attempt.
func (db *DB) InsertAPICall(ctx context.Context, call *models.APICall) error {
	query := `
		INSERT INTO api_calls (
			timestamp, request_id, backend, model, complexity, pass, tokens,
			duration_ms, status_code, success, degraded, error, error_kind
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	timestamp := call.Timestamp
	if timestamp.IsZero() {
		timestamp = time.Now()
	}

	result, err := db.ExecContext(ctx, query,
		timestamp.UTC().Format(timestampLayout),
		call.RequestID,
		call.Backend,
		call.Model,
		call.Complexity,
		call.Pass,
		call.Tokens,
		call.DurationMs,
		call.StatusCode,
		call.Success,
		call.Degraded,
		nullString(call.Error),
		nullString(call.ErrorKind),
	)
	if err != nil {
		return fmt.Errorf("failed to insert API call: %w", err)
	}

	id, err := result.LastInsertId()
	if err == nil {
		call.ID = id
	}

	return nil
}

// RecordAttempt implements engine.Recorder.
func (db *DB) RecordAttempt(ctx context.Context, a engine.Attempt) error {
	return db.InsertAPICall(ctx, models.NewAPICall(a.RequestID, a.Request.Complexity, a.Pass, a.Result))
}

// GetRecentAPICalls returns the most recent attempts, newest first.
func (db *DB) GetRecentAPICalls(ctx context.Context, limit int) ([]models.APICall, error) {
	query := `
		SELECT id, timestamp, request_id, backend, model, complexity, pass, tokens,
			   duration_ms, status_code, success, degraded, error, error_kind
		FROM api_calls
		ORDER BY timestamp DESC, id DESC
		LIMIT ?
	`

	rows, err := db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent API calls: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var calls []models.APICall
	for rows.Next() {
		var call models.APICall
		var errStr, kind sql.NullString

		err := rows.Scan(
			&call.ID,
			&call.Timestamp,
			&call.RequestID,
			&call.Backend,
			&call.Model,
			&call.Complexity,
			&call.Pass,
			&call.Tokens,
			&call.DurationMs,
			&call.StatusCode,
			&call.Success,
			&call.Degraded,
			&errStr,
			&kind,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan API call: %w", err)
		}

		call.Error = errStr.String
		call.ErrorKind = kind.String
		calls = append(calls, call)
	}

	return calls, rows.Err()
}

// GetHourlyStats returns attempt statistics grouped by hour, newest first.
func (db *DB) GetHourlyStats(ctx context.Context, hours int) ([]models.HourlyStats, error) {
	query := `
		SELECT
			strftime('%Y-%m-%d %H:00:00', timestamp) as hour,
			COUNT(*) as total_calls,
			COALESCE(SUM(tokens), 0) as total_tokens,
			COALESCE(AVG(duration_ms), 0) as avg_duration,
			SUM(CASE WHEN success = 0 THEN 1 ELSE 0 END) as error_count
		FROM api_calls
		WHERE timestamp >= datetime('now', ?)
		GROUP BY hour
		ORDER BY hour DESC
	`

	rows, err := db.QueryContext(ctx, query, fmt.Sprintf("-%d hours", hours))
	if err != nil {
		return nil, fmt.Errorf("failed to query hourly stats: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			logger.Error("failed to close rows", "error", err)
		}
	}()

	var stats []models.HourlyStats
	for rows.Next() {
		var s models.HourlyStats
		var hourStr string

		if err := rows.Scan(&hourStr, &s.TotalCalls, &s.TotalTokens, &s.AvgDurationMs, &s.ErrorCount); err != nil {
			return nil, fmt.Errorf("failed to scan hourly stats: %w", err)
		}

		s.Hour, _ = time.Parse(timestampLayout, hourStr)
		stats = append(stats, s)
	}

	return stats, rows.Err()
}

// GetTotalStats returns overall aggregated statistics.
func (db *DB) GetTotalStats(ctx context.Context) (*models.TotalStats, error) {
	query := `
		SELECT
			COUNT(*) as total_calls,
			COALESCE(SUM(tokens), 0) as total_tokens,
			COALESCE(AVG(duration_ms), 0) as avg_duration,
			COALESCE(SUM(CASE WHEN success = 0 THEN 1 ELSE 0 END), 0) as error_count,
			COUNT(DISTINCT backend) as unique_backends,
			COUNT(DISTINCT model) as unique_models,
			COUNT(DISTINCT request_id) as unique_requests
		FROM api_calls
	`

	var stats models.TotalStats
	err := db.QueryRowContext(ctx, query).Scan(
		&stats.TotalCalls,
		&stats.TotalTokens,
		&stats.AvgDurationMs,
		&stats.ErrorCount,
		&stats.UniqueBackends,
		&stats.UniqueModels,
		&stats.UniqueRequests,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query total stats: %w", err)
	}

	return &stats, nil
}

// GetBackendTotals returns persisted totals per backend, busiest first.
func (db *DB) GetBackendTotals(ctx context.Context) ([]models.BackendTotals, error) {
	query := `
		SELECT
			backend,
			COUNT(*) as total_calls,
			SUM(CASE WHEN success = 1 THEN 1 ELSE 0 END) as success_count,
			SUM(CASE WHEN success = 0 THEN 1 ELSE 0 END) as failure_count,
			COALESCE(SUM(tokens), 0) as total_tokens,
			COALESCE(AVG(duration_ms), 0) as avg_duration
		FROM api_calls
		GROUP BY backend
		ORDER BY total_calls DESC, backend ASC
	`

	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query backend totals: %w", err)
	}
	defer func() {
		if err := rows.Close(); err != nil {
			logger.Error("failed to close rows", "error", err)
		}
	}()

	var totals []models.BackendTotals
	for rows.Next() {
		var bt models.BackendTotals
		var backend string
		err := rows.Scan(&backend, &bt.TotalCalls, &bt.SuccessCount, &bt.FailureCount,
			&bt.TotalTokens, &bt.AvgDurationMs)
		if err != nil {
			return nil, fmt.Errorf("failed to scan backend totals: %w", err)
		}
		bt.Backend = models.Backend(backend)
		totals = append(totals, bt)
	}

	return totals, rows.Err()
}

// PruneAPICalls deletes attempts older than the given age and returns how many were removed.
func (db *DB) PruneAPICalls(ctx context.Context, olderThan time.Duration) (int64, error) {
	cutoff := time.Now().Add(-olderThan).UTC().Format(timestampLayout)
	result, err := db.ExecContext(ctx, "DELETE FROM api_calls WHERE timestamp < ?", cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to prune API calls: %w", err)
	}
	return result.RowsAffected()
}

// nullString returns a sql.NullString from a string.
func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
