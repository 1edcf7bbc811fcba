// Package db provides optional PostgreSQL storage for podcast run history.
package db

import (
	"context"
	_ "embed"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jonathan/podcast-agent/internal/types"
)

//go:embed schema.sql
var schemaSQL string

// DB wraps a PostgreSQL connection pool
type DB struct {
	pool *pgxpool.Pool
}

// Connect establishes a connection pool to the database
func Connect(ctx context.Context, databaseURL string) (*DB, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Verify connection
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DB{pool: pool}, nil
}

// Close closes the connection pool
func (db *DB) Close() {
	if db.pool != nil {
		db.pool.Close()
	}
}

// EnsureSchema creates the tables if they do not exist
func (db *DB) EnsureSchema(ctx context.Context) error {
	if _, err := db.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}

// CreateRun inserts a run record in the running state
func (db *DB) CreateRun(ctx context.Context, runID uuid.UUID, topic string, partCount int, useSearch bool) error {
	_, err := db.pool.Exec(ctx,
		`INSERT INTO podcast_runs (id, topic, part_count, use_search, status)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (id) DO NOTHING`,
		runID, topic, partCount, useSearch, RunStatusRunning,
	)
	if err != nil {
		return fmt.Errorf("failed to create run: %w", err)
	}
	return nil
}

// CompleteRun marks a run as finished with the given status
func (db *DB) CompleteRun(ctx context.Context, runID uuid.UUID, status, sessionDir string) error {
	var dir *string
	if sessionDir != "" {
		dir = &sessionDir
	}
	tag, err := db.pool.Exec(ctx,
		`UPDATE podcast_runs SET status = $1, session_dir = $2, completed_at = NOW() WHERE id = $3`,
		status, dir, runID,
	)
	if err != nil {
		return fmt.Errorf("failed to complete run: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("run not found: %s", runID)
	}
	return nil
}

// SaveResult records a finished run: the run row, stage outcomes, warnings,
// script segments and grounding, all in one transaction.
func (db *DB) SaveResult(ctx context.Context, result *types.PipelineResult, sessionDir string) error {
	runID, err := uuid.Parse(result.RunID)
	if err != nil {
		return fmt.Errorf("invalid run id %q: %w", result.RunID, err)
	}

	tx, err := db.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	batch := &pgx.Batch{}
	batch.Queue(
		`INSERT INTO podcast_runs (id, topic, part_count, use_search, status, session_dir, created_at, completed_at)
		 VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''), $7, $8)
		 ON CONFLICT (id) DO UPDATE SET status = $5, session_dir = NULLIF($6, ''), completed_at = $8`,
		runID, result.Topic, result.PartCount, result.UseSearch, RunStatus(result), sessionDir,
		result.StartedAt, result.FinishedAt,
	)
	for _, row := range stageRows(result) {
		batch.Queue(
			`INSERT INTO run_stages (run_id, stage, status, duration_ms, error_kind, message)
			 VALUES ($1, $2, $3, $4, $5, $6)
			 ON CONFLICT (run_id, stage) DO UPDATE
			 SET status = $3, duration_ms = $4, error_kind = $5, message = $6`,
			runID, row.Stage, row.Status, row.DurationMS, row.ErrorKind, row.Message,
		)
	}
	batch.Queue(`DELETE FROM run_warnings WHERE run_id = $1`, runID)
	for _, w := range result.Warnings {
		batch.Queue(
			`INSERT INTO run_warnings (run_id, stage, kind, message) VALUES ($1, $2, $3, $4)`,
			runID, string(w.Stage), string(w.Kind), w.Message,
		)
	}
	for i, seg := range result.Script {
		batch.Queue(
			`INSERT INTO script_segments (run_id, position, text) VALUES ($1, $2, $3)
			 ON CONFLICT (run_id, position) DO UPDATE SET text = $3`,
			runID, i, seg.Text,
		)
	}
	for _, row := range groundingRows(result.Grounding) {
		batch.Queue(
			`INSERT INTO grounding_sources (run_id, position, kind, value, title) VALUES ($1, $2, $3, $4, $5)
			 ON CONFLICT (run_id, kind, position) DO UPDATE SET value = $4, title = $5`,
			runID, row.Position, row.Kind, row.Value, row.Title,
		)
	}

	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("failed to save result for run %s: %w", runID, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit run %s: %w", runID, err)
	}
	return nil
}

// GetRun retrieves a run by ID, or nil if it does not exist
func (db *DB) GetRun(ctx context.Context, runID uuid.UUID) (*Run, error) {
	var run Run
	err := db.pool.QueryRow(ctx,
		`SELECT id, topic, part_count, use_search, status, session_dir, created_at, completed_at
		 FROM podcast_runs WHERE id = $1`,
		runID,
	).Scan(&run.ID, &run.Topic, &run.PartCount, &run.UseSearch, &run.Status, &run.SessionDir, &run.CreatedAt, &run.CompletedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	return &run, nil
}

// ListRuns retrieves recent runs, newest first
func (db *DB) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := db.pool.Query(ctx,
		`SELECT id, topic, part_count, use_search, status, session_dir, created_at, completed_at
		 FROM podcast_runs ORDER BY created_at DESC LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var run Run
		if err := rows.Scan(&run.ID, &run.Topic, &run.PartCount, &run.UseSearch, &run.Status, &run.SessionDir, &run.CreatedAt, &run.CompletedAt); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// GetScript returns the stored script segments of a run in order
func (db *DB) GetScript(ctx context.Context, runID uuid.UUID) ([]types.ScriptSegment, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT position, text FROM script_segments WHERE run_id = $1 ORDER BY position`,
		runID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get script: %w", err)
	}
	defer rows.Close()

	var segments []types.ScriptSegment
	for rows.Next() {
		var seg types.ScriptSegment
		if err := rows.Scan(&seg.Index, &seg.Text); err != nil {
			return nil, fmt.Errorf("failed to scan segment: %w", err)
		}
		segments = append(segments, seg)
	}
	return segments, rows.Err()
}

// DeleteRun deletes a run and everything recorded for it (via cascade)
func (db *DB) DeleteRun(ctx context.Context, runID uuid.UUID) error {
	result, err := db.pool.Exec(ctx, `DELETE FROM podcast_runs WHERE id = $1`, runID)
	if err != nil {
		return fmt.Errorf("failed to delete run: %w", err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("run not found: %s", runID)
	}
	return nil
}
