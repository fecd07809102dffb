package state

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS runs (
	id TEXT PRIMARY KEY,
	started_at_ms INTEGER NOT NULL,
	finished_at_ms INTEGER,
	status TEXT NOT NULL,
	error TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS step_runs (
	run_id TEXT NOT NULL REFERENCES runs(id),
	step_uri TEXT NOT NULL,
	checksum TEXT NOT NULL,
	state TEXT NOT NULL,
	attempts INTEGER NOT NULL,
	error TEXT NOT NULL DEFAULT '',
	started_at_ms INTEGER NOT NULL,
	finished_at_ms INTEGER NOT NULL,
	PRIMARY KEY (run_id, step_uri)
);

CREATE INDEX IF NOT EXISTS idx_step_runs_step ON step_runs(step_uri, started_at_ms);
`

// Run statuses.
const (
	RunRunning   = "running"
	RunSucceeded = "succeeded"
	RunFailed    = "failed"
)

// Step outcome states.
const (
	StepCached    = "cached"
	StepSucceeded = "succeeded"
	StepFailed    = "failed"
	StepSkipped   = "skipped"
)

// Run is one recorded engine run.
type Run struct {
	ID         string
	StartedAt  time.Time
	FinishedAt time.Time
	Status     string
	Error      string
}

// StepRun is one recorded step outcome within a run.
type StepRun struct {
	RunID      string
	StepURI    string
	Checksum   string
	State      string
	Attempts   int
	Error      string
	StartedAt  time.Time
	FinishedAt time.Time
}

// Store persists run history in SQLite.
type Store struct {
	sqlDB *sql.DB
}

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

// Open opens a state store at the given path, bootstrapping the schema.
// The path ":memory:" opens an ephemeral in-memory store.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("state db path is required")
	}

	dsn := path
	if path != ":memory:" {
		dsn = path + "?_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL"
	}
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := sqlDB.Exec(schemaSQL); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("bootstrap schema: %w", err)
	}
	return &Store{sqlDB: sqlDB}, nil
}

// Close closes the SQLite handle.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// StartRun records the beginning of an engine run.
func (s *Store) StartRun(ctx context.Context, runID string, startedAt time.Time) error {
	if runID == "" {
		return fmt.Errorf("run id is required")
	}
	_, err := s.sqlDB.ExecContext(ctx,
		`INSERT INTO runs (id, started_at_ms, status) VALUES (?, ?, ?)`,
		runID, toMillis(startedAt), RunRunning)
	if err != nil {
		return fmt.Errorf("record run start: %w", err)
	}
	return nil
}

// FinishRun records the end of an engine run.
func (s *Store) FinishRun(ctx context.Context, runID, status string, runErr error, finishedAt time.Time) error {
	errText := ""
	if runErr != nil {
		errText = runErr.Error()
	}
	res, err := s.sqlDB.ExecContext(ctx,
		`UPDATE runs SET finished_at_ms = ?, status = ?, error = ? WHERE id = ?`,
		toMillis(finishedAt), status, errText, runID)
	if err != nil {
		return fmt.Errorf("record run finish: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("record run finish: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("record run finish: unknown run %q", runID)
	}
	return nil
}

// RecordStepRun records one step outcome.
func (s *Store) RecordStepRun(ctx context.Context, rec StepRun) error {
	if rec.RunID == "" || rec.StepURI == "" {
		return fmt.Errorf("run id and step uri are required")
	}
	_, err := s.sqlDB.ExecContext(ctx,
		`INSERT INTO step_runs (run_id, step_uri, checksum, state, attempts, error, started_at_ms, finished_at_ms)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.RunID, rec.StepURI, rec.Checksum, rec.State, rec.Attempts, rec.Error,
		toMillis(rec.StartedAt), toMillis(rec.FinishedAt))
	if err != nil {
		return fmt.Errorf("record step run: %w", err)
	}
	return nil
}

// LastStepOutcome returns the most recent recorded outcome for a step, or
// nil when the step has never been recorded.
func (s *Store) LastStepOutcome(ctx context.Context, stepURI string) (*StepRun, error) {
	row := s.sqlDB.QueryRowContext(ctx,
		`SELECT run_id, step_uri, checksum, state, attempts, error, started_at_ms, finished_at_ms
		 FROM step_runs WHERE step_uri = ? ORDER BY started_at_ms DESC LIMIT 1`, stepURI)

	var rec StepRun
	var startedMs, finishedMs int64
	err := row.Scan(&rec.RunID, &rec.StepURI, &rec.Checksum, &rec.State, &rec.Attempts, &rec.Error, &startedMs, &finishedMs)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query last step outcome: %w", err)
	}
	rec.StartedAt = fromMillis(startedMs)
	rec.FinishedAt = fromMillis(finishedMs)
	return &rec, nil
}

// RecentRuns returns up to limit runs, newest first.
func (s *Store) RecentRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.sqlDB.QueryContext(ctx,
		`SELECT id, started_at_ms, COALESCE(finished_at_ms, 0), status, error
		 FROM runs ORDER BY started_at_ms DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query recent runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var run Run
		var startedMs, finishedMs int64
		if err := rows.Scan(&run.ID, &startedMs, &finishedMs, &run.Status, &run.Error); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		run.StartedAt = fromMillis(startedMs)
		if finishedMs > 0 {
			run.FinishedAt = fromMillis(finishedMs)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}
