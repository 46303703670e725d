// Package history persists one row per executed command, so failed backups
// are visible after the fact and schedulers can ask when a profile last
// succeeded.
package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

// ErrRunNotFound is returned when no run matches a query.
var ErrRunNotFound = errors.New("run not found")

// Run statuses. A run is recorded as running when the subprocess spawns and
// finished exactly once afterwards.
const (
	StatusRunning = "running"
	StatusSuccess = "success"
	StatusFailed  = "failed"
)

// Summary carries the numbers parsed from a backup run's output. All fields
// are zero for commands that do not produce a summary.
type Summary struct {
	FilesNew       uint64
	FilesChanged   uint64
	DataAdded      uint64
	BytesProcessed uint64
	SnapshotID     string
}

// Run is one executed command.
type Run struct {
	ID         string
	Profile    string
	Command    string
	Argv       []string
	StartedAt  time.Time
	FinishedAt time.Time
	Status     string
	ExitCode   int
	Stderr     string
	Summary    Summary
}

// NewRun returns a Run in the running state with a fresh ID.
func NewRun(profile, command string, argv []string) *Run {
	return &Run{
		ID:        uuid.NewString(),
		Profile:   profile,
		Command:   command,
		Argv:      argv,
		StartedAt: time.Now(),
		Status:    StatusRunning,
	}
}

// Duration returns the run's elapsed time, zero while it is still running.
func (r *Run) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}

	return r.FinishedAt.Sub(r.StartedAt)
}

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id              TEXT PRIMARY KEY,
	profile         TEXT NOT NULL,
	command         TEXT NOT NULL,
	argv            TEXT NOT NULL,
	started_at      INTEGER NOT NULL,
	finished_at     INTEGER NOT NULL DEFAULT 0,
	status          TEXT NOT NULL,
	exit_code       INTEGER NOT NULL DEFAULT 0,
	stderr          TEXT NOT NULL DEFAULT '',
	files_new       INTEGER NOT NULL DEFAULT 0,
	files_changed   INTEGER NOT NULL DEFAULT 0,
	data_added      INTEGER NOT NULL DEFAULT 0,
	bytes_processed INTEGER NOT NULL DEFAULT 0,
	snapshot_id     TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_runs_profile_started ON runs(profile, started_at);
`

// Store records runs in a SQLite database. The zero value is not usable;
// construct with Open.
type Store struct {
	db *sql.DB
}

// Open creates or opens the run database at path. ":memory:" keeps the
// history for the process lifetime only.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	// WAL lets a reader inspect history while a run is being recorded.
	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		db.Close()
		return nil, err
	}
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, err
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

// Close releases the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Record inserts a run in its current state.
func (s *Store) Record(ctx context.Context, run *Run) error {
	argv, err := json.Marshal(run.Argv)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO runs (id, profile, command, argv, started_at, status)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		run.ID, run.Profile, run.Command, string(argv), run.StartedAt.UnixNano(), run.Status)

	return err
}

// Finish marks the identified run as done. summary may be nil for commands
// without one.
func (s *Store) Finish(ctx context.Context, id, status string, exitCode int, stderr string, summary *Summary) error {
	if summary == nil {
		summary = &Summary{}
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET finished_at = ?, status = ?, exit_code = ?, stderr = ?,
		 files_new = ?, files_changed = ?, data_added = ?, bytes_processed = ?, snapshot_id = ?
		 WHERE id = ?`,
		time.Now().UnixNano(), status, exitCode, stderr,
		summary.FilesNew, summary.FilesChanged, summary.DataAdded,
		summary.BytesProcessed, summary.SnapshotID, id)
	if err != nil {
		return err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}

	return nil
}

// List returns runs newest first. An empty profile matches every profile;
// limit <= 0 means no limit.
func (s *Store) List(ctx context.Context, profile string, limit int) ([]*Run, error) {
	query := `SELECT id, profile, command, argv, started_at, finished_at, status,
	          exit_code, stderr, files_new, files_changed, data_added, bytes_processed, snapshot_id
	          FROM runs`
	args := make([]any, 0, 2)
	if profile != "" {
		query += " WHERE profile = ?"
		args = append(args, profile)
	}
	query += " ORDER BY started_at DESC"
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}

	return runs, rows.Err()
}

// LastRun returns the newest run for the profile, optionally restricted to
// one command ("" matches any).
func (s *Store) LastRun(ctx context.Context, profile, command string) (*Run, error) {
	query := `SELECT id, profile, command, argv, started_at, finished_at, status,
	          exit_code, stderr, files_new, files_changed, data_added, bytes_processed, snapshot_id
	          FROM runs WHERE profile = ?`
	args := []any{profile}
	if command != "" {
		query += " AND command = ?"
		args = append(args, command)
	}
	query += " ORDER BY started_at DESC LIMIT 1"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, err
		}

		return nil, fmt.Errorf("%w: profile %s", ErrRunNotFound, profile)
	}

	return scanRun(rows)
}

func scanRun(rows *sql.Rows) (*Run, error) {
	var (
		run      Run
		argv     string
		started  int64
		finished int64
	)
	if err := rows.Scan(&run.ID, &run.Profile, &run.Command, &argv, &started, &finished,
		&run.Status, &run.ExitCode, &run.Stderr,
		&run.Summary.FilesNew, &run.Summary.FilesChanged, &run.Summary.DataAdded,
		&run.Summary.BytesProcessed, &run.Summary.SnapshotID); err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(argv), &run.Argv); err != nil {
		return nil, err
	}
	run.StartedAt = time.Unix(0, started)
	if finished != 0 {
		run.FinishedAt = time.Unix(0, finished)
	}

	return &run, nil
}
