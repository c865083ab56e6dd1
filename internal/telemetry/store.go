package telemetry

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schemaSQL string

// schemaVersion is the current schema version. Bump on schema changes; the
// store refuses to open a database written by a different version.
const schemaVersion = 1

// ErrSchemaMismatch indicates the database was written by a different
// schema version.
var ErrSchemaMismatch = errors.New("schema version mismatch")

// Event types recorded in the store.
const (
	EventDaemonStarted = "daemon-started"
	EventDaemonStopped = "daemon-stopped"
	EventRigStarted    = "rig-started"
	EventRigStopped    = "rig-stopped"
	EventConfigChange  = "config-change"
	EventWatchdogAlert = "watchdog-alert"
	EventSweepFailed   = "sweep-failed"
	EventLoopFailure   = "loop-failure"
	EventControlError  = "control-error"
)

// Event is one row of the rig event journal.
type Event struct {
	ID      int64
	At      time.Time
	Type    string
	Slot    string
	Message string
}

// Outcome values of a sweep run.
const (
	SweepCompleted = "completed"
	SweepFailed    = "failed"
)

// SweepRun is the stored metadata of one IV sweep.
type SweepRun struct {
	ID         string
	Slot       string
	StartedAt  time.Time
	FinishedAt time.Time
	Points     int
	Outcome    string
	Error      string
	Path       string
}

// Store persists sweep runs and rig events in SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// OpenStore initializes or connects to the telemetry database.
func OpenStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: dbPath}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Path returns the database file location.
func (s *Store) Path() string { return s.path }

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) initSchema(ctx context.Context) error {
	var tableExists int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	).Scan(&tableExists)
	if err != nil {
		return fmt.Errorf("check schema_version table: %w", err)
	}

	if tableExists == 0 {
		return s.createSchema(ctx)
	}

	var version int
	if err := s.db.QueryRowContext(ctx, "SELECT version FROM schema_version LIMIT 1").Scan(&version); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if version != schemaVersion {
		return fmt.Errorf("%w: database has version %d, expected %d (delete %s to reset)",
			ErrSchemaMismatch, version, schemaVersion, s.path)
	}
	return nil
}

func (s *Store) createSchema(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "INSERT INTO schema_version (version) VALUES (?)", schemaVersion); err != nil {
		return fmt.Errorf("record schema version: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema: %w", err)
	}
	return nil
}

// RecordEvent appends one event to the journal and returns its ID.
func (s *Store) RecordEvent(ctx context.Context, event Event) (int64, error) {
	at := event.At
	if at.IsZero() {
		at = time.Now().UTC()
	}
	res, err := s.db.ExecContext(ctx,
		"INSERT INTO rig_events (at, type, slot, message) VALUES (?, ?, ?, ?)",
		at.UTC().Format(time.RFC3339Nano), event.Type, nullableString(event.Slot), event.Message)
	if err != nil {
		return 0, fmt.Errorf("insert event: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}
	return id, nil
}

// RecentEvents returns up to limit events, newest first.
func (s *Store) RecentEvents(ctx context.Context, limit int) ([]Event, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, at, type, slot, message FROM rig_events ORDER BY id DESC LIMIT ?", limit)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var (
			event Event
			at    string
			slot  sql.NullString
		)
		if err := rows.Scan(&event.ID, &at, &event.Type, &slot, &event.Message); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		if event.At, err = time.Parse(time.RFC3339Nano, at); err != nil {
			return nil, fmt.Errorf("parse event timestamp %q: %w", at, err)
		}
		event.Slot = slot.String
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}
	return events, nil
}

// RecordSweep stores one finished sweep run.
func (s *Store) RecordSweep(ctx context.Context, run SweepRun) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sweep_runs (id, slot, started_at, finished_at, points, outcome, error, path)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Slot,
		run.StartedAt.UTC().Format(time.RFC3339Nano),
		run.FinishedAt.UTC().Format(time.RFC3339Nano),
		run.Points, run.Outcome, run.Error, run.Path)
	if err != nil {
		return fmt.Errorf("insert sweep run: %w", err)
	}
	return nil
}

// RecentSweeps returns up to limit sweep runs, newest first. An empty slot
// selects every slot.
func (s *Store) RecentSweeps(ctx context.Context, slot string, limit int) ([]SweepRun, error) {
	if limit <= 0 {
		limit = 20
	}

	query := "SELECT id, slot, started_at, finished_at, points, outcome, error, path FROM sweep_runs"
	args := []any{}
	if slot != "" {
		query += " WHERE slot = ?"
		args = append(args, slot)
	}
	query += " ORDER BY started_at DESC LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query sweep runs: %w", err)
	}
	defer rows.Close()

	var runs []SweepRun
	for rows.Next() {
		var (
			run      SweepRun
			started  string
			finished string
		)
		if err := rows.Scan(&run.ID, &run.Slot, &started, &finished,
			&run.Points, &run.Outcome, &run.Error, &run.Path); err != nil {
			return nil, fmt.Errorf("scan sweep run: %w", err)
		}
		if run.StartedAt, err = time.Parse(time.RFC3339Nano, started); err != nil {
			return nil, fmt.Errorf("parse sweep start %q: %w", started, err)
		}
		if run.FinishedAt, err = time.Parse(time.RFC3339Nano, finished); err != nil {
			return nil, fmt.Errorf("parse sweep finish %q: %w", finished, err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sweep runs: %w", err)
	}
	return runs, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}
