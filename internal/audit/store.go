// Package audit provides the SQLite-backed audit sink. It subscribes to
// pool lifecycle events and records task outcomes so the status command
// can report on past runs. The scheduler itself never depends on it.
package audit

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/swarmq/swarmq/internal/swarm"
)

// Store wraps an SQLite database holding the dispatch audit trail.
type Store struct {
	conn *sql.DB
	path string
	mu   sync.RWMutex
}

// DefaultPath returns the audit database location under XDG data.
func DefaultPath() string {
	dataDir := os.Getenv("XDG_DATA_HOME")
	if dataDir == "" {
		home, _ := os.UserHomeDir()
		dataDir = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(dataDir, "swarmq", "audit.db")
}

// Open opens the audit database at the given path, creating parent
// directories as needed. WAL mode is enabled for concurrent reads.
func Open(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}

	return &Store{conn: conn, path: path}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn.Close()
}

// Path returns the path to the database file.
func (s *Store) Path() string {
	return s.path
}

// Migrate applies all pending schema migrations.
func (s *Store) Migrate() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.conn.Exec(`
		CREATE TABLE IF NOT EXISTS schema_version (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("create schema_version table: %w", err)
	}

	var currentVersion int
	row := s.conn.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_version")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("get schema version: %w", err)
	}

	migrations := []struct {
		version int
		sql     string
	}{
		{1, migrationV1Tasks},
		{2, migrationV2Events},
	}

	for _, m := range migrations {
		if m.version <= currentVersion {
			continue
		}

		tx, err := s.conn.Begin()
		if err != nil {
			return fmt.Errorf("begin transaction: %w", err)
		}

		if _, err := tx.Exec(m.sql); err != nil {
			tx.Rollback()
			return fmt.Errorf("apply migration v%d: %w", m.version, err)
		}

		if _, err := tx.Exec("INSERT INTO schema_version (version) VALUES (?)", m.version); err != nil {
			tx.Rollback()
			return fmt.Errorf("record migration v%d: %w", m.version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration v%d: %w", m.version, err)
		}
	}

	return nil
}

const migrationV1Tasks = `
CREATE TABLE IF NOT EXISTS tasks (
	id TEXT PRIMARY KEY,
	run_id TEXT NOT NULL,
	type TEXT NOT NULL,
	priority TEXT NOT NULL,
	worker_id TEXT,
	status TEXT NOT NULL,
	error TEXT,
	duration_ms INTEGER NOT NULL DEFAULT 0,
	first_seen DATETIME NOT NULL,
	finished_at DATETIME
);

CREATE INDEX IF NOT EXISTS idx_tasks_run_id ON tasks(run_id);
CREATE INDEX IF NOT EXISTS idx_tasks_status ON tasks(status);
`

const migrationV2Events = `
CREATE TABLE IF NOT EXISTS events (
	seq INTEGER PRIMARY KEY AUTOINCREMENT,
	type TEXT NOT NULL,
	task_id TEXT,
	run_id TEXT,
	worker_id TEXT,
	detail TEXT,
	created_at DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_events_run_id ON events(run_id);
`

// Record writes one pool event to the audit trail. Task-scoped events
// also upsert the task's latest known state.
func (s *Store) Record(ev swarm.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.conn.Exec(`
		INSERT INTO events (type, task_id, run_id, worker_id, detail, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, string(ev.Type), ev.TaskID, ev.RunID, ev.WorkerID, ev.Err, formatTime(ev.Timestamp))
	if err != nil {
		return fmt.Errorf("record event: %w", err)
	}

	if ev.TaskID == "" {
		return nil
	}

	status, finished := taskState(ev.Type)
	if status == "" {
		return nil
	}

	var finishedAt any
	if finished {
		finishedAt = formatTime(ev.Timestamp)
	}
	_, err = s.conn.Exec(`
		INSERT INTO tasks (id, run_id, type, priority, worker_id, status, error, duration_ms, first_seen, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			worker_id = CASE WHEN excluded.worker_id != '' THEN excluded.worker_id ELSE tasks.worker_id END,
			status = excluded.status,
			error = excluded.error,
			duration_ms = excluded.duration_ms,
			finished_at = excluded.finished_at
	`, ev.TaskID, ev.RunID, ev.TaskType, string(ev.Priority), ev.WorkerID,
		status, ev.Err, ev.Duration.Milliseconds(), formatTime(ev.Timestamp), finishedAt)
	if err != nil {
		return fmt.Errorf("record task state: %w", err)
	}
	return nil
}

// taskState maps an event type to the task status it implies.
func taskState(typ swarm.EventType) (status string, finished bool) {
	switch typ {
	case swarm.EventTaskQueued, swarm.EventTaskHeld:
		return "pending", false
	case swarm.EventTaskAssigned:
		return "assigned", false
	case swarm.EventTaskCompleted:
		return "completed", true
	case swarm.EventTaskFailed:
		return "failed", true
	case swarm.EventTaskCancelled:
		return "cancelled", true
	default:
		return "", false
	}
}

// Consume drains the event channel into the store until it closes.
// Intended to run in its own goroutine alongside a pool.
func (s *Store) Consume(events <-chan swarm.Event) {
	for ev := range events {
		// Recording is best-effort; a sink failure must not affect
		// dispatch.
		_ = s.Record(ev)
	}
}

// RunSummary aggregates one run's task outcomes.
type RunSummary struct {
	// RunID identifies the run.
	RunID string `json:"run_id"`
	// Total is the number of tasks recorded for the run.
	Total int `json:"total"`
	// Pending, Assigned, Completed, Failed and Cancelled count tasks by
	// their latest recorded status.
	Pending   int `json:"pending"`
	Assigned  int `json:"assigned"`
	Completed int `json:"completed"`
	Failed    int `json:"failed"`
	Cancelled int `json:"cancelled"`
	// FirstSeen is the earliest task record in the run.
	FirstSeen time.Time `json:"first_seen"`
}

// Runs returns summaries for the most recent runs, newest first.
func (s *Store) Runs(limit int) ([]RunSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.conn.Query(`
		SELECT run_id,
			COUNT(*),
			SUM(status = 'pending'),
			SUM(status = 'assigned'),
			SUM(status = 'completed'),
			SUM(status = 'failed'),
			SUM(status = 'cancelled'),
			MIN(first_seen)
		FROM tasks
		GROUP BY run_id
		ORDER BY MIN(first_seen) DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var summaries []RunSummary
	for rows.Next() {
		var r RunSummary
		var firstSeen string
		if err := rows.Scan(&r.RunID, &r.Total, &r.Pending, &r.Assigned,
			&r.Completed, &r.Failed, &r.Cancelled, &firstSeen); err != nil {
			return nil, fmt.Errorf("scan run summary: %w", err)
		}
		if t, err := parseTime(firstSeen); err == nil {
			r.FirstSeen = t
		}
		summaries = append(summaries, r)
	}
	return summaries, rows.Err()
}

// TaskRecord is one task's latest audited state.
type TaskRecord struct {
	// ID and RunID identify the task.
	ID    string `json:"id"`
	RunID string `json:"run_id"`
	// Type is the task's type tag.
	Type string `json:"type"`
	// Priority is the task's dispatch level.
	Priority string `json:"priority"`
	// WorkerID is the worker that executed the task, if any.
	WorkerID string `json:"worker_id,omitempty"`
	// Status is the latest recorded status.
	Status string `json:"status"`
	// Error holds failure detail for failed tasks.
	Error string `json:"error,omitempty"`
	// Duration is the recorded execution time.
	Duration time.Duration `json:"duration"`
}

// Tasks returns the audited tasks of one run.
func (s *Store) Tasks(runID string) ([]TaskRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.conn.Query(`
		SELECT id, run_id, type, priority, COALESCE(worker_id, ''),
			status, COALESCE(error, ''), duration_ms
		FROM tasks
		WHERE run_id = ?
		ORDER BY first_seen, id
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query tasks: %w", err)
	}
	defer rows.Close()

	var records []TaskRecord
	for rows.Next() {
		var r TaskRecord
		var durationMS int64
		if err := rows.Scan(&r.ID, &r.RunID, &r.Type, &r.Priority,
			&r.WorkerID, &r.Status, &r.Error, &durationMS); err != nil {
			return nil, fmt.Errorf("scan task record: %w", err)
		}
		r.Duration = time.Duration(durationMS) * time.Millisecond
		records = append(records, r)
	}
	return records, rows.Err()
}

// PurgeOldRuns deletes task and event records older than the given age.
// Returns the number of task rows deleted.
func (s *Store) PurgeOldRuns(olderThan time.Duration) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := formatTime(time.Now().Add(-olderThan))
	if _, err := s.conn.Exec(`DELETE FROM events WHERE created_at < ?`, cutoff); err != nil {
		return 0, fmt.Errorf("purge old events: %w", err)
	}
	result, err := s.conn.Exec(`DELETE FROM tasks WHERE first_seen < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("purge old tasks: %w", err)
	}
	count, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("get rows affected: %w", err)
	}
	return count, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339, s)
}
