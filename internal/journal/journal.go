package journal

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/veilmq/veil/internal/task"

	_ "modernc.org/sqlite"
)

const createEventsTable = `
CREATE TABLE IF NOT EXISTS task_events (
    id      TEXT PRIMARY KEY,
    task_id INTEGER NOT NULL,
    name    TEXT NOT NULL,
    kind    TEXT NOT NULL,
    error   TEXT NOT NULL DEFAULT '',
    at      DATETIME NOT NULL,
    duration_ms INTEGER NOT NULL DEFAULT 0
)`

const createAtIndex = `CREATE INDEX IF NOT EXISTS idx_task_events_at ON task_events (at)`

// appendTimeout bounds the synchronous insert performed from task goroutines.
const appendTimeout = time.Second

// Record is a persisted lifecycle event. ID is a ULID, so lexicographic order
// is insertion order.
type Record struct {
	ID     string    `json:"id"`
	TaskID uint64    `json:"task_id"`
	Name   string    `json:"name"`
	Kind   string    `json:"kind"`
	Err    string    `json:"error,omitempty"`
	At     time.Time `json:"at"`

	// DurationMS is zero for spawned events.
	DurationMS int64 `json:"duration_ms,omitempty"`
}

// Stats holds aggregate journal statistics.
type Stats struct {
	Total       int            `json:"total"`
	CountByKind map[string]int `json:"count_by_kind"`
}

// Compile-time observer satisfaction check.
var _ task.Observer = (*Journal)(nil)

// Journal is a SQLite-backed, append-only record of task lifecycle events.
// It implements task.Observer so it can be plugged into a controller.
type Journal struct {
	db     *sql.DB
	logger *slog.Logger
}

// Open opens the journal database at path and runs migrations.
func Open(path string, logger *slog.Logger) (*Journal, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}

	if _, err := db.Exec(createEventsTable); err != nil {
		db.Close()
		return nil, fmt.Errorf("create task_events table: %w", err)
	}

	if _, err := db.Exec(createAtIndex); err != nil {
		db.Close()
		return nil, fmt.Errorf("create task_events index: %w", err)
	}

	return &Journal{db: db, logger: logger}, nil
}

// Close closes the underlying database connection.
func (j *Journal) Close() error {
	return j.db.Close()
}

// TaskEvent persists a lifecycle event. Failures are logged, never propagated:
// the journal must not interfere with task execution.
func (j *Journal) TaskEvent(ev task.Event) {
	ctx, cancel := context.WithTimeout(context.Background(), appendTimeout)
	defer cancel()

	if err := j.Append(ctx, ev); err != nil {
		j.logger.Error("journal append failed",
			"task", ev.Name, "task_id", ev.TaskID, "kind", ev.Kind, "error", err)
	}
}

// Append inserts a lifecycle event.
func (j *Journal) Append(ctx context.Context, ev task.Event) error {
	_, err := j.db.ExecContext(ctx,
		`INSERT INTO task_events (id, task_id, name, kind, error, at, duration_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		ulid.Make().String(), int64(ev.TaskID), ev.Name, ev.Kind, ev.Err, ev.At, ev.DurationMS,
	)
	if err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	return nil
}

// List returns the most recent events, newest first, up to limit.
func (j *Journal) List(ctx context.Context, limit int) ([]Record, error) {
	rows, err := j.db.QueryContext(ctx,
		`SELECT id, task_id, name, kind, error, at, duration_ms FROM task_events ORDER BY id DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var r Record
		var taskID int64
		if err := rows.Scan(&r.ID, &taskID, &r.Name, &r.Kind, &r.Err, &r.At, &r.DurationMS); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		r.TaskID = uint64(taskID)
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}
	return records, nil
}

// GetStats returns aggregate counts over the journal.
func (j *Journal) GetStats(ctx context.Context) (*Stats, error) {
	rows, err := j.db.QueryContext(ctx,
		`SELECT kind, COUNT(*) FROM task_events GROUP BY kind`,
	)
	if err != nil {
		return nil, fmt.Errorf("event stats: %w", err)
	}
	defer rows.Close()

	stats := &Stats{CountByKind: make(map[string]int)}
	for rows.Next() {
		var kind string
		var count int
		if err := rows.Scan(&kind, &count); err != nil {
			return nil, fmt.Errorf("scan stats: %w", err)
		}
		stats.CountByKind[kind] = count
		stats.Total += count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate stats: %w", err)
	}
	return stats, nil
}

// PruneBefore deletes events older than cutoff and reports how many rows went.
func (j *Journal) PruneBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := j.db.ExecContext(ctx, `DELETE FROM task_events WHERE at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("prune events: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("prune rows affected: %w", err)
	}
	return n, nil
}

// PruneFunc returns a tracked-task function that deletes events older than
// retention. Prune errors are logged rather than returned so a transient
// database problem does not kill the periodic pruner.
func (j *Journal) PruneFunc(retention time.Duration) task.Func {
	return func(ctx context.Context) error {
		n, err := j.PruneBefore(ctx, time.Now().UTC().Add(-retention))
		if err != nil {
			j.logger.Warn("journal prune failed", "error", err)
			return nil
		}
		if n > 0 {
			j.logger.Debug("journal pruned", "events", n)
		}
		return nil
	}
}
