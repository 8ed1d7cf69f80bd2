// Package joblog persists a history of press-release processing runs in
// SQLite. Writes normally go through an async batch writer so a slow disk
// never blocks the request path; Close drains the buffer before returning.
package joblog

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	_ "modernc.org/sqlite"

	"github.com/ezwire/presskit/dbopen"
	"github.com/ezwire/presskit/idgen"
)

const ddl = `
CREATE TABLE IF NOT EXISTS runs (
	run_id         TEXT PRIMARY KEY,
	ticket_key     TEXT NOT NULL DEFAULT '',
	folder_name    TEXT NOT NULL DEFAULT '',
	month_folder   TEXT NOT NULL DEFAULT '',
	success        INTEGER NOT NULL DEFAULT 0,
	errors         TEXT NOT NULL DEFAULT '[]',
	files_uploaded INTEGER NOT NULL DEFAULT 0,
	duration_ms    INTEGER NOT NULL DEFAULT 0,
	created_at     TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_runs_created_at ON runs(created_at);
CREATE INDEX IF NOT EXISTS idx_runs_ticket_key ON runs(ticket_key);
`

const insertSQL = `INSERT INTO runs
	(run_id, ticket_key, folder_name, month_folder,
	 success, errors, files_uploaded, duration_ms, created_at)
	VALUES (?,?,?,?,?,?,?,?,?)`

// Run is one processing attempt, successful or not.
type Run struct {
	ID            string    `json:"id"`
	TicketKey     string    `json:"ticket"`
	FolderName    string    `json:"folder"`
	MonthFolder   string    `json:"month_folder"`
	Success       bool      `json:"success"`
	Errors        []string  `json:"errors,omitempty"`
	FilesUploaded int       `json:"files_uploaded"`
	DurationMs    int64     `json:"duration_ms"`
	CreatedAt     time.Time `json:"created_at"`
}

const (
	bufferSize    = 256
	batchSize     = 32
	flushInterval = 2 * time.Second
)

// Store records and queries runs.
type Store struct {
	db     *sql.DB
	newID  idgen.Generator
	logger *slog.Logger

	ch   chan *Run
	stop chan struct{}
	done chan struct{}
}

// Open opens (creating if needed) the run-history database at path and
// starts the background flush goroutine.
func Open(path string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	db, err := dbopen.Open(path, dbopen.WithMkdirAll(), dbopen.WithSchema(ddl))
	if err != nil {
		return nil, fmt.Errorf("joblog: %w", err)
	}
	s := &Store{
		db:     db,
		newID:  idgen.Prefixed("run_", idgen.Default),
		logger: logger,
		ch:     make(chan *Run, bufferSize),
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}
	go s.flushLoop()
	return s, nil
}

// Record inserts a run synchronously.
func (s *Store) Record(ctx context.Context, r *Run) error {
	s.fillDefaults(r)
	return s.insert(ctx, r)
}

// RecordAsync queues a run for batched persistence. If the buffer is full
// it falls back to a synchronous insert.
func (s *Store) RecordAsync(r *Run) {
	s.fillDefaults(r)
	select {
	case s.ch <- r:
	default:
		s.logger.Warn("joblog buffer full, sync fallback", "run_id", r.ID)
		if err := s.insert(context.Background(), r); err != nil {
			s.logger.Error("joblog sync fallback failed", "run_id", r.ID, "error", err)
		}
	}
}

// List returns the most recent runs, newest first. limit <= 0 means 50.
func (s *Store) List(ctx context.Context, limit int) ([]*Run, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `SELECT run_id, ticket_key, folder_name,
		month_folder, success, errors, files_uploaded, duration_ms, created_at
		FROM runs ORDER BY created_at DESC, run_id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("joblog: list: %w", err)
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		var (
			r         Run
			success   int
			errsJSON  string
			createdAt string
		)
		if err := rows.Scan(&r.ID, &r.TicketKey, &r.FolderName, &r.MonthFolder,
			&success, &errsJSON, &r.FilesUploaded, &r.DurationMs, &createdAt); err != nil {
			return nil, fmt.Errorf("joblog: scan run: %w", err)
		}
		r.Success = success == 1
		if errsJSON != "" {
			if err := json.Unmarshal([]byte(errsJSON), &r.Errors); err != nil {
				r.Errors = []string{errsJSON}
			}
		}
		t, err := time.Parse(time.RFC3339, createdAt)
		if err != nil {
			return nil, fmt.Errorf("joblog: parse created_at %q: %w", createdAt, err)
		}
		r.CreatedAt = t
		runs = append(runs, &r)
	}
	return runs, rows.Err()
}

// Close drains the buffer, stops the flush goroutine and closes the
// database.
func (s *Store) Close() error {
	close(s.stop)
	<-s.done
	return s.db.Close()
}

func (s *Store) fillDefaults(r *Run) {
	if r.ID == "" {
		r.ID = s.newID()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now().UTC()
	}
}

func (s *Store) insert(ctx context.Context, r *Run) error {
	_, err := dbopen.Exec(ctx, s.db, insertSQL, insertArgs(r)...)
	if err != nil {
		return fmt.Errorf("joblog: insert %s: %w", r.ID, err)
	}
	return nil
}

func insertArgs(r *Run) []any {
	return []any{
		r.ID, r.TicketKey, r.FolderName, r.MonthFolder,
		b2i(r.Success), encodeErrors(r.Errors), r.FilesUploaded, r.DurationMs,
		r.CreatedAt.UTC().Format(time.RFC3339),
	}
}

func (s *Store) flushLoop() {
	defer close(s.done)
	ticker := time.NewTicker(flushInterval)
	defer ticker.Stop()
	batch := make([]*Run, 0, batchSize)

	flush := func() {
		if len(batch) == 0 {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		err := dbopen.RunTx(ctx, s.db, func(tx *sql.Tx) error {
			stmt, err := tx.PrepareContext(ctx, insertSQL)
			if err != nil {
				return fmt.Errorf("prepare: %w", err)
			}
			defer stmt.Close()
			for _, r := range batch {
				if _, err := stmt.ExecContext(ctx, insertArgs(r)...); err != nil {
					return fmt.Errorf("insert %s: %w", r.ID, err)
				}
			}
			return nil
		})
		if err != nil {
			s.logger.Error("joblog flush failed", "count", len(batch), "error", err)
		}
		batch = batch[:0]
	}

	for {
		select {
		case <-s.stop:
			// drain the channel before the final flush
			for {
				select {
				case r := <-s.ch:
					batch = append(batch, r)
				default:
					flush()
					return
				}
			}
		case r := <-s.ch:
			batch = append(batch, r)
			if len(batch) >= batchSize {
				flush()
			}
		case <-ticker.C:
			flush()
		}
	}
}

func b2i(b bool) int {
	if b {
		return 1
	}
	return 0
}

func encodeErrors(errs []string) string {
	if len(errs) == 0 {
		return "[]"
	}
	b, err := json.Marshal(errs)
	if err != nil {
		return "[]"
	}
	return string(b)
}
