// Package sqlite persists job documents in a SQLite database.
//
// Each job is one row holding the JSON document. SQLite writes are
// transactional per statement, so a whole-document upsert gives readers the
// replacement semantics the jobstore contract requires.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"xmltab/internal/jobstore"
)

func init() {
	jobstore.Register("sqlite", New)
}

const schemaSQL = `
CREATE TABLE IF NOT EXISTS conversion_jobs (
	id         TEXT PRIMARY KEY,
	doc        TEXT NOT NULL,
	updated_at TEXT NOT NULL
)`

type Store struct {
	db *sql.DB
}

func New(ctx context.Context, cfg jobstore.Config) (jobstore.Store, error) {
	db, err := sql.Open("sqlite", cfg.DSN)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	if _, err := db.ExecContext(ctx, schemaSQL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite: ensure schema: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() { _ = s.db.Close() }

func (s *Store) Create(ctx context.Context, job *jobstore.Job) error {
	doc, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("sqlite: marshal job: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO conversion_jobs (id, doc, updated_at) VALUES (?, ?, ?)`,
		job.ID, string(doc), now())
	if err != nil {
		return fmt.Errorf("sqlite: create job %s: %w", job.ID, err)
	}
	return nil
}

func (s *Store) Update(ctx context.Context, job *jobstore.Job) error {
	doc, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("sqlite: marshal job: %w", err)
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE conversion_jobs SET doc = ?, updated_at = ? WHERE id = ?`,
		string(doc), now(), job.ID)
	if err != nil {
		return fmt.Errorf("sqlite: update job %s: %w", job.ID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return jobstore.ErrNotFound
	}
	return nil
}

func (s *Store) Get(ctx context.Context, id string) (*jobstore.Job, error) {
	var doc string
	err := s.db.QueryRowContext(ctx,
		`SELECT doc FROM conversion_jobs WHERE id = ?`, id).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, jobstore.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: get job %s: %w", id, err)
	}
	var job jobstore.Job
	if err := json.Unmarshal([]byte(doc), &job); err != nil {
		return nil, fmt.Errorf("sqlite: decode job %s: %w", id, err)
	}
	return &job, nil
}

// SQLite has no TIMESTAMPTZ affinity; store timestamps as RFC3339Nano text
// for reliable round-trips.
func now() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}
