// Package postgres persists job documents in Postgres via pgx.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"xmltab/internal/jobstore"
)

func init() {
	jobstore.Register("postgres", New)
}

const schemaSQL = `
CREATE TABLE IF NOT EXISTS conversion_jobs (
	id         TEXT PRIMARY KEY,
	doc        JSONB NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
)`

type Store struct {
	pool *pgxpool.Pool
}

func New(ctx context.Context, cfg jobstore.Config) (jobstore.Store, error) {
	pool, err := pgxpool.New(ctx, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("postgres: pool: %w", err)
	}
	if _, err := pool.Exec(ctx, schemaSQL); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres: ensure schema: %w", err)
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() { s.pool.Close() }

func (s *Store) Create(ctx context.Context, job *jobstore.Job) error {
	doc, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("postgres: marshal job: %w", err)
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO conversion_jobs (id, doc, updated_at) VALUES ($1, $2, now())`,
		job.ID, doc)
	if err != nil {
		return fmt.Errorf("postgres: create job %s: %w", job.ID, err)
	}
	return nil
}

func (s *Store) Update(ctx context.Context, job *jobstore.Job) error {
	doc, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("postgres: marshal job: %w", err)
	}
	tag, err := s.pool.Exec(ctx,
		`UPDATE conversion_jobs SET doc = $2, updated_at = now() WHERE id = $1`,
		job.ID, doc)
	if err != nil {
		return fmt.Errorf("postgres: update job %s: %w", job.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return jobstore.ErrNotFound
	}
	return nil
}

func (s *Store) Get(ctx context.Context, id string) (*jobstore.Job, error) {
	var doc []byte
	err := s.pool.QueryRow(ctx,
		`SELECT doc FROM conversion_jobs WHERE id = $1`, id).Scan(&doc)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, jobstore.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: get job %s: %w", id, err)
	}
	var job jobstore.Job
	if err := json.Unmarshal(doc, &job); err != nil {
		return nil, fmt.Errorf("postgres: decode job %s: %w", id, err)
	}
	return &job, nil
}
