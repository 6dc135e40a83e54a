// Package mssql persists job documents in SQL Server.
package mssql

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	_ "github.com/microsoft/go-mssqldb"

	"xmltab/internal/jobstore"
)

func init() {
	jobstore.Register("mssql", New)
}

const schemaSQL = `
IF OBJECT_ID('conversion_jobs', 'U') IS NULL
CREATE TABLE conversion_jobs (
	id         NVARCHAR(64) NOT NULL PRIMARY KEY,
	doc        NVARCHAR(MAX) NOT NULL,
	updated_at DATETIMEOFFSET NOT NULL DEFAULT SYSDATETIMEOFFSET()
)`

type Store struct {
	db *sql.DB
}

func New(ctx context.Context, cfg jobstore.Config) (jobstore.Store, error) {
	db, err := sql.Open("sqlserver", cfg.DSN)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	if _, err := db.ExecContext(ctx, schemaSQL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("mssql: ensure schema: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() { _ = s.db.Close() }

func (s *Store) Create(ctx context.Context, job *jobstore.Job) error {
	doc, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("mssql: marshal job: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO conversion_jobs (id, doc) VALUES (@p1, @p2)`,
		job.ID, string(doc))
	if err != nil {
		return fmt.Errorf("mssql: create job %s: %w", job.ID, err)
	}
	return nil
}

func (s *Store) Update(ctx context.Context, job *jobstore.Job) error {
	doc, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("mssql: marshal job: %w", err)
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE conversion_jobs SET doc = @p2, updated_at = SYSDATETIMEOFFSET() WHERE id = @p1`,
		job.ID, string(doc))
	if err != nil {
		return fmt.Errorf("mssql: update job %s: %w", job.ID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return jobstore.ErrNotFound
	}
	return nil
}

func (s *Store) Get(ctx context.Context, id string) (*jobstore.Job, error) {
	var doc string
	err := s.db.QueryRowContext(ctx,
		`SELECT doc FROM conversion_jobs WHERE id = @p1`, id).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, jobstore.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("mssql: get job %s: %w", id, err)
	}
	var job jobstore.Job
	if err := json.Unmarshal([]byte(doc), &job); err != nil {
		return nil, fmt.Errorf("mssql: decode job %s: %w", id, err)
	}
	return &job, nil
}
