package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"xmltab/internal/jobstore"
)

// A file-backed database: database/sql pools connections, and each ":memory:"
// connection would see its own empty database.
func newStore(t *testing.T) jobstore.Store {
	t.Helper()
	dsn := filepath.Join(t.TempDir(), "jobs.db")
	s, err := New(context.Background(), jobstore.Config{Kind: "sqlite", DSN: dsn})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(s.Close)
	return s
}

func TestRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	job := &jobstore.Job{
		ID:     "j1",
		Files:  []jobstore.InputFile{{Path: "/in/a.xml", Name: "a.xml"}},
		Format: "xlsx",
		Stage:  jobstore.StageQueued,
		Total:  1,
		Aliases: map[string]string{
			"order.id": "Order ID",
		},
	}
	if err := s.Create(ctx, job); err != nil {
		t.Fatalf("Create: %v", err)
	}

	got, err := s.Get(ctx, "j1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Format != "xlsx" || got.Stage != jobstore.StageQueued {
		t.Fatalf("got %+v", got)
	}
	if got.Aliases["order.id"] != "Order ID" {
		t.Fatalf("aliases lost: %+v", got.Aliases)
	}

	job.Stage = jobstore.StageComplete
	job.Current = 1
	job.Done = true
	job.Artifact = &jobstore.Artifact{Path: "/out/j1.xlsx", Name: "a.xlsx"}
	if err := s.Update(ctx, job); err != nil {
		t.Fatalf("Update: %v", err)
	}

	got, err = s.Get(ctx, "j1")
	if err != nil {
		t.Fatalf("Get after update: %v", err)
	}
	if !got.Done || got.Artifact == nil || got.Artifact.Path != "/out/j1.xlsx" {
		t.Fatalf("got %+v", got)
	}
}

func TestCreateDuplicate(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	job := &jobstore.Job{ID: "j1", Format: "csv", Stage: jobstore.StageQueued}
	if err := s.Create(ctx, job); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := s.Create(ctx, job); err == nil {
		t.Fatal("want primary key violation for duplicate create")
	}
}

func TestNotFound(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	if _, err := s.Get(ctx, "missing"); !errors.Is(err, jobstore.ErrNotFound) {
		t.Fatalf("Get: %v", err)
	}
	job := &jobstore.Job{ID: "missing", Format: "csv"}
	if err := s.Update(ctx, job); !errors.Is(err, jobstore.ErrNotFound) {
		t.Fatalf("Update: %v", err)
	}
}
