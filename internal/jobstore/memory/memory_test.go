package memory

import (
	"context"
	"errors"
	"testing"

	"xmltab/internal/jobstore"
)

func newJob(id string) *jobstore.Job {
	return &jobstore.Job{
		ID:     id,
		Files:  []jobstore.InputFile{{Path: "/in/a.xml", Name: "a.xml"}},
		Format: "csv",
		Stage:  jobstore.StageQueued,
		Total:  1,
	}
}

func TestCreateGetUpdate(t *testing.T) {
	ctx := context.Background()
	s := New()
	defer s.Close()

	job := newJob("j1")
	if err := s.Create(ctx, job); err != nil {
		t.Fatalf("Create: %v", err)
	}

	got, err := s.Get(ctx, "j1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Stage != jobstore.StageQueued || got.Total != 1 {
		t.Fatalf("got %+v", got)
	}

	job.Stage = jobstore.StageComplete
	job.Current = 1
	job.Done = true
	job.Artifact = &jobstore.Artifact{Path: "/out/j1.csv", Name: "a.csv"}
	if err := s.Update(ctx, job); err != nil {
		t.Fatalf("Update: %v", err)
	}

	got, err = s.Get(ctx, "j1")
	if err != nil {
		t.Fatalf("Get after update: %v", err)
	}
	if !got.Done || got.Artifact == nil || got.Artifact.Name != "a.csv" {
		t.Fatalf("got %+v", got)
	}
	if got.Percent() != 100 {
		t.Fatalf("Percent = %d", got.Percent())
	}
}

func TestCreateDuplicate(t *testing.T) {
	ctx := context.Background()
	s := New()
	if err := s.Create(ctx, newJob("j1")); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := s.Create(ctx, newJob("j1")); err == nil {
		t.Fatal("want error for duplicate create")
	}
}

func TestNotFound(t *testing.T) {
	ctx := context.Background()
	s := New()

	if _, err := s.Get(ctx, "missing"); !errors.Is(err, jobstore.ErrNotFound) {
		t.Fatalf("Get: %v", err)
	}
	if err := s.Update(ctx, newJob("missing")); !errors.Is(err, jobstore.ErrNotFound) {
		t.Fatalf("Update: %v", err)
	}
}

func TestSnapshotIsolation(t *testing.T) {
	ctx := context.Background()
	s := New()

	job := newJob("j1")
	if err := s.Create(ctx, job); err != nil {
		t.Fatalf("Create: %v", err)
	}

	// Mutating the caller's copy after Create must not affect the store.
	job.Stage = jobstore.StageError
	job.Files[0].Name = "mutated"

	got, err := s.Get(ctx, "j1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Stage != jobstore.StageQueued || got.Files[0].Name != "a.xml" {
		t.Fatalf("stored snapshot mutated: %+v", got)
	}

	// Mutating a returned snapshot must not affect later reads.
	got.Current = 99
	again, err := s.Get(ctx, "j1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if again.Current != 0 {
		t.Fatalf("snapshot leaked back into store: %+v", again)
	}
}

func TestRegisteredKind(t *testing.T) {
	s, err := jobstore.New(context.Background(), jobstore.Config{Kind: "memory"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer s.Close()
	if _, ok := s.(*Store); !ok {
		t.Fatalf("factory returned %T", s)
	}
}
