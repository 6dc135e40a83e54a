// Package memory is the in-process job store used by the CLI and by tests.
package memory

import (
	"context"
	"fmt"
	"sync"

	"xmltab/internal/jobstore"
)

func init() {
	jobstore.Register("memory", func(ctx context.Context, cfg jobstore.Config) (jobstore.Store, error) {
		return New(), nil
	})
}

// Store keeps immutable job snapshots in a map. Every write replaces the
// stored snapshot wholesale, so readers holding a previous snapshot are
// unaffected and Get never observes a half-written document.
type Store struct {
	mu   sync.RWMutex
	jobs map[string]*jobstore.Job
}

func New() *Store {
	return &Store{jobs: make(map[string]*jobstore.Job)}
}

func (s *Store) Create(ctx context.Context, job *jobstore.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.jobs[job.ID]; exists {
		return fmt.Errorf("jobstore: job %s already exists", job.ID)
	}
	s.jobs[job.ID] = job.Clone()
	return nil
}

func (s *Store) Update(ctx context.Context, job *jobstore.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.jobs[job.ID]; !exists {
		return jobstore.ErrNotFound
	}
	s.jobs[job.ID] = job.Clone()
	return nil
}

func (s *Store) Get(ctx context.Context, id string) (*jobstore.Job, error) {
	s.mu.RLock()
	j, ok := s.jobs[id]
	s.mu.RUnlock()
	if !ok {
		return nil, jobstore.ErrNotFound
	}
	return j.Clone(), nil
}

func (s *Store) Close() {}
