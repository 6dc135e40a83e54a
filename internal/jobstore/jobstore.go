// Package jobstore holds conversion job state and the pluggable stores that
// persist it.
//
// A job's document is always written as a whole-record replacement: the
// executing worker is the sole writer, progress observers read snapshots, and
// no reader can ever see a partially updated document. Backends register
// themselves under a kind ("memory", "sqlite", "postgres", "mssql") from an
// init function; importing xmltab/internal/jobstore/all links in every
// backend.
package jobstore

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// Stage values mirror the job lifecycle. Queued and the per-file converting /
// converted pair are transient; complete and error are terminal.
type Stage string

const (
	StageQueued     Stage = "queued"
	StageConverting Stage = "converting"
	StageConverted  Stage = "converted"
	StageComplete   Stage = "complete"
	StageError      Stage = "error"
)

// InputFile references one uploaded document: where it lives on disk and the
// display name progress and artifacts use.
type InputFile struct {
	Path string `json:"path"`
	Name string `json:"name"`
}

// Artifact is the produced output: the stored file and the friendly download
// name handed to the serving collaborator.
type Artifact struct {
	Path string `json:"path"`
	Name string `json:"name"`
}

// Job is the full job document.
//
// Current counts completed files and is non-decreasing across updates; Total
// is fixed at creation. Done marks a terminal state: either Artifact is set
// (success) or Error is non-empty (failure). Once Done, the document never
// changes again.
type Job struct {
	ID      string            `json:"id"`
	Files   []InputFile       `json:"files"`
	Columns []string          `json:"columns,omitempty"`
	Aliases map[string]string `json:"aliases,omitempty"`
	Format  string            `json:"format"`

	Stage   Stage  `json:"stage"`
	Current int    `json:"current"`
	Total   int    `json:"total"`
	File    string `json:"file,omitempty"`

	Done     bool      `json:"done"`
	Error    string    `json:"error,omitempty"`
	Artifact *Artifact `json:"artifact,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Percent returns floor(Current/Total*100), or 0 for an empty job.
func (j *Job) Percent() int {
	if j.Total == 0 {
		return 0
	}
	return j.Current * 100 / j.Total
}

// Clone returns a deep copy, so stored documents and observer snapshots never
// share mutable state with the worker's copy.
func (j *Job) Clone() *Job {
	out := *j
	out.Files = append([]InputFile(nil), j.Files...)
	out.Columns = append([]string(nil), j.Columns...)
	if j.Aliases != nil {
		out.Aliases = make(map[string]string, len(j.Aliases))
		for k, v := range j.Aliases {
			out.Aliases[k] = v
		}
	}
	if j.Artifact != nil {
		a := *j.Artifact
		out.Artifact = &a
	}
	return &out
}

// ErrNotFound is returned by Get for an unknown job id, and by Update when
// the job document was never created.
var ErrNotFound = errors.New("jobstore: job not found")

// Store persists job documents.
//
// Exactly one worker writes a given job id; Create and Update must store the
// document atomically so concurrent readers only ever observe whole
// revisions. Implementations must not retain the *Job passed in.
type Store interface {
	Create(ctx context.Context, job *Job) error
	Update(ctx context.Context, job *Job) error
	Get(ctx context.Context, id string) (*Job, error)

	// Close releases backend resources. Call once at shutdown.
	Close()
}

// Config selects and configures a backend.
type Config struct {
	Kind string
	DSN  string
}

type storeFactory func(ctx context.Context, cfg Config) (Store, error)

var (
	factoryMu sync.RWMutex
	factories = map[string]storeFactory{}
)

// Register adds a backend under kind. Called from backend init functions;
// duplicate or empty registrations are programming errors and panic.
func Register(kind string, f storeFactory) {
	factoryMu.Lock()
	defer factoryMu.Unlock()

	if kind == "" {
		panic("jobstore: Register called with empty kind")
	}
	if f == nil {
		panic("jobstore: Register called with nil factory")
	}
	if _, exists := factories[kind]; exists {
		panic(fmt.Sprintf("jobstore: factory already registered for kind=%q", kind))
	}
	factories[kind] = f
}

// New constructs a Store using the registered factory for cfg.Kind.
func New(ctx context.Context, cfg Config) (Store, error) {
	factoryMu.RLock()
	f, ok := factories[cfg.Kind]
	factoryMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("jobstore: unsupported kind %q", cfg.Kind)
	}
	return f(ctx, cfg)
}
