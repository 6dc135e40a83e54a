// Package watch turns a drop directory into a job source: every XML or HTML
// file that finishes landing in the watched directory is enqueued as a
// single-file conversion job.
package watch

import (
	"context"
	"fmt"
	"log"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"xmltab/internal/convert"
	"xmltab/internal/jobstore"
)

// DefaultSettle is how long a file must go without writes before it is
// considered fully uploaded.
const DefaultSettle = 500 * time.Millisecond

type Logger interface {
	Printf(format string, v ...any)
}

// Watcher converts files dropped into Dir using Runner.
type Watcher struct {
	Dir    string
	Format string
	Runner *convert.Runner
	Logger Logger

	// Settle debounces write bursts; zero means DefaultSettle.
	Settle time.Duration

	mu      sync.Mutex
	pending map[string]*time.Timer
}

// Run watches Dir until ctx is cancelled. Files are enqueued only after their
// write events have settled, so half-copied documents are not parsed.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("watch: %w", err)
	}
	defer fw.Close()

	if err := fw.Add(w.Dir); err != nil {
		return fmt.Errorf("watch %s: %w", w.Dir, err)
	}
	w.logger().Printf("watching %s (format=%s)", w.Dir, w.Format)

	for {
		select {
		case <-ctx.Done():
			w.cancelPending()
			return ctx.Err()

		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) {
				continue
			}
			if !convertible(ev.Name) {
				continue
			}
			w.schedule(ctx, ev.Name)

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger().Printf("watch %s: %v", w.Dir, err)
		}
	}
}

// schedule (re)arms the settle timer for path; the job is enqueued when the
// timer fires without another write resetting it.
func (w *Watcher) schedule(ctx context.Context, path string) {
	settle := w.Settle
	if settle <= 0 {
		settle = DefaultSettle
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.pending == nil {
		w.pending = make(map[string]*time.Timer)
	}
	if t, ok := w.pending[path]; ok {
		t.Reset(settle)
		return
	}
	w.pending[path] = time.AfterFunc(settle, func() {
		w.mu.Lock()
		delete(w.pending, path)
		w.mu.Unlock()
		w.enqueue(ctx, path)
	})
}

func (w *Watcher) enqueue(ctx context.Context, path string) {
	job, err := w.Runner.Enqueue(ctx, convert.Request{
		Files:  []jobstore.InputFile{{Path: path, Name: filepath.Base(path)}},
		Format: w.Format,
	})
	if err != nil {
		w.logger().Printf("enqueue %s: %v", path, err)
		return
	}
	w.logger().Printf("job %s: enqueued %s", job.ID, path)
}

func (w *Watcher) cancelPending() {
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, t := range w.pending {
		t.Stop()
	}
	w.pending = nil
}

func (w *Watcher) logger() Logger {
	if w.Logger != nil {
		return w.Logger
	}
	return stdLogger{}
}

type stdLogger struct{}

func (stdLogger) Printf(format string, v ...any) { log.Printf(format, v...) }

func convertible(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xml", ".html", ".htm":
		return true
	}
	return false
}
