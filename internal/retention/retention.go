// Package retention reclaims disk from finished jobs: artifacts older than
// the configured age are deleted on a cron schedule.
package retention

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/robfig/cron/v3"
)

type Logger interface {
	Printf(format string, v ...any)
}

// Sweeper deletes artifacts in Dir whose modification time is older than
// MaxAge. It never descends into subdirectories; the converter writes
// artifacts flat.
type Sweeper struct {
	Dir    string
	MaxAge time.Duration
	Logger Logger

	// now is a test seam; production uses time.Now.
	now func() time.Time
}

// Sweep removes expired artifacts once and returns how many were deleted.
func (s *Sweeper) Sweep(ctx context.Context) (int, error) {
	if s.MaxAge <= 0 {
		return 0, fmt.Errorf("retention: MaxAge must be positive")
	}

	entries, err := os.ReadDir(s.Dir)
	if err != nil {
		return 0, fmt.Errorf("retention: read %s: %w", s.Dir, err)
	}

	cutoff := s.clock()().Add(-s.MaxAge)
	removed := 0
	for _, e := range entries {
		if ctx.Err() != nil {
			return removed, ctx.Err()
		}
		if e.IsDir() {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		if info.ModTime().After(cutoff) {
			continue
		}
		path := filepath.Join(s.Dir, e.Name())
		if err := os.Remove(path); err != nil {
			s.logger().Printf("retention: remove %s: %v", path, err)
			continue
		}
		removed++
	}
	if removed > 0 {
		s.logger().Printf("retention: removed %d expired artifacts from %s", removed, s.Dir)
	}
	return removed, nil
}

// Schedule runs Sweep on the given cron spec until ctx is cancelled. The
// returned cron is already started; it stops itself when ctx ends.
func (s *Sweeper) Schedule(ctx context.Context, spec string) (*cron.Cron, error) {
	c := cron.New()
	_, err := c.AddFunc(spec, func() {
		if _, err := s.Sweep(ctx); err != nil {
			s.logger().Printf("retention: sweep: %v", err)
		}
	})
	if err != nil {
		return nil, fmt.Errorf("retention: schedule %q: %w", spec, err)
	}
	c.Start()
	go func() {
		<-ctx.Done()
		c.Stop()
	}()
	return c, nil
}

func (s *Sweeper) clock() func() time.Time {
	if s.now != nil {
		return s.now
	}
	return time.Now
}

func (s *Sweeper) logger() Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return stdLogger{}
}

type stdLogger struct{}

func (stdLogger) Printf(format string, v ...any) { log.Printf(format, v...) }
