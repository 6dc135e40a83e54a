package retention

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

type discardLogger struct{}

func (discardLogger) Printf(string, ...any) {}

func touch(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestSweepRemovesExpired(t *testing.T) {
	dir := t.TempDir()
	old := touch(t, dir, "old.csv")
	fresh := touch(t, dir, "fresh.csv")

	// Files were just written; a clock 48h ahead makes them expired relative
	// to a 24h MaxAge, then keeping "fresh" young needs its mtime bumped.
	future := time.Now().Add(48 * time.Hour)
	if err := os.Chtimes(fresh, future, future); err != nil {
		t.Fatalf("chtimes: %v", err)
	}

	s := &Sweeper{
		Dir:    dir,
		MaxAge: 24 * time.Hour,
		Logger: discardLogger{},
		now:    func() time.Time { return future },
	}
	removed, err := s.Sweep(context.Background())
	if err != nil {
		t.Fatalf("Sweep: %v", err)
	}
	if removed != 1 {
		t.Fatalf("removed = %d, want 1", removed)
	}
	if _, err := os.Stat(old); !os.IsNotExist(err) {
		t.Fatalf("expired artifact still present: %v", err)
	}
	if _, err := os.Stat(fresh); err != nil {
		t.Fatalf("fresh artifact removed: %v", err)
	}
}

func TestSweepSkipsDirectories(t *testing.T) {
	dir := t.TempDir()
	if err := os.Mkdir(filepath.Join(dir, "sub"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	s := &Sweeper{
		Dir:    dir,
		MaxAge: time.Hour,
		Logger: discardLogger{},
		now:    func() time.Time { return time.Now().Add(48 * time.Hour) },
	}
	removed, err := s.Sweep(context.Background())
	if err != nil {
		t.Fatalf("Sweep: %v", err)
	}
	if removed != 0 {
		t.Fatalf("removed = %d", removed)
	}
	if _, err := os.Stat(filepath.Join(dir, "sub")); err != nil {
		t.Fatalf("subdirectory removed: %v", err)
	}
}

func TestSweepRequiresPositiveMaxAge(t *testing.T) {
	s := &Sweeper{Dir: t.TempDir(), Logger: discardLogger{}}
	if _, err := s.Sweep(context.Background()); err == nil {
		t.Fatal("want error for zero MaxAge")
	}
}

func TestScheduleRejectsBadSpec(t *testing.T) {
	s := &Sweeper{Dir: t.TempDir(), MaxAge: time.Hour, Logger: discardLogger{}}
	if _, err := s.Schedule(context.Background(), "not a cron spec"); err == nil {
		t.Fatal("want error for invalid spec")
	}
}

func TestScheduleRegistersEntry(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s := &Sweeper{Dir: t.TempDir(), MaxAge: time.Hour, Logger: discardLogger{}}

	c, err := s.Schedule(ctx, "@hourly")
	if err != nil {
		t.Fatalf("Schedule: %v", err)
	}
	if len(c.Entries()) != 1 {
		t.Fatalf("entries = %d, want 1", len(c.Entries()))
	}
	cancel()
	<-c.Stop().Done()
}
