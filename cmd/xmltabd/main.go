// Command xmltabd is the conversion daemon: it watches a drop directory,
// enqueues a conversion job per landed file, persists job state in the
// configured store, and sweeps expired artifacts on a schedule.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"xmltab/internal/config"
	"xmltab/internal/convert"
	"xmltab/internal/jobstore"
	"xmltab/internal/metrics"
	"xmltab/internal/metrics/datadog"
	"xmltab/internal/retention"
	"xmltab/internal/watch"

	// register all job store backends; config selects which one runs.
	_ "xmltab/internal/jobstore/all"
)

func main() {
	cfgPath := flag.String("config", "configs/xmltabd.json", "config file path (json or yaml)")
	validate := flag.Bool("validate", false, "validate the configuration and exit")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fatalf("%v", err)
	}

	issues := config.Validate(cfg)
	hasError := false
	for _, iss := range issues {
		fmt.Fprintf(os.Stderr, "%s: %s: %s\n", iss.Severity, iss.Path, iss.Message)
		if iss.Severity == config.SeverityError {
			hasError = true
		}
	}
	if hasError {
		fatalf("configuration is invalid: %v", *cfgPath)
	}
	if *validate {
		log.Printf("configuration is valid: %v", *cfgPath)
		return
	}
	if cfg.Watch.Dir == "" {
		fatalf("watch.dir is required for the daemon")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := jobstore.New(ctx, jobstore.Config{Kind: cfg.JobStore.Kind, DSN: cfg.JobStore.DSN})
	if err != nil {
		fatalf("job store: %v", err)
	}
	defer store.Close()

	var backend metrics.Backend = metrics.Nop()
	if cfg.Metrics.Backend == "datadog" {
		dd, err := datadog.NewBackend(ctx, datadog.Options{
			Service:    cfg.Metrics.Service,
			Tags:       cfg.Metrics.Tags,
			FlushEvery: time.Duration(cfg.Metrics.FlushSeconds) * time.Second,
		})
		if err != nil {
			fatalf("datadog backend: %v", err)
		}
		defer func() {
			if err := dd.Close(); err != nil {
				log.Printf("datadog close: %v", err)
			}
		}()
		backend = dd
	}

	runner := &convert.Runner{
		Store:           store,
		Metrics:         backend,
		OutputDir:       cfg.OutputDir,
		MaxInputBytes:   cfg.MaxInputBytes,
		StreamThreshold: cfg.StreamThresholdBytes,
		BatchSize:       cfg.BatchSize,
	}

	if cfg.Retention.Schedule != "" {
		sweeper := &retention.Sweeper{
			Dir:    cfg.OutputDir,
			MaxAge: time.Duration(cfg.Retention.MaxAgeH) * time.Hour,
		}
		if _, err := sweeper.Schedule(ctx, cfg.Retention.Schedule); err != nil {
			fatalf("%v", err)
		}
	}

	w := &watch.Watcher{
		Dir:    cfg.Watch.Dir,
		Format: cfg.Format,
		Runner: runner,
	}
	if err := w.Run(ctx); err != nil && ctx.Err() == nil {
		fatalf("%v", err)
	}
	log.Printf("shutting down")
}

func fatalf(format string, v ...any) {
	log.Printf(format, v...)
	os.Exit(1)
}
