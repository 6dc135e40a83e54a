// Package convert orchestrates conversion jobs: it sequences files through
// the parser and writer stacks, publishes monotonic progress, bundles
// multi-file output, and owns the failure policy.
package convert

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"xmltab/internal/jobstore"
	"xmltab/internal/metrics"
	"xmltab/internal/parser/htmltable"
	"xmltab/internal/parser/xml"
	"xmltab/internal/record"
	"xmltab/internal/tabular"
	"xmltab/internal/writer"
)

// Logger is the minimal logging interface used by the runner. *log.Logger
// satisfies this interface.
type Logger interface {
	Printf(format string, v ...any)
}

// PathMode selects between the whole-document and streaming extraction paths.
type PathMode int

const (
	// PathAuto streams inputs at or above the stream threshold and buffers
	// smaller ones.
	PathAuto PathMode = iota
	// PathStream always uses the two-pass streaming path.
	PathStream
	// PathInMemory always builds the full table in memory.
	PathInMemory
)

// DefaultStreamThreshold is the PathAuto cutover point in bytes.
const DefaultStreamThreshold = 8 << 20

// Request describes one conversion job before it is accepted.
type Request struct {
	Files   []jobstore.InputFile
	Columns []string          // optional ordered projection, flattener key format
	Aliases map[string]string // optional header renames
	Format  string            // csv, xlsx or parquet
}

// Runner executes conversion jobs.
//
// Zero-value fields get defaults: Metrics falls back to the no-op backend,
// Logger to the standard logger, StreamThreshold to DefaultStreamThreshold.
// Store and OutputDir are required.
type Runner struct {
	Store   jobstore.Store
	Metrics metrics.Backend
	Logger  Logger

	// OutputDir receives artifacts, named by job id.
	OutputDir string

	// MaxInputBytes rejects any larger input with a ResourceLimit failure.
	// Zero disables the ceiling.
	MaxInputBytes int64

	// StreamThreshold is the PathAuto cutover size in bytes.
	StreamThreshold int64

	// BatchSize is passed to the columnar writer.
	BatchSize int

	Path PathMode
}

// Enqueue validates the request, registers a queued job and starts its worker
// goroutine. The returned snapshot is the job as created; observers follow it
// via the store.
//
// Each job id is minted here and handed to exactly one worker, which is the
// job's sole writer until it reaches a terminal state. The worker runs to
// completion or failure regardless of ctx: cancellation of the accepting
// request must not abandon a half-written artifact.
func (r *Runner) Enqueue(ctx context.Context, req Request) (*jobstore.Job, error) {
	job, err := r.create(ctx, req)
	if err != nil {
		return nil, err
	}
	go r.run(context.Background(), job.Clone())
	return job, nil
}

// Convert runs a job synchronously and returns its terminal state. Used by
// the CLI; the error mirrors the job's failure message.
func (r *Runner) Convert(ctx context.Context, req Request) (*jobstore.Job, error) {
	job, err := r.create(ctx, req)
	if err != nil {
		return nil, err
	}
	r.run(ctx, job)
	if job.Error != "" {
		return job, errors.New(job.Error)
	}
	return job, nil
}

// Validate rejects bad requests before any file is touched.
func (r *Runner) Validate(req Request) error {
	if len(req.Files) == 0 {
		return fmt.Errorf("convert: no input files")
	}
	if !writer.Supported(req.Format) {
		return fmt.Errorf("%w: %q", ErrUnsupportedFormat, req.Format)
	}
	return nil
}

func (r *Runner) create(ctx context.Context, req Request) (*jobstore.Job, error) {
	if err := r.Validate(req); err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	job := &jobstore.Job{
		ID:        uuid.NewString(),
		Files:     req.Files,
		Columns:   req.Columns,
		Aliases:   req.Aliases,
		Format:    req.Format,
		Stage:     jobstore.StageQueued,
		Total:     len(req.Files),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := r.Store.Create(ctx, job); err != nil {
		return nil, fmt.Errorf("convert: register job: %w", err)
	}
	return job, nil
}

// run drives one job to a terminal state and records metrics for it.
func (r *Runner) run(ctx context.Context, job *jobstore.Job) {
	start := time.Now()

	err := r.execute(ctx, job)

	status := "success"
	if err != nil {
		status = "failure"
		r.fail(ctx, job, err)
	}
	r.metrics().IncCounter(metrics.MetricJobsTotal, 1, metrics.Labels{"status": status})
	r.metrics().ObserveHistogram(metrics.MetricJobDurationSeconds,
		time.Since(start).Seconds(), metrics.Labels{"status": status})
}

// execute converts every file and publishes the terminal success state. On
// error it removes whatever output exists: a partial bundle is never exposed.
func (r *Runner) execute(ctx context.Context, job *jobstore.Job) (ret error) {
	if err := os.MkdirAll(r.OutputDir, 0o755); err != nil {
		return fmt.Errorf("%w: %v", ErrWriterFailure, err)
	}

	ext := writer.Ext(job.Format)
	multi := len(job.Files) > 1

	var (
		arch     *bundle
		outFile  *os.File
		outPath  string
		friendly string
	)
	if multi {
		outPath = filepath.Join(r.OutputDir, job.ID+".zip")
		friendly = "converted_files.zip"
		var err error
		if arch, err = createBundle(outPath); err != nil {
			return fmt.Errorf("%w: %v", ErrWriterFailure, err)
		}
	} else {
		outPath = filepath.Join(r.OutputDir, job.ID+"."+ext)
		friendly = artifactName(job.Files[0].Name, ext)
		var err error
		if outFile, err = os.Create(outPath); err != nil {
			return fmt.Errorf("%w: %v", ErrWriterFailure, err)
		}
	}
	defer func() {
		if ret == nil {
			return
		}
		if arch != nil {
			_ = arch.Close()
		}
		if outFile != nil {
			_ = outFile.Close()
		}
		_ = os.Remove(outPath)
	}()

	for i, f := range job.Files {
		r.publish(ctx, job, func(j *jobstore.Job) {
			j.Stage = jobstore.StageConverting
			j.Current = i
			j.File = f.Name
		})

		var sink io.Writer
		if multi {
			w, err := arch.Entry(artifactName(f.Name, ext))
			if err != nil {
				return fmt.Errorf("%w: %v", ErrWriterFailure, err)
			}
			sink = w
		} else {
			sink = outFile
		}

		rows, err := r.convertFile(ctx, f, job, sink)
		if err != nil {
			return fmt.Errorf("%s: %w", f.Name, err)
		}
		r.logger().Printf("job %s: converted %s (%d rows)", job.ID, f.Name, rows)
		r.metrics().IncCounter(metrics.MetricFilesTotal, 1, metrics.Labels{"format": job.Format})
		r.metrics().IncCounter(metrics.MetricRowsTotal, float64(rows), nil)

		r.publish(ctx, job, func(j *jobstore.Job) {
			j.Stage = jobstore.StageConverted
			j.Current = i + 1
		})
	}

	if multi {
		if err := arch.Close(); err != nil {
			arch = nil
			return fmt.Errorf("%w: %v", ErrWriterFailure, err)
		}
		arch = nil
	} else {
		if err := outFile.Close(); err != nil {
			outFile = nil
			return fmt.Errorf("%w: %v", ErrWriterFailure, err)
		}
		outFile = nil
	}

	r.publish(ctx, job, func(j *jobstore.Job) {
		j.Stage = jobstore.StageComplete
		j.Done = true
		j.File = ""
		j.Artifact = &jobstore.Artifact{Path: outPath, Name: friendly}
	})
	return nil
}

// convertFile converts one input into sink and returns the number of rows
// written. Errors wrap exactly one taxonomy sentinel.
func (r *Runner) convertFile(ctx context.Context, f jobstore.InputFile, job *jobstore.Job, sink io.Writer) (int, error) {
	st, err := os.Stat(f.Path)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrMissingSource, err)
	}
	if r.MaxInputBytes > 0 && st.Size() > r.MaxInputBytes {
		return 0, fmt.Errorf("%w: %d bytes (limit %d)", ErrResourceLimit, st.Size(), r.MaxInputBytes)
	}

	opts := writer.Options{
		Columns:   job.Columns,
		Aliases:   job.Aliases,
		BatchSize: r.BatchSize,
	}

	switch {
	case isHTML(f.Name):
		return r.convertRecords(f, job.Format, opts, sink)
	case r.useStreaming(st.Size()):
		return r.convertStreaming(ctx, f, job.Format, opts, sink)
	default:
		return r.convertWholeDocument(f, job.Format, opts, sink)
	}
}

// convertWholeDocument is the in-memory path: full parse, detector, assembler
// with the full-union column schema.
func (r *Runner) convertWholeDocument(f jobstore.InputFile, format string, opts writer.Options, sink io.Writer) (int, error) {
	src, err := os.Open(f.Path)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrMissingSource, err)
	}
	defer src.Close()

	root, err := xml.Parse(src)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrMalformedInput, err)
	}

	rowEls := xml.DetectRows(root)
	recs := make([]*record.Record, 0, len(rowEls))
	for _, el := range rowEls {
		recs = append(recs, xml.Flatten(xml.Normalize(el)))
	}
	table := tabular.Assemble(recs)
	if len(opts.Columns) == 0 {
		opts.Columns = table.Columns
	}

	return r.writeAll(table.Rows, format, opts, sink)
}

// convertStreaming is the two-pass path: discovery over a first read of the
// source, then bounded-memory extraction over a second.
func (r *Runner) convertStreaming(ctx context.Context, f jobstore.InputFile, format string, opts writer.Options, sink io.Writer) (int, error) {
	pass1, err := os.Open(f.Path)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrMissingSource, err)
	}
	target, err := xml.DiscoverRowTag(pass1)
	pass1.Close()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrMalformedInput, err)
	}

	pass2, err := os.Open(f.Path)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrMissingSource, err)
	}
	defer pass2.Close()

	w, err := writer.New(format, sink, opts)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrUnsupportedFormat, err)
	}

	streamCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	out := make(chan *record.Record, 64)
	errCh := make(chan error, 1)
	go func() {
		defer close(out)
		errCh <- xml.StreamRows(streamCtx, pass2, target, out, nil)
	}()

	rows := 0
	var werr error
	for rec := range out {
		if werr != nil {
			continue // drain so the producer can exit
		}
		if err := w.WriteRow(rec); err != nil {
			werr = err
			cancel()
			continue
		}
		rows++
	}
	serr := <-errCh

	// The writer must be released on the failure branches too: the xlsx
	// backend spills sheet state to temp files that only Close reclaims. The
	// partial artifact itself is removed by execute's cleanup.
	if werr != nil {
		_ = w.Close()
		return rows, fmt.Errorf("%w: %v", ErrWriterFailure, werr)
	}
	if serr != nil && !errors.Is(serr, context.Canceled) {
		_ = w.Close()
		return rows, fmt.Errorf("%w: %v", ErrMalformedInput, serr)
	}
	if err := w.Close(); err != nil {
		return rows, fmt.Errorf("%w: %v", ErrWriterFailure, err)
	}
	return rows, nil
}

// convertRecords handles the HTML table path: records come pre-flattened.
func (r *Runner) convertRecords(f jobstore.InputFile, format string, opts writer.Options, sink io.Writer) (int, error) {
	src, err := os.Open(f.Path)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrMissingSource, err)
	}
	defer src.Close()

	recs, err := htmltable.Records(src)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrMalformedInput, err)
	}
	// The table's own column order is the schema; pin it so the writers do
	// not re-sort the header.
	if len(opts.Columns) == 0 && len(recs) > 0 {
		opts.Columns = append([]string(nil), recs[0].Keys()...)
	}
	return r.writeAll(recs, format, opts, sink)
}

func (r *Runner) writeAll(recs []*record.Record, format string, opts writer.Options, sink io.Writer) (int, error) {
	w, err := writer.New(format, sink, opts)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrUnsupportedFormat, err)
	}
	rows := 0
	for _, rec := range recs {
		if err := w.WriteRow(rec); err != nil {
			_ = w.Close()
			return rows, fmt.Errorf("%w: %v", ErrWriterFailure, err)
		}
		rows++
	}
	if err := w.Close(); err != nil {
		return rows, fmt.Errorf("%w: %v", ErrWriterFailure, err)
	}
	return rows, nil
}

// publish applies mutate to the worker's copy and replaces the stored
// document wholesale. A store outage must not kill the conversion, so update
// failures are logged and processing continues.
func (r *Runner) publish(ctx context.Context, job *jobstore.Job, mutate func(*jobstore.Job)) {
	mutate(job)
	job.UpdatedAt = time.Now().UTC()
	if err := r.Store.Update(ctx, job); err != nil {
		r.logger().Printf("job %s: publish state: %v", job.ID, err)
	}
}

// fail records the terminal failure state.
func (r *Runner) fail(ctx context.Context, job *jobstore.Job, err error) {
	r.logger().Printf("job %s: failed: %v", job.ID, err)
	r.publish(ctx, job, func(j *jobstore.Job) {
		j.Stage = jobstore.StageError
		j.Done = true
		j.Error = err.Error()
	})
}

func (r *Runner) useStreaming(size int64) bool {
	switch r.Path {
	case PathStream:
		return true
	case PathInMemory:
		return false
	}
	threshold := r.StreamThreshold
	if threshold <= 0 {
		threshold = DefaultStreamThreshold
	}
	return size >= threshold
}

func (r *Runner) metrics() metrics.Backend {
	if r.Metrics != nil {
		return r.Metrics
	}
	return metrics.Nop()
}

type stdLogger struct{}

func (stdLogger) Printf(format string, v ...any) { log.Printf(format, v...) }

func (r *Runner) logger() Logger {
	if r.Logger != nil {
		return r.Logger
	}
	return stdLogger{}
}

// artifactName is the friendly per-input output name: <base>.<ext>.
func artifactName(input, ext string) string {
	base := filepath.Base(input)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	return base + "." + ext
}

func isHTML(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".html", ".htm":
		return true
	}
	return false
}
