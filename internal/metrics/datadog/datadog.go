// Package datadog implements a Datadog backend for the internal/metrics
// package.
//
// Conversion jobs can be short-lived; submitting only at process exit would
// collapse a batch of jobs into a single spike. The backend therefore buffers
// observations in memory, flushes them on a ticker (default once per minute),
// and flushes one final time on Close.
//
// Concurrency model:
//   - job goroutines call IncCounter/ObserveHistogram at any time
//   - Flush snapshots and resets buffers under a mutex, then submits
//     out-of-lock
//   - the flush loop calls Flush periodically; Close stops the loop
package datadog

import (
	"context"
	"net/http"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	dd "github.com/DataDog/datadog-api-client-go/v2/api/datadog"
	"github.com/DataDog/datadog-api-client-go/v2/api/datadogV2"

	"xmltab/internal/metrics"
)

// Options controls Datadog backend configuration.
type Options struct {
	// Service becomes tag "service:<name>" on every metric. Defaults to
	// "xmltab".
	Service string

	// Tags are extra Datadog tags (e.g. []string{"env:prod"}).
	Tags []string

	// FlushEvery controls how often buffered metrics are submitted.
	// If <= 0, defaults to 60 seconds.
	FlushEvery time.Duration

	// Unexported test seams. Production code never sets them; tests use them
	// to avoid real submission and nondeterministic clocks.
	now       func() time.Time
	newTicker func(d time.Duration) *time.Ticker
	submitter submitter
}

// submitter is the minimal slice of the Datadog SDK needed to submit metrics.
// The concrete *datadogV2.MetricsApi satisfies it; tests substitute a fake.
type submitter interface {
	SubmitMetrics(ctx context.Context, body datadogV2.MetricPayload, params ...datadogV2.SubmitMetricsOptionalParameters) (datadogV2.IntakePayloadAccepted, *http.Response, error)
}

// Backend implements metrics.Backend for Datadog.
type Backend struct {
	api submitter
	ctx context.Context

	flushEvery time.Duration
	stopCh     chan struct{}
	doneCh     chan struct{}

	baseTags []string

	now       func() time.Time
	newTicker func(d time.Duration) *time.Ticker

	mu           sync.Mutex
	jobCounts    map[string]float64 // status -> count
	fileCounts   map[string]float64 // format -> count
	rowCount     float64
	jobDurations map[string][]float64 // status -> samples
}

// NewBackend constructs a Datadog backend using the official client. The API
// key comes from the standard DD_API_KEY environment; network errors occur at
// Flush time, not here.
func NewBackend(parent context.Context, opts Options) (*Backend, error) {
	service := opts.Service
	if service == "" {
		service = "xmltab"
	}

	flushEvery := opts.FlushEvery
	if flushEvery <= 0 {
		flushEvery = 60 * time.Second
	}

	baseTags := make([]string, 0, 2+len(opts.Tags))
	baseTags = append(baseTags, resolveEnvTag(), "service:"+service)
	baseTags = append(baseTags, opts.Tags...)

	nowFn := opts.now
	if nowFn == nil {
		nowFn = time.Now
	}
	newTicker := opts.newTicker
	if newTicker == nil {
		newTicker = time.NewTicker
	}

	sub := opts.submitter
	if sub == nil {
		cfg := dd.NewConfiguration()
		client := dd.NewAPIClient(cfg)
		sub = datadogV2.NewMetricsApi(client)
	}

	b := &Backend{
		api:        sub,
		ctx:        dd.NewDefaultContext(parent),
		flushEvery: flushEvery,
		stopCh:     make(chan struct{}),
		doneCh:     make(chan struct{}),
		baseTags:   baseTags,
		now:        nowFn,
		newTicker:  newTicker,

		jobCounts:    make(map[string]float64),
		fileCounts:   make(map[string]float64),
		jobDurations: make(map[string][]float64),
	}

	go b.loop()
	return b, nil
}

func resolveEnvTag() string {
	if v := strings.TrimSpace(os.Getenv("ENV")); v != "" {
		return "env:" + v
	}
	if v := strings.TrimSpace(os.Getenv("DD_ENV")); v != "" {
		return "env:" + v
	}
	return "env:unknown"
}

func (b *Backend) loop() {
	defer close(b.doneCh)

	t := b.newTicker(b.flushEvery)
	defer t.Stop()

	for {
		select {
		case <-t.C:
			_ = b.Flush()
		case <-b.stopCh:
			return
		}
	}
}

// Close stops the flush loop and performs one final Flush. Call once at
// process shutdown.
func (b *Backend) Close() error {
	close(b.stopCh)
	<-b.doneCh
	return b.Flush()
}

// IncCounter implements metrics.Backend. Unknown names are ignored.
func (b *Backend) IncCounter(name string, delta float64, labels metrics.Labels) {
	if delta <= 0 {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	switch name {
	case metrics.MetricJobsTotal:
		b.jobCounts[statusLabel(labels)] += delta
	case metrics.MetricFilesTotal:
		format := labels["format"]
		if format == "" {
			format = "unknown"
		}
		b.fileCounts[format] += delta
	case metrics.MetricRowsTotal:
		b.rowCount += delta
	}
}

// ObserveHistogram implements metrics.Backend. Unknown names are ignored.
func (b *Backend) ObserveHistogram(name string, value float64, labels metrics.Labels) {
	if value < 0 {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if name == metrics.MetricJobDurationSeconds {
		k := statusLabel(labels)
		b.jobDurations[k] = append(b.jobDurations[k], value)
	}
}

func statusLabel(labels metrics.Labels) string {
	if s := labels["status"]; s != "" {
		return s
	}
	return "unknown"
}

type snapshot struct {
	jobCounts    map[string]float64
	fileCounts   map[string]float64
	rowCount     float64
	jobDurations map[string][]float64
}

// snapshotAndReset detaches the buffered state under the lock so Flush can
// build and submit the payload without holding it.
func (b *Backend) snapshotAndReset() snapshot {
	b.mu.Lock()
	defer b.mu.Unlock()

	s := snapshot{
		jobCounts:    b.jobCounts,
		fileCounts:   b.fileCounts,
		rowCount:     b.rowCount,
		jobDurations: b.jobDurations,
	}
	b.jobCounts = make(map[string]float64)
	b.fileCounts = make(map[string]float64)
	b.rowCount = 0
	b.jobDurations = make(map[string][]float64)
	return s
}

func (s snapshot) isEmpty() bool {
	return len(s.jobCounts) == 0 &&
		len(s.fileCounts) == 0 &&
		s.rowCount == 0 &&
		len(s.jobDurations) == 0
}

// Flush submits buffered metrics and resets local buffers. Buffers are reset
// even when submission fails, to keep conversion fast and never block future
// writes on a slow intake.
func (b *Backend) Flush() error {
	snap := b.snapshotAndReset()
	if snap.isEmpty() {
		return nil
	}

	payload := datadogV2.MetricPayload{Series: b.buildSeries(snap, b.now().Unix())}
	_, _, err := b.api.SubmitMetrics(b.ctx, payload, *datadogV2.NewSubmitMetricsOptionalParameters())
	return err
}

// buildSeries is pure (no locks, clocks or network), which keeps the
// naming/tagging contract unit-testable.
func (b *Backend) buildSeries(s snapshot, nowUnix int64) []datadogV2.MetricSeries {
	count := func(metric string, value float64, tags []string) datadogV2.MetricSeries {
		return datadogV2.MetricSeries{
			Metric: metric,
			Type:   datadogV2.METRICINTAKETYPE_COUNT.Ptr(),
			Points: []datadogV2.MetricPoint{
				{Timestamp: dd.PtrInt64(nowUnix), Value: dd.PtrFloat64(value)},
			},
			Tags: tags,
		}
	}
	gauge := func(metric string, value float64, tags []string) datadogV2.MetricSeries {
		return datadogV2.MetricSeries{
			Metric: metric,
			Type:   datadogV2.METRICINTAKETYPE_GAUGE.Ptr(),
			Points: []datadogV2.MetricPoint{
				{Timestamp: dd.PtrInt64(nowUnix), Value: dd.PtrFloat64(value)},
			},
			Tags: tags,
		}
	}

	var series []datadogV2.MetricSeries

	for status, v := range s.jobCounts {
		series = append(series, count("xmltab.jobs.total", v, withTags(b.baseTags, "status:"+status)))
	}
	for format, v := range s.fileCounts {
		series = append(series, count("xmltab.files.total", v, withTags(b.baseTags, "format:"+format)))
	}
	if s.rowCount != 0 {
		series = append(series, count("xmltab.rows.total", s.rowCount, b.baseTags))
	}
	for status, samples := range s.jobDurations {
		tags := withTags(b.baseTags, "status:"+status)
		for _, p := range []float64{0.50, 0.90, 0.99} {
			series = append(series, gauge(
				"xmltab.job.duration_seconds.p"+percentileSuffix(p),
				percentile(samples, p),
				tags,
			))
		}
	}
	return series
}

func withTags(base []string, extra ...string) []string {
	out := make([]string, 0, len(base)+len(extra))
	out = append(out, base...)
	out = append(out, extra...)
	return out
}

func percentileSuffix(p float64) string {
	switch p {
	case 0.50:
		return "50"
	case 0.90:
		return "90"
	default:
		return "99"
	}
}

// percentile computes the nearest-rank percentile of samples.
func percentile(samples []float64, p float64) float64 {
	if len(samples) == 0 {
		return 0
	}
	sorted := append([]float64(nil), samples...)
	sort.Float64s(sorted)
	rank := int(p*float64(len(sorted))+0.5) - 1
	if rank < 0 {
		rank = 0
	}
	if rank >= len(sorted) {
		rank = len(sorted) - 1
	}
	return sorted[rank]
}
