// Package metrics defines the minimal metrics surface the conversion core
// emits to. The core depends only on Backend; concrete sinks (Datadog, or the
// no-op backend) live in subpackages and are selected at startup.
package metrics

// Labels are low-cardinality metric dimensions (status, format, ...).
type Labels map[string]string

// Backend receives metric observations.
//
// Implementations must be safe for concurrent use: the converter records from
// whichever goroutine runs a job.
type Backend interface {
	// IncCounter adds delta to a monotonic counter.
	IncCounter(name string, delta float64, labels Labels)

	// ObserveHistogram records one sample of a distribution.
	ObserveHistogram(name string, value float64, labels Labels)
}

// Metric names emitted by the converter.
const (
	MetricJobsTotal          = "convert_jobs_total"           // labels: status
	MetricFilesTotal         = "convert_files_total"          // labels: format
	MetricRowsTotal          = "convert_rows_total"           // no labels
	MetricJobDurationSeconds = "convert_job_duration_seconds" // labels: status
)

type nop struct{}

func (nop) IncCounter(string, float64, Labels)       {}
func (nop) ObserveHistogram(string, float64, Labels) {}

// Nop returns a backend that discards everything.
func Nop() Backend { return nop{} }
