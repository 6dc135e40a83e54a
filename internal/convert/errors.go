package convert

import "errors"

// The error taxonomy for conversion jobs. Failures wrap exactly one of these
// sentinels, so callers can classify with errors.Is while the job's terminal
// state carries the human-readable message.
var (
	// ErrMalformedInput marks a document that could not be parsed.
	ErrMalformedInput = errors.New("malformed input")

	// ErrUnsupportedFormat marks an unknown target format. It is rejected
	// before any file is processed.
	ErrUnsupportedFormat = errors.New("unsupported output format")

	// ErrMissingSource marks a referenced input that is no longer available.
	ErrMissingSource = errors.New("missing source file")

	// ErrResourceLimit marks an input exceeding the configured size ceiling.
	ErrResourceLimit = errors.New("input exceeds size limit")

	// ErrWriterFailure marks an I/O failure while serializing output.
	ErrWriterFailure = errors.New("writer failure")
)
