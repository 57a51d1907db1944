package errors

import (
	"context"
	"errors"
)

// Pipeline and query error taxonomy. Everything the ETL pipeline or the
// recommendation engine reports wraps one of these sentinels, so callers can
// decide between abort, skip-and-count, and retry without string matching.
var (
	// ErrExtraction marks a failed source query. Fatal to the run: partial
	// extraction results are never used.
	ErrExtraction = errors.New("extraction failed")
	// ErrValidation marks a malformed interaction record. The record is
	// skipped and counted, the batch continues.
	ErrValidation = errors.New("invalid record")
	// ErrLoad marks a single-record graph write failure. Skipped and
	// counted, the batch continues.
	ErrLoad = errors.New("graph load failed")
	// ErrQuery marks a recommendation query failure (store unreachable or
	// malformed request).
	ErrQuery = errors.New("query failed")
	// ErrNotFound marks a query target that does not exist in the graph,
	// distinct from an empty result set.
	ErrNotFound = errors.New("not found")
	// ErrTimeout marks an operation that exceeded its configured deadline.
	// Retried once, then treated as the underlying error kind.
	ErrTimeout = errors.New("operation timed out")
)

// IsTimeout reports whether err is a deadline failure, either from our own
// taxonomy or from the context package.
func IsTimeout(err error) bool {
	return errors.Is(err, ErrTimeout) || errors.Is(err, context.DeadlineExceeded)
}
