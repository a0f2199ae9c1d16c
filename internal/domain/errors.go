package domain

import "errors"

var (
	ErrNotFound            = errors.New("not found")
	ErrNoData              = errors.New("no source returned data")
	ErrDuplicateSource     = errors.New("source already registered")
	ErrProviderUnavailable = errors.New("provider unavailable")
	ErrInvalidPrice        = errors.New("invalid price")
	ErrRateLimited         = errors.New("rate limited")
	ErrLockHeld            = errors.New("lock already held")
)

// SourceError records a non-fatal failure from a single provider during a
// fan-out call. Failures of individual sources are surfaced alongside partial
// results instead of aborting the whole aggregation.
type SourceError struct {
	Source string
	Err    error
}

func (e SourceError) Error() string {
	return e.Source + ": " + e.Err.Error()
}

func (e SourceError) Unwrap() error {
	return e.Err
}
