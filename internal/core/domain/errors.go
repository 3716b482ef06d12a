package domain

import (
	"errors"
	"fmt"
	"time"
)

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrSyncInProgress indicates a sync run is already in flight.
	ErrSyncInProgress = errors.New("sync in progress")

	// ErrUnauthorized indicates the remote source rejected the caller's
	// credentials or permissions. Retrying cannot help; callers stop
	// issuing remote calls instead.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrSourceUnavailable indicates the remote source could not be
	// reached after retries were exhausted.
	ErrSourceUnavailable = errors.New("source unavailable")

	// ErrRateLimited indicates the remote API rate limit was exceeded.
	// Never retried in-process; the caller stops issuing remote calls.
	ErrRateLimited = errors.New("rate limited")

	// ErrTruncatedListing indicates a directory listing was too large to
	// return completely. Treated as a failure, never as partial data.
	ErrTruncatedListing = errors.New("truncated listing")
)

// RateLimitError carries the remote-provided quota reset time. It matches
// ErrRateLimited under errors.Is so core code can classify it without
// knowing the adapter that produced it.
type RateLimitError struct {
	ResetAt time.Time
}

func (e *RateLimitError) Error() string {
	if e.ResetAt.IsZero() {
		return "rate limited"
	}
	return fmt.Sprintf("rate limited, resets at %s", e.ResetAt.Format(time.RFC3339))
}

// Is reports whether target is ErrRateLimited.
func (e *RateLimitError) Is(target error) bool {
	return target == ErrRateLimited
}
