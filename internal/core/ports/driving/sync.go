package driving

import (
	"context"
	"time"

	"github.com/aktsmm/powerplat-update/internal/core/domain"
)

// SyncRunner coordinates sync runs across the tracked repositories.
type SyncRunner interface {
	// RunSync executes one sync run. Only one run may be in flight per
	// store; a concurrent trigger joins the in-flight run's result
	// instead of starting a duplicate.
	RunSync(ctx context.Context, opts domain.SyncOptions) domain.SyncResult

	// SyncIfStale starts a background incremental run when the cache is
	// older than the staleness threshold. It never blocks the caller and
	// swallows its own errors into the log.
	SyncIfStale(staleness time.Duration)

	// Running reports whether a run is currently in flight.
	Running() bool
}
