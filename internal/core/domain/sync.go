package domain

import "time"

// SyncOptions configures one sync run.
type SyncOptions struct {
	// Force bypasses the minimum inter-sync interval guard and always
	// runs the full-tree strategy.
	Force bool

	// Incremental prefers the commit-history strategy over a full-tree
	// diff when a previous successful sync exists.
	Incremental bool

	// MaxFiles bounds how many candidate files one run may process.
	// Zero means no bound. Candidates beyond the bound are deferred,
	// not failed, and the checkpoint does not advance past them.
	MaxFiles int
}

// SyncResult is the outcome of one sync run.
type SyncResult struct {
	// RunID identifies the run, for log correlation.
	RunID string

	// Success is true only when nothing failed and nothing was deferred.
	// A partial run reports Success=false with a non-zero UpdatedCount.
	Success bool

	// UpdatedCount is the number of articles created or refreshed.
	UpdatedCount int

	// FailedCount is the number of candidate files that failed.
	FailedCount int

	// DeferredCount is the number of candidates skipped due to MaxFiles.
	DeferredCount int

	// Duration is the wall-clock time of the run.
	Duration time.Duration

	// Err is a human-readable failure summary, empty on full success.
	Err string
}

// DurationMs returns the run duration in milliseconds.
func (r SyncResult) DurationMs() int64 {
	return r.Duration.Milliseconds()
}
