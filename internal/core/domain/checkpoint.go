package domain

import "time"

// SyncStatus is the lifecycle state recorded in the checkpoint.
type SyncStatus string

const (
	// SyncIdle means no run is in progress.
	SyncIdle SyncStatus = "idle"

	// SyncRunning means a run is in flight. A "syncing" status observed at
	// startup is stale (the previous process died mid-run) and must be
	// reset to idle before the first run.
	SyncRunning SyncStatus = "syncing"

	// SyncError means the last run ended with a hard failure.
	SyncError SyncStatus = "error"
)

// Checkpoint is the singleton record of the last sync run's outcome.
// Status transitions idle -> syncing -> {idle, error}.
type Checkpoint struct {
	// LastSuccessAt is the last time a run completed with nothing failed
	// and nothing deferred. Withheld on partial failure so affected files
	// are retried next cycle.
	LastSuccessAt time.Time

	// Status is the current lifecycle state.
	Status SyncStatus

	// RecordCount is the number of cached articles after the last run.
	RecordCount int

	// LastDurationMs is how long the last run took.
	LastDurationMs int64

	// LastError is a human-readable summary of the last run's failures.
	LastError string
}
