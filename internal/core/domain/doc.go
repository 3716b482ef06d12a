// Package domain defines the core business entities for powerplat-update.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - Article: A "what's new" article cached from a docs repository
//   - TrackedRepo: A documentation repository the sync engine watches
//   - Watermark: The last-known head pointer for a whole repository
//   - Checkpoint: Singleton record of the last sync run's outcome
//   - SyncResult: The outcome of one sync run
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
