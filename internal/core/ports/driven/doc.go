// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
//   - RemoteSource: Talks to the repository-hosting API (list tree,
//     fetch raw bytes, list commits, head pointer)
//   - ArticleStore: Article persistence, upsert and search
//   - WatermarkStore: Per-repository head-pointer persistence
//   - CheckpointStore: Singleton sync checkpoint persistence
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter package
package driven
