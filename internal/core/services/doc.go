// Package services implements the driving port interfaces.
// Services contain the core business logic: change detection, article
// extraction, sync orchestration and the query surface. They orchestrate
// calls to driven ports (adapters) and never touch the network or the
// database directly.
package services
