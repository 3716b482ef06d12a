package mcp

import (
	"github.com/aktsmm/powerplat-update/internal/core/ports/driving"
)

// Ports aggregates the driving port interfaces required by the MCP server.
// This provides a single injection point for dependency injection.
type Ports struct {
	// Query provides read access to the article cache.
	Query driving.QueryService

	// Sync triggers sync runs. Optional; without it the sync tools are
	// still registered and report that syncing is unavailable.
	Sync driving.SyncRunner
}

// Validate ensures all required ports are set.
func (p *Ports) Validate() error {
	if p.Query == nil {
		return ErrMissingQueryService
	}
	return nil
}
