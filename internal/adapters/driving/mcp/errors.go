// Package mcp provides an MCP (Model Context Protocol) server adapter,
// exposing the article cache and sync controls to AI assistants.
package mcp

import "errors"

// ErrMissingQueryService is returned when the query service is not provided.
var ErrMissingQueryService = errors.New("mcp: query service is required")
