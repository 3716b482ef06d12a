package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aktsmm/powerplat-update/internal/adapters/driving/mcp"
	"github.com/aktsmm/powerplat-update/internal/logger"
)

// BackgroundScheduler keeps the cache fresh while the MCP server runs.
// Implemented by services.Scheduler; injected from main.
type BackgroundScheduler interface {
	Start(ctx context.Context) error
	Stop() error
}

var scheduler BackgroundScheduler

// SetScheduler injects the background scheduler used by mcp serve.
func SetScheduler(s BackgroundScheduler) {
	scheduler = s
}

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "MCP server commands",
	Long:  `Commands for the Model Context Protocol (MCP) server integration.`,
}

var mcpServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the MCP server",
	Long: `Start the Model Context Protocol server so AI assistants can query the
article cache. While the server runs, a background scheduler keeps the
cache fresh.

By default the server communicates over stdio using JSON-RPC. Use --port
to serve HTTP instead, for MCP Inspector or remote access.

Examples:
  # Stdio mode (default, for Claude Desktop)
  powerplat-update mcp serve

  # HTTP mode
  powerplat-update mcp serve --port 8080`,
	RunE: runMCPServe,
}

func init() {
	mcpServeCmd.Flags().IntP("port", "p", 0, "HTTP port (0 = use stdio)")
	mcpServeCmd.Flags().Bool("no-sync", false, "do not run background syncs")
	mcpCmd.AddCommand(mcpServeCmd)
	rootCmd.AddCommand(mcpCmd)
}

func runMCPServe(cmd *cobra.Command, _ []string) error {
	port, err := cmd.Flags().GetInt("port")
	if err != nil {
		return fmt.Errorf("getting port flag: %w", err)
	}
	noSync, err := cmd.Flags().GetBool("no-sync")
	if err != nil {
		return fmt.Errorf("getting no-sync flag: %w", err)
	}

	ports := &mcp.Ports{
		Query: queryService,
		Sync:  syncRunner,
	}

	server, err := mcp.NewServer(ports)
	if err != nil {
		return err
	}

	if scheduler != nil && !noSync {
		go func() {
			if err := scheduler.Start(cmd.Context()); err != nil && cmd.Context().Err() == nil {
				logger.Warn("scheduler stopped: %v", err)
			}
		}()
		defer func() {
			if err := scheduler.Stop(); err != nil {
				logger.Warn("stopping scheduler: %v", err)
			}
		}()
	}

	if port > 0 {
		addr := fmt.Sprintf(":%d", port)
		fmt.Fprintf(cmd.ErrOrStderr(), "MCP server listening on http://localhost%s\n", addr)
		return server.RunHTTP(cmd.Context(), addr)
	}

	return server.Run(cmd.Context())
}
