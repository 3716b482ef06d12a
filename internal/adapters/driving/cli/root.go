// Package cli implements the command-line driving adapter. Commands are
// thin shells over the core services, which are injected by main before
// Execute runs.
package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/aktsmm/powerplat-update/internal/core/ports/driving"
	"github.com/aktsmm/powerplat-update/internal/logger"
)

// version is set from main at build time.
var version = "dev"

// Injected services. Commands check for nil and fail with a clear message
// so a partially wired binary degrades instead of panicking.
var (
	queryService driving.QueryService
	syncRunner   driving.SyncRunner
)

var verboseFlag bool

var rootCmd = &cobra.Command{
	Use:   "powerplat-update",
	Short: "Track Power Platform \"what's new\" documentation",
	Long: `powerplat-update keeps a local cache of the "what's new" articles
published in the Microsoft Power Platform documentation repositories
and answers queries against it, including over MCP.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		logger.SetVerbose(verboseFlag)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verboseFlag, "verbose", "v", false,
		"print sync pipeline progress to stderr")
}

// Services bundles everything the commands need.
type Services struct {
	Query driving.QueryService
	Sync  driving.SyncRunner
}

// SetServices injects the core services. Call before Execute.
func SetServices(s Services) {
	queryService = s.Query
	syncRunner = s.Sync
}

// SetVersion sets the version string reported by the version command.
func SetVersion(v string) {
	if v != "" {
		version = v
	}
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// ExecuteContext runs the root command with the given context, so
// long-running commands stop on signal-driven cancellation.
func ExecuteContext(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}
