package cli

import (
	"errors"
	"time"

	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the sync checkpoint",
	Long:  `Reports when the cache was last refreshed and how the last run went.`,
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, _ []string) error {
	if queryService == nil {
		return errors.New("query service not configured")
	}

	cp, err := queryService.CheckpointStatus(cmd.Context())
	if err != nil {
		return err
	}

	cmd.Printf("Status:   %s\n", cp.Status)
	if cp.LastSuccessAt.IsZero() {
		cmd.Println("Last sync: never")
	} else {
		cmd.Printf("Last sync: %s (%s ago)\n",
			cp.LastSuccessAt.Format(time.RFC3339),
			time.Since(cp.LastSuccessAt).Round(time.Second))
	}
	cmd.Printf("Articles: %d\n", cp.RecordCount)
	if cp.LastDurationMs > 0 {
		cmd.Printf("Duration: %dms\n", cp.LastDurationMs)
	}
	if cp.LastError != "" {
		cmd.Printf("Last error: %s\n", cp.LastError)
	}
	if syncRunner != nil && syncRunner.Running() {
		cmd.Println("A sync is currently running.")
	}

	return nil
}
