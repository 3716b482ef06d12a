package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/aktsmm/powerplat-update/internal/core/domain"
)

var showJSON bool

var showCmd = &cobra.Command{
	Use:   "show <key>",
	Short: "Show one cached article",
	Long:  `Shows the full cached record for one article, addressed by its key.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runShow,
}

func init() {
	showCmd.Flags().BoolVar(&showJSON, "json", false, "output the article as JSON")
	rootCmd.AddCommand(showCmd)
}

func runShow(cmd *cobra.Command, args []string) error {
	if queryService == nil {
		return errors.New("query service not configured")
	}

	article, err := queryService.GetByKey(cmd.Context(), args[0])
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return fmt.Errorf("no article with key %q", args[0])
		}
		return err
	}

	if showJSON {
		data, err := json.MarshalIndent(article, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal article: %w", err)
		}
		cmd.Println(string(data))
		return nil
	}

	cmd.Printf("Title:    %s\n", article.Title)
	cmd.Printf("Category: %s\n", article.Category)
	if article.Summary != "" {
		cmd.Printf("Summary:  %s\n", article.Summary)
	}
	if article.EffectiveDate != nil {
		cmd.Printf("Date:     %s\n", article.EffectiveDate.Format(domain.EffectiveDateLayout))
	}
	cmd.Printf("URL:      %s\n", article.CanonicalURL)
	cmd.Printf("Key:      %s\n", article.Key)
	if !article.LastChangeAt.IsZero() {
		cmd.Printf("Changed:  %s\n", article.LastChangeAt.Format(time.RFC3339))
	}
	if !article.FirstSeenAt.IsZero() {
		cmd.Printf("Seen:     %s\n", article.FirstSeenAt.Format(time.RFC3339))
	}

	return nil
}
