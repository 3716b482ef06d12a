package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/aktsmm/powerplat-update/internal/core/domain"
)

var (
	searchLimit    int
	searchOffset   int
	searchCategory string
	searchFrom     string
	searchTo       string
	searchJSON     bool
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search cached articles",
	Long: `Searches the cached "what's new" articles by full text, newest first.
Without a query the newest articles are listed. Dates are matched against
the article's declared publish date, falling back to its last remote
change date.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().IntVarP(&searchLimit, "limit", "n", 0, "maximum number of results (0 = default)")
	searchCmd.Flags().IntVar(&searchOffset, "offset", 0, "number of results to skip")
	searchCmd.Flags().StringVarP(&searchCategory, "category", "c", "", "restrict to one product category")
	searchCmd.Flags().StringVar(&searchFrom, "from", "", "earliest article date (YYYY-MM-DD)")
	searchCmd.Flags().StringVar(&searchTo, "to", "", "latest article date (YYYY-MM-DD)")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "output results as JSON")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	if queryService == nil {
		return errors.New("query service not configured")
	}

	filter := domain.SearchFilter{
		Category: searchCategory,
		Limit:    searchLimit,
		Offset:   searchOffset,
	}
	if len(args) > 0 {
		filter.Text = args[0]
	}

	var err error
	if filter.DateFrom, err = parseDateFlag("from", searchFrom); err != nil {
		return err
	}
	if filter.DateTo, err = parseDateFlag("to", searchTo); err != nil {
		return err
	}

	articles, err := queryService.Search(cmd.Context(), filter)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if searchJSON {
		return outputArticlesJSON(cmd, articles)
	}

	return outputArticlesTable(cmd, articles)
}

func outputArticlesJSON(cmd *cobra.Command, articles []domain.Article) error {
	data, err := json.MarshalIndent(articles, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal results: %w", err)
	}
	cmd.Println(string(data))
	return nil
}

func outputArticlesTable(cmd *cobra.Command, articles []domain.Article) error {
	if len(articles) == 0 {
		cmd.Println("No articles found.")
		return nil
	}

	for i := range articles {
		a := &articles[i]
		date := "unknown"
		if a.EffectiveDate != nil {
			date = a.EffectiveDate.Format(domain.EffectiveDateLayout)
		} else if !a.LastChangeAt.IsZero() {
			date = a.LastChangeAt.Format(domain.EffectiveDateLayout)
		}
		cmd.Printf("%s  [%s]  %s\n", date, a.Category, a.Title)
		if a.Summary != "" {
			cmd.Printf("    %s\n", a.Summary)
		}
		cmd.Printf("    key: %s\n", a.Key)
	}
	cmd.Printf("\n%d article(s)\n", len(articles))

	return nil
}

// parseDateFlag parses an optional YYYY-MM-DD flag value.
func parseDateFlag(name, value string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	t, err := time.Parse(domain.EffectiveDateLayout, value)
	if err != nil {
		return nil, fmt.Errorf("invalid --%s date %q: expected YYYY-MM-DD", name, value)
	}
	return &t, nil
}
