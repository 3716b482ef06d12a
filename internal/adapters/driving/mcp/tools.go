package mcp

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/aktsmm/powerplat-update/internal/core/domain"
)

// SearchInput is the input schema for the search_articles tool.
type SearchInput struct {
	Query    string `json:"query,omitempty" jsonschema:"full-text query matched against article titles and summaries"`
	Category string `json:"category,omitempty" jsonschema:"restrict results to one product category"`
	DateFrom string `json:"date_from,omitempty" jsonschema:"earliest article date, YYYY-MM-DD"`
	DateTo   string `json:"date_to,omitempty" jsonschema:"latest article date, YYYY-MM-DD"`
	Limit    int    `json:"limit,omitempty" jsonschema:"maximum number of results (default 20)"`
	Offset   int    `json:"offset,omitempty" jsonschema:"number of results to skip"`
}

// SearchOutput is the output schema for the search_articles tool.
type SearchOutput struct {
	Articles []ArticleOutput `json:"articles"`
	Count    int             `json:"count"`
}

// ArticleOutput represents one article in tool output.
type ArticleOutput struct {
	Key      string `json:"key"`
	Title    string `json:"title"`
	Summary  string `json:"summary,omitempty"`
	Category string `json:"category"`
	Date     string `json:"date,omitempty"`
	URL      string `json:"url"`
}

// GetArticleInput is the input schema for the get_article tool.
type GetArticleInput struct {
	Key string `json:"key" jsonschema:"the article key as returned by search_articles"`
}

// RunSyncInput is the input schema for the run_sync tool.
type RunSyncInput struct {
	Force    bool `json:"force,omitempty" jsonschema:"bypass change detection and re-process everything"`
	MaxFiles int  `json:"max_files,omitempty" jsonschema:"cap on files processed this run; surplus is deferred"`
}

// RunSyncOutput is the output schema for the run_sync tool.
type RunSyncOutput struct {
	RunID      string `json:"run_id"`
	Success    bool   `json:"success"`
	Updated    int    `json:"updated"`
	Failed     int    `json:"failed"`
	Deferred   int    `json:"deferred"`
	DurationMs int64  `json:"duration_ms"`
	Error      string `json:"error,omitempty"`
}

// SyncStatusOutput is the output schema for the get_sync_status tool.
type SyncStatusOutput struct {
	Status        string `json:"status"`
	LastSuccessAt string `json:"last_success_at,omitempty"`
	RecordCount   int    `json:"record_count"`
	LastError     string `json:"last_error,omitempty"`
	Running       bool   `json:"running"`
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "search_articles",
		Description: "Search cached Power Platform \"what's new\" articles",
	}, s.handleSearch)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "get_article",
		Description: "Fetch one cached article by key",
	}, s.handleGetArticle)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "run_sync",
		Description: "Refresh the article cache from the tracked repositories",
	}, s.handleRunSync)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "get_sync_status",
		Description: "Report the current sync checkpoint",
	}, s.handleSyncStatus)
}

// handleSearch handles the search_articles tool invocation.
func (s *Server) handleSearch(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input SearchInput,
) (*mcp.CallToolResult, SearchOutput, error) {
	filter := domain.SearchFilter{
		Text:     input.Query,
		Category: input.Category,
		Limit:    input.Limit,
		Offset:   input.Offset,
	}

	var err error
	if filter.DateFrom, err = parseDateParam(input.DateFrom); err != nil {
		return nil, SearchOutput{}, fmt.Errorf("date_from: %w", err)
	}
	if filter.DateTo, err = parseDateParam(input.DateTo); err != nil {
		return nil, SearchOutput{}, fmt.Errorf("date_to: %w", err)
	}

	articles, err := s.ports.Query.Search(ctx, filter)
	if err != nil {
		return nil, SearchOutput{}, err
	}

	output := SearchOutput{
		Articles: make([]ArticleOutput, len(articles)),
		Count:    len(articles),
	}
	for i := range articles {
		output.Articles[i] = toArticleOutput(&articles[i])
	}

	return nil, output, nil
}

// handleGetArticle handles the get_article tool invocation.
func (s *Server) handleGetArticle(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input GetArticleInput,
) (*mcp.CallToolResult, ArticleOutput, error) {
	article, err := s.ports.Query.GetByKey(ctx, input.Key)
	if err != nil {
		return nil, ArticleOutput{}, err
	}
	return nil, toArticleOutput(article), nil
}

// handleRunSync handles the run_sync tool invocation.
func (s *Server) handleRunSync(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input RunSyncInput,
) (*mcp.CallToolResult, RunSyncOutput, error) {
	if s.ports.Sync == nil {
		return nil, RunSyncOutput{}, errors.New("sync is not available on this server")
	}

	result := s.ports.Sync.RunSync(ctx, domain.SyncOptions{
		Force:       input.Force,
		Incremental: !input.Force,
		MaxFiles:    input.MaxFiles,
	})

	return nil, RunSyncOutput{
		RunID:      result.RunID,
		Success:    result.Success,
		Updated:    result.UpdatedCount,
		Failed:     result.FailedCount,
		Deferred:   result.DeferredCount,
		DurationMs: result.DurationMs(),
		Error:      result.Err,
	}, nil
}

// handleSyncStatus handles the get_sync_status tool invocation.
func (s *Server) handleSyncStatus(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	_ struct{},
) (*mcp.CallToolResult, SyncStatusOutput, error) {
	cp, err := s.ports.Query.CheckpointStatus(ctx)
	if err != nil {
		return nil, SyncStatusOutput{}, err
	}

	output := SyncStatusOutput{
		Status:      string(cp.Status),
		RecordCount: cp.RecordCount,
		LastError:   cp.LastError,
	}
	if !cp.LastSuccessAt.IsZero() {
		output.LastSuccessAt = cp.LastSuccessAt.Format(time.RFC3339)
	}
	if s.ports.Sync != nil {
		output.Running = s.ports.Sync.Running()
	}

	return nil, output, nil
}

// toArticleOutput maps a domain article to tool output.
func toArticleOutput(article *domain.Article) ArticleOutput {
	out := ArticleOutput{
		Key:      article.Key,
		Title:    article.Title,
		Summary:  article.Summary,
		Category: article.Category,
		URL:      article.CanonicalURL,
	}
	if article.EffectiveDate != nil {
		out.Date = article.EffectiveDate.Format(domain.EffectiveDateLayout)
	}
	return out
}

// parseDateParam parses an optional YYYY-MM-DD tool parameter.
func parseDateParam(value string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	t, err := time.Parse(domain.EffectiveDateLayout, value)
	if err != nil {
		return nil, fmt.Errorf("expected YYYY-MM-DD, got %q", value)
	}
	return &t, nil
}
