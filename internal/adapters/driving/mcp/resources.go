package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/aktsmm/powerplat-update/internal/core/domain"
)

const (
	// uriScheme is the custom URI scheme for cached-article resources.
	uriScheme = "powerplat://"
)

// registerResources registers all resource handlers with the MCP server.
func (s *Server) registerResources() {
	// Static resource for the most recent articles.
	s.server.AddResource(&mcp.Resource{
		URI:         uriScheme + "articles/recent",
		Name:        "recent-articles",
		Description: "Most recent cached articles across all tracked repositories",
		MIMEType:    "application/json",
	}, s.handleRecentArticlesResource)

	// Static resource for the sync checkpoint.
	s.server.AddResource(&mcp.Resource{
		URI:         uriScheme + "sync/status",
		Name:        "sync-status",
		Description: "Current sync checkpoint",
		MIMEType:    "application/json",
	}, s.handleSyncStatusResource)

	// Template for one article by key.
	s.server.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: uriScheme + "articles/{key}",
		Name:        "article",
		Description: "One cached article by key",
		MIMEType:    "application/json",
	}, s.handleArticleResource)
}

// handleRecentArticlesResource returns the newest cached articles.
func (s *Server) handleRecentArticlesResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	articles, err := s.ports.Query.Search(ctx, domain.SearchFilter{})
	if err != nil {
		return nil, fmt.Errorf("listing articles: %w", err)
	}

	infos := make([]ArticleOutput, len(articles))
	for i := range articles {
		infos[i] = toArticleOutput(&articles[i])
	}

	return jsonResourceResult(req.Params.URI, infos)
}

// handleSyncStatusResource returns the checkpoint as a JSON document.
func (s *Server) handleSyncStatusResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	cp, err := s.ports.Query.CheckpointStatus(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading checkpoint: %w", err)
	}

	status := SyncStatusOutput{
		Status:      string(cp.Status),
		RecordCount: cp.RecordCount,
		LastError:   cp.LastError,
	}
	if !cp.LastSuccessAt.IsZero() {
		status.LastSuccessAt = cp.LastSuccessAt.Format(time.RFC3339)
	}
	if s.ports.Sync != nil {
		status.Running = s.ports.Sync.Running()
	}

	return jsonResourceResult(req.Params.URI, status)
}

// handleArticleResource returns one article by key.
func (s *Server) handleArticleResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	key := extractArticleKey(req.Params.URI)
	if key == "" {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	article, err := s.ports.Query.GetByKey(ctx, key)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, mcp.ResourceNotFoundError(req.Params.URI)
		}
		return nil, fmt.Errorf("getting article: %w", err)
	}

	return jsonResourceResult(req.Params.URI, toArticleOutput(article))
}

// jsonResourceResult marshals v as the single JSON content of a resource read.
func jsonResourceResult(uri string, v any) (*mcp.ReadResourceResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshalling resource: %w", err)
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		}},
	}, nil
}

// extractArticleKey extracts the key from a URI like powerplat://articles/{key}.
func extractArticleKey(uri string) string {
	const prefix = uriScheme + "articles/"

	if !strings.HasPrefix(uri, prefix) {
		return ""
	}

	key := strings.TrimPrefix(uri, prefix)
	if key == "recent" {
		return ""
	}

	return key
}
