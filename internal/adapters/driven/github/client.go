package github

import (
	"context"
	"net/http"
	"time"

	gh "github.com/google/go-github/v80/github"
	"golang.org/x/oauth2"

	"github.com/aktsmm/powerplat-update/internal/logger"
)

const (
	// DefaultTimeout is the per-request HTTP timeout.
	DefaultTimeout = 30 * time.Second

	// MaxRetries is the maximum number of retries for transient errors.
	MaxRetries = 3

	// RetryDelay is the initial delay between retries, doubled per attempt.
	RetryDelay = time.Second
)

// Client wraps the go-github client with throttling and retry. An empty
// token falls back to anonymous access; the tracked repositories are
// public, so this only lowers the quota.
type Client struct {
	gh      *gh.Client
	limiter *RateLimiter
}

// NewClient creates a GitHub API client, authenticated when a token is
// provided.
func NewClient(ctx context.Context, token string) *Client {
	httpClient := &http.Client{Timeout: DefaultTimeout}
	if token != "" {
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
		httpClient = oauth2.NewClient(ctx, ts)
		httpClient.Timeout = DefaultTimeout
	}
	return &Client{
		gh:      gh.NewClient(httpClient),
		limiter: NewRateLimiter(),
	}
}

// RateLimiter exposes the limiter for status reporting.
func (c *Client) RateLimiter() *RateLimiter {
	return c.limiter
}

// do runs one API call under the rate limiter, retrying transient
// failures with exponential backoff. Quota and client errors are
// returned immediately, classified into domain errors.
func (c *Client) do(ctx context.Context, op string, fn func(ctx context.Context) (*gh.Response, error)) error {
	var lastErr error
	delay := RetryDelay

	for attempt := 0; attempt <= MaxRetries; attempt++ {
		if attempt > 0 {
			logger.Debug("%s: attempt %d after transient error: %v", op, attempt+1, lastErr)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
			delay *= 2
		}

		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}

		resp, err := fn(ctx)
		if resp != nil {
			c.limiter.UpdateFromResponse(resp.Response)
		}
		if err == nil {
			return nil
		}
		if !isTransient(err) {
			return classify(err, op)
		}
		lastErr = err
	}

	return classify(lastErr, op)
}
