package github

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	gh "github.com/google/go-github/v80/github"

	"github.com/aktsmm/powerplat-update/internal/core/domain"
)

// classify converts go-github errors into domain error values, so core
// code reacts to rate limiting and missing resources without importing
// this package.
func classify(err error, op string) error {
	if err == nil {
		return nil
	}

	var rle *gh.RateLimitError
	if errors.As(err, &rle) {
		return &domain.RateLimitError{ResetAt: rle.Rate.Reset.Time}
	}

	// Secondary limits carry a Retry-After rather than a reset timestamp.
	var abuse *gh.AbuseRateLimitError
	if errors.As(err, &abuse) {
		return &domain.RateLimitError{ResetAt: time.Now().Add(abuse.GetRetryAfter())}
	}

	var ghErr *gh.ErrorResponse
	if errors.As(err, &ghErr) && ghErr.Response != nil {
		status := ghErr.Response.StatusCode
		switch status {
		case http.StatusNotFound:
			return fmt.Errorf("%s: %w", op, domain.ErrNotFound)
		case http.StatusUnauthorized, http.StatusForbidden:
			// Secondary rate limits also answer 403, but go-github
			// surfaces those as AbuseRateLimitError above. What is
			// left here is a credential or permission problem.
			return fmt.Errorf("%s: status %d: %s: %w", op, status, ghErr.Message, domain.ErrUnauthorized)
		}
		return fmt.Errorf("%s: status %d: %s: %w", op, status, ghErr.Message, domain.ErrSourceUnavailable)
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	return fmt.Errorf("%s: %w: %v", op, domain.ErrSourceUnavailable, err)
}

// isTransient reports whether a request is worth retrying. Quota errors
// and client errors never are; server errors and network failures are.
func isTransient(err error) bool {
	var rle *gh.RateLimitError
	if errors.As(err, &rle) {
		return false
	}
	var abuse *gh.AbuseRateLimitError
	if errors.As(err, &abuse) {
		return false
	}
	var ghErr *gh.ErrorResponse
	if errors.As(err, &ghErr) && ghErr.Response != nil {
		return ghErr.Response.StatusCode >= http.StatusInternalServerError
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	return true
}
