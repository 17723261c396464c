package github

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	gh "github.com/google/go-github/v80/github"

	"github.com/custodia-labs/inlet/internal/core/domain"
)

// APIError represents a GitHub API error response.
type APIError struct {
	StatusCode int
	Message    string
	URL        string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("github: %d %s (%s)", e.StatusCode, e.Message, e.URL)
}

// RateLimitError indicates the API quota is exhausted.
type RateLimitError struct {
	ResetAt   time.Time
	Remaining int
	Limit     int
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("github: rate limit exhausted (%d/%d), resets at %s",
		e.Remaining, e.Limit, e.ResetAt.Format(time.RFC3339))
}

// wrapError converts go-github errors into the domain taxonomy.
func wrapError(err error, operation string, rl *RateLimiter) error {
	if err == nil {
		return nil
	}

	var rateLimitErr *gh.RateLimitError
	if errors.As(err, &rateLimitErr) {
		return fmt.Errorf("%w: %w", domain.ErrRateLimited, &RateLimitError{
			ResetAt:   rl.ResetTime(),
			Remaining: rl.Remaining(),
			Limit:     rl.Limit(),
		})
	}

	var ghErr *gh.ErrorResponse
	if errors.As(err, &ghErr) && ghErr.Response != nil {
		apiErr := &APIError{
			StatusCode: ghErr.Response.StatusCode,
			Message:    ghErr.Message,
		}
		if ghErr.Response.Request != nil && ghErr.Response.Request.URL != nil {
			apiErr.URL = ghErr.Response.Request.URL.String()
		}
		switch apiErr.StatusCode {
		case http.StatusUnauthorized:
			return fmt.Errorf("%w: %w", domain.ErrAuthInvalid, apiErr)
		case http.StatusForbidden, http.StatusNotFound:
			return fmt.Errorf("%w: %w", domain.ErrContainerInaccessible, apiErr)
		case http.StatusTooManyRequests:
			return fmt.Errorf("%w: %w", domain.ErrRateLimited, apiErr)
		}
		return apiErr
	}

	return fmt.Errorf("github: %s: %w", operation, err)
}

// IsAPIError extracts the GitHub API error, if any.
func IsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}
