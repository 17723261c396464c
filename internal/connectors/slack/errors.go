package slack

import (
	"errors"
	"fmt"

	"github.com/custodia-labs/inlet/internal/core/domain"
)

// APIError represents a Slack Web API error response (ok=false).
type APIError struct {
	Code   string // Slack error code, e.g. "invalid_auth"
	Method string // API method that failed
}

func (e *APIError) Error() string {
	return fmt.Sprintf("slack: %s failed: %s", e.Method, e.Code)
}

// mapError converts a Slack API error code into the domain taxonomy so
// the runner can decide between abort, skip and record.
func mapError(method, code string) error {
	apiErr := &APIError{Code: code, Method: method}
	switch code {
	case "invalid_auth", "account_inactive", "token_revoked", "not_authed":
		return fmt.Errorf("%w: %w", domain.ErrAuthInvalid, apiErr)
	case "not_in_channel", "channel_not_found", "is_archived", "missing_scope":
		return fmt.Errorf("%w: %w", domain.ErrContainerInaccessible, apiErr)
	case "ratelimited", "rate_limited":
		return fmt.Errorf("%w: %w", domain.ErrRateLimited, apiErr)
	}
	return apiErr
}

// IsAPIError extracts the Slack API error, if any.
func IsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}
