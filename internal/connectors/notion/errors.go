package notion

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/custodia-labs/inlet/internal/core/domain"
)

// APIError represents a Notion API error response.
type APIError struct {
	StatusCode int
	Code       string // Notion error code, e.g. "unauthorized"
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("notion: %s (%d): %s", e.Code, e.StatusCode, e.Message)
}

// mapError converts a Notion error response into the domain taxonomy.
func mapError(status int, code, message string) error {
	apiErr := &APIError{StatusCode: status, Code: code, Message: message}
	switch status {
	case http.StatusUnauthorized:
		return fmt.Errorf("%w: %w", domain.ErrAuthInvalid, apiErr)
	case http.StatusForbidden, http.StatusNotFound:
		return fmt.Errorf("%w: %w", domain.ErrContainerInaccessible, apiErr)
	case http.StatusTooManyRequests:
		return fmt.Errorf("%w: %w", domain.ErrRateLimited, apiErr)
	}
	return apiErr
}

// IsAPIError extracts the Notion API error, if any.
func IsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}
