package linear

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/custodia-labs/inlet/internal/core/domain"
)

// APIError represents a Linear GraphQL error.
type APIError struct {
	StatusCode int
	Code       string // extensions.code, e.g. "AUTHENTICATION_ERROR"
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("linear: %s (%d): %s", e.Code, e.StatusCode, e.Message)
}

// mapError converts an HTTP status plus GraphQL error code into the
// domain taxonomy.
func mapError(status int, code, message string) error {
	apiErr := &APIError{StatusCode: status, Code: code, Message: message}

	switch {
	case status == http.StatusUnauthorized,
		strings.EqualFold(code, "AUTHENTICATION_ERROR"),
		strings.EqualFold(code, "INVALID_TOKEN"):
		return fmt.Errorf("%w: %w", domain.ErrAuthInvalid, apiErr)
	case status == http.StatusTooManyRequests,
		strings.EqualFold(code, "RATELIMITED"):
		return fmt.Errorf("%w: %w", domain.ErrRateLimited, apiErr)
	case status == http.StatusForbidden,
		strings.EqualFold(code, "FORBIDDEN"):
		return fmt.Errorf("%w: %w", domain.ErrContainerInaccessible, apiErr)
	}
	return apiErr
}

// IsAPIError extracts the Linear API error, if any.
func IsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}
