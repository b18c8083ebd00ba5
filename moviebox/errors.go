package moviebox

import (
	"errors"
	"fmt"
)

// Common errors
var (
	// ErrInvalidQuery indicates query parameters outside the accepted ranges
	ErrInvalidQuery = errors.New("invalid moviebox query")
	// ErrEmptyItem indicates an item that carries no subject id or detail path
	ErrEmptyItem = errors.New("item has no subject address")
	// ErrMalformedDetail indicates a detail page whose embedded state is not JSON
	ErrMalformedDetail = errors.New("detail page state is not valid JSON")
)

// APIError represents a MovieBox API error
type APIError struct {
	StatusCode int
	// Code is the upstream result code; 0 when the failure is HTTP-level
	Code    int
	Message string
	URL     string
}

// Error implements the error interface
func (e *APIError) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("moviebox API error: status %d: code %d: %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("moviebox API error: status %d: %s", e.StatusCode, e.Message)
}

// IsNotFound checks if the error indicates a not found response
func (e *APIError) IsNotFound() bool {
	return e.StatusCode == 404
}

// IsUnauthorized checks if the error indicates the session was rejected
func (e *APIError) IsUnauthorized() bool {
	return e.StatusCode == 401 || e.StatusCode == 403
}

func invalidQuery(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidQuery, fmt.Sprintf(format, args...))
}
