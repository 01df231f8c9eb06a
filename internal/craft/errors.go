package craft

import (
	"errors"
	"fmt"
)

// Common errors returned by the Craft client.
var (
	// ErrNotFound indicates the collection or item was not found.
	ErrNotFound = errors.New("not found in Craft")

	// ErrAuthError indicates an authentication error (missing/invalid token).
	ErrAuthError = errors.New("Craft authentication error")

	// ErrNetworkError indicates a network connectivity issue.
	ErrNetworkError = errors.New("network error communicating with Craft")

	// ErrInvalidResponse indicates an unexpected API response.
	ErrInvalidResponse = errors.New("invalid response from Craft")
)

// APIError represents an error returned by the Craft API.
type APIError struct {
	StatusCode int
	Code       string // Error code from API (e.g., "not_found", "validation_failed")
	Message    string
	ItemID     string // For context in item-related errors
}

func (e *APIError) Error() string {
	if e.ItemID != "" {
		return fmt.Sprintf("Craft API error (status %d, code %s): %s (item: %s)", e.StatusCode, e.Code, e.Message, e.ItemID)
	}
	return fmt.Sprintf("Craft API error (status %d, code %s): %s", e.StatusCode, e.Code, e.Message)
}

// IsNotFound returns true if the error indicates a missing resource.
func IsNotFound(err error) bool {
	if errors.Is(err, ErrNotFound) {
		return true
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == 404 || apiErr.Code == "not_found"
	}
	return false
}

// IsAuthError returns true if the error indicates an authentication problem.
func IsAuthError(err error) bool {
	if errors.Is(err, ErrAuthError) {
		return true
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == 401 || apiErr.StatusCode == 403 || apiErr.Code == "auth_error"
	}
	return false
}
