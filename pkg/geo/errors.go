package geo

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound means no supplied cadastral number is known to the map
	ErrNotFound = errors.New("parcel not found")
	// ErrUnavailable means the lookup service could not be reached or failed
	ErrUnavailable = errors.New("coordinate service unavailable")
)

// APIError is an unexpected HTTP response from the lookup service
type APIError struct {
	StatusCode int
	Number     string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("cadastral lookup of %s failed with status %d", e.Number, e.StatusCode)
}

// Unwrap classifies server-side failures as ErrUnavailable
func (e *APIError) Unwrap() error {
	if e.StatusCode >= 500 || e.StatusCode == 429 {
		return ErrUnavailable
	}
	return nil
}
