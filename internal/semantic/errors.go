package semantic

import (
	"errors"
	"fmt"
)

var (
	// ErrNotConfigured indicates a channel without an address.
	ErrNotConfigured = errors.New("semantic service not configured")
	// ErrService marks errors reported by the service itself.
	ErrService = errors.New("semantic service error")
)

// ServiceError is an error payload or non-success status from a semantic service.
type ServiceError struct {
	Status  int
	Message string
}

func (e *ServiceError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("semantic service error (status %d): %s", e.Status, e.Message)
	}
	return fmt.Sprintf("semantic service error: %s", e.Message)
}

func (e *ServiceError) Is(target error) bool {
	return target == ErrService
}
