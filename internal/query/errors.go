package query

import (
	"errors"
	"fmt"
)

var (
	// ErrConfiguration marks failures that must abort a request rather than run it unscoped.
	ErrConfiguration = errors.New("configuration error")
	// ErrInvalidArguments indicates structurally invalid query arguments.
	ErrInvalidArguments = errors.New("invalid query arguments")
	// ErrUnknownMetric indicates a metric absent from the catalog.
	ErrUnknownMetric = errors.New("unknown metric")
	// ErrUnknownDimension indicates a dimension absent from the catalog.
	ErrUnknownDimension = errors.New("unknown dimension")
	// ErrUnsafeFilter indicates a filter that touches tenant identity or carries statement syntax.
	ErrUnsafeFilter = errors.New("unsafe filter")
)

// ConfigurationError is a fatal, request-scoped configuration problem.
type ConfigurationError struct {
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error: %s", e.Reason)
}

func (e *ConfigurationError) Is(target error) bool {
	return target == ErrConfiguration
}

// Configuration returns a ConfigurationError with the given reason.
func Configuration(reason string) error {
	return &ConfigurationError{Reason: reason}
}
