package executor

import (
	"errors"
	"fmt"
)

// ErrQueryExecution marks a request that no channel could answer.
var ErrQueryExecution = errors.New("query execution failed")

// ExecutionError carries the cause from each channel that was tried.
type ExecutionError struct {
	Primary  error
	Fallback error
}

func (e *ExecutionError) Error() string {
	if e.Fallback == nil {
		return fmt.Sprintf("query execution failed: primary: %v", e.Primary)
	}
	return fmt.Sprintf("query execution failed: primary: %v; fallback: %v", e.Primary, e.Fallback)
}

func (e *ExecutionError) Is(target error) bool {
	return target == ErrQueryExecution
}

func (e *ExecutionError) Unwrap() []error {
	var errs []error
	if e.Primary != nil {
		errs = append(errs, e.Primary)
	}
	if e.Fallback != nil {
		errs = append(errs, e.Fallback)
	}
	return errs
}
