package translate

import (
	"errors"
	"fmt"
)

var (
	// ErrTranslation marks a question the model could not turn into a valid query.
	ErrTranslation = errors.New("translation failed")
	// ErrModelUnavailable marks a failed or timed out language model call.
	ErrModelUnavailable = errors.New("language model unavailable")
)

// TranslationError describes why a model response was rejected.
type TranslationError struct {
	Reason string
	Err    error
}

func (e *TranslationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("translation failed: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("translation failed: %s", e.Reason)
}

func (e *TranslationError) Is(target error) bool {
	return target == ErrTranslation
}

func (e *TranslationError) Unwrap() error {
	return e.Err
}
