package mcp

import (
	"errors"
	"fmt"

	"github.com/rpggio/benefits-portal/internal/assistant"
	"github.com/rpggio/benefits-portal/internal/domain/session"
)

// APIError represents an MCP tool error.
type APIError struct {
	Code         string `json:"code"`
	Message      string `json:"message"`
	RecoveryHint string `json:"recovery_hint,omitempty"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// MapError maps domain errors to MCP error codes. Unknown errors become a
// generic INTERNAL error so internal detail never reaches the agent.
func MapError(err error) *APIError {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, assistant.ErrBusy):
		return &APIError{Code: "BUSY", Message: "a question is already in flight", RecoveryHint: "Wait for the previous answer"}
	case errors.Is(err, session.ErrSessionExpired):
		return &APIError{Code: "SESSION_EXPIRED", Message: "session expired", RecoveryHint: "Log in again"}
	case errors.Is(err, session.ErrSessionNotFound), errors.Is(err, session.ErrInvalidSession):
		return &APIError{Code: "UNAUTHENTICATED", Message: "no valid session", RecoveryHint: "Log in and pass the bearer token"}
	default:
		return &APIError{Code: "INTERNAL", Message: "request failed"}
	}
}
