package conversation

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/rpggio/benefits-portal/internal/domain/session"
)

// Service records the append-only conversation of each session.
type Service struct {
	repo   Repository
	logger *slog.Logger
}

// NewService creates a new conversation service.
func NewService(repo Repository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Service{repo: repo, logger: logger}
}

// Append stores a turn for the session. Payload is marshaled as JSON when set.
func (s *Service) Append(ctx context.Context, sess *session.Session, role Role, kind, text string, payload any) (*Turn, error) {
	if err := sess.Validate(); err != nil {
		return nil, err
	}
	if role != RoleUser && role != RoleAssistant {
		return nil, ErrInvalidInput
	}

	turn := &Turn{
		ID:        uuid.NewString(),
		SessionID: sess.ID,
		TenantID:  sess.TenantID,
		Role:      role,
		Kind:      kind,
		Text:      text,
		CreatedAt: time.Now(),
	}
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			s.logger.WarnContext(ctx, "conversation payload not encodable", "session_id", sess.ID, "kind", kind, "error", err)
			return nil, fmt.Errorf("encoding payload: %w", err)
		}
		turn.Payload = data
	}

	if err := s.repo.Append(ctx, turn); err != nil {
		s.logger.ErrorContext(ctx, "failed to append turn", "session_id", sess.ID, "tenant_id", sess.TenantID, "error", err)
		return nil, fmt.Errorf("appending turn: %w", err)
	}
	return turn, nil
}

// History returns the session's turns, oldest first.
func (s *Service) History(ctx context.Context, sess *session.Session, opts ListOptions) ([]Turn, error) {
	if err := sess.Validate(); err != nil {
		return nil, err
	}
	turns, err := s.repo.List(ctx, sess.ID, opts)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to list turns", "session_id", sess.ID, "error", err)
		return nil, fmt.Errorf("listing turns: %w", err)
	}
	return turns, nil
}

// Clear drops the session's conversation.
func (s *Service) Clear(ctx context.Context, sess *session.Session) error {
	if err := sess.Validate(); err != nil {
		return err
	}
	if err := s.repo.Clear(ctx, sess.ID); err != nil {
		s.logger.ErrorContext(ctx, "failed to clear turns", "session_id", sess.ID, "error", err)
		return fmt.Errorf("clearing turns: %w", err)
	}
	s.logger.DebugContext(ctx, "conversation cleared", "session_id", sess.ID)
	return nil
}
