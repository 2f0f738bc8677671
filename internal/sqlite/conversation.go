package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/rpggio/benefits-portal/internal/domain/conversation"
	"github.com/rpggio/benefits-portal/internal/repository"
)

// ConversationRepository implements conversation.Repository for SQLite
type ConversationRepository struct {
	db *DB
}

// NewConversationRepository creates a new ConversationRepository
func NewConversationRepository(db *DB) *ConversationRepository {
	return &ConversationRepository{db: db}
}

// Append stores a turn at the end of its session's log
func (r *ConversationRepository) Append(ctx context.Context, turn *conversation.Turn) error {
	var payload any
	if len(turn.Payload) > 0 {
		payload = string(turn.Payload)
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO conversation_turns (id, session_id, tenant_id, role, kind, text, payload, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`,
		turn.ID,
		turn.SessionID,
		turn.TenantID,
		turn.Role,
		turn.Kind,
		turn.Text,
		payload,
		turn.CreatedAt.UnixMilli(),
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return repository.ErrForeignKeyViolation
		}
		return fmt.Errorf("failed to append turn: %w", err)
	}
	return nil
}

// List returns the most recent turns of a session, oldest first.
// A zero limit returns every turn.
func (r *ConversationRepository) List(ctx context.Context, sessionID string, opts conversation.ListOptions) ([]conversation.Turn, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = -1
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, session_id, tenant_id, role, kind, text, payload, created_at
		FROM (
			SELECT * FROM conversation_turns
			WHERE session_id = ?
			ORDER BY seq DESC
			LIMIT ?
		)
		ORDER BY seq ASC
	`, sessionID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list turns: %w", err)
	}
	defer rows.Close()

	var turns []conversation.Turn
	for rows.Next() {
		var t conversation.Turn
		var payload *string
		var createdAt int64
		if err := rows.Scan(&t.ID, &t.SessionID, &t.TenantID, &t.Role, &t.Kind, &t.Text, &payload, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan turn: %w", err)
		}
		if payload != nil {
			t.Payload = []byte(*payload)
		}
		t.CreatedAt = time.UnixMilli(createdAt)
		turns = append(turns, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate turns: %w", err)
	}
	return turns, nil
}

// Clear removes every turn of a session
func (r *ConversationRepository) Clear(ctx context.Context, sessionID string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM conversation_turns WHERE session_id = ?`, sessionID); err != nil {
		return fmt.Errorf("failed to clear turns: %w", err)
	}
	return nil
}
