package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rpggio/benefits-portal/internal/domain/session"
	"github.com/rpggio/benefits-portal/internal/repository"
)

// SessionRepository implements session.Repository for SQLite
type SessionRepository struct {
	db *DB
}

// NewSessionRepository creates a new SessionRepository
func NewSessionRepository(db *DB) *SessionRepository {
	return &SessionRepository{db: db}
}

// Create stores a session under the hash of its bearer token
func (r *SessionRepository) Create(ctx context.Context, sess *session.Session, tokenHash string) error {
	profile, err := json.Marshal(sess.Profile)
	if err != nil {
		return fmt.Errorf("failed to encode profile: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO sessions (id, token_hash, tenant_id, member_id, profile, issued_at, expires_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`,
		sess.ID,
		tokenHash,
		sess.TenantID,
		sess.MemberID,
		string(profile),
		sess.IssuedAt.UnixMilli(),
		sess.ExpiresAt.UnixMilli(),
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return repository.ErrForeignKeyViolation
		}
		if isUniqueViolation(err) {
			return repository.ErrConflict
		}
		return fmt.Errorf("failed to create session: %w", err)
	}
	return nil
}

// GetByTokenHash retrieves a session by token hash
func (r *SessionRepository) GetByTokenHash(ctx context.Context, tokenHash string) (*session.Session, error) {
	var sess session.Session
	var profile string
	var issuedAt, expiresAt int64
	err := r.db.QueryRowContext(ctx, `
		SELECT id, tenant_id, member_id, profile, issued_at, expires_at
		FROM sessions
		WHERE token_hash = ?
	`, tokenHash).Scan(
		&sess.ID,
		&sess.TenantID,
		&sess.MemberID,
		&profile,
		&issuedAt,
		&expiresAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	if err := json.Unmarshal([]byte(profile), &sess.Profile); err != nil {
		return nil, fmt.Errorf("failed to decode profile: %w", err)
	}
	sess.IssuedAt = time.UnixMilli(issuedAt)
	sess.ExpiresAt = time.UnixMilli(expiresAt)
	return &sess, nil
}

// Delete removes a session and, by cascade, its conversation
func (r *SessionRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// DeleteExpired removes every session expired at now
func (r *SessionRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE expires_at <= ?`, now.UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired sessions: %w", err)
	}
	return result.RowsAffected()
}
