package session

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rpggio/benefits-portal/internal/repository"
	"golang.org/x/crypto/bcrypt"
)

// Service handles session lifecycle.
type Service struct {
	directory Directory
	sessions  Repository
	ttl       time.Duration
	now       func() time.Time
	logger    *slog.Logger
}

// NewService creates a new session service.
func NewService(directory Directory, sessions Repository, ttl time.Duration, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Service{
		directory: directory,
		sessions:  sessions,
		ttl:       ttl,
		now:       time.Now,
		logger:    logger,
	}
}

// SetClock overrides the time source.
func (s *Service) SetClock(now func() time.Time) {
	s.now = now
}

// Login authenticates a member and issues an opaque bearer token.
func (s *Service) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, ErrInvalidInput
	}

	member, err := s.directory.GetMemberByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("loading member: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(member.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	if member.TenantID == "" {
		s.logger.Warn("member has no tenant", "member_id", member.ID)
		return nil, ErrInvalidCredentials
	}

	company, err := s.directory.GetCompany(ctx, member.TenantID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.logger.Warn("member tenant missing", "member_id", member.ID, "tenant_id", member.TenantID)
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("loading company: %w", err)
	}

	profile := Profile{
		FirstName:   member.FirstName,
		LastName:    member.LastName,
		Email:       member.Email,
		Department:  member.Department,
		PlanID:      member.PlanID,
		IsPrimary:   member.IsPrimary,
		CompanyName: company.Name,
		Industry:    company.Industry,
		BrandColor:  company.BrandColor,
		LogoURL:     company.LogoURL,
	}
	if member.PlanID != "" {
		plan, err := s.directory.GetPlan(ctx, member.PlanID)
		switch {
		case err == nil:
			profile.PlanType = plan.PlanType
		case errors.Is(err, repository.ErrNotFound):
		default:
			return nil, fmt.Errorf("loading plan: %w", err)
		}
	}

	now := s.now()
	sess := &Session{
		ID:        uuid.NewString(),
		TenantID:  member.TenantID,
		MemberID:  member.ID,
		Profile:   profile,
		IssuedAt:  now,
		ExpiresAt: now.Add(s.ttl),
	}
	token := uuid.NewString()
	if err := s.sessions.Create(ctx, sess, HashToken(token)); err != nil {
		return nil, fmt.Errorf("creating session: %w", err)
	}

	s.logger.Info("member logged in", "member_id", member.ID, "tenant_id", member.TenantID)
	return &LoginResult{Token: token, Session: sess}, nil
}

// Resolve returns the live session for a bearer token.
func (s *Service) Resolve(ctx context.Context, token string) (*Session, error) {
	if token == "" {
		return nil, ErrSessionNotFound
	}

	sess, err := s.sessions.GetByTokenHash(ctx, HashToken(token))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("loading session: %w", err)
	}
	if sess.Expired(s.now()) {
		if err := s.sessions.Delete(ctx, sess.ID); err != nil && !errors.Is(err, repository.ErrNotFound) {
			s.logger.Warn("failed to delete expired session", "error", err)
		}
		return nil, ErrSessionExpired
	}
	if err := sess.Validate(); err != nil {
		return nil, err
	}
	return sess, nil
}

// Logout destroys a session. Its conversation goes with it.
func (s *Service) Logout(ctx context.Context, sess *Session) error {
	if sess == nil || sess.ID == "" {
		return ErrInvalidInput
	}
	if err := s.sessions.Delete(ctx, sess.ID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrSessionNotFound
		}
		return fmt.Errorf("deleting session: %w", err)
	}
	return nil
}

// PurgeExpired removes every session past its expiry.
func (s *Service) PurgeExpired(ctx context.Context) (int64, error) {
	n, err := s.sessions.DeleteExpired(ctx, s.now())
	if err != nil {
		return 0, fmt.Errorf("purging sessions: %w", err)
	}
	if n > 0 {
		s.logger.Debug("purged expired sessions", "count", n)
	}
	return n, nil
}

// HashToken returns the stored form of a bearer token.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
