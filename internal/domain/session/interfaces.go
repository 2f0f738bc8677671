package session

import (
	"context"
	"time"

	"github.com/rpggio/benefits-portal/internal/domain/tenant"
)

// Repository provides persistence for sessions. Tokens are stored hashed.
type Repository interface {
	Create(ctx context.Context, sess *Session, tokenHash string) error
	GetByTokenHash(ctx context.Context, tokenHash string) (*Session, error)
	Delete(ctx context.Context, id string) error
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// Directory looks up the member and company behind a login.
type Directory interface {
	GetMemberByEmail(ctx context.Context, email string) (*tenant.Member, error)
	GetCompany(ctx context.Context, id string) (*tenant.Company, error)
	GetPlan(ctx context.Context, id string) (*tenant.Plan, error)
}
