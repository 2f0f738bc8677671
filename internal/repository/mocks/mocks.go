package mocks

import (
	"context"
	"time"

	"github.com/rpggio/benefits-portal/internal/domain/conversation"
	"github.com/rpggio/benefits-portal/internal/domain/session"
	"github.com/rpggio/benefits-portal/internal/domain/tenant"
	"github.com/stretchr/testify/mock"
)

// TenantRepository is a mock for tenant.Repository and session.Directory.
type TenantRepository struct {
	mock.Mock
}

func (m *TenantRepository) GetMember(ctx context.Context, id string) (*tenant.Member, error) {
	args := m.Called(ctx, id)
	if member, ok := args.Get(0).(*tenant.Member); ok {
		return member, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *TenantRepository) GetMemberByEmail(ctx context.Context, email string) (*tenant.Member, error) {
	args := m.Called(ctx, email)
	if member, ok := args.Get(0).(*tenant.Member); ok {
		return member, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *TenantRepository) GetCompany(ctx context.Context, id string) (*tenant.Company, error) {
	args := m.Called(ctx, id)
	if company, ok := args.Get(0).(*tenant.Company); ok {
		return company, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *TenantRepository) GetPlan(ctx context.Context, id string) (*tenant.Plan, error) {
	args := m.Called(ctx, id)
	if plan, ok := args.Get(0).(*tenant.Plan); ok {
		return plan, args.Error(1)
	}
	return nil, args.Error(1)
}

// SessionRepository is a mock for session.Repository.
type SessionRepository struct {
	mock.Mock
}

func (m *SessionRepository) Create(ctx context.Context, sess *session.Session, tokenHash string) error {
	args := m.Called(ctx, sess, tokenHash)
	return args.Error(0)
}

func (m *SessionRepository) GetByTokenHash(ctx context.Context, tokenHash string) (*session.Session, error) {
	args := m.Called(ctx, tokenHash)
	if sess, ok := args.Get(0).(*session.Session); ok {
		return sess, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *SessionRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *SessionRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	args := m.Called(ctx, now)
	return args.Get(0).(int64), args.Error(1)
}

// ConversationRepository is a mock for conversation.Repository.
type ConversationRepository struct {
	mock.Mock
}

func (m *ConversationRepository) Append(ctx context.Context, turn *conversation.Turn) error {
	args := m.Called(ctx, turn)
	return args.Error(0)
}

func (m *ConversationRepository) List(ctx context.Context, sessionID string, opts conversation.ListOptions) ([]conversation.Turn, error) {
	args := m.Called(ctx, sessionID, opts)
	if turns, ok := args.Get(0).([]conversation.Turn); ok {
		return turns, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *ConversationRepository) Clear(ctx context.Context, sessionID string) error {
	args := m.Called(ctx, sessionID)
	return args.Error(0)
}
