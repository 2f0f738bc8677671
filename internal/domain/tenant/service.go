package tenant

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/rpggio/benefits-portal/internal/repository"
)

// Service exposes tenant reference data to the rest of the portal.
type Service struct {
	repo   Repository
	logger *slog.Logger
}

// NewService creates a new tenant service.
func NewService(repo Repository, logger *slog.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

// Member returns a member by ID.
func (s *Service) Member(ctx context.Context, id string) (*Member, error) {
	m, err := s.repo.GetMember(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrMemberNotFound
		}
		return nil, fmt.Errorf("loading member: %w", err)
	}
	return m, nil
}

// MemberByEmail returns a member by login email.
func (s *Service) MemberByEmail(ctx context.Context, email string) (*Member, error) {
	m, err := s.repo.GetMemberByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrMemberNotFound
		}
		return nil, fmt.Errorf("loading member: %w", err)
	}
	return m, nil
}

// Company returns a company by ID.
func (s *Service) Company(ctx context.Context, id string) (*Company, error) {
	c, err := s.repo.GetCompany(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrCompanyNotFound
		}
		return nil, fmt.Errorf("loading company: %w", err)
	}
	return c, nil
}

// Plan returns plan details, or ErrPlanNotFound when the member has none.
func (s *Service) Plan(ctx context.Context, id string) (*Plan, error) {
	if id == "" {
		return nil, ErrPlanNotFound
	}
	p, err := s.repo.GetPlan(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrPlanNotFound
		}
		return nil, fmt.Errorf("loading plan: %w", err)
	}
	return p, nil
}
