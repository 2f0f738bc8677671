package tenant_test

import (
	"context"
	"testing"

	"github.com/rpggio/benefits-portal/internal/domain/tenant"
	"github.com/rpggio/benefits-portal/internal/repository"
	"github.com/rpggio/benefits-portal/internal/repository/mocks"
	"github.com/stretchr/testify/require"
)

func TestTenantService_Plan(t *testing.T) {
	ctx := context.Background()
	repo := &mocks.TenantRepository{}
	repo.On("GetPlan", ctx, "p1").Return(&tenant.Plan{ID: "p1", PlanType: "HDHP", Deductible: 3000}, nil)
	repo.On("GetPlan", ctx, "missing").Return(nil, repository.ErrNotFound)

	svc := tenant.NewService(repo, nil)

	plan, err := svc.Plan(ctx, "p1")
	require.NoError(t, err)
	require.Equal(t, "HDHP", plan.PlanType)

	_, err = svc.Plan(ctx, "missing")
	require.ErrorIs(t, err, tenant.ErrPlanNotFound)

	_, err = svc.Plan(ctx, "")
	require.ErrorIs(t, err, tenant.ErrPlanNotFound)
}

func TestTenantService_MemberAndCompany(t *testing.T) {
	ctx := context.Background()
	repo := &mocks.TenantRepository{}
	repo.On("GetMemberByEmail", ctx, "jane@acme.test").Return(&tenant.Member{ID: "m1", TenantID: "42"}, nil)
	repo.On("GetMember", ctx, "m2").Return(nil, repository.ErrNotFound)
	repo.On("GetCompany", ctx, "42").Return(&tenant.Company{ID: "42", Name: "Acme"}, nil)
	repo.On("GetCompany", ctx, "7").Return(nil, repository.ErrNotFound)

	svc := tenant.NewService(repo, nil)

	member, err := svc.MemberByEmail(ctx, "jane@acme.test")
	require.NoError(t, err)
	require.Equal(t, "42", member.TenantID)

	_, err = svc.Member(ctx, "m2")
	require.ErrorIs(t, err, tenant.ErrMemberNotFound)

	company, err := svc.Company(ctx, "42")
	require.NoError(t, err)
	require.Equal(t, "Acme", company.Name)

	_, err = svc.Company(ctx, "7")
	require.ErrorIs(t, err, tenant.ErrCompanyNotFound)
}
