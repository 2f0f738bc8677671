package tenant

import "context"

// Repository provides read access to tenant reference data.
type Repository interface {
	GetMember(ctx context.Context, id string) (*Member, error)
	GetMemberByEmail(ctx context.Context, email string) (*Member, error)
	GetCompany(ctx context.Context, id string) (*Company, error)
	GetPlan(ctx context.Context, id string) (*Plan, error)
}

// Writer loads tenant reference data.
type Writer interface {
	UpsertCompany(ctx context.Context, company *Company) error
	UpsertPlan(ctx context.Context, plan *Plan) error
	UpsertMember(ctx context.Context, member *Member) error
}
