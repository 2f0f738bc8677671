package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/rpggio/benefits-portal/internal/domain/tenant"
	"github.com/rpggio/benefits-portal/internal/repository"
)

// TenantRepository implements tenant.Repository and tenant.Writer for SQLite
type TenantRepository struct {
	db *DB
}

// NewTenantRepository creates a new TenantRepository
func NewTenantRepository(db *DB) *TenantRepository {
	return &TenantRepository{db: db}
}

const memberColumns = `id, tenant_id, email, first_name, last_name, department, plan_id, is_primary, password_hash`

// GetMember retrieves a member by ID
func (r *TenantRepository) GetMember(ctx context.Context, id string) (*tenant.Member, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+memberColumns+` FROM members WHERE id = ?`, id)
	return scanMember(row)
}

// GetMemberByEmail retrieves a member by email, ignoring case
func (r *TenantRepository) GetMemberByEmail(ctx context.Context, email string) (*tenant.Member, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+memberColumns+` FROM members WHERE lower(email) = lower(?)`, email)
	return scanMember(row)
}

func scanMember(row *sql.Row) (*tenant.Member, error) {
	var m tenant.Member
	var planID sql.NullString
	err := row.Scan(
		&m.ID,
		&m.TenantID,
		&m.Email,
		&m.FirstName,
		&m.LastName,
		&m.Department,
		&planID,
		&m.IsPrimary,
		&m.PasswordHash,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get member: %w", err)
	}
	m.PlanID = planID.String
	return &m, nil
}

// GetCompany retrieves a company by ID
func (r *TenantRepository) GetCompany(ctx context.Context, id string) (*tenant.Company, error) {
	var c tenant.Company
	err := r.db.QueryRowContext(ctx,
		`SELECT id, name, industry, brand_color, logo_url FROM companies WHERE id = ?`, id,
	).Scan(&c.ID, &c.Name, &c.Industry, &c.BrandColor, &c.LogoURL)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get company: %w", err)
	}
	return &c, nil
}

// GetPlan retrieves a plan by ID
func (r *TenantRepository) GetPlan(ctx context.Context, id string) (*tenant.Plan, error) {
	var p tenant.Plan
	err := r.db.QueryRowContext(ctx,
		`SELECT id, plan_type, deductible, oop_max, monthly_premium FROM plans WHERE id = ?`, id,
	).Scan(&p.ID, &p.PlanType, &p.Deductible, &p.OOPMax, &p.MonthlyPremium)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get plan: %w", err)
	}
	return &p, nil
}

// UpsertCompany inserts or replaces a company
func (r *TenantRepository) UpsertCompany(ctx context.Context, c *tenant.Company) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO companies (id, name, industry, brand_color, logo_url)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			industry = excluded.industry,
			brand_color = excluded.brand_color,
			logo_url = excluded.logo_url
	`, c.ID, c.Name, c.Industry, c.BrandColor, c.LogoURL)
	if err != nil {
		return fmt.Errorf("failed to upsert company: %w", err)
	}
	return nil
}

// UpsertPlan inserts or replaces a plan
func (r *TenantRepository) UpsertPlan(ctx context.Context, p *tenant.Plan) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO plans (id, plan_type, deductible, oop_max, monthly_premium)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			plan_type = excluded.plan_type,
			deductible = excluded.deductible,
			oop_max = excluded.oop_max,
			monthly_premium = excluded.monthly_premium
	`, p.ID, p.PlanType, p.Deductible, p.OOPMax, p.MonthlyPremium)
	if err != nil {
		return fmt.Errorf("failed to upsert plan: %w", err)
	}
	return nil
}

// UpsertMember inserts or replaces a member
func (r *TenantRepository) UpsertMember(ctx context.Context, m *tenant.Member) error {
	var planID any
	if m.PlanID != "" {
		planID = m.PlanID
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO members (`+memberColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			tenant_id = excluded.tenant_id,
			email = excluded.email,
			first_name = excluded.first_name,
			last_name = excluded.last_name,
			department = excluded.department,
			plan_id = excluded.plan_id,
			is_primary = excluded.is_primary,
			password_hash = excluded.password_hash
	`, m.ID, m.TenantID, m.Email, m.FirstName, m.LastName, m.Department, planID, m.IsPrimary, m.PasswordHash)
	if err != nil {
		if isForeignKeyViolation(err) {
			return repository.ErrForeignKeyViolation
		}
		if isUniqueViolation(err) {
			return repository.ErrConflict
		}
		return fmt.Errorf("failed to upsert member: %w", err)
	}
	return nil
}
