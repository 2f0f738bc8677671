package sqlite

import (
	"context"
	"testing"

	"github.com/rpggio/benefits-portal/internal/domain/tenant"
	"github.com/stretchr/testify/require"
)

// NewTestDB creates a new in-memory SQLite database for testing
func NewTestDB(t *testing.T) *DB {
	t.Helper()

	db, err := New(":memory:")
	require.NoError(t, err, "failed to create test database")

	err = db.RunMigrations()
	require.NoError(t, err, "failed to run migrations")

	t.Cleanup(func() {
		db.Close()
	})

	return db
}

// seedMember inserts a company, a plan and one member of that company.
func seedMember(t *testing.T, db *DB, memberID, tenantID string) {
	t.Helper()
	ctx := context.Background()
	repo := NewTenantRepository(db)
	require.NoError(t, repo.UpsertCompany(ctx, &tenant.Company{ID: tenantID, Name: "Company " + tenantID}))
	require.NoError(t, repo.UpsertPlan(ctx, &tenant.Plan{ID: "plan-" + tenantID, PlanType: "PPO", Deductible: 1500}))
	require.NoError(t, repo.UpsertMember(ctx, &tenant.Member{
		ID:           memberID,
		TenantID:     tenantID,
		Email:        memberID + "@example.test",
		FirstName:    "Test",
		PlanID:       "plan-" + tenantID,
		PasswordHash: "hash",
	}))
}

// TestMigrations verifies that migrations run successfully
func TestMigrations(t *testing.T) {
	db := NewTestDB(t)

	tables := []string{
		"companies",
		"plans",
		"members",
		"sessions",
		"conversation_turns",
	}

	for _, table := range tables {
		var count int
		err := db.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&count)
		require.NoError(t, err, "failed to query table %s", table)
		require.Equal(t, 1, count, "table %s not found", table)
	}

	require.NoError(t, db.RunMigrations(), "migrations must be re-runnable")
}

// TestForeignKeys verifies that foreign key constraints are enabled
func TestForeignKeys(t *testing.T) {
	db := NewTestDB(t)

	var enabled int
	err := db.QueryRow("PRAGMA foreign_keys").Scan(&enabled)
	require.NoError(t, err)
	require.Equal(t, 1, enabled, "foreign keys not enabled")
}
