package semantic_test

import (
	"context"
	"testing"

	"github.com/rpggio/benefits-portal/internal/query"
	"github.com/rpggio/benefits-portal/internal/semantic"
	"github.com/stretchr/testify/require"
)

func TestSample_Query_Deterministic(t *testing.T) {
	s := semantic.NewSample()
	ctx := context.Background()

	first, err := s.Query(ctx, scopedRequest("42"))
	require.NoError(t, err)
	second, err := s.Query(ctx, scopedRequest("42"))
	require.NoError(t, err)
	require.Equal(t, first, second)
	require.Len(t, first.Rows, 4)

	other, err := s.Query(ctx, scopedRequest("7"))
	require.NoError(t, err)
	require.NotEqual(t, first.Rows, other.Rows)
}

func TestSample_Query_Scalar(t *testing.T) {
	s := semantic.NewSample()
	req := query.Request{
		Metrics: []string{"deductible_met", "claim_count"},
		Where:   query.TenantClause{Dimension: "tenant_id", TenantID: "42"},
	}

	result, err := s.Query(context.Background(), req)
	require.NoError(t, err)
	require.Len(t, result.Rows, 1)
	require.IsType(t, float64(0), result.Rows[0]["deductible_met"])
	require.IsType(t, int64(0), result.Rows[0]["claim_count"])
}

func TestSample_Query_TimeGrainOrderAndLimit(t *testing.T) {
	s := semantic.NewSample()
	req := query.Request{
		Metrics: []string{"paid_amount"},
		GroupBy: []query.GroupBy{{Name: "claim_date", Grain: query.GrainQuarter}},
		Where:   query.TenantClause{Dimension: "tenant_id", TenantID: "42"},
	}

	result, err := s.Query(context.Background(), req)
	require.NoError(t, err)
	require.Len(t, result.Rows, 4)
	require.Equal(t, "2024-01-01", result.Rows[0]["claim_date"])
	require.Equal(t, "2024-10-01", result.Rows[3]["claim_date"])

	req.OrderBy = []query.OrderBy{{Name: "paid_amount", Descending: true}}
	req.Limit = 2
	result, err = s.Query(context.Background(), req)
	require.NoError(t, err)
	require.Len(t, result.Rows, 2)
	require.GreaterOrEqual(t, result.Rows[0]["paid_amount"].(float64), result.Rows[1]["paid_amount"].(float64))
}

func TestSample_Query_RequiresTenant(t *testing.T) {
	s := semantic.NewSample()
	_, err := s.Query(context.Background(), query.Request{Metrics: []string{"paid_amount"}})
	require.ErrorIs(t, err, semantic.ErrService)

	req := scopedRequest("42")
	req.Metrics = []string{"churn_rate"}
	_, err = s.Query(context.Background(), req)
	require.ErrorIs(t, err, semantic.ErrService)

	req = scopedRequest("42")
	req.GroupBy = []query.GroupBy{{Name: "zip_code"}}
	_, err = s.Query(context.Background(), req)
	require.ErrorIs(t, err, semantic.ErrService)
}

func TestSample_CompiledSQL(t *testing.T) {
	s := semantic.NewSample()
	sql, err := s.CompiledSQL(context.Background(), scopedRequest("42"))
	require.NoError(t, err)
	require.Contains(t, sql, "where tenant_id = 42")
	require.Contains(t, sql, "group by claim_type")
	require.Contains(t, sql, "limit 10")
}
