package query_test

import (
	"testing"

	"github.com/rpggio/benefits-portal/internal/query"
	"github.com/stretchr/testify/require"
)

type vocab struct {
	metrics    []string
	dimensions []string
}

func (v vocab) HasMetric(name string) bool {
	for _, m := range v.metrics {
		if m == name {
			return true
		}
	}
	return false
}

func (v vocab) HasDimension(name string) bool {
	for _, d := range v.dimensions {
		if d == name {
			return true
		}
	}
	return false
}

var testVocab = vocab{
	metrics:    []string{"deductible_met", "total_claims", "claims_by_type"},
	dimensions: []string{"claim_date", "claim_type"},
}

func TestParseArguments(t *testing.T) {
	args, err := query.ParseArguments(`{"metrics":["total_claims"],"group_by":[{"name":"claim_date","grain":"month"}],"order_by":[{"name":"claim_date"}],"limit":12}`)
	require.NoError(t, err)

	req, err := args.Resolve(testVocab, "tenant_id")
	require.NoError(t, err)
	require.Equal(t, []string{"total_claims"}, req.Metrics)
	require.Equal(t, []query.GroupBy{{Name: "claim_date", Grain: query.GrainMonth}}, req.GroupBy)
	require.Equal(t, []query.OrderBy{{Name: "claim_date"}}, req.OrderBy)
	require.Equal(t, 12, req.Limit)
	require.Nil(t, req.Where)
	require.Equal(t, []string{"total_claims", "claim_date"}, req.Columns())
}

func TestParseArguments_Invalid(t *testing.T) {
	cases := map[string]string{
		"not json":     `{"metrics":`,
		"no metrics":   `{"metrics":[]}`,
		"empty metric": `{"metrics":[""]}`,
		"bad grain":    `{"metrics":["total_claims"],"group_by":[{"name":"claim_date","grain":"hour"}]}`,
		"negative":     `{"metrics":["total_claims"],"limit":-1}`,
		"missing name": `{"metrics":["total_claims"],"order_by":[{"descending":true}]}`,
		"wrong type":   `{"metrics":"total_claims"}`,
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := query.ParseArguments(raw)
			require.ErrorIs(t, err, query.ErrInvalidArguments)
		})
	}
}

func TestResolve_Rejections(t *testing.T) {
	cases := []struct {
		name string
		args query.Arguments
		want error
	}{
		{name: "unknown metric", args: query.Arguments{Metrics: []string{"premium_revenue"}}, want: query.ErrUnknownMetric},
		{name: "unknown dimension", args: query.Arguments{Metrics: []string{"total_claims"}, GroupBy: []query.GroupByArg{{Name: "zip_code"}}}, want: query.ErrUnknownDimension},
		{name: "unknown order", args: query.Arguments{Metrics: []string{"total_claims"}, OrderBy: []query.OrderByArg{{Name: "zip_code"}}}, want: query.ErrUnknownDimension},
		{name: "tenant in filter", args: query.Arguments{Metrics: []string{"total_claims"}, Where: "tenant_id = 7"}, want: query.ErrUnsafeFilter},
		{name: "company in filter", args: query.Arguments{Metrics: []string{"total_claims"}, Where: "{{ Dimension('company_id') }} = 7"}, want: query.ErrUnsafeFilter},
		{name: "custom tenant dimension", args: query.Arguments{Metrics: []string{"total_claims"}, Where: "org_key = 7"}, want: query.ErrUnsafeFilter},
		{name: "statement separator", args: query.Arguments{Metrics: []string{"total_claims"}, Where: "claim_type = 'x'; select 1"}, want: query.ErrUnsafeFilter},
		{name: "comment", args: query.Arguments{Metrics: []string{"total_claims"}, Where: "claim_type = 'x' --"}, want: query.ErrUnsafeFilter},
		{name: "mutating keyword", args: query.Arguments{Metrics: []string{"total_claims"}, Where: "claim_type = 'x' or drop table"}, want: query.ErrUnsafeFilter},
		{name: "closes unopened paren", args: query.Arguments{Metrics: []string{"total_claims"}, Where: "claim_status = 'Approved') OR (1 = 1"}, want: query.ErrUnsafeFilter},
		{name: "unclosed paren", args: query.Arguments{Metrics: []string{"total_claims"}, Where: "(claim_status = 'Approved' OR 1 = 1"}, want: query.ErrUnsafeFilter},
		{name: "unterminated string", args: query.Arguments{Metrics: []string{"total_claims"}, Where: "claim_status = 'Approved"}, want: query.ErrUnsafeFilter},
		{name: "unterminated quoted name", args: query.Arguments{Metrics: []string{"total_claims"}, Where: "\"claim_status = 'x'"}, want: query.ErrUnsafeFilter},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			dim := "tenant_id"
			if tc.name == "custom tenant dimension" {
				dim = "org_key"
			}
			_, err := tc.args.Resolve(testVocab, dim)
			require.ErrorIs(t, err, tc.want)
		})
	}
}

func TestResolve_AcceptsBalancedFilters(t *testing.T) {
	for _, where := range []string{
		"(claim_status = 'Approved' OR claim_status = 'Pending') AND claim_type = 'Medical'",
		"provider_name = 'Smith (West)'",
		"provider_name = 'O''Brien)'",
		"{{ Dimension('claim_type') }} = 'Dental'",
	} {
		t.Run(where, func(t *testing.T) {
			_, err := query.Arguments{Metrics: []string{"total_claims"}, Where: where}.Resolve(testVocab, "tenant_id")
			require.NoError(t, err)
		})
	}
}

func TestResolve_KeepsFilterAndDedupesMetrics(t *testing.T) {
	args := query.Arguments{
		Metrics: []string{"total_claims", "total_claims", "deductible_met"},
		Where:   " claim_type = 'Medical' ",
	}
	req, err := args.Resolve(testVocab, "tenant_id")
	require.NoError(t, err)
	require.Equal(t, []string{"total_claims", "deductible_met"}, req.Metrics)
	require.Equal(t, query.Clause("claim_type = 'Medical'"), req.Where)
}
