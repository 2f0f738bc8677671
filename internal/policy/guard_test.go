package policy_test

import (
	"context"
	"testing"

	"github.com/rpggio/benefits-portal/internal/policy"
	"github.com/stretchr/testify/require"
)

func TestGuard_Check(t *testing.T) {
	ctx := context.Background()
	guard, err := policy.NewGuard(ctx, "")
	require.NoError(t, err)

	valid := policy.Input{
		Tenant:       "42",
		TenantValues: []string{"42"},
		Metrics:      []string{"paid_amount"},
		Limit:        100,
		MaxLimit:     500,
		Channel:      "primary",
	}
	require.NoError(t, guard.Check(ctx, valid))

	cases := []struct {
		name   string
		mutate func(in *policy.Input)
		reason string
	}{
		{name: "no tenant filter", mutate: func(in *policy.Input) { in.TenantValues = nil }, reason: "expected exactly one tenant filter, found 0"},
		{name: "two tenant filters", mutate: func(in *policy.Input) { in.TenantValues = []string{"42", "42"} }, reason: "expected exactly one tenant filter, found 2"},
		{name: "foreign tenant", mutate: func(in *policy.Input) { in.TenantValues = []string{"7"} }, reason: "tenant filter 7 does not match session tenant"},
		{name: "empty session tenant", mutate: func(in *policy.Input) { in.Tenant = "" }, reason: "session has no tenant"},
		{name: "no metrics", mutate: func(in *policy.Input) { in.Metrics = nil }, reason: "no metrics requested"},
		{name: "zero limit", mutate: func(in *policy.Input) { in.Limit = 0 }, reason: "limit must be positive"},
		{name: "over limit", mutate: func(in *policy.Input) { in.Limit = 501 }, reason: "limit 501 exceeds maximum 500"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			in := valid
			tc.mutate(&in)
			err := guard.Check(ctx, in)
			require.ErrorIs(t, err, policy.ErrDenied)

			var denied *policy.DeniedError
			require.ErrorAs(t, err, &denied)
			require.Contains(t, denied.Reasons, tc.reason)
		})
	}
}

func TestNewGuard_InvalidModule(t *testing.T) {
	_, err := policy.NewGuard(context.Background(), "package broken\ndeny[msg] {")
	require.Error(t, err)
}

func TestGuard_CustomModule(t *testing.T) {
	ctx := context.Background()
	guard, err := policy.NewGuard(ctx, `
package portal.query

deny[msg] {
	input.channel == "fallback"
	msg := "fallback disabled"
}
`)
	require.NoError(t, err)

	require.NoError(t, guard.Check(ctx, policy.Input{Channel: "primary"}))
	require.ErrorIs(t, guard.Check(ctx, policy.Input{Channel: "fallback"}), policy.ErrDenied)
}
