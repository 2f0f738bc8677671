// Package policy evaluates query guard rules with OPA before a request leaves the process.
package policy

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/open-policy-agent/opa/rego"
)

// ErrDenied marks a request rejected by the guard policy.
var ErrDenied = errors.New("query denied by policy")

// DeniedError lists the reasons a request was rejected.
type DeniedError struct {
	Reasons []string
}

func (e *DeniedError) Error() string {
	return fmt.Sprintf("query denied by policy: %s", strings.Join(e.Reasons, "; "))
}

func (e *DeniedError) Is(target error) bool {
	return target == ErrDenied
}

// Input is the document the policy sees for one outbound query.
type Input struct {
	Tenant       string   `json:"tenant"`
	TenantValues []string `json:"tenant_values"`
	Metrics      []string `json:"metrics"`
	Limit        int      `json:"limit"`
	MaxLimit     int      `json:"max_limit"`
	Channel      string   `json:"channel"`
}

// Guard is a prepared OPA query over the deny set.
type Guard struct {
	query rego.PreparedEvalQuery
}

// NewGuard compiles module. An empty module selects DefaultPolicy.
func NewGuard(ctx context.Context, module string) (*Guard, error) {
	if strings.TrimSpace(module) == "" {
		module = DefaultPolicy
	}
	r := rego.New(
		rego.Query("data.portal.query.deny"),
		rego.Module("portal_query.rego", module),
	)
	query, err := r.PrepareForEval(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare rego: %w", err)
	}
	return &Guard{query: query}, nil
}

// Check returns a DeniedError when any deny rule fires for in.
func (g *Guard) Check(ctx context.Context, in Input) error {
	if in.TenantValues == nil {
		in.TenantValues = []string{}
	}
	if in.Metrics == nil {
		in.Metrics = []string{}
	}
	results, err := g.query.Eval(ctx, rego.EvalInput(in))
	if err != nil {
		return fmt.Errorf("failed to evaluate policy: %w", err)
	}
	if len(results) == 0 || len(results[0].Expressions) == 0 {
		return nil
	}

	set, ok := results[0].Expressions[0].Value.([]any)
	if !ok {
		return fmt.Errorf("unexpected policy result type %T", results[0].Expressions[0].Value)
	}
	if len(set) == 0 {
		return nil
	}
	reasons := make([]string, 0, len(set))
	for _, v := range set {
		reasons = append(reasons, fmt.Sprint(v))
	}
	sort.Strings(reasons)
	return &DeniedError{Reasons: reasons}
}

// DefaultPolicy enforces single-tenant scoping and row limits.
const DefaultPolicy = `
package portal.query

deny[msg] {
	input.tenant == ""
	msg := "session has no tenant"
}

deny[msg] {
	count(input.tenant_values) != 1
	msg := sprintf("expected exactly one tenant filter, found %d", [count(input.tenant_values)])
}

deny[msg] {
	value := input.tenant_values[_]
	value != input.tenant
	msg := sprintf("tenant filter %v does not match session tenant", [value])
}

deny[msg] {
	count(input.metrics) == 0
	msg := "no metrics requested"
}

deny[msg] {
	input.limit <= 0
	msg := "limit must be positive"
}

deny[msg] {
	input.max_limit > 0
	input.limit > input.max_limit
	msg := sprintf("limit %d exceeds maximum %d", [input.limit, input.max_limit])
}
`
