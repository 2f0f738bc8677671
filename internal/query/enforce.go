package query

import (
	"regexp"

	"github.com/rpggio/benefits-portal/internal/domain/session"
)

// TenantPlaceholder replaces the tenant id in SQL shown to members.
const TenantPlaceholder = ":tenant"

// Enforcer scopes requests to the session tenant. It is the only
// component that adds tenant clauses.
type Enforcer struct {
	dimension string
}

// NewEnforcer creates an Enforcer filtering on the given tenant dimension.
func NewEnforcer(dimension string) Enforcer {
	return Enforcer{dimension: dimension}
}

// Dimension returns the tenant dimension name.
func (e Enforcer) Dimension() string {
	return e.dimension
}

// Enforce returns req with exactly one top-level tenant clause for sess,
// AND-composed with whatever filter was already present. Re-enforcing an
// already scoped request returns it unchanged. A request scoped to another
// tenant, or a session without a tenant, is a configuration error.
func (e Enforcer) Enforce(req Request, sess *session.Session) (Request, error) {
	if sess == nil || sess.TenantID == "" {
		return Request{}, Configuration("session has no tenant")
	}
	if e.dimension == "" {
		return Request{}, Configuration("tenant dimension is not configured")
	}

	want := TenantClause{Dimension: e.dimension, TenantID: sess.TenantID}
	clauses := TenantClauses(req.Where)
	for _, c := range clauses {
		if c != want {
			return Request{}, Configuration("request is scoped to a different tenant")
		}
	}
	if len(clauses) == 1 && topLevelTenantClauses(req.Where) == 1 {
		return req, nil
	}

	base := Without(req.Where, isTenantClause)
	req.Where = Conjoin(base, want)
	return req, nil
}

// MaskTenant replaces the tenant id compared against the tenant dimension in
// sql with TenantPlaceholder. Quoted and unquoted ids are both masked, as
// are dimension references wrapped in identifier quotes or templates.
func (e Enforcer) MaskTenant(sql, tenantID string) string {
	if e.dimension == "" || tenantID == "" {
		return sql
	}
	re := regexp.MustCompile(`(?i)(\b` + regexp.QuoteMeta(e.dimension) + `\b[^=\n]{0,8}?=\s*)'?` +
		regexp.QuoteMeta(tenantID) + `'?([^0-9A-Za-z_]|$)`)
	return re.ReplaceAllString(sql, "${1}"+TenantPlaceholder+"${2}")
}

// TenantClauses returns every tenant clause anywhere in p.
func TenantClauses(p Predicate) []TenantClause {
	var out []TenantClause
	Walk(p, func(node Predicate) {
		if tc, ok := node.(TenantClause); ok {
			out = append(out, tc)
		}
	})
	return out
}

// EnforcedTenant returns the tenant a request is scoped to. It reports false
// unless the filter holds exactly one tenant clause as a top-level conjunct.
func EnforcedTenant(req Request) (string, bool) {
	clauses := TenantClauses(req.Where)
	if len(clauses) != 1 || topLevelTenantClauses(req.Where) != 1 {
		return "", false
	}
	return clauses[0].TenantID, true
}

// TenantValues lists the tenant id of every tenant clause in req.
func TenantValues(req Request) []string {
	clauses := TenantClauses(req.Where)
	out := make([]string, 0, len(clauses))
	for _, c := range clauses {
		out = append(out, c.TenantID)
	}
	return out
}

func topLevelTenantClauses(p Predicate) int {
	n := 0
	for _, c := range conjuncts(p) {
		if isTenantClause(c) {
			n++
		}
	}
	return n
}

func isTenantClause(p Predicate) bool {
	_, ok := p.(TenantClause)
	return ok
}
