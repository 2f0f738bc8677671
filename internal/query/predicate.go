package query

import (
	"fmt"
	"strconv"
	"strings"
)

// Dialect selects the textual filter syntax a semantic service expects.
type Dialect int

const (
	// DialectPlain renders bare dimension names: tenant_id = 42.
	DialectPlain Dialect = iota
	// DialectDBT renders MetricFlow templates: {{ Dimension('tenant_id') }} = 42.
	DialectDBT
)

// ParseDialect maps a configuration value to a Dialect.
func ParseDialect(s string) (Dialect, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "plain":
		return DialectPlain, nil
	case "dbt":
		return DialectDBT, nil
	default:
		return DialectPlain, fmt.Errorf("unknown filter dialect %q", s)
	}
}

func (d Dialect) String() string {
	if d == DialectDBT {
		return "dbt"
	}
	return "plain"
}

// Predicate is a boolean filter over dimensions.
type Predicate interface {
	render(b *strings.Builder, d Dialect)
}

// And is satisfied when every child is.
type And []Predicate

// Or is satisfied when any child is.
type Or []Predicate

// Clause is opaque filter text supplied by the model.
type Clause string

// Equals compares a dimension with a literal.
type Equals struct {
	Dimension string
	Value     string
}

// Between bounds a dimension inclusively.
type Between struct {
	Dimension string
	Low       string
	High      string
}

// TenantClause scopes a request to one tenant. Only the Enforcer creates it.
type TenantClause struct {
	Dimension string
	TenantID  string
}

// Render serializes p for the given dialect. A nil predicate renders empty.
func Render(p Predicate, d Dialect) string {
	if p == nil {
		return ""
	}
	var b strings.Builder
	p.render(&b, d)
	return b.String()
}

func (a And) render(b *strings.Builder, d Dialect) {
	renderJoined(b, d, []Predicate(a), " AND ", func(child Predicate) bool {
		switch child.(type) {
		case Or, Clause:
			return len(a) > 1
		}
		return false
	})
}

func (o Or) render(b *strings.Builder, d Dialect) {
	renderJoined(b, d, []Predicate(o), " OR ", func(child Predicate) bool {
		switch child.(type) {
		case And, Between, Clause:
			return len(o) > 1
		}
		return false
	})
}

func renderJoined(b *strings.Builder, d Dialect, children []Predicate, sep string, parens func(Predicate) bool) {
	first := true
	for _, child := range children {
		if child == nil {
			continue
		}
		if !first {
			b.WriteString(sep)
		}
		first = false
		if parens(child) {
			b.WriteByte('(')
			child.render(b, d)
			b.WriteByte(')')
			continue
		}
		child.render(b, d)
	}
}

func (c Clause) render(b *strings.Builder, _ Dialect) {
	b.WriteString(strings.TrimSpace(string(c)))
}

func (e Equals) render(b *strings.Builder, d Dialect) {
	b.WriteString(dimensionRef(e.Dimension, d))
	b.WriteString(" = ")
	b.WriteString(literal(e.Value))
}

func (e Between) render(b *strings.Builder, d Dialect) {
	ref := dimensionRef(e.Dimension, d)
	b.WriteString(ref)
	b.WriteString(" >= ")
	b.WriteString(literal(e.Low))
	b.WriteString(" AND ")
	b.WriteString(ref)
	b.WriteString(" <= ")
	b.WriteString(literal(e.High))
}

func (t TenantClause) render(b *strings.Builder, d Dialect) {
	b.WriteString(dimensionRef(t.Dimension, d))
	b.WriteString(" = ")
	b.WriteString(literal(t.TenantID))
}

func dimensionRef(name string, d Dialect) string {
	if d == DialectDBT {
		return "{{ Dimension('" + name + "') }}"
	}
	return name
}

// literal renders numbers bare and everything else single-quoted.
func literal(v string) string {
	if isNumber(v) {
		return v
	}
	return "'" + strings.ReplaceAll(v, "'", "''") + "'"
}

func isNumber(v string) bool {
	if v == "" {
		return false
	}
	for i, r := range v {
		if (r < '0' || r > '9') && r != '.' && !(i == 0 && r == '-') {
			return false
		}
	}
	_, err := strconv.ParseFloat(v, 64)
	return err == nil
}

// Conjoin AND-composes predicates, skipping nils and flattening nested Ands.
func Conjoin(ps ...Predicate) Predicate {
	var out And
	for _, p := range ps {
		switch v := p.(type) {
		case nil:
		case And:
			for _, child := range v {
				if child != nil {
					out = append(out, child)
				}
			}
		default:
			out = append(out, v)
		}
	}
	switch len(out) {
	case 0:
		return nil
	case 1:
		return out[0]
	default:
		return out
	}
}

// Walk visits p and every descendant, depth first.
func Walk(p Predicate, fn func(Predicate)) {
	if p == nil {
		return
	}
	fn(p)
	switch v := p.(type) {
	case And:
		for _, child := range v {
			Walk(child, fn)
		}
	case Or:
		for _, child := range v {
			Walk(child, fn)
		}
	}
}

// Without returns p with every node matching drop removed.
// Composites left empty are removed too.
func Without(p Predicate, drop func(Predicate) bool) Predicate {
	if p == nil || drop(p) {
		return nil
	}
	switch v := p.(type) {
	case And:
		var kept And
		for _, child := range v {
			if c := Without(child, drop); c != nil {
				kept = append(kept, c)
			}
		}
		return compact(kept)
	case Or:
		var kept Or
		for _, child := range v {
			if c := Without(child, drop); c != nil {
				kept = append(kept, c)
			}
		}
		switch len(kept) {
		case 0:
			return nil
		case 1:
			return kept[0]
		default:
			return kept
		}
	default:
		return p
	}
}

func compact(a And) Predicate {
	switch len(a) {
	case 0:
		return nil
	case 1:
		return a[0]
	default:
		return a
	}
}

// conjuncts returns the top-level AND terms of p.
func conjuncts(p Predicate) []Predicate {
	switch v := p.(type) {
	case nil:
		return nil
	case And:
		var out []Predicate
		for _, child := range v {
			out = append(out, conjuncts(child)...)
		}
		return out
	default:
		return []Predicate{p}
	}
}
