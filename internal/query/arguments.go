package query

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// Arguments is the raw argument object of a query_metrics call.
type Arguments struct {
	Metrics []string     `json:"metrics" validate:"required,min=1,dive,required"`
	GroupBy []GroupByArg `json:"group_by,omitempty" validate:"dive"`
	Where   string       `json:"where,omitempty"`
	OrderBy []OrderByArg `json:"order_by,omitempty" validate:"dive"`
	Limit   int          `json:"limit,omitempty" validate:"gte=0"`
}

// GroupByArg names a dimension to group by, with an optional time grain.
type GroupByArg struct {
	Name  string `json:"name" validate:"required"`
	Grain string `json:"grain,omitempty" validate:"omitempty,oneof=day week month quarter year"`
}

// OrderByArg names a metric or dimension to sort by.
type OrderByArg struct {
	Name       string `json:"name" validate:"required"`
	Descending bool   `json:"descending,omitempty"`
}

// Vocabulary answers which metric and dimension names exist.
type Vocabulary interface {
	HasMetric(name string) bool
	HasDimension(name string) bool
}

// ParseArguments decodes and structurally validates a JSON argument object.
func ParseArguments(raw string) (Arguments, error) {
	var args Arguments
	if err := json.Unmarshal([]byte(raw), &args); err != nil {
		return Arguments{}, fmt.Errorf("%w: %v", ErrInvalidArguments, err)
	}
	if err := validate.Struct(args); err != nil {
		return Arguments{}, fmt.Errorf("%w: %v", ErrInvalidArguments, err)
	}
	return args, nil
}

// Resolve checks every name against vocab and builds a Request.
// The tenant dimension and other identity fields may not appear in the filter.
func (a Arguments) Resolve(vocab Vocabulary, tenantDimension string) (Request, error) {
	var req Request

	seen := make(map[string]bool, len(a.Metrics))
	for _, m := range a.Metrics {
		m = strings.TrimSpace(m)
		if !vocab.HasMetric(m) {
			return Request{}, fmt.Errorf("%w: %q", ErrUnknownMetric, m)
		}
		if seen[m] {
			continue
		}
		seen[m] = true
		req.Metrics = append(req.Metrics, m)
	}

	for _, g := range a.GroupBy {
		name := strings.TrimSpace(g.Name)
		if !vocab.HasDimension(name) {
			return Request{}, fmt.Errorf("%w: %q", ErrUnknownDimension, name)
		}
		req.GroupBy = append(req.GroupBy, GroupBy{Name: name, Grain: Grain(g.Grain)})
	}

	for _, o := range a.OrderBy {
		name := strings.TrimSpace(o.Name)
		if !vocab.HasMetric(name) && !vocab.HasDimension(name) {
			return Request{}, fmt.Errorf("%w: order field %q", ErrUnknownDimension, name)
		}
		req.OrderBy = append(req.OrderBy, OrderBy{Name: name, Descending: o.Descending})
	}

	if where := strings.TrimSpace(a.Where); where != "" {
		if err := checkFilter(where, tenantDimension); err != nil {
			return Request{}, err
		}
		req.Where = Clause(where)
	}

	req.Limit = a.Limit
	return req, nil
}

var (
	statementTokens = []string{";", "--", "/*", "*/"}
	identityFields  = []string{"tenant_id", "company_id", "member_id", "employee_id"}
	mutatingWords   = regexp.MustCompile(`(?i)\b(drop|delete|insert|update|alter|truncate|grant)\b`)
)

func checkFilter(where, tenantDimension string) error {
	lower := strings.ToLower(where)
	for _, tok := range statementTokens {
		if strings.Contains(lower, tok) {
			return fmt.Errorf("%w: statement syntax %q", ErrUnsafeFilter, tok)
		}
	}
	fields := identityFields
	if tenantDimension != "" {
		fields = append([]string{strings.ToLower(tenantDimension)}, identityFields...)
	}
	for _, f := range fields {
		if strings.Contains(lower, f) {
			return fmt.Errorf("%w: references %s", ErrUnsafeFilter, f)
		}
	}
	if mutatingWords.MatchString(where) {
		return fmt.Errorf("%w: mutating keyword", ErrUnsafeFilter)
	}
	return checkBalanced(where)
}

// checkBalanced rejects filters whose parentheses or quotes do not pair up,
// so a filter always stays inside its own group once rendered. Parens inside
// string literals are ignored and a doubled quote is an escaped quote.
func checkBalanced(where string) error {
	var (
		depth int
		quote rune
	)
	runes := []rune(where)
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		if quote != 0 {
			if r == quote {
				if i+1 < len(runes) && runes[i+1] == quote {
					i++
					continue
				}
				quote = 0
			}
			continue
		}
		switch r {
		case '\'', '"':
			quote = r
		case '(':
			depth++
		case ')':
			depth--
			if depth < 0 {
				return fmt.Errorf("%w: unbalanced parentheses", ErrUnsafeFilter)
			}
		}
	}
	if quote != 0 {
		return fmt.Errorf("%w: unterminated string", ErrUnsafeFilter)
	}
	if depth != 0 {
		return fmt.Errorf("%w: unbalanced parentheses", ErrUnsafeFilter)
	}
	return nil
}
