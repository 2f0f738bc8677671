package semantic

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/rpggio/benefits-portal/internal/catalog"
	"github.com/rpggio/benefits-portal/internal/query"
)

// sampleStart is the first period produced for time group-bys.
var sampleStart = time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)

var samplePeriods = map[query.Grain]int{
	query.GrainDay:     30,
	query.GrainWeek:    12,
	query.GrainMonth:   12,
	query.GrainQuarter: 4,
	query.GrainYear:    3,
}

var sampleCategories = map[string][]string{
	"claim_type":    {"Medical", "Dental", "Vision", "Pharmacy"},
	"claim_status":  {"Approved", "Pending", "Denied"},
	"plan_type":     {"PPO", "HMO", "HDHP"},
	"provider_name": {"City Medical Group", "Bright Smile Dental", "ClearView Optometry", "Corner Pharmacy"},
	"department":    {"Engineering", "Finance", "Operations", "Sales"},
}

// sampleScale bounds the generated value of each metric.
var sampleScale = map[string]float64{
	"total_claims":          4000,
	"paid_amount":           3200,
	"member_responsibility": 800,
	"deductible_met":        1500,
	"oop_spent":             2500,
	"claims_by_type":        24,
	"claim_count":           24,
}

var sampleCounts = map[string]bool{
	"claims_by_type": true,
	"claim_count":    true,
}

// Sample is an offline semantic backend that fabricates stable per-tenant
// figures. It serves demos and tests without a hosted service.
type Sample struct{}

// NewSample creates a Sample backend.
func NewSample() *Sample {
	return &Sample{}
}

// ListMetrics returns the built-in metric list.
func (s *Sample) ListMetrics(context.Context) ([]catalog.Metric, error) {
	return catalog.FallbackMetrics(), nil
}

// ListDimensions returns the built-in dimension list.
func (s *Sample) ListDimensions(context.Context, []string) ([]catalog.Dimension, error) {
	return catalog.FallbackDimensions(), nil
}

// Query produces deterministic rows for req. The request must carry exactly one tenant clause.
func (s *Sample) Query(ctx context.Context, req query.Request) (*query.Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	tenant, ok := query.EnforcedTenant(req)
	if !ok {
		return nil, &ServiceError{Message: "query is not scoped to a tenant"}
	}
	for _, m := range req.Metrics {
		if _, known := sampleScale[m]; !known {
			return nil, &ServiceError{Message: fmt.Sprintf("unknown metric %q", m)}
		}
	}

	keys := []query.Row{{}}
	for _, g := range req.GroupBy {
		values, err := groupValues(g)
		if err != nil {
			return nil, err
		}
		next := make([]query.Row, 0, len(keys)*len(values))
		for _, key := range keys {
			for _, v := range values {
				row := make(query.Row, len(key)+1)
				for k, existing := range key {
					row[k] = existing
				}
				row[g.Name] = v
				next = append(next, row)
			}
		}
		keys = next
	}

	rows := make([]query.Row, 0, len(keys))
	for _, key := range keys {
		row := make(query.Row, len(key)+len(req.Metrics))
		for k, v := range key {
			row[k] = v
		}
		for _, m := range req.Metrics {
			row[m] = sampleValue(tenant, m, key)
		}
		rows = append(rows, row)
	}

	sortRows(rows, req.OrderBy)
	if req.Limit > 0 && len(rows) > req.Limit {
		rows = rows[:req.Limit]
	}
	return query.NewResult(req, rows), nil
}

// CompiledSQL renders an illustrative query for req.
func (s *Sample) CompiledSQL(_ context.Context, req query.Request) (string, error) {
	if _, ok := query.EnforcedTenant(req); !ok {
		return "", &ServiceError{Message: "query is not scoped to a tenant"}
	}
	cols := make([]string, 0, len(req.Metrics)+len(req.GroupBy))
	var groups []string
	for _, g := range req.GroupBy {
		name := g.Name
		if g.Grain != "" {
			name = fmt.Sprintf("date_trunc('%s', %s) as %s", g.Grain, g.Name, g.Name)
		}
		cols = append(cols, name)
		groups = append(groups, g.Name)
	}
	for _, m := range req.Metrics {
		cols = append(cols, fmt.Sprintf("sum(%s) as %s", m, m))
	}

	var b strings.Builder
	fmt.Fprintf(&b, "select %s\nfrom claims_semantic", strings.Join(cols, ", "))
	if where := query.Render(req.Where, query.DialectPlain); where != "" {
		fmt.Fprintf(&b, "\nwhere %s", where)
	}
	if len(groups) > 0 {
		fmt.Fprintf(&b, "\ngroup by %s", strings.Join(groups, ", "))
	}
	if len(req.OrderBy) > 0 {
		parts := make([]string, 0, len(req.OrderBy))
		for _, o := range req.OrderBy {
			dir := "asc"
			if o.Descending {
				dir = "desc"
			}
			parts = append(parts, o.Name+" "+dir)
		}
		fmt.Fprintf(&b, "\norder by %s", strings.Join(parts, ", "))
	}
	if req.Limit > 0 {
		fmt.Fprintf(&b, "\nlimit %d", req.Limit)
	}
	return b.String(), nil
}

func groupValues(g query.GroupBy) ([]any, error) {
	if values, ok := sampleCategories[g.Name]; ok {
		out := make([]any, len(values))
		for i, v := range values {
			out[i] = v
		}
		return out, nil
	}
	if g.Name != "claim_date" {
		return nil, &ServiceError{Message: fmt.Sprintf("unknown dimension %q", g.Name)}
	}

	grain := g.Grain
	if grain == "" {
		grain = query.GrainDay
	}
	n, ok := samplePeriods[grain]
	if !ok {
		return nil, &ServiceError{Message: fmt.Sprintf("unsupported grain %q", g.Grain)}
	}
	out := make([]any, n)
	for i := range n {
		out[i] = periodStart(grain, i).Format(time.DateOnly)
	}
	return out, nil
}

func periodStart(grain query.Grain, i int) time.Time {
	switch grain {
	case query.GrainDay:
		return sampleStart.AddDate(0, 0, i)
	case query.GrainWeek:
		return sampleStart.AddDate(0, 0, 7*i)
	case query.GrainQuarter:
		return sampleStart.AddDate(0, 3*i, 0)
	case query.GrainYear:
		return sampleStart.AddDate(i, 0, 0)
	default:
		return sampleStart.AddDate(0, i, 0)
	}
}

func sampleValue(tenant, metric string, key query.Row) any {
	names := make([]string, 0, len(key))
	for k := range key {
		names = append(names, k)
	}
	sort.Strings(names)

	h := fnv.New64a()
	fmt.Fprintf(h, "%s|%s", tenant, metric)
	for _, k := range names {
		fmt.Fprintf(h, "|%s=%v", k, key[k])
	}
	frac := float64(h.Sum64()%10000) / 10000

	scale := sampleScale[metric]
	if sampleCounts[metric] {
		return int64(1 + frac*(scale-1))
	}
	return math.Round(frac*scale*100) / 100
}

func sortRows(rows []query.Row, order []query.OrderBy) {
	if len(order) == 0 {
		return
	}
	sort.SliceStable(rows, func(i, j int) bool {
		for _, o := range order {
			c := compareValues(rows[i][o.Name], rows[j][o.Name])
			if c == 0 {
				continue
			}
			if o.Descending {
				return c > 0
			}
			return c < 0
		}
		return false
	})
}

func compareValues(a, b any) int {
	fa, aNum := toFloat(a)
	fb, bNum := toFloat(b)
	if aNum && bNum {
		switch {
		case fa < fb:
			return -1
		case fa > fb:
			return 1
		default:
			return 0
		}
	}
	return strings.Compare(fmt.Sprint(a), fmt.Sprint(b))
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int64:
		return float64(n), true
	case int:
		return float64(n), true
	default:
		return 0, false
	}
}
