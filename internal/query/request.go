// Package query defines structured metric queries and their tenant scoping.
package query

// Grain is the bucketing resolution applied to a time dimension.
type Grain string

const (
	GrainDay     Grain = "day"
	GrainWeek    Grain = "week"
	GrainMonth   Grain = "month"
	GrainQuarter Grain = "quarter"
	GrainYear    Grain = "year"
)

// Grains lists every supported grain, finest first.
var Grains = []Grain{GrainDay, GrainWeek, GrainMonth, GrainQuarter, GrainYear}

// Valid reports whether g is empty or a supported grain.
func (g Grain) Valid() bool {
	if g == "" {
		return true
	}
	for _, known := range Grains {
		if g == known {
			return true
		}
	}
	return false
}

// GroupBy names a grouping dimension and an optional time grain.
type GroupBy struct {
	Name  string
	Grain Grain
}

// OrderBy names a sort field.
type OrderBy struct {
	Name       string
	Descending bool
}

// Request is a normalized, executable metric query.
type Request struct {
	Metrics []string
	GroupBy []GroupBy
	Where   Predicate
	OrderBy []OrderBy
	// Limit of zero means the executor default applies.
	Limit int
}

// Columns returns the metrics followed by the group-by dimensions, without duplicates.
func (r Request) Columns() []string {
	seen := make(map[string]bool, len(r.Metrics)+len(r.GroupBy))
	cols := make([]string, 0, len(r.Metrics)+len(r.GroupBy))
	for _, m := range r.Metrics {
		if !seen[m] {
			seen[m] = true
			cols = append(cols, m)
		}
	}
	for _, g := range r.GroupBy {
		if !seen[g.Name] {
			seen[g.Name] = true
			cols = append(cols, g.Name)
		}
	}
	return cols
}
