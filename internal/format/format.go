// Package format turns query results into chat replies.
package format

import (
	"fmt"
	"math"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/rpggio/benefits-portal/internal/query"
)

// Kind is the shape of a formatted response.
type Kind string

const (
	KindScalar Kind = "scalar"
	KindTable  Kind = "table"
	KindEmpty  Kind = "empty"
)

// NoDataText is returned for every empty result.
const NoDataText = "I didn't find any data for your query. This might be because there are no records matching your criteria."

// Payload is the structured part of a response shown by the UI.
type Payload struct {
	Metric  string      `json:"metric,omitempty"`
	Value   any         `json:"value,omitempty"`
	Display string      `json:"display,omitempty"`
	Columns []string    `json:"columns,omitempty"`
	Rows    []query.Row `json:"rows,omitempty"`
}

// Response is a formatted reply.
type Response struct {
	Kind    Kind     `json:"kind"`
	Text    string   `json:"text"`
	Payload *Payload `json:"payload,omitempty"`
}

var currencyMetrics = map[string]bool{
	"deductible_met":        true,
	"oop_spent":             true,
	"total_claims":          true,
	"paid_amount":           true,
	"member_responsibility": true,
}

var identityColumns = []string{"tenant_id", "company_id", "member_id", "employee_id"}

// view is the masked input every rule sees.
type view struct {
	question string
	metrics  []string
	groupBy  []string
	columns  []string
	rows     []query.Row
}

type rule struct {
	name   string
	match  func(v view) bool
	render func(v view) Response
}

// Formatter renders results with an ordered rule table. The first matching rule wins.
type Formatter struct {
	masked map[string]bool
	rules  []rule
}

// New creates a Formatter that also hides tenantDimension.
func New(tenantDimension string) *Formatter {
	masked := make(map[string]bool, len(identityColumns)+1)
	for _, c := range identityColumns {
		masked[c] = true
	}
	if tenantDimension != "" {
		masked[tenantDimension] = true
	}
	f := &Formatter{masked: masked}
	f.rules = []rule{
		{name: "empty", match: isEmpty, render: renderEmpty},
		{name: "scalar", match: isScalar, render: renderScalar},
		{name: "table", match: func(view) bool { return true }, render: renderTable},
	}
	return f
}

// Format renders result for req. The output depends only on its inputs.
func (f *Formatter) Format(result *query.Result, req query.Request, question string) Response {
	v := f.mask(result, req, question)
	for _, r := range f.rules {
		if r.match(v) {
			return r.render(v)
		}
	}
	return renderEmpty(v)
}

func (f *Formatter) mask(result *query.Result, req query.Request, question string) view {
	v := view{question: strings.ToLower(question)}
	for _, m := range req.Metrics {
		if !f.masked[m] {
			v.metrics = append(v.metrics, m)
		}
	}
	for _, g := range req.GroupBy {
		if !f.masked[g.Name] {
			v.groupBy = append(v.groupBy, g.Name)
		}
	}
	if result == nil {
		return v
	}

	columns := result.Columns
	if len(columns) == 0 {
		columns = req.Columns()
	}
	for _, c := range columns {
		if !f.masked[c] {
			v.columns = append(v.columns, c)
		}
	}
	for _, row := range result.Rows {
		clean := make(query.Row, len(row))
		for k, val := range row {
			if !f.masked[k] {
				clean[k] = val
			}
		}
		v.rows = append(v.rows, clean)
	}
	return v
}

func isEmpty(v view) bool {
	if len(v.rows) == 0 || len(v.columns) == 0 {
		return true
	}
	for _, row := range v.rows {
		for _, c := range v.columns {
			if row[c] != nil {
				return false
			}
		}
	}
	return true
}

func isScalar(v view) bool {
	return len(v.rows) == 1 && len(v.metrics) == 1 && v.rows[0][v.metrics[0]] != nil
}

func renderEmpty(view) Response {
	return Response{Kind: KindEmpty, Text: NoDataText}
}

func renderScalar(v view) Response {
	metric := v.metrics[0]
	value := v.rows[0][metric]
	display := Value(metric, value)

	// Templates are keyed on the question.
	var text string
	switch q := v.question; {
	case strings.Contains(q, "deductible"):
		text = fmt.Sprintf("You have met **%s** of your deductible so far this year.", display)
	case strings.Contains(q, "out-of-pocket") || strings.Contains(q, "oop"):
		text = fmt.Sprintf("Your out-of-pocket spending this year is **%s**.", display)
	case strings.Contains(q, "claims") && strings.Contains(metric, "count"):
		text = fmt.Sprintf("You have **%s** claims on record.", display)
	default:
		text = fmt.Sprintf("Your **%s** is **%s**.", Title(metric), display)
	}
	return Response{
		Kind: KindScalar,
		Text: text,
		Payload: &Payload{
			Metric:  metric,
			Value:   value,
			Display: display,
		},
	}
}

func renderTable(v view) Response {
	metrics := strings.Join(v.metrics, ", ")
	var text string
	if len(v.groupBy) > 0 {
		text = fmt.Sprintf("Here's your **%s** broken down by **%s**:", metrics, strings.Join(v.groupBy, ", "))
	} else {
		text = fmt.Sprintf("Here are your **%s** results:", metrics)
	}
	return Response{
		Kind: KindTable,
		Text: text,
		Payload: &Payload{
			Columns: v.columns,
			Rows:    v.rows,
		},
	}
}

// Value renders a metric value for display: currency metrics get a dollar
// sign and cents, whole numbers get thousands separators.
func Value(metric string, value any) string {
	n, ok := number(value)
	if !ok {
		return fmt.Sprint(value)
	}
	if currencyMetrics[metric] {
		if n < 0 {
			return "-$" + humanize.FormatFloat("#,###.##", -n)
		}
		return "$" + humanize.FormatFloat("#,###.##", n)
	}
	if n == math.Trunc(n) && math.Abs(n) < 1e15 {
		return humanize.Comma(int64(n))
	}
	return humanize.FormatFloat("#,###.##", n)
}

// Title turns a snake_case name into title case words.
func Title(name string) string {
	words := strings.FieldsFunc(name, func(r rune) bool { return r == '_' || r == ' ' })
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

func number(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case int32:
		return float64(n), true
	default:
		return 0, false
	}
}
