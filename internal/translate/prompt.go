package translate

import (
	"fmt"
	"strings"

	"github.com/rpggio/benefits-portal/internal/catalog"
	"github.com/rpggio/benefits-portal/internal/domain/session"
	"github.com/rpggio/benefits-portal/internal/query"
	"github.com/sashabaranov/go-openai"
)

// ToolName is the single function the model may call.
const ToolName = "query_metrics"

// systemPrompt describes the catalog and the member. It carries display
// attributes only; tenant and member identifiers never reach the model.
func systemPrompt(cat *catalog.Catalog, sess *session.Session) string {
	var b strings.Builder
	b.WriteString("You are a benefits analytics assistant for an employee health plan portal.\n")
	b.WriteString("Answer questions about the member's own claims and plan usage by calling the query_metrics tool.\n")
	b.WriteString("If the question is ambiguous or not about available metrics, ask a short clarifying question instead.\n")
	b.WriteString("Never filter on tenant, company, member or employee identifiers; scoping is applied automatically.\n\n")

	p := sess.Profile
	fmt.Fprintf(&b, "Member: %s\n", p.DisplayName())
	if p.CompanyName != "" {
		fmt.Fprintf(&b, "Employer: %s\n", p.CompanyName)
	}
	if p.PlanType != "" {
		fmt.Fprintf(&b, "Plan type: %s\n", p.PlanType)
	}
	if p.Department != "" {
		fmt.Fprintf(&b, "Department: %s\n", p.Department)
	}

	b.WriteString("\nAvailable metrics:\n")
	for _, m := range cat.Metrics {
		writeEntry(&b, m.Name, m.Description)
	}
	b.WriteString("\nAvailable dimensions:\n")
	for _, d := range cat.Dimensions {
		desc := d.Description
		if d.Kind == catalog.DimensionTime {
			desc = strings.TrimSpace(desc + " (time; use a grain of day, week, month, quarter or year)")
		}
		writeEntry(&b, d.Name, desc)
	}
	return b.String()
}

func writeEntry(b *strings.Builder, name, desc string) {
	if desc == "" {
		fmt.Fprintf(b, "- %s\n", name)
		return
	}
	fmt.Fprintf(b, "- %s: %s\n", name, desc)
}

// queryTool declares query_metrics with the catalog's names as enums.
func queryTool(cat *catalog.Catalog) openai.Tool {
	grains := make([]string, 0, len(query.Grains))
	for _, g := range query.Grains {
		grains = append(grains, string(g))
	}
	dimensionSchema := map[string]any{"type": "string"}
	if names := cat.DimensionNames(); len(names) > 0 {
		dimensionSchema["enum"] = names
	}
	orderSchema := map[string]any{"type": "string"}
	if names := append(cat.MetricNames(), cat.DimensionNames()...); len(names) > 0 {
		orderSchema["enum"] = names
	}

	return openai.Tool{
		Type: openai.ToolTypeFunction,
		Function: &openai.FunctionDefinition{
			Name:        ToolName,
			Description: "Query the member's benefits metrics from the semantic layer.",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"metrics": map[string]any{
						"type":        "array",
						"description": "Metric names to compute.",
						"items":       map[string]any{"type": "string", "enum": cat.MetricNames()},
						"minItems":    1,
					},
					"group_by": map[string]any{
						"type":        "array",
						"description": "Dimensions to group by. Time dimensions accept a grain.",
						"items": map[string]any{
							"type": "object",
							"properties": map[string]any{
								"name":  dimensionSchema,
								"grain": map[string]any{"type": "string", "enum": grains},
							},
							"required": []string{"name"},
						},
					},
					"where": map[string]any{
						"type":        "string",
						"description": "Optional filter expression over dimensions, e.g. claim_status = 'Approved'.",
					},
					"order_by": map[string]any{
						"type": "array",
						"items": map[string]any{
							"type": "object",
							"properties": map[string]any{
								"name":       orderSchema,
								"descending": map[string]any{"type": "boolean"},
							},
							"required": []string{"name"},
						},
					},
					"limit": map[string]any{
						"type":        "integer",
						"description": "Maximum number of rows.",
						"minimum":     0,
					},
				},
				"required": []string{"metrics"},
			},
		},
	}
}
