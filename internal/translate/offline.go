package translate

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"strings"

	"github.com/rpggio/benefits-portal/internal/query"
	"github.com/sashabaranov/go-openai"
)

// OfflineCompleter answers with keyword matching instead of a hosted model.
// It emits the same function calls a model would, so the rest of the
// pipeline runs unchanged in demos and tests.
type OfflineCompleter struct{}

type keywordRule struct {
	keywords []string
	metric   string
	groupBy  string
}

// Rules are checked in order; the first metric match wins.
var metricRules = []keywordRule{
	{keywords: []string{"deductible"}, metric: "deductible_met"},
	{keywords: []string{"out-of-pocket", "out of pocket", " oop"}, metric: "oop_spent"},
	{keywords: []string{"by type", "claim type", "type of claim", "kinds of claims"}, metric: "claims_by_type", groupBy: "claim_type"},
	{keywords: []string{"how many claims", "number of claims", "claim count", "count of claims"}, metric: "claim_count"},
	{keywords: []string{"owe", "responsibility", "my share"}, metric: "member_responsibility"},
	{keywords: []string{"plan paid", "plan pay", "paid amount", "insurance paid", "covered"}, metric: "paid_amount"},
	{keywords: []string{"total claims", "claims total", "billed", "spent on claims", "claim costs"}, metric: "total_claims"},
}

var groupRules = []keywordRule{
	{keywords: []string{"by status", "claim status", "approved", "denied", "pending"}, groupBy: "claim_status"},
	{keywords: []string{"by provider", "per provider", "which provider", "providers"}, groupBy: "provider_name"},
	{keywords: []string{"by department", "per department"}, groupBy: "department"},
}

var grainRules = []struct {
	keywords []string
	grain    query.Grain
}{
	{keywords: []string{"daily", "by day", "per day"}, grain: query.GrainDay},
	{keywords: []string{"weekly", "by week", "per week"}, grain: query.GrainWeek},
	{keywords: []string{"monthly", "by month", "per month", "last month", "each month"}, grain: query.GrainMonth},
	{keywords: []string{"quarterly", "by quarter", "per quarter"}, grain: query.GrainQuarter},
	{keywords: []string{"yearly", "by year", "per year", "annually"}, grain: query.GrainYear},
}

// CreateChatCompletion implements ChatCompleter.
func (OfflineCompleter) CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	if err := ctx.Err(); err != nil {
		return openai.ChatCompletionResponse{}, err
	}
	question := " " + strings.ToLower(lastUserMessage(req.Messages)) + " "
	metrics := toolEnum(req.Tools)

	args, ok := match(question)
	if !ok || (len(metrics) > 0 && !slices.Contains(metrics, args.Metrics[0])) {
		return reply(req.Model, clarification(metrics)), nil
	}

	data, err := json.Marshal(args)
	if err != nil {
		return openai.ChatCompletionResponse{}, err
	}
	return openai.ChatCompletionResponse{
		Model: req.Model,
		Choices: []openai.ChatCompletionChoice{{
			Message: openai.ChatCompletionMessage{
				Role: openai.ChatMessageRoleAssistant,
				ToolCalls: []openai.ToolCall{{
					ID:   "call_offline",
					Type: openai.ToolTypeFunction,
					Function: openai.FunctionCall{
						Name:      ToolName,
						Arguments: string(data),
					},
				}},
			},
			FinishReason: openai.FinishReasonToolCalls,
		}},
	}, nil
}

func match(question string) (query.Arguments, bool) {
	var args query.Arguments
	for _, r := range metricRules {
		if containsAny(question, r.keywords) {
			args.Metrics = []string{r.metric}
			if r.groupBy != "" {
				args.GroupBy = append(args.GroupBy, query.GroupByArg{Name: r.groupBy})
			}
			break
		}
	}
	if len(args.Metrics) == 0 {
		return query.Arguments{}, false
	}

	for _, r := range groupRules {
		if containsAny(question, r.keywords) && !hasGroup(args, r.groupBy) {
			args.GroupBy = append(args.GroupBy, query.GroupByArg{Name: r.groupBy})
		}
	}
	for _, r := range grainRules {
		if containsAny(question, r.keywords) {
			args.GroupBy = append(args.GroupBy, query.GroupByArg{Name: "claim_date", Grain: string(r.grain)})
			args.OrderBy = append(args.OrderBy, query.OrderByArg{Name: "claim_date"})
			break
		}
	}
	return args, true
}

func hasGroup(args query.Arguments, name string) bool {
	for _, g := range args.GroupBy {
		if g.Name == name {
			return true
		}
	}
	return false
}

func containsAny(s string, keywords []string) bool {
	for _, k := range keywords {
		if strings.Contains(s, k) {
			return true
		}
	}
	return false
}

func lastUserMessage(msgs []openai.ChatCompletionMessage) string {
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Role == openai.ChatMessageRoleUser {
			return msgs[i].Content
		}
	}
	return ""
}

// toolEnum extracts the metric enum from the query_metrics declaration.
func toolEnum(tools []openai.Tool) []string {
	for _, tool := range tools {
		if tool.Function == nil || tool.Function.Name != ToolName {
			continue
		}
		params, _ := tool.Function.Parameters.(map[string]any)
		props, _ := params["properties"].(map[string]any)
		metrics, _ := props["metrics"].(map[string]any)
		items, _ := metrics["items"].(map[string]any)
		enum, _ := items["enum"].([]string)
		return enum
	}
	return nil
}

func clarification(metrics []string) string {
	if len(metrics) == 0 {
		return "Could you rephrase that? I can answer questions about your claims, deductible and out-of-pocket spending."
	}
	return fmt.Sprintf("Could you rephrase that? I can report on %s.", strings.Join(metrics, ", "))
}

func reply(model, text string) openai.ChatCompletionResponse {
	return openai.ChatCompletionResponse{
		Model: model,
		Choices: []openai.ChatCompletionChoice{{
			Message:      openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: text},
			FinishReason: openai.FinishReasonStop,
		}},
	}
}
