package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rpggio/benefits-portal/internal/catalog"
	"github.com/rpggio/benefits-portal/internal/domain/session"
)

// Tool names.
const (
	ToolAskQuestion = "ask_question"
	ToolListMetrics = "list_metrics"
	ToolQuickStats  = "quick_stats"
)

type askInput struct {
	Question string `json:"question" jsonschema:"the member's question in plain language"`
}

type emptyInput struct{}

type catalogOutput struct {
	Metrics    []catalog.Metric    `json:"metrics"`
	Dimensions []catalog.Dimension `json:"dimensions"`
	Origin     catalog.Origin      `json:"origin"`
}

func registerTools(server *sdkmcp.Server, svc Assistant) {
	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        ToolAskQuestion,
		Description: "Answer a question about the member's own benefits and claims data",
	}, func(ctx context.Context, _ *sdkmcp.CallToolRequest, in askInput) (*sdkmcp.CallToolResult, any, error) {
		sess, err := requireSession(ctx)
		if err != nil {
			return nil, nil, err
		}
		reply, err := svc.Ask(ctx, sess, in.Question)
		if err != nil {
			return nil, nil, MapError(err)
		}
		return structuredResult(reply.Text, reply)
	})

	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        ToolListMetrics,
		Description: "List the metrics and dimensions questions can be asked about",
	}, func(ctx context.Context, _ *sdkmcp.CallToolRequest, _ emptyInput) (*sdkmcp.CallToolResult, any, error) {
		if _, err := requireSession(ctx); err != nil {
			return nil, nil, err
		}
		cat := svc.Catalog(ctx)
		if cat == nil {
			cat = &catalog.Catalog{}
		}
		out := catalogOutput{Metrics: cat.Metrics, Dimensions: cat.Dimensions, Origin: cat.Origin}
		return structuredResult("", out)
	})

	sdkmcp.AddTool(server, &sdkmcp.Tool{
		Name:        ToolQuickStats,
		Description: "Summarize the member's plan, deductible progress, out-of-pocket spend and claims by type",
	}, func(ctx context.Context, _ *sdkmcp.CallToolRequest, _ emptyInput) (*sdkmcp.CallToolResult, any, error) {
		sess, err := requireSession(ctx)
		if err != nil {
			return nil, nil, err
		}
		summary, err := svc.QuickStats(ctx, sess)
		if err != nil {
			return nil, nil, MapError(err)
		}
		return structuredResult("", summary)
	})
}

func requireSession(ctx context.Context) (*session.Session, error) {
	sess := getSession(ctx)
	if err := sess.Validate(); err != nil {
		return nil, MapError(err)
	}
	return sess, nil
}

// structuredResult returns v as structured content. The text content is
// text when set, otherwise the JSON encoding of v.
func structuredResult(text string, v any) (*sdkmcp.CallToolResult, any, error) {
	if text == "" {
		data, err := json.Marshal(v)
		if err != nil {
			return nil, nil, fmt.Errorf("encoding result: %w", err)
		}
		text = string(data)
	}
	return &sdkmcp.CallToolResult{
		Content:           []sdkmcp.Content{&sdkmcp.TextContent{Text: text}},
		StructuredContent: v,
	}, nil, nil
}
