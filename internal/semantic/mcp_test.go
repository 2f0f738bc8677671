package semantic_test

import (
	"context"
	"encoding/json"
	"sync/atomic"
	"testing"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rpggio/benefits-portal/internal/semantic"
	"github.com/stretchr/testify/require"
)

type dimensionsInput struct {
	Metrics []string `json:"metrics"`
}

func textResult(text string) *sdkmcp.CallToolResult {
	return &sdkmcp.CallToolResult{Content: []sdkmcp.Content{&sdkmcp.TextContent{Text: text}}}
}

// newSemanticServer starts an in-memory MCP server whose query tool replies with reply.
func newSemanticServer(t *testing.T, reply func(semantic.WireRequest) *sdkmcp.CallToolResult) (semantic.TransportFactory, *atomic.Int32) {
	t.Helper()
	server := sdkmcp.NewServer(&sdkmcp.Implementation{Name: "semantic-test", Version: "0.0.1"}, nil)

	sdkmcp.AddTool(server, &sdkmcp.Tool{Name: semantic.ToolQueryMetrics, Description: "Query metrics"},
		func(ctx context.Context, req *sdkmcp.CallToolRequest, in semantic.WireRequest) (*sdkmcp.CallToolResult, any, error) {
			return reply(in), nil, nil
		})
	sdkmcp.AddTool(server, &sdkmcp.Tool{Name: semantic.ToolListMetrics, Description: "List metrics"},
		func(ctx context.Context, req *sdkmcp.CallToolRequest, in struct{}) (*sdkmcp.CallToolResult, any, error) {
			return textResult(`["paid_amount","oop_spent"]`), nil, nil
		})
	sdkmcp.AddTool(server, &sdkmcp.Tool{Name: semantic.ToolGetDimensions, Description: "Get dimensions"},
		func(ctx context.Context, req *sdkmcp.CallToolRequest, in dimensionsInput) (*sdkmcp.CallToolResult, any, error) {
			return textResult(`[{"name":"claim_date","type":"time"},{"name":"claim_type"}]`), nil, nil
		})

	var connects atomic.Int32
	factory := func() sdkmcp.Transport {
		connects.Add(1)
		serverSide, clientSide := sdkmcp.NewInMemoryTransports()
		_, err := server.Connect(context.Background(), serverSide, nil)
		require.NoError(t, err)
		return clientSide
	}
	return factory, &connects
}

func TestMCPChannel_Query(t *testing.T) {
	var seen semantic.WireRequest
	factory, connects := newSemanticServer(t, func(in semantic.WireRequest) *sdkmcp.CallToolResult {
		seen = in
		rows, _ := json.Marshal([]map[string]any{{"claim_type": "Medical", "paid_amount": 10.5}})
		return textResult(string(rows))
	})

	ch, err := semantic.NewMCPChannel(semantic.MCPConfig{Transport: factory})
	require.NoError(t, err)
	t.Cleanup(func() { _ = ch.Close() })

	result, err := ch.Query(context.Background(), scopedRequest("42"))
	require.NoError(t, err)
	require.Len(t, result.Rows, 1)
	require.Equal(t, "Medical", result.Rows[0]["claim_type"])
	require.Equal(t, "tenant_id = 42", seen.Where)

	_, err = ch.Query(context.Background(), scopedRequest("42"))
	require.NoError(t, err)
	require.Equal(t, int32(1), connects.Load())
}

func TestMCPChannel_Query_ErrorText(t *testing.T) {
	cases := []struct {
		name  string
		reply *sdkmcp.CallToolResult
	}{
		{name: "is error", reply: &sdkmcp.CallToolResult{IsError: true, Content: []sdkmcp.Content{&sdkmcp.TextContent{Text: "boom"}}}},
		{name: "error prefix", reply: textResult("Error: metric paid_amount not found")},
		{name: "errors prefix", reply: textResult("errors: [invalid where]")},
		{name: "decode failure", reply: textResult("Expecting value: line 1 column 1")},
		{name: "empty", reply: textResult("")},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			factory, _ := newSemanticServer(t, func(semantic.WireRequest) *sdkmcp.CallToolResult { return tc.reply })
			ch, err := semantic.NewMCPChannel(semantic.MCPConfig{Transport: factory})
			require.NoError(t, err)
			t.Cleanup(func() { _ = ch.Close() })

			_, err = ch.Query(context.Background(), scopedRequest("42"))
			require.ErrorIs(t, err, semantic.ErrService)
		})
	}
}

func TestMCPChannel_Catalog(t *testing.T) {
	factory, _ := newSemanticServer(t, func(semantic.WireRequest) *sdkmcp.CallToolResult { return textResult("[]") })
	ch, err := semantic.NewMCPChannel(semantic.MCPConfig{Transport: factory})
	require.NoError(t, err)
	t.Cleanup(func() { _ = ch.Close() })

	metrics, err := ch.ListMetrics(context.Background())
	require.NoError(t, err)
	require.Len(t, metrics, 2)
	require.Equal(t, "oop_spent", metrics[1].Name)

	dims, err := ch.ListDimensions(context.Background(), []string{"paid_amount"})
	require.NoError(t, err)
	require.Len(t, dims, 2)
	require.Equal(t, "claim_date", dims[0].Name)
}

func TestNewMCPChannel_RequiresTransport(t *testing.T) {
	_, err := semantic.NewMCPChannel(semantic.MCPConfig{})
	require.ErrorIs(t, err, semantic.ErrNotConfigured)
}
