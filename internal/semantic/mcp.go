package semantic

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os/exec"
	"strings"
	"sync"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rpggio/benefits-portal/internal/catalog"
	"github.com/rpggio/benefits-portal/internal/query"
)

// Tool names exposed by the semantic layer's MCP server.
const (
	ToolQueryMetrics  = "query_metrics"
	ToolListMetrics   = "list_metrics"
	ToolGetDimensions = "get_dimensions"
)

// TransportFactory builds a fresh MCP transport for each connection attempt.
type TransportFactory func() sdkmcp.Transport

// CommandTransport launches the MCP server as a subprocess speaking stdio.
func CommandTransport(command string, args ...string) TransportFactory {
	return func() sdkmcp.Transport {
		return &sdkmcp.CommandTransport{Command: exec.Command(command, args...)}
	}
}

// StreamableTransport connects to an MCP server over streamable HTTP.
func StreamableTransport(endpoint string, httpClient *http.Client) TransportFactory {
	return func() sdkmcp.Transport {
		return &sdkmcp.StreamableClientTransport{Endpoint: endpoint, HTTPClient: httpClient}
	}
}

// MCPConfig configures an MCPChannel.
type MCPConfig struct {
	Transport TransportFactory
	Dialect   query.Dialect
	Logger    *slog.Logger
}

// MCPChannel queries the semantic layer through its MCP tools. It is the
// secondary query interface used when the HTTP service fails.
type MCPChannel struct {
	client    *sdkmcp.Client
	transport TransportFactory
	dialect   query.Dialect
	logger    *slog.Logger

	mu      sync.Mutex
	session *sdkmcp.ClientSession
}

// NewMCPChannel creates a lazily connected MCP channel.
func NewMCPChannel(cfg MCPConfig) (*MCPChannel, error) {
	if cfg.Transport == nil {
		return nil, ErrNotConfigured
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	client := sdkmcp.NewClient(&sdkmcp.Implementation{
		Name:    "benefits-portal",
		Version: "0.1.0",
	}, nil)
	return &MCPChannel{
		client:    client,
		transport: cfg.Transport,
		dialect:   cfg.Dialect,
		logger:    logger,
	}, nil
}

// Query runs req through the query_metrics tool.
func (c *MCPChannel) Query(ctx context.Context, req query.Request) (*query.Result, error) {
	text, err := c.callTool(ctx, ToolQueryMetrics, NewWireRequest(req, c.dialect))
	if err != nil {
		return nil, err
	}
	rows, err := decodeRows([]byte(text))
	if err != nil {
		return nil, err
	}
	return query.NewResult(req, rows), nil
}

// ListMetrics reads the catalog through the list_metrics tool.
func (c *MCPChannel) ListMetrics(ctx context.Context) ([]catalog.Metric, error) {
	text, err := c.callTool(ctx, ToolListMetrics, map[string]any{})
	if err != nil {
		return nil, err
	}
	var payload []metricPayload
	if err := decodeNamed([]byte(text), &payload); err != nil {
		return nil, err
	}
	return toMetrics(payload), nil
}

// ListDimensions reads dimensions through the get_dimensions tool.
func (c *MCPChannel) ListDimensions(ctx context.Context, metrics []string) ([]catalog.Dimension, error) {
	text, err := c.callTool(ctx, ToolGetDimensions, map[string]any{"metrics": metrics})
	if err != nil {
		return nil, err
	}
	var payload []dimensionPayload
	if err := decodeNamed([]byte(text), &payload); err != nil {
		return nil, err
	}
	return toDimensions(payload), nil
}

// Close ends the MCP session, if any.
func (c *MCPChannel) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == nil {
		return nil
	}
	err := c.session.Close()
	c.session = nil
	return err
}

func (c *MCPChannel) connect(ctx context.Context) (*sdkmcp.ClientSession, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session != nil {
		return c.session, nil
	}
	session, err := c.client.Connect(ctx, c.transport(), nil)
	if err != nil {
		return nil, fmt.Errorf("connecting to semantic mcp server: %w", err)
	}
	c.session = session
	return session, nil
}

// drop forgets a session that failed at the transport level so the next call reconnects.
func (c *MCPChannel) drop(session *sdkmcp.ClientSession) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == session {
		_ = c.session.Close()
		c.session = nil
	}
}

func (c *MCPChannel) callTool(ctx context.Context, name string, args any) (string, error) {
	session, err := c.connect(ctx)
	if err != nil {
		return "", err
	}

	result, err := session.CallTool(ctx, &sdkmcp.CallToolParams{
		Name:      name,
		Arguments: args,
	})
	if err != nil {
		if ctx.Err() == nil {
			c.drop(session)
		}
		return "", fmt.Errorf("calling %s: %w", name, err)
	}

	text := toolText(result)
	if result.IsError {
		return "", &ServiceError{Message: firstLine(text)}
	}
	if isErrorText(text) {
		return "", &ServiceError{Message: firstLine(text)}
	}
	c.logger.Debug("semantic mcp call", "tool", name, "bytes", len(text))
	return text, nil
}

func toolText(result *sdkmcp.CallToolResult) string {
	var b strings.Builder
	for _, content := range result.Content {
		if tc, ok := content.(*sdkmcp.TextContent); ok {
			b.WriteString(tc.Text)
		}
	}
	return strings.TrimSpace(b.String())
}

// isErrorText recognizes error strings the semantic MCP server returns as ordinary text.
func isErrorText(text string) bool {
	if text == "" {
		return true
	}
	for _, prefix := range []string{"Error", "errors", "Expecting value"} {
		if strings.HasPrefix(text, prefix) {
			return true
		}
	}
	return false
}

func firstLine(text string) string {
	if text == "" {
		return "empty tool response"
	}
	if i := strings.IndexByte(text, '\n'); i >= 0 {
		return text[:i]
	}
	return text
}

// decodeNamed accepts an array of objects, an array of bare names, or either wrapped under data.
func decodeNamed[T metricPayload | dimensionPayload](raw []byte, out *[]T) error {
	var wrapped struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(raw, &wrapped); err == nil && len(wrapped.Data) > 0 {
		raw = wrapped.Data
	}
	if err := json.Unmarshal(raw, out); err == nil {
		return nil
	}
	var names []string
	if err := json.Unmarshal(raw, &names); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	items := make([]T, 0, len(names))
	for _, name := range names {
		var item T
		data, _ := json.Marshal(map[string]string{"name": name})
		if err := json.Unmarshal(data, &item); err != nil {
			return fmt.Errorf("%w: %v", ErrMalformedResponse, err)
		}
		items = append(items, item)
	}
	*out = items
	return nil
}

