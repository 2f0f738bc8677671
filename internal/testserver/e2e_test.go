package testserver_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"testing"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rpggio/benefits-portal/internal/assistant"
	"github.com/rpggio/benefits-portal/internal/catalog"
	"github.com/rpggio/benefits-portal/internal/domain/conversation"
	"github.com/rpggio/benefits-portal/internal/executor"
	"github.com/rpggio/benefits-portal/internal/mcp"
	"github.com/rpggio/benefits-portal/internal/query"
	"github.com/rpggio/benefits-portal/internal/semantic"
	"github.com/rpggio/benefits-portal/internal/testserver"
	"github.com/stretchr/testify/require"
)

type downChannel struct{}

func (downChannel) Query(context.Context, query.Request) (*query.Result, error) {
	return nil, errors.New("connection refused")
}

func (downChannel) ListMetrics(context.Context) ([]catalog.Metric, error) {
	return nil, errors.New("connection refused")
}

func (downChannel) ListDimensions(context.Context, []string) ([]catalog.Dimension, error) {
	return nil, errors.New("connection refused")
}

func TestEndToEnd_DeductibleQuestion(t *testing.T) {
	ts := testserver.New(t, testserver.Options{})
	token := ts.Login(t, testserver.MemberEmail)

	reply := ts.Ask(t, token, "How much of my deductible have I met?")
	require.Equal(t, assistant.KindScalar, reply.Kind)
	require.Contains(t, reply.Text, "of your deductible so far this year")
	require.Contains(t, reply.Text, "$")
	require.Equal(t, catalog.OriginLive, reply.Trace.CatalogOrigin)
	require.Equal(t, executor.ChannelPrimary, reply.Trace.Channel)

	resp := ts.Do(t, http.MethodGet, "/api/history", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var history struct {
		Turns []conversation.Turn `json:"turns"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&history))
	require.Len(t, history.Turns, 2)
	require.Equal(t, conversation.RoleUser, history.Turns[0].Role)
	require.Equal(t, reply.Text, history.Turns[1].Text)
}

func TestEndToEnd_TableQuestion(t *testing.T) {
	ts := testserver.New(t, testserver.Options{})
	token := ts.Login(t, testserver.MemberEmail)

	reply := ts.Ask(t, token, "Show my claims by type")
	require.Equal(t, assistant.KindTable, reply.Kind)
	require.NotNil(t, reply.Payload)
	require.Len(t, reply.Payload.Rows, 4)
	require.NotContains(t, reply.Payload.Columns, "tenant_id")
	for _, row := range reply.Payload.Rows {
		require.NotContains(t, row, "tenant_id")
	}
}

func TestEndToEnd_TenantIsolation(t *testing.T) {
	ts := testserver.New(t, testserver.Options{})

	first := ts.Ask(t, ts.Login(t, testserver.MemberEmail), "How much of my deductible have I met?")
	second := ts.Ask(t, ts.Login(t, testserver.OtherEmail), "How much of my deductible have I met?")
	again := ts.Ask(t, ts.Login(t, testserver.MemberEmail), "How much of my deductible have I met?")

	require.Equal(t, first.Text, again.Text)
	require.NotEqual(t, first.Payload.Value, second.Payload.Value)
	for _, reply := range []assistant.Reply{first, second} {
		data, err := json.Marshal(reply)
		require.NoError(t, err)
		require.NotContains(t, string(data), "tenant_id")
	}
}

func TestEndToEnd_FallbackChannel(t *testing.T) {
	ts := testserver.New(t, testserver.Options{
		Primary:  downChannel{},
		Fallback: semantic.NewSample(),
	})
	token := ts.Login(t, testserver.MemberEmail)

	reply := ts.Ask(t, token, "What is my out-of-pocket spend?")
	require.Equal(t, assistant.KindScalar, reply.Kind)
	require.Equal(t, executor.ChannelFallback, reply.Trace.Channel)
}

func TestEndToEnd_AllChannelsDown(t *testing.T) {
	ts := testserver.New(t, testserver.Options{
		Primary:  downChannel{},
		Fallback: downChannel{},
		Provider: downChannel{},
	})
	token := ts.Login(t, testserver.MemberEmail)

	reply := ts.Ask(t, token, "How much of my deductible have I met?")
	require.Equal(t, assistant.KindError, reply.Kind)
	require.Equal(t, catalog.OriginFallback, reply.Trace.CatalogOrigin)
	require.NotContains(t, reply.Text, "connection refused")
	require.Nil(t, reply.Payload)

	resp := ts.Do(t, http.MethodGet, "/api/summary", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var summary assistant.Summary
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&summary))
	require.False(t, summary.Available)
	require.Equal(t, "Jane", summary.Profile.FirstName)
}

func TestEndToEnd_Summary(t *testing.T) {
	ts := testserver.New(t, testserver.Options{})
	token := ts.Login(t, testserver.MemberEmail)

	resp := ts.Do(t, http.MethodGet, "/api/summary", token, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var summary assistant.Summary
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&summary))
	require.True(t, summary.Available)
	require.NotNil(t, summary.Plan)
	require.Equal(t, "PPO", summary.Plan.Type)
	require.Len(t, summary.ClaimsByType, 4)
}

func TestEndToEnd_Logout(t *testing.T) {
	ts := testserver.New(t, testserver.Options{})
	token := ts.Login(t, testserver.MemberEmail)
	ts.Ask(t, token, "How much of my deductible have I met?")

	resp := ts.Do(t, http.MethodPost, "/api/logout", token, nil)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp = ts.Do(t, http.MethodGet, "/api/history", token, nil)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	var turns int
	require.NoError(t, ts.DB.QueryRow(`SELECT COUNT(*) FROM conversation_turns`).Scan(&turns))
	require.Zero(t, turns)
}

func TestEndToEnd_LoginRejected(t *testing.T) {
	ts := testserver.New(t, testserver.Options{})

	resp := ts.Do(t, http.MethodPost, "/api/login", "", map[string]string{"email": testserver.MemberEmail, "password": "wrong"})
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = ts.Do(t, http.MethodPost, "/api/chat", "not-a-token", map[string]string{"question": "hi"})
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestEndToEnd_Metrics(t *testing.T) {
	ts := testserver.New(t, testserver.Options{})
	token := ts.Login(t, testserver.MemberEmail)
	ts.Ask(t, token, "How much of my deductible have I met?")

	count, err := testutil.GatherAndCount(ts.Registry, "portal_pipeline_requests_total")
	require.NoError(t, err)
	require.Equal(t, 1, count)

	resp := ts.Do(t, http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Contains(t, string(body), "portal_executor_queries_total")
}

type bearerTransport struct {
	token string
}

func (b bearerTransport) RoundTrip(r *http.Request) (*http.Response, error) {
	r = r.Clone(r.Context())
	r.Header.Set("Authorization", "Bearer "+b.token)
	return http.DefaultTransport.RoundTrip(r)
}

func TestEndToEnd_MCP(t *testing.T) {
	ts := testserver.New(t, testserver.Options{})
	token := ts.Login(t, testserver.MemberEmail)
	ctx := context.Background()

	client := sdkmcp.NewClient(&sdkmcp.Implementation{Name: "e2e", Version: "0.0.1"}, nil)
	cs, err := client.Connect(ctx, &sdkmcp.StreamableClientTransport{
		Endpoint:   ts.Server.URL + "/mcp",
		HTTPClient: &http.Client{Transport: bearerTransport{token: token}},
	}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = cs.Close() })

	res, err := cs.CallTool(ctx, &sdkmcp.CallToolParams{
		Name:      mcp.ToolAskQuestion,
		Arguments: map[string]any{"question": "How much of my deductible have I met?"},
	})
	require.NoError(t, err)
	require.False(t, res.IsError)
	text, ok := res.Content[0].(*sdkmcp.TextContent)
	require.True(t, ok)
	require.Contains(t, text.Text, "deductible")
}
