// Package testserver runs the whole portal in-process for end-to-end tests.
package testserver

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rpggio/benefits-portal/internal/assistant"
	"github.com/rpggio/benefits-portal/internal/catalog"
	"github.com/rpggio/benefits-portal/internal/domain/conversation"
	"github.com/rpggio/benefits-portal/internal/domain/session"
	"github.com/rpggio/benefits-portal/internal/domain/tenant"
	"github.com/rpggio/benefits-portal/internal/executor"
	"github.com/rpggio/benefits-portal/internal/format"
	"github.com/rpggio/benefits-portal/internal/mcp"
	"github.com/rpggio/benefits-portal/internal/observability"
	"github.com/rpggio/benefits-portal/internal/policy"
	"github.com/rpggio/benefits-portal/internal/query"
	"github.com/rpggio/benefits-portal/internal/semantic"
	"github.com/rpggio/benefits-portal/internal/sqlite"
	"github.com/rpggio/benefits-portal/internal/translate"
	"github.com/rpggio/benefits-portal/internal/transport"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

// Fixture members. Both log in with DemoPassword.
const (
	DemoPassword = "demo123"
	MemberEmail  = "jane@acme.test"
	MemberTenant = "42"
	OtherEmail   = "omar@globex.test"
	OtherTenant  = "7"
)

// Options overrides parts of the stack. Zero values use the sample backend
// and the offline completer.
type Options struct {
	Primary   executor.Channel
	Fallback  executor.Channel
	Provider  catalog.Provider
	Completer translate.ChatCompleter
}

type TestServer struct {
	Server    *httptest.Server
	DB        *sqlite.DB
	Sessions  *session.Service
	Assistant *assistant.Service
	Registry  *prometheus.Registry
}

func New(t *testing.T, opts Options) *TestServer {
	t.Helper()
	ctx := context.Background()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := sqlite.New(dsn)
	require.NoError(t, err)
	require.NoError(t, db.RunMigrations())

	tenantRepo := sqlite.NewTenantRepository(db)
	seedFixtures(t, tenantRepo)

	sample := semantic.NewSample()
	if opts.Primary == nil {
		opts.Primary = sample
	}
	if opts.Provider == nil {
		opts.Provider = sample
	}
	if opts.Completer == nil {
		opts.Completer = translate.OfflineCompleter{}
	}

	registry := prometheus.NewRegistry()
	metrics := observability.NewMetrics(registry)

	guard, err := policy.NewGuard(ctx, "")
	require.NoError(t, err)

	sessionSvc := session.NewService(tenantRepo, sqlite.NewSessionRepository(db), 30*time.Minute, nil)
	conversationSvc := conversation.NewService(sqlite.NewConversationRepository(db), nil)
	tenantSvc := tenant.NewService(tenantRepo, nil)

	assistantSvc := assistant.New(assistant.Config{
		Catalog: catalog.NewLoader(catalog.LoaderConfig{
			Provider: opts.Provider,
			TTL:      time.Minute,
			Recorder: metrics,
		}),
		Translator: translate.New(translate.Config{
			Completer:       opts.Completer,
			Model:           "offline",
			Temperature:     0.1,
			Timeout:         5 * time.Second,
			TenantDimension: "tenant_id",
			Metrics:         metrics,
		}),
		Enforcer: query.NewEnforcer("tenant_id"),
		Executor: executor.New(executor.Config{
			Primary:         opts.Primary,
			Fallback:        opts.Fallback,
			Guard:           guard,
			DefaultLimit:    500,
			MaxLimit:        500,
			Timeout:         5 * time.Second,
			FallbackTimeout: 5 * time.Second,
			Metrics:         metrics,
		}),
		Formatter:    format.New("tenant_id"),
		Conversation: conversationSvc,
		Plans:        tenantSvc,
		Explainer:    sample,
		Metrics:      metrics,
	})

	mcpServer := mcp.NewServer(mcp.Config{
		Assistant:     assistantSvc,
		Resolver:      sessionSvc,
		TransportMode: mcp.ModeHTTP,
	})

	server := httptest.NewServer(transport.NewServer(transport.Config{
		Sessions:  sessionSvc,
		Resolver:  sessionSvc,
		History:   conversationSvc,
		Assistant: assistantSvc,
		Metrics:   promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		MCP:       mcp.NewHTTPHandler(mcpServer),
	}))

	ts := &TestServer{
		Server:    server,
		DB:        db,
		Sessions:  sessionSvc,
		Assistant: assistantSvc,
		Registry:  registry,
	}

	t.Cleanup(func() {
		server.Close()
		_ = db.Close()
	})

	return ts
}

func seedFixtures(t *testing.T, repo *sqlite.TenantRepository) {
	t.Helper()
	ctx := context.Background()
	hash, err := bcrypt.GenerateFromPassword([]byte(DemoPassword), bcrypt.MinCost)
	require.NoError(t, err)

	require.NoError(t, repo.UpsertCompany(ctx, &tenant.Company{ID: MemberTenant, Name: "Acme Corp", Industry: "Retail"}))
	require.NoError(t, repo.UpsertCompany(ctx, &tenant.Company{ID: OtherTenant, Name: "Globex", Industry: "Energy"}))
	require.NoError(t, repo.UpsertPlan(ctx, &tenant.Plan{ID: "101", PlanType: "PPO", Deductible: 1500, OOPMax: 5000, MonthlyPremium: 145.5}))
	require.NoError(t, repo.UpsertMember(ctx, &tenant.Member{
		ID: "1001", TenantID: MemberTenant, Email: MemberEmail, FirstName: "Jane", LastName: "Doe",
		Department: "Sales", PlanID: "101", IsPrimary: true, PasswordHash: string(hash),
	}))
	require.NoError(t, repo.UpsertMember(ctx, &tenant.Member{
		ID: "2001", TenantID: OtherTenant, Email: OtherEmail, FirstName: "Omar", LastName: "Haddad",
		Department: "Engineering", PlanID: "101", IsPrimary: true, PasswordHash: string(hash),
	}))
}

// Login authenticates email over HTTP and returns the bearer token.
func (ts *TestServer) Login(t *testing.T, email string) string {
	t.Helper()
	resp := ts.Do(t, http.MethodPost, "/api/login", "", map[string]string{"email": email, "password": DemoPassword})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var body struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.NotEmpty(t, body.Token)
	return body.Token
}

// Do sends a JSON request. The response body is closed at test cleanup.
func (ts *TestServer) Do(t *testing.T, method, path, token string, body any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, ts.Server.URL+path, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

// Ask posts a question and decodes the reply.
func (ts *TestServer) Ask(t *testing.T, token, question string) assistant.Reply {
	t.Helper()
	resp := ts.Do(t, http.MethodPost, "/api/chat", token, map[string]string{"question": question})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var reply assistant.Reply
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&reply))
	return reply
}
