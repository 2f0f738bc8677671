package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rpggio/benefits-portal/internal/assistant"
	"github.com/rpggio/benefits-portal/internal/catalog"
	"github.com/rpggio/benefits-portal/internal/domain/conversation"
	"github.com/rpggio/benefits-portal/internal/domain/session"
	"github.com/rpggio/benefits-portal/internal/format"
	"github.com/stretchr/testify/require"
)

var testSession = &session.Session{
	ID:        "s1",
	TenantID:  "42",
	MemberID:  "m1",
	Profile:   session.Profile{FirstName: "Jane", CompanyName: "Acme"},
	ExpiresAt: time.Date(2024, 3, 1, 12, 30, 0, 0, time.UTC),
}

type testSessions struct {
	loggedOut []string
}

func (s *testSessions) Login(_ context.Context, email, password string) (*session.LoginResult, error) {
	if email == "jane@acme.test" && password == "demo123" {
		return &session.LoginResult{Token: "token", Session: testSession}, nil
	}
	if email == "broken@acme.test" {
		return nil, errors.New("database is locked")
	}
	return nil, session.ErrInvalidCredentials
}

func (s *testSessions) Logout(_ context.Context, sess *session.Session) error {
	s.loggedOut = append(s.loggedOut, sess.ID)
	return nil
}

type testHistory struct {
	turns   []conversation.Turn
	limit   int
	cleared []string
}

func (h *testHistory) History(_ context.Context, _ *session.Session, opts conversation.ListOptions) ([]conversation.Turn, error) {
	h.limit = opts.Limit
	return h.turns, nil
}

func (h *testHistory) Clear(_ context.Context, sess *session.Session) error {
	h.cleared = append(h.cleared, sess.ID)
	return nil
}

type testAssistant struct {
	question string
	err      error
}

func (a *testAssistant) Ask(_ context.Context, _ *session.Session, question string) (*assistant.Reply, error) {
	a.question = question
	if a.err != nil {
		return nil, a.err
	}
	return &assistant.Reply{
		Kind:    assistant.KindScalar,
		Text:    "You have met **$812.50** of your deductible so far this year.",
		Payload: &format.Payload{Metric: "deductible_met", Value: 812.5, Display: "$812.50"},
	}, nil
}

func (a *testAssistant) QuickStats(_ context.Context, sess *session.Session) (*assistant.Summary, error) {
	return &assistant.Summary{Profile: sess.Profile, DeductibleMet: 812.5, Available: true}, nil
}

func (a *testAssistant) Catalog(context.Context) *catalog.Catalog {
	return &catalog.Catalog{
		Metrics:    []catalog.Metric{{Name: "deductible_met"}},
		Dimensions: []catalog.Dimension{{Name: "claim_type"}},
		Origin:     catalog.OriginFallback,
	}
}

type testEnv struct {
	server    *httptest.Server
	sessions  *testSessions
	history   *testHistory
	assistant *testAssistant
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	env := &testEnv{
		sessions:  &testSessions{},
		history:   &testHistory{},
		assistant: &testAssistant{},
	}
	env.server = httptest.NewServer(NewServer(Config{
		Sessions:  env.sessions,
		Resolver:  &testResolver{sessions: map[string]*session.Session{"token": testSession}},
		History:   env.history,
		Assistant: env.assistant,
		Metrics: http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte("# metrics"))
		}),
	}))
	t.Cleanup(env.server.Close)
	return env
}

func (e *testEnv) do(t *testing.T, method, path, token string, body any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, e.server.URL+path, &buf)
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

func decodeBody[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

func TestHTTPServer_Health(t *testing.T) {
	env := newTestEnv(t)

	resp, err := http.Get(env.server.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = env.do(t, http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestHTTPServer_Login(t *testing.T) {
	env := newTestEnv(t)

	resp := env.do(t, http.MethodPost, "/api/login", "", map[string]string{"email": "jane@acme.test", "password": "demo123"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decodeBody[map[string]any](t, resp)
	require.Equal(t, "token", body["token"])
	require.Equal(t, "Acme", body["profile"].(map[string]any)["company_name"])
	require.NotContains(t, body, "tenant_id")

	resp = env.do(t, http.MethodPost, "/api/login", "", map[string]string{"email": "jane@acme.test", "password": "nope"})
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp = env.do(t, http.MethodPost, "/api/login", "", map[string]string{"email": "not-an-email"})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = env.do(t, http.MethodPost, "/api/login", "", map[string]string{"email": "broken@acme.test", "password": "demo123"})
	require.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	errBody := decodeBody[map[string]string](t, resp)
	require.NotContains(t, errBody["error"], "database")
}

func TestHTTPServer_RequiresSession(t *testing.T) {
	env := newTestEnv(t)

	for _, path := range []string{"/api/history", "/api/summary", "/api/catalog"} {
		resp := env.do(t, http.MethodGet, path, "", nil)
		require.Equal(t, http.StatusUnauthorized, resp.StatusCode, path)

		resp = env.do(t, http.MethodGet, path, "wrong", nil)
		require.Equal(t, http.StatusUnauthorized, resp.StatusCode, path)
	}
}

func TestHTTPServer_Chat(t *testing.T) {
	env := newTestEnv(t)

	resp := env.do(t, http.MethodPost, "/api/chat", "token", map[string]string{"question": "How much of my deductible have I met?"})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	reply := decodeBody[assistant.Reply](t, resp)
	require.Equal(t, assistant.KindScalar, reply.Kind)
	require.Contains(t, reply.Text, "$812.50")
	require.Equal(t, "How much of my deductible have I met?", env.assistant.question)
}

func TestHTTPServer_Chat_Busy(t *testing.T) {
	env := newTestEnv(t)
	env.assistant.err = assistant.ErrBusy

	resp := env.do(t, http.MethodPost, "/api/chat", "token", map[string]string{"question": "hi"})
	require.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestHTTPServer_History(t *testing.T) {
	env := newTestEnv(t)

	resp := env.do(t, http.MethodGet, "/api/history", "token", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decodeBody[map[string][]conversation.Turn](t, resp)
	require.NotNil(t, body["turns"])
	require.Empty(t, body["turns"])

	env.history.turns = []conversation.Turn{{ID: "t1", SessionID: "s1", TenantID: "42", Role: conversation.RoleUser, Text: "hi"}}
	resp = env.do(t, http.MethodGet, "/api/history?limit=5", "token", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, 5, env.history.limit)
	raw := decodeBody[map[string][]map[string]any](t, resp)
	require.Len(t, raw["turns"], 1)
	require.NotContains(t, raw["turns"][0], "tenant_id")
	require.NotContains(t, raw["turns"][0], "session_id")

	resp = env.do(t, http.MethodGet, "/api/history?limit=x", "token", nil)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestHTTPServer_SummaryAndCatalog(t *testing.T) {
	env := newTestEnv(t)

	resp := env.do(t, http.MethodGet, "/api/summary", "token", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	summary := decodeBody[assistant.Summary](t, resp)
	require.True(t, summary.Available)
	require.Equal(t, "Jane", summary.Profile.FirstName)

	resp = env.do(t, http.MethodGet, "/api/catalog", "token", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	cat := decodeBody[catalogResponse](t, resp)
	require.Equal(t, []string{"deductible_met"}, cat.Metrics)
	require.Equal(t, catalog.OriginFallback, cat.Origin)
}

func TestHTTPServer_Logout(t *testing.T) {
	env := newTestEnv(t)

	resp := env.do(t, http.MethodPost, "/api/logout", "token", nil)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
	require.Equal(t, []string{"s1"}, env.history.cleared)
	require.Equal(t, []string{"s1"}, env.sessions.loggedOut)
}
