package main

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rpggio/benefits-portal/internal/assistant"
	"github.com/rpggio/benefits-portal/internal/config"
	"github.com/rpggio/benefits-portal/internal/format"
	"github.com/rpggio/benefits-portal/internal/query"
	"github.com/rpggio/benefits-portal/internal/seed"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestParseLogLevel(t *testing.T) {
	require.Equal(t, slog.LevelDebug, parseLogLevel("debug"))
	require.Equal(t, slog.LevelWarn, parseLogLevel("WARN"))
	require.Equal(t, slog.LevelError, parseLogLevel("error"))
	require.Equal(t, slog.LevelInfo, parseLogLevel(""))
	require.Equal(t, slog.LevelInfo, parseLogLevel("verbose"))
}

func TestEnsureDBDir(t *testing.T) {
	require.NoError(t, ensureDBDir(":memory:"))
	require.NoError(t, ensureDBDir("file:x?mode=memory"))

	path := filepath.Join(t.TempDir(), "nested", "dir", "portal.db")
	require.NoError(t, ensureDBDir(path))
	info, err := os.Stat(filepath.Dir(path))
	require.NoError(t, err)
	require.True(t, info.IsDir())
}

func TestLogFileWriter_KeepsTail(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "portal.log")
	w, err := newLogFileWriter(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = w.Close() })

	chunk := bytes.Repeat([]byte("a"), maxLogSizeBytes)
	_, err = w.Write(chunk)
	require.NoError(t, err)
	_, err = w.Write([]byte("tail-marker\n"))
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Equal(t, keepLogSizeBytes, len(data))
	require.True(t, strings.HasSuffix(string(data), "tail-marker\n"))
}

func testConfig(t *testing.T) config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.DB.Path = filepath.Join(t.TempDir(), "portal.db")
	cfg.LLM.Mode = config.LLMModeOffline
	return cfg
}

func newTestApp(t *testing.T) *app {
	t.Helper()
	cfg := testConfig(t)
	a, err := newApp(context.Background(), cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	t.Cleanup(a.Close)

	loader := seed.New(a.tenants, cfg.Auth.DemoPassword, nil)
	loader.SetCost(bcrypt.MinCost)
	stats, err := loader.LoadDir(context.Background(), "../../seeds")
	require.NoError(t, err)
	require.NotZero(t, stats.Members)
	return a
}

func TestApp_AskAndExplain(t *testing.T) {
	a := newTestApp(t)
	ctx := context.Background()

	_, err := a.login(ctx, "alex.rivera@northwind.example", "wrong")
	require.EqualError(t, err, "invalid email or password")

	sess, err := a.login(ctx, "alex.rivera@northwind.example", "demo123")
	require.NoError(t, err)
	require.Equal(t, "1", sess.TenantID)

	reply, err := a.assistant.Ask(ctx, sess, "How much of my deductible have I met?")
	require.NoError(t, err)
	require.Equal(t, assistant.KindScalar, reply.Kind)

	sql, err := a.assistant.Explain(ctx, sess, "How much of my deductible have I met?")
	require.NoError(t, err)
	require.Contains(t, sql, "tenant_id = "+query.TenantPlaceholder)
	require.NotContains(t, sql, "tenant_id = 1")
}

func TestApp_Handler(t *testing.T) {
	a := newTestApp(t)
	server := httptest.NewServer(a.handler())
	t.Cleanup(server.Close)

	for _, path := range []string{"/health", "/metrics"} {
		resp, err := http.Get(server.URL + path)
		require.NoError(t, err)
		resp.Body.Close()
		require.Equal(t, http.StatusOK, resp.StatusCode, path)
	}
}

func TestNewApp_RejectsUnknownDialect(t *testing.T) {
	cfg := testConfig(t)
	cfg.Semantic.Dialect = "graphql"
	_, err := newApp(context.Background(), cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.Error(t, err)
}

func TestRenderReply_Table(t *testing.T) {
	var buf bytes.Buffer
	renderReply(&buf, &assistant.Reply{
		Kind: assistant.KindTable,
		Text: "Here are your claims by type.",
		Payload: &format.Payload{
			Columns: []string{"claim_type", "total_claims"},
			Rows: []query.Row{
				{"claim_type": "Medical", "total_claims": 1234.5},
				{"claim_type": "Dental", "total_claims": int64(2000)},
			},
		},
	})
	out := buf.String()
	require.Contains(t, out, "Here are your claims by type.")
	require.Contains(t, out, "claim_type")
	require.Contains(t, out, "1,234.5")
	require.Contains(t, out, "2,000")
}
