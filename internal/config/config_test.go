package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("PORTAL_CONFIG_PATH", "")
	t.Setenv("OPENAI_API_KEY", "")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, 8080, cfg.Server.Port)
	require.Equal(t, 30*time.Minute, cfg.Auth.SessionTTL)
	require.Equal(t, float32(0.1), cfg.LLM.Temperature)
	require.Equal(t, SemanticModeSample, cfg.Semantic.Mode)
	require.Equal(t, "tenant_id", cfg.Semantic.TenantDimension)
	require.Equal(t, 500, cfg.Semantic.MaxLimit)
	require.Equal(t, 5*time.Minute, cfg.Catalog.TTL)
}

func TestLoad_FileThenEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "portal.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  port: 9000
semantic:
  mode: http
  host: https://semantic.example.com
  dialect: dbt
  tenant_dimension: company_id
catalog:
  ttl: 1m
`), 0o644))

	t.Setenv("PORTAL_CONFIG_PATH", path)
	t.Setenv("PORTAL_SERVER_PORT", "9100")
	t.Setenv("DBT_SERVICE_TOKEN", "svc-token")
	t.Setenv("DBT_ENVIRONMENT_ID", "123")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, 9100, cfg.Server.Port)
	require.Equal(t, SemanticModeHTTP, cfg.Semantic.Mode)
	require.Equal(t, "dbt", cfg.Semantic.Dialect)
	require.Equal(t, "company_id", cfg.Semantic.TenantDimension)
	require.Equal(t, "svc-token", cfg.Semantic.Token)
	require.Equal(t, "123", cfg.Semantic.EnvironmentID)
	require.Equal(t, time.Minute, cfg.Catalog.TTL)
}

func TestLoad_InvalidEnv(t *testing.T) {
	t.Setenv("PORTAL_CONFIG_PATH", "")
	t.Setenv("PORTAL_SERVER_PORT", "not-a-port")

	_, err := Load()
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	cfg := Default()
	cfg.Semantic.Mode = SemanticModeHTTP
	cfg.Fallback.Mode = FallbackModeCommand
	cfg.Semantic.DefaultLimit = 1000

	err := cfg.Validate()
	require.Error(t, err)
	require.Contains(t, err.Error(), "semantic.host")
	require.Contains(t, err.Error(), "fallback.command")
	require.Contains(t, err.Error(), "default_limit")
}

func TestValidate_Default(t *testing.T) {
	require.NoError(t, Default().Validate())
}

func TestValidate_FieldMessages(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{name: "port", mutate: func(c *Config) { c.Server.Port = 70000 }, want: "server.port out of range: 70000"},
		{name: "llm mode", mutate: func(c *Config) { c.LLM.Mode = "local" }, want: `unknown llm.mode "local"`},
		{name: "dialect", mutate: func(c *Config) { c.Semantic.Dialect = "graphql" }, want: `unknown semantic.dialect "graphql"`},
		{name: "session ttl", mutate: func(c *Config) { c.Auth.SessionTTL = 0 }, want: "auth.session_ttl must be positive"},
		{name: "catalog ttl", mutate: func(c *Config) { c.Catalog.TTL = -time.Second }, want: "catalog.ttl must be positive"},
		{name: "tenant dimension", mutate: func(c *Config) { c.Semantic.TenantDimension = "" }, want: "semantic.tenant_dimension is required"},
		{name: "fallback endpoint", mutate: func(c *Config) { c.Fallback.Mode = FallbackModeHTTP }, want: "fallback.endpoint is required in http mode"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(&cfg)
			require.EqualError(t, cfg.Validate(), tc.want)
		})
	}
}
