package config

import (
	"errors"
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Config defines portal configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	DB       DBConfig       `yaml:"db"`
	Log      LogConfig      `yaml:"log"`
	Auth     AuthConfig     `yaml:"auth"`
	LLM      LLMConfig      `yaml:"llm"`
	Semantic SemanticConfig `yaml:"semantic"`
	Fallback FallbackConfig `yaml:"fallback"`
	Catalog  CatalogConfig  `yaml:"catalog"`
	Seeds    SeedsConfig    `yaml:"seeds"`
	MCP      MCPConfig      `yaml:"mcp"`
}

type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port" validate:"min=1,max=65535"`
}

type DBConfig struct {
	Path string `yaml:"path"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

type AuthConfig struct {
	SessionTTL   time.Duration `yaml:"session_ttl" validate:"gt=0"`
	DemoPassword string        `yaml:"demo_password"`
}

// LLM modes.
const (
	LLMModeOpenAI  = "openai"
	LLMModeOffline = "offline"
)

type LLMConfig struct {
	Mode        string        `yaml:"mode" validate:"oneof=openai offline"`
	APIKey      string        `yaml:"api_key"`
	BaseURL     string        `yaml:"base_url"`
	Model       string        `yaml:"model"`
	Temperature float32       `yaml:"temperature"`
	Timeout     time.Duration `yaml:"timeout" validate:"gt=0"`
}

// Semantic service modes.
const (
	SemanticModeHTTP   = "http"
	SemanticModeSample = "sample"
)

type SemanticConfig struct {
	Mode            string        `yaml:"mode" validate:"oneof=http sample"`
	Host            string        `yaml:"host" validate:"required_if=Mode http"`
	Token           string        `yaml:"token"`
	EnvironmentID   string        `yaml:"environment_id"`
	Timeout         time.Duration `yaml:"timeout" validate:"gt=0"`
	Dialect         string        `yaml:"dialect" validate:"oneof=plain dbt"`
	TenantDimension string        `yaml:"tenant_dimension" validate:"required"`
	DefaultLimit    int           `yaml:"default_limit" validate:"gt=0,ltefield=MaxLimit"`
	MaxLimit        int           `yaml:"max_limit" validate:"gt=0"`
}

// Fallback channel modes.
const (
	FallbackModeNone    = "none"
	FallbackModeCommand = "command"
	FallbackModeHTTP    = "http"
)

type FallbackConfig struct {
	Mode     string        `yaml:"mode" validate:"oneof=none command http"`
	Command  string        `yaml:"command" validate:"required_if=Mode command"`
	Args     []string      `yaml:"args"`
	Endpoint string        `yaml:"endpoint" validate:"required_if=Mode http"`
	Timeout  time.Duration `yaml:"timeout"`
}

type CatalogConfig struct {
	TTL time.Duration `yaml:"ttl" validate:"gt=0"`
}

type SeedsConfig struct {
	Dir string `yaml:"dir"`
}

type MCPConfig struct {
	Enabled bool `yaml:"enabled"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8080,
		},
		DB: DBConfig{
			Path: "portal.db",
		},
		Log: LogConfig{
			Level: "info",
		},
		Auth: AuthConfig{
			SessionTTL:   30 * time.Minute,
			DemoPassword: "demo123",
		},
		LLM: LLMConfig{
			Mode:        LLMModeOpenAI,
			Model:       "gpt-4o-mini",
			Temperature: 0.1,
			Timeout:     30 * time.Second,
		},
		Semantic: SemanticConfig{
			Mode:            SemanticModeSample,
			Timeout:         15 * time.Second,
			Dialect:         "plain",
			TenantDimension: "tenant_id",
			DefaultLimit:    500,
			MaxLimit:        500,
		},
		Fallback: FallbackConfig{
			Mode:    FallbackModeNone,
			Timeout: 15 * time.Second,
		},
		Catalog: CatalogConfig{
			TTL: 5 * time.Minute,
		},
		Seeds: SeedsConfig{
			Dir: "seeds",
		},
		MCP: MCPConfig{
			Enabled: true,
		},
	}
}

// Load reads configuration from an optional YAML file and environment variables.
func Load() (Config, error) {
	cfg := Default()

	if path := os.Getenv("PORTAL_CONFIG_PATH"); path != "" {
		if err := loadFromFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) error {
	if host := os.Getenv("PORTAL_SERVER_HOST"); host != "" {
		cfg.Server.Host = host
	}
	if portStr := os.Getenv("PORTAL_SERVER_PORT"); portStr != "" {
		port, err := strconv.Atoi(portStr)
		if err != nil {
			return fmt.Errorf("invalid PORTAL_SERVER_PORT: %w", err)
		}
		cfg.Server.Port = port
	}
	if dbPath := os.Getenv("PORTAL_DB_PATH"); dbPath != "" {
		cfg.DB.Path = dbPath
	}
	if level := os.Getenv("PORTAL_LOG_LEVEL"); level != "" {
		cfg.Log.Level = level
	}

	if ttl := os.Getenv("PORTAL_SESSION_TTL"); ttl != "" {
		d, err := time.ParseDuration(ttl)
		if err != nil {
			return fmt.Errorf("invalid PORTAL_SESSION_TTL: %w", err)
		}
		cfg.Auth.SessionTTL = d
	}
	if pw := os.Getenv("PORTAL_DEMO_PASSWORD"); pw != "" {
		cfg.Auth.DemoPassword = pw
	}

	if mode := os.Getenv("PORTAL_LLM_MODE"); mode != "" {
		cfg.LLM.Mode = mode
	}
	cfg.LLM.APIKey = firstEnv(cfg.LLM.APIKey, "PORTAL_LLM_API_KEY", "OPENAI_API_KEY")
	if baseURL := os.Getenv("PORTAL_LLM_BASE_URL"); baseURL != "" {
		cfg.LLM.BaseURL = baseURL
	}
	if model := os.Getenv("PORTAL_LLM_MODEL"); model != "" {
		cfg.LLM.Model = model
	}
	if temp := os.Getenv("PORTAL_LLM_TEMPERATURE"); temp != "" {
		v, err := strconv.ParseFloat(temp, 32)
		if err != nil {
			return fmt.Errorf("invalid PORTAL_LLM_TEMPERATURE: %w", err)
		}
		cfg.LLM.Temperature = float32(v)
	}

	if mode := os.Getenv("PORTAL_SEMANTIC_MODE"); mode != "" {
		cfg.Semantic.Mode = mode
	}
	cfg.Semantic.Host = firstEnv(cfg.Semantic.Host, "PORTAL_SEMANTIC_HOST", "SEMANTIC_LAYER_HOST")
	cfg.Semantic.Token = firstEnv(cfg.Semantic.Token, "PORTAL_SEMANTIC_TOKEN", "DBT_SERVICE_TOKEN")
	cfg.Semantic.EnvironmentID = firstEnv(cfg.Semantic.EnvironmentID, "PORTAL_SEMANTIC_ENVIRONMENT_ID", "DBT_ENVIRONMENT_ID")
	if dialect := os.Getenv("PORTAL_SEMANTIC_DIALECT"); dialect != "" {
		cfg.Semantic.Dialect = dialect
	}
	if dim := os.Getenv("PORTAL_TENANT_DIMENSION"); dim != "" {
		cfg.Semantic.TenantDimension = dim
	}
	if limit := os.Getenv("PORTAL_MAX_LIMIT"); limit != "" {
		v, err := strconv.Atoi(limit)
		if err != nil {
			return fmt.Errorf("invalid PORTAL_MAX_LIMIT: %w", err)
		}
		cfg.Semantic.MaxLimit = v
	}

	if mode := os.Getenv("PORTAL_FALLBACK_MODE"); mode != "" {
		cfg.Fallback.Mode = mode
	}
	if cmd := os.Getenv("PORTAL_FALLBACK_COMMAND"); cmd != "" {
		cfg.Fallback.Command = cmd
	}
	if args := os.Getenv("PORTAL_FALLBACK_ARGS"); args != "" {
		cfg.Fallback.Args = strings.Fields(args)
	}
	if endpoint := os.Getenv("PORTAL_FALLBACK_ENDPOINT"); endpoint != "" {
		cfg.Fallback.Endpoint = endpoint
	}

	if ttl := os.Getenv("PORTAL_CATALOG_TTL"); ttl != "" {
		d, err := time.ParseDuration(ttl)
		if err != nil {
			return fmt.Errorf("invalid PORTAL_CATALOG_TTL: %w", err)
		}
		cfg.Catalog.TTL = d
	}
	if dir := os.Getenv("PORTAL_SEEDS_DIR"); dir != "" {
		cfg.Seeds.Dir = dir
	}
	if enabled := os.Getenv("PORTAL_MCP_ENABLED"); enabled != "" {
		v, err := strconv.ParseBool(enabled)
		if err != nil {
			return fmt.Errorf("invalid PORTAL_MCP_ENABLED: %w", err)
		}
		cfg.MCP.Enabled = v
	}
	return nil
}

var validate = newValidator()

// newValidator reports fields by their yaml path, e.g. semantic.host.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("yaml"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Validate checks the configuration and reports every invalid field.
func (c Config) Validate() error {
	err := validate.Struct(c)
	var fields validator.ValidationErrors
	if !errors.As(err, &fields) {
		return err
	}
	errs := make([]error, 0, len(fields))
	for _, fe := range fields {
		errs = append(errs, fieldError(fe))
	}
	return errors.Join(errs...)
}

func fieldError(fe validator.FieldError) error {
	_, path, _ := strings.Cut(fe.Namespace(), ".")
	switch fe.Tag() {
	case "required":
		return fmt.Errorf("%s is required", path)
	case "required_if":
		mode := strings.Fields(fe.Param())
		return fmt.Errorf("%s is required in %s mode", path, mode[len(mode)-1])
	case "oneof":
		return fmt.Errorf("unknown %s %q", path, fe.Value())
	case "gt":
		return fmt.Errorf("%s must be positive", path)
	case "min", "max":
		return fmt.Errorf("%s out of range: %v", path, fe.Value())
	case "ltefield":
		return fmt.Errorf("%s must not exceed %s", path, fe.Param())
	default:
		return fmt.Errorf("%s failed %s check", path, fe.Tag())
	}
}

func firstEnv(current string, keys ...string) string {
	for _, key := range keys {
		if v := os.Getenv(key); v != "" {
			return v
		}
	}
	return current
}

func loadFromFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	return nil
}
