package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rpggio/benefits-portal/internal/assistant"
	"github.com/rpggio/benefits-portal/internal/catalog"
	"github.com/rpggio/benefits-portal/internal/config"
	"github.com/rpggio/benefits-portal/internal/domain/conversation"
	"github.com/rpggio/benefits-portal/internal/domain/session"
	"github.com/rpggio/benefits-portal/internal/domain/tenant"
	"github.com/rpggio/benefits-portal/internal/executor"
	"github.com/rpggio/benefits-portal/internal/format"
	"github.com/rpggio/benefits-portal/internal/observability"
	"github.com/rpggio/benefits-portal/internal/policy"
	"github.com/rpggio/benefits-portal/internal/query"
	"github.com/rpggio/benefits-portal/internal/semantic"
	"github.com/rpggio/benefits-portal/internal/sqlite"
	"github.com/rpggio/benefits-portal/internal/translate"
)

// backend is a semantic service that can serve queries, the catalog and compiled SQL.
type backend interface {
	executor.Channel
	catalog.Provider
	assistant.Explainer
}

// app holds the wired portal.
type app struct {
	cfg           config.Config
	logger        *slog.Logger
	db            *sqlite.DB
	registry      *prometheus.Registry
	tenants       *sqlite.TenantRepository
	sessions      *session.Service
	conversations *conversation.Service
	assistant     *assistant.Service
	closers       []func() error
}

func newApp(ctx context.Context, cfg config.Config, logger *slog.Logger) (*app, error) {
	if err := ensureDBDir(cfg.DB.Path); err != nil {
		return nil, fmt.Errorf("prepare database path: %w", err)
	}
	db, err := sqlite.New(cfg.DB.Path)
	if err != nil {
		return nil, err
	}
	a := &app{cfg: cfg, logger: logger, db: db}
	a.closers = append(a.closers, db.Close)

	if err := db.RunMigrations(); err != nil {
		a.Close()
		return nil, err
	}

	a.registry = prometheus.NewRegistry()
	a.registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := observability.NewMetrics(a.registry)

	dialect, err := query.ParseDialect(cfg.Semantic.Dialect)
	if err != nil {
		a.Close()
		return nil, err
	}

	primary, err := newBackend(cfg, dialect)
	if err != nil {
		a.Close()
		return nil, err
	}

	var fallback executor.Channel
	if ch, err := newFallback(cfg, dialect, logger); err != nil {
		a.Close()
		return nil, err
	} else if ch != nil {
		fallback = ch
		a.closers = append(a.closers, ch.Close)
	}

	guard, err := policy.NewGuard(ctx, "")
	if err != nil {
		a.Close()
		return nil, err
	}

	a.tenants = sqlite.NewTenantRepository(db)
	a.sessions = session.NewService(a.tenants, sqlite.NewSessionRepository(db), cfg.Auth.SessionTTL, logger)
	a.conversations = conversation.NewService(sqlite.NewConversationRepository(db), logger)

	a.assistant = assistant.New(assistant.Config{
		Catalog: catalog.NewLoader(catalog.LoaderConfig{
			Provider: primary,
			TTL:      cfg.Catalog.TTL,
			Recorder: metrics,
			Logger:   logger,
		}),
		Translator: translate.New(translate.Config{
			Completer:       newCompleter(cfg, logger),
			Model:           cfg.LLM.Model,
			Temperature:     cfg.LLM.Temperature,
			Timeout:         cfg.LLM.Timeout,
			TenantDimension: cfg.Semantic.TenantDimension,
			Metrics:         metrics,
			Logger:          logger,
		}),
		Enforcer: query.NewEnforcer(cfg.Semantic.TenantDimension),
		Executor: executor.New(executor.Config{
			Primary:         primary,
			Fallback:        fallback,
			Guard:           guard,
			DefaultLimit:    cfg.Semantic.DefaultLimit,
			MaxLimit:        cfg.Semantic.MaxLimit,
			Timeout:         cfg.Semantic.Timeout,
			FallbackTimeout: cfg.Fallback.Timeout,
			Metrics:         metrics,
			Logger:          logger,
		}),
		Formatter:    format.New(cfg.Semantic.TenantDimension),
		Conversation: a.conversations,
		Plans:        tenant.NewService(a.tenants, logger),
		Explainer:    primary,
		Metrics:      metrics,
		Logger:       logger,
	})

	logger.Info("portal wired",
		"semantic_mode", cfg.Semantic.Mode,
		"fallback_mode", cfg.Fallback.Mode,
		"llm_mode", cfg.LLM.Mode,
	)
	return a, nil
}

func newBackend(cfg config.Config, dialect query.Dialect) (backend, error) {
	if cfg.Semantic.Mode != config.SemanticModeHTTP {
		return semantic.NewSample(), nil
	}
	client, err := semantic.NewClient(semantic.ClientConfig{
		BaseURL:       cfg.Semantic.Host,
		Token:         cfg.Semantic.Token,
		EnvironmentID: cfg.Semantic.EnvironmentID,
		Dialect:       dialect,
		Timeout:       cfg.Semantic.Timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("semantic client: %w", err)
	}
	return client, nil
}

func newFallback(cfg config.Config, dialect query.Dialect, logger *slog.Logger) (*semantic.MCPChannel, error) {
	var factory semantic.TransportFactory
	switch cfg.Fallback.Mode {
	case config.FallbackModeCommand:
		factory = semantic.CommandTransport(cfg.Fallback.Command, cfg.Fallback.Args...)
	case config.FallbackModeHTTP:
		factory = semantic.StreamableTransport(cfg.Fallback.Endpoint, &http.Client{})
	default:
		return nil, nil
	}
	ch, err := semantic.NewMCPChannel(semantic.MCPConfig{
		Transport: factory,
		Dialect:   dialect,
		Logger:    logger,
	})
	if err != nil {
		return nil, fmt.Errorf("fallback channel: %w", err)
	}
	return ch, nil
}

// newCompleter returns nil when the hosted model has no credentials; every
// question then gets the configuration-error reply.
func newCompleter(cfg config.Config, logger *slog.Logger) translate.ChatCompleter {
	if cfg.LLM.Mode == config.LLMModeOffline {
		return translate.OfflineCompleter{}
	}
	client, err := translate.NewOpenAICompleter(cfg.LLM.APIKey, cfg.LLM.BaseURL)
	if err != nil {
		logger.Warn("language model unavailable", "error", err)
		return nil
	}
	return client
}

// login authenticates a member for the terminal commands.
func (a *app) login(ctx context.Context, email, password string) (*session.Session, error) {
	result, err := a.sessions.Login(ctx, email, password)
	if err != nil {
		if errors.Is(err, session.ErrInvalidCredentials) || errors.Is(err, session.ErrInvalidInput) {
			return nil, errors.New("invalid email or password")
		}
		return nil, err
	}
	return result.Session, nil
}

// Close releases resources in reverse order of acquisition.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.logger.Warn("close failed", "error", err)
		}
	}
	a.closers = nil
}
