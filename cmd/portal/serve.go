package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rpggio/benefits-portal/internal/mcp"
	"github.com/rpggio/benefits-portal/internal/transport"
	"github.com/spf13/cobra"
)

const (
	purgeInterval   = 5 * time.Minute
	shutdownTimeout = 5 * time.Second
)

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, logger, cleanup, err := loadRuntime(false)
	if err != nil {
		return err
	}
	defer cleanup()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	return serve(ctx, a, net.JoinHostPort(cfg.Server.Host, strconv.Itoa(cfg.Server.Port)))
}

// handler builds the HTTP surface of the app.
func (a *app) handler() http.Handler {
	var mcpHandler http.Handler
	if a.cfg.MCP.Enabled {
		mcpHandler = mcp.NewHTTPHandler(mcp.NewServer(mcp.Config{
			Assistant:     a.assistant,
			Resolver:      a.sessions,
			TransportMode: mcp.ModeHTTP,
			Version:       version,
			Logger:        a.logger,
		}))
	}
	return transport.NewServer(transport.Config{
		Sessions:  a.sessions,
		Resolver:  a.sessions,
		History:   a.conversations,
		Assistant: a.assistant,
		Metrics:   promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{}),
		MCP:       mcpHandler,
		Logger:    a.logger,
	})
}

func serve(ctx context.Context, a *app, addr string) error {
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           a.handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go a.purgeSessions(ctx, purgeInterval)

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("server listening", "addr", addr, "mcp", a.cfg.MCP.Enabled)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}
	return shutdown(a.logger, httpServer)
}

func shutdown(logger *slog.Logger, server *http.Server) error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	logger.Info("shutting down")
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// purgeSessions removes expired sessions until ctx is done.
func (a *app) purgeSessions(ctx context.Context, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := a.sessions.PurgeExpired(ctx)
			if err != nil {
				a.logger.Warn("session purge failed", "error", err)
				continue
			}
			if n > 0 {
				a.logger.Debug("expired sessions purged", "count", n)
			}
		}
	}
}
