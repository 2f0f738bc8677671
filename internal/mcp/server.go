// Package mcp exposes the assistant to agents over the Model Context Protocol.
package mcp

import (
	"context"
	"log/slog"
	"net/http"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rpggio/benefits-portal/internal/assistant"
	"github.com/rpggio/benefits-portal/internal/catalog"
	"github.com/rpggio/benefits-portal/internal/domain/session"
)

// Assistant defines the pipeline operations exposed as tools.
type Assistant interface {
	Ask(ctx context.Context, sess *session.Session, question string) (*assistant.Reply, error)
	QuickStats(ctx context.Context, sess *session.Session) (*assistant.Summary, error)
	Catalog(ctx context.Context) *catalog.Catalog
}

// Transport modes.
const (
	ModeHTTP  = "http"
	ModeStdio = "stdio"
)

// Config contains server configuration.
type Config struct {
	Assistant Assistant
	// Resolver authenticates HTTP requests by bearer token.
	Resolver SessionResolver
	// Session serves every stdio request.
	Session       *session.Session
	TransportMode string
	Version       string
	Logger        *slog.Logger
}

// NewServer creates and configures an MCP server with all tools and middleware.
func NewServer(cfg Config) *sdkmcp.Server {
	version := cfg.Version
	if version == "" {
		version = "dev"
	}
	server := sdkmcp.NewServer(&sdkmcp.Implementation{
		Name:    "benefits-portal",
		Version: version,
	}, &sdkmcp.ServerOptions{
		Instructions: serverInstructions,
		Logger:       cfg.Logger,
	})

	registerDocResources(server)

	server.AddReceivingMiddleware(trafficLoggingMiddleware(cfg.Logger, "inbound"))
	server.AddSendingMiddleware(trafficLoggingMiddleware(cfg.Logger, "outbound"))
	// The last receiving middleware added runs first, so traffic logs see the session.
	if cfg.TransportMode == ModeStdio {
		server.AddReceivingMiddleware(fixedSessionMiddleware(cfg.Session))
	} else {
		server.AddReceivingMiddleware(authMiddleware(cfg.Resolver))
	}

	registerTools(server, cfg.Assistant)

	return server
}

// NewHTTPHandler serves server over the streamable HTTP transport.
func NewHTTPHandler(server *sdkmcp.Server) http.Handler {
	return sdkmcp.NewStreamableHTTPHandler(func(*http.Request) *sdkmcp.Server {
		return server
	}, nil)
}
