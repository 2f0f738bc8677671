package mcp

import (
	"context"
	"fmt"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rpggio/benefits-portal/internal/domain/session"
	"github.com/rpggio/benefits-portal/internal/transport"
)

type contextKey int

const sessionKey contextKey = iota

// getSession extracts the authenticated session from context.
func getSession(ctx context.Context) *session.Session {
	v, _ := ctx.Value(sessionKey).(*session.Session)
	return v
}

// SessionResolver resolves a session from a bearer token.
type SessionResolver interface {
	Resolve(ctx context.Context, token string) (*session.Session, error)
}

// authMiddleware implements bearer token authentication as MCP middleware.
func authMiddleware(resolver SessionResolver) sdkmcp.Middleware {
	return func(next sdkmcp.MethodHandler) sdkmcp.MethodHandler {
		return func(ctx context.Context, method string, req sdkmcp.Request) (sdkmcp.Result, error) {
			// Skip auth for protocol methods
			switch method {
			case "initialize", "ping", "notifications/initialized":
				return next(ctx, method, req)
			}

			extra := req.GetExtra()
			if extra == nil || extra.Header == nil {
				return nil, fmt.Errorf("unauthorized: missing headers")
			}

			token := transport.BearerToken(extra.Header.Get("Authorization"))
			if token == "" {
				return nil, fmt.Errorf("unauthorized: missing bearer token")
			}

			sess, err := resolver.Resolve(ctx, token)
			if err != nil {
				return nil, fmt.Errorf("unauthorized: %w", err)
			}

			ctx = context.WithValue(ctx, sessionKey, sess)
			return next(ctx, method, req)
		}
	}
}

// fixedSessionMiddleware serves every request as sess. Used for stdio,
// where the member logs in once when the process starts.
func fixedSessionMiddleware(sess *session.Session) sdkmcp.Middleware {
	return func(next sdkmcp.MethodHandler) sdkmcp.MethodHandler {
		return func(ctx context.Context, method string, req sdkmcp.Request) (sdkmcp.Result, error) {
			ctx = context.WithValue(ctx, sessionKey, sess)
			return next(ctx, method, req)
		}
	}
}
