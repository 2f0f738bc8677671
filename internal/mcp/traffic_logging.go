package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

// maxLoggedPayload caps the bytes of params or results written per entry.
const maxLoggedPayload = 2048

// trafficLogger records each MCP exchange at debug level, tagged with the
// member it ran for. Failed calls are logged at warn level regardless.
type trafficLogger struct {
	logger    *slog.Logger
	direction string
}

func trafficLoggingMiddleware(logger *slog.Logger, direction string) sdkmcp.Middleware {
	t := trafficLogger{logger: logger, direction: direction}
	return t.wrap
}

func (t trafficLogger) wrap(next sdkmcp.MethodHandler) sdkmcp.MethodHandler {
	return func(ctx context.Context, method string, req sdkmcp.Request) (sdkmcp.Result, error) {
		if t.logger == nil {
			return next(ctx, method, req)
		}
		debug := t.logger.Enabled(ctx, slog.LevelDebug)
		who := t.caller(ctx, req)
		if debug {
			t.logger.LogAttrs(ctx, slog.LevelDebug, "mcp traffic",
				slog.String("direction", t.direction),
				slog.String("stage", "request"),
				slog.String("method", method),
				who,
				slog.String("params", truncate(encode(requestParams(req)))),
			)
		}

		start := time.Now()
		result, err := next(ctx, method, req)
		if strings.HasPrefix(method, "notifications/") {
			return result, err
		}

		attrs := []slog.Attr{
			slog.String("direction", t.direction),
			slog.String("stage", "response"),
			slog.String("method", method),
			who,
			slog.Duration("elapsed", time.Since(start)),
		}
		switch {
		case err != nil:
			t.logger.LogAttrs(ctx, slog.LevelWarn, "mcp traffic", append(attrs, slog.Any("error", err))...)
		case debug:
			t.logger.LogAttrs(ctx, slog.LevelDebug, "mcp traffic", append(attrs, slog.String("result", truncate(encode(result))))...)
		}
		return result, err
	}
}

// caller identifies the transport session and, once authenticated, the member.
func (t trafficLogger) caller(ctx context.Context, req sdkmcp.Request) slog.Attr {
	attrs := []any{slog.String("mcp_session", transportSessionID(req))}
	if sess := getSession(ctx); sess != nil {
		attrs = append(attrs, slog.String("tenant_id", sess.TenantID), slog.String("member_id", sess.MemberID))
	}
	return slog.Group("", attrs...)
}

// transportSessionID tolerates requests whose session is not yet bound.
func transportSessionID(req sdkmcp.Request) (id string) {
	if req == nil {
		return ""
	}
	defer func() {
		if recover() != nil {
			id = ""
		}
	}()
	if ss := req.GetSession(); ss != nil {
		return ss.ID()
	}
	return ""
}

func requestParams(req sdkmcp.Request) (params any) {
	if req == nil {
		return nil
	}
	defer func() {
		if recover() != nil {
			params = nil
		}
	}()
	return req.GetParams()
}

func encode(v any) string {
	if v == nil {
		return "null"
	}
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("<%T>", v)
	}
	return string(data)
}

func truncate(s string) string {
	if len(s) <= maxLoggedPayload {
		return s
	}
	return fmt.Sprintf("%s...(%d bytes)", s[:maxLoggedPayload], len(s))
}
