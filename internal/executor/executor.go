// Package executor runs tenant-scoped queries against the semantic layer,
// trying the primary channel first and a single fallback channel after it.
package executor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/rpggio/benefits-portal/internal/policy"
	"github.com/rpggio/benefits-portal/internal/query"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("portal.executor")

// ChannelName identifies which channel produced an outcome.
type ChannelName string

const (
	ChannelPrimary  ChannelName = "primary"
	ChannelFallback ChannelName = "fallback"
)

// Channel executes a structured request.
type Channel interface {
	Query(ctx context.Context, req query.Request) (*query.Result, error)
}

// Guard vets a request before it is sent over a channel.
type Guard interface {
	Check(ctx context.Context, in policy.Input) error
}

// Recorder observes channel attempts.
type Recorder interface {
	ExecutorQuery(channel, status string)
}

// Config configures an Executor.
type Config struct {
	Primary  Channel
	Fallback Channel
	Guard    Guard
	// DefaultLimit applies when a request omits its limit.
	DefaultLimit int
	// MaxLimit clamps larger requested limits.
	MaxLimit        int
	Timeout         time.Duration
	FallbackTimeout time.Duration
	Metrics         Recorder
	Logger          *slog.Logger
}

// Outcome is a successful execution.
type Outcome struct {
	Result  *query.Result
	Channel ChannelName
}

// Executor runs queries with one fallback hop.
type Executor struct {
	cfg    Config
	logger *slog.Logger
}

// New creates an Executor.
func New(cfg Config) *Executor {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Executor{cfg: cfg, logger: logger}
}

// Limit returns the effective row limit for a requested limit.
func (e *Executor) Limit(requested int) int {
	limit := requested
	if limit <= 0 {
		limit = e.cfg.DefaultLimit
	}
	if e.cfg.MaxLimit > 0 && limit > e.cfg.MaxLimit {
		limit = e.cfg.MaxLimit
	}
	return limit
}

// Execute runs req on the primary channel and, if that fails, once on the
// fallback. The request must already be scoped to exactly one tenant.
// Configuration and policy failures abort without trying the fallback.
func (e *Executor) Execute(ctx context.Context, req query.Request) (*Outcome, error) {
	tenant, ok := query.EnforcedTenant(req)
	if !ok {
		return nil, query.Configuration("query is not scoped to a tenant")
	}
	if e.cfg.Primary == nil {
		return nil, query.Configuration("no semantic query channel configured")
	}
	req.Limit = e.Limit(req.Limit)

	ctx, span := tracer.Start(ctx, "executor.Execute")
	defer span.End()
	span.SetAttributes(
		attribute.StringSlice("query.metrics", req.Metrics),
		attribute.Int("query.limit", req.Limit),
	)

	result, primaryErr := e.attempt(ctx, ChannelPrimary, e.cfg.Primary, e.cfg.Timeout, tenant, req)
	if primaryErr == nil {
		span.SetAttributes(attribute.String("query.channel", string(ChannelPrimary)))
		return &Outcome{Result: result, Channel: ChannelPrimary}, nil
	}
	if isFatal(primaryErr) || e.cfg.Fallback == nil || ctx.Err() != nil {
		return nil, e.fail(span, primaryErr, nil)
	}

	e.logger.Warn("primary query channel failed, trying fallback", "tenant_id", tenant, "error", primaryErr)
	result, fallbackErr := e.attempt(ctx, ChannelFallback, e.cfg.Fallback, e.cfg.FallbackTimeout, tenant, req)
	if fallbackErr == nil {
		span.SetAttributes(attribute.String("query.channel", string(ChannelFallback)))
		return &Outcome{Result: result, Channel: ChannelFallback}, nil
	}
	if isFatal(fallbackErr) {
		return nil, e.fail(span, fallbackErr, nil)
	}
	return nil, e.fail(span, primaryErr, fallbackErr)
}

func (e *Executor) fail(span trace.Span, primary, fallback error) error {
	var err error
	if isFatal(primary) {
		err = primary
	} else {
		err = &ExecutionError{Primary: primary, Fallback: fallback}
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}

// attempt re-verifies tenant scoping and policy, then calls ch within timeout.
func (e *Executor) attempt(ctx context.Context, name ChannelName, ch Channel, timeout time.Duration, tenant string, req query.Request) (*query.Result, error) {
	if got, ok := query.EnforcedTenant(req); !ok || got != tenant {
		e.record(name, "rejected")
		return nil, query.Configuration("tenant scope changed before " + string(name) + " channel")
	}
	if e.cfg.Guard != nil {
		err := e.cfg.Guard.Check(ctx, policy.Input{
			Tenant:       tenant,
			TenantValues: query.TenantValues(req),
			Metrics:      req.Metrics,
			Limit:        req.Limit,
			MaxLimit:     e.cfg.MaxLimit,
			Channel:      string(name),
		})
		if err != nil {
			e.record(name, "rejected")
			return nil, fmt.Errorf("checking %s query: %w", name, err)
		}
	}

	callCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	result, err := ch.Query(callCtx, req)
	if err != nil {
		e.record(name, "error")
		return nil, fmt.Errorf("%s channel: %w", name, err)
	}
	if result == nil {
		result = query.NewResult(req, nil)
	}
	if len(result.Columns) == 0 {
		result.Columns = req.Columns()
	}
	if req.Limit > 0 && len(result.Rows) > req.Limit {
		result.Rows = result.Rows[:req.Limit]
	}
	e.record(name, "ok")
	return result, nil
}

func (e *Executor) record(name ChannelName, status string) {
	if e.cfg.Metrics != nil {
		e.cfg.Metrics.ExecutorQuery(string(name), status)
	}
}

// isFatal reports errors that must not be retried on another channel.
func isFatal(err error) bool {
	return errors.Is(err, query.ErrConfiguration) || errors.Is(err, policy.ErrDenied)
}
