// Package assistant runs the question pipeline: sanitize, translate, scope to
// the tenant, execute and format.
package assistant

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/rpggio/benefits-portal/internal/catalog"
	"github.com/rpggio/benefits-portal/internal/domain/conversation"
	"github.com/rpggio/benefits-portal/internal/domain/session"
	"github.com/rpggio/benefits-portal/internal/domain/tenant"
	"github.com/rpggio/benefits-portal/internal/executor"
	"github.com/rpggio/benefits-portal/internal/format"
	"github.com/rpggio/benefits-portal/internal/query"
	"github.com/rpggio/benefits-portal/internal/sanitize"
	"github.com/rpggio/benefits-portal/internal/translate"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/semaphore"
)

var tracer = otel.Tracer("portal.assistant")

// ErrBusy is returned when the session already has a question in flight.
var ErrBusy = errors.New("a question is already being answered for this session")

// EmptyQuestionText is the reply to a blank question.
const EmptyQuestionText = "Please ask a question about your benefits, such as how much of your deductible you have met."

// CatalogSource provides the current catalog snapshot.
type CatalogSource interface {
	Snapshot(ctx context.Context) *catalog.Catalog
}

// Translator turns a question into a query.
type Translator interface {
	Translate(ctx context.Context, question string, cat *catalog.Catalog, sess *session.Session) (*translate.Translation, error)
}

// Executor runs a tenant-scoped query.
type Executor interface {
	Execute(ctx context.Context, req query.Request) (*executor.Outcome, error)
}

// Formatter renders a result.
type Formatter interface {
	Format(result *query.Result, req query.Request, question string) format.Response
}

// Conversation records turns.
type Conversation interface {
	Append(ctx context.Context, sess *session.Session, role conversation.Role, kind, text string, payload any) (*conversation.Turn, error)
}

// PlanReader loads plan details for the sidebar.
type PlanReader interface {
	Plan(ctx context.Context, id string) (*tenant.Plan, error)
}

// Explainer compiles a query to warehouse SQL.
type Explainer interface {
	CompiledSQL(ctx context.Context, req query.Request) (string, error)
}

// Recorder observes finished questions.
type Recorder interface {
	PipelineRequest(outcome string, elapsed time.Duration)
}

// Config wires the pipeline stages.
type Config struct {
	Catalog      CatalogSource
	Translator   Translator
	Enforcer     query.Enforcer
	Executor     Executor
	Formatter    Formatter
	Conversation Conversation
	Plans        PlanReader
	Explainer    Explainer
	Metrics      Recorder
	Logger       *slog.Logger
}

// Service answers member questions.
type Service struct {
	cfg    Config
	logger *slog.Logger

	mu       sync.Mutex
	inflight map[string]*semaphore.Weighted
}

// New creates a Service.
func New(cfg Config) *Service {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Service{
		cfg:      cfg,
		logger:   logger,
		inflight: make(map[string]*semaphore.Weighted),
	}
}

// Ask answers one question for sess. Pipeline failures are returned as an
// error-kind reply; only an invalid session or a concurrent ask is an error.
func (s *Service) Ask(ctx context.Context, sess *session.Session, question string) (*Reply, error) {
	if err := sess.Validate(); err != nil {
		return nil, err
	}
	release, ok := s.acquire(sess.ID)
	if !ok {
		return nil, ErrBusy
	}
	defer release()

	start := time.Now()
	ctx, span := tracer.Start(ctx, "assistant.Ask")
	defer span.End()

	clean := sanitize.Sanitize(question)
	if clean == "" {
		return &Reply{Kind: KindText, Text: EmptyQuestionText}, nil
	}

	s.appendTurn(ctx, sess, conversation.RoleUser, "", clean, nil)
	reply := s.answer(ctx, sess, clean)
	var payload any
	if reply.Payload != nil {
		payload = reply.Payload
	}
	s.appendTurn(ctx, sess, conversation.RoleAssistant, string(reply.Kind), reply.Text, payload)

	span.SetAttributes(
		attribute.String("reply.kind", string(reply.Kind)),
		attribute.String("catalog.origin", string(reply.Trace.CatalogOrigin)),
		attribute.String("query.channel", string(reply.Trace.Channel)),
	)
	if s.cfg.Metrics != nil {
		s.cfg.Metrics.PipelineRequest(string(reply.Kind), time.Since(start))
	}
	return reply, nil
}

func (s *Service) answer(ctx context.Context, sess *session.Session, question string) *Reply {
	cat := s.cfg.Catalog.Snapshot(ctx)
	trace := Trace{CatalogOrigin: cat.Origin}

	tr, err := s.cfg.Translator.Translate(ctx, question, cat, sess)
	if err != nil {
		return s.failure(ctx, sess, "translate", err, trace)
	}
	if tr.Kind == translate.KindClarification {
		return &Reply{Kind: KindText, Text: tr.Text, Trace: trace}
	}

	req, err := s.cfg.Enforcer.Enforce(tr.Request, sess)
	if err != nil {
		return s.failure(ctx, sess, "enforce", err, trace)
	}

	out, err := s.cfg.Executor.Execute(ctx, req)
	if err != nil {
		return s.failure(ctx, sess, "execute", err, trace)
	}
	trace.Channel = out.Channel

	resp := s.cfg.Formatter.Format(out.Result, req, question)
	return &Reply{Kind: Kind(resp.Kind), Text: resp.Text, Payload: resp.Payload, Trace: trace}
}

func (s *Service) failure(ctx context.Context, sess *session.Session, stage string, err error, trace Trace) *Reply {
	s.logger.ErrorContext(ctx, "question pipeline failed",
		"stage", stage,
		"tenant_id", sess.TenantID,
		"session_id", sess.ID,
		"error", err,
	)
	return &Reply{Kind: KindError, Text: userMessage(err), Trace: trace}
}

// Explain returns the warehouse SQL a question would run, scoped to sess.
// The tenant id is masked in the returned text.
func (s *Service) Explain(ctx context.Context, sess *session.Session, question string) (string, error) {
	if err := sess.Validate(); err != nil {
		return "", err
	}
	if s.cfg.Explainer == nil {
		return "", query.Configuration("semantic backend cannot compile SQL")
	}
	ctx, span := tracer.Start(ctx, "assistant.Explain")
	defer span.End()

	clean := sanitize.Sanitize(question)
	cat := s.cfg.Catalog.Snapshot(ctx)
	tr, err := s.cfg.Translator.Translate(ctx, clean, cat, sess)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return "", err
	}
	if tr.Kind == translate.KindClarification {
		return "", &translate.TranslationError{Reason: "question needs clarification: " + tr.Text}
	}
	req, err := s.cfg.Enforcer.Enforce(tr.Request, sess)
	if err != nil {
		return "", err
	}
	sql, err := s.cfg.Explainer.CompiledSQL(ctx, req)
	if err != nil {
		return "", err
	}
	return s.cfg.Enforcer.MaskTenant(sql, sess.TenantID), nil
}

// Catalog returns the vocabulary currently offered to members.
func (s *Service) Catalog(ctx context.Context) *catalog.Catalog {
	return s.cfg.Catalog.Snapshot(ctx)
}

func (s *Service) appendTurn(ctx context.Context, sess *session.Session, role conversation.Role, kind, text string, payload any) {
	if s.cfg.Conversation == nil {
		return
	}
	if _, err := s.cfg.Conversation.Append(ctx, sess, role, kind, text, payload); err != nil {
		s.logger.WarnContext(ctx, "failed to record conversation turn", "session_id", sess.ID, "role", role, "error", err)
	}
}

// acquire admits one ask per session at a time.
func (s *Service) acquire(sessionID string) (func(), bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sem, ok := s.inflight[sessionID]
	if !ok {
		sem = semaphore.NewWeighted(1)
		s.inflight[sessionID] = sem
	}
	if !sem.TryAcquire(1) {
		return nil, false
	}
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		sem.Release(1)
		delete(s.inflight, sessionID)
	}, true
}
