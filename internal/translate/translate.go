// Package translate turns a member's question into a structured metric query
// through a single language-model function call.
package translate

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/rpggio/benefits-portal/internal/catalog"
	"github.com/rpggio/benefits-portal/internal/domain/session"
	"github.com/rpggio/benefits-portal/internal/query"
	"github.com/sashabaranov/go-openai"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("portal.translate")

// ChatCompleter is the subset of the OpenAI client the translator needs.
type ChatCompleter interface {
	CreateChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// Recorder observes translation outcomes.
type Recorder interface {
	Translation(result string)
}

// Kind distinguishes a runnable query from a clarifying reply.
type Kind string

const (
	KindQuery         Kind = "query"
	KindClarification Kind = "clarification"
)

// Translation is the model's answer to one question.
type Translation struct {
	Kind    Kind
	Request query.Request
	// Text is the clarifying question when Kind is KindClarification.
	Text string
}

// Config configures a Translator.
type Config struct {
	Completer       ChatCompleter
	Model           string
	Temperature     float32
	Timeout         time.Duration
	TenantDimension string
	Metrics         Recorder
	Logger          *slog.Logger
}

// Translator issues one completion per question.
type Translator struct {
	cfg    Config
	logger *slog.Logger
}

// New creates a Translator.
func New(cfg Config) *Translator {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Translator{cfg: cfg, logger: logger}
}

// Translate asks the model to express question as a query over cat.
// The returned request is unscoped; tenant enforcement happens downstream.
func (t *Translator) Translate(ctx context.Context, question string, cat *catalog.Catalog, sess *session.Session) (*Translation, error) {
	if t.cfg.Completer == nil {
		return nil, query.Configuration("language model credentials missing")
	}
	if err := sess.Validate(); err != nil {
		return nil, query.Configuration("session has no tenant")
	}
	if cat == nil {
		cat = &catalog.Catalog{}
	}

	ctx, span := tracer.Start(ctx, "translate.Translate")
	defer span.End()
	span.SetAttributes(attribute.String("llm.model", t.cfg.Model))

	if t.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.cfg.Timeout)
		defer cancel()
	}

	resp, err := t.cfg.Completer.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: t.cfg.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt(cat, sess)},
			{Role: openai.ChatMessageRoleUser, Content: question},
		},
		Tools:       []openai.Tool{queryTool(cat)},
		ToolChoice:  "auto",
		Temperature: t.cfg.Temperature,
	})
	if err != nil {
		return nil, t.fail(span, &TranslationError{Reason: "language model call failed", Err: errors.Join(ErrModelUnavailable, err)})
	}

	translation, err := t.interpret(resp, cat)
	if err != nil {
		return nil, t.fail(span, err)
	}
	span.SetAttributes(attribute.String("translate.kind", string(translation.Kind)))
	t.record(string(translation.Kind))
	return translation, nil
}

func (t *Translator) interpret(resp openai.ChatCompletionResponse, cat *catalog.Catalog) (*Translation, error) {
	if len(resp.Choices) == 0 {
		return nil, &TranslationError{Reason: "language model returned no choices"}
	}
	msg := resp.Choices[0].Message

	for _, call := range msg.ToolCalls {
		if call.Function.Name != ToolName {
			return nil, &TranslationError{Reason: "unexpected tool " + call.Function.Name}
		}
		args, err := query.ParseArguments(call.Function.Arguments)
		if err != nil {
			return nil, &TranslationError{Reason: "malformed query arguments", Err: err}
		}
		req, err := args.Resolve(cat, t.cfg.TenantDimension)
		if err != nil {
			return nil, &TranslationError{Reason: "query does not match the catalog", Err: err}
		}
		t.logger.Debug("translated question", "metrics", req.Metrics, "group_by", len(req.GroupBy))
		return &Translation{Kind: KindQuery, Request: req}, nil
	}

	text := strings.TrimSpace(msg.Content)
	if text == "" {
		return nil, &TranslationError{Reason: "language model returned an empty response"}
	}
	return &Translation{Kind: KindClarification, Text: text}, nil
}

func (t *Translator) fail(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	t.record("error")
	return err
}

func (t *Translator) record(result string) {
	if t.cfg.Metrics != nil {
		t.cfg.Metrics.Translation(result)
	}
}
