// Package transport exposes the portal over HTTP.
package transport

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rpggio/benefits-portal/internal/assistant"
	"github.com/rpggio/benefits-portal/internal/catalog"
	"github.com/rpggio/benefits-portal/internal/domain/conversation"
	"github.com/rpggio/benefits-portal/internal/domain/session"
)

// Sessions handles login and logout.
type Sessions interface {
	Login(ctx context.Context, email, password string) (*session.LoginResult, error)
	Logout(ctx context.Context, sess *session.Session) error
}

// History reads and clears a session's conversation.
type History interface {
	History(ctx context.Context, sess *session.Session, opts conversation.ListOptions) ([]conversation.Turn, error)
	Clear(ctx context.Context, sess *session.Session) error
}

// Assistant answers questions for an authenticated session.
type Assistant interface {
	Ask(ctx context.Context, sess *session.Session, question string) (*assistant.Reply, error)
	QuickStats(ctx context.Context, sess *session.Session) (*assistant.Summary, error)
	Catalog(ctx context.Context) *catalog.Catalog
}

// Config wires HTTP handlers to the services behind them.
type Config struct {
	Sessions  Sessions
	Resolver  SessionResolver
	History   History
	Assistant Assistant
	// Metrics serves /metrics when set.
	Metrics http.Handler
	// MCP serves /mcp when set. It authenticates on its own.
	MCP    http.Handler
	Logger *slog.Logger
}

// Server wires HTTP handlers.
type Server struct {
	cfg    Config
	logger *slog.Logger
}

// NewServer creates an HTTP server router with middleware.
func NewServer(cfg Config) *chi.Mux {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	srv := &Server{cfg: cfg, logger: logger}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/health", srv.handleHealth)
	if cfg.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", cfg.Metrics)
	}
	if cfg.MCP != nil {
		r.Handle("/mcp", cfg.MCP)
	}

	r.Route("/api", func(r chi.Router) {
		r.Post("/login", srv.handleLogin)

		r.Group(func(r chi.Router) {
			r.Use(AuthMiddleware(cfg.Resolver))
			r.Post("/logout", srv.handleLogout)
			r.Post("/chat", srv.handleChat)
			r.Get("/history", srv.handleHistory)
			r.Get("/summary", srv.handleSummary)
			r.Get("/catalog", srv.handleCatalog)
		})
	})

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type loginResponse struct {
	Token     string          `json:"token"`
	ExpiresAt time.Time       `json:"expires_at"`
	Profile   session.Profile `json:"profile"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "email and password are required")
		return
	}

	result, err := s.cfg.Sessions.Login(r.Context(), req.Email, req.Password)
	switch {
	case err == nil:
	case errors.Is(err, session.ErrInvalidCredentials), errors.Is(err, session.ErrInvalidInput):
		writeError(w, http.StatusUnauthorized, "invalid email or password")
		return
	default:
		s.logger.ErrorContext(r.Context(), "login failed", "error", err)
		writeError(w, http.StatusInternalServerError, "login is unavailable right now")
		return
	}

	writeJSON(w, http.StatusOK, loginResponse{
		Token:     result.Token,
		ExpiresAt: result.Session.ExpiresAt,
		Profile:   result.Session.Profile,
	})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	sess, _ := SessionFromContext(r.Context())

	if s.cfg.History != nil {
		if err := s.cfg.History.Clear(r.Context(), sess); err != nil {
			s.logger.WarnContext(r.Context(), "failed to clear conversation", "session_id", sess.ID, "error", err)
		}
	}
	if err := s.cfg.Sessions.Logout(r.Context(), sess); err != nil && !errors.Is(err, session.ErrSessionNotFound) {
		s.logger.ErrorContext(r.Context(), "logout failed", "session_id", sess.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "logout failed")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type chatRequest struct {
	Question string `json:"question" validate:"max=2000"`
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "a question is required")
		return
	}

	sess, _ := SessionFromContext(r.Context())
	reply, err := s.cfg.Assistant.Ask(r.Context(), sess, req.Question)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, reply)
	case errors.Is(err, assistant.ErrBusy):
		writeError(w, http.StatusConflict, "still working on your previous question")
	case errors.Is(err, session.ErrInvalidSession):
		writeError(w, http.StatusUnauthorized, "please log in again")
	default:
		s.logger.ErrorContext(r.Context(), "chat failed", "session_id", sess.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "something went wrong")
	}
}

type historyResponse struct {
	Turns []conversation.Turn `json:"turns"`
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	var opts conversation.ListOptions
	if v := r.URL.Query().Get("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit < 0 {
			writeError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		opts.Limit = limit
	}

	sess, _ := SessionFromContext(r.Context())
	turns, err := s.cfg.History.History(r.Context(), sess, opts)
	if err != nil {
		s.logger.ErrorContext(r.Context(), "history failed", "session_id", sess.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "history is unavailable right now")
		return
	}
	if turns == nil {
		turns = []conversation.Turn{}
	}
	writeJSON(w, http.StatusOK, historyResponse{Turns: turns})
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	sess, _ := SessionFromContext(r.Context())
	summary, err := s.cfg.Assistant.QuickStats(r.Context(), sess)
	if err != nil {
		s.logger.ErrorContext(r.Context(), "summary failed", "session_id", sess.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "summary is unavailable right now")
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

type catalogResponse struct {
	Metrics    []string       `json:"metrics"`
	Dimensions []string       `json:"dimensions"`
	Origin     catalog.Origin `json:"origin"`
}

func (s *Server) handleCatalog(w http.ResponseWriter, r *http.Request) {
	cat := s.cfg.Assistant.Catalog(r.Context())
	if cat == nil {
		cat = &catalog.Catalog{}
	}
	writeJSON(w, http.StatusOK, catalogResponse{
		Metrics:    cat.MetricNames(),
		Dimensions: cat.DimensionNames(),
		Origin:     cat.Origin,
	})
}
