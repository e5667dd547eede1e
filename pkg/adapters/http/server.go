// Package http exposes the bot over a JSON HTTP API.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/aretw0/fieldbot"
	"github.com/aretw0/fieldbot/internal/logging"
	"github.com/aretw0/fieldbot/internal/presentation/graph"
	"github.com/aretw0/fieldbot/internal/runtime"
	"github.com/aretw0/fieldbot/pkg/domain"
	"github.com/aretw0/fieldbot/pkg/router"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Bot is the part of fieldbot.Bot served over HTTP.
type Bot interface {
	HandleTextThen(ctx context.Context, userID, text string, deliver fieldbot.Delivery) (domain.Reply, *domain.Session, error)
	Session(ctx context.Context, userID string) (*domain.Session, error)
	Sessions(ctx context.Context) ([]*domain.Session, error)
	ReloadDataset(ctx context.Context) (*domain.Snapshot, error)
}

var _ Bot = (*fieldbot.Bot)(nil)

// Server holds the handlers of the API.
type Server struct {
	Bot     Bot
	Streams *StreamManager

	metrics http.Handler
	logger  *slog.Logger
}

// Option configures the Server.
type Option func(*Server)

// WithLogger configures a logger for the Server.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithMetricsHandler mounts h at /metrics.
func WithMetricsHandler(h http.Handler) Option {
	return func(s *Server) {
		s.metrics = h
	}
}

// MessageRequest is the body of POST /v1/users/{userID}/messages.
type MessageRequest struct {
	Text string `json:"text"`
}

// RenderedReply carries a reply in every supported format.
type RenderedReply struct {
	HTML     string   `json:"html"`
	Markdown string   `json:"markdown"`
	Plain    string   `json:"plain"`
	Options  []string `json:"options,omitempty"`
}

// MessageResponse is returned for every handled message and streamed to subscribers.
type MessageResponse struct {
	UserID string             `json:"user_id"`
	State  domain.DialogState `json:"state"`
	Turns  int                `json:"turns"`
	Reply  RenderedReply      `json:"reply"`
}

// ReloadResponse reports the freshly loaded dataset.
type ReloadResponse struct {
	Source   string    `json:"source"`
	Records  int       `json:"records"`
	LoadedAt time.Time `json:"loaded_at"`
}

// NewHandler creates the HTTP handler for bot.
func NewHandler(bot Bot, opts ...Option) http.Handler {
	s := &Server{
		Bot:    bot,
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.Streams = NewStreamManager(s.logger)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(enableCORS)

	r.Get("/health", s.GetHealth)
	r.Get("/info", s.GetInfo)
	if s.metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.metrics)
	}

	r.Route("/v1", func(r chi.Router) {
		r.Get("/sessions", s.ListSessions)
		r.Get("/graph", s.GetGraph)
		r.Post("/dataset/reload", s.ReloadDataset)
		r.Route("/users/{userID}", func(r chi.Router) {
			r.Post("/messages", s.PostMessage)
			r.Get("/session", s.GetSession)
			r.Get("/events", s.SubscribeEvents)
		})
	})
	return r
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// PostMessage handles POST /v1/users/{userID}/messages.
func (s *Server) PostMessage(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	var body MessageRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 64<<10)).Decode(&body); err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		return
	}

	var resp MessageResponse
	_, _, err := s.Bot.HandleTextThen(r.Context(), userID, body.Text, func(_ context.Context, reply domain.Reply, sess *domain.Session) {
		resp = newMessageResponse(reply, sess)
		if payload, err := json.Marshal(resp); err == nil {
			s.Streams.Broadcast(userID, string(payload))
		}
	})
	if err != nil {
		s.writeError(w, statusFor(err), err)
		return
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func newMessageResponse(reply domain.Reply, sess *domain.Session) MessageResponse {
	return MessageResponse{
		UserID: sess.UserID,
		State:  sess.State,
		Turns:  sess.Turns,
		Reply: RenderedReply{
			HTML:     router.HTML(reply),
			Markdown: router.Markdown(reply),
			Plain:    router.Plain(reply),
			Options:  reply.Options,
		},
	}
}

// GetSession handles GET /v1/users/{userID}/session.
func (s *Server) GetSession(w http.ResponseWriter, r *http.Request) {
	sess, err := s.Bot.Session(r.Context(), chi.URLParam(r, "userID"))
	if err != nil {
		s.writeError(w, statusFor(err), err)
		return
	}
	s.writeJSON(w, http.StatusOK, sess)
}

// ListSessions handles GET /v1/sessions.
func (s *Server) ListSessions(w http.ResponseWriter, r *http.Request) {
	sessions, err := s.Bot.Sessions(r.Context())
	if err != nil {
		s.writeError(w, statusFor(err), err)
		return
	}
	s.writeJSON(w, http.StatusOK, sessions)
}

// ReloadDataset handles POST /v1/dataset/reload.
func (s *Server) ReloadDataset(w http.ResponseWriter, r *http.Request) {
	snap, err := s.Bot.ReloadDataset(r.Context())
	if err != nil {
		s.writeError(w, statusFor(err), err)
		return
	}
	s.writeJSON(w, http.StatusOK, ReloadResponse{
		Source:   snap.Source,
		Records:  snap.Len(),
		LoadedAt: snap.LoadedAt,
	})
}

// GetGraph handles GET /v1/graph. With ?user=<id> the user's state is highlighted.
func (s *Server) GetGraph(w http.ResponseWriter, r *http.Request) {
	var overlay *graph.Overlay
	if userID := r.URL.Query().Get("user"); userID != "" {
		sess, err := s.Bot.Session(r.Context(), userID)
		if err != nil {
			s.writeError(w, statusFor(err), err)
			return
		}
		overlay = &graph.Overlay{Current: sess.State}
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	fmt.Fprint(w, graph.GenerateMermaid(runtime.Edges(), overlay))
}

// GetHealth handles GET /health.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GetInfo handles GET /info.
func (s *Server) GetInfo(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{
		"app":     "fieldbot-http",
		"version": fieldbot.Version,
	})
}

// SubscribeEvents handles GET /v1/users/{userID}/events as a server-sent event stream
// of every MessageResponse produced for the user.
func (s *Server) SubscribeEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		s.writeError(w, http.StatusInternalServerError, errors.New("streaming not supported"))
		return
	}
	userID := chi.URLParam(r, "userID")

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ch, cancel := s.Streams.Subscribe(userID)
	defer cancel()

	fmt.Fprintf(w, "event: ping\ndata: connected\n\n")
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			s.logger.Debug("sse client disconnected", "user_id", userID)
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			fmt.Fprintf(w, "event: reply\ndata: %s\n\n", msg)
			flusher.Flush()
		}
	}
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrInvalidEvent):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrSessionNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrDataUnavailable):
		return http.StatusBadGateway
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("response encode failed", "err", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, err error) {
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "status", status, "err", err)
	} else {
		s.logger.Warn("request rejected", "status", status, "err", err)
	}
	s.writeJSON(w, status, map[string]string{"error": err.Error()})
}
