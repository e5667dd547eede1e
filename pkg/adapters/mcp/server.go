// Package mcp exposes the bot as a Model Context Protocol server.
package mcp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/aretw0/fieldbot"
	"github.com/aretw0/fieldbot/internal/logging"
	"github.com/aretw0/fieldbot/internal/presentation/graph"
	"github.com/aretw0/fieldbot/internal/runtime"
	"github.com/aretw0/fieldbot/pkg/domain"
	"github.com/aretw0/fieldbot/pkg/router"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

const graphURI = "fieldbot://graph"

// Bot is the part of fieldbot.Bot exposed as MCP tools.
type Bot interface {
	HandleText(ctx context.Context, userID, text string) (domain.Reply, *domain.Session, error)
	Session(ctx context.Context, userID string) (*domain.Session, error)
	Search(ctx context.Context, term string) (domain.Reply, []domain.Record, error)
	Sanitize(text string) (string, error)
	ReloadDataset(ctx context.Context) (*domain.Snapshot, error)
}

var _ Bot = (*fieldbot.Bot)(nil)

// MessageArgs are the arguments of send_message.
type MessageArgs struct {
	UserID string `json:"user_id"`
	Text   string `json:"text"`
}

// MessageResult aligns with the HTTP adapter's message response.
type MessageResult struct {
	UserID  string             `json:"user_id" jsonschema_description:"The conversation the message was sent to"`
	State   domain.DialogState `json:"state" jsonschema_description:"Dialog state after the message"`
	Reply   string             `json:"reply" jsonschema_description:"Reply rendered as Markdown"`
	Options []string           `json:"options,omitempty" jsonschema_description:"Menu buttons offered with the reply"`
}

// SearchArgs are the arguments of search_records.
type SearchArgs struct {
	Term string `json:"term"`
}

// SearchResult lists matching records in dataset order.
type SearchResult struct {
	Term    string              `json:"term"`
	Total   int                 `json:"total" jsonschema_description:"Number of matching records"`
	Records []map[string]string `json:"records"`
	Reply   string              `json:"reply" jsonschema_description:"The chat reply a user would see, as Markdown"`
}

// SessionArgs are the arguments of get_session.
type SessionArgs struct {
	UserID string `json:"user_id"`
}

// ReloadResult reports the freshly loaded dataset.
type ReloadResult struct {
	Source   string    `json:"source"`
	Records  int       `json:"records"`
	LoadedAt time.Time `json:"loaded_at"`
}

// Server wraps the bot and exposes it as an MCP Server.
type Server struct {
	bot       Bot
	mcpServer *server.MCPServer
	logger    *slog.Logger
}

// Option configures the Server.
type Option func(*Server)

// WithLogger configures a logger for the Server.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// NewServer creates a new MCP Server instance.
func NewServer(bot Bot, opts ...Option) *Server {
	s := &Server{
		bot:    bot,
		logger: logging.NewNop(),
		mcpServer: server.NewMCPServer("fieldbot-mcp", strings.TrimSpace(fieldbot.Version),
			server.WithToolCapabilities(false),
			server.WithResourceCapabilities(false, false),
		),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.registerTools()
	s.registerResources()
	return s
}

// MCPServer returns the underlying server, for in-process clients.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcpServer
}

// ServeStdio starts the server on Stdin/Stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeSSE serves the MCP SSE transport on addr until ctx is done.
func (s *Server) ServeSSE(ctx context.Context, addr, baseURL string) error {
	sseServer := server.NewSSEServer(s.mcpServer, server.WithBaseURL(baseURL))

	mux := http.NewServeMux()
	mux.Handle("/sse", sseServer.SSEHandler())
	mux.Handle("/message", sseServer.MessageHandler())

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("MCP server listening (SSE)", "address", addr)
		serverErrors <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
		return nil
	}
}

func (s *Server) registerTools() {
	s.mcpServer.AddTool(mcp.NewTool("send_message",
		mcp.WithDescription("Send a chat message as a user and receive the bot's reply. Use /start to open the menu."),
		mcp.WithString("user_id", mcp.Required(), mcp.Description("Conversation identifier")),
		mcp.WithString("text", mcp.Required(), mcp.Description("Message text, a menu label or a slash command")),
		mcp.WithOutputSchema[MessageResult](),
	), mcp.NewStructuredToolHandler(s.handleSendMessage))

	s.mcpServer.AddTool(mcp.NewTool("search_records",
		mcp.WithDescription("Search the site dataset for a case-insensitive substring in any column."),
		mcp.WithString("term", mcp.Required(), mcp.Description("Search term (SITE, IP, etc.)")),
		mcp.WithOutputSchema[SearchResult](),
	), mcp.NewStructuredToolHandler(s.handleSearch))

	s.mcpServer.AddTool(mcp.NewTool("get_session",
		mcp.WithDescription("Get the dialog state of a conversation."),
		mcp.WithString("user_id", mcp.Required(), mcp.Description("Conversation identifier")),
		mcp.WithOutputSchema[domain.Session](),
	), mcp.NewStructuredToolHandler(s.handleGetSession))

	s.mcpServer.AddTool(mcp.NewTool("reload_dataset",
		mcp.WithDescription("Fetch the site dataset again. The previous data stays in use on failure."),
		mcp.WithOutputSchema[ReloadResult](),
	), mcp.NewStructuredToolHandler(s.handleReload))
}

func (s *Server) handleSendMessage(ctx context.Context, _ mcp.CallToolRequest, args MessageArgs) (MessageResult, error) {
	reply, sess, err := s.bot.HandleText(ctx, args.UserID, args.Text)
	if err != nil {
		s.logger.Warn("MCP send_message rejected", "user_id", args.UserID, "err", err)
		return MessageResult{}, err
	}
	return MessageResult{
		UserID:  sess.UserID,
		State:   sess.State,
		Reply:   router.Markdown(reply),
		Options: reply.Options,
	}, nil
}

func (s *Server) handleSearch(ctx context.Context, _ mcp.CallToolRequest, args SearchArgs) (SearchResult, error) {
	term, err := s.bot.Sanitize(args.Term)
	if err != nil {
		return SearchResult{}, err
	}
	reply, records, err := s.bot.Search(ctx, term)
	if err != nil {
		return SearchResult{}, err
	}

	out := SearchResult{
		Term:    term,
		Total:   len(records),
		Records: make([]map[string]string, 0, len(records)),
		Reply:   router.Markdown(reply),
	}
	for _, rec := range records {
		out.Records = append(out.Records, rec.Map())
	}
	return out, nil
}

func (s *Server) handleGetSession(ctx context.Context, _ mcp.CallToolRequest, args SessionArgs) (domain.Session, error) {
	sess, err := s.bot.Session(ctx, args.UserID)
	if err != nil {
		return domain.Session{}, err
	}
	return *sess, nil
}

func (s *Server) handleReload(ctx context.Context, _ mcp.CallToolRequest, _ struct{}) (ReloadResult, error) {
	snap, err := s.bot.ReloadDataset(ctx)
	if err != nil {
		return ReloadResult{}, err
	}
	return ReloadResult{Source: snap.Source, Records: snap.Len(), LoadedAt: snap.LoadedAt}, nil
}

func (s *Server) registerResources() {
	s.mcpServer.AddResource(mcp.NewResource(graphURI, "Dialog State Diagram",
		mcp.WithResourceDescription("Mermaid flowchart of the dialog states and their transitions"),
		mcp.WithMIMEType("text/plain"),
	), func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      graphURI,
				MIMEType: "text/plain",
				Text:     graph.GenerateMermaid(runtime.Edges(), nil),
			},
		}, nil
	})
}
