// Package api exposes the agent over HTTP.
package api

import (
	"context"

	"github.com/charmbracelet/log"
	"github.com/gofiber/fiber/v2"

	"github.com/soham-vohra/git-history-agent/agent"
	"github.com/soham-vohra/git-history-agent/model"
	"github.com/soham-vohra/git-history-agent/session"
)

// Answerer is the slice of the orchestrator the HTTP layer needs.
type Answerer interface {
	Answer(ctx context.Context, subject model.BlockRef, question, sessionID string) (agent.Answer, error)
}

// Config holds server settings.
type Config struct {
	ListenAddr string
}

// Server is the HTTP server for the git history agent.
type Server struct {
	config   Config
	answerer Answerer
	sessions *session.Store
	logger   *log.Logger
	app      *fiber.App
}

// NewServer creates an HTTP server around the given answerer and session
// store.
func NewServer(config Config, answerer Answerer, sessions *session.Store, logger *log.Logger) *Server {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
	})

	if logger == nil {
		logger = log.Default()
	}

	s := &Server{
		config:   config,
		answerer: answerer,
		sessions: sessions,
		logger:   logger,
		app:      app,
	}

	app.Get("/ping", s.handlePing)
	app.Post("/chat", s.handleChat)
	app.Post("/chat/sessions", s.handleCreateSession)
	app.Get("/chat/sessions", s.handleListSessions)
	app.Get("/chat/sessions/:id", s.handleGetSession)
	app.Delete("/chat/sessions/:id", s.handleDeleteSession)

	return s
}

// Run starts the server on the configured address.
func (s *Server) Run() error {
	s.logger.Info("starting API server", "listen", s.config.ListenAddr)
	return s.app.Listen(s.config.ListenAddr)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}

// App exposes the fiber app. Used by tests.
func (s *Server) App() *fiber.App {
	return s.app
}
