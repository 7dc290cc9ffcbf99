package api

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/soham-vohra/git-history-agent/agent"
	"github.com/soham-vohra/git-history-agent/llm"
	"github.com/soham-vohra/git-history-agent/model"
	"github.com/soham-vohra/git-history-agent/repo"
	"github.com/soham-vohra/git-history-agent/session"
)

// ErrorResponse is the JSON error envelope for every failed request.
type ErrorResponse struct {
	Error string `json:"error"`
}

// ChatRequest asks a question about one block of code.
type ChatRequest struct {
	BlockRef  model.BlockRef `json:"block_ref"`
	Question  string         `json:"question"`
	SessionID string         `json:"session_id,omitempty"`
}

// ChatResponse carries the agent's answer.
type ChatResponse struct {
	Answer     string `json:"answer"`
	Truncated  bool   `json:"truncated,omitempty"`
	Iterations int    `json:"iterations"`
	SessionID  string `json:"session_id,omitempty"`
}

// CreateSessionRequest optionally pins a new session to a block.
type CreateSessionRequest struct {
	BlockRef *model.BlockRef `json:"block_ref,omitempty"`
}

// CreateSessionResponse returns the new session id.
type CreateSessionResponse struct {
	SessionID string `json:"session_id"`
}

// handlePing returns a simple health check response.
func (s *Server) handlePing(c *fiber.Ctx) error {
	return c.JSON("pong")
}

// handleChat runs the agent for one question.
func (s *Server) handleChat(c *fiber.Ctx) error {
	var req ChatRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "invalid request body"})
	}

	answer, err := s.answerer.Answer(c.Context(), req.BlockRef, req.Question, req.SessionID)
	if err != nil {
		return s.chatError(c, err)
	}

	return c.JSON(ChatResponse{
		Answer:     answer.Text,
		Truncated:  answer.Truncated,
		Iterations: answer.Iterations,
		SessionID:  answer.SessionID,
	})
}

// chatError maps agent failures to HTTP statuses. Caller mistakes are
// 400s, missing sessions 404, upstream model trouble 502, the rest 500.
func (s *Server) chatError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, model.ErrInvalidSubject), errors.Is(err, agent.ErrEmptyQuestion):
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: err.Error()})
	case errors.Is(err, session.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(ErrorResponse{Error: err.Error()})
	case repo.IsGitError(err):
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "git error: " + err.Error()})
	case llm.IsProviderError(err):
		s.logger.Error("provider failure", "err", err)
		return c.Status(fiber.StatusBadGateway).JSON(ErrorResponse{Error: "llm provider error"})
	default:
		s.logger.Error("chat failed", "err", err)
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{Error: "internal server error"})
	}
}

// handleCreateSession creates an empty conversation session.
func (s *Server) handleCreateSession(c *fiber.Ctx) error {
	var req CreateSessionRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: "invalid request body"})
		}
	}
	if req.BlockRef != nil {
		if err := req.BlockRef.Validate(); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: err.Error()})
		}
	}

	id := s.sessions.Create(req.BlockRef)
	return c.Status(fiber.StatusCreated).JSON(CreateSessionResponse{SessionID: id})
}

// handleListSessions returns live sessions plus store occupancy.
func (s *Server) handleListSessions(c *fiber.Ctx) error {
	sessions := s.sessions.List()
	return c.JSON(fiber.Map{
		"count":    len(sessions),
		"sessions": sessions,
		"stats":    s.sessions.Stats(),
	})
}

// handleGetSession returns one session's ordered transcript.
func (s *Server) handleGetSession(c *fiber.Ctx) error {
	snap, err := s.sessions.Get(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(ErrorResponse{Error: "session not found"})
	}
	return c.JSON(snap)
}

// handleDeleteSession deletes a session. Deleting an unknown or already
// deleted session is a 404, but harmless.
func (s *Server) handleDeleteSession(c *fiber.Ctx) error {
	if !s.sessions.Delete(c.Params("id")) {
		return c.Status(fiber.StatusNotFound).JSON(ErrorResponse{Error: "session not found"})
	}
	return c.SendStatus(fiber.StatusNoContent)
}
