// Package api exposes the chat HTTP surface.
package api

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/taskflow/assistant/chat"
)

// userIDHeader carries the authenticated identity, verified and set by the
// upstream auth gateway before requests reach this service.
const userIDHeader = "X-User-ID"

// Handler handles chat HTTP requests.
type Handler struct {
	agent    *chat.Agent
	sessions *chat.SessionStore
}

// NewHandler creates a new chat handler.
func NewHandler(agent *chat.Agent, sessions *chat.SessionStore) *Handler {
	return &Handler{agent: agent, sessions: sessions}
}

// RegisterRoutes registers the chat routes.
func (h *Handler) RegisterRoutes(e *echo.Echo) {
	e.POST("/api/chat", h.Chat)
	e.DELETE("/api/chat/sessions/:session_id", h.DeleteSession)
	e.GET("/healthz", h.Health)
}

// ChatRequest is the request body for POST /api/chat.
type ChatRequest struct {
	Message   string `json:"message"`
	SessionID string `json:"session_id,omitempty"`
}

// ErrorBody is the JSON error envelope for non-streaming failures.
type ErrorBody struct {
	Error string `json:"error"`
}

// Chat handles a chat turn and streams newline-delimited JSON event frames
// back over a long-lived response.
// POST /api/chat
func (h *Handler) Chat(c echo.Context) error {
	userID := c.Request().Header.Get(userIDHeader)
	if userID == "" {
		return c.JSON(http.StatusUnauthorized, ErrorBody{Error: "missing authenticated user"})
	}

	var req ChatRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, ErrorBody{Error: "invalid request body"})
	}
	if len(req.Message) < 1 || len(req.Message) > 1000 {
		return c.JSON(http.StatusBadRequest, ErrorBody{Error: "message must be 1-1000 characters"})
	}

	c.Response().Header().Set(echo.HeaderContentType, "application/x-ndjson")
	c.Response().Header().Set("Cache-Control", "no-cache")
	c.Response().Header().Set("Connection", "keep-alive")
	c.Response().Header().Set("X-Accel-Buffering", "no")
	c.Response().WriteHeader(http.StatusOK)

	em := chat.NewEmitter(c.Response())
	h.agent.Run(c.Request().Context(), userID, req.Message, req.SessionID, em)
	return nil
}

// DeleteSession discards a conversation session. A session owned by another
// user is reported as not found.
// DELETE /api/chat/sessions/:session_id
func (h *Handler) DeleteSession(c echo.Context) error {
	userID := c.Request().Header.Get(userIDHeader)
	if userID == "" {
		return c.JSON(http.StatusUnauthorized, ErrorBody{Error: "missing authenticated user"})
	}

	sessionID := c.Param("session_id")
	if !h.sessions.Delete(userID, sessionID) {
		return c.JSON(http.StatusNotFound, ErrorBody{Error: "session not found"})
	}
	return c.NoContent(http.StatusNoContent)
}

// Health reports liveness.
// GET /healthz
func (h *Handler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}
