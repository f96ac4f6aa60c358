package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/ReadyPlayerEmma/looplace/internal/session"
)

// SessionsHandler exposes server-driven task runs: the server owns the
// engine, timers fire in its session goroutine, and the client only sends
// keypresses and polls for state.
type SessionsHandler struct {
	log     *zap.Logger
	manager *session.Manager
}

func NewSessionsHandler(log *zap.Logger, manager *session.Manager) *SessionsHandler {
	return &SessionsHandler{log: log, manager: manager}
}

type createSessionRequest struct {
	Task string `json:"task" binding:"required"`
	Mode string `json:"mode"`
}

func (h *SessionsHandler) Create(c *gin.Context) {
	var req createSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid data"})
		return
	}

	snap, err := h.manager.Start(req.Task, req.Mode)
	if errors.Is(err, session.ErrUnknownTask) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown task"})
		return
	}
	if err != nil {
		h.log.Error("Failed to start session", zap.Error(err), zap.String("task", req.Task))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to start session"})
		return
	}

	c.JSON(http.StatusCreated, snap)
}

func (h *SessionsHandler) StartRun(c *gin.Context) {
	snap, err := h.manager.StartRun(c.Param("id"), c.Query("mode"))
	if h.reject(c, err) {
		return
	}
	c.JSON(http.StatusOK, snap)
}

func (h *SessionsHandler) Respond(c *gin.Context) {
	outcome, err := h.manager.Respond(c.Param("id"))
	if h.reject(c, err) {
		return
	}
	c.JSON(http.StatusOK, gin.H{"outcome": outcome})
}

func (h *SessionsHandler) Abort(c *gin.Context) {
	if h.reject(c, h.manager.Abort(c.Param("id"))) {
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *SessionsHandler) Show(c *gin.Context) {
	snap, err := h.manager.Snapshot(c.Param("id"))
	if h.reject(c, err) {
		return
	}
	c.JSON(http.StatusOK, snap)
}

func (h *SessionsHandler) reject(c *gin.Context, err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, session.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Session not found"})
		return true
	}
	h.log.Error("Session operation failed", zap.Error(err))
	c.JSON(http.StatusInternalServerError, gin.H{"error": "Session operation failed"})
	return true
}
