package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/ReadyPlayerEmma/looplace/internal/readiness"
	"github.com/ReadyPlayerEmma/looplace/internal/repository"
)

// ReadinessHandler answers whether enough time has passed since the last
// persisted run of a task. The answer is advisory; it never blocks a run.
type ReadinessHandler struct {
	log    *zap.Logger
	policy readiness.Policy
}

func NewReadinessHandler(log *zap.Logger, policy readiness.Policy) *ReadinessHandler {
	return &ReadinessHandler{log: log, policy: policy}
}

func (h *ReadinessHandler) Check(c *gin.Context) {
	task := c.Param("task")

	last, err := repository.LatestSummary(c.Request.Context(), task)
	if err != nil {
		h.log.Error("Failed to load latest summary", zap.Error(err), zap.String("task", task))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to evaluate readiness"})
		return
	}

	r := readiness.Evaluate(h.policy, task, last, time.Now())
	c.JSON(http.StatusOK, gin.H{
		"readiness": r,
		"status":    r.StatusLabel(),
		"detail":    r.DetailMessage(),
	})
}
