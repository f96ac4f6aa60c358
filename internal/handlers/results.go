package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ReadyPlayerEmma/looplace/internal/models"
	"github.com/ReadyPlayerEmma/looplace/internal/qc"
	"github.com/ReadyPlayerEmma/looplace/internal/repository"
	"github.com/ReadyPlayerEmma/looplace/internal/tasks/nback"
	"github.com/ReadyPlayerEmma/looplace/internal/tasks/pvt"
)

// ResultsHandler accepts finished runs from clients that drove the task
// locally. Metrics are always recomputed server side from the raw trial list;
// any scores the client computed are discarded.
type ResultsHandler struct {
	log               *zap.Logger
	minReactionTrials int
}

func NewResultsHandler(log *zap.Logger, minReactionTrials int) *ResultsHandler {
	return &ResultsHandler{log: log, minReactionTrials: minReactionTrials}
}

type pvtSubmission struct {
	Trials      []models.PVTTrialPayload `json:"trials" binding:"required"`
	FalseStarts uint32                   `json:"false_starts"`
	Platform    string                   `json:"platform"`
	Timezone    string                   `json:"tz"`
	Notes       *string                  `json:"notes"`
	QC          qc.Flags                 `json:"qc"`
}

type nbackSubmission struct {
	Mode     string                     `json:"mode"`
	Trials   []models.NBackTrialPayload `json:"trials" binding:"required"`
	Platform string                     `json:"platform"`
	Timezone string                     `json:"tz"`
	Notes    *string                    `json:"notes"`
	QC       qc.Flags                   `json:"qc"`
}

func (h *ResultsHandler) SubmitPVT(c *gin.Context) {
	var sub pvtSubmission
	if err := c.ShouldBindJSON(&sub); err != nil {
		h.log.Error("Failed to bind PVT submission", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid data"})
		return
	}

	trials := models.ToPVTTrials(sub.Trials)
	metrics := pvt.ComputeMetrics(trials, sub.FalseStarts, h.minReactionTrials)

	flags := sub.QC
	flags.MinTrialsMet = metrics.MeetsMinTrialRequirement

	summary, err := newSummary(models.TaskPVT, metrics, sub.Platform, sub.Timezone, sub.Notes, flags)
	if err != nil {
		h.log.Error("Failed to encode metrics", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save result"})
		return
	}

	raw, _ := json.Marshal(sub.Trials)
	if err := repository.SavePVTResultTx(c.Request.Context(), summary, models.NewPVTResult(metrics, raw)); err != nil {
		h.log.Error("Failed to save PVT result", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save result"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"id": summary.ID, "metrics": metrics})
}

func (h *ResultsHandler) SubmitNBack(c *gin.Context) {
	var sub nbackSubmission
	if err := c.ShouldBindJSON(&sub); err != nil {
		h.log.Error("Failed to bind 2-back submission", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid data"})
		return
	}

	metrics := nback.ComputeMetrics(models.ToNBackTrials(sub.Trials))

	// Practice runs are scored for immediate feedback but never persisted.
	if sub.Mode == nback.ModePractice.String() {
		c.JSON(http.StatusOK, gin.H{"metrics": metrics, "persisted": false})
		return
	}

	summary, err := newSummary(models.TaskNBack2, metrics, sub.Platform, sub.Timezone, sub.Notes, sub.QC)
	if err != nil {
		h.log.Error("Failed to encode metrics", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save result"})
		return
	}

	raw, _ := json.Marshal(sub.Trials)
	if err := repository.SaveNBackResultTx(c.Request.Context(), summary, models.NewNBackResult(metrics, raw)); err != nil {
		h.log.Error("Failed to save 2-back result", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to save result"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"id": summary.ID, "metrics": metrics})
}

func (h *ResultsHandler) ListResults(c *gin.Context) {
	task := c.Query("task")
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid limit"})
			return
		}
		limit = parsed
	}

	summaries, err := repository.ListSummaries(c.Request.Context(), task, limit)
	if err != nil {
		h.log.Error("Failed to list results", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load results"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"results": summaries})
}

func newSummary(task string, metrics any, platform, tz string, notes *string, flags qc.Flags) (models.SummaryRecord, error) {
	payload, err := json.Marshal(metrics)
	if err != nil {
		return models.SummaryRecord{}, err
	}
	if tz == "" {
		tz = time.Now().Location().String()
	}
	return models.SummaryRecord{
		ID:                   uuid.NewString(),
		Task:                 task,
		CreatedAt:            time.Now().UTC(),
		Platform:             platform,
		Timezone:             tz,
		Metrics:              payload,
		VisibilityBlurEvents: flags.VisibilityBlurEvents,
		MinTrialsMet:         flags.MinTrialsMet,
		Notes:                notes,
	}, nil
}
