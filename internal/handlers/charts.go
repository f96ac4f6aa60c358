package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/ReadyPlayerEmma/looplace/internal/models"
	"github.com/ReadyPlayerEmma/looplace/internal/repository"
)

// ChartsHandler serves the longitudinal timeline of one metric per task.
type ChartsHandler struct {
	log     *zap.Logger
	catalog *models.Catalog
}

func NewChartsHandler(log *zap.Logger, catalog *models.Catalog) *ChartsHandler {
	return &ChartsHandler{log: log, catalog: catalog}
}

func (h *ChartsHandler) Timeline(c *gin.Context) {
	taskID := c.Query("task")
	metricKey := c.Query("metric")

	task, ok := h.catalog.ByID(taskID)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown task"})
		return
	}

	// Default to the task's first catalogued metric, and reject keys that are
	// not catalogued so the raw SQL only ever sees known metric names.
	valid := false
	for _, m := range task.Metrics {
		if metricKey == "" {
			metricKey = m.Value
		}
		if m.Value == metricKey {
			valid = true
			break
		}
	}
	if !valid {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown metric"})
		return
	}
	metricLabel := h.catalog.MetricLabel(taskID, metricKey)

	timelineData, err := repository.GetTimelineData(c.Request.Context(), taskID, metricKey)
	if err != nil {
		h.log.Error("Failed to get timeline data", zap.Error(err),
			zap.String("task", taskID), zap.String("metricKey", metricKey))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load timeline data"})
		return
	}

	chart := generateTimelineChart(timelineData, metricLabel)

	c.JSON(http.StatusOK, gin.H{
		"task":   taskID,
		"metric": metricKey,
		"label":  metricLabel,
		"points": timelineData,
		"chart":  chart.JSON(),
	})
}

func generateTimelineChart(data []repository.TimelineDataPoint, metricLabel string) *charts.Line {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{
			Title:    "Metric Over Time",
			Subtitle: metricLabel,
		}),
		charts.WithXAxisOpts(opts.XAxis{
			Type: "time",
		}),
		charts.WithYAxisOpts(opts.YAxis{
			Type:  "value",
			Scale: opts.Bool(true),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithDataZoomOpts(opts.DataZoom{Type: "slider"}),
	)

	items := make([]opts.LineData, 0)
	for _, point := range data {
		items = append(items, opts.LineData{Value: []interface{}{point.Date, point.Value}})
	}

	line.AddSeries(metricLabel, items).SetSeriesOptions(charts.WithLineStyleOpts(opts.LineStyle{Width: 2}))
	return line
}
