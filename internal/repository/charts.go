package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/ReadyPlayerEmma/looplace/internal/database"
)

type TimelineDataPoint struct {
	Date  time.Time `json:"date"`
	Value float64   `json:"value"`
}

// getMetricsCTE flattens both result tables into (task, metric_key, value)
// rows keyed by the summary's creation time.
func getMetricsCTE() string {
	return `
	WITH all_metrics AS (
		-- PVT results
		SELECT s.created_at, s.task, 'median_rt_ms' AS metric_key, p.median_rt_ms AS metric_value FROM pvt_results p JOIN summary_records s ON p.summary_id = s.id UNION ALL
		SELECT s.created_at, s.task, 'mean_rt_ms' AS metric_key, p.mean_rt_ms AS metric_value FROM pvt_results p JOIN summary_records s ON p.summary_id = s.id UNION ALL
		SELECT s.created_at, s.task, 'p90_rt_ms' AS metric_key, p.p90_rt_ms AS metric_value FROM pvt_results p JOIN summary_records s ON p.summary_id = s.id UNION ALL
		SELECT s.created_at, s.task, 'lapses' AS metric_key, p.lapses::float AS metric_value FROM pvt_results p JOIN summary_records s ON p.summary_id = s.id UNION ALL
		SELECT s.created_at, s.task, 'false_starts' AS metric_key, p.false_starts::float AS metric_value FROM pvt_results p JOIN summary_records s ON p.summary_id = s.id UNION ALL
		SELECT s.created_at, s.task, 'time_on_task_slope_ms_per_min' AS metric_key, p.time_on_task_slope_ms_per_min AS metric_value FROM pvt_results p JOIN summary_records s ON p.summary_id = s.id

		UNION ALL

		-- 2-back results
		SELECT s.created_at, s.task, 'd_prime' AS metric_key, n.d_prime AS metric_value FROM nback_results n JOIN summary_records s ON n.summary_id = s.id UNION ALL
		SELECT s.created_at, s.task, 'criterion' AS metric_key, n.criterion AS metric_value FROM nback_results n JOIN summary_records s ON n.summary_id = s.id UNION ALL
		SELECT s.created_at, s.task, 'accuracy' AS metric_key, n.accuracy AS metric_value FROM nback_results n JOIN summary_records s ON n.summary_id = s.id UNION ALL
		SELECT s.created_at, s.task, 'hit_rate' AS metric_key, n.hit_rate AS metric_value FROM nback_results n JOIN summary_records s ON n.summary_id = s.id UNION ALL
		SELECT s.created_at, s.task, 'false_alarm_rate' AS metric_key, n.false_alarm_rate AS metric_value FROM nback_results n JOIN summary_records s ON n.summary_id = s.id UNION ALL
		SELECT s.created_at, s.task, 'median_hit_rt_ms' AS metric_key, n.median_hit_rt_ms AS metric_value FROM nback_results n JOIN summary_records s ON n.summary_id = s.id
	)
	`
}

// GetTimelineData returns the chronological series of one metric for a task.
func GetTimelineData(ctx context.Context, task string, metricKey string) ([]TimelineDataPoint, error) {
	var data []TimelineDataPoint

	query := fmt.Sprintf(`
		%s
		SELECT
			am.created_at as date,
			am.metric_value as value
		FROM all_metrics am
		WHERE am.task = ? AND am.metric_key = ?
		ORDER BY am.created_at;
	`, getMetricsCTE())

	err := database.DB.WithContext(ctx).Raw(query, task, metricKey).Scan(&data).Error

	return data, err
}
