package models

import (
	"encoding/json"
	"time"
)

// NBackResult holds the scored metrics of a 2-back main run as queryable
// columns, alongside the raw trial list for reprocessing.
type NBackResult struct {
	ID        int    `json:"id"`
	SummaryID string `gorm:"size:36;index" json:"summary_id"`

	TotalTrials       int     `json:"total_trials"`
	TargetTrials      int     `json:"target_trials"`
	NonTargetTrials   int     `json:"non_target_trials"`
	Hits              uint32  `json:"hits"`
	Misses            uint32  `json:"misses"`
	FalseAlarms       uint32  `json:"false_alarms"`
	CorrectRejections uint32  `json:"correct_rejections"`
	HitRate           float64 `json:"hit_rate"`
	FalseAlarmRate    float64 `json:"false_alarm_rate"`
	Accuracy          float64 `json:"accuracy"`
	DPrime            float64 `json:"d_prime"`
	Criterion         float64 `json:"criterion"`
	MeanHitRTMs       float64 `json:"mean_hit_rt_ms"`
	MedianHitRTMs     float64 `json:"median_hit_rt_ms"`

	RawData   json.RawMessage `gorm:"type:jsonb" json:"raw_data"`
	CreatedAt time.Time       `json:"created_at"`
}

func (NBackResult) TableName() string { return "nback_results" }
