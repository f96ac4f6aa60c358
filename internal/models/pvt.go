package models

import (
	"encoding/json"
	"time"
)

// PVTResult holds the scored metrics of a PVT run as queryable columns,
// alongside the raw trial list for reprocessing.
type PVTResult struct {
	ID        int    `json:"id"`
	SummaryID string `gorm:"size:36;index" json:"summary_id"`

	TotalTrials             int     `json:"total_trials"`
	ReactedTrials           int     `json:"reacted_trials"`
	MedianRTMs              float64 `json:"median_rt_ms"`
	MeanRTMs                float64 `json:"mean_rt_ms"`
	SDRTMs                  float64 `json:"sd_rt_ms"`
	P10RTMs                 float64 `json:"p10_rt_ms"`
	P90RTMs                 float64 `json:"p90_rt_ms"`
	Lapses                  uint32  `json:"lapses"`
	MinorLapses             uint32  `json:"minor_lapses"`
	FalseStarts             uint32  `json:"false_starts"`
	TimeOnTaskSlopeMsPerMin float64 `json:"time_on_task_slope_ms_per_min"`

	RawData   json.RawMessage `gorm:"type:jsonb" json:"raw_data"`
	CreatedAt time.Time       `json:"created_at"`
}

func (PVTResult) TableName() string { return "pvt_results" }
