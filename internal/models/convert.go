package models

import (
	"encoding/json"

	"github.com/ReadyPlayerEmma/looplace/internal/tasks/nback"
	"github.com/ReadyPlayerEmma/looplace/internal/tasks/pvt"
)

// NewPVTResult maps a scored PVT run onto its flat row.
func NewPVTResult(m pvt.Metrics, raw json.RawMessage) PVTResult {
	return PVTResult{
		TotalTrials:             m.TotalTrials,
		ReactedTrials:           m.ReactedTrials,
		MedianRTMs:              m.MedianRTMs,
		MeanRTMs:                m.MeanRTMs,
		SDRTMs:                  m.SDRTMs,
		P10RTMs:                 m.P10RTMs,
		P90RTMs:                 m.P90RTMs,
		Lapses:                  m.LapsesGE500Ms,
		MinorLapses:             m.MinorLapses355To499Ms,
		FalseStarts:             m.FalseStarts,
		TimeOnTaskSlopeMsPerMin: m.TimeOnTaskSlopeMsPerMin,
		RawData:                 raw,
	}
}

// NewNBackResult maps a scored 2-back run onto its flat row.
func NewNBackResult(m nback.Metrics, raw json.RawMessage) NBackResult {
	return NBackResult{
		TotalTrials:       m.TotalTrials,
		TargetTrials:      m.TargetTrials,
		NonTargetTrials:   m.NonTargetTrials,
		Hits:              m.Hits,
		Misses:            m.Misses,
		FalseAlarms:       m.FalseAlarms,
		CorrectRejections: m.CorrectRejections,
		HitRate:           m.HitRate,
		FalseAlarmRate:    m.FalseAlarmRate,
		Accuracy:          m.Accuracy,
		DPrime:            m.DPrime,
		Criterion:         m.Criterion,
		MeanHitRTMs:       m.MeanHitRTMs,
		MedianHitRTMs:     m.MedianHitRTMs,
		RawData:           raw,
	}
}
