package nback

import (
	"sort"

	"github.com/ReadyPlayerEmma/looplace/internal/stats"
)

// rateEpsilon keeps the corrected hit/false-alarm rates strictly inside (0,1)
// before the inverse-normal transform.
const rateEpsilon = 1e-6

// Metrics is the immutable summary of a completed 2-back run. Field names
// mirror the persisted payload.
type Metrics struct {
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
	SDHitRTMs         float64 `json:"sd_hit_rt_ms"`
	P10HitRTMs        float64 `json:"p10_hit_rt_ms"`
	P90HitRTMs        float64 `json:"p90_hit_rt_ms"`
	ResponseCount     uint32  `json:"response_count"`
}

// ComputeMetrics scores a finished trial list. An empty list yields the zero
// record.
func ComputeMetrics(trials []Trial) Metrics {
	if len(trials) == 0 {
		return Metrics{}
	}

	m := Metrics{TotalTrials: len(trials)}
	var hitRTs []float64

	for i := range trials {
		trial := &trials[i]
		if trial.IsTarget {
			m.TargetTrials++
		} else {
			m.NonTargetTrials++
		}

		switch trial.Outcome.Kind {
		case OutcomeHit:
			m.Hits++
			hitRTs = append(hitRTs, trial.Outcome.RTMs)
		case OutcomeMiss:
			m.Misses++
		case OutcomeFalseAlarm:
			m.FalseAlarms++
		case OutcomeCorrectRejection:
			m.CorrectRejections++
		}
	}

	m.ResponseCount = m.Hits + m.FalseAlarms

	if len(hitRTs) > 0 {
		sorted := append([]float64(nil), hitRTs...)
		sort.Float64s(sorted)
		m.MeanHitRTMs = stats.Mean(hitRTs)
		m.MedianHitRTMs = stats.Percentile(sorted, 0.5)
		m.SDHitRTMs = stats.StdDev(hitRTs, m.MeanHitRTMs)
		m.P10HitRTMs = stats.Percentile(sorted, 0.10)
		m.P90HitRTMs = stats.Percentile(sorted, 0.90)
	}

	if m.TargetTrials > 0 {
		m.HitRate = float64(m.Hits) / float64(m.TargetTrials)
	}
	if m.NonTargetTrials > 0 {
		m.FalseAlarmRate = float64(m.FalseAlarms) / float64(m.NonTargetTrials)
	}
	m.Accuracy = float64(m.Hits+m.CorrectRejections) / float64(m.TotalTrials)

	m.DPrime, m.Criterion = signalDetectionIndices(m.Hits, m.FalseAlarms, m.TargetTrials, m.NonTargetTrials)

	return m
}

// signalDetectionIndices computes d' and the criterion c with the log-linear
// correction, so both stay finite even at floor/ceiling hit and false-alarm
// rates.
func signalDetectionIndices(hits, falseAlarms uint32, targetTrials, nonTargetTrials int) (float64, float64) {
	targets := float64(max(targetTrials, 1))
	nonTargets := float64(max(nonTargetTrials, 1))

	adjustedHit := clampRate((float64(hits) + 0.5) / (targets + 1))
	adjustedFA := clampRate((float64(falseAlarms) + 0.5) / (nonTargets + 1))

	zHit := stats.InverseNormalCDF(adjustedHit)
	zFA := stats.InverseNormalCDF(adjustedFA)

	return zHit - zFA, -0.5 * (zHit + zFA)
}

func clampRate(p float64) float64 {
	if p < rateEpsilon {
		return rateEpsilon
	}
	if p > 1-rateEpsilon {
		return 1 - rateEpsilon
	}
	return p
}
