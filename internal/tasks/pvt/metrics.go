package pvt

import (
	"sort"

	"github.com/ReadyPlayerEmma/looplace/internal/stats"
	"github.com/ReadyPlayerEmma/looplace/internal/timing"
)

// Lapse thresholds in milliseconds. A reaction at or above the major
// threshold counts as a lapse alongside timeout lapses; the minor band is
// reported separately.
const (
	MajorLapseThresholdMs = 500.0
	MinorLapseFloorMs     = 355.0
)

// Metrics is the immutable summary of a completed PVT run. Field names mirror
// the persisted payload.
type Metrics struct {
	TotalTrials             int     `json:"total_trials"`
	ReactedTrials           int     `json:"reacted_trials"`
	MedianRTMs              float64 `json:"median_rt_ms"`
	MeanRTMs                float64 `json:"mean_rt_ms"`
	SDRTMs                  float64 `json:"sd_rt_ms"`
	P10RTMs                 float64 `json:"p10_rt_ms"`
	P90RTMs                 float64 `json:"p90_rt_ms"`
	LapsesGE500Ms           uint32  `json:"lapses_ge_500ms"`
	MinorLapses355To499Ms   uint32  `json:"minor_lapses_355_499ms"`
	FalseStarts             uint32  `json:"false_starts"`
	TimeOnTaskSlopeMsPerMin float64 `json:"time_on_task_slope_ms_per_min"`
	MeetsMinTrialRequirement bool   `json:"meets_min_trial_requirement"`
}

// ComputeMetrics scores a finished trial list. falseStarts is accumulated by
// the engine across the run and passed through. With zero reacted trials all
// derived statistics stay at zero and the minimum-trial flag is false.
func ComputeMetrics(trials []Trial, falseStarts uint32, minRequired int) Metrics {
	totalTrials := 0
	for i := range trials {
		if trials[i].Completed() {
			totalTrials++
		}
	}

	var reactionTimes []float64
	var reactionOffsets []float64
	var lapses uint32
	var minorLapses uint32

	for i := range trials {
		trial := &trials[i]
		switch trial.Outcome.Kind {
		case OutcomeReaction:
			rt := trial.Outcome.RTMs
			reactionTimes = append(reactionTimes, rt)
			reactionOffsets = append(reactionOffsets, timing.MsToMinutes(trial.OnsetSinceStartMs))

			if rt >= MajorLapseThresholdMs {
				lapses++
			} else if rt >= MinorLapseFloorMs {
				minorLapses++
			}
		case OutcomeLapse:
			lapses++
		}
	}

	if len(reactionTimes) == 0 {
		return Metrics{
			TotalTrials: totalTrials,
			FalseStarts: falseStarts,
		}
	}

	sorted := append([]float64(nil), reactionTimes...)
	sort.Float64s(sorted)

	mean := stats.Mean(reactionTimes)

	return Metrics{
		TotalTrials:             totalTrials,
		ReactedTrials:           len(reactionTimes),
		MedianRTMs:              stats.Percentile(sorted, 0.5),
		MeanRTMs:                mean,
		SDRTMs:                  stats.StdDev(reactionTimes, mean),
		P10RTMs:                 stats.Percentile(sorted, 0.10),
		P90RTMs:                 stats.Percentile(sorted, 0.90),
		LapsesGE500Ms:           lapses,
		MinorLapses355To499Ms:   minorLapses,
		FalseStarts:             falseStarts,
		TimeOnTaskSlopeMsPerMin: stats.Slope(reactionOffsets, reactionTimes),
		MeetsMinTrialRequirement: len(reactionTimes) >= minRequired,
	}
}
