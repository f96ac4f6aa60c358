package pvt

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func reaction(idx int, rtMs, onsetMs float64) Trial {
	return Trial{
		Index:             idx,
		OnsetSinceStartMs: onsetMs,
		Outcome:           Outcome{Kind: OutcomeReaction, RTMs: rtMs},
	}
}

func TestComputeMetricsEmptyRun(t *testing.T) {
	m := ComputeMetrics(nil, 0, 5)
	assert.Equal(t, 0, m.TotalTrials)
	assert.Equal(t, 0, m.ReactedTrials)
	assert.Equal(t, 0.0, m.MeanRTMs)
	assert.False(t, m.MeetsMinTrialRequirement)
}

func TestComputeMetricsNoReactions(t *testing.T) {
	trials := []Trial{
		{Index: 0, Outcome: Outcome{Kind: OutcomeLapse}},
		{Index: 1, Outcome: Outcome{Kind: OutcomeFalseStart}},
	}
	m := ComputeMetrics(trials, 1, 1)
	assert.Equal(t, 2, m.TotalTrials)
	assert.Equal(t, 0, m.ReactedTrials)
	assert.Equal(t, uint32(1), m.LapsesGE500Ms)
	assert.Equal(t, uint32(1), m.FalseStarts)
	assert.Equal(t, 0.0, m.MedianRTMs)
	assert.False(t, m.MeetsMinTrialRequirement)
}

func TestComputeMetricsLapseTaxonomy(t *testing.T) {
	trials := []Trial{
		reaction(0, 250, 0),
		reaction(1, 355, 10_000), // minor lapse floor
		reaction(2, 499, 20_000), // still minor
		reaction(3, 500, 30_000), // counts as a full lapse
		{Index: 4, Outcome: Outcome{Kind: OutcomeLapse}},
	}

	m := ComputeMetrics(trials, 0, 3)
	assert.Equal(t, 5, m.TotalTrials)
	assert.Equal(t, 4, m.ReactedTrials)
	assert.Equal(t, uint32(2), m.LapsesGE500Ms)
	assert.Equal(t, uint32(2), m.MinorLapses355To499Ms)
	assert.True(t, m.MeetsMinTrialRequirement)
}

func TestComputeMetricsPercentiles(t *testing.T) {
	trials := []Trial{
		reaction(0, 300, 0),
		reaction(1, 400, 5_000),
		reaction(2, 500, 10_000),
		reaction(3, 600, 15_000),
	}

	m := ComputeMetrics(trials, 0, 4)
	assert.InDelta(t, 450.0, m.MedianRTMs, 1e-9)
	assert.InDelta(t, 330.0, m.P10RTMs, 1e-9)
	assert.InDelta(t, 570.0, m.P90RTMs, 1e-9)
	assert.InDelta(t, 450.0, m.MeanRTMs, 1e-9)
}

func TestComputeMetricsTimeOnTaskSlope(t *testing.T) {
	// RT climbs 20 ms per minute of time on task.
	trials := []Trial{
		reaction(0, 300, 0),
		reaction(1, 320, 60_000),
		reaction(2, 340, 120_000),
		reaction(3, 360, 180_000),
	}

	m := ComputeMetrics(trials, 0, 1)
	assert.InDelta(t, 20.0, m.TimeOnTaskSlopeMsPerMin, 1e-9)

	// A single reaction cannot support a regression.
	m = ComputeMetrics(trials[:1], 0, 1)
	assert.Equal(t, 0.0, m.TimeOnTaskSlopeMsPerMin)
}

func TestComputeMetricsMinTrialFlag(t *testing.T) {
	trials := []Trial{reaction(0, 300, 0), reaction(1, 310, 5_000)}

	assert.True(t, ComputeMetrics(trials, 0, 2).MeetsMinTrialRequirement)
	assert.False(t, ComputeMetrics(trials, 0, 3).MeetsMinTrialRequirement)
}
