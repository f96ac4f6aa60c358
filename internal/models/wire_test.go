package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ReadyPlayerEmma/looplace/internal/tasks/nback"
	"github.com/ReadyPlayerEmma/looplace/internal/tasks/pvt"
)

// Trial lists survive the wire format with their scoring inputs intact: a
// rescore of the decoded payload matches the original score.
func TestPVTTrialsRescoreAfterRoundTrip(t *testing.T) {
	trials := []pvt.Trial{
		{Index: 0, ITIMs: 2500, OnsetSinceStartMs: 2500, Outcome: pvt.Outcome{Kind: pvt.OutcomeReaction, RTMs: 280}},
		{Index: 1, ITIMs: 4000, OnsetSinceStartMs: 6780, Outcome: pvt.Outcome{Kind: pvt.OutcomeLapse}},
		{Index: 2, ITIMs: 3000, OnsetSinceStartMs: 9900, Outcome: pvt.Outcome{Kind: pvt.OutcomeFalseStart, RTMs: 40}},
		{Index: 3, ITIMs: 2000, OnsetSinceStartMs: 12000, Outcome: pvt.Outcome{Kind: pvt.OutcomeReaction, RTMs: 420}},
	}
	original := pvt.ComputeMetrics(trials, 1, 2)

	encoded, err := json.Marshal(FromPVTTrials(trials))
	require.NoError(t, err)

	var payload []PVTTrialPayload
	require.NoError(t, json.Unmarshal(encoded, &payload))

	rescored := pvt.ComputeMetrics(ToPVTTrials(payload), 1, 2)
	assert.Equal(t, original, rescored)
}

func TestNBackTrialsRescoreAfterRoundTrip(t *testing.T) {
	trials := []nback.Trial{
		{Index: 0, Letter: 'B', Outcome: nback.Outcome{Kind: nback.OutcomeCorrectRejection}},
		{Index: 1, Letter: 'K', Outcome: nback.Outcome{Kind: nback.OutcomeFalseAlarm, RTMs: 350}},
		{Index: 2, Letter: 'B', IsTarget: true, Outcome: nback.Outcome{Kind: nback.OutcomeHit, RTMs: 510}},
		{Index: 3, Letter: 'K', IsTarget: true, Outcome: nback.Outcome{Kind: nback.OutcomeMiss}},
		{Index: 4, Letter: 'Q', IsLure: true, Outcome: nback.Outcome{Kind: nback.OutcomeCorrectRejection}},
	}
	original := nback.ComputeMetrics(trials)

	encoded, err := json.Marshal(FromNBackTrials(trials))
	require.NoError(t, err)

	var payload []NBackTrialPayload
	require.NoError(t, json.Unmarshal(encoded, &payload))

	decoded := ToNBackTrials(payload)
	rescored := nback.ComputeMetrics(decoded)
	assert.Equal(t, original, rescored)

	assert.Equal(t, 'Q', decoded[4].Letter)
	assert.True(t, decoded[4].IsLure)
}

// Metrics payloads persisted on a summary decode back to the same values.
func TestMetricsJSONRoundTrip(t *testing.T) {
	m := pvt.Metrics{
		TotalTrials:              30,
		ReactedTrials:            27,
		MedianRTMs:               301.5,
		MeanRTMs:                 315.2,
		SDRTMs:                   44.1,
		P10RTMs:                  255,
		P90RTMs:                  410,
		LapsesGE500Ms:            2,
		MinorLapses355To499Ms:    3,
		FalseStarts:              1,
		TimeOnTaskSlopeMsPerMin:  4.2,
		MeetsMinTrialRequirement: true,
	}

	data, err := json.Marshal(m)
	require.NoError(t, err)

	var decoded pvt.Metrics
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, m, decoded)
}
