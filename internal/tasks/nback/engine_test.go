package nback

import (
	"math/rand/v2"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ReadyPlayerEmma/looplace/internal/timing"
)

func fastConfig(total int) Config {
	return Config{
		TotalTrials:             total,
		PracticeTrials:          total,
		TargetRatio:             0.5,
		StimulusMs:              300,
		InterstimulusIntervalMs: 200,
		LeadInMs:                10,
		ResponseWindowMs:        500,
		Seed:                    9,
	}
}

func TestGeneratedSequenceRespectsTwoBackConstraint(t *testing.T) {
	e := NewEngine(DefaultConfig())
	sched := e.Start(ModeMain)
	require.NotNil(t, sched)

	trials := e.Trials()
	require.Len(t, trials, e.Config().TotalTrials)

	for idx := 2; idx < len(trials); idx++ {
		if trials[idx].IsTarget {
			assert.Equal(t, trials[idx-2].Letter, trials[idx].Letter)
		} else {
			assert.NotEqual(t, trials[idx-2].Letter, trials[idx].Letter)
		}
	}
}

// The is_target flag must agree with the letters for any length, ratio, and
// seed, since the flags are re-derived from the letters after generation.
func TestTargetFlagConsistencyAcrossRandomGenerations(t *testing.T) {
	rng := rand.New(rand.NewPCG(0xBADC0FFE, 0xDECAF))

	for i := 0; i < 10_000; i++ {
		length := 4 + rng.IntN(197) // 4..200
		cfg := Config{
			TotalTrials:    length,
			PracticeTrials: length,
			TargetRatio:    rng.Float64(),
			Seed:           rng.Uint64(),
		}

		e := NewEngine(cfg)
		mode := ModeMain
		if i%2 == 1 {
			mode = ModePractice
		}
		require.NotNil(t, e.Start(mode))

		trials := e.Trials()
		require.Len(t, trials, length)
		for idx := range trials {
			wantTarget := idx >= 2 && trials[idx].Letter == trials[idx-2].Letter
			wantLure := idx >= 1 && trials[idx].Letter == trials[idx-1].Letter
			require.Equal(t, wantTarget, trials[idx].IsTarget, "target flag at idx %d (iter %d)", idx, i)
			require.Equal(t, wantLure, trials[idx].IsLure, "lure flag at idx %d (iter %d)", idx, i)
		}
	}
}

func TestTargetQuotaRounding(t *testing.T) {
	countTargets := func(trials []Trial) int {
		n := 0
		for i := range trials {
			if trials[i].IsTarget {
				n++
			}
		}
		return n
	}

	// round(0.3 * 58) = 17 targets for the default 60-trial run.
	e := NewEngine(DefaultConfig())
	require.NotNil(t, e.Start(ModeMain))
	assert.Equal(t, 17, countTargets(e.Trials()))

	// Tiny positive ratio still forces at least one target.
	cfg := fastConfig(10)
	cfg.TargetRatio = 0.01
	e = NewEngine(cfg)
	require.NotNil(t, e.Start(ModeMain))
	assert.Equal(t, 1, countTargets(e.Trials()))

	// Ratio zero never forces a target.
	cfg.TargetRatio = 0
	e = NewEngine(cfg)
	require.NotNil(t, e.Start(ModeMain))
	assert.Equal(t, 0, countTargets(e.Trials()))

	// Ratio one targets every candidate position.
	cfg.TargetRatio = 1
	e = NewEngine(cfg)
	require.NotNil(t, e.Start(ModeMain))
	assert.Equal(t, 8, countTargets(e.Trials()))
}

func TestSequencesDifferAcrossModesAndRuns(t *testing.T) {
	letters := func(trials []Trial) string {
		out := make([]rune, len(trials))
		for i := range trials {
			out[i] = trials[i].Letter
		}
		return string(out)
	}

	e := NewEngine(DefaultConfig())
	require.NotNil(t, e.Start(ModePractice))
	practice := letters(e.Trials())
	e.Abort()

	require.NotNil(t, e.Start(ModeMain))
	firstMain := letters(e.Trials())
	e.Abort()

	require.NotNil(t, e.Start(ModeMain))
	secondMain := letters(e.Trials())

	assert.NotEqual(t, practice, firstMain)
	// Different run ids mix different seeds, so repeat runs differ too.
	assert.NotEqual(t, firstMain, secondMain)
}

func TestResponseClassification(t *testing.T) {
	clock := timing.NewFakeClock(time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC))
	e := NewEngine(fastConfig(8))

	sched := e.Start(ModeMain)
	require.NotNil(t, sched)
	runID := sched.Stimulus.RunID

	trials := e.Trials()
	for idx := range trials {
		require.True(t, e.MarkStimulusOn(runID, idx, clock.Now()))
		clock.Advance(400 * time.Millisecond)
		kind := e.RegisterResponse(clock.Now())
		if trials[idx].IsTarget {
			assert.Equal(t, ResponseHit, kind)
		} else {
			assert.Equal(t, ResponseFalseAlarm, kind)
		}

		// A second press in the same window is ignored.
		assert.Equal(t, ResponseIgnored, e.RegisterResponse(clock.Now()))

		res := e.Advance(runID, idx)
		if idx == len(trials)-1 {
			assert.Equal(t, AdvanceCompleted, res.Kind)
		} else {
			assert.Equal(t, AdvanceNext, res.Kind)
		}
	}

	m, ok := e.MainMetrics()
	require.True(t, ok)
	assert.Equal(t, uint32(len(trials)), m.ResponseCount)
	assert.Equal(t, uint32(0), m.Misses)
	assert.Equal(t, uint32(0), m.CorrectRejections)
	assert.InDelta(t, 400.0, m.MedianHitRTMs, 1e-9)
}

// End-to-end scenario: four trials, no responses at all.
func TestSilentRunScoresMissesAndRejections(t *testing.T) {
	clock := timing.NewFakeClock(time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC))
	e := NewEngine(fastConfig(4))

	sched := e.Start(ModeMain)
	require.NotNil(t, sched)
	runID := sched.Stimulus.RunID
	assert.Equal(t, int64(10), sched.Stimulus.WaitMs) // lead-in before trial 0
	assert.Equal(t, int64(500), sched.Advance.WaitMs)

	targets := 0
	for i := range e.Trials() {
		if e.Trials()[i].IsTarget {
			targets++
		}
	}

	for idx := 0; idx < 4; idx++ {
		require.True(t, e.MarkStimulusOn(runID, idx, clock.Now()))
		clock.Advance(500 * time.Millisecond)
		res := e.Advance(runID, idx)
		if idx < 3 {
			require.Equal(t, AdvanceNext, res.Kind)
			assert.Equal(t, int64(200), res.Next.Stimulus.WaitMs)
		} else {
			require.Equal(t, AdvanceCompleted, res.Kind)
			assert.Equal(t, ModeMain, res.Mode)
		}
	}

	m, ok := e.MainMetrics()
	require.True(t, ok)
	assert.Equal(t, uint32(0), m.Hits)
	assert.Equal(t, uint32(targets), m.Misses)
	assert.Equal(t, uint32(4-targets), m.CorrectRejections)
	assert.InDelta(t, float64(4-targets)/4.0, m.Accuracy, 1e-9)
	assert.False(t, isNaNOrInf(m.DPrime))
	assert.False(t, isNaNOrInf(m.Criterion))

	// Practice slot stays empty for a main run.
	_, ok = e.PracticeMetrics()
	assert.False(t, ok)
}

func TestAdvanceRetiresPendingWithoutResponse(t *testing.T) {
	clock := timing.NewFakeClock(time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC))
	e := NewEngine(fastConfig(6))

	sched := e.Start(ModePractice)
	require.NotNil(t, sched)
	runID := sched.Stimulus.RunID

	require.True(t, e.MarkStimulusOn(runID, 0, clock.Now()))
	require.Equal(t, AdvanceNext, e.Advance(runID, 0).Kind)

	trial := e.Trials()[0]
	if trial.IsTarget {
		assert.Equal(t, OutcomeMiss, trial.Outcome.Kind)
	} else {
		assert.Equal(t, OutcomeCorrectRejection, trial.Outcome.Kind)
	}
	assert.Nil(t, trial.Response)
}

func TestStaleRunEventsAreIgnored(t *testing.T) {
	clock := timing.NewFakeClock(time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC))
	e := NewEngine(fastConfig(6))

	first := e.Start(ModeMain)
	require.NotNil(t, first)
	firstID := first.Stimulus.RunID
	require.True(t, e.MarkStimulusOn(firstID, 0, clock.Now()))

	e.Abort()
	second := e.Start(ModeMain)
	require.NotNil(t, second)
	require.Equal(t, firstID+1, second.Stimulus.RunID)

	// Replaying the first run's timers must not mutate anything.
	assert.False(t, e.MarkStimulusOn(firstID, 0, clock.Now()))
	assert.Equal(t, AdvanceIgnored, e.Advance(firstID, 0).Kind)
	assert.Equal(t, PhaseWaiting, e.Phase())
	assert.Equal(t, 0, e.Trials()[0].Index)
	assert.Equal(t, OutcomePending, e.Trials()[0].Outcome.Kind)

	// A response with no active stimulus is ignored too.
	assert.Equal(t, ResponseIgnored, e.RegisterResponse(clock.Now()))
}

func TestStartWhileRunningIsNoOp(t *testing.T) {
	e := NewEngine(fastConfig(6))
	require.NotNil(t, e.Start(ModeMain))
	assert.Nil(t, e.Start(ModeMain))
	assert.Nil(t, e.Start(ModePractice))
	assert.Equal(t, uint64(1), e.RunID())
}
