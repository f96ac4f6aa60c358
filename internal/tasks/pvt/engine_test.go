package pvt

import (
	"math/rand/v2"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ReadyPlayerEmma/looplace/internal/timing"
)

func testEngine(cfg Config) *Engine {
	return NewEngine(cfg, rand.New(rand.NewPCG(1, 1)))
}

func zeroITIConfig(target int) Config {
	return Config{
		TargetTrials:      target,
		MinITIMs:          0,
		MaxITIMs:          0,
		MaxResponseMs:     500,
		MinReactionTrials: 1,
	}
}

func TestStartSchedulesFirstTrial(t *testing.T) {
	clock := timing.NewFakeClock(time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC))
	e := testEngine(Config{TargetTrials: 3, MinITIMs: 2000, MaxITIMs: 10000, MaxResponseMs: 10000, MinReactionTrials: 2})

	sched := e.Start(clock.Now())
	require.NotNil(t, sched)
	assert.Equal(t, uint64(1), sched.RunID)
	assert.Equal(t, 0, sched.TrialIndex)
	assert.GreaterOrEqual(t, sched.WaitMs, int64(2000))
	assert.LessOrEqual(t, sched.WaitMs, int64(10000))
	assert.Equal(t, PhaseWaiting, e.Phase())
	require.Len(t, e.Trials(), 1)
	assert.Equal(t, int(sched.WaitMs), e.Trials()[0].ITIMs)

	// Starting again while a run is active is a no-op.
	assert.Nil(t, e.Start(clock.Now()))
	assert.Equal(t, uint64(1), e.RunID())
}

func TestResponseClassification(t *testing.T) {
	clock := timing.NewFakeClock(time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC))
	e := testEngine(zeroITIConfig(3))

	sched := e.Start(clock.Now())
	require.NotNil(t, sched)

	// Trial 0: anticipatory response 50 ms after onset -> false start.
	require.NotNil(t, e.MarkStimulusOn(sched.RunID, 0, clock.Now()))
	clock.Advance(50 * time.Millisecond)
	res := e.RegisterResponse(clock.Now())
	assert.Equal(t, StepNextScheduled, res.Kind)
	assert.Equal(t, OutcomeFalseStart, e.Trials()[0].Outcome.Kind)
	assert.Equal(t, uint32(1), e.FalseStarts())

	// Trial 1: genuine reaction at 300 ms.
	require.NotNil(t, e.MarkStimulusOn(sched.RunID, 1, clock.Now()))
	clock.Advance(300 * time.Millisecond)
	res = e.RegisterResponse(clock.Now())
	assert.Equal(t, StepNextScheduled, res.Kind)
	assert.Equal(t, OutcomeReaction, e.Trials()[1].Outcome.Kind)
	assert.InDelta(t, 300.0, e.Trials()[1].Outcome.RTMs, 1e-9)

	// Trial 2: no response -> lapse, run completes at the target count.
	require.NotNil(t, e.MarkStimulusOn(sched.RunID, 2, clock.Now()))
	clock.Advance(500 * time.Millisecond)
	res = e.RegisterTimeout(sched.RunID, 2, clock.Now())
	assert.Equal(t, StepRunCompleted, res.Kind)
	assert.Equal(t, PhaseCompleted, e.Phase())
	assert.Equal(t, OutcomeLapse, e.Trials()[2].Outcome.Kind)
}

func TestResponseBeforeStimulusIsFalseStart(t *testing.T) {
	clock := timing.NewFakeClock(time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC))
	e := testEngine(zeroITIConfig(2))

	require.NotNil(t, e.Start(clock.Now()))

	// Still Waiting: the stimulus has not appeared yet.
	res := e.RegisterResponse(clock.Now())
	assert.Equal(t, StepNextScheduled, res.Kind)
	assert.Equal(t, OutcomeFalseStart, e.Trials()[0].Outcome.Kind)
	assert.Equal(t, uint32(1), e.FalseStarts())
	assert.True(t, e.Trials()[0].PresentedAt.IsZero())
}

func TestTimeoutAfterResponseIsIgnored(t *testing.T) {
	clock := timing.NewFakeClock(time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC))
	e := testEngine(zeroITIConfig(3))

	sched := e.Start(clock.Now())
	require.NotNil(t, e.MarkStimulusOn(sched.RunID, 0, clock.Now()))
	clock.Advance(250 * time.Millisecond)
	require.Equal(t, StepNextScheduled, e.RegisterResponse(clock.Now()).Kind)

	// The in-flight timeout for trial 0 arrives after the response retired it.
	res := e.RegisterTimeout(sched.RunID, 0, clock.Now())
	assert.Equal(t, StepIgnored, res.Kind)
	assert.Equal(t, OutcomeReaction, e.Trials()[0].Outcome.Kind)
}

func TestStaleRunEventsAreIgnored(t *testing.T) {
	clock := timing.NewFakeClock(time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC))
	e := testEngine(zeroITIConfig(3))

	first := e.Start(clock.Now())
	require.NotNil(t, first)
	require.NotNil(t, e.MarkStimulusOn(first.RunID, 0, clock.Now()))

	e.Abort(clock.Now())
	assert.Equal(t, PhaseAborted, e.Phase())

	second := e.Start(clock.Now())
	require.NotNil(t, second)
	assert.Equal(t, first.RunID+1, second.RunID)

	// Replay every event the first run could still have in flight.
	assert.Nil(t, e.MarkStimulusOn(first.RunID, 0, clock.Now()))
	assert.Equal(t, StepIgnored, e.RegisterTimeout(first.RunID, 0, clock.Now()).Kind)
	assert.Equal(t, PhaseWaiting, e.Phase())
	require.Len(t, e.Trials(), 1)
	assert.Equal(t, OutcomePending, e.Trials()[0].Outcome.Kind)
}

func TestMetricsOnlyAfterCompletion(t *testing.T) {
	clock := timing.NewFakeClock(time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC))
	e := testEngine(zeroITIConfig(1))

	_, ok := e.Metrics()
	assert.False(t, ok)

	sched := e.Start(clock.Now())
	require.NotNil(t, e.MarkStimulusOn(sched.RunID, 0, clock.Now()))
	clock.Advance(280 * time.Millisecond)
	require.Equal(t, StepRunCompleted, e.RegisterResponse(clock.Now()).Kind)

	m, ok := e.Metrics()
	require.True(t, ok)
	assert.Equal(t, 1, m.ReactedTrials)
	assert.InDelta(t, 280.0, m.MedianRTMs, 1e-9)
}

// End-to-end scenario: false start at 50 ms, reaction at 300 ms, timeout.
func TestScriptedRunScoresAsExpected(t *testing.T) {
	clock := timing.NewFakeClock(time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC))
	e := testEngine(zeroITIConfig(3))

	sched := e.Start(clock.Now())
	require.NotNil(t, sched)

	require.NotNil(t, e.MarkStimulusOn(sched.RunID, 0, clock.Now()))
	clock.Advance(50 * time.Millisecond)
	e.RegisterResponse(clock.Now())

	require.NotNil(t, e.MarkStimulusOn(sched.RunID, 1, clock.Now()))
	clock.Advance(300 * time.Millisecond)
	e.RegisterResponse(clock.Now())

	require.NotNil(t, e.MarkStimulusOn(sched.RunID, 2, clock.Now()))
	clock.Advance(500 * time.Millisecond)
	require.Equal(t, StepRunCompleted, e.RegisterTimeout(sched.RunID, 2, clock.Now()).Kind)

	m, ok := e.Metrics()
	require.True(t, ok)
	assert.Equal(t, 3, m.TotalTrials)
	assert.Equal(t, 1, m.ReactedTrials)
	assert.Equal(t, uint32(1), m.FalseStarts)
	assert.Equal(t, uint32(1), m.LapsesGE500Ms)
	assert.InDelta(t, 300.0, m.MedianRTMs, 1e-9)
	assert.True(t, m.MeetsMinTrialRequirement) // 1 >= configured minimum of 1
}

func TestITIRespectsConfiguredRange(t *testing.T) {
	clock := timing.NewFakeClock(time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC))
	e := testEngine(Config{TargetTrials: 50, MinITIMs: 2000, MaxITIMs: 10000, MaxResponseMs: 500, MinReactionTrials: 1})

	sched := e.Start(clock.Now())
	require.NotNil(t, sched)
	for i := 0; i < 49; i++ {
		require.NotNil(t, e.MarkStimulusOn(sched.RunID, i, clock.Now()))
		clock.Advance(200 * time.Millisecond)
		res := e.RegisterResponse(clock.Now())
		require.Equal(t, StepNextScheduled, res.Kind)
		assert.GreaterOrEqual(t, res.Next.WaitMs, int64(2000))
		assert.LessOrEqual(t, res.Next.WaitMs, int64(10000))
	}
}
