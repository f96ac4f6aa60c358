// Package pvt implements the Psychomotor Vigilance Task trial engine and its
// summary metrics. The engine is a single-writer state machine: the caller
// owns the event loop, feeds events in one at a time, and turns the returned
// scheduling requests into deferred timer events.
package pvt

import (
	"math/rand/v2"
	"time"

	"github.com/ReadyPlayerEmma/looplace/internal/timing"
)

// FalseStartThresholdMs is the boundary below which a response is considered
// anticipatory rather than a genuine reaction.
const FalseStartThresholdMs = 100.0

// Config holds the caller-supplied knobs for a PVT session.
type Config struct {
	TargetTrials      int
	MinITIMs          int
	MaxITIMs          int
	MaxResponseMs     int
	MinReactionTrials int
}

// DefaultConfig returns the standard 10-minute-style PVT parameters.
func DefaultConfig() Config {
	return Config{
		TargetTrials:      30,
		MinITIMs:          2000,
		MaxITIMs:          10000,
		MaxResponseMs:     10000,
		MinReactionTrials: 20,
	}
}

// Phase is the engine's coarse state. Waiting and StimulusActive are
// parameterized by the engine's current trial index.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseWaiting
	PhaseStimulusActive
	PhaseCompleted
	PhaseAborted
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseWaiting:
		return "waiting"
	case PhaseStimulusActive:
		return "stimulus_active"
	case PhaseCompleted:
		return "completed"
	case PhaseAborted:
		return "aborted"
	}
	return "unknown"
}

// OutcomeKind classifies a retired trial. A trial moves from Pending to
// exactly one terminal outcome and never reverses.
type OutcomeKind int

const (
	OutcomePending OutcomeKind = iota
	OutcomeReaction
	OutcomeLapse
	OutcomeFalseStart
)

// Outcome pairs the classification with the reaction time, which is only
// meaningful for reactions.
type Outcome struct {
	Kind OutcomeKind
	RTMs float64
}

// Trial records one stimulus/response cycle. Zero-valued timestamps mean the
// corresponding event has not happened.
type Trial struct {
	Index             int
	ITIMs             int
	PresentedAt       time.Time
	OnsetSinceStartMs float64
	RespondedAt       time.Time
	Outcome           Outcome
}

// Completed reports whether the trial has been retired.
func (t *Trial) Completed() bool { return t.Outcome.Kind != OutcomePending }

// ScheduledStimulus asks the driving loop to deliver MarkStimulusOn for the
// given trial after WaitMs.
type ScheduledStimulus struct {
	RunID      uint64
	TrialIndex int
	WaitMs     int64
}

// ScheduledTimeout asks the driving loop to deliver RegisterTimeout for the
// given trial after WaitMs unless a response arrives first.
type ScheduledTimeout struct {
	RunID      uint64
	TrialIndex int
	WaitMs     int64
}

// StepKind describes what a response or timeout event did to the run.
type StepKind int

const (
	StepIgnored StepKind = iota
	StepNextScheduled
	StepRunCompleted
)

// StepResult is the outcome of a mutating event. Next is set only for
// StepNextScheduled.
type StepResult struct {
	Kind StepKind
	Next *ScheduledStimulus
}

// Engine runs PVT sessions. It is not safe for concurrent use; drive it from
// a single goroutine.
type Engine struct {
	cfg Config
	rng *rand.Rand

	phase      Phase
	trialIndex int
	runID      uint64

	runStartedAt time.Time
	runEndedAt   time.Time

	trials      []Trial
	falseStarts uint32
}

// NewEngine creates an engine with the given configuration and randomness
// source. A nil rng falls back to an unseeded generator.
func NewEngine(cfg Config, rng *rand.Rand) *Engine {
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &Engine{cfg: cfg, rng: rng, phase: PhaseIdle}
}

func (e *Engine) Config() Config { return e.cfg }

// RunID returns the current generation counter. Events scheduled for earlier
// generations are ignored.
func (e *Engine) RunID() uint64 { return e.runID }

func (e *Engine) Phase() Phase { return e.phase }

// Trials exposes the trial list for read-only observation.
func (e *Engine) Trials() []Trial { return e.trials }

// FalseStarts returns the count accumulated across the current run.
func (e *Engine) FalseStarts() uint32 { return e.falseStarts }

// Start begins a new run. It is a no-op (returns nil) while a run is active.
func (e *Engine) Start(now time.Time) *ScheduledStimulus {
	switch e.phase {
	case PhaseIdle, PhaseCompleted, PhaseAborted:
	default:
		return nil
	}

	e.runID++
	e.phase = PhaseWaiting
	e.trialIndex = 0
	e.runStartedAt = now
	e.runEndedAt = time.Time{}
	e.falseStarts = 0
	e.trials = e.trials[:0]

	iti := e.drawITI()
	e.trials = append(e.trials, Trial{Index: 0, ITIMs: iti})

	return &ScheduledStimulus{RunID: e.runID, TrialIndex: 0, WaitMs: int64(iti)}
}

// Abort unconditionally ends the run and stamps the finish time.
func (e *Engine) Abort(now time.Time) {
	e.phase = PhaseAborted
	e.runEndedAt = now
}

// MarkStimulusOn records stimulus onset for the expected trial and returns a
// response-timeout request. Stale run ids or mismatched trial indices yield
// nil without mutating state.
func (e *Engine) MarkStimulusOn(runID uint64, trialIndex int, now time.Time) *ScheduledTimeout {
	if runID != e.runID || e.phase != PhaseWaiting || trialIndex != e.trialIndex {
		return nil
	}
	if trialIndex >= len(e.trials) {
		return nil
	}

	trial := &e.trials[trialIndex]
	trial.PresentedAt = now
	trial.OnsetSinceStartMs = timing.DurationMs(e.runStartedAt, now)
	e.phase = PhaseStimulusActive

	return &ScheduledTimeout{
		RunID:      e.runID,
		TrialIndex: trialIndex,
		WaitMs:     int64(e.cfg.MaxResponseMs),
	}
}

// RegisterResponse classifies a user response against the current trial.
// During StimulusActive the reaction time decides between FalseStart and
// Reaction; during Waiting the response precedes the stimulus and is always a
// FalseStart. Anything else is ignored.
func (e *Engine) RegisterResponse(now time.Time) StepResult {
	switch e.phase {
	case PhaseStimulusActive:
		trial := &e.trials[e.trialIndex]
		rt := timing.DurationMs(trial.PresentedAt, now)
		trial.RespondedAt = now
		if rt < FalseStartThresholdMs {
			trial.Outcome = Outcome{Kind: OutcomeFalseStart, RTMs: rt}
			e.falseStarts++
		} else {
			trial.Outcome = Outcome{Kind: OutcomeReaction, RTMs: rt}
		}
		return e.advance(now)

	case PhaseWaiting:
		trial := &e.trials[e.trialIndex]
		trial.RespondedAt = now
		trial.Outcome = Outcome{Kind: OutcomeFalseStart}
		e.falseStarts++
		return e.advance(now)
	}

	return StepResult{Kind: StepIgnored}
}

// RegisterTimeout retires the expected trial as a Lapse. A response that
// already retired the trial leaves the engine in Waiting for the next index,
// so the late timer degrades to Ignored via the state check.
func (e *Engine) RegisterTimeout(runID uint64, trialIndex int, now time.Time) StepResult {
	if runID != e.runID || e.phase != PhaseStimulusActive || trialIndex != e.trialIndex {
		return StepResult{Kind: StepIgnored}
	}

	e.trials[trialIndex].Outcome = Outcome{Kind: OutcomeLapse}
	return e.advance(now)
}

// Metrics returns the scored summary once the run has completed.
func (e *Engine) Metrics() (Metrics, bool) {
	if e.phase != PhaseCompleted {
		return Metrics{}, false
	}
	return ComputeMetrics(e.trials, e.falseStarts, e.cfg.MinReactionTrials), true
}

// advance either appends the next trial or completes the run. Completion is
// defined by the count of retired trials reaching the configured target, not
// by elapsed time.
func (e *Engine) advance(now time.Time) StepResult {
	if e.completedTrials() >= e.cfg.TargetTrials {
		e.phase = PhaseCompleted
		e.runEndedAt = now
		return StepResult{Kind: StepRunCompleted}
	}

	iti := e.drawITI()
	e.trialIndex++
	e.trials = append(e.trials, Trial{Index: e.trialIndex, ITIMs: iti})
	e.phase = PhaseWaiting

	return StepResult{
		Kind: StepNextScheduled,
		Next: &ScheduledStimulus{RunID: e.runID, TrialIndex: e.trialIndex, WaitMs: int64(iti)},
	}
}

func (e *Engine) completedTrials() int {
	count := 0
	for i := range e.trials {
		if e.trials[i].Completed() {
			count++
		}
	}
	return count
}

func (e *Engine) drawITI() int {
	if e.cfg.MaxITIMs <= e.cfg.MinITIMs {
		return e.cfg.MinITIMs
	}
	return e.cfg.MinITIMs + e.rng.IntN(e.cfg.MaxITIMs-e.cfg.MinITIMs+1)
}
