// Package nback implements the 2-back working-memory trial engine and its
// summary metrics. Like the PVT engine it is a single-writer state machine
// driven by a serial event loop owned by the caller.
package nback

import (
	"math"
	"math/rand/v2"
	"sort"
	"time"

	"github.com/ReadyPlayerEmma/looplace/internal/timing"
)

// letterPool excludes vowels and easily confused glyphs so accidental
// pronounceable runs don't cue the subject.
var letterPool = []rune{
	'B', 'C', 'D', 'F', 'G', 'H', 'J', 'K', 'M', 'P', 'Q', 'R', 'S', 'T', 'V', 'W', 'X', 'Y', 'Z',
}

// Mode distinguishes the short practice block from the scored main run.
// Practice results are never persisted.
type Mode int

const (
	ModePractice Mode = iota
	ModeMain
)

func (m Mode) String() string {
	if m == ModeMain {
		return "main"
	}
	return "practice"
}

// seedTag mixes a per-mode constant into the run seed so practice and main
// sequences differ under the same base seed.
func (m Mode) seedTag() uint64 {
	if m == ModeMain {
		return 0x4d_4149_4e52_554e // "MAINRUN"
	}
	return 0x41_5052_4143_5449 // "APRACTI"
}

// Config holds the caller-supplied knobs for the 2-back task.
type Config struct {
	TotalTrials             int
	PracticeTrials          int
	TargetRatio             float64
	StimulusMs              int
	InterstimulusIntervalMs int
	LeadInMs                int
	ResponseWindowMs        int
	Seed                    uint64
}

// DefaultConfig returns the standard 60-trial main run with a 12-trial
// practice block.
func DefaultConfig() Config {
	return Config{
		TotalTrials:             60,
		PracticeTrials:          12,
		TargetRatio:             0.3,
		StimulusMs:              500,
		InterstimulusIntervalMs: 2500,
		LeadInMs:                750,
		ResponseWindowMs:        3000,
		Seed:                    1,
	}
}

// Phase is the engine's coarse state; Waiting and StimulusActive carry the
// current mode and trial index on the engine.
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

// OutcomeKind classifies a retired trial.
type OutcomeKind int

const (
	OutcomePending OutcomeKind = iota
	OutcomeHit
	OutcomeMiss
	OutcomeFalseAlarm
	OutcomeCorrectRejection
)

// Outcome pairs the classification with the response time, meaningful for
// hits and false alarms.
type Outcome struct {
	Kind OutcomeKind
	RTMs float64
}

// Response records the subject's keypress during a stimulus window.
type Response struct {
	At   time.Time
	RTMs float64
}

// Trial is one letter presentation. IsTarget and IsLure are fixed at
// generation time: IsTarget means the letter matches two positions back,
// IsLure (informational only) means it matches the immediately previous one.
type Trial struct {
	Index       int
	Letter      rune
	IsTarget    bool
	IsLure      bool
	PresentedAt time.Time
	Response    *Response
	Outcome     Outcome
}

func (t *Trial) Completed() bool { return t.Outcome.Kind != OutcomePending }

// ScheduledStimulus asks the driving loop to deliver MarkStimulusOn after
// WaitMs.
type ScheduledStimulus struct {
	RunID      uint64
	TrialIndex int
	WaitMs     int64
}

// ScheduledAdvance asks the driving loop to deliver Advance once the response
// window has elapsed (measured from stimulus onset).
type ScheduledAdvance struct {
	RunID      uint64
	TrialIndex int
	WaitMs     int64
}

// TrialSchedule bundles the two timers a trial needs.
type TrialSchedule struct {
	Stimulus ScheduledStimulus
	Advance  ScheduledAdvance
}

// AdvanceKind describes what an Advance event did to the run.
type AdvanceKind int

const (
	AdvanceIgnored AdvanceKind = iota
	AdvanceNext
	AdvanceCompleted
)

// AdvanceResult carries the next trial's schedule for AdvanceNext, or the
// finished mode for AdvanceCompleted.
type AdvanceResult struct {
	Kind AdvanceKind
	Next *TrialSchedule
	Mode Mode
}

// ResponseKind describes what RegisterResponse recorded.
type ResponseKind int

const (
	ResponseIgnored ResponseKind = iota
	ResponseHit
	ResponseFalseAlarm
)

// Engine runs 2-back sessions. Not safe for concurrent use; drive it from a
// single goroutine.
type Engine struct {
	cfg Config

	phase      Phase
	mode       Mode
	trialIndex int
	runID      uint64

	trials []Trial

	// Practice and main summaries are cached separately since only main-run
	// summaries are persisted by the caller.
	practiceMetrics *Metrics
	mainMetrics     *Metrics
}

func NewEngine(cfg Config) *Engine {
	return &Engine{cfg: cfg, phase: PhaseIdle}
}

func (e *Engine) Config() Config { return e.cfg }

func (e *Engine) Phase() Phase { return e.phase }

func (e *Engine) Mode() Mode { return e.mode }

func (e *Engine) RunID() uint64 { return e.runID }

// Trials exposes the trial list for read-only observation.
func (e *Engine) Trials() []Trial { return e.trials }

// PracticeMetrics returns the cached practice-run summary, if any.
func (e *Engine) PracticeMetrics() (Metrics, bool) {
	if e.practiceMetrics == nil {
		return Metrics{}, false
	}
	return *e.practiceMetrics, true
}

// MainMetrics returns the cached main-run summary, if any.
func (e *Engine) MainMetrics() (Metrics, bool) {
	if e.mainMetrics == nil {
		return Metrics{}, false
	}
	return *e.mainMetrics, true
}

// Start generates a fresh letter sequence for the mode and schedules trial 0.
// It is a no-op (returns nil) while a run is active.
func (e *Engine) Start(mode Mode) *TrialSchedule {
	switch e.phase {
	case PhaseWaiting, PhaseStimulusActive:
		return nil
	}

	e.runID++
	e.mode = mode
	e.trials = e.generateTrials(mode)
	e.trialIndex = 0
	e.phase = PhaseWaiting

	sched := e.scheduleCurrent(0)
	return &sched
}

// Abort unconditionally ends the run.
func (e *Engine) Abort() {
	e.phase = PhaseAborted
}

// MarkStimulusOn records stimulus onset for the expected trial. Stale run ids
// or mismatched indices leave the engine untouched.
func (e *Engine) MarkStimulusOn(runID uint64, trialIndex int, now time.Time) bool {
	if runID != e.runID || e.phase != PhaseWaiting || trialIndex != e.trialIndex {
		return false
	}
	if trialIndex >= len(e.trials) {
		return false
	}

	e.trials[trialIndex].PresentedAt = now
	e.phase = PhaseStimulusActive
	return true
}

// RegisterResponse records the first keypress during the active stimulus
// window: a Hit on target trials, a FalseAlarm otherwise. Repeat presses and
// responses outside a stimulus window are ignored.
func (e *Engine) RegisterResponse(now time.Time) ResponseKind {
	if e.phase != PhaseStimulusActive {
		return ResponseIgnored
	}

	trial := &e.trials[e.trialIndex]
	if trial.Response != nil || trial.PresentedAt.IsZero() {
		return ResponseIgnored
	}

	rt := timing.DurationMs(trial.PresentedAt, now)
	trial.Response = &Response{At: now, RTMs: rt}

	if trial.IsTarget {
		trial.Outcome = Outcome{Kind: OutcomeHit, RTMs: rt}
		return ResponseHit
	}
	trial.Outcome = Outcome{Kind: OutcomeFalseAlarm, RTMs: rt}
	return ResponseFalseAlarm
}

// Advance retires the expected trial and moves on. A trial still Pending here
// becomes a Miss (target) or CorrectRejection (non-target); a response during
// the stimulus window has already set Hit or FalseAlarm. Retiring the last
// trial completes the run and caches its mode-tagged metrics.
func (e *Engine) Advance(runID uint64, trialIndex int) AdvanceResult {
	if runID != e.runID || trialIndex != e.trialIndex {
		return AdvanceResult{Kind: AdvanceIgnored}
	}
	if e.phase != PhaseWaiting && e.phase != PhaseStimulusActive {
		return AdvanceResult{Kind: AdvanceIgnored}
	}

	if trialIndex < len(e.trials) {
		trial := &e.trials[trialIndex]
		if trial.Outcome.Kind == OutcomePending {
			if trial.IsTarget {
				trial.Outcome = Outcome{Kind: OutcomeMiss}
			} else {
				trial.Outcome = Outcome{Kind: OutcomeCorrectRejection}
			}
		}
	}

	nextIndex := trialIndex + 1
	if nextIndex >= len(e.trials) {
		e.phase = PhaseCompleted
		metrics := ComputeMetrics(e.trials)
		if e.mode == ModeMain {
			e.mainMetrics = &metrics
		} else {
			e.practiceMetrics = &metrics
		}
		return AdvanceResult{Kind: AdvanceCompleted, Mode: e.mode}
	}

	e.trialIndex = nextIndex
	e.phase = PhaseWaiting
	sched := e.scheduleCurrent(nextIndex)
	return AdvanceResult{Kind: AdvanceNext, Next: &sched, Mode: e.mode}
}

func (e *Engine) scheduleCurrent(trialIndex int) TrialSchedule {
	stimulusWait := e.cfg.InterstimulusIntervalMs
	if trialIndex == 0 {
		stimulusWait = e.cfg.LeadInMs
	}
	return TrialSchedule{
		Stimulus: ScheduledStimulus{
			RunID:      e.runID,
			TrialIndex: trialIndex,
			WaitMs:     int64(stimulusWait),
		},
		Advance: ScheduledAdvance{
			RunID:      e.runID,
			TrialIndex: trialIndex,
			WaitMs:     int64(e.cfg.ResponseWindowMs),
		},
	}
}

// generateTrials builds the constrained letter sequence for one run. The
// generator is seeded from (base seed XOR mode tag XOR run id) so every run in
// a session is distinct yet reproducible given the same inputs.
func (e *Engine) generateTrials(mode Mode) []Trial {
	length := e.cfg.TotalTrials
	if mode == ModePractice {
		length = e.cfg.PracticeTrials
	}
	if length <= 0 {
		return nil
	}

	seed := e.cfg.Seed ^ mode.seedTag() ^ e.runID
	rng := rand.New(rand.NewPCG(seed, seed))

	letters := make([]rune, length)
	for i := 0; i < length && i < 2; i++ {
		letters[i] = randomLetter(rng, 0)
	}

	candidates := make([]int, 0, max(length-2, 0))
	for idx := 2; idx < length; idx++ {
		candidates = append(candidates, idx)
	}

	quota := int(math.Round(float64(length-2) * e.cfg.TargetRatio))
	if len(candidates) == 0 {
		quota = 0
	} else {
		if quota < 1 && e.cfg.TargetRatio > 0 {
			quota = 1
		}
		if quota > len(candidates) {
			quota = len(candidates)
		}
		if quota < 0 {
			quota = 0
		}
	}

	rng.Shuffle(len(candidates), func(i, j int) {
		candidates[i], candidates[j] = candidates[j], candidates[i]
	})
	chosen := candidates[:quota]
	sort.Ints(chosen)

	for idx := 2; idx < length; idx++ {
		if containsSorted(chosen, idx) {
			letters[idx] = letters[idx-2]
		} else {
			// Exclude the two-back letter so a non-target can't accidentally
			// become a match.
			letters[idx] = randomLetter(rng, letters[idx-2])
		}
	}

	// Derive the flags by re-comparing letters rather than trusting the
	// constructive bookkeeping above.
	trials := make([]Trial, length)
	for idx := 0; idx < length; idx++ {
		trials[idx] = Trial{
			Index:    idx,
			Letter:   letters[idx],
			IsTarget: idx >= 2 && letters[idx] == letters[idx-2],
			IsLure:   idx >= 1 && letters[idx] == letters[idx-1],
		}
	}
	return trials
}

func containsSorted(sorted []int, v int) bool {
	i := sort.SearchInts(sorted, v)
	return i < len(sorted) && sorted[i] == v
}

func randomLetter(rng *rand.Rand, disallow rune) rune {
	for {
		letter := letterPool[rng.IntN(len(letterPool))]
		if letter != disallow {
			return letter
		}
	}
}
