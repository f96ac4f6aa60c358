package models

import (
	"github.com/ReadyPlayerEmma/looplace/internal/tasks/nback"
	"github.com/ReadyPlayerEmma/looplace/internal/tasks/pvt"
)

// Wire-format trial outcomes. These strings are part of the persisted raw
// data and the submission API.
const (
	OutcomePending          = "pending"
	OutcomeReaction         = "reaction"
	OutcomeLapse            = "lapse"
	OutcomeFalseStart       = "false_start"
	OutcomeHit              = "hit"
	OutcomeMiss             = "miss"
	OutcomeFalseAlarm       = "false_alarm"
	OutcomeCorrectRejection = "correct_rejection"
)

// PVTTrialPayload is the serializable view of one PVT trial.
type PVTTrialPayload struct {
	Index             int     `json:"index"`
	ITIMs             int     `json:"iti_ms"`
	OnsetSinceStartMs float64 `json:"onset_since_start_ms"`
	Outcome           string  `json:"outcome"`
	RTMs              float64 `json:"rt_ms,omitempty"`
}

// NBackTrialPayload is the serializable view of one 2-back trial.
type NBackTrialPayload struct {
	Index    int     `json:"index"`
	Letter   string  `json:"letter"`
	IsTarget bool    `json:"is_target"`
	IsLure   bool    `json:"is_lure"`
	Outcome  string  `json:"outcome"`
	RTMs     float64 `json:"rt_ms,omitempty"`
}

// FromPVTTrials converts engine trials to their wire form.
func FromPVTTrials(trials []pvt.Trial) []PVTTrialPayload {
	out := make([]PVTTrialPayload, len(trials))
	for i := range trials {
		t := &trials[i]
		out[i] = PVTTrialPayload{
			Index:             t.Index,
			ITIMs:             t.ITIMs,
			OnsetSinceStartMs: t.OnsetSinceStartMs,
			Outcome:           pvtOutcomeString(t.Outcome.Kind),
			RTMs:              t.Outcome.RTMs,
		}
	}
	return out
}

// ToPVTTrials converts wire trials back to engine form for rescoring.
// Unrecognized outcome strings map to pending, which the calculators skip.
func ToPVTTrials(payload []PVTTrialPayload) []pvt.Trial {
	out := make([]pvt.Trial, len(payload))
	for i, p := range payload {
		out[i] = pvt.Trial{
			Index:             p.Index,
			ITIMs:             p.ITIMs,
			OnsetSinceStartMs: p.OnsetSinceStartMs,
			Outcome:           pvt.Outcome{Kind: pvtOutcomeKind(p.Outcome), RTMs: p.RTMs},
		}
	}
	return out
}

// FromNBackTrials converts engine trials to their wire form.
func FromNBackTrials(trials []nback.Trial) []NBackTrialPayload {
	out := make([]NBackTrialPayload, len(trials))
	for i := range trials {
		t := &trials[i]
		out[i] = NBackTrialPayload{
			Index:    t.Index,
			Letter:   string(t.Letter),
			IsTarget: t.IsTarget,
			IsLure:   t.IsLure,
			Outcome:  nbackOutcomeString(t.Outcome.Kind),
			RTMs:     t.Outcome.RTMs,
		}
	}
	return out
}

// ToNBackTrials converts wire trials back to engine form for rescoring.
func ToNBackTrials(payload []NBackTrialPayload) []nback.Trial {
	out := make([]nback.Trial, len(payload))
	for i, p := range payload {
		letter := rune(0)
		for _, r := range p.Letter {
			letter = r
			break
		}
		out[i] = nback.Trial{
			Index:    p.Index,
			Letter:   letter,
			IsTarget: p.IsTarget,
			IsLure:   p.IsLure,
			Outcome:  nback.Outcome{Kind: nbackOutcomeKind(p.Outcome), RTMs: p.RTMs},
		}
	}
	return out
}

func pvtOutcomeString(kind pvt.OutcomeKind) string {
	switch kind {
	case pvt.OutcomeReaction:
		return OutcomeReaction
	case pvt.OutcomeLapse:
		return OutcomeLapse
	case pvt.OutcomeFalseStart:
		return OutcomeFalseStart
	}
	return OutcomePending
}

func pvtOutcomeKind(s string) pvt.OutcomeKind {
	switch s {
	case OutcomeReaction:
		return pvt.OutcomeReaction
	case OutcomeLapse:
		return pvt.OutcomeLapse
	case OutcomeFalseStart:
		return pvt.OutcomeFalseStart
	}
	return pvt.OutcomePending
}

func nbackOutcomeString(kind nback.OutcomeKind) string {
	switch kind {
	case nback.OutcomeHit:
		return OutcomeHit
	case nback.OutcomeMiss:
		return OutcomeMiss
	case nback.OutcomeFalseAlarm:
		return OutcomeFalseAlarm
	case nback.OutcomeCorrectRejection:
		return OutcomeCorrectRejection
	}
	return OutcomePending
}

func nbackOutcomeKind(s string) nback.OutcomeKind {
	switch s {
	case OutcomeHit:
		return nback.OutcomeHit
	case OutcomeMiss:
		return nback.OutcomeMiss
	case OutcomeFalseAlarm:
		return nback.OutcomeFalseAlarm
	case OutcomeCorrectRejection:
		return nback.OutcomeCorrectRejection
	}
	return nback.OutcomePending
}
