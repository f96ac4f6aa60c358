// Package readiness evaluates cooldown advisories between task runs. The
// intervals are recommendations only: longitudinal data quality erodes when
// runs are sampled too frequently (learning effects for 2-back, fatigue
// rebound for PVT), but a run may always be started regardless.
package readiness

import (
	"fmt"
	"math"
	"time"

	"github.com/ReadyPlayerEmma/looplace/internal/models"
)

// Policy maps task identifiers to minimum recommended intervals.
type Policy struct {
	// PVTIntervalHours between PVT runs; multiple samples per day are fine.
	PVTIntervalHours float64
	// NBackIntervalHours between scored 2-back main runs.
	NBackIntervalHours float64
}

// DefaultPolicy: 2-back every 3 days, PVT every 4 hours. Unknown tasks are
// unrestricted.
func DefaultPolicy() Policy {
	return Policy{PVTIntervalHours: 4, NBackIntervalHours: 72}
}

func (p Policy) intervalHours(task string) float64 {
	switch task {
	case models.TaskNBack2:
		return p.NBackIntervalHours
	case models.TaskPVT:
		return p.PVTIntervalHours
	}
	return 0
}

// Readiness is the outcome of a cooldown evaluation.
type Readiness struct {
	Task             string     `json:"task"`
	Ready            bool       `json:"ready"`
	MinIntervalHours float64    `json:"min_interval_hours"`
	LastCompleted    *time.Time `json:"last_completed,omitempty"`
	HoursSince       *float64   `json:"hours_since,omitempty"`
	WaitRemainingHrs *float64   `json:"wait_remaining_hours,omitempty"`
	NextRecommended  *time.Time `json:"next_recommended,omitempty"`
}

// Evaluate computes the advisory for a task given its most recent persisted
// summary (nil when no prior run exists).
func Evaluate(policy Policy, task string, last *models.SummaryRecord, now time.Time) Readiness {
	minInterval := policy.intervalHours(task)
	r := Readiness{Task: task, Ready: true, MinIntervalHours: minInterval}

	if last == nil {
		return r
	}

	completed := last.CreatedAt
	hours := now.Sub(completed).Hours()
	next := completed.Add(time.Duration(minInterval * float64(time.Hour)))

	r.LastCompleted = &completed
	r.HoursSince = &hours
	r.NextRecommended = &next
	r.Ready = hours >= minInterval

	if !r.Ready {
		wait := math.Max(minInterval-hours, 0)
		r.WaitRemainingHrs = &wait
	}

	return r
}

// StatusLabel is a short badge text.
func (r Readiness) StatusLabel() string {
	if r.Ready {
		return "Ready"
	}
	return "Early"
}

// DetailMessage renders a one-line human summary of the advisory.
func (r Readiness) DetailMessage() string {
	switch {
	case r.LastCompleted == nil:
		return "No prior runs recorded."
	case r.Ready:
		return fmt.Sprintf("Last run %s ago (min interval %s).",
			humanElapsed(*r.HoursSince), humanInterval(r.MinIntervalHours))
	default:
		wait := 0.0
		if r.WaitRemainingHrs != nil {
			wait = *r.WaitRemainingHrs
		}
		next := ""
		if r.NextRecommended != nil {
			next = r.NextRecommended.UTC().Format("2006-01-02 15:04Z")
		}
		return fmt.Sprintf("Last run %s ago • wait ~%s (next %s).",
			humanElapsed(*r.HoursSince), humanElapsed(wait), next)
	}
}

// humanElapsed turns elapsed hours into a compact phrase: "<1m", "37m",
// "5h", "3d 4h".
func humanElapsed(hours float64) string {
	if math.IsNaN(hours) || math.IsInf(hours, 0) {
		return "—"
	}
	if hours < 1.0/60.0 {
		return "<1m"
	}
	if hours < 1 {
		return fmt.Sprintf("%dm", int(math.Round(hours*60)))
	}
	if hours < 48 {
		return fmt.Sprintf("%dh", int(math.Round(hours)))
	}
	days := int(math.Floor(hours / 24))
	remHours := int(math.Round(hours - float64(days)*24))
	if remHours == 0 {
		return fmt.Sprintf("%dd", days)
	}
	return fmt.Sprintf("%dd %dh", days, remHours)
}

// humanInterval describes a policy interval: 72h -> "3d", 4h -> "4h".
func humanInterval(hours float64) string {
	if hours >= 24 && math.Mod(hours, 24) == 0 {
		return fmt.Sprintf("%dd", int(hours/24))
	}
	return fmt.Sprintf("%.0fh", hours)
}
