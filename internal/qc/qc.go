// Package qc carries the quality-control markers recorded alongside a task
// run. They qualify a summary without changing its scores.
package qc

// Flags are submitted with every completed run and persisted next to the
// metrics payload.
type Flags struct {
	// VisibilityBlurEvents counts how often the task surface lost focus or
	// visibility during the run.
	VisibilityBlurEvents uint32 `json:"visibility_blur_events"`
	// MinTrialsMet mirrors the metrics record's minimum-trial flag at
	// submission time.
	MinTrialsMet bool `json:"min_trials_met"`
}

// Pristine returns the flags of an undisturbed run.
func Pristine() Flags {
	return Flags{VisibilityBlurEvents: 0, MinTrialsMet: true}
}
