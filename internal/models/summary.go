package models

import (
	"encoding/json"
	"time"
)

// Task identifiers used throughout persistence and the readiness policy.
const (
	TaskPVT    = "pvt"
	TaskNBack2 = "nback2"
)

// SummaryRecord is the flat, immutable record persisted once per completed
// main run. The metrics payload is stored verbatim so historic records keep
// their field set even as calculators evolve.
type SummaryRecord struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	Task      string    `json:"task"`
	CreatedAt time.Time `json:"created_at"`

	// Client environment at capture time.
	Platform string `json:"platform"`
	Timezone string `json:"tz"`

	Metrics json.RawMessage `gorm:"type:jsonb" json:"metrics"`

	// Quality-control markers (see internal/qc).
	VisibilityBlurEvents uint32 `json:"visibility_blur_events"`
	MinTrialsMet         bool   `json:"min_trials_met"`

	Notes *string `json:"notes,omitempty"`
}
