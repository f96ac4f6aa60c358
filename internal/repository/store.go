package repository

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/ReadyPlayerEmma/looplace/internal/models"
	"github.com/ReadyPlayerEmma/looplace/internal/qc"
	"github.com/ReadyPlayerEmma/looplace/internal/tasks/nback"
	"github.com/ReadyPlayerEmma/looplace/internal/tasks/pvt"
)

// serverPlatform marks summaries produced by server-driven sessions, as
// opposed to client-submitted results which carry their own platform string.
const serverPlatform = "server"

// SummaryStore adapts the repository to the session package's persistence
// interface.
type SummaryStore struct{}

func (SummaryStore) SavePVTRun(ctx context.Context, m pvt.Metrics, trials []pvt.Trial, flags qc.Flags) error {
	raw, err := json.Marshal(models.FromPVTTrials(trials))
	if err != nil {
		return err
	}
	summary, err := newServerSummary(models.TaskPVT, m, flags)
	if err != nil {
		return err
	}
	return SavePVTResultTx(ctx, summary, models.NewPVTResult(m, raw))
}

func (SummaryStore) SaveNBackRun(ctx context.Context, m nback.Metrics, trials []nback.Trial, flags qc.Flags) error {
	raw, err := json.Marshal(models.FromNBackTrials(trials))
	if err != nil {
		return err
	}
	summary, err := newServerSummary(models.TaskNBack2, m, flags)
	if err != nil {
		return err
	}
	return SaveNBackResultTx(ctx, summary, models.NewNBackResult(m, raw))
}

func newServerSummary(task string, metrics any, flags qc.Flags) (models.SummaryRecord, error) {
	payload, err := json.Marshal(metrics)
	if err != nil {
		return models.SummaryRecord{}, err
	}
	now := time.Now()
	return models.SummaryRecord{
		ID:                   uuid.NewString(),
		Task:                 task,
		CreatedAt:            now.UTC(),
		Platform:             serverPlatform,
		Timezone:             now.Location().String(),
		Metrics:              payload,
		VisibilityBlurEvents: flags.VisibilityBlurEvents,
		MinTrialsMet:         flags.MinTrialsMet,
	}, nil
}
