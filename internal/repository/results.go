package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/ReadyPlayerEmma/looplace/internal/database"
	"github.com/ReadyPlayerEmma/looplace/internal/models"
)

// SavePVTResultTx persists the summary and its flat PVT result row in a
// single transaction.
func SavePVTResultTx(ctx context.Context, summary models.SummaryRecord, result models.PVTResult) error {
	return database.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&summary).Error; err != nil {
			return err
		}
		result.SummaryID = summary.ID
		return tx.Create(&result).Error
	})
}

// SaveNBackResultTx persists the summary and its flat 2-back result row in a
// single transaction.
func SaveNBackResultTx(ctx context.Context, summary models.SummaryRecord, result models.NBackResult) error {
	return database.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&summary).Error; err != nil {
			return err
		}
		result.SummaryID = summary.ID
		return tx.Create(&result).Error
	})
}

// ListSummaries returns stored summaries, most recent first. A non-empty task
// filters to that task; limit <= 0 means no limit.
func ListSummaries(ctx context.Context, task string, limit int) ([]models.SummaryRecord, error) {
	query := database.DB.WithContext(ctx).Order("created_at DESC")
	if task != "" {
		query = query.Where("task = ?", task)
	}
	if limit > 0 {
		query = query.Limit(limit)
	}

	var summaries []models.SummaryRecord
	if err := query.Find(&summaries).Error; err != nil {
		return nil, err
	}
	return summaries, nil
}

// LatestSummary returns the most recent summary for a task, or nil when none
// exists.
func LatestSummary(ctx context.Context, task string) (*models.SummaryRecord, error) {
	var summary models.SummaryRecord
	err := database.DB.WithContext(ctx).
		Where("task = ?", task).
		Order("created_at DESC").
		First(&summary).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &summary, nil
}
