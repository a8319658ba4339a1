package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/kdimtricp/pagescan/internal/models"
	"gorm.io/gorm"
)

var ErrRunNotFound = errors.New("run not found")

type RunRepository struct {
	db *DB
}

func NewRunRepository(db *DB) *RunRepository {
	return &RunRepository{db: db}
}

func (r *RunRepository) Create(ctx context.Context, run *models.Run) error {
	result := r.db.GORM().WithContext(ctx).Create(run)
	if result.Error != nil {
		return fmt.Errorf("failed to insert run: %w", result.Error)
	}
	return nil
}

// Finish stores the final counters of a run.
func (r *RunRepository) Finish(ctx context.Context, run *models.Run) error {
	result := r.db.GORM().WithContext(ctx).Model(run).Updates(map[string]interface{}{
		"documents":   run.Documents,
		"keyframes":   run.Keyframes,
		"failures":    run.Failures,
		"finished_at": run.FinishedAt,
	})
	if result.Error != nil {
		return fmt.Errorf("failed to finish run: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrRunNotFound
	}
	return nil
}

func (r *RunRepository) GetByID(ctx context.Context, id string) (*models.Run, error) {
	var run models.Run
	result := r.db.GORM().WithContext(ctx).First(&run, "id = ?", id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrRunNotFound
		}
		return nil, fmt.Errorf("failed to get run: %w", result.Error)
	}
	return &run, nil
}

// List returns the most recent runs first.
func (r *RunRepository) List(ctx context.Context, limit int) ([]models.Run, error) {
	if limit <= 0 {
		limit = 20
	}
	var runs []models.Run
	result := r.db.GORM().WithContext(ctx).Order("started_at DESC").Limit(limit).Find(&runs)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to list runs: %w", result.Error)
	}
	return runs, nil
}
