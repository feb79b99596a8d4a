package repository

import (
	"context"
	"errors"
	"time"

	"github.com/skatamatic/blulok-cloud-sub001/core/apperr"
	"github.com/skatamatic/blulok-cloud-sub001/feature/fms/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// CreateChanges persists the diff engine's output for one sync run.
func (s *Store) CreateChanges(ctx context.Context, changes []models.Change) error {
	if len(changes) == 0 {
		return nil
	}
	return s.db.WithContext(ctx).Create(&changes).Error
}

// GetChange fetches one change by id.
func (s *Store) GetChange(ctx context.Context, id string) (*models.Change, error) {
	var change models.Change
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&change).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NewNotFound("change", id)
	}
	if err != nil {
		return nil, err
	}
	return &change, nil
}

// GetChangeForUpdate fetches one change with a row lock, inside the apply
// engine's transaction.
func (s *Store) GetChangeForUpdate(ctx context.Context, id string) (*models.Change, error) {
	var change models.Change
	err := s.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).
		First(&change).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NewNotFound("change", id)
	}
	if err != nil {
		return nil, err
	}
	return &change, nil
}

// MarkChangeApplied stamps applied_at. The guard on the current value makes
// applying twice a conflict even across processes.
func (s *Store) MarkChangeApplied(ctx context.Context, id string, at time.Time) error {
	res := s.db.WithContext(ctx).
		Model(&models.Change{}).
		Where("id = ? AND applied_at IS NULL", id).
		Update("applied_at", at)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return apperr.NewConflict("change already applied")
	}
	return nil
}

// ListChanges returns all changes of one sync run in detection order.
func (s *Store) ListChanges(ctx context.Context, syncLogID string) ([]models.Change, error) {
	var changes []models.Change
	err := s.db.WithContext(ctx).
		Where("sync_log_id = ?", syncLogID).
		Order("entity_type ASC, change_type ASC, external_id ASC").
		Find(&changes).Error
	if err != nil {
		return nil, err
	}
	return changes, nil
}

// GetPendingChanges returns the run's changes still awaiting review.
func (s *Store) GetPendingChanges(ctx context.Context, syncLogID string) ([]models.Change, error) {
	var changes []models.Change
	err := s.db.WithContext(ctx).
		Where("sync_log_id = ? AND is_reviewed = ?", syncLogID, false).
		Order("entity_type ASC, change_type ASC, external_id ASC").
		Find(&changes).Error
	if err != nil {
		return nil, err
	}
	return changes, nil
}

// ReviewChange records an accept/reject decision. Reviewing an already
// reviewed change is idempotent: the stored decision is returned untouched,
// even when it differs from the requested one.
func (s *Store) ReviewChange(ctx context.Context, id string, decision models.ReviewDecision, reviewedBy string, at time.Time) (*models.Change, error) {
	var reviewed *models.Change
	err := s.Transaction(ctx, func(tx *Store) error {
		change, err := tx.GetChangeForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if change.IsReviewed {
			reviewed = change
			return nil
		}

		updates := map[string]any{
			"is_reviewed":     true,
			"review_decision": decision,
			"reviewed_by":     reviewedBy,
			"reviewed_at":     at,
		}
		if err := tx.db.Model(&models.Change{}).Where("id = ?", id).Updates(updates).Error; err != nil {
			return err
		}

		change.IsReviewed = true
		change.Decision = decision
		change.ReviewedBy = reviewedBy
		change.ReviewedAt = &at
		reviewed = change
		return nil
	})
	if err != nil {
		return nil, err
	}
	return reviewed, nil
}
