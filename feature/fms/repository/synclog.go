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

// BeginSyncLog creates a new running sync log for the facility. The check
// for an existing running log and the insert happen in one transaction so
// two concurrent callers cannot both start a run.
func (s *Store) BeginSyncLog(ctx context.Context, log *models.SyncLog) error {
	return s.Transaction(ctx, func(tx *Store) error {
		var count int64
		err := tx.db.
			Model(&models.SyncLog{}).
			Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("facility_id = ? AND sync_status = ?", log.FacilityID, models.SyncRunning).
			Count(&count).Error
		if err != nil {
			return err
		}
		if count > 0 {
			return apperr.NewConflict("a sync is already running for this facility")
		}
		return tx.db.Create(log).Error
	})
}

// GetSyncLog fetches one sync log by id.
func (s *Store) GetSyncLog(ctx context.Context, id string) (*models.SyncLog, error) {
	var log models.SyncLog
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&log).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NewNotFound("sync log", id)
	}
	if err != nil {
		return nil, err
	}
	return &log, nil
}

// ListSyncLogs returns a facility's sync logs newest-first.
func (s *Store) ListSyncLogs(ctx context.Context, facilityID string, limit, offset int) ([]models.SyncLog, error) {
	var logs []models.SyncLog
	err := s.db.WithContext(ctx).
		Where("facility_id = ?", facilityID).
		Order("started_at DESC").
		Limit(limit).
		Offset(offset).
		Find(&logs).Error
	if err != nil {
		return nil, err
	}
	return logs, nil
}

// MarkSyncCompleted finalizes a running log with its change counts. The
// status guard makes finalization a one-shot transition.
func (s *Store) MarkSyncCompleted(ctx context.Context, id string, at time.Time, detected, pending int, requiresReview bool) error {
	return s.finalizeSyncLog(ctx, id, map[string]any{
		"sync_status":      models.SyncCompleted,
		"completed_at":     at,
		"changes_detected": detected,
		"changes_pending":  pending,
		"requires_review":  requiresReview,
	})
}

// MarkSyncFailed finalizes a running log with an error message.
func (s *Store) MarkSyncFailed(ctx context.Context, id string, at time.Time, message string) error {
	return s.finalizeSyncLog(ctx, id, map[string]any{
		"sync_status":   models.SyncFailed,
		"completed_at":  at,
		"error_message": message,
	})
}

func (s *Store) finalizeSyncLog(ctx context.Context, id string, fields map[string]any) error {
	res := s.db.WithContext(ctx).
		Model(&models.SyncLog{}).
		Where("id = ? AND sync_status = ?", id, models.SyncRunning).
		Updates(fields)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return apperr.NewConflict("sync log is not running")
	}
	return nil
}

// CompleteSyncRun persists a run's detected changes and finalizes its log
// in one transaction, so a crash can never leave changes without a
// completed run or vice versa.
func (s *Store) CompleteSyncRun(ctx context.Context, syncLogID string, at time.Time, changes []models.Change, requiresReview bool) error {
	return s.Transaction(ctx, func(tx *Store) error {
		if err := tx.CreateChanges(ctx, changes); err != nil {
			return err
		}
		return tx.MarkSyncCompleted(ctx, syncLogID, at, len(changes), len(changes), requiresReview)
	})
}

// RecountSyncLog refreshes the applied/pending/rejected counters from the
// change rows after reviews or applies.
func (s *Store) RecountSyncLog(ctx context.Context, id string) error {
	return s.Transaction(ctx, func(tx *Store) error {
		count := func(cond string, args ...any) (int64, error) {
			var n int64
			err := tx.db.Model(&models.Change{}).
				Where("sync_log_id = ?", id).
				Where(cond, args...).
				Count(&n).Error
			return n, err
		}

		applied, err := count("applied_at IS NOT NULL")
		if err != nil {
			return err
		}
		rejected, err := count("review_decision = ?", models.DecisionRejected)
		if err != nil {
			return err
		}
		pending, err := count("applied_at IS NULL AND review_decision <> ?", models.DecisionRejected)
		if err != nil {
			return err
		}

		return tx.db.Model(&models.SyncLog{}).
			Where("id = ?", id).
			Updates(map[string]any{
				"changes_applied":  applied,
				"changes_pending":  pending,
				"changes_rejected": rejected,
			}).Error
	})
}
