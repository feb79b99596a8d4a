package repository

import (
	"context"
	"errors"
	"time"

	"github.com/skatamatic/blulok-cloud-sub001/core/apperr"
	"github.com/skatamatic/blulok-cloud-sub001/feature/fms/models"

	"gorm.io/gorm"
)

// GetFMSConfig fetches a facility's provider configuration.
func (s *Store) GetFMSConfig(ctx context.Context, facilityID string) (*models.FMSConfig, error) {
	var config models.FMSConfig
	err := s.db.WithContext(ctx).Where("facility_id = ?", facilityID).First(&config).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NewNotFound("fms config", facilityID)
	}
	if err != nil {
		return nil, err
	}
	return &config, nil
}

// SaveFMSConfig inserts or updates a facility's provider configuration.
// One config per facility; the facility_id unique index is the upsert key.
func (s *Store) SaveFMSConfig(ctx context.Context, config *models.FMSConfig) error {
	return s.Transaction(ctx, func(tx *Store) error {
		var existing models.FMSConfig
		err := tx.db.Where("facility_id = ?", config.FacilityID).First(&existing).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			return tx.db.Create(config).Error
		case err != nil:
			return err
		}

		config.ID = existing.ID
		config.CreatedAt = existing.CreatedAt
		return tx.db.Model(&models.FMSConfig{}).
			Where("id = ?", existing.ID).
			Updates(map[string]any{
				"provider_type": config.ProviderType,
				"is_enabled":    config.IsEnabled,
				"config":        config.Config,
				"updated_at":    time.Now(),
			}).Error
	})
}

// DeleteFMSConfig removes a facility's provider configuration together with
// its entity mappings.
func (s *Store) DeleteFMSConfig(ctx context.Context, facilityID string) error {
	return s.Transaction(ctx, func(tx *Store) error {
		res := tx.db.Where("facility_id = ?", facilityID).Delete(&models.FMSConfig{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return apperr.NewNotFound("fms config", facilityID)
		}
		return tx.DeleteMappingsForFacility(ctx, facilityID)
	})
}
