package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/skatamatic/blulok-cloud-sub001/core/apperr"
	"github.com/skatamatic/blulok-cloud-sub001/feature/fms/models"

	"gorm.io/gorm"
)

// ResolveMapping looks up the mapping for one external identifier.
func (s *Store) ResolveMapping(ctx context.Context, facilityID string, entityType models.EntityType, providerType models.ProviderType, externalID string) (*models.EntityMapping, error) {
	var mapping models.EntityMapping
	err := s.db.WithContext(ctx).
		Where("facility_id = ? AND entity_type = ? AND provider_type = ? AND external_id = ?",
			facilityID, entityType, providerType, externalID).
		First(&mapping).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NewNotFound("entity mapping", externalID)
	}
	if err != nil {
		return nil, err
	}
	return &mapping, nil
}

// CreateMapping inserts a new mapping row. The unique key over
// (facility, entity type, provider, external id) makes double-creation a
// ConflictError.
func (s *Store) CreateMapping(ctx context.Context, mapping *models.EntityMapping) error {
	if err := s.db.WithContext(ctx).Create(mapping).Error; err != nil {
		if isDuplicateKey(err) {
			return apperr.NewConflict(fmt.Sprintf("mapping for external %s %s already exists", mapping.EntityType, mapping.ExternalID))
		}
		return err
	}
	return nil
}

// ListMappings returns every mapping of one facility and provider, ordered
// for stable output.
func (s *Store) ListMappings(ctx context.Context, facilityID string, providerType models.ProviderType) ([]models.EntityMapping, error) {
	var mappings []models.EntityMapping
	err := s.db.WithContext(ctx).
		Where("facility_id = ? AND provider_type = ?", facilityID, providerType).
		Order("entity_type ASC, external_id ASC").
		Find(&mappings).Error
	if err != nil {
		return nil, err
	}
	return mappings, nil
}

// DeleteMappingsForFacility removes all mappings of one facility, used when
// a facility's FMS configuration is deleted.
func (s *Store) DeleteMappingsForFacility(ctx context.Context, facilityID string) error {
	return s.db.WithContext(ctx).
		Where("facility_id = ?", facilityID).
		Delete(&models.EntityMapping{}).Error
}
