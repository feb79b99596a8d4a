package repository

import (
	"context"
	"errors"
	"time"

	"github.com/skatamatic/blulok-cloud-sub001/core/apperr"
	"github.com/skatamatic/blulok-cloud-sub001/feature/fms/diff"
	"github.com/skatamatic/blulok-cloud-sub001/feature/fms/models"

	"gorm.io/gorm"
)

// GetUserByEmail fetches a user by email, the key the apply engine matches
// external tenants on.
func (s *Store) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).Where("email = ?", email).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NewNotFound("user", email)
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetUserByID fetches a user by id.
func (s *Store) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NewNotFound("user", id)
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// CreateUser inserts a new user.
func (s *Store) CreateUser(ctx context.Context, user *models.User) error {
	if err := s.db.WithContext(ctx).Create(user).Error; err != nil {
		if isDuplicateKey(err) {
			return apperr.NewConflict("a user with this email already exists")
		}
		return err
	}
	return nil
}

// UpdateUser applies the given column updates to one user.
func (s *Store) UpdateUser(ctx context.Context, id string, fields map[string]any) error {
	fields["updated_at"] = time.Now()
	res := s.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return apperr.NewNotFound("user", id)
	}
	return nil
}

// SetUserActive flips a user's active flag.
func (s *Store) SetUserActive(ctx context.Context, id string, active bool) error {
	return s.UpdateUser(ctx, id, map[string]any{"is_active": active})
}

// CountActiveAssignments counts the user's unit assignments across all
// facilities. Zero means the account may be deactivated.
func (s *Store) CountActiveAssignments(ctx context.Context, userID string) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).
		Model(&models.UnitAssignment{}).
		Where("user_id = ?", userID).
		Count(&count).Error
	return count, err
}

// GetAssignment fetches the user's assignment at one facility.
func (s *Store) GetAssignment(ctx context.Context, facilityID, userID string) (*models.UnitAssignment, error) {
	var assignment models.UnitAssignment
	err := s.db.WithContext(ctx).
		Where("facility_id = ? AND user_id = ?", facilityID, userID).
		First(&assignment).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NewNotFound("unit assignment", userID)
	}
	if err != nil {
		return nil, err
	}
	return &assignment, nil
}

// CreateAssignment inserts a new unit assignment.
func (s *Store) CreateAssignment(ctx context.Context, assignment *models.UnitAssignment) error {
	return s.db.WithContext(ctx).Create(assignment).Error
}

// DeleteAssignment removes one assignment row.
func (s *Store) DeleteAssignment(ctx context.Context, id string) error {
	res := s.db.WithContext(ctx).Where("id = ?", id).Delete(&models.UnitAssignment{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return apperr.NewNotFound("unit assignment", id)
	}
	return nil
}

// GetUnitByID fetches one unit.
func (s *Store) GetUnitByID(ctx context.Context, id string) (*models.Unit, error) {
	var unit models.Unit
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&unit).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NewNotFound("unit", id)
	}
	if err != nil {
		return nil, err
	}
	return &unit, nil
}

// GetUnitByNumber fetches a facility's unit by its display number.
func (s *Store) GetUnitByNumber(ctx context.Context, facilityID, unitNumber string) (*models.Unit, error) {
	var unit models.Unit
	err := s.db.WithContext(ctx).
		Where("facility_id = ? AND unit_number = ?", facilityID, unitNumber).
		First(&unit).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperr.NewNotFound("unit", unitNumber)
	}
	if err != nil {
		return nil, err
	}
	return &unit, nil
}

// CreateUnit inserts a new unit.
func (s *Store) CreateUnit(ctx context.Context, unit *models.Unit) error {
	return s.db.WithContext(ctx).Create(unit).Error
}

// UpdateUnit applies the given column updates to one unit.
func (s *Store) UpdateUnit(ctx context.Context, id string, fields map[string]any) error {
	fields["updated_at"] = time.Now()
	res := s.db.WithContext(ctx).Model(&models.Unit{}).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return apperr.NewNotFound("unit", id)
	}
	return nil
}

// LoadInternalState assembles the facility's current tenants and units in
// the shape the diff engine consumes. Tenants are users holding an
// assignment at the facility, joined to their unit for the unit number.
func (s *Store) LoadInternalState(ctx context.Context, facilityID string) (diff.InternalState, error) {
	var state diff.InternalState

	type tenantRow struct {
		UserID     string
		Name       string
		Email      string
		IsActive   bool
		UnitNumber string
	}
	var tenants []tenantRow
	err := s.db.WithContext(ctx).
		Table("unit_assignments").
		Select("users.id AS user_id, users.name, users.email, users.is_active, units.unit_number").
		Joins("JOIN users ON users.id = unit_assignments.user_id").
		Joins("JOIN units ON units.id = unit_assignments.unit_id").
		Where("unit_assignments.facility_id = ?", facilityID).
		Order("users.email ASC").
		Scan(&tenants).Error
	if err != nil {
		return state, err
	}
	for _, t := range tenants {
		state.Tenants = append(state.Tenants, diff.InternalTenant{
			UserID:     t.UserID,
			Name:       t.Name,
			Email:      t.Email,
			IsActive:   t.IsActive,
			UnitNumber: t.UnitNumber,
		})
	}

	var units []models.Unit
	err = s.db.WithContext(ctx).
		Where("facility_id = ?", facilityID).
		Order("unit_number ASC").
		Find(&units).Error
	if err != nil {
		return state, err
	}
	for _, u := range units {
		state.Units = append(state.Units, diff.InternalUnit{
			UnitID:     u.ID,
			UnitNumber: u.UnitNumber,
			Status:     u.Status,
			RentAmount: u.RentAmount,
		})
	}

	return state, nil
}
