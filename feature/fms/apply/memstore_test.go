package apply

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/skatamatic/blulok-cloud-sub001/core/apperr"
	"github.com/skatamatic/blulok-cloud-sub001/feature/fms/models"
)

// memStore is an in-memory Store used to exercise the engine without a
// database. InTx snapshots state and restores it on error, mimicking
// transaction rollback.
type memStore struct {
	changes     map[string]*models.Change
	mappings    map[string]*models.EntityMapping
	users       map[string]*models.User
	units       map[string]*models.Unit
	assignments map[string]*models.UnitAssignment
}

func newMemStore() *memStore {
	return &memStore{
		changes:     map[string]*models.Change{},
		mappings:    map[string]*models.EntityMapping{},
		users:       map[string]*models.User{},
		units:       map[string]*models.Unit{},
		assignments: map[string]*models.UnitAssignment{},
	}
}

func mappingKey(facilityID string, et models.EntityType, pt models.ProviderType, externalID string) string {
	return strings.Join([]string{facilityID, string(et), string(pt), externalID}, "|")
}

func (m *memStore) snapshot() *memStore {
	cp := newMemStore()
	for k, v := range m.changes {
		c := *v
		cp.changes[k] = &c
	}
	for k, v := range m.mappings {
		c := *v
		cp.mappings[k] = &c
	}
	for k, v := range m.users {
		c := *v
		cp.users[k] = &c
	}
	for k, v := range m.units {
		c := *v
		cp.units[k] = &c
	}
	for k, v := range m.assignments {
		c := *v
		cp.assignments[k] = &c
	}
	return cp
}

func (m *memStore) restore(from *memStore) {
	m.changes = from.changes
	m.mappings = from.mappings
	m.users = from.users
	m.units = from.units
	m.assignments = from.assignments
}

func (m *memStore) InTx(ctx context.Context, fn func(tx Store) error) error {
	before := m.snapshot()
	if err := fn(m); err != nil {
		m.restore(before)
		return err
	}
	return nil
}

func (m *memStore) GetChangeForUpdate(ctx context.Context, changeID string) (*models.Change, error) {
	c, ok := m.changes[changeID]
	if !ok {
		return nil, apperr.NewNotFound("change", changeID)
	}
	cp := *c
	return &cp, nil
}

func (m *memStore) MarkChangeApplied(ctx context.Context, changeID string, at time.Time) error {
	c, ok := m.changes[changeID]
	if !ok {
		return apperr.NewNotFound("change", changeID)
	}
	if c.AppliedAt != nil {
		return apperr.NewConflict("change already applied")
	}
	c.AppliedAt = &at
	return nil
}

func (m *memStore) ResolveMapping(ctx context.Context, facilityID string, et models.EntityType, pt models.ProviderType, externalID string) (*models.EntityMapping, error) {
	mp, ok := m.mappings[mappingKey(facilityID, et, pt, externalID)]
	if !ok {
		return nil, apperr.NewNotFound("entity mapping", externalID)
	}
	cp := *mp
	return &cp, nil
}

func (m *memStore) CreateMapping(ctx context.Context, mp *models.EntityMapping) error {
	key := mappingKey(mp.FacilityID, mp.EntityType, mp.ProviderType, mp.ExternalID)
	if _, exists := m.mappings[key]; exists {
		return apperr.NewConflict("duplicate entity mapping")
	}
	cp := *mp
	m.mappings[key] = &cp
	return nil
}

func (m *memStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	for _, u := range m.users {
		if strings.EqualFold(u.Email, email) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, apperr.NewNotFound("user", email)
}

func (m *memStore) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	u, ok := m.users[id]
	if !ok {
		return nil, apperr.NewNotFound("user", id)
	}
	cp := *u
	return &cp, nil
}

func (m *memStore) CreateUser(ctx context.Context, u *models.User) error {
	cp := *u
	m.users[u.ID] = &cp
	return nil
}

func (m *memStore) UpdateUser(ctx context.Context, id string, fields map[string]any) error {
	u, ok := m.users[id]
	if !ok {
		return apperr.NewNotFound("user", id)
	}
	if name, ok := fields["name"].(string); ok {
		u.Name = name
	}
	if email, ok := fields["email"].(string); ok {
		u.Email = email
	}
	return nil
}

func (m *memStore) SetUserActive(ctx context.Context, id string, active bool) error {
	u, ok := m.users[id]
	if !ok {
		return apperr.NewNotFound("user", id)
	}
	u.IsActive = active
	return nil
}

func (m *memStore) CountActiveAssignments(ctx context.Context, userID string) (int64, error) {
	var n int64
	for _, a := range m.assignments {
		if a.UserID == userID {
			n++
		}
	}
	return n, nil
}

func (m *memStore) GetAssignment(ctx context.Context, facilityID, userID string) (*models.UnitAssignment, error) {
	for _, a := range m.assignments {
		if a.FacilityID == facilityID && a.UserID == userID {
			cp := *a
			return &cp, nil
		}
	}
	return nil, apperr.NewNotFound("unit assignment", userID)
}

func (m *memStore) CreateAssignment(ctx context.Context, a *models.UnitAssignment) error {
	cp := *a
	m.assignments[a.ID] = &cp
	return nil
}

func (m *memStore) DeleteAssignment(ctx context.Context, id string) error {
	if _, ok := m.assignments[id]; !ok {
		return apperr.NewNotFound("unit assignment", id)
	}
	delete(m.assignments, id)
	return nil
}

func (m *memStore) GetUnitByID(ctx context.Context, id string) (*models.Unit, error) {
	u, ok := m.units[id]
	if !ok {
		return nil, apperr.NewNotFound("unit", id)
	}
	cp := *u
	return &cp, nil
}

func (m *memStore) GetUnitByNumber(ctx context.Context, facilityID, unitNumber string) (*models.Unit, error) {
	for _, u := range m.units {
		if u.FacilityID == facilityID && u.UnitNumber == unitNumber {
			cp := *u
			return &cp, nil
		}
	}
	return nil, apperr.NewNotFound("unit", unitNumber)
}

func (m *memStore) CreateUnit(ctx context.Context, u *models.Unit) error {
	cp := *u
	m.units[u.ID] = &cp
	return nil
}

func (m *memStore) UpdateUnit(ctx context.Context, id string, fields map[string]any) error {
	u, ok := m.units[id]
	if !ok {
		return apperr.NewNotFound("unit", id)
	}
	if status, ok := fields["status"].(string); ok {
		u.Status = models.UnitStatus(status)
	}
	if rent, ok := fields["rent_amount"].(float64); ok {
		u.RentAmount = rent
	}
	if number, ok := fields["unit_number"].(string); ok {
		u.UnitNumber = number
	}
	return nil
}

// seedChange registers a reviewed+accepted change ready to apply.
func (m *memStore) seedChange(id, syncLogID string, ct models.ChangeType, externalID string, after models.JSONMap) *models.Change {
	now := time.Now()
	c := &models.Change{
		ID:         id,
		SyncLogID:  syncLogID,
		ChangeType: ct,
		EntityType: entityTypeOf(ct),
		ExternalID: externalID,
		AfterData:  after,
		IsReviewed: true,
		Decision:   models.DecisionAccepted,
		ReviewedAt: &now,
	}
	m.changes[id] = c
	return c
}

func entityTypeOf(ct models.ChangeType) models.EntityType {
	if strings.HasPrefix(string(ct), "tenant") {
		return models.EntityTenant
	}
	return models.EntityUnit
}

func (m *memStore) seedMapping(facilityID string, et models.EntityType, externalID, internalID string) {
	_ = m.CreateMapping(context.Background(), &models.EntityMapping{
		ID:           fmt.Sprintf("map-%s", externalID),
		FacilityID:   facilityID,
		EntityType:   et,
		ProviderType: models.ProviderREST,
		ExternalID:   externalID,
		InternalID:   internalID,
	})
}
