package apply

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/skatamatic/blulok-cloud-sub001/core/apperr"
	"github.com/skatamatic/blulok-cloud-sub001/feature/fms/events"
	"github.com/skatamatic/blulok-cloud-sub001/feature/fms/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Engine turns accepted, reviewed changes into real mutations on users,
// units and assignments. Each change's mutation set is transactional; the
// batch as a whole is not, so partial success is possible and reported.
type Engine struct {
	store  Store
	bus    events.Publisher
	logger *zap.Logger
	now    func() time.Time
}

// NewEngine creates an apply engine with injected dependencies.
func NewEngine(store Store, bus events.Publisher, logger *zap.Logger) *Engine {
	if bus == nil {
		bus = events.NopPublisher{}
	}
	return &Engine{
		store:  store,
		bus:    bus,
		logger: logger,
		now:    time.Now,
	}
}

// applyOrder makes unit creations land before the tenant changes that may
// reference them, and unit retirements last.
var applyOrder = map[models.ChangeType]int{
	models.ChangeUnitAdded:     0,
	models.ChangeUnitUpdated:   1,
	models.ChangeTenantAdded:   2,
	models.ChangeTenantUpdated: 3,
	models.ChangeTenantRemoved: 4,
	models.ChangeUnitRemoved:   5,
}

// Apply executes the given changes of one sync run. Every change is
// verified to belong to the run and to be reviewed, accepted and
// not yet applied; violations are recorded per change and never abort the
// rest of the batch.
func (e *Engine) Apply(ctx context.Context, log *models.SyncLog, providerType models.ProviderType, changeIDs []string) (*Result, error) {
	result := &Result{Errors: []ChangeError{}}

	// Load up front to order the batch; each change is re-read under lock
	// inside its own transaction before mutating.
	type item struct {
		id         string
		changeType models.ChangeType
		pos        int
	}
	items := make([]item, 0, len(changeIDs))
	for i, id := range changeIDs {
		change, err := e.getChange(ctx, id)
		if err != nil {
			result.fail(id, err.Error())
			continue
		}
		items = append(items, item{id: id, changeType: change.ChangeType, pos: i})
	}
	sort.SliceStable(items, func(i, j int) bool {
		return applyOrder[items[i].changeType] < applyOrder[items[j].changeType]
	})

	for _, it := range items {
		if err := e.applyOne(ctx, log, providerType, it.id, result); err != nil {
			result.fail(it.id, err.Error())
			e.logger.Warn("Change failed to apply",
				zap.String("sync_log_id", log.ID),
				zap.String("change_id", it.id),
				zap.Error(err))
			continue
		}
		result.ChangesApplied++
	}

	return result, nil
}

func (e *Engine) getChange(ctx context.Context, id string) (change *models.Change, err error) {
	err = e.store.InTx(ctx, func(tx Store) error {
		change, err = tx.GetChangeForUpdate(ctx, id)
		return err
	})
	return change, err
}

// applyOne runs a single change's full mutation set in one transaction.
func (e *Engine) applyOne(ctx context.Context, log *models.SyncLog, providerType models.ProviderType, changeID string, result *Result) error {
	var pending []events.AccessEvent

	err := e.store.InTx(ctx, func(tx Store) error {
		change, err := tx.GetChangeForUpdate(ctx, changeID)
		if err != nil {
			return err
		}

		if change.SyncLogID != log.ID {
			return apperr.NewApply(changeID, "change does not belong to this sync log")
		}
		if change.Applied() {
			return apperr.NewApply(changeID, "change already applied")
		}
		if !change.IsReviewed || change.Decision != models.DecisionAccepted {
			return apperr.NewApply(changeID, "change is not reviewed and accepted")
		}

		emit := func(evt events.AccessEvent) {
			evt.FacilityID = log.FacilityID
			evt.SyncLogID = log.ID
			evt.ChangeID = change.ID
			evt.At = e.now()
			pending = append(pending, evt)
		}

		switch change.ChangeType {
		case models.ChangeTenantAdded:
			err = e.tenantAdded(ctx, tx, log, providerType, change, result, emit)
		case models.ChangeTenantRemoved:
			err = e.tenantRemoved(ctx, tx, log, providerType, change, result, emit)
		case models.ChangeTenantUpdated:
			err = e.tenantUpdated(ctx, tx, log, providerType, change)
		case models.ChangeUnitAdded:
			err = e.unitAdded(ctx, tx, log, providerType, change)
		case models.ChangeUnitRemoved:
			err = e.unitRemoved(ctx, tx, log, providerType, change, emit)
		case models.ChangeUnitUpdated:
			err = e.unitUpdated(ctx, tx, log, providerType, change)
		default:
			err = apperr.NewApply(changeID, fmt.Sprintf("unknown change type %q", change.ChangeType))
		}
		if err != nil {
			return err
		}

		return tx.MarkChangeApplied(ctx, change.ID, e.now())
	})
	if err != nil {
		return err
	}

	// Events publish only after the transaction commits.
	for _, evt := range pending {
		e.bus.Publish(evt)
	}

	return nil
}

func (e *Engine) tenantAdded(ctx context.Context, tx Store, log *models.SyncLog, providerType models.ProviderType, change *models.Change, result *Result, emit func(events.AccessEvent)) error {
	email, _ := change.AfterData["email"].(string)
	name, _ := change.AfterData["name"].(string)
	unitNumber, _ := change.AfterData["unit_number"].(string)
	if email == "" {
		return apperr.NewApply(change.ID, "tenant_added change has no email")
	}

	// Create or reuse the account by email.
	user, err := tx.GetUserByEmail(ctx, email)
	switch {
	case apperr.IsNotFound(err):
		user = &models.User{
			ID:       uuid.NewString(),
			Email:    email,
			Name:     name,
			IsActive: true,
		}
		if err := tx.CreateUser(ctx, user); err != nil {
			return err
		}
		result.AccessChanges.UsersCreated++
		emit(events.AccessEvent{Type: events.UserCreated, UserID: user.ID})
	case err != nil:
		return err
	case !user.IsActive:
		// Gaining an assignment reactivates a dormant account.
		if err := tx.SetUserActive(ctx, user.ID, true); err != nil {
			return err
		}
	}

	// Mappings outlive removals, so a returning tenant already has one. A
	// retained mapping that still points at the matched account is reused;
	// one pointing at a different account means the external id was rebound
	// and must not be silently repointed.
	mapping, err := tx.ResolveMapping(ctx, log.FacilityID, models.EntityTenant, providerType, change.ExternalID)
	switch {
	case err == nil:
		if mapping.InternalID != user.ID {
			return apperr.NewConflict(fmt.Sprintf("mapping for external tenant %s points at a different user", change.ExternalID))
		}
	case apperr.IsNotFound(err):
		if err := tx.CreateMapping(ctx, &models.EntityMapping{
			ID:           uuid.NewString(),
			FacilityID:   log.FacilityID,
			EntityType:   models.EntityTenant,
			ProviderType: providerType,
			ExternalID:   change.ExternalID,
			InternalID:   user.ID,
		}); err != nil {
			return err
		}
	default:
		return err
	}

	unit, err := e.unitForNumber(ctx, tx, log.FacilityID, unitNumber)
	if err != nil {
		return err
	}

	if existing, err := tx.GetAssignment(ctx, log.FacilityID, user.ID); err == nil && existing != nil {
		// Already assigned at this facility; granting twice is a no-op.
		return nil
	} else if err != nil && !apperr.IsNotFound(err) {
		return err
	}

	if err := tx.CreateAssignment(ctx, &models.UnitAssignment{
		ID:         uuid.NewString(),
		UnitID:     unit.ID,
		UserID:     user.ID,
		FacilityID: log.FacilityID,
	}); err != nil {
		return err
	}

	result.AccessChanges.AccessGranted++
	emit(events.AccessEvent{Type: events.AccessGranted, UserID: user.ID, UnitID: unit.ID})
	return nil
}

// unitForNumber finds the facility's unit with the given number, creating
// it when the provider reports tenants for units it never enumerated.
func (e *Engine) unitForNumber(ctx context.Context, tx Store, facilityID, unitNumber string) (*models.Unit, error) {
	if unitNumber == "" {
		return nil, apperr.NewApply("", "change has no unit number")
	}

	unit, err := tx.GetUnitByNumber(ctx, facilityID, unitNumber)
	if err == nil {
		if unit.FacilityID != facilityID {
			return nil, apperr.NewApply("", fmt.Sprintf("unit %s belongs to another facility", unitNumber))
		}
		return unit, nil
	}
	if !apperr.IsNotFound(err) {
		return nil, err
	}

	unit = &models.Unit{
		ID:         uuid.NewString(),
		FacilityID: facilityID,
		UnitNumber: unitNumber,
		Status:     models.UnitOccupied,
	}
	if err := tx.CreateUnit(ctx, unit); err != nil {
		return nil, err
	}
	return unit, nil
}

func (e *Engine) tenantRemoved(ctx context.Context, tx Store, log *models.SyncLog, providerType models.ProviderType, change *models.Change, result *Result, emit func(events.AccessEvent)) error {
	mapping, err := tx.ResolveMapping(ctx, log.FacilityID, models.EntityTenant, providerType, change.ExternalID)
	if err != nil {
		return err
	}

	removed, err := e.removeTenantAccess(ctx, tx, log.FacilityID, mapping.InternalID, result, emit)
	if err != nil {
		return err
	}
	if !removed {
		e.logger.Debug("Tenant had no assignment to remove",
			zap.String("facility_id", log.FacilityID),
			zap.String("user_id", mapping.InternalID))
	}
	return nil
}

// removeTenantAccess removes the user's assignment at the given facility
// and deactivates the account only if no active assignments remain in any
// facility. Shared by the sync apply path and the direct removal path.
func (e *Engine) removeTenantAccess(ctx context.Context, tx Store, facilityID, userID string, result *Result, emit func(events.AccessEvent)) (bool, error) {
	user, err := tx.GetUserByID(ctx, userID)
	if err != nil {
		return false, err
	}

	removed := false
	assignment, err := tx.GetAssignment(ctx, facilityID, userID)
	switch {
	case err == nil:
		// Facility isolation: the assignment row must belong to the
		// facility that owns this run.
		if assignment.FacilityID != facilityID {
			return false, apperr.NewApply("", "assignment belongs to another facility")
		}
		if err := tx.DeleteAssignment(ctx, assignment.ID); err != nil {
			return false, err
		}
		removed = true
		result.AccessChanges.AccessRevoked++
		emit(events.AccessEvent{Type: events.AccessRevoked, UserID: userID, UnitID: assignment.UnitID})
	case apperr.IsNotFound(err):
		// Nothing to remove at this facility.
	default:
		return false, err
	}

	remaining, err := tx.CountActiveAssignments(ctx, userID)
	if err != nil {
		return removed, err
	}
	if remaining == 0 && user.IsActive {
		if err := tx.SetUserActive(ctx, userID, false); err != nil {
			return removed, err
		}
		result.AccessChanges.UsersDeactivated++
		emit(events.AccessEvent{Type: events.UserDeactivated, UserID: userID})
	}

	return removed, nil
}

func (e *Engine) tenantUpdated(ctx context.Context, tx Store, log *models.SyncLog, providerType models.ProviderType, change *models.Change) error {
	mapping, err := tx.ResolveMapping(ctx, log.FacilityID, models.EntityTenant, providerType, change.ExternalID)
	if err != nil {
		return err
	}

	user, err := tx.GetUserByID(ctx, mapping.InternalID)
	if err != nil {
		return err
	}

	fields := map[string]any{}
	if name, ok := change.AfterData["name"].(string); ok && name != "" {
		fields["name"] = name
	}
	if email, ok := change.AfterData["email"].(string); ok && email != "" {
		fields["email"] = email
	}
	if len(fields) > 0 {
		if err := tx.UpdateUser(ctx, user.ID, fields); err != nil {
			return err
		}
	}

	// Unit move: repoint the facility assignment at the new unit.
	if unitNumber, ok := change.AfterData["unit_number"].(string); ok && unitNumber != "" {
		unit, err := e.unitForNumber(ctx, tx, log.FacilityID, unitNumber)
		if err != nil {
			return err
		}
		assignment, err := tx.GetAssignment(ctx, log.FacilityID, user.ID)
		if err == nil {
			if err := tx.DeleteAssignment(ctx, assignment.ID); err != nil {
				return err
			}
		} else if !apperr.IsNotFound(err) {
			return err
		}
		if err := tx.CreateAssignment(ctx, &models.UnitAssignment{
			ID:         uuid.NewString(),
			UnitID:     unit.ID,
			UserID:     user.ID,
			FacilityID: log.FacilityID,
		}); err != nil {
			return err
		}
	}

	return nil
}

func (e *Engine) unitAdded(ctx context.Context, tx Store, log *models.SyncLog, providerType models.ProviderType, change *models.Change) error {
	if _, err := tx.ResolveMapping(ctx, log.FacilityID, models.EntityUnit, providerType, change.ExternalID); err == nil {
		return apperr.NewConflict(fmt.Sprintf("mapping for external unit %s already exists", change.ExternalID))
	} else if !apperr.IsNotFound(err) {
		return err
	}

	unitNumber, _ := change.AfterData["unit_number"].(string)
	status, _ := change.AfterData["status"].(string)
	rent, _ := change.AfterData["rent_amount"].(float64)
	if unitNumber == "" {
		return apperr.NewApply(change.ID, "unit_added change has no unit number")
	}
	if status == "" {
		status = string(models.UnitAvailable)
	}

	unit := &models.Unit{
		ID:         uuid.NewString(),
		FacilityID: log.FacilityID,
		UnitNumber: unitNumber,
		Status:     models.UnitStatus(status),
		RentAmount: rent,
	}
	if err := tx.CreateUnit(ctx, unit); err != nil {
		return err
	}

	return tx.CreateMapping(ctx, &models.EntityMapping{
		ID:           uuid.NewString(),
		FacilityID:   log.FacilityID,
		EntityType:   models.EntityUnit,
		ProviderType: providerType,
		ExternalID:   change.ExternalID,
		InternalID:   unit.ID,
	})
}

func (e *Engine) unitRemoved(ctx context.Context, tx Store, log *models.SyncLog, providerType models.ProviderType, change *models.Change, emit func(events.AccessEvent)) error {
	unit, err := e.resolveUnit(ctx, tx, log, providerType, change.ExternalID)
	if err != nil {
		return err
	}

	if err := tx.UpdateUnit(ctx, unit.ID, map[string]any{"status": string(models.UnitRetired)}); err != nil {
		return err
	}
	emit(events.AccessEvent{Type: events.UnitRetired, UnitID: unit.ID})
	return nil
}

func (e *Engine) unitUpdated(ctx context.Context, tx Store, log *models.SyncLog, providerType models.ProviderType, change *models.Change) error {
	unit, err := e.resolveUnit(ctx, tx, log, providerType, change.ExternalID)
	if err != nil {
		return err
	}

	fields := map[string]any{}
	if status, ok := change.AfterData["status"].(string); ok && status != "" {
		fields["status"] = status
	}
	if rent, ok := change.AfterData["rent_amount"].(float64); ok {
		fields["rent_amount"] = rent
	}
	if unitNumber, ok := change.AfterData["unit_number"].(string); ok && unitNumber != "" {
		fields["unit_number"] = unitNumber
	}
	if len(fields) == 0 {
		return nil
	}

	return tx.UpdateUnit(ctx, unit.ID, fields)
}

// resolveUnit maps an external unit id to the internal unit row and
// enforces that it belongs to the facility owning the sync run.
func (e *Engine) resolveUnit(ctx context.Context, tx Store, log *models.SyncLog, providerType models.ProviderType, externalID string) (*models.Unit, error) {
	mapping, err := tx.ResolveMapping(ctx, log.FacilityID, models.EntityUnit, providerType, externalID)
	if err != nil {
		return nil, err
	}

	unit, err := tx.GetUnitByID(ctx, mapping.InternalID)
	if err != nil {
		return nil, err
	}
	if unit.FacilityID != log.FacilityID {
		return nil, apperr.NewApply("", fmt.Sprintf("unit %s belongs to another facility", unit.UnitNumber))
	}
	return unit, nil
}

// RemoveTenantByExternalID is the direct removal path used when a provider
// pushes a removal event outside a full sync run. It follows the same
// facility-scoped removal and deactivate-only-if-orphaned rule as
// tenant_removed changes.
func (e *Engine) RemoveTenantByExternalID(ctx context.Context, facilityID string, providerType models.ProviderType, externalID string) (*Result, error) {
	result := &Result{Errors: []ChangeError{}}
	var pending []events.AccessEvent

	err := e.store.InTx(ctx, func(tx Store) error {
		mapping, err := tx.ResolveMapping(ctx, facilityID, models.EntityTenant, providerType, externalID)
		if err != nil {
			return err
		}

		emit := func(evt events.AccessEvent) {
			evt.FacilityID = facilityID
			evt.At = e.now()
			pending = append(pending, evt)
		}

		_, err = e.removeTenantAccess(ctx, tx, facilityID, mapping.InternalID, result, emit)
		return err
	})
	if err != nil {
		return nil, err
	}

	for _, evt := range pending {
		e.bus.Publish(evt)
	}

	return result, nil
}
