package diff

import (
	"fmt"
	"sort"
	"strings"

	"github.com/skatamatic/blulok-cloud-sub001/feature/fms/models"
)

// InternalTenant is the access-control side of a tenant: a user account
// plus its unit assignment at the facility under sync.
type InternalTenant struct {
	UserID     string
	Name       string
	Email      string
	IsActive   bool
	UnitNumber string
}

// InternalUnit is the access-control side of a storage unit.
type InternalUnit struct {
	UnitID     string
	UnitNumber string
	Status     models.UnitStatus
	RentAmount float64
}

// InternalState is the facility's current internal tenant/unit state.
type InternalState struct {
	Tenants []InternalTenant
	Units   []InternalUnit
}

// Input bundles everything the diff engine needs. The engine is pure: its
// output depends only on the two snapshots and the mapping table, never on
// wall-clock time or input ordering.
type Input struct {
	FacilityID   string
	ProviderType models.ProviderType
	External     *models.Snapshot
	Internal     InternalState
	Mappings     []models.EntityMapping
}

// Compute produces the set of changes between the external snapshot and the
// internal state. Entities are keyed by external_id through the mapping
// table; identical inputs yield an empty change set. Output is sorted by
// (entity_type, change_type, external_id) so re-runs are byte-stable.
func Compute(in Input) []models.Change {
	extToInt, intToExt := indexMappings(in.Mappings, in.ProviderType)

	var changes []models.Change
	changes = append(changes, diffTenants(in, extToInt[models.EntityTenant], intToExt[models.EntityTenant])...)
	changes = append(changes, diffUnits(in, extToInt[models.EntityUnit], intToExt[models.EntityUnit])...)

	sort.Slice(changes, func(i, j int) bool {
		a, b := changes[i], changes[j]
		if a.EntityType != b.EntityType {
			return a.EntityType < b.EntityType
		}
		if a.ChangeType != b.ChangeType {
			return a.ChangeType < b.ChangeType
		}
		return a.ExternalID < b.ExternalID
	})

	return changes
}

// indexMappings builds per-entity-type lookup maps between the two
// identifier spaces, restricted to the provider under sync.
func indexMappings(mappings []models.EntityMapping, pt models.ProviderType) (map[models.EntityType]map[string]string, map[models.EntityType]map[string]string) {
	extToInt := map[models.EntityType]map[string]string{
		models.EntityTenant: {},
		models.EntityUnit:   {},
	}
	intToExt := map[models.EntityType]map[string]string{
		models.EntityTenant: {},
		models.EntityUnit:   {},
	}

	for _, m := range mappings {
		if m.ProviderType != pt {
			continue
		}
		if _, ok := extToInt[m.EntityType]; !ok {
			continue
		}
		extToInt[m.EntityType][m.ExternalID] = m.InternalID
		intToExt[m.EntityType][m.InternalID] = m.ExternalID
	}

	return extToInt, intToExt
}

func diffTenants(in Input, extToInt, intToExt map[string]string) []models.Change {
	// Index external tenants by external_id. Tenants the provider reports
	// as inactive are treated as absent from the roster: the provider's
	// active roster is the source of truth for who holds access.
	external := make(map[string]models.ExternalEntity)
	for _, e := range in.External.Tenants {
		if e.ExternalID == "" || !e.IsActive {
			continue
		}
		if _, dup := external[e.ExternalID]; !dup {
			external[e.ExternalID] = e
		}
	}

	internal := make(map[string]InternalTenant, len(in.Internal.Tenants))
	for _, t := range in.Internal.Tenants {
		internal[t.UserID] = t
	}

	var changes []models.Change

	for extID, ext := range external {
		intID, mapped := extToInt[extID]
		rec, present := internal[intID]
		if !mapped || !present {
			actions := models.ActionList{models.ActionCreateUser, models.ActionGrantAccess}
			if !mapped {
				actions = append(models.ActionList{models.ActionCreateMapping}, actions...)
			}
			changes = append(changes, models.Change{
				SyncLogID:       "",
				ChangeType:      models.ChangeTenantAdded,
				EntityType:      models.EntityTenant,
				ExternalID:      extID,
				AfterData:       tenantFields(ext.Name, ext.Email, ext.UnitNumber, ext.IsActive),
				RequiredActions: actions,
				ImpactSummary:   fmt.Sprintf("New tenant %s (%s) will be granted access to unit %s", ext.Name, ext.Email, ext.UnitNumber),
			})
			continue
		}

		before, after := changedTenantFields(rec, ext)
		if len(after) == 0 {
			continue
		}
		changes = append(changes, models.Change{
			ChangeType:      models.ChangeTenantUpdated,
			EntityType:      models.EntityTenant,
			ExternalID:      extID,
			BeforeData:      before,
			AfterData:       after,
			RequiredActions: models.ActionList{models.ActionUpdateTenant},
			ImpactSummary:   fmt.Sprintf("Tenant %s fields changed: %s", rec.Name, fieldNames(after)),
		})
	}

	// Mapped internal tenants missing from the snapshot lose access.
	for intID, rec := range internal {
		extID, mapped := intToExt[intID]
		if !mapped {
			// Not FMS-managed; out of scope for this provider.
			continue
		}
		if _, present := external[extID]; present {
			continue
		}
		changes = append(changes, models.Change{
			ChangeType:      models.ChangeTenantRemoved,
			EntityType:      models.EntityTenant,
			ExternalID:      extID,
			BeforeData:      tenantFields(rec.Name, rec.Email, rec.UnitNumber, rec.IsActive),
			RequiredActions: models.ActionList{models.ActionRevokeAccess, models.ActionDeactivateUser},
			ImpactSummary:   fmt.Sprintf("Tenant %s loses access to unit %s; account is deactivated only if no active assignments remain elsewhere", rec.Name, rec.UnitNumber),
		})
	}

	return changes
}

func diffUnits(in Input, extToInt, intToExt map[string]string) []models.Change {
	external := make(map[string]models.ExternalEntity)
	for _, e := range in.External.Units {
		if e.ExternalID == "" {
			continue
		}
		if _, dup := external[e.ExternalID]; !dup {
			external[e.ExternalID] = e
		}
	}

	internal := make(map[string]InternalUnit, len(in.Internal.Units))
	for _, u := range in.Internal.Units {
		internal[u.UnitID] = u
	}

	var changes []models.Change

	for extID, ext := range external {
		intID, mapped := extToInt[extID]
		rec, present := internal[intID]
		if !mapped || !present {
			actions := models.ActionList{models.ActionCreateUnit}
			if !mapped {
				actions = append(models.ActionList{models.ActionCreateMapping}, actions...)
			}
			changes = append(changes, models.Change{
				ChangeType:      models.ChangeUnitAdded,
				EntityType:      models.EntityUnit,
				ExternalID:      extID,
				AfterData:       unitFields(ext.UnitNumber, ext.Status, ext.RentAmount),
				RequiredActions: actions,
				ImpactSummary:   fmt.Sprintf("Unit %s will be created (status %s)", ext.UnitNumber, ext.Status),
			})
			continue
		}

		before, after := changedUnitFields(rec, ext)
		if len(after) == 0 {
			continue
		}
		changes = append(changes, models.Change{
			ChangeType:      models.ChangeUnitUpdated,
			EntityType:      models.EntityUnit,
			ExternalID:      extID,
			BeforeData:      before,
			AfterData:       after,
			RequiredActions: models.ActionList{models.ActionUpdateUnit},
			ImpactSummary:   fmt.Sprintf("Unit %s fields changed: %s", rec.UnitNumber, fieldNames(after)),
		})
	}

	for intID, rec := range internal {
		extID, mapped := intToExt[intID]
		if !mapped {
			continue
		}
		if _, present := external[extID]; present {
			continue
		}
		if rec.Status == models.UnitRetired {
			// Retirement already applied; the diff must converge to empty
			// on the next run against the same snapshot.
			continue
		}
		changes = append(changes, models.Change{
			ChangeType:      models.ChangeUnitRemoved,
			EntityType:      models.EntityUnit,
			ExternalID:      extID,
			BeforeData:      unitFields(rec.UnitNumber, string(rec.Status), rec.RentAmount),
			RequiredActions: models.ActionList{models.ActionRetireUnit},
			ImpactSummary:   fmt.Sprintf("Unit %s will be retired", rec.UnitNumber),
		})
	}

	return changes
}

// Fixed comparable field set for tenants: name, email, unit_number.
// is_active is handled by roster presence, not field comparison.
func changedTenantFields(rec InternalTenant, ext models.ExternalEntity) (models.JSONMap, models.JSONMap) {
	before := models.JSONMap{}
	after := models.JSONMap{}

	if ext.Name != "" && ext.Name != rec.Name {
		before["name"], after["name"] = rec.Name, ext.Name
	}
	if ext.Email != "" && !strings.EqualFold(ext.Email, rec.Email) {
		before["email"], after["email"] = rec.Email, ext.Email
	}
	if ext.UnitNumber != "" && ext.UnitNumber != rec.UnitNumber {
		before["unit_number"], after["unit_number"] = rec.UnitNumber, ext.UnitNumber
	}

	if len(after) == 0 {
		return nil, nil
	}
	return before, after
}

// Fixed comparable field set for units: status, rent_amount, unit_number.
func changedUnitFields(rec InternalUnit, ext models.ExternalEntity) (models.JSONMap, models.JSONMap) {
	before := models.JSONMap{}
	after := models.JSONMap{}

	if ext.Status != "" && ext.Status != string(rec.Status) {
		before["status"], after["status"] = string(rec.Status), ext.Status
	}
	if ext.RentAmount != rec.RentAmount {
		before["rent_amount"], after["rent_amount"] = rec.RentAmount, ext.RentAmount
	}
	if ext.UnitNumber != "" && ext.UnitNumber != rec.UnitNumber {
		before["unit_number"], after["unit_number"] = rec.UnitNumber, ext.UnitNumber
	}

	if len(after) == 0 {
		return nil, nil
	}
	return before, after
}

func tenantFields(name, email, unitNumber string, active bool) models.JSONMap {
	return models.JSONMap{
		"name":        name,
		"email":       email,
		"unit_number": unitNumber,
		"is_active":   active,
	}
}

func unitFields(unitNumber, status string, rent float64) models.JSONMap {
	return models.JSONMap{
		"unit_number": unitNumber,
		"status":      status,
		"rent_amount": rent,
	}
}

func fieldNames(m models.JSONMap) string {
	names := make([]string, 0, len(m))
	for k := range m {
		names = append(names, k)
	}
	sort.Strings(names)
	return strings.Join(names, ", ")
}
