package diff

import (
	"testing"

	"github.com/skatamatic/blulok-cloud-sub001/feature/fms/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mapping(entity models.EntityType, extID, intID string) models.EntityMapping {
	return models.EntityMapping{
		FacilityID:   "fac-a",
		EntityType:   entity,
		ProviderType: models.ProviderREST,
		ExternalID:   extID,
		InternalID:   intID,
	}
}

func baseInput() Input {
	return Input{
		FacilityID:   "fac-a",
		ProviderType: models.ProviderREST,
		External: &models.Snapshot{
			Tenants: []models.ExternalEntity{
				{ExternalID: "ext-t1", Type: models.EntityTenant, Name: "Alice", Email: "alice@example.com", UnitNumber: "101", IsActive: true},
			},
			Units: []models.ExternalEntity{
				{ExternalID: "ext-u1", Type: models.EntityUnit, UnitNumber: "101", Status: "occupied", RentAmount: 120},
			},
		},
		Internal: InternalState{
			Tenants: []InternalTenant{
				{UserID: "user-1", Name: "Alice", Email: "alice@example.com", IsActive: true, UnitNumber: "101"},
			},
			Units: []InternalUnit{
				{UnitID: "unit-1", UnitNumber: "101", Status: models.UnitOccupied, RentAmount: 120},
			},
		},
		Mappings: []models.EntityMapping{
			mapping(models.EntityTenant, "ext-t1", "user-1"),
			mapping(models.EntityUnit, "ext-u1", "unit-1"),
		},
	}
}

func TestCompute_NoDifferences(t *testing.T) {
	changes := Compute(baseInput())
	assert.Empty(t, changes)
}

func TestCompute_Idempotent(t *testing.T) {
	in := baseInput()
	in.External.Tenants[0].Email = "new@example.com"

	first := Compute(in)
	second := Compute(in)
	require.Len(t, first, 1)
	assert.Equal(t, first, second)
}

func TestCompute_UnmappedExternalIsAdded(t *testing.T) {
	in := baseInput()
	in.External.Tenants = append(in.External.Tenants, models.ExternalEntity{
		ExternalID: "ext-t2", Type: models.EntityTenant, Name: "Bob", Email: "bob@example.com", UnitNumber: "102", IsActive: true,
	})

	changes := Compute(in)
	require.Len(t, changes, 1)
	c := changes[0]
	assert.Equal(t, models.ChangeTenantAdded, c.ChangeType)
	assert.Equal(t, "ext-t2", c.ExternalID)
	assert.True(t, c.RequiredActions.Contains(models.ActionCreateMapping))
	assert.True(t, c.RequiredActions.Contains(models.ActionCreateUser))
	assert.True(t, c.RequiredActions.AnySecuritySensitive())
	assert.Equal(t, "Bob", c.AfterData["name"])
	assert.Nil(t, c.BeforeData)
}

func TestCompute_MappedInternalMissingIsRemoved(t *testing.T) {
	in := baseInput()
	in.External.Tenants = nil

	changes := Compute(in)
	require.Len(t, changes, 1)
	c := changes[0]
	assert.Equal(t, models.ChangeTenantRemoved, c.ChangeType)
	assert.Equal(t, "ext-t1", c.ExternalID)
	assert.True(t, c.RequiredActions.Contains(models.ActionRevokeAccess))
	assert.True(t, c.RequiredActions.Contains(models.ActionDeactivateUser))
	assert.Equal(t, "Alice", c.BeforeData["name"])
}

func TestCompute_InactiveExternalTenantTreatedAsRemoved(t *testing.T) {
	in := baseInput()
	in.External.Tenants[0].IsActive = false

	changes := Compute(in)
	require.Len(t, changes, 1)
	assert.Equal(t, models.ChangeTenantRemoved, changes[0].ChangeType)
}

func TestCompute_RetiredUnitNotRemovedAgain(t *testing.T) {
	// After a unit_removed change applies, the unit row stays behind as
	// retired and its mapping survives. The next run against the same
	// snapshot must not propose the removal a second time.
	in := baseInput()
	in.External.Units = nil
	in.Internal.Units[0].Status = models.UnitRetired

	changes := Compute(in)
	assert.Empty(t, changes)
}

func TestCompute_UpdatedCapturesOnlyChangedFields(t *testing.T) {
	in := baseInput()
	in.External.Units[0].RentAmount = 150
	in.External.Units[0].Status = "available"

	changes := Compute(in)
	require.Len(t, changes, 1)
	c := changes[0]
	assert.Equal(t, models.ChangeUnitUpdated, c.ChangeType)
	assert.Equal(t, models.JSONMap{"rent_amount": 150.0, "status": "available"}, c.AfterData)
	assert.Equal(t, models.JSONMap{"rent_amount": 120.0, "status": "occupied"}, c.BeforeData)
	assert.NotContains(t, c.AfterData, "unit_number")
}

func TestCompute_UnmappedInternalIsIgnored(t *testing.T) {
	in := baseInput()
	// A tenant managed outside this FMS integration must never produce a
	// removal just because the provider doesn't know about them.
	in.Internal.Tenants = append(in.Internal.Tenants, InternalTenant{
		UserID: "user-9", Name: "Walkin", Email: "walkin@example.com", IsActive: true, UnitNumber: "199",
	})

	changes := Compute(in)
	assert.Empty(t, changes)
}

func TestCompute_OtherProviderMappingsIgnored(t *testing.T) {
	in := baseInput()
	for i := range in.Mappings {
		in.Mappings[i].ProviderType = models.ProviderSimulated
	}

	changes := Compute(in)
	// With no usable mappings everything external is "added"; internal
	// rows have no reverse mapping so nothing is "removed".
	require.Len(t, changes, 2)
	for _, c := range changes {
		assert.Contains(t, string(c.ChangeType), "added")
	}
}

func TestCompute_DeterministicOrdering(t *testing.T) {
	in := baseInput()
	in.External.Tenants = append(in.External.Tenants, models.ExternalEntity{
		ExternalID: "ext-t3", Type: models.EntityTenant, Name: "Cara", Email: "cara@example.com", UnitNumber: "103", IsActive: true,
	}, models.ExternalEntity{
		ExternalID: "ext-t2", Type: models.EntityTenant, Name: "Bob", Email: "bob@example.com", UnitNumber: "102", IsActive: true,
	})
	in.External.Units = append(in.External.Units, models.ExternalEntity{
		ExternalID: "ext-u3", Type: models.EntityUnit, UnitNumber: "103", Status: "available",
	}, models.ExternalEntity{
		ExternalID: "ext-u2", Type: models.EntityUnit, UnitNumber: "102", Status: "available",
	})

	first := Compute(in)

	// Reverse the adapter result ordering; output must be identical.
	rev := baseInput()
	rev.External.Tenants = []models.ExternalEntity{in.External.Tenants[2], in.External.Tenants[1], in.External.Tenants[0]}
	rev.External.Units = []models.ExternalEntity{in.External.Units[2], in.External.Units[1], in.External.Units[0]}
	second := Compute(rev)

	assert.Equal(t, first, second)

	require.Len(t, first, 4)
	assert.Equal(t, "ext-t2", first[0].ExternalID)
	assert.Equal(t, "ext-t3", first[1].ExternalID)
	assert.Equal(t, "ext-u2", first[2].ExternalID)
	assert.Equal(t, "ext-u3", first[3].ExternalID)
}

func TestCompute_DuplicateExternalIDsCollapse(t *testing.T) {
	in := baseInput()
	in.External.Units = append(in.External.Units, in.External.Units[0])

	changes := Compute(in)
	assert.Empty(t, changes)
}
