package auth

// Role is the RBAC role of an authenticated actor. Roles are verified
// upstream by the auth gateway; this package only interprets them.
type Role string

const (
	// RoleAdmin is a global administrator with access to every facility.
	RoleAdmin Role = "admin"
	// RoleDevAdmin is a global developer/operations administrator.
	RoleDevAdmin Role = "dev_admin"
	// RoleFacilityAdmin administers a specific set of facilities.
	RoleFacilityAdmin Role = "facility_admin"
	// RoleTenant is a regular tenant with no sync privileges.
	RoleTenant Role = "tenant"
)

// Actor is the authenticated caller of an FMS operation, as established by
// the authentication middleware.
type Actor struct {
	// ID is the caller's user id.
	ID string
	// Role is the caller's verified role.
	Role Role
	// FacilityIDs is the set of facilities a facility-scoped role may act on.
	// Ignored for global admin roles.
	FacilityIDs []string
}

// IsGlobalAdmin reports whether the actor bypasses facility ownership checks.
func (a Actor) IsGlobalAdmin() bool {
	return a.Role == RoleAdmin || a.Role == RoleDevAdmin
}

// CanManageFMS reports whether the actor's role permits facility-scoped
// admin actions at all.
func (a Actor) CanManageFMS() bool {
	switch a.Role {
	case RoleAdmin, RoleDevAdmin, RoleFacilityAdmin:
		return true
	default:
		return false
	}
}

// CanAccessFacility reports whether the actor may act on the given facility.
func (a Actor) CanAccessFacility(facilityID string) bool {
	if a.IsGlobalAdmin() {
		return true
	}
	for _, id := range a.FacilityIDs {
		if id == facilityID {
			return true
		}
	}
	return false
}
