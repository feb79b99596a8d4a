package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// ProviderType identifies which FMS provider adapter a facility uses.
// The set is closed; adapters are selected by this discriminant.
type ProviderType string

const (
	// ProviderSimulated is the deterministic in-process provider used for
	// demos and tests.
	ProviderSimulated ProviderType = "simulated"
	// ProviderREST is the generic JSON-over-HTTP provider.
	ProviderREST ProviderType = "rest"
)

// Valid reports whether the provider type is one of the closed set.
func (p ProviderType) Valid() bool {
	switch p {
	case ProviderSimulated, ProviderREST:
		return true
	default:
		return false
	}
}

// EntityType distinguishes tenants from units in mappings and changes.
type EntityType string

const (
	EntityTenant EntityType = "tenant"
	EntityUnit   EntityType = "unit"
)

// ChangeType classifies a detected difference.
type ChangeType string

const (
	ChangeTenantAdded   ChangeType = "tenant_added"
	ChangeTenantRemoved ChangeType = "tenant_removed"
	ChangeTenantUpdated ChangeType = "tenant_updated"
	ChangeUnitAdded     ChangeType = "unit_added"
	ChangeUnitRemoved   ChangeType = "unit_removed"
	ChangeUnitUpdated   ChangeType = "unit_updated"
)

// SyncStatus is the lifecycle state of a sync run.
type SyncStatus string

const (
	SyncRunning   SyncStatus = "running"
	SyncCompleted SyncStatus = "completed"
	SyncFailed    SyncStatus = "failed"
)

// TriggerSource records what started a sync run.
type TriggerSource string

const (
	TriggerManual    TriggerSource = "manual"
	TriggerScheduled TriggerSource = "scheduled"
)

// ReviewDecision is the terminal outcome of reviewing a change.
type ReviewDecision string

const (
	DecisionPending  ReviewDecision = "pending"
	DecisionAccepted ReviewDecision = "accepted"
	DecisionRejected ReviewDecision = "rejected"
)

// RequiredAction is a mutation intent attached to a change by the diff
// engine and executed by the apply engine.
type RequiredAction string

const (
	ActionCreateMapping  RequiredAction = "create_mapping"
	ActionCreateUser     RequiredAction = "create_or_match_user"
	ActionGrantAccess    RequiredAction = "grant_access"
	ActionRevokeAccess   RequiredAction = "revoke_access"
	ActionDeactivateUser RequiredAction = "deactivate_user_if_orphaned"
	ActionUpdateTenant   RequiredAction = "update_tenant"
	ActionCreateUnit     RequiredAction = "create_unit"
	ActionRetireUnit     RequiredAction = "retire_unit"
	ActionUpdateUnit     RequiredAction = "update_unit"
)

// SecuritySensitive reports whether this action affects identity or access
// and therefore forces human review of the whole run.
func (a RequiredAction) SecuritySensitive() bool {
	switch a {
	case ActionCreateUser, ActionRevokeAccess, ActionDeactivateUser:
		return true
	default:
		return false
	}
}

// JSONMap is a map stored as a JSON column.
type JSONMap map[string]any

// Value implements driver.Valuer.
func (m JSONMap) Value() (driver.Value, error) {
	if m == nil {
		return nil, nil
	}
	return json.Marshal(m)
}

// Scan implements sql.Scanner.
func (m *JSONMap) Scan(value any) error {
	if value == nil {
		*m = nil
		return nil
	}
	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported type for JSONMap: %T", value)
	}
	return json.Unmarshal(data, m)
}

// ActionList is an ordered list of required actions stored as a JSON column.
type ActionList []RequiredAction

// Value implements driver.Valuer.
func (l ActionList) Value() (driver.Value, error) {
	if l == nil {
		return nil, nil
	}
	return json.Marshal(l)
}

// Scan implements sql.Scanner.
func (l *ActionList) Scan(value any) error {
	if value == nil {
		*l = nil
		return nil
	}
	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported type for ActionList: %T", value)
	}
	return json.Unmarshal(data, l)
}

// Contains reports whether the list includes the given action.
func (l ActionList) Contains(action RequiredAction) bool {
	for _, a := range l {
		if a == action {
			return true
		}
	}
	return false
}

// AnySecuritySensitive reports whether any action in the list requires review.
func (l ActionList) AnySecuritySensitive() bool {
	for _, a := range l {
		if a.SecuritySensitive() {
			return true
		}
	}
	return false
}

// FMSConfig holds a facility's provider settings.
type FMSConfig struct {
	ID           string       `gorm:"column:id;primaryKey" json:"id"`
	FacilityID   string       `gorm:"column:facility_id;uniqueIndex" json:"facility_id"`
	ProviderType ProviderType `gorm:"column:provider_type" json:"provider_type"`
	IsEnabled    bool         `gorm:"column:is_enabled" json:"is_enabled"`
	// Config is the opaque provider-specific configuration (endpoint,
	// credentials reference, etc).
	Config    JSONMap   `gorm:"column:config;type:json" json:"config"`
	CreatedAt time.Time `gorm:"column:created_at" json:"created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at" json:"updated_at"`
}

// TableName overrides the table name.
func (FMSConfig) TableName() string {
	return "fms_configs"
}

// SyncLog is the append-only record of one sync run. It is finalized
// exactly once and immutable thereafter.
type SyncLog struct {
	ID              string        `gorm:"column:id;primaryKey" json:"id"`
	FacilityID      string        `gorm:"column:facility_id;index" json:"facility_id"`
	FMSConfigID     string        `gorm:"column:fms_config_id" json:"fms_config_id"`
	Status          SyncStatus    `gorm:"column:sync_status" json:"sync_status"`
	StartedAt       time.Time     `gorm:"column:started_at" json:"started_at"`
	CompletedAt     *time.Time    `gorm:"column:completed_at" json:"completed_at,omitempty"`
	TriggeredBy     TriggerSource `gorm:"column:triggered_by" json:"triggered_by"`
	TriggeredByUser string        `gorm:"column:triggered_by_user" json:"triggered_by_user"`
	ChangesDetected int           `gorm:"column:changes_detected" json:"changes_detected"`
	ChangesApplied  int           `gorm:"column:changes_applied" json:"changes_applied"`
	ChangesPending  int           `gorm:"column:changes_pending" json:"changes_pending"`
	ChangesRejected int           `gorm:"column:changes_rejected" json:"changes_rejected"`
	RequiresReview  bool          `gorm:"column:requires_review" json:"requires_review"`
	ErrorMessage    string        `gorm:"column:error_message" json:"error_message,omitempty"`
}

// TableName overrides the table name.
func (SyncLog) TableName() string {
	return "fms_sync_logs"
}

// Finalized reports whether the run has reached a terminal status.
func (l *SyncLog) Finalized() bool {
	return l.Status == SyncCompleted || l.Status == SyncFailed
}

// Change is one detected difference between the external snapshot and
// internal state, pending human review. The owning facility is inherited
// from the sync log.
type Change struct {
	ID         string     `gorm:"column:id;primaryKey" json:"id"`
	SyncLogID  string     `gorm:"column:sync_log_id;index" json:"sync_log_id"`
	ChangeType ChangeType `gorm:"column:change_type" json:"change_type"`
	EntityType EntityType `gorm:"column:entity_type" json:"entity_type"`
	ExternalID string     `gorm:"column:external_id" json:"external_id"`
	// BeforeData and AfterData capture only the fields that differ.
	BeforeData      JSONMap        `gorm:"column:before_data;type:json" json:"before_data,omitempty"`
	AfterData       JSONMap        `gorm:"column:after_data;type:json" json:"after_data,omitempty"`
	RequiredActions ActionList     `gorm:"column:required_actions;type:json" json:"required_actions"`
	ImpactSummary   string         `gorm:"column:impact_summary" json:"impact_summary"`
	IsReviewed      bool           `gorm:"column:is_reviewed" json:"is_reviewed"`
	Decision        ReviewDecision `gorm:"column:review_decision" json:"review_decision"`
	ReviewedBy      string         `gorm:"column:reviewed_by" json:"reviewed_by,omitempty"`
	ReviewedAt      *time.Time     `gorm:"column:reviewed_at" json:"reviewed_at,omitempty"`
	AppliedAt       *time.Time     `gorm:"column:applied_at" json:"applied_at,omitempty"`
	CreatedAt       time.Time      `gorm:"column:created_at" json:"created_at"`
}

// TableName overrides the table name.
func (Change) TableName() string {
	return "fms_changes"
}

// Applied reports whether the change has already been applied.
func (c *Change) Applied() bool {
	return c.AppliedAt != nil
}

// Applicable reports whether the change may be applied now.
func (c *Change) Applicable() bool {
	return c.IsReviewed && c.Decision == DecisionAccepted && !c.Applied()
}

// EntityMapping is the durable association between an external system's
// identifier and an internal one. Identity is immutable: rows are created
// on first resolution and never updated.
type EntityMapping struct {
	ID           string       `gorm:"column:id;primaryKey" json:"id"`
	FacilityID   string       `gorm:"column:facility_id;uniqueIndex:ux_mapping_key" json:"facility_id"`
	EntityType   EntityType   `gorm:"column:entity_type;uniqueIndex:ux_mapping_key" json:"entity_type"`
	ProviderType ProviderType `gorm:"column:provider_type;uniqueIndex:ux_mapping_key" json:"provider_type"`
	ExternalID   string       `gorm:"column:external_id;uniqueIndex:ux_mapping_key" json:"external_id"`
	InternalID   string       `gorm:"column:internal_id;index" json:"internal_id"`
	CreatedAt    time.Time    `gorm:"column:created_at" json:"created_at"`
}

// TableName overrides the table name.
func (EntityMapping) TableName() string {
	return "fms_entity_mappings"
}

// User is an access-control account. Users are global; facility scoping
// happens through unit assignments.
type User struct {
	ID        string    `gorm:"column:id;primaryKey" json:"id"`
	Email     string    `gorm:"column:email;uniqueIndex" json:"email"`
	Name      string    `gorm:"column:name" json:"name"`
	IsActive  bool      `gorm:"column:is_active" json:"is_active"`
	CreatedAt time.Time `gorm:"column:created_at" json:"created_at"`
	UpdatedAt time.Time `gorm:"column:updated_at" json:"updated_at"`
}

// TableName overrides the table name.
func (User) TableName() string {
	return "users"
}

// UnitStatus is the lifecycle state of a storage unit.
type UnitStatus string

const (
	UnitAvailable UnitStatus = "available"
	UnitOccupied  UnitStatus = "occupied"
	UnitRetired   UnitStatus = "retired"
)

// Unit is a storage unit, always owned by exactly one facility.
type Unit struct {
	ID         string     `gorm:"column:id;primaryKey" json:"id"`
	FacilityID string     `gorm:"column:facility_id;index" json:"facility_id"`
	UnitNumber string     `gorm:"column:unit_number" json:"unit_number"`
	Status     UnitStatus `gorm:"column:status" json:"status"`
	RentAmount float64    `gorm:"column:rent_amount" json:"rent_amount"`
	CreatedAt  time.Time  `gorm:"column:created_at" json:"created_at"`
	UpdatedAt  time.Time  `gorm:"column:updated_at" json:"updated_at"`
}

// TableName overrides the table name.
func (Unit) TableName() string {
	return "units"
}

// UnitAssignment links a tenant to a unit within one facility. FacilityID
// is denormalized from the unit so isolation checks never need a join.
type UnitAssignment struct {
	ID         string    `gorm:"column:id;primaryKey" json:"id"`
	UnitID     string    `gorm:"column:unit_id;index" json:"unit_id"`
	UserID     string    `gorm:"column:user_id;index" json:"user_id"`
	FacilityID string    `gorm:"column:facility_id;index" json:"facility_id"`
	CreatedAt  time.Time `gorm:"column:created_at" json:"created_at"`
}

// TableName overrides the table name.
func (UnitAssignment) TableName() string {
	return "unit_assignments"
}

// ExternalEntity is the canonical shape every provider adapter normalizes
// tenant and unit records into.
type ExternalEntity struct {
	// ExternalID is the provider-defined identifier.
	ExternalID string     `json:"external_id"`
	Type       EntityType `json:"entity_type"`
	Name       string     `json:"name,omitempty"`
	Email      string     `json:"email,omitempty"`
	UnitNumber string     `json:"unit_number,omitempty"`
	Status     string     `json:"status,omitempty"`
	RentAmount float64    `json:"rent_amount,omitempty"`
	IsActive   bool       `json:"is_active"`
	MoveInDate *time.Time `json:"move_in_date,omitempty"`
	MoveOutAt  *time.Time `json:"move_out_date,omitempty"`
}

// Snapshot is a provider's full current view of one facility.
type Snapshot struct {
	Tenants []ExternalEntity `json:"tenants"`
	Units   []ExternalEntity `json:"units"`
}
