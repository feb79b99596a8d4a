package apply

import (
	"context"
	"time"

	"github.com/skatamatic/blulok-cloud-sub001/feature/fms/models"
)

// Store is the persistence contract the apply engine depends on. It is
// injected at construction; the engine never reaches for a global handle.
// All reads and writes for one change happen inside a single InTx call.
type Store interface {
	// InTx runs fn inside one database transaction.
	InTx(ctx context.Context, fn func(tx Store) error) error

	// GetChangeForUpdate loads a change with a row lock so a concurrent
	// review or apply cannot interleave with this transaction.
	GetChangeForUpdate(ctx context.Context, changeID string) (*models.Change, error)
	// MarkChangeApplied stamps applied_at; it fails if already stamped.
	MarkChangeApplied(ctx context.Context, changeID string, at time.Time) error

	// ResolveMapping looks up the internal id for an external entity.
	// Returns apperr.NotFoundError when no mapping exists.
	ResolveMapping(ctx context.Context, facilityID string, entityType models.EntityType, providerType models.ProviderType, externalID string) (*models.EntityMapping, error)
	// CreateMapping inserts a new mapping. Returns apperr.ConflictError on
	// a duplicate key; the unique constraint is the concurrency guard
	// against double-creating from concurrent applies.
	CreateMapping(ctx context.Context, m *models.EntityMapping) error

	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	CreateUser(ctx context.Context, u *models.User) error
	UpdateUser(ctx context.Context, id string, fields map[string]any) error
	SetUserActive(ctx context.Context, id string, active bool) error
	// CountActiveAssignments counts the user's assignments across ALL
	// facilities; the deactivation rule hinges on it.
	CountActiveAssignments(ctx context.Context, userID string) (int64, error)

	GetAssignment(ctx context.Context, facilityID, userID string) (*models.UnitAssignment, error)
	CreateAssignment(ctx context.Context, a *models.UnitAssignment) error
	DeleteAssignment(ctx context.Context, id string) error

	GetUnitByID(ctx context.Context, id string) (*models.Unit, error)
	GetUnitByNumber(ctx context.Context, facilityID, unitNumber string) (*models.Unit, error)
	CreateUnit(ctx context.Context, u *models.Unit) error
	UpdateUnit(ctx context.Context, id string, fields map[string]any) error
}
