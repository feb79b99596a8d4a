package repository

import (
	"context"
	"testing"
	"time"

	"github.com/skatamatic/blulok-cloud-sub001/core/apperr"
	"github.com/skatamatic/blulok-cloud-sub001/feature/fms/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

func setupMockDB(t *testing.T) (*Store, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("Failed to open mock sql db: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	dialector := mysql.New(mysql.Config{
		Conn:                      db,
		SkipInitializeWithVersion: true,
	})

	gormDB, err := gorm.Open(dialector, &gorm.Config{})
	if err != nil {
		t.Fatalf("Failed to open gorm db: %v", err)
	}

	return New(gormDB), mock
}

func TestResolveMapping(t *testing.T) {
	store, mock := setupMockDB(t)

	rows := sqlmock.NewRows([]string{"id", "facility_id", "entity_type", "provider_type", "external_id", "internal_id"}).
		AddRow("map-1", "fac-1", "tenant", "rest", "ext-1", "user-1")
	mock.ExpectQuery("SELECT \\* FROM `fms_entity_mappings`").WillReturnRows(rows)

	mapping, err := store.ResolveMapping(context.Background(), "fac-1", models.EntityTenant, models.ProviderREST, "ext-1")
	require.NoError(t, err)
	assert.Equal(t, "user-1", mapping.InternalID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestResolveMapping_NotFound(t *testing.T) {
	store, mock := setupMockDB(t)

	mock.ExpectQuery("SELECT \\* FROM `fms_entity_mappings`").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := store.ResolveMapping(context.Background(), "fac-1", models.EntityTenant, models.ProviderREST, "ghost")
	assert.True(t, apperr.IsNotFound(err))
}

func TestCreateMapping_Duplicate(t *testing.T) {
	store, mock := setupMockDB(t)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO `fms_entity_mappings`").
		WillReturnError(&mysqlDuplicateErr{})
	mock.ExpectRollback()

	err := store.CreateMapping(context.Background(), &models.EntityMapping{
		ID:           "map-1",
		FacilityID:   "fac-1",
		EntityType:   models.EntityTenant,
		ProviderType: models.ProviderREST,
		ExternalID:   "ext-1",
		InternalID:   "user-1",
	})
	assert.True(t, apperr.IsConflict(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

// mysqlDuplicateErr mimics the raw driver's unique violation message.
type mysqlDuplicateErr struct{}

func (*mysqlDuplicateErr) Error() string {
	return "Error 1062 (23000): Duplicate entry 'fac-1-tenant-rest-ext-1' for key 'ux_mapping_key'"
}

func TestBeginSyncLog_RunConflict(t *testing.T) {
	store, mock := setupMockDB(t)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT count\\(\\*\\) FROM `fms_sync_logs`").
		WillReturnRows(sqlmock.NewRows([]string{"count(*)"}).AddRow(1))
	mock.ExpectRollback()

	err := store.BeginSyncLog(context.Background(), &models.SyncLog{
		ID:         "log-1",
		FacilityID: "fac-1",
		Status:     models.SyncRunning,
		StartedAt:  time.Now(),
	})
	assert.True(t, apperr.IsConflict(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBeginSyncLog_Starts(t *testing.T) {
	store, mock := setupMockDB(t)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT count\\(\\*\\) FROM `fms_sync_logs`").
		WillReturnRows(sqlmock.NewRows([]string{"count(*)"}).AddRow(0))
	mock.ExpectExec("INSERT INTO `fms_sync_logs`").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	err := store.BeginSyncLog(context.Background(), &models.SyncLog{
		ID:         "log-1",
		FacilityID: "fac-1",
		Status:     models.SyncRunning,
		StartedAt:  time.Now(),
	})
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMarkSyncCompleted_AlreadyFinalized(t *testing.T) {
	store, mock := setupMockDB(t)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE `fms_sync_logs`").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	err := store.MarkSyncCompleted(context.Background(), "log-1", time.Now(), 3, 3, true)
	assert.True(t, apperr.IsConflict(err), "finalizing twice must fail")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMarkSyncFailed(t *testing.T) {
	store, mock := setupMockDB(t)

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE `fms_sync_logs`").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := store.MarkSyncFailed(context.Background(), "log-1", time.Now(), "provider timeout")
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReviewChange_RecordsDecision(t *testing.T) {
	store, mock := setupMockDB(t)

	rows := sqlmock.NewRows([]string{"id", "sync_log_id", "is_reviewed", "review_decision"}).
		AddRow("c-1", "log-1", false, "pending")
	mock.ExpectBegin()
	mock.ExpectQuery("SELECT \\* FROM `fms_changes` .* FOR UPDATE").WillReturnRows(rows)
	mock.ExpectExec("UPDATE `fms_changes`").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	change, err := store.ReviewChange(context.Background(), "c-1", models.DecisionAccepted, "admin-1", time.Now())
	require.NoError(t, err)
	assert.True(t, change.IsReviewed)
	assert.Equal(t, models.DecisionAccepted, change.Decision)
	assert.Equal(t, "admin-1", change.ReviewedBy)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReviewChange_IdempotentOnReviewed(t *testing.T) {
	store, mock := setupMockDB(t)

	reviewedAt := time.Now().Add(-time.Hour)
	rows := sqlmock.NewRows([]string{"id", "sync_log_id", "is_reviewed", "review_decision", "reviewed_by", "reviewed_at"}).
		AddRow("c-1", "log-1", true, "rejected", "admin-0", reviewedAt)
	mock.ExpectBegin()
	mock.ExpectQuery("SELECT \\* FROM `fms_changes` .* FOR UPDATE").WillReturnRows(rows)
	mock.ExpectCommit()

	// A second review with a different decision returns the stored one
	// and never writes.
	change, err := store.ReviewChange(context.Background(), "c-1", models.DecisionAccepted, "admin-1", time.Now())
	require.NoError(t, err)
	assert.Equal(t, models.DecisionRejected, change.Decision)
	assert.Equal(t, "admin-0", change.ReviewedBy)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetPendingChanges(t *testing.T) {
	store, mock := setupMockDB(t)

	rows := sqlmock.NewRows([]string{"id", "sync_log_id", "change_type", "entity_type", "external_id", "is_reviewed"}).
		AddRow("c-1", "log-1", "tenant_added", "tenant", "ext-1", false).
		AddRow("c-2", "log-1", "unit_added", "unit", "ext-u1", false)
	mock.ExpectQuery("SELECT \\* FROM `fms_changes`").WillReturnRows(rows)

	changes, err := store.GetPendingChanges(context.Background(), "log-1")
	require.NoError(t, err)
	assert.Len(t, changes, 2)
	assert.Equal(t, models.ChangeTenantAdded, changes[0].ChangeType)
}

func TestCountActiveAssignments(t *testing.T) {
	store, mock := setupMockDB(t)

	mock.ExpectQuery("SELECT count\\(\\*\\) FROM `unit_assignments`").
		WillReturnRows(sqlmock.NewRows([]string{"count(*)"}).AddRow(2))

	count, err := store.CountActiveAssignments(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}

func TestLoadInternalState(t *testing.T) {
	store, mock := setupMockDB(t)

	tenantRows := sqlmock.NewRows([]string{"user_id", "name", "email", "is_active", "unit_number"}).
		AddRow("user-1", "Alice", "alice@example.com", true, "101")
	mock.ExpectQuery("SELECT users.id AS user_id.* FROM `unit_assignments`").WillReturnRows(tenantRows)

	unitRows := sqlmock.NewRows([]string{"id", "facility_id", "unit_number", "status", "rent_amount"}).
		AddRow("unit-1", "fac-1", "101", "occupied", 120.0)
	mock.ExpectQuery("SELECT \\* FROM `units`").WillReturnRows(unitRows)

	state, err := store.LoadInternalState(context.Background(), "fac-1")
	require.NoError(t, err)
	require.Len(t, state.Tenants, 1)
	require.Len(t, state.Units, 1)
	assert.Equal(t, "alice@example.com", state.Tenants[0].Email)
	assert.Equal(t, "101", state.Tenants[0].UnitNumber)
	assert.Equal(t, 120.0, state.Units[0].RentAmount)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSaveFMSConfig_Upsert(t *testing.T) {
	store, mock := setupMockDB(t)

	existing := sqlmock.NewRows([]string{"id", "facility_id", "provider_type", "is_enabled"}).
		AddRow("cfg-1", "fac-1", "simulated", true)
	mock.ExpectBegin()
	mock.ExpectQuery("SELECT \\* FROM `fms_configs`").WillReturnRows(existing)
	mock.ExpectExec("UPDATE `fms_configs`").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	config := &models.FMSConfig{
		FacilityID:   "fac-1",
		ProviderType: models.ProviderREST,
		IsEnabled:    true,
		Config:       models.JSONMap{"base_url": "https://fms.example.com"},
	}
	err := store.SaveFMSConfig(context.Background(), config)
	require.NoError(t, err)
	assert.Equal(t, "cfg-1", config.ID, "upsert keeps the existing row id")
	assert.NoError(t, mock.ExpectationsWereMet())
}
