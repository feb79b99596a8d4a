package fms

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/skatamatic/blulok-cloud-sub001/core/middleware/actor"
	"github.com/skatamatic/blulok-cloud-sub001/feature/fms/apply"
	"github.com/skatamatic/blulok-cloud-sub001/feature/fms/models"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestApp(store *fakeStore, fetcher *fakeFetcher, applier *fakeApplier) *fiber.App {
	app := fiber.New()
	app.Use(actor.New())
	svc := newTestService(store, fetcher, applier, nil)
	NewHandler(svc).RegisterRoutes(app)
	return app
}

func doRequest(t *testing.T, app *fiber.App, method, target, body string, headers map[string]string) (int, []byte) {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var raw json.RawMessage
	_ = json.NewDecoder(resp.Body).Decode(&raw)
	return resp.StatusCode, raw
}

var adminHeaders = map[string]string{
	actor.HeaderActorID:   "admin-1",
	actor.HeaderActorRole: "admin",
}

func facilityHeaders(facilities string) map[string]string {
	return map[string]string{
		actor.HeaderActorID:         "fadmin-1",
		actor.HeaderActorRole:       "facility_admin",
		actor.HeaderActorFacilities: facilities,
	}
}

func TestHandleTriggerSync(t *testing.T) {
	store := newFakeStore()
	seedConfig(store, "fac-1")
	fetcher := &fakeFetcher{snapshot: &models.Snapshot{
		Tenants: []models.ExternalEntity{
			{ExternalID: "ext-t1", Type: models.EntityTenant, Name: "Alice", Email: "alice@example.com", UnitNumber: "101", IsActive: true},
		},
	}}
	app := setupTestApp(store, fetcher, &fakeApplier{})

	status, body := doRequest(t, app, "POST", "/fms/facilities/fac-1/sync", "", adminHeaders)
	assert.Equal(t, 200, status)

	var log models.SyncLog
	require.NoError(t, json.Unmarshal(body, &log))
	assert.Equal(t, "fac-1", log.FacilityID)
	assert.Equal(t, models.SyncCompleted, log.Status)
	assert.Equal(t, 1, log.ChangesDetected)
}

func TestHandleTriggerSync_NoActor(t *testing.T) {
	app := setupTestApp(newFakeStore(), &fakeFetcher{}, &fakeApplier{})

	status, _ := doRequest(t, app, "POST", "/fms/facilities/fac-1/sync", "", nil)
	assert.Equal(t, 401, status)
}

func TestHandleTriggerSync_CrossFacilityHidden(t *testing.T) {
	store := newFakeStore()
	seedConfig(store, "fac-1")
	app := setupTestApp(store, &fakeFetcher{snapshot: &models.Snapshot{}}, &fakeApplier{})

	status, _ := doRequest(t, app, "POST", "/fms/facilities/fac-1/sync", "", facilityHeaders("fac-2"))
	assert.Equal(t, 404, status, "foreign facility must look nonexistent")
}

func TestHandleTriggerSync_TenantForbidden(t *testing.T) {
	store := newFakeStore()
	seedConfig(store, "fac-1")
	app := setupTestApp(store, &fakeFetcher{snapshot: &models.Snapshot{}}, &fakeApplier{})

	status, _ := doRequest(t, app, "POST", "/fms/facilities/fac-1/sync", "", map[string]string{
		actor.HeaderActorID:   "t-1",
		actor.HeaderActorRole: "tenant",
	})
	assert.Equal(t, 403, status)
}

func TestHandleTriggerSync_Conflict(t *testing.T) {
	store := newFakeStore()
	seedConfig(store, "fac-1")
	store.logs["log-0"] = &models.SyncLog{ID: "log-0", FacilityID: "fac-1", Status: models.SyncRunning}
	app := setupTestApp(store, &fakeFetcher{snapshot: &models.Snapshot{}}, &fakeApplier{})

	status, _ := doRequest(t, app, "POST", "/fms/facilities/fac-1/sync", "", adminHeaders)
	assert.Equal(t, 409, status)
}

func TestHandleTriggerSync_ProviderFailure(t *testing.T) {
	store := newFakeStore()
	seedConfig(store, "fac-1")
	app := setupTestApp(store, &fakeFetcher{err: assert.AnError}, &fakeApplier{})

	status, _ := doRequest(t, app, "POST", "/fms/facilities/fac-1/sync", "", adminHeaders)
	assert.Equal(t, 502, status)
}

func TestHandleReviewChange(t *testing.T) {
	store := newFakeStore()
	store.logs["log-1"] = &models.SyncLog{ID: "log-1", FacilityID: "fac-1", Status: models.SyncCompleted}
	store.changes["c-1"] = &models.Change{ID: "c-1", SyncLogID: "log-1"}
	app := setupTestApp(store, &fakeFetcher{}, &fakeApplier{})

	status, body := doRequest(t, app, "POST", "/fms/changes/c-1/review", `{"decision":"accepted"}`, adminHeaders)
	assert.Equal(t, 200, status)

	var change models.Change
	require.NoError(t, json.Unmarshal(body, &change))
	assert.True(t, change.IsReviewed)
	assert.Equal(t, models.DecisionAccepted, change.Decision)
}

func TestHandleReviewChange_BadDecision(t *testing.T) {
	store := newFakeStore()
	store.logs["log-1"] = &models.SyncLog{ID: "log-1", FacilityID: "fac-1", Status: models.SyncCompleted}
	store.changes["c-1"] = &models.Change{ID: "c-1", SyncLogID: "log-1"}
	app := setupTestApp(store, &fakeFetcher{}, &fakeApplier{})

	status, _ := doRequest(t, app, "POST", "/fms/changes/c-1/review", `{"decision":"maybe"}`, adminHeaders)
	assert.Equal(t, 400, status)
}

func TestHandleBulkReview(t *testing.T) {
	store := newFakeStore()
	store.logs["log-1"] = &models.SyncLog{ID: "log-1", FacilityID: "fac-1", Status: models.SyncCompleted}
	store.changes["c-1"] = &models.Change{ID: "c-1", SyncLogID: "log-1"}
	app := setupTestApp(store, &fakeFetcher{}, &fakeApplier{})

	status, body := doRequest(t, app, "POST", "/fms/changes/review",
		`{"sync_log_id":"log-1","change_ids":["c-1","missing"],"decision":"rejected"}`, adminHeaders)
	assert.Equal(t, 200, status)

	var results []ReviewResult
	require.NoError(t, json.Unmarshal(body, &results))
	require.Len(t, results, 2)
	assert.Empty(t, results[0].Error)
	assert.NotEmpty(t, results[1].Error)
}

func TestHandleBulkReview_MissingSyncLogID(t *testing.T) {
	app := setupTestApp(newFakeStore(), &fakeFetcher{}, &fakeApplier{})

	status, body := doRequest(t, app, "POST", "/fms/changes/review",
		`{"change_ids":["c-1"],"decision":"accepted"}`, adminHeaders)
	assert.Equal(t, 400, status)
	assert.Contains(t, string(body), "sync_log_id")
}

func TestHandleBulkReview_EmptyIDs(t *testing.T) {
	app := setupTestApp(newFakeStore(), &fakeFetcher{}, &fakeApplier{})

	status, _ := doRequest(t, app, "POST", "/fms/changes/review",
		`{"sync_log_id":"log-1","decision":"accepted"}`, adminHeaders)
	assert.Equal(t, 400, status)
}

func TestHandleApplyChanges(t *testing.T) {
	store := newFakeStore()
	seedConfig(store, "fac-1")
	store.logs["log-1"] = &models.SyncLog{ID: "log-1", FacilityID: "fac-1", Status: models.SyncCompleted}
	applier := &fakeApplier{result: &apply.Result{ChangesApplied: 1, AccessChanges: apply.AccessChanges{AccessGranted: 1}}}
	app := setupTestApp(store, &fakeFetcher{}, applier)

	status, body := doRequest(t, app, "POST", "/fms/sync/log-1/apply", `{"change_ids":["c-1"]}`, adminHeaders)
	assert.Equal(t, 200, status)

	var result apply.Result
	require.NoError(t, json.Unmarshal(body, &result))
	assert.Equal(t, 1, result.ChangesApplied)
	assert.Equal(t, 1, result.AccessChanges.AccessGranted)
}

func TestHandleApplyChanges_MissingIDs(t *testing.T) {
	store := newFakeStore()
	seedConfig(store, "fac-1")
	store.logs["log-1"] = &models.SyncLog{ID: "log-1", FacilityID: "fac-1", Status: models.SyncCompleted}
	app := setupTestApp(store, &fakeFetcher{}, &fakeApplier{})

	status, _ := doRequest(t, app, "POST", "/fms/sync/log-1/apply", `{}`, adminHeaders)
	assert.Equal(t, 400, status)
}

func TestHandleGetSyncLog_NotFound(t *testing.T) {
	app := setupTestApp(newFakeStore(), &fakeFetcher{}, &fakeApplier{})

	status, _ := doRequest(t, app, "GET", "/fms/sync/ghost", "", adminHeaders)
	assert.Equal(t, 404, status)
}

func TestHandleSaveAndGetConfig(t *testing.T) {
	store := newFakeStore()
	app := setupTestApp(store, &fakeFetcher{}, &fakeApplier{})

	status, _ := doRequest(t, app, "PUT", "/fms/facilities/fac-1/config",
		`{"provider_type":"rest","is_enabled":true,"config":{"base_url":"https://fms.example.com"}}`, adminHeaders)
	assert.Equal(t, 200, status)

	status, body := doRequest(t, app, "GET", "/fms/facilities/fac-1/config", "", adminHeaders)
	assert.Equal(t, 200, status)

	var config models.FMSConfig
	require.NoError(t, json.Unmarshal(body, &config))
	assert.Equal(t, models.ProviderREST, config.ProviderType)
	assert.Equal(t, "fac-1", config.FacilityID)
}

func TestHandleSaveConfig_BadProvider(t *testing.T) {
	app := setupTestApp(newFakeStore(), &fakeFetcher{}, &fakeApplier{})

	status, _ := doRequest(t, app, "PUT", "/fms/facilities/fac-1/config",
		`{"provider_type":"csv"}`, adminHeaders)
	assert.Equal(t, 400, status)
}

func TestHandleDeleteConfig(t *testing.T) {
	store := newFakeStore()
	seedConfig(store, "fac-1")
	app := setupTestApp(store, &fakeFetcher{}, &fakeApplier{})

	status, _ := doRequest(t, app, "DELETE", "/fms/facilities/fac-1/config", "", adminHeaders)
	assert.Equal(t, 204, status)

	status, _ = doRequest(t, app, "DELETE", "/fms/facilities/fac-1/config", "", adminHeaders)
	assert.Equal(t, 404, status)
}

func TestHandleRemoveTenant(t *testing.T) {
	store := newFakeStore()
	seedConfig(store, "fac-1")
	applier := &fakeApplier{result: &apply.Result{AccessChanges: apply.AccessChanges{AccessRevoked: 1}}}
	app := setupTestApp(store, &fakeFetcher{}, applier)

	status, body := doRequest(t, app, "DELETE", "/fms/facilities/fac-1/tenants/ext-t1", "", adminHeaders)
	assert.Equal(t, 200, status)

	var result apply.Result
	require.NoError(t, json.Unmarshal(body, &result))
	assert.Equal(t, 1, result.AccessChanges.AccessRevoked)
}
