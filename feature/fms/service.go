package fms

import (
	"context"
	"sync"
	"time"

	"github.com/skatamatic/blulok-cloud-sub001/core/apperr"
	"github.com/skatamatic/blulok-cloud-sub001/core/auth"
	"github.com/skatamatic/blulok-cloud-sub001/feature/fms/apply"
	"github.com/skatamatic/blulok-cloud-sub001/feature/fms/diff"
	"github.com/skatamatic/blulok-cloud-sub001/feature/fms/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Store is the persistence surface the service drives. Implemented by
// repository.Store; faked in tests.
type Store interface {
	GetFMSConfig(ctx context.Context, facilityID string) (*models.FMSConfig, error)
	SaveFMSConfig(ctx context.Context, config *models.FMSConfig) error
	DeleteFMSConfig(ctx context.Context, facilityID string) error

	BeginSyncLog(ctx context.Context, log *models.SyncLog) error
	GetSyncLog(ctx context.Context, id string) (*models.SyncLog, error)
	ListSyncLogs(ctx context.Context, facilityID string, limit, offset int) ([]models.SyncLog, error)
	MarkSyncFailed(ctx context.Context, id string, at time.Time, message string) error
	CompleteSyncRun(ctx context.Context, syncLogID string, at time.Time, changes []models.Change, requiresReview bool) error
	RecountSyncLog(ctx context.Context, id string) error

	GetChange(ctx context.Context, id string) (*models.Change, error)
	ListChanges(ctx context.Context, syncLogID string) ([]models.Change, error)
	GetPendingChanges(ctx context.Context, syncLogID string) ([]models.Change, error)
	ReviewChange(ctx context.Context, id string, decision models.ReviewDecision, reviewedBy string, at time.Time) (*models.Change, error)

	ListMappings(ctx context.Context, facilityID string, providerType models.ProviderType) ([]models.EntityMapping, error)
	LoadInternalState(ctx context.Context, facilityID string) (diff.InternalState, error)
}

// SnapshotFetcher fetches the external rosters for a facility's provider.
// Implemented by provider.Registry.
type SnapshotFetcher interface {
	FetchSnapshot(ctx context.Context, cfg *models.FMSConfig) (*models.Snapshot, error)
}

// Applier executes reviewed changes. Implemented by apply.Engine.
type Applier interface {
	Apply(ctx context.Context, log *models.SyncLog, providerType models.ProviderType, changeIDs []string) (*apply.Result, error)
	RemoveTenantByExternalID(ctx context.Context, facilityID string, providerType models.ProviderType, externalID string) (*apply.Result, error)
}

// Archiver stores per-run provider snapshots. Implemented by archive.Writer.
type Archiver interface {
	ArchiveSnapshot(ctx context.Context, log *models.SyncLog, providerType models.ProviderType, snapshot *models.Snapshot) error
}

// Service orchestrates sync runs and owns the review/apply workflow.
type Service struct {
	store     Store
	providers SnapshotFetcher
	engine    Applier
	archiver  Archiver
	settings  Settings
	logger    *zap.Logger
	now       func() time.Time

	// mu guards running, the in-process single-flight set. The database
	// running-log check remains the cross-process authority.
	mu      sync.Mutex
	running map[string]bool
}

// NewService creates the FMS service. archiver may be nil when snapshot
// archiving is disabled.
func NewService(store Store, providers SnapshotFetcher, engine Applier, archiver Archiver, settings Settings, logger *zap.Logger) *Service {
	return &Service{
		store:     store,
		providers: providers,
		engine:    engine,
		archiver:  archiver,
		settings:  settings,
		logger:    logger,
		now:       time.Now,
		running:   make(map[string]bool),
	}
}

// authorizeFacility gates every facility-scoped operation. A facility the
// actor cannot access is reported as not found, never as forbidden, so the
// response does not reveal whether the facility exists.
func (s *Service) authorizeFacility(actor auth.Actor, facilityID string) error {
	if !actor.CanManageFMS() {
		return apperr.NewAuthorization("role does not permit FMS operations")
	}
	if !actor.CanAccessFacility(facilityID) {
		return apperr.NewNotFound("facility", facilityID)
	}
	return nil
}

func (s *Service) acquireSync(facilityID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running[facilityID] {
		return false
	}
	s.running[facilityID] = true
	return true
}

func (s *Service) releaseSync(facilityID string) {
	s.mu.Lock()
	delete(s.running, facilityID)
	s.mu.Unlock()
}

// PerformSync runs one full sync for the facility: fetch the provider
// snapshot, diff it against internal state, persist the resulting changes
// for review and finalize the log. At most one run per facility at a time.
func (s *Service) PerformSync(ctx context.Context, actor auth.Actor, facilityID string, trigger models.TriggerSource) (*models.SyncLog, error) {
	if err := s.authorizeFacility(actor, facilityID); err != nil {
		return nil, err
	}

	cfg, err := s.store.GetFMSConfig(ctx, facilityID)
	if err != nil {
		return nil, err
	}
	if !cfg.IsEnabled {
		return nil, apperr.NewConflict("FMS sync is disabled for this facility")
	}

	if !s.acquireSync(facilityID) {
		return nil, apperr.NewConflict("a sync is already running for this facility")
	}
	defer s.releaseSync(facilityID)

	log := &models.SyncLog{
		ID:              uuid.NewString(),
		FacilityID:      facilityID,
		FMSConfigID:     cfg.ID,
		Status:          models.SyncRunning,
		StartedAt:       s.now(),
		TriggeredBy:     trigger,
		TriggeredByUser: actor.ID,
	}
	if err := s.store.BeginSyncLog(ctx, log); err != nil {
		return nil, err
	}

	s.logger.Info("Sync started",
		zap.String("sync_log_id", log.ID),
		zap.String("facility_id", facilityID),
		zap.String("provider", string(cfg.ProviderType)),
		zap.String("triggered_by", string(trigger)))

	snapshot, err := s.fetchSnapshot(ctx, cfg)
	if err != nil {
		return nil, s.failSync(ctx, log, err)
	}

	internal, err := s.store.LoadInternalState(ctx, facilityID)
	if err != nil {
		return nil, s.failSync(ctx, log, err)
	}
	mappings, err := s.store.ListMappings(ctx, facilityID, cfg.ProviderType)
	if err != nil {
		return nil, s.failSync(ctx, log, err)
	}

	changes := diff.Compute(diff.Input{
		FacilityID:   facilityID,
		ProviderType: cfg.ProviderType,
		External:     snapshot,
		Internal:     internal,
		Mappings:     mappings,
	})

	requiresReview := false
	now := s.now()
	for i := range changes {
		changes[i].ID = uuid.NewString()
		changes[i].SyncLogID = log.ID
		changes[i].Decision = models.DecisionPending
		changes[i].CreatedAt = now
		if changes[i].RequiredActions.AnySecuritySensitive() {
			requiresReview = true
		}
	}

	completedAt := s.now()
	if err := s.store.CompleteSyncRun(ctx, log.ID, completedAt, changes, requiresReview); err != nil {
		return nil, s.failSync(ctx, log, err)
	}

	log.Status = models.SyncCompleted
	log.CompletedAt = &completedAt
	log.ChangesDetected = len(changes)
	log.ChangesPending = len(changes)
	log.RequiresReview = requiresReview

	if s.settings.ArchiveSnapshots && s.archiver != nil {
		if err := s.archiver.ArchiveSnapshot(ctx, log, cfg.ProviderType, snapshot); err != nil {
			// Archiving is best-effort; the run already completed.
			s.logger.Warn("Failed to archive snapshot",
				zap.String("sync_log_id", log.ID),
				zap.Error(err))
		}
	}

	s.logger.Info("Sync completed",
		zap.String("sync_log_id", log.ID),
		zap.Int("changes_detected", len(changes)),
		zap.Bool("requires_review", requiresReview))

	return log, nil
}

func (s *Service) fetchSnapshot(ctx context.Context, cfg *models.FMSConfig) (*models.Snapshot, error) {
	timeout := time.Duration(s.settings.ProviderTimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	fetchCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	snapshot, err := s.providers.FetchSnapshot(fetchCtx, cfg)
	if err != nil {
		return nil, apperr.NewProvider(string(cfg.ProviderType), "fetch snapshot", err)
	}
	return snapshot, nil
}

// failSync finalizes the log as failed and returns the original error. A
// failure to record the failure is logged but never masks the cause.
func (s *Service) failSync(ctx context.Context, log *models.SyncLog, cause error) error {
	if err := s.store.MarkSyncFailed(ctx, log.ID, s.now(), cause.Error()); err != nil {
		s.logger.Error("Failed to finalize failed sync",
			zap.String("sync_log_id", log.ID),
			zap.Error(err))
	}
	s.logger.Warn("Sync failed",
		zap.String("sync_log_id", log.ID),
		zap.String("facility_id", log.FacilityID),
		zap.Error(cause))
	return cause
}

// GetSyncLog returns one sync run visible to the actor.
func (s *Service) GetSyncLog(ctx context.Context, actor auth.Actor, id string) (*models.SyncLog, error) {
	log, err := s.store.GetSyncLog(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.authorizeFacility(actor, log.FacilityID); err != nil {
		if apperr.IsNotFound(err) {
			// Hide the log the same way the facility is hidden.
			return nil, apperr.NewNotFound("sync log", id)
		}
		return nil, err
	}
	return log, nil
}

// ListSyncLogs returns a facility's sync history newest-first.
func (s *Service) ListSyncLogs(ctx context.Context, actor auth.Actor, facilityID string, limit, offset int) ([]models.SyncLog, error) {
	if err := s.authorizeFacility(actor, facilityID); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = s.settings.PageSize
	}
	if limit <= 0 {
		limit = 50
	}
	return s.store.ListSyncLogs(ctx, facilityID, limit, offset)
}

// GetPendingChanges returns a run's changes still awaiting review.
func (s *Service) GetPendingChanges(ctx context.Context, actor auth.Actor, syncLogID string) ([]models.Change, error) {
	if _, err := s.GetSyncLog(ctx, actor, syncLogID); err != nil {
		return nil, err
	}
	return s.store.GetPendingChanges(ctx, syncLogID)
}

// ListChanges returns all of a run's changes.
func (s *Service) ListChanges(ctx context.Context, actor auth.Actor, syncLogID string) ([]models.Change, error) {
	if _, err := s.GetSyncLog(ctx, actor, syncLogID); err != nil {
		return nil, err
	}
	return s.store.ListChanges(ctx, syncLogID)
}

// ReviewChange records an accept/reject decision on one change. Reviewing
// twice returns the stored decision unchanged.
func (s *Service) ReviewChange(ctx context.Context, actor auth.Actor, changeID string, decision models.ReviewDecision) (*models.Change, error) {
	if decision != models.DecisionAccepted && decision != models.DecisionRejected {
		return nil, &apperr.ValidationError{Field: "decision", Message: "decision must be accepted or rejected"}
	}

	change, err := s.store.GetChange(ctx, changeID)
	if err != nil {
		return nil, err
	}
	if _, err := s.GetSyncLog(ctx, actor, change.SyncLogID); err != nil {
		if apperr.IsNotFound(err) {
			return nil, apperr.NewNotFound("change", changeID)
		}
		return nil, err
	}

	reviewed, err := s.store.ReviewChange(ctx, changeID, decision, actor.ID, s.now())
	if err != nil {
		return nil, err
	}
	if err := s.store.RecountSyncLog(ctx, change.SyncLogID); err != nil {
		s.logger.Warn("Failed to recount sync log",
			zap.String("sync_log_id", change.SyncLogID),
			zap.Error(err))
	}
	return reviewed, nil
}

// ReviewResult is the per-change outcome of a bulk review.
type ReviewResult struct {
	ChangeID string                `json:"change_id"`
	Decision models.ReviewDecision `json:"decision,omitempty"`
	Error    string                `json:"error,omitempty"`
}

// BulkReview reviews many changes of one sync run with one decision. The
// run is resolved and authorized once; each change then succeeds or fails
// independently, and a change belonging to a different run fails without
// blocking the rest.
func (s *Service) BulkReview(ctx context.Context, actor auth.Actor, syncLogID string, changeIDs []string, decision models.ReviewDecision) ([]ReviewResult, error) {
	if decision != models.DecisionAccepted && decision != models.DecisionRejected {
		return nil, &apperr.ValidationError{Field: "decision", Message: "decision must be accepted or rejected"}
	}
	if _, err := s.GetSyncLog(ctx, actor, syncLogID); err != nil {
		return nil, err
	}

	results := make([]ReviewResult, 0, len(changeIDs))
	for _, id := range changeIDs {
		change, err := s.store.GetChange(ctx, id)
		if err != nil {
			results = append(results, ReviewResult{ChangeID: id, Error: err.Error()})
			continue
		}
		if change.SyncLogID != syncLogID {
			results = append(results, ReviewResult{ChangeID: id, Error: "change does not belong to this sync log"})
			continue
		}
		reviewed, err := s.store.ReviewChange(ctx, id, decision, actor.ID, s.now())
		if err != nil {
			results = append(results, ReviewResult{ChangeID: id, Error: err.Error()})
			continue
		}
		results = append(results, ReviewResult{ChangeID: id, Decision: reviewed.Decision})
	}

	if err := s.store.RecountSyncLog(ctx, syncLogID); err != nil {
		s.logger.Warn("Failed to recount sync log",
			zap.String("sync_log_id", syncLogID),
			zap.Error(err))
	}
	return results, nil
}

// ApplyChanges executes the given accepted changes of one run.
func (s *Service) ApplyChanges(ctx context.Context, actor auth.Actor, syncLogID string, changeIDs []string) (*apply.Result, error) {
	if len(changeIDs) == 0 {
		return nil, apperr.NewValidation("change_ids")
	}

	log, err := s.GetSyncLog(ctx, actor, syncLogID)
	if err != nil {
		return nil, err
	}
	cfg, err := s.store.GetFMSConfig(ctx, log.FacilityID)
	if err != nil {
		return nil, err
	}

	result, err := s.engine.Apply(ctx, log, cfg.ProviderType, changeIDs)
	if err != nil {
		return nil, err
	}
	if err := s.store.RecountSyncLog(ctx, syncLogID); err != nil {
		s.logger.Warn("Failed to recount sync log",
			zap.String("sync_log_id", syncLogID),
			zap.Error(err))
	}
	return result, nil
}

// RemoveTenant is the direct removal path for provider-pushed move-outs,
// bypassing the review queue. The safe-deactivation rule still applies.
func (s *Service) RemoveTenant(ctx context.Context, actor auth.Actor, facilityID, externalID string) (*apply.Result, error) {
	if err := s.authorizeFacility(actor, facilityID); err != nil {
		return nil, err
	}
	if externalID == "" {
		return nil, apperr.NewValidation("external_id")
	}
	cfg, err := s.store.GetFMSConfig(ctx, facilityID)
	if err != nil {
		return nil, err
	}
	return s.engine.RemoveTenantByExternalID(ctx, facilityID, cfg.ProviderType, externalID)
}

// GetConfig returns a facility's provider configuration.
func (s *Service) GetConfig(ctx context.Context, actor auth.Actor, facilityID string) (*models.FMSConfig, error) {
	if err := s.authorizeFacility(actor, facilityID); err != nil {
		return nil, err
	}
	return s.store.GetFMSConfig(ctx, facilityID)
}

// SaveConfig creates or replaces a facility's provider configuration.
func (s *Service) SaveConfig(ctx context.Context, actor auth.Actor, config *models.FMSConfig) (*models.FMSConfig, error) {
	if config.FacilityID == "" {
		return nil, apperr.NewValidation("facility_id")
	}
	if err := s.authorizeFacility(actor, config.FacilityID); err != nil {
		return nil, err
	}
	if !config.ProviderType.Valid() {
		return nil, &apperr.ValidationError{Field: "provider_type", Message: "unknown provider type"}
	}

	if config.ID == "" {
		config.ID = uuid.NewString()
	}
	if config.CreatedAt.IsZero() {
		config.CreatedAt = s.now()
	}
	config.UpdatedAt = s.now()

	if err := s.store.SaveFMSConfig(ctx, config); err != nil {
		return nil, err
	}
	return config, nil
}

// DeleteConfig removes a facility's provider configuration and mappings.
func (s *Service) DeleteConfig(ctx context.Context, actor auth.Actor, facilityID string) error {
	if err := s.authorizeFacility(actor, facilityID); err != nil {
		return err
	}
	return s.store.DeleteFMSConfig(ctx, facilityID)
}
