package fms

import (
	"github.com/skatamatic/blulok-cloud-sub001/core/apperr"
	"github.com/skatamatic/blulok-cloud-sub001/core/auth"
	"github.com/skatamatic/blulok-cloud-sub001/core/logger"
	"github.com/skatamatic/blulok-cloud-sub001/core/middleware/actor"
	"github.com/skatamatic/blulok-cloud-sub001/feature/fms/models"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// Handler handles HTTP requests for the FMS sync workflow.
type Handler struct {
	service *Service
}

// NewHandler creates a new HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes registers the FMS routes.
func (h *Handler) RegisterRoutes(app fiber.Router) {
	group := app.Group("/fms")

	group.Get("/facilities/:facilityId/config", h.HandleGetConfig)
	group.Put("/facilities/:facilityId/config", h.HandleSaveConfig)
	group.Delete("/facilities/:facilityId/config", h.HandleDeleteConfig)

	group.Post("/facilities/:facilityId/sync", h.HandleTriggerSync)
	group.Get("/facilities/:facilityId/sync", h.HandleListSyncLogs)
	group.Delete("/facilities/:facilityId/tenants/:externalId", h.HandleRemoveTenant)

	group.Get("/sync/:syncLogId", h.HandleGetSyncLog)
	group.Get("/sync/:syncLogId/changes", h.HandleListChanges)
	group.Get("/sync/:syncLogId/changes/pending", h.HandlePendingChanges)
	group.Post("/sync/:syncLogId/apply", h.HandleApplyChanges)

	group.Post("/changes/:changeId/review", h.HandleReviewChange)
	group.Post("/changes/review", h.HandleBulkReview)
}

func (h *Handler) actorFromCtx(c *fiber.Ctx) (auth.Actor, error) {
	a, ok := actor.FromCtx(c)
	if !ok {
		return auth.Actor{}, c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "missing actor identity",
		})
	}
	return a, nil
}

// respondError maps a service error to its HTTP status.
func respondError(c *fiber.Ctx, err error) error {
	return c.Status(apperr.StatusCode(err)).JSON(fiber.Map{"error": err.Error()})
}

// HandleGetConfig returns the facility's FMS provider configuration.
// @Summary Get FMS Config
// @Description Returns the FMS provider configuration of one facility.
// @Tags fms
// @Produce json
// @Param facilityId path string true "Facility ID"
// @Success 200 {object} models.FMSConfig
// @Failure 404 {object} map[string]string "Not Found"
// @Router /fms/facilities/{facilityId}/config [get]
func (h *Handler) HandleGetConfig(c *fiber.Ctx) error {
	a, err := h.actorFromCtx(c)
	if err != nil {
		return err
	}

	config, err := h.service.GetConfig(c.Context(), a, c.Params("facilityId"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(config)
}

// HandleSaveConfig creates or replaces the facility's FMS configuration.
// @Summary Save FMS Config
// @Description Creates or replaces the FMS provider configuration of one facility.
// @Tags fms
// @Accept json
// @Produce json
// @Param facilityId path string true "Facility ID"
// @Param config body models.FMSConfig true "Provider configuration"
// @Success 200 {object} models.FMSConfig
// @Failure 400 {object} map[string]string "Bad Request"
// @Router /fms/facilities/{facilityId}/config [put]
func (h *Handler) HandleSaveConfig(c *fiber.Ctx) error {
	a, err := h.actorFromCtx(c)
	if err != nil {
		return err
	}

	var config models.FMSConfig
	if err := c.BodyParser(&config); err != nil {
		return respondError(c, &apperr.ValidationError{Field: "body", Message: "malformed request body"})
	}
	config.FacilityID = c.Params("facilityId")

	saved, err := h.service.SaveConfig(c.Context(), a, &config)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(saved)
}

// HandleDeleteConfig removes the facility's FMS configuration.
// @Summary Delete FMS Config
// @Description Removes the FMS configuration and entity mappings of one facility.
// @Tags fms
// @Produce json
// @Param facilityId path string true "Facility ID"
// @Success 204 "No Content"
// @Failure 404 {object} map[string]string "Not Found"
// @Router /fms/facilities/{facilityId}/config [delete]
func (h *Handler) HandleDeleteConfig(c *fiber.Ctx) error {
	a, err := h.actorFromCtx(c)
	if err != nil {
		return err
	}

	if err := h.service.DeleteConfig(c.Context(), a, c.Params("facilityId")); err != nil {
		return respondError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// HandleTriggerSync starts a sync run for the facility.
// @Summary Trigger Sync
// @Description Fetches the provider snapshot, diffs it against internal state and queues the detected changes for review. At most one run per facility at a time.
// @Tags fms
// @Produce json
// @Param facilityId path string true "Facility ID"
// @Success 200 {object} models.SyncLog
// @Failure 409 {object} map[string]string "Sync already running"
// @Failure 502 {object} map[string]string "Provider failure"
// @Router /fms/facilities/{facilityId}/sync [post]
func (h *Handler) HandleTriggerSync(c *fiber.Ctx) error {
	a, err := h.actorFromCtx(c)
	if err != nil {
		return err
	}

	l := logger.WithRayID(h.service.logger, c)
	facilityID := c.Params("facilityId")
	l.Info("Sync triggered over HTTP", zap.String("facility_id", facilityID))

	log, err := h.service.PerformSync(c.Context(), a, facilityID, models.TriggerManual)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(log)
}

// HandleListSyncLogs lists the facility's sync history.
// @Summary List Sync Logs
// @Description Returns the facility's sync runs, newest first.
// @Tags fms
// @Produce json
// @Param facilityId path string true "Facility ID"
// @Param limit query int false "Page size"
// @Param offset query int false "Page offset"
// @Success 200 {array} models.SyncLog
// @Router /fms/facilities/{facilityId}/sync [get]
func (h *Handler) HandleListSyncLogs(c *fiber.Ctx) error {
	a, err := h.actorFromCtx(c)
	if err != nil {
		return err
	}

	logs, err := h.service.ListSyncLogs(c.Context(), a, c.Params("facilityId"), c.QueryInt("limit"), c.QueryInt("offset"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(logs)
}

// HandleGetSyncLog returns one sync run.
// @Summary Get Sync Log
// @Description Returns one sync run by id.
// @Tags fms
// @Produce json
// @Param syncLogId path string true "Sync Log ID"
// @Success 200 {object} models.SyncLog
// @Failure 404 {object} map[string]string "Not Found"
// @Router /fms/sync/{syncLogId} [get]
func (h *Handler) HandleGetSyncLog(c *fiber.Ctx) error {
	a, err := h.actorFromCtx(c)
	if err != nil {
		return err
	}

	log, err := h.service.GetSyncLog(c.Context(), a, c.Params("syncLogId"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(log)
}

// HandleListChanges returns all changes of one run.
// @Summary List Changes
// @Description Returns every change detected by one sync run.
// @Tags fms
// @Produce json
// @Param syncLogId path string true "Sync Log ID"
// @Success 200 {array} models.Change
// @Router /fms/sync/{syncLogId}/changes [get]
func (h *Handler) HandleListChanges(c *fiber.Ctx) error {
	a, err := h.actorFromCtx(c)
	if err != nil {
		return err
	}

	changes, err := h.service.ListChanges(c.Context(), a, c.Params("syncLogId"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(changes)
}

// HandlePendingChanges returns the run's changes awaiting review.
// @Summary List Pending Changes
// @Description Returns the run's changes that have not been reviewed yet.
// @Tags fms
// @Produce json
// @Param syncLogId path string true "Sync Log ID"
// @Success 200 {array} models.Change
// @Router /fms/sync/{syncLogId}/changes/pending [get]
func (h *Handler) HandlePendingChanges(c *fiber.Ctx) error {
	a, err := h.actorFromCtx(c)
	if err != nil {
		return err
	}

	changes, err := h.service.GetPendingChanges(c.Context(), a, c.Params("syncLogId"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(changes)
}

type reviewRequest struct {
	Decision models.ReviewDecision `json:"decision"`
}

// HandleReviewChange records an accept/reject decision for one change.
// @Summary Review Change
// @Description Accepts or rejects one pending change. Reviewing twice returns the stored decision.
// @Tags fms
// @Accept json
// @Produce json
// @Param changeId path string true "Change ID"
// @Param review body reviewRequest true "Decision"
// @Success 200 {object} models.Change
// @Failure 400 {object} map[string]string "Bad Request"
// @Failure 404 {object} map[string]string "Not Found"
// @Router /fms/changes/{changeId}/review [post]
func (h *Handler) HandleReviewChange(c *fiber.Ctx) error {
	a, err := h.actorFromCtx(c)
	if err != nil {
		return err
	}

	var req reviewRequest
	if err := c.BodyParser(&req); err != nil {
		return respondError(c, &apperr.ValidationError{Field: "body", Message: "malformed request body"})
	}

	change, err := h.service.ReviewChange(c.Context(), a, c.Params("changeId"), req.Decision)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(change)
}

type bulkReviewRequest struct {
	SyncLogID string                `json:"sync_log_id"`
	ChangeIDs []string              `json:"change_ids"`
	Decision  models.ReviewDecision `json:"decision"`
}

// HandleBulkReview reviews many changes of one sync run with one decision.
// @Summary Bulk Review Changes
// @Description Accepts or rejects many changes of one sync run at once. Each change succeeds or fails on its own.
// @Tags fms
// @Accept json
// @Produce json
// @Param review body bulkReviewRequest true "Sync log id, change ids and decision"
// @Success 200 {array} ReviewResult
// @Failure 400 {object} map[string]string "Bad Request"
// @Failure 404 {object} map[string]string "Not Found"
// @Router /fms/changes/review [post]
func (h *Handler) HandleBulkReview(c *fiber.Ctx) error {
	a, err := h.actorFromCtx(c)
	if err != nil {
		return err
	}

	var req bulkReviewRequest
	if err := c.BodyParser(&req); err != nil {
		return respondError(c, &apperr.ValidationError{Field: "body", Message: "malformed request body"})
	}
	if req.SyncLogID == "" {
		return respondError(c, apperr.NewValidation("sync_log_id"))
	}
	if len(req.ChangeIDs) == 0 {
		return respondError(c, apperr.NewValidation("change_ids"))
	}

	results, err := h.service.BulkReview(c.Context(), a, req.SyncLogID, req.ChangeIDs, req.Decision)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(results)
}

type applyRequest struct {
	ChangeIDs []string `json:"change_ids"`
}

// HandleApplyChanges executes accepted changes of one run.
// @Summary Apply Changes
// @Description Executes the given accepted changes. The batch is not atomic; per-change failures are reported in the result.
// @Tags fms
// @Accept json
// @Produce json
// @Param syncLogId path string true "Sync Log ID"
// @Param apply body applyRequest true "Change ids to apply"
// @Success 200 {object} apply.Result
// @Failure 400 {object} map[string]string "Bad Request"
// @Failure 404 {object} map[string]string "Not Found"
// @Router /fms/sync/{syncLogId}/apply [post]
func (h *Handler) HandleApplyChanges(c *fiber.Ctx) error {
	a, err := h.actorFromCtx(c)
	if err != nil {
		return err
	}

	var req applyRequest
	if err := c.BodyParser(&req); err != nil {
		return respondError(c, &apperr.ValidationError{Field: "body", Message: "malformed request body"})
	}

	result, err := h.service.ApplyChanges(c.Context(), a, c.Params("syncLogId"), req.ChangeIDs)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(result)
}

// HandleRemoveTenant removes a tenant's access by external id, outside a
// sync run.
// @Summary Remove Tenant
// @Description Removes the external tenant's assignment at this facility. The account is deactivated only when no assignments remain anywhere.
// @Tags fms
// @Produce json
// @Param facilityId path string true "Facility ID"
// @Param externalId path string true "External Tenant ID"
// @Success 200 {object} apply.Result
// @Failure 404 {object} map[string]string "Not Found"
// @Router /fms/facilities/{facilityId}/tenants/{externalId} [delete]
func (h *Handler) HandleRemoveTenant(c *fiber.Ctx) error {
	a, err := h.actorFromCtx(c)
	if err != nil {
		return err
	}

	result, err := h.service.RemoveTenant(c.Context(), a, c.Params("facilityId"), c.Params("externalId"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(result)
}
