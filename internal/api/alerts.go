package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/rateintel/rateintel-go/internal/alerting"
	"github.com/rateintel/rateintel-go/internal/datastore/entities"
	"github.com/rateintel/rateintel-go/internal/datastore/repository"
	"github.com/rateintel/rateintel-go/internal/observability/metrics"
)

const maxHistoryLimit = 200

// initAlertRoutes registers the alert rule endpoints.
func (c *Controller) initAlertRoutes() {
	alerts := c.Group.Group("/alerts")

	// Public read endpoints
	alerts.GET("/schema", c.GetAlertSchema)
	alerts.GET("", c.ListAlerts)
	alerts.GET("/history", c.ListAlertHistory)

	// Protected endpoints
	protected := alerts.Group("", c.authMiddleware)
	protected.POST("/:type", c.SaveAlert)
	protected.PATCH("/:id", c.UpdateAlert)
}

// GetAlertSchema returns the form catalog: alert types, subjects,
// comparison rules and parity sub-options.
func (c *Controller) GetAlertSchema(ctx echo.Context) error {
	return c.ok(ctx, alerting.GetSchema())
}

// ListAlerts returns the subscriber's live rules compiled into display
// rows.
func (c *Controller) ListAlerts(ctx echo.Context) error {
	sid, err := querySID(ctx)
	if err != nil {
		return c.fail(ctx, http.StatusBadRequest, err.Error())
	}

	filter := repository.AlertFilter{
		SID:       sid,
		AlertType: ctx.QueryParam("type"),
	}
	if activeParam := ctx.QueryParam("active"); activeParam != "" {
		v := activeParam == "true"
		filter.Active = &v
	}

	alerts, err := c.repo.ListAlerts(ctx.Request().Context(), filter)
	if err != nil {
		return c.handleError(ctx, err, "Failed to list alerts", http.StatusInternalServerError)
	}

	lookups, err := c.lookups(ctx.Request().Context(), sid)
	if err != nil {
		return c.handleError(ctx, err, "Failed to load lookup tables", http.StatusInternalServerError)
	}

	rows := alerting.CompileRows(alerts, lookups)
	metrics.AddCompiledRows("live", len(rows))
	for i := 0; i < len(alerts)-len(rows); i++ {
		metrics.IncDroppedRow()
	}
	return c.ok(ctx, rows)
}

// ListAlertHistory returns the change history compiled into the same
// row shape as live rules, with the Action field set.
func (c *Controller) ListAlertHistory(ctx echo.Context) error {
	sid, err := querySID(ctx)
	if err != nil {
		return c.fail(ctx, http.StatusBadRequest, err.Error())
	}

	filter := repository.ChangeFilter{
		SID:     sid,
		AlertID: ctx.QueryParam("alertId"),
		Limit:   maxHistoryLimit,
	}
	if limitParam := ctx.QueryParam("limit"); limitParam != "" {
		if limit, err := strconv.Atoi(limitParam); err == nil && limit > 0 && limit < maxHistoryLimit {
			filter.Limit = limit
		}
	}
	if offsetParam := ctx.QueryParam("offset"); offsetParam != "" {
		if offset, err := strconv.Atoi(offsetParam); err == nil && offset > 0 {
			filter.Offset = offset
		}
	}

	changes, err := c.repo.ListChanges(ctx.Request().Context(), filter)
	if err != nil {
		return c.handleError(ctx, err, "Failed to list alert history", http.StatusInternalServerError)
	}

	lookups, err := c.lookups(ctx.Request().Context(), sid)
	if err != nil {
		return c.handleError(ctx, err, "Failed to load lookup tables", http.StatusInternalServerError)
	}

	rows := alerting.CompileChanges(changes, lookups)
	metrics.AddCompiledRows("history", len(rows))
	return c.ok(ctx, rows)
}

// saveAlertRequest is the submission payload. Id lists normally carry
// canonical property ids; legacy form clients still send hotel-market
// ids and set useHmids so the boundary can translate them.
type saveAlertRequest struct {
	entities.AlertDefinition
	UseHMIDs bool `json:"useHmids"`
}

// alertTypeFromParam maps the route's type segment to the stored alert
// type.
func alertTypeFromParam(param string) (string, bool) {
	switch param {
	case "ADR":
		return alerting.TypeADR, true
	case "Parity":
		return alerting.TypeParity, true
	case "OTARanking":
		return alerting.TypeRank, true
	default:
		return "", false
	}
}

// SaveAlert persists a shaped rule. A payload with a known AlertID
// replaces the stored rule; otherwise a new rule is created.
//
// The payload is the output of a form session, which validates the
// draft before submitting. The boundary does not re-run those checks;
// it only enforces structural requirements like a known type and SID.
func (c *Controller) SaveAlert(ctx echo.Context) error {
	alertType, ok := alertTypeFromParam(ctx.Param("type"))
	if !ok {
		return c.fail(ctx, http.StatusBadRequest, "Unknown alert type")
	}

	var req saveAlertRequest
	if err := ctx.Bind(&req); err != nil {
		return c.fail(ctx, http.StatusBadRequest, "Invalid request body")
	}
	alert := req.AlertDefinition
	alert.AlertType = alertType

	if alert.SID == 0 {
		return c.fail(ctx, http.StatusBadRequest, "Missing SID")
	}
	alert.CreatedBy = requestUser(ctx, alert.CreatedBy)

	if req.UseHMIDs {
		lookups, err := c.lookups(ctx.Request().Context(), alert.SID)
		if err != nil {
			return c.handleError(ctx, err, "Failed to load lookup tables", http.StatusInternalServerError)
		}
		if err := translateHMIDs(&alert, lookups); err != nil {
			return c.fail(ctx, http.StatusBadRequest, err.Error())
		}
	}

	var err error
	if alert.AlertID == "" {
		alert.AlertID = uuid.NewString()
		alert.IsActive = true
		err = c.repo.CreateAlert(ctx.Request().Context(), &alert)
	} else {
		err = c.repo.UpdateAlert(ctx.Request().Context(), &alert)
		if errors.Is(err, repository.ErrAlertNotFound) {
			metrics.IncAlertSave(alertType, err)
			return c.fail(ctx, http.StatusNotFound, "Alert not found")
		}
	}
	metrics.IncAlertSave(alertType, err)
	if err != nil {
		return c.handleError(ctx, err, "Failed to save alert", http.StatusInternalServerError)
	}

	return c.ok(ctx, map[string]any{"AlertId": alert.AlertID})
}

// translateHMIDs rewrites legacy hotel-market id lists onto canonical
// property ids. Unknown hmids are rejected rather than dropped so a
// stale form cannot silently save a rule watching nothing.
func translateHMIDs(alert *entities.AlertDefinition, lookups *alerting.Lookups) error {
	translate := func(list, label string) (string, error) {
		ids := entities.SplitIDList(list)
		out := make([]uint, 0, len(ids))
		for _, hmid := range ids {
			property, ok := lookups.PropertyByHMID(hmid)
			if !ok {
				return "", fmt.Errorf("unknown hotel-market id %d in %s", hmid, label)
			}
			out = append(out, property.PropertyID)
		}
		return entities.JoinIDList(out), nil
	}

	var err error
	if alert.CompsetList, err = translate(alert.CompsetList, "compset list"); err != nil {
		return err
	}
	if alert.WRTCompsetList, err = translate(alert.WRTCompsetList, "with-respect-to compset list"); err != nil {
		return err
	}
	return nil
}

// updateAlertRequest is the toggle/delete payload.
type updateAlertRequest struct {
	Field     string `json:"field"`
	Status    bool   `json:"status"`
	CreatedBy string `json:"CreatedBy"`
}

// UpdateAlert toggles a rule's active flag or soft-deletes it. The same
// rule rejects overlapping updates; different rules update
// independently.
func (c *Controller) UpdateAlert(ctx echo.Context) error {
	alertID := ctx.Param("id")
	if alertID == "" {
		return c.fail(ctx, http.StatusBadRequest, "Missing alert id")
	}

	var req updateAlertRequest
	if err := ctx.Bind(&req); err != nil {
		return c.fail(ctx, http.StatusBadRequest, "Invalid request body")
	}

	if _, inFlight := c.updating.LoadOrStore(alertID, time.Now()); inFlight {
		return c.fail(ctx, http.StatusConflict, "Alert update already in progress")
	}
	defer c.updating.Delete(alertID)

	changedBy := requestUser(ctx, req.CreatedBy)

	var err error
	switch req.Field {
	case "active":
		err = c.repo.SetActive(ctx.Request().Context(), alertID, req.Status, changedBy)
	case "delete":
		err = c.repo.SoftDeleteAlert(ctx.Request().Context(), alertID, changedBy)
	default:
		return c.fail(ctx, http.StatusBadRequest, "Unknown update field")
	}
	if errors.Is(err, repository.ErrAlertNotFound) {
		return c.fail(ctx, http.StatusNotFound, "Alert not found")
	}
	if err != nil {
		return c.handleError(ctx, err, "Failed to update alert", http.StatusInternalServerError)
	}

	metrics.IncAlertMutation(req.Field)
	return c.ok(ctx, nil)
}
