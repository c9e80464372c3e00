package shift

import (
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"picktrack/internal/geofence"
	"picktrack/internal/settings"
	"picktrack/internal/shared/apperror"
	"picktrack/internal/shared/response"
	shifterrors "picktrack/internal/shift/errors"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type Handler struct {
	service  Service
	ledger   Ledger
	recorder Recorder
	settings settings.Service
	logger   *zap.Logger
}

func NewHandler(service Service, ledger Ledger, recorder Recorder, cfg settings.Service, logger ...*zap.Logger) *Handler {
	l := zap.L().Named("shift.handler")
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0].Named("shift.handler")
	}
	return &Handler{service: service, ledger: ledger, recorder: recorder, settings: cfg, logger: l}
}

func getPicker(c *gin.Context) string {
	return c.GetString("username_validated")
}

// bindOptionalJSON decodes the body into req when one is present. Every field
// of the check-in, check-out and break requests is optional, so a body-less
// POST is a valid empty request, not a 400.
func bindOptionalJSON(c *gin.Context, req any) error {
	if err := c.ShouldBindJSON(req); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func (h *Handler) writeServiceError(c *gin.Context, err error) {
	httpErr := apperror.ToHTTP(err)
	h.logger.Warn("shift request failed",
		zap.String("method", c.Request.Method),
		zap.String("path", c.FullPath()),
		zap.Int("status", httpErr.Status),
		zap.String("code", httpErr.Code),
		zap.String("message", httpErr.Message),
	)
	response.Error(c, httpErr.Status, httpErr.Code, httpErr.Message, httpErr.Details)
}

// checkFence enforces the GPS fence when the gps check setting is on.
// Missing coordinates are rejected; a reported position outside the fence is
// a 403 with the measured distance attached.
func (h *Handler) checkFence(c *gin.Context, coordinates *string) error {
	ctx := c.Request.Context()
	if !h.settings.RequireGPSCheck(ctx) {
		return nil
	}
	if coordinates == nil || *coordinates == "" {
		return apperror.RequiredField("coordinates")
	}

	fence := geofence.NewDefaultChecker()
	if v, err := strconv.ParseFloat(h.settings.Get(ctx, settings.KeyGeofenceLatitude, ""), 64); err == nil {
		fence.Latitude = v
	}
	if v, err := strconv.ParseFloat(h.settings.Get(ctx, settings.KeyGeofenceLongitude, ""), 64); err == nil {
		fence.Longitude = v
	}
	if v, err := strconv.ParseFloat(h.settings.Get(ctx, settings.KeyGeofenceRadiusMeters, ""), 64); err == nil {
		fence.RadiusMeters = v
	}

	result := fence.Validate(*coordinates)
	if !result.Valid {
		h.logger.Warn("geofence rejected coordinates",
			zap.String("picker", getPicker(c)),
			zap.Float64("distance_meters", result.DistanceMeters),
		)
		return shifterrors.ErrOutsideGeofence
	}
	return nil
}

func (h *Handler) CheckIn(c *gin.Context) {
	username := getPicker(c)

	var req CheckInRequest
	if err := bindOptionalJSON(c, &req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body", err.Error())
		return
	}
	if err := h.checkFence(c, req.Coordinates); err != nil {
		h.writeServiceError(c, err)
		return
	}

	resp, err := h.service.CheckIn(c.Request.Context(), username, req)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}
	response.Success(c, http.StatusCreated, resp, nil)
}

func (h *Handler) CheckOut(c *gin.Context) {
	username := getPicker(c)

	var req CheckOutRequest
	if err := bindOptionalJSON(c, &req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body", err.Error())
		return
	}
	if err := h.checkFence(c, req.Coordinates); err != nil {
		h.writeServiceError(c, err)
		return
	}

	resp, err := h.service.CheckOut(c.Request.Context(), username, req, false)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}
	response.Success(c, http.StatusOK, resp, nil)
}

func (h *Handler) GetActive(c *gin.Context) {
	resp, err := h.service.GetActive(c.Request.Context(), getPicker(c))
	if err != nil {
		h.writeServiceError(c, err)
		return
	}
	response.Success(c, http.StatusOK, resp, nil)
}

func (h *Handler) List(c *gin.Context) {
	f := ListFilter{
		Picker: c.Query("picker"),
		Status: c.Query("status"),
	}
	if v := c.Query("admin_adjusted"); v != "" {
		adjusted := v == "true"
		f.AdminAdjusted = &adjusted
	}
	if v := c.Query("start"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid start time, expected RFC3339", nil)
			return
		}
		f.Start = &t
	}
	if v := c.Query("end"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid end time, expected RFC3339", nil)
			return
		}
		f.End = &t
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	if page < 1 {
		page = 1
	}
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}
	f.Page = page
	f.PageSize = pageSize

	rows, total, err := h.service.List(c.Request.Context(), f)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}
	meta := response.NewPaginationMeta(total, page, pageSize)
	response.Success(c, http.StatusOK, rows, &meta)
}

func (h *Handler) GetDetail(c *gin.Context) {
	resp, err := h.service.GetDetail(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeServiceError(c, err)
		return
	}
	response.Success(c, http.StatusOK, resp, nil)
}

func (h *Handler) Adjust(c *gin.Context) {
	var req AdjustShiftRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body", err.Error())
		return
	}

	resp, err := h.service.AdminAdjust(c.Request.Context(), c.Param("id"), getPicker(c), req)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}
	response.Success(c, http.StatusOK, resp, nil)
}

func (h *Handler) ForceCheckout(c *gin.Context) {
	resp, err := h.service.ForceCheckout(c.Request.Context(), c.Param("id"), getPicker(c))
	if err != nil {
		h.writeServiceError(c, err)
		return
	}
	response.Success(c, http.StatusOK, resp, nil)
}

func (h *Handler) StartBreak(c *gin.Context) {
	var req StartBreakRequest
	if err := bindOptionalJSON(c, &req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body", err.Error())
		return
	}

	resp, err := h.ledger.StartBreak(c.Request.Context(), getPicker(c), req)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}
	response.Success(c, http.StatusCreated, resp, nil)
}

func (h *Handler) EndBreak(c *gin.Context) {
	resp, err := h.ledger.EndBreak(c.Request.Context(), getPicker(c))
	if err != nil {
		h.writeServiceError(c, err)
		return
	}
	response.Success(c, http.StatusOK, resp, nil)
}

func (h *Handler) ActiveBreak(c *gin.Context) {
	resp, err := h.ledger.ActiveBreak(c.Request.Context(), getPicker(c))
	if err != nil {
		h.writeServiceError(c, err)
		return
	}
	response.Success(c, http.StatusOK, resp, nil)
}

func (h *Handler) RecordActivity(c *gin.Context) {
	var req RecordActivityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body", err.Error())
		return
	}

	resp, err := h.recorder.Record(c.Request.Context(), getPicker(c), req)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}
	response.Success(c, http.StatusCreated, resp, nil)
}
