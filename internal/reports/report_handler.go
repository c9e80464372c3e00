package reports

import (
	"bytes"
	"fmt"
	"net/http"
	"time"

	"picktrack/internal/shared/apperror"
	"picktrack/internal/shared/response"
	"picktrack/internal/shift"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type Handler struct {
	service Service
	logger  *zap.Logger
}

func NewHandler(service Service, logger ...*zap.Logger) *Handler {
	l := zap.L().Named("reports.handler")
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0].Named("reports.handler")
	}
	return &Handler{service: service, logger: l}
}

// ExportShifts streams the shift report as a CSV or XLSX download.
// GET /reports/shifts?format=csv|xlsx plus the usual listing filters.
func (h *Handler) ExportShifts(c *gin.Context) {
	format := c.DefaultQuery("format", "csv")
	if format != "csv" && format != "xlsx" {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Unsupported format, expected csv or xlsx", nil)
		return
	}

	f := shift.ListFilter{
		Picker: c.Query("picker"),
		Status: c.Query("status"),
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

	rows, err := h.service.BuildShiftReport(c.Request.Context(), f)
	if err != nil {
		httpErr := apperror.ToHTTP(err)
		h.logger.Warn("shift report failed",
			zap.Int("status", httpErr.Status),
			zap.String("code", httpErr.Code),
			zap.String("message", httpErr.Message),
		)
		response.Error(c, httpErr.Status, httpErr.Code, httpErr.Message, httpErr.Details)
		return
	}

	filename := fmt.Sprintf("shift_report_%s.%s", time.Now().UTC().Format("20060102_150405"), format)
	c.Header("Content-Description", "File Transfer")
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)

	if format == "xlsx" {
		buf, err := h.service.WriteXLSX(rows)
		if err != nil {
			h.logger.Error("xlsx generation failed", zap.Error(err))
			response.Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Report generation failed", nil)
			return
		}
		c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
		return
	}

	var buf bytes.Buffer
	if err := h.service.WriteCSV(&buf, rows); err != nil {
		h.logger.Error("csv generation failed", zap.Error(err))
		response.Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Report generation failed", nil)
		return
	}
	c.Data(http.StatusOK, "text/csv", buf.Bytes())
}
