package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/apexlearn/training-admin-api/internal/service"
	appErrors "github.com/apexlearn/training-admin-api/pkg/errors"
	"github.com/apexlearn/training-admin-api/pkg/response"
)

// DeliveryHandler exposes email delivery health endpoints.
type DeliveryHandler struct {
	health  *service.DeliveryHealthService
	exports *service.ReportExportService
}

// NewDeliveryHandler constructs DeliveryHandler.
func NewDeliveryHandler(health *service.DeliveryHealthService, exports *service.ReportExportService) *DeliveryHandler {
	return &DeliveryHandler{health: health, exports: exports}
}

// BounceRates godoc
// @Summary Per-domain bounce rates over the trailing window
// @Tags Delivery
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /delivery/bounce-rates [get]
func (h *DeliveryHandler) BounceRates(c *gin.Context) {
	stats, err := h.health.BounceRates(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, stats, nil)
}

// Reports godoc
// @Summary Recent daily delivery reports
// @Tags Delivery
// @Produce json
// @Param limit query int false "Max reports to return"
// @Success 200 {object} response.Envelope
// @Router /delivery/reports [get]
func (h *DeliveryHandler) Reports(c *gin.Context) {
	limit := 30
	if parsed, err := strconv.Atoi(c.DefaultQuery("limit", "30")); err == nil && parsed > 0 {
		limit = parsed
	}
	reports, err := h.health.Reports(c.Request.Context(), limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, reports, nil)
}

// ExportReports godoc
// @Summary Export recent daily reports as CSV
// @Tags Delivery
// @Produce json
// @Param limit query int false "Max reports to export"
// @Success 200 {object} response.Envelope
// @Router /delivery/reports/export [post]
func (h *DeliveryHandler) ExportReports(c *gin.Context) {
	limit := 30
	if parsed, err := strconv.Atoi(c.DefaultQuery("limit", "30")); err == nil && parsed > 0 {
		limit = parsed
	}
	result, err := h.exports.Export(c.Request.Context(), limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// DownloadReport godoc
// @Summary Download an archived report export
// @Tags Delivery
// @Produce text/csv
// @Param token query string true "Signed download token"
// @Success 200 {file} file
// @Router /delivery/reports/download [get]
func (h *DeliveryHandler) DownloadReport(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "token is required"))
		return
	}
	file, err := h.exports.Open(token)
	if err != nil {
		response.Error(c, err)
		return
	}
	defer file.Close() //nolint:errcheck

	c.Header("Content-Type", "text/csv")
	c.Header("Content-Disposition", "attachment; filename=delivery-reports.csv")
	c.File(file.Name())
}
