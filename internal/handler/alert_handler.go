package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/apexlearn/training-admin-api/internal/service"
	"github.com/apexlearn/training-admin-api/pkg/response"
)

// AlertHandler exposes the operator alert feed.
type AlertHandler struct {
	alerts *service.AlertService
}

// NewAlertHandler constructs AlertHandler.
func NewAlertHandler(alerts *service.AlertService) *AlertHandler {
	return &AlertHandler{alerts: alerts}
}

// ListActive godoc
// @Summary List unresolved delivery alerts
// @Tags Alerts
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /alerts [get]
func (h *AlertHandler) ListActive(c *gin.Context) {
	alerts, err := h.alerts.ListActive(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, alerts, nil)
}

// Resolve godoc
// @Summary Resolve a delivery alert
// @Tags Alerts
// @Produce json
// @Param id path string true "Alert ID"
// @Success 204
// @Router /alerts/{id}/resolve [put]
func (h *AlertHandler) Resolve(c *gin.Context) {
	if err := h.alerts.Resolve(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
