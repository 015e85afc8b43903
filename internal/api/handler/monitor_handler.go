package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/mesaops/identity-api/internal/core/ports"
)

// MonitorHandler exposes the read-only aggregation views for admins.
type MonitorHandler struct {
	monitor ports.MonitorService
}

func NewMonitorHandler(monitor ports.MonitorService) *MonitorHandler {
	return &MonitorHandler{monitor: monitor}
}

// Summary aggregates active sessions by derived status and by city.
//
// @Summary      Session population summary
// @Tags         monitor
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  summaryResponse
// @Failure      401  {object}  errorResponse
// @Failure      403  {object}  errorResponse
// @Router       /v1/sessions/summary [get]
func (h *MonitorHandler) Summary(c echo.Context) error {
	summary, err := h.monitor.Summary(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, summaryResponse{
		Total:       summary.Total,
		ByStatus:    summary.ByStatus,
		ByCity:      summary.ByCity,
		GeneratedAt: summary.GeneratedAt,
	})
}

// History lists login audit entries, newest first.
//
// @Summary      Login history
// @Tags         monitor
// @Produce      json
// @Security     BearerAuth
// @Param        user_id  query     string  false  "Filter by user id"
// @Param        limit    query     int     false  "Page size (default 100)"
// @Success      200      {object}  historyResponse
// @Failure      401      {object}  errorResponse
// @Failure      403      {object}  errorResponse
// @Router       /v1/auth/history [get]
func (h *MonitorHandler) History(c echo.Context) error {
	limit, _ := strconv.Atoi(c.QueryParam("limit"))

	entries, err := h.monitor.LoginHistory(c.Request().Context(), c.QueryParam("user_id"), limit)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, historyResponse{Entries: toHistoryEntries(entries)})
}
