package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/stemsi/roster-backend/internal/middleware"
	"github.com/stemsi/roster-backend/internal/response"
	"github.com/stemsi/roster-backend/internal/service"
)

// DashboardHandler handles dashboard endpoints.
type DashboardHandler struct {
	dashboardService *service.DashboardService
	log              zerolog.Logger
}

// NewDashboardHandler creates a new DashboardHandler.
func NewDashboardHandler(dashboardService *service.DashboardService, log zerolog.Logger) *DashboardHandler {
	return &DashboardHandler{
		dashboardService: dashboardService,
		log:              log.With().Str("component", "dashboard_handler").Logger(),
	}
}

// GetDashboardData godoc
// GET /api/v1/dashboard
// Returns the student count per major, also flattened into chart series.
func (h *DashboardHandler) GetDashboardData(c *gin.Context) {
	counts, err := h.dashboardService.MajorCounts(c.Request.Context(), middleware.GetIdentity(c))
	if err != nil {
		response.Error(c, h.log, err)
		return
	}

	labels := make([]string, len(counts))
	data := make([]int, len(counts))
	for i, mc := range counts {
		labels[i] = mc.Label
		data[i] = mc.Count
	}

	response.Success(c, http.StatusOK, gin.H{
		"majors": counts,
		"labels": labels,
		"data":   data,
	})
}
