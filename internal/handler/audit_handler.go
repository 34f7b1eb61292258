package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/stemsi/roster-backend/internal/middleware"
	"github.com/stemsi/roster-backend/internal/response"
	"github.com/stemsi/roster-backend/internal/service"
)

type AuditHandler struct {
	auditService *service.AuditService
	log          zerolog.Logger
}

func NewAuditHandler(auditService *service.AuditService, log zerolog.Logger) *AuditHandler {
	return &AuditHandler{
		auditService: auditService,
		log:          log.With().Str("component", "audit_handler").Logger(),
	}
}

// List godoc
// GET /api/v1/audit-log
// Admin only. Newest entry first.
func (h *AuditHandler) List(c *gin.Context) {
	entries, err := h.auditService.List(c.Request.Context(), middleware.GetIdentity(c))
	if err != nil {
		response.Error(c, h.log, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"entries": entries})
}
