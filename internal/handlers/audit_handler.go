package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "costwise/internal/errors"
	"costwise/internal/pagination"
	"costwise/internal/services"
)

// AuditHandler handles audit trail requests. All routes require the
// platform ADMIN role.
type AuditHandler struct {
	audit services.AuditServicer
}

// NewAuditHandler creates a new AuditHandler
func NewAuditHandler(audit services.AuditServicer) *AuditHandler {
	return &AuditHandler{audit: audit}
}

// ListAuditLogsRequest represents the audit log filter query
type ListAuditLogsRequest struct {
	Entity string `form:"entity" binding:"omitempty,max=100"`
	Action string `form:"action" binding:"omitempty,audit_action"`
	UserID uint   `form:"user_id"`
}

// List returns audit log entries
// @Summary     List audit logs
// @Description List audit log entries, newest first, optionally filtered
// @Tags        audit
// @Produce     json
// @Security    BearerAuth
// @Param       entity    query string false "Filter by entity"
// @Param       action    query string false "Filter by action"
// @Param       user_id   query int    false "Filter by acting user"
// @Param       page      query int    false "Page number" default(1)
// @Param       page_size query int    false "Page size" default(50)
// @Success     200 {object} map[string]interface{} "Audit logs"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     403 {object} ErrorResponse "Admin only"
// @Router      /admin/audit [get]
func (h *AuditHandler) List(c *gin.Context) {
	var req ListAuditLogsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}
	filter := services.AuditFilter{
		Entity: req.Entity,
		Action: req.Action,
		UserID: req.UserID,
	}

	var page pagination.PageRequest
	if err := c.ShouldBindQuery(&page); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}
	page.Defaults()

	logs, err := h.audit.GetLogs(filter, page)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, logs)
}

// Stats returns a summary of recent audit activity
// @Summary     Audit statistics
// @Description Totals and recent login activity over the last 24 hours
// @Tags        audit
// @Produce     json
// @Security    BearerAuth
// @Success     200 {object} services.AuditStats "Audit statistics"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     403 {object} ErrorResponse "Admin only"
// @Router      /admin/audit/stats [get]
func (h *AuditHandler) Stats(c *gin.Context) {
	stats, err := h.audit.GetStats()
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"stats": stats})
}
