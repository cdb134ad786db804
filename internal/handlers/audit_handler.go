package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"finmanager/internal/services"
)

// AuditHandler exposes the audit trail of ledger mutations.
type AuditHandler struct {
	auditService services.AuditServicer
}

// NewAuditHandler creates a new AuditHandler.
func NewAuditHandler(auditService services.AuditServicer) *AuditHandler {
	return &AuditHandler{auditService: auditService}
}

// GetAuditLogs handles listing audit entries.
// @Summary     Get audit logs
// @Description Get a paginated audit trail, newest first
// @Tags        audit
// @Produce     json
// @Security    BearerAuth
// @Param       action        query string false "Action, e.g. CREATE_BUDGET"
// @Param       resource_type query string false "Resource type, e.g. budget"
// @Param       resource_id   query string false "Resource ID"
// @Param       page          query int    false "Page number (default 1)"
// @Param       page_size     query int    false "Items per page (default 20, max 100)"
// @Success     200 {object} pagination.PageResponse[models.AuditLog] "Paginated audit entries"
// @Failure     400 {object} ErrorResponse "Invalid input"
// @Failure     500 {object} ErrorResponse "Server error"
// @Router      /audit-logs [get]
func (h *AuditHandler) GetAuditLogs(c *gin.Context) {
	page, err := bindPage(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	result, err := h.auditService.List(page, services.AuditFilter{
		Action:       c.Query("action"),
		ResourceType: c.Query("resource_type"),
		ResourceID:   c.Query("resource_id"),
	})
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}
