package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/gatewarden/gatewarden/internal/application/dto"
	"github.com/gatewarden/gatewarden/internal/application/service"
	"github.com/gatewarden/gatewarden/pkg/errors"
	"github.com/gatewarden/gatewarden/pkg/logger"
)

// AdminHandler exposes the management API: rule CRUD, manual blocks, log and
// audit queries, webhook configuration and retention cleanup.
type AdminHandler struct {
	admin service.AdminAppService
	log   logger.Logger
}

// NewAdminHandler creates an AdminHandler.
func NewAdminHandler(admin service.AdminAppService, log logger.Logger) *AdminHandler {
	return &AdminHandler{
		admin: admin,
		log:   log.WithComponent("admin_handler"),
	}
}

// ListRules returns all rules, enabled or not.
// GET /api/v1/admin/rules
func (h *AdminHandler) ListRules(c *gin.Context) {
	rules, err := h.admin.ListRules(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.SuccessResponse(rules))
}

// CreateRule creates a rule. The rule is visible to the pipeline on the next
// evaluation.
// POST /api/v1/admin/rules
func (h *AdminHandler) CreateRule(c *gin.Context) {
	var req dto.RuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondError(c, errors.ErrInvalidRequest.WithError(err))
		return
	}

	rule, err := h.admin.CreateRule(c.Request.Context(), &req)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, dto.SuccessResponse(rule))
}

// UpdateRule replaces a rule's definition.
// PUT /api/v1/admin/rules/:rule_id
func (h *AdminHandler) UpdateRule(c *gin.Context) {
	var req dto.RuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondError(c, errors.ErrInvalidRequest.WithError(err))
		return
	}

	rule, err := h.admin.UpdateRule(c.Request.Context(), c.Param("rule_id"), &req)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.SuccessResponse(rule))
}

// DeleteRule removes a rule.
// DELETE /api/v1/admin/rules/:rule_id
func (h *AdminHandler) DeleteRule(c *gin.Context) {
	if err := h.admin.DeleteRule(c.Request.Context(), c.Param("rule_id")); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.SuccessResponse(nil))
}

// BlockIP creates a manual block. Duration zero means the block never
// expires on its own.
// POST /api/v1/admin/blocks
func (h *AdminHandler) BlockIP(c *gin.Context) {
	var req dto.ManualBlockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondError(c, errors.ErrInvalidRequest.WithError(err))
		return
	}

	record, err := h.admin.BlockIP(c.Request.Context(), &req)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, dto.SuccessResponse(record))
}

// UnblockIP lifts an active block.
// DELETE /api/v1/admin/blocks/:block_id
func (h *AdminHandler) UnblockIP(c *gin.Context) {
	if err := h.admin.UnblockIP(c.Request.Context(), c.Param("block_id")); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.SuccessResponse(nil))
}

// ListActiveBlocks returns the currently enforced blocks.
// GET /api/v1/admin/blocks
func (h *AdminHandler) ListActiveBlocks(c *gin.Context) {
	blocks, err := h.admin.ListActiveBlocks(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.SuccessResponse(blocks))
}

// QueryRequestLog returns sampled request log entries, newest first.
// GET /api/v1/admin/request-log
func (h *AdminHandler) QueryRequestLog(c *gin.Context) {
	var query dto.RequestLogQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		h.respondError(c, errors.ErrInvalidRequest.WithError(err))
		return
	}

	entries, err := h.admin.QueryRequestLog(c.Request.Context(), &query)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.SuccessResponse(entries))
}

// ListAuditLog returns the newest security audit entries.
// GET /api/v1/admin/audit
func (h *AdminHandler) ListAuditLog(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))

	entries, err := h.admin.ListAuditLog(c.Request.Context(), limit)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.SuccessResponse(entries))
}

// GetWebhook returns the configured alert webhook destination.
// GET /api/v1/admin/webhook
func (h *AdminHandler) GetWebhook(c *gin.Context) {
	url, err := h.admin.GetWebhookURL(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.SuccessResponse(gin.H{"url": url}))
}

// SetWebhook changes the alert webhook destination. Takes effect within the
// dispatcher's cache window.
// PUT /api/v1/admin/webhook
func (h *AdminHandler) SetWebhook(c *gin.Context) {
	var req dto.WebhookConfigRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondError(c, errors.ErrInvalidRequest.WithError(err))
		return
	}

	if err := h.admin.SetWebhookURL(c.Request.Context(), req.URL); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.SuccessResponse(nil))
}

// RunCleanup triggers retention cleanup and reports the deleted row counts.
// POST /api/v1/admin/cleanup
func (h *AdminHandler) RunCleanup(c *gin.Context) {
	result, err := h.admin.RunRetentionCleanup(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.SuccessResponse(result))
}

func (h *AdminHandler) respondError(c *gin.Context, err error) {
	h.log.Warn(c.Request.Context(), "admin request failed",
		logger.String("path", c.Request.URL.Path),
		logger.String("error", err.Error()),
	)
	c.JSON(dto.HTTPStatus(err), dto.ErrorResponse(err))
}
