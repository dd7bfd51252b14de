// Package handlers contains the Gin HTTP handlers of the decision engine and
// its management API.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/gatewarden/gatewarden/internal/application/dto"
	domainservice "github.com/gatewarden/gatewarden/internal/domain/service"
	"github.com/gatewarden/gatewarden/pkg/errors"
	"github.com/gatewarden/gatewarden/pkg/logger"
)

// GuardHandler exposes the decision pipeline over HTTP for callers that sit
// in front of other services (edge proxies, sidecars).
type GuardHandler struct {
	guard *domainservice.GuardService
	log   logger.Logger
}

// NewGuardHandler creates a GuardHandler.
func NewGuardHandler(guard *domainservice.GuardService, log logger.Logger) *GuardHandler {
	return &GuardHandler{
		guard: guard,
		log:   log.WithComponent("guard_handler"),
	}
}

// Evaluate runs a request description through the pipeline and returns the
// verdict. The caller enforces the verdict; this endpoint never rejects.
// POST /api/v1/guard/evaluate
func (h *GuardHandler) Evaluate(c *gin.Context) {
	var req dto.EvaluateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		appErr := errors.ErrInvalidRequest.WithError(err)
		c.JSON(dto.HTTPStatus(appErr), dto.ErrorResponse(appErr))
		return
	}
	if err := req.Validate(); err != nil {
		c.JSON(dto.HTTPStatus(err), dto.ErrorResponse(err))
		return
	}

	decision := h.guard.Evaluate(c.Request.Context(), req.Identity(), req.Context())
	c.JSON(http.StatusOK, dto.SuccessResponse(dto.NewDecisionResponse(decision)))
}

// EvaluateAuthenticated is the sensitive-surface variant: the payload may
// carry failed-login and sensitivity flags, so brute-force rules apply.
// POST /api/v1/guard/evaluate/authenticated
func (h *GuardHandler) EvaluateAuthenticated(c *gin.Context) {
	var req dto.EvaluateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		appErr := errors.ErrInvalidRequest.WithError(err)
		c.JSON(dto.HTTPStatus(appErr), dto.ErrorResponse(appErr))
		return
	}
	if err := req.Validate(); err != nil {
		c.JSON(dto.HTTPStatus(err), dto.ErrorResponse(err))
		return
	}
	req.Sensitive = true

	decision := h.guard.Evaluate(c.Request.Context(), req.Identity(), req.Context())
	c.JSON(http.StatusOK, dto.SuccessResponse(dto.NewDecisionResponse(decision)))
}
