package middleware

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/gatewarden/gatewarden/internal/application/dto"
	"github.com/gatewarden/gatewarden/internal/domain/models"
	domainservice "github.com/gatewarden/gatewarden/internal/domain/service"
	"github.com/gatewarden/gatewarden/pkg/constants"
	"github.com/gatewarden/gatewarden/pkg/errors"
)

// Guard runs every request on this server through the decision pipeline and
// rejects blocked clients before the handler runs. The rejection carries only
// the stable rule label, never internals. Sensitive marks the guarded routes
// as authenticated surface, which widens the set of rules that can apply.
func Guard(guard *domainservice.GuardService, sensitive bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity := models.Identity{
			IP:        c.ClientIP(),
			UserAgent: c.Request.UserAgent(),
		}
		reqCtx := models.RequestContext{
			Endpoint:  c.Request.URL.Path,
			Method:    c.Request.Method,
			Sensitive: sensitive,
		}

		decision := guard.Evaluate(c.Request.Context(), identity, reqCtx)
		if decision.Status == constants.DecisionBlocked {
			err := errors.ErrForbidden.WithMessage(decision.RuleLabel)
			c.Header("Retry-After", retryAfter(decision))
			c.AbortWithStatusJSON(http.StatusForbidden, dto.ErrorResponse(err))
			return
		}

		c.Next()
	}
}

func retryAfter(d models.Decision) string {
	if d.BlockMinutes == 0 {
		return "60"
	}
	return strconv.FormatInt(int64(d.BlockMinutes)*60, 10)
}
