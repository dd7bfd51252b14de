package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/gatewarden/gatewarden/internal/infrastructure/persistence/postgres"
	"github.com/gatewarden/gatewarden/internal/infrastructure/persistence/redis"
	"github.com/gatewarden/gatewarden/pkg/logger"
)

// HealthHandler provides liveness and readiness endpoints.
type HealthHandler struct {
	db    *postgres.DBConnection
	redis *redis.RedisConnection
	log   logger.Logger
}

// NewHealthHandler creates a HealthHandler. redis may be nil when the block
// mirror is disabled.
func NewHealthHandler(db *postgres.DBConnection, redisConn *redis.RedisConnection, log logger.Logger) *HealthHandler {
	return &HealthHandler{
		db:    db,
		redis: redisConn,
		log:   log,
	}
}

// HealthCheck reports the service and dependency health.
// GET /healthz
func (h *HealthHandler) HealthCheck(c *gin.Context) {
	checks := h.performChecks(c)

	status := "healthy"
	httpStatus := http.StatusOK
	for _, checkStatus := range checks {
		if checkStatus != "ok" {
			status = "unhealthy"
			httpStatus = http.StatusServiceUnavailable
			break
		}
	}

	c.JSON(httpStatus, gin.H{
		"status":    status,
		"timestamp": time.Now().UTC(),
		"checks":    checks,
	})
}

// LivenessCheck reports only process liveness, never dependency state.
// GET /live
func (h *HealthHandler) LivenessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "alive"})
}

func (h *HealthHandler) performChecks(c *gin.Context) map[string]string {
	checks := make(map[string]string)
	ctx := c.Request.Context()

	if err := h.db.HealthCheck(ctx); err != nil {
		checks["postgres"] = err.Error()
	} else {
		checks["postgres"] = "ok"
	}

	if h.redis != nil {
		if err := h.redis.HealthCheck(ctx); err != nil {
			checks["redis"] = err.Error()
		} else {
			checks["redis"] = "ok"
		}
	}

	return checks
}
