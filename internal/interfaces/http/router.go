// Package http wires the Gin engine, the middleware chain and the route
// table, and owns the HTTP server lifecycle.
package http

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/pprof"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/gatewarden/gatewarden/internal/config"
	domainservice "github.com/gatewarden/gatewarden/internal/domain/service"
	"github.com/gatewarden/gatewarden/internal/infrastructure/monitoring"
	"github.com/gatewarden/gatewarden/internal/interfaces/http/handlers"
	"github.com/gatewarden/gatewarden/internal/interfaces/http/middleware"
	"github.com/gatewarden/gatewarden/pkg/logger"
)

// Router is the HTTP entrypoint of the service.
type Router struct {
	engine        *gin.Engine
	config        *config.Config
	logger        logger.Logger
	metrics       *monitoring.Metrics
	guardService  *domainservice.GuardService
	healthHandler *handlers.HealthHandler
	guardHandler  *handlers.GuardHandler
	adminHandler  *handlers.AdminHandler
	server        *http.Server
}

// NewRouter creates the router.
func NewRouter(
	cfg *config.Config,
	log logger.Logger,
	metrics *monitoring.Metrics,
	guardService *domainservice.GuardService,
	healthHandler *handlers.HealthHandler,
	guardHandler *handlers.GuardHandler,
	adminHandler *handlers.AdminHandler,
) *Router {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()

	return &Router{
		engine:        engine,
		config:        cfg,
		logger:        log.WithComponent("http"),
		metrics:       metrics,
		guardService:  guardService,
		healthHandler: healthHandler,
		guardHandler:  guardHandler,
		adminHandler:  adminHandler,
	}
}

// SetupRoutes installs the middleware chain and the route table.
func (r *Router) SetupRoutes() {
	r.engine.Use(middleware.Recovery(r.logger))
	r.engine.Use(middleware.RequestID())
	r.engine.Use(middleware.Logging(r.logger))
	r.engine.Use(middleware.Observability(r.metrics))

	corsConfig := cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"},
		ExposeHeaders:    []string{"X-Request-ID", "Retry-After"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}
	r.engine.Use(cors.New(corsConfig))

	r.engine.GET("/healthz", r.healthHandler.HealthCheck)
	r.engine.GET("/live", r.healthHandler.LivenessCheck)
	r.engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	if r.config.Server.EnablePprof {
		pprof.Register(r.engine)
	}

	v1 := r.engine.Group("/api/v1")
	{
		guard := v1.Group("/guard")
		{
			guard.POST("/evaluate", r.guardHandler.Evaluate)
			guard.POST("/evaluate/authenticated", r.guardHandler.EvaluateAuthenticated)
		}

		// The management API is itself protected by the engine: abusive
		// clients get fast-rejected before reaching the handlers.
		admin := v1.Group("/admin")
		admin.Use(middleware.Guard(r.guardService, true))
		{
			admin.GET("/rules", r.adminHandler.ListRules)
			admin.POST("/rules", r.adminHandler.CreateRule)
			admin.PUT("/rules/:rule_id", r.adminHandler.UpdateRule)
			admin.DELETE("/rules/:rule_id", r.adminHandler.DeleteRule)

			admin.GET("/blocks", r.adminHandler.ListActiveBlocks)
			admin.POST("/blocks", r.adminHandler.BlockIP)
			admin.DELETE("/blocks/:block_id", r.adminHandler.UnblockIP)

			admin.GET("/request-log", r.adminHandler.QueryRequestLog)
			admin.GET("/audit", r.adminHandler.ListAuditLog)

			admin.GET("/webhook", r.adminHandler.GetWebhook)
			admin.PUT("/webhook", r.adminHandler.SetWebhook)

			admin.POST("/cleanup", r.adminHandler.RunCleanup)
		}
	}

	r.engine.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{
			"error":             "not_found",
			"error_description": "The requested resource was not found",
		})
	})
}

// Engine exposes the underlying Gin engine, for tests.
func (r *Router) Engine() *gin.Engine {
	return r.engine
}

// Start sets up the routes and serves until the listener fails or Stop is
// called.
func (r *Router) Start() error {
	r.SetupRoutes()

	addr := fmt.Sprintf("%s:%d", r.config.Server.Host, r.config.Server.Port)
	r.server = &http.Server{
		Addr:           addr,
		Handler:        r.engine,
		ReadTimeout:    time.Duration(r.config.Server.ReadTimeout) * time.Second,
		WriteTimeout:   time.Duration(r.config.Server.WriteTimeout) * time.Second,
		MaxHeaderBytes: 1 << 20,
	}

	r.logger.Info(context.Background(), "starting HTTP server", logger.String("address", addr))

	if err := r.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Stop shuts the server down gracefully.
func (r *Router) Stop(ctx context.Context) error {
	if r.server == nil {
		return nil
	}
	r.logger.Info(ctx, "stopping HTTP server")
	return r.server.Shutdown(ctx)
}
