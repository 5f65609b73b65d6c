// Package v1 provides HTTP API version 1.
package v1

import (
	"github.com/gin-gonic/gin"

	"autoinc/internal/core/counter"
	"autoinc/internal/domain/sequence"
	"autoinc/internal/infrastructure/http/v1/handlers"
	"autoinc/internal/infrastructure/http/v1/middleware"
	"autoinc/internal/metadata"
	"autoinc/pkg/logger"
)

// RouterConfig holds router configuration.
type RouterConfig struct {
	// Store is the counter store (health checks, listing, overrides)
	Store counter.Store

	// Registry issues and previews values
	Registry *sequence.Registry

	// Driver names the store backend for the readiness report
	Driver string

	// Bindings lists attached sequences (optional)
	Bindings *metadata.Registry

	// Logger for request logging
	Logger *logger.Logger
}

// NewRouter creates and configures the Gin router.
func NewRouter(cfg RouterConfig) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()

	// Global middleware (order matters!)
	router.Use(middleware.Recovery())
	router.Use(middleware.Trace())
	router.Use(middleware.Logger(cfg.Logger))
	router.Use(middleware.ErrorHandler())

	healthHandler := handlers.NewHealthHandler(cfg.Store, cfg.Driver)
	health := router.Group("/health")
	{
		health.GET("/live", healthHandler.Live)
		health.GET("/ready", healthHandler.Ready)
	}

	v1 := router.Group("/api/v1")
	{
		baseHandler := handlers.NewBaseHandler()
		counterHandler := handlers.NewCounterHandler(baseHandler, cfg.Store, cfg.Registry)
		RegisterCounterRoutes(v1.Group("/counters"), counterHandler)

		if cfg.Bindings != nil {
			bindingHandler := handlers.NewBindingHandler(baseHandler, cfg.Bindings)
			v1.GET("/bindings", bindingHandler.List)
			v1.GET("/bindings/:recordType", bindingHandler.Get)
		}
	}

	return router
}
