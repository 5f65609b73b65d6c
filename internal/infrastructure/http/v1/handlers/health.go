// Package handlers provides HTTP request handlers.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"autoinc/internal/core/counter"
)

// HealthHandler provides health check endpoints.
type HealthHandler struct {
	store  counter.Store
	driver string
}

// NewHealthHandler creates a new health handler.
func NewHealthHandler(store counter.Store, driver string) *HealthHandler {
	return &HealthHandler{store: store, driver: driver}
}

// Live handles liveness probe (is the process alive?).
// GET /health/live
func (h *HealthHandler) Live(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
	})
}

// Ready handles readiness probe (can the counter store be reached?).
// GET /health/ready
func (h *HealthHandler) Ready(c *gin.Context) {
	if err := h.store.Ping(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "error",
			"checks": map[string]string{
				"counter_store": "unhealthy: " + err.Error(),
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
		"checks": map[string]string{
			"counter_store": "healthy",
		},
		"driver": h.driver,
	})
}
