package v1

import (
	"github.com/gin-gonic/gin"
)

// CounterRouteHandler defines the interface for counter handlers.
type CounterRouteHandler interface {
	List(c *gin.Context)
	Get(c *gin.Context)
	Next(c *gin.Context)
	Advance(c *gin.Context)
	Set(c *gin.Context)
}

// RegisterCounterRoutes registers the counter routes on group.
//
// Usage:
//
//	handler := handlers.NewCounterHandler(baseHandler, store, registry)
//	RegisterCounterRoutes(api.Group("/counters"), handler)
func RegisterCounterRoutes(group *gin.RouterGroup, handler CounterRouteHandler) {
	group.GET("", handler.List)
	group.GET("/:name", handler.Get)
	group.GET("/:name/next", handler.Next)
	group.POST("/:name/advance", handler.Advance)
	group.PUT("/:name", handler.Set)
}
