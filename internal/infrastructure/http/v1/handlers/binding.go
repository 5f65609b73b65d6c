package handlers

import (
	"github.com/gin-gonic/gin"

	"autoinc/internal/core/apperror"
	"autoinc/internal/infrastructure/http/v1/dto"
	"autoinc/internal/metadata"
)

// BindingHandler exposes the catalog of attached sequences.
type BindingHandler struct {
	*BaseHandler
	registry *metadata.Registry
}

// NewBindingHandler creates a new binding handler.
func NewBindingHandler(base *BaseHandler, registry *metadata.Registry) *BindingHandler {
	return &BindingHandler{BaseHandler: base, registry: registry}
}

// List handles GET /bindings
// Optional ?counter= narrows to sequences sharing one counter.
func (h *BindingHandler) List(c *gin.Context) {
	var items []metadata.BindingDef
	if name := c.Query("counter"); name != "" {
		items = h.registry.ByCounter(name)
	} else {
		items = h.registry.List()
	}
	if items == nil {
		items = []metadata.BindingDef{}
	}
	h.OK(c, dto.ListResponse[metadata.BindingDef]{Items: items, TotalCount: len(items)})
}

// Get handles GET /bindings/:recordType
func (h *BindingHandler) Get(c *gin.Context) {
	recordType := c.Param("recordType")
	def, ok := h.registry.Get(recordType)
	if !ok {
		h.Error(c, apperror.NewNotFound("binding", recordType))
		return
	}
	h.OK(c, def)
}
