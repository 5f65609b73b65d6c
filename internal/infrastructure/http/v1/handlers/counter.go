package handlers

import (
	"github.com/gin-gonic/gin"

	"autoinc/internal/core/counter"
	"autoinc/internal/domain/sequence"
	"autoinc/internal/infrastructure/http/v1/dto"
)

// CounterHandler exposes counters for inspection and administration.
type CounterHandler struct {
	*BaseHandler
	store    counter.Store
	registry *sequence.Registry
}

// NewCounterHandler creates a new counter handler.
func NewCounterHandler(base *BaseHandler, store counter.Store, registry *sequence.Registry) *CounterHandler {
	return &CounterHandler{
		BaseHandler: base,
		store:       store,
		registry:    registry,
	}
}

// List handles GET /counters
func (h *CounterHandler) List(c *gin.Context) {
	counters, err := h.store.List(c.Request.Context())
	if err != nil {
		h.Error(c, err)
		return
	}

	items := make([]dto.CounterResponse, len(counters))
	for i, ctr := range counters {
		items[i] = dto.FromCounter(ctr)
	}
	h.OK(c, dto.ListResponse[dto.CounterResponse]{Items: items, TotalCount: len(items)})
}

// Get handles GET /counters/:name
func (h *CounterHandler) Get(c *gin.Context) {
	ctr, err := h.store.Get(c.Request.Context(), c.Param("name"))
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.FromCounter(ctr))
}

// Next handles GET /counters/:name/next
// Previews the next value without consuming it.
func (h *CounterHandler) Next(c *gin.Context) {
	var q dto.NextQuery
	if !h.BindQuery(c, &q) {
		return
	}

	name := c.Param("name")
	v, err := h.registry.PeekNext(c.Request.Context(), counter.Spec{Name: name, StartAt: q.StartAt, Step: q.Step})
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.ValueResponse{Name: name, Value: v})
}

// Advance handles POST /counters/:name/advance
func (h *CounterHandler) Advance(c *gin.Context) {
	var req dto.AdvanceRequest
	if !h.BindJSON(c, &req) {
		return
	}

	name := c.Param("name")
	v, err := h.registry.GetNext(c.Request.Context(), counter.Spec{Name: name, StartAt: req.StartAt, Step: req.Step})
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.ValueResponse{Name: name, Value: v})
}

// Set handles PUT /counters/:name
func (h *CounterHandler) Set(c *gin.Context) {
	var req dto.SetCounterRequest
	if !h.BindJSON(c, &req) {
		return
	}

	spec := counter.Spec{Name: c.Param("name"), Step: req.Step}.Normalize()
	if err := spec.Validate(); err != nil {
		h.Error(c, err)
		return
	}
	if err := h.store.Set(c.Request.Context(), spec.Name, *req.Value, spec.Step); err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.CounterResponse{Name: spec.Name, CurrentValue: *req.Value, Step: spec.Step})
}
