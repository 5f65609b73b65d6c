// Package dto provides Data Transfer Objects for API requests/responses.
package dto

import (
	"autoinc/internal/core/counter"
)

// CounterResponse is the stored state of one counter.
type CounterResponse struct {
	Name         string `json:"name"`
	CurrentValue int64  `json:"currentValue"`
	Step         int64  `json:"step"`
}

// FromCounter creates CounterResponse from counter.Counter.
func FromCounter(c counter.Counter) CounterResponse {
	return CounterResponse{
		Name:         c.Name,
		CurrentValue: c.CurrentValue,
		Step:         c.Step,
	}
}

// ListResponse wraps list results.
type ListResponse[T any] struct {
	Items      []T `json:"items"`
	TotalCount int `json:"totalCount"`
}

// NextQuery selects the spec a preview is computed for.
type NextQuery struct {
	StartAt int64 `form:"startAt"`
	Step    int64 `form:"step"`
}

// AdvanceRequest advances a counter.
type AdvanceRequest struct {
	StartAt int64 `json:"startAt"`
	Step    int64 `json:"step"`
}

// SetCounterRequest overwrites a counter's state.
type SetCounterRequest struct {
	Value *int64 `json:"value" binding:"required"`
	Step  int64  `json:"step"`
}

// ValueResponse carries one issued or previewed value.
type ValueResponse struct {
	Name  string `json:"name"`
	Value int64  `json:"value"`
}

// SuccessResponse for operations without data.
type SuccessResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// ErrorResponse for error details.
type ErrorResponse struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}
