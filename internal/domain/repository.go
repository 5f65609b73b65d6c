// Package domain provides the record save pipeline that counter assignment plugs into.
package domain

import (
	"context"
)

// Repository persists records of one type. Implemented by the record-modeling layer.
type Repository[T any] interface {
	// Create inserts a new record
	Create(ctx context.Context, record T) error

	// Update modifies an existing record
	Update(ctx context.Context, record T) error
}
