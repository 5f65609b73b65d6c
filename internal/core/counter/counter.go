// Package counter provides domain contracts for durable named counters.
// Implementations live in the infrastructure layer.
package counter

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"autoinc/internal/core/apperror"
)

// DefaultTable is the table (collection) holding counter rows.
const DefaultTable = "identity_counters"

// Counter is the persisted state of one named sequence.
// CurrentValue is the last value issued.
type Counter struct {
	Name         string `db:"name" json:"name"`
	CurrentValue int64  `db:"current_value" json:"currentValue"`
	Step         int64  `db:"step" json:"step"`
}

// Next returns the value an advance by step would yield.
func (c Counter) Next(step int64) int64 {
	return c.CurrentValue + step
}

// ErrOverflow is the cause carried by COUNTER_OVERFLOW errors.
var ErrOverflow = errors.New("counter value out of int64 range")

// AddChecked returns value+step, or false when the sum leaves the int64 range.
func AddChecked(value, step int64) (int64, bool) {
	sum := value + step
	if (step > 0 && sum < value) || (step < 0 && sum > value) {
		return 0, false
	}
	return sum, true
}

// Spec identifies a counter and how it advances.
type Spec struct {
	Name    string
	StartAt int64
	Step    int64
}

// Normalize fills defaults: a zero step means 1.
func (s Spec) Normalize() Spec {
	if s.Step == 0 {
		s.Step = 1
	}
	return s
}

// Validate checks the spec can be sent to a store.
func (s Spec) Validate() error {
	if s.Name == "" {
		return apperror.NewValidation("counter name is required")
	}
	if s.Step == 0 {
		return apperror.NewValidation("counter step must not be zero").WithDetail("counter", s.Name)
	}
	return nil
}

// Store is the durable table of named counters.
//
// Advance is the only operation that moves a counter forward. It must be a single
// indivisible storage operation: insert the row with CurrentValue = startAt when
// absent (the first advance yields startAt), otherwise add step and return the new
// value. Concurrent callers, in this process or others, never receive the same value.
// An advance past the int64 range fails with COUNTER_OVERFLOW and leaves the row unchanged.
type Store interface {
	// Advance atomically creates-or-advances the counter and returns the new value.
	Advance(ctx context.Context, name string, startAt, step int64) (int64, error)

	// Get reads the counter without modifying it. Returns NOT_FOUND when absent.
	Get(ctx context.Context, name string) (Counter, error)

	// Seed creates the counter with CurrentValue = value only if it does not exist,
	// as one atomic insert-if-absent. An existing counter is never modified.
	Seed(ctx context.Context, name string, value, step int64) (created bool, err error)

	// Set overwrites the counter (administrative; for migrations).
	// The next Advance with the same step returns value + step.
	Set(ctx context.Context, name string, value, step int64) error

	// List returns all counters ordered by name.
	List(ctx context.Context) ([]Counter, error)

	// Ping checks the store is reachable.
	Ping(ctx context.Context) error

	// Close releases the underlying connection.
	Close() error
}

var tableNameRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]{0,62}$`)

// ValidateTableName guards table names that are spliced into SQL.
func ValidateTableName(name string) error {
	if !tableNameRe.MatchString(name) {
		return fmt.Errorf("invalid counter table name %q", name)
	}
	return nil
}
