package sequence

import (
	"context"
	"reflect"

	"autoinc/internal/core/apperror"
	"autoinc/internal/core/binder"
	"autoinc/internal/domain"
)

// State is where a record is in its save lifecycle.
type State int

const (
	// StateNew: the record has never been persisted.
	StateNew State = iota
	// StateExisting: the record was persisted before.
	StateExisting
)

func (s State) String() string {
	if s == StateExisting {
		return "existing"
	}
	return "new"
}

// Assigner fills a bound field from its counter before a record is saved.
type Assigner struct {
	binding  *binder.Binding
	registry *Registry
}

// NewAssigner creates an assigner for binding.
func NewAssigner(binding *binder.Binding, registry *Registry) *Assigner {
	return &Assigner{binding: binding, registry: registry}
}

// Binding returns the binding this assigner serves.
func (a *Assigner) Binding() *binder.Binding {
	return a.binding
}

// BeforeSave advances the counter at most once and assigns the result.
//
//   - StateNew: assigns when the bound field is unset, regardless of IncrementOnUpdate.
//   - StateExisting: overwrites only when IncrementOnUpdate is set.
//
// Any error leaves the record untouched and must abort the save.
func (a *Assigner) BeforeSave(ctx context.Context, record any, state State) error {
	switch state {
	case StateNew:
		_, set, err := a.binding.Read(record)
		if err != nil {
			return err
		}
		if set {
			return nil
		}
	case StateExisting:
		if !a.binding.IncrementOnUpdate() {
			return nil
		}
	}

	v, err := a.registry.GetNext(ctx, a.binding.Spec())
	if err != nil {
		return err
	}
	return a.binding.Assign(record, v)
}

// NextAutoIncrement previews the value the next qualifying save would receive.
func (a *Assigner) NextAutoIncrement(ctx context.Context) (int64, error) {
	return a.registry.PeekNext(ctx, a.binding.Spec())
}

// Attach registers the assigner on a record type's hook registry.
// T must be a pointer to the bound struct type.
func Attach[T any](hooks *domain.HookRegistry[T], a *Assigner) error {
	t := reflect.TypeOf((*T)(nil)).Elem()
	if t.Kind() != reflect.Ptr || t.Elem() != a.binding.RecordType() {
		return apperror.NewInvalidBinderConfig(a.binding.RecordType().Name(),
			"hooks must be registered for a pointer to the bound record type").
			WithDetail("hook_type", t.String())
	}

	hooks.OnBeforeCreate(func(ctx context.Context, record T) error {
		return a.BeforeSave(ctx, record, StateNew)
	})
	hooks.OnBeforeUpdate(func(ctx context.Context, record T) error {
		return a.BeforeSave(ctx, record, StateExisting)
	})
	return nil
}
