package autoincrement

import (
	"context"
	"errors"

	"autoinc/internal/core/binder"
	"autoinc/internal/domain"
	"autoinc/internal/domain/sequence"
	"autoinc/internal/metadata"
)

var errPluginClosed = errors.New("autoincrement: plugin closed")

// Sequence is a record type's attachment to its counter.
type Sequence[T any] struct {
	assigner *sequence.Assigner
}

// Attach validates opts against T and registers the assignment hook on hooks.
// hooks may be nil, in which case the caller invokes BeforeSave itself.
func Attach[T any](p *Plugin, hooks *domain.HookRegistry[*T], opts Options) (*Sequence[T], error) {
	b, err := binder.New(new(T), opts)
	if err != nil {
		return nil, err
	}
	a := sequence.NewAssigner(b, p.registry)
	if hooks != nil {
		if err := sequence.Attach(hooks, a); err != nil {
			return nil, err
		}
	}
	p.bindings.Register(metadata.BindingDef{
		RecordType:        b.RecordType().String(),
		Counter:           b.CounterName(),
		Field:             b.Field(),
		PrimaryKey:        b.IsPrimaryKey(),
		StartAt:           b.StartAt(),
		Step:              b.Step(),
		IncrementOnUpdate: b.IncrementOnUpdate(),
	})
	p.log.Debugw("sequence attached",
		"record_type", b.RecordType().Name(),
		"counter", b.CounterName(),
		"field", b.Field(),
		"start_at", b.StartAt(),
		"step", b.Step(),
		"increment_on_update", b.IncrementOnUpdate())
	return &Sequence[T]{assigner: a}, nil
}

// Binding returns the validated binding.
func (s *Sequence[T]) Binding() *binder.Binding {
	return s.assigner.Binding()
}

// BeforeSave assigns the counter value to record according to state.
func (s *Sequence[T]) BeforeSave(ctx context.Context, record *T, state State) error {
	return s.assigner.BeforeSave(ctx, record, state)
}

// NextAutoIncrement previews the value the next qualifying save of a T will receive.
func (s *Sequence[T]) NextAutoIncrement(ctx context.Context) (int64, error) {
	return s.assigner.NextAutoIncrement(ctx)
}

// NextFor is NextAutoIncrement called through an instance; record does not affect the result.
func (s *Sequence[T]) NextFor(ctx context.Context, record *T) (int64, error) {
	return s.assigner.NextAutoIncrement(ctx)
}

// NextAutoIncrementAsync runs NextAutoIncrement in the background.
func (s *Sequence[T]) NextAutoIncrementAsync(ctx context.Context) *sequence.Future[int64] {
	return sequence.Go(ctx, s.assigner.NextAutoIncrement)
}
