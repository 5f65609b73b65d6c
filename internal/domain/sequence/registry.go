// Package sequence hands out counter values to records: the registry in front of
// the counter store, and the assignment hook that runs before a record is saved.
package sequence

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"autoinc/internal/core/apperror"
	"autoinc/internal/core/counter"
	"autoinc/pkg/logger"
)

// Registry fronts a counter.Store. It caches no values: every GetNext is one
// store round-trip, so sibling processes sharing the store stay consistent.
// It only remembers which counter names this process has registered.
type Registry struct {
	store counter.Store
	log   *logger.Logger
	known sync.Map // name -> counter.Spec

	advances metric.Int64Counter
	failures metric.Int64Counter
}

// RegistryOption configures a Registry.
type RegistryOption func(*registryOptions)

type registryOptions struct {
	log   *logger.Logger
	meter metric.Meter
}

// WithLogger sets the registry logger.
func WithLogger(l *logger.Logger) RegistryOption {
	return func(o *registryOptions) { o.log = l }
}

// WithMeter sets the meter used for advance/failure counters.
func WithMeter(m metric.Meter) RegistryOption {
	return func(o *registryOptions) { o.meter = m }
}

// NewRegistry creates a registry over store.
func NewRegistry(store counter.Store, opts ...RegistryOption) (*Registry, error) {
	o := registryOptions{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.log == nil {
		o.log = logger.Default()
	}
	if o.meter == nil {
		o.meter = otel.Meter("autoinc/sequence")
	}

	advances, err := o.meter.Int64Counter("autoinc.counter.advances",
		metric.WithDescription("Number of counter values issued"),
	)
	if err != nil {
		return nil, err
	}
	failures, err := o.meter.Int64Counter("autoinc.counter.errors",
		metric.WithDescription("Number of failed counter operations"),
	)
	if err != nil {
		return nil, err
	}

	return &Registry{
		store:    store,
		log:      o.log.WithComponent("counter-registry"),
		advances: advances,
		failures: failures,
	}, nil
}

// register records the first spec seen for a counter name.
// Counters may be shared between record types; a differing step is allowed but logged.
func (r *Registry) register(ctx context.Context, spec counter.Spec) {
	prev, loaded := r.known.LoadOrStore(spec.Name, spec)
	if !loaded {
		r.log.WithContext(ctx).Debugw("counter registered",
			"counter", spec.Name, "start_at", spec.StartAt, "step", spec.Step)
		return
	}
	if p := prev.(counter.Spec); p.Step != spec.Step || p.StartAt != spec.StartAt {
		r.log.WithContext(ctx).Warnw("counter shared with different settings",
			"counter", spec.Name,
			"step", spec.Step, "registered_step", p.Step,
			"start_at", spec.StartAt, "registered_start_at", p.StartAt)
	}
}

// registered reports whether name has been registered in this process.
func (r *Registry) registered(name string) bool {
	_, ok := r.known.Load(name)
	return ok
}

// GetNext advances the counter and returns the new value.
// Store errors are returned unchanged and never retried.
func (r *Registry) GetNext(ctx context.Context, spec counter.Spec) (int64, error) {
	spec = spec.Normalize()
	if err := spec.Validate(); err != nil {
		return 0, err
	}
	r.register(ctx, spec)

	attrs := metric.WithAttributes(attribute.String("counter", spec.Name))
	v, err := r.store.Advance(ctx, spec.Name, spec.StartAt, spec.Step)
	if err != nil {
		r.failures.Add(ctx, 1, attrs)
		r.log.WithContext(ctx).Warnw("counter advance failed", "counter", spec.Name, "error", err)
		return 0, err
	}
	r.advances.Add(ctx, 1, attrs)
	return v, nil
}

// PeekNext returns the value the next GetNext with the same spec would return,
// without modifying the store.
func (r *Registry) PeekNext(ctx context.Context, spec counter.Spec) (int64, error) {
	spec = spec.Normalize()
	if err := spec.Validate(); err != nil {
		return 0, err
	}
	r.register(ctx, spec)

	c, err := r.store.Get(ctx, spec.Name)
	if err != nil {
		if apperror.IsNotFound(err) {
			return spec.StartAt, nil
		}
		r.failures.Add(ctx, 1, metric.WithAttributes(attribute.String("counter", spec.Name)))
		return 0, err
	}
	return c.Next(spec.Step), nil
}
