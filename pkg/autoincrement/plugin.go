// Package autoincrement assigns monotonically advancing integers to records
// before they are saved, backed by a shared counter store.
//
// Usage:
//
//	p, err := autoincrement.Initialize(store)
//	defer p.Close()
//
//	hooks := autoincrement.NewHooks[User]()
//	seq, err := autoincrement.Attach(p, hooks, autoincrement.Options{Model: "users"})
//	svc := domain.NewRecordService(domain.RecordServiceConfig[*User]{Repo: repo, Hooks: hooks})
package autoincrement

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel/metric"

	"autoinc/internal/core/apperror"
	"autoinc/internal/core/binder"
	"autoinc/internal/core/counter"
	"autoinc/internal/domain"
	"autoinc/internal/domain/sequence"
	"autoinc/internal/metadata"
	"autoinc/pkg/logger"
)

// Options configure how a record type draws from its counter.
type Options = binder.Options

// State is passed to BeforeSave.
type State = sequence.State

const (
	StateNew      = sequence.StateNew
	StateExisting = sequence.StateExisting
)

// Option configures a Plugin.
type Option func(*pluginOptions)

type pluginOptions struct {
	log   *logger.Logger
	meter metric.Meter
}

// WithLogger sets the plugin logger.
func WithLogger(l *logger.Logger) Option {
	return func(o *pluginOptions) { o.log = l }
}

// WithMeter sets the meter for counter metrics.
func WithMeter(m metric.Meter) Option {
	return func(o *pluginOptions) { o.meter = m }
}

// Plugin owns a counter store and the registry in front of it.
// Create one per process with Initialize and release it with Close.
type Plugin struct {
	store    *guardedStore
	registry *sequence.Registry
	bindings *metadata.Registry
	log      *logger.Logger
}

// Initialize binds the plugin to store. The plugin takes ownership of store.
func Initialize(store counter.Store, opts ...Option) (*Plugin, error) {
	if store == nil {
		return nil, apperror.NewValidation("counter store is required")
	}
	o := pluginOptions{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.log == nil {
		o.log = logger.Default()
	}

	guarded := &guardedStore{Store: store}
	regOpts := []sequence.RegistryOption{sequence.WithLogger(o.log)}
	if o.meter != nil {
		regOpts = append(regOpts, sequence.WithMeter(o.meter))
	}
	registry, err := sequence.NewRegistry(guarded, regOpts...)
	if err != nil {
		return nil, err
	}

	return &Plugin{
		store:    guarded,
		registry: registry,
		bindings: metadata.NewRegistry(),
		log:      o.log.WithComponent("autoincrement"),
	}, nil
}

// Registry returns the counter registry.
func (p *Plugin) Registry() *sequence.Registry {
	return p.registry
}

// Bindings returns the catalog of sequences attached through this plugin.
func (p *Plugin) Bindings() *metadata.Registry {
	return p.bindings
}

// Store returns the plugin's counter store. After Close every call fails.
func (p *Plugin) Store() counter.Store {
	return p.store
}

// Close releases the store. Further counter calls return STORE_UNAVAILABLE.
func (p *Plugin) Close() error {
	if !p.store.close() {
		return nil
	}
	p.log.Info("counter store closed")
	return p.store.Store.Close()
}

// NewHooks returns an empty hook registry for records of type *T.
func NewHooks[T any]() *domain.HookRegistry[*T] {
	return domain.NewHookRegistry[*T]()
}

// guardedStore rejects calls once the plugin is closed.
type guardedStore struct {
	counter.Store

	mu     sync.RWMutex
	closed bool
}

func (g *guardedStore) close() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.closed {
		return false
	}
	g.closed = true
	return true
}

func (g *guardedStore) check(name string) error {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if g.closed {
		return apperror.NewStoreUnavailable(name, errPluginClosed)
	}
	return nil
}

func (g *guardedStore) Advance(ctx context.Context, name string, startAt, step int64) (int64, error) {
	if err := g.check(name); err != nil {
		return 0, err
	}
	return g.Store.Advance(ctx, name, startAt, step)
}

func (g *guardedStore) Get(ctx context.Context, name string) (counter.Counter, error) {
	if err := g.check(name); err != nil {
		return counter.Counter{}, err
	}
	return g.Store.Get(ctx, name)
}

func (g *guardedStore) Seed(ctx context.Context, name string, value, step int64) (bool, error) {
	if err := g.check(name); err != nil {
		return false, err
	}
	return g.Store.Seed(ctx, name, value, step)
}

func (g *guardedStore) Set(ctx context.Context, name string, value, step int64) error {
	if err := g.check(name); err != nil {
		return err
	}
	return g.Store.Set(ctx, name, value, step)
}

func (g *guardedStore) List(ctx context.Context) ([]counter.Counter, error) {
	if err := g.check(""); err != nil {
		return nil, err
	}
	return g.Store.List(ctx)
}

func (g *guardedStore) Ping(ctx context.Context) error {
	if err := g.check(""); err != nil {
		return err
	}
	return g.Store.Ping(ctx)
}
