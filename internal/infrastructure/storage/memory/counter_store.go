// Package memory provides a process-local counter store.
// Sequences are not shared between processes; use it for tests and single-instance tools.
package memory

import (
	"context"
	"errors"
	"sort"
	"sync"

	"autoinc/internal/core/apperror"
	"autoinc/internal/core/counter"
)

var errClosed = errors.New("memory counter store is closed")

// CounterStore keeps counters in a map guarded by a mutex.
type CounterStore struct {
	mu       sync.Mutex
	counters map[string]*counter.Counter
	closed   bool
}

// Ensure compile-time interface compliance.
var _ counter.Store = (*CounterStore)(nil)

// NewCounterStore creates an empty store.
func NewCounterStore() *CounterStore {
	return &CounterStore{counters: make(map[string]*counter.Counter)}
}

// Advance implements counter.Store.
func (s *CounterStore) Advance(ctx context.Context, name string, startAt, step int64) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, apperror.NewStoreUnavailable(name, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return 0, apperror.NewStoreUnavailable(name, errClosed)
	}

	c, ok := s.counters[name]
	if !ok {
		s.counters[name] = &counter.Counter{Name: name, CurrentValue: startAt, Step: step}
		return startAt, nil
	}
	next, ok := counter.AddChecked(c.CurrentValue, step)
	if !ok {
		return 0, apperror.NewCounterOverflow(name, counter.ErrOverflow)
	}
	c.CurrentValue = next
	return next, nil
}

// Get implements counter.Store.
func (s *CounterStore) Get(ctx context.Context, name string) (counter.Counter, error) {
	if err := ctx.Err(); err != nil {
		return counter.Counter{}, apperror.NewStoreUnavailable(name, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return counter.Counter{}, apperror.NewStoreUnavailable(name, errClosed)
	}
	c, ok := s.counters[name]
	if !ok {
		return counter.Counter{}, apperror.NewNotFound("counter", name)
	}
	return *c, nil
}

// Seed implements counter.Store.
func (s *CounterStore) Seed(ctx context.Context, name string, value, step int64) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, apperror.NewStoreUnavailable(name, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return false, apperror.NewStoreUnavailable(name, errClosed)
	}
	if _, ok := s.counters[name]; ok {
		return false, nil
	}
	s.counters[name] = &counter.Counter{Name: name, CurrentValue: value, Step: step}
	return true, nil
}

// Set implements counter.Store.
func (s *CounterStore) Set(ctx context.Context, name string, value, step int64) error {
	if err := ctx.Err(); err != nil {
		return apperror.NewStoreUnavailable(name, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return apperror.NewStoreUnavailable(name, errClosed)
	}
	s.counters[name] = &counter.Counter{Name: name, CurrentValue: value, Step: step}
	return nil
}

// List implements counter.Store.
func (s *CounterStore) List(ctx context.Context) ([]counter.Counter, error) {
	if err := ctx.Err(); err != nil {
		return nil, apperror.NewStoreUnavailable("", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, apperror.NewStoreUnavailable("", errClosed)
	}
	out := make([]counter.Counter, 0, len(s.counters))
	for _, c := range s.counters {
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// Ping implements counter.Store.
func (s *CounterStore) Ping(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return apperror.NewStoreUnavailable("", errClosed)
	}
	return nil
}

// Close implements counter.Store. Later calls fail with STORE_UNAVAILABLE.
func (s *CounterStore) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}
