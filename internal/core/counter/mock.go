package counter

import (
	"context"
)

// MockStore is a test implementation of Store.
// Use in unit tests to avoid database dependencies.
type MockStore struct {
	AdvanceFunc func(ctx context.Context, name string, startAt, step int64) (int64, error)
	GetFunc     func(ctx context.Context, name string) (Counter, error)
	SeedFunc    func(ctx context.Context, name string, value, step int64) (bool, error)
	SetFunc     func(ctx context.Context, name string, value, step int64) error
	ListFunc    func(ctx context.Context) ([]Counter, error)
	PingFunc    func(ctx context.Context) error
	CloseFunc   func() error
}

// Advance implements Store.
func (m *MockStore) Advance(ctx context.Context, name string, startAt, step int64) (int64, error) {
	if m.AdvanceFunc != nil {
		return m.AdvanceFunc(ctx, name, startAt, step)
	}
	return startAt, nil
}

// Get implements Store.
func (m *MockStore) Get(ctx context.Context, name string) (Counter, error) {
	if m.GetFunc != nil {
		return m.GetFunc(ctx, name)
	}
	return Counter{}, nil
}

// Seed implements Store.
func (m *MockStore) Seed(ctx context.Context, name string, value, step int64) (bool, error) {
	if m.SeedFunc != nil {
		return m.SeedFunc(ctx, name, value, step)
	}
	return true, nil
}

// Set implements Store.
func (m *MockStore) Set(ctx context.Context, name string, value, step int64) error {
	if m.SetFunc != nil {
		return m.SetFunc(ctx, name, value, step)
	}
	return nil
}

// List implements Store.
func (m *MockStore) List(ctx context.Context) ([]Counter, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx)
	}
	return nil, nil
}

// Ping implements Store.
func (m *MockStore) Ping(ctx context.Context) error {
	if m.PingFunc != nil {
		return m.PingFunc(ctx)
	}
	return nil
}

// Close implements Store.
func (m *MockStore) Close() error {
	if m.CloseFunc != nil {
		return m.CloseFunc()
	}
	return nil
}

// Ensure compile-time interface compliance.
var _ Store = (*MockStore)(nil)
