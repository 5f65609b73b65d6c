package sequence

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/metric/noop"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"autoinc/internal/core/apperror"
	"autoinc/internal/core/counter"
	"autoinc/internal/infrastructure/storage/memory"
	"autoinc/pkg/logger"
)

func newTestRegistry(t *testing.T, store counter.Store) *Registry {
	t.Helper()
	r, err := NewRegistry(store,
		WithLogger(logger.NewNop()),
		WithMeter(noop.NewMeterProvider().Meter("test")),
	)
	require.NoError(t, err)
	return r
}

func TestRegistry_GetNextSequence(t *testing.T) {
	r := newTestRegistry(t, memory.NewCounterStore())
	ctx := context.Background()
	spec := counter.Spec{Name: "ai_increment_by", StartAt: 0, Step: 5}

	var got []int64
	for i := 0; i < 3; i++ {
		v, err := r.GetNext(ctx, spec)
		require.NoError(t, err)
		got = append(got, v)
	}
	assert.Equal(t, []int64{0, 5, 10}, got)
	assert.True(t, r.registered("ai_increment_by"))
}

func TestRegistry_PeekDoesNotAdvance(t *testing.T) {
	r := newTestRegistry(t, memory.NewCounterStore())
	ctx := context.Background()
	spec := counter.Spec{Name: "ai_start_at", StartAt: 3}

	p1, err := r.PeekNext(ctx, spec)
	require.NoError(t, err)
	p2, err := r.PeekNext(ctx, spec)
	require.NoError(t, err)
	assert.Equal(t, int64(3), p1)
	assert.Equal(t, p1, p2)

	v, err := r.GetNext(ctx, spec)
	require.NoError(t, err)
	assert.Equal(t, p1, v)

	p3, err := r.PeekNext(ctx, spec)
	require.NoError(t, err)
	assert.Equal(t, int64(4), p3)
}

func TestRegistry_ZeroStepDefaultsToOne(t *testing.T) {
	r := newTestRegistry(t, memory.NewCounterStore())
	ctx := context.Background()

	_, err := r.GetNext(ctx, counter.Spec{Name: "c"})
	require.NoError(t, err)
	v, err := r.GetNext(ctx, counter.Spec{Name: "c"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), v)
}

func TestRegistry_RejectsEmptyName(t *testing.T) {
	r := newTestRegistry(t, &counter.MockStore{})
	_, err := r.GetNext(context.Background(), counter.Spec{Step: 1})
	assert.Error(t, err)
}

func TestRegistry_StoreErrorsPassThrough(t *testing.T) {
	cause := apperror.NewStoreUnavailable("ai_id", errors.New("connection refused"))
	store := &counter.MockStore{
		AdvanceFunc: func(ctx context.Context, name string, startAt, step int64) (int64, error) {
			return 0, cause
		},
		GetFunc: func(ctx context.Context, name string) (counter.Counter, error) {
			return counter.Counter{}, cause
		},
	}
	r := newTestRegistry(t, store)
	spec := counter.Spec{Name: "ai_id", Step: 1}

	_, err := r.GetNext(context.Background(), spec)
	assert.Same(t, cause, err)

	_, err = r.PeekNext(context.Background(), spec)
	assert.Same(t, cause, err)
}

func TestRegistry_NoRetryOnFailure(t *testing.T) {
	calls := 0
	store := &counter.MockStore{
		AdvanceFunc: func(ctx context.Context, name string, startAt, step int64) (int64, error) {
			calls++
			return 0, apperror.NewConcurrentInitConflict(name, errors.New("duplicate key"))
		},
	}
	r := newTestRegistry(t, store)

	_, err := r.GetNext(context.Background(), counter.Spec{Name: "x", Step: 1})
	assert.True(t, apperror.IsStoreUnavailable(err))
	assert.Equal(t, 1, calls)
}

func TestRegistry_ConcurrentGetNextIsUnique(t *testing.T) {
	r := newTestRegistry(t, memory.NewCounterStore())
	ctx := context.Background()
	spec := counter.Spec{Name: "orders", StartAt: 1, Step: 1}
	const n = 200

	var (
		mu   sync.Mutex
		seen = make(map[int64]bool, n)
		wg   sync.WaitGroup
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, err := r.GetNext(ctx, spec)
			if !assert.NoError(t, err) {
				return
			}
			mu.Lock()
			seen[v] = true
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Len(t, seen, n)
	for v := int64(1); v <= n; v++ {
		assert.True(t, seen[v], "missing %d", v)
	}
}

func TestRegistry_WarnsOnSharedCounterWithDifferentStep(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	r, err := NewRegistry(memory.NewCounterStore(), WithLogger(logger.NewFromZap(zap.New(core))))
	require.NoError(t, err)
	ctx := context.Background()

	_, err = r.GetNext(ctx, counter.Spec{Name: "shared", Step: 1})
	require.NoError(t, err)
	_, err = r.GetNext(ctx, counter.Spec{Name: "shared", Step: 1})
	require.NoError(t, err)
	assert.Equal(t, 0, logs.Len())

	v, err := r.GetNext(ctx, counter.Spec{Name: "shared", Step: 10})
	require.NoError(t, err)
	assert.Equal(t, int64(11), v)

	warnings := logs.FilterMessage("counter shared with different settings").All()
	require.Len(t, warnings, 1)
	assert.Equal(t, "shared", warnings[0].ContextMap()["counter"])
}
