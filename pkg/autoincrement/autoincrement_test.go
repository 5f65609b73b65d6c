package autoincrement

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"autoinc/internal/core/apperror"
	"autoinc/internal/core/counter"
	"autoinc/internal/domain"
	"autoinc/internal/infrastructure/storage/memory"
	"autoinc/internal/infrastructure/storage/sqlite"
	"autoinc/pkg/logger"
)

type User struct {
	ID        int64  `db:"id" json:"_id"`
	Name      string `db:"name"`
	Dept      string `db:"dept"`
	Sequence  *int64 `db:"sequence"`
	NextField *int64 `db:"next_field" json:"nextField"`
}

type userRepo struct {
	mu   sync.Mutex
	rows map[int64]User
}

func (r *userRepo) Create(ctx context.Context, u *User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.rows == nil {
		r.rows = make(map[int64]User)
	}
	r.rows[u.ID] = *u
	return nil
}

func (r *userRepo) Update(ctx context.Context, u *User) error {
	return r.Create(ctx, u)
}

func newPlugin(t *testing.T, store counter.Store) *Plugin {
	t.Helper()
	p, err := Initialize(store, WithLogger(logger.NewNop()))
	require.NoError(t, err)
	t.Cleanup(func() { _ = p.Close() })
	return p
}

func newUserService(t *testing.T, p *Plugin, opts Options) (*domain.RecordService[*User], *Sequence[User]) {
	t.Helper()
	hooks := NewHooks[User]()
	seq, err := Attach(p, hooks, opts)
	require.NoError(t, err)
	svc := domain.NewRecordService(domain.RecordServiceConfig[*User]{
		Repo:       &userRepo{},
		Hooks:      hooks,
		RecordName: "user",
	})
	return svc, seq
}

func stores(t *testing.T) map[string]func() counter.Store {
	return map[string]func() counter.Store{
		"memory": func() counter.Store { return memory.NewCounterStore() },
		"sqlite": func() counter.Store {
			s, err := sqlite.NewCounterStore(sqlite.Config{DSN: "file:" + t.TempDir() + "/counters.db"})
			require.NoError(t, err)
			return s
		},
	}
}

func TestAutoIncrement_PrimaryIdentifier(t *testing.T) {
	for name, open := range stores(t) {
		t.Run(name, func(t *testing.T) {
			svc, _ := newUserService(t, newPlugin(t, open()), Options{Model: "ai_id"})

			u := &User{Name: "Name test", Dept: "Department test"}
			require.NoError(t, svc.Create(context.Background(), u))
			assert.Equal(t, int64(0), u.ID)
		})
	}
}

func TestAutoIncrement_AnotherField(t *testing.T) {
	svc, _ := newUserService(t, newPlugin(t, memory.NewCounterStore()),
		Options{Model: "ai_another_field", Field: "sequence"})

	u := &User{ID: 100, Name: "Name test"}
	require.NoError(t, svc.Create(context.Background(), u))
	require.NotNil(t, u.Sequence)
	assert.Equal(t, int64(0), *u.Sequence)
	assert.Equal(t, int64(100), u.ID)
}

func TestAutoIncrement_StartAt(t *testing.T) {
	svc, _ := newUserService(t, newPlugin(t, memory.NewCounterStore()),
		Options{Model: "ai_start_at", StartAt: 3})

	u := &User{Name: "Name test"}
	require.NoError(t, svc.Create(context.Background(), u))
	assert.Equal(t, int64(3), u.ID)
}

func TestAutoIncrement_IncrementBy(t *testing.T) {
	svc, _ := newUserService(t, newPlugin(t, memory.NewCounterStore()),
		Options{Model: "incrementBy", IncrementBy: 5})
	ctx := context.Background()

	u1 := &User{Name: "Name test"}
	require.NoError(t, svc.Create(ctx, u1))
	u2 := &User{Name: "Name test 2"}
	require.NoError(t, svc.Create(ctx, u2))

	assert.Equal(t, int64(0), u1.ID)
	assert.Equal(t, int64(5), u2.ID)
}

func TestAutoIncrement_IncrementOnUpdate(t *testing.T) {
	svc, _ := newUserService(t, newPlugin(t, memory.NewCounterStore()),
		Options{Model: "incrementOnUpdate", Field: "sequence", IncrementOnUpdate: true})
	ctx := context.Background()

	u := &User{ID: 1, Name: "Name test"}
	require.NoError(t, svc.Create(ctx, u))
	require.NotNil(t, u.Sequence)
	assert.Equal(t, int64(0), *u.Sequence)

	u.Name = "Name change test"
	require.NoError(t, svc.Update(ctx, u))
	assert.Equal(t, int64(1), *u.Sequence)
}

func TestAutoIncrement_IncrementOnUpdateRejectedForPrimaryIdentifier(t *testing.T) {
	p := newPlugin(t, memory.NewCounterStore())
	_, err := Attach(p, NewHooks[User](), Options{Model: "bad", IncrementOnUpdate: true})
	assert.True(t, apperror.IsInvalidBinderConfig(err))
}

func TestAutoIncrement_NextAutoIncrement(t *testing.T) {
	svc, seq := newUserService(t, newPlugin(t, memory.NewCounterStore()),
		Options{Model: "next", Field: "nextField"})
	ctx := context.Background()

	u := &User{ID: 1, Name: "name test"}
	next, err := seq.NextFor(ctx, u)
	require.NoError(t, err)
	assert.Equal(t, int64(0), next)

	require.NoError(t, svc.Create(ctx, u))
	assert.Equal(t, int64(0), *u.NextField)

	next, err = seq.NextFor(ctx, u)
	require.NoError(t, err)
	assert.Equal(t, int64(1), next)

	u2 := &User{ID: 2, Name: "name test2"}
	require.NoError(t, svc.Create(ctx, u2))
	assert.Equal(t, int64(1), *u2.NextField)

	next, err = seq.NextAutoIncrement(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), next)
}

func TestAutoIncrement_NextAutoIncrementAsync(t *testing.T) {
	_, seq := newUserService(t, newPlugin(t, memory.NewCounterStore()), Options{StartAt: 10})

	v, err := seq.NextAutoIncrementAsync(context.Background()).Await(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(10), v)
}

func TestAutoIncrement_ConcurrentCreatesAcrossPlugins(t *testing.T) {
	dsn := "file:" + t.TempDir() + "/shared.db"
	const perPlugin = 25

	var (
		mu  sync.Mutex
		ids = make(map[int64]bool)
		wg  sync.WaitGroup
	)
	for i := 0; i < 2; i++ {
		store, err := sqlite.NewCounterStore(sqlite.Config{DSN: dsn})
		require.NoError(t, err)
		svc, _ := newUserService(t, newPlugin(t, store), Options{Model: "shared_users", StartAt: 1})

		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perPlugin; j++ {
				u := &User{Name: "u"}
				if !assert.NoError(t, svc.Create(context.Background(), u)) {
					return
				}
				mu.Lock()
				assert.False(t, ids[u.ID], "duplicate id %d", u.ID)
				ids[u.ID] = true
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Len(t, ids, 2*perPlugin)
}

func TestPlugin_UseAfterClose(t *testing.T) {
	p, err := Initialize(memory.NewCounterStore(), WithLogger(logger.NewNop()))
	require.NoError(t, err)
	svc, seq := newUserService(t, p, Options{Model: "closed"})

	require.NoError(t, p.Close())
	require.NoError(t, p.Close())

	u := &User{Name: "late"}
	err = svc.Create(context.Background(), u)
	assert.True(t, apperror.IsStoreUnavailable(err))
	assert.Equal(t, int64(0), u.ID)

	_, err = seq.NextAutoIncrement(context.Background())
	assert.True(t, apperror.IsStoreUnavailable(err))

	_, err = p.Store().Seed(context.Background(), "closed", 0, 1)
	assert.True(t, apperror.IsStoreUnavailable(err))
}

func TestPlugin_BindingsCatalog(t *testing.T) {
	p := newPlugin(t, memory.NewCounterStore())
	_, err := Attach(p, NewHooks[User](), Options{Model: "users", Field: "sequence", IncrementBy: 2})
	require.NoError(t, err)

	list := p.Bindings().List()
	require.Len(t, list, 1)
	assert.Equal(t, "autoincrement.User", list[0].RecordType)
	assert.Equal(t, "users", list[0].Counter)
	assert.Equal(t, "Sequence", list[0].Field)
	assert.False(t, list[0].PrimaryKey)
	assert.Equal(t, int64(2), list[0].Step)
}

func TestInitialize_RequiresStore(t *testing.T) {
	_, err := Initialize(nil)
	assert.Error(t, err)
}
