package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"autoinc/internal/config"
	"autoinc/internal/core/counter"
	"autoinc/internal/infrastructure/storage/memory"
	"autoinc/pkg/logger"
)

// executeCommand runs a fresh command tree with args and captures stdout.
func executeCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := NewRootCmd("test")
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func sqliteArgs(t *testing.T) []string {
	t.Helper()
	dsn := "file:" + filepath.Join(t.TempDir(), "counters.db")
	return []string{"--driver", "sqlite", "--dsn", dsn, "--log-level", "error"}
}

func run(t *testing.T, base []string, args ...string) string {
	t.Helper()
	out, err := executeCommand(t, append(args, base...)...)
	require.NoError(t, err)
	return strings.TrimSpace(out)
}

func TestNextAndPeek_PersistAcrossInvocations(t *testing.T) {
	base := sqliteArgs(t)

	assert.Equal(t, "0", run(t, base, "peek", "orders"))
	assert.Equal(t, "0", run(t, base, "next", "orders"))
	assert.Equal(t, "1", run(t, base, "next", "orders"))
	assert.Equal(t, "2", run(t, base, "peek", "orders"))
	assert.Equal(t, "2", run(t, base, "next", "orders"))
}

func TestNext_StartAtAndStep(t *testing.T) {
	base := sqliteArgs(t)

	assert.Equal(t, "100", run(t, base, "next", "invoices", "--start-at", "100", "--step", "10"))
	assert.Equal(t, "110", run(t, base, "next", "invoices", "--start-at", "100", "--step", "10"))
}

func TestSetAndList(t *testing.T) {
	base := sqliteArgs(t)

	run(t, base, "set", "b", "41")
	run(t, base, "set", "a", "7", "--step", "3")

	out := run(t, base, "list")
	lines := strings.Split(out, "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[0], "NAME")
	assert.Equal(t, []string{"a", "7", "3"}, strings.Fields(lines[1]))
	assert.Equal(t, []string{"b", "41", "1"}, strings.Fields(lines[2]))

	assert.Equal(t, "42", run(t, base, "next", "b"))
}

func TestSet_InvalidValue(t *testing.T) {
	_, err := executeCommand(t, append([]string{"set", "a", "seven"}, sqliteArgs(t)...)...)
	var exitErr *ExitError
	require.ErrorAs(t, err, &exitErr)
	assert.Equal(t, 2, exitErr.Code)
}

func TestConfig_SeedsAppliedOnce(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "autoinc.yaml")
	body := "store:\n  driver: sqlite\n  dsn: file:" + filepath.Join(dir, "c.db") + "\n" +
		"log:\n  level: error\n" +
		"counters:\n  tickets:\n    startAt: 1000\n    step: 5\n"
	require.NoError(t, os.WriteFile(cfgPath, []byte(body), 0o600))

	base := []string{"--config", cfgPath}
	assert.Equal(t, "1000", run(t, base, "peek", "tickets", "--step", "5"))
	assert.Equal(t, "1000", run(t, base, "next", "tickets", "--step", "5"))
	assert.Equal(t, "1005", run(t, base, "next", "tickets", "--step", "5"))
}

// lateSeedStore lets another process seed and advance the counter right
// before this process seeds it.
type lateSeedStore struct {
	counter.Store
	other func()
}

func (s *lateSeedStore) Seed(ctx context.Context, name string, value, step int64) (bool, error) {
	s.other()
	return s.Store.Seed(ctx, name, value, step)
}

func TestApplySeeds_DoesNotRewindAdvancedCounter(t *testing.T) {
	ctx := context.Background()
	shared := memory.NewCounterStore()
	seeds := []config.Seed{{Name: "orders", CounterSeed: config.CounterSeed{StartAt: 100, Step: 1}}}

	var issuedByOther int64
	store := &lateSeedStore{Store: shared, other: func() {
		require.NoError(t, applySeeds(ctx, shared, seeds, logger.NewNop()))
		v, err := shared.Advance(ctx, "orders", 100, 1)
		require.NoError(t, err)
		issuedByOther = v
	}}

	require.NoError(t, applySeeds(ctx, store, seeds, logger.NewNop()))
	assert.Equal(t, int64(100), issuedByOther)

	v, err := shared.Advance(ctx, "orders", 100, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(101), v)
}

func TestApplySeeds_ConcurrentStartupsIssueDistinctValues(t *testing.T) {
	ctx := context.Background()
	shared := memory.NewCounterStore()
	seeds := []config.Seed{{Name: "orders", CounterSeed: config.CounterSeed{StartAt: 100, Step: 1}}}
	const procs = 8

	var mu sync.Mutex
	seen := make(map[int64]bool)
	var wg sync.WaitGroup
	for i := 0; i < procs; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if !assert.NoError(t, applySeeds(ctx, shared, seeds, logger.NewNop())) {
				return
			}
			v, err := shared.Advance(ctx, "orders", 100, 1)
			if !assert.NoError(t, err) {
				return
			}
			mu.Lock()
			assert.False(t, seen[v], "duplicate value %d", v)
			seen[v] = true
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Len(t, seen, procs)
	for v := int64(100); v < 100+procs; v++ {
		assert.True(t, seen[v], "missing value %d", v)
	}
}

func TestInvalidDriver(t *testing.T) {
	_, err := executeCommand(t, "list", "--driver", "mongo")
	var exitErr *ExitError
	require.ErrorAs(t, err, &exitErr)
	assert.Equal(t, 2, exitErr.Code)
}

func TestRootCmd_HasSubcommands(t *testing.T) {
	root := NewRootCmd("test")
	names := make(map[string]bool)
	for _, c := range root.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"serve", "next", "peek", "set", "list"} {
		assert.True(t, names[want], "missing %s", want)
	}
}
