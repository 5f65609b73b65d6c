package config

import (
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "autoinc.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, DriverMemory, cfg.Store.Driver)
	assert.Equal(t, "identity_counters", cfg.Store.Table)
	assert.Equal(t, "8080", cfg.HTTP.Port)
	assert.Empty(t, cfg.Seeds())
}

func TestLoad_File(t *testing.T) {
	path := writeConfig(t, `
store:
  driver: sqlite
  dsn: file:counters.db
  busyTimeoutMs: 250
log:
  level: debug
http:
  port: "9090"
  readTimeout: 5s
counters:
  orders:
    startAt: 1000
  invoices:
    startAt: 1
    step: 10
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, DriverSQLite, cfg.Store.Driver)
	assert.Equal(t, "file:counters.db", cfg.Store.DSN)
	assert.Equal(t, 250, cfg.Store.BusyTimeoutMS)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "9090", cfg.HTTP.Port)
	assert.Equal(t, 5*time.Second, cfg.HTTP.ReadTimeout)
	assert.Equal(t, 30*time.Second, cfg.HTTP.WriteTimeout)

	seeds := cfg.Seeds()
	require.Len(t, seeds, 2)
	assert.Equal(t, "invoices", seeds[0].Name)
	assert.Equal(t, int64(10), seeds[0].Step)
	assert.Equal(t, "orders", seeds[1].Name)
	assert.Equal(t, int64(1000), seeds[1].StartAt)
	assert.Equal(t, int64(1), seeds[1].Step)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeConfig(t, "store:\n  driver: sqlite\n  dsn: file:a.db\n")
	t.Setenv("AUTOINC_DRIVER", "postgres")
	t.Setenv("AUTOINC_DSN", "postgres://localhost/autoinc")
	t.Setenv("DB_MAX_CONNS", "25")
	t.Setenv("APP_PORT", "7070")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, DriverPostgres, cfg.Store.Driver)
	assert.Equal(t, "postgres://localhost/autoinc", cfg.Store.DSN)
	assert.Equal(t, int32(25), cfg.Store.MaxConns)
	assert.Equal(t, "7070", cfg.HTTP.Port)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"unknown driver", "store:\n  driver: mongo\n"},
		{"missing dsn", "store:\n  driver: postgres\n"},
		{"bad table", "store:\n  table: \"x; drop\"\n"},
		{"unknown key", "stroe:\n  driver: memory\n"},
		{"seed below int64 range", "counters:\n  low:\n    startAt: -9223372036854775808\n    step: 1\n"},
		{"descending seed above int64 range", "counters:\n  high:\n    startAt: 9223372036854775807\n    step: -1\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.body))
			assert.Error(t, err)
		})
	}
}

func TestValidate_SeedAtRangeEdge(t *testing.T) {
	cfg := Default()
	cfg.Counters = map[string]CounterSeed{"low": {StartAt: math.MinInt64, Step: 1}}
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "counters.low")

	cfg.Counters = map[string]CounterSeed{"low": {StartAt: math.MinInt64 + 1, Step: 1}}
	assert.NoError(t, cfg.Validate())
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
