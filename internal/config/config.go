// Package config loads process configuration: an optional YAML file overlaid by
// environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"autoinc/internal/core/counter"
)

// Supported store drivers.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
	DriverMemory   = "memory"
)

// Config is the full process configuration.
type Config struct {
	Store    StoreConfig            `yaml:"store"`
	Log      LogConfig              `yaml:"log"`
	HTTP     HTTPConfig             `yaml:"http"`
	Counters map[string]CounterSeed `yaml:"counters"`
}

// StoreConfig selects and configures the counter store.
type StoreConfig struct {
	Driver          string        `yaml:"driver"`
	DSN             string        `yaml:"dsn"`
	Table           string        `yaml:"table"`
	ApplicationName string        `yaml:"applicationName"`
	MaxConns        int32         `yaml:"maxConns"`
	MinConns        int32         `yaml:"minConns"`
	MaxConnLifetime time.Duration `yaml:"maxConnLifetime"`
	BusyTimeoutMS   int           `yaml:"busyTimeoutMs"`
}

// LogConfig configures pkg/logger.
type LogConfig struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
}

// HTTPConfig configures the admin server.
type HTTPConfig struct {
	Port            string        `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"readTimeout"`
	WriteTimeout    time.Duration `yaml:"writeTimeout"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
}

// CounterSeed declares a counter to create at startup if it does not exist.
type CounterSeed struct {
	StartAt int64 `yaml:"startAt"`
	Step    int64 `yaml:"step"`
}

// Seed is a named CounterSeed.
type Seed struct {
	Name string
	CounterSeed
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Store: StoreConfig{
			Driver:          DriverMemory,
			Table:           counter.DefaultTable,
			ApplicationName: "autoinc",
			MaxConns:        10,
			MinConns:        1,
			MaxConnLifetime: time.Hour,
			BusyTimeoutMS:   5000,
		},
		Log: LogConfig{
			Level: "info",
		},
		HTTP: HTTPConfig{
			Port:            "8080",
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 30 * time.Second,
		},
	}
}

// Load builds the configuration from defaults, the YAML file at path (if set)
// and the environment, in that order, and validates it.
func Load(path string) (*Config, error) {
	cfg, err := Read(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Read is Load without validation, for callers that apply further overrides.
func Read(path string) (*Config, error) {
	cfg := Default()

	if clean := strings.TrimSpace(path); clean != "" {
		if err := cfg.loadFile(clean); err != nil {
			return nil, err
		}
	}

	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %q: %w", path, err)
	}
	dec := yaml.NewDecoder(strings.NewReader(string(data)))
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil {
		return fmt.Errorf("parse config %q: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() {
	c.Store.Driver = getEnv("AUTOINC_DRIVER", c.Store.Driver)
	c.Store.DSN = getEnv("AUTOINC_DSN", getEnv("DATABASE_URL", c.Store.DSN))
	c.Store.Table = getEnv("AUTOINC_TABLE", c.Store.Table)
	c.Store.MaxConns = int32(getEnvInt("DB_MAX_CONNS", int(c.Store.MaxConns)))
	c.Store.MinConns = int32(getEnvInt("DB_MIN_CONNS", int(c.Store.MinConns)))
	c.Store.MaxConnLifetime = getEnvDuration("DB_MAX_CONN_LIFETIME", c.Store.MaxConnLifetime)
	c.Store.BusyTimeoutMS = getEnvInt("SQLITE_BUSY_TIMEOUT_MS", c.Store.BusyTimeoutMS)

	c.Log.Level = getEnv("LOG_LEVEL", c.Log.Level)
	if env := os.Getenv("APP_ENV"); env != "" {
		c.Log.Development = env == "development"
	}

	c.HTTP.Port = getEnv("APP_PORT", c.HTTP.Port)
}

// Validate checks the configuration for consistency.
func (c *Config) Validate() error {
	var errs []error

	switch c.Store.Driver {
	case DriverPostgres, DriverSQLite:
		if strings.TrimSpace(c.Store.DSN) == "" {
			errs = append(errs, fmt.Errorf("store.dsn is required for driver %q", c.Store.Driver))
		}
	case DriverMemory:
	default:
		errs = append(errs, fmt.Errorf("unknown store driver %q", c.Store.Driver))
	}

	if err := counter.ValidateTableName(c.Store.Table); err != nil {
		errs = append(errs, err)
	}

	for _, s := range c.Seeds() {
		spec := counter.Spec{Name: s.Name, StartAt: s.StartAt, Step: s.Step}.Normalize()
		if err := spec.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("counters.%s: %w", s.Name, err))
			continue
		}
		// The seed is stored one step before startAt, which must fit in int64.
		if before := s.StartAt - s.Step; (s.Step > 0 && before > s.StartAt) || (s.Step < 0 && before < s.StartAt) {
			errs = append(errs, fmt.Errorf("counters.%s: startAt %d minus step %d is out of int64 range", s.Name, s.StartAt, s.Step))
		}
	}

	return errors.Join(errs...)
}

// Seeds returns the declared counters sorted by name, with zero steps defaulted to 1.
func (c *Config) Seeds() []Seed {
	out := make([]Seed, 0, len(c.Counters))
	for name, seed := range c.Counters {
		if seed.Step == 0 {
			seed.Step = 1
		}
		out = append(out, Seed{Name: name, CounterSeed: seed})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		var result int
		if _, err := fmt.Sscanf(value, "%d", &result); err == nil {
			return result
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
