// Package cli implements the autoinc command line.
package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"autoinc/internal/config"
	"autoinc/internal/core/counter"
	"autoinc/internal/infrastructure/storage/memory"
	"autoinc/internal/infrastructure/storage/postgres"
	"autoinc/internal/infrastructure/storage/sqlite"
	"autoinc/pkg/autoincrement"
	"autoinc/pkg/logger"
)

// app is the process wiring shared by every subcommand.
type app struct {
	cfg    *config.Config
	log    *logger.Logger
	plugin *autoincrement.Plugin
}

func (r *app) Close() error {
	err := r.plugin.Close()
	_ = r.log.Sync()
	return err
}

// loadConfig reads the config file and applies persistent flag overrides.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Read(path)
	if err != nil {
		return nil, err
	}

	if cmd.Flags().Changed("driver") {
		cfg.Store.Driver, _ = cmd.Flags().GetString("driver")
	}
	if cmd.Flags().Changed("dsn") {
		cfg.Store.DSN, _ = cmd.Flags().GetString("dsn")
	}
	if cmd.Flags().Changed("table") {
		cfg.Store.Table, _ = cmd.Flags().GetString("table")
	}
	if cmd.Flags().Changed("log-level") {
		cfg.Log.Level, _ = cmd.Flags().GetString("log-level")
	}

	if err := cfg.Validate(); err != nil {
		return nil, exitError(2, "invalid configuration: %v", err)
	}
	return cfg, nil
}

// newApp opens the configured store and seeds declared counters.
func newApp(ctx context.Context, cmd *cobra.Command, logOutput string) (*app, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}

	log, err := logger.New(logger.Config{
		Level:       cfg.Log.Level,
		Development: cfg.Log.Development,
		OutputPaths: []string{logOutput},
	})
	if err != nil {
		return nil, fmt.Errorf("initializing logger: %w", err)
	}

	store, err := openStore(logger.WithLogger(ctx, log), cfg.Store)
	if err != nil {
		return nil, err
	}

	plugin, err := autoincrement.Initialize(store, autoincrement.WithLogger(log))
	if err != nil {
		_ = store.Close()
		return nil, err
	}

	if err := applySeeds(ctx, plugin.Store(), cfg.Seeds(), log); err != nil {
		_ = plugin.Close()
		return nil, err
	}

	return &app{cfg: cfg, log: log, plugin: plugin}, nil
}

func openStore(ctx context.Context, cfg config.StoreConfig) (counter.Store, error) {
	switch cfg.Driver {
	case config.DriverPostgres:
		poolCfg := postgres.DefaultPoolConfig(cfg.DSN)
		poolCfg.ApplicationName = cfg.ApplicationName
		poolCfg.MaxConns = cfg.MaxConns
		poolCfg.MinConns = cfg.MinConns
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime

		pool, err := postgres.NewPool(ctx, poolCfg)
		if err != nil {
			return nil, fmt.Errorf("connecting to postgres: %w", err)
		}
		postgres.LogPoolStats(ctx, pool.Pool)

		store, err := postgres.NewCounterStore(pool, cfg.Table)
		if err != nil {
			pool.Close()
			return nil, err
		}
		if err := store.EnsureSchema(ctx); err != nil {
			pool.Close()
			return nil, err
		}
		return store, nil

	case config.DriverSQLite:
		store, err := sqlite.NewCounterStore(sqlite.Config{
			DSN:           cfg.DSN,
			Table:         cfg.Table,
			BusyTimeoutMS: cfg.BusyTimeoutMS,
		})
		if err != nil {
			return nil, fmt.Errorf("opening sqlite counter store: %w", err)
		}
		return store, nil

	case config.DriverMemory:
		return memory.NewCounterStore(), nil

	default:
		return nil, exitError(2, "unknown store driver %q", cfg.Driver)
	}
}

// applySeeds creates declared counters that do not exist yet. The stored value is
// one step before StartAt so the first issued value is StartAt. Seed is an
// insert-if-absent, so a counter another process already advanced is left alone.
func applySeeds(ctx context.Context, store counter.Store, seeds []config.Seed, log *logger.Logger) error {
	for _, s := range seeds {
		created, err := store.Seed(ctx, s.Name, s.StartAt-s.Step, s.Step)
		if err != nil {
			return fmt.Errorf("seeding counter %s: %w", s.Name, err)
		}
		if created {
			log.Infow("counter seeded", "counter", s.Name, "start_at", s.StartAt, "step", s.Step)
		}
	}
	return nil
}
