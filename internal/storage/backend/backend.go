// Package backend opens the stores selected by configuration.
package backend

import (
	"context"
	"fmt"
	"log"

	"diffusion-lab/internal/config"
	"diffusion-lab/internal/storage"
	chstore "diffusion-lab/internal/storage/clickhouse"
	"diffusion-lab/internal/storage/memory"
	"diffusion-lab/internal/storage/migrations"
	pgstore "diffusion-lab/internal/storage/postgres"
	"diffusion-lab/internal/storage/sqlite"
)

// Stores holds the configured storage implementations. A nil store means
// that part of a run is not persisted.
type Stores struct {
	Runs      storage.RunStore
	Bands     storage.BandStore
	Frontiers storage.FrontierStore

	RunBackend       string // config.Backend*
	AnalyticsBackend string // "clickhouse", config.BackendMemory or config.BackendNone
}

// Open creates the stores selected by cfg and applies migrations.
// Runs go to memory, PostgreSQL or SQLite; bands and frontier rows go to
// ClickHouse when CLICKHOUSE_DSN is set, to memory in memory mode, and
// nowhere otherwise. The returned cleanup closes every connection.
func Open(ctx context.Context, cfg config.Config, logger *log.Logger) (*Stores, func(), error) {
	if logger == nil {
		logger = log.Default()
	}

	stores := &Stores{
		RunBackend:       cfg.RunBackend(),
		AnalyticsBackend: config.BackendNone,
	}
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	switch stores.RunBackend {
	case config.BackendMemory:
		stores.Runs = memory.NewRunStore()

	case config.BackendPostgres:
		pool, err := pgstore.NewPool(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, nil, fmt.Errorf("connect to postgres: %w", err)
		}
		closers = append(closers, pool.Close)
		if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("migrate postgres: %w", err)
		}
		stores.Runs = pgstore.NewRunStore(pool)

	case config.BackendSQLite:
		db, err := sqlite.Open(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		closers = append(closers, func() { db.Close() })
		stores.Runs = sqlite.NewRunStore(db)
	}

	switch {
	case cfg.ClickHouseDSN != "":
		conn, err := migrations.RunClickhouseMigrations(ctx, cfg.ClickHouseDSN)
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("clickhouse: %w", err)
		}
		closers = append(closers, func() { conn.Close() })
		stores.Bands = chstore.NewBandStore(conn)
		stores.Frontiers = chstore.NewFrontierStore(conn)
		stores.AnalyticsBackend = "clickhouse"

	case cfg.UseMemory:
		stores.Bands = memory.NewBandStore()
		stores.Frontiers = memory.NewFrontierStore()
		stores.AnalyticsBackend = config.BackendMemory
	}

	logger.Printf("Stores: runs=%s analytics=%s", stores.RunBackend, stores.AnalyticsBackend)
	return stores, cleanup, nil
}
