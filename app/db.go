package app

import (
	"context"
	"fmt"

	"github.com/fiffu/listingwatch/config"
	"github.com/fiffu/listingwatch/lib/store"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewObjectStore opens the configured backend and fronts it with an LRU of
// object bodies.
func NewObjectStore(lc fx.Lifecycle, cfg *config.Config, log *zap.Logger) (store.ObjectStore, error) {
	var (
		backend store.ObjectStore
		err     error
	)
	switch cfg.Store.Backend {
	case "postgres":
		backend, err = newPostgresStore(lc, cfg, log)
	default:
		backend, err = newSQLiteStore(cfg, log)
	}
	if err != nil {
		return nil, err
	}

	log.Sugar().Infow("Object store ready", "backend", cfg.Store.Backend, "cache_size", cfg.Store.CacheSize)
	cached, err := store.NewCachedStore(backend, cfg.Store.CacheSize)
	if err != nil {
		return nil, err
	}
	return cached, nil
}

func newSQLiteStore(cfg *config.Config, log *zap.Logger) (store.ObjectStore, error) {
	gormCfg := &gorm.Config{}
	if cfg.Env == "production" {
		gormCfg.Logger = logger.Default.LogMode(logger.Silent)
	}

	db, err := gorm.Open(sqlite.Open(cfg.Store.SQLitePath), gormCfg)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", cfg.Store.SQLitePath, err)
	}
	log.Sugar().Infow("Database started", "path", cfg.Store.SQLitePath)

	gs, err := store.NewGormStore(db)
	if err != nil {
		return nil, err
	}
	return gs, nil
}

func newPostgresStore(lc fx.Lifecycle, cfg *config.Config, log *zap.Logger) (store.ObjectStore, error) {
	ctx := context.Background()

	pool, err := store.NewDB(ctx, cfg.Store.DatabaseURL)
	if err != nil {
		return nil, err
	}
	if err := store.EnsureSchema(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}

	pg := store.NewPostgresStore(pool)
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			log.Info("Closing database pool")
			pg.Close()
			return nil
		},
	})
	return pg, nil
}
