package app

import (
	"context"
	"errors"

	"github.com/000hen/changelogs.cc/internal/cache"
	"github.com/000hen/changelogs.cc/internal/config"
	"github.com/000hen/changelogs.cc/internal/db"
	"github.com/000hen/changelogs.cc/internal/logger"
	"github.com/000hen/changelogs.cc/internal/redis"
	"github.com/000hen/changelogs.cc/internal/store"
	"github.com/000hen/changelogs.cc/internal/store/memory"
	"github.com/000hen/changelogs.cc/internal/store/postgres"
)

// Infra holds the backing services. Without DATABASE_URL or REDIS_URL the
// in-process implementations are used, which only suits local development.
type Infra struct {
	Store store.Store
	Cache cache.Client

	db    *db.DB
	redis *redis.Client
}

func setupInfra(ctx context.Context, cfg config.Config) (*Infra, error) {
	infra := &Infra{}

	if cfg.DatabaseURL != "" {
		database, err := db.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		if err := db.Migrate(database.DB); err != nil {
			_ = database.Close()
			return nil, err
		}
		infra.db = database
		infra.Store = postgres.New(database.DB)
		logger.Info("database ready", nil)
	} else {
		infra.Store = memory.New()
		logger.Warn("DATABASE_URL not set, using in-memory store", nil)
	}

	if cfg.RedisURL != "" {
		client, err := redis.New(ctx, cfg.RedisURL)
		if err != nil {
			_ = infra.Close()
			return nil, err
		}
		infra.redis = client
		infra.Cache = cache.NewRedis(client.Client)
		logger.Info("redis ready", nil)
	} else {
		infra.Cache = cache.NewMemory(cfg.CacheTTL)
		logger.Warn("REDIS_URL not set, using in-process cache", nil)
	}

	return infra, nil
}

func (i *Infra) Close() error {
	var errs []error
	if i.redis != nil {
		errs = append(errs, i.redis.Close())
	}
	if i.db != nil {
		errs = append(errs, i.db.Close())
	}
	return errors.Join(errs...)
}
