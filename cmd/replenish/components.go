package main

import (
	"fmt"
	"time"

	"github.com/andresuchdata/smart-replenishment/internal/cache"
	"github.com/andresuchdata/smart-replenishment/internal/config"
	"github.com/andresuchdata/smart-replenishment/internal/forecast"
	"github.com/andresuchdata/smart-replenishment/internal/replenishment"
	"github.com/andresuchdata/smart-replenishment/internal/repository"
	"github.com/andresuchdata/smart-replenishment/internal/repository/postgres"
	"github.com/andresuchdata/smart-replenishment/internal/scheduler"
	"github.com/andresuchdata/smart-replenishment/internal/storage"
	"github.com/andresuchdata/smart-replenishment/pkg/logger"
	"github.com/redis/go-redis/v9"
)

// components is everything a production run needs, built from config.
type components struct {
	db        *postgres.DB
	redis     *redis.Client
	runs      repository.RunRepository
	summaries cache.SummaryCache
	runner    *scheduler.Runner
}

func (c *components) Close() {
	if c.redis != nil {
		_ = c.redis.Close()
	}
	if c.db != nil {
		_ = c.db.Close()
	}
}

func buildComponents(cfg *config.Config) (*components, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	oracle, err := forecast.NewFromConfig(cfg.Forecast)
	if err != nil {
		return nil, err
	}

	db, err := postgres.NewDB(&cfg.Database)
	if err != nil {
		return nil, err
	}
	c := &components{db: db}

	store := postgres.NewInventoryRepository(db)
	c.runs = postgres.NewRunRepository(db)

	c.summaries = cache.NewNoopSummaryCache()
	lock := cache.NewLocalRunLock()
	if cfg.Cache.Enabled {
		client, err := cache.NewRedisClient(cfg.Cache)
		if err != nil {
			logger.Log.Warn().Err(err).Msg("redis unavailable, using in-process run lock and no summary cache")
		} else {
			c.redis = client
			c.summaries = cache.NewSummaryCache(client, cache.SummaryTTL(cfg.Cache))
			lock = cache.NewRedisRunLock(client, cfg.Replenishment.LockTTL)
		}
	}

	archiver := storage.NewNoopReportArchiver()
	if cfg.Storage.Enabled {
		objects, err := storage.NewMinioClient(cfg.Storage)
		if err != nil {
			c.Close()
			return nil, fmt.Errorf("init report storage: %w", err)
		}
		archiver = storage.NewReportArchiver(objects, cfg.Storage.Prefix)
	}

	job := replenishment.NewJob(store, oracle, replenishment.WithRunRepository(c.runs))
	params := func(now time.Time) replenishment.RunParams {
		return replenishment.ParamsFromConfig(cfg.Replenishment, now)
	}

	c.runner = scheduler.NewRunner(job, params, lock,
		scheduler.WithSummaryCache(c.summaries),
		scheduler.WithReportArchiver(archiver),
		scheduler.WithBusyPolicy(cfg.Replenishment.BusyPolicy),
		scheduler.WithMaxWait(cfg.Replenishment.LockTTL),
	)

	return c, nil
}
