package main

import (
	"github.com/amaumene/mona/internal/api"
	"github.com/amaumene/mona/internal/cache"
	"github.com/amaumene/mona/internal/config"
	"github.com/amaumene/mona/internal/controllers"
	"github.com/amaumene/mona/internal/metrics"
	"github.com/amaumene/mona/internal/scheduler"
	"github.com/sirupsen/logrus"
)

// app holds the long-lived components started by serve
type app struct {
	server    *api.Server
	scheduler *scheduler.Scheduler
	resolver  *cache.CachedResolver
}

func provideStore(cfg *config.Config, logger *logrus.Logger) (cache.Store, func(), error) {
	store, err := cache.NewStore(cfg)
	if err != nil {
		return nil, nil, err
	}
	logger.WithField("backend", store.Name()).Info("Cache initialized")

	cleanup := func() {
		if err := store.Close(); err != nil {
			logger.WithError(err).Warn("Failed to close cache")
		}
	}
	return store, cleanup, nil
}

func provideResolver(cfg *config.Config, ctrl *controllers.ResolveController, store cache.Store, m *metrics.Metrics, logger *logrus.Logger) *cache.CachedResolver {
	return cache.NewCachedResolver(ctrl, store, cfg.CacheTTL, m, logger)
}
