//go:build wireinject
// +build wireinject

package main

import (
	"github.com/amaumene/mona/internal/api"
	"github.com/amaumene/mona/internal/api/handlers"
	"github.com/amaumene/mona/internal/cache"
	"github.com/amaumene/mona/internal/config"
	"github.com/amaumene/mona/internal/controllers"
	"github.com/amaumene/mona/internal/metrics"
	"github.com/amaumene/mona/internal/scheduler"
	"github.com/amaumene/mona/internal/services/nyaa"
	"github.com/amaumene/mona/internal/services/subsplease"
	"github.com/amaumene/mona/internal/services/tvdb"
	"github.com/google/wire"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
)

func initializeApp(cfg *config.Config, logger *logrus.Logger) (*app, func(), error) {
	wire.Build(
		metrics.NewRegistry,
		wire.Bind(new(prometheus.Registerer), new(*prometheus.Registry)),
		wire.Bind(new(prometheus.Gatherer), new(*prometheus.Registry)),
		metrics.New,

		tvdb.NewClient,
		nyaa.NewClient,
		subsplease.NewClient,
		wire.Bind(new(controllers.ArtworkSource), new(*tvdb.Client)),
		wire.Bind(new(controllers.PageSource), new(*nyaa.Client)),
		wire.Bind(new(controllers.PosterFallback), new(*subsplease.Client)),
		controllers.NewResolveController,

		provideStore,
		provideResolver,
		wire.Bind(new(handlers.Resolver), new(*cache.CachedResolver)),
		wire.Bind(new(handlers.CacheReporter), new(*cache.CachedResolver)),
		wire.Bind(new(handlers.TokenReporter), new(*tvdb.Client)),
		api.NewServer,

		wire.Bind(new(scheduler.TokenKeeper), new(*tvdb.Client)),
		scheduler.NewScheduler,

		wire.Struct(new(app), "*"),
	)
	return nil, nil, nil
}
