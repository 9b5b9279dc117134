package main

import (
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/zsiec/vidqa/internal/cache"
	"github.com/zsiec/vidqa/internal/config"
	"github.com/zsiec/vidqa/internal/engine"
	"github.com/zsiec/vidqa/internal/events"
	"github.com/zsiec/vidqa/internal/logger"
	"github.com/zsiec/vidqa/internal/probe"
)

// app holds the components shared by the serve, analyze and probe commands.
type app struct {
	cfg    *config.Config
	log    *logrus.Logger
	engine *engine.Engine
	probe  *probe.Runner
	bus    *events.Bus
	redis  redis.UniversalClient
	unsubs []func()
}

func newApp(cfg *config.Config, log *logrus.Logger) *app {
	a := &app{
		cfg: cfg,
		log: log,
		bus: events.New(),
	}
	a.unsubs = append(a.unsubs,
		events.SubscribeMetrics(a.bus, events.PrometheusRecorder{}),
		events.SubscribeLogging(a.bus, log),
	)

	var c cache.Cache = cache.NoopCache{}
	if cfg.Cache.Enabled {
		a.redis = cache.NewClient(&cfg.Redis)
		c = cache.NewRedisCache(a.redis, &cfg.Cache, log)
		log.WithField("addresses", cfg.Redis.Addresses).Info("Result cache enabled")
	}

	a.engine = engine.New(engine.FromConfig(&cfg.Analysis),
		engine.WithCache(c),
		engine.WithEvents(a.bus),
		engine.WithLogger(log),
	)
	a.probe = probe.NewRunner(&cfg.Probe, logger.NewLogrusAdapter(logrus.NewEntry(log)))
	return a
}

func (a *app) Close() {
	for _, unsub := range a.unsubs {
		unsub()
	}
	if err := a.bus.Close(); err != nil {
		a.log.WithError(err).Warn("Failed to close event bus")
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.log.WithError(err).Error("Failed to close Redis connection")
		}
	}
}
