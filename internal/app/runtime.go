// Package app wires configuration into a ready ReplenishmentService. Both the
// HTTP server and the replenish CLI build their runtime here.
package app

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/andresuchdata/replenish/internal/cache"
	"github.com/andresuchdata/replenish/internal/config"
	"github.com/andresuchdata/replenish/internal/metrics"
	"github.com/andresuchdata/replenish/internal/opsserver"
	"github.com/andresuchdata/replenish/internal/repository/postgres"
	"github.com/andresuchdata/replenish/internal/sequence"
	"github.com/andresuchdata/replenish/internal/service"
	"github.com/andresuchdata/replenish/internal/source"
	"github.com/andresuchdata/replenish/internal/storage"
)

const metricsNamespace = "replenish"

// Options override the catalog and sales sources. Postgres is used when
// they are nil.
type Options struct {
	Catalog source.CatalogSource
	Sales   source.SalesSource
}

type Runtime struct {
	Config   *config.Config
	DB       *postgres.DB
	Redis    *redis.Client
	Storage  storage.ObjectStorage
	Registry *prometheus.Registry
	Catalog  *postgres.CatalogRepository
	Service  *service.ReplenishmentService
}

func New(ctx context.Context, cfg *config.Config, opts Options) (*Runtime, error) {
	rt := &Runtime{Config: cfg, Registry: prometheus.NewRegistry()}
	rt.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	db, err := postgres.NewDB(&cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	rt.DB = db
	rt.Catalog = postgres.NewCatalogRepository(db)
	vendors := postgres.NewVendorRepository(db)

	deps := service.Dependencies{
		Catalog:     rt.Catalog,
		Sales:       rt.Catalog,
		Orders:      postgres.NewPORepository(db),
		Vendors:     vendors,
		Reliability: vendors,
		Runs:        postgres.NewRunRepository(db),
		Allocator:   postgres.NewSequenceRepository(db),
		Sink:        metrics.NewPrometheusSink(metricsNamespace, rt.Registry),
	}
	if opts.Catalog != nil {
		deps.Catalog = opts.Catalog
	}
	if opts.Sales != nil {
		deps.Sales = opts.Sales
	}

	if cfg.Cache.Enabled {
		client, err := cache.NewRedisClient(cfg.Cache)
		if err != nil {
			// Redis is optional; postgres still allocates sequences.
			log.Warn().Err(err).Msg("Redis unavailable, running without forecast cache")
		} else {
			rt.Redis = client
			deps.Cache = cache.NewForecastCache(client, cache.ForecastTTL(cfg.Cache), cfg.Engine)
			deps.Allocator = sequence.NewRedisAllocator(client)
		}
	}

	if cfg.Storage.Enabled {
		objects, err := storage.NewMinioClient(ctx, cfg.Storage)
		if err != nil {
			rt.Close()
			return nil, fmt.Errorf("failed to initialize object storage: %w", err)
		}
		rt.Storage = objects
		deps.Storage = objects
	}

	svc, err := service.NewReplenishmentService(deps, cfg.Engine)
	if err != nil {
		rt.Close()
		return nil, err
	}
	rt.Service = svc
	return rt, nil
}

// Checks are the readiness probes served by the ops server.
func (r *Runtime) Checks() map[string]opsserver.Check {
	checks := map[string]opsserver.Check{
		"postgres": func(ctx context.Context) error { return r.DB.PingContext(ctx) },
	}
	if r.Redis != nil {
		checks["redis"] = func(ctx context.Context) error { return r.Redis.Ping(ctx).Err() }
	}
	return checks
}

func (r *Runtime) Close() {
	if r.Redis != nil {
		if err := r.Redis.Close(); err != nil {
			log.Warn().Err(err).Msg("failed to close redis client")
		}
	}
	if r.DB != nil {
		if err := r.DB.Close(); err != nil {
			log.Warn().Err(err).Msg("failed to close database")
		}
	}
}
