// Package app initializes and holds the services of a single dataset build,
// acting as a dependency injection container between config and pipeline.
package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/pjpmarques/Castelos/internal/config"
	"github.com/pjpmarques/Castelos/internal/dispatcher"
	collyfetcher "github.com/pjpmarques/Castelos/internal/fetcher/colly"
	"github.com/pjpmarques/Castelos/internal/fortification"
	"github.com/pjpmarques/Castelos/internal/metrics"
	"github.com/pjpmarques/Castelos/internal/pipeline"
	"github.com/pjpmarques/Castelos/internal/policy/ratelimit"
	"github.com/pjpmarques/Castelos/internal/progress"
	"github.com/pjpmarques/Castelos/internal/progress/sinks"
	"github.com/pjpmarques/Castelos/internal/storage"
	"github.com/pjpmarques/Castelos/internal/storage/postgres"
	"github.com/pjpmarques/Castelos/internal/wiki"
	"github.com/pjpmarques/Castelos/internal/wikidata"
	"github.com/pjpmarques/Castelos/internal/worker"
)

// App holds the long-lived services of one run. It is built once at startup
// and closed after the pipeline returns.
type App struct {
	cfg      config.Config
	logger   *zap.Logger
	runID    uuid.UUID
	registry *prometheus.Registry
	hub      *progress.Hub
	blobs    *storage.Backend
	rows     *postgres.FortificationStore
	pipeline *pipeline.Pipeline
}

// Option customizes App construction.
type Option func(*options)

type options struct {
	gcsFactory storage.GCSClientFactory
}

// WithGCSClientFactory overrides how Cloud Storage clients are created.
func WithGCSClientFactory(f storage.GCSClientFactory) Option {
	return func(o *options) { o.gcsFactory = f }
}

// New wires every service from cfg. It fails fast when the artifact backend or
// the optional Postgres mirror cannot be initialized.
func New(ctx context.Context, cfg config.Config, logger *zap.Logger, opts ...Option) (*App, error) {
	o := options{gcsFactory: storage.DefaultGCSClientFactory{}}
	for _, opt := range opts {
		opt(&o)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	runID := progress.NewRunID()
	logger = logger.With(zap.String("run_id", runID.String()))
	logger.Info("initializing services",
		zap.String("listing_url", cfg.Source.ListingURL),
		zap.String("storage", cfg.Storage.Backend),
		zap.Int("concurrency", cfg.Pipeline.Concurrency),
	)

	registry := prometheus.NewRegistry()
	httpMetrics := metrics.NewHTTP(registry)
	limiter := ratelimit.New(ratelimit.Config{
		RequestsPerSecond: cfg.HTTP.RequestsPerSecond,
		Burst:             cfg.HTTP.Burst,
		Observer:          httpMetrics.ObserveRateLimitDelay,
	})

	promSink, err := sinks.NewPrometheusSink(registry)
	if err != nil {
		return nil, fmt.Errorf("register progress metrics: %w", err)
	}

	blobs, err := storage.Open(ctx, storage.Config{
		Backend:   cfg.Storage.Backend,
		BaseDir:   cfg.Storage.BaseDir,
		GCSBucket: cfg.Storage.GCSBucket,
		GCSPrefix: cfg.Storage.GCSPrefix,
	}, o.gcsFactory)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	rows, err := openRowStore(ctx, cfg.Postgres, runID, logger)
	if err != nil {
		return nil, errors.Join(err, blobs.Close())
	}

	fetcher := collyfetcher.New(collyfetcher.Config{
		UserAgent:     cfg.HTTP.UserAgent,
		RespectRobots: cfg.HTTP.RespectRobots,
		Timeout:       cfg.HTTP.Timeout,
	}, collyfetcher.WithWaiter(limiter), collyfetcher.WithObserver(httpMetrics))

	coords := wikidata.New(wikidata.Config{
		Endpoint:  cfg.Wikidata.Endpoint,
		UserAgent: cfg.HTTP.UserAgent,
		Timeout:   cfg.HTTP.Timeout,
	},
		wikidata.WithWaiter(limiter),
		wikidata.WithObserver(httpMetrics),
		wikidata.WithLogger(logger.Named("wikidata")),
	)

	hub := progress.NewHub(progress.Config{Logger: logger.Named("progress")},
		sinks.NewLogSink(logger.Named("progress")),
		promSink,
	)

	w := worker.New(
		fortification.NewNameResolver(logger.Named("names")),
		wiki.NewItemIDLookup(fetcher, logger.Named("wiki")),
		coords,
		hub,
		worker.Config{Pause: cfg.Pipeline.Pause, RunID: runID},
		logger.Named("worker"),
	)

	pipeOpts := []pipeline.Option{pipeline.WithEmitter(hub), pipeline.WithLogger(logger.Named("pipeline"))}
	if rows != nil {
		pipeOpts = append(pipeOpts, pipeline.WithRowStore(rows))
	}
	p, err := pipeline.New(pipeline.Config{
		ListingURL:       cfg.Source.ListingURL,
		IntermediatePath: cfg.Output.IntermediatePath,
		FinalPath:        cfg.Output.FinalPath,
		GeoJSONPath:      cfg.Output.GeoJSONPath,
		RunID:            runID,
	}, fetcher, dispatcher.New(w, cfg.Pipeline.Concurrency), blobs, pipeOpts...)
	if err != nil {
		rows.Close()
		return nil, errors.Join(err, hub.Close(ctx), blobs.Close())
	}

	logger.Info("services initialized")
	return &App{
		cfg:      cfg,
		logger:   logger,
		runID:    runID,
		registry: registry,
		hub:      hub,
		blobs:    blobs,
		rows:     rows,
		pipeline: p,
	}, nil
}

func openRowStore(ctx context.Context, cfg config.PostgresConfig, runID uuid.UUID, logger *zap.Logger) (*postgres.FortificationStore, error) {
	if cfg.DSN == "" {
		return nil, nil
	}
	logger.Info("connecting to postgres", zap.String("table", cfg.Table))
	store, err := postgres.New(ctx, postgres.Config{
		DSN:             cfg.DSN,
		Table:           cfg.Table,
		MaxConns:        cfg.MaxConns,
		MaxConnLifetime: cfg.MaxConnLifetime,
		RunID:           runID.String(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize postgres: %w", err)
	}
	if cfg.EnsureSchema {
		if err := store.EnsureSchema(ctx); err != nil {
			store.Close()
			return nil, fmt.Errorf("failed to prepare postgres schema: %w", err)
		}
	}
	return store, nil
}

// RunID identifies this run in logs, progress events and the Postgres mirror.
func (a *App) RunID() uuid.UUID {
	return a.runID
}

// Registry exposes the per-run Prometheus registry.
func (a *App) Registry() *prometheus.Registry {
	return a.registry
}

// Run executes the pipeline once.
func (a *App) Run(ctx context.Context) (pipeline.Result, error) {
	return a.pipeline.Run(ctx)
}

// Close drains progress events, writes the metrics textfile when configured,
// and releases storage resources.
func (a *App) Close(ctx context.Context) error {
	a.logger.Info("shutting down services")
	var errs []error
	if err := a.hub.Close(ctx); err != nil {
		errs = append(errs, fmt.Errorf("close progress hub: %w", err))
	}
	if a.hub.Dropped() > 0 {
		a.logger.Warn("progress events dropped", zap.Int64("dropped", a.hub.Dropped()))
	}
	if path := a.cfg.Metrics.Textfile; path != "" {
		if err := prometheus.WriteToTextfile(path, a.registry); err != nil {
			errs = append(errs, fmt.Errorf("write metrics textfile: %w", err))
		} else {
			a.logger.Info("metrics written", zap.String("path", path))
		}
	}
	a.rows.Close()
	if err := a.blobs.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close storage: %w", err))
	}
	return errors.Join(errs...)
}
