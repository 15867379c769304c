package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/platinummonkey/stackpulse/pkg/analytics"
	"github.com/platinummonkey/stackpulse/pkg/api"
	"github.com/platinummonkey/stackpulse/pkg/clock"
	"github.com/platinummonkey/stackpulse/pkg/config"
	"github.com/platinummonkey/stackpulse/pkg/ingest"
	"github.com/platinummonkey/stackpulse/pkg/metricsstore"
	"github.com/platinummonkey/stackpulse/pkg/observability"
	"github.com/platinummonkey/stackpulse/pkg/posthog"
	"github.com/platinummonkey/stackpulse/pkg/storage"
)

var version = "dev"

var (
	runOnce     = flag.Bool("run-once", false, "Run one sync and exit")
	showVersion = flag.Bool("version", false, "Print the version and exit")
)

func main() {
	flag.Parse()

	if *showVersion {
		fmt.Println(version)
		return
	}

	if err := run(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "stackpulse: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return err
	}

	logger := observability.NewLogger(cfg.Observability.Level(), os.Stdout).
		WithField("service", cfg.Observability.OTelServiceName)

	providers, err := observability.InitOTel(ctx, observability.OTelConfig{
		Enabled:        cfg.Observability.OTelEnabled,
		Endpoint:       cfg.Observability.OTelEndpoint,
		ServiceName:    cfg.Observability.OTelServiceName,
		ServiceVersion: version,
		Insecure:       cfg.Observability.OTelInsecure,
		SampleRatio:    cfg.Observability.OTelSampleRatio,
	}, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize OpenTelemetry: %w", err)
	}

	var (
		registry *prometheus.Registry
		metrics  *observability.Metrics
	)
	if cfg.Observability.MetricsEnabled {
		registry = prometheus.NewRegistry()
		registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		metrics = observability.NewMetrics(registry)
	}

	objects, err := storage.New(ctx, cfg.Storage.Config, clock.Real{})
	if err != nil {
		return fmt.Errorf("failed to initialize storage: %w", err)
	}
	if metrics != nil {
		objects = storage.NewInstrumentedStore(objects, cfg.Storage.Type, metrics.ObserveStorageOperation)
	}
	logger.WithField("backend", cfg.Storage.Type).Info("Object store initialized")

	health := observability.NewHealthChecker(version)
	health.Register("storage", true, objects.HealthCheck)

	storeOpts := metricsstore.Options{
		DocumentKey:     cfg.Storage.DocumentKey,
		SyncStateKey:    cfg.Storage.SyncStateKey,
		CacheDuration:   cfg.Sync.CacheDuration,
		RefreshCooldown: cfg.Sync.RefreshCooldown,
		RefreshLockTTL:  cfg.Sync.Timeout,
		L1TTL:           cfg.Storage.L1CacheTTL,
	}
	var storeOptions []metricsstore.Option
	if metrics != nil {
		storeOptions = append(storeOptions, metricsstore.WithCacheObserver(metrics.ObserveDocumentCache))
	}

	if cfg.Storage.RedisURL != "" {
		redisClient, err := metricsstore.NewRedisClient(ctx, cfg.Storage.RedisURL)
		if err != nil {
			logger.WithError(err).Warn("Redis unavailable; refresh cooldown is advisory only")
		} else {
			// Closed on return from run, after the scheduler and server have stopped.
			defer func() {
				if err := redisClient.Close(); err != nil {
					logger.WithError(err).Warn("Failed to close redis client")
				}
			}()
			lock := metricsstore.NewRedisRefreshLock(redisClient, cfg.Storage.RedisLockKey)
			storeOptions = append(storeOptions, metricsstore.WithRefreshLock(lock))
			health.Register("redis", false, lock.Ping)
		}
	}
	store := metricsstore.New(objects, clock.Real{}, logger, storeOpts, storeOptions...)

	clientOptions := []posthog.Option{posthog.WithTimeout(cfg.PostHog.Timeout)}
	if metrics != nil {
		clientOptions = append(clientOptions, posthog.WithRequestObserver(metrics.ObserveUpstreamRequest))
	}
	client := posthog.NewClient(
		posthog.NewAuth(cfg.PostHog.APIKey, cfg.PostHog.ProjectID, cfg.PostHog.Host),
		clientOptions...,
	)
	if err := client.ValidateCredentials(); err != nil {
		logger.Warn("PostHog credentials are not configured; syncs will fail until they are set")
	}

	orchestrator := ingest.NewOrchestrator(client, store, analytics.NewProcessor(), ingest.Options{
		BootstrapLimit:   cfg.Sync.BootstrapLimit,
		IncrementalLimit: cfg.Sync.IncrementalLimit,
		PersonsLimit:     cfg.Sync.PersonsLimit,
		MaxRetained:      cfg.Sync.MaxRetainedEvents,
	}, ingest.WithLogger(logger), ingest.WithMetrics(metrics))

	scheduler, err := ingest.NewScheduler(orchestrator, cfg.Sync.Schedule, cfg.Sync.Timeout, logger)
	if err != nil {
		return err
	}

	if *runOnce {
		defer observability.ShutdownOTel(context.WithoutCancel(ctx), providers, logger)
		logger.Info("Running a single sync")
		_, err := scheduler.RunNow(ctx)
		return err
	}

	handlers := api.NewAnalyticsHandlers(store, orchestrator,
		api.WithHandlerLogger(logger),
		api.WithHandlerMetrics(metrics),
		api.WithSyncTimeout(cfg.Sync.Timeout),
		api.WithVersion(version),
	)
	server := api.NewServer(handlers, api.Config{
		Logger:         logger,
		Metrics:        metrics,
		Registry:       registry,
		Health:         health,
		AllowedOrigins: cfg.Server.AllowedOrigins,
	})

	httpServer := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      otelhttp.NewHandler(server, "stackpulse"),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	shutdown := observability.NewShutdownManager(logger, httpServer, cfg.Server.ShutdownTimeout)
	shutdown.RegisterShutdownFunc(scheduler.Stop)
	shutdown.RegisterShutdownFunc(func(ctx context.Context) error {
		return observability.ShutdownOTel(ctx, providers, logger)
	})

	scheduler.Start()
	logger.WithField("schedule", cfg.Sync.Schedule).
		WithField("next_run", scheduler.Next()).
		Info("Sync scheduler started")

	if store.LoadDocument(ctx) == nil {
		scheduler.RunInBackground(ctx, "initial sync")
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var serveErr error
	go func() {
		logger.Infof("Starting stackpulse on %s", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr = err
			logger.WithError(err).Error("HTTP server failed")
			cancel()
		}
	}()

	if err := shutdown.WaitForShutdown(ctx); err != nil {
		return err
	}
	return serveErr
}
