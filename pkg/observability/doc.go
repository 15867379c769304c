// Package observability provides structured logging, Prometheus metrics, health checks,
// OpenTelemetry tracing and graceful shutdown for the stackpulse service.
//
// # Structured Logging
//
//	logger := observability.NewLogger(observability.InfoLevel, os.Stdout)
//	logger.WithField("mode", "incremental").Info("Sync complete")
//
// The cron scheduler logs through NewCronLogger.
//
// # Prometheus Metrics
//
//	registry := prometheus.NewRegistry()
//	metrics := observability.NewMetrics(registry)
//	metrics.SyncRunsTotal.WithLabelValues("full", "success").Inc()
//	http.Handle("/metrics", observability.MetricsHandler(registry))
//
// # Health Checks
//
//	checker := observability.NewHealthChecker(version)
//	checker.Register("storage", true, store.HealthCheck)
//	checker.Register("redis", false, lock.Ping)
//
// A failing critical dependency reports unhealthy, a failing optional one degraded.
//
// # OpenTelemetry
//
//	providers, err := observability.InitOTel(ctx, observability.OTelConfig{
//		Enabled:     true,
//		Endpoint:    "otel-collector:4317",
//		ServiceName: "stackpulse",
//		SampleRatio: 0.1,
//	}, logger)
//	defer observability.ShutdownOTel(ctx, providers, logger)
package observability
