// Package storage provides pluggable object store backends for the analytics worker.
//
// # Overview
//
// The worker keeps all durable state in a flat object store: one JSON object for the
// metrics document (including the retained raw event window) and one for the sync state.
// Objects are always replaced whole and the last writer wins.
//
// # Architecture
//
// The storage layer composes small interfaces:
//
//   - ObjectReader: Get and LastModified by key
//   - ObjectWriter: Put by key
//   - HealthChecker: backend availability
//
// These compose into ObjectStore. LastModified exposes the backend's own write time,
// which the refresh cooldown is measured against.
//
// # Backends
//
//   - S3Store: AWS S3, Cloudflare R2 and MinIO through aws-sdk-go-v2, traced with
//     OpenTelemetry
//   - FileSystemStore: one file per key under a root directory, replaced atomically
//   - MemoryStore: in-process map with an injectable clock, used in tests and local runs
//
// InstrumentedStore wraps any backend and reports each operation's outcome, which the
// worker feeds into Prometheus.
//
// # Usage Example
//
//	store, err := storage.New(ctx, storage.Config{
//		Type:        storage.BackendS3,
//		S3Endpoint:  "https://<account>.r2.cloudflarestorage.com",
//		S3Region:    "auto",
//		S3Bucket:    "analytics",
//		S3AccessKey: accessKey,
//		S3SecretKey: secretKey,
//	}, clock.Real{})
//	if err != nil {
//		return err
//	}
//	obj, err := store.Get(ctx, "analytics/metrics.json")
//	if errors.Is(err, storage.ErrObjectNotFound) {
//		// first run
//	}
//
// # Error Handling
//
// Missing keys are reported as ErrObjectNotFound by every backend. Other failures are
// wrapped with the operation that failed.
package storage
