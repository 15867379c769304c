// Package api serves the cached metrics document over HTTP.
//
// # Routes
//
//	GET  /analytics                 summary (project, usage, timestamps)
//	GET  /analytics/data            full document without raw events
//	GET  /analytics/{section}       one sub-object, e.g. stacks or user-preferences
//	GET  /analytics/status          service status, endpoint list, cache freshness
//	GET|POST /analytics/refresh     runs a sync; 429 with Retry-After inside the cooldown
//	GET  /metrics                   Prometheus exposition
//	GET  /healthz, /healthz/ready   liveness and readiness
//
// Every route answers 404 when the cached document, or the requested part of it, is
// absent or stale. OPTIONS on any path returns 204 with CORS headers. Sync failures are
// reported as a 500 whose body never carries the cause.
package api
