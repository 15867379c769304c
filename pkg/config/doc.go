// Package config loads the stackpulse configuration.
//
// Values are resolved in three layers: built-in defaults, an optional YAML file named by
// STACKPULSE_CONFIG_FILE, and STACKPULSE_* environment variables. Later layers win.
//
//	cfg, err := config.LoadConfig()
//	if err != nil {
//		log.Fatal(err)
//	}
//
// Common variables:
//
//	STACKPULSE_POSTHOG_API_KEY, STACKPULSE_POSTHOG_PROJECT_ID, STACKPULSE_POSTHOG_HOST
//	STACKPULSE_STORAGE_TYPE (s3, filesystem, memory), STACKPULSE_S3_BUCKET, STACKPULSE_S3_ENDPOINT
//	STACKPULSE_REDIS_URL     enables the shared refresh lock
//	STACKPULSE_SYNC_SCHEDULE cron expression, default every six hours
//	STACKPULSE_LOG_LEVEL     debug, info, warn or error
//
// PostHog credentials may be empty: the service still serves cached data and each sync
// fails until they are provided.
package config
