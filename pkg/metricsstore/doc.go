// Package metricsstore persists the metrics document and sync state in an object store
// and decides cache freshness and refresh eligibility.
//
// Two keys are used: the document key holds the MetricsDocument together with the
// retained raw events, and the sync state key holds {lastSyncTime, eventCount}.
//
// Serving and syncing use different staleness rules. GetCachedData returns nil once the
// document is older than the cache duration. LoadDocument and GetLastSyncTimestamp never
// expire; the orchestrator uses them to choose between incremental and full sync.
//
// IsRefreshAllowed measures the refresh cooldown against the document object's own last
// write time. The check is advisory; RefreshLock optionally closes the race between
// concurrent refresh requests across replicas. The lock is held only while a refresh
// runs, so a refresh that fails or writes nothing does not start a cooldown.
package metricsstore
