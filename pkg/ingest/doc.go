// Package ingest keeps the persisted metrics document in step with the upstream event
// stream.
//
// Each UpdateAnalytics call picks one of two paths. When both a sync state and a document
// are stored, only events newer than the last sync are fetched and merged into the
// retained window. Otherwise a larger bootstrap batch is fetched and becomes the window.
// Either way the whole document is recomputed from the window, so every derived number is
// consistent with the retained events. An incremental fetch that returns nothing leaves
// storage untouched.
//
//	orch := ingest.NewOrchestrator(client, store, analytics.NewProcessor(), ingest.DefaultOptions(),
//		ingest.WithLogger(logger), ingest.WithMetrics(metrics))
//	doc, err := orch.UpdateAnalytics(ctx)
package ingest
