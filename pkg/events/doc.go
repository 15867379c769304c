// Package events holds the upstream analytics event model and the normalization boundary.
//
// # Overview
//
// Upstream events carry loosely typed properties: the same flag may arrive as a boolean or as
// the string "true", list-valued properties may arrive as arrays or comma-separated strings,
// and property names appear in both camelCase and snake_case. Normalize coerces a RawEvent into
// a typed Event exactly once, so the metric passes in pkg/analytics never inspect raw maps.
//
// # Usage Example
//
//	normalized := events.NormalizeAll(raw)
//	for _, e := range normalized {
//		if e.Name == events.ProjectCreated && e.TypeScript {
//			typescript++
//		}
//	}
package events
