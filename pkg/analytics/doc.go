// Package analytics derives the metrics document served by the worker.
//
// # Overview
//
// Every sync recomputes the full document from the retained event window. Nothing is
// updated in place, so running Process twice over the same input yields the same document
// apart from its timestamps.
//
// # Metric Categories
//
// Basic:
//   - Usage counters (total events, unique users, 7 and 30 day windows)
//   - Event type breakdown, daily timeline, recent event projection
//   - Framework and feature usage from project_created events
//
// Advanced:
//   - Stack combinations (framework, backend, database, orm, styling)
//   - Developer experience adoption rates
//   - Performance by package manager and framework
//   - User journey funnels, dropoff points and paths
//   - AI assistant and MCP server adoption
//   - Error occurrence and recovery
//   - Plugin ecosystem
//   - Quality tooling
//   - Template performance
//   - User preferences
//
// # Numeric Conventions
//
// Percentages are round(100 * numerator / max(denominator, 1)). Durations are integer
// milliseconds; samples outside [0, 300000] are discarded before averaging.
//
// # Usage Example
//
//	processor := analytics.NewProcessor()
//	doc := processor.Process(rawEvents, persons, "12345", time.Now().UTC())
//	fmt.Printf("%d events, top stack seen %d times\n",
//		doc.Usage.TotalEvents, doc.StackCombinations[0].Frequency)
//
// # Related Packages
//
//   - pkg/events: normalization of upstream events
//   - pkg/ingest: sync orchestration
package analytics
