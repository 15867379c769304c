package analytics

import (
	"sort"
	"strings"

	"github.com/platinummonkey/stackpulse/pkg/events"
)

const maxTopErrors = 10

type errorAccumulator struct {
	occurrences int
	recoveries  int
	resolution  mean
	methods     map[string]int
}

// AnalyzeErrors pairs error_occurred and error_recovered events by error type and counts
// fallback triggers.
func AnalyzeErrors(evts []events.Event) *ErrorMetrics {
	byType := make(map[string]*errorAccumulator)
	get := func(errorType string) *errorAccumulator {
		if errorType == "" {
			errorType = "unknown"
		}
		acc, ok := byType[errorType]
		if !ok {
			acc = &errorAccumulator{methods: make(map[string]int)}
			byType[errorType] = acc
		}
		return acc
	}

	out := &ErrorMetrics{TopErrors: []ErrorTypeStat{}}
	for _, e := range evts {
		switch e.Name {
		case events.ErrorOccurred:
			out.TotalErrors++
			get(e.ErrorType).occurrences++
		case events.ErrorRecovered:
			out.TotalRecovered++
			acc := get(e.ErrorType)
			acc.recoveries++
			acc.resolution.addMillis(e.ResolutionTime)
			if e.ResolutionMethod != "" {
				acc.methods[e.ResolutionMethod]++
			}
		case events.FallbackTriggered:
			switch strings.ReplaceAll(e.FallbackType, "-", "_") {
			case "package_manager", "packagemanager":
				out.FallbackTriggers.PackageManager++
			case "offline", "offline_mode":
				out.FallbackTriggers.Offline++
			case "template", "template_fallback":
				out.FallbackTriggers.Template++
			}
		}
	}
	out.RecoveryRate = Percent(out.TotalRecovered, out.TotalErrors)

	stats := make([]ErrorTypeStat, 0, len(byType))
	for errorType, acc := range byType {
		stats = append(stats, ErrorTypeStat{
			ErrorType:         errorType,
			Occurrences:       acc.occurrences,
			Recoveries:        acc.recoveries,
			RecoveryRate:      Percent(acc.recoveries, acc.occurrences),
			AvgResolutionTime: acc.resolution.rounded(),
			CommonResolution:  mostCommon(acc.methods),
		})
	}
	sort.Slice(stats, func(i, j int) bool {
		if stats[i].Occurrences != stats[j].Occurrences {
			return stats[i].Occurrences > stats[j].Occurrences
		}
		if stats[i].Recoveries != stats[j].Recoveries {
			return stats[i].Recoveries > stats[j].Recoveries
		}
		return stats[i].ErrorType < stats[j].ErrorType
	})
	if len(stats) > maxTopErrors {
		stats = stats[:maxTopErrors]
	}
	out.TopErrors = stats
	return out
}
