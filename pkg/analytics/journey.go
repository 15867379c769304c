package analytics

import (
	"strings"

	"github.com/platinummonkey/stackpulse/pkg/events"
)

const (
	maxDropoffPoints = 5
	maxCommonPaths   = 10
	pathSeparator    = " → "
)

// journeyEvents is the allow-list of CLI event types that make up a journey
var journeyEvents = map[string]bool{
	events.CLIStarted:                true,
	events.ProjectCreationStarted:    true,
	events.PromptsCompleted:          true,
	events.TemplateSelected:          true,
	events.TemplateGenerationStarted: true,
	events.TemplateGenerationFailed:  true,
	events.InstallationStarted:       true,
	events.InstallationCompleted:     true,
	events.InstallationFailed:        true,
	events.ProjectCreated:            true,
	events.ProjectCompleted:          true,
	events.RetryAttempted:            true,
	events.ErrorOccurred:             true,
	events.ErrorRecovered:            true,
}

var completionEvents = map[string]bool{
	events.ProjectCreated:   true,
	events.ProjectCompleted: true,
}

// cliEntryEvents imply a CLI entry point when no explicit source is present
var cliEntryEvents = map[string]bool{
	events.CLIStarted:             true,
	events.ProjectCreationStarted: true,
}

var knownEntryPoints = map[string]bool{
	"cli":     true,
	"website": true,
	"github":  true,
}

// AnalyzeUserJourney groups journey events into sessions and computes completion, entry
// points, dropoff points, retries and common paths.
func AnalyzeUserJourney(evts []events.Event) *UserJourney {
	sessions := make(map[string][]events.Event)
	for _, e := range evts {
		if !journeyEvents[e.Name] {
			continue
		}
		key := e.SessionKey()
		sessions[key] = append(sessions[key], e)
	}

	out := &UserJourney{
		EntryPoints:   make(map[string]int),
		DropoffPoints: []DropoffPoint{},
		CommonPaths:   []JourneyPath{},
	}
	dropoffs := make(map[string]int)
	paths := make(map[string]int)
	var completionTime mean
	retries := 0

	for _, session := range sessions {
		events.SortByTime(session)
		out.TotalSessions++
		out.EntryPoints[entryPoint(session[0])]++

		names := make([]string, len(session))
		completedAt := -1
		for i, e := range session {
			names[i] = e.Name
			if completedAt < 0 && completionEvents[e.Name] {
				completedAt = i
			}
			if e.Name == events.RetryAttempted {
				retries++
			}
		}
		paths[strings.Join(names, pathSeparator)]++

		if completedAt < 0 {
			dropoffs[session[len(session)-1].Name]++
			continue
		}
		out.CompletedSessions++
		completionTime.addMillis(sessionCompletionTime(session, completedAt))
	}

	out.CompletionRate = Percent(out.CompletedSessions, out.TotalSessions)
	out.AvgCompletionTime = completionTime.rounded()
	if out.TotalSessions > 0 {
		out.AvgRetryCount = round2(float64(retries) / float64(out.TotalSessions))
	}

	abandoned := out.TotalSessions - out.CompletedSessions
	for _, entry := range rankCounts(dropoffs, maxDropoffPoints) {
		out.DropoffPoints = append(out.DropoffPoints, DropoffPoint{
			Event:      entry.Key,
			Frequency:  entry.Count,
			Percentage: Percent(entry.Count, abandoned),
		})
	}
	for _, entry := range rankCounts(paths, maxCommonPaths) {
		out.CommonPaths = append(out.CommonPaths, JourneyPath{Path: entry.Key, Frequency: entry.Count})
	}
	return out
}

func entryPoint(first events.Event) string {
	if knownEntryPoints[first.Source] {
		return first.Source
	}
	if cliEntryEvents[first.Name] {
		return "cli"
	}
	return "unknown"
}

// sessionCompletionTime prefers the completing event's own duration over the wall-clock
// delta from the first event.
func sessionCompletionTime(session []events.Event, completedAt int) events.Millis {
	done := session[completedAt]
	if done.Duration.Plausible() {
		return done.Duration
	}
	start := session[0].Timestamp
	if start.IsZero() || done.Timestamp.IsZero() {
		return events.Millis{}
	}
	return events.Millis{Value: done.Timestamp.Sub(start).Milliseconds(), Valid: true}
}
