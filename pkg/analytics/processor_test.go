package analytics

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/stackpulse/pkg/events"
)

func sampleWindow() []events.RawEvent {
	return []events.RawEvent{
		rawEvent(1, events.CLIStarted, 0, map[string]interface{}{"sessionId": "a"}),
		rawEvent(2, events.ProjectCreated, 60, map[string]interface{}{
			"sessionId": "a", "framework": "react", "backend": "express", "database": "postgres",
			"orm": "prisma", "typescript": true, "mcpServers": "filesystem", "packageManager": "pnpm",
		}),
		rawEvent(3, events.ProjectCreated, -10*24*3600, map[string]interface{}{
			"framework": "svelte", "database": "sqlite", "docker": "true",
		}),
		rawEvent(4, events.ErrorOccurred, -40*24*3600, map[string]interface{}{"errorType": "network"}),
		rawEvent(5, events.CLIStarted, 120, map[string]interface{}{"sessionId": "b"}),
	}
}

func TestProcessor_UsageAndBreakdown(t *testing.T) {
	now := baseTime.Add(time.Hour)
	persons := []events.Person{{ID: "p1"}, {ID: "p2"}}

	doc := NewProcessor().Process(sampleWindow(), persons, "4242", now)

	assert.Equal(t, "4242", doc.Project.ID)
	assert.Equal(t, now, doc.Timestamp)
	assert.Equal(t, now, doc.LastUpdated)

	assert.Equal(t, 5, doc.Usage.TotalEvents)
	assert.Equal(t, 2, doc.Usage.TotalPersons)
	assert.Equal(t, 3, doc.Usage.UniqueUsers)
	assert.Equal(t, 3, doc.Usage.EventsLast7Days)
	assert.Equal(t, 4, doc.Usage.EventsLast30Days)

	require.NotNil(t, doc.Events)
	require.NotEmpty(t, doc.Events.ByType)
	assert.Equal(t, events.CLIStarted, doc.Events.ByType[0].Event)
	assert.Equal(t, 2, doc.Events.ByType[0].Count)
	assert.Equal(t, 40, doc.Events.ByType[0].Percentage)
	assert.Len(t, doc.Events.Timeline, 3)
	assert.Equal(t, "2025-03-10", doc.Events.Timeline[2].Date)
	require.Len(t, doc.Events.Recent, 5)
	assert.Equal(t, "evt-5", doc.Events.Recent[0].ID)

	require.NotNil(t, doc.Frameworks)
	assert.Equal(t, 1, doc.Frameworks.Frontend["react"])
	assert.Equal(t, 1, doc.Frameworks.Frontend["svelte"])
	assert.Equal(t, 1, doc.Frameworks.Database["sqlite"])
	assert.Equal(t, 1, doc.Frameworks.ORM["prisma"])

	require.NotNil(t, doc.Features)
	assert.Equal(t, 2, doc.Features.TotalProjects)

	require.NotEmpty(t, doc.StackCombinations)
	assert.NotNil(t, doc.DeveloperExperience)
	assert.Equal(t, 50, doc.DeveloperExperience.TypeScriptAdoption)
	assert.Equal(t, 1, doc.AIAutomation.MCPServerAdoption["filesystem"])
	assert.Equal(t, 1, doc.Errors.TotalErrors)
	assert.Nil(t, doc.RawEvents)
}

func TestProcessor_Idempotent(t *testing.T) {
	p := NewProcessor()
	window := sampleWindow()

	first := p.Process(window, nil, "1", baseTime)
	second := p.Process(window, nil, "1", baseTime)

	a, err := json.Marshal(first)
	require.NoError(t, err)
	b, err := json.Marshal(second)
	require.NoError(t, err)
	assert.JSONEq(t, string(a), string(b))
	assert.Equal(t, string(a), string(b))
}

func TestProcessor_EmptyInput(t *testing.T) {
	doc := NewProcessor().Process(nil, nil, "1", baseTime)

	assert.Equal(t, 0, doc.Usage.TotalEvents)
	assert.NotNil(t, doc.StackCombinations)
	assert.Empty(t, doc.StackCombinations)
	assert.Equal(t, 0, doc.DeveloperExperience.TypeScriptAdoption)
	assert.Equal(t, 0, doc.UserJourney.CompletionRate)

	body, err := json.Marshal(doc)
	require.NoError(t, err)
	assert.Contains(t, string(body), `"stackCombinations":[]`)
	assert.NotContains(t, string(body), "rawEvents")
}

func TestMetricsDocument_WithoutRawEvents(t *testing.T) {
	doc := &MetricsDocument{RawEvents: sampleWindow()}
	served := doc.WithoutRawEvents()

	assert.Nil(t, served.RawEvents)
	assert.Len(t, doc.RawEvents, 5)
	assert.Nil(t, (*MetricsDocument)(nil).WithoutRawEvents())
}
