package analytics

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/stackpulse/pkg/events"
)

var baseTime = time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

// rawEvent builds a raw event offset from baseTime by the given number of seconds
func rawEvent(id int, name string, offsetSeconds int, props map[string]interface{}) events.RawEvent {
	return events.RawEvent{
		ID:         fmt.Sprintf("evt-%d", id),
		Event:      name,
		Timestamp:  baseTime.Add(time.Duration(offsetSeconds) * time.Second).Format(time.RFC3339),
		DistinctID: fmt.Sprintf("user-%d", id%3),
		Properties: props,
	}
}

func normalized(raw ...events.RawEvent) []events.Event {
	return events.NormalizeAll(raw)
}

func TestPercent(t *testing.T) {
	assert.Equal(t, 43, Percent(3, 7))
	assert.Equal(t, 0, Percent(0, 0))
	assert.Equal(t, 500, Percent(5, 0))
	assert.Equal(t, 50, Percent(1, 2))
	assert.Equal(t, 67, Percent(2, 3))
}

func TestRunningMean(t *testing.T) {
	var m runningMean
	for _, v := range []float64{100, 0, 100, 100} {
		m.add(v)
	}
	assert.Equal(t, 75, m.rounded())
}

func TestPercentile(t *testing.T) {
	samples := []int64{100, 200, 300, 400, 500, 600, 700, 800, 900, 1000}
	assert.Equal(t, 500, percentile(samples, 50))
	assert.Equal(t, 1000, percentile(samples, 95))
	assert.Equal(t, 0, percentile(nil, 50))
}

func TestAnalyzeDeveloperExperience_TypeScriptRounding(t *testing.T) {
	var raw []events.RawEvent
	for i := 0; i < 7; i++ {
		props := map[string]interface{}{"framework": "react"}
		switch i {
		case 0:
			props["typescript"] = true
		case 1:
			props["typescript"] = "true"
		case 2:
			props["typeScript"] = true
		default:
			props["typescript"] = false
		}
		raw = append(raw, rawEvent(i, events.ProjectCreated, i, props))
	}

	dx := AnalyzeDeveloperExperience(normalized(raw...))
	assert.Equal(t, 7, dx.TotalProjects)
	assert.Equal(t, 43, dx.TypeScriptAdoption)
}

func TestAnalyzeDeveloperExperience_TestingNone(t *testing.T) {
	evts := normalized(
		rawEvent(1, events.ProjectCreated, 0, map[string]interface{}{"testing": "vitest"}),
		rawEvent(2, events.ProjectCreated, 1, map[string]interface{}{"testing": "none"}),
	)
	assert.Equal(t, 50, AnalyzeDeveloperExperience(evts).TestingAdoption)
}

func TestAnalyzeStackCombinations_Ranking(t *testing.T) {
	var raw []events.RawEvent
	for i := 0; i < 5; i++ {
		raw = append(raw, rawEvent(i, events.ProjectCreated, i, map[string]interface{}{
			"framework": "react", "backend": "express", "database": "postgres",
			"orm": "prisma", "styling": "tailwind", "success": true,
			"setupDuration": 1000 * (i + 1),
		}))
	}
	for i := 5; i < 7; i++ {
		raw = append(raw, rawEvent(i, events.ProjectCreated, i, map[string]interface{}{
			"framework": "vue", "backend": "none", "success": i == 5,
		}))
	}

	stacks := AnalyzeStackCombinations(normalized(raw...))
	require.Len(t, stacks, 2)

	top := stacks[0]
	assert.Equal(t, "react", top.Framework)
	assert.Equal(t, 5, top.Frequency)
	assert.Equal(t, 100, top.SuccessRate)
	assert.Equal(t, 3000, top.AvgSetupTime)

	assert.Equal(t, "vue", stacks[1].Framework)
	assert.Equal(t, "none", stacks[1].Database)
	assert.Equal(t, 2, stacks[1].Frequency)
	assert.Equal(t, 50, stacks[1].SuccessRate)
}

func TestAnalyzeStackCombinations_TopTwenty(t *testing.T) {
	var raw []events.RawEvent
	for i := 0; i < 30; i++ {
		raw = append(raw, rawEvent(i, events.ProjectCreated, i, map[string]interface{}{
			"framework": fmt.Sprintf("fw-%02d", i),
		}))
	}
	assert.Len(t, AnalyzeStackCombinations(normalized(raw...)), MaxStackCombinations)
}

func TestAnalyzePerformance_DiscardsImplausibleDurations(t *testing.T) {
	evts := normalized(
		rawEvent(1, events.ProjectCreated, 0, map[string]interface{}{
			"packageManager": "pnpm", "setupDuration": 2000, "installDuration": 1000, "framework": "react",
		}),
		rawEvent(2, events.ProjectCreated, 1, map[string]interface{}{
			"packageManager": "pnpm", "setupDuration": 4000, "installDuration": 900000, "framework": "react", "success": false,
		}),
		rawEvent(3, events.ProjectCreated, 2, map[string]interface{}{
			"packageManager": "pip", "setupDuration": 1000,
		}),
	)

	perf := AnalyzePerformance(evts)
	assert.Equal(t, 3, perf.SampleSize)
	assert.Equal(t, 3000, perf.AvgSetupTimeByPackageManager["pnpm"])
	assert.Equal(t, 1000, perf.AvgInstallTimeByPackageManager["pnpm"])
	assert.Equal(t, 50, perf.SuccessRateByPackageManager["pnpm"])
	assert.Equal(t, 50, perf.SuccessRateByFramework["react"])
	assert.NotContains(t, perf.AvgSetupTimeByPackageManager, "pip")
	assert.Equal(t, 2000, perf.SetupTimeP50)
	assert.Equal(t, 4000, perf.SetupTimeP95)
}

func TestAnalyzeUserJourney_Dropoff(t *testing.T) {
	var raw []events.RawEvent
	id := 0
	for s := 0; s < 3; s++ {
		session := fmt.Sprintf("failed-%d", s)
		for i, name := range []string{events.CLIStarted, events.TemplateSelected, events.TemplateGenerationFailed} {
			id++
			raw = append(raw, rawEvent(id, name, s*100+i, map[string]interface{}{"sessionId": session}))
		}
	}
	id++
	raw = append(raw, rawEvent(id, events.CLIStarted, 500, map[string]interface{}{"sessionId": "ok", "source": "website"}))
	id++
	raw = append(raw, rawEvent(id, events.ProjectCreated, 530, map[string]interface{}{"sessionId": "ok"}))
	id++
	raw = append(raw, rawEvent(id, "$pageview", 540, map[string]interface{}{"sessionId": "ok"}))

	j := AnalyzeUserJourney(normalized(raw...))
	assert.Equal(t, 4, j.TotalSessions)
	assert.Equal(t, 1, j.CompletedSessions)
	assert.Equal(t, 25, j.CompletionRate)
	assert.Equal(t, 30000, j.AvgCompletionTime)
	assert.Equal(t, 3, j.EntryPoints["cli"])
	assert.Equal(t, 1, j.EntryPoints["website"])

	require.NotEmpty(t, j.DropoffPoints)
	assert.Equal(t, events.TemplateGenerationFailed, j.DropoffPoints[0].Event)
	assert.Equal(t, 3, j.DropoffPoints[0].Frequency)
	assert.Equal(t, 100, j.DropoffPoints[0].Percentage)

	require.NotEmpty(t, j.CommonPaths)
	assert.Equal(t, "cli_started → template_selected → template_generation_failed", j.CommonPaths[0].Path)
	assert.Equal(t, 3, j.CommonPaths[0].Frequency)
}

func TestAnalyzeUserJourney_PrefersExplicitDuration(t *testing.T) {
	evts := normalized(
		rawEvent(1, events.ProjectCreationStarted, 0, map[string]interface{}{"sessionId": "s"}),
		rawEvent(2, events.RetryAttempted, 10, map[string]interface{}{"sessionId": "s"}),
		rawEvent(3, events.ProjectCompleted, 120, map[string]interface{}{"sessionId": "s", "duration": 4500}),
	)
	j := AnalyzeUserJourney(evts)
	assert.Equal(t, 4500, j.AvgCompletionTime)
	assert.Equal(t, 1.0, j.AvgRetryCount)
	assert.Equal(t, 1, j.EntryPoints["cli"])
}

func TestAnalyzeAIAutomation_MCPServerCSV(t *testing.T) {
	evts := normalized(
		rawEvent(1, events.ProjectCreated, 0, map[string]interface{}{
			"mcpServers": "filesystem, github", "aiAssistant": "claude", "docker": "true",
		}),
		rawEvent(2, events.ProjectCreated, 1, map[string]interface{}{
			"mcpServers": []interface{}{"filesystem"}, "githubActions": true,
		}),
		rawEvent(3, events.ProjectCreated, 2, map[string]interface{}{"aiAssistant": "none"}),
	)

	ai := AnalyzeAIAutomation(evts)
	assert.Equal(t, 2, ai.MCPServerAdoption["filesystem"])
	assert.Equal(t, 1, ai.MCPServerAdoption["github"])
	assert.Equal(t, 67, ai.MCPAdoptionRate)
	assert.Equal(t, 33, ai.AIAssistantAdoption)
	assert.Equal(t, 33, ai.AssistantAdoption["claude"])
	assert.Equal(t, 1, ai.DockerUsage)
	assert.Equal(t, 1, ai.GithubActionsUsage)
}

func TestAnalyzeErrors(t *testing.T) {
	evts := normalized(
		rawEvent(1, events.ErrorOccurred, 0, map[string]interface{}{"errorType": "network"}),
		rawEvent(2, events.ErrorOccurred, 1, map[string]interface{}{"errorType": "network"}),
		rawEvent(3, events.ErrorOccurred, 2, map[string]interface{}{"errorType": "permission"}),
		rawEvent(4, events.ErrorOccurred, 3, nil),
		rawEvent(5, events.ErrorRecovered, 4, map[string]interface{}{
			"errorType": "network", "resolutionTime": 1200, "resolutionMethod": "retry",
		}),
		rawEvent(6, events.ErrorRecovered, 5, map[string]interface{}{
			"errorType": "network", "resolutionTime": 999999, "resolutionMethod": "retry",
		}),
		rawEvent(7, events.FallbackTriggered, 6, map[string]interface{}{"fallbackType": "package-manager"}),
		rawEvent(8, events.FallbackTriggered, 7, map[string]interface{}{"fallbackType": "offline"}),
		rawEvent(9, events.FallbackTriggered, 8, map[string]interface{}{"fallbackType": "template"}),
	)

	m := AnalyzeErrors(evts)
	assert.Equal(t, 4, m.TotalErrors)
	assert.Equal(t, 2, m.TotalRecovered)
	assert.Equal(t, 50, m.RecoveryRate)
	assert.Equal(t, FallbackTriggers{PackageManager: 1, Offline: 1, Template: 1}, m.FallbackTriggers)

	require.Len(t, m.TopErrors, 3)
	assert.Equal(t, "network", m.TopErrors[0].ErrorType)
	assert.Equal(t, 100, m.TopErrors[0].RecoveryRate)
	assert.Equal(t, 1200, m.TopErrors[0].AvgResolutionTime)
	assert.Equal(t, "retry", m.TopErrors[0].CommonResolution)
	assert.Equal(t, "permission", m.TopErrors[1].ErrorType)
	assert.Equal(t, "unknown", m.TopErrors[2].ErrorType)
}

func TestAnalyzePlugins(t *testing.T) {
	evts := normalized(
		rawEvent(1, events.ProjectCreated, 0, map[string]interface{}{
			"plugins": "stripe,pwa", "auth": "better-auth", "payments": "stripe",
		}),
		rawEvent(2, events.ProjectCreated, 1, map[string]interface{}{
			"plugins": []interface{}{"pwa", "stripe"}, "success": false,
		}),
		rawEvent(3, events.ProjectCreated, 2, map[string]interface{}{
			"plugins": "tauri", "auth": "none", "payments": "polar",
		}),
	)

	p := AnalyzePlugins(evts)
	require.Len(t, p.PluginUsage, 3)
	assert.Equal(t, "pwa", p.PluginUsage[0].Plugin)
	assert.Equal(t, 2, p.PluginUsage[0].Usage)
	assert.Equal(t, 50, p.PluginUsage[0].SuccessRate)

	require.NotEmpty(t, p.PopularCombinations)
	assert.Equal(t, "pwa+stripe", p.PopularCombinations[0].Plugins)
	assert.Equal(t, 2, p.PopularCombinations[0].Frequency)

	assert.Equal(t, map[string]int{"better-auth": 1}, p.AuthProviders)
	assert.Equal(t, map[string]int{"stripe": 2, "polar": 1}, p.PaymentPlugins)
}

func TestAnalyzeQuality_SecurityAudits(t *testing.T) {
	evts := normalized(
		rawEvent(1, events.ProjectCreated, 0, map[string]interface{}{"biome": true, "testing": "jest"}),
		rawEvent(2, events.ProjectCreated, 1, map[string]interface{}{"eslint": "true", "documentation": true}),
		rawEvent(3, events.SecurityAuditStarted, 2, nil),
		rawEvent(4, events.SecurityAuditStarted, 3, nil),
		rawEvent(5, events.SecurityAuditCompleted, 4, map[string]interface{}{"passed": true}),
	)

	q := AnalyzeQuality(evts)
	assert.Equal(t, 50, q.BiomeAdoption)
	assert.Equal(t, 50, q.ESLintAdoption)
	assert.Equal(t, 50, q.DocumentationAdoption)
	assert.Equal(t, 1, q.TestingFrameworks["jest"])
	assert.Equal(t, 2, q.SecurityAudits)
	assert.Equal(t, 50, q.SecurityAuditPassRate)
}

func TestAnalyzeTemplates_FallsBackToProjectCreated(t *testing.T) {
	evts := normalized(
		rawEvent(1, events.ProjectCreated, 0, map[string]interface{}{"framework": "react", "backend": "hono"}),
		rawEvent(2, events.ProjectCreated, 1, map[string]interface{}{"framework": "react", "backend": "hono"}),
		rawEvent(3, events.ProjectCreated, 2, map[string]interface{}{"framework": "svelte", "backend": "none"}),
	)

	tm := AnalyzeTemplates(evts)
	assert.Equal(t, events.ProjectCreated, tm.Source)
	assert.Equal(t, 2, tm.TotalTemplates)
	require.Len(t, tm.Templates, 2)
	assert.Equal(t, "react-hono", tm.Templates[0].Template)
	assert.Equal(t, 2, tm.Templates[0].Usage)
	assert.Equal(t, "svelte", tm.Templates[1].Template)
}

func TestAnalyzeTemplates_UsesTemplateSelected(t *testing.T) {
	evts := normalized(
		rawEvent(1, events.TemplateSelected, 0, map[string]interface{}{"template": "t3-stack"}),
		rawEvent(2, events.ProjectCreated, 1, map[string]interface{}{"framework": "react"}),
	)
	tm := AnalyzeTemplates(evts)
	assert.Equal(t, events.TemplateSelected, tm.Source)
	require.Len(t, tm.Templates, 1)
	assert.Equal(t, "t3-stack", tm.Templates[0].Template)
}

func TestAnalyzeUserPreferences(t *testing.T) {
	evts := normalized(
		rawEvent(1, events.ProjectCreated, 0, map[string]interface{}{
			"packageManager": "bun", "install": true, "aiAssistant": "cursor",
		}),
		rawEvent(2, events.ProjectCreated, 1, map[string]interface{}{
			"packageManager": "npm", "install": "false",
			"typescript": true, "docker": true, "eslint": true, "prettier": true,
			"husky": true, "auth": "clerk", "database": "postgres", "orm": "drizzle",
			"plugins": "pwa,tauri",
		}),
		rawEvent(3, events.ProjectCreated, 2, map[string]interface{}{
			"typescript": true, "docker": true, "eslint": true, "prettier": true,
		}),
	)

	prefs := AnalyzeUserPreferences(evts)
	assert.Equal(t, events.ProjectCreated, prefs.Source)
	assert.Equal(t, map[string]int{"bun": 1, "npm": 1}, prefs.PackageManagers)
	assert.Equal(t, map[string]int{"automatic": 1, "manual": 1}, prefs.InstallModes)
	assert.Equal(t, 1, prefs.WorkflowComplexity[ComplexitySimple])
	assert.Equal(t, 1, prefs.WorkflowComplexity[ComplexityModerate])
	assert.Equal(t, 1, prefs.WorkflowComplexity[ComplexityComplex])
	assert.Equal(t, 1, prefs.AIAssisted)
	assert.Equal(t, 2, prefs.Manual)
	assert.Equal(t, 33, prefs.AIAssistedRate)
}
