package analytics

import (
	"github.com/platinummonkey/stackpulse/pkg/events"
)

const maxTemplates = 15

type templateAccumulator struct {
	usage ratio
	setup mean
}

// AnalyzeTemplates ranks templates. template_selected events are used when present;
// otherwise a template key of "framework" or "framework-backend" is derived from
// project_created events.
func AnalyzeTemplates(evts []events.Event) *TemplateMetrics {
	source := events.TemplateSelected
	candidates := templateSelections(evts)
	if len(candidates) == 0 {
		source = events.ProjectCreated
		candidates = events.Filter(evts, events.ProjectCreated)
	}

	byTemplate := make(map[string]*templateAccumulator)
	for _, e := range candidates {
		key := templateKey(e, source)
		if key == "" {
			continue
		}
		acc, ok := byTemplate[key]
		if !ok {
			acc = &templateAccumulator{}
			byTemplate[key] = acc
		}
		acc.usage.add(e.Success)
		acc.setup.addMillis(e.SetupDuration)
	}

	counts := make(map[string]int, len(byTemplate))
	for key, acc := range byTemplate {
		counts[key] = acc.usage.total
	}

	out := &TemplateMetrics{
		Source:         source,
		TotalTemplates: len(byTemplate),
		Templates:      []TemplateStat{},
	}
	for _, entry := range rankCounts(counts, maxTemplates) {
		acc := byTemplate[entry.Key]
		out.Templates = append(out.Templates, TemplateStat{
			Template:     entry.Key,
			Usage:        acc.usage.total,
			SuccessRate:  acc.usage.percent(),
			AvgSetupTime: acc.setup.rounded(),
		})
	}
	return out
}

func templateSelections(evts []events.Event) []events.Event {
	var out []events.Event
	for _, e := range evts {
		if e.Name == events.TemplateSelected && e.Template != "" {
			out = append(out, e)
		}
	}
	return out
}

func templateKey(e events.Event, source string) string {
	if source == events.TemplateSelected {
		return e.Template
	}
	if e.Framework == "" {
		return ""
	}
	if isSet(e.Backend) {
		return e.Framework + "-" + e.Backend
	}
	return e.Framework
}

// Workflow complexity tiers
const (
	ComplexitySimple   = "simple"
	ComplexityModerate = "moderate"
	ComplexityComplex  = "complex"
)

// AnalyzeUserPreferences buckets package manager, install mode, workflow complexity and
// AI assistance. user_preferences_set events are used when present, project_created
// events otherwise.
func AnalyzeUserPreferences(evts []events.Event) *UserPreferences {
	source := events.PreferencesSet
	candidates := events.Filter(evts, events.PreferencesSet)
	if len(candidates) == 0 {
		source = events.ProjectCreated
		candidates = events.Filter(evts, events.ProjectCreated)
	}

	out := &UserPreferences{
		Source:             source,
		PackageManagers:    make(map[string]int),
		InstallModes:       make(map[string]int),
		WorkflowComplexity: make(map[string]int),
	}
	for _, e := range candidates {
		if e.PackageManager != "" {
			out.PackageManagers[e.PackageManager]++
		}
		if e.Properties.Has("install", "installDependencies") {
			if e.Install {
				out.InstallModes["automatic"]++
			} else {
				out.InstallModes["manual"]++
			}
		}
		out.WorkflowComplexity[complexityTier(e)]++
		if e.HasAIAssistant() || len(e.MCPServers) > 0 {
			out.AIAssisted++
		} else {
			out.Manual++
		}
	}
	out.AIAssistedRate = Percent(out.AIAssisted, len(candidates))
	return out
}

// complexityTier scores the number of optional choices made for a project
func complexityTier(e events.Event) string {
	score := len(e.Addons) + len(e.Plugins)
	for _, flag := range []bool{e.TypeScript, e.Docker, e.ESLint, e.Prettier, e.Biome, e.Husky, e.CICD, e.GithubActions, e.HasTesting()} {
		if flag {
			score++
		}
	}
	for _, choice := range []string{e.Auth, e.Payments, e.Database, e.ORM} {
		if isSet(choice) {
			score++
		}
	}

	switch {
	case score <= 3:
		return ComplexitySimple
	case score <= 7:
		return ComplexityModerate
	default:
		return ComplexityComplex
	}
}
