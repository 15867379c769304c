package analytics

import (
	"sort"
	"time"

	"github.com/platinummonkey/stackpulse/pkg/events"
)

const (
	defaultRecentLimit = 50
	timelineLayout     = "2006-01-02"
	day                = 24 * time.Hour
)

// Known framework names per category. Selections outside these lists are not counted in
// the framework breakdown.
var (
	FrontendFrameworks = []string{
		"react", "next", "nextjs", "vue", "nuxt", "svelte", "sveltekit", "solid", "angular",
		"astro", "remix", "react-router", "tanstack-router", "tanstack-start", "native",
	}
	BackendFrameworks = []string{"express", "hono", "fastify", "elysia", "nestjs", "next", "convex", "koa"}
	Databases         = []string{"postgres", "postgresql", "mysql", "sqlite", "mongodb", "turso", "supabase", "neon"}
	ORMs              = []string{"prisma", "drizzle", "mongoose", "typeorm", "kysely"}
)

// featureFlags are the feature keys counted in the feature breakdown
var featureFlags = []struct {
	name    string
	enabled func(events.Event) bool
}{
	{"typescript", func(e events.Event) bool { return e.TypeScript }},
	{"docker", func(e events.Event) bool { return e.Docker }},
	{"git", func(e events.Event) bool { return e.Git }},
	{"eslint", func(e events.Event) bool { return e.ESLint }},
	{"prettier", func(e events.Event) bool { return e.Prettier }},
	{"biome", func(e events.Event) bool { return e.Biome }},
	{"husky", func(e events.Event) bool { return e.Husky }},
	{"testing", func(e events.Event) bool { return e.HasTesting() }},
	{"cicd", func(e events.Event) bool { return e.CICD }},
	{"githubActions", func(e events.Event) bool { return e.GithubActions }},
	{"documentation", func(e events.Event) bool { return e.Documentation }},
	{"auth", func(e events.Event) bool { return isSet(e.Auth) }},
	{"payments", func(e events.Event) bool { return isSet(e.Payments) }},
	{"install", func(e events.Event) bool { return e.Install }},
}

// AdvancedMetrics holds the output of the nine derivation passes
type AdvancedMetrics struct {
	StackCombinations   []StackCombination
	DeveloperExperience *DeveloperExperience
	Performance         *PerformanceMetrics
	UserJourney         *UserJourney
	AIAutomation        *AIAutomation
	Errors              *ErrorMetrics
	Plugins             *PluginMetrics
	Quality             *QualityMetrics
	Templates           *TemplateMetrics
	UserPreferences     *UserPreferences
}

// Advanced runs every derivation pass over evts
func Advanced(evts []events.Event) AdvancedMetrics {
	return AdvancedMetrics{
		StackCombinations:   AnalyzeStackCombinations(evts),
		DeveloperExperience: AnalyzeDeveloperExperience(evts),
		Performance:         AnalyzePerformance(evts),
		UserJourney:         AnalyzeUserJourney(evts),
		AIAutomation:        AnalyzeAIAutomation(evts),
		Errors:              AnalyzeErrors(evts),
		Plugins:             AnalyzePlugins(evts),
		Quality:             AnalyzeQuality(evts),
		Templates:           AnalyzeTemplates(evts),
		UserPreferences:     AnalyzeUserPreferences(evts),
	}
}

// Processor assembles a MetricsDocument from raw events. It performs no I/O.
type Processor struct {
	recentLimit int
}

// NewProcessor creates a processor with default settings
func NewProcessor() *Processor {
	return &Processor{recentLimit: defaultRecentLimit}
}

// Process normalizes raw and derives the complete document. now anchors the 7 and 30 day
// windows and is recorded as both timestamp and lastUpdated.
func (p *Processor) Process(raw []events.RawEvent, persons []events.Person, projectID string, now time.Time) *MetricsDocument {
	evts := events.NormalizeAll(raw)
	events.SortByTime(evts)

	now = now.UTC()
	doc := &MetricsDocument{
		Timestamp:   now,
		LastUpdated: now,
		Project:     ProjectInfo{ID: projectID},
		Usage:       usageSummary(evts, persons, now),
		Events:      p.eventMetrics(evts),
		Frameworks:  frameworkMetrics(evts),
		Features:    featureMetrics(evts),
	}

	adv := Advanced(evts)
	doc.StackCombinations = adv.StackCombinations
	doc.DeveloperExperience = adv.DeveloperExperience
	doc.Performance = adv.Performance
	doc.UserJourney = adv.UserJourney
	doc.AIAutomation = adv.AIAutomation
	doc.Errors = adv.Errors
	doc.Plugins = adv.Plugins
	doc.Quality = adv.Quality
	doc.Templates = adv.Templates
	doc.UserPreferences = adv.UserPreferences
	return doc
}

func usageSummary(evts []events.Event, persons []events.Person, now time.Time) UsageSummary {
	week := now.Add(-7 * day)
	month := now.Add(-30 * day)

	users := make(map[string]bool)
	users7 := make(map[string]bool)
	users30 := make(map[string]bool)
	out := UsageSummary{TotalEvents: len(evts), TotalPersons: len(persons)}

	for _, e := range evts {
		user := e.UserKey()
		if user != "" {
			users[user] = true
		}
		if e.Timestamp.IsZero() || e.Timestamp.After(now) {
			continue
		}
		if !e.Timestamp.Before(month) {
			out.EventsLast30Days++
			if user != "" {
				users30[user] = true
			}
		}
		if !e.Timestamp.Before(week) {
			out.EventsLast7Days++
			if user != "" {
				users7[user] = true
			}
		}
	}
	out.UniqueUsers = len(users)
	out.UsersLast7Days = len(users7)
	out.UsersLast30Days = len(users30)
	return out
}

func (p *Processor) eventMetrics(evts []events.Event) *EventMetrics {
	byType := make(map[string]int)
	byDay := make(map[string]int)
	for _, e := range evts {
		byType[e.Name]++
		if !e.Timestamp.IsZero() {
			byDay[e.Timestamp.UTC().Format(timelineLayout)]++
		}
	}

	out := &EventMetrics{
		ByType:   []EventTypeCount{},
		Timeline: []TimelinePoint{},
		Recent:   []EventSummary{},
	}
	for _, entry := range rankCounts(byType, 0) {
		out.ByType = append(out.ByType, EventTypeCount{
			Event:      entry.Key,
			Count:      entry.Count,
			Percentage: Percent(entry.Count, len(evts)),
		})
	}

	for date, count := range byDay {
		out.Timeline = append(out.Timeline, TimelinePoint{Date: date, Count: count})
	}
	sort.Slice(out.Timeline, func(i, j int) bool { return out.Timeline[i].Date < out.Timeline[j].Date })

	// evts is sorted oldest first
	for i := len(evts) - 1; i >= 0 && len(out.Recent) < p.recentLimit; i-- {
		e := evts[i]
		out.Recent = append(out.Recent, EventSummary{
			ID:             e.ID,
			Event:          e.Name,
			Timestamp:      e.Timestamp,
			DistinctID:     e.DistinctID,
			Framework:      e.Framework,
			Backend:        e.Backend,
			Database:       e.Database,
			PackageManager: e.PackageManager,
			Success:        e.Success,
		})
	}
	return out
}

func frameworkMetrics(evts []events.Event) *FrameworkMetrics {
	out := &FrameworkMetrics{
		Frontend: make(map[string]int),
		Backend:  make(map[string]int),
		Database: make(map[string]int),
		ORM:      make(map[string]int),
	}
	count := func(dst map[string]int, known []string, v string) {
		for _, k := range known {
			if k == v {
				dst[v]++
				return
			}
		}
	}
	for _, e := range evts {
		if e.Name != events.ProjectCreated {
			continue
		}
		count(out.Frontend, FrontendFrameworks, e.Framework)
		count(out.Backend, BackendFrameworks, e.Backend)
		count(out.Database, Databases, e.Database)
		count(out.ORM, ORMs, e.ORM)
	}
	return out
}

func featureMetrics(evts []events.Event) *FeatureMetrics {
	created := events.Filter(evts, events.ProjectCreated)
	out := &FeatureMetrics{
		TotalProjects: len(created),
		Features:      make([]FeatureUsage, 0, len(featureFlags)),
	}
	for _, f := range featureFlags {
		n := 0
		for _, e := range created {
			if f.enabled(e) {
				n++
			}
		}
		out.Features = append(out.Features, FeatureUsage{
			Feature:    f.name,
			Count:      n,
			Percentage: Percent(n, len(created)),
		})
	}
	sort.SliceStable(out.Features, func(i, j int) bool {
		return out.Features[i].Count > out.Features[j].Count
	})
	return out
}
