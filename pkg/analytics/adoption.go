package analytics

import (
	"github.com/platinummonkey/stackpulse/pkg/events"
)

// AnalyzeDeveloperExperience computes adoption percentages of quality flags across
// project_created events.
func AnalyzeDeveloperExperience(evts []events.Event) *DeveloperExperience {
	var total, ts, docker, git, eslint, prettier, testing, cicd int
	for _, e := range evts {
		if e.Name != events.ProjectCreated {
			continue
		}
		total++
		if e.TypeScript {
			ts++
		}
		if e.Docker {
			docker++
		}
		if e.Git {
			git++
		}
		if e.ESLint {
			eslint++
		}
		if e.Prettier {
			prettier++
		}
		if e.HasTesting() {
			testing++
		}
		if e.CICD {
			cicd++
		}
	}

	return &DeveloperExperience{
		TotalProjects:      total,
		TypeScriptAdoption: Percent(ts, total),
		DockerAdoption:     Percent(docker, total),
		GitAdoption:        Percent(git, total),
		ESLintAdoption:     Percent(eslint, total),
		PrettierAdoption:   Percent(prettier, total),
		TestingAdoption:    Percent(testing, total),
		CICDAdoption:       Percent(cicd, total),
	}
}

// AnalyzeAIAutomation measures AI assistant, MCP server and automation adoption.
func AnalyzeAIAutomation(evts []events.Event) *AIAutomation {
	out := &AIAutomation{
		AssistantAdoption: make(map[string]int),
		MCPServerAdoption: make(map[string]int),
	}
	assistants := make(map[string]int)
	var withAssistant, withMCP int

	for _, e := range evts {
		if e.Name != events.ProjectCreated {
			continue
		}
		out.TotalProjects++

		if e.HasAIAssistant() {
			withAssistant++
			assistants[e.AIAssistant]++
		}

		seen := make(map[string]bool, len(e.MCPServers))
		for _, server := range e.MCPServers {
			if seen[server] {
				continue
			}
			seen[server] = true
			out.MCPServerAdoption[server]++
		}
		if len(seen) > 0 {
			withMCP++
		}

		if e.Docker {
			out.DockerUsage++
		}
		if e.GithubActions {
			out.GithubActionsUsage++
		}
		if e.CICD {
			out.CICDUsage++
		}
	}

	out.AIAssistantAdoption = Percent(withAssistant, out.TotalProjects)
	out.MCPAdoptionRate = Percent(withMCP, out.TotalProjects)
	for name, n := range assistants {
		out.AssistantAdoption[name] = Percent(n, out.TotalProjects)
	}
	return out
}

// AnalyzeQuality measures code-quality tool adoption and security audit outcomes.
func AnalyzeQuality(evts []events.Event) *QualityMetrics {
	out := &QualityMetrics{TestingFrameworks: make(map[string]int)}
	var eslint, prettier, biome, husky, docs int
	var auditsStarted, auditsCompleted, auditsPassed int

	for _, e := range evts {
		switch e.Name {
		case events.ProjectCreated:
			out.TotalProjects++
			if e.ESLint {
				eslint++
			}
			if e.Prettier {
				prettier++
			}
			if e.Biome {
				biome++
			}
			if e.Husky {
				husky++
			}
			if e.Documentation {
				docs++
			}
			if e.HasTesting() {
				out.TestingFrameworks[e.Testing]++
			}
		case events.SecurityAuditStarted:
			auditsStarted++
		case events.SecurityAuditCompleted:
			auditsCompleted++
			if e.Passed {
				auditsPassed++
			}
		}
	}

	out.ESLintAdoption = Percent(eslint, out.TotalProjects)
	out.PrettierAdoption = Percent(prettier, out.TotalProjects)
	out.BiomeAdoption = Percent(biome, out.TotalProjects)
	out.HuskyAdoption = Percent(husky, out.TotalProjects)
	out.DocumentationAdoption = Percent(docs, out.TotalProjects)

	// Completions without a recorded start still count as audits run.
	out.SecurityAudits = auditsStarted
	if auditsCompleted > out.SecurityAudits {
		out.SecurityAudits = auditsCompleted
	}
	out.SecurityAuditPassRate = Percent(auditsPassed, out.SecurityAudits)
	return out
}
