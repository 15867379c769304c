package events

import (
	"sort"
	"strings"
	"time"
)

// Event type names emitted by the CLI and website.
const (
	CLIStarted                = "cli_started"
	ProjectCreationStarted    = "project_creation_started"
	PromptsCompleted          = "prompts_completed"
	TemplateSelected          = "template_selected"
	TemplateGenerationStarted = "template_generation_started"
	TemplateGenerationFailed  = "template_generation_failed"
	InstallationStarted       = "installation_started"
	InstallationCompleted     = "installation_completed"
	InstallationFailed        = "installation_failed"
	ProjectCreated            = "project_created"
	ProjectCompleted          = "project_completed"
	RetryAttempted            = "retry_attempted"
	ErrorOccurred             = "error_occurred"
	ErrorRecovered            = "error_recovered"
	FallbackTriggered         = "fallback_triggered"
	SecurityAuditStarted      = "security_audit_started"
	SecurityAuditCompleted    = "security_audit_completed"
	PreferencesSet            = "user_preferences_set"
)

// Event is a RawEvent with its properties coerced into typed fields.
type Event struct {
	ID         string
	Name       string
	Timestamp  time.Time
	DistinctID string
	PersonID   string
	SessionID  string
	Properties Properties

	// Stack selection
	Framework      string
	Backend        string
	Database       string
	ORM            string
	Styling        string
	Runtime        string
	API            string
	Auth           string
	Payments       string
	PackageManager string
	Template       string

	// Quality and tooling flags
	TypeScript    bool
	Docker        bool
	Git           bool
	ESLint        bool
	Prettier      bool
	Biome         bool
	Husky         bool
	CICD          bool
	GithubActions bool
	Documentation bool
	Install       bool
	Testing       string

	// AI and ecosystem
	AIAssistant string
	MCPServers  []string
	Plugins     []string
	Addons      []string

	// Outcome
	Success         bool
	Passed          bool
	SetupDuration   Millis
	InstallDuration Millis
	Duration        Millis

	// Errors and fallbacks
	ErrorType        string
	ResolutionTime   Millis
	ResolutionMethod string
	FallbackType     string

	// Journey
	Source string
}

// Normalize coerces a raw event into an Event. It never fails: absent or malformed
// properties become zero values.
func Normalize(raw RawEvent) Event {
	props := Properties(raw.Properties)
	if props == nil {
		props = Properties{}
	}

	e := Event{
		ID:         raw.ID,
		Name:       raw.Event,
		Timestamp:  raw.Time(),
		DistinctID: raw.DistinctID,
		PersonID:   raw.PersonID(),
		Properties: props,
	}
	if e.DistinctID == "" {
		e.DistinctID = props.String("distinct_id")
	}
	e.SessionID = props.String("sessionId", "$session_id")

	e.Framework = lower(props.String("framework", "frontend"))
	e.Backend = lower(props.String("backend"))
	e.Database = lower(props.String("database"))
	e.ORM = lower(props.String("orm"))
	e.Styling = lower(props.String("styling", "css"))
	e.Runtime = lower(props.String("runtime"))
	e.API = lower(props.String("api"))
	e.Auth = lower(props.String("authProvider", "auth"))
	e.Payments = lower(props.String("payments", "paymentProvider"))
	e.PackageManager = lower(props.String("packageManager", "pm"))
	e.Template = lower(props.String("template", "templateName"))

	e.TypeScript = props.Bool("typescript", "typeScript")
	e.Docker = props.Bool("docker")
	e.Git = props.Bool("git")
	e.ESLint = props.Bool("eslint")
	e.Prettier = props.Bool("prettier")
	e.Biome = props.Bool("biome")
	e.Husky = props.Bool("husky")
	e.CICD = props.Bool("cicd", "ci")
	e.GithubActions = props.Bool("githubActions")
	e.Documentation = props.Bool("documentation", "docs")
	e.Install = props.Bool("install", "installDependencies")
	e.Testing = lower(props.String("testing", "testFramework"))

	e.AIAssistant = lower(props.String("aiAssistant"))
	e.MCPServers = lowerAll(props.List("mcpServers"))
	e.Plugins = lowerAll(props.List("plugins"))
	e.Addons = lowerAll(props.List("addons"))

	e.Success = props.BoolOr(true, "success")
	e.Passed = props.Bool("passed")
	e.SetupDuration = props.Millis("setupDuration", "duration", "totalDuration")
	e.InstallDuration = props.Millis("installDuration", "installTime")
	e.Duration = props.Millis("duration")

	e.ErrorType = props.String("errorType", "error_code")
	e.ResolutionTime = props.Millis("resolutionTime", "recoveryTime")
	e.ResolutionMethod = props.String("resolutionMethod", "resolution")
	e.FallbackType = lower(props.String("fallbackType", "fallback"))

	e.Source = lower(props.String("source", "entryPoint"))
	return e
}

// NormalizeAll normalizes a batch, preserving order
func NormalizeAll(raw []RawEvent) []Event {
	out := make([]Event, len(raw))
	for i, r := range raw {
		out[i] = Normalize(r)
	}
	return out
}

// SessionKey groups events into journeys
func (e Event) SessionKey() string {
	switch {
	case e.SessionID != "":
		return e.SessionID
	case e.DistinctID != "":
		return e.DistinctID
	case e.PersonID != "":
		return e.PersonID
	default:
		return "anonymous"
	}
}

// UserKey identifies the person behind an event
func (e Event) UserKey() string {
	if e.PersonID != "" {
		return e.PersonID
	}
	return e.DistinctID
}

// HasTesting reports whether a testing framework was selected
func (e Event) HasTesting() bool {
	return e.Testing != "" && e.Testing != "none" && e.Testing != "false"
}

// HasAIAssistant reports whether an AI assistant was selected
func (e Event) HasAIAssistant() bool {
	return e.AIAssistant != "" && e.AIAssistant != "none" && e.AIAssistant != "false"
}

// SortByTime orders events by timestamp, keeping the original order for ties.
func SortByTime(evts []Event) {
	sort.SliceStable(evts, func(i, j int) bool {
		return evts[i].Timestamp.Before(evts[j].Timestamp)
	})
}

// Filter returns the events named name
func Filter(evts []Event, name string) []Event {
	var out []Event
	for _, e := range evts {
		if e.Name == name {
			out = append(out, e)
		}
	}
	return out
}

func lower(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func lowerAll(in []string) []string {
	for i := range in {
		in[i] = lower(in[i])
	}
	return in
}
