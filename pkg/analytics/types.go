package analytics

import (
	"time"

	"github.com/platinummonkey/stackpulse/pkg/events"
)

// MetricsDocument is the complete derived snapshot served to clients. It is replaced
// wholesale on every sync.
type MetricsDocument struct {
	Timestamp   time.Time    `json:"timestamp"`
	LastUpdated time.Time    `json:"lastUpdated"`
	Project     ProjectInfo  `json:"project"`
	Usage       UsageSummary `json:"usage"`

	Events     *EventMetrics     `json:"events,omitempty"`
	Frameworks *FrameworkMetrics `json:"frameworks,omitempty"`
	Features   *FeatureMetrics   `json:"features,omitempty"`

	StackCombinations   []StackCombination   `json:"stackCombinations"`
	DeveloperExperience *DeveloperExperience `json:"developerExperience,omitempty"`
	Performance         *PerformanceMetrics  `json:"performance,omitempty"`
	UserJourney         *UserJourney         `json:"userJourney,omitempty"`
	AIAutomation        *AIAutomation        `json:"aiAutomation,omitempty"`
	Errors              *ErrorMetrics        `json:"errors,omitempty"`
	Plugins             *PluginMetrics       `json:"plugins,omitempty"`
	Quality             *QualityMetrics      `json:"quality,omitempty"`
	Templates           *TemplateMetrics     `json:"templates,omitempty"`
	UserPreferences     *UserPreferences     `json:"userPreferences,omitempty"`

	// RawEvents is the retained window. It is persisted with the document and stripped
	// before the document is served.
	RawEvents []events.RawEvent `json:"rawEvents,omitempty"`
}

// WithoutRawEvents returns a shallow copy suitable for serving
func (d *MetricsDocument) WithoutRawEvents() *MetricsDocument {
	if d == nil {
		return nil
	}
	served := *d
	served.RawEvents = nil
	return &served
}

// Summary is the slice of the document returned by GET /analytics
type Summary struct {
	Timestamp   time.Time    `json:"timestamp"`
	LastUpdated time.Time    `json:"lastUpdated"`
	Project     ProjectInfo  `json:"project"`
	Usage       UsageSummary `json:"usage"`
}

// Summary returns the project, usage and timestamps of the document
func (d *MetricsDocument) Summary() Summary {
	return Summary{
		Timestamp:   d.Timestamp,
		LastUpdated: d.LastUpdated,
		Project:     d.Project,
		Usage:       d.Usage,
	}
}

// ProjectInfo identifies the upstream project
type ProjectInfo struct {
	ID string `json:"id"`
}

// UsageSummary holds the basic usage counters
type UsageSummary struct {
	TotalEvents      int `json:"totalEvents"`
	UniqueUsers      int `json:"uniqueUsers"`
	TotalPersons     int `json:"totalPersons"`
	EventsLast7Days  int `json:"eventsLast7Days"`
	EventsLast30Days int `json:"eventsLast30Days"`
	UsersLast7Days   int `json:"usersLast7Days"`
	UsersLast30Days  int `json:"usersLast30Days"`
}

// EventMetrics breaks events down by type and day
type EventMetrics struct {
	ByType   []EventTypeCount `json:"byType"`
	Timeline []TimelinePoint  `json:"timeline"`
	Recent   []EventSummary   `json:"recent"`
}

// EventTypeCount is the frequency of one event type
type EventTypeCount struct {
	Event      string `json:"event"`
	Count      int    `json:"count"`
	Percentage int    `json:"percentage"`
}

// TimelinePoint is the number of events on one UTC day
type TimelinePoint struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

// EventSummary is a flattened projection of a raw event
type EventSummary struct {
	ID             string    `json:"id"`
	Event          string    `json:"event"`
	Timestamp      time.Time `json:"timestamp"`
	DistinctID     string    `json:"distinctId,omitempty"`
	Framework      string    `json:"framework,omitempty"`
	Backend        string    `json:"backend,omitempty"`
	Database       string    `json:"database,omitempty"`
	PackageManager string    `json:"packageManager,omitempty"`
	Success        bool      `json:"success"`
}

// FrameworkMetrics counts known framework selections
type FrameworkMetrics struct {
	Frontend map[string]int `json:"frontend"`
	Backend  map[string]int `json:"backend"`
	Database map[string]int `json:"database"`
	ORM      map[string]int `json:"orm"`
}

// FeatureMetrics counts enabled features
type FeatureMetrics struct {
	TotalProjects int            `json:"totalProjects"`
	Features      []FeatureUsage `json:"features"`
}

// FeatureUsage is the adoption of a single feature
type FeatureUsage struct {
	Feature    string `json:"feature"`
	Count      int    `json:"count"`
	Percentage int    `json:"percentage"`
}

// StackCombination is one (framework, backend, database, orm, styling) choice
type StackCombination struct {
	Framework    string `json:"framework"`
	Backend      string `json:"backend"`
	Database     string `json:"database"`
	ORM          string `json:"orm"`
	Styling      string `json:"styling"`
	Frequency    int    `json:"frequency"`
	SuccessRate  int    `json:"successRate"`
	AvgSetupTime int    `json:"avgSetupTime"`
}

// DeveloperExperience holds adoption percentages of quality flags
type DeveloperExperience struct {
	TotalProjects      int `json:"totalProjects"`
	TypeScriptAdoption int `json:"typeScriptAdoption"`
	DockerAdoption     int `json:"dockerAdoption"`
	GitAdoption        int `json:"gitAdoption"`
	ESLintAdoption     int `json:"eslintAdoption"`
	PrettierAdoption   int `json:"prettierAdoption"`
	TestingAdoption    int `json:"testingAdoption"`
	CICDAdoption       int `json:"cicdAdoption"`
}

// PerformanceMetrics holds setup and install timings
type PerformanceMetrics struct {
	SampleSize                     int            `json:"sampleSize"`
	AvgSetupTimeByPackageManager   map[string]int `json:"avgSetupTimeByPackageManager"`
	AvgInstallTimeByPackageManager map[string]int `json:"avgInstallTimeByPackageManager"`
	SuccessRateByFramework         map[string]int `json:"successRateByFramework"`
	SuccessRateByPackageManager    map[string]int `json:"successRateByPackageManager"`
	SetupTimeP50                   int            `json:"setupTimeP50"`
	SetupTimeP95                   int            `json:"setupTimeP95"`
}

// UserJourney holds session funnel metrics
type UserJourney struct {
	TotalSessions     int            `json:"totalSessions"`
	CompletedSessions int            `json:"completedSessions"`
	CompletionRate    int            `json:"completionRate"`
	AvgCompletionTime int            `json:"avgCompletionTime"`
	EntryPoints       map[string]int `json:"entryPoints"`
	DropoffPoints     []DropoffPoint `json:"dropoffPoints"`
	AvgRetryCount     float64        `json:"avgRetryCount"`
	CommonPaths       []JourneyPath  `json:"commonPaths"`
}

// DropoffPoint is the last event of sessions that never completed
type DropoffPoint struct {
	Event      string `json:"event"`
	Frequency  int    `json:"frequency"`
	Percentage int    `json:"percentage"`
}

// JourneyPath is an ordered sequence of event types seen in a session
type JourneyPath struct {
	Path      string `json:"path"`
	Frequency int    `json:"frequency"`
}

// AIAutomation holds AI assistant, MCP server and automation adoption
type AIAutomation struct {
	TotalProjects       int            `json:"totalProjects"`
	AIAssistantAdoption int            `json:"aiAssistantAdoption"`
	AssistantAdoption   map[string]int `json:"assistantAdoption"`
	MCPServerAdoption   map[string]int `json:"mcpServerAdoption"`
	MCPAdoptionRate     int            `json:"mcpAdoptionRate"`
	DockerUsage         int            `json:"dockerUsage"`
	GithubActionsUsage  int            `json:"githubActionsUsage"`
	CICDUsage           int            `json:"cicdUsage"`
}

// ErrorMetrics holds error occurrence and recovery analysis
type ErrorMetrics struct {
	TotalErrors      int              `json:"totalErrors"`
	TotalRecovered   int              `json:"totalRecovered"`
	RecoveryRate     int              `json:"recoveryRate"`
	TopErrors        []ErrorTypeStat  `json:"topErrors"`
	FallbackTriggers FallbackTriggers `json:"fallbackTriggers"`
}

// ErrorTypeStat aggregates one error type
type ErrorTypeStat struct {
	ErrorType         string `json:"errorType"`
	Occurrences       int    `json:"occurrences"`
	Recoveries        int    `json:"recoveries"`
	RecoveryRate      int    `json:"recoveryRate"`
	AvgResolutionTime int    `json:"avgResolutionTime"`
	CommonResolution  string `json:"commonResolution,omitempty"`
}

// FallbackTriggers counts the named fallback paths
type FallbackTriggers struct {
	PackageManager int `json:"packageManager"`
	Offline        int `json:"offline"`
	Template       int `json:"template"`
}

// PluginMetrics describes the plugin ecosystem
type PluginMetrics struct {
	PluginUsage         []PluginStat        `json:"pluginUsage"`
	PopularCombinations []PluginCombination `json:"popularCombinations"`
	AuthProviders       map[string]int      `json:"authProviders"`
	PaymentPlugins      map[string]int      `json:"paymentPlugins"`
}

// PluginStat is usage and success for one plugin
type PluginStat struct {
	Plugin      string `json:"plugin"`
	Usage       int    `json:"usage"`
	Successes   int    `json:"successes"`
	SuccessRate int    `json:"successRate"`
}

// PluginCombination is a set of plugins selected together
type PluginCombination struct {
	Plugins   string `json:"plugins"`
	Frequency int    `json:"frequency"`
}

// QualityMetrics holds code-quality tool adoption
type QualityMetrics struct {
	TotalProjects         int            `json:"totalProjects"`
	ESLintAdoption        int            `json:"eslintAdoption"`
	PrettierAdoption      int            `json:"prettierAdoption"`
	BiomeAdoption         int            `json:"biomeAdoption"`
	HuskyAdoption         int            `json:"huskyAdoption"`
	TestingFrameworks     map[string]int `json:"testingFrameworks"`
	DocumentationAdoption int            `json:"documentationAdoption"`
	SecurityAudits        int            `json:"securityAudits"`
	SecurityAuditPassRate int            `json:"securityAuditPassRate"`
}

// TemplateMetrics ranks templates
type TemplateMetrics struct {
	Source         string         `json:"source"`
	TotalTemplates int            `json:"totalTemplates"`
	Templates      []TemplateStat `json:"templates"`
}

// TemplateStat is usage and performance of one template
type TemplateStat struct {
	Template     string `json:"template"`
	Usage        int    `json:"usage"`
	SuccessRate  int    `json:"successRate"`
	AvgSetupTime int    `json:"avgSetupTime"`
}

// UserPreferences buckets preference signals
type UserPreferences struct {
	Source             string         `json:"source"`
	PackageManagers    map[string]int `json:"packageManagers"`
	InstallModes       map[string]int `json:"installModes"`
	WorkflowComplexity map[string]int `json:"workflowComplexity"`
	AIAssisted         int            `json:"aiAssisted"`
	Manual             int            `json:"manual"`
	AIAssistedRate     int            `json:"aiAssistedRate"`
}
