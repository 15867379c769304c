package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"

	"github.com/platinummonkey/stackpulse/pkg/observability"
	"github.com/platinummonkey/stackpulse/pkg/storage"
)

// ConfigFileEnv names the optional YAML file applied before environment variables
const ConfigFileEnv = "STACKPULSE_CONFIG_FILE"

// Config holds all application configuration
type Config struct {
	Server        ServerConfig        `yaml:"server"`
	PostHog       PostHogConfig       `yaml:"posthog"`
	Storage       StorageConfig       `yaml:"storage"`
	Sync          SyncConfig          `yaml:"sync"`
	Observability ObservabilityConfig `yaml:"observability"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string        `yaml:"host"`
	Port            string        `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	AllowedOrigins  []string      `yaml:"allowed_origins"`
}

// Addr returns host:port
func (s ServerConfig) Addr() string {
	return s.Host + ":" + s.Port
}

// PostHogConfig holds upstream API credentials. Empty credentials are allowed at load
// time; syncs fail until they are set.
type PostHogConfig struct {
	APIKey    string        `yaml:"api_key"`
	ProjectID string        `yaml:"project_id"`
	Host      string        `yaml:"host"`
	Timeout   time.Duration `yaml:"timeout"`
}

// StorageConfig holds the object store and document layout
type StorageConfig struct {
	storage.Config `yaml:",inline"`

	DocumentKey  string        `yaml:"document_key"`
	SyncStateKey string        `yaml:"sync_state_key"`
	L1CacheTTL   time.Duration `yaml:"l1_cache_ttl"`

	// RedisURL enables the shared refresh lock when set
	RedisURL     string `yaml:"redis_url"`
	RedisLockKey string `yaml:"redis_lock_key"`
}

// SyncConfig holds the schedule, fetch limits and cache windows
type SyncConfig struct {
	Schedule          string        `yaml:"schedule"`
	BootstrapLimit    int           `yaml:"bootstrap_limit"`
	IncrementalLimit  int           `yaml:"incremental_limit"`
	PersonsLimit      int           `yaml:"persons_limit"`
	MaxRetainedEvents int           `yaml:"max_retained_events"`
	CacheDuration     time.Duration `yaml:"cache_duration"`
	RefreshCooldown   time.Duration `yaml:"refresh_cooldown"`
	Timeout           time.Duration `yaml:"timeout"`
}

// ObservabilityConfig holds observability settings
type ObservabilityConfig struct {
	LogLevel string `yaml:"log_level"`

	MetricsEnabled bool `yaml:"metrics_enabled"`

	OTelEnabled        bool    `yaml:"otel_enabled"`
	OTelEndpoint       string  `yaml:"otel_endpoint"`
	OTelServiceName    string  `yaml:"otel_service_name"`
	OTelServiceVersion string  `yaml:"otel_service_version"`
	OTelInsecure       bool    `yaml:"otel_insecure"` // Use insecure gRPC connection
	OTelSampleRatio    float64 `yaml:"otel_sample_ratio"`
}

// Level returns the parsed log level
func (o ObservabilityConfig) Level() observability.LogLevel {
	return observability.ParseLogLevel(o.LogLevel)
}

// Default returns the configuration used when nothing is overridden
func Default() *Config {
	storageCfg := storage.DefaultConfig()
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            "8080",
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    2 * time.Minute,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 30 * time.Second,
			AllowedOrigins:  []string{"*"},
		},
		PostHog: PostHogConfig{
			Host:    "https://app.posthog.com",
			Timeout: 30 * time.Second,
		},
		Storage: StorageConfig{
			Config:       storageCfg,
			DocumentKey:  "analytics/metrics.json",
			SyncStateKey: "analytics/sync-state.json",
			L1CacheTTL:   time.Minute,
			RedisLockKey: "stackpulse:refresh-lock",
		},
		Sync: SyncConfig{
			Schedule:          "0 */6 * * *",
			BootstrapLimit:    5000,
			IncrementalLimit:  1000,
			PersonsLimit:      1000,
			MaxRetainedEvents: 10000,
			CacheDuration:     6 * time.Hour,
			RefreshCooldown:   5 * time.Minute,
			Timeout:           2 * time.Minute,
		},
		Observability: ObservabilityConfig{
			LogLevel:           "info",
			MetricsEnabled:     true,
			OTelEndpoint:       "localhost:4317",
			OTelServiceName:    "stackpulse",
			OTelServiceVersion: "1.0.0",
			OTelInsecure:       true,
		},
	}
}

// LoadConfig builds the configuration from defaults, the optional YAML file named by
// STACKPULSE_CONFIG_FILE, and STACKPULSE_* environment variables, in that order.
func LoadConfig() (*Config, error) {
	cfg := Default()

	if path := os.Getenv(ConfigFileEnv); path != "" {
		if err := cfg.LoadFile(path); err != nil {
			return nil, err
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// LoadFile overlays the YAML file at path. Keys absent from the file keep their values.
func (c *Config) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() {
	s := &c.Server
	s.Host = getEnv("STACKPULSE_HOST", s.Host)
	s.Port = getEnv("STACKPULSE_PORT", s.Port)
	s.ReadTimeout = getEnvDuration("STACKPULSE_READ_TIMEOUT", s.ReadTimeout)
	s.WriteTimeout = getEnvDuration("STACKPULSE_WRITE_TIMEOUT", s.WriteTimeout)
	s.IdleTimeout = getEnvDuration("STACKPULSE_IDLE_TIMEOUT", s.IdleTimeout)
	s.ShutdownTimeout = getEnvDuration("STACKPULSE_SHUTDOWN_TIMEOUT", s.ShutdownTimeout)
	s.AllowedOrigins = getEnvList("STACKPULSE_ALLOWED_ORIGINS", s.AllowedOrigins)

	p := &c.PostHog
	p.APIKey = getEnv("STACKPULSE_POSTHOG_API_KEY", p.APIKey)
	p.ProjectID = getEnv("STACKPULSE_POSTHOG_PROJECT_ID", p.ProjectID)
	p.Host = getEnv("STACKPULSE_POSTHOG_HOST", p.Host)
	p.Timeout = getEnvDuration("STACKPULSE_POSTHOG_TIMEOUT", p.Timeout)

	st := &c.Storage
	st.Type = getEnv("STACKPULSE_STORAGE_TYPE", st.Type)
	st.FilesystemRoot = getEnv("STACKPULSE_FILESYSTEM_ROOT", st.FilesystemRoot)
	st.S3Endpoint = getEnv("STACKPULSE_S3_ENDPOINT", st.S3Endpoint)
	st.S3Region = getEnv("STACKPULSE_S3_REGION", st.S3Region)
	st.S3Bucket = getEnv("STACKPULSE_S3_BUCKET", st.S3Bucket)
	st.S3AccessKey = getEnv("STACKPULSE_S3_ACCESS_KEY", st.S3AccessKey)
	st.S3SecretKey = getEnv("STACKPULSE_S3_SECRET_KEY", st.S3SecretKey)
	st.S3UsePathStyle = getEnvBool("STACKPULSE_S3_USE_PATH_STYLE", st.S3UsePathStyle)
	st.S3CreateBucket = getEnvBool("STACKPULSE_S3_CREATE_BUCKET", st.S3CreateBucket)
	st.DocumentKey = getEnv("STACKPULSE_DOCUMENT_KEY", st.DocumentKey)
	st.SyncStateKey = getEnv("STACKPULSE_SYNC_STATE_KEY", st.SyncStateKey)
	st.L1CacheTTL = getEnvDuration("STACKPULSE_L1_CACHE_TTL", st.L1CacheTTL)
	st.RedisURL = getEnv("STACKPULSE_REDIS_URL", st.RedisURL)
	st.RedisLockKey = getEnv("STACKPULSE_REDIS_LOCK_KEY", st.RedisLockKey)

	sy := &c.Sync
	sy.Schedule = getEnv("STACKPULSE_SYNC_SCHEDULE", sy.Schedule)
	sy.BootstrapLimit = getEnvInt("STACKPULSE_BOOTSTRAP_LIMIT", sy.BootstrapLimit)
	sy.IncrementalLimit = getEnvInt("STACKPULSE_INCREMENTAL_LIMIT", sy.IncrementalLimit)
	sy.PersonsLimit = getEnvInt("STACKPULSE_PERSONS_LIMIT", sy.PersonsLimit)
	sy.MaxRetainedEvents = getEnvInt("STACKPULSE_MAX_RETAINED_EVENTS", sy.MaxRetainedEvents)
	sy.CacheDuration = getEnvDuration("STACKPULSE_CACHE_DURATION", sy.CacheDuration)
	sy.RefreshCooldown = getEnvDuration("STACKPULSE_REFRESH_COOLDOWN", sy.RefreshCooldown)
	sy.Timeout = getEnvDuration("STACKPULSE_SYNC_TIMEOUT", sy.Timeout)

	o := &c.Observability
	o.LogLevel = getEnv("STACKPULSE_LOG_LEVEL", o.LogLevel)
	o.MetricsEnabled = getEnvBool("STACKPULSE_METRICS_ENABLED", o.MetricsEnabled)
	o.OTelEnabled = getEnvBool("STACKPULSE_OTEL_ENABLED", o.OTelEnabled)
	o.OTelEndpoint = getEnv("STACKPULSE_OTEL_ENDPOINT", o.OTelEndpoint)
	o.OTelServiceName = getEnv("STACKPULSE_OTEL_SERVICE_NAME", o.OTelServiceName)
	o.OTelServiceVersion = getEnv("STACKPULSE_OTEL_SERVICE_VERSION", o.OTelServiceVersion)
	o.OTelInsecure = getEnvBool("STACKPULSE_OTEL_INSECURE", o.OTelInsecure)
	if v := os.Getenv("STACKPULSE_OTEL_SAMPLE_RATIO"); v != "" {
		if ratio, err := strconv.ParseFloat(v, 64); err == nil {
			o.OTelSampleRatio = ratio
		}
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}

	switch c.Storage.Type {
	case storage.BackendFilesystem:
		if c.Storage.FilesystemRoot == "" {
			return fmt.Errorf("filesystem root is required for filesystem storage")
		}
	case storage.BackendS3:
		if c.Storage.S3Bucket == "" {
			return fmt.Errorf("S3 bucket is required for s3 storage")
		}
	case storage.BackendMemory:
	default:
		return fmt.Errorf("invalid storage type: %s (must be s3, filesystem, or memory)", c.Storage.Type)
	}
	if c.Storage.DocumentKey == "" || c.Storage.SyncStateKey == "" {
		return fmt.Errorf("document and sync state keys are required")
	}
	if c.Storage.DocumentKey == c.Storage.SyncStateKey {
		return fmt.Errorf("document and sync state keys must be different")
	}

	if _, err := cron.ParseStandard(c.Sync.Schedule); err != nil {
		return fmt.Errorf("invalid sync schedule %q: %w", c.Sync.Schedule, err)
	}
	if c.Sync.BootstrapLimit <= 0 || c.Sync.IncrementalLimit <= 0 || c.Sync.PersonsLimit <= 0 {
		return fmt.Errorf("fetch limits must be positive")
	}
	if c.Sync.MaxRetainedEvents <= 0 {
		return fmt.Errorf("max retained events must be positive")
	}
	if c.Sync.CacheDuration <= 0 || c.Sync.RefreshCooldown <= 0 {
		return fmt.Errorf("cache duration and refresh cooldown must be positive")
	}

	if c.Observability.OTelEnabled {
		if c.Observability.OTelEndpoint == "" {
			return fmt.Errorf("OpenTelemetry endpoint is required when OTel is enabled")
		}
		if c.Observability.OTelServiceName == "" {
			return fmt.Errorf("OpenTelemetry service name is required when OTel is enabled")
		}
		if c.Observability.OTelSampleRatio < 0 || c.Observability.OTelSampleRatio > 1 {
			return fmt.Errorf("OpenTelemetry sample ratio must be between 0 and 1")
		}
	}

	return nil
}

// getEnv returns an environment variable value or a default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool returns a boolean environment variable or a default
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return strings.ToLower(value) == "true" || value == "1"
	}
	return defaultValue
}

// getEnvInt returns an integer environment variable or a default
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvDuration returns a duration environment variable or a default
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// getEnvList returns a comma separated environment variable or a default
func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
