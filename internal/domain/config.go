package domain

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds the complete Heron configuration.
type Config struct {
	// Server settings
	Server ServerConfig `json:"server"`

	// Profile selects the infrastructure defaults
	Profile Profile `json:"profile"`

	// Component configurations
	Repository RepositoryConfig `json:"repository"`
	Cache      CacheConfig      `json:"cache"`
	EventBus   EventBusConfig   `json:"eventBus"`

	Engine    EngineConfig    `json:"engine"`
	Worker    WorkerConfig    `json:"worker"`
	Notify    NotifyConfig    `json:"notify"`
	RateLimit RateLimitConfig `json:"rateLimit"`

	// Observability
	Logging LoggingConfig `json:"logging"`
	Tracing TracingConfig `json:"tracing"`
}

// Profile represents a deployment profile.
type Profile string

const (
	// ProfileStandalone runs on SQLite + in-process cache + channels
	ProfileStandalone Profile = "standalone"

	// ProfileCluster runs on PostgreSQL + Redis + NATS
	ProfileCluster Profile = "cluster"
)

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host         string `json:"host"`
	Port         int    `json:"port"`
	ReadTimeout  int    `json:"readTimeout"`  // seconds
	WriteTimeout int    `json:"writeTimeout"` // seconds
}

// EngineConfig holds rule engine settings.
type EngineConfig struct {
	// CatalogFile is an optional YAML file of domain packs that override
	// the built-in packs by id.
	CatalogFile string `json:"catalogFile"`
}

// WorkerConfig holds background processing settings.
type WorkerConfig struct {
	Enabled       bool          `json:"enabled"`
	SweepInterval time.Duration `json:"sweepInterval"`
	DoseGrace     time.Duration `json:"doseGrace"`
}

// NotifyConfig holds care-team alert settings. An empty ResendAPIKey
// disables email delivery.
type NotifyConfig struct {
	ResendAPIKey string   `json:"-"`
	From         string   `json:"from"`
	To           []string `json:"to"`
}

// RateLimitConfig bounds assessment submissions per user.
type RateLimitConfig struct {
	Requests int           `json:"requests"`
	Window   time.Duration `json:"window"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `json:"level"`  // debug, info, warn, error
	Format string `json:"format"` // json, text
}

// TracingConfig holds OpenTelemetry settings.
type TracingConfig struct {
	Enabled     bool   `json:"enabled"`
	ServiceName string `json:"serviceName"`
}

// DefaultConfig returns the standalone configuration.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:         "0.0.0.0",
			Port:         8080,
			ReadTimeout:  30,
			WriteTimeout: 30,
		},
		Profile: ProfileStandalone,
		Repository: RepositoryConfig{
			Driver:     "sqlite",
			SQLitePath: "./heron.db",
		},
		Cache: CacheConfig{
			Type:          "memory",
			LocalMaxSize:  10000,
			LocalTTL:      5 * time.Minute,
			AssessmentTTL: 10 * time.Minute,
		},
		EventBus: EventBusConfig{
			Type:              "channel",
			ChannelBufferSize: 1000,
		},
		Worker: WorkerConfig{
			Enabled:       true,
			SweepInterval: 15 * time.Minute,
			DoseGrace:     2 * time.Hour,
		},
		Notify: NotifyConfig{
			From: "Heron Alerts <alerts@heron.local>",
		},
		RateLimit: RateLimitConfig{
			Requests: 60,
			Window:   time.Minute,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Tracing: TracingConfig{
			Enabled:     false,
			ServiceName: "heron",
		},
	}
}

// ClusterConfig returns a configuration for horizontally scaled deployments.
func ClusterConfig() *Config {
	cfg := DefaultConfig()
	cfg.Profile = ProfileCluster
	cfg.Repository = RepositoryConfig{
		Driver:          "postgres",
		PostgresHost:    "localhost",
		PostgresPort:    5432,
		PostgresDB:      "heron",
		PostgresSSLMode: "disable",
		MaxOpenConns:    25,
		MaxIdleConns:    5,
		ConnMaxLifetime: 5 * time.Minute,
	}
	cfg.Cache = CacheConfig{
		Type:           "redis",
		RedisAddr:      "localhost:6379",
		EnableTwoPhase: true,
		LocalMaxSize:   1000,
		LocalTTL:       time.Minute,
		AssessmentTTL:  10 * time.Minute,
	}
	cfg.EventBus = EventBusConfig{
		Type:              "nats",
		NATSUrl:           "nats://localhost:4222",
		NATSMaxReconnects: 10,
		NATSReconnectWait: 5,
	}
	cfg.Tracing.Enabled = true
	return cfg
}

// ConfigForProfile returns the defaults for a profile name. Unknown names
// fall back to standalone.
func ConfigForProfile(name string) *Config {
	if Profile(strings.ToLower(strings.TrimSpace(name))) == ProfileCluster {
		return ClusterConfig()
	}
	return DefaultConfig()
}

// ApplyEnv overrides fields from HERON_* environment variables.
func (c *Config) ApplyEnv() {
	c.ApplyLookup(os.LookupEnv)
}

// ApplyLookup overrides fields using lookup, which has the os.LookupEnv
// signature.
func (c *Config) ApplyLookup(lookup func(string) (string, bool)) {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	num := func(key string, dst *int) {
		if v, ok := lookup(key); ok {
			if n, err := strconv.Atoi(v); err == nil {
				*dst = n
			}
		}
	}
	dur := func(key string, dst *time.Duration) {
		if v, ok := lookup(key); ok {
			if d, err := time.ParseDuration(v); err == nil && d > 0 {
				*dst = d
			}
		}
	}
	flag := func(key string, dst *bool) {
		if v, ok := lookup(key); ok {
			if b, err := strconv.ParseBool(v); err == nil {
				*dst = b
			}
		}
	}

	str("HERON_HOST", &c.Server.Host)
	num("HERON_PORT", &c.Server.Port)

	str("HERON_SQLITE_PATH", &c.Repository.SQLitePath)
	str("HERON_POSTGRES_HOST", &c.Repository.PostgresHost)
	num("HERON_POSTGRES_PORT", &c.Repository.PostgresPort)
	str("HERON_POSTGRES_USER", &c.Repository.PostgresUser)
	str("HERON_POSTGRES_PASSWORD", &c.Repository.PostgresPassword)
	str("HERON_POSTGRES_DB", &c.Repository.PostgresDB)
	str("HERON_POSTGRES_SSLMODE", &c.Repository.PostgresSSLMode)

	str("HERON_REDIS_ADDR", &c.Cache.RedisAddr)
	str("HERON_REDIS_PASSWORD", &c.Cache.RedisPassword)
	dur("HERON_ASSESSMENT_TTL", &c.Cache.AssessmentTTL)

	str("HERON_NATS_URL", &c.EventBus.NATSUrl)
	str("HERON_NATS_TOKEN", &c.EventBus.NATSToken)

	str("HERON_CATALOG_FILE", &c.Engine.CatalogFile)

	flag("HERON_WORKER_ENABLED", &c.Worker.Enabled)
	dur("HERON_SWEEP_INTERVAL", &c.Worker.SweepInterval)
	dur("HERON_DOSE_GRACE", &c.Worker.DoseGrace)

	str("HERON_RESEND_API_KEY", &c.Notify.ResendAPIKey)
	str("HERON_ALERT_FROM", &c.Notify.From)
	if v, ok := lookup("HERON_ALERT_TO"); ok && v != "" {
		c.Notify.To = splitList(v)
	}

	num("HERON_RATE_LIMIT", &c.RateLimit.Requests)
	dur("HERON_RATE_WINDOW", &c.RateLimit.Window)

	str("HERON_LOG_LEVEL", &c.Logging.Level)
	str("HERON_LOG_FORMAT", &c.Logging.Format)
	if v, ok := lookup("HERON_DEBUG"); ok && v == "true" {
		c.Logging.Level = "debug"
	}
	flag("HERON_TRACING", &c.Tracing.Enabled)
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
