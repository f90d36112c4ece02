package domain

import (
	"os"
	"strconv"
	"time"
)

// Config holds the complete Veritas configuration.
type Config struct {
	// Server settings
	Server ServerConfig `json:"server"`

	// Tier determines which backing services are used
	Tier Tier `json:"tier"`

	// Component configurations
	Repository RepositoryConfig `json:"repository"`
	Cache      CacheConfig      `json:"cache"`
	EventBus   EventBusConfig   `json:"eventBus"`

	// Scoring and service behavior
	Analyzer  AnalyzerConfig  `json:"analyzer"`
	Admin     AdminConfig     `json:"admin"`
	RateLimit RateLimitConfig `json:"rateLimit"`

	// Observability
	Logging LoggingConfig `json:"logging"`
	Tracing TracingConfig `json:"tracing"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host         string `json:"host"`
	Port         int    `json:"port"`
	ReadTimeout  int    `json:"readTimeout"`  // seconds
	WriteTimeout int    `json:"writeTimeout"` // seconds
}

// AnalyzerConfig holds scoring pipeline settings.
type AnalyzerConfig struct {
	// Verdict cutoffs on the 0-100 risk score
	HighCutoff   int `json:"highCutoff"`
	MediumCutoff int `json:"mediumCutoff"`

	// LookupTimeout bounds each ThreatStore and ScanLog call
	LookupTimeout time.Duration `json:"lookupTimeout"`

	// ResultCacheTTL is how long feature-path results stay cached; 0 disables caching
	ResultCacheTTL time.Duration `json:"resultCacheTtl"`

	// ThreatListsPath optionally points at a YAML file extending the built-in threat tables
	ThreatListsPath string `json:"threatListsPath"`

	// RuleWorkers bounds concurrent signal rule evaluation
	RuleWorkers int `json:"ruleWorkers"`
}

// AdminConfig holds admin API settings.
type AdminConfig struct {
	// Key must match the X-Admin-Key header. Empty disables admin routes.
	Key string `json:"-"`
}

// RateLimitConfig holds per-client analysis rate limits.
type RateLimitConfig struct {
	Enabled  bool          `json:"enabled"`
	Requests int64         `json:"requests"`
	Window   time.Duration `json:"window"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `json:"level"`  // debug, info, warn, error
	Format string `json:"format"` // json, text
}

// TracingConfig holds OpenTelemetry settings.
type TracingConfig struct {
	Enabled      bool   `json:"enabled"`
	ServiceName  string `json:"serviceName"`
	ExporterType string `json:"exporterType"` // stdout, otlp, jaeger
	Endpoint     string `json:"endpoint"`
}

// Tier represents the deployment tier.
type Tier string

const (
	// TierCommunity runs on SQLite + channels
	TierCommunity Tier = "community"

	// TierPro runs on PostgreSQL + NATS + Redis
	TierPro Tier = "pro"
)

// DefaultConfig returns a default configuration for Community tier.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:         "0.0.0.0",
			Port:         8080,
			ReadTimeout:  30,
			WriteTimeout: 30,
		},
		Tier: TierCommunity,
		Repository: RepositoryConfig{
			Driver:     "sqlite",
			SQLitePath: "./veritas.db",
		},
		Cache: CacheConfig{
			Type:         "memory",
			LocalMaxSize: 10000,
			LocalTTL:     5 * time.Minute,
		},
		EventBus: EventBusConfig{
			Type:              "channel",
			ChannelBufferSize: 1000,
		},
		Analyzer: AnalyzerConfig{
			HighCutoff:     65,
			MediumCutoff:   40,
			LookupTimeout:  2 * time.Second,
			ResultCacheTTL: 10 * time.Minute,
			RuleWorkers:    10,
		},
		RateLimit: RateLimitConfig{
			Enabled:  true,
			Requests: 120,
			Window:   time.Minute,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Tracing: TracingConfig{
			Enabled:     false,
			ServiceName: "veritas",
		},
	}
}

// ProConfig returns a configuration for Pro tier.
func ProConfig() *Config {
	cfg := DefaultConfig()
	cfg.Tier = TierPro
	cfg.Repository = RepositoryConfig{
		Driver:       "postgres",
		PostgresHost: "localhost",
		PostgresPort: 5432,
		PostgresDB:   "veritas",
	}
	cfg.Cache = CacheConfig{
		Type:           "redis",
		RedisAddr:      "localhost:6379",
		EnableTwoPhase: true,
		LocalMaxSize:   1000,
		LocalTTL:       time.Minute,
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

// LoadFromEnv builds a configuration from VERITAS_* environment variables.
// VERITAS_TIER selects the base profile; the remaining variables override it.
func LoadFromEnv() *Config {
	cfg := DefaultConfig()
	if os.Getenv("VERITAS_TIER") == string(TierPro) {
		cfg = ProConfig()
	}

	setString(&cfg.Server.Host, "VERITAS_HOST")
	setInt(&cfg.Server.Port, "VERITAS_PORT")

	setString(&cfg.Repository.Driver, "VERITAS_DB_DRIVER")
	setString(&cfg.Repository.SQLitePath, "VERITAS_SQLITE_PATH")
	setString(&cfg.Repository.PostgresHost, "VERITAS_POSTGRES_HOST")
	setInt(&cfg.Repository.PostgresPort, "VERITAS_POSTGRES_PORT")
	setString(&cfg.Repository.PostgresUser, "VERITAS_POSTGRES_USER")
	setString(&cfg.Repository.PostgresPassword, "VERITAS_POSTGRES_PASSWORD")
	setString(&cfg.Repository.PostgresDB, "VERITAS_POSTGRES_DB")
	setString(&cfg.Repository.PostgresSSLMode, "VERITAS_POSTGRES_SSLMODE")
	setString(&cfg.Repository.MongoURI, "VERITAS_MONGO_URI")
	setString(&cfg.Repository.MongoDatabase, "VERITAS_MONGO_DB")

	setString(&cfg.Cache.Type, "VERITAS_CACHE")
	setString(&cfg.Cache.RedisAddr, "VERITAS_REDIS_ADDR")
	setString(&cfg.Cache.RedisPassword, "VERITAS_REDIS_PASSWORD")

	setString(&cfg.EventBus.Type, "VERITAS_BUS")
	setString(&cfg.EventBus.NATSUrl, "VERITAS_NATS_URL")
	setString(&cfg.EventBus.NATSToken, "VERITAS_NATS_TOKEN")

	setInt(&cfg.Analyzer.HighCutoff, "VERITAS_HIGH_CUTOFF")
	setInt(&cfg.Analyzer.MediumCutoff, "VERITAS_MEDIUM_CUTOFF")
	setDuration(&cfg.Analyzer.LookupTimeout, "VERITAS_LOOKUP_TIMEOUT")
	setDuration(&cfg.Analyzer.ResultCacheTTL, "VERITAS_RESULT_CACHE_TTL")
	setString(&cfg.Analyzer.ThreatListsPath, "VERITAS_THREAT_LISTS")

	setString(&cfg.Admin.Key, "VERITAS_ADMIN_KEY")

	if v := os.Getenv("VERITAS_RATE_LIMIT"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.RateLimit.Requests = n
			cfg.RateLimit.Enabled = n > 0
		}
	}

	setString(&cfg.Logging.Level, "VERITAS_LOG_LEVEL")
	if os.Getenv("VERITAS_DEBUG") == "true" {
		cfg.Logging.Level = "debug"
	}

	return cfg
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setDuration(dst *time.Duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		}
	}
}
