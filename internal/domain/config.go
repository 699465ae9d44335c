package domain

import (
	"time"
)

// Scoring strategies
const (
	StrategyHeuristic = "heuristic"
	StrategyModel     = "model"
)

// Storage drivers
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverPgx      = "pgx"
)

// Config represents the main application configuration
type Config struct {
	Environment string          `mapstructure:"environment"`
	Server      ServerConfig    `mapstructure:"server"`
	Scoring     ScoringConfig   `mapstructure:"scoring"`
	Storage     StorageConfig   `mapstructure:"storage"`
	Cache       CacheConfig     `mapstructure:"cache"`
	RateLimit   RateLimitConfig `mapstructure:"rate_limit"`
	Logging     LoggingConfig   `mapstructure:"logging"`
	MCP         MCPConfig       `mapstructure:"mcp"`
	Metrics     MetricsConfig   `mapstructure:"metrics"`
}

// ServerConfig represents HTTP server configuration
type ServerConfig struct {
	Host           string        `mapstructure:"host"`
	Port           int           `mapstructure:"port"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
	IdleTimeout    time.Duration `mapstructure:"idle_timeout"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	AllowedOrigins []string      `mapstructure:"allowed_origins"`
}

// ScoringConfig selects the risk scorer and carries its inputs
type ScoringConfig struct {
	Strategy        string           `mapstructure:"strategy"`
	ModelPath       string           `mapstructure:"model_path"`
	TransformerPath string           `mapstructure:"transformer_path"`
	Heuristic       HeuristicWeights `mapstructure:"heuristic"`
	SurveyCodes     SurveyCodeConfig `mapstructure:"survey_codes"`
}

// SurveyCodeConfig overrides the survey instrument codes fed to the model.
// Keys are lower-case enum values; viper lower-cases map keys on load.
type SurveyCodeConfig struct {
	Education    map[string]float64 `mapstructure:"education"`
	Marital      map[string]float64 `mapstructure:"marital"`
	InsuranceYes float64            `mapstructure:"insurance_yes"`
	InsuranceNo  float64            `mapstructure:"insurance_no"`
	EverBirthYes float64            `mapstructure:"ever_birth_yes"`
	EverBirthNo  float64            `mapstructure:"ever_birth_no"`
}

// StorageConfig represents outcome store configuration
type StorageConfig struct {
	Driver          string        `mapstructure:"driver"`
	SQLitePath      string        `mapstructure:"sqlite_path"`
	DatabaseURL     string        `mapstructure:"database_url"`
	MigrationsPath  string        `mapstructure:"migrations_path"`
	AutoMigrate     bool          `mapstructure:"auto_migrate"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// CacheConfig represents assessment cache configuration
type CacheConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	MaxItems int           `mapstructure:"max_items"`
	TTL      time.Duration `mapstructure:"ttl"`
	RedisURL string        `mapstructure:"redis_url"`
	Prefix   string        `mapstructure:"prefix"`
	Breaker  BreakerConfig `mapstructure:"breaker"`
}

// BreakerConfig configures the circuit breaker guarding Redis
type BreakerConfig struct {
	MaxRequests      uint32        `mapstructure:"max_requests"`
	Interval         time.Duration `mapstructure:"interval"`
	Timeout          time.Duration `mapstructure:"timeout"`
	FailureThreshold uint32        `mapstructure:"failure_threshold"`
}

// RateLimitConfig configures the per-client token bucket
type RateLimitConfig struct {
	Enabled           bool    `mapstructure:"enabled"`
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
	Burst             int     `mapstructure:"burst"`
}

// LoggingConfig represents logging configuration
type LoggingConfig struct {
	Level    string `mapstructure:"level"`
	Format   string `mapstructure:"format"`
	Output   string `mapstructure:"output"`
	Filename string `mapstructure:"filename"`
}

// MCPConfig represents MCP server configuration
type MCPConfig struct {
	ServerName    string `mapstructure:"server_name"`
	ServerVersion string `mapstructure:"server_version"`
	Transport     string `mapstructure:"transport"`
}

// MetricsConfig toggles the Prometheus endpoint
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}
