// Package config loads the server configuration from a YAML file, environment
// variables and built-in defaults.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/anc-caregap-server/internal/domain"
	"github.com/anc-caregap-server/internal/encoder"
)

// EnvPrefix prefixes every environment override, e.g. ANC_CAREGAP_SERVER_PORT.
const EnvPrefix = "ANC_CAREGAP"

// ConfigFileEnv names a config file to load instead of searching for config.yaml.
const ConfigFileEnv = EnvPrefix + "_CONFIG"

// Manager implements the ConfigManager interface using Viper
type Manager struct {
	v          *viper.Viper
	configFile string
	config     *domain.Config
}

// NewManager loads the file named by ANC_CAREGAP_CONFIG, or else config.yaml from
// the working directory, ./config or /etc/anc-caregap/. A missing config.yaml is
// not an error.
func NewManager() (*Manager, error) {
	return NewManagerWithFile(os.Getenv(ConfigFileEnv))
}

// NewManagerWithFile loads the given file instead of searching for config.yaml.
func NewManagerWithFile(path string) (*Manager, error) {
	m := &Manager{configFile: path}
	if err := m.loadConfig(); err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	return m, nil
}

// loadConfig loads configuration from various sources
func (m *Manager) loadConfig() error {
	v := viper.New()

	if m.configFile != "" {
		v.SetConfigFile(m.configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("/etc/anc-caregap/")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	// Read configuration file (optional - will use defaults and env vars if not found)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}

	// The heuristic table starts from its preset; file and env values override
	// individual entries.
	preset := v.GetString("scoring.heuristic.preset")
	weights, ok := domain.WeightsForPreset(preset)
	if !ok {
		return fmt.Errorf("unknown heuristic preset %q", preset)
	}
	if err := setWeightDefaults(v, weights); err != nil {
		return err
	}

	config := &domain.Config{}
	if err := v.Unmarshal(config); err != nil {
		return fmt.Errorf("error unmarshaling config: %w", err)
	}
	if config.Scoring.Heuristic.Preset == "" {
		config.Scoring.Heuristic.Preset = weights.Preset
	}

	m.v = v
	m.config = config
	return nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	v.SetDefault("environment", "development")

	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.idle_timeout", "120s")
	v.SetDefault("server.request_timeout", "10s")
	v.SetDefault("server.allowed_origins", []string{"*"})

	// Scoring defaults
	v.SetDefault("scoring.strategy", domain.StrategyHeuristic)
	v.SetDefault("scoring.model_path", filepath.Join("artifacts", "model.json"))
	v.SetDefault("scoring.transformer_path", filepath.Join("artifacts", "transformer.json"))
	v.SetDefault("scoring.heuristic.preset", domain.PresetBalanced)

	// Storage defaults
	v.SetDefault("storage.driver", domain.DriverSQLite)
	v.SetDefault("storage.sqlite_path", filepath.Join(DefaultDataDir(), "outcomes.db"))
	v.SetDefault("storage.database_url", "")
	v.SetDefault("storage.migrations_path", "migrations")
	v.SetDefault("storage.auto_migrate", true)
	v.SetDefault("storage.max_open_conns", 25)
	v.SetDefault("storage.max_idle_conns", 5)
	v.SetDefault("storage.conn_max_lifetime", "5m")

	// Cache defaults
	v.SetDefault("cache.enabled", true)
	v.SetDefault("cache.max_items", 1000)
	v.SetDefault("cache.ttl", "1h")
	v.SetDefault("cache.redis_url", "")
	v.SetDefault("cache.prefix", "anc:assessment:")
	v.SetDefault("cache.breaker.max_requests", 1)
	v.SetDefault("cache.breaker.interval", "60s")
	v.SetDefault("cache.breaker.timeout", "30s")
	v.SetDefault("cache.breaker.failure_threshold", 3)

	// Rate limit defaults
	v.SetDefault("rate_limit.enabled", true)
	v.SetDefault("rate_limit.requests_per_second", 10.0)
	v.SetDefault("rate_limit.burst", 20)

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.output", "stdout")
	v.SetDefault("logging.filename", "")

	// MCP defaults
	v.SetDefault("mcp.server_name", "anc-caregap-risk")
	v.SetDefault("mcp.server_version", "1.0.0")
	v.SetDefault("mcp.transport", "stdio")

	// Metrics defaults
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")
}

// setWeightDefaults registers every entry of the preset table as a default so
// that Unmarshal and environment overrides see the complete key set.
func setWeightDefaults(v *viper.Viper, w domain.HeuristicWeights) error {
	data, err := json.Marshal(w)
	if err != nil {
		return fmt.Errorf("failed to encode heuristic preset: %w", err)
	}
	var table map[string]interface{}
	if err := json.Unmarshal(data, &table); err != nil {
		return fmt.Errorf("failed to decode heuristic preset: %w", err)
	}
	for key, value := range table {
		v.SetDefault("scoring.heuristic."+key, value)
	}
	return nil
}

// DefaultDataDir is where local state lives when no path is configured.
func DefaultDataDir() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ".anc-caregap"
	}
	return filepath.Join(homeDir, ".anc-caregap")
}

// GetConfig returns the complete configuration
func (m *Manager) GetConfig() *domain.Config {
	return m.config
}

// GetServerConfig returns server configuration
func (m *Manager) GetServerConfig() *domain.ServerConfig {
	return &m.config.Server
}

// GetScoringConfig returns scoring configuration
func (m *Manager) GetScoringConfig() *domain.ScoringConfig {
	return &m.config.Scoring
}

// GetStorageConfig returns outcome store configuration
func (m *Manager) GetStorageConfig() *domain.StorageConfig {
	return &m.config.Storage
}

// GetCacheConfig returns cache configuration
func (m *Manager) GetCacheConfig() *domain.CacheConfig {
	return &m.config.Cache
}

// GetLoggingConfig returns logging configuration
func (m *Manager) GetLoggingConfig() *domain.LoggingConfig {
	return &m.config.Logging
}

// ConfigFileUsed returns the file that was read, if any.
func (m *Manager) ConfigFileUsed() string {
	return m.v.ConfigFileUsed()
}

// Reload reloads the configuration
func (m *Manager) Reload() error {
	return m.loadConfig()
}

// Validate validates the configuration
func (m *Manager) Validate() error {
	config := m.config

	// Validate server configuration
	if config.Server.Port <= 0 || config.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", config.Server.Port)
	}

	// Validate scoring configuration
	switch config.Scoring.Strategy {
	case domain.StrategyHeuristic:
	case domain.StrategyModel:
		if config.Scoring.ModelPath == "" || config.Scoring.TransformerPath == "" {
			return fmt.Errorf("model strategy requires model_path and transformer_path")
		}
	default:
		return fmt.Errorf("invalid scoring strategy: %s", config.Scoring.Strategy)
	}
	if err := config.Scoring.Heuristic.Validate(); err != nil {
		return err
	}
	if _, err := encoder.FromConfig(config.Scoring.SurveyCodes); err != nil {
		return err
	}

	// Validate storage configuration
	switch config.Storage.Driver {
	case domain.DriverSQLite:
		if config.Storage.SQLitePath == "" {
			return fmt.Errorf("sqlite_path is required for the sqlite driver")
		}
	case domain.DriverPostgres, domain.DriverPgx:
		if config.Storage.DatabaseURL == "" {
			return fmt.Errorf("database_url is required for the %s driver", config.Storage.Driver)
		}
	default:
		return fmt.Errorf("invalid storage driver: %s", config.Storage.Driver)
	}

	// Validate cache configuration
	if config.Cache.Enabled && config.Cache.MaxItems < 0 {
		return fmt.Errorf("invalid cache max_items: %d", config.Cache.MaxItems)
	}

	// Validate rate limit configuration
	if config.RateLimit.Enabled && (config.RateLimit.RequestsPerSecond <= 0 || config.RateLimit.Burst <= 0) {
		return fmt.Errorf("rate limit requires positive requests_per_second and burst")
	}

	// Validate logging configuration
	validLogLevels := map[string]bool{
		"trace": true, "debug": true, "info": true, "warn": true, "error": true, "fatal": true, "panic": true,
	}
	if !validLogLevels[strings.ToLower(config.Logging.Level)] {
		return fmt.Errorf("invalid log level: %s", config.Logging.Level)
	}

	return nil
}

// IsProduction returns true if running in production mode
func (m *Manager) IsProduction() bool {
	return strings.ToLower(m.config.Environment) == "production"
}

// IsDevelopment returns true if running in development mode
func (m *Manager) IsDevelopment() bool {
	env := strings.ToLower(m.config.Environment)
	return env == "development" || env == "dev" || env == ""
}
