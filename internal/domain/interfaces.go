package domain

import (
	"context"
)

// RiskScorer turns a validated profile into a care gap probability.
// Implementations clamp their output into [lower, upper] as reported by Bounds.
type RiskScorer interface {
	Score(ctx context.Context, profile PatientProfile) (float64, error)
	Bounds() (lower, upper float64)
	Name() string
	Version() string
}

// FactorAnalyzer lists the factors that contributed to a profile's score.
type FactorAnalyzer interface {
	Factors(profile PatientProfile) []Factor
}

// ConfigManager defines the interface for configuration management
type ConfigManager interface {
	GetConfig() *Config
	GetServerConfig() *ServerConfig
	GetScoringConfig() *ScoringConfig
	GetStorageConfig() *StorageConfig
	GetCacheConfig() *CacheConfig
	GetLoggingConfig() *LoggingConfig
	Validate() error
}
