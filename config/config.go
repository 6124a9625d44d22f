// Package config holds runtime configuration: environment detection and
// the per-environment data quality and performance thresholds.
package config

import (
	"os"
	"time"

	"github.com/rs/zerolog/log"
)

// Environment identifies the data environment the service runs in.
type Environment string

const (
	Development Environment = "development"
	Testing     Environment = "testing"
	Staging     Environment = "staging"
	Production  Environment = "production"
)

// QualityThresholds are the minimum acceptable data quality scores for an
// environment. Production demands more than development.
type QualityThresholds struct {
	Completeness float64 `json:"completeness"`
	Accuracy     float64 `json:"accuracy"`
	Consistency  float64 `json:"consistency"`
	Timeliness   float64 `json:"timeliness"`
}

// PerformanceThresholds bound response and processing times per environment.
type PerformanceThresholds struct {
	APIResponseTime    time.Duration `json:"api_response_time_ms"`
	DataProcessingTime time.Duration `json:"data_processing_time_ms"`
	CacheTTL           time.Duration `json:"cache_ttl_seconds"`
	MaxResultsPerPage  int           `json:"max_results_per_page"`
}

// Config is the resolved runtime configuration.
type Config struct {
	Environment Environment
	SecretKey   string
	DatabaseURL string
	Port        string
	Quality     QualityThresholds
	Performance PerformanceThresholds
}

// QualityThresholdsFor returns the quality thresholds for an environment.
func QualityThresholdsFor(env Environment) QualityThresholds {
	switch env {
	case Production:
		return QualityThresholds{Completeness: 0.95, Accuracy: 0.90, Consistency: 0.85, Timeliness: 0.95}
	case Staging:
		return QualityThresholds{Completeness: 0.90, Accuracy: 0.85, Consistency: 0.80, Timeliness: 0.90}
	default:
		return QualityThresholds{Completeness: 0.80, Accuracy: 0.75, Consistency: 0.70, Timeliness: 0.80}
	}
}

// PerformanceThresholdsFor returns the performance thresholds for an environment.
func PerformanceThresholdsFor(env Environment) PerformanceThresholds {
	if env == Production {
		return PerformanceThresholds{
			APIResponseTime:    500 * time.Millisecond,
			DataProcessingTime: 1000 * time.Millisecond,
			CacheTTL:           300 * time.Second,
			MaxResultsPerPage:  100,
		}
	}
	return PerformanceThresholds{
		APIResponseTime:    1000 * time.Millisecond,
		DataProcessingTime: 2000 * time.Millisecond,
		CacheTTL:           60 * time.Second,
		MaxResultsPerPage:  50,
	}
}

// ParseEnvironment maps a raw string to an Environment, falling back to
// development for anything unrecognised.
func ParseEnvironment(raw string) Environment {
	switch Environment(raw) {
	case Development, Testing, Staging, Production:
		return Environment(raw)
	default:
		if raw != "" {
			log.Warn().Str("environment", raw).Msg("unknown environment, defaulting to development")
		}
		return Development
	}
}

// Load builds configuration from the process environment.
func Load() *Config {
	env := ParseEnvironment(os.Getenv("ENVIRONMENT"))

	secret := os.Getenv("SECRET_KEY")
	if secret == "" {
		secret = "your-secret-key-here"
		if env == Production {
			log.Warn().Msg("SECRET_KEY not set, using default key")
		}
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	cfg := &Config{
		Environment: env,
		SecretKey:   secret,
		DatabaseURL: os.Getenv("DATABASE_URL"),
		Port:        port,
		Quality:     QualityThresholdsFor(env),
		Performance: PerformanceThresholdsFor(env),
	}

	log.Info().
		Str("environment", string(env)).
		Bool("database_configured", cfg.DatabaseURL != "").
		Msg("configuration loaded")

	return cfg
}

// IsProduction reports whether the configuration targets production.
func (c *Config) IsProduction() bool { return c.Environment == Production }

// UsesRealData reports whether live data sources back the service instead
// of the bundled samples.
func (c *Config) UsesRealData() bool { return c.Environment == Production }

// Info summarises the environment for the debug endpoint.
func (c *Config) Info() map[string]any {
	return map[string]any{
		"environment":    string(c.Environment),
		"is_production":  c.Environment == Production,
		"is_staging":     c.Environment == Staging,
		"is_development": c.Environment == Development,
		"is_testing":     c.Environment == Testing,
		"use_real_data":  c.UsesRealData(),
		"timestamp":      time.Now().UTC().Format(time.RFC3339),
		"version":        "4.5.0",
	}
}
