// Package config provides configuration management for the Darkhorses odds engine.
package config

import (
	"bytes"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

const defaultConfigPath = "config/config.yaml"

// Load reads and parses the configuration from file and environment variables.
// It expands environment variable placeholders in the YAML file (${VAR_NAME})
func Load(configPath string) (*Config, error) {
	if configPath == "" {
		configPath = defaultConfigPath
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config file not found at %s: %w", configPath, err)
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Expand environment variables in the configuration (${VAR} syntax)
	expanded := os.ExpandEnv(string(data))

	v := newViper()
	if err := v.ReadConfig(bytes.NewBufferString(expanded)); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	return cfg, nil
}

// LoadWithDefaults loads configuration with default values for optional fields.
// It expands environment variable placeholders in the YAML file (${VAR_NAME})
func LoadWithDefaults(configPath string) (*Config, error) {
	if configPath == "" {
		configPath = defaultConfigPath
	}

	v := newViper()
	setDefaults(v)

	// Read and expand the configuration file if it exists
	if data, err := os.ReadFile(configPath); err == nil {
		expanded := os.ExpandEnv(string(data))
		if err := v.ReadConfig(bytes.NewBufferString(expanded)); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	// If the file doesn't exist, continue with defaults and environment variables

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	return cfg, nil
}

// newViper creates a viper instance bound to the DARKHORSES environment prefix
func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix("DARKHORSES")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	return v
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "darkhorses-odds")
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.log_level", "info")

	v.SetDefault("database.ssl_mode", "require")
	v.SetDefault("database.max_connections", 10)
	v.SetDefault("database.max_idle_connections", 5)

	v.SetDefault("racing_api.base_url", "https://api.theracingapi.com/v1")
	v.SetDefault("racing_api.timeout_seconds", 30)
	v.SetDefault("racing_api.max_retries", 3)
	v.SetDefault("racing_api.requests_per_second", 2.0)
	v.SetDefault("racing_api.burst_size", 2)
	v.SetDefault("racing_api.regions", []string{"gb", "ire"})

	v.SetDefault("live_odds.max_workers", 5)
	v.SetDefault("live_odds.grace_period_minutes", 10)
	v.SetDefault("live_odds.max_consecutive_failures", 5)
	v.SetDefault("live_odds.failure_backoff_seconds", 60)
	v.SetDefault("live_odds.racecard_cache_ttl_seconds", 300)
	v.SetDefault("live_odds.retention_days", 7)

	v.SetDefault("historical.start_date", "2015-01-01")
	v.SetDefault("historical.dates_per_cycle", 50)
	v.SetDefault("historical.completion_percent", 95)
	v.SetDefault("historical.maintenance_cron", "0 1 * * *")
	v.SetDefault("historical.recheck_limit", 10)
	v.SetDefault("historical.state_file", "data/backfill_state.json")
	v.SetDefault("historical.results_page_limit", 50)

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.port", 9090)
	v.SetDefault("metrics.path", "/metrics")

	v.SetDefault("redis.invalidation_channel", "darkhorses:odds:invalidate")
}
