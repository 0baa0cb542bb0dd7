// Package config provides configuration management for the Darkhorses odds engine.
package config

import (
	"fmt"
	"time"
)

// Config represents the complete application configuration
type Config struct {
	App        AppConfig        `mapstructure:"app" validate:"required"`
	Database   DatabaseConfig   `mapstructure:"database" validate:"required"`
	RacingAPI  RacingAPIConfig  `mapstructure:"racing_api" validate:"required"`
	LiveOdds   LiveOddsConfig   `mapstructure:"live_odds" validate:"required"`
	Historical HistoricalConfig `mapstructure:"historical" validate:"required"`
	Metrics    MetricsConfig    `mapstructure:"metrics" validate:"required"`
	Redis      RedisConfig      `mapstructure:"redis"`
	AWS        AWSConfig        `mapstructure:"aws"`
}

// AppConfig represents application-level configuration
type AppConfig struct {
	Name        string `mapstructure:"name" validate:"required"`
	Environment string `mapstructure:"environment" validate:"required,environment"`
	LogLevel    string `mapstructure:"log_level" validate:"required,loglevel"`
}

// DatabaseConfig represents database connection configuration
type DatabaseConfig struct {
	Host               string `mapstructure:"host" validate:"required"`
	Port               int    `mapstructure:"port" validate:"required,min=1,max=65535"`
	Name               string `mapstructure:"name" validate:"required"`
	User               string `mapstructure:"user" validate:"required"`
	Password           string `mapstructure:"password" validate:"required"`
	SSLMode            string `mapstructure:"ssl_mode" validate:"required,oneof=disable require verify-full"`
	MaxConnections     int    `mapstructure:"max_connections" validate:"required,gt=0"`
	MaxIdleConnections int    `mapstructure:"max_idle_connections" validate:"required,gt=0"`
}

// RacingAPIConfig represents the upstream racing API configuration
type RacingAPIConfig struct {
	BaseURL           string   `mapstructure:"base_url" validate:"required,url"`
	Username          string   `mapstructure:"username" validate:"required"`
	Password          string   `mapstructure:"password" validate:"required"`
	TimeoutSeconds    int      `mapstructure:"timeout_seconds" validate:"required,gt=0"`
	MaxRetries        int      `mapstructure:"max_retries" validate:"required,gte=0"`
	RequestsPerSecond float64  `mapstructure:"requests_per_second" validate:"required,gt=0"`
	BurstSize         int      `mapstructure:"burst_size" validate:"required,gt=0"`
	Regions           []string `mapstructure:"regions" validate:"required,min=1,regions"`
}

// LiveOddsConfig represents live odds collection configuration
type LiveOddsConfig struct {
	MaxWorkers              int  `mapstructure:"max_workers" validate:"required,gt=0"`
	GracePeriodMinutes      int  `mapstructure:"grace_period_minutes" validate:"required,gte=0"`
	MaxConsecutiveFailures  int  `mapstructure:"max_consecutive_failures" validate:"required,gt=0"`
	FailureBackoffSeconds   int  `mapstructure:"failure_backoff_seconds" validate:"required,gt=0"`
	RacecardCacheTTLSeconds int  `mapstructure:"racecard_cache_ttl_seconds" validate:"required,gt=0"`
	RetentionDays           int  `mapstructure:"retention_days" validate:"required,gt=0"`
	DisableChangeDetection  bool `mapstructure:"disable_change_detection"`
}

// HistoricalConfig represents the historical backfill configuration
type HistoricalConfig struct {
	StartDate          string `mapstructure:"start_date" validate:"required,datestring"`
	DatesPerCycle      int    `mapstructure:"dates_per_cycle" validate:"required,gt=0"`
	CompletionPercent  int    `mapstructure:"completion_percent" validate:"required,gt=0,lte=100"`
	MaintenanceCron    string `mapstructure:"maintenance_cron" validate:"required"`
	RecheckLimit       int    `mapstructure:"recheck_limit" validate:"required,gte=0"`
	StateFile          string `mapstructure:"state_file" validate:"required"`
	ResultsPageLimit   int    `mapstructure:"results_page_limit" validate:"required,gt=0"`
}

// MetricsConfig represents metrics and monitoring configuration
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Port    int    `mapstructure:"port" validate:"required,min=1,max=65535"`
	Path    string `mapstructure:"path" validate:"required"`
}

// RedisConfig represents the cache invalidation channel configuration.
// Redis is optional; when Address is empty no invalidation events are published.
type RedisConfig struct {
	Address             string `mapstructure:"address"`
	Password            string `mapstructure:"password"`
	DB                  int    `mapstructure:"db"`
	InvalidationChannel string `mapstructure:"invalidation_channel"`
}

// AWSConfig represents AWS Secrets Manager integration configuration
type AWSConfig struct {
	Region     string `mapstructure:"region"`
	SecretName string `mapstructure:"secret_name"`
}

// IsDevelopment checks if the application is running in development mode
func (c *Config) IsDevelopment() bool {
	return c.App.Environment == "development"
}

// IsProduction checks if the application is running in production mode
func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

// GetDatabaseDSN returns a PostgreSQL DSN string
func (c *Config) GetDatabaseDSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Name,
		c.Database.SSLMode,
	)
}

// APITimeout returns the racing API request timeout as a duration
func (c *RacingAPIConfig) APITimeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// GracePeriod returns the post-start grace window as a duration
func (c *LiveOddsConfig) GracePeriod() time.Duration {
	return time.Duration(c.GracePeriodMinutes) * time.Minute
}

// FailureBackoff returns the failed-cycle backoff as a duration
func (c *LiveOddsConfig) FailureBackoff() time.Duration {
	return time.Duration(c.FailureBackoffSeconds) * time.Second
}

// RacecardCacheTTL returns the racecard cache TTL as a duration
func (c *LiveOddsConfig) RacecardCacheTTL() time.Duration {
	return time.Duration(c.RacecardCacheTTLSeconds) * time.Second
}

// Retention returns how long finished races keep their live snapshots
func (c *LiveOddsConfig) Retention() time.Duration {
	return time.Duration(c.RetentionDays) * 24 * time.Hour
}
