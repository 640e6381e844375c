// Package config provides configuration management for the wager engine.
package config

import (
	"fmt"
)

// Config represents the complete application configuration
type Config struct {
	App        AppConfig        `mapstructure:"app" validate:"required"`
	Database   DatabaseConfig   `mapstructure:"database" validate:"required"`
	Feeds      FeedsConfig      `mapstructure:"feeds" validate:"required"`
	Optimizer  OptimizerConfig  `mapstructure:"optimizer" validate:"required"`
	Kelly      KellyConfig      `mapstructure:"kelly" validate:"required"`
	Ledger     LedgerConfig     `mapstructure:"ledger" validate:"required"`
	Settlement SettlementConfig `mapstructure:"settlement" validate:"required"`
	Metrics    MetricsConfig    `mapstructure:"metrics" validate:"required"`
	Health     HealthConfig     `mapstructure:"health" validate:"required"`
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

// FeedsConfig represents external feed configuration
type FeedsConfig struct {
	Predictor PredictorFeedConfig `mapstructure:"predictor" validate:"required"`
	Odds      OddsFeedConfig      `mapstructure:"odds" validate:"required"`
	Results   ResultsFeedConfig   `mapstructure:"results" validate:"required"`
}

// PredictorFeedConfig represents the probability predictor service
type PredictorFeedConfig struct {
	URL             string  `mapstructure:"url" validate:"required,url"`
	APIKey          string  `mapstructure:"api_key"`
	TimeoutSeconds  int     `mapstructure:"timeout_seconds" validate:"required,gt=0"`
	RetryAttempts   int     `mapstructure:"retry_attempts" validate:"gte=0"`
	CacheTTLSeconds int     `mapstructure:"cache_ttl_seconds" validate:"required,gt=0"`
	RateLimitPerSec float64 `mapstructure:"rate_limit_per_sec" validate:"required,gt=0"`
}

// OddsFeedConfig represents the market odds source
type OddsFeedConfig struct {
	URL             string  `mapstructure:"url" validate:"required,url"`
	APIKey          string  `mapstructure:"api_key"`
	TimeoutSeconds  int     `mapstructure:"timeout_seconds" validate:"required,gt=0"`
	CacheTTLSeconds int     `mapstructure:"cache_ttl_seconds" validate:"required,gt=0"`
	RateLimitPerSec float64 `mapstructure:"rate_limit_per_sec" validate:"required,gt=0"`
}

// ResultsFeedConfig represents the contest results source
type ResultsFeedConfig struct {
	URL            string `mapstructure:"url" validate:"required,url"`
	StreamURL      string `mapstructure:"stream_url"`
	APIKey         string `mapstructure:"api_key"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds" validate:"required,gt=0"`
}

// OptimizerConfig represents strategy selection thresholds and limits
type OptimizerConfig struct {
	SingleEVThreshold      float64 `mapstructure:"single_ev_threshold" validate:"required,gt=0"`
	ExactaEVThreshold      float64 `mapstructure:"exacta_ev_threshold" validate:"required,gt=0"`
	TrifectaEVThreshold    float64 `mapstructure:"trifecta_ev_threshold" validate:"required,gt=0"`
	SingleTopN             int     `mapstructure:"single_top_n" validate:"required,gt=0"`
	ExactaTopN             int     `mapstructure:"exacta_top_n" validate:"required,gt=0"`
	TrifectaTopN           int     `mapstructure:"trifecta_top_n" validate:"required,gt=0"`
	Position2Cap           float64 `mapstructure:"position2_cap" validate:"required,gt=0,lte=1"`
	Position3Cap           float64 `mapstructure:"position3_cap" validate:"required,gt=0,lte=1"`
	FallbackOdds           float64 `mapstructure:"fallback_odds" validate:"required,gt=1"`
	FormationBudgetDivisor int     `mapstructure:"formation_budget_divisor" validate:"required,gt=0"`
	MaxTrifectaCandidates  int     `mapstructure:"max_trifecta_candidates" validate:"required,gt=0"`
}

// KellyConfig represents stake sizing configuration
type KellyConfig struct {
	FractionalKelly float64 `mapstructure:"fractional_kelly" validate:"required,gt=0,lte=1"`
	MaxBetFraction  float64 `mapstructure:"max_bet_fraction" validate:"required,gt=0,lte=1"`
	BetUnit         float64 `mapstructure:"bet_unit" validate:"required,gt=0"`
	MinBet          float64 `mapstructure:"min_bet" validate:"required,gt=0"`
}

// LedgerConfig represents ledger and bankroll configuration
type LedgerConfig struct {
	OpeningBalance    float64 `mapstructure:"opening_balance" validate:"required,gt=0"`
	DefaultStrategyID string  `mapstructure:"default_strategy_id" validate:"required"`
}

// SettlementConfig represents the settlement polling schedule
type SettlementConfig struct {
	Enabled      bool   `mapstructure:"enabled"`
	CronSchedule string `mapstructure:"cron_schedule" validate:"required"`
}

// MetricsConfig represents metrics and monitoring configuration
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Port    int    `mapstructure:"port" validate:"required,min=1,max=65535"`
	Path    string `mapstructure:"path" validate:"required"`
}

// HealthConfig represents the health check server configuration
type HealthConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Port    int  `mapstructure:"port" validate:"required,min=1,max=65535"`
}

// IsDevelopment checks if the application is running in development mode
func (c *Config) IsDevelopment() bool {
	return c.App.Environment == "development"
}

// IsStaging checks if the application is running in staging mode
func (c *Config) IsStaging() bool {
	return c.App.Environment == "staging"
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
