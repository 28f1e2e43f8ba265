// Package config loads service settings from a .env file and environment variables.
// Environment variables always take precedence over .env file values.
package config

import (
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Port        int
	DBPath      string
	LogLevel    string
	LogFormat   string
	HTTPLogging bool
	// BaseURL is the externally reachable address encoded into heat QR codes.
	BaseURL string

	// Scoring and bracket tuning
	BatchSize          int
	HeatMaxSize        int
	DQPenaltyThreshold int
	DNSPoint           int
}

const (
	MinBatchSize = 4
	MaxBatchSize = 8
)

// Load reads configuration from a .env file (if present) and then from
// environment variables. Environment variables always win.
func Load() *Config {
	// A missing .env is normal outside development.
	_ = godotenv.Load()

	v := viper.New()
	v.AutomaticEnv()
	return fromViper(v)
}

func fromViper(v *viper.Viper) *Config {
	v.SetDefault("PORT", 8081)
	v.SetDefault("DB_PATH", "gaterace.db")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "console")
	v.SetDefault("HTTP_LOGGING", false)
	v.SetDefault("BASE_URL", "")
	v.SetDefault("BATCH_SIZE", MaxBatchSize)
	v.SetDefault("HEAT_MAX_SIZE", 8)
	v.SetDefault("DQ_PENALTY_THRESHOLD", 7)
	v.SetDefault("DNS_POINT", 9)

	cfg := &Config{
		Port:               v.GetInt("PORT"),
		DBPath:             v.GetString("DB_PATH"),
		LogLevel:           v.GetString("LOG_LEVEL"),
		LogFormat:          v.GetString("LOG_FORMAT"),
		HTTPLogging:        v.GetBool("HTTP_LOGGING"),
		BaseURL:            v.GetString("BASE_URL"),
		BatchSize:          v.GetInt("BATCH_SIZE"),
		HeatMaxSize:        v.GetInt("HEAT_MAX_SIZE"),
		DQPenaltyThreshold: v.GetInt("DQ_PENALTY_THRESHOLD"),
		DNSPoint:           v.GetInt("DNS_POINT"),
	}
	cfg.normalize()
	return cfg
}

// normalize clamps values that would break batching or heat creation
func (c *Config) normalize() {
	if c.BatchSize < MinBatchSize {
		c.BatchSize = MinBatchSize
	}
	if c.BatchSize > MaxBatchSize {
		c.BatchSize = MaxBatchSize
	}
	if c.HeatMaxSize < 1 {
		c.HeatMaxSize = 8
	}
	if c.DQPenaltyThreshold < 1 {
		c.DQPenaltyThreshold = 7
	}
	if c.DNSPoint < 1 {
		c.DNSPoint = 9
	}
}
