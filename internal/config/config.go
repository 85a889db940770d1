// Package config loads command configuration from a .env file, an optional
// config.yaml and environment variables. Environment variables override the
// file; flags parsed by the commands override everything.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config collects the knobs shared by the commands.
type Config struct {
	// NodeEndpoint is the JSON-RPC URL of the contract indexer node.
	NodeEndpoint string
	// GatewayURL is the base URL of the content gateway.
	GatewayURL string
	// IndexDSN is the Postgres DSN of the materialized index; empty
	// disables the index entirely.
	IndexDSN string
	// TelemetryPath is the SQLite file for local trending tallies; empty
	// disables trending.
	TelemetryPath string
	// PollInterval is how often live views refresh.
	PollInterval time.Duration
	// PageSize is the initial visible page of every view.
	PageSize int
	// RebuildSpec is the cron expression driving index passes.
	RebuildSpec string
	// RebuildBatch caps how many records one index pass may ingest.
	RebuildBatch int
}

// Load reads .env (if present), config.yaml (if present) and the
// environment, in that order of increasing precedence.
func Load() (Config, error) {
	_ = godotenv.Load() // missing .env is fine

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.SetEnvPrefix("bitbuzz")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("node.endpoint", "http://localhost:8545")
	v.SetDefault("gateway.url", "http://localhost:8080")
	v.SetDefault("index.dsn", "")
	v.SetDefault("telemetry.path", "")
	v.SetDefault("poll.interval", "5s")
	v.SetDefault("page.size", 10)
	v.SetDefault("rebuild.spec", "@every 10m")
	v.SetDefault("rebuild.batch", 500)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	cfg := Config{
		NodeEndpoint:  v.GetString("node.endpoint"),
		GatewayURL:    v.GetString("gateway.url"),
		IndexDSN:      v.GetString("index.dsn"),
		TelemetryPath: v.GetString("telemetry.path"),
		PollInterval:  v.GetDuration("poll.interval"),
		PageSize:      v.GetInt("page.size"),
		RebuildSpec:   v.GetString("rebuild.spec"),
		RebuildBatch:  v.GetInt("rebuild.batch"),
	}
	if cfg.PollInterval <= 0 {
		return Config{}, fmt.Errorf("poll.interval must be positive, got %s", cfg.PollInterval)
	}
	if cfg.PageSize <= 0 {
		return Config{}, fmt.Errorf("page.size must be positive, got %d", cfg.PageSize)
	}
	return cfg, nil
}
