// Package config provides configuration management for the eligibility server.
// This file contains the lightweight configuration for standalone operation.
package config

import (
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/trial-eligibility-server/internal/domain"
)

// LiteConfig is a simplified configuration for standalone operation.
// It requires no external services: SQLite history and an in-memory cache.
type LiteConfig struct {
	// Data storage
	DataDir   string // Base directory for the evaluation history
	TrialsDir string // Directory of YAML trial definitions

	// Cache settings
	CacheMaxItems int           // Maximum items in memory cache
	CacheTTL      time.Duration // Default cache TTL

	// Engine settings
	ReferenceDate string // Optional YYYY-MM-DD override of today
	Workers       int    // Batch matching concurrency, 0 for GOMAXPROCS

	// Transport settings
	Transport string // Transport type: stdio, http
	HTTPPort  int    // HTTP port (if transport is http)

	// Logging
	LogLevel  string // Log level: debug, info, warn, error
	LogFormat string // Log format: json, text
}

// DefaultLiteConfig returns a configuration with sensible defaults.
func DefaultLiteConfig() *LiteConfig {
	homeDir, _ := os.UserHomeDir()
	dataDir := filepath.Join(homeDir, ".trial-eligibility")

	return &LiteConfig{
		DataDir:       dataDir,
		TrialsDir:     filepath.Join(dataDir, "trials"),
		CacheMaxItems: 1000,
		CacheTTL:      15 * time.Minute,
		Transport:     "stdio",
		HTTPPort:      8080,
		LogLevel:      "info",
		LogFormat:     "json",
	}
}

// LoadLiteConfig loads configuration from environment variables.
// Falls back to defaults if not set.
func LoadLiteConfig() *LiteConfig {
	cfg := DefaultLiteConfig()

	// Data directories
	if v := os.Getenv("TRIAL_DATA_DIR"); v != "" {
		cfg.DataDir = v
		cfg.TrialsDir = filepath.Join(v, "trials")
	}
	if v := os.Getenv("TRIAL_TRIALS_DIR"); v != "" {
		cfg.TrialsDir = v
	}

	// Cache settings
	if v := os.Getenv("TRIAL_CACHE_MAX_ITEMS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.CacheMaxItems = n
		}
	}
	if v := os.Getenv("TRIAL_CACHE_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.CacheTTL = d
		}
	}

	// Engine
	cfg.ReferenceDate = os.Getenv("TRIAL_REFERENCE_DATE")
	if v := os.Getenv("TRIAL_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			cfg.Workers = n
		}
	}

	// Transport
	if v := os.Getenv("TRIAL_TRANSPORT"); v != "" {
		cfg.Transport = v
	}
	if v := os.Getenv("TRIAL_HTTP_PORT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.HTTPPort = n
		}
	}

	// Logging
	if v := os.Getenv("TRIAL_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("TRIAL_LOG_FORMAT"); v != "" {
		cfg.LogFormat = v
	}

	return cfg
}

// HistoryDBPath returns the path to the evaluation history SQLite database.
func (c *LiteConfig) HistoryDBPath() string {
	return filepath.Join(c.DataDir, "evaluations.db")
}

// EnsureDataDir creates the data directory if it doesn't exist.
func (c *LiteConfig) EnsureDataDir() error {
	return os.MkdirAll(c.DataDir, 0o755)
}

// ToConfig expands the lite settings into a full configuration.
func (c *LiteConfig) ToConfig() *domain.Config {
	return &domain.Config{
		Environment: "development",
		Server: domain.ServerConfig{
			Host:           "127.0.0.1",
			Port:           c.HTTPPort,
			ReadTimeout:    30 * time.Second,
			WriteTimeout:   30 * time.Second,
			IdleTimeout:    120 * time.Second,
			RequestTimeout: 30 * time.Second,
			RateLimitRPS:   20,
			RateLimitBurst: 40,
		},
		Database: domain.DatabaseConfig{
			Driver: "sqlite",
			Path:   c.HistoryDBPath(),
		},
		Cache: domain.CacheConfig{
			Backend:    "memory",
			DefaultTTL: c.CacheTTL,
			MaxItems:   c.CacheMaxItems,
		},
		Logging: domain.LoggingConfig{
			Level:  c.LogLevel,
			Format: c.LogFormat,
			Output: "stderr",
		},
		Engine: domain.EngineConfig{
			Workers:       c.Workers,
			ReferenceDate: c.ReferenceDate,
			TrialsDir:     c.TrialsDir,
		},
		MCP: domain.MCPConfig{
			ServerName:    "trial-eligibility",
			ServerVersion: "1.0.0",
		},
	}
}
