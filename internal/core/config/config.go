// Package config provides configuration management for windowkeeper services.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"
)

// State store backends.
const (
	BackendSQL    = "sql"
	BackendRedis  = "redis"
	BackendMemory = "memory"
)

// DashboardTokenEnv holds the dashboard bearer token. Environment only.
const DashboardTokenEnv = "WK_DASHBOARD_TOKEN"

// Config holds configuration for the processing service.
type Config struct {
	Host        string
	Port        int
	MetricsAddr string
	Engine      EngineConfig
	State       StateConfig
	Dashboard   DashboardConfig
}

// EngineConfig tunes the window engine and its workers.
type EngineConfig struct {
	// ReorderTolerance bounds how late an observation may arrive and still
	// land in a sub-window that has not been collected yet.
	ReorderTolerance time.Duration
	Workers          int
	MaxBatchSize     int
}

// StateConfig selects and tunes the condition state store.
type StateConfig struct {
	Backend        string
	CacheSize      int
	RedisAddr      string
	RedisDB        int
	RedisKeyPrefix string
}

// DashboardConfig locates the rule dashboard. The token is never read from a
// config file; see DashboardToken.
type DashboardConfig struct {
	URL            string
	RequestTimeout time.Duration
}

// DefaultConfig returns configuration with default values.
func DefaultConfig() *Config {
	return &Config{
		Host:        "0.0.0.0",
		Port:        50052,
		MetricsAddr: ":9090",
		Engine: EngineConfig{
			ReorderTolerance: 60 * time.Second,
			Workers:          4,
			MaxBatchSize:     1000,
		},
		State: StateConfig{
			Backend:        BackendSQL,
			CacheSize:      10000,
			RedisAddr:      "localhost:6379",
			RedisKeyPrefix: "windowkeeper:state:",
		},
		Dashboard: DashboardConfig{
			RequestTimeout: 30 * time.Second,
		},
	}
}

// DashboardToken returns the dashboard bearer token from the environment.
// Returns an error when it is unset or blank.
func DashboardToken() (string, error) {
	token := strings.TrimSpace(os.Getenv(DashboardTokenEnv))
	if token == "" {
		return "", fmt.Errorf("no dashboard token configured (set %s environment variable)", DashboardTokenEnv)
	}
	return token, nil
}
