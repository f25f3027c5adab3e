package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// LoadConfig loads configuration from file using viper.
// CLI flags > environment > config file > defaults precedence.
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()

	// Set defaults matching DefaultConfig
	d := DefaultConfig()
	v.SetDefault("server.host", d.Host)
	v.SetDefault("server.port", d.Port)
	v.SetDefault("server.metrics_addr", d.MetricsAddr)
	v.SetDefault("engine.reorder_tolerance", d.Engine.ReorderTolerance.String())
	v.SetDefault("engine.workers", d.Engine.Workers)
	v.SetDefault("engine.max_batch_size", d.Engine.MaxBatchSize)
	v.SetDefault("state.backend", d.State.Backend)
	v.SetDefault("state.cache_size", d.State.CacheSize)
	v.SetDefault("state.redis_addr", d.State.RedisAddr)
	v.SetDefault("state.redis_db", d.State.RedisDB)
	v.SetDefault("state.redis_key_prefix", d.State.RedisKeyPrefix)
	v.SetDefault("dashboard.url", d.Dashboard.URL)
	v.SetDefault("dashboard.request_timeout", d.Dashboard.RequestTimeout.String())

	// Bind environment variables with WK_ prefix
	v.SetEnvPrefix("WK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Load config file if provided
	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Security check: reject secrets in config files
	if err := validateNoSecretsInConfig(v); err != nil {
		return nil, err
	}

	cfg := &Config{
		Host:        v.GetString("server.host"),
		Port:        v.GetInt("server.port"),
		MetricsAddr: v.GetString("server.metrics_addr"),
		Engine: EngineConfig{
			ReorderTolerance: v.GetDuration("engine.reorder_tolerance"),
			Workers:          v.GetInt("engine.workers"),
			MaxBatchSize:     v.GetInt("engine.max_batch_size"),
		},
		State: StateConfig{
			Backend:        strings.ToLower(v.GetString("state.backend")),
			CacheSize:      v.GetInt("state.cache_size"),
			RedisAddr:      v.GetString("state.redis_addr"),
			RedisDB:        v.GetInt("state.redis_db"),
			RedisKeyPrefix: v.GetString("state.redis_key_prefix"),
		},
		Dashboard: DashboardConfig{
			URL:            strings.TrimRight(v.GetString("dashboard.url"), "/"),
			RequestTimeout: v.GetDuration("dashboard.request_timeout"),
		},
	}

	if err := validateConfig(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// validateConfig checks port range, worker and batch bounds, and the backend name.
func validateConfig(cfg *Config) error {
	if cfg.Port <= 0 || cfg.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", cfg.Port)
	}
	if cfg.Engine.ReorderTolerance < 0 {
		return fmt.Errorf("reorder_tolerance must not be negative, got %v", cfg.Engine.ReorderTolerance)
	}
	if cfg.Engine.Workers <= 0 {
		return fmt.Errorf("workers must be positive, got %d", cfg.Engine.Workers)
	}
	if cfg.Engine.MaxBatchSize <= 0 {
		return fmt.Errorf("max_batch_size must be positive, got %d", cfg.Engine.MaxBatchSize)
	}
	switch cfg.State.Backend {
	case BackendSQL, BackendRedis, BackendMemory:
	default:
		return fmt.Errorf("state backend must be one of sql, redis, memory, got %q", cfg.State.Backend)
	}
	if cfg.State.CacheSize < 0 {
		return fmt.Errorf("cache_size must not be negative, got %d", cfg.State.CacheSize)
	}
	if cfg.Dashboard.RequestTimeout <= 0 {
		return fmt.Errorf("request_timeout must be positive, got %v", cfg.Dashboard.RequestTimeout)
	}
	return nil
}

// validateNoSecretsInConfig enforces environment-only secrets (12-factor principle).
// InConfig looks at the file only, so the token in the environment passes.
func validateNoSecretsInConfig(v *viper.Viper) error {
	if v.InConfig("dashboard.token") || v.InConfig("dashboard_token") {
		return fmt.Errorf("dashboard token not allowed in config files (use %s environment variable)", DashboardTokenEnv)
	}
	return nil
}
