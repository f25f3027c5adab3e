package config

import (
	"os"
	"testing"
)

// TestAcceptanceCriteria covers the operator-facing configuration guarantees.
func TestAcceptanceCriteria(t *testing.T) {
	t.Run("AC1: token in environment is accepted alongside a config file", func(t *testing.T) {
		os.Setenv(DashboardTokenEnv, "env-token")
		defer os.Unsetenv(DashboardTokenEnv)

		path := writeConfig(t, `dashboard:
  url: "http://localhost:8080"
`)
		if _, err := LoadConfig(path); err != nil {
			t.Fatalf("AC1 FAIL: LoadConfig error: %v", err)
		}
		token, err := DashboardToken()
		if err != nil || token != "env-token" {
			t.Fatalf("AC1 FAIL: DashboardToken() = %q, %v", token, err)
		}
	})

	t.Run("AC2: config file with dashboard token rejected with clear error", func(t *testing.T) {
		path := writeConfig(t, `dashboard:
  url: "http://localhost:8080"
  token: "should_be_rejected"
`)
		_, err := LoadConfig(path)
		if err == nil {
			t.Fatal("AC2 FAIL: Expected error for secret in config file")
		}
		if err.Error() != "dashboard token not allowed in config files (use WK_DASHBOARD_TOKEN environment variable)" {
			t.Fatalf("AC2 FAIL: Wrong error message: %v", err)
		}
	})

	t.Run("AC3: environment takes precedence over config file", func(t *testing.T) {
		os.Setenv("WK_ENGINE_REORDER_TOLERANCE", "90s")
		defer os.Unsetenv("WK_ENGINE_REORDER_TOLERANCE")

		path := writeConfig(t, `engine:
  reorder_tolerance: "30s"
`)
		cfg, err := LoadConfig(path)
		if err != nil {
			t.Fatalf("AC3 FAIL: LoadConfig error: %v", err)
		}
		if cfg.Engine.ReorderTolerance.Seconds() != 90 {
			t.Fatalf("AC3 FAIL: expected 90s from environment, got %v", cfg.Engine.ReorderTolerance)
		}
	})
}
