package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

const testSessionSecret = "a-session-secret-that-is-at-least-32-bytes-long"
const testVaultKeyHex = "00112233445566778899aabbccddeeff00112233445566778899aabbccddeeff"

func withSecrets(cfg Config) Config {
	cfg.Auth.SessionSecret = testSessionSecret
	cfg.Vault.KeyHex = testVaultKeyHex
	return cfg
}

func TestDefaults(t *testing.T) {
	cfg := Defaults()

	if cfg.Server.Port != "8080" {
		t.Errorf("expected port 8080, got %s", cfg.Server.Port)
	}
	if cfg.Database.MaxConns != 15 {
		t.Errorf("expected max_conns 15, got %d", cfg.Database.MaxConns)
	}
	if cfg.Breaker.Timeout != 30*time.Second {
		t.Errorf("expected breaker timeout 30s, got %v", cfg.Breaker.Timeout)
	}
	if cfg.Orchestrator.HealthProbeInterval != 30*time.Second {
		t.Errorf("expected health probe interval 30s, got %v", cfg.Orchestrator.HealthProbeInterval)
	}
}

func TestLoadYAMLOverride(t *testing.T) {
	dir := t.TempDir()
	yamlPath := filepath.Join(dir, "test.yaml")

	content := `
server:
  port: "9090"
  cors_origin: "http://example.com"
database:
  max_conns: 20
logging:
  level: "debug"
`
	if err := os.WriteFile(yamlPath, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := Defaults()
	if err := loadYAML(&cfg, yamlPath); err != nil {
		t.Fatal(err)
	}

	if cfg.Server.Port != "9090" {
		t.Errorf("expected port 9090, got %s", cfg.Server.Port)
	}
	if cfg.Server.CORSOrigin != "http://example.com" {
		t.Errorf("expected cors http://example.com, got %s", cfg.Server.CORSOrigin)
	}
	if cfg.Database.MaxConns != 20 {
		t.Errorf("expected max_conns 20, got %d", cfg.Database.MaxConns)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("expected log level debug, got %s", cfg.Logging.Level)
	}
	// Unchanged fields keep defaults
	if cfg.Vault.DefaultBaseURL != "https://api.anthropic.com" {
		t.Errorf("expected default vault base URL, got %s", cfg.Vault.DefaultBaseURL)
	}
}

func TestLoadYAMLMissing(t *testing.T) {
	cfg := Defaults()
	err := loadYAML(&cfg, "/nonexistent/path.yaml")
	if err != nil {
		t.Errorf("missing YAML should not error, got %v", err)
	}
}

func TestEnvOverride(t *testing.T) {
	cfg := Defaults()

	t.Setenv("LISTEN_PORT", "7070")
	t.Setenv("DATABASE_URL", "postgres://test:test@db:5432/test")
	t.Setenv("GATEWAY_DB_MAX_CONNS", "25")
	t.Setenv("LOG_LEVEL", "warn")
	t.Setenv("GATEWAY_BREAKER_TIMEOUT", "1m")
	t.Setenv("SESSION_SECRET", testSessionSecret)
	t.Setenv("VAULT_KEY_HEX", testVaultKeyHex)

	loadEnv(&cfg)

	if cfg.Server.Port != "7070" {
		t.Errorf("expected port 7070, got %s", cfg.Server.Port)
	}
	if cfg.Database.DSN != "postgres://test:test@db:5432/test" {
		t.Errorf("expected test DSN, got %s", cfg.Database.DSN)
	}
	if cfg.Database.MaxConns != 25 {
		t.Errorf("expected max_conns 25, got %d", cfg.Database.MaxConns)
	}
	if cfg.Logging.Level != "warn" {
		t.Errorf("expected log level warn, got %s", cfg.Logging.Level)
	}
	if cfg.Breaker.Timeout != time.Minute {
		t.Errorf("expected breaker timeout 1m, got %v", cfg.Breaker.Timeout)
	}
	if cfg.Auth.SessionSecret != testSessionSecret {
		t.Errorf("expected session secret override, got %s", cfg.Auth.SessionSecret)
	}
}

func TestValidateRequired(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
		errMsg string
	}{
		{
			name:   "empty port",
			modify: func(c *Config) { c.Server.Port = "" },
			errMsg: "server.port (LISTEN_PORT) is required",
		},
		{
			name:   "empty DSN",
			modify: func(c *Config) { c.Database.DSN = "" },
			errMsg: "database.dsn (DATABASE_URL) is required",
		},
		{
			name:   "zero max_conns",
			modify: func(c *Config) { c.Database.MaxConns = 0 },
			errMsg: "database.max_conns must be >= 1",
		},
		{
			name:   "zero breaker failures",
			modify: func(c *Config) { c.Breaker.MaxFailures = 0 },
			errMsg: "breaker.max_failures must be >= 1",
		},
		{
			name:   "short session secret",
			modify: func(c *Config) { c.Auth.SessionSecret = "too-short" },
			errMsg: "auth.session_secret (SESSION_SECRET) must be at least 32 bytes",
		},
		{
			name:   "wrong length vault key",
			modify: func(c *Config) { c.Vault.KeyHex = "abcd" },
			errMsg: "vault.key_hex (VAULT_KEY_HEX) must be exactly 64 hex characters",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := withSecrets(Defaults())
			tt.modify(&cfg)
			err := validate(&cfg)
			if err == nil {
				t.Fatalf("expected error %q, got nil", tt.errMsg)
			}
			if err.Error() != tt.errMsg {
				t.Errorf("expected %q, got %q", tt.errMsg, err.Error())
			}
		})
	}
}

func TestValidateDefaultsWithSecrets(t *testing.T) {
	cfg := withSecrets(Defaults())
	if err := validate(&cfg); err != nil {
		t.Errorf("defaults with secrets set should validate, got %v", err)
	}
}
