package config

import (
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the path checked for YAML configuration.
const DefaultConfigFile = "gateway.yaml"

// CLIFlags holds command-line flag values. Nil pointers indicate unset flags
// that should not override the config. Use ParseFlags to populate this struct.
type CLIFlags struct {
	ConfigPath *string
	Port       *string
	LogLevel   *string
	DSN        *string
}

// ParseFlags parses command-line arguments into CLIFlags.
// Call this before Load/LoadWithCLI. Passing nil args parses os.Args[1:].
func ParseFlags(args []string) (CLIFlags, error) {
	var flags CLIFlags
	if args == nil {
		args = os.Args[1:]
	}

	fs := flag.NewFlagSet("gateway", flag.ContinueOnError)
	configPath := fs.String("config", "", "path to YAML config file")
	fs.StringVar(configPath, "c", "", "path to YAML config file (shorthand)")
	port := fs.String("port", "", "HTTP server port")
	fs.StringVar(port, "p", "", "HTTP server port (shorthand)")
	logLevel := fs.String("log-level", "", "logging level (debug, info, warn, error)")
	dsn := fs.String("dsn", "", "PostgreSQL connection string")

	if err := fs.Parse(args); err != nil {
		return flags, fmt.Errorf("parse flags: %w", err)
	}

	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "config", "c":
			flags.ConfigPath = configPath
		case "port", "p":
			flags.Port = port
		case "log-level":
			flags.LogLevel = logLevel
		case "dsn":
			flags.DSN = dsn
		}
	})

	return flags, nil
}

// Load returns a Config using the hierarchy: defaults < YAML < ENV.
// YAML file is optional; missing file is not an error.
func Load() (*Config, error) {
	return LoadFrom(DefaultConfigFile)
}

// LoadWithCLI returns a Config using the full hierarchy:
// defaults < YAML < ENV < CLI flags. The YAML path can be overridden
// via CLIFlags.ConfigPath.
func LoadWithCLI(flags CLIFlags) (*Config, string, error) {
	yamlPath := DefaultConfigFile
	if flags.ConfigPath != nil {
		yamlPath = *flags.ConfigPath
	}

	cfg := Defaults()

	if err := loadYAML(&cfg, yamlPath); err != nil {
		return nil, "", fmt.Errorf("config yaml: %w", err)
	}

	loadEnv(&cfg)
	applyCLI(&cfg, flags)

	if err := validate(&cfg); err != nil {
		return nil, "", fmt.Errorf("config validate: %w", err)
	}

	return &cfg, yamlPath, nil
}

// LoadFrom returns a Config loaded from the given YAML path using the
// hierarchy: defaults < YAML < ENV. The YAML file is optional.
func LoadFrom(yamlPath string) (*Config, error) {
	cfg := Defaults()

	if err := loadYAML(&cfg, yamlPath); err != nil {
		return nil, fmt.Errorf("config yaml: %w", err)
	}

	loadEnv(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("config validate: %w", err)
	}

	return &cfg, nil
}

// applyCLI overlays CLI flag values onto cfg. Only non-nil flags override.
func applyCLI(cfg *Config, flags CLIFlags) {
	if flags.Port != nil {
		cfg.Server.Port = *flags.Port
	}
	if flags.LogLevel != nil {
		cfg.Logging.Level = *flags.LogLevel
	}
	if flags.DSN != nil {
		cfg.Database.DSN = *flags.DSN
	}
}

// loadYAML reads the YAML file and unmarshals it over cfg.
// Returns nil if the file does not exist.
func loadYAML(cfg *Config, path string) error {
	data, err := os.ReadFile(path) //nolint:gosec // G304: path is validated by caller
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}

	return nil
}

// loadEnv overlays the gateway's documented environment variables onto
// cfg, plus a handful of ambient variables (max-conns, breaker tuning)
// needed to operate the rest of the stack.
func loadEnv(cfg *Config) {
	setString(&cfg.Auth.SessionSecret, "SESSION_SECRET")
	setString(&cfg.Vault.KeyHex, "VAULT_KEY_HEX")
	setString(&cfg.Server.Port, "LISTEN_PORT")
	setString(&cfg.Server.CORSOrigin, "CORS_ORIGIN")
	setString(&cfg.Server.DataDir, "DATA_DIR")
	setString(&cfg.Logging.Level, "LOG_LEVEL")
	setString(&cfg.Auth.DefaultAdminPassword, "DEFAULT_ADMIN_PASSWORD")

	setString(&cfg.Database.DSN, "DATABASE_URL")
	setInt32(&cfg.Database.MaxConns, "GATEWAY_DB_MAX_CONNS")
	setInt32(&cfg.Database.MinConns, "GATEWAY_DB_MIN_CONNS")
	setDuration(&cfg.Database.MaxConnLifetime, "GATEWAY_DB_MAX_CONN_LIFETIME")
	setDuration(&cfg.Database.MaxConnIdleTime, "GATEWAY_DB_MAX_CONN_IDLE_TIME")
	setDuration(&cfg.Database.HealthCheck, "GATEWAY_DB_HEALTH_CHECK")

	setString(&cfg.Logging.Service, "GATEWAY_LOG_SERVICE")
	setBool(&cfg.Logging.Async, "GATEWAY_LOG_ASYNC")

	setInt(&cfg.Breaker.MaxFailures, "GATEWAY_BREAKER_MAX_FAILURES")
	setDuration(&cfg.Breaker.Timeout, "GATEWAY_BREAKER_TIMEOUT")

	setBool(&cfg.RateLimit.Enabled, "GATEWAY_RATE_LIMIT_ENABLED")

	setDuration(&cfg.Orchestrator.HealthProbeInterval, "GATEWAY_ORCH_HEALTH_PROBE_INTERVAL")
	setDuration(&cfg.Orchestrator.HealthProbeTimeout, "GATEWAY_ORCH_HEALTH_PROBE_TIMEOUT")
	setDuration(&cfg.Orchestrator.DispatchTimeout, "GATEWAY_ORCH_DISPATCH_TIMEOUT")
	setDuration(&cfg.Orchestrator.CacheTTL, "GATEWAY_ORCH_CACHE_TTL")

	setString(&cfg.Vault.DefaultBaseURL, "GATEWAY_VAULT_DEFAULT_BASE_URL")
	setString(&cfg.Vault.DefaultModel, "GATEWAY_VAULT_DEFAULT_MODEL")
	setInt(&cfg.Vault.DefaultMaxTokens, "GATEWAY_VAULT_DEFAULT_MAX_TOKENS")
	setDuration(&cfg.Vault.CompletionTimeout, "GATEWAY_VAULT_COMPLETION_TIMEOUT")
	setDuration(&cfg.Vault.UsageProbeTimeout, "GATEWAY_VAULT_USAGE_PROBE_TIMEOUT")

	setBool(&cfg.Auth.SecureCookies, "GATEWAY_AUTH_SECURE_COOKIES")
	setString(&cfg.Auth.DefaultAdminEmail, "GATEWAY_AUTH_ADMIN_EMAIL")
}

// validate checks that required fields are set and the gateway's
// security constraints are met.
func validate(cfg *Config) error {
	if cfg.Server.Port == "" {
		return errors.New("server.port (LISTEN_PORT) is required")
	}
	if cfg.Database.DSN == "" {
		return errors.New("database.dsn (DATABASE_URL) is required")
	}
	if cfg.Database.MaxConns < 1 {
		return errors.New("database.max_conns must be >= 1")
	}
	if cfg.Breaker.MaxFailures < 1 {
		return errors.New("breaker.max_failures must be >= 1")
	}
	if len(cfg.Auth.SessionSecret) < 32 {
		return errors.New("auth.session_secret (SESSION_SECRET) must be at least 32 bytes")
	}
	if len(cfg.Vault.KeyHex) != 64 {
		return errors.New("vault.key_hex (VAULT_KEY_HEX) must be exactly 64 hex characters")
	}

	if cfg.Auth.DefaultAdminPassword != "" {
		p := cfg.Auth.DefaultAdminPassword
		if p == "changeme123" || p == "Changeme123" || p == "CHANGE_ME_ON_FIRST_BOOT" {
			slog.Warn("default_admin_password is set to a well-known default; change it before production use")
		}
	}

	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setInt32(dst *int32, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 32); err == nil {
			*dst = int32(n)
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *time.Duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		}
	}
}
