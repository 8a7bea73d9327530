package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

const maxConfigFileSize = 1024 * 1024

// Store drivers
const (
	StoreDriverMemory   = "memory"
	StoreDriverRedis    = "redis"
	StoreDriverPostgres = "postgres"
	StoreDriverSQLite   = "sqlite"
)

// Config holds application configuration
type Config struct {
	DatabaseURL        string        `koanf:"database_url"`
	SQLitePath         string        `koanf:"sqlite_path"`
	StoreDriver        string        `koanf:"store_driver"`
	StoreQuotaBytes    int           `koanf:"store_quota_bytes"`
	ServerPort         string        `koanf:"server_port"`
	BaseURL            string        `koanf:"base_url"`
	FrontendURL        string        `koanf:"frontend_url"`
	OpenAIKey          string        `koanf:"openai_api_key"`
	AIProvider         string        `koanf:"ai_provider"`
	AIModel            string        `koanf:"ai_model"`
	AIBaseURL          string        `koanf:"ai_base_url"`
	AITimeout          time.Duration `koanf:"ai_timeout"`
	AIMaxAttempts      int           `koanf:"ai_max_attempts"`
	AIBackoffBase      time.Duration `koanf:"ai_backoff_base"`
	AIRatePerSecond    float64       `koanf:"ai_rate_per_second"`
	ProfileTokenSecret string        `koanf:"profile_token_secret"`
	ProfileTokenTTL    time.Duration `koanf:"profile_token_ttl"`
	EnableHSTS         bool          `koanf:"enable_hsts"`
	RedisURL           string        `koanf:"redis_url"`
	RabbitMQURL        string        `koanf:"rabbitmq_url"`
	RabbitMQPrefetch   int           `koanf:"rabbitmq_prefetch"`
	WorkerDebugMode    bool          `koanf:"worker_debug_mode"`
	ServerDebugMode    bool          `koanf:"server_debug_mode"`
	OTELEnabled        bool          `koanf:"otel_enabled"`
	OTELEndpoint       string        `koanf:"otel_exporter_otlp_endpoint"`
}

// Load loads configuration from an optional YAML file (CONFIG_FILE) and then
// environment variables, which take precedence.
func Load() (*Config, error) {
	k := koanf.New(".")

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		content, err := readConfigFile(path)
		if err != nil {
			return nil, err
		}
		if err := k.Load(rawbytes.Provider(content), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	// Keys are flat: SERVER_PORT -> server_port. Empty variables are skipped
	// so they fall through to the file or the defaults.
	if err := k.Load(env.ProviderWithValue("", ".", func(key, value string) (string, any) {
		if value == "" {
			return "", nil
		}
		return strings.ToLower(key), value
	}), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func readConfigFile(path string) ([]byte, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	if info.Size() > maxConfigFileSize {
		return nil, fmt.Errorf("config file %s exceeds %d bytes", path, maxConfigFileSize)
	}
	content, err := os.ReadFile(path) // #nosec G304 -- operator supplied path
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return content, nil
}

func applyDefaults(cfg *Config) {
	if cfg.ServerPort == "" {
		cfg.ServerPort = "8080"
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "http://localhost:8080"
	}
	if cfg.FrontendURL == "" {
		cfg.FrontendURL = "http://localhost:3000"
	}
	if cfg.AIProvider == "" {
		cfg.AIProvider = "openai"
	}
	if cfg.AITimeout <= 0 {
		cfg.AITimeout = 30 * time.Second
	}
	if cfg.AIMaxAttempts <= 0 {
		cfg.AIMaxAttempts = 3
	}
	if cfg.AIBackoffBase <= 0 {
		cfg.AIBackoffBase = time.Second
	}
	if cfg.StoreDriver == "" {
		cfg.StoreDriver = StoreDriverMemory
		if cfg.DatabaseURL != "" {
			cfg.StoreDriver = StoreDriverPostgres
		}
	}
	if cfg.StoreQuotaBytes <= 0 {
		cfg.StoreQuotaBytes = 5 * 1024 * 1024
	}
	if cfg.SQLitePath == "" {
		cfg.SQLitePath = "manasmitra.db"
	}
	if cfg.ProfileTokenTTL <= 0 {
		cfg.ProfileTokenTTL = 365 * 24 * time.Hour
	}
	if cfg.RedisURL == "" {
		cfg.RedisURL = "redis://localhost:6379/0"
	}
	if cfg.RabbitMQPrefetch <= 0 {
		cfg.RabbitMQPrefetch = 1
	}
}

// Validate checks that the loaded configuration is usable.
func (c *Config) Validate() error {
	switch c.StoreDriver {
	case StoreDriverMemory, StoreDriverRedis, StoreDriverSQLite:
	case StoreDriverPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required when STORE_DRIVER is postgres")
		}
	default:
		return fmt.Errorf("invalid STORE_DRIVER: %s (must be 'memory', 'redis', 'postgres', or 'sqlite')", c.StoreDriver)
	}

	if c.ProfileTokenSecret == "" {
		return fmt.Errorf("PROFILE_TOKEN_SECRET is required")
	}
	if len(c.ProfileTokenSecret) < 32 {
		return fmt.Errorf("PROFILE_TOKEN_SECRET must be at least 32 bytes")
	}

	if c.AIMaxAttempts > 10 {
		return fmt.Errorf("AI_MAX_ATTEMPTS must be between 1 and 10")
	}

	return nil
}

// ConfigDatabaseURL returns the DSN used for the cors/ratelimit config tables.
// SQLite is used when no PostgreSQL URL is configured.
func (c *Config) ConfigDatabaseURL() (driver, dsn string) {
	if c.DatabaseURL != "" {
		return StoreDriverPostgres, c.DatabaseURL
	}
	return StoreDriverSQLite, c.SQLitePath
}
