// Package config loads process configuration from the environment, with
// optional defaults from a YAML, TOML or JSON file named by CONFIG_FILE.
package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"bajeti/internal/log"
)

type Config struct {
	// HTTP servers
	Port         string
	WebPort      string
	APIBaseURL   string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration

	// Storage
	DataBackend         string
	SQLiteDBPath        string
	DatabaseURL         string
	PostgresAutoMigrate bool

	// Auth
	JWTSecret      string
	AccessTokenTTL time.Duration
	BcryptCost     int

	// AMQP
	AMQPURL        string
	AMQPExchange   string
	AMQPQueue      string
	WorkerPrefetch int

	// Google Sheets ledger export
	GoogleSpreadsheetID      string
	GoogleSheetName          string
	GoogleServiceAccountJSON string
	GoogleServiceAccountFile string

	// LedgerDryRun makes the worker export to an in-memory ledger.
	LedgerDryRun bool

	// Middleware and caching
	RateLimitPerMinute     int
	AuthRateLimitPerMinute int
	BlockSuspicious        bool
	SecureCookies          bool
	CacheSize              int
	CacheTTL               time.Duration

	// RedisAddr enables the shared overview cache when set.
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// Logging
	LogLevel  string
	LogFormat string

	// File named by CONFIG_FILE, if any.
	File string
}

// Load reads the configuration. Environment variables win over values from
// CONFIG_FILE, which win over built-in defaults.
func Load() (*Config, error) {
	src := source{}
	if path := strings.TrimSpace(os.Getenv("CONFIG_FILE")); path != "" {
		values, err := readFile(path)
		if err != nil {
			return nil, err
		}
		src.file = values
	}
	cfg := src.load()
	cfg.File = os.Getenv("CONFIG_FILE")
	return cfg, nil
}

func (s source) load() *Config {
	return &Config{
		Port:         s.getEnv("PORT", "8081"),
		WebPort:      s.getEnv("WEB_PORT", "8080"),
		APIBaseURL:   s.getEnv("API_BASE_URL", "http://localhost:8081"),
		ReadTimeout:  s.getEnvDuration("READ_TIMEOUT", 15*time.Second),
		WriteTimeout: s.getEnvDuration("WRITE_TIMEOUT", 15*time.Second),
		IdleTimeout:  s.getEnvDuration("IDLE_TIMEOUT", 60*time.Second),

		DataBackend:         s.getEnv("DATA_BACKEND", "sqlite"),
		SQLiteDBPath:        s.getEnv("SQLITE_DB_PATH", "./data/bajeti.db"),
		DatabaseURL:         s.getEnv("DATABASE_URL", ""),
		PostgresAutoMigrate: s.getEnvBool("POSTGRES_AUTO_MIGRATE", true),

		JWTSecret:      s.getEnv("JWT_SECRET", ""),
		AccessTokenTTL: s.getEnvDuration("ACCESS_TOKEN_TTL", 30*time.Minute),
		BcryptCost:     s.getEnvInt("BCRYPT_COST", 10),

		AMQPURL:        s.getEnv("AMQP_URL", ""),
		AMQPExchange:   s.getEnv("AMQP_EXCHANGE", "bajeti"),
		AMQPQueue:      s.getEnv("AMQP_QUEUE", "ledger_events"),
		WorkerPrefetch: s.getEnvInt("WORKER_PREFETCH", 10),

		GoogleSpreadsheetID:      s.getEnv("GOOGLE_SPREADSHEET_ID", ""),
		GoogleSheetName:          s.getEnv("GOOGLE_SHEET_NAME", "Ledger"),
		GoogleServiceAccountJSON: s.getEnv("GOOGLE_SERVICE_ACCOUNT_JSON", ""),
		GoogleServiceAccountFile: s.getEnv("GOOGLE_SERVICE_ACCOUNT_FILE", s.getEnv("GOOGLE_APPLICATION_CREDENTIALS", "")),
		LedgerDryRun:             s.getEnvBool("LEDGER_DRY_RUN", false),

		RateLimitPerMinute:     s.getEnvInt("RATE_LIMIT_PER_MINUTE", 60),
		AuthRateLimitPerMinute: s.getEnvInt("RATE_LIMIT_AUTH_PER_MINUTE", 10),
		BlockSuspicious:        s.getEnvBool("BLOCK_SUSPICIOUS", false),
		SecureCookies:          s.getEnvBool("SECURE_COOKIES", false),
		CacheSize:              s.getEnvInt("CACHE_SIZE", 256),
		CacheTTL:               s.getEnvDuration("CACHE_TTL", 5*time.Minute),

		RedisAddr:     s.getEnv("REDIS_ADDR", ""),
		RedisPassword: s.getEnv("REDIS_PASSWORD", ""),
		RedisDB:       s.getEnvInt("REDIS_DB", 0),

		LogLevel:  s.getEnv("LOG_LEVEL", "info"),
		LogFormat: s.getEnv("LOG_FORMAT", "text"),
	}
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	for name, port := range map[string]string{"port": c.Port, "web port": c.WebPort} {
		if p, err := strconv.Atoi(port); err != nil {
			errors = append(errors, fmt.Sprintf("invalid %s '%s': must be a number", name, port))
		} else if p < 1 || p > 65535 {
			errors = append(errors, fmt.Sprintf("invalid %s %d: must be between 1 and 65535", name, p))
		}
	}

	switch c.DataBackend {
	case "sqlite":
		if c.SQLiteDBPath == "" {
			errors = append(errors, "SQLite database path cannot be empty when using sqlite backend")
		}
	case "postgres":
		if c.DatabaseURL == "" {
			errors = append(errors, "DATABASE_URL is required when using postgres backend")
		}
	case "memory":
	default:
		errors = append(errors, fmt.Sprintf("invalid data backend '%s': must be one of [sqlite postgres memory]", c.DataBackend))
	}

	if c.AccessTokenTTL < time.Minute {
		errors = append(errors, fmt.Sprintf("invalid access token TTL %v: must be at least 1 minute", c.AccessTokenTTL))
	}
	if c.BcryptCost < 4 || c.BcryptCost > 31 {
		errors = append(errors, fmt.Sprintf("invalid bcrypt cost %d: must be between 4 and 31", c.BcryptCost))
	}

	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errors = append(errors, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}
	if c.WorkerPrefetch < 1 || c.WorkerPrefetch > 1000 {
		errors = append(errors, fmt.Sprintf("invalid worker prefetch %d: must be between 1 and 1000", c.WorkerPrefetch))
	}

	if c.GoogleServiceAccountFile != "" {
		if _, err := os.Stat(c.GoogleServiceAccountFile); os.IsNotExist(err) {
			errors = append(errors, fmt.Sprintf("Google service account file does not exist: %s", c.GoogleServiceAccountFile))
		}
	}

	if c.AuthRateLimitPerMinute < 1 {
		errors = append(errors, fmt.Sprintf("invalid auth rate limit %d: must be at least 1 request per minute", c.AuthRateLimitPerMinute))
	}
	if c.RateLimitPerMinute < 1 {
		errors = append(errors, fmt.Sprintf("invalid rate limit %d: must be at least 1 request per minute", c.RateLimitPerMinute))
	}
	if c.CacheSize < 1 {
		errors = append(errors, fmt.Sprintf("invalid cache size %d: must be at least 1", c.CacheSize))
	}
	if c.RedisDB < 0 {
		errors = append(errors, fmt.Sprintf("invalid redis db %d: must not be negative", c.RedisDB))
	}
	if c.CacheTTL < time.Second {
		errors = append(errors, fmt.Sprintf("invalid cache TTL %v: must be at least 1 second", c.CacheTTL))
	}

	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		errors = append(errors, err.Error())
	}
	if c.LogFormat != "text" && c.LogFormat != "json" {
		errors = append(errors, fmt.Sprintf("invalid log format '%s': must be 'text' or 'json'", c.LogFormat))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}
	return nil
}

// ValidateServer adds the checks only the API server needs.
func (c *Config) ValidateServer() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if len(c.JWTSecret) < 32 {
		return fmt.Errorf("configuration validation failed:\n- JWT_SECRET must be at least 32 characters")
	}
	return nil
}

// ValidateWorker adds the checks only the ledger worker needs.
func (c *Config) ValidateWorker() error {
	if err := c.Validate(); err != nil {
		return err
	}
	var errors []string
	if c.AMQPURL == "" {
		errors = append(errors, "AMQP_URL is required for the worker")
	}
	if !c.LedgerDryRun {
		if c.GoogleSpreadsheetID == "" {
			errors = append(errors, "GOOGLE_SPREADSHEET_ID is required for the worker")
		}
		if c.GoogleServiceAccountJSON == "" && c.GoogleServiceAccountFile == "" {
			errors = append(errors, "either GOOGLE_SERVICE_ACCOUNT_JSON or GOOGLE_SERVICE_ACCOUNT_FILE must be provided")
		}
	}
	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}
	return nil
}

// LoggerConfig maps the logging settings onto log.Config.
func (c *Config) LoggerConfig(component string) log.Config {
	lc := log.DefaultConfig()
	if level, err := log.ParseLevel(c.LogLevel); err == nil {
		lc.Level = level
	}
	lc.Format = c.LogFormat
	lc.Component = component
	return lc
}

// source resolves keys against the environment, then the config file.
type source struct {
	file map[string]string
}

func (s source) lookup(key string) (string, bool) {
	if value := os.Getenv(key); value != "" {
		return value, true
	}
	if value, ok := s.file[key]; ok && value != "" {
		return value, true
	}
	return "", false
}

func (s source) getEnv(key, defaultValue string) string {
	if value, ok := s.lookup(key); ok {
		return value
	}
	return defaultValue
}

func (s source) getEnvInt(key string, defaultValue int) int {
	if value, ok := s.lookup(key); ok {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func (s source) getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value, ok := s.lookup(key); ok {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func (s source) getEnvBool(key string, defaultValue bool) bool {
	if value, ok := s.lookup(key); ok {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}
