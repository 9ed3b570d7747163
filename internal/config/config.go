// Package config provides application configuration management.
// Configuration is loaded from environment variables following 12-factor
// principles; a .env file, when present, fills in unset variables.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"slices"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

// Audit drivers.
const (
	AuditDriverStream   = "stream"
	AuditDriverDatabase = "database"
)

// Config holds all application configuration.
// All fields are populated from environment variables.
type Config struct {
	// Application settings
	AppEnv  string `env:"APP_ENV" envDefault:"development"`
	AppPort int    `env:"APP_PORT" envDefault:"8081"`

	// Database (PostgreSQL)
	DatabaseURL string `env:"DATABASE_URL,required"`
	DBMaxConns  int32  `env:"DB_MAX_CONNS" envDefault:"10"`
	DBMinConns  int32  `env:"DB_MIN_CONNS" envDefault:"2"`

	// Cache (Redis)
	RedisURL string `env:"REDIS_URL,required"`

	// Logging
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`

	// Request log channel: "daily" writes rotated files, "stdout" uses the app logger.
	RequestLogChannel string        `env:"REQUEST_LOG_CHANNEL" envDefault:"daily"`
	RequestLogDir     string        `env:"REQUEST_LOG_DIR" envDefault:"storage/logs"`
	RequestLogMaxAge  time.Duration `env:"REQUEST_LOG_MAX_AGE" envDefault:"336h"`

	// Password and token hashing
	HashDriver      string `env:"HASH_DRIVER" envDefault:"argon2id"`
	BcryptCost      int    `env:"BCRYPT_COST" envDefault:"12"`
	HashConcurrency int    `env:"HASH_CONCURRENCY" envDefault:"4"`

	// Bearer authentication
	AuthMinDuration time.Duration `env:"AUTH_MIN_DURATION" envDefault:"200ms"`
	AuthCacheTTL    time.Duration `env:"AUTH_CACHE_TTL" envDefault:"5m"`

	// Activity log
	AuditDriver        string `env:"AUDIT_DRIVER" envDefault:"stream"`
	AuditWorkerEnabled bool   `env:"AUDIT_WORKER_ENABLED" envDefault:"true"`

	MetricsEnabled bool `env:"METRICS_ENABLED" envDefault:"true"`

	// Server timeouts
	ReadTimeout     time.Duration `env:"READ_TIMEOUT" envDefault:"5s"`
	WriteTimeout    time.Duration `env:"WRITE_TIMEOUT" envDefault:"10s"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"30s"`

	// CORS configuration
	// Comma-separated list of allowed origins (e.g., "https://example.com,*.example.com")
	CORSAllowedOrigins string `env:"CORS_ALLOWED_ORIGINS" envDefault:""`

	// Request body size limit in bytes (default 1MB)
	MaxRequestBodySize int64 `env:"MAX_REQUEST_BODY_SIZE" envDefault:"1048576"`
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development" || c.AppEnv == "local"
}

// IsProduction returns true if running in production mode.
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

// GetCORSAllowedOrigins parses the comma-separated origins string into a slice.
func (c *Config) GetCORSAllowedOrigins() []string {
	if c.CORSAllowedOrigins == "" {
		return nil
	}

	origins := strings.Split(c.CORSAllowedOrigins, ",")
	result := make([]string, 0, len(origins))

	for _, origin := range origins {
		trimmed := strings.TrimSpace(origin)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}

// Validate checks the enumerated settings.
func (c *Config) Validate() error {
	var errs []error
	if !slices.Contains([]string{"daily", "stdout"}, c.RequestLogChannel) {
		errs = append(errs, fmt.Errorf("REQUEST_LOG_CHANNEL: unsupported value %q", c.RequestLogChannel))
	}
	if !slices.Contains([]string{"argon2id", "bcrypt"}, c.HashDriver) {
		errs = append(errs, fmt.Errorf("HASH_DRIVER: unsupported value %q", c.HashDriver))
	}
	if !slices.Contains([]string{AuditDriverStream, AuditDriverDatabase}, c.AuditDriver) {
		errs = append(errs, fmt.Errorf("AUDIT_DRIVER: unsupported value %q", c.AuditDriver))
	}
	if c.HashConcurrency < 1 {
		errs = append(errs, errors.New("HASH_CONCURRENCY: must be at least 1"))
	}
	if c.DBMinConns > c.DBMaxConns {
		errs = append(errs, errors.New("DB_MIN_CONNS: must not exceed DB_MAX_CONNS"))
	}
	return errors.Join(errs...)
}

// Load parses environment variables and returns a Config.
// envFiles default to ".env"; missing files are skipped and variables
// already set in the environment win.
// Returns an error if required variables are missing.
func Load(envFiles ...string) (*Config, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, file := range envFiles {
		if err := godotenv.Load(file); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to load %s: %w", file, err)
		}
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}
