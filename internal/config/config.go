// Package config loads orderdesk settings from an optional YAML file and the environment.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Environment variables
const (
	EnvConfigPath     = "ORDERDESK_CONFIG"
	EnvAddr           = "ORDERDESK_ADDR"
	EnvDBPath         = "ORDERDESK_DB_PATH"
	EnvDebug          = "ORDERDESK_DEBUG"
	EnvJWTSecret      = "ORDERDESK_JWT_SECRET"
	EnvRateRPS        = "ORDERDESK_RATE_RPS"
	EnvRateBurst      = "ORDERDESK_RATE_BURST"
	EnvLogLevel       = "ORDERDESK_LOG_LEVEL"
	EnvLogFormat      = "ORDERDESK_LOG_FORMAT"
	EnvNotifyProvider = "ORDERDESK_NOTIFY_PROVIDER"
	EnvWebhookURL     = "ORDERDESK_NOTIFY_WEBHOOK_URL"
	EnvSMTPAddr       = "ORDERDESK_SMTP_ADDR"
	EnvSMTPUsername   = "ORDERDESK_SMTP_USERNAME"
	EnvSMTPPassword   = "ORDERDESK_SMTP_PASSWORD"
	EnvSMTPFrom       = "ORDERDESK_SMTP_FROM"
)

// DefaultDBPath is the database location used when none is configured
const DefaultDBPath = "~/.orderdesk/orderdesk.db"

// Notification providers
const (
	ProviderLog     = "log"
	ProviderWebhook = "webhook"
	ProviderSMTP    = "smtp"
)

var ErrInvalidConfig = errors.New("invalid configuration")

// Config is the complete service configuration
type Config struct {
	Server      ServerConfig      `yaml:"server"`
	Database    DatabaseConfig    `yaml:"database"`
	Auth        AuthConfig        `yaml:"auth"`
	RateLimit   RateLimitConfig   `yaml:"rate_limit"`
	Idempotency IdempotencyConfig `yaml:"idempotency"`
	Notify      NotifyConfig      `yaml:"notify"`
	Log         LogConfig         `yaml:"log"`
}

type ServerConfig struct {
	Addr            string        `yaml:"addr"`
	Debug           bool          `yaml:"debug"` // Expose internal error detail in 5xx bodies
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// AuthConfig holds the HMAC secret used to verify admin bearer tokens
type AuthConfig struct {
	JWTSecret string `yaml:"jwt_secret"`
}

// RateLimitConfig limits order placement per client IP
type RateLimitConfig struct {
	RPS   float64 `yaml:"rps"`
	Burst int     `yaml:"burst"`
}

type IdempotencyConfig struct {
	CacheSize int `yaml:"cache_size"`
}

// NotifyConfig selects and tunes the order confirmation sender
type NotifyConfig struct {
	Provider     string        `yaml:"provider"`
	WebhookURL   string        `yaml:"webhook_url"`
	SMTPAddr     string        `yaml:"smtp_addr"`
	SMTPUsername string        `yaml:"smtp_username"`
	SMTPPassword string        `yaml:"smtp_password"`
	From         string        `yaml:"from"`
	QueueSize    int           `yaml:"queue_size"`
	Workers      int           `yaml:"workers"`
	Timeout      time.Duration `yaml:"timeout"`
	MaxRetries   int           `yaml:"max_retries"`
}

type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text or json
}

// Default returns the built-in configuration
func Default() Config {
	return Config{
		Server: ServerConfig{
			Addr:            ":8080",
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Database:    DatabaseConfig{Path: DefaultDBPath},
		RateLimit:   RateLimitConfig{RPS: 5, Burst: 10},
		Idempotency: IdempotencyConfig{CacheSize: 1024},
		Notify: NotifyConfig{
			Provider:   ProviderLog,
			QueueSize:  256,
			Workers:    2,
			Timeout:    10 * time.Second,
			MaxRetries: 3,
		},
		Log: LogConfig{Level: "info", Format: "text"},
	}
}

// Load builds the configuration: defaults, then the YAML file at path (if interface{}),
// then environment overrides. An empty path falls back to ORDERDESK_CONFIG.
func Load(path string) (Config, error) {
	cfg := Default()

	if path == "" {
		path = os.Getenv(EnvConfigPath)
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	setString(&c.Server.Addr, EnvAddr)
	setString(&c.Database.Path, EnvDBPath)
	setString(&c.Auth.JWTSecret, EnvJWTSecret)
	setString(&c.Log.Level, EnvLogLevel)
	setString(&c.Log.Format, EnvLogFormat)
	setString(&c.Notify.Provider, EnvNotifyProvider)
	setString(&c.Notify.WebhookURL, EnvWebhookURL)
	setString(&c.Notify.SMTPAddr, EnvSMTPAddr)
	setString(&c.Notify.SMTPUsername, EnvSMTPUsername)
	setString(&c.Notify.SMTPPassword, EnvSMTPPassword)
	setString(&c.Notify.From, EnvSMTPFrom)

	if v := os.Getenv(EnvDebug); v != "" {
		debug, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%w: %s=%q", ErrInvalidConfig, EnvDebug, v)
		}
		c.Server.Debug = debug
	}
	if v := os.Getenv(EnvRateRPS); v != "" {
		rps, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("%w: %s=%q", ErrInvalidConfig, EnvRateRPS, v)
		}
		c.RateLimit.RPS = rps
	}
	if v := os.Getenv(EnvRateBurst); v != "" {
		burst, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: %s=%q", ErrInvalidConfig, EnvRateBurst, v)
		}
		c.RateLimit.Burst = burst
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

// Validate checks cross-field constraints
func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return fmt.Errorf("%w: server address is required", ErrInvalidConfig)
	}
	if c.Database.Path == "" {
		return fmt.Errorf("%w: database path is required", ErrInvalidConfig)
	}
	if c.RateLimit.RPS < 0 || c.RateLimit.Burst < 0 {
		return fmt.Errorf("%w: rate limit must not be negative", ErrInvalidConfig)
	}

	c.Notify.Provider = strings.ToLower(c.Notify.Provider)
	switch c.Notify.Provider {
	case ProviderLog:
	case ProviderWebhook:
		if c.Notify.WebhookURL == "" {
			return fmt.Errorf("%w: webhook provider requires a webhook url", ErrInvalidConfig)
		}
	case ProviderSMTP:
		if c.Notify.SMTPAddr == "" || c.Notify.From == "" {
			return fmt.Errorf("%w: smtp provider requires smtp_addr and from", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown notify provider %q", ErrInvalidConfig, c.Notify.Provider)
	}
	return nil
}

// ResolveDBPath expands a leading ~ and creates the parent directory.
// ":memory:" is returned unchanged.
func (c *Config) ResolveDBPath() (string, error) {
	path := c.Database.Path
	if path == ":memory:" {
		return path, nil
	}
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		path = filepath.Join(home, path[2:])
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return "", fmt.Errorf("failed to create database directory: %w", err)
	}
	return path, nil
}

// NewLogger builds a slog logger writing to w
func (l LogConfig) NewLogger(w io.Writer) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(l.Level)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(l.Format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
