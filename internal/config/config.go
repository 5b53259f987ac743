// Package config defines the top-level configuration for the trading
// simulator and provides validation helpers.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the root configuration structure. Fields are populated from a
// TOML file and then optionally overridden by DROLE_* environment variables.
type Config struct {
	Server      ServerConfig      `toml:"server"`
	Persistence PersistenceConfig `toml:"persistence"`
	Redis       RedisConfig       `toml:"redis"`
	Postgres    PostgresConfig    `toml:"postgres"`
	S3          S3Config          `toml:"s3"`
	Sentiment   SentimentConfig   `toml:"sentiment"`
	Wallet      WalletConfig      `toml:"wallet"`
	Simulator   SimulatorConfig   `toml:"simulator"`
	Notify      NotifyConfig      `toml:"notify"`
	LogLevel    string            `toml:"log_level"`
}

// ServerConfig holds HTTP server parameters.
type ServerConfig struct {
	Port        int      `toml:"port"`
	CORSOrigins []string `toml:"cors_origins"`
}

// PersistenceConfig selects and parameterizes the snapshot backend.
type PersistenceConfig struct {
	// Backend is one of "file", "redis", "postgres".
	Backend string `toml:"backend"`

	// Dir is the data directory for the file backend.
	Dir string `toml:"dir"`
}

// RedisConfig holds Redis connection parameters.
type RedisConfig struct {
	Addr       string `toml:"addr"`
	Password   string `toml:"password"`
	DB         int    `toml:"db"`
	PoolSize   int    `toml:"pool_size"`
	MaxRetries int    `toml:"max_retries"`
	TLSEnabled bool   `toml:"tls_enabled"`
}

// PostgresConfig holds PostgreSQL connection parameters.
type PostgresConfig struct {
	DSN          string `toml:"dsn"`
	Host         string `toml:"host"`
	Port         int    `toml:"port"`
	Database     string `toml:"database"`
	User         string `toml:"user"`
	Password     string `toml:"password"`
	SSLMode      string `toml:"ssl_mode"`
	PoolMaxConns int    `toml:"pool_max_conns"`
	PoolMinConns int    `toml:"pool_min_conns"`
}

// S3Config holds S3-compatible object storage parameters for snapshot
// archives. Archiving is enabled by setting a bucket.
type S3Config struct {
	Endpoint       string `toml:"endpoint"`
	Region         string `toml:"region"`
	Bucket         string `toml:"bucket"`
	AccessKey      string `toml:"access_key"`
	SecretKey      string `toml:"secret_key"`
	UseSSL         bool   `toml:"use_ssl"`
	ForcePathStyle bool   `toml:"force_path_style"`
}

// SentimentConfig holds the analysis provider endpoint. An empty endpoint
// means every sentiment request takes the local fallback path.
type SentimentConfig struct {
	Endpoint string `toml:"endpoint"`
	APIKey   string `toml:"api_key"`
}

// WalletConfig holds simulated-wallet parameters.
type WalletConfig struct {
	// KeystorePath is the encrypted session-key file. Empty means an
	// ephemeral key per process.
	KeystorePath string `toml:"keystore_path"`

	// KeystorePassword encrypts/decrypts the keystore file.
	KeystorePassword string `toml:"keystore_password"`

	// ConnectDelay is the simulated handshake latency, e.g. "1500ms".
	ConnectDelay duration `toml:"connect_delay"`
}

// SimulatorConfig holds price-simulation parameters.
type SimulatorConfig struct {
	// Interval between price ticks, e.g. "3s".
	Interval duration `toml:"interval"`
}

// NotifyConfig holds notification channel credentials. Channels with empty
// credentials are not wired.
type NotifyConfig struct {
	TelegramToken     string `toml:"telegram_token"`
	TelegramChatID    string `toml:"telegram_chat_id"`
	DiscordWebhookURL string `toml:"discord_webhook_url"`
}

// duration is a wrapper around time.Duration that supports TOML string
// decoding (e.g. "5m", "30s").
type duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler so the TOML decoder can
// parse duration strings like "5m" or "30s".
func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText implements encoding.TextMarshaler for round-trip encoding.
func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Defaults returns a Config populated with reasonable default values.
// These match the values in config.example.toml.
func Defaults() Config {
	return Config{
		Server: ServerConfig{
			Port:        8000,
			CORSOrigins: []string{"http://localhost:3000", "http://localhost:5173"},
		},
		Persistence: PersistenceConfig{
			Backend: "file",
			Dir:     "data",
		},
		Redis: RedisConfig{
			Addr:       "localhost:6379",
			DB:         0,
			PoolSize:   20,
			MaxRetries: 3,
			TLSEnabled: false,
		},
		Postgres: PostgresConfig{
			Host:         "localhost",
			Port:         5432,
			Database:     "drole",
			User:         "postgres",
			SSLMode:      "disable",
			PoolMaxConns: 10,
			PoolMinConns: 2,
		},
		S3: S3Config{
			Endpoint:       "http://localhost:9000",
			Region:         "us-east-1",
			UseSSL:         false,
			ForcePathStyle: true,
		},
		Wallet: WalletConfig{
			ConnectDelay: duration{1500 * time.Millisecond},
		},
		Simulator: SimulatorConfig{
			Interval: duration{3 * time.Second},
		},
		LogLevel: "info",
	}
}

// validBackends enumerates the accepted values for Persistence.Backend.
var validBackends = map[string]bool{
	"file":     true,
	"redis":    true,
	"postgres": true,
}

// validLogLevels enumerates the accepted values for Config.LogLevel.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Validate checks Config for obviously invalid or missing values and
// returns a combined error describing every problem found.
func (c *Config) Validate() error {
	var errs []string

	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("server: port must be 1-65535, got %d", c.Server.Port))
	}

	backend := strings.ToLower(c.Persistence.Backend)
	if !validBackends[backend] {
		errs = append(errs, fmt.Sprintf("persistence: unknown backend %q (valid: file, redis, postgres)", c.Persistence.Backend))
	}

	switch backend {
	case "file":
		if c.Persistence.Dir == "" {
			errs = append(errs, "persistence: dir must not be empty for the file backend")
		}
	case "redis":
		if c.Redis.Addr == "" {
			errs = append(errs, "redis: addr must not be empty")
		}
		if c.Redis.PoolSize < 1 {
			errs = append(errs, "redis: pool_size must be >= 1")
		}
	case "postgres":
		if strings.TrimSpace(c.Postgres.DSN) == "" {
			if c.Postgres.Host == "" {
				errs = append(errs, "postgres: host must not be empty (or set postgres.dsn)")
			}
			if c.Postgres.Port <= 0 || c.Postgres.Port > 65535 {
				errs = append(errs, fmt.Sprintf("postgres: port must be 1-65535, got %d", c.Postgres.Port))
			}
			if c.Postgres.Database == "" {
				errs = append(errs, "postgres: database must not be empty")
			}
		}
		if c.Postgres.PoolMaxConns < 1 {
			errs = append(errs, "postgres: pool_max_conns must be >= 1")
		}
		if c.Postgres.PoolMinConns < 0 {
			errs = append(errs, "postgres: pool_min_conns must be >= 0")
		}
		if c.Postgres.PoolMinConns > c.Postgres.PoolMaxConns {
			errs = append(errs, "postgres: pool_min_conns must not exceed pool_max_conns")
		}
	}

	// S3 archiving is opt-in via bucket; when set the endpoint config must
	// be complete.
	if c.S3.Bucket != "" {
		if c.S3.Region == "" {
			errs = append(errs, "s3: region must not be empty when bucket is set")
		}
	}

	if c.Wallet.KeystorePath != "" && c.Wallet.KeystorePassword == "" {
		errs = append(errs, "wallet: keystore_password is required when keystore_path is set")
	}

	if c.Simulator.Interval.Duration < 0 {
		errs = append(errs, "simulator: interval must not be negative")
	}

	// Telegram needs both halves of its credential pair.
	tt := c.Notify.TelegramToken != ""
	tc := c.Notify.TelegramChatID != ""
	if tt != tc {
		errs = append(errs, "notify: telegram_token and telegram_chat_id must be set together")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
