package config

import (
	"errors"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies DROLE_* environment variable overrides, and
// returns the final Config. A missing file is not an error; defaults plus
// environment overrides apply. The returned Config has NOT been validated;
// the caller should invoke Config.Validate() after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known DROLE_* environment variables and
// overwrites the corresponding Config fields when a variable is set. This
// lets operators inject secrets at deploy time without touching the TOML
// file.
func applyEnvOverrides(cfg *Config) {
	// ── Server ──
	setInt(&cfg.Server.Port, "DROLE_SERVER_PORT")
	setStringSlice(&cfg.Server.CORSOrigins, "DROLE_SERVER_CORS_ORIGINS")

	// ── Persistence ──
	setStr(&cfg.Persistence.Backend, "DROLE_PERSISTENCE_BACKEND")
	setStr(&cfg.Persistence.Dir, "DROLE_PERSISTENCE_DIR")

	// ── Redis ──
	setStr(&cfg.Redis.Addr, "DROLE_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "DROLE_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "DROLE_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "DROLE_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "DROLE_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "DROLE_REDIS_TLS_ENABLED")

	// ── Postgres ──
	setStr(&cfg.Postgres.DSN, "DROLE_POSTGRES_DSN")
	setStr(&cfg.Postgres.Host, "DROLE_POSTGRES_HOST")
	setInt(&cfg.Postgres.Port, "DROLE_POSTGRES_PORT")
	setStr(&cfg.Postgres.Database, "DROLE_POSTGRES_DATABASE")
	setStr(&cfg.Postgres.User, "DROLE_POSTGRES_USER")
	setStr(&cfg.Postgres.Password, "DROLE_POSTGRES_PASSWORD")
	setStr(&cfg.Postgres.SSLMode, "DROLE_POSTGRES_SSL_MODE")
	setInt(&cfg.Postgres.PoolMaxConns, "DROLE_POSTGRES_POOL_MAX_CONNS")
	setInt(&cfg.Postgres.PoolMinConns, "DROLE_POSTGRES_POOL_MIN_CONNS")

	// ── S3 ──
	setStr(&cfg.S3.Endpoint, "DROLE_S3_ENDPOINT")
	setStr(&cfg.S3.Region, "DROLE_S3_REGION")
	setStr(&cfg.S3.Bucket, "DROLE_S3_BUCKET")
	setStr(&cfg.S3.AccessKey, "DROLE_S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "DROLE_S3_SECRET_KEY")
	setBool(&cfg.S3.UseSSL, "DROLE_S3_USE_SSL")
	setBool(&cfg.S3.ForcePathStyle, "DROLE_S3_FORCE_PATH_STYLE")

	// ── Sentiment ──
	setStr(&cfg.Sentiment.Endpoint, "DROLE_SENTIMENT_ENDPOINT")
	setStr(&cfg.Sentiment.APIKey, "DROLE_SENTIMENT_API_KEY")

	// ── Wallet ──
	setStr(&cfg.Wallet.KeystorePath, "DROLE_WALLET_KEYSTORE_PATH")
	setStr(&cfg.Wallet.KeystorePassword, "DROLE_WALLET_KEYSTORE_PASSWORD")
	setDuration(&cfg.Wallet.ConnectDelay, "DROLE_WALLET_CONNECT_DELAY")

	// ── Simulator ──
	setDuration(&cfg.Simulator.Interval, "DROLE_SIMULATOR_INTERVAL")

	// ── Notify ──
	setStr(&cfg.Notify.TelegramToken, "DROLE_NOTIFY_TELEGRAM_TOKEN")
	setStr(&cfg.Notify.TelegramChatID, "DROLE_NOTIFY_TELEGRAM_CHAT_ID")
	setStr(&cfg.Notify.DiscordWebhookURL, "DROLE_NOTIFY_DISCORD_WEBHOOK_URL")

	// ── Top-level ──
	setStr(&cfg.LogLevel, "DROLE_LOG_LEVEL")
}

// ---------------------------------------------------------------------------
// Typed env-var helpers. Each only mutates the target when the environment
// variable is present and non-empty.
// ---------------------------------------------------------------------------

func setStr(dst *string, key string) {
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

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}

func setStringSlice(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		cleaned := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				cleaned = append(cleaned, p)
			}
		}
		if len(cleaned) > 0 {
			*dst = cleaned
		}
	}
}
