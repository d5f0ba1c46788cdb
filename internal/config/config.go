// Package config reads runtime settings from the environment.
package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Port string

	DBURL     string
	NATSURL   string
	NATSCred  string
	NATSUser  string
	NATSPass  string
	RedisAddr string

	FilesBucket string

	UploadTokenSecret string
	UploadTokenTTL    time.Duration

	AllowedOrigins    []string
	HistoryLimit      int
	MaxMessageSize    int64
	MaxUploadBytes    int64
	StoreTimeout      time.Duration
	ProfileCacheTTL   time.Duration
	DefaultProfileURL string

	// Messages per MessageWindow allowed for a single connection.
	MessageRate   int
	MessageWindow time.Duration

	// Uploads per UploadWindow allowed for a single client IP.
	UploadRate   int
	UploadWindow time.Duration
	// TrustProxy makes the upload limiter key clients by X-Forwarded-For.
	TrustProxy bool

	LogLevel slog.Level
}

// Default returns the configuration used when no environment overrides exist.
func Default() Config {
	return Config{
		Port:              "8080",
		FilesBucket:       "chat-uploads",
		UploadTokenSecret: "dev-upload-secret-change-me",
		UploadTokenTTL:    24 * time.Hour,
		AllowedOrigins:    []string{"localhost:*", "127.0.0.1:*"},
		HistoryLimit:      50,
		MaxMessageSize:    8 << 10,
		MaxUploadBytes:    10 << 20,
		StoreTimeout:      5 * time.Second,
		ProfileCacheTTL:   10 * time.Minute,
		DefaultProfileURL: "/static/default-profile.png",
		MessageRate:       30,
		MessageWindow:     time.Minute,
		UploadRate:        10,
		UploadWindow:      time.Minute,
		LogLevel:          slog.LevelInfo,
	}
}

// Load builds a Config from environment variables, falling back to Default
// for anything unset or malformed.
func Load() Config {
	cfg := Default()

	if v := os.Getenv("PORT"); v != "" {
		cfg.Port = v
	}
	cfg.DBURL = os.Getenv("DB_URL")
	cfg.NATSURL = os.Getenv("NATS_URL")
	cfg.NATSCred = os.Getenv("NATS_CRED")
	cfg.NATSUser = os.Getenv("NATS_USER")
	cfg.NATSPass = os.Getenv("NATS_PASSWORD")
	cfg.RedisAddr = os.Getenv("REDIS_ADDR")

	if v := os.Getenv("FILES_BUCKET"); v != "" {
		cfg.FilesBucket = v
	}
	if v := os.Getenv("UPLOAD_TOKEN_SECRET"); v != "" {
		cfg.UploadTokenSecret = v
	}
	if v := os.Getenv("ALLOWED_ORIGINS"); v != "" {
		cfg.AllowedOrigins = parseList(v)
	}
	if v := os.Getenv("DEFAULT_PROFILE_URL"); v != "" {
		cfg.DefaultProfileURL = v
	}

	cfg.UploadTokenTTL = parseDuration("UPLOAD_TOKEN_TTL", cfg.UploadTokenTTL)
	cfg.StoreTimeout = parseDuration("STORE_TIMEOUT", cfg.StoreTimeout)
	cfg.ProfileCacheTTL = parseDuration("PROFILE_CACHE_TTL", cfg.ProfileCacheTTL)
	cfg.MessageWindow = parseDuration("MESSAGE_WINDOW", cfg.MessageWindow)
	cfg.UploadWindow = parseDuration("UPLOAD_WINDOW", cfg.UploadWindow)

	cfg.HistoryLimit = parseInt("HISTORY_LIMIT", cfg.HistoryLimit)
	cfg.MessageRate = parseInt("MESSAGE_RATE", cfg.MessageRate)
	cfg.UploadRate = parseInt("UPLOAD_RATE", cfg.UploadRate)
	cfg.MaxMessageSize = int64(parseInt("MAX_MESSAGE_SIZE", int(cfg.MaxMessageSize)))
	cfg.MaxUploadBytes = int64(parseInt("MAX_UPLOAD_BYTES", int(cfg.MaxUploadBytes)))

	if v := os.Getenv("TRUST_PROXY"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			slog.Warn("ignoring invalid boolean setting", "key", "TRUST_PROXY", "value", v)
		}
		cfg.TrustProxy = b
	}

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		var lvl slog.Level
		if err := lvl.UnmarshalText([]byte(v)); err == nil {
			cfg.LogLevel = lvl
		}
	}

	return cfg
}

func parseList(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func parseInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		slog.Warn("ignoring invalid integer setting", "key", key, "value", v)
		return def
	}
	return n
}

func parseDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		slog.Warn("ignoring invalid duration setting", "key", key, "value", v)
		return def
	}
	return d
}
