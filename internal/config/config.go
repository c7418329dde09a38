package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config is the full runtime configuration, built once in main and passed
// down explicitly. Request handling code never reads the environment.
type Config struct {
	ServiceName string
	Port        string
	Env         string // "development" or "production"
	BaseURL     string

	DatabaseURL string
	DBMaxConns  int
	DBMinConns  int

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	KafkaBrokers string
	KafkaTopic   string

	WebhookSecret      string
	VerifySignatures   bool
	SignatureTolerance time.Duration

	SessionSecret string
	SessionTTL    time.Duration
	MagicLinkTTL  time.Duration

	TokenEncryptionKey string

	GoogleClientID     string
	GoogleClientSecret string
	AdobeClientID      string
	AdobeClientSecret  string

	BodyLimitBytes     int64
	RequestTimeout     time.Duration
	RateLimitPerMinute int
}

// FromEnv builds the Config from environment variables, applying defaults
// suitable for local development. Only hard requirements error out.
func FromEnv() (Config, error) {
	port, err := Port("PORT", "8080")
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		ServiceName: String("SERVICE_NAME", "frameio-relay"),
		Port:        port,
		Env:         String("APP_ENV", "development"),
		BaseURL:     String("BASE_URL", "http://localhost:"+port),

		DatabaseURL: String("DATABASE_URL", ""),
		DBMaxConns:  Int("DB_MAX_CONNS", 4),
		DBMinConns:  Int("DB_MIN_CONNS", 0),

		// Empty disables Redis: rate limiting falls back to the in-memory
		// limiter and magic-link sign-in is unavailable.
		RedisAddr:     String("REDIS_ADDR", "localhost:6379"),
		RedisPassword: String("REDIS_PASSWORD", ""),
		RedisDB:       Int("REDIS_DB", 0),

		KafkaBrokers: String("KAFKA_BROKERS", "localhost:9092"),
		KafkaTopic:   String("KAFKA_TOPIC", "frameio-webhooks"),

		WebhookSecret:      String("FRAMEIO_WEBHOOK_SECRET", ""),
		VerifySignatures:   Bool("VERIFY_SIGNATURES", true),
		SignatureTolerance: time.Duration(Int("SIGNATURE_TIME_TOLERANCE", 300)) * time.Second,

		SessionSecret: String("SESSION_SECRET_KEY", ""),
		SessionTTL:    time.Duration(Int("SESSION_TTL_HOURS", 120)) * time.Hour,
		MagicLinkTTL:  time.Duration(Int("MAGIC_LINK_TTL_MINUTES", 15)) * time.Minute,

		TokenEncryptionKey: String("TOKEN_ENCRYPTION_KEY", ""),

		GoogleClientID:     String("GOOGLE_CLIENT_ID", ""),
		GoogleClientSecret: String("GOOGLE_CLIENT_SECRET", ""),
		AdobeClientID:      String("ADOBE_CLIENT_ID", ""),
		AdobeClientSecret:  String("ADOBE_CLIENT_SECRET", ""),

		BodyLimitBytes:     int64(Int("REQUEST_BODY_LIMIT_BYTES", 1<<20)),
		RequestTimeout:     time.Duration(Int("REQUEST_TIMEOUT_SECONDS", 10)) * time.Second,
		RateLimitPerMinute: Int("RATE_LIMIT_PER_MINUTE", 120),
	}

	if cfg.SessionSecret == "" {
		return Config{}, fmt.Errorf("SESSION_SECRET_KEY is required")
	}
	if cfg.VerifySignatures && cfg.WebhookSecret == "" {
		return Config{}, fmt.Errorf("FRAMEIO_WEBHOOK_SECRET is required when VERIFY_SIGNATURES is enabled")
	}
	return cfg, nil
}

// IsProduction reports whether the service runs with production hardening
// (secure cookies, strict signature checks).
func (c Config) IsProduction() bool {
	return c.Env == "production"
}

func String(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func RequiredString(key string) (string, error) {
	v := os.Getenv(key)
	if v == "" {
		return "", fmt.Errorf("%s is required", key)
	}
	return v, nil
}

func Int(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func Bool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v != "false" && v != "0"
}

func Port(key, fallback string) (string, error) {
	v := String(key, fallback)
	p, err := strconv.Atoi(v)
	if err != nil || p < 1 || p > 65535 {
		return "", fmt.Errorf("%s must be a valid TCP port (got %q)", key, v)
	}
	return v, nil
}
