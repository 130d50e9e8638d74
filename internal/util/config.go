package util

import (
	"log"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/joho/godotenv"
)

//nolint:gochecknoglobals // load .env exactly once for every config constructor
var once sync.Once

func init() {
	once.Do(func() {
		if err := godotenv.Load(".env"); err != nil {
			log.Printf("Warning: could not load .env file: %v", err)
		}
	})
}

const (
	defaultServerAddr      = "localhost:8080"
	defaultWriteTimeout    = 10 * time.Second
	defaultReadTimeout     = 10 * time.Second
	defaultIdleTimeout     = 30 * time.Second
	defaultGracefulTimeout = 5 * time.Second

	defaultAccessTTL  = 1 * time.Hour
	defaultRefreshTTL = 7 * 24 * time.Hour

	defaultRetention     = 30 * 24 * time.Hour
	defaultPurgeInterval = 1 * time.Hour

	defaultRateLimit = 10
	defaultRateBurst = 20

	JWTLeeway = 5 * time.Second
)

type ServerConfig struct {
	ServerAddr      string
	WriteTimeout    time.Duration
	ReadTimeout     time.Duration
	IdleTimeout     time.Duration
	GracefulTimeout time.Duration
	Production      bool
}

func NewServerConfig() *ServerConfig {
	addr := os.Getenv("SERVER_ADDRESS")
	if addr == "" {
		addr = defaultServerAddr
	}

	return &ServerConfig{
		ServerAddr:      addr,
		WriteTimeout:    parseDurationOrDefault("WRITE_TIMEOUT", defaultWriteTimeout),
		ReadTimeout:     parseDurationOrDefault("READ_TIMEOUT", defaultReadTimeout),
		IdleTimeout:     parseDurationOrDefault("IDLE_TIMEOUT", defaultIdleTimeout),
		GracefulTimeout: parseDurationOrDefault("GRACEFUL_TIMEOUT", defaultGracefulTimeout),
		Production:      os.Getenv("APP_ENV") == "production",
	}
}

type TokenConfig struct {
	AccessSecretKey []byte
	// RefreshSecretKey signs refresh secrets; it falls back to the access key
	// when JWT_REFRESH_SECRET is not set.
	RefreshSecretKey []byte
	AccessTTL        time.Duration
	RefreshTTL       time.Duration
}

func NewTokenConfig() *TokenConfig {
	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		log.Fatal("JWT_SECRET is not set")
	}
	refreshSecret := os.Getenv("JWT_REFRESH_SECRET")
	if refreshSecret == "" {
		refreshSecret = secret
	}
	return &TokenConfig{
		AccessSecretKey:  []byte(secret),
		RefreshSecretKey: []byte(refreshSecret),
		AccessTTL:        parseDurationOrDefault("ACCESS_TOKEN_TTL", defaultAccessTTL),
		RefreshTTL:       parseDurationOrDefault("REFRESH_TOKEN_TTL", defaultRefreshTTL),
	}
}

// RetentionConfig controls the janitor that purges session records past their
// expiry plus a retention window kept for replay forensics.
type RetentionConfig struct {
	Retention     time.Duration
	PurgeInterval time.Duration
}

func NewRetentionConfig() *RetentionConfig {
	return &RetentionConfig{
		Retention:     parseDurationOrDefault("SESSION_RETENTION", defaultRetention),
		PurgeInterval: parseDurationOrDefault("SESSION_PURGE_INTERVAL", defaultPurgeInterval),
	}
}

type RateLimiterConfig struct {
	Rate  float64
	Burst int
}

func NewRateLimiterConfig() *RateLimiterConfig {
	return &RateLimiterConfig{
		Rate:  float64(parseIntOrDefault("RATE_LIMIT_RATE", defaultRateLimit)),
		Burst: parseIntOrDefault("RATE_LIMIT_BURST", defaultRateBurst),
	}
}

func GetWebhookURL() string {
	return os.Getenv("SECURITY_WEBHOOK_URL")
}

func parseDurationOrDefault(varName string, def time.Duration) time.Duration {
	if v := os.Getenv(varName); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
		log.Printf("Invalid duration in %s: %s, using default %s", varName, v, def)
	}
	return def
}

func parseIntOrDefault(varName string, def int) int {
	if v := os.Getenv(varName); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
		log.Printf("Invalid integer in %s: %s, using default %d", varName, v, def)
	}
	return def
}
