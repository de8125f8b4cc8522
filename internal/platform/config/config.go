// Package config builds runtime configuration from environment variables so
// main stays lean. Every value has a development default; production
// deployments override via the environment.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	pstrings "acredita/pkg/platform/strings"
)

// Config is the full runtime configuration.
type Config struct {
	Server    Server
	Database  Database
	Redis     Redis
	Kafka     Kafka
	JWT       JWT
	Bootstrap Bootstrap
}

// Server captures HTTP server level configuration.
type Server struct {
	Addr string
}

// Database configures the PostgreSQL connection. An empty URL selects the
// in-memory stores.
type Database struct {
	URL          string
	MaxOpenConns int
	MaxIdleConns int
}

// Redis configures the cross-instance device guard. An empty URL degrades
// the guard to in-process only.
type Redis struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// Kafka configures the audit log publisher. No brokers disables publishing;
// the outbox still fills so a later deployment can drain it.
type Kafka struct {
	Brokers []string
	Topic   string
}

// JWT configures access token signing.
type JWT struct {
	SigningKey string
	Issuer     string
	TTL        time.Duration
}

// Bootstrap seeds the first super admin on an empty user table.
type Bootstrap struct {
	Email    string
	Password string
}

// FromEnv builds the Config from environment variables.
func FromEnv() Config {
	return Config{
		Server: Server{
			Addr: envOr("ACREDITA_ADDR", ":8080"),
		},
		Database: Database{
			URL:          os.Getenv("DATABASE_URL"),
			MaxOpenConns: envIntOr("DATABASE_MAX_OPEN_CONNS", 10),
			MaxIdleConns: envIntOr("DATABASE_MAX_IDLE_CONNS", 5),
		},
		Redis: Redis{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     envIntOr("REDIS_POOL_SIZE", 10),
			MinIdleConns: envIntOr("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  envDurationOr("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  envDurationOr("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: envDurationOr("REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Kafka: Kafka{
			Brokers: splitNonEmpty(os.Getenv("KAFKA_BROKERS")),
			Topic:   envOr("KAFKA_ACCESS_LOG_TOPIC", "acredita.access-log"),
		},
		JWT: JWT{
			// Default is for development only and must be overridden in
			// production.
			SigningKey: envOr("JWT_SIGNING_KEY", "dev-secret-key-change-in-production"),
			Issuer:     envOr("JWT_ISSUER", "acredita"),
			TTL:        envDurationOr("JWT_TTL", 12*time.Hour),
		},
		Bootstrap: Bootstrap{
			Email:    os.Getenv("BOOTSTRAP_ADMIN_EMAIL"),
			Password: os.Getenv("BOOTSTRAP_ADMIN_PASSWORD"),
		},
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envDurationOr(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func splitNonEmpty(s string) []string {
	return pstrings.DedupeAndTrim(strings.Split(s, ","))
}
