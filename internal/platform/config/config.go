// Package config builds runtime configuration from the environment so main
// stays lean. A .env file is honored in development; real deployments set the
// variables directly.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Server captures everything the service needs at startup.
type Server struct {
	Addr     string
	LogLevel string
	Timezone string

	JWTSigningKey string
	JWTIssuer     string
	JWTAudience   string

	// StoreDriver selects the event store backend: memory, sqlite, postgres.
	StoreDriver string
	PostgresURL string
	SQLitePath  string

	Redis RedisConfig
	Kafka KafkaConfig

	IngestRatePerSecond float64
	IngestBurst         int

	ReplayBaseInterval time.Duration
	ReplayIdleTTL      time.Duration
}

// RedisConfig configures the optional redis client. An empty URL disables
// redis; viewstate then falls back to the memory store.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// KafkaConfig configures the optional event firehose. No brokers means no
// publisher.
type KafkaConfig struct {
	Brokers []string
	Topic   string
}

// LoadEnv loads a .env file when one is present. Missing files are fine.
func LoadEnv() {
	_ = godotenv.Load()
}

// FromEnv builds a Server config from environment variables.
func FromEnv() Server {
	return Server{
		Addr:     envOr("PITLOG_ADDR", ":8080"),
		LogLevel: envOr("PITLOG_LOG_LEVEL", "info"),
		Timezone: envOr("PITLOG_TIMEZONE", "America/Sao_Paulo"),

		// Defaults are for development only; deployments override them.
		JWTSigningKey: envOr("PITLOG_JWT_SIGNING_KEY", "dev-secret-key-change-in-production"),
		JWTIssuer:     envOr("PITLOG_JWT_ISSUER", "team-app"),
		JWTAudience:   envOr("PITLOG_JWT_AUDIENCE", "pitlog"),

		StoreDriver: envOr("PITLOG_STORE", "memory"),
		PostgresURL: os.Getenv("PITLOG_DATABASE_URL"),
		SQLitePath:  envOr("PITLOG_SQLITE_PATH", "pitlog.db"),

		Redis: RedisConfig{
			URL:          os.Getenv("PITLOG_REDIS_URL"),
			PoolSize:     envInt("PITLOG_REDIS_POOL_SIZE", 10),
			MinIdleConns: envInt("PITLOG_REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  envDuration("PITLOG_REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  envDuration("PITLOG_REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: envDuration("PITLOG_REDIS_WRITE_TIMEOUT", 3*time.Second),
		},

		Kafka: KafkaConfig{
			Brokers: splitList(os.Getenv("PITLOG_KAFKA_BROKERS")),
			Topic:   envOr("PITLOG_KAFKA_TOPIC", "pitlog.events"),
		},

		IngestRatePerSecond: envFloat("PITLOG_INGEST_RATE", 5),
		IngestBurst:         envInt("PITLOG_INGEST_BURST", 20),

		ReplayBaseInterval: envDuration("PITLOG_REPLAY_BASE_INTERVAL", 3*time.Second),
		ReplayIdleTTL:      envDuration("PITLOG_REPLAY_IDLE_TTL", 30*time.Minute),
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func splitList(v string) []string {
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
