package config

import (
	"os"
	"strconv"
	"time"

	strs "trustbank/pkg/platform/strings"
)

// Server captures HTTP server level configuration.
type Server struct {
	Addr           string
	JWTSigningKey  string
	JWTIssuer      string
	RequestTimeout time.Duration
	DatabaseURL    string
	Redis          RedisConfig
	Kafka          KafkaConfig
	RateLimit      RateLimitConfig
	Log            LogConfig
}

// RedisConfig configures the consent cache. An empty URL disables Redis.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	ConsentTTL   time.Duration
}

// KafkaConfig configures the decision narration topic. No brokers disables Kafka.
type KafkaConfig struct {
	Brokers  []string
	Topic    string
	ClientID string
}

// RateLimitConfig sets the per-user request quota on authenticated routes.
// A limit of zero disables rate limiting.
type RateLimitConfig struct {
	Limit  int
	Window time.Duration
}

// LogConfig selects the slog handler.
type LogConfig struct {
	Level  string
	Format string
}

// FromEnv builds a Server config from environment variables so main stays lean.
func FromEnv() Server {
	jwtSigningKey := os.Getenv("JWT_SIGNING_KEY")
	if jwtSigningKey == "" {
		// Use a default for development - should be overridden in production
		jwtSigningKey = "dev-secret-key-change-in-production"
	}

	return Server{
		Addr:           getEnv("TRUSTBANK_ADDR", ":8080"),
		JWTSigningKey:  jwtSigningKey,
		JWTIssuer:      getEnv("JWT_ISSUER", "trustbank"),
		RequestTimeout: getDuration("REQUEST_TIMEOUT", 30*time.Second),
		DatabaseURL:    os.Getenv("DATABASE_URL"),
		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     getInt("REDIS_POOL_SIZE", 10),
			MinIdleConns: getInt("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  getDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  getDuration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: getDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
			ConsentTTL:   getDuration("REDIS_CONSENT_TTL", time.Minute),
		},
		Kafka: KafkaConfig{
			Brokers:  strs.SplitCSV(os.Getenv("KAFKA_BROKERS")),
			Topic:    getEnv("NARRATION_TOPIC", "trustbank.decisions"),
			ClientID: getEnv("KAFKA_CLIENT_ID", "trustbank"),
		},
		RateLimit: RateLimitConfig{
			Limit:  getInt("RATE_LIMIT_REQUESTS", 120),
			Window: getDuration("RATE_LIMIT_WINDOW", time.Minute),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
