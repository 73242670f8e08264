package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFromEnvDefaults(t *testing.T) {
	for _, key := range []string{"TRUSTBANK_ADDR", "JWT_SIGNING_KEY", "DATABASE_URL", "REDIS_URL", "KAFKA_BROKERS", "LOG_LEVEL", "RATE_LIMIT_REQUESTS", "RATE_LIMIT_WINDOW", "REDIS_CONSENT_TTL"} {
		t.Setenv(key, "")
	}

	cfg := FromEnv()
	assert.Equal(t, ":8080", cfg.Addr)
	assert.NotEmpty(t, cfg.JWTSigningKey)
	assert.Empty(t, cfg.DatabaseURL)
	assert.Empty(t, cfg.Redis.URL)
	assert.Empty(t, cfg.Kafka.Brokers)
	assert.Equal(t, "trustbank.decisions", cfg.Kafka.Topic)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, 30*time.Second, cfg.RequestTimeout)
	assert.Equal(t, 120, cfg.RateLimit.Limit)
	assert.Equal(t, time.Minute, cfg.RateLimit.Window)
	assert.Equal(t, time.Minute, cfg.Redis.ConsentTTL)
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("TRUSTBANK_ADDR", ":9090")
	t.Setenv("KAFKA_BROKERS", "kafka-1:9092, kafka-2:9092,")
	t.Setenv("REDIS_POOL_SIZE", "25")
	t.Setenv("REDIS_CONSENT_TTL", "1m")
	t.Setenv("REQUEST_TIMEOUT", "not-a-duration")
	t.Setenv("RATE_LIMIT_REQUESTS", "0")

	cfg := FromEnv()
	assert.Equal(t, ":9090", cfg.Addr)
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, 25, cfg.Redis.PoolSize)
	assert.Equal(t, time.Minute, cfg.Redis.ConsentTTL)
	assert.Equal(t, 30*time.Second, cfg.RequestTimeout)
	assert.Zero(t, cfg.RateLimit.Limit)
}
