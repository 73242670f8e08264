package store

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"trustbank/internal/consent/models"
	id "trustbank/pkg/domain"
	txcontext "trustbank/pkg/platform/tx"
)

// Backing is the store a RedisCache reads through to.
type Backing interface {
	Find(ctx context.Context, userID id.UserID) (*models.Settings, error)
	Create(ctx context.Context, settings *models.Settings) (*models.Settings, error)
	Save(ctx context.Context, settings *models.Settings) error
}

// RedisCache is a read-through cache in front of a backing store. Each user's
// settings live in one hash so a read is a single HGETALL.
type RedisCache struct {
	client *redis.Client
	next   Backing
	ttl    time.Duration
}

func NewRedisCache(client *redis.Client, next Backing, ttl time.Duration) *RedisCache {
	return &RedisCache{client: client, next: next, ttl: ttl}
}

func cacheKey(userID id.UserID) string {
	return "consent:" + userID.String()
}

func (c *RedisCache) Find(ctx context.Context, userID id.UserID) (*models.Settings, error) {
	fields, err := c.client.HGetAll(ctx, cacheKey(userID)).Result()
	if err == nil && len(fields) > 0 {
		if settings, ok := decodeHash(userID, fields); ok {
			return settings, nil
		}
	}

	settings, err := c.next.Find(ctx, userID)
	if err != nil {
		return nil, err
	}
	// Cache fill failures only cost a later miss.
	_ = c.store(ctx, settings)
	return settings, nil
}

// Create never caches: a fresh record is filled on the next Find.
func (c *RedisCache) Create(ctx context.Context, settings *models.Settings) (*models.Settings, error) {
	return c.next.Create(ctx, settings)
}

// Save invalidates the cached entry now and again once the surrounding
// transaction commits, since a read in between can refill it with the
// uncommitted row's predecessor.
func (c *RedisCache) Save(ctx context.Context, settings *models.Settings) error {
	if err := c.next.Save(ctx, settings); err != nil {
		return err
	}
	key := cacheKey(settings.UserID)
	if err := c.invalidate(ctx, key); err != nil {
		return err
	}
	txcontext.AfterCommit(ctx, func(ctx context.Context) {
		// Worst case the entry lives until its TTL.
		_ = c.invalidate(ctx, key)
	})
	return nil
}

func (c *RedisCache) invalidate(ctx context.Context, key string) error {
	if err := c.client.Del(ctx, key).Err(); err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("invalidate consent cache: %w", err)
	}
	return nil
}

func (c *RedisCache) store(ctx context.Context, settings *models.Settings) error {
	key := cacheKey(settings.UserID)
	pipe := c.client.TxPipeline()
	pipe.HSet(ctx, key, map[string]any{
		"income":              settings.Income,
		"location":            settings.Location,
		"transaction_history": settings.TransactionHistory,
		"device_info":         settings.DeviceInfo,
		"behavioral_data":     settings.BehavioralData,
		"updated_at":          settings.UpdatedAt.UTC().Format(time.RFC3339Nano),
	})
	if c.ttl > 0 {
		pipe.Expire(ctx, key, c.ttl)
	}
	_, err := pipe.Exec(ctx)
	return err
}

// decodeHash rejects partial hashes; a missing field is a cache miss, not a
// withheld flag.
func decodeHash(userID id.UserID, fields map[string]string) (*models.Settings, bool) {
	settings := &models.Settings{UserID: userID}
	flags := []struct {
		field string
		dst   *bool
	}{
		{"income", &settings.Income},
		{"location", &settings.Location},
		{"transaction_history", &settings.TransactionHistory},
		{"device_info", &settings.DeviceInfo},
		{"behavioral_data", &settings.BehavioralData},
	}
	for _, f := range flags {
		raw, ok := fields[f.field]
		if !ok {
			return nil, false
		}
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return nil, false
		}
		*f.dst = v
	}
	updatedAt, err := time.Parse(time.RFC3339Nano, fields["updated_at"])
	if err != nil {
		return nil, false
	}
	settings.UpdatedAt = updatedAt
	return settings, true
}

var _ Backing = (*InMemoryStore)(nil)
