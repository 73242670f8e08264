//go:build integration

package store

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"trustbank/internal/consent/models"
	id "trustbank/pkg/domain"
	"trustbank/pkg/platform/sentinel"
	txcontext "trustbank/pkg/platform/tx"
	"trustbank/pkg/testutil/containers"
)

type RedisCacheSuite struct {
	suite.Suite
	redis   *containers.RedisContainer
	backing *InMemoryStore
	cache   *RedisCache
}

func TestRedisCacheSuite(t *testing.T) {
	suite.Run(t, new(RedisCacheSuite))
}

func (s *RedisCacheSuite) SetupSuite() {
	s.redis = containers.NewRedisContainer(s.T())
}

func (s *RedisCacheSuite) SetupTest() {
	s.Require().NoError(s.redis.FlushAll(context.Background()))
	s.backing = NewInMemoryStore()
	s.cache = NewRedisCache(s.redis.Client, s.backing, time.Minute)
}

func (s *RedisCacheSuite) TestReadThroughFillsCache() {
	ctx := context.Background()
	userID := id.UserID(uuid.New())
	s.Require().NoError(s.backing.Save(ctx, models.DefaultSettings(userID, time.Now().UTC())))

	_, err := s.cache.Find(ctx, userID)
	s.Require().NoError(err)

	exists, err := s.redis.Client.Exists(ctx, cacheKey(userID)).Result()
	s.Require().NoError(err)
	s.Equal(int64(1), exists)

	ttl, err := s.redis.Client.TTL(ctx, cacheKey(userID)).Result()
	s.Require().NoError(err)
	s.Greater(ttl, time.Duration(0))
}

func (s *RedisCacheSuite) TestSaveInvalidates() {
	ctx := context.Background()
	userID := id.UserID(uuid.New())
	settings := models.DefaultSettings(userID, time.Now().UTC())
	s.Require().NoError(s.cache.Save(ctx, settings))

	_, err := s.cache.Find(ctx, userID)
	s.Require().NoError(err)

	settings.Income = false
	s.Require().NoError(s.cache.Save(ctx, settings))

	found, err := s.cache.Find(ctx, userID)
	s.Require().NoError(err)
	s.False(found.Income)
}

func (s *RedisCacheSuite) TestSaveInvalidatesAgainAfterCommit() {
	ctx := context.Background()
	userID := id.UserID(uuid.New())
	old := models.DefaultSettings(userID, time.Now().UTC())
	s.Require().NoError(s.backing.Save(ctx, old))

	txCtx, commit := txcontext.WithCommitHooks(ctx)
	updated := *old
	updated.Income = false
	s.Require().NoError(s.cache.Save(txCtx, &updated))

	// A concurrent reader refills the entry with the pre-commit row.
	s.Require().NoError(s.cache.store(ctx, old))
	commit(ctx)

	exists, err := s.redis.Client.Exists(ctx, cacheKey(userID)).Result()
	s.Require().NoError(err)
	s.Zero(exists)

	found, err := s.cache.Find(ctx, userID)
	s.Require().NoError(err)
	s.False(found.Income)
}

func (s *RedisCacheSuite) TestMissPassesThroughSentinel() {
	_, err := s.cache.Find(context.Background(), id.UserID(uuid.New()))
	s.ErrorIs(err, sentinel.ErrNotFound)
}
