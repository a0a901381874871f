package storage

import (
	"context"
	"time"

	"friendchat/backend/internal/models"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

const (
	presenceKeyPrefix = "presence:"
	onlineSetKey      = "online_users"
)

// PresenceCache mirrors durable presence into Redis for other processes
// (health checks, future gateways). It is never the source of truth.
type PresenceCache struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewPresenceCache(rdb *redis.Client, ttl time.Duration) *PresenceCache {
	return &PresenceCache{rdb: rdb, ttl: ttl}
}

// NewRedisClient parses a redis:// URL and pings the server.
func NewRedisClient(ctx context.Context, redisURL string) (*redis.Client, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, errors.Wrap(err, "failed to parse redis url")
	}
	rdb := redis.NewClient(opt)
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, errors.Wrap(err, "failed to connect to redis")
	}
	return rdb, nil
}

// Mirror records status for userID. Offline removes the user entirely.
func (c *PresenceCache) Mirror(ctx context.Context, userID string, status models.PresenceStatus) error {
	key := presenceKeyPrefix + userID
	pipe := c.rdb.Pipeline()
	if status == models.StatusOffline {
		pipe.Del(ctx, key)
		pipe.SRem(ctx, onlineSetKey, userID)
	} else {
		pipe.Set(ctx, key, string(status), c.ttl)
		pipe.SAdd(ctx, onlineSetKey, userID)
	}
	_, err := pipe.Exec(ctx)
	return errors.Wrap(err, "failed to mirror presence")
}

// Status returns the mirrored status; a missing key means offline.
func (c *PresenceCache) Status(ctx context.Context, userID string) (models.PresenceStatus, error) {
	val, err := c.rdb.Get(ctx, presenceKeyPrefix+userID).Result()
	if errors.Is(err, redis.Nil) {
		return models.StatusOffline, nil
	}
	if err != nil {
		return "", errors.Wrap(err, "failed to read presence")
	}
	return models.PresenceStatus(val), nil
}

func (c *PresenceCache) OnlineCount(ctx context.Context) (int64, error) {
	n, err := c.rdb.SCard(ctx, onlineSetKey).Result()
	return n, errors.Wrap(err, "failed to count online users")
}

// Clear drops every mirrored entry, matching a presence reset.
func (c *PresenceCache) Clear(ctx context.Context) error {
	members, err := c.rdb.SMembers(ctx, onlineSetKey).Result()
	if err != nil {
		return errors.Wrap(err, "failed to list online users")
	}
	pipe := c.rdb.Pipeline()
	for _, id := range members {
		pipe.Del(ctx, presenceKeyPrefix+id)
	}
	pipe.Del(ctx, onlineSetKey)
	_, err = pipe.Exec(ctx)
	return errors.Wrap(err, "failed to clear presence")
}
