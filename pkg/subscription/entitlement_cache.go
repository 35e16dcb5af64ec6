package subscription

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"github.com/dmitrymomot/billingkit/pkg/cache"
	"github.com/dmitrymomot/billingkit/pkg/logger"
)

// EntitlementCache caches the answer to "is this subscriber currently
// entitled" with a bounded TTL. The cache is advisory: every write path
// invalidates the subscriber's entry, and a miss falls through to the store.
type EntitlementCache interface {
	Get(ctx context.Context, subscriberID uuid.UUID) (entitled, ok bool)
	Set(ctx context.Context, subscriberID uuid.UUID, entitled bool)
	Invalidate(ctx context.Context, subscriberID uuid.UUID)
}

// memoryEntitlementCache is an in-process EntitlementCache on the generic
// TTL cache. Suitable for single-instance deployments.
type memoryEntitlementCache struct {
	entries *cache.TTLCache[uuid.UUID, bool]
}

// NewMemoryEntitlementCache creates an in-memory entitlement cache holding
// at most capacity subscribers, each entry valid for ttl.
func NewMemoryEntitlementCache(capacity int, ttl time.Duration) EntitlementCache {
	return &memoryEntitlementCache{entries: cache.NewTTLCache[uuid.UUID, bool](capacity, ttl)}
}

func (c *memoryEntitlementCache) Get(ctx context.Context, subscriberID uuid.UUID) (bool, bool) {
	return c.entries.Get(subscriberID)
}

func (c *memoryEntitlementCache) Set(ctx context.Context, subscriberID uuid.UUID, entitled bool) {
	c.entries.Set(subscriberID, entitled)
}

func (c *memoryEntitlementCache) Invalidate(ctx context.Context, subscriberID uuid.UUID) {
	c.entries.Delete(subscriberID)
}

// redisEntitlementCache shares entitlement answers across instances through
// Redis. All Redis errors degrade to cache misses; entitlement must never
// fail because the cache is down.
type redisEntitlementCache struct {
	client *goredis.Client
	ttl    time.Duration
	log    *slog.Logger
}

// NewRedisEntitlementCache creates a Redis-backed entitlement cache.
// A nil logger falls back to slog.Default().
func NewRedisEntitlementCache(client *goredis.Client, ttl time.Duration, log *slog.Logger) EntitlementCache {
	if client == nil {
		panic("subscription: redis client is required")
	}
	if ttl <= 0 {
		panic("subscription: entitlement cache ttl must be positive")
	}
	if log == nil {
		log = slog.Default()
	}
	return &redisEntitlementCache{client: client, ttl: ttl, log: log}
}

func entitlementKey(subscriberID uuid.UUID) string {
	return "billing:entitled:" + subscriberID.String()
}

func (c *redisEntitlementCache) Get(ctx context.Context, subscriberID uuid.UUID) (bool, bool) {
	val, err := c.client.Get(ctx, entitlementKey(subscriberID)).Result()
	if err != nil {
		if err != goredis.Nil {
			c.log.WarnContext(ctx, "entitlement cache read failed",
				logger.SubscriberID(subscriberID), logger.Error(err))
		}
		return false, false
	}
	return val == "1", true
}

func (c *redisEntitlementCache) Set(ctx context.Context, subscriberID uuid.UUID, entitled bool) {
	val := "0"
	if entitled {
		val = "1"
	}
	if err := c.client.Set(ctx, entitlementKey(subscriberID), val, c.ttl).Err(); err != nil {
		c.log.WarnContext(ctx, "entitlement cache write failed",
			logger.SubscriberID(subscriberID), logger.Error(err))
	}
}

func (c *redisEntitlementCache) Invalidate(ctx context.Context, subscriberID uuid.UUID) {
	if err := c.client.Del(ctx, entitlementKey(subscriberID)).Err(); err != nil {
		c.log.WarnContext(ctx, "entitlement cache invalidation failed",
			logger.SubscriberID(subscriberID), logger.Error(err))
	}
}
