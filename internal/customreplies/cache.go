package customreplies

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/indarelin/backoffice/pkg/logging"
	"github.com/redis/go-redis/v9"
)

// activeCacheKey holds the JSON-encoded active rule set.
const activeCacheKey = "customreplies:active"

// CachedRepository serves ListActive from Redis and invalidates on writes.
// Redis failures degrade to reading through to the wrapped repository.
type CachedRepository struct {
	Repository
	redis  redis.UniversalClient
	ttl    time.Duration
	logger *logging.Logger
}

// NewCachedRepository wraps repo with a Redis cache. A nil client disables caching.
func NewCachedRepository(repo Repository, client redis.UniversalClient, ttl time.Duration, logger *logging.Logger) *CachedRepository {
	if logger == nil {
		logger = logging.Default()
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &CachedRepository{Repository: repo, redis: client, ttl: ttl, logger: logger}
}

func (c *CachedRepository) ListActive(ctx context.Context) ([]Reply, error) {
	if c.redis == nil {
		return c.Repository.ListActive(ctx)
	}

	raw, err := c.redis.Get(ctx, activeCacheKey).Bytes()
	switch {
	case err == nil:
		var rules []Reply
		if jerr := json.Unmarshal(raw, &rules); jerr == nil {
			return rules, nil
		}
		c.logger.Warn("discarding corrupt custom reply cache entry")
	case !errors.Is(err, redis.Nil):
		c.logger.Warn("custom reply cache read failed", "error", err)
	}

	rules, err := c.Repository.ListActive(ctx)
	if err != nil {
		return nil, err
	}
	if payload, err := json.Marshal(rules); err == nil {
		if err := c.redis.Set(ctx, activeCacheKey, payload, c.ttl).Err(); err != nil {
			c.logger.Warn("custom reply cache write failed", "error", err)
		}
	}
	return rules, nil
}

func (c *CachedRepository) Create(ctx context.Context, in *ReplyInput) (*Reply, error) {
	reply, err := c.Repository.Create(ctx, in)
	if err == nil {
		c.invalidate(ctx)
	}
	return reply, err
}

func (c *CachedRepository) Update(ctx context.Context, id string, in *ReplyInput) (*Reply, error) {
	reply, err := c.Repository.Update(ctx, id, in)
	if err == nil {
		c.invalidate(ctx)
	}
	return reply, err
}

func (c *CachedRepository) Delete(ctx context.Context, id string) error {
	err := c.Repository.Delete(ctx, id)
	if err == nil {
		c.invalidate(ctx)
	}
	return err
}

func (c *CachedRepository) invalidate(ctx context.Context) {
	if c.redis == nil {
		return
	}
	if err := c.redis.Del(ctx, activeCacheKey).Err(); err != nil {
		c.logger.Warn("custom reply cache invalidation failed", "error", err)
	}
}
