package clinic

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/wolfman30/dental-quote-platform/internal/catalog"
	"github.com/wolfman30/dental-quote-platform/pkg/logging"
)

// CachedRepository reads through Redis before falling back to the wrapped
// repository. Redis failures are logged and bypassed.
type CachedRepository struct {
	next   Repository
	redis  *redis.Client
	ttl    time.Duration
	logger *logging.Logger
}

// NewCachedRepository wraps next with a Redis cache.
func NewCachedRepository(next Repository, client *redis.Client, ttl time.Duration, logger *logging.Logger) *CachedRepository {
	if logger == nil {
		logger = logging.Default()
	}
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return &CachedRepository{next: next, redis: client, ttl: ttl, logger: logger}
}

func (c *CachedRepository) key(id string) string {
	return fmt.Sprintf("clinic:record:%s", id)
}

// Get returns the cached clinic, loading and caching it on a miss.
func (c *CachedRepository) Get(ctx context.Context, id string) (*catalog.Clinic, error) {
	data, err := c.redis.Get(ctx, c.key(id)).Bytes()
	switch {
	case err == nil:
		var cl catalog.Clinic
		if jerr := json.Unmarshal(data, &cl); jerr == nil {
			return &cl, nil
		}
		c.logger.Warn("discarding malformed cached clinic", "clinic_id", id)
	case !errors.Is(err, redis.Nil):
		c.logger.Warn("clinic cache read failed", "clinic_id", id, "error", err)
	}

	cl, err := c.next.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	c.store(ctx, cl)
	return cl, nil
}

// List is not cached.
func (c *CachedRepository) List(ctx context.Context) ([]catalog.Clinic, error) {
	return c.next.List(ctx)
}

// Invalidate drops a cached clinic.
func (c *CachedRepository) Invalidate(ctx context.Context, id string) error {
	if err := c.redis.Del(ctx, c.key(id)).Err(); err != nil {
		return fmt.Errorf("clinic: invalidate cache: %w", err)
	}
	return nil
}

func (c *CachedRepository) store(ctx context.Context, cl *catalog.Clinic) {
	data, err := json.Marshal(cl)
	if err != nil {
		c.logger.Warn("clinic cache encode failed", "clinic_id", cl.ID, "error", err)
		return
	}
	if err := c.redis.Set(ctx, c.key(cl.ID), data, c.ttl).Err(); err != nil {
		c.logger.Warn("clinic cache write failed", "clinic_id", cl.ID, "error", err)
	}
}
