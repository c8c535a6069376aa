package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"retail-sales/logger"
	"retail-sales/metrics"
	"retail-sales/models"
)

const filterOptionsKey = "sales:filter-options"

// OptionsLoader resolves facet values from the record store.
type OptionsLoader interface {
	LoadFilterOptions(ctx context.Context) (models.FilterOptions, error)
}

// FilterOptionsCache keeps resolved facets in Redis. Redis failures fall through
// to the loader; loader failures degrade to empty lists and are never cached.
type FilterOptionsCache struct {
	loader OptionsLoader
	redis  *redis.Client
	ttl    time.Duration
	log    logger.Logger
}

func NewFilterOptionsCache(loader OptionsLoader, rdb *redis.Client, ttl time.Duration, log logger.Logger) *FilterOptionsCache {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &FilterOptionsCache{loader: loader, redis: rdb, ttl: ttl, log: log}
}

func (c *FilterOptionsCache) FilterOptions(ctx context.Context) models.FilterOptions {
	data, err := c.redis.Get(ctx, filterOptionsKey).Bytes()
	switch {
	case err == nil:
		var opts models.FilterOptions
		if err := json.Unmarshal(data, &opts); err == nil {
			metrics.FilterOptionsCache.WithLabelValues("hit").Inc()
			return opts
		}
		c.log.Warn("discarding unreadable cached filter options", map[string]interface{}{"error": err})
	case errors.Is(err, redis.Nil):
		metrics.FilterOptionsCache.WithLabelValues("miss").Inc()
	default:
		metrics.FilterOptionsCache.WithLabelValues("error").Inc()
		c.log.Warn("redis error, continuing with store", map[string]interface{}{"error": err})
	}

	opts, err := c.loader.LoadFilterOptions(ctx)
	if err != nil {
		c.log.Warn("filter options unavailable, returning empty lists", map[string]interface{}{"error": err})
		return models.EmptyFilterOptions()
	}

	if encoded, err := json.Marshal(opts); err == nil {
		if err := c.redis.Set(ctx, filterOptionsKey, encoded, c.ttl).Err(); err != nil {
			c.log.Warn("failed to cache filter options", map[string]interface{}{"error": err})
		}
	}
	return opts
}

// Invalidate drops the cached facets, e.g. after an import.
func (c *FilterOptionsCache) Invalidate(ctx context.Context) error {
	return c.redis.Del(ctx, filterOptionsKey).Err()
}
