package handler

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/go-redis/redis/v8"

	"supplies-pos/internal/database/models"
	"supplies-pos/internal/logging"
)

// ProductCache is a read-through cache of the in-stock catalog. Redis
// failures fall back to the loader.
type ProductCache struct {
	redis *redis.Client
	ttl   time.Duration
}

func NewProductCache(redisClient *redis.Client, ttl time.Duration) *ProductCache {
	return &ProductCache{redis: redisClient, ttl: ttl}
}

func (c *ProductCache) InStock(ctx context.Context, load func(context.Context) ([]models.Product, error)) ([]models.Product, error) {
	log := logging.FromContext(ctx)

	data, err := c.redis.Get(ctx, POS_PRODUCT_CACHE_KEY).Bytes()
	switch {
	case err == nil:
		var products []models.Product
		if err := json.Unmarshal(data, &products); err == nil {
			return products, nil
		}
		log.Warn("discarding unreadable product cache", "error", err)
	case errors.Is(err, redis.Nil):
	default:
		log.Warn("product cache unavailable, reading from db", "error", err)
	}

	products, err := load(ctx)
	if err != nil {
		return nil, err
	}

	if encoded, err := json.Marshal(products); err == nil {
		if err := c.redis.Set(ctx, POS_PRODUCT_CACHE_KEY, encoded, c.ttl).Err(); err != nil {
			log.Warn("failed to cache products", "error", err)
		}
	}
	return products, nil
}

func (c *ProductCache) Invalidate(ctx context.Context) {
	if err := c.redis.Del(ctx, POS_PRODUCT_CACHE_KEY).Err(); err != nil {
		logging.FromContext(ctx).Warn("failed to invalidate product cache", "error", err)
	}
}
