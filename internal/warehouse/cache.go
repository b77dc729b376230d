// internal/warehouse/cache.go
package warehouse

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"school-matcher/internal/common/logger"
	"school-matcher/internal/common/metrics"
	"school-matcher/internal/models"
)

// CachedSource decorates a Source with a Redis cache over Match results.
// Cache failures never fail the request; the warehouse is queried
// directly instead.
type CachedSource struct {
	inner  Source
	client *redis.Client
	ttl    time.Duration
	logger logger.Logger
}

func NewCachedSource(inner Source, client *redis.Client, ttl time.Duration, log logger.Logger) *CachedSource {
	return &CachedSource{
		inner:  inner,
		client: client,
		ttl:    ttl,
		logger: log.WithFields(map[string]interface{}{"component": "warehouse-cache"}),
	}
}

func (c *CachedSource) Match(ctx context.Context, spec *models.QuerySpec) ([]models.SchoolRecord, error) {
	key := matchCacheKey(spec)

	cached, err := c.client.Get(ctx, key).Result()
	if err == nil {
		var records []models.SchoolRecord
		if jsonErr := json.Unmarshal([]byte(cached), &records); jsonErr == nil {
			metrics.CacheHits.Inc()
			c.logger.Debug("match cache hit", map[string]interface{}{"key": key})
			return records, nil
		}
		// Corrupt entry: treat as a miss and let the refresh overwrite it.
	} else if err != redis.Nil {
		c.logger.Warn("match cache unavailable, querying warehouse", map[string]interface{}{
			"error": err.Error(),
		})
	}
	metrics.CacheMisses.Inc()

	records, err := c.inner.Match(ctx, spec)
	if err != nil {
		return nil, err
	}

	if data, jsonErr := json.Marshal(records); jsonErr == nil {
		if setErr := c.client.Set(ctx, key, data, c.ttl).Err(); setErr != nil {
			c.logger.Warn("failed to cache match result", map[string]interface{}{
				"key":   key,
				"error": setErr.Error(),
			})
		}
	}

	return records, nil
}

func (c *CachedSource) Run(ctx context.Context, name models.QueryType, params map[string]interface{}) (*QueryResult, error) {
	return c.inner.Run(ctx, name, params)
}

func (c *CachedSource) Ping(ctx context.Context) error {
	return c.inner.Ping(ctx)
}

// matchCacheKey derives a stable key from the bound statement, so two
// profiles producing the same SQL and arguments share an entry.
func matchCacheKey(spec *models.QuerySpec) string {
	h := sha256.New()
	h.Write([]byte(spec.SQL))
	if payload, err := json.Marshal(spec.Args); err == nil {
		h.Write(payload)
	}
	return "matcher:match:" + hex.EncodeToString(h.Sum(nil)[:16])
}
