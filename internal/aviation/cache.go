package aviation

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"gotour/pkg/logger"
	"gotour/pkg/metrics"

	"github.com/redis/go-redis/v9"
)

// Cache stores serialized provider responses. Get reports found=false on a miss.
type Cache interface {
	Get(ctx context.Context, key string) (value []byte, found bool, err error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

type RedisCache struct {
	client *redis.Client
}

func NewRedisCache(client *redis.Client) *RedisCache {
	return &RedisCache{client: client}
}

func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return data, true, nil
}

func (c *RedisCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return c.client.Set(ctx, key, value, ttl).Err()
}

// CachedProvider is a read-through cache in front of another Provider. Cache
// failures are logged and never fail a lookup; only found flights are cached.
type CachedProvider struct {
	next    Provider
	cache   Cache
	ttl     time.Duration
	metrics *metrics.Metrics
	log     *logger.Logger
}

func NewCachedProvider(next Provider, cache Cache, ttl time.Duration, m *metrics.Metrics, log *logger.Logger) *CachedProvider {
	return &CachedProvider{next: next, cache: cache, ttl: ttl, metrics: m, log: log}
}

func (p *CachedProvider) FlightDetails(ctx context.Context, code, date string) (*FlightDetails, error) {
	key := cacheKey(code, date)

	data, found, err := p.cache.Get(ctx, key)
	switch {
	case err != nil:
		p.metrics.FlightLookup("cache", "error")
		p.log.Warn("Flight cache read failed", "key", key, "error", err)
	case found:
		var details FlightDetails
		if err := json.Unmarshal(data, &details); err == nil {
			p.metrics.FlightLookup("cache", "hit")
			return &details, nil
		}
		p.log.Warn("Discarding undecodable flight cache entry", "key", key)
	default:
		p.metrics.FlightLookup("cache", "miss")
	}

	details, err := p.next.FlightDetails(ctx, code, date)
	if err != nil {
		return nil, err
	}

	if payload, err := json.Marshal(details); err == nil {
		if err := p.cache.Set(ctx, key, payload, p.ttl); err != nil {
			p.log.Warn("Flight cache write failed", "key", key, "error", err)
		}
	}
	return details, nil
}

func cacheKey(code, date string) string {
	return "aviation:flight:" + strings.ToUpper(strings.TrimSpace(code)) + ":" + date
}
