package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mesaops/identity-api/internal/core/domain"
)

// GeoCache memoizes IP geolocation lookups so the hot login path pays the
// network cost at most once per IP per TTL.
// Key format: geo:<ip>
type GeoCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewGeoCache creates a GeoCache wrapping the given Redis client.
func NewGeoCache(client *redis.Client, ttl time.Duration) *GeoCache {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &GeoCache{client: client, ttl: ttl}
}

// Get returns the cached location for ip, or found=false on miss. Errors are
// reported so the caller can fall through to the resolver.
func (g *GeoCache) Get(ctx context.Context, ip string) (domain.LocationDescriptor, bool, error) {
	raw, err := g.client.Get(ctx, g.key(ip)).Result()
	if err == redis.Nil {
		return domain.LocationDescriptor{}, false, nil
	}
	if err != nil {
		return domain.LocationDescriptor{}, false, fmt.Errorf("geo cache get: %w", err)
	}

	var loc domain.LocationDescriptor
	if err := json.Unmarshal([]byte(raw), &loc); err != nil {
		return domain.LocationDescriptor{}, false, fmt.Errorf("geo cache decode: %w", err)
	}
	return loc, true, nil
}

// Put stores a resolved location (expires after the cache TTL).
func (g *GeoCache) Put(ctx context.Context, ip string, loc domain.LocationDescriptor) error {
	raw, err := json.Marshal(loc)
	if err != nil {
		return fmt.Errorf("geo cache encode: %w", err)
	}
	return g.client.Set(ctx, g.key(ip), raw, g.ttl).Err()
}

func (g *GeoCache) key(ip string) string {
	return fmt.Sprintf("geo:%s", ip)
}
