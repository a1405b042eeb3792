package redis

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"roomly/internal/domain/catalog"
)

// PropertyCache is a tenant-scoped read-through cache in front of the property
// repository. Cache trouble degrades to the source, never to an error, and
// invalidation happens explicitly on catalog-change notifications.
type PropertyCache struct {
	Source catalog.PropertyRepository
	Client *redis.Client
	TTL    time.Duration
	Logger *slog.Logger
}

func NewPropertyCache(source catalog.PropertyRepository, client *redis.Client, ttl time.Duration, logger *slog.Logger) *PropertyCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &PropertyCache{Source: source, Client: client, TTL: ttl, Logger: logger}
}

func tenantPrefix(tenant catalog.TenantID) string {
	return "catalog:" + string(tenant) + ":"
}

func (c *PropertyCache) ByID(ctx context.Context, tenant catalog.TenantID, id catalog.PropertyID) (*catalog.Property, error) {
	key := tenantPrefix(tenant) + "id:" + string(id)
	if cached := c.get(ctx, key); cached != nil {
		return cached, nil
	}
	property, err := c.Source.ByID(ctx, tenant, id)
	if err != nil {
		return nil, err
	}
	c.set(ctx, key, property)
	return property, nil
}

func (c *PropertyCache) BySlug(ctx context.Context, tenant catalog.TenantID, slug string) (*catalog.Property, error) {
	key := tenantPrefix(tenant) + "slug:" + slug
	if cached := c.get(ctx, key); cached != nil {
		return cached, nil
	}
	property, err := c.Source.BySlug(ctx, tenant, slug)
	if err != nil {
		return nil, err
	}
	c.set(ctx, key, property)
	return property, nil
}

// ActiveByTenant always hits the source: the listing changes with every
// catalog edit and search already tolerates read skew.
func (c *PropertyCache) ActiveByTenant(ctx context.Context, tenant catalog.TenantID) ([]*catalog.Property, error) {
	return c.Source.ActiveByTenant(ctx, tenant)
}

// Invalidate drops every cached entry of the tenant. Called when the external
// catalog service announces a change.
func (c *PropertyCache) Invalidate(ctx context.Context, tenant catalog.TenantID) error {
	if c.Client == nil {
		return nil
	}
	iter := c.Client.Scan(ctx, 0, tenantPrefix(tenant)+"*", 0).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}
	return c.Client.Del(ctx, keys...).Err()
}

func (c *PropertyCache) get(ctx context.Context, key string) *catalog.Property {
	if c.Client == nil {
		return nil
	}
	raw, err := c.Client.Get(ctx, key).Bytes()
	if err != nil {
		return nil
	}
	var property catalog.Property
	if err := json.Unmarshal(raw, &property); err != nil {
		return nil
	}
	return &property
}

func (c *PropertyCache) set(ctx context.Context, key string, property *catalog.Property) {
	if c.Client == nil {
		return
	}
	raw, err := json.Marshal(property)
	if err != nil {
		return
	}
	if err := c.Client.Set(ctx, key, raw, c.TTL).Err(); err != nil && c.Logger != nil {
		c.Logger.Warn("catalog cache write failed", "key", key, "error", err)
	}
}
