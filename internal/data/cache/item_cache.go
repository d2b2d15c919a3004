// Package cache provides Redis read-through caching in front of the primary store
package cache

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/gamevault-settlement/internal/domain/item"
)

// ItemReader loads items from the primary store
type ItemReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (*item.Item, error)
}

// tombstone marks a key invalidated by a recent commit. While it lives, reads go to the
// primary store and a miss loaded before the commit cannot repopulate the key.
const (
	tombstone    = "~"
	tombstoneTTL = 10 * time.Second
)

// ItemCache serves item reads from Redis and falls back to the primary store on a miss.
// Writes never go through the cache; settlement invalidates the key after each commit.
type ItemCache struct {
	primary      ItemReader
	rdb          redis.Cmdable
	ttl          time.Duration
	tombstoneTTL time.Duration
	logger       *slog.Logger
}

// NewItemCache wraps primary with a cache whose entries live for ttl
func NewItemCache(primary ItemReader, rdb redis.Cmdable, ttl time.Duration, logger *slog.Logger) *ItemCache {
	return &ItemCache{
		primary:      primary,
		rdb:          rdb,
		ttl:          ttl,
		tombstoneTTL: tombstoneTTL,
		logger:       logger,
	}
}

func itemKey(id uuid.UUID) string {
	return "item:" + id.String()
}

// GetByID returns the cached item or loads it. A loaded item is cached only if the key is
// still empty, so it never overwrites a newer invalidation.
func (c *ItemCache) GetByID(ctx context.Context, id uuid.UUID) (*item.Item, error) {
	data, err := c.rdb.Get(ctx, itemKey(id)).Bytes()
	if err == nil {
		if string(data) == tombstone {
			return c.primary.GetByID(ctx, id)
		}
		var it item.Item
		if json.Unmarshal(data, &it) == nil {
			return &it, nil
		}
	} else if err != redis.Nil {
		c.logger.Warn("Item cache read failed, using primary store", "item_id", id.String(), "error", err)
	}

	it, err := c.primary.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if encoded, err := json.Marshal(it); err == nil {
		if err := c.rdb.SetNX(ctx, itemKey(id), encoded, c.ttl).Err(); err != nil {
			c.logger.Warn("Failed to cache item", "item_id", id.String(), "error", err)
		}
	}
	return it, nil
}

// Invalidate replaces the cached copy of the item with a short-lived tombstone
func (c *ItemCache) Invalidate(ctx context.Context, id uuid.UUID) error {
	return c.rdb.Set(ctx, itemKey(id), tombstone, c.tombstoneTTL).Err()
}
