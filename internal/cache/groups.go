package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/bytedance/sonic"
	"github.com/redis/rueidis"
	"github.com/tribelabs/tribe/internal/database/types"
	"go.uber.org/zap"
)

// groupKeyPrefix namespaces cached group rows.
// Keys are formatted as "group_cache:{groupID}".
const groupKeyPrefix = "group_cache:"

// GroupCache caches group rows used during settings resolution. It is
// constructed explicitly with an injected TTL and cleared through its own
// API; consumers receive it by reference rather than through a package-level
// singleton.
type GroupCache struct {
	client rueidis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewGroupCache creates a group cache with the given TTL.
func NewGroupCache(client rueidis.Client, ttl time.Duration, logger *zap.Logger) *GroupCache {
	return &GroupCache{
		client: client,
		ttl:    ttl,
		logger: logger.Named("group_cache"),
	}
}

// Get retrieves a cached group. Returns nil without error on a miss;
// unparseable entries are treated as misses.
func (c *GroupCache) Get(ctx context.Context, groupID string) (*types.Group, error) {
	data, err := c.client.Do(ctx,
		c.client.B().Get().Key(groupKeyPrefix+groupID).Build(),
	).AsBytes()
	if err != nil {
		if rueidis.IsRedisNil(err) {
			return nil, nil
		}

		return nil, fmt.Errorf("failed to get cached group %s: %w", groupID, err)
	}

	var group types.Group
	if err := sonic.Unmarshal(data, &group); err != nil {
		c.logger.Warn("Discarding unparseable cached group",
			zap.String("groupID", groupID),
			zap.Error(err))

		return nil, nil
	}

	return &group, nil
}

// Set stores a group row with the cache's TTL.
func (c *GroupCache) Set(ctx context.Context, group *types.Group) error {
	data, err := sonic.Marshal(group)
	if err != nil {
		return fmt.Errorf("failed to marshal group %s: %w", group.ID, err)
	}

	err = c.client.Do(ctx,
		c.client.B().Set().Key(groupKeyPrefix+group.ID).
			Value(string(data)).
			Ex(c.ttl).
			Build(),
	).Error()
	if err != nil {
		return fmt.Errorf("failed to cache group %s: %w", group.ID, err)
	}

	return nil
}

// Invalidate removes a single group from the cache.
func (c *GroupCache) Invalidate(ctx context.Context, groupID string) error {
	err := c.client.Do(ctx,
		c.client.B().Del().Key(groupKeyPrefix+groupID).Build(),
	).Error()
	if err != nil {
		return fmt.Errorf("failed to invalidate cached group %s: %w", groupID, err)
	}

	return nil
}

// Clear removes all cached groups.
func (c *GroupCache) Clear(ctx context.Context) error {
	keys, err := c.client.Do(ctx,
		c.client.B().Keys().Pattern(groupKeyPrefix+"*").Build(),
	).AsStrSlice()
	if err != nil {
		return fmt.Errorf("failed to list cached groups: %w", err)
	}

	if len(keys) == 0 {
		return nil
	}

	err = c.client.Do(ctx, c.client.B().Del().Key(keys...).Build()).Error()
	if err != nil {
		return fmt.Errorf("failed to clear group cache: %w", err)
	}

	return nil
}
