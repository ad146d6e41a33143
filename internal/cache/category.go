// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package cache

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"folio/internal/category"
	"folio/internal/models"
)

const (
	// keyPrefix namespaces every category entry in Valkey.
	keyPrefix = "categories:"

	// DefaultTTL bounds how long a cached read can lag behind a write
	// that raced with it.
	DefaultTTL = time.Minute
)

// InvalidationLogger records that cached category data was dropped.
type InvalidationLogger interface {
	Log(ctx context.Context, entityID uuid.UUID, action string)
}

// CategoryCache wraps a category.Repository. Reads are served from Valkey
// when possible; every successful write drops all cached category entries.
// Valkey failures are logged and the call falls through to the repository.
type CategoryCache struct {
	next   category.Repository
	client *redis.Client
	ttl    time.Duration
	log    InvalidationLogger
}

var _ category.Repository = (*CategoryCache)(nil)

// NewCategoryCache wraps next. log may be nil.
func NewCategoryCache(next category.Repository, client *redis.Client, ttl time.Duration, log InvalidationLogger) *CategoryCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &CategoryCache{next: next, client: client, ttl: ttl, log: log}
}

func listKey(f category.Filter) string {
	switch {
	case f.Active == nil:
		return keyPrefix + "list:all"
	case *f.Active:
		return keyPrefix + "list:active"
	default:
		return keyPrefix + "list:inactive"
	}
}

func idKey(id uuid.UUID) string {
	return keyPrefix + "id:" + id.String()
}

func (c *CategoryCache) get(ctx context.Context, key string, v any) bool {
	raw, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false
	}
	if err != nil {
		slog.Warn("category cache get error", "key", key, "error", err)
		return false
	}
	if err := json.Unmarshal(raw, v); err != nil {
		slog.Warn("category cache decode error", "key", key, "error", err)
		return false
	}
	slog.Debug("category cache hit", "key", key)
	return true
}

func (c *CategoryCache) set(ctx context.Context, key string, v any) {
	raw, err := json.Marshal(v)
	if err != nil {
		slog.Warn("category cache encode error", "key", key, "error", err)
		return
	}
	if err := c.client.Set(ctx, key, raw, c.ttl).Err(); err != nil {
		slog.Warn("category cache set error", "key", key, "error", err)
	}
}

// invalidate removes every cached category entry and records the action
// once per touched category.
func (c *CategoryCache) invalidate(ctx context.Context, action string, ids ...uuid.UUID) {
	var cursor uint64
	var deleted int
	for {
		keys, next, err := c.client.Scan(ctx, cursor, keyPrefix+"*", 100).Result()
		if err != nil {
			slog.Warn("category cache scan error", "error", err)
			break
		}
		if len(keys) > 0 {
			if err := c.client.Del(ctx, keys...).Err(); err != nil {
				slog.Warn("category cache delete error", "error", err)
			}
			deleted += len(keys)
		}
		cursor = next
		if cursor == 0 {
			break
		}
	}
	slog.Debug("category cache invalidated", "action", action, "keys", deleted)

	if c.log == nil {
		return
	}
	for _, id := range ids {
		c.log.Log(ctx, id, action)
	}
}

func (c *CategoryCache) Create(ctx context.Context, cat *models.Category) (*models.Category, error) {
	created, err := c.next.Create(ctx, cat)
	if err != nil {
		return nil, err
	}
	c.invalidate(ctx, "create", created.ID)
	return created, nil
}

func (c *CategoryCache) FindByID(ctx context.Context, id uuid.UUID) (*models.Category, error) {
	var cached models.Category
	if c.get(ctx, idKey(id), &cached) {
		return &cached, nil
	}
	found, err := c.next.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	c.set(ctx, idKey(id), found)
	return found, nil
}

func (c *CategoryCache) List(ctx context.Context, f category.Filter) ([]models.Category, error) {
	key := listKey(f)
	var cached []models.Category
	if c.get(ctx, key, &cached) {
		return cached, nil
	}
	list, err := c.next.List(ctx, f)
	if err != nil {
		return nil, err
	}
	c.set(ctx, key, list)
	return list, nil
}

func (c *CategoryCache) Update(ctx context.Context, id uuid.UUID, p category.Patch) (*models.Category, error) {
	updated, err := c.next.Update(ctx, id, p)
	if err != nil {
		return nil, err
	}
	c.invalidate(ctx, "update", id)
	return updated, nil
}

func (c *CategoryCache) Delete(ctx context.Context, id uuid.UUID, policy category.DeletePolicy) error {
	if err := c.next.Delete(ctx, id, policy); err != nil {
		return err
	}
	c.invalidate(ctx, "delete", id)
	return nil
}

func (c *CategoryCache) Reorder(ctx context.Context, plan category.PlanFunc) ([]models.Category, error) {
	affected, err := c.next.Reorder(ctx, plan)
	if err != nil {
		return nil, err
	}
	ids := make([]uuid.UUID, len(affected))
	for i, a := range affected {
		ids[i] = a.ID
	}
	c.invalidate(ctx, "reorder", ids...)
	return affected, nil
}

func (c *CategoryCache) IncrementUsage(ctx context.Context, id uuid.UUID, delta int) (*models.Category, error) {
	updated, err := c.next.IncrementUsage(ctx, id, delta)
	if err != nil {
		return nil, err
	}
	c.invalidate(ctx, "usage", id)
	return updated, nil
}
