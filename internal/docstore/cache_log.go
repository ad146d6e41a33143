// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package docstore

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"folio/internal/models"
)

type cacheLogDoc struct {
	EntityType    string    `bson:"entity_type"`
	EntityID      string    `bson:"entity_id"`
	Action        string    `bson:"action"`
	InvalidatedAt time.Time `bson:"invalidated_at"`
}

// CacheLogStore records cache invalidations in the cache_invalidation_log collection.
type CacheLogStore struct {
	coll *mongo.Collection
}

// NewCacheLogStore creates a CacheLogStore on the given database.
func NewCacheLogStore(db *mongo.Database) *CacheLogStore {
	return &CacheLogStore{coll: db.Collection(cacheLogColl)}
}

// Log records a cache invalidation event. Failures are logged and
// otherwise ignored.
func (s *CacheLogStore) Log(ctx context.Context, entityID uuid.UUID, action string) {
	_, err := s.coll.InsertOne(ctx, cacheLogDoc{
		EntityType:    "category",
		EntityID:      entityID.String(),
		Action:        action,
		InvalidatedAt: time.Now().UTC(),
	})
	if err != nil {
		slog.Warn("failed to log cache invalidation", "entity_id", entityID, "action", action, "error", err)
	}
}

// RecentEntries returns the most recent cache invalidation events, newest
// first. Document IDs are not numeric, so entries are numbered by position.
func (s *CacheLogStore) RecentEntries(ctx context.Context, limit int) ([]models.CacheLogEntry, error) {
	cur, err := s.coll.Find(ctx, bson.M{},
		options.Find().SetSort(bson.D{{Key: "invalidated_at", Value: -1}}).SetLimit(int64(limit)))
	if err != nil {
		return nil, classify("query cache log", err)
	}
	var docs []cacheLogDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, classify("query cache log", err)
	}

	entries := make([]models.CacheLogEntry, 0, len(docs))
	for i, d := range docs {
		id, err := uuid.Parse(d.EntityID)
		if err != nil {
			continue
		}
		entries = append(entries, models.CacheLogEntry{
			ID:            int64(i + 1),
			EntityType:    d.EntityType,
			EntityID:      id,
			Action:        d.Action,
			InvalidatedAt: d.InvalidatedAt,
		})
	}
	return entries, nil
}
