// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package docstore is the MongoDB storage backend. It stores the same
// categories, users, and cache log as the PostgreSQL store and relies on
// multi-document transactions, so the server must be a replica set.
package docstore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readconcern"
	"go.mongodb.org/mongo-driver/mongo/writeconcern"

	"folio/internal/apperr"
)

// Collection names.
const (
	categoriesColl = "categories"
	scopesColl     = "category_scopes"
	countersColl   = "counters"
	usersColl      = "users"
	cacheLogColl   = "cache_invalidation_log"
)

// Connect opens a MongoDB client and verifies it with a ping.
func Connect(ctx context.Context, uri string) (*mongo.Client, error) {
	slog.Info("connecting to mongodb", "uri", maskURI(uri))

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo ping: %w", err)
	}

	slog.Info("mongodb connected")
	return client, nil
}

// EnsureIndexes creates the collections and indexes the stores rely on.
// It is safe to call on every start.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	existing, err := db.ListCollectionNames(ctx, bson.D{})
	if err != nil {
		return fmt.Errorf("list collections: %w", err)
	}
	have := make(map[string]bool, len(existing))
	for _, name := range existing {
		have[name] = true
	}
	// Collections must exist before transactions write to them.
	for _, name := range []string{categoriesColl, scopesColl, countersColl, usersColl, cacheLogColl} {
		if have[name] {
			continue
		}
		if err := db.CreateCollection(ctx, name); err != nil {
			return fmt.Errorf("create collection %s: %w", name, err)
		}
	}

	indexes := map[string][]mongo.IndexModel{
		categoriesColl: {
			{Keys: bson.D{{Key: "slug", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "seq", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "parent_id", Value: 1}, {Key: "order", Value: 1}}},
			{Keys: bson.D{{Key: "active", Value: 1}}},
		},
		usersColl: {
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
		cacheLogColl: {
			{Keys: bson.D{{Key: "invalidated_at", Value: -1}}},
		},
	}
	for coll, idx := range indexes {
		if _, err := db.Collection(coll).Indexes().CreateMany(ctx, idx); err != nil {
			return fmt.Errorf("create indexes on %s: %w", coll, err)
		}
	}

	slog.Info("mongodb collections and indexes ready")
	return nil
}

// maskURI hides the password of a connection string for logging.
func maskURI(uri string) string {
	u, err := url.Parse(uri)
	if err != nil || u.User == nil {
		return uri
	}
	if _, ok := u.User.Password(); ok {
		u.User = url.UserPassword(u.User.Username(), "***")
	}
	return u.String()
}

// withTransaction runs fn in a snapshot transaction with majority writes.
// The driver retries fn on transient errors such as write conflicts, so fn
// must be safe to run more than once.
func withTransaction(ctx context.Context, client *mongo.Client, fn func(sc mongo.SessionContext) (any, error)) (any, error) {
	sess, err := client.StartSession()
	if err != nil {
		return nil, err
	}
	defer sess.EndSession(ctx)

	opts := options.Transaction().
		SetReadConcern(readconcern.Snapshot()).
		SetWriteConcern(writeconcern.Majority())
	return sess.WithTransaction(ctx, fn, opts)
}

// classify maps driver errors onto apperr kinds and adds op context.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	if apperr.KindOf(err) != apperr.KindInternal {
		return err
	}

	var cmdErr mongo.CommandError
	switch {
	case mongo.IsDuplicateKeyError(err):
		return apperr.Conflict("%s: duplicate key; retry", op)
	case errors.As(err, &cmdErr) && cmdErr.HasErrorLabel("TransientTransactionError"):
		return apperr.Conflict("%s: concurrent update detected; reload and retry", op)
	case mongo.IsTimeout(err), errors.Is(err, context.DeadlineExceeded):
		return apperr.Unavailable(op+" timed out", err)
	case mongo.IsNetworkError(err):
		return apperr.Unavailable(op+" could not reach the database", err)
	}
	return fmt.Errorf("%s: %w", op, err)
}
