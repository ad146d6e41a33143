// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package docstore

import (
	"context"
	"errors"
	"regexp"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"folio/internal/apperr"
	"folio/internal/category"
	"folio/internal/hierarchy"
	"folio/internal/models"
	"folio/internal/slug"
)

// categoryDoc is the stored form of a category. IDs are kept as strings
// so documents stay readable in the mongo shell.
type categoryDoc struct {
	ID          string    `bson:"_id"`
	Seq         int64     `bson:"seq"`
	Name        string    `bson:"name"`
	Slug        string    `bson:"slug"`
	Description string    `bson:"description"`
	ParentID    *string   `bson:"parent_id"`
	Order       int       `bson:"order"`
	Active      bool      `bson:"active"`
	Color       string    `bson:"color"`
	Icon        string    `bson:"icon"`
	UsageCount  int       `bson:"usage_count"`
	Version     int       `bson:"version"`
	CreatedAt   time.Time `bson:"created_at"`
	UpdatedAt   time.Time `bson:"updated_at"`
}

func parentKey(p *uuid.UUID) *string {
	if p == nil {
		return nil
	}
	s := p.String()
	return &s
}

func (d *categoryDoc) model() (models.Category, error) {
	id, err := uuid.Parse(d.ID)
	if err != nil {
		return models.Category{}, err
	}
	c := models.Category{
		ID:          id,
		Name:        d.Name,
		Slug:        d.Slug,
		Description: d.Description,
		Order:       d.Order,
		Active:      d.Active,
		Color:       d.Color,
		Icon:        d.Icon,
		UsageCount:  d.UsageCount,
		Version:     d.Version,
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
	}
	if d.ParentID != nil {
		pid, err := uuid.Parse(*d.ParentID)
		if err != nil {
			return models.Category{}, err
		}
		c.ParentID = &pid
	}
	return c, nil
}

// CategoryStore is the MongoDB category.Repository.
//
// Every write that touches a sibling scope also bumps that scope's
// document in category_scopes. Two transactions on the same scope then
// write-conflict and the driver retries one of them against fresh data,
// which serializes them; disjoint scopes proceed independently.
type CategoryStore struct {
	client *mongo.Client
	db     *mongo.Database
}

// NewCategoryStore creates a CategoryStore on the given database.
func NewCategoryStore(client *mongo.Client, db *mongo.Database) *CategoryStore {
	return &CategoryStore{client: client, db: db}
}

var _ category.Repository = (*CategoryStore)(nil)

func (s *CategoryStore) coll() *mongo.Collection { return s.db.Collection(categoriesColl) }

func (s *CategoryStore) touchScope(ctx context.Context, parent *uuid.UUID) error {
	key := "root"
	if parent != nil {
		key = parent.String()
	}
	_, err := s.db.Collection(scopesColl).UpdateOne(ctx,
		bson.M{"_id": key},
		bson.M{"$inc": bson.M{"writes": 1}},
		options.Update().SetUpsert(true),
	)
	return err
}

func (s *CategoryStore) nextSeq(ctx context.Context) (int64, error) {
	var counter struct {
		Seq int64 `bson:"seq"`
	}
	err := s.db.Collection(countersColl).FindOneAndUpdate(ctx,
		bson.M{"_id": categoriesColl},
		bson.M{"$inc": bson.M{"seq": 1}},
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	).Decode(&counter)
	return counter.Seq, err
}

func (s *CategoryStore) nextOrder(ctx context.Context, parent *uuid.UUID) (int, error) {
	var last categoryDoc
	err := s.coll().FindOne(ctx,
		bson.M{"parent_id": parentKey(parent)},
		options.FindOne().SetSort(bson.D{{Key: "order", Value: -1}}),
	).Decode(&last)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return last.Order + 1, nil
}

func (s *CategoryStore) uniqueSlug(ctx context.Context, base string, except uuid.UUID) (string, error) {
	cur, err := s.coll().Find(ctx, bson.M{
		"slug": bson.M{"$regex": "^" + regexp.QuoteMeta(base) + "(-[0-9]+)?$"},
		"_id":  bson.M{"$ne": except.String()},
	}, options.Find().SetProjection(bson.M{"slug": 1}))
	if err != nil {
		return "", err
	}
	var docs []struct {
		Slug string `bson:"slug"`
	}
	if err := cur.All(ctx, &docs); err != nil {
		return "", err
	}
	taken := make([]string, len(docs))
	for i, d := range docs {
		taken[i] = d.Slug
	}
	return slug.Unique(base, taken), nil
}

func (s *CategoryStore) find(ctx context.Context, id uuid.UUID) (*models.Category, error) {
	var d categoryDoc
	err := s.coll().FindOne(ctx, bson.M{"_id": id.String()}).Decode(&d)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, apperr.NotFound("category %s not found", id)
	}
	if err != nil {
		return nil, err
	}
	c, err := d.model()
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *CategoryStore) all(ctx context.Context, filter bson.M) ([]models.Category, error) {
	cur, err := s.coll().Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "seq", Value: 1}}))
	if err != nil {
		return nil, err
	}
	var docs []categoryDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	out := make([]models.Category, 0, len(docs))
	for i := range docs {
		c, err := docs[i].model()
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

// Create inserts a category at the end of its parent scope.
func (s *CategoryStore) Create(ctx context.Context, c *models.Category) (*models.Category, error) {
	res, err := withTransaction(ctx, s.client, func(sc mongo.SessionContext) (any, error) {
		// The parent's scope document is also bumped by a delete of the
		// parent, so the two cannot both commit.
		if err := s.touchScope(sc, c.ParentID); err != nil {
			return nil, err
		}
		if c.ParentID != nil {
			if _, err := s.find(sc, *c.ParentID); err != nil {
				if errors.Is(err, apperr.ErrNotFound) {
					return nil, apperr.Validation("parent category does not exist",
						apperr.FieldError{Field: "parent_id", Message: "does not exist"})
				}
				return nil, err
			}
		}

		order, err := s.nextOrder(sc, c.ParentID)
		if err != nil {
			return nil, err
		}
		sl, err := s.uniqueSlug(sc, c.Slug, c.ID)
		if err != nil {
			return nil, err
		}
		seq, err := s.nextSeq(sc)
		if err != nil {
			return nil, err
		}

		now := time.Now().UTC().Truncate(time.Millisecond)
		d := categoryDoc{
			ID:          c.ID.String(),
			Seq:         seq,
			Name:        c.Name,
			Slug:        sl,
			Description: c.Description,
			ParentID:    parentKey(c.ParentID),
			Order:       order,
			Active:      c.Active,
			Color:       c.Color,
			Icon:        c.Icon,
			Version:     1,
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		if _, err := s.coll().InsertOne(sc, d); err != nil {
			return nil, err
		}
		created, err := d.model()
		if err != nil {
			return nil, err
		}
		return &created, nil
	})
	if err != nil {
		return nil, classify("create category", err)
	}
	return res.(*models.Category), nil
}

// FindByID retrieves a category by its UUID.
func (s *CategoryStore) FindByID(ctx context.Context, id uuid.UUID) (*models.Category, error) {
	c, err := s.find(ctx, id)
	if err != nil {
		return nil, classify("find category", err)
	}
	return c, nil
}

// List returns the categories matching f in insertion order.
func (s *CategoryStore) List(ctx context.Context, f category.Filter) ([]models.Category, error) {
	filter := bson.M{}
	if f.Active != nil {
		filter["active"] = *f.Active
	}
	out, err := s.all(ctx, filter)
	if err != nil {
		return nil, classify("list categories", err)
	}
	return out, nil
}

// Update applies a metadata patch and bumps the version.
func (s *CategoryStore) Update(ctx context.Context, id uuid.UUID, p category.Patch) (*models.Category, error) {
	res, err := withTransaction(ctx, s.client, func(sc mongo.SessionContext) (any, error) {
		c, err := s.find(sc, id)
		if err != nil {
			return nil, err
		}
		patch := p
		if patch.Slug != nil {
			sl, err := s.uniqueSlug(sc, *patch.Slug, id)
			if err != nil {
				return nil, err
			}
			patch.Slug = &sl
		}
		patch.Apply(c)
		c.Version++
		c.UpdatedAt = time.Now().UTC().Truncate(time.Millisecond)

		_, err = s.coll().UpdateOne(sc, bson.M{"_id": id.String()}, bson.M{"$set": bson.M{
			"name":        c.Name,
			"slug":        c.Slug,
			"description": c.Description,
			"color":       c.Color,
			"icon":        c.Icon,
			"active":      c.Active,
			"version":     c.Version,
			"updated_at":  c.UpdatedAt,
		}})
		if err != nil {
			return nil, err
		}
		return c, nil
	})
	if err != nil {
		return nil, classify("update category", err)
	}
	return res.(*models.Category), nil
}

// Delete removes a category, handling its children per policy.
func (s *CategoryStore) Delete(ctx context.Context, id uuid.UUID, policy category.DeletePolicy) error {
	_, err := withTransaction(ctx, s.client, func(sc mongo.SessionContext) (any, error) {
		target, err := s.find(sc, id)
		if err != nil {
			return nil, err
		}
		if err := s.touchScope(sc, target.ParentID); err != nil {
			return nil, err
		}
		if err := s.touchScope(sc, &id); err != nil {
			return nil, err
		}

		children, err := s.all(sc, bson.M{"parent_id": id.String()})
		if err != nil {
			return nil, err
		}

		remove := []string{id.String()}
		switch policy {
		case category.DeleteCascade:
			everything, err := s.all(sc, bson.M{})
			if err != nil {
				return nil, err
			}
			for _, d := range hierarchy.Descendants(everything, id) {
				remove = append(remove, d.String())
			}

		case category.DeleteReparent:
			next, err := s.nextOrder(sc, target.ParentID)
			if err != nil {
				return nil, err
			}
			hierarchy.SortByScope(children)
			now := time.Now().UTC().Truncate(time.Millisecond)
			for i, child := range children {
				_, err := s.coll().UpdateOne(sc, bson.M{"_id": child.ID.String()}, bson.M{
					"$set": bson.M{"parent_id": parentKey(target.ParentID), "order": next + i, "updated_at": now},
					"$inc": bson.M{"version": 1},
				})
				if err != nil {
					return nil, err
				}
			}

		default:
			if len(children) > 0 {
				return nil, apperr.Conflict("category %s has %d child categories; move or delete them first", id, len(children))
			}
		}

		if _, err := s.coll().DeleteMany(sc, bson.M{"_id": bson.M{"$in": remove}}); err != nil {
			return nil, err
		}
		return nil, nil
	})
	return classify("delete category", err)
}

// Reorder snapshots every category inside a transaction, lets plan compute
// the new layout, and writes the changed documents guarded by version.
func (s *CategoryStore) Reorder(ctx context.Context, plan category.PlanFunc) ([]models.Category, error) {
	res, err := withTransaction(ctx, s.client, func(sc mongo.SessionContext) (any, error) {
		snapshot, err := s.all(sc, bson.M{})
		if err != nil {
			return nil, err
		}
		p, err := plan(snapshot)
		if err != nil {
			return nil, err
		}

		before := hierarchy.ParentsOf(snapshot)
		for _, c := range p.Changed {
			if err := s.touchScope(sc, c.ParentID); err != nil {
				return nil, err
			}
			if err := s.touchScope(sc, before[c.ID]); err != nil {
				return nil, err
			}
		}

		now := time.Now().UTC().Truncate(time.Millisecond)
		written := make(map[uuid.UUID]models.Category, len(p.Changed))
		for _, c := range p.Changed {
			r, err := s.coll().UpdateOne(sc,
				bson.M{"_id": c.ID.String(), "version": c.Version},
				bson.M{
					"$set": bson.M{"parent_id": parentKey(c.ParentID), "order": c.Order, "updated_at": now},
					"$inc": bson.M{"version": 1},
				},
			)
			if err != nil {
				return nil, err
			}
			if r.MatchedCount == 0 {
				return nil, apperr.Conflict("category %s changed during reorder; reload and retry", c.ID)
			}
			c.Version++
			c.UpdatedAt = now
			written[c.ID] = c
		}

		out := make([]models.Category, len(p.Affected))
		for i, c := range p.Affected {
			if w, ok := written[c.ID]; ok {
				c = w
			}
			out[i] = c
		}
		return out, nil
	})
	if err != nil {
		return nil, classify("reorder categories", err)
	}
	return res.([]models.Category), nil
}

// IncrementUsage adds delta to usage_count, never going below zero.
func (s *CategoryStore) IncrementUsage(ctx context.Context, id uuid.UUID, delta int) (*models.Category, error) {
	update := bson.A{bson.M{"$set": bson.M{
		"usage_count": bson.M{"$max": bson.A{0, bson.M{"$add": bson.A{"$usage_count", delta}}}},
		"updated_at":  "$$NOW",
	}}}
	var d categoryDoc
	err := s.coll().FindOneAndUpdate(ctx, bson.M{"_id": id.String()}, update,
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&d)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, apperr.NotFound("category %s not found", id)
	}
	if err != nil {
		return nil, classify("increment usage", err)
	}
	c, err := d.model()
	if err != nil {
		return nil, classify("increment usage", err)
	}
	return &c, nil
}
