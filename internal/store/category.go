// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"folio/internal/apperr"
	"folio/internal/category"
	"folio/internal/models"
	"folio/internal/slug"
)

// CategoryStore is the PostgreSQL category.Repository.
//
// Appends to a sibling scope are serialized with a transaction-scoped
// advisory lock keyed on the scope, so concurrent creates never share an
// order. Reorders lock every row with FOR UPDATE in insertion order.
type CategoryStore struct {
	db *sql.DB
}

// NewCategoryStore creates a new CategoryStore.
func NewCategoryStore(db *sql.DB) *CategoryStore {
	return &CategoryStore{db: db}
}

var _ category.Repository = (*CategoryStore)(nil)

// categoryColumns is the standard column list for category queries.
const categoryColumns = `id, name, slug, description, parent_id, sort_order, active,
	color, icon, usage_count, version, created_at, updated_at`

// scanCategory scans a row into a models.Category.
func scanCategory(scanner interface{ Scan(...any) error }) (*models.Category, error) {
	c := &models.Category{}
	err := scanner.Scan(
		&c.ID, &c.Name, &c.Slug, &c.Description, &c.ParentID, &c.Order, &c.Active,
		&c.Color, &c.Icon, &c.UsageCount, &c.Version, &c.CreatedAt, &c.UpdatedAt,
	)
	return c, err
}

func collect(rows *sql.Rows) ([]models.Category, error) {
	defer rows.Close()
	var out []models.Category
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}

const treeLockKey = "categories:tree"

// lockTree takes the tree-wide advisory lock until the transaction ends.
// Appends hold it shared, reorders hold it exclusive, so a reorder never
// renumbers a scope from a snapshot that misses a concurrent append.
// Take it before any scope lock.
func lockTree(ctx context.Context, tx *sql.Tx, exclusive bool) error {
	q := `SELECT pg_advisory_xact_lock_shared(hashtextextended($1, 0))`
	if exclusive {
		q = `SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`
	}
	_, err := tx.ExecContext(ctx, q, treeLockKey)
	return err
}

// lockScope takes the advisory lock for a sibling scope until the
// transaction ends.
func lockScope(ctx context.Context, tx *sql.Tx, parent *uuid.UUID) error {
	key := "categories:root"
	if parent != nil {
		key = "categories:" + parent.String()
	}
	_, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`, key)
	return err
}

func nextOrder(ctx context.Context, tx *sql.Tx, parent *uuid.UUID) (int, error) {
	var next int
	err := tx.QueryRowContext(ctx, `
		SELECT COALESCE(MAX(sort_order) + 1, 0) FROM categories
		WHERE parent_id IS NOT DISTINCT FROM $1
	`, parent).Scan(&next)
	return next, err
}

// uniqueSlug returns base, or base with a numeric suffix, that no other
// category uses. except excludes the category being renamed.
func uniqueSlug(ctx context.Context, tx *sql.Tx, base string, except uuid.UUID) (string, error) {
	rows, err := tx.QueryContext(ctx, `
		SELECT slug FROM categories
		WHERE (slug = $1 OR slug ~ ('^' || $1 || '-[0-9]+$')) AND id <> $2
	`, base, except)
	if err != nil {
		return "", err
	}
	defer rows.Close()

	var taken []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return "", err
		}
		taken = append(taken, s)
	}
	if err := rows.Err(); err != nil {
		return "", err
	}
	return slug.Unique(base, taken), nil
}

// Create inserts a category at the end of its parent scope.
func (s *CategoryStore) Create(ctx context.Context, c *models.Category) (*models.Category, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, classify("begin create", err)
	}
	defer tx.Rollback()

	if err := lockTree(ctx, tx, false); err != nil {
		return nil, classify("lock tree", err)
	}
	if err := lockScope(ctx, tx, c.ParentID); err != nil {
		return nil, classify("lock scope", err)
	}

	if c.ParentID != nil {
		// FOR KEY SHARE keeps the parent from being deleted before commit.
		var found uuid.UUID
		err := tx.QueryRowContext(ctx,
			`SELECT id FROM categories WHERE id = $1 FOR KEY SHARE`, c.ParentID).Scan(&found)
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.Validation("parent category does not exist",
				apperr.FieldError{Field: "parent_id", Message: "does not exist"})
		}
		if err != nil {
			return nil, classify("check parent", err)
		}
	}

	order, err := nextOrder(ctx, tx, c.ParentID)
	if err != nil {
		return nil, classify("next sort order", err)
	}
	sl, err := uniqueSlug(ctx, tx, c.Slug, c.ID)
	if err != nil {
		return nil, classify("unique slug", err)
	}

	created, err := scanCategory(tx.QueryRowContext(ctx, `
		INSERT INTO categories (id, name, slug, description, parent_id, sort_order, active, color, icon)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING `+categoryColumns,
		c.ID, c.Name, sl, c.Description, c.ParentID, order, c.Active, c.Color, c.Icon,
	))
	if err != nil {
		return nil, classify("create category", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, classify("commit create", err)
	}
	return created, nil
}

// FindByID retrieves a category by its UUID.
func (s *CategoryStore) FindByID(ctx context.Context, id uuid.UUID) (*models.Category, error) {
	c, err := scanCategory(s.db.QueryRowContext(ctx,
		`SELECT `+categoryColumns+` FROM categories WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("category %s not found", id)
	}
	if err != nil {
		return nil, classify("find category", err)
	}
	return c, nil
}

// List returns the categories matching f in insertion order.
func (s *CategoryStore) List(ctx context.Context, f category.Filter) ([]models.Category, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+categoryColumns+` FROM categories
		WHERE $1::boolean IS NULL OR active = $1
		ORDER BY seq
	`, f.Active)
	if err != nil {
		return nil, classify("list categories", err)
	}
	out, err := collect(rows)
	if err != nil {
		return nil, classify("list categories", err)
	}
	return out, nil
}

// Update applies a metadata patch and bumps the version.
func (s *CategoryStore) Update(ctx context.Context, id uuid.UUID, p category.Patch) (*models.Category, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, classify("begin update", err)
	}
	defer tx.Rollback()

	c, err := scanCategory(tx.QueryRowContext(ctx,
		`SELECT `+categoryColumns+` FROM categories WHERE id = $1 FOR UPDATE`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("category %s not found", id)
	}
	if err != nil {
		return nil, classify("lock category", err)
	}

	if p.Slug != nil {
		sl, err := uniqueSlug(ctx, tx, *p.Slug, id)
		if err != nil {
			return nil, classify("unique slug", err)
		}
		p.Slug = &sl
	}
	p.Apply(c)

	updated, err := scanCategory(tx.QueryRowContext(ctx, `
		UPDATE categories
		SET name = $1, slug = $2, description = $3, color = $4, icon = $5, active = $6,
		    version = version + 1, updated_at = NOW()
		WHERE id = $7
		RETURNING `+categoryColumns,
		c.Name, c.Slug, c.Description, c.Color, c.Icon, c.Active, id,
	))
	if err != nil {
		return nil, classify("update category", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, classify("commit update", err)
	}
	return updated, nil
}

// Delete removes a category, handling its children per policy.
func (s *CategoryStore) Delete(ctx context.Context, id uuid.UUID, policy category.DeletePolicy) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return classify("begin delete", err)
	}
	defer tx.Rollback()

	if err := lockTree(ctx, tx, false); err != nil {
		return classify("lock tree", err)
	}

	var parent *uuid.UUID
	err = tx.QueryRowContext(ctx, `SELECT parent_id FROM categories WHERE id = $1 FOR UPDATE`, id).Scan(&parent)
	if errors.Is(err, sql.ErrNoRows) {
		return apperr.NotFound("category %s not found", id)
	}
	if err != nil {
		return classify("lock category", err)
	}

	var children int
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM categories WHERE parent_id = $1`, id).Scan(&children); err != nil {
		return classify("count children", err)
	}

	switch policy {
	case category.DeleteCascade:
		_, err = tx.ExecContext(ctx, `
			WITH RECURSIVE subtree AS (
				SELECT id FROM categories WHERE id = $1
				UNION
				SELECT c.id FROM categories c JOIN subtree s ON c.parent_id = s.id
			)
			DELETE FROM categories WHERE id IN (SELECT id FROM subtree)
		`, id)
		if err != nil {
			return classify("cascade delete", err)
		}

	case category.DeleteReparent:
		if children > 0 {
			if err := lockScope(ctx, tx, parent); err != nil {
				return classify("lock scope", err)
			}
			next, err := nextOrder(ctx, tx, parent)
			if err != nil {
				return classify("next sort order", err)
			}
			_, err = tx.ExecContext(ctx, `
				UPDATE categories AS c
				SET parent_id = $1, sort_order = $2 + sub.rn, version = c.version + 1, updated_at = NOW()
				FROM (
					SELECT id, ROW_NUMBER() OVER (ORDER BY sort_order, seq) - 1 AS rn
					FROM categories WHERE parent_id = $3
				) AS sub
				WHERE c.id = sub.id
			`, parent, next, id)
			if err != nil {
				return classify("reparent children", err)
			}
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM categories WHERE id = $1`, id); err != nil {
			return classify("delete category", err)
		}

	default:
		if children > 0 {
			return apperr.Conflict("category %s has %d child categories; move or delete them first", id, children)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM categories WHERE id = $1`, id); err != nil {
			return classify("delete category", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return classify("commit delete", err)
	}
	return nil
}

// Reorder locks every category, lets plan compute the new layout, and
// writes the changed rows guarded by their snapshot version.
func (s *CategoryStore) Reorder(ctx context.Context, plan category.PlanFunc) ([]models.Category, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, classify("begin reorder", err)
	}
	defer tx.Rollback()

	if err := lockTree(ctx, tx, true); err != nil {
		return nil, classify("lock tree", err)
	}
	rows, err := tx.QueryContext(ctx, `SELECT `+categoryColumns+` FROM categories ORDER BY seq FOR UPDATE`)
	if err != nil {
		return nil, classify("lock categories", err)
	}
	snapshot, err := collect(rows)
	if err != nil {
		return nil, classify("lock categories", err)
	}

	p, err := plan(snapshot)
	if err != nil {
		return nil, err
	}

	stmt, err := tx.PrepareContext(ctx, `
		UPDATE categories
		SET parent_id = $1, sort_order = $2, version = version + 1, updated_at = NOW()
		WHERE id = $3 AND version = $4
		RETURNING version, updated_at
	`)
	if err != nil {
		return nil, classify("prepare reorder", err)
	}
	defer stmt.Close()

	written := make(map[uuid.UUID]models.Category, len(p.Changed))
	for _, c := range p.Changed {
		err := stmt.QueryRowContext(ctx, c.ParentID, c.Order, c.ID, c.Version).Scan(&c.Version, &c.UpdatedAt)
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.Conflict("category %s changed during reorder; reload and retry", c.ID)
		}
		if err != nil {
			return nil, classify(fmt.Sprintf("reorder category %s", c.ID), err)
		}
		written[c.ID] = c
	}

	if err := tx.Commit(); err != nil {
		return nil, classify("commit reorder", err)
	}

	out := make([]models.Category, len(p.Affected))
	for i, c := range p.Affected {
		if w, ok := written[c.ID]; ok {
			c = w
		}
		out[i] = c
	}
	return out, nil
}

// IncrementUsage adds delta to usage_count, never going below zero. The
// counter is not part of the version guard.
func (s *CategoryStore) IncrementUsage(ctx context.Context, id uuid.UUID, delta int) (*models.Category, error) {
	c, err := scanCategory(s.db.QueryRowContext(ctx, `
		UPDATE categories SET usage_count = GREATEST(usage_count + $1, 0), updated_at = NOW()
		WHERE id = $2
		RETURNING `+categoryColumns,
		delta, id,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("category %s not found", id)
	}
	if err != nil {
		return nil, classify("increment usage", err)
	}
	return c, nil
}
