// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package category implements the category hierarchy: the repository
// contract the storage backends satisfy, input validation, and the
// Service that orchestrates creates, edits, deletes, and reorders.
package category

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"folio/internal/models"
)

// Filter narrows a list query. A nil Active returns every category.
type Filter struct {
	Active *bool
}

// Matches reports whether c passes the filter.
func (f Filter) Matches(c *models.Category) bool {
	return f.Active == nil || c.Active == *f.Active
}

// Patch carries the metadata fields an edit may change. Nil fields are
// left untouched. Order and parent are only changed through Reorder.
type Patch struct {
	Name        *string
	Slug        *string
	Description *string
	Color       *string
	Icon        *string
	Active      *bool
}

// Apply copies the set fields of p onto c.
func (p Patch) Apply(c *models.Category) {
	if p.Name != nil {
		c.Name = *p.Name
	}
	if p.Slug != nil {
		c.Slug = *p.Slug
	}
	if p.Description != nil {
		c.Description = *p.Description
	}
	if p.Color != nil {
		c.Color = *p.Color
	}
	if p.Icon != nil {
		c.Icon = *p.Icon
	}
	if p.Active != nil {
		c.Active = *p.Active
	}
}

// Empty reports whether the patch changes nothing.
func (p Patch) Empty() bool {
	return p.Name == nil && p.Slug == nil && p.Description == nil &&
		p.Color == nil && p.Icon == nil && p.Active == nil
}

// DeletePolicy decides what happens to the children of a deleted category.
type DeletePolicy string

const (
	// DeleteReject refuses to delete a category that still has children.
	DeleteReject DeletePolicy = "reject"
	// DeleteCascade deletes the whole subtree.
	DeleteCascade DeletePolicy = "cascade"
	// DeleteReparent moves the children to the deleted category's parent,
	// appended after the existing siblings in their current order.
	DeleteReparent DeletePolicy = "reparent"
)

// ParseDeletePolicy validates a configured policy name. Empty means reject.
func ParseDeletePolicy(s string) (DeletePolicy, error) {
	switch p := DeletePolicy(s); p {
	case "":
		return DeleteReject, nil
	case DeleteReject, DeleteCascade, DeleteReparent:
		return p, nil
	default:
		return "", fmt.Errorf("unknown delete policy %q (want reject, cascade or reparent)", s)
	}
}

// Plan is the outcome of a reorder computed against a locked snapshot.
type Plan struct {
	// Affected is the final state of every member of each scope the
	// reorder touched, grouped by scope and sorted by Order.
	Affected []models.Category
	// Changed is the subset of Affected whose Order or ParentID differs
	// from the snapshot. Each entry still carries the snapshot Version,
	// which the store uses as its write guard.
	Changed []models.Category
}

// PlanFunc computes a Plan from every stored category, in insertion order.
type PlanFunc func(snapshot []models.Category) (*Plan, error)

// Repository persists categories. Implementations must return apperr
// errors for the classified cases: NotFound for a missing ID, Validation
// for a missing parent on create, Conflict for a blocked delete or a lost
// write guard.
type Repository interface {
	// Create assigns Order = max+1 within the parent scope and makes the
	// slug unique, then inserts c.
	Create(ctx context.Context, c *models.Category) (*models.Category, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Category, error)
	// List returns the matching categories in insertion order.
	List(ctx context.Context, f Filter) ([]models.Category, error)
	Update(ctx context.Context, id uuid.UUID, p Patch) (*models.Category, error)
	Delete(ctx context.Context, id uuid.UUID, policy DeletePolicy) error
	// Reorder locks every category, hands the snapshot to plan, and writes
	// plan's Changed entries in one transaction. It returns Affected with
	// the post-write versions.
	Reorder(ctx context.Context, plan PlanFunc) ([]models.Category, error)
	// IncrementUsage adds delta to the usage counter, clamped at zero.
	IncrementUsage(ctx context.Context, id uuid.UUID, delta int) (*models.Category, error)
}
