// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package models

import (
	"time"

	"github.com/google/uuid"
)

// Category is one node of the content taxonomy. Siblings share a ParentID
// (nil for roots) and are ordered by Order, which the store keeps 0-based
// and contiguous within each sibling scope.
type Category struct {
	ID          uuid.UUID  `json:"id"`
	Name        string     `json:"name"`
	Slug        string     `json:"slug"`
	Description string     `json:"description"`
	ParentID    *uuid.UUID `json:"parent_id"`
	Order       int        `json:"order"`
	Active      bool       `json:"active"`
	Color       string     `json:"color"`
	Icon        string     `json:"icon"`
	UsageCount  int        `json:"usage_count"`
	Version     int        `json:"version"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// IsRoot reports whether the category sits at the top level.
func (c *Category) IsRoot() bool {
	return c.ParentID == nil
}

// SameParent reports whether two parent references point at the same scope.
func SameParent(a, b *uuid.UUID) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

// CacheLogEntry records one cache invalidation triggered by a category write.
type CacheLogEntry struct {
	ID            int64     `json:"id"`
	EntityType    string    `json:"entity_type"`
	EntityID      uuid.UUID `json:"entity_id"`
	Action        string    `json:"action"`
	InvalidatedAt time.Time `json:"invalidated_at"`
}
