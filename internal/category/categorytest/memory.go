// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package categorytest provides an in-memory category.Repository for tests.
package categorytest

import (
	"context"
	"regexp"
	"sync"
	"time"

	"github.com/google/uuid"

	"folio/internal/apperr"
	"folio/internal/category"
	"folio/internal/hierarchy"
	"folio/internal/models"
	"folio/internal/slug"
)

// Memory is a category.Repository backed by a slice. Every method holds
// a single mutex, so writes are fully serialized.
type Memory struct {
	mu    sync.Mutex
	items []models.Category

	// Latency delays every call; a call whose context ends first returns
	// the context error.
	Latency time.Duration
	// Err, when set, is returned by every call.
	Err error

	calls int
}

// NewMemory returns a repository seeded with cats, kept in the given order.
func NewMemory(cats ...models.Category) *Memory {
	m := &Memory{}
	m.items = append(m.items, cats...)
	return m
}

var _ category.Repository = (*Memory)(nil)

// Calls reports how many repository methods were invoked.
func (m *Memory) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func (m *Memory) enter(ctx context.Context) error {
	m.calls++
	if m.Err != nil {
		return m.Err
	}
	if m.Latency > 0 {
		t := time.NewTimer(m.Latency)
		defer t.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
		}
	}
	return ctx.Err()
}

func (m *Memory) index(id uuid.UUID) int {
	for i := range m.items {
		if m.items[i].ID == id {
			return i
		}
	}
	return -1
}

func (m *Memory) nextOrder(parent *uuid.UUID) int {
	next := 0
	for i := range m.items {
		if models.SameParent(m.items[i].ParentID, parent) && m.items[i].Order >= next {
			next = m.items[i].Order + 1
		}
	}
	return next
}

func (m *Memory) uniqueSlug(base string, except uuid.UUID) string {
	pattern := regexp.MustCompile(`^` + regexp.QuoteMeta(base) + `(-\d+)?$`)
	var taken []string
	for i := range m.items {
		if m.items[i].ID != except && pattern.MatchString(m.items[i].Slug) {
			taken = append(taken, m.items[i].Slug)
		}
	}
	return slug.Unique(base, taken)
}

func (m *Memory) Create(ctx context.Context, c *models.Category) (*models.Category, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter(ctx); err != nil {
		return nil, err
	}

	if c.ParentID != nil && m.index(*c.ParentID) < 0 {
		return nil, apperr.Validation("parent category does not exist",
			apperr.FieldError{Field: "parent_id", Message: "does not exist"})
	}

	now := time.Now().UTC()
	created := *c
	if created.ID == uuid.Nil {
		created.ID = uuid.New()
	}
	created.Order = m.nextOrder(c.ParentID)
	created.Slug = m.uniqueSlug(c.Slug, created.ID)
	created.Version = 1
	created.CreatedAt = now
	created.UpdatedAt = now
	m.items = append(m.items, created)
	return &created, nil
}

func (m *Memory) FindByID(ctx context.Context, id uuid.UUID) (*models.Category, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter(ctx); err != nil {
		return nil, err
	}

	i := m.index(id)
	if i < 0 {
		return nil, apperr.NotFound("category %s not found", id)
	}
	c := m.items[i]
	return &c, nil
}

func (m *Memory) List(ctx context.Context, f category.Filter) ([]models.Category, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter(ctx); err != nil {
		return nil, err
	}

	out := make([]models.Category, 0, len(m.items))
	for i := range m.items {
		if f.Matches(&m.items[i]) {
			out = append(out, m.items[i])
		}
	}
	return out, nil
}

func (m *Memory) Update(ctx context.Context, id uuid.UUID, p category.Patch) (*models.Category, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter(ctx); err != nil {
		return nil, err
	}

	i := m.index(id)
	if i < 0 {
		return nil, apperr.NotFound("category %s not found", id)
	}
	if p.Slug != nil {
		sl := m.uniqueSlug(*p.Slug, id)
		p.Slug = &sl
	}
	c := &m.items[i]
	p.Apply(c)
	c.Version++
	c.UpdatedAt = time.Now().UTC()
	out := *c
	return &out, nil
}

func (m *Memory) Delete(ctx context.Context, id uuid.UUID, policy category.DeletePolicy) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter(ctx); err != nil {
		return err
	}

	i := m.index(id)
	if i < 0 {
		return apperr.NotFound("category %s not found", id)
	}
	target := m.items[i]

	var children []int
	for j := range m.items {
		if p := m.items[j].ParentID; p != nil && *p == id {
			children = append(children, j)
		}
	}

	remove := map[uuid.UUID]bool{id: true}
	switch policy {
	case category.DeleteCascade:
		for _, d := range hierarchy.Descendants(m.items, id) {
			remove[d] = true
		}
	case category.DeleteReparent:
		next := m.nextOrder(target.ParentID)
		kids := make([]models.Category, len(children))
		for k, j := range children {
			kids[k] = m.items[j]
		}
		hierarchy.SortByScope(kids)
		now := time.Now().UTC()
		for k, kid := range kids {
			j := m.index(kid.ID)
			m.items[j].ParentID = target.ParentID
			m.items[j].Order = next + k
			m.items[j].Version++
			m.items[j].UpdatedAt = now
		}
	default:
		if len(children) > 0 {
			return apperr.Conflict("category %s has %d child categories; move or delete them first", id, len(children))
		}
	}

	kept := m.items[:0]
	for _, c := range m.items {
		if !remove[c.ID] {
			kept = append(kept, c)
		}
	}
	m.items = kept
	return nil
}

func (m *Memory) Reorder(ctx context.Context, plan category.PlanFunc) ([]models.Category, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter(ctx); err != nil {
		return nil, err
	}

	snapshot := make([]models.Category, len(m.items))
	copy(snapshot, m.items)

	p, err := plan(snapshot)
	if err != nil {
		return nil, err
	}

	// Check every guard before writing so a failure leaves nothing behind.
	for _, c := range p.Changed {
		i := m.index(c.ID)
		if i < 0 || m.items[i].Version != c.Version {
			return nil, apperr.Conflict("category %s changed during reorder; reload and retry", c.ID)
		}
	}

	now := time.Now().UTC()
	written := make(map[uuid.UUID]models.Category, len(p.Changed))
	for _, c := range p.Changed {
		i := m.index(c.ID)
		m.items[i].ParentID = c.ParentID
		m.items[i].Order = c.Order
		m.items[i].Version++
		m.items[i].UpdatedAt = now
		written[c.ID] = m.items[i]
	}

	out := make([]models.Category, len(p.Affected))
	for k, c := range p.Affected {
		if w, ok := written[c.ID]; ok {
			c = w
		}
		out[k] = c
	}
	return out, nil
}

func (m *Memory) IncrementUsage(ctx context.Context, id uuid.UUID, delta int) (*models.Category, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter(ctx); err != nil {
		return nil, err
	}

	i := m.index(id)
	if i < 0 {
		return nil, apperr.NotFound("category %s not found", id)
	}
	c := &m.items[i]
	c.UsageCount += delta
	if c.UsageCount < 0 {
		c.UsageCount = 0
	}
	out := *c
	return &out, nil
}
