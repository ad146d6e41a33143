// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package category

import (
	"fmt"
	"sort"

	"github.com/google/uuid"

	"folio/internal/apperr"
	"folio/internal/hierarchy"
	"folio/internal/models"
)

// planReorder applies moves to snapshot and renumbers every affected
// sibling scope to 0..n-1. A scope is affected when a move leaves it or
// lands in it.
//
// Within a scope, members are ranked by their requested order (moved
// entries) or their current order (everyone else). A moved entry wins a
// tie against an unmoved sibling, so moving X to order 0 puts X first.
// Remaining ties fall back to payload position, then snapshot position.
func planReorder(snapshot []models.Category, moves []Move) (*Plan, error) {
	pos := make(map[uuid.UUID]int, len(snapshot))
	for i := range snapshot {
		pos[snapshot[i].ID] = i
	}

	var fields []apperr.FieldError
	for i, m := range moves {
		if _, ok := pos[m.ID]; !ok {
			fields = append(fields, apperr.FieldError{
				Field:   fmt.Sprintf("[%d].id", i),
				Message: fmt.Sprintf("category %s does not exist", m.ID),
			})
		}
		if m.ParentID != nil {
			if _, ok := pos[*m.ParentID]; !ok {
				fields = append(fields, apperr.FieldError{
					Field:   fmt.Sprintf("[%d].parent_id", i),
					Message: fmt.Sprintf("parent category %s does not exist", *m.ParentID),
				})
			}
		}
	}
	if len(fields) > 0 {
		return nil, apperr.Validation("invalid reorder", fields...)
	}

	for _, m := range moves {
		cur := snapshot[pos[m.ID]]
		if m.Version != nil && *m.Version != cur.Version {
			return nil, apperr.Conflict(
				"category %s was modified by another request (version %d, now %d); reload and retry",
				m.ID, *m.Version, cur.Version)
		}
	}

	parents := hierarchy.ParentsOf(snapshot)
	for _, m := range moves {
		parents[m.ID] = m.ParentID
	}
	for i, m := range moves {
		if !hierarchy.ReachesRoot(parents, m.ID) {
			fields = append(fields, apperr.FieldError{
				Field:   fmt.Sprintf("[%d].parent_id", i),
				Message: "would make the category its own ancestor",
			})
		}
	}
	if len(fields) > 0 {
		return nil, apperr.Validation("reorder would create a cycle", fields...)
	}

	// Scopes in the order the payload first touches them.
	var scopes []uuid.UUID
	affected := make(map[uuid.UUID]bool)
	touch := func(parent *uuid.UUID) {
		key := hierarchy.ScopeKey(parent)
		if !affected[key] {
			affected[key] = true
			scopes = append(scopes, key)
		}
	}
	moveAt := make(map[uuid.UUID]int, len(moves))
	for i, m := range moves {
		touch(m.ParentID)
		touch(snapshot[pos[m.ID]].ParentID)
		moveAt[m.ID] = i
	}

	type member struct {
		cat   models.Category
		rank  int
		moved bool
		tie   int
	}
	members := make(map[uuid.UUID][]member, len(scopes))
	for i := range snapshot {
		c := snapshot[i]
		parent := parents[c.ID]
		key := hierarchy.ScopeKey(parent)
		if !affected[key] {
			continue
		}
		m := member{cat: c, rank: c.Order, tie: len(moves) + i}
		if mi, ok := moveAt[c.ID]; ok {
			m.rank = moves[mi].Order
			m.moved = true
			m.tie = mi
		}
		m.cat.ParentID = parent
		members[key] = append(members[key], m)
	}

	plan := &Plan{}
	for _, key := range scopes {
		ms := members[key]
		sort.SliceStable(ms, func(i, j int) bool {
			if ms[i].rank != ms[j].rank {
				return ms[i].rank < ms[j].rank
			}
			if ms[i].moved != ms[j].moved {
				return ms[i].moved
			}
			return ms[i].tie < ms[j].tie
		})
		for order, m := range ms {
			c := m.cat
			c.Order = order
			plan.Affected = append(plan.Affected, c)
			before := snapshot[pos[c.ID]]
			if before.Order != c.Order || !models.SameParent(before.ParentID, c.ParentID) {
				plan.Changed = append(plan.Changed, c)
			}
		}
	}
	return plan, nil
}
