// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package hierarchy

import (
	"sort"

	"github.com/google/uuid"

	"folio/internal/models"
)

// Parents maps every category ID to its parent (nil for roots).
type Parents map[uuid.UUID]*uuid.UUID

// ParentsOf indexes the parent link of every category in flat.
func ParentsOf(flat []models.Category) Parents {
	p := make(Parents, len(flat))
	for i := range flat {
		p[flat[i].ID] = flat[i].ParentID
	}
	return p
}

// ReachesRoot reports whether following parent links from id ends at a
// root within len(p) hops. A parent outside p also ends the walk. A false
// result means id is on, or below, a parent cycle.
func ReachesRoot(p Parents, id uuid.UUID) bool {
	cur := id
	for hops := 0; hops <= len(p); hops++ {
		parent, ok := p[cur]
		if !ok || parent == nil {
			return true
		}
		if *parent == id {
			return false
		}
		cur = *parent
	}
	return false
}

// Descendants returns the IDs of every category below id, breadth-first.
// id itself is not included. Parent cycles are walked once.
func Descendants(flat []models.Category, id uuid.UUID) []uuid.UUID {
	children := make(map[uuid.UUID][]uuid.UUID, len(flat))
	for i := range flat {
		if pid := flat[i].ParentID; pid != nil {
			children[*pid] = append(children[*pid], flat[i].ID)
		}
	}

	seen := map[uuid.UUID]bool{id: true}
	var out []uuid.UUID
	queue := []uuid.UUID{id}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, child := range children[cur] {
			if seen[child] {
				continue
			}
			seen[child] = true
			out = append(out, child)
			queue = append(queue, child)
		}
	}
	return out
}

// ScopeKey identifies a sibling scope; the zero UUID stands for the root.
func ScopeKey(parent *uuid.UUID) uuid.UUID {
	if parent == nil {
		return uuid.Nil
	}
	return *parent
}

// SortByScope orders flat for list responses: scopes appear in the order
// their first member appears in flat (insertion order), and members of a
// scope follow ascending Order. flat is sorted in place and returned.
func SortByScope(flat []models.Category) []models.Category {
	rank := make(map[uuid.UUID]int)
	for i := range flat {
		key := ScopeKey(flat[i].ParentID)
		if _, ok := rank[key]; !ok {
			rank[key] = len(rank)
		}
	}
	sort.SliceStable(flat, func(i, j int) bool {
		ri, rj := rank[ScopeKey(flat[i].ParentID)], rank[ScopeKey(flat[j].ParentID)]
		if ri != rj {
			return ri < rj
		}
		return flat[i].Order < flat[j].Order
	})
	return flat
}
