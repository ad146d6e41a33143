// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package hierarchy turns a flat category list into a nested tree. It is
// pure: no I/O, no shared state, and it tolerates malformed input (dangling
// parents, parent cycles) by reporting it instead of failing.
package hierarchy

import (
	"fmt"
	"sort"

	"github.com/google/uuid"

	"folio/internal/models"
)

// Node is a category with its resolved children. Children are ordered by
// Order, ties broken by the position of the category in the input.
type Node struct {
	models.Category
	Depth    int     `json:"depth"`
	Children []*Node `json:"children"`

	seq int
}

// Diagnostics lists the integrity problems found while building a tree.
type Diagnostics struct {
	// Orphans are categories whose parent is not in the input. They are
	// promoted to roots.
	Orphans []uuid.UUID `json:"orphans,omitempty"`
	// Cycles holds, for each parent cycle, the member promoted to a root so
	// the rest of the loop stays reachable.
	Cycles []uuid.UUID `json:"cycles,omitempty"`
}

// Empty reports whether the input was a well-formed forest.
func (d Diagnostics) Empty() bool {
	return len(d.Orphans) == 0 && len(d.Cycles) == 0
}

func (d Diagnostics) String() string {
	return fmt.Sprintf("orphans=%d cycles=%d", len(d.Orphans), len(d.Cycles))
}

// Build nests flat into a forest. It indexes the input once, so the work
// is linear in len(flat) apart from sorting each sibling list. Every input
// category appears exactly once in the result; duplicate IDs keep their
// first occurrence.
func Build(flat []models.Category) ([]*Node, Diagnostics) {
	var diag Diagnostics

	nodes := make([]*Node, 0, len(flat))
	byID := make(map[uuid.UUID]*Node, len(flat))
	for i := range flat {
		if _, dup := byID[flat[i].ID]; dup {
			continue
		}
		n := &Node{Category: flat[i], seq: i, Children: []*Node{}}
		nodes = append(nodes, n)
		byID[n.ID] = n
	}

	var roots []*Node
	children := make(map[uuid.UUID][]*Node, len(nodes))
	for _, n := range nodes {
		switch {
		case n.ParentID == nil:
			roots = append(roots, n)
		case byID[*n.ParentID] == nil:
			diag.Orphans = append(diag.Orphans, n.ID)
			roots = append(roots, n)
		default:
			children[*n.ParentID] = append(children[*n.ParentID], n)
		}
	}

	for _, kids := range children {
		sortNodes(kids)
	}
	sortNodes(roots)

	visited := make(map[uuid.UUID]bool, len(nodes))
	var attach func(n *Node, depth int)
	attach = func(n *Node, depth int) {
		visited[n.ID] = true
		n.Depth = depth
		for _, child := range children[n.ID] {
			// A visited child closes a loop back to the cycle entry.
			if visited[child.ID] {
				continue
			}
			n.Children = append(n.Children, child)
			attach(child, depth+1)
		}
	}
	for _, r := range roots {
		attach(r, 0)
	}

	// Whatever is still unvisited hangs off a parent cycle. Walk up from
	// the first such node until a category repeats; that one is on the
	// loop and becomes a root.
	for _, n := range nodes {
		if visited[n.ID] {
			continue
		}
		entry := cycleEntry(n, byID)
		diag.Cycles = append(diag.Cycles, entry.ID)
		roots = append(roots, entry)
		attach(entry, 0)
	}

	if roots == nil {
		roots = []*Node{}
	}
	return roots, diag
}

func cycleEntry(start *Node, byID map[uuid.UUID]*Node) *Node {
	seen := make(map[uuid.UUID]bool)
	cur := start
	for !seen[cur.ID] {
		seen[cur.ID] = true
		cur = byID[*cur.ParentID]
	}
	return cur
}

func sortNodes(ns []*Node) {
	sort.Slice(ns, func(i, j int) bool {
		if ns[i].Order != ns[j].Order {
			return ns[i].Order < ns[j].Order
		}
		return ns[i].seq < ns[j].seq
	})
}

// FlatNode is a category annotated with its depth in the tree.
type FlatNode struct {
	models.Category
	Depth int `json:"depth"`
}

// Flatten walks a forest depth-first, parents before children, which is
// the order a nested dropdown or indented list renders in.
func Flatten(roots []*Node) []FlatNode {
	out := make([]FlatNode, 0, len(roots))
	var walk func(ns []*Node)
	walk = func(ns []*Node) {
		for _, n := range ns {
			out = append(out, FlatNode{Category: n.Category, Depth: n.Depth})
			walk(n.Children)
		}
	}
	walk(roots)
	return out
}

// Prune returns a copy of the forest without the nodes for which keep
// returns false. A dropped node takes its whole subtree with it.
func Prune(roots []*Node, keep func(*Node) bool) []*Node {
	out := make([]*Node, 0, len(roots))
	for _, n := range roots {
		if !keep(n) {
			continue
		}
		cp := *n
		cp.Children = Prune(n.Children, keep)
		out = append(out, &cp)
	}
	return out
}

// Count returns the number of nodes in the forest.
func Count(roots []*Node) int {
	total := 0
	for _, n := range roots {
		total += 1 + Count(n.Children)
	}
	return total
}
