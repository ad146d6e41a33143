// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"log/slog"
	"net/http"

	"folio/internal/apperr"
	"folio/internal/category"
	"folio/internal/hierarchy"
	"folio/internal/markdown"
	"folio/internal/middleware"
	"folio/internal/models"
	"folio/internal/respond"
)

// WarningsHeader carries hierarchy diagnostics on tree responses.
const WarningsHeader = "X-Hierarchy-Warnings"

// Categories groups the category endpoints.
type Categories struct {
	svc *category.Service
}

// NewCategories creates the category handler group.
func NewCategories(svc *category.Service) *Categories {
	return &Categories{svc: svc}
}

// CategoryDetail is a category with its description rendered to HTML.
type CategoryDetail struct {
	models.Category
	DescriptionHTML string `json:"description_html"`
}

type usageRequest struct {
	Delta int `json:"delta"`
}

// readFilter resolves the active filter. Anonymous callers only ever see
// active categories and may not ask for inactive ones.
func readFilter(r *http.Request) (category.Filter, error) {
	active, err := boolQuery(r, "active")
	if err != nil {
		return category.Filter{}, err
	}
	if middleware.SessionFromCtx(r.Context()) == nil {
		if active != nil && !*active {
			return category.Filter{}, apperr.Unauthorized("authentication required to list inactive categories")
		}
		on := true
		active = &on
	}
	return category.Filter{Active: active}, nil
}

// List handles GET /categories. With hierarchy=true the response is the
// nested tree; otherwise a flat list grouped by parent scope.
func (h *Categories) List(w http.ResponseWriter, r *http.Request) {
	f, err := readFilter(r)
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	tree, err := boolQuery(r, "hierarchy")
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	if tree != nil && *tree {
		roots, diag, err := h.svc.Tree(r.Context(), f)
		if err != nil {
			respond.Error(w, r, err)
			return
		}
		if !diag.Empty() {
			w.Header().Set(WarningsHeader, diag.String())
		}
		if roots == nil {
			roots = []*hierarchy.Node{}
		}
		respond.JSON(w, http.StatusOK, roots)
		return
	}

	list, err := h.svc.List(r.Context(), f)
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	if list == nil {
		list = []models.Category{}
	}
	respond.JSON(w, http.StatusOK, list)
}

// FlatTree handles GET /categories/flat-tree.
func (h *Categories) FlatTree(w http.ResponseWriter, r *http.Request) {
	f, err := readFilter(r)
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	flat, err := h.svc.FlatTree(r.Context(), f)
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	if flat == nil {
		flat = []hierarchy.FlatNode{}
	}
	respond.JSON(w, http.StatusOK, flat)
}

// Get handles GET /categories/{id}. Inactive categories are hidden from
// anonymous callers.
func (h *Categories) Get(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	c, err := h.svc.Get(r.Context(), id)
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	if !c.Active && middleware.SessionFromCtx(r.Context()) == nil {
		respond.Error(w, r, apperr.NotFound("category %s not found", id))
		return
	}

	html, err := markdown.ToHTML(c.Description)
	if err != nil {
		slog.Warn("render category description", "id", id, "error", err)
	}
	respond.JSON(w, http.StatusOK, CategoryDetail{Category: *c, DescriptionHTML: html})
}

// Create handles POST /categories.
func (h *Categories) Create(w http.ResponseWriter, r *http.Request) {
	var in category.CreateInput
	if err := decodeJSON(w, r, &in); err != nil {
		respond.Error(w, r, err)
		return
	}
	c, err := h.svc.Create(r.Context(), in)
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	respond.JSON(w, http.StatusCreated, c)
}

// Update handles PATCH /categories/{id}.
func (h *Categories) Update(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	var in category.UpdateInput
	if err := decodeJSON(w, r, &in); err != nil {
		respond.Error(w, r, err)
		return
	}
	c, err := h.svc.Update(r.Context(), id, in)
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, c)
}

// Delete handles DELETE /categories/{id}.
func (h *Categories) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	if err := h.svc.Delete(r.Context(), id); err != nil {
		respond.Error(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Reorder handles PATCH /categories/reorder. The body is the array of
// {id, order, parent_id[, version]} moves; the response is every member
// of the affected sibling scopes.
func (h *Categories) Reorder(w http.ResponseWriter, r *http.Request) {
	var moves []category.Move
	if err := decodeJSON(w, r, &moves); err != nil {
		respond.Error(w, r, err)
		return
	}
	out, err := h.svc.Reorder(r.Context(), moves)
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, out)
}

// IncrementUsage handles POST /categories/{id}/usage.
func (h *Categories) IncrementUsage(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	var req usageRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respond.Error(w, r, err)
		return
	}
	c, err := h.svc.IncrementUsage(r.Context(), id, req.Delta)
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, c)
}
