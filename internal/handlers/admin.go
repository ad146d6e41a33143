// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"context"
	"net/http"

	"folio/internal/models"
	"folio/internal/respond"
)

// CacheLog reads the cache invalidation history.
type CacheLog interface {
	RecentEntries(ctx context.Context, limit int) ([]models.CacheLogEntry, error)
}

// Admin groups admin-only maintenance endpoints.
type Admin struct {
	cacheLog CacheLog
}

// NewAdmin creates the admin handler group.
func NewAdmin(cacheLog CacheLog) *Admin {
	return &Admin{cacheLog: cacheLog}
}

// CacheLog handles GET /admin/cache-log?limit=N.
func (a *Admin) CacheLog(w http.ResponseWriter, r *http.Request) {
	limit, err := intQuery(r, "limit", 50, 500)
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	entries, err := a.cacheLog.RecentEntries(r.Context(), limit)
	if err != nil {
		respond.Error(w, r, err)
		return
	}
	if entries == nil {
		entries = []models.CacheLogEntry{}
	}
	respond.JSON(w, http.StatusOK, entries)
}
