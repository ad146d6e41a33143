// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"

	"folio/internal/apperr"
	"folio/internal/models"
)

type fakeCacheLog struct {
	entries []models.CacheLogEntry
	limit   int
}

func (f *fakeCacheLog) RecentEntries(_ context.Context, limit int) ([]models.CacheLogEntry, error) {
	f.limit = limit
	if limit < len(f.entries) {
		return f.entries[:limit], nil
	}
	return f.entries, nil
}

func TestCacheLog(t *testing.T) {
	log := &fakeCacheLog{entries: []models.CacheLogEntry{
		{ID: 2, EntityType: "category", EntityID: uuid.New(), Action: "update"},
		{ID: 1, EntityType: "category", EntityID: uuid.New(), Action: "create"},
	}}
	h := NewAdmin(log)

	rr := serve(h.CacheLog, httptest.NewRequest(http.MethodGet, "/admin/cache-log", nil))
	if got := decode[[]models.CacheLogEntry](t, rr); len(got) != 2 || log.limit != 50 {
		t.Errorf("entries = %+v, limit = %d", got, log.limit)
	}

	rr = serve(h.CacheLog, httptest.NewRequest(http.MethodGet, "/admin/cache-log?limit=1", nil))
	if got := decode[[]models.CacheLogEntry](t, rr); len(got) != 1 || got[0].Action != "update" {
		t.Errorf("entries = %+v", got)
	}

	for _, q := range []string{"0", "501", "ten"} {
		rr = serve(h.CacheLog, httptest.NewRequest(http.MethodGet, "/admin/cache-log?limit="+q, nil))
		assertError(t, rr, http.StatusBadRequest, apperr.KindValidation)
	}
}
