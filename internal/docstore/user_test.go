// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package docstore

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"folio/internal/models"
)

func TestUserStore(t *testing.T) {
	_, db := testDB(t)
	s := NewUserStore(db)
	ctx := context.Background()

	u, err := s.Create(ctx, "Editor@Folio.local", "pw", "Editor", models.RoleEditor)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	found, err := s.FindByEmail(ctx, "editor@folio.local")
	if err != nil || found == nil || found.ID != u.ID {
		t.Fatalf("find by email: %+v, %v", found, err)
	}
	if !s.CheckPassword(found, "pw") {
		t.Error("password should match")
	}

	missing, err := s.FindByID(ctx, uuid.New())
	if err != nil || missing != nil {
		t.Errorf("missing: %+v, %v", missing, err)
	}

	if _, err := s.Create(ctx, "editor@folio.local", "pw", "Twin", models.RoleEditor); err == nil {
		t.Error("duplicate email should fail")
	}

	n, err := s.Count(ctx)
	if err != nil || n != 1 {
		t.Errorf("count = %d, %v", n, err)
	}
}

func TestCacheLogStore(t *testing.T) {
	_, db := testDB(t)
	s := NewCacheLogStore(db)
	ctx := context.Background()

	id := uuid.New()
	s.Log(ctx, id, "update")
	s.Log(ctx, id, "delete")

	entries, err := s.RecentEntries(ctx, 1)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(entries) != 1 || entries[0].EntityID != id {
		t.Errorf("entries = %+v", entries)
	}
}
