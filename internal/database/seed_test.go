// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package database

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"folio/internal/category"
	"folio/internal/category/categorytest"
	"folio/internal/models"
)

type fakeUsers struct {
	created []string
}

func (f *fakeUsers) Count(context.Context) (int, error) { return len(f.created), nil }

func (f *fakeUsers) Create(_ context.Context, email, _, displayName string, role models.Role) (*models.User, error) {
	f.created = append(f.created, email)
	return &models.User{ID: uuid.New(), Email: email, DisplayName: displayName, Role: role}, nil
}

func TestSeedIdempotent(t *testing.T) {
	users := &fakeUsers{}
	svc := category.NewService(categorytest.NewMemory(), category.Options{})
	ctx := context.Background()

	if err := Seed(ctx, users, svc); err != nil {
		t.Fatalf("first Seed: %v", err)
	}
	if err := Seed(ctx, users, svc); err != nil {
		t.Fatalf("second Seed: %v", err)
	}

	if len(users.created) != 1 || users.created[0] != SeedAdminEmail {
		t.Errorf("users created = %v, want only the admin once", users.created)
	}

	all, err := svc.List(ctx, category.Filter{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 5 {
		t.Errorf("categories = %d, want 5", len(all))
	}

	tree, diag, err := svc.Tree(ctx, category.Filter{})
	if err != nil {
		t.Fatalf("tree: %v", err)
	}
	if !diag.Empty() || len(tree) != 3 || tree[0].Name != "Ideas" || len(tree[0].Children) != 2 {
		t.Errorf("unexpected seeded tree: %d roots, diag %s", len(tree), diag)
	}
}
