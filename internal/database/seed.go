// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package database

import (
	"context"
	"fmt"
	"log/slog"

	"folio/internal/category"
	"folio/internal/models"
)

// Development credentials created by Seed.
const (
	SeedAdminEmail    = "admin@folio.local"
	SeedAdminPassword = "admin"
)

// UserSeeder is the part of a user store Seed needs.
type UserSeeder interface {
	Count(ctx context.Context) (int, error)
	Create(ctx context.Context, email, password, displayName string, role models.Role) (*models.User, error)
}

// seedTree is the starter taxonomy: top-level names mapped to children.
var seedTree = []struct {
	name     string
	children []string
}{
	{"Ideas", []string{"Wireframes", "Sketches"}},
	{"Projects", nil},
	{"Archive", nil},
}

// Seed populates an empty store with development data: a default admin
// user and a small category tree. Each part is skipped when data exists.
func Seed(ctx context.Context, users UserSeeder, cats *category.Service) error {
	count, err := users.Count(ctx)
	if err != nil {
		return fmt.Errorf("seed check users: %w", err)
	}
	if count == 0 {
		if _, err := users.Create(ctx, SeedAdminEmail, SeedAdminPassword, "Admin", models.RoleAdmin); err != nil {
			return fmt.Errorf("seed insert admin: %w", err)
		}
		slog.Info("database seeded with default admin user",
			"email", SeedAdminEmail,
			"password", SeedAdminPassword,
		)
	}

	existing, err := cats.List(ctx, category.Filter{})
	if err != nil {
		return fmt.Errorf("seed check categories: %w", err)
	}
	if len(existing) > 0 {
		slog.Info("categories already seeded, skipping")
		return nil
	}

	for _, root := range seedTree {
		parent, err := cats.Create(ctx, category.CreateInput{Name: root.name})
		if err != nil {
			return fmt.Errorf("seed category %q: %w", root.name, err)
		}
		for _, child := range root.children {
			id := parent.ID
			if _, err := cats.Create(ctx, category.CreateInput{Name: child, ParentID: &id}); err != nil {
				return fmt.Errorf("seed category %q: %w", child, err)
			}
		}
	}
	slog.Info("database seeded with starter categories")
	return nil
}
