// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package category

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"folio/internal/apperr"
	"folio/internal/hierarchy"
	"folio/internal/models"
	"folio/internal/slug"
)

// DefaultTimeout bounds every store call when Options.Timeout is zero.
const DefaultTimeout = 5 * time.Second

// fallbackSlug is used when a name has no ASCII letters or digits.
const fallbackSlug = "category"

// Options configures a Service.
type Options struct {
	DeletePolicy DeletePolicy
	Timeout      time.Duration
}

// Service is the category API used by the HTTP handlers. It validates
// input, bounds store calls with a timeout, and plans reorders.
type Service struct {
	repo     Repository
	policy   DeletePolicy
	timeout  time.Duration
	validate *validator.Validate
}

// NewService creates a Service over repo.
func NewService(repo Repository, opts Options) *Service {
	if opts.DeletePolicy == "" {
		opts.DeletePolicy = DeleteReject
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	return &Service{
		repo:     repo,
		policy:   opts.DeletePolicy,
		timeout:  opts.Timeout,
		validate: newValidator(),
	}
}

// DeletePolicy returns the child policy applied by Delete.
func (s *Service) DeletePolicy() DeletePolicy {
	return s.policy
}

func (s *Service) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.timeout)
}

// wrap adds op context to a store error and turns deadlines into
// Unavailable. The original kind is preserved.
func wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", op, apperr.FromContext(op, err))
}

// Create validates in and appends the new category at the end of its
// parent scope.
func (s *Service) Create(ctx context.Context, in CreateInput) (*models.Category, error) {
	if err := s.validateCreate(&in); err != nil {
		return nil, err
	}

	active := true
	if in.Active != nil {
		active = *in.Active
	}
	c := &models.Category{
		ID:          uuid.New(),
		Name:        in.Name,
		Slug:        slugFor(in.Name),
		Description: in.Description,
		ParentID:    in.ParentID,
		Active:      active,
		Color:       in.Color,
		Icon:        in.Icon,
	}

	ctx, cancel := s.bound(ctx)
	defer cancel()

	created, err := s.repo.Create(ctx, c)
	if err != nil {
		return nil, wrap("create category", err)
	}
	slog.Info("category created", "id", created.ID, "parent_id", created.ParentID, "order", created.Order)
	return created, nil
}

// Get returns a single category.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*models.Category, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()

	c, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, wrap("get category", err)
	}
	return c, nil
}

// List returns the categories matching f, grouped by sibling scope and
// ordered by Order within each scope.
func (s *Service) List(ctx context.Context, f Filter) ([]models.Category, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()

	out, err := s.repo.List(ctx, f)
	if err != nil {
		return nil, wrap("list categories", err)
	}
	return hierarchy.SortByScope(out), nil
}

// Tree returns the nested hierarchy. It is built from every category so
// integrity diagnostics cover the whole store; the active filter then
// drops non-matching nodes together with their subtrees.
func (s *Service) Tree(ctx context.Context, f Filter) ([]*hierarchy.Node, hierarchy.Diagnostics, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()

	all, err := s.repo.List(ctx, Filter{})
	if err != nil {
		return nil, hierarchy.Diagnostics{}, wrap("category tree", err)
	}

	tree, diag := hierarchy.Build(all)
	if !diag.Empty() {
		slog.Warn("category hierarchy is inconsistent",
			"orphans", diag.Orphans,
			"cycles", diag.Cycles,
		)
	}
	if f.Active != nil {
		tree = hierarchy.Prune(tree, func(n *hierarchy.Node) bool { return f.Matches(&n.Category) })
	}
	return tree, diag, nil
}

// FlatTree returns the hierarchy flattened depth-first with depths.
func (s *Service) FlatTree(ctx context.Context, f Filter) ([]hierarchy.FlatNode, error) {
	tree, _, err := s.Tree(ctx, f)
	if err != nil {
		return nil, err
	}
	return hierarchy.Flatten(tree), nil
}

// Update edits name and metadata. Renaming regenerates the slug.
func (s *Service) Update(ctx context.Context, id uuid.UUID, in UpdateInput) (*models.Category, error) {
	if err := s.validateUpdate(&in); err != nil {
		return nil, err
	}

	p := Patch{
		Name:        in.Name,
		Description: in.Description,
		Color:       in.Color,
		Icon:        in.Icon,
		Active:      in.Active,
	}
	if in.Name != nil {
		sl := slugFor(*in.Name)
		p.Slug = &sl
	}

	ctx, cancel := s.bound(ctx)
	defer cancel()

	updated, err := s.repo.Update(ctx, id, p)
	if err != nil {
		return nil, wrap("update category", err)
	}
	slog.Info("category updated", "id", id, "version", updated.Version)
	return updated, nil
}

// Delete removes a category, applying the configured child policy.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	ctx, cancel := s.bound(ctx)
	defer cancel()

	if err := s.repo.Delete(ctx, id, s.policy); err != nil {
		return wrap("delete category", err)
	}
	slog.Info("category deleted", "id", id, "policy", s.policy)
	return nil
}

// Reorder applies a batch of order and parent changes atomically. Either
// every move lands or none does. It returns the final state of every
// category in the affected sibling scopes.
func (s *Service) Reorder(ctx context.Context, moves []Move) ([]models.Category, error) {
	if err := validateMoves(moves); err != nil {
		return nil, err
	}

	ctx, cancel := s.bound(ctx)
	defer cancel()

	affected, err := s.repo.Reorder(ctx, func(snapshot []models.Category) (*Plan, error) {
		return planReorder(snapshot, moves)
	})
	if err != nil {
		return nil, wrap("reorder categories", err)
	}
	slog.Info("categories reordered", "moves", len(moves), "affected", len(affected))
	return affected, nil
}

// IncrementUsage adjusts the usage counter by delta. The counter never
// drops below zero.
func (s *Service) IncrementUsage(ctx context.Context, id uuid.UUID, delta int) (*models.Category, error) {
	if delta == 0 {
		return nil, apperr.Validation("invalid usage change", apperr.FieldError{Field: "delta", Message: "must not be zero"})
	}

	ctx, cancel := s.bound(ctx)
	defer cancel()

	c, err := s.repo.IncrementUsage(ctx, id, delta)
	if err != nil {
		return nil, wrap("increment usage", err)
	}
	return c, nil
}

func slugFor(name string) string {
	if sl := slug.Generate(name); sl != "" {
		return sl
	}
	return fallbackSlug
}
