// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package category

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"folio/internal/apperr"
)

// CreateInput is the payload of a create request.
type CreateInput struct {
	Name        string     `json:"name" validate:"required,max=200"`
	ParentID    *uuid.UUID `json:"parent_id"`
	Description string     `json:"description" validate:"max=2000"`
	Color       string     `json:"color" validate:"omitempty,hexcolor"`
	Icon        string     `json:"icon" validate:"max=64"`
	Active      *bool      `json:"active"`
}

// UpdateInput is the payload of an edit request. Absent fields are kept.
type UpdateInput struct {
	Name        *string `json:"name" validate:"omitnil,max=200"`
	Description *string `json:"description" validate:"omitnil,max=2000"`
	Color       *string `json:"color"`
	Icon        *string `json:"icon" validate:"omitnil,max=64"`
	Active      *bool   `json:"active"`
}

// Move is one entry of a reorder request.
type Move struct {
	ID       uuid.UUID  `json:"id"`
	Order    int        `json:"order"`
	ParentID *uuid.UUID `json:"parent_id"`
	// Version, when set, must match the stored version or the whole
	// reorder fails with a conflict.
	Version *int `json:"version,omitempty"`
}

// newValidator reports field errors under their JSON names.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// fieldErrors converts validator output into apperr field errors.
func fieldErrors(err error) []apperr.FieldError {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []apperr.FieldError{{Field: "", Message: err.Error()}}
	}
	out := make([]apperr.FieldError, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, apperr.FieldError{Field: fe.Field(), Message: describe(fe)})
	}
	return out
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "max":
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	case "hexcolor":
		return "must be a hex color such as #1e90ff"
	default:
		return fmt.Sprintf("failed %q validation", fe.Tag())
	}
}

func (s *Service) validateCreate(in *CreateInput) error {
	in.Name = strings.TrimSpace(in.Name)
	in.Description = strings.TrimSpace(in.Description)
	in.Icon = strings.TrimSpace(in.Icon)
	if err := s.validate.Struct(in); err != nil {
		return apperr.Validation("invalid category", fieldErrors(err)...)
	}
	return nil
}

func (s *Service) validateUpdate(in *UpdateInput) error {
	var fields []apperr.FieldError
	if in.Name != nil {
		trimmed := strings.TrimSpace(*in.Name)
		in.Name = &trimmed
		if trimmed == "" {
			fields = append(fields, apperr.FieldError{Field: "name", Message: "must not be empty"})
		}
	}
	if in.Description != nil {
		trimmed := strings.TrimSpace(*in.Description)
		in.Description = &trimmed
	}
	if in.Icon != nil {
		trimmed := strings.TrimSpace(*in.Icon)
		in.Icon = &trimmed
	}
	if err := s.validate.Struct(in); err != nil {
		fields = append(fields, fieldErrors(err)...)
	}
	if in.Color != nil {
		// An empty color clears the field.
		if err := s.validate.Var(*in.Color, "omitempty,hexcolor"); err != nil {
			for _, fe := range fieldErrors(err) {
				fe.Field = "color"
				fields = append(fields, fe)
			}
		}
	}
	if len(fields) > 0 {
		return apperr.Validation("invalid category", fields...)
	}
	if in.Name == nil && in.Description == nil && in.Color == nil && in.Icon == nil && in.Active == nil {
		return apperr.Validation("nothing to update")
	}
	return nil
}

// validateMoves checks a reorder payload on its own, before any store
// access: it must be non-empty, carry real IDs, and name each ID once.
func validateMoves(moves []Move) error {
	if len(moves) == 0 {
		return apperr.Validation("reorder needs at least one entry")
	}
	var fields []apperr.FieldError
	seen := make(map[uuid.UUID]int, len(moves))
	for i, m := range moves {
		switch {
		case m.ID == uuid.Nil:
			fields = append(fields, apperr.FieldError{Field: fmt.Sprintf("[%d].id", i), Message: "is required"})
		case m.ParentID != nil && *m.ParentID == m.ID:
			fields = append(fields, apperr.FieldError{Field: fmt.Sprintf("[%d].parent_id", i), Message: "a category cannot be its own parent"})
		}
		if prev, dup := seen[m.ID]; dup && m.ID != uuid.Nil {
			fields = append(fields, apperr.FieldError{
				Field:   fmt.Sprintf("[%d].id", i),
				Message: fmt.Sprintf("duplicates entry %d", prev),
			})
			continue
		}
		seen[m.ID] = i
	}
	if len(fields) > 0 {
		return apperr.Validation("invalid reorder", fields...)
	}
	return nil
}
