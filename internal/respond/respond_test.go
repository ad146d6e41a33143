// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package respond

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"folio/internal/apperr"
)

func TestError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		status     int
		kind       apperr.Kind
		message    string
		retryAfter string
	}{
		{"validation", apperr.Validation("invalid input", apperr.FieldError{Field: "name", Message: "is required"}), 400, apperr.KindValidation, "invalid input", ""},
		{"wrapped not found", fmt.Errorf("category.get: %w", apperr.NotFound("category %s not found", "x")), 404, apperr.KindNotFound, "category x not found", ""},
		{"conflict", apperr.Conflict("stale version"), 409, apperr.KindConflict, "stale version", ""},
		{"unauthorized", apperr.Unauthorized("login required"), 401, apperr.KindUnauthorized, "login required", ""},
		{"forbidden", apperr.Forbidden("admin only"), 403, apperr.KindForbidden, "admin only", ""},
		{"unavailable", apperr.Unavailable("timed out", context.DeadlineExceeded), 503, apperr.KindUnavailable, "timed out", "1"},
		{"method not allowed", apperr.MethodNotAllowed(http.MethodPut, "/health"), 405, apperr.KindMethodNotAllowed, "method PUT not allowed on /health", ""},
		{"internal", errors.New("pq: secret detail"), 500, apperr.KindInternal, "internal error", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			Error(w, httptest.NewRequest(http.MethodGet, "/categories", nil), tt.err)

			if w.Code != tt.status {
				t.Errorf("status = %d, want %d", w.Code, tt.status)
			}
			if got := w.Header().Get("Retry-After"); got != tt.retryAfter {
				t.Errorf("Retry-After = %q, want %q", got, tt.retryAfter)
			}
			var body ErrorBody
			if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if body.Error.Kind != tt.kind || body.Error.Message != tt.message {
				t.Errorf("body = %+v", body.Error)
			}
			if strings.Contains(w.Body.String(), "secret") {
				t.Error("internal cause leaked")
			}
		})
	}
}

func TestErrorCanceledIsQuiet(t *testing.T) {
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&buf, nil)))
	t.Cleanup(func() { slog.SetDefault(prev) })

	err := apperr.FromContext("list categories", fmt.Errorf("query: %w", context.Canceled))
	w := httptest.NewRecorder()
	Error(w, httptest.NewRequest(http.MethodGet, "/categories", nil), err)

	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", w.Code)
	}
	if buf.Len() != 0 {
		t.Errorf("canceled request logged at info or above: %s", buf.String())
	}
}

func TestErrorFields(t *testing.T) {
	w := httptest.NewRecorder()
	Error(w, httptest.NewRequest(http.MethodPost, "/", nil), apperr.Validation("invalid input",
		apperr.FieldError{Field: "[0].id", Message: "is required"}))

	var body ErrorBody
	_ = json.NewDecoder(w.Body).Decode(&body)
	if len(body.Error.Fields) != 1 || body.Error.Fields[0].Field != "[0].id" {
		t.Errorf("fields = %+v", body.Error.Fields)
	}
}

func TestJSON(t *testing.T) {
	w := httptest.NewRecorder()
	JSON(w, http.StatusCreated, map[string]string{"status": "ok"})
	if w.Code != http.StatusCreated {
		t.Errorf("status = %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "application/json") {
		t.Errorf("content type = %q", ct)
	}
	if strings.TrimSpace(w.Body.String()) != `{"status":"ok"}` {
		t.Errorf("body = %q", w.Body.String())
	}
}
