// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"folio/internal/apperr"
	"folio/internal/middleware"
	"folio/internal/models"
	"folio/internal/respond"
	"folio/internal/session"
)

func testSession(role models.Role) *session.Data {
	return &session.Data{UserID: uuid.New(), Email: "test@folio.local", DisplayName: "Test User", Role: role}
}

// asAdmin marks the request as coming from an authenticated admin.
func asAdmin(r *http.Request) *http.Request {
	return r.WithContext(middleware.WithIdentity(r.Context(), testSession(models.RoleAdmin), middleware.AuthBearer))
}

// withChiURLParam adds a chi URL parameter to a request.
func withChiURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

func jsonRequest(method, target, body string) *http.Request {
	r := httptest.NewRequest(method, target, strings.NewReader(body))
	r.Header.Set("Content-Type", "application/json")
	return r
}

func serve(h http.HandlerFunc, r *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	h(rr, r)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(bytes.NewReader(rr.Body.Bytes())).Decode(&v); err != nil {
		t.Fatalf("decode %q: %v", rr.Body.String(), err)
	}
	return v
}

func assertError(t *testing.T, rr *httptest.ResponseRecorder, status int, kind apperr.Kind) respond.ErrorDetail {
	t.Helper()
	if rr.Code != status {
		t.Fatalf("status = %d, want %d (body %s)", rr.Code, status, rr.Body.String())
	}
	body := decode[respond.ErrorBody](t, rr)
	if body.Error.Kind != kind {
		t.Fatalf("kind = %q, want %q", body.Error.Kind, kind)
	}
	return body.Error
}
