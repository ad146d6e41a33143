// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"folio/internal/apperr"
	"folio/internal/middleware"
	"folio/internal/models"
	"folio/internal/session"
	"folio/internal/token"
)

type fakeUsers struct {
	users map[string]*models.User
	err   error
}

func (f *fakeUsers) FindByEmail(_ context.Context, email string) (*models.User, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.users[email], nil
}

func (f *fakeUsers) CheckPassword(u *models.User, password string) bool {
	return u.PasswordHash == "hash:"+password
}

func newAuth(t *testing.T) (*Auth, *fakeUsers, *token.Issuer) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	issuer, err := token.NewIssuer("test-secret", time.Hour)
	if err != nil {
		t.Fatalf("issuer: %v", err)
	}
	users := &fakeUsers{users: map[string]*models.User{
		"admin@folio.local": {ID: uuid.New(), Email: "admin@folio.local", PasswordHash: "hash:admin", DisplayName: "Admin", Role: models.RoleAdmin},
	}}
	return NewAuth(users, session.NewStore(client, false), issuer), users, issuer
}

func TestLogin(t *testing.T) {
	a, _, issuer := newAuth(t)

	rr := serve(a.Login, jsonRequest(http.MethodPost, "/auth/login", `{"email":"admin@folio.local","password":"admin"}`))
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d (%s)", rr.Code, rr.Body.String())
	}
	resp := decode[LoginResponse](t, rr)
	if resp.User == nil || resp.User.Email != "admin@folio.local" {
		t.Fatalf("user = %+v", resp.User)
	}
	identity, err := issuer.Parse(resp.Token)
	if err != nil || !identity.IsAdmin() || identity.UserID != resp.User.ID {
		t.Errorf("token identity = %+v, %v", identity, err)
	}
	if resp.ExpiresAt.Before(time.Now()) {
		t.Errorf("expires_at = %v", resp.ExpiresAt)
	}

	var sawCookie bool
	for _, c := range rr.Result().Cookies() {
		if c.Name == session.CookieName && c.Value != "" {
			sawCookie = true
		}
	}
	if !sawCookie {
		t.Error("login should set the session cookie")
	}
	if strings.Contains(rr.Body.String(), "hash:") {
		t.Error("password hash leaked")
	}
}

func TestLoginRejects(t *testing.T) {
	a, users, _ := newAuth(t)

	tests := []struct {
		name   string
		body   string
		status int
		kind   apperr.Kind
	}{
		{"wrong password", `{"email":"admin@folio.local","password":"nope"}`, http.StatusUnauthorized, apperr.KindUnauthorized},
		{"unknown user", `{"email":"who@folio.local","password":"admin"}`, http.StatusUnauthorized, apperr.KindUnauthorized},
		{"missing fields", `{"email":""}`, http.StatusBadRequest, apperr.KindValidation},
		{"malformed", `{`, http.StatusBadRequest, apperr.KindValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := serve(a.Login, jsonRequest(http.MethodPost, "/auth/login", tt.body))
			assertError(t, rr, tt.status, tt.kind)
		})
	}

	t.Run("store failure", func(t *testing.T) {
		users.err = errors.New("connection refused")
		defer func() { users.err = nil }()
		rr := serve(a.Login, jsonRequest(http.MethodPost, "/auth/login", `{"email":"admin@folio.local","password":"admin"}`))
		assertError(t, rr, http.StatusInternalServerError, apperr.KindInternal)
	})
}

func TestLogoutAndMe(t *testing.T) {
	a, _, _ := newAuth(t)

	login := serve(a.Login, jsonRequest(http.MethodPost, "/auth/login", `{"email":"admin@folio.local","password":"admin"}`))
	r := httptest.NewRequest(http.MethodPost, "/auth/logout", nil)
	for _, c := range login.Result().Cookies() {
		r.AddCookie(c)
	}
	if rr := serve(a.Logout, r); rr.Code != http.StatusNoContent {
		t.Errorf("logout status = %d", rr.Code)
	}

	assertError(t, serve(a.Me, httptest.NewRequest(http.MethodGet, "/auth/me", nil)), http.StatusUnauthorized, apperr.KindUnauthorized)

	me := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	sess := testSession(models.RoleEditor)
	me = me.WithContext(middleware.WithIdentity(me.Context(), sess, middleware.AuthSession))
	got := decode[session.Data](t, serve(a.Me, me))
	if got.UserID != sess.UserID || got.Role != models.RoleEditor {
		t.Errorf("me = %+v", got)
	}
}
