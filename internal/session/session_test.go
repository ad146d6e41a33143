// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package session

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"folio/internal/models"
)

func newStore(t *testing.T, secure bool) (*Store, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewStore(client, secure), mr
}

// requestWith builds a request carrying the cookies set on w.
func requestWith(w *httptest.ResponseRecorder) *http.Request {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	for _, c := range w.Result().Cookies() {
		r.AddCookie(c)
	}
	return r
}

func TestSessionCreateAndGet(t *testing.T) {
	store, mr := newStore(t, true)
	ctx := context.Background()
	w := httptest.NewRecorder()

	data := &Data{UserID: uuid.New(), Email: "test@session.local", DisplayName: "Test User", Role: models.RoleAdmin}
	id, err := store.Create(ctx, w, data)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if len(id) != 2*idLength {
		t.Errorf("session id length = %d", len(id))
	}

	cookies := w.Result().Cookies()
	if len(cookies) != 1 || cookies[0].Name != CookieName || cookies[0].Value != id {
		t.Fatalf("cookies = %+v", cookies)
	}
	if !cookies[0].HttpOnly || !cookies[0].Secure {
		t.Error("cookie should be HttpOnly and Secure")
	}
	if ttl := mr.TTL(keyPrefix + id); ttl != DefaultTTL {
		t.Errorf("ttl = %v", ttl)
	}

	got, err := store.Get(ctx, requestWith(w))
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got == nil || got.UserID != data.UserID || got.Email != data.Email || !got.IsAdmin() {
		t.Errorf("Get = %+v", got)
	}
	if got.CreatedAt.IsZero() {
		t.Error("CreatedAt should be set")
	}
}

func TestSessionGetWithoutCookie(t *testing.T) {
	store, _ := newStore(t, false)
	got, err := store.Get(context.Background(), httptest.NewRequest(http.MethodGet, "/", nil))
	if err != nil || got != nil {
		t.Errorf("Get = %+v, %v", got, err)
	}
}

func TestSessionExpires(t *testing.T) {
	store, mr := newStore(t, false)
	ctx := context.Background()
	w := httptest.NewRecorder()

	if _, err := store.Create(ctx, w, &Data{UserID: uuid.New(), Role: models.RoleEditor}); err != nil {
		t.Fatalf("Create: %v", err)
	}
	mr.FastForward(DefaultTTL + time.Second)

	got, err := store.Get(ctx, requestWith(w))
	if err != nil || got != nil {
		t.Errorf("expired session = %+v, %v", got, err)
	}
}

func TestSessionDestroy(t *testing.T) {
	store, mr := newStore(t, false)
	ctx := context.Background()
	w := httptest.NewRecorder()

	id, err := store.Create(ctx, w, &Data{UserID: uuid.New(), Role: models.RoleAdmin})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	dw := httptest.NewRecorder()
	if err := store.Destroy(ctx, dw, requestWith(w)); err != nil {
		t.Fatalf("Destroy: %v", err)
	}
	if mr.Exists(keyPrefix + id) {
		t.Error("session key should be deleted")
	}
	cleared := dw.Result().Cookies()
	if len(cleared) != 1 || cleared[0].MaxAge >= 0 {
		t.Errorf("cookie not cleared: %+v", cleared)
	}
}

func TestIsAdmin(t *testing.T) {
	var nilData *Data
	if nilData.IsAdmin() {
		t.Error("nil identity is not admin")
	}
	if (&Data{Role: models.RoleEditor}).IsAdmin() {
		t.Error("editor is not admin")
	}
	u := &models.User{ID: uuid.New(), Email: "a@b.c", Role: models.RoleAdmin}
	if d := FromUser(u); !d.IsAdmin() || d.UserID != u.ID {
		t.Errorf("FromUser = %+v", d)
	}
}
