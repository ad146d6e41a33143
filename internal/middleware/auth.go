// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"folio/internal/apperr"
	"folio/internal/respond"
	"folio/internal/session"
	"folio/internal/token"
)

// contextKey is an unexported type for context keys to prevent collisions.
type contextKey string

const (
	// SessionKey is the context key for the caller identity.
	SessionKey contextKey = "session"

	authMethodKey contextKey = "auth_method"
)

// AuthMethod records how the caller identity was established.
type AuthMethod string

const (
	AuthNone    AuthMethod = ""
	AuthSession AuthMethod = "session"
	AuthBearer  AuthMethod = "bearer"
)

// SessionLoader reads the session attached to a request.
type SessionLoader interface {
	Get(ctx context.Context, r *http.Request) (*session.Data, error)
}

// TokenParser verifies a bearer token.
type TokenParser interface {
	Parse(raw string) (*session.Data, error)
}

// WithIdentity returns ctx carrying d, established via method.
func WithIdentity(ctx context.Context, d *session.Data, method AuthMethod) context.Context {
	ctx = context.WithValue(ctx, SessionKey, d)
	return context.WithValue(ctx, authMethodKey, method)
}

// LoadSession retrieves the session from Valkey and stores it in the
// request context. It does not enforce authentication; a failed lookup
// leaves the request anonymous.
func LoadSession(store SessionLoader) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			data, err := store.Get(r.Context(), r)
			if err != nil {
				slog.Warn("session lookup failed", "error", err)
			}
			if data != nil {
				r = r.WithContext(WithIdentity(r.Context(), data, AuthSession))
			}
			next.ServeHTTP(w, r)
		})
	}
}

// LoadBearer authenticates an Authorization: Bearer header. A present but
// invalid token is rejected with 401 rather than treated as anonymous.
// A valid token replaces any session identity.
func LoadBearer(tokens TokenParser) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, err := token.BearerFromHeader(r.Header.Get("Authorization"))
			if errors.Is(err, token.ErrMissing) {
				next.ServeHTTP(w, r)
				return
			}
			var data *session.Data
			if err == nil {
				data, err = tokens.Parse(raw)
			}
			if err != nil {
				respond.Error(w, r, apperr.Unauthorized("invalid bearer token"))
				return
			}
			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), data, AuthBearer)))
		})
	}
}

// RequireAdmin rejects anonymous callers with 401 and non-admins with 403.
// Must be applied after LoadSession and LoadBearer.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess := SessionFromCtx(r.Context())
		if sess == nil {
			respond.Error(w, r, apperr.Unauthorized("authentication required"))
			return
		}
		if !sess.IsAdmin() {
			respond.Error(w, r, apperr.Forbidden("admin role required"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireAuth rejects anonymous callers with 401.
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if SessionFromCtx(r.Context()) == nil {
			respond.Error(w, r, apperr.Unauthorized("authentication required"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// SessionFromCtx extracts the caller identity from the request context.
// Returns nil for anonymous requests.
func SessionFromCtx(ctx context.Context) *session.Data {
	data, _ := ctx.Value(SessionKey).(*session.Data)
	return data
}

// AuthMethodFromCtx reports how the identity in ctx was established.
func AuthMethodFromCtx(ctx context.Context) AuthMethod {
	m, _ := ctx.Value(authMethodKey).(AuthMethod)
	return m
}
