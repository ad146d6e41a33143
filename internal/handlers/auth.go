// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package handlers

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"folio/internal/apperr"
	"folio/internal/middleware"
	"folio/internal/models"
	"folio/internal/respond"
	"folio/internal/session"
)

// UserStore looks up credentials.
type UserStore interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	CheckPassword(u *models.User, password string) bool
}

// SessionStore creates and destroys cookie sessions.
type SessionStore interface {
	Create(ctx context.Context, w http.ResponseWriter, data *session.Data) (string, error)
	Destroy(ctx context.Context, w http.ResponseWriter, r *http.Request) error
}

// TokenIssuer signs bearer tokens.
type TokenIssuer interface {
	Issue(d *session.Data) (string, time.Time, error)
}

// Auth groups all authentication-related HTTP handlers.
type Auth struct {
	users    UserStore
	sessions SessionStore
	tokens   TokenIssuer
}

// NewAuth creates a new Auth handler group.
func NewAuth(users UserStore, sessions SessionStore, tokens TokenIssuer) *Auth {
	return &Auth{users: users, sessions: sessions, tokens: tokens}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse carries the bearer token issued on login.
type LoginResponse struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
	User      *models.User `json:"user"`
}

// Login handles POST /auth/login. It starts a cookie session and returns
// a bearer token for API clients.
func (a *Auth) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respond.Error(w, r, err)
		return
	}
	email := strings.TrimSpace(req.Email)
	if email == "" || req.Password == "" {
		var fields []apperr.FieldError
		if email == "" {
			fields = append(fields, apperr.FieldError{Field: "email", Message: "is required"})
		}
		if req.Password == "" {
			fields = append(fields, apperr.FieldError{Field: "password", Message: "is required"})
		}
		respond.Error(w, r, apperr.Validation("invalid input", fields...))
		return
	}

	user, err := a.users.FindByEmail(r.Context(), email)
	if err != nil {
		respond.Error(w, r, fmt.Errorf("login lookup: %w", err))
		return
	}
	if user == nil || !a.users.CheckPassword(user, req.Password) {
		slog.Info("login failed", "email", email)
		respond.Error(w, r, apperr.Unauthorized("invalid email or password"))
		return
	}

	identity := session.FromUser(user)
	if _, err := a.sessions.Create(r.Context(), w, identity); err != nil {
		respond.Error(w, r, err)
		return
	}
	tok, exp, err := a.tokens.Issue(identity)
	if err != nil {
		respond.Error(w, r, err)
		return
	}

	slog.Info("user logged in", "user_id", user.ID, "role", user.Role)
	respond.JSON(w, http.StatusOK, LoginResponse{Token: tok, ExpiresAt: exp, User: user})
}

// Logout handles POST /auth/logout. Bearer tokens stay valid until they
// expire; only the cookie session is destroyed.
func (a *Auth) Logout(w http.ResponseWriter, r *http.Request) {
	if err := a.sessions.Destroy(r.Context(), w, r); err != nil {
		respond.Error(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Me handles GET /auth/me.
func (a *Auth) Me(w http.ResponseWriter, r *http.Request) {
	sess := middleware.SessionFromCtx(r.Context())
	if sess == nil {
		respond.Error(w, r, apperr.Unauthorized("authentication required"))
		return
	}
	respond.JSON(w, http.StatusOK, sess)
}
