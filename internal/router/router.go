// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package router sets up all HTTP routes and middleware chains for the
// folio API. Reads are public; category writes and the admin group
// require an admin identity.
package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"folio/internal/apperr"
	"folio/internal/handlers"
	"folio/internal/middleware"
	"folio/internal/respond"
)

// Deps are the collaborators the router wires into its middleware chains.
type Deps struct {
	Sessions middleware.SessionLoader
	Tokens   middleware.TokenParser
	// Limiter rate-limits login and category writes. Nil disables it.
	Limiter *middleware.RateLimiter
	// SecureCookies marks the CSRF cookie Secure.
	SecureCookies bool

	Categories *handlers.Categories
	Auth       *handlers.Auth
	Admin      *handlers.Admin
}

// New creates and returns the configured Chi router with all middleware
// and route groups wired up.
func New(d Deps) chi.Router {
	r := chi.NewRouter()

	// Global middleware, applied to every request.
	r.Use(chimw.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Logger)
	r.Use(middleware.SecureHeaders)
	r.Use(middleware.LoadSession(d.Sessions))
	r.Use(middleware.LoadBearer(d.Tokens))
	r.Use(middleware.CSRF(d.SecureCookies))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		respond.Error(w, r, apperr.NotFound("no route for %s", r.URL.Path))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		respond.Error(w, r, apperr.MethodNotAllowed(r.Method, r.URL.Path))
	})

	r.Get("/health", healthHandler)

	var limited []func(http.Handler) http.Handler
	if d.Limiter != nil {
		limited = append(limited, d.Limiter.Middleware)
	}

	r.Route("/auth", func(r chi.Router) {
		r.With(limited...).Post("/login", d.Auth.Login)
		r.Post("/logout", d.Auth.Logout)
		r.With(middleware.RequireAuth).Get("/me", d.Auth.Me)
	})

	r.Route("/categories", func(r chi.Router) {
		r.Get("/", d.Categories.List)
		r.Get("/flat-tree", d.Categories.FlatTree)
		r.Get("/{id}", d.Categories.Get)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAdmin)
			r.Use(limited...)

			r.Post("/", d.Categories.Create)
			r.Patch("/reorder", d.Categories.Reorder)
			r.Patch("/{id}", d.Categories.Update)
			r.Delete("/{id}", d.Categories.Delete)
			r.Post("/{id}/usage", d.Categories.IncrementUsage)
		})
	})

	r.Route("/admin", func(r chi.Router) {
		r.Use(middleware.RequireAdmin)
		r.Get("/cache-log", d.Admin.CacheLog)
	})

	return r
}

// healthHandler returns a simple JSON health check response.
func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}
