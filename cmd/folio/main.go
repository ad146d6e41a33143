// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package main is the entry point for the folio category service.
// It loads configuration, connects to the selected store and Valkey, sets
// up routing, and starts the HTTP server with graceful shutdown support.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"folio/internal/cache"
	"folio/internal/category"
	"folio/internal/config"
	"folio/internal/database"
	"folio/internal/docstore"
	"folio/internal/handlers"
	"folio/internal/middleware"
	"folio/internal/router"
	"folio/internal/session"
	"folio/internal/store"
	"folio/internal/token"
)

// userStore is what login and seeding need from either backend.
type userStore interface {
	handlers.UserStore
	database.UserSeeder
}

// cacheLogStore records and lists cache invalidations.
type cacheLogStore interface {
	cache.InvalidationLogger
	handlers.CacheLog
}

// backend is the storage selected by STORE_DRIVER.
type backend struct {
	categories category.Repository
	users      userStore
	cacheLog   cacheLogStore
	close      func(context.Context) error
}

func main() {
	if err := run(); err != nil {
		slog.Error("folio exited", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	// Structured logger: text in development, JSON otherwise.
	var handler slog.Handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})
	if cfg.IsDev() {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug})
	}
	slog.SetDefault(slog.New(handler))

	slog.Info("configuration loaded",
		"env", cfg.Env,
		"addr", cfg.Addr(),
		"store", cfg.StoreDriver,
		"delete_policy", cfg.CategoryDeletePolicy,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	be, err := openBackend(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := be.close(closeCtx); err != nil {
			slog.Warn("closing store", "error", err)
		}
	}()

	// Valkey backs sessions and the category read cache.
	valkeyClient, err := cache.ConnectValkey(ctx, cfg.ValkeyHost, cfg.ValkeyPort, cfg.ValkeyPassword)
	if err != nil {
		return fmt.Errorf("connect valkey: %w", err)
	}
	defer valkeyClient.Close()

	secureCookies := !cfg.IsDev()
	sessionStore := session.NewStore(valkeyClient, secureCookies)

	issuer, err := token.NewIssuer(cfg.JWTSecret, cfg.JWTTTL)
	if err != nil {
		return fmt.Errorf("token issuer: %w", err)
	}

	repo := cache.NewCategoryCache(be.categories, valkeyClient, cfg.CategoryCacheTTL, be.cacheLog)
	svc := category.NewService(repo, category.Options{
		DeletePolicy: cfg.CategoryDeletePolicy,
		Timeout:      cfg.StoreTimeout,
	})

	// Seed development data (no-op if data already exists).
	if cfg.IsDev() {
		if err := database.Seed(ctx, be.users, svc); err != nil {
			return fmt.Errorf("seed: %w", err)
		}
	}

	limiter := middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)
	defer limiter.Stop()

	r := router.New(router.Deps{
		Sessions:      sessionStore,
		Tokens:        issuer,
		Limiter:       limiter,
		SecureCookies: secureCookies,
		Categories:    handlers.NewCategories(svc),
		Auth:          handlers.NewAuth(be.users, sessionStore, issuer),
		Admin:         handlers.NewAdmin(be.cacheLog),
	})

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      cfg.StoreTimeout + 10*time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server starting", "addr", cfg.Addr())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
	case <-ctx.Done():
		slog.Info("shutdown signal received")
	}

	// Give active requests up to 30 seconds to complete.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	slog.Info("server stopped gracefully")
	return nil
}

// openBackend connects to the configured store and prepares its schema.
func openBackend(ctx context.Context, cfg *config.Config) (*backend, error) {
	switch cfg.StoreDriver {
	case config.DriverMongo:
		client, err := docstore.Connect(ctx, cfg.MongoURI)
		if err != nil {
			return nil, fmt.Errorf("connect mongo: %w", err)
		}
		db := client.Database(cfg.MongoDB)
		if err := docstore.EnsureIndexes(ctx, db); err != nil {
			_ = client.Disconnect(ctx)
			return nil, fmt.Errorf("mongo indexes: %w", err)
		}
		return &backend{
			categories: docstore.NewCategoryStore(client, db),
			users:      docstore.NewUserStore(db),
			cacheLog:   docstore.NewCacheLogStore(db),
			close:      client.Disconnect,
		}, nil

	default:
		db, err := database.Connect(ctx, cfg.DSN())
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		if err := database.Migrate(ctx, db); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("migrate: %w", err)
		}
		return &backend{
			categories: store.NewCategoryStore(db),
			users:      store.NewUserStore(db),
			cacheLog:   store.NewCacheLogStore(db),
			close:      func(context.Context) error { return db.Close() },
		}, nil
	}
}
