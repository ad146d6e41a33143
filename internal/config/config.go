// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package config handles application configuration loading from environment
// variables, optionally seeded from a .env file. It provides a centralized
// Config struct used across the application.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"folio/internal/category"
)

// Store drivers.
const (
	DriverPostgres = "postgres"
	DriverMongo    = "mongo"
)

// devJWTSecret signs tokens outside production when JWT_SECRET is unset.
const devJWTSecret = "folio-dev-secret"

// Config holds all application configuration values loaded from the environment.
type Config struct {
	// Server settings
	Host string
	Port string
	Env  string // "development", "production", "testing"

	// StoreDriver selects the category backend: "postgres" or "mongo".
	StoreDriver  string
	StoreTimeout time.Duration

	// PostgreSQL connection
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string

	// MongoDB connection
	MongoURI string
	MongoDB  string

	// Valkey (Redis-compatible cache)
	ValkeyHost     string
	ValkeyPort     string
	ValkeyPassword string

	// Bearer tokens
	JWTSecret string
	JWTTTL    time.Duration

	// Category behaviour
	CategoryCacheTTL     time.Duration
	CategoryDeletePolicy category.DeletePolicy

	// Write rate limiting, per client IP
	RateLimitRPS   float64
	RateLimitBurst int
}

// Load reads configuration from a .env file in the working directory (if
// present) and the environment, applying defaults for development where
// appropriate. Returns an error if a value does not parse or critical
// values are missing in production mode.
func Load() (*Config, error) {
	return LoadFile(".env")
}

// LoadFile is Load with an explicit .env path. Variables already set in the
// environment win over the file.
func LoadFile(envFile string) (*Config, error) {
	if err := loadDotEnv(envFile); err != nil {
		return nil, err
	}

	cfg := &Config{
		Host: envOrDefault("APP_HOST", "0.0.0.0"),
		Port: envOrDefault("APP_PORT", "8080"),
		Env:  envOrDefault("APP_ENV", "development"),

		StoreDriver: envOrDefault("STORE_DRIVER", DriverPostgres),

		DBHost:     envOrDefault("POSTGRES_HOST", "localhost"),
		DBPort:     envOrDefault("POSTGRES_PORT", "5432"),
		DBUser:     envOrDefault("POSTGRES_USER", "folio"),
		DBPassword: envOrDefault("POSTGRES_PASSWORD", "changeme"),
		DBName:     envOrDefault("POSTGRES_DB", "folio"),

		MongoURI: envOrDefault("MONGO_URI", "mongodb://localhost:27017/?replicaSet=rs0"),
		MongoDB:  envOrDefault("MONGO_DB", "folio"),

		ValkeyHost:     envOrDefault("VALKEY_HOST", "localhost"),
		ValkeyPort:     envOrDefault("VALKEY_PORT", "6379"),
		ValkeyPassword: os.Getenv("VALKEY_PASSWORD"),

		JWTSecret: os.Getenv("JWT_SECRET"),
	}

	var errs []error
	cfg.StoreTimeout = durationOr("STORE_TIMEOUT", 5*time.Second, &errs)
	cfg.JWTTTL = durationOr("JWT_TTL", 12*time.Hour, &errs)
	cfg.CategoryCacheTTL = durationOr("CATEGORY_CACHE_TTL", time.Minute, &errs)
	cfg.RateLimitRPS = floatOr("RATE_LIMIT_RPS", 5, &errs)
	cfg.RateLimitBurst = intOr("RATE_LIMIT_BURST", 20, &errs)

	policy, err := category.ParseDeletePolicy(os.Getenv("CATEGORY_DELETE_POLICY"))
	if err != nil {
		errs = append(errs, fmt.Errorf("CATEGORY_DELETE_POLICY: %w", err))
	}
	cfg.CategoryDeletePolicy = policy

	switch cfg.StoreDriver {
	case DriverPostgres, DriverMongo:
	default:
		errs = append(errs, fmt.Errorf("STORE_DRIVER must be %q or %q, got %q", DriverPostgres, DriverMongo, cfg.StoreDriver))
	}

	if cfg.Env == "production" {
		if cfg.StoreDriver == DriverPostgres && cfg.DBPassword == "changeme" {
			errs = append(errs, errors.New("POSTGRES_PASSWORD must be set in production"))
		}
		if cfg.JWTSecret == "" {
			errs = append(errs, errors.New("JWT_SECRET must be set in production"))
		}
	} else if cfg.JWTSecret == "" {
		cfg.JWTSecret = devJWTSecret
	}

	if err := errors.Join(errs...); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

// DSN returns the PostgreSQL connection string.
func (c *Config) DSN() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.DBUser, c.DBPassword),
		Host:     net.JoinHostPort(c.DBHost, c.DBPort),
		Path:     "/" + c.DBName,
		RawQuery: "sslmode=disable",
	}
	return u.String()
}

// Addr returns the server listen address (host:port).
func (c *Config) Addr() string {
	return net.JoinHostPort(c.Host, c.Port)
}

// IsDev returns true if the application is running in development mode.
func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// loadDotEnv copies values from path into the environment for keys that
// are unset or empty. A missing file is not an error.
func loadDotEnv(path string) error {
	vals, err := godotenv.Read(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	for k, v := range vals {
		if os.Getenv(k) == "" {
			if err := os.Setenv(k, v); err != nil {
				return fmt.Errorf("set %s: %w", k, err)
			}
		}
	}
	return nil
}

// envOrDefault reads an environment variable, returning a fallback if unset or empty.
func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func durationOr(key string, fallback time.Duration, errs *[]error) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		*errs = append(*errs, fmt.Errorf("%s must be a positive duration, got %q", key, v))
		return fallback
	}
	return d
}

func intOr(key string, fallback int, errs *[]error) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		*errs = append(*errs, fmt.Errorf("%s must be a positive integer, got %q", key, v))
		return fallback
	}
	return n
}

func floatOr(key string, fallback float64, errs *[]error) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || f <= 0 {
		*errs = append(*errs, fmt.Errorf("%s must be a positive number, got %q", key, v))
		return fallback
	}
	return f
}
