// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package token issues and verifies the HS256 bearer tokens API clients
// use instead of the session cookie.
package token

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"

	"folio/internal/models"
	"folio/internal/session"
)

// DefaultTTL is the lifetime of an issued token.
const DefaultTTL = 12 * time.Hour

const issuer = "folio"

var (
	// ErrMissing is returned when the request carries no bearer token.
	ErrMissing = errors.New("missing bearer token")
	// ErrInvalid is returned for a malformed, expired, or forged token.
	ErrInvalid = errors.New("invalid bearer token")
)

// Claims is the token payload. The subject holds the user ID.
type Claims struct {
	Email string      `json:"email"`
	Name  string      `json:"name,omitempty"`
	Role  models.Role `json:"role"`
	jwt.RegisteredClaims
}

// Issuer signs and parses tokens with a shared secret.
type Issuer struct {
	secret []byte
	ttl    time.Duration
	parser *jwt.Parser
	now    func() time.Time
}

// NewIssuer returns an Issuer. A non-positive ttl uses DefaultTTL.
func NewIssuer(secret string, ttl time.Duration) (*Issuer, error) {
	if secret == "" {
		return nil, errors.New("token secret must not be empty")
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Issuer{
		secret: []byte(secret),
		ttl:    ttl,
		parser: jwt.NewParser(jwt.WithValidMethods([]string{"HS256"})),
		now:    time.Now,
	}, nil
}

// Issue signs a token for the identity and returns it with its expiry.
func (i *Issuer) Issue(d *session.Data) (string, time.Time, error) {
	now := i.now().UTC()
	exp := now.Add(i.ttl)
	claims := Claims{
		Email: d.Email,
		Name:  d.DisplayName,
		Role:  d.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   d.UserID.String(),
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, exp, nil
}

// Parse verifies raw and returns the identity it carries.
func (i *Issuer) Parse(raw string) (*session.Data, error) {
	var claims Claims
	tok, err := i.parser.ParseWithClaims(raw, &claims, func(*jwt.Token) (any, error) {
		return i.secret, nil
	})
	if err != nil || !tok.Valid {
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if claims.Issuer != issuer || !claims.Role.Valid() {
		return nil, ErrInvalid
	}
	id, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, fmt.Errorf("%w: subject: %v", ErrInvalid, err)
	}
	d := &session.Data{
		UserID:      id,
		Email:       claims.Email,
		DisplayName: claims.Name,
		Role:        claims.Role,
	}
	if claims.IssuedAt != nil {
		d.CreatedAt = claims.IssuedAt.Time
	}
	return d, nil
}

// BearerFromHeader extracts the token from an Authorization header value.
// An empty header yields ErrMissing.
func BearerFromHeader(h string) (string, error) {
	if h == "" {
		return "", ErrMissing
	}
	scheme, raw, ok := strings.Cut(h, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(raw) == "" {
		return "", ErrInvalid
	}
	return strings.TrimSpace(raw), nil
}
