// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package token

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"

	"folio/internal/models"
	"folio/internal/session"
)

func newIssuer(t *testing.T) *Issuer {
	t.Helper()
	iss, err := NewIssuer("test-secret", time.Hour)
	if err != nil {
		t.Fatalf("NewIssuer: %v", err)
	}
	return iss
}

func TestIssueAndParse(t *testing.T) {
	iss := newIssuer(t)
	in := &session.Data{UserID: uuid.New(), Email: "admin@folio.local", DisplayName: "Admin", Role: models.RoleAdmin}

	raw, exp, err := iss.Issue(in)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if d := time.Until(exp); d <= 59*time.Minute || d > time.Hour {
		t.Errorf("expiry in %v", d)
	}

	out, err := iss.Parse(raw)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if out.UserID != in.UserID || out.Email != in.Email || out.Role != in.Role || out.DisplayName != in.DisplayName {
		t.Errorf("Parse = %+v, want %+v", out, in)
	}
}

func TestParseRejects(t *testing.T) {
	iss := newIssuer(t)
	data := &session.Data{UserID: uuid.New(), Role: models.RoleAdmin}

	expired := newIssuer(t)
	expired.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	stale, _, _ := expired.Issue(data)

	other, _ := NewIssuer("other-secret", time.Hour)
	forged, _, _ := other.Issue(data)

	none, _ := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{
		Role:             models.RoleAdmin,
		RegisteredClaims: jwt.RegisteredClaims{Subject: data.UserID.String(), Issuer: issuer},
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)

	badRole, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		Role:             "root",
		RegisteredClaims: jwt.RegisteredClaims{Subject: data.UserID.String(), Issuer: issuer},
	}).SignedString([]byte("test-secret"))

	tests := []struct {
		name string
		raw  string
	}{
		{"garbage", "not-a-token"},
		{"expired", stale},
		{"wrong secret", forged},
		{"alg none", none},
		{"unknown role", badRole},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := iss.Parse(tt.raw); !errors.Is(err, ErrInvalid) {
				t.Errorf("err = %v, want ErrInvalid", err)
			}
		})
	}
}

func TestNewIssuerRequiresSecret(t *testing.T) {
	if _, err := NewIssuer("", time.Hour); err == nil {
		t.Error("empty secret should be rejected")
	}
}

func TestBearerFromHeader(t *testing.T) {
	tests := []struct {
		header string
		want   string
		err    error
	}{
		{"", "", ErrMissing},
		{"Bearer abc", "abc", nil},
		{"bearer  abc ", "abc", nil},
		{"Basic abc", "", ErrInvalid},
		{"Bearer", "", ErrInvalid},
		{"Bearer   ", "", ErrInvalid},
	}
	for _, tt := range tests {
		got, err := BearerFromHeader(tt.header)
		if got != tt.want || !errors.Is(err, tt.err) {
			t.Errorf("BearerFromHeader(%q) = %q, %v; want %q, %v", tt.header, got, err, tt.want, tt.err)
		}
	}
}
