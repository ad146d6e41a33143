// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package respond writes JSON bodies and maps apperr kinds to HTTP status
// codes for every handler and middleware.
package respond

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"folio/internal/apperr"
)

// ErrorBody is the envelope of every error response.
type ErrorBody struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail describes a failed request.
type ErrorDetail struct {
	Kind    apperr.Kind         `json:"kind"`
	Message string              `json:"message"`
	Fields  []apperr.FieldError `json:"fields,omitempty"`
}

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Warn("write json response", "error", err)
	}
}

// Status returns the HTTP status for an error kind.
func Status(kind apperr.Kind) int {
	switch kind {
	case apperr.KindValidation:
		return http.StatusBadRequest
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindConflict:
		return http.StatusConflict
	case apperr.KindUnauthorized:
		return http.StatusUnauthorized
	case apperr.KindForbidden:
		return http.StatusForbidden
	case apperr.KindUnavailable:
		return http.StatusServiceUnavailable
	case apperr.KindMethodNotAllowed:
		return http.StatusMethodNotAllowed
	default:
		return http.StatusInternalServerError
	}
}

// Error writes err as an error envelope. Internal errors are logged and
// reported without their cause. Aborted requests are not logged above debug.
func Error(w http.ResponseWriter, r *http.Request, err error) {
	kind := apperr.KindOf(err)
	if kind == "" {
		kind = apperr.KindInternal
	}
	switch kind {
	case apperr.KindInternal:
		slog.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
	case apperr.KindUnavailable:
		if errors.Is(err, context.Canceled) {
			slog.Debug("request canceled", "method", r.Method, "path", r.URL.Path)
		} else {
			slog.Warn("store unavailable", "method", r.Method, "path", r.URL.Path, "error", err)
		}
		w.Header().Set("Retry-After", "1")
	}
	JSON(w, Status(kind), ErrorBody{Error: ErrorDetail{
		Kind:    kind,
		Message: apperr.MessageOf(err),
		Fields:  apperr.FieldsOf(err),
	}})
}
