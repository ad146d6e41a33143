// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"folio/internal/apperr"
)

// PostgreSQL error codes the store classifies.
const (
	codeUniqueViolation      = "23505"
	codeForeignKeyViolation  = "23503"
	codeSerializationFailure = "40001"
	codeDeadlockDetected     = "40P01"
	codeQueryCanceled        = "57014"
	codeLockNotAvailable     = "55P03"
)

// classify maps driver errors onto apperr kinds and adds op context.
// Already-classified errors pass through with their kind intact.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	if apperr.KindOf(err) != apperr.KindInternal {
		return err
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case codeUniqueViolation:
			return apperr.Conflict("%s: %s already exists; retry", op, pgErr.ConstraintName)
		case codeForeignKeyViolation:
			return apperr.Conflict("%s: a referenced category changed concurrently; reload and retry", op)
		case codeSerializationFailure, codeDeadlockDetected:
			return apperr.Conflict("%s: concurrent update detected; reload and retry", op)
		case codeQueryCanceled, codeLockNotAvailable:
			return apperr.Unavailable(op+" timed out", err)
		}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return apperr.Unavailable(op+" timed out", err)
	}
	return fmt.Errorf("%s: %w", op, err)
}
