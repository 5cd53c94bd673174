package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"smartdoc/internal/domain"
)

// IsPgDuplicateError checks if error is a unique constraint violation
func IsPgDuplicateError(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		// 23505 = unique_violation
		return pgErr.Code == "23505"
	}
	return false
}

// IsPgNoRowsError checks if error is a "no rows" error
func IsPgNoRowsError(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}

// IsPgForeignKeyError checks if error is a foreign key violation
func IsPgForeignKeyError(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		// 23503 = foreign_key_violation
		return pgErr.Code == "23503"
	}
	return false
}

// IsPgInvalidTextError checks for malformed input such as a non-UUID id
func IsPgInvalidTextError(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		// 22P02 = invalid_text_representation
		return pgErr.Code == "22P02"
	}
	return false
}

// IsPgTransientError reports connection-level failures: timeouts, dropped
// connections and errors raised before the server saw the query.
func IsPgTransientError(err error) bool {
	if err == nil {
		return false
	}
	if pgconn.Timeout(err) || pgconn.SafeToRetry(err) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		// Class 08 = connection exception, 57P01 = admin shutdown, 40001 = serialization failure
		return len(pgErr.Code) == 5 && (pgErr.Code[:2] == "08" || pgErr.Code == "57P01" || pgErr.Code == "40001")
	}
	return false
}

// TranslateError maps driver errors for the row identified by id to domain errors
func TranslateError(err error, resource, id string) error {
	switch {
	case err == nil:
		return nil
	case IsPgNoRowsError(err), IsPgInvalidTextError(err):
		return &domain.NotFoundError{Message: fmt.Sprintf("%s %s not found", resource, id)}
	case IsPgTransientError(err):
		return &domain.TransientIOError{Message: fmt.Sprintf("%s %s", resource, id), Err: err}
	}
	return fmt.Errorf("%s %s: %w", resource, id, err)
}
