package postgres

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"smartdoc/internal/domain"
)

func TestTranslateError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		sentinel error
	}{
		{"no rows", pgx.ErrNoRows, domain.ErrNotFound},
		{"wrapped no rows", fmt.Errorf("scan: %w", pgx.ErrNoRows), domain.ErrNotFound},
		{"invalid uuid", &pgconn.PgError{Code: "22P02"}, domain.ErrNotFound},
		{"connection failure", &pgconn.PgError{Code: "08006"}, domain.ErrTransient},
		{"admin shutdown", &pgconn.PgError{Code: "57P01"}, domain.ErrTransient},
		{"deadline", context.DeadlineExceeded, domain.ErrTransient},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := TranslateError(tt.err, "document", "doc-1")
			if !errors.Is(got, tt.sentinel) {
				t.Errorf("TranslateError(%v) = %v, want match for %v", tt.err, got, tt.sentinel)
			}
		})
	}

	t.Run("nil stays nil", func(t *testing.T) {
		if err := TranslateError(nil, "document", "doc-1"); err != nil {
			t.Errorf("expected nil, got %v", err)
		}
	})

	t.Run("other errors are wrapped", func(t *testing.T) {
		cause := &pgconn.PgError{Code: "42P01"}
		got := TranslateError(cause, "document", "doc-1")
		if !errors.Is(got, cause) {
			t.Errorf("expected wrapped cause, got %v", got)
		}
		if domain.IsRetryable(got) {
			t.Errorf("undefined table must not be retryable")
		}
	})
}

func TestIsPgDuplicateError(t *testing.T) {
	if !IsPgDuplicateError(fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23505"})) {
		t.Error("expected unique violation to be detected")
	}
	if IsPgDuplicateError(&pgconn.PgError{Code: "23503"}) {
		t.Error("foreign key violation is not a duplicate")
	}
	if !IsPgForeignKeyError(&pgconn.PgError{Code: "23503"}) {
		t.Error("expected foreign key violation to be detected")
	}
}

func TestNewTableNames(t *testing.T) {
	tables := NewTableNames("test_")
	if tables.Documents != "test_documents" || tables.Snapshots != "test_document_versions" {
		t.Errorf("unexpected table names: %+v", tables)
	}
}
