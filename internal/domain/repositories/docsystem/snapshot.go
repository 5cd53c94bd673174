package docsystem

import (
	"context"

	"smartdoc/internal/domain/models/docsystem"
)

// SnapshotRepository is the append-only version history of documents
type SnapshotRepository interface {
	// Create inserts a snapshot, assigning Version = max(existing)+1 atomically.
	// ID, Version and CreatedAt are set on snap.
	Create(ctx context.Context, snap *docsystem.Snapshot) error

	// ListByDocument returns summaries newest-first
	ListByDocument(ctx context.Context, documentID string) ([]docsystem.SnapshotSummary, error)

	// GetByID retrieves a snapshot including content
	GetByID(ctx context.Context, id string) (*docsystem.Snapshot, error)
}
