package docsystem

import (
	"context"

	"smartdoc/internal/domain/models/docsystem"
)

// VersionService manages the snapshot history of documents
type VersionService interface {
	// CreateSnapshot records content as the next version of the document
	CreateSnapshot(ctx context.Context, req *CreateSnapshotRequest) (*docsystem.Snapshot, error)

	// ListSnapshots returns summaries newest-first
	ListSnapshots(ctx context.Context, userID, documentID string) ([]docsystem.SnapshotSummary, error)

	// GetSnapshot returns a snapshot the user may access
	GetSnapshot(ctx context.Context, userID, snapshotID string) (*docsystem.Snapshot, error)

	// GetSnapshotContent returns the serialized content of a snapshot
	GetSnapshotContent(ctx context.Context, userID, snapshotID string) (string, error)

	// RestoreSnapshot writes a snapshot's content back as the document's
	// current content. Used by clients without a live editing session.
	RestoreSnapshot(ctx context.Context, userID, documentID, snapshotID string) (*docsystem.Document, error)
}

// CreateSnapshotRequest represents a snapshot creation request
type CreateSnapshotRequest struct {
	UserID     string `json:"-"`
	DocumentID string `json:"-"`
	Name       string `json:"name"`
	Content    string `json:"content"`
}
