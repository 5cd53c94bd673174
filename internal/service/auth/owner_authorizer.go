package auth

import (
	"context"
	"fmt"

	"smartdoc/internal/domain"
	docsysRepo "smartdoc/internal/domain/repositories/docsystem"
)

// OwnerBasedAuthorizer implements ResourceAuthorizer using ownership checks.
// A user can access a document they created, and every snapshot of it.
type OwnerBasedAuthorizer struct {
	docRepo      docsysRepo.DocumentRepository
	snapshotRepo docsysRepo.SnapshotRepository
}

// NewOwnerBasedAuthorizer creates a new ownership-based authorizer
func NewOwnerBasedAuthorizer(
	docRepo docsysRepo.DocumentRepository,
	snapshotRepo docsysRepo.SnapshotRepository,
) *OwnerBasedAuthorizer {
	return &OwnerBasedAuthorizer{
		docRepo:      docRepo,
		snapshotRepo: snapshotRepo,
	}
}

// CanAccessDocument checks if user owns the document
func (a *OwnerBasedAuthorizer) CanAccessDocument(ctx context.Context, userID, documentID string) error {
	doc, err := a.docRepo.GetByID(ctx, documentID)
	if err != nil {
		return fmt.Errorf("get document for auth: %w", err)
	}

	if userID == "" || doc.UserID != userID {
		return fmt.Errorf("access denied to document %s: %w", documentID, domain.ErrForbidden)
	}
	return nil
}

// CanAccessSnapshot checks if user owns the snapshot's document
func (a *OwnerBasedAuthorizer) CanAccessSnapshot(ctx context.Context, userID, snapshotID string) error {
	snap, err := a.snapshotRepo.GetByID(ctx, snapshotID)
	if err != nil {
		return fmt.Errorf("get snapshot for auth: %w", err)
	}
	return a.CanAccessDocument(ctx, userID, snap.DocumentID)
}
