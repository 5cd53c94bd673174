package services

import "context"

// ResourceAuthorizer checks if a user can access resources.
// Current implementation: ownership-based (user owns document).
//
// Services call the authorizer before operating on resources, separating
// who can access from which resource is addressed.
type ResourceAuthorizer interface {
	// CanAccessDocument checks if user can access a document
	CanAccessDocument(ctx context.Context, userID, documentID string) error

	// CanAccessSnapshot checks if user can access a snapshot (via its document)
	CanAccessSnapshot(ctx context.Context, userID, snapshotID string) error
}
