package docsystem

import (
	"context"

	"smartdoc/internal/domain/models/docsystem"
)

// ContentUpdate is a write of a document's current content
type ContentUpdate struct {
	Content   string
	WordCount int
	// Status, when set, is applied together with the content. The write only
	// succeeds if the stored status may transition to it.
	Status *docsystem.DocumentStatus
	// From, when set, restricts the write to documents whose stored status is
	// one of these. Anything else is a ConflictError and nothing is written.
	From []docsystem.DocumentStatus
}

// Accepts reports whether a document with status current may take the update
func (u *ContentUpdate) Accepts(current docsystem.DocumentStatus) bool {
	if u.Status != nil && !current.CanTransitionTo(*u.Status) {
		return false
	}
	if len(u.From) == 0 {
		return true
	}
	for _, s := range u.From {
		if s == current {
			return true
		}
	}
	return false
}

// DocumentRepository defines data access operations for documents
type DocumentRepository interface {
	// Create creates a new document
	Create(ctx context.Context, doc *docsystem.Document) error

	// GetByID retrieves a document by ID
	GetByID(ctx context.Context, id string) (*docsystem.Document, error)

	// ListByUser lists a user's documents, most recently updated first (no content)
	ListByUser(ctx context.Context, userID string) ([]docsystem.Document, error)

	// UpdateContent overwrites the current content. Without Status or From it
	// is last writer wins; with them it is a compare-and-set on the status.
	UpdateContent(ctx context.Context, id string, update *ContentUpdate) (*docsystem.Document, error)

	// TransitionStatus moves the status from one of the allowed prior states to next.
	// Returns a ConflictError when the stored status is not in from.
	TransitionStatus(ctx context.Context, id string, from []docsystem.DocumentStatus, next docsystem.DocumentStatus) (*docsystem.Document, error)
}
