package docsystem

import (
	"context"

	"smartdoc/internal/domain/models/docsystem"
)

// DocumentService handles document business logic.
// Every method takes the caller's userID for the ownership check.
type DocumentService interface {
	// CreateDocument creates a pending document with empty content
	CreateDocument(ctx context.Context, req *CreateDocumentRequest) (*docsystem.Document, error)

	// GetDocument retrieves a document
	GetDocument(ctx context.Context, userID, documentID string) (*docsystem.Document, error)

	// ListDocuments lists the caller's documents without content
	ListDocuments(ctx context.Context, userID string) ([]docsystem.Document, error)

	// WriteCurrentContent overwrites the document's current content
	WriteCurrentContent(ctx context.Context, userID, documentID, content string) (*docsystem.Document, error)

	// ImportContent converts an uploaded file and stores it as ready content
	ImportContent(ctx context.Context, req *ImportContentRequest) (*docsystem.Document, error)

	// ExportMarkdown renders the current content as markdown
	ExportMarkdown(ctx context.Context, userID, documentID string) (string, error)
}

// CreateDocumentRequest represents a document creation request
type CreateDocumentRequest struct {
	UserID   string  `json:"-"` // Set by handler from auth context, not from request body
	Title    string  `json:"title"`
	FileURL  *string `json:"file_url,omitempty"`
	FileType *string `json:"file_type,omitempty"`
}

// ImportContentRequest carries an uploaded file for a document
type ImportContentRequest struct {
	UserID     string
	DocumentID string
	Filename   string
	Data       []byte
}
