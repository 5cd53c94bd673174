package docsystem

import (
	"context"
	"time"

	"smartdoc/internal/domain/models/docsystem"
)

// GenerationStatus is the document-status view polled while generation runs
type GenerationStatus struct {
	DocumentID string                   `json:"document_id"`
	Status     docsystem.DocumentStatus `json:"status"`
	Title      string                   `json:"title"`
	Content    string                   `json:"content"`
	UpdatedAt  time.Time                `json:"updated_at"`
}

// GenerationService runs AI document generation jobs
type GenerationService interface {
	// StartGeneration accepts a job for a pending document and returns immediately
	StartGeneration(ctx context.Context, userID, documentID string) error

	// GetStatus returns the current status and content of the document
	GetStatus(ctx context.Context, userID, documentID string) (*GenerationStatus, error)

	// Cancel stops a running job; reports whether one was running
	Cancel(documentID string) bool
}
