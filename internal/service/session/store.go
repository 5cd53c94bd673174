package session

import (
	"context"

	models "smartdoc/internal/domain/models/docsystem"
	docsysSvc "smartdoc/internal/domain/services/docsystem"
)

// Store is the persistence boundary a session writes through. Calls are made
// on behalf of the session's user.
type Store interface {
	GetDocument(ctx context.Context, documentID string) (*models.Document, error)
	WriteCurrentContent(ctx context.Context, documentID, content string) (*models.Document, error)
	CreateSnapshot(ctx context.Context, documentID, name, content string) (*models.Snapshot, error)
	ListSnapshots(ctx context.Context, documentID string) ([]models.SnapshotSummary, error)
	GetSnapshot(ctx context.Context, snapshotID string) (*models.Snapshot, error)
	ImportContent(ctx context.Context, documentID, filename string, data []byte) (*models.Document, error)
}

// Generator is the external generation contract: start a job, poll its status
type Generator interface {
	StartGeneration(ctx context.Context, documentID string) error
	GetStatus(ctx context.Context, documentID string) (*docsysSvc.GenerationStatus, error)
}

// serviceStore binds the document, version and generation services to one user
type serviceStore struct {
	userID     string
	documents  docsysSvc.DocumentService
	versions   docsysSvc.VersionService
	generation docsysSvc.GenerationService
}

// NewServiceStore adapts the services to Store and Generator for userID
func NewServiceStore(
	userID string,
	documents docsysSvc.DocumentService,
	versions docsysSvc.VersionService,
	generation docsysSvc.GenerationService,
) *serviceStore {
	return &serviceStore{
		userID:     userID,
		documents:  documents,
		versions:   versions,
		generation: generation,
	}
}

func (s *serviceStore) GetDocument(ctx context.Context, documentID string) (*models.Document, error) {
	return s.documents.GetDocument(ctx, s.userID, documentID)
}

func (s *serviceStore) WriteCurrentContent(ctx context.Context, documentID, content string) (*models.Document, error) {
	return s.documents.WriteCurrentContent(ctx, s.userID, documentID, content)
}

func (s *serviceStore) CreateSnapshot(ctx context.Context, documentID, name, content string) (*models.Snapshot, error) {
	return s.versions.CreateSnapshot(ctx, &docsysSvc.CreateSnapshotRequest{
		UserID:     s.userID,
		DocumentID: documentID,
		Name:       name,
		Content:    content,
	})
}

func (s *serviceStore) ListSnapshots(ctx context.Context, documentID string) ([]models.SnapshotSummary, error) {
	return s.versions.ListSnapshots(ctx, s.userID, documentID)
}

func (s *serviceStore) GetSnapshot(ctx context.Context, snapshotID string) (*models.Snapshot, error) {
	return s.versions.GetSnapshot(ctx, s.userID, snapshotID)
}

func (s *serviceStore) ImportContent(ctx context.Context, documentID, filename string, data []byte) (*models.Document, error) {
	return s.documents.ImportContent(ctx, &docsysSvc.ImportContentRequest{
		UserID:     s.userID,
		DocumentID: documentID,
		Filename:   filename,
		Data:       data,
	})
}

func (s *serviceStore) StartGeneration(ctx context.Context, documentID string) error {
	return s.generation.StartGeneration(ctx, s.userID, documentID)
}

func (s *serviceStore) GetStatus(ctx context.Context, documentID string) (*docsysSvc.GenerationStatus, error) {
	return s.generation.GetStatus(ctx, s.userID, documentID)
}
