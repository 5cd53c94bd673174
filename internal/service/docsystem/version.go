package docsystem

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"smartdoc/internal/config"
	"smartdoc/internal/domain"
	models "smartdoc/internal/domain/models/docsystem"
	"smartdoc/internal/domain/repositories"
	docsysRepo "smartdoc/internal/domain/repositories/docsystem"
	"smartdoc/internal/domain/services"
	docsysSvc "smartdoc/internal/domain/services/docsystem"
	"smartdoc/internal/events"
)

// versionService implements the VersionService interface
type versionService struct {
	snapshotRepo docsysRepo.SnapshotRepository
	docService   docsysSvc.DocumentService
	txManager    repositories.TransactionManager
	authorizer   services.ResourceAuthorizer
	serializer   docsysSvc.ContentSerializer
	broker       events.Broker
	logger       *slog.Logger
	now          func() time.Time
}

// NewVersionService creates a new version service
func NewVersionService(
	snapshotRepo docsysRepo.SnapshotRepository,
	docService docsysSvc.DocumentService,
	txManager repositories.TransactionManager,
	authorizer services.ResourceAuthorizer,
	serializer docsysSvc.ContentSerializer,
	broker events.Broker,
	logger *slog.Logger,
) docsysSvc.VersionService {
	return &versionService{
		snapshotRepo: snapshotRepo,
		docService:   docService,
		txManager:    txManager,
		authorizer:   authorizer,
		serializer:   serializer,
		broker:       broker,
		logger:       logger,
		now:          time.Now,
	}
}

// CreateSnapshot records content as the next version of the document.
// An empty name gets the automatic "Auto Draft - ..." name.
func (s *versionService) CreateSnapshot(ctx context.Context, req *docsysSvc.CreateSnapshotRequest) (*models.Snapshot, error) {
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		req.Name = models.AutoSnapshotName(s.now())
	}

	if err := validation.ValidateStruct(req,
		validation.Field(&req.DocumentID, validation.Required),
		validation.Field(&req.Name, validation.Length(1, config.MaxSnapshotNameLength)),
		validation.Field(&req.Content, validation.Length(0, config.MaxContentBytes)),
	); err != nil {
		return nil, &domain.ValidationError{Message: err.Error()}
	}
	if err := s.authorizer.CanAccessDocument(ctx, req.UserID, req.DocumentID); err != nil {
		return nil, err
	}

	// Reject content no one could restore later
	if _, err := s.serializer.Load(req.Content); err != nil {
		return nil, err
	}

	snap := &models.Snapshot{
		DocumentID: req.DocumentID,
		Name:       req.Name,
		Content:    req.Content,
	}
	if err := s.snapshotRepo.Create(ctx, snap); err != nil {
		return nil, err
	}

	s.logger.Info("snapshot created",
		"document_id", snap.DocumentID,
		"snapshot_id", snap.ID,
		"version", snap.Version,
		"name", snap.Name,
	)
	s.publish(ctx, events.New(events.TypeSnapshotCreated, snap.DocumentID, map[string]interface{}{
		"snapshot_id": snap.ID,
		"version":     snap.Version,
		"name":        snap.Name,
	}))

	return snap, nil
}

// ListSnapshots returns summaries newest-first
func (s *versionService) ListSnapshots(ctx context.Context, userID, documentID string) ([]models.SnapshotSummary, error) {
	if err := s.authorizer.CanAccessDocument(ctx, userID, documentID); err != nil {
		return nil, err
	}
	return s.snapshotRepo.ListByDocument(ctx, documentID)
}

func (s *versionService) GetSnapshot(ctx context.Context, userID, snapshotID string) (*models.Snapshot, error) {
	if err := s.authorizer.CanAccessSnapshot(ctx, userID, snapshotID); err != nil {
		return nil, err
	}
	return s.snapshotRepo.GetByID(ctx, snapshotID)
}

// GetSnapshotContent returns the serialized content of a snapshot
func (s *versionService) GetSnapshotContent(ctx context.Context, userID, snapshotID string) (string, error) {
	snap, err := s.GetSnapshot(ctx, userID, snapshotID)
	if err != nil {
		return "", err
	}
	return snap.Content, nil
}

// RestoreSnapshot writes a snapshot's content back as current content. The
// snapshot is decoded before anything is written, so corrupt content leaves
// the document untouched.
func (s *versionService) RestoreSnapshot(ctx context.Context, userID, documentID, snapshotID string) (*models.Document, error) {
	if err := s.authorizer.CanAccessDocument(ctx, userID, documentID); err != nil {
		return nil, err
	}

	var restored *models.Document
	err := s.txManager.ExecTx(ctx, func(txCtx context.Context) error {
		snap, err := s.snapshotRepo.GetByID(txCtx, snapshotID)
		if err != nil {
			return err
		}
		if snap.DocumentID != documentID {
			return &domain.NotFoundError{Message: fmt.Sprintf("snapshot %s not found for document %s", snapshotID, documentID)}
		}

		tree, err := s.serializer.Load(snap.Content)
		if err != nil {
			return err
		}
		content, err := s.serializer.Serialize(tree)
		if err != nil {
			return err
		}

		restored, err = s.docService.WriteCurrentContent(txCtx, userID, documentID, content)
		if err != nil {
			return err
		}

		s.logger.Info("snapshot restored",
			"document_id", documentID,
			"snapshot_id", snapshotID,
			"version", snap.Version,
		)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, events.New(events.TypeRestored, documentID, map[string]interface{}{
		"snapshot_id": snapshotID,
	}))
	return restored, nil
}

func (s *versionService) publish(ctx context.Context, event events.Event) {
	if s.broker == nil {
		return
	}
	if err := s.broker.Publish(ctx, event.DocumentID, event); err != nil {
		s.logger.Warn("event publish failed", "type", event.Type, "document_id", event.DocumentID, "error", err)
	}
}
