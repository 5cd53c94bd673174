package docsystem

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"

	"smartdoc/internal/config"
	"smartdoc/internal/domain"
	models "smartdoc/internal/domain/models/docsystem"
	docsysRepo "smartdoc/internal/domain/repositories/docsystem"
	"smartdoc/internal/domain/services"
	docsysSvc "smartdoc/internal/domain/services/docsystem"
	"smartdoc/internal/events"
)

// documentService implements the DocumentService interface
type documentService struct {
	docRepo         docsysRepo.DocumentRepository
	authorizer      services.ResourceAuthorizer
	serializer      docsysSvc.ContentSerializer
	converters      docsysSvc.ConverterRegistry
	contentAnalyzer services.ContentAnalyzer
	broker          events.Broker
	logger          *slog.Logger
}

// NewDocumentService creates a new document service
func NewDocumentService(
	docRepo docsysRepo.DocumentRepository,
	authorizer services.ResourceAuthorizer,
	serializer docsysSvc.ContentSerializer,
	converters docsysSvc.ConverterRegistry,
	contentAnalyzer services.ContentAnalyzer,
	broker events.Broker,
	logger *slog.Logger,
) docsysSvc.DocumentService {
	return &documentService{
		docRepo:         docRepo,
		authorizer:      authorizer,
		serializer:      serializer,
		converters:      converters,
		contentAnalyzer: contentAnalyzer,
		broker:          broker,
		logger:          logger,
	}
}

// CreateDocument creates a pending document with the empty placeholder content
func (s *documentService) CreateDocument(ctx context.Context, req *docsysSvc.CreateDocumentRequest) (*models.Document, error) {
	req.Title = strings.TrimSpace(req.Title)
	if req.Title == "" {
		req.Title = models.DefaultDocumentTitle
	}

	if err := s.validateCreateRequest(req); err != nil {
		return nil, &domain.ValidationError{Message: err.Error()}
	}

	doc := &models.Document{
		UserID:   req.UserID,
		Title:    req.Title,
		Status:   models.StatusPending,
		Content:  models.EmptyContent,
		FileURL:  req.FileURL,
		FileType: req.FileType,
	}
	if err := s.docRepo.Create(ctx, doc); err != nil {
		return nil, err
	}

	s.logger.Info("document created",
		"id", doc.ID,
		"title", doc.Title,
		"user_id", doc.UserID,
		"has_file", doc.HasFile(),
	)

	return doc, nil
}

// GetDocument retrieves a document the caller owns
func (s *documentService) GetDocument(ctx context.Context, userID, documentID string) (*models.Document, error) {
	if err := s.authorizer.CanAccessDocument(ctx, userID, documentID); err != nil {
		return nil, err
	}
	return s.docRepo.GetByID(ctx, documentID)
}

// ListDocuments lists the caller's documents without content
func (s *documentService) ListDocuments(ctx context.Context, userID string) ([]models.Document, error) {
	return s.docRepo.ListByUser(ctx, userID)
}

// WriteCurrentContent overwrites the document's current content. The store
// keeps whatever arrives last; there is no revision check.
func (s *documentService) WriteCurrentContent(ctx context.Context, userID, documentID, content string) (*models.Document, error) {
	if err := s.authorizer.CanAccessDocument(ctx, userID, documentID); err != nil {
		return nil, err
	}
	if len(content) > config.MaxContentBytes {
		return nil, &domain.ValidationError{Message: fmt.Sprintf("content exceeds %d bytes", config.MaxContentBytes)}
	}

	tree, err := s.serializer.Load(content)
	if err != nil {
		return nil, err
	}

	doc, err := s.docRepo.UpdateContent(ctx, documentID, &docsysRepo.ContentUpdate{
		Content:   content,
		WordCount: s.countWords(tree),
	})
	if err != nil {
		return nil, err
	}

	s.logger.Debug("current content written",
		"document_id", documentID,
		"bytes", len(content),
		"word_count", doc.WordCount,
	)
	return doc, nil
}

// ImportContent converts an uploaded file into the document's content and
// marks the document ready.
func (s *documentService) ImportContent(ctx context.Context, req *docsysSvc.ImportContentRequest) (*models.Document, error) {
	if err := validation.ValidateStruct(req,
		validation.Field(&req.DocumentID, validation.Required),
		validation.Field(&req.Filename, validation.Required, validation.By(s.supportedFile)),
		validation.Field(&req.Data, validation.Required, validation.Length(1, config.MaxImportBytes)),
	); err != nil {
		return nil, &domain.ValidationError{Message: err.Error()}
	}
	if err := s.authorizer.CanAccessDocument(ctx, req.UserID, req.DocumentID); err != nil {
		return nil, err
	}

	conv, err := s.converters.ForFile(req.Filename)
	if err != nil {
		return nil, err
	}
	tree, err := conv.Convert(ctx, req.Data)
	if err != nil {
		return nil, &domain.MalformedContentError{Message: fmt.Sprintf("convert %s: %v", req.Filename, err)}
	}
	content, err := s.serializer.Serialize(tree)
	if err != nil {
		return nil, err
	}

	ready := models.StatusReady
	doc, err := s.docRepo.UpdateContent(ctx, req.DocumentID, &docsysRepo.ContentUpdate{
		Content:   content,
		WordCount: s.countWords(tree),
		Status:    &ready,
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("document imported",
		"document_id", req.DocumentID,
		"filename", req.Filename,
		"converter", conv.Name(),
		"word_count", doc.WordCount,
	)
	s.publish(ctx, events.New(events.TypeContentImported, doc.ID, map[string]interface{}{
		"status":   string(doc.Status),
		"filename": req.Filename,
	}))

	return doc, nil
}

// ExportMarkdown renders the document's current content as markdown
func (s *documentService) ExportMarkdown(ctx context.Context, userID, documentID string) (string, error) {
	doc, err := s.GetDocument(ctx, userID, documentID)
	if err != nil {
		return "", err
	}
	tree, err := s.serializer.Load(doc.Content)
	if err != nil {
		return "", err
	}
	return s.serializer.ToMarkdown(tree)
}

func (s *documentService) validateCreateRequest(req *docsysSvc.CreateDocumentRequest) error {
	return validation.ValidateStruct(req,
		validation.Field(&req.UserID, validation.Required),
		validation.Field(&req.Title, validation.Length(1, config.MaxDocumentTitleLength)),
		validation.Field(&req.FileURL, validation.NilOrNotEmpty, is.URL),
		validation.Field(&req.FileType, validation.NilOrNotEmpty, validation.Length(1, 32)),
	)
}

func (s *documentService) supportedFile(value interface{}) error {
	name, _ := value.(string)
	if !s.converters.IsSupported(name) {
		return fmt.Errorf("unsupported file type (supported: %s)", strings.Join(s.converters.SupportedExtensions(), ", "))
	}
	return nil
}

// countWords counts words in the markdown rendering of tree. A rendering
// failure only costs the statistic, never the write.
func (s *documentService) countWords(tree *models.Node) int {
	markdown, err := s.serializer.ToMarkdown(tree)
	if err != nil {
		s.logger.Warn("word count skipped", "error", err)
		return 0
	}
	return s.contentAnalyzer.CountWords(markdown)
}

func (s *documentService) publish(ctx context.Context, event events.Event) {
	if s.broker == nil {
		return
	}
	if err := s.broker.Publish(ctx, event.DocumentID, event); err != nil {
		s.logger.Warn("event publish failed", "type", event.Type, "document_id", event.DocumentID, "error", err)
	}
}
