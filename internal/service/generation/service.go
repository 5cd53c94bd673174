// Package generation runs AI document generation jobs in the background and
// serves the start-generation and document-status contract the editor polls.
package generation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	mstream "github.com/haowjy/meridian-stream-go"
	"golang.org/x/time/rate"

	"smartdoc/internal/domain"
	models "smartdoc/internal/domain/models/docsystem"
	docsysRepo "smartdoc/internal/domain/repositories/docsystem"
	"smartdoc/internal/domain/services"
	docsysSvc "smartdoc/internal/domain/services/docsystem"
	"smartdoc/internal/events"
	"smartdoc/internal/observability"
)

// jobTimeout bounds a single generation job, model call included
const jobTimeout = 5 * time.Minute

// Job event types sent on the document's stream
const (
	EventStarted   = "generation_started"
	EventProgress  = "generation_progress"
	EventCompleted = "generation_complete"
	EventFailed    = "generation_error"
)

// Config wires a generation service
type Config struct {
	DocRepo    docsysRepo.DocumentRepository
	Authorizer services.ResourceAuthorizer
	Serializer docsysSvc.ContentSerializer
	Converter  docsysSvc.ContentConverter // turns model output into a tree
	Analyzer   services.ContentAnalyzer
	Provider   Provider
	Model      string
	Limiter    *rate.Limiter
	Registry   *mstream.Registry
	Broker     events.Broker
	Metrics    *observability.Metrics
	Logger     *slog.Logger
}

// Service implements GenerationService
type Service struct {
	docRepo    docsysRepo.DocumentRepository
	authorizer services.ResourceAuthorizer
	serializer docsysSvc.ContentSerializer
	converter  docsysSvc.ContentConverter
	analyzer   services.ContentAnalyzer
	provider   Provider
	model      string
	limiter    *rate.Limiter
	registry   *mstream.Registry
	broker     events.Broker
	metrics    *observability.Metrics
	logger     *slog.Logger

	mu      sync.Mutex
	running map[string]struct{}
	wg      sync.WaitGroup
}

// NewService creates a generation service
func NewService(cfg Config) *Service {
	limiter := cfg.Limiter
	if limiter == nil {
		limiter = rate.NewLimiter(rate.Inf, 1)
	}
	return &Service{
		docRepo:    cfg.DocRepo,
		authorizer: cfg.Authorizer,
		serializer: cfg.Serializer,
		converter:  cfg.Converter,
		analyzer:   cfg.Analyzer,
		provider:   cfg.Provider,
		model:      cfg.Model,
		limiter:    limiter,
		registry:   cfg.Registry,
		broker:     cfg.Broker,
		metrics:    cfg.Metrics,
		logger:     cfg.Logger,
		running:    make(map[string]struct{}),
	}
}

var _ docsysSvc.GenerationService = (*Service)(nil)

// StartGeneration moves a pending document to generating and starts the job
// in the background. It returns as soon as the job is accepted.
func (s *Service) StartGeneration(ctx context.Context, userID, documentID string) error {
	if err := s.authorizer.CanAccessDocument(ctx, userID, documentID); err != nil {
		return err
	}

	doc, err := s.docRepo.TransitionStatus(ctx, documentID,
		[]models.DocumentStatus{models.StatusPending}, models.StatusGenerating)
	if err != nil {
		if errors.Is(err, domain.ErrConflict) {
			return &domain.ValidationError{Message: "document is not pending"}
		}
		return err
	}

	s.mu.Lock()
	s.running[documentID] = struct{}{}
	s.mu.Unlock()
	s.wg.Add(1)

	// Register before starting so Cancel can find the job immediately
	stream := mstream.NewStream(documentID, s.workFunc(doc))
	s.registry.Register(stream)
	stream.Start()

	s.logger.Info("generation started",
		"document_id", documentID,
		"title", doc.Title,
		"model", s.model,
	)
	s.publishStatus(ctx, doc.ID, models.StatusGenerating)
	return nil
}

// GetStatus returns the document-status view polled by editing sessions
func (s *Service) GetStatus(ctx context.Context, userID, documentID string) (*docsysSvc.GenerationStatus, error) {
	if err := s.authorizer.CanAccessDocument(ctx, userID, documentID); err != nil {
		return nil, err
	}
	doc, err := s.docRepo.GetByID(ctx, documentID)
	if err != nil {
		return nil, err
	}
	return &docsysSvc.GenerationStatus{
		DocumentID: doc.ID,
		Status:     doc.Status,
		Title:      doc.Title,
		Content:    doc.Content,
		UpdatedAt:  doc.UpdatedAt,
	}, nil
}

// Cancel stops the running job for documentID. The job records the document as failed.
func (s *Service) Cancel(documentID string) bool {
	s.mu.Lock()
	_, ok := s.running[documentID]
	s.mu.Unlock()
	if !ok {
		return false
	}

	stream := s.registry.Get(documentID)
	if stream == nil {
		return false
	}
	stream.Cancel()
	s.logger.Info("generation cancelled", "document_id", documentID)
	return true
}

// Wait blocks until every started job has finished
func (s *Service) Wait() {
	s.wg.Wait()
}

func (s *Service) workFunc(doc *models.Document) func(ctx context.Context, send func(mstream.Event)) error {
	return func(ctx context.Context, send func(mstream.Event)) error {
		defer s.wg.Done()
		defer func() {
			s.mu.Lock()
			delete(s.running, doc.ID)
			s.mu.Unlock()
		}()

		ctx, cancel := context.WithTimeout(ctx, jobTimeout)
		defer cancel()

		s.sendEvent(send, EventStarted, map[string]interface{}{"document_id": doc.ID})

		err := s.generate(ctx, doc, send)
		if err != nil {
			s.fail(ctx, doc.ID, err, send)
			return err
		}
		return nil
	}
}

// generate produces content for doc and stores it with status ready
func (s *Service) generate(ctx context.Context, doc *models.Document, send func(mstream.Event)) error {
	if err := s.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("wait for generation slot: %w", err)
	}
	s.sendEvent(send, EventProgress, map[string]interface{}{"stage": "writing"})

	text, err := Draft(ctx, s.provider, s.model, doc.Title)
	if err != nil {
		return err
	}
	s.sendEvent(send, EventProgress, map[string]interface{}{"stage": "formatting"})

	tree, err := s.converter.Convert(ctx, []byte(text))
	if err != nil {
		return fmt.Errorf("convert generated content: %w", err)
	}
	content, err := s.serializer.Serialize(tree)
	if err != nil {
		return err
	}

	wordCount := 0
	if markdown, err := s.serializer.ToMarkdown(tree); err == nil {
		wordCount = s.analyzer.CountWords(markdown)
	}

	// The write outlives a cancellation that lands after the model answered.
	// It only lands while the document is still generating.
	ready := models.StatusReady
	if _, err := s.docRepo.UpdateContent(context.WithoutCancel(ctx), doc.ID, &docsysRepo.ContentUpdate{
		Content:   content,
		WordCount: wordCount,
		Status:    &ready,
		From:      []models.DocumentStatus{models.StatusGenerating},
	}); err != nil {
		if errors.Is(err, domain.ErrConflict) {
			s.logger.Warn("generation superseded", "document_id", doc.ID, "error", err)
			s.metrics.GenerationJob(observability.ResultSkipped)
			s.sendEvent(send, EventCompleted, map[string]interface{}{"document_id": doc.ID, "superseded": true})
			return nil
		}
		return fmt.Errorf("store generated content: %w", err)
	}

	s.logger.Info("generation complete",
		"document_id", doc.ID,
		"word_count", wordCount,
		"bytes", len(content),
	)
	s.metrics.GenerationJob(observability.ResultSuccess)
	s.sendEvent(send, EventCompleted, map[string]interface{}{"document_id": doc.ID, "word_count": wordCount})
	s.publishStatus(context.WithoutCancel(ctx), doc.ID, models.StatusReady)
	return nil
}

// fail records the job failure on the document
func (s *Service) fail(ctx context.Context, documentID string, cause error, send func(mstream.Event)) {
	ctx = context.WithoutCancel(ctx)

	s.logger.Error("generation failed", "document_id", documentID, "error", cause)
	s.metrics.GenerationJob(observability.ResultError)

	if _, err := s.docRepo.TransitionStatus(ctx, documentID,
		[]models.DocumentStatus{models.StatusGenerating}, models.StatusError); err != nil {
		s.logger.Error("failed to record generation error", "document_id", documentID, "error", err)
	}

	s.sendEvent(send, EventFailed, map[string]interface{}{"document_id": documentID, "error": cause.Error()})
	s.publishStatus(ctx, documentID, models.StatusError)
}

func (s *Service) sendEvent(send func(mstream.Event), eventType string, data interface{}) {
	jsonData, err := json.Marshal(data)
	if err != nil {
		s.logger.Error("failed to marshal event data", "error", err, "event_type", eventType)
		return
	}
	send(mstream.NewEvent(jsonData).WithType(eventType))
}

func (s *Service) publishStatus(ctx context.Context, documentID string, status models.DocumentStatus) {
	if s.broker == nil {
		return
	}
	event := events.New(events.TypeStatusChanged, documentID, map[string]interface{}{"status": string(status)})
	if err := s.broker.Publish(ctx, documentID, event); err != nil {
		s.logger.Warn("event publish failed", "type", event.Type, "document_id", documentID, "error", err)
	}
}
