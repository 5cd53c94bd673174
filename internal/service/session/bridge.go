package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"smartdoc/internal/config"
	"smartdoc/internal/domain"
	models "smartdoc/internal/domain/models/docsystem"
	docsysSvc "smartdoc/internal/domain/services/docsystem"
	"smartdoc/internal/observability"
)

// OpenState is what a session does after the document is first fetched
type OpenState string

const (
	OpenEditing        OpenState = "editing"
	OpenPolling        OpenState = "polling"
	OpenAwaitingImport OpenState = "awaiting_import"
	OpenFailed         OpenState = "failed"
)

// Placeholder reasons
const (
	ReasonGenerationFailed      = "generation_failed"
	ReasonGenerationStartFailed = "generation_start_failed"
	ReasonMalformed             = "malformed"
)

// bridgeHooks are the session callbacks the bridge drives
type bridgeHooks struct {
	// apply loads content into the editor. stored is the content as it was fetched.
	apply       func(ctx context.Context, tree *models.Node, stored string) error
	placeholder func(reason, message string)
	progress    func(message string)
	notice      func(message string)
}

// Bridge follows a document through generation and loads its content into
// the session exactly once, whichever path it arrives by.
type Bridge struct {
	documentID   string
	store        Store
	gen          Generator
	serializer   docsysSvc.ContentSerializer
	clock        Clock
	interval     time.Duration
	messages     []string
	placeholders config.Placeholders
	hooks        bridgeHooks
	metrics      *observability.Metrics
	logger       *slog.Logger

	mu    sync.Mutex
	done  bool
	ticks int
}

func newBridge(
	documentID string,
	store Store,
	gen Generator,
	serializer docsysSvc.ContentSerializer,
	clock Clock,
	cfg config.EditorConfig,
	hooks bridgeHooks,
	metrics *observability.Metrics,
	logger *slog.Logger,
) *Bridge {
	return &Bridge{
		documentID:   documentID,
		store:        store,
		gen:          gen,
		serializer:   serializer,
		clock:        clock,
		interval:     cfg.PollInterval,
		messages:     cfg.ProgressMessages,
		placeholders: cfg.Placeholders,
		hooks:        hooks,
		metrics:      metrics,
		logger:       logger,
	}
}

// Open fetches the document once and decides how the session proceeds.
// Content already present is loaded right away and generation is never
// triggered for it.
func (b *Bridge) Open(ctx context.Context) (OpenState, *models.Document, error) {
	doc, err := b.store.GetDocument(ctx, b.documentID)
	if err != nil {
		return "", nil, err
	}

	if doc.HasUsableContent() {
		b.finish()
		return b.load(ctx, doc.Content), doc, nil
	}

	switch doc.Status {
	case models.StatusReady:
		b.finish()
		return b.load(ctx, doc.Content), doc, nil

	case models.StatusError:
		b.finish()
		b.hooks.placeholder(ReasonGenerationFailed, b.placeholders.GenerationFailed)
		return OpenFailed, doc, nil

	case models.StatusGenerating:
		return OpenPolling, doc, nil
	}

	if doc.HasFile() {
		return OpenAwaitingImport, doc, nil
	}

	if err := b.gen.StartGeneration(ctx, b.documentID); err != nil {
		// Someone else moved the document past pending; polling shows where it went.
		if errors.Is(err, domain.ErrValidation) {
			b.logger.Info("generation already started elsewhere", "document_id", b.documentID)
			return OpenPolling, doc, nil
		}
		b.logger.Error("failed to start generation",
			"document_id", b.documentID,
			"error", err,
		)
		b.finish()
		b.hooks.placeholder(ReasonGenerationStartFailed, b.placeholders.GenerationStartFailed)
		return OpenFailed, doc, nil
	}

	b.logger.Info("generation started", "document_id", b.documentID)
	return OpenPolling, doc, nil
}

// Run polls the document status on every tick until a terminal status has
// been handled or ctx ends.
func (b *Bridge) Run(ctx context.Context) error {
	ticker := b.clock.NewTicker(b.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C():
			if b.poll(ctx) {
				return nil
			}
		}
	}
}

// Done reports whether the bridge has handled a terminal status
func (b *Bridge) Done() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.done
}

// poll runs one tick and reports whether polling should stop. A failed status
// fetch is ignored; the next tick tries again.
func (b *Bridge) poll(ctx context.Context) bool {
	if b.Done() {
		return true
	}

	status, err := b.gen.GetStatus(ctx, b.documentID)
	if err != nil {
		if ctx.Err() != nil {
			return true
		}
		b.logger.Warn("status poll failed",
			"document_id", b.documentID,
			"error", err,
		)
		b.metrics.Poll("failed")
		return false
	}
	b.metrics.Poll(string(status.Status))

	switch status.Status {
	case models.StatusReady:
		if b.finish() {
			b.load(ctx, status.Content)
		}
		return true

	case models.StatusError:
		if b.finish() {
			b.hooks.placeholder(ReasonGenerationFailed, b.placeholders.GenerationFailed)
		}
		return true
	}

	if msg := b.nextMessage(); msg != "" {
		b.hooks.progress(msg)
	}
	return false
}

// finish latches the terminal state; only the first caller gets true
func (b *Bridge) finish() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.done {
		return false
	}
	b.done = true
	return true
}

// load parses content and applies it. Content that cannot be parsed leaves the
// editor alone and shows the malformed placeholder instead.
func (b *Bridge) load(ctx context.Context, content string) OpenState {
	tree, err := b.serializer.Load(content)
	if err != nil {
		return b.malformed(err)
	}

	if !models.IsUsableContent(content) {
		b.hooks.notice(b.placeholders.EmptyReady)
	}
	if err := b.hooks.apply(ctx, tree, content); err != nil {
		return b.malformed(err)
	}
	return OpenEditing
}

func (b *Bridge) malformed(err error) OpenState {
	b.logger.Warn("document content is malformed",
		"document_id", b.documentID,
		"error", err,
	)
	b.hooks.placeholder(ReasonMalformed, b.placeholders.Malformed)
	return OpenFailed
}

func (b *Bridge) nextMessage() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.messages) == 0 {
		return ""
	}
	msg := b.messages[b.ticks%len(b.messages)]
	b.ticks++
	return msg
}
