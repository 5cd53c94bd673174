package handler

import (
	"context"
	"log/slog"
	"net/http"

	docsysSvc "smartdoc/internal/domain/services/docsystem"
	"smartdoc/internal/events"
	"smartdoc/internal/handler/sse"
	"smartdoc/internal/httputil"
)

// DocumentHandler serves documents, their generation jobs and their event streams.
// Handlers only communicate with services, never repositories.
type DocumentHandler struct {
	docService docsysSvc.DocumentService
	generation docsysSvc.GenerationService
	broker     events.Broker
	sseConfig  *sse.Config
	logger     *slog.Logger
}

// NewDocumentHandler creates a new document handler
func NewDocumentHandler(
	docService docsysSvc.DocumentService,
	generation docsysSvc.GenerationService,
	broker events.Broker,
	sseConfig *sse.Config,
	logger *slog.Logger,
) *DocumentHandler {
	return &DocumentHandler{
		docService: docService,
		generation: generation,
		broker:     broker,
		sseConfig:  sseConfig,
		logger:     logger,
	}
}

// CreateDocument creates a pending document
// POST /api/documents
func (h *DocumentHandler) CreateDocument(w http.ResponseWriter, r *http.Request) {
	var req docsysSvc.CreateDocumentRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondBadBody(w, err)
		return
	}
	req.UserID = httputil.GetUserID(r)

	doc, err := h.docService.CreateDocument(r.Context(), &req)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusCreated, doc)
}

// ListDocuments lists the caller's documents
// GET /api/documents
func (h *DocumentHandler) ListDocuments(w http.ResponseWriter, r *http.Request) {
	docs, err := h.docService.ListDocuments(r.Context(), httputil.GetUserID(r))
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, docs)
}

// GetDocument retrieves a document with its content
// GET /api/documents/{id}
func (h *DocumentHandler) GetDocument(w http.ResponseWriter, r *http.Request) {
	docID, ok := PathParam(w, r, "id", "Document ID")
	if !ok {
		return
	}

	doc, err := h.docService.GetDocument(r.Context(), httputil.GetUserID(r), docID)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, doc)
}

type writeContentRequest struct {
	Content string `json:"content"`
}

// WriteContent overwrites the current content of a document
// PUT /api/documents/{id}/content
func (h *DocumentHandler) WriteContent(w http.ResponseWriter, r *http.Request) {
	docID, ok := PathParam(w, r, "id", "Document ID")
	if !ok {
		return
	}

	var req writeContentRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondBadBody(w, err)
		return
	}

	doc, err := h.docService.WriteCurrentContent(r.Context(), httputil.GetUserID(r), docID, req.Content)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, doc)
}

// StartGeneration accepts a generation job for a pending document
// POST /api/documents/{id}/generate
func (h *DocumentHandler) StartGeneration(w http.ResponseWriter, r *http.Request) {
	docID, ok := PathParam(w, r, "id", "Document ID")
	if !ok {
		return
	}

	if err := h.generation.StartGeneration(r.Context(), httputil.GetUserID(r), docID); err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusAccepted, map[string]interface{}{
		"document_id": docID,
		"status":      "generating",
	})
}

// CancelGeneration stops a running generation job
// DELETE /api/documents/{id}/generate
func (h *DocumentHandler) CancelGeneration(w http.ResponseWriter, r *http.Request) {
	docID, ok := PathParam(w, r, "id", "Document ID")
	if !ok {
		return
	}

	// Ownership check before touching the job
	if _, err := h.generation.GetStatus(r.Context(), httputil.GetUserID(r), docID); err != nil {
		handleError(w, err)
		return
	}

	if !h.generation.Cancel(docID) {
		httputil.RespondError(w, http.StatusNotFound, "Document is not currently generating")
		return
	}

	httputil.RespondJSON(w, http.StatusOK, map[string]interface{}{
		"document_id": docID,
		"status":      "cancelled",
	})
}

// GetStatus returns the generation status and content of a document
// GET /api/documents/{id}/status
func (h *DocumentHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	docID, ok := PathParam(w, r, "id", "Document ID")
	if !ok {
		return
	}

	status, err := h.generation.GetStatus(r.Context(), httputil.GetUserID(r), docID)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, status)
}

// ImportFile stores an uploaded file as the document's content
// POST /api/documents/{id}/import (multipart, field "file")
func (h *DocumentHandler) ImportFile(w http.ResponseWriter, r *http.Request) {
	docID, ok := PathParam(w, r, "id", "Document ID")
	if !ok {
		return
	}

	filename, data, err := readUpload(w, r)
	if err != nil {
		handleError(w, err)
		return
	}

	doc, err := h.docService.ImportContent(r.Context(), &docsysSvc.ImportContentRequest{
		UserID:     httputil.GetUserID(r),
		DocumentID: docID,
		Filename:   filename,
		Data:       data,
	})
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, doc)
}

// ExportMarkdown renders the document as markdown
// GET /api/documents/{id}/markdown
func (h *DocumentHandler) ExportMarkdown(w http.ResponseWriter, r *http.Request) {
	docID, ok := PathParam(w, r, "id", "Document ID")
	if !ok {
		return
	}

	markdown, err := h.docService.ExportMarkdown(r.Context(), httputil.GetUserID(r), docID)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondText(w, http.StatusOK, "text/markdown; charset=utf-8", markdown)
}

// StreamEvents streams status, import and snapshot events for a document
// GET /api/documents/{id}/events
func (h *DocumentHandler) StreamEvents(w http.ResponseWriter, r *http.Request) {
	docID, ok := PathParam(w, r, "id", "Document ID")
	if !ok {
		return
	}

	if _, err := h.docService.GetDocument(r.Context(), httputil.GetUserID(r), docID); err != nil {
		handleError(w, err)
		return
	}

	streamEvents(w, r, docID, func(ctx context.Context) (<-chan events.Event, func(), error) {
		return h.broker.Subscribe(ctx, docID)
	}, h.sseConfig, h.logger)
}
