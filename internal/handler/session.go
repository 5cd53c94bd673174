package handler

import (
	"context"
	"log/slog"
	"net/http"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"smartdoc/internal/domain"
	models "smartdoc/internal/domain/models/docsystem"
	docsysSvc "smartdoc/internal/domain/services/docsystem"
	"smartdoc/internal/events"
	"smartdoc/internal/handler/sse"
	"smartdoc/internal/httputil"
	"smartdoc/internal/service/session"
)

// SessionHandler serves live editing sessions
type SessionHandler struct {
	registry   *session.Registry
	serializer docsysSvc.ContentSerializer
	sseConfig  *sse.Config
	logger     *slog.Logger
}

// NewSessionHandler creates a new session handler
func NewSessionHandler(
	registry *session.Registry,
	serializer docsysSvc.ContentSerializer,
	sseConfig *sse.Config,
	logger *slog.Logger,
) *SessionHandler {
	return &SessionHandler{
		registry:   registry,
		serializer: serializer,
		sseConfig:  sseConfig,
		logger:     logger,
	}
}

// OpenSession opens a live editing session on a document
// POST /api/documents/{id}/sessions
func (h *SessionHandler) OpenSession(w http.ResponseWriter, r *http.Request) {
	docID, ok := PathParam(w, r, "id", "Document ID")
	if !ok {
		return
	}

	s, err := h.registry.Open(r.Context(), httputil.GetUserID(r), docID)
	if err != nil {
		handleError(w, err)
		return
	}

	h.respondView(w, http.StatusCreated, s)
}

// GetSession returns what the session currently shows
// GET /api/sessions/{id}
func (h *SessionHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	h.respondView(w, http.StatusOK, s)
}

// ApplyChange replaces the live content and schedules an autosave
// PUT /api/sessions/{id}/content
func (h *SessionHandler) ApplyChange(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}

	var req writeContentRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondBadBody(w, err)
		return
	}

	if err := s.ApplyChange(r.Context(), req.Content); err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusAccepted, map[string]interface{}{
		"autosave_status": s.AutosaveStatus(),
	})
}

// editActionRequest carries a suggested edit. HTML is parsed into the blocks
// the action writes.
type editActionRequest struct {
	Type     string             `json:"type"`
	Range    *models.BlockRange `json:"range,omitempty"`
	Position *int               `json:"position,omitempty"`
	HTML     string             `json:"html"`
}

const (
	actionReplace = "replace"
	actionInsert  = "insert"
)

func (req *editActionRequest) Validate() error {
	return validation.ValidateStruct(req,
		validation.Field(&req.Type, validation.Required, validation.In(actionReplace, actionInsert)),
		validation.Field(&req.HTML, validation.Required),
		validation.Field(&req.Position, validation.Min(0)),
	)
}

func (req *editActionRequest) action(serializer docsysSvc.ContentSerializer) (models.EditAction, error) {
	if err := req.Validate(); err != nil {
		return nil, &domain.ValidationError{Message: err.Error()}
	}

	tree, err := serializer.FromMarkup(req.HTML)
	if err != nil {
		return nil, err
	}
	if len(tree.Content) == 0 {
		return nil, &domain.ValidationError{Message: "html: no content blocks"}
	}

	if req.Type == actionReplace {
		return models.ReplaceAction{Range: req.Range, Content: tree.Content}, nil
	}
	return models.InsertAction{Position: req.Position, Content: tree.Content}, nil
}

// ApplyEditAction applies a suggested replace or insert to the live document
// POST /api/sessions/{id}/actions
func (h *SessionHandler) ApplyEditAction(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}

	var req editActionRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondBadBody(w, err)
		return
	}

	action, err := req.action(h.serializer)
	if err != nil {
		handleError(w, err)
		return
	}
	if err := s.ApplyEditAction(r.Context(), action); err != nil {
		handleError(w, err)
		return
	}

	h.respondView(w, http.StatusOK, s)
}

// ListVersions lists the document's snapshots
// GET /api/sessions/{id}/versions
func (h *SessionHandler) ListVersions(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}

	versions, err := s.ListVersions(r.Context())
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, versions)
}

type createVersionRequest struct {
	Name string `json:"name"`
}

// CreateVersion snapshots the live document under a name
// POST /api/sessions/{id}/versions
func (h *SessionHandler) CreateVersion(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}

	var req createVersionRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondBadBody(w, err)
		return
	}

	snap, err := s.CreateVersion(r.Context(), req.Name)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusCreated, snap.Summary())
}

// RestoreVersion replaces the live document with a snapshot and saves it
// POST /api/sessions/{id}/versions/{versionId}/restore
func (h *SessionHandler) RestoreVersion(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}
	snapID, ok := PathParam(w, r, "versionId", "Version ID")
	if !ok {
		return
	}

	if err := s.RestoreVersion(r.Context(), snapID); err != nil {
		handleError(w, err)
		return
	}

	h.respondView(w, http.StatusOK, s)
}

// ImportFile supplies the upload a file-backed document is waiting for
// POST /api/sessions/{id}/import (multipart, field "file")
func (h *SessionHandler) ImportFile(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}

	filename, data, err := readUpload(w, r)
	if err != nil {
		handleError(w, err)
		return
	}
	if err := s.ImportFile(r.Context(), filename, data); err != nil {
		handleError(w, err)
		return
	}

	h.respondView(w, http.StatusOK, s)
}

// StreamEvents streams autosave, progress and content events of a session
// GET /api/sessions/{id}/events
func (h *SessionHandler) StreamEvents(w http.ResponseWriter, r *http.Request) {
	s, ok := h.session(w, r)
	if !ok {
		return
	}

	streamEvents(w, r, s.ID(), func(ctx context.Context) (<-chan events.Event, func(), error) {
		return s.Subscribe(ctx)
	}, h.sseConfig, h.logger)
}

// CloseSession flushes pending edits and ends the session
// DELETE /api/sessions/{id}
func (h *SessionHandler) CloseSession(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := PathParam(w, r, "id", "Session ID")
	if !ok {
		return
	}

	if err := h.registry.Close(r.Context(), httputil.GetUserID(r), sessionID); err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondNoContent(w)
}

func (h *SessionHandler) session(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	sessionID, ok := PathParam(w, r, "id", "Session ID")
	if !ok {
		return nil, false
	}

	s, err := h.registry.Get(httputil.GetUserID(r), sessionID)
	if err != nil {
		handleError(w, err)
		return nil, false
	}
	return s, true
}

func (h *SessionHandler) respondView(w http.ResponseWriter, status int, s *session.Session) {
	view, err := s.View()
	if err != nil {
		handleError(w, err)
		return
	}
	httputil.RespondJSON(w, status, view)
}
