package handler

import (
	"log/slog"
	"net/http"

	docsysSvc "smartdoc/internal/domain/services/docsystem"
	"smartdoc/internal/httputil"
)

// VersionHandler serves the snapshot history of documents outside a live session
type VersionHandler struct {
	versionService docsysSvc.VersionService
	logger         *slog.Logger
}

// NewVersionHandler creates a new version handler
func NewVersionHandler(versionService docsysSvc.VersionService, logger *slog.Logger) *VersionHandler {
	return &VersionHandler{
		versionService: versionService,
		logger:         logger,
	}
}

// ListVersions lists snapshots newest-first
// GET /api/documents/{id}/versions
func (h *VersionHandler) ListVersions(w http.ResponseWriter, r *http.Request) {
	docID, ok := PathParam(w, r, "id", "Document ID")
	if !ok {
		return
	}

	versions, err := h.versionService.ListSnapshots(r.Context(), httputil.GetUserID(r), docID)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, versions)
}

// CreateVersion records content as a named snapshot
// POST /api/documents/{id}/versions
func (h *VersionHandler) CreateVersion(w http.ResponseWriter, r *http.Request) {
	docID, ok := PathParam(w, r, "id", "Document ID")
	if !ok {
		return
	}

	var req docsysSvc.CreateSnapshotRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondBadBody(w, err)
		return
	}
	req.UserID = httputil.GetUserID(r)
	req.DocumentID = docID

	snap, err := h.versionService.CreateSnapshot(r.Context(), &req)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusCreated, snap.Summary())
}

// GetVersionContent returns the stored content of a snapshot
// GET /api/versions/{id}/content
func (h *VersionHandler) GetVersionContent(w http.ResponseWriter, r *http.Request) {
	snapID, ok := PathParam(w, r, "id", "Version ID")
	if !ok {
		return
	}

	content, err := h.versionService.GetSnapshotContent(r.Context(), httputil.GetUserID(r), snapID)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, map[string]string{
		"id":      snapID,
		"content": content,
	})
}

// RestoreVersion writes a snapshot back as the document's current content
// POST /api/documents/{id}/versions/{versionId}/restore
func (h *VersionHandler) RestoreVersion(w http.ResponseWriter, r *http.Request) {
	docID, ok := PathParam(w, r, "id", "Document ID")
	if !ok {
		return
	}
	snapID, ok := PathParam(w, r, "versionId", "Version ID")
	if !ok {
		return
	}

	doc, err := h.versionService.RestoreSnapshot(r.Context(), httputil.GetUserID(r), docID, snapID)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, doc)
}
