package handler

import "net/http"

// Handlers groups the HTTP handlers mounted by RegisterRoutes
type Handlers struct {
	Health    *HealthHandler
	Documents *DocumentHandler
	Versions  *VersionHandler
	Sessions  *SessionHandler
	Metrics   http.Handler // optional
}

// RegisterRoutes mounts every API route on mux
func RegisterRoutes(mux *http.ServeMux, h *Handlers) {
	mux.HandleFunc("GET /health", h.Health.Health)
	if h.Metrics != nil {
		mux.Handle("GET /metrics", h.Metrics)
	}

	// Documents
	mux.HandleFunc("POST /api/documents", h.Documents.CreateDocument)
	mux.HandleFunc("GET /api/documents", h.Documents.ListDocuments)
	mux.HandleFunc("GET /api/documents/{id}", h.Documents.GetDocument)
	mux.HandleFunc("PUT /api/documents/{id}/content", h.Documents.WriteContent)
	mux.HandleFunc("POST /api/documents/{id}/generate", h.Documents.StartGeneration)
	mux.HandleFunc("DELETE /api/documents/{id}/generate", h.Documents.CancelGeneration)
	mux.HandleFunc("GET /api/documents/{id}/status", h.Documents.GetStatus)
	mux.HandleFunc("POST /api/documents/{id}/import", h.Documents.ImportFile)
	mux.HandleFunc("GET /api/documents/{id}/markdown", h.Documents.ExportMarkdown)
	mux.HandleFunc("GET /api/documents/{id}/events", h.Documents.StreamEvents)

	// Versions
	mux.HandleFunc("GET /api/documents/{id}/versions", h.Versions.ListVersions)
	mux.HandleFunc("POST /api/documents/{id}/versions", h.Versions.CreateVersion)
	mux.HandleFunc("POST /api/documents/{id}/versions/{versionId}/restore", h.Versions.RestoreVersion)
	mux.HandleFunc("GET /api/versions/{id}/content", h.Versions.GetVersionContent)

	// Live editing sessions
	mux.HandleFunc("POST /api/documents/{id}/sessions", h.Sessions.OpenSession)
	mux.HandleFunc("GET /api/sessions/{id}", h.Sessions.GetSession)
	mux.HandleFunc("DELETE /api/sessions/{id}", h.Sessions.CloseSession)
	mux.HandleFunc("PUT /api/sessions/{id}/content", h.Sessions.ApplyChange)
	mux.HandleFunc("POST /api/sessions/{id}/actions", h.Sessions.ApplyEditAction)
	mux.HandleFunc("GET /api/sessions/{id}/versions", h.Sessions.ListVersions)
	mux.HandleFunc("POST /api/sessions/{id}/versions", h.Sessions.CreateVersion)
	mux.HandleFunc("POST /api/sessions/{id}/versions/{versionId}/restore", h.Sessions.RestoreVersion)
	mux.HandleFunc("POST /api/sessions/{id}/import", h.Sessions.ImportFile)
	mux.HandleFunc("GET /api/sessions/{id}/events", h.Sessions.StreamEvents)
}
