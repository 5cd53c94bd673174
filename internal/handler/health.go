package handler

import (
	"net/http"

	"smartdoc/internal/httputil"
)

// HealthHandler reports liveness and the number of open editing sessions
type HealthHandler struct {
	sessions func() int
}

// NewHealthHandler creates a health handler. sessions may be nil.
func NewHealthHandler(sessions func() int) *HealthHandler {
	return &HealthHandler{sessions: sessions}
}

// Health handles GET /health
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	body := map[string]interface{}{"status": "ok"}
	if h.sessions != nil {
		body["sessions"] = h.sessions()
	}
	httputil.RespondJSON(w, http.StatusOK, body)
}
