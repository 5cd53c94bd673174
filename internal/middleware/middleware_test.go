package middleware

import (
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"smartdoc/internal/domain"
	"smartdoc/internal/domain/models"
	"smartdoc/internal/httputil"
)

type stubVerifier struct {
	valid string
}

func (v stubVerifier) VerifyToken(token string) (*models.SupabaseClaims, error) {
	if token != v.valid {
		return nil, &domain.UnauthorizedError{Message: "invalid token"}
	}
	claims := &models.SupabaseClaims{Role: models.RoleAuthenticated}
	claims.Subject = "user-1"
	return claims, nil
}

func (stubVerifier) Close() error { return nil }

func echoUser() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(httputil.GetUserID(r)))
	})
}

func TestAuth(t *testing.T) {
	h := Auth(stubVerifier{valid: "good"}, slog.New(slog.DiscardHandler))(echoUser())

	tests := []struct {
		name       string
		path       string
		header     string
		wantStatus int
		wantBody   string
	}{
		{"valid bearer", "/api/documents", "Bearer good", http.StatusOK, "user-1"},
		{"lowercase scheme", "/api/documents", "bearer good", http.StatusOK, "user-1"},
		{"missing header", "/api/documents", "", http.StatusUnauthorized, ""},
		{"wrong scheme", "/api/documents", "Basic good", http.StatusUnauthorized, ""},
		{"invalid token", "/api/documents", "Bearer bad", http.StatusUnauthorized, ""},
		{"query token on event stream", "/api/documents/d1/events?access_token=good", "", http.StatusOK, "user-1"},
		{"query token elsewhere", "/api/documents?access_token=good", "", http.StatusUnauthorized, ""},
		{"health is public", "/health", "", http.StatusOK, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantStatus == http.StatusOK {
				assert.Equal(t, tt.wantBody, rec.Body.String())
			} else {
				assert.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))
			}
		})
	}
}

func TestStaticUser(t *testing.T) {
	rec := httptest.NewRecorder()
	StaticUser("dev-user")(echoUser()).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/documents", nil))
	assert.Equal(t, "dev-user", rec.Body.String())
}

func TestRecovery(t *testing.T) {
	panicky := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { panic("boom") })
	rec := httptest.NewRecorder()
	Recovery(slog.New(slog.DiscardHandler))(panicky).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestRecovery_ReraisesAbort(t *testing.T) {
	aborting := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { panic(http.ErrAbortHandler) })
	handler := Recovery(slog.New(slog.DiscardHandler))(aborting)

	assert.PanicsWithValue(t, http.ErrAbortHandler, func() {
		handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	})
}

func TestRequestID(t *testing.T) {
	echoID := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(httputil.RequestID(r.Context())))
	})
	handler := RequestID(slog.New(slog.DiscardHandler))(echoID)

	t.Run("reuses caller id", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set(RequestIDHeader, "abc-123")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Equal(t, "abc-123", rec.Body.String())
		assert.Equal(t, "abc-123", rec.Header().Get(RequestIDHeader))
	})

	t.Run("mints an id", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

		id := rec.Header().Get(RequestIDHeader)
		assert.Len(t, id, 36)
		assert.Equal(t, id, rec.Body.String())
	})
}

func TestRequestID_KeepsFlusher(t *testing.T) {
	var flushable bool
	probe := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, flushable = w.(http.Flusher)
		w.WriteHeader(http.StatusTeapot)
	})

	rec := httptest.NewRecorder()
	RequestID(slog.New(slog.DiscardHandler))(probe).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.True(t, flushable)
	assert.Equal(t, http.StatusTeapot, rec.Code)
}
