package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"smartdoc/internal/config"
	models "smartdoc/internal/domain/models/docsystem"
	docsysSvc "smartdoc/internal/domain/services/docsystem"
	"smartdoc/internal/events"
	"smartdoc/internal/handler/sse"
	"smartdoc/internal/httputil"
	badgerrepo "smartdoc/internal/repository/badger"
	svcauth "smartdoc/internal/service/auth"
	docsystem "smartdoc/internal/service/docsystem"
	"smartdoc/internal/service/docsystem/converter"
	"smartdoc/internal/service/session"
)

const (
	owner    = "user-1"
	stranger = "user-2"
)

// stubGeneration accepts jobs without running them
type stubGeneration struct {
	docs    docsysSvc.DocumentService
	started []string
	running map[string]bool
}

func (g *stubGeneration) StartGeneration(ctx context.Context, userID, documentID string) error {
	if _, err := g.docs.GetDocument(ctx, userID, documentID); err != nil {
		return err
	}
	g.started = append(g.started, documentID)
	g.running[documentID] = true
	return nil
}

func (g *stubGeneration) GetStatus(ctx context.Context, userID, documentID string) (*docsysSvc.GenerationStatus, error) {
	doc, err := g.docs.GetDocument(ctx, userID, documentID)
	if err != nil {
		return nil, err
	}
	return &docsysSvc.GenerationStatus{DocumentID: doc.ID, Status: doc.Status, Title: doc.Title, Content: doc.Content}, nil
}

func (g *stubGeneration) Cancel(documentID string) bool {
	running := g.running[documentID]
	delete(g.running, documentID)
	return running
}

type fixture struct {
	mux        *http.ServeMux
	docs       docsysSvc.DocumentService
	generation *stubGeneration
	registry   *session.Registry
	serializer docsysSvc.ContentSerializer
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db, err := badgerrepo.Open(badgerrepo.InMemoryConfig())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	logger := slog.New(slog.DiscardHandler)
	docRepo := badgerrepo.NewDocumentRepository(db)
	snapRepo := badgerrepo.NewSnapshotRepository(db)
	authz := svcauth.NewOwnerBasedAuthorizer(docRepo, snapRepo)
	serializer := docsystem.NewContentSerializer()
	broker := events.NewMemoryBroker()
	t.Cleanup(func() { _ = broker.Close() })

	docs := docsystem.NewDocumentService(docRepo, authz, serializer, converter.NewConverterRegistry(), docsystem.NewContentAnalyzer(), broker, logger)
	versions := docsystem.NewVersionService(snapRepo, docs, badgerrepo.NewTransactionManager(), authz, serializer, broker, logger)
	generation := &stubGeneration{docs: docs, running: make(map[string]bool)}

	registry := session.NewRegistry(session.RegistryConfig{
		Documents:  docs,
		Versions:   versions,
		Generation: generation,
		Serializer: serializer,
		Editor:     config.DefaultEditorConfig(),
		Logger:     logger,
	})
	t.Cleanup(func() { registry.Shutdown(context.Background()) })

	sseConfig := sse.DefaultConfig()
	mux := http.NewServeMux()
	RegisterRoutes(mux, &Handlers{
		Health:    NewHealthHandler(registry.Len),
		Documents: NewDocumentHandler(docs, generation, broker, sseConfig, logger),
		Versions:  NewVersionHandler(versions, logger),
		Sessions:  NewSessionHandler(registry, serializer, sseConfig, logger),
	})

	return &fixture{mux: mux, docs: docs, generation: generation, registry: registry, serializer: serializer}
}

// do serves a JSON request as userID
func (f *fixture) do(t *testing.T, userID, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	return f.serve(userID, req)
}

// upload serves a multipart file upload as userID
func (f *fixture) upload(t *testing.T, userID, path, filename string, data []byte) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return f.serve(userID, req)
}

func (f *fixture) serve(userID string, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	f.mux.ServeHTTP(rec, httputil.WithUserID(req, userID))
	return rec
}

// pendingDocument creates a document through the API
func (f *fixture) pendingDocument(t *testing.T, title string) models.Document {
	t.Helper()
	rec := f.do(t, owner, http.MethodPost, "/api/documents", map[string]string{"title": title})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return decode[models.Document](t, rec)
}

// readyDocument creates a document and imports markdown into it
func (f *fixture) readyDocument(t *testing.T, markdown string) models.Document {
	t.Helper()
	doc := f.pendingDocument(t, "Notes")
	rec := f.upload(t, owner, "/api/documents/"+doc.ID+"/import", "notes.md", []byte(markdown))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	return decode[models.Document](t, rec)
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}
