package session

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"smartdoc/internal/config"
	"smartdoc/internal/domain"
	models "smartdoc/internal/domain/models/docsystem"
	docsysSvc "smartdoc/internal/domain/services/docsystem"
	"smartdoc/internal/events"
	badgerrepo "smartdoc/internal/repository/badger"
	svcauth "smartdoc/internal/service/auth"
	docsystem "smartdoc/internal/service/docsystem"
	"smartdoc/internal/service/docsystem/converter"
)

// stubGeneration never finishes a job; sessions in these tests open ready documents
type stubGeneration struct {
	docs docsysSvc.DocumentService
}

func (g *stubGeneration) StartGeneration(ctx context.Context, userID, documentID string) error {
	return nil
}

func (g *stubGeneration) GetStatus(ctx context.Context, userID, documentID string) (*docsysSvc.GenerationStatus, error) {
	doc, err := g.docs.GetDocument(ctx, userID, documentID)
	if err != nil {
		return nil, err
	}
	return &docsysSvc.GenerationStatus{DocumentID: doc.ID, Status: doc.Status, Content: doc.Content}, nil
}

func (g *stubGeneration) Cancel(documentID string) bool { return false }

type registryFixture struct {
	registry *Registry
	docs     docsysSvc.DocumentService
	clock    *fakeClock
}

func newRegistryFixture(t *testing.T) *registryFixture {
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

	docs := docsystem.NewDocumentService(docRepo, authz, serializer, converter.NewConverterRegistry(), docsystem.NewContentAnalyzer(), broker, logger)
	versions := docsystem.NewVersionService(snapRepo, docs, badgerrepo.NewTransactionManager(), authz, serializer, broker, logger)

	clock := newFakeClock()
	registry := NewRegistry(RegistryConfig{
		Documents:  docs,
		Versions:   versions,
		Generation: &stubGeneration{docs: docs},
		Serializer: serializer,
		Clock:      clock,
		Editor:     testEditorConfig(),
		Logger:     logger,
	})
	t.Cleanup(func() { registry.Shutdown(context.Background()) })

	return &registryFixture{registry: registry, docs: docs, clock: clock}
}

func (f *registryFixture) readyDocument(t *testing.T, userID string) *models.Document {
	t.Helper()
	ctx := context.Background()
	doc, err := f.docs.CreateDocument(ctx, &docsysSvc.CreateDocumentRequest{UserID: userID, Title: "Notes"})
	require.NoError(t, err)
	doc, err = f.docs.ImportContent(ctx, &docsysSvc.ImportContentRequest{
		UserID:     userID,
		DocumentID: doc.ID,
		Filename:   "notes.md",
		Data:       []byte("Meeting notes"),
	})
	require.NoError(t, err)
	return doc
}

func TestRegistry_OpenGetClose(t *testing.T) {
	f := newRegistryFixture(t)
	ctx := context.Background()
	doc := f.readyDocument(t, "u1")

	s, err := f.registry.Open(ctx, "u1", doc.ID)
	require.NoError(t, err)
	assert.Equal(t, StateEditing, s.State())
	assert.Equal(t, 1, f.registry.Len())

	got, err := f.registry.Get("u1", s.ID())
	require.NoError(t, err)
	assert.Same(t, s, got)

	_, err = f.registry.Get("u2", s.ID())
	assert.True(t, errors.Is(err, domain.ErrForbidden))

	_, err = f.registry.Get("u1", "missing")
	assert.True(t, errors.Is(err, domain.ErrNotFound))

	require.NoError(t, s.ApplyChange(ctx, canonical(t, "Edited before close")))
	require.NoError(t, f.registry.Close(ctx, "u1", s.ID()))
	assert.Zero(t, f.registry.Len())

	stored, err := f.docs.GetDocument(ctx, "u1", doc.ID)
	require.NoError(t, err)
	assert.Equal(t, canonical(t, "Edited before close"), stored.Content)
}

func TestRegistry_OpenChecksOwnership(t *testing.T) {
	f := newRegistryFixture(t)
	doc := f.readyDocument(t, "u1")

	_, err := f.registry.Open(context.Background(), "u2", doc.ID)
	assert.True(t, errors.Is(err, domain.ErrForbidden))
	assert.Zero(t, f.registry.Len())
}

func TestRegistry_RestoreThroughServices(t *testing.T) {
	f := newRegistryFixture(t)
	ctx := context.Background()
	doc := f.readyDocument(t, "u1")

	s, err := f.registry.Open(ctx, "u1", doc.ID)
	require.NoError(t, err)

	require.NoError(t, s.ApplyChange(ctx, canonical(t, "B")))
	snap, err := s.CreateVersion(ctx, "B")
	require.NoError(t, err)

	require.NoError(t, s.ApplyChange(ctx, canonical(t, "C")))
	require.NoError(t, s.RestoreVersion(ctx, snap.ID))

	stored, err := f.docs.GetDocument(ctx, "u1", doc.ID)
	require.NoError(t, err)
	assert.Equal(t, canonical(t, "B"), stored.Content)
}

func TestRegistry_ReapIdleSessions(t *testing.T) {
	f := newRegistryFixture(t)
	ctx := context.Background()
	ttl := testEditorConfig().SessionIdleTTL

	idle, err := f.registry.Open(ctx, "u1", f.readyDocument(t, "u1").ID)
	require.NoError(t, err)

	f.clock.Advance(ttl / 2)
	active, err := f.registry.Open(ctx, "u1", f.readyDocument(t, "u1").ID)
	require.NoError(t, err)

	f.clock.Advance(ttl/2 + time.Second)
	assert.Equal(t, 1, f.registry.Reap(ctx))
	assert.Equal(t, StateClosed, idle.State())
	assert.Equal(t, StateEditing, active.State())
	assert.Equal(t, 1, f.registry.Len())
}

func TestRegistry_StartReaper(t *testing.T) {
	f := newRegistryFixture(t)
	require.NoError(t, f.registry.StartReaper())

	bad := NewRegistry(RegistryConfig{Editor: func() config.EditorConfig {
		cfg := testEditorConfig()
		cfg.ReapSchedule = "whenever"
		return cfg
	}()})
	assert.Error(t, bad.StartReaper())
}

func TestRegistry_OpenAfterShutdown(t *testing.T) {
	f := newRegistryFixture(t)
	ctx := context.Background()
	doc := f.readyDocument(t, "u1")

	s, err := f.registry.Open(ctx, "u1", doc.ID)
	require.NoError(t, err)

	f.registry.Shutdown(ctx)
	assert.Equal(t, StateClosed, s.State())

	_, err = f.registry.Open(ctx, "u1", doc.ID)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrTransient))
	assert.Zero(t, f.registry.Len())

	require.NoError(t, f.registry.StartReaper())
	f.registry.mu.Lock()
	assert.Nil(t, f.registry.cron, "no reaper runs after shutdown")
	f.registry.mu.Unlock()
}
