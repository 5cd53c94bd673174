package session

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"smartdoc/internal/domain"
	models "smartdoc/internal/domain/models/docsystem"
	docsystem "smartdoc/internal/service/docsystem"
)

type hookRecorder struct {
	mu           sync.Mutex
	applied      []*models.Node
	placeholders []string
	progress     []string
	notices      []string
}

func (h *hookRecorder) hooks() bridgeHooks {
	return bridgeHooks{
		apply: func(ctx context.Context, tree *models.Node, stored string) error {
			h.mu.Lock()
			defer h.mu.Unlock()
			h.applied = append(h.applied, tree)
			return nil
		},
		placeholder: func(reason, message string) {
			h.mu.Lock()
			defer h.mu.Unlock()
			h.placeholders = append(h.placeholders, reason)
		},
		progress: func(message string) {
			h.mu.Lock()
			defer h.mu.Unlock()
			h.progress = append(h.progress, message)
		},
		notice: func(message string) {
			h.mu.Lock()
			defer h.mu.Unlock()
			h.notices = append(h.notices, message)
		},
	}
}

func newTestBridge(clock *fakeClock, store *memStore, h *hookRecorder) *Bridge {
	return newBridge(store.doc.ID, store, store, docsystem.NewContentSerializer(), clock, testEditorConfig(),
		h.hooks(), nil, slog.New(slog.DiscardHandler))
}

func TestBridge_Open(t *testing.T) {
	cfg := testEditorConfig()
	fileURL := "https://files.example.com/report.md"

	tests := []struct {
		name        string
		doc         models.Document
		startErr    error
		wantState   OpenState
		wantStarts  int
		wantApplied int
		wantHolder  string
		wantNotice  bool
	}{
		{
			name:        "usable content skips generation",
			doc:         models.Document{Status: models.StatusPending, Content: "<p>Hello</p>"},
			wantState:   OpenEditing,
			wantApplied: 1,
		},
		{
			name:        "ready without content loads an empty document",
			doc:         models.Document{Status: models.StatusReady, Content: models.EmptyContent},
			wantState:   OpenEditing,
			wantApplied: 1,
			wantNotice:  true,
		},
		{
			name:       "error shows the failure placeholder",
			doc:        models.Document{Status: models.StatusError, Content: models.EmptyContent},
			wantState:  OpenFailed,
			wantHolder: ReasonGenerationFailed,
		},
		{
			name:      "generating polls without starting",
			doc:       models.Document{Status: models.StatusGenerating, Content: models.EmptyContent},
			wantState: OpenPolling,
		},
		{
			name:       "pending starts generation",
			doc:        models.Document{Status: models.StatusPending, Content: models.EmptyContent},
			wantState:  OpenPolling,
			wantStarts: 1,
		},
		{
			name:      "pending with a file waits for the upload",
			doc:       models.Document{Status: models.StatusPending, Content: models.EmptyContent, FileURL: &fileURL},
			wantState: OpenAwaitingImport,
		},
		{
			name:       "start failure shows the start placeholder",
			doc:        models.Document{Status: models.StatusPending, Content: models.EmptyContent},
			startErr:   &domain.TransientIOError{Message: "generation service unavailable"},
			wantState:  OpenFailed,
			wantStarts: 1,
			wantHolder: ReasonGenerationStartFailed,
		},
		{
			name:       "start rejected as not pending falls back to polling",
			doc:        models.Document{Status: models.StatusPending, Content: models.EmptyContent},
			startErr:   &domain.ValidationError{Message: "document is not pending"},
			wantState:  OpenPolling,
			wantStarts: 1,
		},
		{
			name:       "malformed content shows the malformed placeholder",
			doc:        models.Document{Status: models.StatusReady, Content: `{"type":"paragraph"}`},
			wantState:  OpenFailed,
			wantHolder: ReasonMalformed,
		},
		{
			name: "deeply nested legacy html shows the malformed placeholder",
			doc: models.Document{
				Status:  models.StatusReady,
				Content: strings.Repeat("<blockquote>", 80) + "<p>deep</p>" + strings.Repeat("</blockquote>", 80),
			},
			wantState:  OpenFailed,
			wantHolder: ReasonMalformed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clock := newFakeClock()
			store := newMemStore(clock, tt.doc)
			store.startErr = tt.startErr
			h := &hookRecorder{}
			b := newTestBridge(clock, store, h)

			state, doc, err := b.Open(context.Background())
			require.NoError(t, err)
			require.NotNil(t, doc)
			assert.Equal(t, tt.wantState, state)

			starts, polls := store.calls()
			assert.Equal(t, tt.wantStarts, starts)
			assert.Zero(t, polls)
			assert.Len(t, h.applied, tt.wantApplied)

			if tt.wantHolder != "" {
				assert.Equal(t, []string{tt.wantHolder}, h.placeholders)
			} else {
				assert.Empty(t, h.placeholders)
			}
			if tt.wantNotice {
				assert.Equal(t, []string{cfg.Placeholders.EmptyReady}, h.notices)
			}
		})
	}
}

func TestBridge_OpenMissingDocument(t *testing.T) {
	clock := newFakeClock()
	store := newMemStore(clock, models.Document{ID: "other"})
	b := newBridge("d404", store, store, docsystem.NewContentSerializer(), clock, testEditorConfig(),
		(&hookRecorder{}).hooks(), nil, slog.New(slog.DiscardHandler))

	_, _, err := b.Open(context.Background())
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestBridge_AppliesReadyContentOnce(t *testing.T) {
	clock := newFakeClock()
	store := newMemStore(clock, models.Document{Status: models.StatusGenerating, Content: models.EmptyContent})
	h := &hookRecorder{}
	b := newTestBridge(clock, store, h)
	ctx := context.Background()

	assert.False(t, b.poll(ctx))
	store.setStatus(models.StatusReady, "<p>X</p>")

	assert.True(t, b.poll(ctx))
	for i := 0; i < 5; i++ {
		assert.True(t, b.poll(ctx))
	}

	require.Len(t, h.applied, 1)
	assert.Equal(t, "X", h.applied[0].PlainText())
	_, polls := store.calls()
	assert.Equal(t, 2, polls, "polls after the terminal status do not reach the store")
}

func TestBridge_ProgressMessagesRotate(t *testing.T) {
	clock := newFakeClock()
	store := newMemStore(clock, models.Document{Status: models.StatusGenerating, Content: models.EmptyContent})
	h := &hookRecorder{}
	b := newTestBridge(clock, store, h)

	messages := testEditorConfig().ProgressMessages
	require.NotEmpty(t, messages)

	for i := 0; i < len(messages)+1; i++ {
		assert.False(t, b.poll(context.Background()))
	}
	require.Len(t, h.progress, len(messages)+1)
	assert.Equal(t, messages, h.progress[:len(messages)])
	assert.Equal(t, messages[0], h.progress[len(messages)])
	assert.Empty(t, h.applied)
}

func TestBridge_FailedPollIsIgnored(t *testing.T) {
	clock := newFakeClock()
	store := newMemStore(clock, models.Document{Status: models.StatusGenerating, Content: models.EmptyContent})
	store.statusErrs = 1
	h := &hookRecorder{}
	b := newTestBridge(clock, store, h)
	ctx := context.Background()

	assert.False(t, b.poll(ctx), "a failed tick keeps polling")
	assert.Empty(t, h.placeholders)

	store.setStatus(models.StatusReady, "<p>Report</p>")
	assert.True(t, b.poll(ctx))
	assert.Len(t, h.applied, 1)
}

func TestBridge_ErrorShowsPlaceholderOnce(t *testing.T) {
	clock := newFakeClock()
	store := newMemStore(clock, models.Document{Status: models.StatusGenerating, Content: models.EmptyContent})
	h := &hookRecorder{}
	b := newTestBridge(clock, store, h)
	ctx := context.Background()

	store.setStatus(models.StatusError, models.EmptyContent)
	assert.True(t, b.poll(ctx))
	assert.True(t, b.poll(ctx))

	assert.Equal(t, []string{ReasonGenerationFailed}, h.placeholders)
	assert.Empty(t, h.applied)
}

func TestBridge_RunStopsAfterTerminalStatus(t *testing.T) {
	clock := newFakeClock()
	store := newMemStore(clock, models.Document{Status: models.StatusGenerating, Content: models.EmptyContent})
	h := &hookRecorder{}
	b := newTestBridge(clock, store, h)

	done := make(chan error, 1)
	go func() { done <- b.Run(context.Background()) }()

	require.Eventually(t, func() bool { return clock.Tickers() == 1 }, waitFor, tick)
	store.setStatus(models.StatusReady, "<p>Report</p>")
	clock.Advance(testEditorConfig().PollInterval)

	require.NoError(t, <-done)
	assert.Equal(t, 0, clock.Tickers(), "ticker stopped")
	assert.Len(t, h.applied, 1)
}

func TestBridge_RunStopsOnCancel(t *testing.T) {
	clock := newFakeClock()
	store := newMemStore(clock, models.Document{Status: models.StatusGenerating, Content: models.EmptyContent})
	b := newTestBridge(clock, store, &hookRecorder{})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- b.Run(ctx) }()

	cancel()
	require.NoError(t, <-done)
	_, polls := store.calls()
	assert.Zero(t, polls)
}
