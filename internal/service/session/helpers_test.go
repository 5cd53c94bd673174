package session

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"smartdoc/internal/config"
	"smartdoc/internal/domain"
	models "smartdoc/internal/domain/models/docsystem"
	docsysSvc "smartdoc/internal/domain/services/docsystem"
	"smartdoc/internal/events"
	docsystem "smartdoc/internal/service/docsystem"
)

// ============================================================================
// Manual clock
// ============================================================================

// fakeClock only moves when Advance is called. AfterFunc callbacks run on the
// goroutine calling Advance; ticks are sent without blocking.
type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	timers []*fakeTimer
}

type fakeTimer struct {
	clock   *fakeClock
	at      time.Time
	period  time.Duration
	fn      func()
	ch      chan time.Time
	stopped bool
}

func (t *fakeTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	active := !t.stopped
	t.stopped = true
	return active
}

type fakeTicker struct{ t *fakeTimer }

func (f fakeTicker) C() <-chan time.Time { return f.t.ch }
func (f fakeTicker) Stop()               { f.t.Stop() }

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 14, 15, 4, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTimer{clock: c, at: c.now.Add(d), fn: f}
	c.timers = append(c.timers, t)
	return t
}

func (c *fakeClock) NewTicker(d time.Duration) Ticker {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTimer{clock: c, at: c.now.Add(d), period: d, ch: make(chan time.Time, 1)}
	c.timers = append(c.timers, t)
	return fakeTicker{t}
}

// Tickers returns the number of live tickers
func (c *fakeClock) Tickers() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, t := range c.timers {
		if t.period > 0 && !t.stopped {
			n++
		}
	}
	return n
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	target := c.now.Add(d)
	for {
		next := c.nextDue(target)
		if next == nil {
			break
		}
		c.now = next.at
		if next.period > 0 {
			next.at = next.at.Add(next.period)
			select {
			case next.ch <- c.now:
			default:
			}
			continue
		}
		next.stopped = true
		fn := next.fn
		c.mu.Unlock()
		fn()
		c.mu.Lock()
	}
	c.now = target
	c.mu.Unlock()
}

// nextDue must be called with mu held
func (c *fakeClock) nextDue(target time.Time) *fakeTimer {
	live := c.timers[:0]
	var next *fakeTimer
	for _, t := range c.timers {
		if t.stopped {
			continue
		}
		live = append(live, t)
		if t.at.After(target) {
			continue
		}
		if next == nil || t.at.Before(next.at) {
			next = t
		}
	}
	c.timers = live
	return next
}

// ============================================================================
// In-memory store and generator
// ============================================================================

type savedWrite struct {
	content string
	at      time.Time
}

type memStore struct {
	mu         sync.Mutex
	clock      Clock
	serializer docsysSvc.ContentSerializer

	doc       models.Document
	snapshots []*models.Snapshot
	writes    []savedWrite

	writeErr   error
	writeHook  func(content string) // runs before a write is recorded, outside the lock
	startErr   error
	statusErrs int // number of upcoming GetStatus calls that fail

	startCalls  int
	statusCalls int
}

func newMemStore(clock Clock, doc models.Document) *memStore {
	if doc.ID == "" {
		doc.ID = "d1"
	}
	if doc.UserID == "" {
		doc.UserID = "user-1"
	}
	return &memStore{
		clock:      clock,
		serializer: docsystem.NewContentSerializer(),
		doc:        doc,
	}
}

func (m *memStore) GetDocument(ctx context.Context, documentID string) (*models.Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if documentID != m.doc.ID {
		return nil, &domain.NotFoundError{Message: "document not found"}
	}
	doc := m.doc
	return &doc, nil
}

func (m *memStore) WriteCurrentContent(ctx context.Context, documentID, content string) (*models.Document, error) {
	m.mu.Lock()
	hook, err := m.writeHook, m.writeErr
	m.mu.Unlock()

	if hook != nil {
		hook(content)
	}
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.writes = append(m.writes, savedWrite{content: content, at: m.clock.Now()})
	m.doc.Content = content
	doc := m.doc
	return &doc, nil
}

func (m *memStore) CreateSnapshot(ctx context.Context, documentID, name, content string) (*models.Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	snap := &models.Snapshot{
		ID:         fmt.Sprintf("snap-%d", len(m.snapshots)+1),
		DocumentID: documentID,
		Name:       name,
		Version:    len(m.snapshots) + 1,
		Content:    content,
		CreatedAt:  m.clock.Now(),
	}
	m.snapshots = append(m.snapshots, snap)
	return snap, nil
}

func (m *memStore) ListSnapshots(ctx context.Context, documentID string) ([]models.SnapshotSummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.SnapshotSummary, 0, len(m.snapshots))
	for _, s := range m.snapshots {
		out = append(out, s.Summary())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Version > out[j].Version })
	return out, nil
}

func (m *memStore) GetSnapshot(ctx context.Context, snapshotID string) (*models.Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.snapshots {
		if s.ID == snapshotID {
			snap := *s
			return &snap, nil
		}
	}
	return nil, &domain.NotFoundError{Message: "snapshot not found"}
}

func (m *memStore) ImportContent(ctx context.Context, documentID, filename string, data []byte) (*models.Document, error) {
	tree, err := m.serializer.FromMarkup(string(data))
	if err != nil {
		return nil, err
	}
	content, err := m.serializer.Serialize(tree)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.doc.Content = content
	m.doc.Status = models.StatusReady
	doc := m.doc
	return &doc, nil
}

func (m *memStore) StartGeneration(ctx context.Context, documentID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.startCalls++
	if m.startErr != nil {
		return m.startErr
	}
	m.doc.Status = models.StatusGenerating
	return nil
}

func (m *memStore) GetStatus(ctx context.Context, documentID string) (*docsysSvc.GenerationStatus, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.statusCalls++
	if m.statusErrs > 0 {
		m.statusErrs--
		return nil, &domain.TransientIOError{Message: "store unavailable"}
	}
	return &docsysSvc.GenerationStatus{
		DocumentID: m.doc.ID,
		Status:     m.doc.Status,
		Title:      m.doc.Title,
		Content:    m.doc.Content,
	}, nil
}

func (m *memStore) setStatus(status models.DocumentStatus, content string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.doc.Status = status
	m.doc.Content = content
}

func (m *memStore) addSnapshot(content string) string {
	snap, _ := m.CreateSnapshot(context.Background(), m.doc.ID, "manual", content)
	return snap.ID
}

func (m *memStore) currentContent() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.doc.Content
}

func (m *memStore) savedWrites() []savedWrite {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]savedWrite(nil), m.writes...)
}

func (m *memStore) calls() (start, status int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.startCalls, m.statusCalls
}

func (m *memStore) snapshotCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.snapshots)
}

// ============================================================================
// Helpers
// ============================================================================

func testEditorConfig() config.EditorConfig {
	return config.DefaultEditorConfig()
}

func openTestSession(t *testing.T, clock *fakeClock, store *memStore) *Session {
	t.Helper()
	s, err := Open(context.Background(), Options{
		DocumentID: store.doc.ID,
		UserID:     store.doc.UserID,
		Store:      store,
		Generator:  store,
		Serializer: docsystem.NewContentSerializer(),
		Clock:      clock,
		Config:     testEditorConfig(),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close(context.Background()) })
	return s
}

// canonical serializes a single-paragraph document
func canonical(t *testing.T, text string) string {
	t.Helper()
	out, err := docsystem.NewContentSerializer().Serialize(models.NewDoc(models.NewParagraph(text)))
	require.NoError(t, err)
	return out
}

func markupOf(t *testing.T, s *Session) string {
	t.Helper()
	view, err := s.View()
	require.NoError(t, err)
	return view.Markup
}

// drain collects the events already queued on ch
func drain(ch <-chan events.Event) []events.Event {
	var out []events.Event
	for {
		select {
		case ev, ok := <-ch:
			if !ok {
				return out
			}
			out = append(out, ev)
		default:
			return out
		}
	}
}

const (
	waitFor = 2 * time.Second
	tick    = 5 * time.Millisecond
)
