// Package session implements live document editing sessions: debounced
// autosave, periodic snapshots, restore, and following a document through
// AI generation until its content can be edited.
package session

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"smartdoc/internal/config"
	"smartdoc/internal/domain"
	models "smartdoc/internal/domain/models/docsystem"
	docsysSvc "smartdoc/internal/domain/services/docsystem"
	"smartdoc/internal/events"
	"smartdoc/internal/observability"
)

// State is the lifecycle state of a session
type State string

const (
	StateLoading        State = "loading"
	StateEditing        State = "editing"
	StateGenerating     State = "generating"
	StateAwaitingImport State = "awaiting_import"
	StateFailed         State = "failed"
	StateClosed         State = "closed"
)

// Session event types. Snapshot, restore and progress events reuse the
// document event names.
const (
	EventAutosave      = "autosave.status"
	EventContentLoaded = "content.loaded"
	EventPlaceholder   = "document.placeholder"
	EventNotice        = "document.notice"
	EventClosed        = "session.closed"
)

// Options configures a session
type Options struct {
	ID         string // generated when empty
	DocumentID string
	UserID     string
	Store      Store
	Generator  Generator
	Serializer docsysSvc.ContentSerializer
	Editor     Editor // defaults to a LiveEditor
	Clock      Clock  // defaults to RealClock
	Config     config.EditorConfig
	Metrics    *observability.Metrics
	Logger     *slog.Logger
}

// View is a point-in-time copy of what the session shows
type View struct {
	ID             string         `json:"id"`
	DocumentID     string         `json:"document_id"`
	Title          string         `json:"title"`
	State          State          `json:"state"`
	AutosaveStatus AutosaveStatus `json:"autosave_status"`
	Placeholder    string         `json:"placeholder,omitempty"`
	Markup         string         `json:"markup,omitempty"`
	Content        string         `json:"content,omitempty"`
}

// Session is one user's live editing of one document. All background work
// (status polling, periodic snapshots, debounced saves) belongs to the
// session and stops when it is closed.
type Session struct {
	id         string
	documentID string
	userID     string
	store      Store
	serializer docsysSvc.ContentSerializer
	editor     Editor
	clock      Clock
	cfg        config.EditorConfig
	metrics    *observability.Metrics
	logger     *slog.Logger

	autosave *Autosaver
	versions *VersionManager
	bridge   *Bridge
	events   *events.MemoryBroker

	mu          sync.Mutex
	state       State
	title       string
	placeholder string
	lastActive  time.Time
	edits       uint64 // bumped whenever the editor tree changes

	cancel    context.CancelFunc
	group     *errgroup.Group
	closeOnce sync.Once
	closeErr  error
}

// Open fetches the document and starts the session's background work.
// Not-found and access errors are returned; every other outcome, including
// malformed content and failed generation, yields a session showing a
// placeholder.
func Open(ctx context.Context, opts Options) (*Session, error) {
	if opts.ID == "" {
		opts.ID = uuid.New().String()
	}
	if opts.Editor == nil {
		opts.Editor = NewLiveEditor().WithValidation(opts.Serializer.Validate)
	}
	if opts.Clock == nil {
		opts.Clock = RealClock{}
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}
	logger := opts.Logger.With("session_id", opts.ID, "document_id", opts.DocumentID)

	s := &Session{
		id:         opts.ID,
		documentID: opts.DocumentID,
		userID:     opts.UserID,
		store:      opts.Store,
		serializer: opts.Serializer,
		editor:     opts.Editor,
		clock:      opts.Clock,
		cfg:        opts.Config,
		metrics:    opts.Metrics,
		logger:     logger,
		events:     events.NewMemoryBroker(),
		state:      StateLoading,
		lastActive: opts.Clock.Now(),
	}

	s.autosave = NewAutosaver(AutosaverConfig{
		Clock:        opts.Clock,
		Delay:        opts.Config.AutosaveDelay,
		SavedDisplay: opts.Config.SavedDisplay,
		SaveTimeout:  opts.Config.SaveTimeout,
		Save:         s.writeContent,
		OnStatus:     s.onAutosaveStatus,
		Metrics:      opts.Metrics,
		Logger:       logger,
	})
	s.versions = NewVersionManager(opts.DocumentID, opts.Store, opts.Serializer, opts.Clock, opts.Metrics, logger)
	s.bridge = newBridge(opts.DocumentID, opts.Store, opts.Generator, opts.Serializer, opts.Clock, opts.Config,
		bridgeHooks{
			apply:       s.applyLoaded,
			placeholder: s.showPlaceholder,
			progress:    s.showProgress,
			notice:      s.showNotice,
		},
		opts.Metrics, logger)

	openState, doc, err := s.bridge.Open(ctx)
	if err != nil {
		s.autosave.Stop()
		_ = s.events.Close()
		return nil, err
	}

	// Background work must outlive the request that opened the session.
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	group, groupCtx := errgroup.WithContext(runCtx)
	s.cancel = cancel
	s.group = group

	s.mu.Lock()
	s.title = doc.Title
	switch openState {
	case OpenPolling:
		s.state = StateGenerating
	case OpenAwaitingImport:
		s.state = StateAwaitingImport
	}
	s.mu.Unlock()

	if openState == OpenPolling {
		group.Go(func() error { return s.bridge.Run(groupCtx) })
	}
	group.Go(func() error { return s.snapshotLoop(groupCtx) })

	s.metrics.SessionOpened()
	logger.Info("editing session opened", "state", s.State())
	return s, nil
}

func (s *Session) ID() string         { return s.id }
func (s *Session) DocumentID() string { return s.documentID }
func (s *Session) UserID() string     { return s.userID }

// State returns the lifecycle state
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// LastActive returns when the session last saw an edit or was opened
func (s *Session) LastActive() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActive
}

// AutosaveStatus returns the current autosave indicator
func (s *Session) AutosaveStatus() AutosaveStatus {
	return s.autosave.Status()
}

// View returns what the session currently shows
func (s *Session) View() (*View, error) {
	s.mu.Lock()
	state, title, placeholder := s.state, s.title, s.placeholder
	var tree *models.Node
	if state == StateEditing {
		tree = s.editor.Tree()
	}
	s.mu.Unlock()

	view := &View{
		ID:             s.id,
		DocumentID:     s.documentID,
		Title:          title,
		State:          state,
		AutosaveStatus: s.autosave.Status(),
		Placeholder:    placeholder,
	}
	if tree != nil {
		content, err := s.serializer.Serialize(tree)
		if err != nil {
			return nil, err
		}
		view.Content = content
		view.Markup = s.serializer.ToDisplayMarkup(tree)
	}
	return view, nil
}

// Subscribe streams session events until cancel is called or ctx ends
func (s *Session) Subscribe(ctx context.Context) (<-chan events.Event, func(), error) {
	return s.events.Subscribe(ctx, s.id)
}

// ApplyChange replaces the live tree with serialized content from the editor
// surface and schedules an autosave.
func (s *Session) ApplyChange(ctx context.Context, serialized string) error {
	tree, err := s.serializer.Deserialize(serialized)
	if err != nil {
		return err
	}

	s.mu.Lock()
	if err := s.requireEditing(); err != nil {
		s.mu.Unlock()
		return err
	}
	s.editor.SetTree(tree)
	current := s.editor.Tree()
	s.edits++
	s.lastActive = s.clock.Now()
	s.mu.Unlock()

	return s.schedule(current)
}

// ApplyEditAction applies a suggested edit to the live tree and schedules an
// autosave. An edit that would leave the tree unstorable is rejected and the
// tree is left as it was.
func (s *Session) ApplyEditAction(ctx context.Context, action models.EditAction) error {
	s.mu.Lock()
	if err := s.requireEditing(); err != nil {
		s.mu.Unlock()
		return err
	}
	previous := s.editor.Tree()
	if err := s.editor.Apply(action); err != nil {
		s.mu.Unlock()
		return err
	}
	current := s.editor.Tree()
	if err := s.serializer.Validate(current); err != nil {
		// Editors without their own validation
		s.editor.SetTree(previous)
		s.mu.Unlock()
		return &domain.ValidationError{Message: "edit action content is invalid: " + err.Error()}
	}
	s.edits++
	s.lastActive = s.clock.Now()
	s.mu.Unlock()

	return s.schedule(current)
}

// ListVersions returns the document's snapshots newest-first
func (s *Session) ListVersions(ctx context.Context) ([]models.SnapshotSummary, error) {
	return s.versions.ListVersions(ctx)
}

// CreateVersion snapshots the live tree under name
func (s *Session) CreateVersion(ctx context.Context, name string) (*models.Snapshot, error) {
	s.mu.Lock()
	if err := s.requireEditing(); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	tree := s.editor.Tree()
	s.lastActive = s.clock.Now()
	s.mu.Unlock()

	snapshot, err := s.versions.CreateNamedSnapshot(ctx, name, tree)
	if err != nil {
		return nil, err
	}
	s.publish(events.TypeSnapshotCreated, snapshotData(snapshot))
	return snapshot, nil
}

// RestoreVersion replaces the live tree with a snapshot and saves it at once.
// Unsaved edits are discarded. Edits made while the save is in flight are kept
// and saved after it. If the save fails and nothing was edited meanwhile, the
// editor goes back to what it showed before.
func (s *Session) RestoreVersion(ctx context.Context, snapshotID string) error {
	if err := s.checkEditing(); err != nil {
		return err
	}

	tree, err := s.versions.RestoreVersion(ctx, snapshotID, func(ctx context.Context, tree *models.Node, serialized string) error {
		s.mu.Lock()
		if err := s.requireEditing(); err != nil {
			s.mu.Unlock()
			return err
		}
		previous := s.editor.Tree()
		s.editor.SetTree(tree)
		s.edits++
		restored := s.edits
		s.lastActive = s.clock.Now()
		// Ordered before any edit that lands once mu is released
		save := s.autosave.PrepareSave(serialized)
		s.mu.Unlock()

		err := save(ctx)
		if err == nil {
			return nil
		}

		s.mu.Lock()
		rollback := s.edits == restored && s.state == StateEditing
		if rollback {
			s.editor.SetTree(previous)
			s.edits++
		}
		s.mu.Unlock()

		if rollback {
			if prev, serr := s.serializer.Serialize(previous); serr == nil {
				s.autosave.Schedule(prev)
			}
		}
		return err
	})
	if err != nil {
		return err
	}

	s.publish(events.TypeRestored, map[string]interface{}{
		"snapshot_id": snapshotID,
		"markup":      s.serializer.ToDisplayMarkup(tree),
	})
	return nil
}

// ImportFile supplies the uploaded file of a document opened with one
func (s *Session) ImportFile(ctx context.Context, filename string, data []byte) error {
	if s.State() != StateAwaitingImport {
		return &domain.ValidationError{Message: "session is not waiting for an upload"}
	}

	doc, err := s.store.ImportContent(ctx, s.documentID, filename, data)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.title = doc.Title
	s.mu.Unlock()

	if !s.bridge.finish() {
		return &domain.ValidationError{Message: "document content was already loaded"}
	}
	if s.bridge.load(ctx, doc.Content) != OpenEditing {
		return &domain.MalformedContentError{Message: "imported content could not be loaded"}
	}
	return nil
}

// Close stops background work and writes any pending edit. Safe to call more than once.
func (s *Session) Close(ctx context.Context) error {
	s.closeOnce.Do(func() {
		s.cancel()
		_ = s.group.Wait()

		if err := s.autosave.Flush(ctx); err != nil {
			s.closeErr = err
		}
		s.autosave.Stop()

		s.mu.Lock()
		s.state = StateClosed
		s.mu.Unlock()

		s.publish(EventClosed, nil)
		_ = s.events.Close()
		s.metrics.SessionClosed()
		s.logger.Info("editing session closed")
	})
	return s.closeErr
}

func (s *Session) schedule(tree *models.Node) error {
	serialized, err := s.serializer.Serialize(tree)
	if err != nil {
		return err
	}
	s.autosave.Schedule(serialized)
	return nil
}

func (s *Session) writeContent(ctx context.Context, content string) error {
	_, err := s.store.WriteCurrentContent(ctx, s.documentID, content)
	return err
}

func (s *Session) snapshotLoop(ctx context.Context) error {
	ticker := s.clock.NewTicker(s.cfg.SnapshotInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C():
			s.snapshotTick(ctx)
		}
	}
}

func (s *Session) snapshotTick(ctx context.Context) {
	s.mu.Lock()
	if s.state != StateEditing {
		s.mu.Unlock()
		return
	}
	tree := s.editor.Tree()
	s.mu.Unlock()

	snapshot, err := s.versions.MaybeCreateSnapshot(ctx, tree)
	if err != nil {
		if ctx.Err() == nil {
			s.logger.Warn("periodic snapshot failed", "error", err)
		}
		return
	}
	if snapshot != nil {
		s.publish(events.TypeSnapshotCreated, snapshotData(snapshot))
	}
}

// applyLoaded installs content that arrived from the store. Content stored in
// a legacy form is written back canonically. Content that cannot be stored is
// refused and the session stays out of the editing state.
func (s *Session) applyLoaded(ctx context.Context, tree *models.Node, stored string) error {
	s.mu.Lock()
	previous := s.editor.Tree()
	s.editor.SetTree(tree)
	current := s.editor.Tree()
	serialized, err := s.serializer.Serialize(current)
	if err != nil {
		s.editor.SetTree(previous)
		s.mu.Unlock()
		return err
	}
	s.edits++
	s.state = StateEditing
	s.placeholder = ""
	s.mu.Unlock()

	s.versions.SetBaseline(serialized)

	if models.IsUsableContent(stored) && strings.TrimSpace(stored) != serialized {
		if err := s.autosave.SaveNow(ctx, serialized); err != nil {
			s.logger.Warn("failed to save canonical content", "error", err)
		}
	}

	s.publish(EventContentLoaded, map[string]interface{}{
		"markup": s.serializer.ToDisplayMarkup(current),
	})
	return nil
}

func (s *Session) showPlaceholder(reason, message string) {
	s.mu.Lock()
	s.state = StateFailed
	s.placeholder = message
	s.mu.Unlock()

	s.publish(EventPlaceholder, map[string]interface{}{
		"reason":  reason,
		"message": message,
	})
}

func (s *Session) showProgress(message string) {
	s.publish(events.TypeProgress, map[string]interface{}{"message": message})
}

func (s *Session) showNotice(message string) {
	s.publish(EventNotice, map[string]interface{}{"message": message})
}

func (s *Session) onAutosaveStatus(status AutosaveStatus) {
	s.publish(EventAutosave, map[string]interface{}{"status": string(status)})
}

func (s *Session) publish(eventType string, data map[string]interface{}) {
	_ = s.events.Publish(context.Background(), s.id, events.New(eventType, s.documentID, data))
}

func (s *Session) checkEditing() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.requireEditing()
}

// requireEditing must be called with mu held
func (s *Session) requireEditing() error {
	switch s.state {
	case StateEditing:
		return nil
	case StateClosed:
		return &domain.ValidationError{Message: "session is closed"}
	}
	return &domain.ValidationError{Message: "document is not editable while " + string(s.state)}
}

func snapshotData(snapshot *models.Snapshot) map[string]interface{} {
	return map[string]interface{}{
		"snapshot_id": snapshot.ID,
		"name":        snapshot.Name,
		"version":     snapshot.Version,
	}
}
