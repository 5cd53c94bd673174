package session

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/robfig/cron/v3"

	"smartdoc/internal/config"
	"smartdoc/internal/domain"
	docsysSvc "smartdoc/internal/domain/services/docsystem"
	"smartdoc/internal/observability"
)

// RegistryConfig wires a session registry
type RegistryConfig struct {
	Documents  docsysSvc.DocumentService
	Versions   docsysSvc.VersionService
	Generation docsysSvc.GenerationService
	Serializer docsysSvc.ContentSerializer
	Clock      Clock
	Editor     config.EditorConfig
	Metrics    *observability.Metrics
	Logger     *slog.Logger
}

// Registry tracks open sessions by ID
type Registry struct {
	cfg    RegistryConfig
	logger *slog.Logger

	mu       sync.Mutex
	sessions map[string]*Session
	cron     *cron.Cron
	closed   bool
}

var errRegistryClosed = &domain.TransientIOError{Message: "editing sessions are shutting down"}

// NewRegistry creates an empty registry
func NewRegistry(cfg RegistryConfig) *Registry {
	if cfg.Clock == nil {
		cfg.Clock = RealClock{}
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.DiscardHandler)
	}
	return &Registry{
		cfg:      cfg,
		logger:   cfg.Logger,
		sessions: make(map[string]*Session),
	}
}

// Open starts a session for userID on documentID. After Shutdown it fails
// with a TransientIOError.
func (r *Registry) Open(ctx context.Context, userID, documentID string) (*Session, error) {
	r.mu.Lock()
	closed := r.closed
	r.mu.Unlock()
	if closed {
		return nil, errRegistryClosed
	}

	store := NewServiceStore(userID, r.cfg.Documents, r.cfg.Versions, r.cfg.Generation)

	s, err := Open(ctx, Options{
		DocumentID: documentID,
		UserID:     userID,
		Store:      store,
		Generator:  store,
		Serializer: r.cfg.Serializer,
		Clock:      r.cfg.Clock,
		Config:     r.cfg.Editor,
		Metrics:    r.cfg.Metrics,
		Logger:     r.logger,
	})
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		// Shutdown ran while the session was opening
		if err := s.Close(ctx); err != nil {
			r.logger.Warn("error closing session opened during shutdown",
				"session_id", s.ID(),
				"error", err,
			)
		}
		return nil, errRegistryClosed
	}
	r.sessions[s.ID()] = s
	r.mu.Unlock()
	return s, nil
}

// Get returns the session if it belongs to userID
func (r *Registry) Get(userID, sessionID string) (*Session, error) {
	r.mu.Lock()
	s, ok := r.sessions[sessionID]
	r.mu.Unlock()

	if !ok {
		return nil, &domain.NotFoundError{Message: fmt.Sprintf("session %s not found", sessionID)}
	}
	if s.UserID() != userID {
		return nil, &domain.ForbiddenError{Message: "access denied"}
	}
	return s, nil
}

// Close closes and forgets a session owned by userID
func (r *Registry) Close(ctx context.Context, userID, sessionID string) error {
	s, err := r.Get(userID, sessionID)
	if err != nil {
		return err
	}
	r.remove(sessionID)
	return s.Close(ctx)
}

// Len returns the number of open sessions
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Reap closes sessions idle for longer than the configured TTL and returns how many it closed
func (r *Registry) Reap(ctx context.Context) int {
	cutoff := r.cfg.Clock.Now().Add(-r.cfg.Editor.SessionIdleTTL)

	r.mu.Lock()
	var idle []*Session
	for id, s := range r.sessions {
		if s.LastActive().Before(cutoff) {
			idle = append(idle, s)
			delete(r.sessions, id)
		}
	}
	r.mu.Unlock()

	for _, s := range idle {
		if err := s.Close(ctx); err != nil {
			r.logger.Warn("error closing idle session",
				"session_id", s.ID(),
				"error", err,
			)
		}
	}
	if len(idle) > 0 {
		r.logger.Info("reaped idle sessions", "count", len(idle))
	}
	return len(idle)
}

// StartReaper schedules Reap on the configured cron schedule
func (r *Registry) StartReaper() error {
	c := cron.New()
	if _, err := c.AddFunc(r.cfg.Editor.ReapSchedule, func() {
		r.Reap(context.Background())
	}); err != nil {
		return fmt.Errorf("schedule session reaper: %w", err)
	}
	c.Start()

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		<-c.Stop().Done()
		return nil
	}
	r.cron = c
	r.mu.Unlock()
	return nil
}

// Shutdown stops the reaper and closes every session, flushing pending edits.
// Sessions opened afterwards are refused.
func (r *Registry) Shutdown(ctx context.Context) {
	r.mu.Lock()
	r.closed = true
	c := r.cron
	r.cron = nil
	sessions := r.sessions
	r.sessions = make(map[string]*Session)
	r.mu.Unlock()

	if c != nil {
		<-c.Stop().Done()
	}

	for _, s := range sessions {
		if err := s.Close(ctx); err != nil {
			r.logger.Warn("error closing session on shutdown",
				"session_id", s.ID(),
				"error", err,
			)
		}
	}
}

func (r *Registry) remove(sessionID string) {
	r.mu.Lock()
	delete(r.sessions, sessionID)
	r.mu.Unlock()
}
