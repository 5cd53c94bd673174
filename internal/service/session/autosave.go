package session

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"smartdoc/internal/observability"
)

// AutosaveStatus is the indicator shown next to the editor
type AutosaveStatus string

const (
	AutosaveIdle   AutosaveStatus = "idle"
	AutosaveSaving AutosaveStatus = "saving"
	AutosaveSaved  AutosaveStatus = "saved"
)

// Save triggers, used as the metrics label
const (
	triggerDebounce = "debounce"
	triggerForced   = "forced"
	triggerFlush    = "flush"
)

// SaveFunc persists serialized content as the document's current content
type SaveFunc func(ctx context.Context, content string) error

// AutosaverConfig configures an Autosaver
type AutosaverConfig struct {
	Clock        Clock
	Delay        time.Duration
	SavedDisplay time.Duration
	SaveTimeout  time.Duration
	Save         SaveFunc
	OnStatus     func(AutosaveStatus)
	Metrics      *observability.Metrics
	Logger       *slog.Logger
}

// Autosaver coalesces content changes into debounced saves.
//
// Every piece of content handed to it gets a sequence number. Saves run one at
// a time under saveMu, and a save whose sequence is older than the last one
// written is skipped, so a debounce that fires late can never overwrite a
// forced save made after it was scheduled.
type Autosaver struct {
	clock        Clock
	delay        time.Duration
	savedDisplay time.Duration
	saveTimeout  time.Duration
	save         SaveFunc
	onStatus     func(AutosaveStatus)
	metrics      *observability.Metrics
	logger       *slog.Logger

	// ctx outlives individual requests; cancelled by Stop
	ctx    context.Context
	cancel context.CancelFunc

	mu         sync.Mutex
	pending    string
	hasPending bool
	pendingSeq uint64
	seq        uint64
	timer      Timer
	savedTimer Timer
	savedGen   uint64
	status     AutosaveStatus
	stopped    bool

	saveMu  sync.Mutex
	written uint64
}

// NewAutosaver creates an idle Autosaver
func NewAutosaver(cfg AutosaverConfig) *Autosaver {
	if cfg.Clock == nil {
		cfg.Clock = RealClock{}
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.DiscardHandler)
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Autosaver{
		clock:        cfg.Clock,
		delay:        cfg.Delay,
		savedDisplay: cfg.SavedDisplay,
		saveTimeout:  cfg.SaveTimeout,
		save:         cfg.Save,
		onStatus:     cfg.OnStatus,
		metrics:      cfg.Metrics,
		logger:       cfg.Logger,
		ctx:          ctx,
		cancel:       cancel,
		status:       AutosaveIdle,
	}
}

// Schedule records content as the latest edit and restarts the debounce timer.
// Only the content passed to the last Schedule before the timer fires is saved.
func (a *Autosaver) Schedule(content string) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.stopped {
		return
	}

	a.seq++
	a.pending = content
	a.pendingSeq = a.seq
	a.hasPending = true

	if a.timer != nil {
		a.timer.Stop()
	}
	a.timer = a.clock.AfterFunc(a.delay, a.fire)
}

// SaveNow persists content immediately, discarding any pending debounced edit.
// The error is returned to the caller instead of being swallowed.
func (a *Autosaver) SaveNow(ctx context.Context, content string) error {
	return a.PrepareSave(content)(ctx)
}

// PrepareSave orders a forced save of content after every edit scheduled so
// far and before any edit scheduled later, discarding the pending debounced
// edit. The returned func performs the write.
func (a *Autosaver) PrepareSave(content string) func(ctx context.Context) error {
	a.mu.Lock()
	if a.timer != nil {
		a.timer.Stop()
		a.timer = nil
	}
	a.hasPending = false
	a.seq++
	seq := a.seq
	a.mu.Unlock()

	return func(ctx context.Context) error {
		return a.write(ctx, content, seq, triggerForced)
	}
}

// Flush writes any pending debounced edit now. Used when a session closes.
func (a *Autosaver) Flush(ctx context.Context) error {
	content, seq, ok := a.takePending()
	if !ok {
		return nil
	}
	return a.write(ctx, content, seq, triggerFlush)
}

// Status returns the current indicator state
func (a *Autosaver) Status() AutosaveStatus {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.status
}

// Stop cancels timers and any in-flight save. Later calls to Schedule are ignored.
func (a *Autosaver) Stop() {
	a.mu.Lock()
	a.stopped = true
	if a.timer != nil {
		a.timer.Stop()
		a.timer = nil
	}
	if a.savedTimer != nil {
		a.savedTimer.Stop()
		a.savedTimer = nil
	}
	a.hasPending = false
	a.mu.Unlock()

	a.cancel()
}

func (a *Autosaver) fire() {
	content, seq, ok := a.takePending()
	if !ok {
		return
	}
	// Failure is already logged and reflected in the status; the next edit retries.
	_ = a.write(a.ctx, content, seq, triggerDebounce)
}

func (a *Autosaver) takePending() (string, uint64, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.hasPending {
		return "", 0, false
	}
	a.hasPending = false
	a.timer = nil
	return a.pending, a.pendingSeq, true
}

func (a *Autosaver) write(ctx context.Context, content string, seq uint64, trigger string) error {
	a.saveMu.Lock()
	defer a.saveMu.Unlock()

	if seq <= a.written {
		a.logger.Debug("skipping stale save", "seq", seq, "written", a.written, "trigger", trigger)
		a.metrics.Autosave(trigger, observability.ResultSkipped, 0)
		return nil
	}

	a.setStatus(AutosaveSaving)

	if a.saveTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.saveTimeout)
		defer cancel()
	}

	start := a.clock.Now()
	err := a.save(ctx, content)
	elapsed := a.clock.Now().Sub(start).Seconds()

	if err != nil {
		a.logger.Warn("autosave failed",
			"trigger", trigger,
			"error", err,
		)
		a.metrics.Autosave(trigger, observability.ResultError, elapsed)
		a.setStatus(AutosaveIdle)
		return err
	}

	a.written = seq
	a.metrics.Autosave(trigger, observability.ResultSuccess, elapsed)
	a.markSaved()
	return nil
}

func (a *Autosaver) setStatus(status AutosaveStatus) {
	a.mu.Lock()
	a.savedGen++
	if a.savedTimer != nil {
		a.savedTimer.Stop()
		a.savedTimer = nil
	}
	changed := a.status != status
	a.status = status
	a.mu.Unlock()

	if changed && a.onStatus != nil {
		a.onStatus(status)
	}
}

// markSaved shows "saved" for the display window, then falls back to idle
// unless another save changed the status in between.
func (a *Autosaver) markSaved() {
	a.setStatus(AutosaveSaved)

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.stopped {
		return
	}
	gen := a.savedGen
	a.savedTimer = a.clock.AfterFunc(a.savedDisplay, func() {
		a.mu.Lock()
		if a.savedGen != gen || a.status != AutosaveSaved {
			a.mu.Unlock()
			return
		}
		a.status = AutosaveIdle
		a.savedTimer = nil
		a.mu.Unlock()

		if a.onStatus != nil {
			a.onStatus(AutosaveIdle)
		}
	})
}
