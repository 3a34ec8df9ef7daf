package usecase

import (
	"context"
	"sync"
	"time"

	"github.com/LexatoBR/lexato-extension-sub001/internal/domain"
	"github.com/LexatoBR/lexato-extension-sub001/internal/metrics"

	"go.uber.org/zap"
)

// failsafeBudget caps any phase without a configured budget.
const failsafeBudget = 15 * time.Minute

var defaultPhaseBudgets = map[string]time.Duration{
	domain.PhaseCapture.Name():     5 * time.Minute,
	domain.PhaseTimestamp.Name():   30 * time.Second,
	domain.PhaseUpload.Name():      10 * time.Minute,
	domain.PhasePreview.Name():     24 * time.Hour,
	domain.PhaseBlockchain.Name():  3 * time.Minute,
	domain.PhaseCertificate.Name(): 2 * time.Minute,
}

type watchdog struct {
	phase     string
	startedAt time.Time
	budget    time.Duration
	timer     *time.Timer
	cancel    context.CancelCauseFunc
}

// TimeoutManager arms one watchdog per phase name for a single evidence
// flow. A watchdog moves from armed to exactly one of: disarmed by Clear,
// disarmed by a replacing Register, or fired on expiry. On expiry the
// cancellation token is signaled with a timeout cause, the per-phase and
// global callbacks run, and the entry is removed.
type TimeoutManager struct {
	mu        sync.Mutex
	watchdogs map[string]*watchdog

	onTimeout func(phase string)
	logger    *zap.Logger
	now       func() time.Time
}

// TimeoutSnapshot describes one armed watchdog for diagnostics.
type TimeoutSnapshot struct {
	Phase     string        `json:"phase"`
	StartedAt time.Time     `json:"started_at"`
	Budget    time.Duration `json:"budget"`
	Remaining time.Duration `json:"remaining"`
}

// NewTimeoutManager constructs a manager. onTimeout, when non-nil, runs for
// every fired watchdog in addition to the per-phase callback.
func NewTimeoutManager(onTimeout func(phase string), logger *zap.Logger) *TimeoutManager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TimeoutManager{
		watchdogs: make(map[string]*watchdog),
		onTimeout: onTimeout,
		logger:    logger,
		now:       time.Now,
	}
}

// Register arms a watchdog for phase, replacing (and canceling) any armed
// one. budget <= 0 selects the phase default, falling back to the global
// failsafe. The returned context is the advisory cancellation token; the
// returned cleanup disarms the watchdog without signaling timeout and is
// safe to call more than once.
func (m *TimeoutManager) Register(phase string, onPhaseTimeout func(), budget time.Duration) (context.Context, func()) {
	if budget <= 0 {
		var ok bool
		if budget, ok = defaultPhaseBudgets[phase]; !ok {
			budget = failsafeBudget
		}
	}

	ctx, cancel := context.WithCancelCause(context.Background())

	m.mu.Lock()
	if prior, ok := m.watchdogs[phase]; ok {
		prior.timer.Stop()
		prior.cancel(context.Canceled)
	}
	wd := &watchdog{
		phase:     phase,
		startedAt: m.now(),
		budget:    budget,
		cancel:    cancel,
	}
	wd.timer = time.AfterFunc(budget, func() {
		m.fire(phase, wd, onPhaseTimeout)
	})
	m.watchdogs[phase] = wd
	m.mu.Unlock()

	return ctx, func() { m.clear(phase, wd) }
}

func (m *TimeoutManager) fire(phase string, wd *watchdog, onPhaseTimeout func()) {
	m.mu.Lock()
	current, ok := m.watchdogs[phase]
	if !ok || current != wd {
		// Disarmed or replaced between expiry and lock acquisition.
		m.mu.Unlock()
		return
	}
	delete(m.watchdogs, phase)
	m.mu.Unlock()

	wd.cancel(domain.ErrTimeoutExceeded)
	metrics.ObservePhaseTimeout(phase)
	m.logger.Warn("phase watchdog fired",
		zap.String("phase", phase),
		zap.Duration("budget", wd.budget))
	if onPhaseTimeout != nil {
		onPhaseTimeout()
	}
	if m.onTimeout != nil {
		m.onTimeout(phase)
	}
}

// Clear disarms the named watchdog without signaling timeout.
func (m *TimeoutManager) Clear(phase string) {
	m.mu.Lock()
	wd, ok := m.watchdogs[phase]
	if ok {
		delete(m.watchdogs, phase)
	}
	m.mu.Unlock()
	if ok {
		wd.timer.Stop()
		wd.cancel(context.Canceled)
	}
}

func (m *TimeoutManager) clear(phase string, wd *watchdog) {
	m.mu.Lock()
	current, ok := m.watchdogs[phase]
	if ok && current == wd {
		delete(m.watchdogs, phase)
	} else {
		ok = false
	}
	m.mu.Unlock()
	if ok {
		wd.timer.Stop()
		wd.cancel(context.Canceled)
	}
}

// ClearAll disarms every watchdog, signaling cancellation (not timeout) on
// each outstanding token. Used for full pipeline abort; idempotent.
func (m *TimeoutManager) ClearAll() {
	m.mu.Lock()
	cleared := make([]*watchdog, 0, len(m.watchdogs))
	for _, wd := range m.watchdogs {
		cleared = append(cleared, wd)
	}
	m.watchdogs = make(map[string]*watchdog)
	m.mu.Unlock()

	for _, wd := range cleared {
		wd.timer.Stop()
		wd.cancel(domain.ErrCollectionCanceled)
	}
}

// IsActive reports whether a watchdog is armed for phase.
func (m *TimeoutManager) IsActive(phase string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.watchdogs[phase]
	return ok
}

// ElapsedTime returns how long the named watchdog has been armed.
func (m *TimeoutManager) ElapsedTime(phase string) (time.Duration, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	wd, ok := m.watchdogs[phase]
	if !ok {
		return 0, false
	}
	return m.now().Sub(wd.startedAt), true
}

// RemainingTime returns the time left before the named watchdog fires.
func (m *TimeoutManager) RemainingTime(phase string) (time.Duration, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	wd, ok := m.watchdogs[phase]
	if !ok {
		return 0, false
	}
	remaining := wd.budget - m.now().Sub(wd.startedAt)
	if remaining < 0 {
		remaining = 0
	}
	return remaining, true
}

// Snapshot returns diagnostics for every armed watchdog.
func (m *TimeoutManager) Snapshot() []TimeoutSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]TimeoutSnapshot, 0, len(m.watchdogs))
	for _, wd := range m.watchdogs {
		remaining := wd.budget - m.now().Sub(wd.startedAt)
		if remaining < 0 {
			remaining = 0
		}
		out = append(out, TimeoutSnapshot{
			Phase:     wd.phase,
			StartedAt: wd.startedAt,
			Budget:    wd.budget,
			Remaining: remaining,
		})
	}
	return out
}
