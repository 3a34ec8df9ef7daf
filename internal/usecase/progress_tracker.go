package usecase

import (
	"context"
	"sync"
	"time"

	"github.com/LexatoBR/lexato-extension-sub001/internal/domain"
	"github.com/LexatoBR/lexato-extension-sub001/internal/metrics"

	"go.uber.org/zap"
)

const (
	// Smoothing step bounds: actively-progressing statuses advance in
	// small increments so high-frequency updates render continuously.
	activeStepBound  = 2
	defaultStepBound = 5
)

// NextPercent computes the smoothed next percent value given the current
// percent, the target the status is converging toward, and whether the
// status is actively progressing. Pure; never regresses below current.
func NextPercent(current, target int, active bool) int {
	if target <= current {
		return current
	}
	step := defaultStepBound
	if active {
		step = activeStepBound
	}
	if target-current > step {
		return current + step
	}
	return target
}

// ProgressUpdate is a partial mutation applied to a PipelineProgress record.
// Nil fields are left unchanged.
type ProgressUpdate struct {
	Status  *domain.EvidenceStatus
	Percent *int
	Message *string
	Details map[string]any
}

// ProgressTracker keeps the in-memory progress map for every in-flight
// evidence item, broadcasts each change to subscribers, and writes the map
// to the durable store in the background. The in-memory view is the source
// of truth for the running process; persistence is best-effort durability
// for crash recovery.
type ProgressTracker struct {
	mu          sync.Mutex
	entries     map[string]domain.PipelineProgress
	subscribers map[int]func(domain.PipelineProgress)
	nextSubID   int
	initialized bool

	store  ProgressStore
	logger *zap.Logger
	now    func() time.Time

	persistErrs chan error
}

// NewProgressTracker constructs a tracker backed by store. A nil store
// disables persistence; a nil logger is replaced with a no-op one.
func NewProgressTracker(store ProgressStore, logger *zap.Logger) *ProgressTracker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProgressTracker{
		entries:     make(map[string]domain.PipelineProgress),
		subscribers: make(map[int]func(domain.PipelineProgress)),
		store:       store,
		logger:      logger,
		now:         time.Now,
		persistErrs: make(chan error, 16),
	}
}

// Initialize loads previously persisted progress records into memory so an
// in-flight pipeline survives a process restart. Idempotent; only the first
// call loads.
func (t *ProgressTracker) Initialize(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.initialized {
		return nil
	}
	t.initialized = true
	if t.store == nil {
		return nil
	}
	loaded, err := t.store.Load(ctx)
	if err != nil {
		return err
	}
	for id, entry := range loaded {
		if _, exists := t.entries[id]; !exists {
			t.entries[id] = entry
		}
	}
	return nil
}

// Update merges upd into the record for evidenceID, creating the record on
// first sight. Percent is smoothed, ceiling-clamped and never regresses.
// The resulting snapshot is returned after subscribers have been notified.
func (t *ProgressTracker) Update(ctx context.Context, evidenceID string, upd ProgressUpdate) domain.PipelineProgress {
	t.mu.Lock()
	current, ok := t.entries[evidenceID]
	if !ok {
		current = domain.NewPipelineProgress(evidenceID, t.now())
	}
	next := current

	if upd.Status != nil {
		next.Status = *upd.Status
		if phase, known := domain.PhaseOf(next.Status); known {
			next.Phase = phase
			next.PhaseName = phase.Name()
		}
	}

	target := current.Percent
	explicit := false
	if upd.Percent != nil {
		target = *upd.Percent
		explicit = true
	} else if upd.Status != nil {
		if v, known := domain.TargetPercent(*upd.Status); known {
			target = v
		}
	}
	computed := target
	if !explicit {
		computed = NextPercent(current.Percent, target, next.Status.IsActive())
	}
	next.Percent = clampPercent(maxInt(current.Percent, computed))

	if upd.Message != nil {
		next.Message = *upd.Message
	}
	if upd.Details != nil {
		next.Details = upd.Details
	}
	next.UpdatedAt = t.now()

	t.entries[evidenceID] = next
	snapshot := t.snapshotLocked()
	subs := t.subscribersLocked()
	t.mu.Unlock()

	metrics.ObservePhaseTransition(next.PhaseName, string(next.Status))
	t.notify(subs, next)
	t.persist(ctx, snapshot)
	return next
}

// IncrementProgress adds delta to the current percent, clamped to the
// active phase's ceiling and an optional maxPercent. Unknown evidence ids
// are a silent no-op.
func (t *ProgressTracker) IncrementProgress(ctx context.Context, evidenceID string, delta int, maxPercent int, message string) {
	t.mu.Lock()
	current, ok := t.entries[evidenceID]
	if !ok {
		t.mu.Unlock()
		return
	}
	limit := domain.PhaseCeilingOf(current.Status)
	if maxPercent > 0 && maxPercent < limit {
		limit = maxPercent
	}
	next := current
	next.Percent = maxInt(current.Percent, minInt(clampPercent(current.Percent+delta), limit))
	if message != "" {
		next.Message = message
	}
	next.UpdatedAt = t.now()
	t.entries[evidenceID] = next
	snapshot := t.snapshotLocked()
	subs := t.subscribersLocked()
	t.mu.Unlock()

	t.notify(subs, next)
	t.persist(ctx, snapshot)
}

// Get returns the current record for evidenceID.
func (t *ProgressTracker) Get(evidenceID string) (domain.PipelineProgress, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	entry, ok := t.entries[evidenceID]
	return entry, ok
}

// GetAll returns a copy of the whole progress map.
func (t *ProgressTracker) GetAll() map[string]domain.PipelineProgress {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.snapshotLocked()
}

// Subscribe registers cb to be invoked synchronously on every update. The
// returned function removes the subscription.
func (t *ProgressTracker) Subscribe(cb func(domain.PipelineProgress)) func() {
	t.mu.Lock()
	defer t.mu.Unlock()
	id := t.nextSubID
	t.nextSubID++
	t.subscribers[id] = cb
	return func() {
		t.mu.Lock()
		defer t.mu.Unlock()
		delete(t.subscribers, id)
	}
}

// Remove drops the in-memory and persisted record for evidenceID.
func (t *ProgressTracker) Remove(ctx context.Context, evidenceID string) {
	t.mu.Lock()
	delete(t.entries, evidenceID)
	snapshot := t.snapshotLocked()
	t.mu.Unlock()
	t.persist(ctx, snapshot)
}

// Clear drops every record, in memory and in the store.
func (t *ProgressTracker) Clear(ctx context.Context) {
	t.mu.Lock()
	t.entries = make(map[string]domain.PipelineProgress)
	t.mu.Unlock()
	if t.store == nil {
		return
	}
	go func() {
		if err := t.store.Remove(context.WithoutCancel(ctx)); err != nil {
			t.reportPersistFailure(err)
		}
	}()
}

// PersistFailures exposes the error channel for failed background writes.
// Failures never roll back the in-memory state.
func (t *ProgressTracker) PersistFailures() <-chan error {
	return t.persistErrs
}

func (t *ProgressTracker) snapshotLocked() map[string]domain.PipelineProgress {
	out := make(map[string]domain.PipelineProgress, len(t.entries))
	for id, entry := range t.entries {
		out[id] = entry
	}
	return out
}

func (t *ProgressTracker) subscribersLocked() []func(domain.PipelineProgress) {
	out := make([]func(domain.PipelineProgress), 0, len(t.subscribers))
	for _, cb := range t.subscribers {
		out = append(out, cb)
	}
	return out
}

// notify invokes subscribers outside the tracker lock. A panicking
// subscriber is isolated and reported; it never blocks the others or
// corrupts tracker state.
func (t *ProgressTracker) notify(subs []func(domain.PipelineProgress), progress domain.PipelineProgress) {
	for _, cb := range subs {
		func() {
			defer func() {
				if r := recover(); r != nil {
					t.logger.Error("progress subscriber panicked",
						zap.String("evidence_id", progress.EvidenceID),
						zap.Any("panic", r))
				}
			}()
			cb(progress)
		}()
	}
}

func (t *ProgressTracker) persist(ctx context.Context, snapshot map[string]domain.PipelineProgress) {
	if t.store == nil {
		return
	}
	go func() {
		if err := t.store.Save(context.WithoutCancel(ctx), snapshot); err != nil {
			t.reportPersistFailure(err)
		}
	}()
}

func (t *ProgressTracker) reportPersistFailure(err error) {
	metrics.ObservePersistFailure()
	t.logger.Warn("progress persistence failed", zap.Error(err))
	select {
	case t.persistErrs <- err:
	default:
	}
}

func clampPercent(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
