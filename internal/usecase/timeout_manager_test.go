package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/LexatoBR/lexato-extension-sub001/internal/domain"
)

func TestRegisterFiresOnExpiry(t *testing.T) {
	fired := make(chan string, 1)
	m := NewTimeoutManager(func(phase string) { fired <- phase }, nil)

	phaseFired := make(chan struct{}, 1)
	ctx, _ := m.Register("capture", func() { phaseFired <- struct{}{} }, 20*time.Millisecond)

	select {
	case <-ctx.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("token never canceled")
	}
	if cause := context.Cause(ctx); !errors.Is(cause, domain.ErrTimeoutExceeded) {
		t.Fatalf("cause = %v, want ErrTimeoutExceeded", cause)
	}

	select {
	case <-phaseFired:
	case <-time.After(2 * time.Second):
		t.Fatal("per-phase callback never ran")
	}
	select {
	case phase := <-fired:
		if phase != "capture" {
			t.Fatalf("global callback phase = %q, want capture", phase)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("global callback never ran")
	}
	if m.IsActive("capture") {
		t.Fatal("watchdog still armed after firing")
	}
}

func TestClearDisarmsWithoutTimeoutSignal(t *testing.T) {
	m := NewTimeoutManager(func(string) { t.Error("global callback ran for cleared watchdog") }, nil)

	ctx, _ := m.Register("upload", func() { t.Error("phase callback ran for cleared watchdog") }, 30*time.Millisecond)
	m.Clear("upload")

	select {
	case <-ctx.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("token not canceled on Clear")
	}
	if cause := context.Cause(ctx); !errors.Is(cause, context.Canceled) {
		t.Fatalf("cause = %v, want context.Canceled", cause)
	}
	if m.IsActive("upload") {
		t.Fatal("watchdog still armed after Clear")
	}

	// Give a would-be late fire a chance to surface as t.Error.
	time.Sleep(60 * time.Millisecond)
}

func TestCleanupIsIdempotentAndScopedToItsWatchdog(t *testing.T) {
	m := NewTimeoutManager(nil, nil)

	_, cleanupOld := m.Register("preview", nil, time.Hour)
	ctxNew, _ := m.Register("preview", nil, time.Hour)

	// The replaced registration's cleanup must not touch the replacement.
	cleanupOld()
	cleanupOld()
	if !m.IsActive("preview") {
		t.Fatal("stale cleanup disarmed the replacement watchdog")
	}
	if ctxNew.Err() != nil {
		t.Fatal("replacement token canceled by stale cleanup")
	}
}

func TestRegisterReplacesPriorWatchdog(t *testing.T) {
	m := NewTimeoutManager(nil, nil)

	ctxOld, _ := m.Register("timestamp", nil, time.Hour)
	ctxNew, _ := m.Register("timestamp", nil, time.Hour)

	select {
	case <-ctxOld.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("replaced token not canceled")
	}
	if cause := context.Cause(ctxOld); !errors.Is(cause, context.Canceled) {
		t.Fatalf("replaced cause = %v, want context.Canceled", cause)
	}
	if ctxNew.Err() != nil {
		t.Fatal("replacement token canceled")
	}
	if !m.IsActive("timestamp") {
		t.Fatal("replacement watchdog not armed")
	}
}

func TestClearAllCancelsEverything(t *testing.T) {
	m := NewTimeoutManager(nil, nil)

	ctx1, _ := m.Register("capture", nil, time.Hour)
	ctx2, _ := m.Register("upload", nil, time.Hour)
	m.ClearAll()
	m.ClearAll()

	for _, ctx := range []context.Context{ctx1, ctx2} {
		select {
		case <-ctx.Done():
		case <-time.After(2 * time.Second):
			t.Fatal("token not canceled by ClearAll")
		}
		if cause := context.Cause(ctx); !errors.Is(cause, domain.ErrCollectionCanceled) {
			t.Fatalf("cause = %v, want ErrCollectionCanceled", cause)
		}
	}
	if len(m.Snapshot()) != 0 {
		t.Fatal("watchdogs remain after ClearAll")
	}
}

func TestDefaultBudgetsAndIntrospection(t *testing.T) {
	m := NewTimeoutManager(nil, nil)
	base := time.Now()
	m.now = func() time.Time { return base }

	_, cleanup := m.Register("timestamp", nil, 0)
	defer cleanup()

	remaining, ok := m.RemainingTime("timestamp")
	if !ok {
		t.Fatal("no remaining time for armed watchdog")
	}
	if remaining != 30*time.Second {
		t.Fatalf("remaining = %v, want default timestamp budget 30s", remaining)
	}

	m.now = func() time.Time { return base.Add(10 * time.Second) }
	elapsed, ok := m.ElapsedTime("timestamp")
	if !ok || elapsed != 10*time.Second {
		t.Fatalf("elapsed = %v ok=%v, want 10s", elapsed, ok)
	}
	remaining, _ = m.RemainingTime("timestamp")
	if remaining != 20*time.Second {
		t.Fatalf("remaining = %v, want 20s", remaining)
	}

	snaps := m.Snapshot()
	if len(snaps) != 1 || snaps[0].Phase != "timestamp" {
		t.Fatalf("snapshot = %+v, want one timestamp entry", snaps)
	}

	if _, ok := m.ElapsedTime("unknown"); ok {
		t.Fatal("elapsed reported for unarmed phase")
	}
}

func TestUnknownPhaseGetsFailsafeBudget(t *testing.T) {
	m := NewTimeoutManager(nil, nil)
	base := time.Now()
	m.now = func() time.Time { return base }

	_, cleanup := m.Register("mystery", nil, 0)
	defer cleanup()

	remaining, ok := m.RemainingTime("mystery")
	if !ok || remaining != failsafeBudget {
		t.Fatalf("remaining = %v ok=%v, want failsafe %v", remaining, ok, failsafeBudget)
	}
}
