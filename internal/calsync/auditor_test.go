package calsync

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/njoerd114/lifesync/internal/store"
)

func mustAuditor(t *testing.T, svc *Service, spec string) *Auditor {
	t.Helper()
	a, err := NewAuditor(svc, spec, testLogger)
	if err != nil {
		t.Fatalf("NewAuditor(%q): %v", spec, err)
	}
	return a
}

func TestNewAuditor_InvalidSchedule(t *testing.T) {
	if _, err := NewAuditor(newTestService(newMockStore()), "every now and then", testLogger); err == nil {
		t.Fatal("expected error for unparsable schedule, got nil")
	}
}

func TestAuditor_RunOnceAcrossUsers(t *testing.T) {
	st := newMockStore()
	other := eventSeed("e3", "expense", "x9", "2024-01-16T09:00:00.000Z", "2024-01-16T10:00:00.000Z")
	other["user_id"] = "u2"
	st.seed(store.TableCalendarEvents,
		eventSeed("e1", "workout", "w1", "2024-01-15T09:00:00.000Z", "2024-01-15T10:00:00.000Z"),
		eventSeed("e2", "workout", "w2", "2024-01-15T11:00:00.000Z", "2024-01-15T12:00:00.000Z"),
		other,
	)
	st.seed("fitness_workouts", store.Row{"id": "w1", "user_id": "u1"})
	a := mustAuditor(t, newTestService(st), "@every 1m")

	n, err := a.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 2 {
		t.Errorf("orphans = %d, want 2 (e2 and u2's e3)", n)
	}
	if w := st.writes(); len(w) != 0 {
		t.Errorf("audit must not write, got %+v", w)
	}
}

func TestAuditor_RunOnceStoreError(t *testing.T) {
	st := newMockStore()
	st.failOn("select", store.TableCalendarEvents)
	a := mustAuditor(t, newTestService(st), "@every 1m")

	if _, err := a.RunOnce(context.Background()); !errors.Is(err, errInjected) {
		t.Errorf("err = %v, want injected error", err)
	}
}

func TestAuditor_RunStopsOnCancel(t *testing.T) {
	st := newMockStore()
	a := mustAuditor(t, newTestService(st), "@hourly")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Run returned %v, want context.Canceled", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
