package worker

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"finboard/internal/amqp"
	"finboard/internal/core"
	"finboard/internal/services"
	"finboard/internal/sheets"
	sheetsmem "finboard/internal/sheets/memory"
	"finboard/internal/store/memory"
)

type fakeMirror struct {
	mu    sync.Mutex
	snaps []sheets.Snapshot
	fail  map[core.UserScope]bool
}

func (f *fakeMirror) Mirror(ctx context.Context, snap sheets.Snapshot) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail[snap.Scope] {
		return errors.New("quota exceeded")
	}
	f.snaps = append(f.snaps, snap)
	return nil
}

func (f *fakeMirror) scopes() []core.UserScope {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]core.UserScope, len(f.snaps))
	for i, s := range f.snaps {
		out[i] = s.Scope
	}
	return out
}

type failingScopes struct{}

func (failingScopes) ListScopes(ctx context.Context) ([]core.UserScope, error) {
	return nil, errors.New("db down")
}

func seededStore() *memory.Store {
	st := memory.New()
	st.Seed("alice",
		[]core.Transaction{{ID: "1", Type: core.Expense, Amount: 95, Category: "Food", Date: core.NewDate(2025, 5, 1)}},
		[]core.CategoryBudget{{Category: "Food", Limit: 100}})
	st.Seed("bob",
		[]core.Transaction{{ID: "2", Type: core.Income, Amount: 10, Category: "Other", Date: core.NewDate(2025, 5, 1)}},
		nil)
	return st
}

func TestMirrorWorker_HandleLedgerChanged(t *testing.T) {
	st := seededStore()
	mirror := sheetsmem.New()
	w := NewMirrorWorker(services.NewLedgerService(st, nil, nil), st, mirror, nil)
	w.now = func() time.Time { return time.Date(2025, 5, 2, 8, 0, 0, 0, time.UTC) }

	msg := amqp.NewLedgerChangedMessage("alice", amqp.KindTransactionCreated, "1")
	if err := w.HandleLedgerChanged(context.Background(), msg); err != nil {
		t.Fatalf("HandleLedgerChanged: %v", err)
	}

	rows, ok := mirror.Tab("alice Alerts")
	if !ok || len(rows) < 2 || rows[1][0] != "Food-95" || rows[1][5] != "at_risk" {
		t.Fatalf("alerts tab = %v", rows)
	}
	if _, ok := mirror.Tab("bob Transactions"); ok {
		t.Fatal("only the changed scope should be mirrored")
	}
}

func TestMirrorWorker_HandleErrors(t *testing.T) {
	st := seededStore()
	mirror := &fakeMirror{fail: map[core.UserScope]bool{"alice": true}}
	w := NewMirrorWorker(services.NewLedgerService(st, nil, nil), st, mirror, nil)

	err := w.HandleLedgerChanged(context.Background(), amqp.NewLedgerChangedMessage("alice", amqp.KindBudgetsReplaced, ""))
	if err == nil || !strings.Contains(err.Error(), "budgets.replaced") {
		t.Fatalf("err = %v", err)
	}
}

func TestMirrorWorker_MirrorAll(t *testing.T) {
	st := seededStore()
	mirror := &fakeMirror{fail: map[core.UserScope]bool{"alice": true}}
	w := NewMirrorWorker(services.NewLedgerService(st, nil, nil), st, mirror, nil)

	err := w.MirrorAll(context.Background())
	if err == nil || !strings.Contains(err.Error(), "alice") {
		t.Fatalf("err = %v, want alice failure", err)
	}
	if got := mirror.scopes(); len(got) != 1 || got[0] != "bob" {
		t.Fatalf("mirrored = %v, bob should still be mirrored", got)
	}

	w = NewMirrorWorker(services.NewLedgerService(st, nil, nil), failingScopes{}, mirror, nil)
	if err := w.MirrorAll(context.Background()); err == nil {
		t.Fatal("expected list scopes error")
	}
}

func TestMirrorWorker_RunPeriodicStops(t *testing.T) {
	st := seededStore()
	mirror := &fakeMirror{}
	w := NewMirrorWorker(services.NewLedgerService(st, nil, nil), st, mirror, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.RunPeriodic(ctx, 10*time.Millisecond)
		close(done)
	}()

	deadline := time.After(2 * time.Second)
	for len(mirror.scopes()) < 2 {
		select {
		case <-deadline:
			t.Fatal("periodic pass never ran")
		case <-time.After(5 * time.Millisecond):
		}
	}
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("RunPeriodic did not stop")
	}
}
