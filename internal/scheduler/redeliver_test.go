package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/MrSnakeDoc/bookmarks/internal/logger"
)

type fakeReclaimer struct {
	mu      sync.Mutex
	calls   int
	trims   int
	n       int
	err     error
	trimErr error
}

func (f *fakeReclaimer) Reclaim(context.Context) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.n, f.err
}

func (f *fakeReclaimer) Trim(context.Context) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.trims++
	return 5, f.trimErr
}

func (f *fakeReclaimer) trimCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.trims
}

func (f *fakeReclaimer) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func TestRedeliverer_Redeliver(t *testing.T) {
	bus := &fakeReclaimer{n: 3}
	r := NewRedeliverer(bus, logger.New("error", false), time.Hour)

	if err := r.Redeliver(context.Background()); err != nil {
		t.Fatalf("Redeliver failed: %v", err)
	}
	if bus.count() != 1 {
		t.Errorf("expected 1 reclaim, got %d", bus.count())
	}
	if bus.trimCount() != 1 {
		t.Errorf("expected 1 trim, got %d", bus.trimCount())
	}

	bus.err = errors.New("redis down")
	if err := r.Redeliver(context.Background()); err == nil {
		t.Error("expected reclaim error to propagate")
	}
	if bus.trimCount() != 1 {
		t.Errorf("trim should not run after a failed reclaim, got %d", bus.trimCount())
	}
}

func TestRedeliverer_TrimErrorPropagates(t *testing.T) {
	bus := &fakeReclaimer{trimErr: errors.New("xtrim failed")}
	r := NewRedeliverer(bus, logger.New("error", false), time.Hour)

	if err := r.Redeliver(context.Background()); err == nil {
		t.Error("expected trim error to propagate")
	}
	if bus.count() != 1 {
		t.Errorf("reclaim should run before trim, got %d", bus.count())
	}
}

func TestRedeliverer_StartRunsPeriodically(t *testing.T) {
	bus := &fakeReclaimer{}
	r := NewRedeliverer(bus, logger.New("error", false), 10*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := r.Start(ctx); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer r.Stop()

	deadline := time.Now().Add(2 * time.Second)
	for bus.count() < 3 {
		if time.Now().After(deadline) {
			t.Fatalf("expected at least 3 reclaim passes, got %d", bus.count())
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestRedeliverer_StartToleratesInitialFailure(t *testing.T) {
	bus := &fakeReclaimer{err: errors.New("redis down")}
	r := NewRedeliverer(bus, logger.New("error", false), time.Hour)

	if err := r.Start(context.Background()); err != nil {
		t.Errorf("Start should not fail on reclaim error: %v", err)
	}
	r.Stop()
	r.Stop()
}
