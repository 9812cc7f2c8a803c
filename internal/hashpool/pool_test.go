package hashpool

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

type slowHasher struct {
	inFlight atomic.Int32
	peak     atomic.Int32
}

func (h *slowHasher) enter() {
	n := h.inFlight.Add(1)
	for {
		p := h.peak.Load()
		if n <= p || h.peak.CompareAndSwap(p, n) {
			break
		}
	}
	time.Sleep(5 * time.Millisecond)
	h.inFlight.Add(-1)
}

func (h *slowHasher) Hash(string) (string, error) {
	h.enter()
	return "h", nil
}

func (h *slowHasher) Verify(string, string) (bool, error) {
	h.enter()
	return true, nil
}

func (h *slowHasher) VerifyDummy(string) { h.enter() }

func (h *slowHasher) NeedsUpgrade(string) (bool, error) { return false, nil }

func TestPoolBoundsConcurrency(t *testing.T) {
	h := &slowHasher{}
	p := New(h, 2)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := p.Verify(context.Background(), "pw", "h"); err != nil {
				t.Errorf("verify: %v", err)
			}
		}()
	}
	wg.Wait()

	if peak := h.peak.Load(); peak > 2 {
		t.Fatalf("expected at most 2 concurrent hashes, saw %d", peak)
	}
}

func TestPoolRespectsContext(t *testing.T) {
	h := &slowHasher{}
	p := New(h, 1)
	if err := p.sem.Acquire(context.Background(), 1); err != nil {
		t.Fatalf("acquire: %v", err)
	}
	defer p.sem.Release(1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := p.Hash(ctx, "pw"); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
