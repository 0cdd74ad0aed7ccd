package cache

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/sourcegraph/conc"
)

func TestKeyedMutexSerializesSameKey(t *testing.T) {
	m := NewKeyedMutex()
	var inside, maxInside int32

	var wg conc.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Go(func() {
			_ = m.WithLock("same", func() error {
				n := atomic.AddInt32(&inside, 1)
				for {
					cur := atomic.LoadInt32(&maxInside)
					if n <= cur || atomic.CompareAndSwapInt32(&maxInside, cur, n) {
						break
					}
				}
				time.Sleep(time.Millisecond)
				atomic.AddInt32(&inside, -1)
				return nil
			})
		})
	}
	wg.Wait()

	if maxInside != 1 {
		t.Fatalf("expected at most one holder, saw %d", maxInside)
	}
	if m.held() != 0 {
		t.Fatalf("lock table should be empty after release, has %d", m.held())
	}
}

func TestKeyedMutexIndependentKeys(t *testing.T) {
	m := NewKeyedMutex()
	unlockA := m.Lock("a")
	defer unlockA()

	done := make(chan struct{})
	go func() {
		_ = m.WithLock("b", func() error { return nil })
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("lock on b should not wait for a")
	}
}

func TestKeyedMutexZeroValue(t *testing.T) {
	var m KeyedMutex
	called := false
	if err := m.WithLock("k", func() error { called = true; return nil }); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !called {
		t.Fatalf("fn should run")
	}
}
