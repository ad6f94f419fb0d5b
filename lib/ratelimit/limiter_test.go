package ratelimit

import (
	"fmt"
	"sync"
	"testing"
	"time"
)

func TestAdmitWindow(t *testing.T) {
	l := New(100 * time.Millisecond)
	defer l.Close()

	now := time.Now()

	if !l.Admit("10.0.0.1", now) {
		t.Fatalf("first request must be admitted")
	}
	if l.Admit("10.0.0.1", now.Add(50*time.Millisecond)) {
		t.Errorf("request inside the cooldown must be throttled")
	}
	if l.Admit("10.0.0.1", now.Add(99*time.Millisecond)) {
		t.Errorf("request just inside the cooldown must be throttled")
	}
	if !l.Admit("10.0.0.1", now.Add(100*time.Millisecond)) {
		t.Errorf("request after the cooldown elapsed must be admitted")
	}
}

func TestThrottledRequestDoesNotExtendWindow(t *testing.T) {
	l := New(100 * time.Millisecond)
	defer l.Close()

	now := time.Now()
	l.Admit("10.0.0.2", now)

	// a burst of throttled attempts must not push the window forward
	for i := 1; i <= 9; i++ {
		if l.Admit("10.0.0.2", now.Add(time.Duration(i)*10*time.Millisecond)) {
			t.Fatalf("attempt %d admitted inside the window", i)
		}
	}
	if !l.Admit("10.0.0.2", now.Add(101*time.Millisecond)) {
		t.Errorf("window was extended by throttled attempts")
	}
}

func TestAddressesAreIndependent(t *testing.T) {
	l := New(time.Minute)
	defer l.Close()

	now := time.Now()
	if !l.Admit("a", now) || !l.Admit("b", now) || !l.Admit("c", now) {
		t.Errorf("distinct addresses must not throttle each other")
	}
}

func TestConcurrentAdmitSingleWinner(t *testing.T) {
	l := New(time.Minute)
	defer l.Close()

	const attempts = 64

	var (
		wg       sync.WaitGroup
		admitted = make(chan struct{}, attempts)
		now      = time.Now()
	)

	wg.Add(attempts)
	for i := 0; i < attempts; i++ {
		go func() {
			defer wg.Done()
			if l.Admit("203.0.113.7", now) {
				admitted <- struct{}{}
			}
		}()
	}
	wg.Wait()
	close(admitted)

	if len(admitted) != 1 {
		t.Errorf("expected exactly 1 admitted request, got %d", len(admitted))
	}
}

func TestSweepPrunesStaleEntries(t *testing.T) {
	l := New(10 * time.Millisecond)
	defer l.Close()

	now := time.Now()
	for i := 0; i < 50; i++ {
		l.Admit(fmt.Sprintf("198.51.100.%d", i), now)
	}
	if l.Size() != 50 {
		t.Fatalf("expected 50 tracked addresses, got %d", l.Size())
	}

	// the sweep interval is clamped to one second, wait for one pass
	deadline := time.Now().Add(3 * time.Second)
	for l.Size() > 0 && time.Now().Before(deadline) {
		time.Sleep(50 * time.Millisecond)
	}
	if l.Size() != 0 {
		t.Errorf("expected stale entries to be swept, %d remain", l.Size())
	}
}

func TestZeroCooldownAdmitsEverything(t *testing.T) {
	l := New(0)
	defer l.Close()

	now := time.Now()
	for i := 0; i < 10; i++ {
		if !l.Admit("x", now) {
			t.Fatalf("zero cooldown must admit every request")
		}
	}
}
