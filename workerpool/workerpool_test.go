package workerpool

import (
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestPoolRunsJobs(t *testing.T) {
	p := New(4)
	defer p.Close()

	var done int64
	for i := 0; i < 20; i++ {
		if err := p.Execute(func() error {
			atomic.AddInt64(&done, 1)
			return nil
		}); err != nil {
			t.Fatalf("Execute: %v", err)
		}
	}

	deadline := time.Now().Add(time.Second)
	for atomic.LoadInt64(&done) < 20 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if got := atomic.LoadInt64(&done); got != 20 {
		t.Fatalf("expected 20 jobs to run, got %d", got)
	}
}

func TestPoolPanicIsolation(t *testing.T) {
	p := New(2)
	defer p.Close()

	var ran int64
	if err := p.Execute(func() error {
		panic("boom")
	}); err != nil {
		t.Fatal(err)
	}
	if err := p.Execute(func() error {
		atomic.AddInt64(&ran, 1)
		return nil
	}); err != nil {
		t.Fatal(err)
	}

	deadline := time.Now().Add(time.Second)
	for atomic.LoadInt64(&ran) == 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if atomic.LoadInt64(&ran) != 1 {
		t.Fatalf("pool did not survive a panicking job")
	}
}

func TestPoolRejectsAfterClose(t *testing.T) {
	p := New(1)
	p.Close()

	err := p.Execute(func() error { return nil })
	if !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
}

func TestNewPanicsOnZeroSize(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic for size 0")
		}
	}()
	New(0)
}
