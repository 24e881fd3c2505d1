//go:build !windows

package index

import (
	"testing"
	"time"

	"ctxengine/internal/errors"
)

func TestAcquireLock_ExclusiveUntilReleased(t *testing.T) {
	dir := t.TempDir()

	first, err := AcquireLock(dir, 100*time.Millisecond, 10*time.Millisecond)
	if err != nil {
		t.Fatalf("first AcquireLock: %v", err)
	}

	_, err = AcquireLock(dir, 100*time.Millisecond, 10*time.Millisecond)
	if err == nil {
		t.Fatal("expected second AcquireLock to fail while first holds the lock")
	}
	if code := errors.CodeOf(err); code != errors.Busy {
		t.Errorf("expected Busy, got %v", code)
	}

	first.Release()

	second, err := AcquireLock(dir, 100*time.Millisecond, 10*time.Millisecond)
	if err != nil {
		t.Fatalf("AcquireLock after release: %v", err)
	}
	second.Release()
}

func TestAcquireLock_SucceedsOnceReleased(t *testing.T) {
	dir := t.TempDir()

	lock, err := AcquireLock(dir, 50*time.Millisecond, 5*time.Millisecond)
	if err != nil {
		t.Fatalf("AcquireLock: %v", err)
	}

	done := make(chan struct{})
	go func() {
		time.Sleep(20 * time.Millisecond)
		lock.Release()
		close(done)
	}()

	waiter, err := AcquireLock(dir, 500*time.Millisecond, 5*time.Millisecond)
	if err != nil {
		t.Fatalf("waiter AcquireLock: %v", err)
	}
	<-done
	waiter.Release()
}
