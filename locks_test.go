package deker

import (
	"context"
	"testing"
	"time"
)

func newTestRegistry() *lockRegistry {
	return newLockRegistry()
}

func TestResourceLockWriteTimeoutLeavesNoOrphanHolder(t *testing.T) {
	dir := t.TempDir()
	path := dir + "/resource"
	registry := newTestRegistry()

	holder := newResourceLock(registry, path, 50*time.Millisecond, 5*time.Millisecond)
	if err := holder.AcquireWrite(context.Background()); err != nil {
		t.Fatalf("holder AcquireWrite: %v", err)
	}

	waiter := newResourceLock(registry, path, 30*time.Millisecond, 5*time.Millisecond)
	if err := waiter.AcquireWrite(context.Background()); err == nil {
		t.Fatal("expected waiter to time out while holder still holds the lock")
	}

	holder.ReleaseWrite()
	holder.Close()

	// A timed-out waiter must not have left a goroutine parked on Lock()
	// that would silently seize the mutex the instant it frees up and never
	// release it. If it had, this acquisition would hang.
	done := make(chan error, 1)
	go func() {
		again := newResourceLock(registry, path, 200*time.Millisecond, 5*time.Millisecond)
		err := again.AcquireWrite(context.Background())
		if err == nil {
			again.ReleaseWrite()
		}
		again.Close()
		done <- err
	}()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("post-timeout AcquireWrite: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("post-timeout AcquireWrite deadlocked, indicating an orphan lock holder")
	}
}

func TestResourceLockWriteThenReadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := dir + "/resource"
	registry := newTestRegistry()

	lock := newResourceLock(registry, path, time.Second, 5*time.Millisecond)
	if err := lock.AcquireWrite(context.Background()); err != nil {
		t.Fatalf("AcquireWrite: %v", err)
	}
	lock.ReleaseWrite()
	lock.Close()

	reader := newResourceLock(registry, path, time.Second, 5*time.Millisecond)
	defer reader.Close()
	if err := reader.AcquireRead(context.Background()); err != nil {
		t.Fatalf("AcquireRead: %v", err)
	}
	reader.ReleaseRead()
}

func TestWithWriteLockReleasesOnSuccess(t *testing.T) {
	dir := t.TempDir()
	path := dir + "/resource"
	registry := newTestRegistry()

	if err := withWriteLock(registry, path, time.Second, 5*time.Millisecond, func() error { return nil }); err != nil {
		t.Fatalf("withWriteLock: %v", err)
	}
	// A second call must not block, proving the first released fully.
	if err := withWriteLock(registry, path, time.Second, 5*time.Millisecond, func() error { return nil }); err != nil {
		t.Fatalf("second withWriteLock: %v", err)
	}
}
