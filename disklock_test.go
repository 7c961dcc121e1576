package deker

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDiskLockAcquireReleaseAndStat(t *testing.T) {
	dir := t.TempDir()
	resource := filepath.Join(dir, "resource")

	dl := newDiskLock(resource)
	deadline := time.Now().Add(time.Second)
	if err := dl.acquireExclusive(context.Background(), deadline, 10*time.Millisecond); err != nil {
		t.Fatalf("acquireExclusive: %v", err)
	}

	info, err := StatDiskLock(resource)
	if err != nil {
		t.Fatalf("StatDiskLock: %v", err)
	}
	if !info.Locked {
		t.Fatal("expected Locked=true after acquisition")
	}
	if info.PID != os.Getpid() {
		t.Fatalf("PID = %d, want %d", info.PID, os.Getpid())
	}
	if !info.OwnerAlive {
		t.Fatal("expected OwnerAlive=true for this process")
	}

	dl.release()

	info, err = StatDiskLock(resource)
	if err != nil {
		t.Fatalf("StatDiskLock after release: %v", err)
	}
	if info.Locked {
		t.Fatal("expected Locked=false after release")
	}
}

func TestDiskLockWaitForWriterReleaseNoSentinel(t *testing.T) {
	dir := t.TempDir()
	resource := filepath.Join(dir, "resource")
	dl := newDiskLock(resource)

	deadline := time.Now().Add(100 * time.Millisecond)
	if err := dl.waitForWriterRelease(context.Background(), deadline, 10*time.Millisecond); err != nil {
		t.Fatalf("waitForWriterRelease with no sentinel should return immediately: %v", err)
	}
}

func TestProcessAliveSelf(t *testing.T) {
	if !processAlive(os.Getpid()) {
		t.Fatal("expected current process to be reported alive")
	}
}

func TestProcessAliveInvalidPID(t *testing.T) {
	if processAlive(0) {
		t.Fatal("expected pid 0 to be reported not alive")
	}
	if processAlive(-1) {
		t.Fatal("expected negative pid to be reported not alive")
	}
}

func TestStatDiskLockMissing(t *testing.T) {
	dir := t.TempDir()
	resource := filepath.Join(dir, "never-locked")
	info, err := StatDiskLock(resource)
	if err != nil {
		t.Fatalf("StatDiskLock: %v", err)
	}
	if info.Locked {
		t.Fatal("expected Locked=false for never-locked resource")
	}
}
