package deker

import (
	"context"
	"encoding/json"
	"os"
	"syscall"
	"time"

	"github.com/gofrs/flock"
)

// sentinelRecord is the "is_locked" marker a writer publishes alongside the
// OS-level exclusive lock so concurrent readers/writers can detect
// contention without blocking indefinitely, and so a crashed writer's stale
// artifact can be reclaimed via a liveness probe on the recorded PID.
type sentinelRecord struct {
	PID        int   `json:"pid"`
	AcquiredAt int64 `json:"acquired_at"` // unix nanoseconds
	Deadline   int64 `json:"deadline"`    // unix nanoseconds
}

// diskLock is the on-disk advisory artifact for one canonical resource
// path: an OS-level exclusive lock file (via github.com/gofrs/flock) plus a
// JSON sentinel file recording the writer's identity.
type diskLock struct {
	lockPath     string
	sentinelPath string
	fl           *flock.Flock
}

func newDiskLock(resourcePath string) *diskLock {
	return &diskLock{
		lockPath:     resourcePath + ".lock",
		sentinelPath: resourcePath + ".lock.json",
		fl:           flock.New(resourcePath + ".lock"),
	}
}

// acquireExclusive polls for the OS-level exclusive lock at interval up to
// deadline. Once acquired, it reclaims (overwrites) any stale sentinel left
// by a dead process and publishes its own.
func (d *diskLock) acquireExclusive(ctx context.Context, deadline time.Time, interval time.Duration) error {
	for {
		ok, err := d.fl.TryLock()
		if err != nil {
			return errIO("error acquiring on-disk exclusive lock", err)
		}
		if ok {
			break
		}
		if time.Now().After(deadline) {
			return errLockTimeout("timed out acquiring on-disk exclusive lock at "+d.lockPath, nil)
		}
		select {
		case <-time.After(interval):
		case <-ctx.Done():
			return errLockTimeout("cancelled acquiring on-disk exclusive lock at "+d.lockPath, ctx.Err())
		}
	}

	rec := sentinelRecord{
		PID:        os.Getpid(),
		AcquiredAt: time.Now().UnixNano(),
		Deadline:   deadline.UnixNano(),
	}
	buf, err := json.Marshal(rec)
	if err != nil {
		_ = d.fl.Unlock()
		return errIO("error marshaling lock sentinel", err)
	}
	if err := writeFileAtomic(d.sentinelPath, buf); err != nil {
		_ = d.fl.Unlock()
		return errIO("error writing lock sentinel", err)
	}

	return nil
}

// release removes the sentinel and drops the OS-level exclusive lock. It is
// safe to call even if acquisition partially failed.
func (d *diskLock) release() {
	_ = os.Remove(d.sentinelPath)
	_ = d.fl.Unlock()
}

// waitForWriterRelease checks for a live writer sentinel and, if present,
// waits up to deadline for it to clear. A stale
// sentinel (owner process no longer alive) is treated as already cleared.
func (d *diskLock) waitForWriterRelease(ctx context.Context, deadline time.Time, interval time.Duration) error {
	for {
		rec, ok, err := readSentinel(d.sentinelPath)
		if err != nil {
			return errIO("error reading lock sentinel", err)
		}
		if !ok {
			return nil
		}
		if !processAlive(rec.PID) {
			// stale artifact from a dead writer; nothing to wait for
			return nil
		}
		if time.Now().After(deadline) {
			return errLockTimeout("timed out waiting for writer to release "+d.lockPath, nil)
		}
		select {
		case <-time.After(interval):
		case <-ctx.Done():
			return errLockTimeout("cancelled waiting for writer to release "+d.lockPath, ctx.Err())
		}
	}
}

func readSentinel(path string) (sentinelRecord, bool, error) {
	buf, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return sentinelRecord{}, false, nil
		}
		return sentinelRecord{}, false, err
	}
	var rec sentinelRecord
	if err := json.Unmarshal(buf, &rec); err != nil {
		return sentinelRecord{}, false, err
	}
	return rec, true, nil
}

// processAlive is the liveness probe used to reclaim a stale lock left by a
// crashed writer: signal 0 to the recorded PID, which succeeds iff the
// process still exists and is reachable by this user.
func processAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	err = proc.Signal(syscall.Signal(0))
	return err == nil
}

// LockInfo is the introspection view over a lock's on-disk sentinel,
// surfaced by the CLI's `locks stat` subcommand.
type LockInfo struct {
	Path       string
	Locked     bool
	PID        int
	AcquiredAt time.Time
	Deadline   time.Time
	OwnerAlive bool
}

// StatDiskLock reports the current state of the on-disk artifact for a
// canonical resource path, without acquiring anything.
func StatDiskLock(resourcePath string) (LockInfo, error) {
	rec, ok, err := readSentinel(resourcePath + ".lock.json")
	if err != nil {
		return LockInfo{}, errIO("error reading lock sentinel", err)
	}
	if !ok {
		return LockInfo{Path: resourcePath, Locked: false}, nil
	}
	return LockInfo{
		Path:       resourcePath,
		Locked:     true,
		PID:        rec.PID,
		AcquiredAt: time.Unix(0, rec.AcquiredAt).UTC(),
		Deadline:   time.Unix(0, rec.Deadline).UTC(),
		OwnerAlive: processAlive(rec.PID),
	}, nil
}
