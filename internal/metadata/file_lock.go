package metadata

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/sys/unix"
)

const lockRetryInterval = 50 * time.Millisecond

// FileLock serializes writers of one state file across processes. The server
// and the CLI modes may share a state path.
type FileLock struct {
	path  string
	file  *os.File
	mu    sync.Mutex
	owner LockOwner
}

// LockOwner is written into the lock file while it is held.
type LockOwner struct {
	PID       int       `json:"pid"`
	Operation string    `json:"operation"`
	LockedAt  time.Time `json:"locked_at"`
}

// NewFileLock returns a lock for target; the lock file lives next to it.
func NewFileLock(target string) *FileLock {
	return &FileLock{path: target + ".lock"}
}

// Path returns the lock file path.
func (fl *FileLock) Path() string {
	return fl.path
}

// Lock acquires the exclusive lock, polling until timeout elapses.
func (fl *FileLock) Lock(operation string, timeout time.Duration) error {
	fl.mu.Lock()
	defer fl.mu.Unlock()

	if fl.file != nil {
		return fmt.Errorf("lock %s already held", fl.path)
	}

	if err := os.MkdirAll(filepath.Dir(fl.path), 0o755); err != nil {
		return fmt.Errorf("create lock directory: %w", err)
	}

	file, err := os.OpenFile(fl.path, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return fmt.Errorf("open lock file: %w", err)
	}

	deadline := time.Now().Add(timeout)
	for {
		err := unix.Flock(int(file.Fd()), unix.LOCK_EX|unix.LOCK_NB)
		if err == nil {
			break
		}
		if time.Now().After(deadline) {
			file.Close()
			return fmt.Errorf("lock %s: timeout after %v", fl.path, timeout)
		}
		time.Sleep(lockRetryInterval)
	}

	fl.file = file
	fl.owner = LockOwner{PID: os.Getpid(), Operation: operation, LockedAt: time.Now().UTC()}
	if err := fl.writeOwner(); err != nil {
		fl.release()
		return fmt.Errorf("write lock owner: %w", err)
	}
	return nil
}

// Unlock releases the lock. Unlocking an unheld lock is a no-op.
func (fl *FileLock) Unlock() error {
	fl.mu.Lock()
	defer fl.mu.Unlock()
	return fl.release()
}

func (fl *FileLock) release() error {
	if fl.file == nil {
		return nil
	}

	err := unix.Flock(int(fl.file.Fd()), unix.LOCK_UN)
	if cerr := fl.file.Close(); err == nil {
		err = cerr
	}
	fl.file = nil
	if err != nil {
		return fmt.Errorf("unlock %s: %w", fl.path, err)
	}
	return nil
}

func (fl *FileLock) writeOwner() error {
	if err := fl.file.Truncate(0); err != nil {
		return err
	}
	if _, err := fl.file.Seek(0, 0); err != nil {
		return err
	}
	if err := json.NewEncoder(fl.file).Encode(fl.owner); err != nil {
		return err
	}
	return fl.file.Sync()
}

// WithLock runs fn while holding the lock for target.
func WithLock(target, operation string, timeout time.Duration, fn func() error) error {
	lock := NewFileLock(target)
	if err := lock.Lock(operation, timeout); err != nil {
		return err
	}
	defer lock.Unlock()

	return fn()
}
