package lockfile

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"syscall"
)

// Lock is a pid-file based single-instance guard. Only one sweeper may
// run against a database at a time; a second instance must refuse to
// start rather than double-release stock.
type Lock struct {
	path string
}

// ErrHeld is returned when another live process owns the lock.
var ErrHeld = errors.New("lock is held by another process")

func New(path string) *Lock {
	return &Lock{path: path}
}

// Acquire writes our pid into the lock file. A file left behind by a
// dead process is reclaimed; a file owned by a live process fails with
// ErrHeld.
func (l *Lock) Acquire() error {
	if pid, ok := l.read(); ok {
		if processAlive(pid) {
			return fmt.Errorf("%w (pid %d)", ErrHeld, pid)
		}
		// Stale: the owner died without releasing.
		if err := os.Remove(l.path); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to remove stale lock file: %w", err)
		}
	}

	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		if os.IsExist(err) {
			return ErrHeld
		}
		return fmt.Errorf("failed to create lock file: %w", err)
	}
	defer f.Close()

	if _, err := fmt.Fprintf(f, "%d\n", os.Getpid()); err != nil {
		os.Remove(l.path)
		return fmt.Errorf("failed to write lock file: %w", err)
	}
	return nil
}

// Release removes the lock file, but only if we still own it.
func (l *Lock) Release() error {
	pid, ok := l.read()
	if !ok || pid != os.Getpid() {
		return nil
	}
	if err := os.Remove(l.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove lock file: %w", err)
	}
	return nil
}

// Owner returns the pid of the current holder, or 0 when the lock is
// free or stale.
func (l *Lock) Owner() int {
	pid, ok := l.read()
	if !ok || !processAlive(pid) {
		return 0
	}
	return pid
}

func (l *Lock) read() (int, bool) {
	data, err := os.ReadFile(l.path)
	if err != nil {
		return 0, false
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || pid <= 0 {
		return 0, false
	}
	return pid, true
}

// processAlive probes the pid with signal 0.
func processAlive(pid int) bool {
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	err = proc.Signal(syscall.Signal(0))
	if err == nil {
		return true
	}
	// EPERM means the process exists but belongs to someone else.
	return errors.Is(err, syscall.EPERM)
}
