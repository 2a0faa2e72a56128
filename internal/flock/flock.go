// Package flock provides advisory file locking.
package flock

import (
	"errors"
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// ErrLocked is returned when another process already holds the lock.
var ErrLocked = errors.New("flock: file locked by another process")

// TryLock takes an exclusive, non-blocking advisory lock on f.
// It returns ErrLocked without waiting if the lock is held elsewhere.
func TryLock(f *os.File) error {
	err := unix.Flock(int(f.Fd()), unix.LOCK_EX|unix.LOCK_NB)
	if err == unix.EWOULDBLOCK {
		return ErrLocked
	}
	if err != nil {
		return fmt.Errorf("flock: lock %s: %w", f.Name(), err)
	}
	return nil
}

// Unlock releases the lock held on f. The lock also dies with the
// descriptor, so Unlock before close is a courtesy, not a requirement.
func Unlock(f *os.File) error {
	if err := unix.Flock(int(f.Fd()), unix.LOCK_UN); err != nil {
		return fmt.Errorf("flock: unlock %s: %w", f.Name(), err)
	}
	return nil
}
