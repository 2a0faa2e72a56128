package flock

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestTryLockExclusive(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lock.db")

	f1, err := os.Create(path)
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	defer f1.Close()

	f2, err := os.OpenFile(path, os.O_RDWR, 0644)
	if err != nil {
		t.Fatalf("OpenFile failed: %v", err)
	}
	defer f2.Close()

	if err := TryLock(f1); err != nil {
		t.Fatalf("TryLock failed: %v", err)
	}

	// second descriptor is refused without blocking
	if err := TryLock(f2); !errors.Is(err, ErrLocked) {
		t.Errorf("expected ErrLocked, got %v", err)
	}

	if err := Unlock(f1); err != nil {
		t.Fatalf("Unlock failed: %v", err)
	}

	if err := TryLock(f2); err != nil {
		t.Errorf("TryLock after unlock failed: %v", err)
	}
}
