package txstate

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func lockTestFile(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "lock-target")
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatalf("setup: %v", err)
	}
	return path
}

func openFor(t *testing.T, path string) *os.File {
	t.Helper()
	f, err := os.OpenFile(path, os.O_RDWR, 0o644)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = f.Close() })
	return f
}

func TestSharedLocksCoexist(t *testing.T) {
	path := lockTestFile(t)
	a := openFor(t, path)
	b := openFor(t, path)

	if err := acquireLock(a, false, time.Second); err != nil {
		t.Fatalf("first shared lock: %v", err)
	}
	defer releaseLock(a)

	if err := acquireLock(b, false, 100*time.Millisecond); err != nil {
		t.Fatalf("second shared lock should coexist: %v", err)
	}
	_ = releaseLock(b)
}

func TestExclusiveExcludesShared(t *testing.T) {
	path := lockTestFile(t)
	writer := openFor(t, path)
	reader := openFor(t, path)

	if err := acquireLock(writer, true, time.Second); err != nil {
		t.Fatalf("exclusive lock: %v", err)
	}
	defer releaseLock(writer)

	err := acquireLock(reader, false, 50*time.Millisecond)
	if !errors.Is(err, ErrLockTimeout) {
		t.Fatalf("shared lock should time out against exclusive holder, got %v", err)
	}
}

func TestExclusiveExcludesExclusive(t *testing.T) {
	path := lockTestFile(t)
	a := openFor(t, path)
	b := openFor(t, path)

	if err := acquireLock(a, true, time.Second); err != nil {
		t.Fatalf("first exclusive lock: %v", err)
	}

	err := acquireLock(b, true, 50*time.Millisecond)
	if !errors.Is(err, ErrLockTimeout) {
		t.Fatalf("second exclusive lock should time out, got %v", err)
	}

	_ = releaseLock(a)
	if err := acquireLock(b, true, time.Second); err != nil {
		t.Fatalf("lock after release: %v", err)
	}
	_ = releaseLock(b)
}

func TestAcquireWaitsOutContention(t *testing.T) {
	path := lockTestFile(t)
	a := openFor(t, path)
	b := openFor(t, path)

	if err := acquireLock(a, true, time.Second); err != nil {
		t.Fatalf("lock: %v", err)
	}
	go func() {
		time.Sleep(50 * time.Millisecond)
		_ = releaseLock(a)
	}()

	start := time.Now()
	if err := acquireLock(b, true, time.Second); err != nil {
		t.Fatalf("waiter should eventually acquire: %v", err)
	}
	defer releaseLock(b)
	if elapsed := time.Since(start); elapsed < 40*time.Millisecond {
		t.Errorf("acquired after %v, expected to wait for the holder", elapsed)
	}
}
