//go:build windows

package txstate

import (
	"os"

	"golang.org/x/sys/windows"
)

// tryLock attempts a non-blocking lock over the whole file via LockFileEx.
// Shared locks map to a plain range lock, exclusive ones set
// LOCKFILE_EXCLUSIVE_LOCK. Returns false when the range is already held.
func tryLock(f *os.File, exclusive bool) (bool, error) {
	var flags uint32 = windows.LOCKFILE_FAIL_IMMEDIATELY
	if exclusive {
		flags |= windows.LOCKFILE_EXCLUSIVE_LOCK
	}
	ol := new(windows.Overlapped)
	err := windows.LockFileEx(windows.Handle(f.Fd()), flags, 0, ^uint32(0), ^uint32(0), ol)
	if err == nil {
		return true, nil
	}
	if err == windows.ERROR_LOCK_VIOLATION {
		return false, nil
	}
	return false, err
}

// unlock releases the range lock taken by tryLock.
func unlock(f *os.File) error {
	ol := new(windows.Overlapped)
	return windows.UnlockFileEx(windows.Handle(f.Fd()), 0, ^uint32(0), ^uint32(0), ol)
}
