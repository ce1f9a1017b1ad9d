package txstate

import (
	"os"
	"time"
)

// lockPollInterval is how often acquisition re-attempts the non-blocking
// lock while waiting out the timeout. Short enough that sub-second
// statusline timeouts stay responsive.
const lockPollInterval = 5 * time.Millisecond

// acquireLock takes a shared or exclusive advisory lock on f, polling until
// the timeout elapses. A zero or negative timeout means a single attempt.
// Returns ErrLockTimeout when the window expires without acquisition; no
// FIFO fairness among waiters is provided.
func acquireLock(f *os.File, exclusive bool, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for {
		ok, err := tryLock(f, exclusive)
		if err != nil {
			return err
		}
		if ok {
			return nil
		}
		if timeout <= 0 || !time.Now().Before(deadline) {
			return ErrLockTimeout
		}
		remaining := time.Until(deadline)
		if remaining < lockPollInterval {
			time.Sleep(remaining)
		} else {
			time.Sleep(lockPollInterval)
		}
	}
}

// releaseLock drops the lock; errors are returned so callers can decide
// whether they matter (usually they are ignored on already-failed paths).
func releaseLock(f *os.File) error {
	return unlock(f)
}
