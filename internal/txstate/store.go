package txstate

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/oddrun/sidekick/internal/retry"
)

// DefaultLockTimeout bounds lock acquisition when the caller does not
// supply one. Hook processes are short-lived, so contention longer than
// this usually means a stuck peer.
const DefaultLockTimeout = 2 * time.Second

// Store coordinates access to JSON state files. All behavior is a function
// of explicit configuration; there are no package-level globals.
type Store struct {
	baseDir     string
	lockTimeout time.Duration
	policy      retry.Policy
	durable     bool
}

// Option configures a Store.
type Option func(*Store)

// WithBaseDir resolves relative state paths against dir.
func WithBaseDir(dir string) Option {
	return func(s *Store) { s.baseDir = dir }
}

// WithLockTimeout sets the default lock-acquisition timeout.
func WithLockTimeout(d time.Duration) Option {
	return func(s *Store) { s.lockTimeout = d }
}

// WithRetryPolicy sets the backoff policy applied between lock-contention
// retries in Update. It never applies to transform errors.
func WithRetryPolicy(p retry.Policy) Option {
	return func(s *Store) { s.policy = p }
}

// WithDurableWrites forces fsync before every rename/unlock.
func WithDurableWrites(durable bool) Option {
	return func(s *Store) { s.durable = durable }
}

// New creates a Store with the given options.
func New(opts ...Option) *Store {
	s := &Store{
		lockTimeout: DefaultLockTimeout,
		policy:      retry.DefaultPolicy(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Resolve returns the absolute path a state name maps to.
func (s *Store) Resolve(path string) string {
	if filepath.IsAbs(path) || s.baseDir == "" {
		return path
	}
	return filepath.Join(s.baseDir, path)
}

// LockTimeout returns the store's default lock timeout.
func (s *Store) LockTimeout() time.Duration { return s.lockTimeout }

// WriteOptions tune a single Write call.
type WriteOptions struct {
	// Validate, when set, must accept the value or the write fails with a
	// ValidationError before anything touches disk.
	Validate func(value any) bool
	// Durable forces fsync of the temp file before the rename.
	Durable bool
}

// Write serializes value and atomically replaces the state file at path.
// External observers see either the fully-old or fully-new document; a
// failure at any stage leaves the target exactly as it was. The parent
// directory is created if absent.
func (s *Store) Write(path string, value any, opts *WriteOptions) error {
	p := s.Resolve(path)
	var o WriteOptions
	if opts != nil {
		o = *opts
	}
	if o.Validate != nil && !o.Validate(value) {
		return &ValidationError{Path: p}
	}
	data, err := marshalState(value)
	if err != nil {
		return txErr("write", p, err)
	}
	if err := atomicWriteFile(p, data, o.Durable || s.durable); err != nil {
		return txErr("write", p, err)
	}
	return nil
}

// readLocked reads the full content of path under a shared lock. The second
// return is false when the file does not exist (no lock is taken then).
func (s *Store) readLocked(path string, timeout time.Duration) ([]byte, bool, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, err
	}
	defer f.Close()

	if err := acquireLock(f, false, timeout); err != nil {
		return nil, false, err
	}
	defer releaseLock(f)

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, false, err
	}
	return data, true, nil
}

// Read returns the state at path under a shared lock, or def when the file
// does not exist or is empty. Malformed JSON is a hard TransactionError,
// distinct from ErrLockTimeout, so callers can tell contention from
// corruption.
func Read[T any](s *Store, path string, def T) (T, error) {
	return ReadTimeout(s, path, def, s.lockTimeout)
}

// ReadTimeout is Read with an explicit lock timeout. UI-critical callers
// pass sub-second timeouts and treat ErrLockTimeout as "data temporarily
// unavailable".
func ReadTimeout[T any](s *Store, path string, def T, timeout time.Duration) (T, error) {
	p := s.Resolve(path)
	data, exists, err := s.readLocked(p, timeout)
	if err != nil {
		return def, txErr("read", p, err)
	}
	// Empty content can only appear after an interrupted non-atomic write
	// elsewhere; treat it like a missing file rather than failing the parse.
	if !exists || len(bytes.TrimSpace(data)) == 0 {
		return def, nil
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return def, txErr("read", p, fmt.Errorf("parse state: %w", err))
	}
	return v, nil
}

// UpdateOptions tune a single Update call.
type UpdateOptions struct {
	// Timeout bounds each lock-acquisition attempt; zero means the store
	// default.
	Timeout time.Duration
	// Retries is the number of additional attempts after a lock timeout.
	// Negative means the store's retry policy default. Retries never apply
	// to transform errors.
	Retries int
	// Durable forces fsync before the lock is released.
	Durable bool
}

// Update executes read-transform-write as a single exclusive critical
// section on the state file at path. The value handed to transform is what
// was on disk at the moment the lock was acquired; missing or corrupted
// content is replaced by def (corrupted bytes are preserved in a sidecar
// file for inspection). The new state is returned so callers skip a
// follow-up read.
func Update[T any](s *Store, path string, def T, transform func(T) (T, error), opts *UpdateOptions) (T, error) {
	p := s.Resolve(path)
	timeout := s.lockTimeout
	retries := s.policy.MaxRetries
	durable := s.durable
	if opts != nil {
		if opts.Timeout > 0 {
			timeout = opts.Timeout
		}
		if opts.Retries >= 0 {
			retries = opts.Retries
		}
		durable = durable || opts.Durable
	}

	var zero T
	for attempt := 0; ; attempt++ {
		v, err := updateOnce(s, p, def, transform, timeout, durable)
		if err == nil {
			return v, nil
		}
		// Only lock contention is retriable; transform and I/O failures
		// surface immediately.
		if !errors.Is(err, ErrLockTimeout) || attempt >= retries {
			return zero, err
		}
		time.Sleep(s.policy.Delay(attempt + 1))
	}
}

// maxReopenAttempts bounds the deleted-underneath-us race: if the path is
// unlinked or replaced between our open and the lock grant, we reopen with
// create semantics instead of crashing.
const maxReopenAttempts = 5

func updateOnce[T any](s *Store, path string, def T, transform func(T) (T, error), timeout time.Duration, durable bool) (T, error) {
	var zero T

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return zero, txErr("update", path, err)
	}

	var f *os.File
	for reopen := 0; ; reopen++ {
		var err error
		f, err = os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
		if err != nil {
			return zero, txErr("update", path, err)
		}

		if err := acquireLock(f, true, timeout); err != nil {
			_ = f.Close()
			return zero, txErr("update", path, err)
		}

		// The lock is tied to the inode we opened. If the path was deleted
		// or atomically replaced while we waited, locking the orphan would
		// serialize against nobody; take a fresh handle instead.
		fi, statErr := f.Stat()
		pfi, pathErr := os.Stat(path)
		if statErr == nil && pathErr == nil && os.SameFile(fi, pfi) {
			break
		}
		_ = releaseLock(f)
		_ = f.Close()
		if reopen >= maxReopenAttempts {
			return zero, txErr("update", path, fmt.Errorf("state file kept changing underneath the lock"))
		}
	}
	defer f.Close()
	defer releaseLock(f)

	data, err := io.ReadAll(f)
	if err != nil {
		return zero, txErr("update", path, err)
	}

	cur := def
	if len(bytes.TrimSpace(data)) > 0 {
		if err := json.Unmarshal(data, &cur); err != nil {
			// Self-heal: the update proceeds from def so a previously
			// corrupted file cannot block legitimate callers, but the bad
			// bytes are kept aside for forensics. Best-effort; a failure
			// here must not fail the transaction.
			sidecar := fmt.Sprintf("%s.corrupt-%d", path, time.Now().UnixNano())
			_ = os.WriteFile(sidecar, data, 0o644)
			cur = def
		}
	}

	next, err := transform(cur)
	if err != nil {
		// Caller bug or deliberate signal (e.g. ErrConcurrentModification);
		// propagate unwrapped and never retry.
		return zero, err
	}

	out, err := marshalState(next)
	if err != nil {
		return zero, txErr("update", path, err)
	}

	// Truncate-then-write on the locked handle; readers are excluded until
	// the lock drops.
	if err := f.Truncate(0); err != nil {
		return zero, txErr("update", path, err)
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return zero, txErr("update", path, err)
	}
	if _, err := f.Write(out); err != nil {
		return zero, txErr("update", path, err)
	}
	if durable {
		if err := f.Sync(); err != nil {
			return zero, txErr("update", path, err)
		}
	}
	return next, nil
}
