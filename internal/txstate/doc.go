// Package txstate provides atomic, lock-protected read/write/update
// operations over individual JSON state files shared by independent
// short-lived processes (hook handlers, the statusline renderer, scheduled
// tasks) on the same machine.
//
// The store exposes three operations:
//
//   - Write: serialize a value and atomically replace the target file via a
//     same-directory temp file and rename. Observers see either the old or
//     the new document, never a partial write.
//   - Read: shared-locked read bounded by a timeout. Missing files return
//     the caller's default without touching disk.
//   - Update: exclusive-locked read-modify-write. The transform runs against
//     the value on disk at the moment the lock was acquired, and the write
//     happens inside the same critical section, so concurrent updates never
//     lose increments.
//
// Lock acquisition is bounded by explicit timeouts and surfaced as
// ErrLockTimeout, distinct from parse failures, so callers can tell
// contention from corruption. The store never logs; it only returns errors.
package txstate
