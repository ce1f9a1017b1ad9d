package hooks

import (
	"time"

	"github.com/google/uuid"

	"github.com/oddrun/sidekick/internal/txstate"
)

// Receipt is one audit entry for a handled hook event.
type Receipt struct {
	ID        string    `json:"id"`
	Event     string    `json:"event"`
	SessionID string    `json:"session_id,omitempty"`
	Tool      string    `json:"tool,omitempty"`
	Outcome   string    `json:"outcome"` // "ok", "denied", "error"
	Detail    string    `json:"detail,omitempty"`
	At        time.Time `json:"at"`
}

// ReceiptLog appends audit receipts to a shared JSON state file. Multiple
// hook processes append concurrently; the transactional update keeps the
// ring consistent.
type ReceiptLog struct {
	store *txstate.Store
	path  string
	max   int
}

// NewReceiptLog creates a receipt log backed by the state file at path.
// max bounds the ring; older receipts are dropped on append.
func NewReceiptLog(store *txstate.Store, path string, max int) *ReceiptLog {
	return &ReceiptLog{store: store, path: path, max: max}
}

// Append records a receipt. The receipt ID is filled if empty.
func (l *ReceiptLog) Append(r Receipt) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	if r.At.IsZero() {
		r.At = time.Now().UTC()
	}
	_, err := txstate.Update(l.store, l.path, []Receipt{}, func(list []Receipt) ([]Receipt, error) {
		list = append(list, r)
		if l.max > 0 && len(list) > l.max {
			list = list[len(list)-l.max:]
		}
		return list, nil
	}, nil)
	return err
}

// Recent returns up to n receipts, newest last. A lock timeout surfaces so
// callers can decide whether to degrade.
func (l *ReceiptLog) Recent(n int) ([]Receipt, error) {
	list, err := txstate.Read(l.store, l.path, []Receipt{})
	if err != nil {
		return nil, err
	}
	if n > 0 && len(list) > n {
		list = list[len(list)-n:]
	}
	return list, nil
}

// Compact trims the ring down to max entries and returns how many were
// removed; scheduled by nightshift.
func (l *ReceiptLog) Compact() (int, error) {
	var dropped int
	_, err := txstate.Update(l.store, l.path, []Receipt{}, func(list []Receipt) ([]Receipt, error) {
		if l.max > 0 && len(list) > l.max {
			dropped = len(list) - l.max
			list = list[len(list)-l.max:]
		}
		return list, nil
	}, nil)
	return dropped, err
}
