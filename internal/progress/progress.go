// Package progress tracks long-running agent loop progress in a shared
// state file. Writers (hooks, task runners) advance it with exclusive
// updates; the statusline reads it with short-timeout shared reads and
// treats old data as stale.
package progress

import (
	"time"

	"github.com/oddrun/sidekick/internal/txstate"
)

// StateFile is the progress state file name, relative to the toolkit home.
const StateFile = "progress.json"

// State is the persisted progress document.
type State struct {
	Phase     string    `json:"phase,omitempty"`
	Iteration int       `json:"iteration"`
	Total     int       `json:"total,omitempty"`
	Message   string    `json:"message,omitempty"`
	Failed    bool      `json:"failed,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Snapshot is a read view with staleness resolved against a window.
type Snapshot struct {
	State
	Stale bool
}

// Tracker advances and reads progress state.
type Tracker struct {
	store *txstate.Store
	path  string
}

// NewTracker creates a tracker over the progress file at path.
func NewTracker(store *txstate.Store, path string) *Tracker {
	return &Tracker{store: store, path: path}
}

// SetPhase starts a new phase, resetting the iteration counter.
func (t *Tracker) SetPhase(phase string, total int) (State, error) {
	return t.update(func(s State) State {
		s.Phase = phase
		s.Iteration = 0
		s.Total = total
		s.Failed = false
		s.Message = ""
		return s
	})
}

// Advance increments the iteration counter and sets an optional message.
func (t *Tracker) Advance(message string) (State, error) {
	return t.update(func(s State) State {
		s.Iteration++
		s.Message = message
		return s
	})
}

// Fail marks the current phase failed.
func (t *Tracker) Fail(message string) (State, error) {
	return t.update(func(s State) State {
		s.Failed = true
		s.Message = message
		return s
	})
}

// Clear resets progress entirely.
func (t *Tracker) Clear() error {
	_, err := txstate.Update(t.store, t.path, State{}, func(State) (State, error) {
		return State{UpdatedAt: time.Now().UTC()}, nil
	}, nil)
	return err
}

func (t *Tracker) update(fn func(State) State) (State, error) {
	return txstate.Update(t.store, t.path, State{}, func(s State) (State, error) {
		s = fn(s)
		s.UpdatedAt = time.Now().UTC()
		return s, nil
	}, nil)
}

// Snapshot reads progress with the given lock timeout. Data older than
// staleness is flagged rather than hidden so callers choose presentation.
func (t *Tracker) Snapshot(timeout, staleness time.Duration) (Snapshot, error) {
	s, err := txstate.ReadTimeout(t.store, t.path, State{}, timeout)
	if err != nil {
		return Snapshot{}, err
	}
	snap := Snapshot{State: s}
	if staleness > 0 && !s.UpdatedAt.IsZero() && time.Since(s.UpdatedAt) > staleness {
		snap.Stale = true
	}
	return snap, nil
}
