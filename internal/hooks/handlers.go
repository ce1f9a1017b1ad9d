package hooks

import (
	"context"
	"fmt"
	"log/slog"
	"path"
	"time"

	"github.com/oddrun/sidekick/internal/config"
	"github.com/oddrun/sidekick/internal/observability"
	"github.com/oddrun/sidekick/internal/txstate"
)

// SessionStateFile is the shared session state, relative to the toolkit home.
const SessionStateFile = "session.json"

// SessionState tracks the currently running assistant session. It is the
// read-modify-write consumer shared between hooks and the statusline.
type SessionState struct {
	SessionID   string    `json:"session_id"`
	CWD         string    `json:"cwd,omitempty"`
	StartedAt   time.Time `json:"started_at"`
	LastEventAt time.Time `json:"last_event_at"`
	Events      int       `json:"events"`
	Active      bool      `json:"active"`
}

// SessionRecorder lets hooks touch the session index without depending on
// its storage. Implemented by sessions.Index.
type SessionRecorder interface {
	Touch(ctx context.Context, sessionID, transcriptPath string, at time.Time) error
}

// Handler dispatches hook events. Errors from the state layer are demoted
// to log lines: a hook must not fail the host's tool call because a state
// file was contended.
type Handler struct {
	cfg      *config.Config
	store    *txstate.Store
	receipts *ReceiptLog
	sessions SessionRecorder
}

// NewHandler wires a hook handler. sessions may be nil.
func NewHandler(cfg *config.Config, store *txstate.Store, sessions SessionRecorder) *Handler {
	return &Handler{
		cfg:      cfg,
		store:    store,
		receipts: NewReceiptLog(store, cfg.StatePath(cfg.Hooks.ReceiptsFile), cfg.Hooks.MaxReceipts),
		sessions: sessions,
	}
}

// Receipts exposes the audit log for CLI inspection.
func (h *Handler) Receipts() *ReceiptLog { return h.receipts }

// Handle processes one hook event and returns the protocol output.
func (h *Handler) Handle(ctx context.Context, in *Input) (*Output, error) {
	ctx = observability.WithSessionID(ctx, in.SessionID)
	ctx = observability.WithHookEvent(ctx, in.HookEventName)

	switch in.HookEventName {
	case EventSessionStart:
		return h.sessionStart(ctx, in)
	case EventPreToolUse:
		return h.preToolUse(ctx, in)
	case EventPostToolUse:
		return h.postToolUse(ctx, in)
	case EventStop:
		return h.stop(ctx, in)
	case EventConfigChange:
		return h.configChange(ctx, in)
	default:
		return nil, fmt.Errorf("unknown hook event %q", in.HookEventName)
	}
}

func (h *Handler) sessionStart(ctx context.Context, in *Input) (*Output, error) {
	now := time.Now().UTC()
	_, err := txstate.Update(h.store, h.cfg.StatePath(SessionStateFile), SessionState{}, func(s SessionState) (SessionState, error) {
		if s.SessionID != in.SessionID {
			s = SessionState{SessionID: in.SessionID, StartedAt: now}
		}
		s.CWD = in.CWD
		s.LastEventAt = now
		s.Events++
		s.Active = true
		return s, nil
	}, nil)
	h.noteStateErr(ctx, err)

	if h.sessions != nil && in.SessionID != "" {
		if err := h.sessions.Touch(ctx, in.SessionID, in.TranscriptPath, now); err != nil {
			observability.WarnContext(ctx, "session index touch failed", slog.Any("error", err))
		}
	}

	h.receipt(ctx, Receipt{Event: EventSessionStart, SessionID: in.SessionID, Outcome: "ok", Detail: in.Source})
	return &Output{}, nil
}

func (h *Handler) preToolUse(ctx context.Context, in *Input) (*Output, error) {
	for _, pattern := range h.cfg.Hooks.DenyTools {
		if ok, _ := path.Match(pattern, in.ToolName); ok {
			reason := fmt.Sprintf("tool %q matches deny pattern %q", in.ToolName, pattern)
			h.receipt(ctx, Receipt{Event: EventPreToolUse, SessionID: in.SessionID, Tool: in.ToolName, Outcome: "denied", Detail: reason})
			return Deny(reason), nil
		}
	}

	h.touchSession(ctx, in)
	h.receipt(ctx, Receipt{Event: EventPreToolUse, SessionID: in.SessionID, Tool: in.ToolName, Outcome: "ok"})
	return &Output{}, nil
}

func (h *Handler) postToolUse(ctx context.Context, in *Input) (*Output, error) {
	h.touchSession(ctx, in)
	h.receipt(ctx, Receipt{Event: EventPostToolUse, SessionID: in.SessionID, Tool: in.ToolName, Outcome: "ok"})
	return &Output{}, nil
}

func (h *Handler) stop(ctx context.Context, in *Input) (*Output, error) {
	now := time.Now().UTC()
	_, err := txstate.Update(h.store, h.cfg.StatePath(SessionStateFile), SessionState{}, func(s SessionState) (SessionState, error) {
		s.LastEventAt = now
		s.Active = false
		return s, nil
	}, nil)
	h.noteStateErr(ctx, err)

	h.receipt(ctx, Receipt{Event: EventStop, SessionID: in.SessionID, Outcome: "ok"})
	return &Output{}, nil
}

func (h *Handler) configChange(ctx context.Context, in *Input) (*Output, error) {
	// Revalidate the file this process was started with, which is not
	// necessarily the default location.
	path := h.cfg.Path
	if path == "" {
		path = config.DefaultConfigPath()
	}
	outcome, detail := "ok", ""
	if _, err := config.Load(path); err != nil {
		outcome, detail = "error", err.Error()
	}
	h.receipt(ctx, Receipt{Event: EventConfigChange, SessionID: in.SessionID, Outcome: outcome, Detail: detail})
	return &Output{}, nil
}

// touchSession bumps the shared session state counters.
func (h *Handler) touchSession(ctx context.Context, in *Input) {
	now := time.Now().UTC()
	_, err := txstate.Update(h.store, h.cfg.StatePath(SessionStateFile), SessionState{}, func(s SessionState) (SessionState, error) {
		if s.SessionID == "" {
			s.SessionID = in.SessionID
			s.StartedAt = now
		}
		s.LastEventAt = now
		s.Events++
		s.Active = true
		return s, nil
	}, nil)
	h.noteStateErr(ctx, err)
}

// receipt appends to the audit log; contention is logged, never fatal.
func (h *Handler) receipt(ctx context.Context, r Receipt) {
	if err := h.receipts.Append(r); err != nil {
		h.noteStateErr(ctx, err)
	}
}

func (h *Handler) noteStateErr(ctx context.Context, err error) {
	if err == nil {
		return
	}
	if txstate.IsLockTimeout(err) {
		observability.DebugContext(ctx, "state file contended, skipping", slog.Any("error", err))
		return
	}
	observability.WarnContext(ctx, "state update failed", slog.Any("error", err))
}
