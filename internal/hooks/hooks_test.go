package hooks

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oddrun/sidekick/internal/config"
	"github.com/oddrun/sidekick/internal/txstate"
)

func testHandler(t *testing.T) (*Handler, *config.Config, *txstate.Store) {
	t.Helper()
	home := t.TempDir()
	cfg := &config.Config{Home: home}
	cfg.Hooks.ReceiptsFile = "receipts.json"
	cfg.Hooks.MaxReceipts = 10
	cfg.Hooks.DenyTools = []string{"rm*", "Dangerous*"}
	store := txstate.New(txstate.WithBaseDir(home))
	return NewHandler(cfg, store, nil), cfg, store
}

func TestDecodeInput(t *testing.T) {
	payload := `{"session_id":"s-1","cwd":"/work","hook_event_name":"PreToolUse","tool_name":"Bash"}`
	in, err := DecodeInput(strings.NewReader(payload), time.Second)
	require.NoError(t, err)
	assert.Equal(t, "s-1", in.SessionID)
	assert.Equal(t, EventPreToolUse, in.HookEventName)
	assert.Equal(t, "Bash", in.ToolName)
}

func TestDecodeInputWithoutEventName(t *testing.T) {
	// Hooks are registered per event, so the invocation can supply the name
	// when the payload omits it.
	in, err := DecodeInput(strings.NewReader(`{"session_id":"s-1"}`), time.Second)
	require.NoError(t, err)
	assert.Empty(t, in.HookEventName)
	assert.Equal(t, "s-1", in.SessionID)
}

func TestDecodeInputMalformed(t *testing.T) {
	_, err := DecodeInput(strings.NewReader(`{not json`), time.Second)
	require.Error(t, err)
}

func TestDecodeInputTimeout(t *testing.T) {
	// A reader that never delivers data.
	r, _ := io.Pipe()
	start := time.Now()
	_, err := DecodeInput(r, 50*time.Millisecond)
	require.Error(t, err)
	assert.Less(t, time.Since(start), 500*time.Millisecond)
	assert.Contains(t, err.Error(), "not delivered")
}

func TestPreToolUseDeny(t *testing.T) {
	h, _, _ := testHandler(t)

	out, err := h.Handle(context.Background(), &Input{
		SessionID:     "s-1",
		HookEventName: EventPreToolUse,
		ToolName:      "DangerousTool",
	})
	require.NoError(t, err)
	require.NotNil(t, out.HookSpecificOutput)
	assert.Equal(t, "deny", out.HookSpecificOutput.PermissionDecision)

	receipts, err := h.Receipts().Recent(1)
	require.NoError(t, err)
	require.Len(t, receipts, 1)
	assert.Equal(t, "denied", receipts[0].Outcome)
	assert.Equal(t, "DangerousTool", receipts[0].Tool)
}

func TestPreToolUseAllow(t *testing.T) {
	h, _, _ := testHandler(t)

	out, err := h.Handle(context.Background(), &Input{
		SessionID:     "s-1",
		HookEventName: EventPreToolUse,
		ToolName:      "Read",
	})
	require.NoError(t, err)
	assert.Nil(t, out.HookSpecificOutput)
}

func TestSessionLifecycle(t *testing.T) {
	h, cfg, store := testHandler(t)
	ctx := context.Background()

	_, err := h.Handle(ctx, &Input{SessionID: "s-9", CWD: "/work", HookEventName: EventSessionStart})
	require.NoError(t, err)

	state, err := txstate.Read(store, cfg.StatePath(SessionStateFile), SessionState{})
	require.NoError(t, err)
	assert.Equal(t, "s-9", state.SessionID)
	assert.True(t, state.Active)
	assert.Equal(t, 1, state.Events)

	_, err = h.Handle(ctx, &Input{SessionID: "s-9", HookEventName: EventPostToolUse, ToolName: "Bash"})
	require.NoError(t, err)

	_, err = h.Handle(ctx, &Input{SessionID: "s-9", HookEventName: EventStop})
	require.NoError(t, err)

	state, err = txstate.Read(store, cfg.StatePath(SessionStateFile), SessionState{})
	require.NoError(t, err)
	assert.False(t, state.Active)
	assert.Equal(t, 2, state.Events)
}

func TestSessionStartReplacesForeignSession(t *testing.T) {
	h, cfg, store := testHandler(t)
	ctx := context.Background()

	_, err := h.Handle(ctx, &Input{SessionID: "old", HookEventName: EventSessionStart})
	require.NoError(t, err)
	_, err = h.Handle(ctx, &Input{SessionID: "new", HookEventName: EventSessionStart})
	require.NoError(t, err)

	state, err := txstate.Read(store, cfg.StatePath(SessionStateFile), SessionState{})
	require.NoError(t, err)
	assert.Equal(t, "new", state.SessionID)
	assert.Equal(t, 1, state.Events)
}

func TestReceiptRingBounded(t *testing.T) {
	h, _, _ := testHandler(t)
	ctx := context.Background()

	for i := 0; i < 25; i++ {
		_, err := h.Handle(ctx, &Input{SessionID: "s-1", HookEventName: EventPostToolUse, ToolName: "Read"})
		require.NoError(t, err)
	}

	receipts, err := h.Receipts().Recent(0)
	require.NoError(t, err)
	assert.Len(t, receipts, 10, "ring must be capped at MaxReceipts")
}

func TestConfigChangeValidatesActiveConfig(t *testing.T) {
	h, cfg, _ := testHandler(t)
	ctx := context.Background()

	// The process was started with a non-default config file; the hook must
	// revalidate that one, not the default location.
	cfg.Path = filepath.Join(cfg.Home, "custom.yaml")
	require.NoError(t, os.WriteFile(cfg.Path, []byte("hooks:\n  max_receipts: -3\n"), 0o644))

	_, err := h.Handle(ctx, &Input{SessionID: "s-1", HookEventName: EventConfigChange})
	require.NoError(t, err)

	receipts, err := h.Receipts().Recent(1)
	require.NoError(t, err)
	require.Len(t, receipts, 1)
	assert.Equal(t, "error", receipts[0].Outcome)
	assert.Contains(t, receipts[0].Detail, "max_receipts")

	require.NoError(t, os.WriteFile(cfg.Path, []byte("hooks:\n  max_receipts: 5\n"), 0o644))
	_, err = h.Handle(ctx, &Input{SessionID: "s-1", HookEventName: EventConfigChange})
	require.NoError(t, err)

	receipts, err = h.Receipts().Recent(1)
	require.NoError(t, err)
	require.Len(t, receipts, 1)
	assert.Equal(t, "ok", receipts[0].Outcome)
}

func TestCompactReportsRemovedCount(t *testing.T) {
	home := t.TempDir()
	store := txstate.New(txstate.WithBaseDir(home))
	path := filepath.Join(home, "receipts.json")

	// An uncapped writer overfills the ring, as older binaries with a higher
	// limit would have.
	unbounded := NewReceiptLog(store, path, 0)
	for i := 0; i < 15; i++ {
		require.NoError(t, unbounded.Append(Receipt{Event: EventPostToolUse, Outcome: "ok"}))
	}

	log := NewReceiptLog(store, path, 10)
	dropped, err := log.Compact()
	require.NoError(t, err)
	assert.Equal(t, 5, dropped)

	kept, err := log.Recent(0)
	require.NoError(t, err)
	assert.Len(t, kept, 10)

	// Already-compact ring reports zero removals.
	dropped, err = log.Compact()
	require.NoError(t, err)
	assert.Zero(t, dropped)
}

func TestUnknownEvent(t *testing.T) {
	h, _, _ := testHandler(t)
	_, err := h.Handle(context.Background(), &Input{SessionID: "s", HookEventName: "Mystery"})
	require.Error(t, err)
}
