package hooks

import (
	"encoding/json"
	"fmt"
	"io"
	"time"
)

// maxStdinBytes caps stdin reads. Hook payloads are small JSON objects;
// 1 MB is generous headroom that prevents unbounded allocation.
const maxStdinBytes = 1 << 20

// Input is the JSON the host assistant runtime sends on stdin to hooks.
type Input struct {
	SessionID      string          `json:"session_id"`
	CWD            string          `json:"cwd"`
	HookEventName  string          `json:"hook_event_name"`
	ToolName       string          `json:"tool_name,omitempty"`
	ToolInput      json.RawMessage `json:"tool_input,omitempty"`
	ToolResponse   json.RawMessage `json:"tool_response,omitempty"`
	Prompt         string          `json:"prompt,omitempty"`
	Source         string          `json:"source,omitempty"`
	TranscriptPath string          `json:"transcript_path,omitempty"`
}

// DecodeInput reads one hook payload from r, bounded by timeout so a host
// that never writes cannot wedge the hook process. The timeout is explicit
// configuration, not a package global. The event name may be absent from
// the payload: hooks are registered per event, so the caller can fill it
// in from its own invocation.
func DecodeInput(r io.Reader, timeout time.Duration) (*Input, error) {
	type result struct {
		data []byte
		err  error
	}
	ch := make(chan result, 1)
	go func() {
		data, err := io.ReadAll(io.LimitReader(r, maxStdinBytes))
		ch <- result{data: data, err: err}
	}()

	var data []byte
	select {
	case res := <-ch:
		if res.err != nil {
			return nil, fmt.Errorf("read hook input: %w", res.err)
		}
		data = res.data
	case <-time.After(timeout):
		return nil, fmt.Errorf("hook input not delivered within %v", timeout)
	}

	var in Input
	if err := json.Unmarshal(data, &in); err != nil {
		return nil, fmt.Errorf("parse hook input: %w", err)
	}
	return &in, nil
}
