package hooks

// Hook event names as delivered by the host runtime.
const (
	EventSessionStart = "SessionStart"
	EventPreToolUse   = "PreToolUse"
	EventPostToolUse  = "PostToolUse"
	EventStop         = "Stop"
	EventConfigChange = "ConfigChange"
)

// Output is the JSON a hook writes to stdout for the host runtime. An empty
// Output means "no opinion"; handlers emit it as {}.
type Output struct {
	HookSpecificOutput *SpecificOutput `json:"hookSpecificOutput,omitempty"`
}

// SpecificOutput carries per-event decisions back to the host.
type SpecificOutput struct {
	HookEventName      string `json:"hookEventName"`
	PermissionDecision string `json:"permissionDecision,omitempty"` // "allow" | "deny"
	PermissionReason   string `json:"permissionDecisionReason,omitempty"`
	AdditionalContext  string `json:"additionalContext,omitempty"`
}

// Deny builds a PreToolUse veto output.
func Deny(reason string) *Output {
	return &Output{HookSpecificOutput: &SpecificOutput{
		HookEventName:      EventPreToolUse,
		PermissionDecision: "deny",
		PermissionReason:   reason,
	}}
}
