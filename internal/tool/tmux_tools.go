package tool

import (
	"context"
	"encoding/json"
	"time"

	"github.com/0xfe/buddyx/internal/exec"
	"github.com/0xfe/buddyx/internal/tmuxproto"
)

// CapturePaneTool exposes tmux capture-pane.
type CapturePaneTool struct{}

func NewCapturePaneTool() *CapturePaneTool { return &CapturePaneTool{} }

func (t *CapturePaneTool) Name() string { return "capture_pane" }

func (t *CapturePaneTool) Definition() Definition {
	return Definition{
		Name:        t.Name(),
		Description: "Captures the visible or scrollback contents of the shared tmux pane.",
		Parameters: json.RawMessage(`{
			"type": "object",
			"properties": {
				"start_line": {"type": "string"},
				"end_line": {"type": "string"},
				"join_wrapped": {"type": "boolean"},
				"preserve_trailing_spaces": {"type": "boolean"},
				"include_escape_sequences": {"type": "boolean"},
				"escape_non_printable": {"type": "boolean"},
				"include_alternate_screen": {"type": "boolean"}
			}
		}`),
	}
}

type capturePaneInput struct {
	StartLine              string `json:"start_line,omitempty"`
	EndLine                string `json:"end_line,omitempty"`
	JoinWrapped            bool   `json:"join_wrapped,omitempty"`
	PreserveTrailingSpaces bool   `json:"preserve_trailing_spaces,omitempty"`
	IncludeEscapeSequences bool   `json:"include_escape_sequences,omitempty"`
	EscapeNonPrintable     bool   `json:"escape_non_printable,omitempty"`
	IncludeAlternateScreen bool   `json:"include_alternate_screen,omitempty"`
}

func (t *CapturePaneTool) Execute(ctx context.Context, argumentsJSON string, toolCtx *Context) (*Result, *Error) {
	var in capturePaneInput
	if argumentsJSON != "" {
		if err := json.Unmarshal([]byte(argumentsJSON), &in); err != nil {
			return nil, InvalidArguments("malformed capture_pane arguments: " + err.Error())
		}
	}
	if toolCtx == nil || toolCtx.Exec == nil {
		return nil, ExecutionFailed("no execution backend configured")
	}
	if !toolCtx.Exec.CapturePaneAvailable() {
		return nil, ExecutionFailed("capture-pane is not available on this execution backend")
	}

	if in.StartLine == "" {
		in.StartLine = "-"
	}
	if in.EndLine == "" {
		in.EndLine = "-"
	}

	text, err := toolCtx.Exec.CapturePane(ctx, exec.CapturePaneOptions{
		StartLine:              in.StartLine,
		EndLine:                in.EndLine,
		JoinWrapped:            in.JoinWrapped,
		PreserveTrailingSpaces: in.PreserveTrailingSpaces,
		IncludeEscapeSequences: in.IncludeEscapeSequences,
		EscapeNonPrintable:     in.EscapeNonPrintable,
		IncludeAlternateScreen: in.IncludeAlternateScreen,
	})
	if err != nil {
		return nil, ExecutionFailed(err.Error())
	}

	payload := map[string]any{"text": text}
	body, _ := json.Marshal(payload)
	return &Result{Output: string(body), Metadata: payload}, nil
}

// SendKeysTool exposes tmux send-keys.
type SendKeysTool struct{}

func NewSendKeysTool() *SendKeysTool { return &SendKeysTool{} }

func (t *SendKeysTool) Name() string { return "send_keys" }

func (t *SendKeysTool) Definition() Definition {
	return Definition{
		Name:        t.Name(),
		Description: "Sends literal text and/or named keys to the shared tmux pane, in order, optionally followed by Enter.",
		Parameters: json.RawMessage(`{
			"type": "object",
			"properties": {
				"literal_text": {"type": "string"},
				"keys": {"type": "array", "items": {"type": "string"}},
				"enter": {"type": "boolean"},
				"pre_delay_ms": {"type": "integer"}
			}
		}`),
	}
}

type sendKeysInput struct {
	LiteralText string   `json:"literal_text,omitempty"`
	Keys        []string `json:"keys,omitempty"`
	Enter       bool     `json:"enter,omitempty"`
	PreDelayMs  int      `json:"pre_delay_ms,omitempty"`
}

func (t *SendKeysTool) Execute(ctx context.Context, argumentsJSON string, toolCtx *Context) (*Result, *Error) {
	var in sendKeysInput
	if argumentsJSON != "" {
		if err := json.Unmarshal([]byte(argumentsJSON), &in); err != nil {
			return nil, InvalidArguments("malformed send_keys arguments: " + err.Error())
		}
	}
	if toolCtx == nil || toolCtx.Exec == nil {
		return nil, ExecutionFailed("no execution backend configured")
	}
	if !toolCtx.Exec.CapturePaneAvailable() {
		return nil, ExecutionFailed("send-keys is not available on this execution backend")
	}

	err := toolCtx.Exec.SendKeys(ctx, exec.SendKeysOptions{
		LiteralText: in.LiteralText,
		Keys:        in.Keys,
		Enter:       in.Enter,
		PreDelay:    time.Duration(in.PreDelayMs) * time.Millisecond,
	})
	if err != nil {
		return nil, ExecutionFailed(err.Error())
	}

	payload := map[string]any{"sent": true}
	body, _ := json.Marshal(payload)
	return &Result{Output: string(body), Metadata: payload}, nil
}

// TimeTool returns a harness clock snapshot.
type TimeTool struct{}

func NewTimeTool() *TimeTool { return &TimeTool{} }

func (t *TimeTool) Name() string { return "time" }

func (t *TimeTool) Definition() Definition {
	return Definition{Name: t.Name(), Description: "Returns the harness's current clock snapshot.", Parameters: json.RawMessage(`{"type":"object","properties":{}}`)}
}

func (t *TimeTool) Execute(ctx context.Context, argumentsJSON string, toolCtx *Context) (*Result, *Error) {
	now := time.Now().UTC()
	payload := map[string]any{"unix_millis": now.UnixMilli(), "rfc3339": now.Format(time.RFC3339)}
	body, _ := json.Marshal(payload)
	return &Result{Output: string(body), Metadata: payload}, nil
}

// tmux-create-session / tmux-kill-session / tmux-create-pane / tmux-kill-pane
// implement the managed-lifecycle tool family. The create tools report the
// calling agent's name as "owner" in their results; the kill tools do not
// check ownership and act on whatever session or pane they are given.

type TmuxCreateSessionTool struct{}

func NewTmuxCreateSessionTool() *TmuxCreateSessionTool { return &TmuxCreateSessionTool{} }
func (t *TmuxCreateSessionTool) Name() string          { return "tmux_create_session" }
func (t *TmuxCreateSessionTool) Definition() Definition {
	return Definition{
		Name:        t.Name(),
		Description: "Creates a managed tmux session owned by this agent.",
		Parameters: json.RawMessage(`{
			"type": "object",
			"properties": {"session": {"type": "string"}, "window": {"type": "string"}},
			"required": ["session", "window"]
		}`),
	}
}

type tmuxSessionInput struct {
	Session string `json:"session"`
	Window  string `json:"window"`
}

func (t *TmuxCreateSessionTool) Execute(ctx context.Context, argumentsJSON string, toolCtx *Context) (*Result, *Error) {
	var in tmuxSessionInput
	if err := json.Unmarshal([]byte(argumentsJSON), &in); err != nil {
		return nil, InvalidArguments("malformed tmux_create_session arguments: " + err.Error())
	}
	target, created, err := tmuxproto.EnsurePane(ctx, in.Session, in.Window, "buddy-managed")
	if err != nil {
		return nil, ExecutionFailed(err.Error())
	}
	payload := map[string]any{"target": target, "created_now": created, "owner": toolCtx.AgentName}
	body, _ := json.Marshal(payload)
	return &Result{Output: string(body), Metadata: payload}, nil
}

type TmuxKillSessionTool struct{}

func NewTmuxKillSessionTool() *TmuxKillSessionTool { return &TmuxKillSessionTool{} }
func (t *TmuxKillSessionTool) Name() string        { return "tmux_kill_session" }
func (t *TmuxKillSessionTool) Definition() Definition {
	return Definition{
		Name:        t.Name(),
		Description: "Kills a tmux session this agent owns.",
		Parameters: json.RawMessage(`{
			"type": "object",
			"properties": {"session": {"type": "string"}},
			"required": ["session"]
		}`),
	}
}

func (t *TmuxKillSessionTool) Execute(ctx context.Context, argumentsJSON string, toolCtx *Context) (*Result, *Error) {
	var in struct {
		Session string `json:"session"`
	}
	if err := json.Unmarshal([]byte(argumentsJSON), &in); err != nil {
		return nil, InvalidArguments("malformed tmux_kill_session arguments: " + err.Error())
	}
	if err := tmuxproto.KillSession(ctx, in.Session); err != nil {
		return nil, ExecutionFailed(err.Error())
	}
	payload := map[string]any{"session": in.Session, "killed": true}
	body, _ := json.Marshal(payload)
	return &Result{Output: string(body), Metadata: payload}, nil
}

type TmuxCreatePaneTool struct{}

func NewTmuxCreatePaneTool() *TmuxCreatePaneTool { return &TmuxCreatePaneTool{} }
func (t *TmuxCreatePaneTool) Name() string       { return "tmux_create_pane" }
func (t *TmuxCreatePaneTool) Definition() Definition {
	return Definition{
		Name:        t.Name(),
		Description: "Splits a new pane in a managed tmux session/window.",
		Parameters: json.RawMessage(`{
			"type": "object",
			"properties": {"session": {"type": "string"}, "window": {"type": "string"}, "vertical": {"type": "boolean"}},
			"required": ["session", "window"]
		}`),
	}
}

func (t *TmuxCreatePaneTool) Execute(ctx context.Context, argumentsJSON string, toolCtx *Context) (*Result, *Error) {
	var in struct {
		Session  string `json:"session"`
		Window   string `json:"window"`
		Vertical bool   `json:"vertical,omitempty"`
	}
	if err := json.Unmarshal([]byte(argumentsJSON), &in); err != nil {
		return nil, InvalidArguments("malformed tmux_create_pane arguments: " + err.Error())
	}
	paneID, err := tmuxproto.CreatePane(ctx, in.Session, in.Window, in.Vertical)
	if err != nil {
		return nil, ExecutionFailed(err.Error())
	}
	payload := map[string]any{"pane_id": paneID, "owner": toolCtx.AgentName}
	body, _ := json.Marshal(payload)
	return &Result{Output: string(body), Metadata: payload}, nil
}

type TmuxKillPaneTool struct{}

func NewTmuxKillPaneTool() *TmuxKillPaneTool { return &TmuxKillPaneTool{} }
func (t *TmuxKillPaneTool) Name() string     { return "tmux_kill_pane" }
func (t *TmuxKillPaneTool) Definition() Definition {
	return Definition{
		Name:        t.Name(),
		Description: "Kills a pane this agent owns.",
		Parameters: json.RawMessage(`{
			"type": "object",
			"properties": {"pane_id": {"type": "string"}},
			"required": ["pane_id"]
		}`),
	}
}

func (t *TmuxKillPaneTool) Execute(ctx context.Context, argumentsJSON string, toolCtx *Context) (*Result, *Error) {
	var in struct {
		PaneID string `json:"pane_id"`
	}
	if err := json.Unmarshal([]byte(argumentsJSON), &in); err != nil {
		return nil, InvalidArguments("malformed tmux_kill_pane arguments: " + err.Error())
	}
	if err := tmuxproto.KillPane(ctx, in.PaneID); err != nil {
		return nil, ExecutionFailed(err.Error())
	}
	payload := map[string]any{"pane_id": in.PaneID, "killed": true}
	body, _ := json.Marshal(payload)
	return &Result{Output: string(body), Metadata: payload}, nil
}
