package agent

// Send drives the agentic loop: sanitize history, enforce the context
// budget with compaction, call the model transport, dispatch tool calls
// against the tool registry, and repeat until the model returns plain
// text, cancellation fires mid-batch, or an iteration/budget limit is hit.

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"sync"

	"github.com/0xfe/buddyx/internal/convo"
	"github.com/0xfe/buddyx/internal/exec"
	"github.com/0xfe/buddyx/internal/tokens"
	"github.com/0xfe/buddyx/internal/tool"
	"github.com/0xfe/buddyx/internal/transport"
)

// DefaultMaxIterations caps how many model round-trips one Send call runs
// before failing closed rather than looping forever.
const DefaultMaxIterations = 50

// Hooks lets a caller (the runtime actor) observe loop events without this
// package importing runtime — the same import-direction fix already
// applied to tool.ApprovalBroker.
type Hooks struct {
	OnReasoning         func(text string)
	OnWarning           func(message string)
	OnToolCallRequested func(callID, name string, argumentsJSON string)
	OnToolStream        func(callID string, ev tool.StreamEvent)
	OnToolResult        func(callID string, result *tool.Result, toolErr *tool.Error)
}

// Config builds a Loop.
type Config struct {
	Transport transport.Client
	Tools     *tool.Registry
	Tracker   *tokens.Tracker
	Exec      exec.Context
	Approval  tool.ApprovalBroker
	HTTP      *http.Client

	Model         string
	SystemPrompt  string
	MaxIterations int
	Temperature   *float64
	MaxTokens     int

	// Profile scopes which tool calls this loop may dispatch; nil means
	// no scoping (every registered tool is reachable).
	Profile *Profile

	SessionID string
	AgentName string

	Hooks Hooks
}

// Loop runs the agentic loop for one session. Send holds an internal mutex
// for the whole turn, so concurrent Send calls run one after another; the
// runtime actor additionally runs at most one task at a time.
type Loop struct {
	mu sync.Mutex

	transport transport.Client
	tools     *tool.Registry
	tracker   *tokens.Tracker
	exec      exec.Context
	approval  tool.ApprovalBroker
	http      *http.Client

	model         string
	basePrompt    string
	maxIterations int
	temperature   *float64
	maxTokens     int

	profile *Profile

	sessionID string
	agentName string

	hooks Hooks

	history []convo.Message

	doomLoop                   *DoomLoopDetector
	lastSnapshotExplicitTarget bool
}

// New builds a Loop from Config.
func New(cfg Config) *Loop {
	maxIter := cfg.MaxIterations
	if maxIter <= 0 {
		maxIter = DefaultMaxIterations
	}

	l := &Loop{
		transport:     cfg.Transport,
		tools:         cfg.Tools,
		tracker:       cfg.Tracker,
		exec:          cfg.Exec,
		approval:      cfg.Approval,
		http:          cfg.HTTP,
		model:         cfg.Model,
		basePrompt:    cfg.SystemPrompt,
		maxIterations: maxIter,
		temperature:   cfg.Temperature,
		maxTokens:     cfg.MaxTokens,
		profile:       cfg.Profile,
		sessionID:     cfg.SessionID,
		agentName:     cfg.AgentName,
		hooks:         cfg.Hooks,
		doomLoop:      NewDoomLoopDetector(),
	}

	if cfg.SystemPrompt != "" {
		content := cfg.SystemPrompt
		l.history = append(l.history, convo.Message{Role: convo.RoleSystem, Content: &content})
	}

	return l
}

// History returns a copy of the current conversation history, e.g. for
// persisting an AgentSessionSnapshot.
func (l *Loop) History() []convo.Message {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]convo.Message, len(l.history))
	copy(out, l.history)
	return out
}

// ReplaceHistory restores history loaded from a session snapshot. Callers
// must not hold a Send in flight when calling this.
func (l *Loop) ReplaceHistory(history []convo.Message) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.history = append([]convo.Message(nil), history...)
}

// Tracker exposes the token tracker so the runtime can persist/restore it.
func (l *Loop) Tracker() *tokens.Tracker { return l.tracker }

// RestoreTracker replaces the tracker's counters from a persisted
// AgentSessionSnapshot.tracker_state, e.g. after SessionResume.
func (l *Loop) RestoreTracker(snapshot tokens.Snapshot) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.tracker = tokens.FromSnapshot(snapshot)
}

// Reset restores history to just the original system prompt, discarding
// every turn accumulated so far (the runtime's SessionNew command).
func (l *Loop) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.history = nil
	if l.basePrompt != "" {
		content := l.basePrompt
		l.history = append(l.history, convo.Message{Role: convo.RoleSystem, Content: &content})
	}
	l.lastSnapshotExplicitTarget = false
	l.doomLoop.Reset()
}

// Send runs one user turn through the agentic loop to completion.
func (l *Loop) Send(ctx context.Context, userInput string) (string, *Error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	userContent := userInput
	l.history = append(l.history, convo.Message{Role: convo.RoleUser, Content: &userContent})
	l.history = convo.Sanitize(l.history)

	if err := l.enforceContextBudget(ctx); err != nil {
		return "", err
	}

	iteration := 0
	for {
		iteration++
		if iteration > l.maxIterations {
			return "", &Error{Kind: ErrMaxIterations, Message: fmt.Sprintf("exceeded %d agent-loop iterations", l.maxIterations)}
		}

		select {
		case <-ctx.Done():
			return "", &Error{Kind: ErrCancelled, Message: "cancelled before model call"}
		default:
		}

		l.refreshDynamicSnapshot(ctx)

		reqHistory, req := l.buildChatRequest()

		resp, err := l.transport.Chat(ctx, req)
		if err != nil {
			return "", &Error{Kind: ErrTransport, Message: "model transport call failed", Cause: err}
		}

		l.recordUsage(reqHistory, resp)

		assistantMsg := resp.Message
		l.history = append(l.history, assistantMsg)

		l.emitReasoningEvents(assistantMsg)

		if len(assistantMsg.ToolCalls) == 0 {
			if assistantMsg.Content != nil {
				return *assistantMsg.Content, nil
			}
			return "", nil
		}

		if text, cancelled := l.runToolBatch(ctx, assistantMsg.ToolCalls); cancelled {
			return text, nil
		}
	}
}

// buildChatRequest sanitizes history and assembles a transport.ChatRequest
// from the current history, tool definitions, and sampling parameters.
func (l *Loop) buildChatRequest() ([]convo.Message, transport.ChatRequest) {
	history := convo.Sanitize(l.history)

	var toolDefs []transport.ToolDefinition
	if l.tools != nil {
		for _, def := range l.tools.Definitions() {
			if l.profile != nil && !l.profile.ToolEnabled(def.Name) {
				continue
			}
			toolDefs = append(toolDefs, transport.ToolDefinition{
				Name:        def.Name,
				Description: def.Description,
				Parameters:  def.Parameters,
			})
		}
	}

	req := transport.ChatRequest{
		Model:       l.model,
		History:     history,
		Tools:       toolDefs,
		Temperature: l.temperature,
		MaxTokens:   l.maxTokens,
	}
	return history, req
}

// recordUsage records actual usage when the provider reported it, or falls
// back to the per-message character heuristic.
func (l *Loop) recordUsage(reqHistory []convo.Message, resp *transport.ChatResponse) {
	if l.tracker == nil {
		return
	}
	if resp.Usage != nil {
		l.tracker.Record(resp.Usage.InputTokens, resp.Usage.OutputTokens)
		return
	}

	promptEstimate := estimateMessages(reqHistory)
	var completionEstimate int64
	if resp.Message.Content != nil {
		completionEstimate = tokens.EstimateMessageTokens(*resp.Message.Content, resp.Message.Extra)
	}
	l.tracker.Record(promptEstimate, completionEstimate)
}

func estimateMessages(msgs []convo.Message) int64 {
	var total int64
	for _, m := range msgs {
		text := ""
		if m.Content != nil {
			text = *m.Content
		}
		total += tokens.EstimateMessageTokens(text, m.Extra)
	}
	return total
}

// enforceContextBudget runs the pre-send budget check: compaction fires
// only past the hard limit (0.95); 0.82 is purely the target fraction
// compaction aims for, and 0.80 is a non-blocking warning.
func (l *Loop) enforceContextBudget(ctx context.Context) *Error {
	if l.tracker == nil {
		return nil
	}

	if l.tracker.ExceedsHardLimit() {
		if cerr := l.compact(ctx, tokens.AutoCompactTarget); cerr != nil {
			return cerr
		}
		if l.tracker.ExceedsHardLimit() {
			return &Error{
				Kind: ErrContextLimit,
				Message: fmt.Sprintf("context usage still at %.0f%% of %d tokens after compaction",
					l.tracker.Fraction()*100, l.tracker.ContextLimit),
			}
		}
		return nil
	}

	if l.tracker.ExceedsWarn() && l.hooks.OnWarning != nil {
		l.hooks.OnWarning(fmt.Sprintf("context usage at %.0f%% of %d tokens", l.tracker.Fraction()*100, l.tracker.ContextLimit))
	}
	return nil
}

// emitReasoningEvents surfaces text-only extra fields whose key contains
// "reasoning", "thinking", or "thought". Metadata-only or null payloads are
// suppressed; keys are visited in sorted order for deterministic event
// sequencing.
func (l *Loop) emitReasoningEvents(msg convo.Message) {
	if l.hooks.OnReasoning == nil || len(msg.Extra) == 0 {
		return
	}

	keys := make([]string, 0, len(msg.Extra))
	for k := range msg.Extra {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		lower := strings.ToLower(k)
		if !strings.Contains(lower, "reasoning") && !strings.Contains(lower, "thinking") && !strings.Contains(lower, "thought") {
			continue
		}
		var text string
		if err := json.Unmarshal(msg.Extra[k], &text); err != nil {
			continue // not a plain string: metadata-only payload, suppressed
		}
		if strings.TrimSpace(text) == "" {
			continue
		}
		l.hooks.OnReasoning(text)
	}
}

// refreshDynamicSnapshot refreshes the in-place tmux snapshot block of the
// system prompt when capture is available and the loop hasn't explicitly
// targeted a non-default tmux session/pane.
func (l *Loop) refreshDynamicSnapshot(ctx context.Context) {
	if len(l.history) == 0 || l.history[0].Role != convo.RoleSystem {
		return
	}
	if l.exec == nil || !l.exec.CapturePaneAvailable() || l.lastSnapshotExplicitTarget {
		return
	}

	snapshot, err := l.exec.CapturePane(ctx, exec.CapturePaneOptions{StartLine: "-50", EndLine: "-", JoinWrapped: true})
	content := l.basePrompt
	if err == nil && snapshot != "" {
		content = l.basePrompt + "\n\n--- shared tmux pane (live) ---\n" + snapshot
	}
	l.history[0].Content = &content
}

// runToolBatch executes the assistant's tool calls in order. It returns
// (text, true) when cancellation fires mid-batch: synthesized cancellation
// results are appended for the current and every remaining call id, and the
// loop must stop.
func (l *Loop) runToolBatch(ctx context.Context, calls []convo.ToolCall) (string, bool) {
	for i, tc := range calls {
		select {
		case <-ctx.Done():
			l.appendCancelledResults(calls[i:])
			return "operation cancelled by user", true
		default:
		}

		if l.hooks.OnToolCallRequested != nil {
			l.hooks.OnToolCallRequested(tc.ID, tc.Name, tc.Arguments)
		}

		result, toolErr := l.executeTool(ctx, tc)

		if ctx.Err() != nil {
			l.appendCancelledResults(calls[i:])
			return "operation cancelled by user", true
		}

		l.trackTmuxTarget(tc)
		l.appendToolResult(tc, result, toolErr)

		if l.hooks.OnToolResult != nil {
			l.hooks.OnToolResult(tc.ID, result, toolErr)
		}
	}
	return "", false
}

// executeTool dispatches one tool call against the registry, applying the
// profile scope and doom-loop guard before execution (adapted from
// internal/session/tools.go's checkDoomLoop).
func (l *Loop) executeTool(ctx context.Context, tc convo.ToolCall) (*tool.Result, *tool.Error) {
	if l.tools == nil {
		return nil, tool.ExecutionFailed("no tool registry configured")
	}
	if l.profile != nil && !l.profile.ToolEnabled(tc.Name) {
		return nil, tool.Denied(fmt.Sprintf("%s is not enabled for profile %s", tc.Name, l.profile.Name))
	}
	t, ok := l.tools.Get(tc.Name)
	if !ok {
		return nil, tool.ExecutionFailed(fmt.Sprintf("tool not found: %s", tc.Name))
	}

	if l.doomLoop != nil {
		var parsed any
		_ = json.Unmarshal([]byte(tc.Arguments), &parsed)
		if l.doomLoop.Check(tc.Name, parsed) {
			return nil, tool.Denied(fmt.Sprintf("%s called %d times in a row with identical arguments", tc.Name, DoomLoopThreshold))
		}
	}

	toolCtx := &tool.Context{
		SessionID: l.sessionID,
		CallID:    tc.ID,
		AgentName: l.agentName,
		Exec:      l.exec,
		Approval:  l.approval,
		HTTP:      l.http,
		Cancel:    ctx.Done(),
	}
	if l.hooks.OnToolStream != nil {
		callID := tc.ID
		toolCtx.Stream = func(ev tool.StreamEvent) { l.hooks.OnToolStream(callID, ev) }
	}

	return t.Execute(ctx, tc.Arguments, toolCtx)
}

// trackTmuxTarget records whether the most recent tmux-targeted call selected
// a non-default session/pane: capture_pane/send_keys always address the one
// shared default pane and clear the mark, while the managed-lifecycle create
// calls stand up a session/pane of the caller's choosing and set it.
func (l *Loop) trackTmuxTarget(tc convo.ToolCall) {
	switch tc.Name {
	case "tmux_create_session", "tmux_create_pane":
		l.lastSnapshotExplicitTarget = true
	case "capture_pane", "send_keys":
		l.lastSnapshotExplicitTarget = false
	}
}

// appendCancelledResults appends a "operation cancelled by user" tool
// result for every call id, preserving history validity (every tool_call
// must have a matching result turn).
func (l *Loop) appendCancelledResults(calls []convo.ToolCall) {
	for _, tc := range calls {
		content := "operation cancelled by user"
		l.history = append(l.history, convo.Message{Role: convo.RoleTool, ToolCallID: tc.ID, Content: &content})
	}
}

// appendToolResult appends a tool-role turn for one call's outcome. A
// failed call gets the plain "Tool error: <message>" text the model is
// expected to read and react to; a successful call's payload is wrapped in
// the standard envelope and appended as JSON. Wrapping is centralized here
// rather than duplicated inside each built-in tool implementation, which
// returns a raw unwrapped payload in Result.Output.
func (l *Loop) appendToolResult(tc convo.ToolCall, result *tool.Result, toolErr *tool.Error) {
	var content string
	if toolErr != nil {
		content = "Tool error: " + toolErr.Message
	} else {
		var payload any
		if result != nil && result.Output != "" {
			payload = json.RawMessage(result.Output)
		} else {
			payload = json.RawMessage("null")
		}

		envelope := tool.Wrap(payload, nil)
		body, err := json.Marshal(envelope)
		if err != nil {
			content = fmt.Sprintf(`{"error":"failed to encode tool result: %s"}`, err.Error())
		} else {
			content = string(body)
		}
	}

	l.history = append(l.history, convo.Message{Role: convo.RoleTool, ToolCallID: tc.ID, Content: &content})
}
