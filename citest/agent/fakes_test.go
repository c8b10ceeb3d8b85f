package agent_test

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/0xfe/buddyx/internal/convo"
	"github.com/0xfe/buddyx/internal/tool"
	"github.com/0xfe/buddyx/internal/transport"
)

// scriptedTransport replays a fixed sequence of responses, one per Chat
// call. internal/agent has its own unexported fakeTransport for the same
// purpose; Go can't export an unexported test type across package
// boundaries, so this is its own copy rather than an import.
type scriptedTransport struct {
	mu        sync.Mutex
	responses []transport.ChatResponse
	errs      []error
	calls     int
	lastReq   transport.ChatRequest
	requests  []transport.ChatRequest
}

func (f *scriptedTransport) Chat(ctx context.Context, req transport.ChatRequest) (*transport.ChatResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	i := f.calls
	f.calls++
	f.lastReq = req
	f.requests = append(f.requests, req)
	if i < len(f.errs) && f.errs[i] != nil {
		return nil, f.errs[i]
	}
	if i >= len(f.responses) {
		return nil, fmt.Errorf("scriptedTransport: no response queued for call %d", i)
	}
	resp := f.responses[i]
	return &resp, nil
}

func (f *scriptedTransport) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// textMsg builds a plain assistant/user convo.Message, mirroring
// internal/agent/loop_test.go's helper of the same name.
func textMsg(role, text string) convo.Message {
	return convo.Message{Role: role, Content: &text}
}

// toolCallMsg builds an assistant turn carrying one or more tool calls and
// no text content, the shape transport.ChatResponse.Message takes when a
// provider wants to invoke tools.
func toolCallMsg(calls ...convo.ToolCall) convo.Message {
	return convo.Message{Role: convo.RoleAssistant, ToolCalls: calls}
}

func usage(prompt, completion int64) *transport.Usage {
	return &transport.Usage{InputTokens: prompt, OutputTokens: completion, TotalTokens: prompt + completion}
}

// scriptedTool is a mock tool.Tool whose Execute is supplied by the test, so
// each scenario can script exactly the approval/output/cancellation
// behavior it needs without depending on a real execution backend.
type scriptedTool struct {
	name    string
	execute func(ctx context.Context, argumentsJSON string, toolCtx *tool.Context) (*tool.Result, *tool.Error)
}

func (t *scriptedTool) Name() string { return t.name }

func (t *scriptedTool) Definition() tool.Definition {
	return tool.Definition{
		Name:        t.name,
		Description: "mock tool for agent-loop scenario specs",
		Parameters:  json.RawMessage(`{"type":"object"}`),
	}
}

func (t *scriptedTool) Execute(ctx context.Context, argumentsJSON string, toolCtx *tool.Context) (*tool.Result, *tool.Error) {
	return t.execute(ctx, argumentsJSON, toolCtx)
}
