// Package tool implements the tool registry and contract tools execute
// against, plus the built-in tools the agent relies on.
package tool

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/0xfe/buddyx/internal/exec"
)

// ErrorKind classifies why a tool call failed.
type ErrorKind string

const (
	ErrInvalidArguments ErrorKind = "invalid_arguments"
	ErrExecutionFailed  ErrorKind = "execution_failed"
	ErrDenied           ErrorKind = "denied"
)

// Error is the flat per-call error kind tools return.
type Error struct {
	Kind    ErrorKind
	Message string
}

func (e *Error) Error() string { return string(e.Kind) + ": " + e.Message }

func InvalidArguments(msg string) *Error { return &Error{Kind: ErrInvalidArguments, Message: msg} }
func ExecutionFailed(msg string) *Error  { return &Error{Kind: ErrExecutionFailed, Message: msg} }
func Denied(msg string) *Error           { return &Error{Kind: ErrDenied, Message: msg} }

// StreamEventKind enumerates the incremental events a tool may emit while
// running through its ToolContext stream sink.
type StreamEventKind string

const (
	StreamStarted     StreamEventKind = "started"
	StreamStdoutChunk StreamEventKind = "stdout_chunk"
	StreamStderrChunk StreamEventKind = "stderr_chunk"
	StreamInfo        StreamEventKind = "info"
	StreamCompleted   StreamEventKind = "completed"
)

// StreamEvent is one incremental update a tool emits through its sink.
type StreamEvent struct {
	Kind StreamEventKind
	Text string
}

// StreamSink receives incremental tool events. Nil-safe: tools must check
// for nil before calling, since not every caller wants incremental updates.
type StreamSink func(StreamEvent)

// ApprovalBroker is the narrow interface the shell tool calls through to
// request human approval. The runtime package supplies the concrete
// implementation; tool only depends on this interface to avoid an import
// cycle.
type ApprovalBroker interface {
	// RequestApproval blocks until the request is resolved or ctx is
	// cancelled. A non-nil error means denial (including fail-closed when
	// no task context exists).
	RequestApproval(ctx context.Context, summary string, metadata map[string]any) error
}

// Context is the per-call execution context passed to every tool.
type Context struct {
	SessionID string
	CallID    string
	AgentName string

	Exec     exec.Context
	Approval ApprovalBroker
	HTTP     *http.Client

	Stream StreamSink

	// Cancel is closed when the call should stop; tools must observe it on
	// every blocking operation.
	Cancel <-chan struct{}
}

func (c *Context) emit(kind StreamEventKind, text string) {
	if c != nil && c.Stream != nil {
		c.Stream(StreamEvent{Kind: kind, Text: text})
	}
}

func (c *Context) cancelled() bool {
	if c == nil || c.Cancel == nil {
		return false
	}
	select {
	case <-c.Cancel:
		return true
	default:
		return false
	}
}

// Result is the tool-specific payload before envelope-wrapping.
type Result struct {
	Output   string
	Metadata map[string]any
}

// Envelope is the standard result wrapper every built-in tool returns:
// `{ harness_timestamp: {...}, result: <payload> }`.
type Envelope struct {
	HarnessTimestamp HarnessTimestamp `json:"harness_timestamp"`
	Result           any              `json:"result"`
}

type HarnessTimestamp struct {
	Source     string `json:"source"`
	UnixMillis int64  `json:"unix_millis"`
}

// Wrap builds the standard envelope around a tool-specific payload. nowFn
// is injected so tests can pin the timestamp.
func Wrap(payload any, nowFn func() time.Time) Envelope {
	if nowFn == nil {
		nowFn = time.Now
	}
	return Envelope{
		HarnessTimestamp: HarnessTimestamp{Source: "harness", UnixMillis: nowFn().UnixMilli()},
		Result:           payload,
	}
}

// Definition is a tool's stable name plus its JSON Schema parameter shape,
// the part of the contract the model transport needs (transport.ToolDefinition
// is built from this).
type Definition struct {
	Name        string
	Description string
	Parameters  json.RawMessage
}

// Tool is the contract every built-in and MCP-bridged tool implements.
type Tool interface {
	Name() string
	Definition() Definition
	Execute(ctx context.Context, argumentsJSON string, toolCtx *Context) (*Result, *Error)
}
