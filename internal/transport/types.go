// Package transport is the protocol-agnostic model client: it normalizes
// the completions wire shape and the responses wire shape (including its
// SSE streaming variant) into one internal Message/ToolCall form, with
// retry and auth resolution.
package transport

import (
	"context"
	"encoding/json"

	"github.com/0xfe/buddyx/internal/convo"
)

// ErrorKind enumerates the APIError kinds the transport returns.
type ErrorKind int

const (
	ErrNetwork ErrorKind = iota
	ErrTimeout
	ErrStatus
	ErrInvalidResponse
	ErrLoginRequired
)

// APIError is the error type the transport's request paths return; it never
// wraps a second error type for these kinds, keeping the per-boundary error
// taxonomy flat. Chat can also return the context's own error when ctx ends
// while it waits between retry attempts.
type APIError struct {
	Kind       ErrorKind
	StatusCode int
	RetryAfter string // raw Retry-After header value, seconds or HTTP-date
	Hint       string // e.g. protocol-mismatch hint on 404, recovery command on LoginRequired
	Message    string
}

func (e *APIError) Error() string {
	if e.Hint != "" {
		return e.Message + " (" + e.Hint + ")"
	}
	return e.Message
}

// Usage mirrors the normalized usage fields every protocol reports.
type Usage struct {
	InputTokens  int64 `json:"input_tokens"`
	OutputTokens int64 `json:"output_tokens"`
	TotalTokens  int64 `json:"total_tokens"`
}

// ToolDefinition is a provider-agnostic tool/function definition translated
// per protocol (completions "function" shape, responses "function" tool shape).
type ToolDefinition struct {
	Name        string
	Description string
	Parameters  json.RawMessage
}

// ChatRequest is the internal normalized request shape independent of wire
// protocol.
type ChatRequest struct {
	Model       string
	History     []convo.Message
	Tools       []ToolDefinition
	Temperature *float64
	MaxTokens   int
}

// ChatResponse is the internal normalized response shape. Message
// is always populated; Usage is optional (nil when the provider omitted it).
type ChatResponse struct {
	Message convo.Message
	Usage   *Usage
}

// Protocol selects the wire shape a profile speaks.
type Protocol string

const (
	ProtocolCompletions Protocol = "completions"
	ProtocolResponses   Protocol = "responses"
)

// AuthMode selects how the transport resolves a bearer token.
type AuthMode string

const (
	AuthAPIKey AuthMode = "api-key"
	AuthLogin  AuthMode = "login"
)

// Client is the public transport contract.
type Client interface {
	Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error)
}
