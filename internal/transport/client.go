package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/0xfe/buddyx/internal/convo"
	"github.com/0xfe/buddyx/internal/logging"
)

// Config configures a Client: one of two wire protocols, optional auth,
// and a forced-stream override for backends that require it.
type Config struct {
	BaseURL      string
	Protocol     Protocol
	Auth         *Auth
	ForceStream  bool // login-auth against a Codex-class backend forces stream=true
	MaxRetries   uint64
	HTTPClient   *http.Client
	SystemPrompt string
}

// Client is the protocol-agnostic model transport.
type Client struct {
	cfg Config
}

// NewClient builds a transport Client for one profile.
func NewClient(cfg Config) *Client {
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: 120 * time.Second}
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = 3
	}
	return &Client{cfg: cfg}
}

// Chat normalizes the request for the configured protocol, sends it with
// retry, and normalizes the response back into one internal shape.
func (c *Client) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	var resp *ChatResponse

	operation := func() error {
		var err error
		switch c.cfg.Protocol {
		case ProtocolCompletions:
			resp, err = c.chatCompletions(ctx, req)
		case ProtocolResponses:
			resp, err = c.chatResponses(ctx, req)
		default:
			return backoff.Permanent(&APIError{Kind: ErrInvalidResponse, Message: fmt.Sprintf("unknown protocol %q", c.cfg.Protocol)})
		}
		if err == nil {
			return nil
		}

		apiErr, ok := err.(*APIError)
		if !ok {
			return backoff.Permanent(err)
		}
		if apiErr.Kind == ErrNetwork || apiErr.Kind == ErrTimeout {
			return apiErr
		}
		if apiErr.Kind == ErrStatus && isRetryableStatus(apiErr.StatusCode) {
			if d := retryAfterDelay(apiErr.RetryAfter); d > 0 {
				select {
				case <-time.After(d):
				case <-ctx.Done():
					return backoff.Permanent(ctx.Err())
				}
			}
			return apiErr
		}
		return backoff.Permanent(apiErr)
	}

	b := newBackoff(ctx, c.cfg.MaxRetries)
	if err := backoff.Retry(operation, b); err != nil {
		if apiErr, ok := err.(*APIError); ok {
			return nil, apiErr
		}
		return nil, err
	}
	return resp, nil
}

func (c *Client) bearerToken(ctx context.Context) (string, error) {
	if c.cfg.Auth == nil {
		return "", nil
	}
	return c.cfg.Auth.resolve(ctx)
}

// doHTTP issues a POST and classifies transport-level failures into
// APIError kinds. On 401 with login auth it performs a single
// refresh-and-retry, never looping further.
func (c *Client) doHTTP(ctx context.Context, url string, payload []byte, accept string) (*http.Response, error) {
	token, err := c.bearerToken(ctx)
	if err != nil {
		return nil, err
	}

	resp, err := c.send(ctx, url, payload, accept, token)
	if err != nil {
		return nil, err
	}

	if resp.StatusCode == http.StatusUnauthorized && c.cfg.Auth != nil && c.cfg.Auth.Mode == AuthLogin {
		resp.Body.Close()
		refreshed, err := c.cfg.Auth.refreshOnce(ctx)
		if err != nil {
			return nil, err
		}
		resp, err = c.send(ctx, url, payload, accept, refreshed)
		if err != nil {
			return nil, err
		}
	}

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		resp.Body.Close()
		apiErr := &APIError{
			Kind:       ErrStatus,
			StatusCode: resp.StatusCode,
			RetryAfter: resp.Header.Get("Retry-After"),
			Message:    fmt.Sprintf("status %d: %s", resp.StatusCode, string(body)),
		}
		if resp.StatusCode == http.StatusNotFound {
			apiErr.Hint = "check whether this profile should use the opposite protocol setting (completions vs responses)"
		}
		return nil, apiErr
	}

	return resp, nil
}

func (c *Client) send(ctx context.Context, url string, payload []byte, accept, token string) (*http.Response, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, &APIError{Kind: ErrInvalidResponse, Message: err.Error()}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", accept)
	if token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.cfg.HTTPClient.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return nil, &APIError{Kind: ErrTimeout, Message: "request timed out: " + err.Error()}
		}
		return nil, &APIError{Kind: ErrNetwork, Message: err.Error()}
	}
	return resp, nil
}

func (c *Client) chatCompletions(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	payload, err := json.Marshal(completionsRequest{
		Model:    req.Model,
		Messages: req.History,
		Tools:    toCompletionsTools(req.Tools),
	})
	if err != nil {
		return nil, &APIError{Kind: ErrInvalidResponse, Message: err.Error()}
	}

	resp, err := c.doHTTP(ctx, c.cfg.BaseURL+"/chat/completions", payload, "application/json")
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var body completionsResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, &APIError{Kind: ErrInvalidResponse, Message: "decode completions response: " + err.Error()}
	}
	if len(body.Choices) == 0 {
		return nil, &APIError{Kind: ErrInvalidResponse, Message: "completions response has no choices"}
	}

	cr := &ChatResponse{Message: body.Choices[0].Message}
	if body.Usage != nil {
		cr.Usage = &Usage{
			InputTokens:  body.Usage.PromptTokens,
			OutputTokens: body.Usage.CompletionTokens,
			TotalTokens:  body.Usage.TotalTokens,
		}
	}
	return cr, nil
}

func (c *Client) chatResponses(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	wire := buildResponsesRequest(req, c.cfg.SystemPrompt, c.cfg.ForceStream)
	payload, err := json.Marshal(wire)
	if err != nil {
		return nil, &APIError{Kind: ErrInvalidResponse, Message: err.Error()}
	}

	accept := "application/json"
	if c.cfg.ForceStream {
		accept = "text/event-stream"
	}

	resp, err := c.doHTTP(ctx, c.cfg.BaseURL+"/responses", payload, accept)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if c.cfg.ForceStream {
		return parseStreamedResponse(resp.Body)
	}

	var body responsesPayload
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, &APIError{Kind: ErrInvalidResponse, Message: "decode responses payload: " + err.Error()}
	}
	return normalizeResponsesPayload(body), nil
}

func parseStreamedResponse(r io.Reader) (*ChatResponse, error) {
	collector := newSSECollector()
	sawAny := false

	err := parseSSEStream(r, func(ev streamEvent) error {
		sawAny = true
		collector.observe(ev)
		return nil
	})
	if err != nil {
		return nil, &APIError{Kind: ErrInvalidResponse, Message: "sse stream read error: " + err.Error()}
	}
	if !sawAny {
		return nil, &APIError{Kind: ErrInvalidResponse, Message: "empty SSE stream"}
	}
	if collector.failed {
		msg := collector.failMessage
		if msg == "" {
			msg = "response.failed"
		}
		return nil, &APIError{Kind: ErrInvalidResponse, Message: msg}
	}

	msg := convo.Message{Role: convo.RoleAssistant}
	if text := collector.text.String(); text != "" {
		msg.Content = &text
	}
	for _, tc := range collector.toolCalls() {
		msg.ToolCalls = append(msg.ToolCalls, convo.ToolCall{ID: tc.CallID, Name: tc.Name, Arguments: tc.Arguments})
	}
	setReasoningExtra(&msg, collector.reasoningText())

	if !collector.completed {
		logging.Debug().Msg("sse stream ended without response.completed; treating accumulated text as final")
	}

	resp := &ChatResponse{Message: msg}
	if collector.usage != nil {
		resp.Usage = collector.usage
	}
	return resp, nil
}

func normalizeResponsesPayload(body responsesPayload) *ChatResponse {
	msg := convo.Message{Role: convo.RoleAssistant}
	var text bytes.Buffer
	for _, item := range body.Output {
		switch item.Type {
		case "message":
			for _, part := range item.Content {
				if part.Type == "output_text" {
					text.WriteString(part.Text)
				}
			}
		case "function_call":
			msg.ToolCalls = append(msg.ToolCalls, convo.ToolCall{ID: item.CallID, Name: item.Name, Arguments: item.Arguments})
		}
	}
	if text.Len() > 0 {
		s := text.String()
		msg.Content = &s
	}
	setReasoningExtra(&msg, reasoningTextFromOutput(body.Output))

	resp := &ChatResponse{Message: msg}
	if body.Usage != nil {
		resp.Usage = &Usage{InputTokens: body.Usage.InputTokens, OutputTokens: body.Usage.OutputTokens, TotalTokens: body.Usage.TotalTokens}
	}
	return resp
}

// setReasoningExtra folds a non-empty reasoning/thinking string into msg's
// Extra bag under the "reasoning" key, the shape internal/agent.Loop's
// emitReasoningEvents looks for. A no-op when text is empty, so a
// reasoning-less turn's Extra stays nil.
func setReasoningExtra(msg *convo.Message, text string) {
	if text == "" {
		return
	}
	raw, err := json.Marshal(text)
	if err != nil {
		return
	}
	if msg.Extra == nil {
		msg.Extra = convo.ExtraBag{}
	}
	msg.Extra["reasoning"] = raw
}

func buildResponsesRequest(req ChatRequest, systemPrompt string, stream bool) responsesRequest {
	wire := responsesRequest{Model: req.Model, Instructions: systemPrompt, Stream: stream}

	for _, msg := range req.History {
		switch msg.Role {
		case convo.RoleSystem:
			if msg.Content != nil {
				if wire.Instructions == "" {
					wire.Instructions = *msg.Content
				} else {
					wire.Instructions += "\n\n" + *msg.Content
				}
			}
		case convo.RoleUser:
			if msg.Content != nil {
				wire.Input = append(wire.Input, userInputItem(*msg.Content))
			}
		case convo.RoleAssistant:
			if msg.Content != nil && *msg.Content != "" {
				wire.Input = append(wire.Input, assistantInputItem(*msg.Content))
			}
			for _, tc := range msg.ToolCalls {
				wire.Input = append(wire.Input, functionCallInputItem(tc.Name, tc.ID, tc.Arguments))
			}
		case convo.RoleTool:
			if msg.Content != nil {
				wire.Input = append(wire.Input, functionCallOutputItem(msg.ToolCallID, *msg.Content))
			}
		}
	}

	for _, t := range req.Tools {
		wire.Tools = append(wire.Tools, responsesTool{Type: "function", Name: t.Name, Description: t.Description, Parameters: t.Parameters})
	}

	return wire
}
