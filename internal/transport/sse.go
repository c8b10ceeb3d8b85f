package transport

import (
	"bufio"
	"encoding/json"
	"io"
	"strings"
)

// parseSSEStream reads event blocks separated by blank lines, concatenating
// multiline "data:" payloads within an event, ignoring comment lines
// (":"-prefixed) and "[DONE]" sentinels.
func parseSSEStream(r io.Reader, emit func(streamEvent) error) error {
	scanner := bufio.NewScanner(r)
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 1024*1024)

	var dataLines []string
	flush := func() error {
		if len(dataLines) == 0 {
			return nil
		}
		joined := strings.Join(dataLines, "\n")
		dataLines = dataLines[:0]
		trimmed := strings.TrimSpace(joined)
		if trimmed == "" || trimmed == "[DONE]" {
			return nil
		}
		var ev streamEvent
		if err := json.Unmarshal([]byte(joined), &ev); err != nil {
			return nil // malformed block, skip rather than abort the stream
		}
		return emit(ev)
	}

	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			if err := flush(); err != nil {
				return err
			}
			continue
		}
		if strings.HasPrefix(line, ":") {
			continue
		}
		if strings.HasPrefix(line, "data:") {
			dataLines = append(dataLines, strings.TrimSpace(strings.TrimPrefix(line, "data:")))
		}
	}
	if err := scanner.Err(); err != nil {
		return err
	}
	return flush()
}

// sseCollector accumulates streamed deltas into a final message:
// item-ID-keyed argument builders reconcile into call-ID-keyed builders
// once a call ID becomes known.
type sseCollector struct {
	itemToCallID map[string]string
	callArgs     map[string]*strings.Builder
	callNames    map[string]string
	callOrder    []string
	itemArgs     map[string]*strings.Builder
	text         strings.Builder
	reasoning    strings.Builder
	usage        *Usage
	completed    bool
	failed       bool
	failMessage  string
}

func newSSECollector() *sseCollector {
	return &sseCollector{
		itemToCallID: map[string]string{},
		callArgs:     map[string]*strings.Builder{},
		callNames:    map[string]string{},
		itemArgs:     map[string]*strings.Builder{},
	}
}

func (c *sseCollector) ensureCallBuilder(callID string) *strings.Builder {
	if b := c.callArgs[callID]; b != nil {
		return b
	}
	b := &strings.Builder{}
	c.callArgs[callID] = b
	c.callOrder = append(c.callOrder, callID)
	return b
}

func (c *sseCollector) observe(ev streamEvent) {
	switch ev.Type {
	case "response.output_item.added":
		if ev.Item != nil {
			c.linkItem(ev.Item)
		}
	case "response.function_call_arguments.delta":
		callID := ev.CallID
		if callID == "" {
			callID = c.itemToCallID[ev.ItemID]
		}
		if callID != "" && ev.Delta != "" {
			c.ensureCallBuilder(callID).WriteString(ev.Delta)
		} else if ev.ItemID != "" && ev.Delta != "" {
			c.ensureItemBuilder(ev.ItemID).WriteString(ev.Delta)
		}
	case "response.function_call_arguments.done":
		if ev.Item != nil {
			c.linkItem(ev.Item)
		}
		if ev.CallID != "" && ev.Name != "" {
			c.callNames[ev.CallID] = ev.Name
		}
		if ev.CallID != "" && ev.Arguments != "" {
			b := c.ensureCallBuilder(ev.CallID)
			if b.Len() == 0 {
				b.WriteString(ev.Arguments)
			}
		}
	case "response.output_text.delta":
		c.text.WriteString(ev.Delta)
	case "response.reasoning_summary_text.delta", "response.reasoning_text.delta":
		c.reasoning.WriteString(ev.Delta)
	case "response.content_part.added":
		if ev.Part != nil && ev.Part.Type == "output_text" {
			c.text.WriteString(ev.Part.Text)
		}
		if ev.Part != nil && (ev.Part.Type == "reasoning_text" || ev.Part.Type == "summary_text") {
			c.reasoning.WriteString(ev.Part.Text)
		}
	case "response.completed", "response.done":
		c.completed = true
		if ev.Response != nil {
			if ev.Response.Usage != nil {
				c.usage = &Usage{
					InputTokens:  ev.Response.Usage.InputTokens,
					OutputTokens: ev.Response.Usage.OutputTokens,
					TotalTokens:  ev.Response.Usage.TotalTokens,
				}
			}
			c.applyFinalOutput(ev.Response.Output)
		}
	case "response.failed":
		c.failed = true
		c.failMessage = ev.Message
	}
}

func (c *sseCollector) linkItem(item *streamItem) {
	if item.ID != "" && item.CallID != "" {
		c.itemToCallID[item.ID] = item.CallID
		if pending, ok := c.itemArgs[item.ID]; ok {
			c.ensureCallBuilder(item.CallID).WriteString(pending.String())
			delete(c.itemArgs, item.ID)
		}
	}
	if item.CallID != "" && item.Name != "" {
		c.callNames[item.CallID] = item.Name
	}
	if item.Type == "function_call" && item.CallID != "" && item.Arguments != "" {
		b := c.ensureCallBuilder(item.CallID)
		if b.Len() == 0 {
			b.WriteString(item.Arguments)
		}
	}
}

func (c *sseCollector) ensureItemBuilder(itemID string) *strings.Builder {
	if b := c.itemArgs[itemID]; b != nil {
		return b
	}
	b := &strings.Builder{}
	c.itemArgs[itemID] = b
	return b
}

// applyFinalOutput re-derives tool calls/text from the authoritative final
// payload on response.completed, which is the source of truth over any
// streamed deltas.
func (c *sseCollector) applyFinalOutput(output []responseOutput) {
	if len(output) == 0 {
		return
	}
	var text strings.Builder
	sawToolCall := false
	for _, item := range output {
		switch item.Type {
		case "function_call":
			sawToolCall = true
			b := c.ensureCallBuilder(item.CallID)
			b.Reset()
			b.WriteString(item.Arguments)
			c.callNames[item.CallID] = item.Name
		case "message":
			for _, part := range item.Content {
				if part.Type == "output_text" {
					text.WriteString(part.Text)
				}
			}
		}
	}
	if text.Len() > 0 || !sawToolCall {
		c.text.Reset()
		c.text.WriteString(text.String())
	}
	if reasoning := reasoningTextFromOutput(output); reasoning != "" {
		c.reasoning.Reset()
		c.reasoning.WriteString(reasoning)
	}
}

// reasoningText returns the accumulated reasoning/thinking text, preferring
// whatever response.completed's authoritative output carried and falling
// back to streamed deltas when the backend never sends a final bundle.
func (c *sseCollector) reasoningText() string {
	return c.reasoning.String()
}

func (c *sseCollector) toolCalls() []toolCallResult {
	out := make([]toolCallResult, 0, len(c.callOrder))
	for _, callID := range c.callOrder {
		b := c.callArgs[callID]
		out = append(out, toolCallResult{CallID: callID, Name: c.callNames[callID], Arguments: b.String()})
	}
	return out
}

type toolCallResult struct {
	CallID    string
	Name      string
	Arguments string
}
