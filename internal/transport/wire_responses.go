package transport

import "encoding/json"

// The responses-protocol wire shapes, narrowed to the fields this client
// actually requires.

type responsesRequest struct {
	Model        string              `json:"model"`
	Instructions string              `json:"instructions,omitempty"`
	Input        []responseInputItem `json:"input,omitempty"`
	Tools        []responsesTool     `json:"tools,omitempty"`
	Stream       bool                `json:"stream"`
}

type responseInputItem struct {
	Type      string                  `json:"type"`
	Role      string                  `json:"role,omitempty"`
	Content   []responseInputContent  `json:"content,omitempty"`
	Name      string                  `json:"name,omitempty"`
	Arguments string                  `json:"arguments,omitempty"`
	CallID    string                  `json:"call_id,omitempty"`
	Output    string                  `json:"output,omitempty"`
}

type responseInputContent struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

type responsesTool struct {
	Type        string          `json:"type"`
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Parameters  json.RawMessage `json:"parameters,omitempty"`
}

func userInputItem(text string) responseInputItem {
	return responseInputItem{Type: "message", Role: "user", Content: []responseInputContent{{Type: "input_text", Text: text}}}
}

func assistantInputItem(text string) responseInputItem {
	return responseInputItem{Type: "message", Role: "assistant", Content: []responseInputContent{{Type: "output_text", Text: text}}}
}

func functionCallInputItem(name, callID, args string) responseInputItem {
	return responseInputItem{Type: "function_call", Name: name, CallID: callID, Arguments: args}
}

func functionCallOutputItem(callID, output string) responseInputItem {
	return responseInputItem{Type: "function_call_output", CallID: callID, Output: output}
}

// responsesPayload is the non-streaming response body.
type responsesPayload struct {
	ID     string           `json:"id"`
	Output []responseOutput `json:"output"`
	Usage  *responsesUsage  `json:"usage"`
}

type responseOutput struct {
	Type      string                  `json:"type"`
	ID        string                  `json:"id"`
	CallID    string                  `json:"call_id"`
	Name      string                  `json:"name"`
	Arguments string                  `json:"arguments"`
	Content   []responseOutputContent `json:"content"`
	Summary   []responseOutputContent `json:"summary,omitempty"`
}

type responseOutputContent struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// reasoningTextFromOutput concatenates the text of every "reasoning" output
// item (from either its content or summary parts, whichever the backend
// populates), the shape a "responses"-protocol reasoning model returns
// alongside its final answer.
func reasoningTextFromOutput(output []responseOutput) string {
	var buf []byte
	for _, item := range output {
		if item.Type != "reasoning" {
			continue
		}
		for _, part := range item.Content {
			buf = append(buf, part.Text...)
		}
		for _, part := range item.Summary {
			buf = append(buf, part.Text...)
		}
	}
	return string(buf)
}

type responsesUsage struct {
	InputTokens  int64 `json:"input_tokens"`
	OutputTokens int64 `json:"output_tokens"`
	TotalTokens  int64 `json:"total_tokens"`
}

// streamEvent is the SSE event payload shape this protocol streams.
type streamEvent struct {
	Type     string          `json:"type"`
	Response *streamResponse `json:"response,omitempty"`
	Item     *streamItem     `json:"item,omitempty"`
	Part     *streamPart     `json:"part,omitempty"`
	Delta    string          `json:"delta,omitempty"`
	ItemID   string          `json:"item_id,omitempty"`
	CallID   string          `json:"call_id,omitempty"`
	Name     string          `json:"name,omitempty"`
	Arguments string         `json:"arguments,omitempty"`
	Message  string          `json:"message,omitempty"`
}

type streamResponse struct {
	ID     string          `json:"id,omitempty"`
	Output []responseOutput `json:"output,omitempty"`
	Usage  *responsesUsage `json:"usage,omitempty"`
}

type streamItem struct {
	ID        string `json:"id,omitempty"`
	Type      string `json:"type,omitempty"`
	Name      string `json:"name,omitempty"`
	CallID    string `json:"call_id,omitempty"`
	Arguments string `json:"arguments,omitempty"`
}

type streamPart struct {
	Type string `json:"type,omitempty"`
	Text string `json:"text,omitempty"`
}
