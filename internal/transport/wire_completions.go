package transport

import (
	"encoding/json"

	"github.com/0xfe/buddyx/internal/convo"
)

// The completions-protocol wire shapes: the normalized Message already
// round-trips through this wire verbatim, so the request/response
// envelopes are thin.

type completionsRequest struct {
	Model    string              `json:"model"`
	Messages []convo.Message     `json:"messages"`
	Tools    []completionsTool   `json:"tools,omitempty"`
}

type completionsTool struct {
	Type     string               `json:"type"`
	Function completionsFunction  `json:"function"`
}

type completionsFunction struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Parameters  json.RawMessage `json:"parameters,omitempty"`
}

func toCompletionsTools(tools []ToolDefinition) []completionsTool {
	if len(tools) == 0 {
		return nil
	}
	out := make([]completionsTool, 0, len(tools))
	for _, t := range tools {
		out = append(out, completionsTool{Type: "function", Function: completionsFunction{
			Name: t.Name, Description: t.Description, Parameters: t.Parameters,
		}})
	}
	return out
}

type completionsResponse struct {
	Choices []completionsChoice   `json:"choices"`
	Usage   *completionsUsage     `json:"usage"`
}

type completionsChoice struct {
	Message convo.Message `json:"message"`
}

type completionsUsage struct {
	PromptTokens     int64 `json:"prompt_tokens"`
	CompletionTokens int64 `json:"completion_tokens"`
	TotalTokens      int64 `json:"total_tokens"`
}
