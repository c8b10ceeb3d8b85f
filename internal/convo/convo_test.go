package convo

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMessageRoundTripPreservesExtra(t *testing.T) {
	input := []byte(`{"role":"assistant","content":"hi","reasoning":{"summary":"thinking"},"cache_key":"abc"}`)

	var msg Message
	require.NoError(t, json.Unmarshal(input, &msg))

	out, err := json.Marshal(msg)
	require.NoError(t, err)

	var roundTripped map[string]any
	require.NoError(t, json.Unmarshal(out, &roundTripped))
	require.Equal(t, "thinking", roundTripped["reasoning"].(map[string]any)["summary"])
	require.Equal(t, "abc", roundTripped["cache_key"])
}

func TestSanitizeDropsEmptyAssistantTurn(t *testing.T) {
	txt := "  "
	history := []Message{
		{Role: RoleUser, Content: strPtr("hello")},
		{Role: RoleAssistant, Content: &txt},
	}

	out := Sanitize(history)
	require.Len(t, out, 1)
	require.Equal(t, RoleUser, out[0].Role)
}

func TestSanitizeKeepsAssistantToolCallTurn(t *testing.T) {
	empty := ""
	history := []Message{
		{Role: RoleAssistant, Content: &empty, ToolCalls: []ToolCall{{ID: "1", Name: "shell", Arguments: "{}"}}},
	}

	out := Sanitize(history)
	require.Len(t, out, 1)
	require.Len(t, out[0].ToolCalls, 1)
}

func TestSanitizeDropsInvalidToolCalls(t *testing.T) {
	txt := "go on"
	history := []Message{
		{Role: RoleAssistant, Content: &txt, ToolCalls: []ToolCall{
			{ID: "", Name: "shell"},
			{ID: "1", Name: "shell", Arguments: "{}"},
		}},
	}

	out := Sanitize(history)
	require.Len(t, out[0].ToolCalls, 1)
	require.Equal(t, "1", out[0].ToolCalls[0].ID)
}

func TestSanitizeIsIdempotent(t *testing.T) {
	txt := "hello"
	history := []Message{
		{Role: RoleUser, Content: &txt, Extra: ExtraBag{"x": json.RawMessage("null")}},
	}

	once := Sanitize(history)
	twice := Sanitize(once)

	oneJSON, _ := json.Marshal(once)
	twoJSON, _ := json.Marshal(twice)
	require.JSONEq(t, string(oneJSON), string(twoJSON))
}

func strPtr(s string) *string { return &s }
