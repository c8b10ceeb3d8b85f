package agent_test

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/0xfe/buddyx/internal/agent"
	"github.com/0xfe/buddyx/internal/convo"
	"github.com/0xfe/buddyx/internal/tokens"
	"github.com/0xfe/buddyx/internal/tool"
	"github.com/0xfe/buddyx/internal/transport"
)

// Scenario B: a single tool round-trip, using the real built-in tool name
// "shell" (internal/tool/shell.go's ShellTool.Name()) so the mock stands in
// for the tool the registry would actually dispatch.
var _ = Describe("Scenario B: single tool round-trip", func() {
	It("dispatches one tool call and folds its result into the next turn", func() {
		var callRequested []string
		var toolResults []string

		listing := &scriptedTool{
			name: "shell",
			execute: func(ctx context.Context, argumentsJSON string, toolCtx *tool.Context) (*tool.Result, *tool.Error) {
				return &tool.Result{
					Output:   `{"exit_code":0,"stdout":"a\nb\n"}`,
					Metadata: map[string]any{"exit_code": 0, "stdout": "a\nb\n"},
				}, nil
			},
		}
		registry := tool.NewRegistry()
		registry.Register(listing)

		fake := &scriptedTransport{
			responses: []transport.ChatResponse{
				{
					Message: toolCallMsg(convo.ToolCall{
						ID:        "call-1",
						Name:      "shell",
						Arguments: `{"command":"ls /tmp","risk":"low","mutation":false,"privesc":false,"why":"inspect"}`,
					}),
					Usage: usage(10, 5),
				},
				{Message: textMsg("assistant", "Files: a, b."), Usage: usage(20, 4)},
			},
		}

		loop := agent.New(agent.Config{
			Transport: fake,
			Tools:     registry,
			Tracker:   tokens.New(8192),
			Model:     "mock-model",
			Hooks: agent.Hooks{
				OnToolCallRequested: func(callID, name, argumentsJSON string) {
					callRequested = append(callRequested, name)
				},
				OnToolResult: func(callID string, result *tool.Result, toolErr *tool.Error) {
					Expect(toolErr).To(BeNil())
					toolResults = append(toolResults, result.Output)
				},
			},
		})

		text, err := loop.Send(context.Background(), "What is in /tmp?")

		Expect(err).To(BeNil())
		Expect(text).To(Equal("Files: a, b."))
		Expect(fake.callCount()).To(Equal(2))

		Expect(callRequested).To(Equal([]string{"shell"}))
		Expect(toolResults).To(HaveLen(1))
		Expect(toolResults[0]).To(ContainSubstring(`"stdout":"a\nb\n"`))

		history := loop.History()
		var sawToolResult, sawFinalAssistant bool
		for _, m := range history {
			if m.Role == convo.RoleTool && m.ToolCallID == "call-1" {
				sawToolResult = true
			}
			if m.Role == convo.RoleAssistant && m.Content != nil && *m.Content == "Files: a, b." {
				sawFinalAssistant = true
			}
		}
		Expect(sawToolResult).To(BeTrue())
		Expect(sawFinalAssistant).To(BeTrue())
	})
})
