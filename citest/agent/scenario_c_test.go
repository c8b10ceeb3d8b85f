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

// Scenario C: cancellation mid-tool-batch. Two tool calls are requested in
// one assistant turn; cancellation fires right after the first completes.
// The cancellation trigger lives in the OnToolResult hook for the first
// call, which runs synchronously inside runToolBatch right after that
// call's result is appended and right before the batch loop advances to the
// second call's cancellation check, making the interleaving deterministic
// without a goroutine/timing race.
var _ = Describe("Scenario C: cancellation mid-tool-batch", func() {
	It("keeps the first tool's real result and synthesizes a cancelled result for the rest", func() {
		ctx, cancel := context.WithCancel(context.Background())

		first := &scriptedTool{
			name: "first_tool",
			execute: func(ctx context.Context, argumentsJSON string, toolCtx *tool.Context) (*tool.Result, *tool.Error) {
				return &tool.Result{Output: `{"ok":true}`}, nil
			},
		}
		second := &scriptedTool{
			name: "second_tool",
			execute: func(ctx context.Context, argumentsJSON string, toolCtx *tool.Context) (*tool.Result, *tool.Error) {
				Fail("second tool must not execute once cancellation has fired")
				return nil, nil
			},
		}
		registry := tool.NewRegistry()
		registry.Register(first)
		registry.Register(second)

		fake := &scriptedTransport{
			responses: []transport.ChatResponse{
				{
					Message: toolCallMsg(
						convo.ToolCall{ID: "call-1", Name: "first_tool", Arguments: `{}`},
						convo.ToolCall{ID: "call-2", Name: "second_tool", Arguments: `{}`},
					),
					Usage: usage(10, 5),
				},
			},
		}

		loop := agent.New(agent.Config{
			Transport: fake,
			Tools:     registry,
			Tracker:   tokens.New(8192),
			Model:     "mock-model",
			Hooks: agent.Hooks{
				OnToolResult: func(callID string, result *tool.Result, toolErr *tool.Error) {
					if callID == "call-1" {
						cancel()
					}
				},
			},
		})

		text, err := loop.Send(ctx, "run both tools")

		Expect(err).To(BeNil())
		Expect(text).To(Equal("operation cancelled by user"))
		Expect(fake.callCount()).To(Equal(1), "no further model turn is requested after cancellation")

		history := loop.History()
		Expect(history).To(HaveLen(4)) // user, assistant(tool_calls), tool(call-1), tool(call-2)

		toolTurns := history[2:]
		Expect(toolTurns[0].ToolCallID).To(Equal("call-1"))
		Expect(*toolTurns[0].Content).To(ContainSubstring(`"ok":true`)) // wrapped in tool.Envelope, not raw
		Expect(toolTurns[1].ToolCallID).To(Equal("call-2"))
		Expect(*toolTurns[1].Content).To(Equal("operation cancelled by user"))

		Expect(history[len(history)-1].Role).To(Equal(convo.RoleTool), "no assistant turn follows the cancellation")
	})
})
