package agent_test

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/0xfe/buddyx/internal/agent"
	"github.com/0xfe/buddyx/internal/tokens"
	"github.com/0xfe/buddyx/internal/transport"
)

// Scenario A: a plain response with no tool calls. internal/runtime emits
// Task::Completed with a "text" field and tracks usage through
// internal/tokens.Tracker rather than a standalone token-usage event, so
// this spec drives agent.Loop directly and asserts on its real return value
// and tracker state.
var _ = Describe("Scenario A: plain response", func() {
	It("returns the assistant text verbatim and records usage", func() {
		fake := &scriptedTransport{
			responses: []transport.ChatResponse{
				{Message: textMsg("assistant", "OK"), Usage: usage(3, 1)},
			},
		}
		tracker := tokens.New(8192)
		loop := agent.New(agent.Config{
			Transport: fake,
			Tracker:   tracker,
			Model:     "mock-model",
		})

		text, err := loop.Send(context.Background(), "Reply with exactly OK.")

		Expect(err).To(BeNil())
		Expect(text).To(Equal("OK"))
		Expect(fake.callCount()).To(Equal(1))

		Expect(tracker.TotalPrompt).To(Equal(int64(3)))
		Expect(tracker.TotalCompletion).To(Equal(int64(1)))
		Expect(tracker.EstimatedUsage()).To(Equal(int64(4)))

		history := loop.History()
		Expect(history).To(HaveLen(2))
		Expect(history[0].Role).To(Equal("user"))
		Expect(*history[0].Content).To(Equal("Reply with exactly OK."))
		Expect(history[1].Role).To(Equal("assistant"))
		Expect(*history[1].Content).To(Equal("OK"))
	})
})
