package agent_test

import (
	"context"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/0xfe/buddyx/internal/agent"
	"github.com/0xfe/buddyx/internal/convo"
	"github.com/0xfe/buddyx/internal/tokens"
	"github.com/0xfe/buddyx/internal/transport"
)

// Scenario E: context hard-limit. History usage sits at 97% of the context
// limit before a new turn; one compaction attempt runs, and if the
// post-compaction estimate remains above the 95% hard limit
// (internal/agent/loop.go's enforceContextBudget, internal/tokens.
// HardLimitThreshold), Send fails closed with ErrContextLimit instead of
// calling the model. Error.Message reports the usage percentage
// ("context usage still at %.0f%% of %d tokens after compaction"); this
// spec asserts on that real Kind/Message shape.
var _ = Describe("Scenario E: context hard-limit", func() {
	It("attempts one compaction and fails closed if still over the hard limit", func() {
		limit := int64(2000)
		tracker := tokens.New(limit)
		tracker.TotalPrompt = int64(float64(limit) * 0.97) // pre-seed at 97% to trip the hard-limit check

		fake := &scriptedTransport{
			responses: []transport.ChatResponse{
				{Message: textMsg("assistant", "short summary of old turns"), Usage: usage(5, 5)},
			},
		}

		loop := agent.New(agent.Config{
			Transport: fake,
			Tracker:   tracker,
			Model:     "mock-model",
		})

		// Seed history with filler turns (compacted away) followed by a tail
		// of oversized turns that keepLastTurns preserves verbatim, so the
		// post-compaction estimate computed from real kept content still
		// exceeds the hard limit regardless of the target-fraction floor
		// compact() clamps to (internal/agent/compact.go's compact).
		var seeded []convo.Message
		filler := "short filler turn"
		for i := 0; i < 20; i++ {
			seeded = append(seeded, convo.Message{Role: convo.RoleUser, Content: &filler})
		}
		big := strings.Repeat("x", 2000)
		for i := 0; i < 5; i++ {
			seeded = append(seeded, convo.Message{Role: convo.RoleAssistant, Content: &big})
		}
		loop.ReplaceHistory(seeded)

		text, err := loop.Send(context.Background(), "continue")

		Expect(text).To(Equal(""))
		Expect(err).NotTo(BeNil())
		Expect(err.Kind).To(Equal(agent.ErrContextLimit))
		Expect(err.Message).To(ContainSubstring("after compaction"))

		// Only the compaction summary call happened; the main turn never
		// reached the model once the post-compaction estimate still failed
		// the hard-limit check.
		Expect(fake.callCount()).To(Equal(1))
	})
})
