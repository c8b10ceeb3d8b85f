package agent_test

import (
	"context"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/0xfe/buddyx/internal/convo"
	"github.com/0xfe/buddyx/internal/runtime"
	"github.com/0xfe/buddyx/internal/tokens"
	"github.com/0xfe/buddyx/internal/tool"
	"github.com/0xfe/buddyx/internal/transport"
)

// approvalRequiredTool calls through toolCtx.Approval before reporting
// success, exercising the runtime's single-writer broker handoff
// (internal/runtime/broker.go) the same way internal/tool/shell.go does.
type approvalRequiredTool struct{ name string }

func (a *approvalRequiredTool) Name() string { return a.name }
func (a *approvalRequiredTool) Definition() tool.Definition {
	return tool.Definition{Name: a.name, Description: "requires approval before running"}
}
func (a *approvalRequiredTool) Execute(ctx context.Context, argumentsJSON string, toolCtx *tool.Context) (*tool.Result, *tool.Error) {
	if err := toolCtx.Approval.RequestApproval(ctx, "run "+a.name, nil); err != nil {
		return nil, tool.Denied(err.Error())
	}
	return &tool.Result{Output: `{"ok":true}`}, nil
}

func drainUntil(rt *runtime.Runtime, family runtime.EventFamily, name string, timeout time.Duration) runtime.Envelope {
	deadline := time.After(timeout)
	for {
		select {
		case env := <-rt.Events():
			if env.Event.Family == family && env.Event.Name == name {
				return env
			}
		case <-deadline:
			Fail("timed out waiting for " + string(family) + "::" + name)
		}
	}
}

// Scenario D: approval ask/approve. Under the runtime's default Ask policy,
// a tool call that requires approval blocks with a WaitingApproval event
// until the frontend submits an Approve command; only then does the tool
// execute and the task complete. This maps directly onto
// runtime.Runtime's WaitingApproval/Approve contract, so it drives
// runtime.Runtime itself rather than agent.Loop.
var _ = Describe("Scenario D: approval ask/approve", func() {
	It("holds the task at WaitingApproval until Approve is submitted, then completes", func() {
		registry := tool.NewRegistry()
		registry.Register(&approvalRequiredTool{name: "risky_write"})

		fake := &scriptedTransport{
			responses: []transport.ChatResponse{
				{Message: toolCallMsg(convo.ToolCall{ID: "call-1", Name: "risky_write", Arguments: "{}"})},
				{Message: textMsg("assistant", "all done")},
			},
		}

		rt := runtime.New(runtime.Config{
			Transport: fake,
			Tools:     registry,
			Tracker:   tokens.New(100000),
			Model:     "mock-model",
		})

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		go rt.Run(ctx)

		rt.Submit(runtime.SubmitPrompt("do the risky thing"))

		started := drainUntil(rt, runtime.FamilyTask, "Started", 2*time.Second)
		Expect(started.Event.TaskID).NotTo(BeEmpty())

		waiting := drainUntil(rt, runtime.FamilyTask, "WaitingApproval", 2*time.Second)
		approvalID, ok := waiting.Event.Data["approval_id"].(runtime.ApprovalID)
		Expect(ok).To(BeTrue())
		Expect(waiting.Event.Data["summary"]).To(Equal("run risky_write"))

		rt.Submit(runtime.Approve(approvalID, true))

		completed := drainUntil(rt, runtime.FamilyTask, "Completed", 2*time.Second)
		Expect(completed.Event.TaskID).To(Equal(started.Event.TaskID))
		Expect(completed.Event.Data["text"]).To(Equal("all done"))
	})
})
