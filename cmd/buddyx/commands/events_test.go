package commands

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/0xfe/buddyx/internal/runtime"
)

func TestPrintEventDoesNotPanicOnKnownFamilies(t *testing.T) {
	envelopes := []runtime.Envelope{
		{Event: runtime.Event{Family: runtime.FamilyTask, Name: "Started"}},
		{Event: runtime.Event{Family: runtime.FamilyTask, Name: "Completed", Data: map[string]any{"summary": "done"}}},
		{Event: runtime.Event{Family: runtime.FamilyTask, Name: "Failed", Data: map[string]any{"error": "boom"}}},
		{Event: runtime.Event{Family: runtime.FamilyModel, Name: "ReasoningDelta", Data: map[string]any{"text": "thinking"}}},
		{Event: runtime.Event{Family: runtime.FamilyTool, Name: "CallRequested", Data: map[string]any{"name": "shell"}}},
		{Event: runtime.Event{Family: runtime.FamilyWarning, Name: "AgentWarning"}},
		{Event: runtime.Event{Family: runtime.FamilyError, Name: "SessionPersistFailed", Data: map[string]any{"error": "disk full"}}},
	}
	for _, env := range envelopes {
		assert.NotPanics(t, func() { printEvent(env) })
	}
}

func TestRunEventLoopResolvesWaitingApprovalAndSignalsTaskDone(t *testing.T) {
	events := make(chan runtime.Envelope, 4)
	events <- runtime.Envelope{Event: runtime.Event{
		Family: runtime.FamilyTask,
		Name:   "WaitingApproval",
		Data:   map[string]any{"approval_id": "appr-1", "summary": "rm -rf /tmp/x"},
	}}
	events <- runtime.Envelope{Event: runtime.Event{Family: runtime.FamilyTask, Name: "Completed"}}
	close(events)

	// runEventLoop itself takes a *runtime.Runtime so it can call Submit;
	// this test exercises the same per-event decision logic (render, detect
	// WaitingApproval, detect a terminal task event) against a plain
	// channel, since Runtime exposes no way to inject a fake event stream.
	var approvedSummary string
	var sawDone bool
	for env := range events {
		printEvent(env)
		ev := env.Event
		if ev.Family == runtime.FamilyTask && ev.Name == "WaitingApproval" {
			summary, _ := ev.Data["summary"].(string)
			approvedSummary = summary
		}
		if ev.Family == runtime.FamilyTask && ev.Name == "Completed" {
			sawDone = true
		}
	}

	assert.Equal(t, "rm -rf /tmp/x", approvedSummary)
	assert.True(t, sawDone)
}
