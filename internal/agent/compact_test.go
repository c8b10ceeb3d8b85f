package agent

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/0xfe/buddyx/internal/convo"
	"github.com/0xfe/buddyx/internal/tokens"
	"github.com/0xfe/buddyx/internal/transport"
)

func TestCompactPreservesSystemTurnAndLastTurns(t *testing.T) {
	ft := &fakeTransport{
		responses: []transport.ChatResponse{
			{Message: textMsg(convo.RoleAssistant, "summary of the old turns")},
		},
	}
	tracker := tokens.New(1000)

	l := New(Config{Transport: ft, Tracker: tracker, SystemPrompt: "system base"})
	for i := 0; i < 20; i++ {
		l.history = append(l.history, textMsg(convo.RoleUser, "turn"))
	}
	beforeLen := len(l.history)

	err := l.compact(context.Background(), tokens.AutoCompactTarget)
	require.Nil(t, err)

	assert.Less(t, len(l.history), beforeLen)
	assert.Equal(t, convo.RoleSystem, l.history[0].Role)
	assert.Contains(t, *l.history[0].Content, "system base")

	require.Len(t, l.history, 1+1+keepLastTurns)
	assert.Equal(t, convo.RoleSystem, l.history[1].Role)
	assert.True(t, strings.HasPrefix(*l.history[1].Content, compactionMarker))
	assert.Contains(t, *l.history[1].Content, "summary of the old turns")
}

func TestCompactNoopWhenHistoryShort(t *testing.T) {
	ft := &fakeTransport{}
	l := New(Config{Transport: ft, SystemPrompt: "base"})
	l.history = append(l.history, textMsg(convo.RoleUser, "one turn"))

	before := len(l.history)
	err := l.compact(context.Background(), tokens.AutoCompactTarget)
	require.Nil(t, err)
	assert.Equal(t, before, len(l.history))
	assert.Equal(t, 0, ft.calls)
}

func TestCompactResetsTrackerToPostCompactionEstimate(t *testing.T) {
	ft := &fakeTransport{
		responses: []transport.ChatResponse{
			{Message: textMsg(convo.RoleAssistant, "short summary")},
		},
	}
	tracker := tokens.New(1000)
	tracker.Record(2000, 0) // lifetime usage far exceeds context_limit

	l := New(Config{Transport: ft, Tracker: tracker, SystemPrompt: "base"})
	for i := 0; i < 20; i++ {
		l.history = append(l.history, textMsg(convo.RoleUser, "turn"))
	}

	err := l.compact(context.Background(), tokens.AutoCompactTarget)
	require.Nil(t, err)

	assert.Less(t, tracker.TotalPrompt+tracker.TotalCompletion, int64(2000))
	assert.Equal(t, int64(0), tracker.TotalCompletion)
}

func TestSplitSystemPrefix(t *testing.T) {
	history := []convo.Message{
		textMsg(convo.RoleSystem, "sys1"),
		textMsg(convo.RoleSystem, "sys2"),
		textMsg(convo.RoleUser, "u1"),
		textMsg(convo.RoleAssistant, "a1"),
	}

	system, rest := splitSystemPrefix(history)
	assert.Len(t, system, 2)
	assert.Len(t, rest, 2)
}
