package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/0xfe/buddyx/internal/convo"
	"github.com/0xfe/buddyx/internal/tokens"
	"github.com/0xfe/buddyx/internal/transport"
)

// compactionMarker prefixes every synthetic summary turn so a reader (or a
// future compaction pass) can recognize it.
const compactionMarker = "[compacted summary]"

// keepLastTurns is the number of most-recent non-system turns compaction
// always preserves verbatim. Raised slightly above a bare tool_call/
// tool_result pair's minimum so a pair that spans more of the tail still
// survives compaction intact.
const keepLastTurns = 6

// Compact runs compaction unconditionally, regardless of current context
// usage, and reports a one-line summary of what happened for the runtime
// to surface as a Session::Compacted event.
func (l *Loop) Compact(ctx context.Context) (string, *Error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	before := len(l.history)
	if err := l.compact(ctx, tokens.AutoCompactTarget); err != nil {
		return "", err
	}
	return fmt.Sprintf("compacted %d turns down to %d", before, len(l.history)), nil
}

// compact preserves the system turn(s) and the last keepLastTurns turns,
// replaces everything older with one synthetic system summary, and resizes
// the tracker so the budget check sees the new, smaller context instead of
// lifetime usage.
func (l *Loop) compact(ctx context.Context, targetFraction float64) *Error {
	systemTurns, rest := splitSystemPrefix(l.history)

	if len(rest) <= keepLastTurns {
		return nil // nothing old enough to compact away
	}

	boundary := len(rest) - keepLastTurns
	toCompact := rest[:boundary]
	keep := rest[boundary:]

	summary, err := l.summarize(ctx, toCompact)
	if err != nil {
		return &Error{Kind: ErrTransport, Message: "compaction summary request failed", Cause: err}
	}

	marker := compactionMarker + " " + summary
	synthetic := convo.Message{Role: convo.RoleSystem, Content: &marker}

	newHistory := make([]convo.Message, 0, len(systemTurns)+1+len(keep))
	newHistory = append(newHistory, systemTurns...)
	newHistory = append(newHistory, synthetic)
	newHistory = append(newHistory, keep...)
	l.history = newHistory

	if l.tracker != nil {
		estimate := estimateMessages(l.history)
		floor := int64(targetFraction * float64(l.tracker.ContextLimit))
		if estimate < floor {
			estimate = floor
		}
		l.tracker.TotalPrompt = estimate
		l.tracker.TotalCompletion = 0
	}

	return nil
}

// splitSystemPrefix splits off the leading run of system-role turns.
func splitSystemPrefix(history []convo.Message) (system, rest []convo.Message) {
	i := 0
	for i < len(history) && history[i].Role == convo.RoleSystem {
		i++
	}
	return history[:i], history[i:]
}

// summarize asks the model to summarize a run of turns into one
// continuation-preserving paragraph via a single-shot ChatRequest.
func (l *Loop) summarize(ctx context.Context, turns []convo.Message) (string, error) {
	var b strings.Builder
	b.WriteString("Summarize the following conversation turns, preserving key decisions, files touched, and context needed to continue the task:\n\n")
	for _, t := range turns {
		text := ""
		if t.Content != nil {
			text = *t.Content
		}
		if text == "" {
			continue
		}
		b.WriteString(strings.ToUpper(t.Role))
		b.WriteString(": ")
		b.WriteString(text)
		b.WriteString("\n\n")
	}

	prompt := b.String()
	req := transport.ChatRequest{
		Model:     l.model,
		History:   []convo.Message{{Role: convo.RoleUser, Content: &prompt}},
		MaxTokens: 2000,
	}

	resp, err := l.transport.Chat(ctx, req)
	if err != nil {
		return "", err
	}
	if resp.Message.Content == nil {
		return "", nil
	}
	return *resp.Message.Content, nil
}
