// Package tokens implements exact/heuristic token accounting and the
// context-window catalog lookup used to size compaction and enforce the
// hard context limit.
package tokens

import (
	"encoding/json"
	"math"
)

// Thresholds, as fractions of the context limit.
const (
	WarnThreshold       = 0.80
	AutoCompactTarget   = 0.82
	HardLimitThreshold  = 0.95
	ManualCompactTarget = 0.70
)

// FallbackContextLimit is used when no catalog entry or profile override matches.
const FallbackContextLimit = 8192

// Tracker accumulates token usage for one agent session. All counters are
// non-negative 64-bit and use saturating addition so a pathological
// provider response can never overflow or panic the tracker.
type Tracker struct {
	ContextLimit    int64
	TotalPrompt     int64
	TotalCompletion int64
	LastPrompt      int64
	LastCompletion  int64
}

// New returns a Tracker for the given context limit.
func New(contextLimit int64) *Tracker {
	if contextLimit <= 0 {
		contextLimit = FallbackContextLimit
	}
	return &Tracker{ContextLimit: contextLimit}
}

// Record saturating-adds a turn's usage into the running totals.
func (t *Tracker) Record(prompt, completion int64) {
	t.LastPrompt = prompt
	t.LastCompletion = completion
	t.TotalPrompt = saturatingAdd(t.TotalPrompt, prompt)
	t.TotalCompletion = saturatingAdd(t.TotalCompletion, completion)
}

func saturatingAdd(a, b int64) int64 {
	if b > 0 && a > math.MaxInt64-b {
		return math.MaxInt64
	}
	if b < 0 && a < math.MinInt64-b {
		return math.MinInt64
	}
	return a + b
}

// EstimatedUsage returns the estimated total tokens currently represented by
// the tracker (prompt + completion totals).
func (t *Tracker) EstimatedUsage() int64 {
	return saturatingAdd(t.TotalPrompt, t.TotalCompletion)
}

// Fraction returns EstimatedUsage as a fraction of ContextLimit.
func (t *Tracker) Fraction() float64 {
	if t.ContextLimit <= 0 {
		return 0
	}
	return float64(t.EstimatedUsage()) / float64(t.ContextLimit)
}

// ExceedsWarn, ExceedsAutoCompact, ExceedsHardLimit report threshold crossings.
func (t *Tracker) ExceedsWarn() bool        { return t.Fraction() > WarnThreshold }
func (t *Tracker) ExceedsAutoCompact() bool { return t.Fraction() > AutoCompactTarget }
func (t *Tracker) ExceedsHardLimit() bool   { return t.Fraction() > HardLimitThreshold }

// EstimateMessageTokens implements the no-usage heuristic: ceil(chars/4) + 4
// framing tokens, including any Extra JSON in the character count so
// provider metadata does not underflow the estimate.
func EstimateMessageTokens(text string, extra map[string]json.RawMessage) int64 {
	chars := len([]rune(text))
	for _, v := range extra {
		chars += len(v)
	}
	return int64(math.Ceil(float64(chars)/4.0)) + 4
}

// Snapshot is the persisted form of a Tracker (part of AgentSessionSnapshot).
type Snapshot struct {
	ContextLimit    int64 `json:"context_limit"`
	TotalPrompt     int64 `json:"total_prompt"`
	TotalCompletion int64 `json:"total_completion"`
	LastPrompt      int64 `json:"last_prompt"`
	LastCompletion  int64 `json:"last_completion"`
}

// ToSnapshot and FromSnapshot convert to/from the persisted form.
func (t *Tracker) ToSnapshot() Snapshot {
	return Snapshot{
		ContextLimit:    t.ContextLimit,
		TotalPrompt:     t.TotalPrompt,
		TotalCompletion: t.TotalCompletion,
		LastPrompt:      t.LastPrompt,
		LastCompletion:  t.LastCompletion,
	}
}

func FromSnapshot(s Snapshot) *Tracker {
	return &Tracker{
		ContextLimit:    s.ContextLimit,
		TotalPrompt:     s.TotalPrompt,
		TotalCompletion: s.TotalCompletion,
		LastPrompt:      s.LastPrompt,
		LastCompletion:  s.LastCompletion,
	}
}
