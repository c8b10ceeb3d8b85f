package tokens

import "strings"

// catalogRule is one entry in the context-window catalog. Match is tried in
// order: Exact, then Prefix, then Contains, so a more specific rule never
// loses to a broader one earlier in the table.
type catalogRule struct {
	kind  matchKind
	match string
	limit int64
}

type matchKind int

const (
	matchExact matchKind = iota
	matchPrefix
	matchContains
)

// catalog is a static table of known model context windows, spanning the
// model families in common use across providers rather than scoped to one.
var catalog = []catalogRule{
	{matchExact, "gpt-5", 400000},
	{matchPrefix, "gpt-5-mini", 400000},
	{matchPrefix, "gpt-5-nano", 400000},
	{matchPrefix, "gpt-4o", 128000},
	{matchPrefix, "gpt-4-turbo", 128000},
	{matchExact, "gpt-4", 8192},
	{matchPrefix, "o1-mini", 128000},
	{matchPrefix, "o1", 200000},
	{matchPrefix, "o3", 200000},
	{matchPrefix, "claude-opus-4", 200000},
	{matchPrefix, "claude-sonnet-4", 200000},
	{matchPrefix, "claude-3-7-sonnet", 200000},
	{matchPrefix, "claude-3-5-sonnet", 200000},
	{matchPrefix, "claude-3-5-haiku", 200000},
	{matchPrefix, "claude-3-opus", 200000},
	{matchContains, "gemini-1.5-pro", 2000000},
	{matchContains, "gemini-2", 1000000},
	{matchContains, "llama-3.1", 128000},
	{matchContains, "mixtral", 32768},
	{matchContains, "deepseek", 64000},
}

// NormalizeModelID strips provider-qualifier prefixes ("openai/gpt-4o") and
// common variant suffixes (":free", ":beta", "-latest") before catalog
// lookup.
func NormalizeModelID(modelID string) string {
	if idx := strings.LastIndex(modelID, "/"); idx >= 0 {
		modelID = modelID[idx+1:]
	}
	for _, suffix := range []string{":free", ":beta", ":extended", "-latest"} {
		if strings.HasSuffix(modelID, suffix) {
			modelID = strings.TrimSuffix(modelID, suffix)
		}
	}
	return modelID
}

// ContextLimitFor resolves a context window: explicit profile override wins,
// then the catalog (exact, prefix, contains), then FallbackContextLimit.
func ContextLimitFor(modelID string, profileOverride int64) int64 {
	if profileOverride > 0 {
		return profileOverride
	}

	normalized := NormalizeModelID(modelID)
	lower := strings.ToLower(normalized)

	for _, r := range catalog {
		if r.kind == matchExact && lower == r.match {
			return r.limit
		}
	}
	for _, r := range catalog {
		if r.kind == matchPrefix && strings.HasPrefix(lower, r.match) {
			return r.limit
		}
	}
	for _, r := range catalog {
		if r.kind == matchContains && strings.Contains(lower, r.match) {
			return r.limit
		}
	}
	return FallbackContextLimit
}
