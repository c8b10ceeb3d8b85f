package config

import (
	"github.com/0xfe/buddyx/internal/transport"
)

// Profile is the resolved model/provider connection a caller hands to the
// core to start or resume an agent session. It carries only what
// transport.Client and tokens.Tracker actually consume — no tool
// allowlists, themes, or sharing settings, since those belong to the
// file-loading layer this package deliberately does not provide.
type Profile struct {
	// ModelID names the model a transport.Client request targets, in
	// "provider/model" shape (e.g. "anthropic/claude-sonnet-4").
	ModelID string

	// BaseURL is the provider's API root, e.g. "https://api.anthropic.com/v1".
	BaseURL string

	// Protocol selects which wire shape (completions vs. responses) the
	// provider speaks.
	Protocol transport.Protocol

	// AuthMode selects how the transport resolves a bearer token: a
	// static API key, or an interactive/device login flow.
	AuthMode transport.AuthMode

	// APIKey is used when AuthMode == transport.AuthAPIKey.
	APIKey string

	// ContextWindowOverride, when positive, wins over the built-in model
	// catalog when resolving a session's context limit (tokens.ContextLimitFor).
	ContextWindowOverride int64

	// ForceStream mirrors transport.Config's login-auth streaming
	// requirement for Codex-class backends.
	ForceStream bool
}

// Validate reports the first structural problem with the profile, or nil.
func (p Profile) Validate() error {
	if p.ModelID == "" {
		return &Error{Kind: ErrMissingModel, Message: "profile has no model id"}
	}
	if p.BaseURL == "" {
		return &Error{Kind: ErrMissingBaseURL, Message: "profile has no base URL"}
	}
	if p.Protocol != transport.ProtocolCompletions && p.Protocol != transport.ProtocolResponses {
		return &Error{Kind: ErrInvalidProtocol, Message: "profile protocol must be completions or responses"}
	}
	if p.AuthMode == transport.AuthAPIKey && p.APIKey == "" {
		return &Error{Kind: ErrMissingAPIKey, Message: "profile uses api-key auth but has no key"}
	}
	return nil
}

// TransportConfig builds a transport.Config from this profile. systemPrompt
// is supplied by the caller since it is a per-agent, not per-profile, concern.
func (p Profile) TransportConfig(systemPrompt string) transport.Config {
	var auth *transport.Auth
	if p.AuthMode != "" {
		auth = &transport.Auth{Mode: p.AuthMode, APIKey: p.APIKey}
	}
	return transport.Config{
		BaseURL:      p.BaseURL,
		Protocol:     p.Protocol,
		Auth:         auth,
		ForceStream:  p.ForceStream,
		SystemPrompt: systemPrompt,
	}
}
