package commands

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/0xfe/buddyx/internal/transport"
)

func resetFlags(t *testing.T) {
	t.Cleanup(func() {
		flagConfig = ""
		flagModel = ""
		flagBaseURL = ""
	})
}

func TestProviderIDOfSplitsOnSlash(t *testing.T) {
	assert.Equal(t, "anthropic", providerIDOf("anthropic/claude-sonnet-4-5"))
	assert.Equal(t, "openai", providerIDOf("openai/gpt-4o"))
}

func TestResolveProfileRequiresModel(t *testing.T) {
	resetFlags(t)
	t.Setenv("XDG_DATA_HOME", t.TempDir())

	_, err := resolveProfile()
	assert.Error(t, err)
}

func TestResolveProfileUsesModelFlagAndProviderDefaults(t *testing.T) {
	resetFlags(t)
	t.Setenv("XDG_DATA_HOME", t.TempDir())
	t.Setenv("ANTHROPIC_API_KEY", "sk-env-key")

	flagModel = "anthropic/claude-sonnet-4-5"

	profile, err := resolveProfile()
	require.NoError(t, err)
	assert.Equal(t, "anthropic/claude-sonnet-4-5", profile.ModelID)
	assert.Equal(t, providerBaseURLs["anthropic"], profile.BaseURL)
	assert.Equal(t, "sk-env-key", profile.APIKey)
	assert.Equal(t, transport.AuthAPIKey, profile.AuthMode)
	assert.Equal(t, transport.ProtocolCompletions, profile.Protocol)
}

func TestResolveProfileBaseURLFlagOverridesProviderDefault(t *testing.T) {
	resetFlags(t)
	t.Setenv("XDG_DATA_HOME", t.TempDir())
	t.Setenv("ANTHROPIC_API_KEY", "sk-env-key")

	flagModel = "anthropic/claude-sonnet-4-5"
	flagBaseURL = "https://custom.example.com/v1"

	profile, err := resolveProfile()
	require.NoError(t, err)
	assert.Equal(t, "https://custom.example.com/v1", profile.BaseURL)
}

func TestResolveProfilePrefersStoredKeyOverEnv(t *testing.T) {
	resetFlags(t)
	t.Setenv("XDG_DATA_HOME", t.TempDir())
	t.Setenv("ANTHROPIC_API_KEY", "sk-env-key")

	require.NoError(t, saveAuth(&Auth{Providers: map[string]AuthProvider{
		"anthropic": {APIKey: "sk-stored-key"},
	}}))

	flagModel = "anthropic/claude-sonnet-4-5"

	profile, err := resolveProfile()
	require.NoError(t, err)
	assert.Equal(t, "sk-stored-key", profile.APIKey)
}
