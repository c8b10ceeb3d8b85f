package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/0xfe/buddyx/internal/agent"
	"github.com/0xfe/buddyx/internal/config"
	"github.com/0xfe/buddyx/internal/exec"
	"github.com/0xfe/buddyx/internal/runtime"
	"github.com/0xfe/buddyx/internal/sessionstore"
	"github.com/0xfe/buddyx/internal/tokens"
	"github.com/0xfe/buddyx/internal/tool"
	"github.com/0xfe/buddyx/internal/transport"
)

const defaultSystemPrompt = "You are buddyx, a terminal AI coding agent. Use the available tools to read, edit, and run code."

// providerEnvKeys maps a provider id to the environment variable its API
// key is read from when no --config profile file or logged-in credential
// exists.
var providerEnvKeys = map[string]string{
	"anthropic": "ANTHROPIC_API_KEY",
	"openai":    "OPENAI_API_KEY",
	"google":    "GOOGLE_API_KEY",
}

var providerBaseURLs = map[string]string{
	"anthropic": "https://api.anthropic.com/v1",
	"openai":    "https://api.openai.com/v1",
	"google":    "https://generativelanguage.googleapis.com/v1beta/openai",
}

// resolveProfile builds a config.Profile from --config (a JSON profile
// file), then layers --model/--base-url overrides, then resolves the API
// key from the stored auth file or the provider's environment variable.
func resolveProfile() (config.Profile, error) {
	var profile config.Profile

	if flagConfig != "" {
		data, err := os.ReadFile(flagConfig)
		if err != nil {
			return config.Profile{}, fmt.Errorf("reading --config: %w", err)
		}
		var wire struct {
			ModelID  string `json:"model_id"`
			BaseURL  string `json:"base_url"`
			Protocol string `json:"protocol"`
			APIKey   string `json:"api_key"`
		}
		if err := json.Unmarshal(data, &wire); err != nil {
			return config.Profile{}, fmt.Errorf("parsing --config: %w", err)
		}
		profile.ModelID = wire.ModelID
		profile.BaseURL = wire.BaseURL
		profile.APIKey = wire.APIKey
		if wire.Protocol != "" {
			profile.Protocol = transport.Protocol(wire.Protocol)
		}
	}

	if flagModel != "" {
		profile.ModelID = flagModel
	}
	if flagBaseURL != "" {
		profile.BaseURL = flagBaseURL
	}
	if profile.Protocol == "" {
		profile.Protocol = transport.ProtocolCompletions
	}
	if profile.ModelID == "" {
		return config.Profile{}, fmt.Errorf("no model specified: pass --model or --config")
	}

	providerID := providerIDOf(profile.ModelID)
	if profile.BaseURL == "" {
		profile.BaseURL = providerBaseURLs[providerID]
	}
	if profile.APIKey == "" {
		if key, ok := lookupStoredKey(providerID); ok {
			profile.APIKey = key
		} else if envVar, ok := providerEnvKeys[providerID]; ok {
			profile.APIKey = os.Getenv(envVar)
		}
	}
	profile.AuthMode = transport.AuthAPIKey

	return profile, nil
}

func providerIDOf(modelID string) string {
	parts := strings.SplitN(modelID, "/", 2)
	return parts[0]
}

// buildExecContext picks an execution backend from --container/--ssh/--tmux:
// container+tmux, container alone, ssh+tmux, ssh alone, local tmux, or a
// plain local context when none of the flags are set.
func buildExecContext(ctx context.Context, workDir string) (exec.Context, error) {
	switch {
	case flagContainer != "" && flagTmux != "":
		return exec.NewContainerTmuxContext(ctx, flagContainer, "buddyx")
	case flagContainer != "":
		return exec.NewContainerContext(ctx, flagContainer)
	case flagSSH != "" && flagTmux != "":
		return exec.NewSSHTmuxContext(ctx, flagSSH, "buddyx")
	case flagSSH != "":
		return exec.NewSSHContext(ctx, flagSSH)
	case flagTmux != "":
		return exec.NewLocalTmuxContext(ctx, "buddyx")
	default:
		return exec.NewLocalContext(workDir), nil
	}
}

// buildRuntime wires a profile, execution backend, and working directory
// into a runtime.Runtime: provider client first, then the tool registry,
// then the runtime itself.
func buildRuntime(ctx context.Context, profile config.Profile, execCtx exec.Context, workDir string) (*runtime.Runtime, error) {
	if err := profile.Validate(); err != nil {
		return nil, err
	}

	client := transport.NewClient(profile.TransportConfig(defaultSystemPrompt))

	toolReg := tool.DefaultRegistry(tool.BuiltinDeps{})

	contextLimit := tokens.ContextLimitFor(profile.ModelID, profile.ContextWindowOverride)
	tracker := tokens.New(contextLimit)

	agentProfiles := agent.BuiltInProfiles()
	buildProfile := agentProfiles["build"]

	if err := ensureDataDir(); err != nil {
		return nil, fmt.Errorf("preparing session storage: %w", err)
	}
	store := sessionstore.New(sessionDir())

	cfg := runtime.Config{
		Transport:     client,
		Tools:         toolReg,
		Tracker:       tracker,
		Exec:          execCtx,
		Model:         profile.ModelID,
		SystemPrompt:  defaultSystemPrompt,
		MaxIterations: agent.DefaultMaxIterations,
		Profile:       buildProfile,
		AgentName:     "build",
		Store:         store,
		SwitchModel: func(modelID string) error {
			p := profile
			p.ModelID = modelID
			return p.Validate()
		},
	}

	return runtime.New(cfg), nil
}

func lookupStoredKey(providerID string) (string, bool) {
	auth, err := loadAuth()
	if err != nil || auth.Providers == nil {
		return "", false
	}
	p, ok := auth.Providers[providerID]
	if !ok || p.APIKey == "" {
		return "", false
	}
	return p.APIKey, true
}
