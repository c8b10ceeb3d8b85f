package commands

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var (
	flagLoginCheck bool
	flagLoginReset bool
)

var loginCmd = &cobra.Command{
	Use:   "login [provider]",
	Short: "Store or check a provider API key",
	Long: `Store an API key for a provider so future runs don't need an
environment variable set.

Supported providers:
  anthropic    Anthropic (Claude)
  openai       OpenAI (GPT-4, etc.)
  google       Google AI (Gemini)`,
	Args: cobra.MaximumNArgs(1),
	RunE: runLogin,
}

func init() {
	loginCmd.Flags().BoolVar(&flagLoginCheck, "check", false, "Report configured providers without prompting")
	loginCmd.Flags().BoolVar(&flagLoginReset, "reset", false, "Remove a stored credential")
}

// Auth is the on-disk credential store, one entry per provider.
type Auth struct {
	Providers map[string]AuthProvider `json:"providers"`
}

type AuthProvider struct {
	APIKey string `json:"apiKey,omitempty"`
}

func runLogin(cmd *cobra.Command, args []string) error {
	if flagLoginCheck {
		return runLoginCheck()
	}

	if len(args) == 0 {
		return fmt.Errorf("provider name required, e.g. buddyx login anthropic")
	}
	provider := args[0]

	if flagLoginReset {
		return runLoginReset(provider)
	}

	fmt.Printf("Enter API key for %s: ", provider)
	reader := bufio.NewReader(os.Stdin)
	apiKey, err := reader.ReadString('\n')
	if err != nil {
		return err
	}
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return fmt.Errorf("API key cannot be empty")
	}

	auth, _ := loadAuth()
	if auth.Providers == nil {
		auth.Providers = make(map[string]AuthProvider)
	}
	auth.Providers[provider] = AuthProvider{APIKey: apiKey}

	if err := saveAuth(auth); err != nil {
		return fmt.Errorf("saving credentials: %w", err)
	}

	fmt.Printf("Stored credentials for %s\n", provider)
	return nil
}

func runLoginCheck() error {
	auth, _ := loadAuth()

	fmt.Println("Provider status:")
	for provider, envVar := range providerEnvKeys {
		status := "not configured"
		if os.Getenv(envVar) != "" {
			status = fmt.Sprintf("configured (via %s)", envVar)
		}
		if auth.Providers != nil {
			if p, ok := auth.Providers[provider]; ok && p.APIKey != "" {
				status = "configured (via login)"
			}
		}
		fmt.Printf("  %-12s %s\n", provider, status)
	}
	fmt.Printf("\nCredential file: %s\n", authPath())
	return nil
}

func runLoginReset(provider string) error {
	auth, err := loadAuth()
	if err != nil || auth.Providers == nil {
		return fmt.Errorf("not logged in to %s", provider)
	}
	if _, ok := auth.Providers[provider]; !ok {
		return fmt.Errorf("not logged in to %s", provider)
	}
	delete(auth.Providers, provider)
	if err := saveAuth(auth); err != nil {
		return fmt.Errorf("saving credentials: %w", err)
	}
	fmt.Printf("Removed credentials for %s\n", provider)
	return nil
}

func loadAuth() (*Auth, error) {
	data, err := os.ReadFile(authPath())
	if err != nil {
		return &Auth{Providers: make(map[string]AuthProvider)}, err
	}
	var auth Auth
	if err := json.Unmarshal(data, &auth); err != nil {
		return &Auth{Providers: make(map[string]AuthProvider)}, err
	}
	if auth.Providers == nil {
		auth.Providers = make(map[string]AuthProvider)
	}
	return &auth, nil
}

func saveAuth(auth *Auth) error {
	data, err := json.MarshalIndent(auth, "", "  ")
	if err != nil {
		return err
	}
	if err := ensureDataDir(); err != nil {
		return err
	}
	return os.WriteFile(authPath(), data, 0600)
}
