package commands

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var flagInitForce bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a starter profile file in the current directory",
	Long: `Write buddyx.json, a starter --config profile (model, base URL,
protocol) for this project. Run 'buddyx login <provider>' separately to
store an API key; init never touches credentials.`,
	RunE: runInit,
}

func init() {
	initCmd.Flags().BoolVar(&flagInitForce, "force", false, "Overwrite an existing profile file")
}

const initProfileFilename = "buddyx.json"

func runInit(cmd *cobra.Command, args []string) error {
	if _, err := os.Stat(initProfileFilename); err == nil && !flagInitForce {
		return fmt.Errorf("%s already exists (use --force to overwrite)", initProfileFilename)
	}

	starter := struct {
		ModelID  string `json:"model_id"`
		BaseURL  string `json:"base_url"`
		Protocol string `json:"protocol"`
	}{
		ModelID:  "anthropic/claude-sonnet-4-5",
		BaseURL:  "",
		Protocol: "completions",
	}

	data, err := json.MarshalIndent(starter, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')

	if err := os.WriteFile(initProfileFilename, data, 0644); err != nil {
		return fmt.Errorf("writing %s: %w", initProfileFilename, err)
	}

	fmt.Printf("Wrote %s. Edit it, then run 'buddyx --config %s' or 'buddyx login <provider>'.\n", initProfileFilename, initProfileFilename)
	return nil
}
