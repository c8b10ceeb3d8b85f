// Package commands provides the CLI commands for buddyx.
package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/0xfe/buddyx/internal/logging"
)

var (
	// Version information set at build time.
	Version   = "0.1.0"
	BuildTime = "dev"
)

// Global flags shared by every subcommand.
var (
	flagConfig                 string
	flagModel                  string
	flagBaseURL                string
	flagContainer              string
	flagSSH                    string
	flagTmux                   string
	flagNoColor                bool
	flagDangerouslyAutoApprove bool
	flagPrintLogs              bool
	flagLogLevel               string
)

var rootCmd = &cobra.Command{
	Use:   "buddyx",
	Short: "buddyx - terminal AI coding agent",
	Long: `buddyx drives an OpenAI-compatible chat model through a tool-using
conversation loop, mediating interactive approval for dangerous operations
and executing shell/file/HTTP/tmux tool calls across pluggable execution
backends.

Run 'buddyx' with no subcommand to start an interactive REPL.`,
	Version: Version,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logCfg := logging.Config{
			Level:   logging.ParseLevel(flagLogLevel),
			Output:  os.Stderr,
			Pretty:  flagPrintLogs,
			NoColor: flagNoColor,
		}
		if !flagPrintLogs {
			logCfg.Level = logging.FatalLevel
		}
		logging.Init(logCfg)
	},
	RunE: runREPL,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "Path to a profile file")
	rootCmd.PersistentFlags().StringVarP(&flagModel, "model", "m", "", "Model id (provider/model format)")
	rootCmd.PersistentFlags().StringVar(&flagBaseURL, "base-url", "", "Provider API base URL")
	rootCmd.PersistentFlags().StringVar(&flagContainer, "container", "", "Run tool execution inside this container")
	rootCmd.PersistentFlags().StringVar(&flagSSH, "ssh", "", "Run tool execution over SSH to this host")
	rootCmd.PersistentFlags().StringVar(&flagTmux, "tmux", "", "Run tool execution through a managed tmux session (any non-empty value enables it; the value is not used as the session name)")
	rootCmd.PersistentFlags().BoolVar(&flagNoColor, "no-color", false, "Disable colored output")
	rootCmd.PersistentFlags().BoolVar(&flagDangerouslyAutoApprove, "dangerously-auto-approve", false, "Auto-approve every shell confirmation (exec and repl)")
	rootCmd.PersistentFlags().BoolVar(&flagPrintLogs, "print-logs", false, "Print logs to stderr")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "INFO", "Log level (DEBUG|INFO|WARN|ERROR)")

	rootCmd.SetVersionTemplate(fmt.Sprintf("buddyx %s (%s)\n", Version, BuildTime))

	rootCmd.AddCommand(execCmd)
	rootCmd.AddCommand(resumeCmd)
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(loginCmd)
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
