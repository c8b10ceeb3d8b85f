package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"

	"github.com/0xfe/buddyx/internal/runtime"
)

var execCmd = &cobra.Command{
	Use:   "exec [prompt...]",
	Short: "Run a single prompt to completion and exit",
	Long: `Run one prompt non-interactively and print its result.

Because there is no interactive channel to resolve shell-confirmation
requests, exec mode fails closed: any tool call that needs approval is
denied unless --dangerously-auto-approve is given.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runExec,
}

func runExec(cmd *cobra.Command, args []string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	prompt := strings.Join(args, " ")

	workDir, err := os.Getwd()
	if err != nil {
		return err
	}

	profile, err := resolveProfile()
	if err != nil {
		return err
	}

	execCtx, err := buildExecContext(ctx, workDir)
	if err != nil {
		return fmt.Errorf("setting up execution backend: %w", err)
	}
	defer execCtx.Close()

	rt, err := buildRuntime(ctx, profile, execCtx, workDir)
	if err != nil {
		return fmt.Errorf("starting runtime: %w", err)
	}

	// Fail closed: deny every shell confirmation unless explicitly
	// overridden, since there is no REPL to ask interactively.
	if flagDangerouslyAutoApprove {
		rt.Submit(runtime.SetApprovalPolicy(runtime.PolicyAll()))
	} else {
		rt.Submit(runtime.SetApprovalPolicy(runtime.PolicyNone()))
	}

	go rt.Run(ctx)

	done := make(chan struct{})
	go func() {
		runEventLoop(rt, func(string) bool { return flagDangerouslyAutoApprove }, func() {
			select {
			case done <- struct{}{}:
			default:
			}
		})
	}()

	rt.Submit(runtime.SubmitPrompt(prompt))

	select {
	case <-done:
	case <-ctx.Done():
	}

	rt.Submit(runtime.Shutdown())
	return nil
}
