package commands

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/0xfe/buddyx/internal/runtime"
)

// runREPL drives the default interactive loop: read a line from stdin,
// submit it as a SubmitPrompt command, print events until the task
// settles, repeat.
func runREPL(cmd *cobra.Command, args []string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

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

	if flagDangerouslyAutoApprove {
		rt.Submit(runtime.SetApprovalPolicy(runtime.PolicyAll()))
	}

	go rt.Run(ctx)

	taskDone := make(chan struct{}, 1)
	go runEventLoop(rt, interactiveApprove, func() {
		select {
		case taskDone <- struct{}{}:
		default:
		}
	})

	return replLoop(ctx, rt, taskDone)
}

// replLoop reads prompts from stdin and submits them one at a time, waiting
// for taskDone between each so the conversation stays single-turn even
// though Submit itself is fire-and-forget.
func replLoop(ctx context.Context, rt *runtime.Runtime, taskDone chan struct{}) error {
	fmt.Println("buddyx REPL. Type a prompt, or Ctrl-D to exit.")
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		line := scanner.Text()
		if line == "" {
			continue
		}
		if line == "/exit" || line == "/quit" {
			break
		}

		rt.Submit(runtime.SubmitPrompt(line))

		select {
		case <-taskDone:
		case <-ctx.Done():
			rt.Submit(runtime.Shutdown())
			return nil
		}
	}

	rt.Submit(runtime.Shutdown())
	return nil
}
