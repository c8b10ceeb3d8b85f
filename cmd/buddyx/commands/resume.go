package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/0xfe/buddyx/internal/runtime"
)

var flagResumeLast bool

var resumeCmd = &cobra.Command{
	Use:   "resume [session-id]",
	Short: "Resume a persisted session and continue the REPL",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runResume,
}

func init() {
	resumeCmd.Flags().BoolVar(&flagResumeLast, "last", false, "Resume the most recently saved session")
}

func runResume(cmd *cobra.Command, args []string) error {
	if !flagResumeLast && len(args) == 0 {
		return fmt.Errorf("session id required, or pass --last")
	}

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

	go rt.Run(ctx)

	taskDone := make(chan struct{}, 1)
	go runEventLoop(rt, interactiveApprove, func() {
		select {
		case taskDone <- struct{}{}:
		default:
		}
	})

	if flagResumeLast {
		rt.Submit(runtime.SessionResumeLast())
	} else {
		rt.Submit(runtime.SessionResume(runtime.SessionID(args[0])))
	}

	return replLoop(ctx, rt, taskDone)
}
