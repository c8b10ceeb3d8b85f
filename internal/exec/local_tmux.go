package exec

import (
	"context"
	"fmt"
	"os"

	"github.com/0xfe/buddyx/internal/tmuxproto"
)

// LocalTmuxContext mediates all shell commands through a managed, shared
// tmux pane: shell runs are tmux-mediated, files go through backend
// commands (a cat read, and a cp from a local temp file for writes), and
// capture-pane/send-keys/wait=false are all available because a
// real pane exists to poll and attach to.
type LocalTmuxContext struct {
	Session string
	Window  string
	target  string
}

// NewLocalTmuxContext ensures the managed pane exists and installs the
// prompt marker before first use.
func NewLocalTmuxContext(ctx context.Context, agentName string) (*LocalTmuxContext, error) {
	session := "buddy-" + agentName
	window := "work"
	target, _, err := tmuxproto.EnsurePane(ctx, session, window, "buddy-work")
	if err != nil {
		return nil, err
	}
	return &LocalTmuxContext{Session: session, Window: window, target: target}, nil
}

func (c *LocalTmuxContext) RunShellCommand(ctx context.Context, command string, wait Wait, stdin string) (ExecOutput, error) {
	res, err := tmuxproto.RunCommand(ctx, c.target, command, toTmuxWait(wait), stdin)
	if err != nil {
		return ExecOutput{}, err
	}
	return ExecOutput{
		Stdout:     res.Output,
		Combined:   res.Output,
		ExitCode:   res.ExitCode,
		Dispatched: res.Dispatched,
		AdviceNote: res.AdviceNote,
	}, nil
}

func (c *LocalTmuxContext) ReadFile(ctx context.Context, path string) (string, error) {
	out, err := c.RunShellCommand(ctx, fmt.Sprintf("cat -- %q", path), Wait{Mode: WaitBlock}, "")
	if err != nil {
		return "", err
	}
	if out.ExitCode != 0 {
		return "", fmt.Errorf("cat %s: exit %d: %s", path, out.ExitCode, out.Combined)
	}
	return out.Combined, nil
}

func (c *LocalTmuxContext) WriteFile(ctx context.Context, path, text string) (int, error) {
	tmp, err := os.CreateTemp("", "buddy-write-*")
	if err != nil {
		return 0, err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.WriteString(text); err != nil {
		tmp.Close()
		return 0, err
	}
	tmp.Close()

	out, err := c.RunShellCommand(ctx, fmt.Sprintf("cp -- %q %q", tmp.Name(), path), Wait{Mode: WaitBlock}, "")
	if err != nil {
		return 0, err
	}
	if out.ExitCode != 0 {
		return 0, fmt.Errorf("write %s: exit %d: %s", path, out.ExitCode, out.Combined)
	}
	return len(text), nil
}

func (c *LocalTmuxContext) CapturePane(ctx context.Context, opts CapturePaneOptions) (string, error) {
	return tmuxproto.CapturePane(ctx, c.target, toTmuxCaptureOpts(opts))
}

func (c *LocalTmuxContext) SendKeys(ctx context.Context, opts SendKeysOptions) error {
	return tmuxproto.SendKeys(ctx, c.target, toTmuxSendKeysOpts(opts))
}

func (c *LocalTmuxContext) Summary() string {
	return fmt.Sprintf("local tmux-mediated execution in pane %s", c.target)
}

func (c *LocalTmuxContext) AttachInfoOf() *AttachInfo {
	return &AttachInfo{Kind: "tmux", Target: c.target}
}

func (c *LocalTmuxContext) CapturePaneAvailable() bool { return true }

func (c *LocalTmuxContext) CaptureStartupExistingTmuxPane() (string, bool) {
	text, err := tmuxproto.CapturePane(context.Background(), c.target, tmuxproto.CaptureOptions{StartLine: "-", EndLine: "-", JoinWrapped: true})
	if err != nil {
		return "", false
	}
	return text, true
}

// Close does not tear down the managed session; it is shared and
// long-lived, owned by the agent name rather than one execution context.
func (c *LocalTmuxContext) Close() error { return nil }
