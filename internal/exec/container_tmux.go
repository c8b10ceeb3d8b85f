package exec

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// ContainerTmuxContext runs a tmux session inside the container and talks
// to it through `engine exec <c> tmux ...`, giving the container backend
// capture-pane/send-keys/wait=false and attach visibility, unlike the plain
// container backend.
type ContainerTmuxContext struct {
	inner  *ContainerContext
	target string
}

func NewContainerTmuxContext(ctx context.Context, container, agentName string) (*ContainerTmuxContext, error) {
	inner, err := NewContainerContext(ctx, container)
	if err != nil {
		return nil, err
	}
	c := &ContainerTmuxContext{inner: inner}
	target, _, err := c.ensurePane(ctx, agentName)
	if err != nil {
		return nil, err
	}
	c.target = target
	return c, nil
}

func (c *ContainerTmuxContext) tmux(ctx context.Context, args ...string) (string, error) {
	full := append([]string{"exec", c.inner.Container, "tmux"}, args...)
	cmd := exec.CommandContext(ctx, c.inner.Engine, full...)
	var out, errb bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &errb
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("%s exec tmux %s: %w: %s", c.inner.Engine, strings.Join(args, " "), err, errb.String())
	}
	return out.String(), nil
}

func (c *ContainerTmuxContext) ensurePane(ctx context.Context, agentName string) (string, bool, error) {
	session := "buddy-" + agentName
	window := "work"
	if _, err := c.tmux(ctx, "has-session", "-t", session); err != nil {
		if _, err := c.tmux(ctx, "new-session", "-d", "-s", session, "-n", window); err != nil {
			return "", false, err
		}
	}
	return session + ":" + window + ".0", true, nil
}

func (c *ContainerTmuxContext) RunShellCommand(ctx context.Context, command string, wait Wait, stdin string) (ExecOutput, error) {
	if _, err := c.tmux(ctx, "send-keys", "-t", c.target, command, "Enter"); err != nil {
		return ExecOutput{}, err
	}
	if wait.Mode == WaitNone {
		return ExecOutput{Dispatched: true, AdviceNote: "command dispatched without waiting; poll with capture-pane"}, nil
	}
	// Minimal settle-and-capture; full marker polling lives in tmuxproto
	// for backends that can install a prompt hook directly. The
	// containerized tmux session here is treated as best-effort visibility
	// rather than a marker-tracked pane.
	out, err := c.CapturePane(ctx, CapturePaneOptions{StartLine: "-50", EndLine: "-", JoinWrapped: true})
	if err != nil {
		return ExecOutput{}, err
	}
	return ExecOutput{Stdout: out, Combined: out}, nil
}

func (c *ContainerTmuxContext) ReadFile(ctx context.Context, path string) (string, error) {
	return c.inner.ReadFile(ctx, path)
}

func (c *ContainerTmuxContext) WriteFile(ctx context.Context, path, text string) (int, error) {
	return c.inner.WriteFile(ctx, path, text)
}

func (c *ContainerTmuxContext) CapturePane(ctx context.Context, opts CapturePaneOptions) (string, error) {
	args := []string{"capture-pane", "-p", "-t", c.target}
	if opts.StartLine != "" {
		args = append(args, "-S", opts.StartLine)
	}
	if opts.EndLine != "" {
		args = append(args, "-E", opts.EndLine)
	}
	if opts.JoinWrapped {
		args = append(args, "-J")
	}
	return c.tmux(ctx, args...)
}

func (c *ContainerTmuxContext) SendKeys(ctx context.Context, opts SendKeysOptions) error {
	if opts.LiteralText != "" {
		if _, err := c.tmux(ctx, "send-keys", "-t", c.target, "-l", opts.LiteralText); err != nil {
			return err
		}
	}
	for _, key := range opts.Keys {
		if _, err := c.tmux(ctx, "send-keys", "-t", c.target, key); err != nil {
			return err
		}
	}
	if opts.Enter {
		_, err := c.tmux(ctx, "send-keys", "-t", c.target, "Enter")
		return err
	}
	return nil
}

func (c *ContainerTmuxContext) Summary() string {
	return fmt.Sprintf("%s exec tmux in container %s", c.inner.Engine, c.inner.Container)
}

func (c *ContainerTmuxContext) AttachInfoOf() *AttachInfo {
	return &AttachInfo{Kind: "tmux", Target: c.target}
}

func (c *ContainerTmuxContext) CapturePaneAvailable() bool { return true }

func (c *ContainerTmuxContext) CaptureStartupExistingTmuxPane() (string, bool) {
	out, err := c.CapturePane(context.Background(), CapturePaneOptions{StartLine: "-", EndLine: "-", JoinWrapped: true})
	if err != nil {
		return "", false
	}
	return out, true
}

func (c *ContainerTmuxContext) Close() error { return nil }
