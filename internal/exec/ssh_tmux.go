package exec

import "context"

// SSHTmuxContext runs tmux on the remote host over the same control
// connection an SSHContext owns, giving the ssh backend capture-pane/
// send-keys/wait=false and attach visibility.
type SSHTmuxContext struct {
	inner  *SSHContext
	target string
}

func NewSSHTmuxContext(ctx context.Context, host, agentName string) (*SSHTmuxContext, error) {
	inner, err := NewSSHContext(ctx, host)
	if err != nil {
		return nil, err
	}
	session := "buddy-" + agentName
	window := "work"
	if _, _, _, err := inner.run(ctx, "tmux", "has-session", "-t", session); err != nil {
		if _, _, exitCode, err := inner.run(ctx, "tmux", "new-session", "-d", "-s", session, "-n", window); err != nil || exitCode != 0 {
			return nil, err
		}
	}
	return &SSHTmuxContext{inner: inner, target: session + ":" + window + ".0"}, nil
}

func (c *SSHTmuxContext) RunShellCommand(ctx context.Context, command string, wait Wait, stdin string) (ExecOutput, error) {
	if _, _, _, err := c.inner.run(ctx, "tmux", "send-keys", "-t", c.target, command, "Enter"); err != nil {
		return ExecOutput{}, err
	}
	if wait.Mode == WaitNone {
		return ExecOutput{Dispatched: true, AdviceNote: "command dispatched without waiting; poll with capture-pane"}, nil
	}
	out, err := c.CapturePane(ctx, CapturePaneOptions{StartLine: "-50", EndLine: "-", JoinWrapped: true})
	if err != nil {
		return ExecOutput{}, err
	}
	return ExecOutput{Stdout: out, Combined: out}, nil
}

func (c *SSHTmuxContext) ReadFile(ctx context.Context, path string) (string, error) {
	return c.inner.ReadFile(ctx, path)
}

func (c *SSHTmuxContext) WriteFile(ctx context.Context, path, text string) (int, error) {
	return c.inner.WriteFile(ctx, path, text)
}

func (c *SSHTmuxContext) CapturePane(ctx context.Context, opts CapturePaneOptions) (string, error) {
	args := []string{"tmux", "capture-pane", "-p", "-t", c.target}
	if opts.StartLine != "" {
		args = append(args, "-S", opts.StartLine)
	}
	if opts.EndLine != "" {
		args = append(args, "-E", opts.EndLine)
	}
	if opts.JoinWrapped {
		args = append(args, "-J")
	}
	stdout, _, _, err := c.inner.run(ctx, args...)
	return stdout, err
}

func (c *SSHTmuxContext) SendKeys(ctx context.Context, opts SendKeysOptions) error {
	if opts.LiteralText != "" {
		if _, _, _, err := c.inner.run(ctx, "tmux", "send-keys", "-t", c.target, "-l", opts.LiteralText); err != nil {
			return err
		}
	}
	for _, key := range opts.Keys {
		if _, _, _, err := c.inner.run(ctx, "tmux", "send-keys", "-t", c.target, key); err != nil {
			return err
		}
	}
	if opts.Enter {
		_, _, _, err := c.inner.run(ctx, "tmux", "send-keys", "-t", c.target, "Enter")
		return err
	}
	return nil
}

func (c *SSHTmuxContext) Summary() string {
	return "ssh tmux-on-remote session on " + c.inner.Host
}

func (c *SSHTmuxContext) AttachInfoOf() *AttachInfo {
	return &AttachInfo{Kind: "tmux", Target: c.target}
}

func (c *SSHTmuxContext) CapturePaneAvailable() bool { return true }

func (c *SSHTmuxContext) CaptureStartupExistingTmuxPane() (string, bool) {
	out, err := c.CapturePane(context.Background(), CapturePaneOptions{StartLine: "-", EndLine: "-", JoinWrapped: true})
	if err != nil {
		return "", false
	}
	return out, true
}

func (c *SSHTmuxContext) Close() error { return c.inner.Close() }
