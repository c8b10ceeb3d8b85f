package exec

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"

	"github.com/oklog/ulid/v2"
)

// SSHContext owns a persistent multiplexed control connection, established
// at startup and released on Close. All commands run through
// `ssh -S <socket>` so they reuse the one authenticated connection instead
// of re-handshaking per call.
type SSHContext struct {
	Host       string
	socketPath string
	mu         sync.Mutex
	started    bool
}

func NewSSHContext(ctx context.Context, host string) (*SSHContext, error) {
	dir, err := os.MkdirTemp("", "buddy-ssh-")
	if err != nil {
		return nil, err
	}
	c := &SSHContext{Host: host, socketPath: filepath.Join(dir, "control-"+strings.ToLower(ulid.Make().String())+".sock")}
	if err := c.startControl(ctx); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *SSHContext) startControl(ctx context.Context) error {
	cmd := exec.CommandContext(ctx, "ssh", "-M", "-N", "-f",
		"-o", "ControlMaster=yes",
		"-o", "ControlPersist=yes",
		"-S", c.socketPath,
		c.Host)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("establishing ssh control connection to %s: %w: %s", c.Host, err, stderr.String())
	}
	c.started = true
	return nil
}

func (c *SSHContext) run(ctx context.Context, args ...string) (string, string, int, error) {
	full := append([]string{"-S", c.socketPath, c.Host}, args...)
	cmd := exec.CommandContext(ctx, "ssh", full...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	exitCode := 0
	if cmd.ProcessState != nil {
		exitCode = cmd.ProcessState.ExitCode()
	}
	if err != nil {
		if _, ok := err.(*exec.ExitError); !ok {
			return stdout.String(), stderr.String(), exitCode, err
		}
	}
	return stdout.String(), stderr.String(), exitCode, nil
}

func (c *SSHContext) RunShellCommand(ctx context.Context, command string, wait Wait, stdin string) (ExecOutput, error) {
	if wait.Mode == WaitNone {
		return ExecOutput{}, &ErrNotSupported{Backend: "ssh", Operation: "wait=false (no shared pane)"}
	}

	runCtx := ctx
	var cancel context.CancelFunc
	if wait.Mode == WaitTimeout && wait.Timeout > 0 {
		runCtx, cancel = context.WithTimeout(ctx, wait.Timeout)
		defer cancel()
	}

	args := []string{command}
	full := append([]string{"-S", c.socketPath, c.Host}, args...)
	cmd := exec.CommandContext(runCtx, "ssh", full...)
	if stdin != "" {
		cmd.Stdin = strings.NewReader(stdin)
	}
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	exitCode := 0
	if cmd.ProcessState != nil {
		exitCode = cmd.ProcessState.ExitCode()
	}

	out := ExecOutput{Stdout: stdout.String(), Stderr: stderr.String(), Combined: stdout.String() + stderr.String(), ExitCode: exitCode}
	if runCtx.Err() != nil {
		out.TimedOut = true
		return out, fmt.Errorf("command timed out after %s", wait.Timeout)
	}
	if err != nil {
		if _, ok := err.(*exec.ExitError); !ok {
			return out, err
		}
	}
	return out, nil
}

func (c *SSHContext) ReadFile(ctx context.Context, path string) (string, error) {
	stdout, stderr, exitCode, err := c.run(ctx, "cat", "--", shellQuote(path))
	if err != nil {
		return "", err
	}
	if exitCode != 0 {
		return "", fmt.Errorf("cat %s: exit %d: %s", path, exitCode, stderr)
	}
	return stdout, nil
}

func (c *SSHContext) WriteFile(ctx context.Context, path, text string) (int, error) {
	full := []string{"-S", c.socketPath, c.Host, fmt.Sprintf("cat > %s", shellQuote(path))}
	cmd := exec.CommandContext(ctx, "ssh", full...)
	cmd.Stdin = strings.NewReader(text)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return 0, fmt.Errorf("write %s: %w: %s", path, err, stderr.String())
	}
	return len(text), nil
}

func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

func (c *SSHContext) CapturePane(ctx context.Context, opts CapturePaneOptions) (string, error) {
	return "", &ErrNotSupported{Backend: "ssh", Operation: "capture-pane"}
}

func (c *SSHContext) SendKeys(ctx context.Context, opts SendKeysOptions) error {
	return &ErrNotSupported{Backend: "ssh", Operation: "send-keys"}
}

func (c *SSHContext) Summary() string { return fmt.Sprintf("ssh control connection to %s", c.Host) }

func (c *SSHContext) AttachInfoOf() *AttachInfo { return nil }

func (c *SSHContext) CapturePaneAvailable() bool { return false }

func (c *SSHContext) CaptureStartupExistingTmuxPane() (string, bool) { return "", false }

// Close fires a control-exit command and best-effort removes the socket
// file, releasing the control connection this context owns.
func (c *SSHContext) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.started {
		return nil
	}
	_ = exec.Command("ssh", "-S", c.socketPath, "-O", "exit", c.Host).Run()
	_ = os.Remove(c.socketPath)
	c.started = false
	return nil
}
