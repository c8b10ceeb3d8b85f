package exec

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// ContainerContext runs commands via the container engine's exec facility.
// The engine identity (docker vs podman) is auto-detected by probing its
// version output; both engines take the same "-i" interactive-stdin flag
// that write_file needs.
type ContainerContext struct {
	Engine      string // "docker" or "podman"
	Container   string
	interactive string // "-i" for docker, "-i" for podman too, but kept distinct for clarity/extension
}

// NewContainerContext probes for a usable engine binary and returns a
// context bound to the named container.
func NewContainerContext(ctx context.Context, container string) (*ContainerContext, error) {
	engine, err := detectEngine(ctx)
	if err != nil {
		return nil, err
	}
	return &ContainerContext{Engine: engine, Container: container, interactive: "-i"}, nil
}

func detectEngine(ctx context.Context) (string, error) {
	for _, candidate := range []string{"docker", "podman"} {
		cmd := exec.CommandContext(ctx, candidate, "version", "--format", "{{.Server.Version}}")
		if err := cmd.Run(); err == nil {
			return candidate, nil
		}
		// podman's `version --format` differs; a non-zero exit from the
		// format probe still confirms the binary exists and responds.
		if _, lookErr := exec.LookPath(candidate); lookErr == nil {
			if probe := exec.CommandContext(ctx, candidate, "version"); probe.Run() == nil {
				return candidate, nil
			}
		}
	}
	return "", fmt.Errorf("no usable container engine found (tried docker, podman)")
}

func (c *ContainerContext) execRun(ctx context.Context, interactive bool, args ...string) (string, string, int, error) {
	full := []string{"exec"}
	if interactive {
		full = append(full, c.interactive)
	}
	full = append(full, c.Container)
	full = append(full, args...)

	cmd := exec.CommandContext(ctx, c.Engine, full...)
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

func (c *ContainerContext) RunShellCommand(ctx context.Context, command string, wait Wait, stdin string) (ExecOutput, error) {
	if wait.Mode == WaitNone {
		return ExecOutput{}, &ErrNotSupported{Backend: "container", Operation: "wait=false (no shared pane)"}
	}

	runCtx := ctx
	var cancel context.CancelFunc
	if wait.Mode == WaitTimeout && wait.Timeout > 0 {
		runCtx, cancel = context.WithTimeout(ctx, wait.Timeout)
		defer cancel()
	}

	args := []string{"sh", "-c", command}
	stdout, stderr, exitCode, err := c.execRun(runCtx, stdin != "", args...)
	out := ExecOutput{Stdout: stdout, Stderr: stderr, Combined: stdout + stderr, ExitCode: exitCode}
	if runCtx.Err() != nil {
		out.TimedOut = true
		return out, fmt.Errorf("command timed out after %s", wait.Timeout)
	}
	return out, err
}

// ReadFile/WriteFile use exec-cat: `engine exec <c> cat <path>` to read,
// and `engine exec -i <c> sh -c 'cat > path'` fed on stdin to write.
func (c *ContainerContext) ReadFile(ctx context.Context, path string) (string, error) {
	stdout, stderr, exitCode, err := c.execRun(ctx, false, "cat", "--", path)
	if err != nil {
		return "", err
	}
	if exitCode != 0 {
		return "", fmt.Errorf("cat %s: exit %d: %s", path, exitCode, stderr)
	}
	return stdout, nil
}

func (c *ContainerContext) WriteFile(ctx context.Context, path, text string) (int, error) {
	full := []string{"exec", c.interactive, c.Container, "sh", "-c", fmt.Sprintf("cat > %q", path)}
	cmd := exec.CommandContext(ctx, c.Engine, full...)
	cmd.Stdin = strings.NewReader(text)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return 0, fmt.Errorf("write %s: %w: %s", path, err, stderr.String())
	}
	return len(text), nil
}

func (c *ContainerContext) CapturePane(ctx context.Context, opts CapturePaneOptions) (string, error) {
	return "", &ErrNotSupported{Backend: "container", Operation: "capture-pane"}
}

func (c *ContainerContext) SendKeys(ctx context.Context, opts SendKeysOptions) error {
	return &ErrNotSupported{Backend: "container", Operation: "send-keys"}
}

func (c *ContainerContext) Summary() string {
	return fmt.Sprintf("%s exec into container %s", c.Engine, c.Container)
}

func (c *ContainerContext) AttachInfoOf() *AttachInfo { return nil }

func (c *ContainerContext) CapturePaneAvailable() bool { return false }

func (c *ContainerContext) CaptureStartupExistingTmuxPane() (string, bool) { return "", false }

func (c *ContainerContext) Close() error { return nil }
