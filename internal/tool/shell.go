package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/0xfe/buddyx/internal/exec"
	"github.com/0xfe/buddyx/internal/permission"
)

const shellOutputBudget = 4 * 1024

const shellDescription = `Runs a shell command against the active execution backend.

Safety metadata is required on every call: risk (low|medium|high), mutation
(whether the command changes state), privesc (whether it attempts privilege
escalation), and a non-empty why explaining the call. wait controls blocking:
true blocks until completion, false dispatches and returns immediately (only
valid on tmux-backed backends), and a positive integer or duration string
("500ms", "10m") blocks up to that timeout.`

// ShellTool is the "shell" built-in.
type ShellTool struct {
	denylist []string
}

func NewShellTool(denylist []string) *ShellTool {
	return &ShellTool{denylist: denylist}
}

func (t *ShellTool) Name() string { return "shell" }

func (t *ShellTool) Definition() Definition {
	return Definition{
		Name:        t.Name(),
		Description: shellDescription,
		Parameters: json.RawMessage(`{
			"type": "object",
			"properties": {
				"command": {"type": "string"},
				"risk": {"type": "string", "enum": ["low", "medium", "high"]},
				"mutation": {"type": "boolean"},
				"privesc": {"type": "boolean"},
				"why": {"type": "string"},
				"wait": {},
				"stdin": {"type": "string"}
			},
			"required": ["command", "risk", "mutation", "privesc", "why"]
		}`),
	}
}

type shellInput struct {
	Command  string      `json:"command"`
	Risk     string      `json:"risk"`
	Mutation bool        `json:"mutation"`
	Privesc  bool        `json:"privesc"`
	Why      string      `json:"why"`
	Wait     interface{} `json:"wait,omitempty"`
	Stdin    string      `json:"stdin,omitempty"`
}

func (t *ShellTool) Execute(ctx context.Context, argumentsJSON string, toolCtx *Context) (*Result, *Error) {
	var in shellInput
	if err := json.Unmarshal([]byte(argumentsJSON), &in); err != nil {
		return nil, InvalidArguments("malformed shell arguments: " + err.Error())
	}
	if in.Command == "" {
		return nil, InvalidArguments("command is required")
	}
	if in.Risk != "low" && in.Risk != "medium" && in.Risk != "high" {
		return nil, InvalidArguments("risk must be one of low, medium, high")
	}
	if strings.TrimSpace(in.Why) == "" {
		return nil, InvalidArguments("why must be non-empty")
	}

	for _, blocked := range t.denylist {
		if blocked != "" && strings.Contains(in.Command, blocked) {
			return nil, Denied(fmt.Sprintf("command matches denylist entry %q", blocked))
		}
	}

	// Cross-check the model's self-reported risk/mutation flags against the
	// parsed command, so a call under-declaring itself (risk=low on an rm)
	// still surfaces as dangerous to the approval broker.
	if parsed, err := permission.ParseBashCommand(in.Command); err == nil {
		for _, c := range parsed {
			if permission.IsDangerousCommand(c.Name) {
				in.Mutation = true
				if in.Risk == "low" {
					in.Risk = "medium"
				}
				break
			}
		}
	}

	wait, werr := parseWait(in.Wait)
	if werr != nil {
		return nil, InvalidArguments(werr.Error())
	}

	if toolCtx == nil || toolCtx.Exec == nil {
		return nil, ExecutionFailed("no execution backend configured")
	}

	if wait.Mode == exec.WaitNone && !toolCtx.Exec.CapturePaneAvailable() {
		return nil, InvalidArguments("wait=false is only valid on tmux-backed execution contexts")
	}

	if toolCtx.Approval != nil {
		summary := fmt.Sprintf("run shell command (risk=%s mutation=%v privesc=%v): %s", in.Risk, in.Mutation, in.Privesc, in.Command)
		if err := toolCtx.Approval.RequestApproval(ctx, summary, map[string]any{
			"command": in.Command, "risk": in.Risk, "mutation": in.Mutation, "privesc": in.Privesc, "why": in.Why,
		}); err != nil {
			return nil, Denied(err.Error())
		}
	}

	toolCtx.emit(StreamStarted, in.Command)
	if toolCtx.cancelled() {
		return nil, ExecutionFailed("cancelled before dispatch")
	}

	out, err := toolCtx.Exec.RunShellCommand(ctx, in.Command, wait, in.Stdin)
	if err != nil {
		toolCtx.emit(StreamInfo, err.Error())
		return nil, ExecutionFailed(err.Error())
	}

	stdout := truncateUTF8Safe(out.Stdout, shellOutputBudget)
	stderr := truncateUTF8Safe(out.Stderr, shellOutputBudget)
	if stdout != "" {
		toolCtx.emit(StreamStdoutChunk, stdout)
	}
	if stderr != "" {
		toolCtx.emit(StreamStderrChunk, stderr)
	}
	toolCtx.emit(StreamCompleted, "")

	payload := map[string]any{
		"stdout":      stdout,
		"stderr":      stderr,
		"exit_code":   out.ExitCode,
		"timed_out":   out.TimedOut,
		"dispatched":  out.Dispatched,
		"advice_note": out.AdviceNote,
	}
	body, _ := json.Marshal(payload)
	return &Result{Output: string(body), Metadata: payload}, nil
}

func parseWait(raw interface{}) (exec.Wait, error) {
	switch v := raw.(type) {
	case nil:
		return exec.Wait{Mode: exec.WaitBlock}, nil
	case bool:
		if v {
			return exec.Wait{Mode: exec.WaitBlock}, nil
		}
		return exec.Wait{Mode: exec.WaitNone}, nil
	case float64:
		if v <= 0 {
			return exec.Wait{}, fmt.Errorf("wait seconds must be positive")
		}
		return exec.Wait{Mode: exec.WaitTimeout, Timeout: time.Duration(v) * time.Second}, nil
	case string:
		if n, err := strconv.Atoi(v); err == nil {
			if n <= 0 {
				return exec.Wait{}, fmt.Errorf("wait seconds must be positive")
			}
			return exec.Wait{Mode: exec.WaitTimeout, Timeout: time.Duration(n) * time.Second}, nil
		}
		d, err := time.ParseDuration(v)
		if err != nil {
			return exec.Wait{}, fmt.Errorf("unparseable wait duration %q", v)
		}
		if d <= 0 {
			return exec.Wait{}, fmt.Errorf("wait duration must be positive")
		}
		return exec.Wait{Mode: exec.WaitTimeout, Timeout: d}, nil
	default:
		return exec.Wait{}, fmt.Errorf("unsupported wait value type")
	}
}

// truncateUTF8Safe truncates s to at most budget bytes, never splitting a
// multi-byte UTF-8 rune.
func truncateUTF8Safe(s string, budget int) string {
	if len(s) <= budget {
		return s
	}
	cut := budget
	for cut > 0 && s[cut]&0xC0 == 0x80 {
		cut--
	}
	return s[:cut] + "\n(truncated)"
}
