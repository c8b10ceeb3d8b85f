package tool

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/0xfe/buddyx/internal/exec"
)

type fakeExec struct {
	lastCommand  string
	lastWait     exec.Wait
	out          exec.ExecOutput
	err          error
	capturePane  bool
	capturedText string
}

func (f *fakeExec) RunShellCommand(ctx context.Context, command string, wait exec.Wait, stdin string) (exec.ExecOutput, error) {
	f.lastCommand = command
	f.lastWait = wait
	return f.out, f.err
}
func (f *fakeExec) ReadFile(ctx context.Context, path string) (string, error)        { return "", nil }
func (f *fakeExec) WriteFile(ctx context.Context, path, text string) (int, error)    { return len(text), nil }
func (f *fakeExec) CapturePane(ctx context.Context, opts exec.CapturePaneOptions) (string, error) {
	return f.capturedText, nil
}
func (f *fakeExec) SendKeys(ctx context.Context, opts exec.SendKeysOptions) error { return nil }
func (f *fakeExec) Summary() string                                              { return "fake" }
func (f *fakeExec) AttachInfoOf() *exec.AttachInfo                               { return nil }
func (f *fakeExec) CapturePaneAvailable() bool                                    { return f.capturePane }
func (f *fakeExec) CaptureStartupExistingTmuxPane() (string, bool)                { return "", false }
func (f *fakeExec) Close() error                                                  { return nil }

func TestShellRequiresSafetyMetadata(t *testing.T) {
	tool := NewShellTool(nil)
	_, err := tool.Execute(context.Background(), `{"command":"ls"}`, &Context{Exec: &fakeExec{}})
	require.NotNil(t, err)
	assert.Equal(t, ErrInvalidArguments, err.Kind)
}

func TestShellDenylistBlocksSubstringMatch(t *testing.T) {
	tool := NewShellTool([]string{"rm -rf /"})
	_, err := tool.Execute(context.Background(), `{"command":"rm -rf / --no-preserve-root","risk":"high","mutation":true,"privesc":false,"why":"test"}`, &Context{Exec: &fakeExec{}})
	require.NotNil(t, err)
	assert.Equal(t, ErrDenied, err.Kind)
}

func TestShellWaitFalseRejectedWithoutTmux(t *testing.T) {
	tool := NewShellTool(nil)
	fe := &fakeExec{capturePane: false}
	_, err := tool.Execute(context.Background(), `{"command":"ls","risk":"low","mutation":false,"privesc":false,"why":"test","wait":false}`, &Context{Exec: fe})
	require.NotNil(t, err)
	assert.Equal(t, ErrInvalidArguments, err.Kind)
}

func TestShellTruncatesOutputUTF8Safe(t *testing.T) {
	tool := NewShellTool(nil)
	big := make([]byte, shellOutputBudget+10)
	for i := range big {
		big[i] = 'a'
	}
	fe := &fakeExec{capturePane: true, out: exec.ExecOutput{Stdout: string(big)}}
	res, err := tool.Execute(context.Background(), `{"command":"echo","risk":"low","mutation":false,"privesc":false,"why":"test"}`, &Context{Exec: fe})
	require.Nil(t, err)
	stdout := res.Metadata["stdout"].(string)
	assert.LessOrEqual(t, len(stdout), shellOutputBudget+len("\n(truncated)"))
}

type denyingBroker struct{ reason string }

func (d *denyingBroker) RequestApproval(ctx context.Context, summary string, metadata map[string]any) error {
	return assertError(d.reason)
}

func assertError(msg string) error { return &Error{Kind: ErrDenied, Message: msg} }

func TestShellApprovalDenialSurfacesAsDenied(t *testing.T) {
	tool := NewShellTool(nil)
	fe := &fakeExec{capturePane: true}
	_, err := tool.Execute(context.Background(), `{"command":"ls","risk":"low","mutation":false,"privesc":false,"why":"test"}`, &Context{Exec: fe, Approval: &denyingBroker{reason: "no"}})
	require.NotNil(t, err)
	assert.Equal(t, ErrDenied, err.Kind)
}

type capturingBroker struct{ lastMetadata map[string]any }

func (c *capturingBroker) RequestApproval(ctx context.Context, summary string, metadata map[string]any) error {
	c.lastMetadata = metadata
	return nil
}

func TestShellEscalatesUnderReportedRiskForDangerousCommand(t *testing.T) {
	tool := NewShellTool(nil)
	fe := &fakeExec{capturePane: true}
	broker := &capturingBroker{}
	_, err := tool.Execute(context.Background(), `{"command":"rm -rf build/","risk":"low","mutation":false,"privesc":false,"why":"clean build dir"}`, &Context{Exec: fe, Approval: broker})
	require.Nil(t, err)
	assert.Equal(t, "medium", broker.lastMetadata["risk"])
	assert.Equal(t, true, broker.lastMetadata["mutation"])
}

func TestShellLeavesRiskAloneForBenignCommand(t *testing.T) {
	tool := NewShellTool(nil)
	fe := &fakeExec{capturePane: true}
	broker := &capturingBroker{}
	_, err := tool.Execute(context.Background(), `{"command":"ls -la","risk":"low","mutation":false,"privesc":false,"why":"list files"}`, &Context{Exec: fe, Approval: broker})
	require.Nil(t, err)
	assert.Equal(t, "low", broker.lastMetadata["risk"])
	assert.Equal(t, false, broker.lastMetadata["mutation"])
}
