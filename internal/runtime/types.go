package runtime

import (
	"fmt"
	"time"

	"github.com/0xfe/buddyx/internal/convo"
	"github.com/0xfe/buddyx/internal/tokens"
)

// ApprovalPolicy controls how the runtime resolves shell-tool approval
// requests raised through the broker.
type ApprovalPolicy struct {
	kind     approvalPolicyKind
	deadline time.Time
}

type approvalPolicyKind int

const (
	policyAsk approvalPolicyKind = iota
	policyAll
	policyNone
	policyUntil
)

// PolicyAsk prompts for every request (the default).
func PolicyAsk() ApprovalPolicy { return ApprovalPolicy{kind: policyAsk} }

// PolicyAll auto-approves every request.
func PolicyAll() ApprovalPolicy { return ApprovalPolicy{kind: policyAll} }

// PolicyNone auto-denies every request.
func PolicyNone() ApprovalPolicy { return ApprovalPolicy{kind: policyNone} }

// PolicyUntil auto-approves until deadline, then reverts to Ask.
func PolicyUntil(deadline time.Time) ApprovalPolicy {
	return ApprovalPolicy{kind: policyUntil, deadline: deadline}
}

// resolve reports whether the policy auto-resolves a request raised right
// now, and if so what decision to apply. When it returns false the request
// must be routed through Ask (registered with the runtime and awaited).
func (p ApprovalPolicy) resolve(now time.Time) (decision bool, autoResolved bool) {
	switch p.kind {
	case policyAll:
		return true, true
	case policyNone:
		return false, true
	case policyUntil:
		if now.Before(p.deadline) {
			return true, true
		}
		return false, false
	default:
		return false, false
	}
}

func (p ApprovalPolicy) String() string {
	switch p.kind {
	case policyAll:
		return "all"
	case policyNone:
		return "none"
	case policyUntil:
		return fmt.Sprintf("until(%s)", p.deadline.Format(time.RFC3339))
	default:
		return "ask"
	}
}

// TaskID identifies one SubmitPrompt invocation end to end.
type TaskID string

// ApprovalID identifies one outstanding approval request.
type ApprovalID string

// SessionID identifies a persisted agent session.
type SessionID string

// Command is the sum type of operations the runtime accepts on its command
// channel. Exactly one of the typed fields is meaningful, selected by Kind.
type Command struct {
	Kind CommandKind

	Prompt string

	ApprovalID       ApprovalID
	ApprovalDecision bool

	TaskID TaskID

	Policy ApprovalPolicy

	ModelProfile string

	SessionID SessionID

	// done, if non-nil, is closed after the command has been applied to
	// runtime state (not after any task it spawns completes). Used by
	// tests and synchronous callers; SubmitPrompt's task runs async
	// regardless.
	done chan struct{}
}

// CommandKind discriminates the runtime's command vocabulary.
type CommandKind int

const (
	CmdSubmitPrompt CommandKind = iota
	CmdApprove
	CmdCancelTask
	CmdSetApprovalPolicy
	CmdSwitchModel
	CmdSessionNew
	CmdSessionResume
	CmdSessionResumeLast
	CmdSessionCompact
	CmdShutdown
)

// SubmitPrompt builds a SubmitPrompt command.
func SubmitPrompt(prompt string) Command { return Command{Kind: CmdSubmitPrompt, Prompt: prompt} }

// Approve builds an Approve command.
func Approve(id ApprovalID, decision bool) Command {
	return Command{Kind: CmdApprove, ApprovalID: id, ApprovalDecision: decision}
}

// CancelTask builds a CancelTask command.
func CancelTask(id TaskID) Command { return Command{Kind: CmdCancelTask, TaskID: id} }

// SetApprovalPolicy builds a SetApprovalPolicy command.
func SetApprovalPolicy(policy ApprovalPolicy) Command {
	return Command{Kind: CmdSetApprovalPolicy, Policy: policy}
}

// SwitchModel builds a SwitchModel command.
func SwitchModel(profile string) Command { return Command{Kind: CmdSwitchModel, ModelProfile: profile} }

// SessionNew builds a SessionNew command.
func SessionNew() Command { return Command{Kind: CmdSessionNew} }

// SessionResume builds a SessionResume command.
func SessionResume(id SessionID) Command { return Command{Kind: CmdSessionResume, SessionID: id} }

// SessionResumeLast builds a SessionResumeLast command.
func SessionResumeLast() Command { return Command{Kind: CmdSessionResumeLast} }

// SessionCompact builds a SessionCompact command.
func SessionCompact() Command { return Command{Kind: CmdSessionCompact} }

// Shutdown builds a Shutdown command.
func Shutdown() Command { return Command{Kind: CmdShutdown} }

// EventFamily groups events by the subsystem that raised them.
type EventFamily string

const (
	FamilyLifecycle EventFamily = "lifecycle"
	FamilySession   EventFamily = "session"
	FamilyTask      EventFamily = "task"
	FamilyModel     EventFamily = "model"
	FamilyTool      EventFamily = "tool"
	FamilyMetrics   EventFamily = "metrics"
	FamilyWarning   EventFamily = "warning"
	FamilyError     EventFamily = "error"
)

// Event is the payload half of a RuntimeEventEnvelope. Name is a
// family-scoped discriminator (e.g. "Started", "WaitingApproval",
// "CallRequested"); Data carries whatever fields that name needs.
type Event struct {
	Family EventFamily    `json:"family"`
	Name   string         `json:"name"`
	Data   map[string]any `json:"data,omitempty"`

	TaskID    TaskID    `json:"task_id,omitempty"`
	SessionID SessionID `json:"session_id,omitempty"`
	Iteration int       `json:"iteration,omitempty"`
}

// Envelope wraps an Event with a monotonic sequence number and timestamp.
type Envelope struct {
	Seq         uint64 `json:"seq"`
	TimestampMS int64  `json:"timestamp_ms"`
	Event       Event  `json:"event"`
}

// pendingApproval tracks one outstanding Ask registered by the broker.
type pendingApproval struct {
	taskID TaskID
	resume chan bool
}

// AgentSessionSnapshot is the persisted shape of one agent session, built
// from the agent.Loop's exported History/Tracker accessors and restored
// the same way.
type AgentSessionSnapshot struct {
	Messages     []convo.Message `json:"messages"`
	TrackerState tokens.Snapshot `json:"tracker_state"`
}

// SessionStore is the narrow persistence interface the runtime needs.
// internal/sessionstore supplies the concrete on-disk implementation;
// runtime only depends on this interface to avoid a
// runtime->sessionstore->runtime import cycle risk and to keep the command
// handlers testable with an in-memory fake.
type SessionStore interface {
	Save(id SessionID, snapshot AgentSessionSnapshot) error
	Load(id SessionID) (AgentSessionSnapshot, error)
	LastID() (SessionID, error)
}
