// Package runtime implements the single-actor command/event loop that
// fronts one agent.Loop: a command channel in, an event stream out,
// exactly one active task at a time. A second prompt submitted while a
// task is active is rejected outright rather than queued, and the actor
// also owns the approval broker for the tool calls its task dispatches.
package runtime

import (
	"context"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/0xfe/buddyx/internal/agent"
	"github.com/0xfe/buddyx/internal/exec"
	"github.com/0xfe/buddyx/internal/tokens"
	"github.com/0xfe/buddyx/internal/tool"
	"github.com/0xfe/buddyx/internal/transport"
)

const eventBufferSize = 256

// Config builds a Runtime. Most fields mirror agent.Config directly; the
// runtime owns constructing the agent.Loop so it can wire its own hooks and
// approval broker into it.
type Config struct {
	Transport transport.Client
	Tools     *tool.Registry
	Tracker   *tokens.Tracker
	Exec      exec.Context
	HTTP      *http.Client

	Model         string
	SystemPrompt  string
	MaxIterations int
	Temperature   *float64
	MaxTokens     int
	Profile       *agent.Profile

	SessionID string
	AgentName string

	// Store persists AgentSessionSnapshots across Session* commands. May be
	// nil; SessionResume/SessionResumeLast then fail closed with a
	// SessionResumeFailed error event.
	Store SessionStore

	// SwitchModel performs the URL/model/auth preflight for a SwitchModel
	// command; returning an error rejects the switch. A nil func always
	// succeeds (no preflight to run).
	SwitchModel func(profile string) error
}

// taskResult is what runTask reports back to the actor loop.
type taskResult struct {
	id        TaskID
	text      string
	err       *agent.Error
	cancelled bool
}

// Runtime is the single-actor command/event loop. All state fields below
// are owned exclusively by the goroutine running Run; they are never
// touched from any other goroutine, which is what lets this type skip a
// state mutex entirely.
type Runtime struct {
	cmd      chan Command
	events   chan Envelope
	taskDone chan taskResult
	broker   *broker

	agent       *agent.Loop
	store       SessionStore
	switchModel func(profile string) error

	rootCtx context.Context

	seq uint64 // atomic; also read/written from hook callbacks on the task goroutine

	// currentTask lets hook callbacks invoked on the task goroutine (inside
	// agent.Loop.Send) tag their events with the owning task id without
	// reaching into actor-owned state. Safe because exactly one task runs
	// at a time and Send fully owns the window during which hooks fire.
	currentTask atomic.Pointer[TaskID]

	policy ApprovalPolicy

	activeTaskID   TaskID
	activeCancel   context.CancelFunc
	activeSession  SessionID
	pending        map[ApprovalID]*pendingApproval
	nextApprovalID uint64
}

// New builds a Runtime and the agent.Loop it fronts, wiring the loop's
// hooks and approval broker back into this runtime's event emission.
func New(cfg Config) *Runtime {
	r := &Runtime{
		cmd:      make(chan Command, 32),
		events:   make(chan Envelope, eventBufferSize),
		taskDone: make(chan taskResult, 1),
		broker:   newBroker(),
		store:    cfg.Store,

		switchModel: cfg.SwitchModel,
		policy:      PolicyAsk(),
		pending:     make(map[ApprovalID]*pendingApproval),
	}

	loopCfg := agent.Config{
		Transport:     cfg.Transport,
		Tools:         cfg.Tools,
		Tracker:       cfg.Tracker,
		Exec:          cfg.Exec,
		Approval:      r.broker,
		HTTP:          cfg.HTTP,
		Model:         cfg.Model,
		SystemPrompt:  cfg.SystemPrompt,
		MaxIterations: cfg.MaxIterations,
		Temperature:   cfg.Temperature,
		MaxTokens:     cfg.MaxTokens,
		Profile:       cfg.Profile,
		SessionID:     cfg.SessionID,
		AgentName:     cfg.AgentName,
		Hooks: agent.Hooks{
			OnReasoning:         r.onReasoning,
			OnWarning:           r.onWarning,
			OnToolCallRequested: r.onToolCallRequested,
			OnToolStream:        r.onToolStream,
			OnToolResult:        r.onToolResult,
		},
	}
	r.agent = agent.New(loopCfg)

	return r
}

// Submit enqueues a command (the "CommandSender" half of spawn_runtime's
// contract). Blocks only if the command buffer (32) is full.
func (r *Runtime) Submit(cmd Command) { r.cmd <- cmd }

// SubmitAndWait enqueues a command and blocks until the actor loop has
// applied it to runtime state. For CmdSubmitPrompt this only covers
// dispatch (Task::Started has been emitted); it does not wait for the
// spawned task itself to finish.
func (r *Runtime) SubmitAndWait(cmd Command) {
	done := make(chan struct{})
	cmd.done = done
	r.cmd <- cmd
	<-done
}

// Events returns the runtime's event stream (the "EventStream" half).
func (r *Runtime) Events() <-chan Envelope { return r.events }

// Run drives the actor's event loop until a Shutdown command is processed
// or ctx is cancelled. It is meant to run in its own goroutine; Submit and
// Events are safe to call from any other goroutine.
func (r *Runtime) Run(ctx context.Context) {
	r.rootCtx = ctx
	for {
		select {
		case <-ctx.Done():
			r.handleShutdown()
			return
		case cmd := <-r.cmd:
			stop := r.handle(cmd)
			if cmd.done != nil {
				close(cmd.done)
			}
			if stop {
				return
			}
		case req := <-r.broker.requests:
			r.handleApprovalRequest(req)
		case res := <-r.taskDone:
			r.handleTaskDone(res)
		}
	}
}

func (r *Runtime) handle(cmd Command) (stop bool) {
	switch cmd.Kind {
	case CmdSubmitPrompt:
		r.handleSubmitPrompt(cmd)
	case CmdApprove:
		r.handleApprove(cmd)
	case CmdCancelTask:
		r.handleCancelTask(cmd)
	case CmdSetApprovalPolicy:
		r.handleSetApprovalPolicy(cmd)
	case CmdSwitchModel:
		r.handleSwitchModel(cmd)
	case CmdSessionNew:
		r.handleSessionNew()
	case CmdSessionResume:
		r.handleSessionResume(cmd.SessionID, false)
	case CmdSessionResumeLast:
		r.handleSessionResume("", true)
	case CmdSessionCompact:
		r.handleSessionCompact()
	case CmdShutdown:
		r.handleShutdown()
		return true
	}
	return false
}

// emit assigns the next monotonic sequence number and timestamp and
// delivers the event. Tool::Stream events (high-frequency tool stdout/
// reasoning-adjacent chunks) use a non-blocking, drop-when-full send since
// a slow consumer shouldn't stall tool execution; every other family
// blocks, since Task/Session/Model/Warning/Error events carry ordering
// invariants callers rely on.
func (r *Runtime) emit(ev Event) {
	seq := atomic.AddUint64(&r.seq, 1)
	env := Envelope{Seq: seq, TimestampMS: time.Now().UnixMilli(), Event: ev}

	if ev.Family == FamilyTool && ev.Name == "Stream" {
		select {
		case r.events <- env:
		default:
		}
		return
	}
	r.events <- env
}

func (r *Runtime) newTaskID() TaskID           { return TaskID(ulid.Make().String()) }
func (r *Runtime) newSessionID() SessionID     { return SessionID(ulid.Make().String()) }
func (r *Runtime) newApprovalID() ApprovalID {
	r.nextApprovalID++
	return ApprovalID(fmt.Sprintf("appr-%d-%s", r.nextApprovalID, ulid.Make().String()))
}
