package runtime

import (
	"context"
	"time"

	"github.com/0xfe/buddyx/internal/tool"
)

// handleSubmitPrompt rejects a new prompt outright when a task is already
// active rather than queuing it; there is never more than one task running
// at a time.
func (r *Runtime) handleSubmitPrompt(cmd Command) {
	if r.activeTaskID != "" {
		r.emit(Event{Family: FamilyWarning, Name: "PromptRejected", Data: map[string]any{
			"reason": "a task is already active",
		}})
		return
	}

	taskID := r.newTaskID()
	ctx, cancel := context.WithCancel(r.rootCtx)

	r.activeTaskID = taskID
	r.activeCancel = cancel
	tid := taskID
	r.currentTask.Store(&tid)

	r.emit(Event{Family: FamilyTask, Name: "Queued", TaskID: taskID})
	r.emit(Event{Family: FamilyTask, Name: "Started", TaskID: taskID})

	go r.runTask(taskID, ctx, cmd.Prompt)
}

// runTask runs on its own goroutine; it is the only place agent.Loop.Send
// is called, so Loop's own mutex serializes it against any other Send.
func (r *Runtime) runTask(taskID TaskID, ctx context.Context, prompt string) {
	text, err := r.agent.Send(ctx, prompt)
	r.taskDone <- taskResult{id: taskID, text: text, err: err, cancelled: ctx.Err() != nil}
}

// handleTaskDone emits exactly one terminal event per task and clears
// active-task state.
func (r *Runtime) handleTaskDone(res taskResult) {
	if res.id != r.activeTaskID {
		return // stale report from an already-superseded task; ignore
	}

	switch {
	case res.cancelled:
		r.emit(Event{Family: FamilyTask, Name: "Cancelled", TaskID: res.id})
	case res.err != nil:
		r.emit(Event{Family: FamilyTask, Name: "Failed", TaskID: res.id, Data: map[string]any{
			"kind": string(res.err.Kind), "message": res.err.Message,
		}})
	default:
		r.emit(Event{Family: FamilyTask, Name: "Completed", TaskID: res.id, Data: map[string]any{
			"text": res.text,
		}})
	}

	r.activeTaskID = ""
	r.activeCancel = nil
	r.currentTask.Store(nil)
}

// handleCancelTask cancels the active task if its id matches, auto-denying
// every approval still pending for it.
func (r *Runtime) handleCancelTask(cmd Command) {
	if r.activeTaskID == "" || r.activeTaskID != cmd.TaskID {
		return
	}

	if r.activeCancel != nil {
		r.activeCancel()
	}
	r.emit(Event{Family: FamilyTask, Name: "Cancelling", TaskID: cmd.TaskID})

	for id, pa := range r.pending {
		if pa.taskID != cmd.TaskID {
			continue
		}
		r.resolvePending(pa, false)
		delete(r.pending, id)
		r.emit(Event{Family: FamilyWarning, Name: "ApprovalResolved", TaskID: cmd.TaskID, Data: map[string]any{
			"approval_id": id, "decision": false, "reason": "task cancelled",
		}})
	}
}

// handleApprove resolves a matching pending approval, or is ignored if the
// id is unknown (already resolved, or never registered).
func (r *Runtime) handleApprove(cmd Command) {
	pa, ok := r.pending[cmd.ApprovalID]
	if !ok {
		return
	}
	delete(r.pending, cmd.ApprovalID)
	r.resolvePending(pa, cmd.ApprovalDecision)

	outcome := "denied"
	if cmd.ApprovalDecision {
		outcome = "approved"
	}
	r.emit(Event{Family: FamilyWarning, Name: "ApprovalResolved", TaskID: pa.taskID, Data: map[string]any{
		"approval_id": cmd.ApprovalID, "decision": cmd.ApprovalDecision, "outcome": outcome,
	}})
}

// handleSetApprovalPolicy switches the active approval policy; switching to
// a non-interactive policy auto-resolves every request currently pending
// under it, not just future ones.
func (r *Runtime) handleSetApprovalPolicy(cmd Command) {
	r.policy = cmd.Policy
	now := time.Now()

	for id, pa := range r.pending {
		decision, resolved := cmd.Policy.resolve(now)
		if !resolved {
			continue
		}
		r.resolvePending(pa, decision)
		delete(r.pending, id)
		r.emit(Event{Family: FamilyWarning, Name: "ApprovalResolved", TaskID: pa.taskID, Data: map[string]any{
			"approval_id": id, "decision": decision, "reason": "approval policy changed to " + cmd.Policy.String(),
		}})
	}
}

// handleSwitchModel is rejected while a task is active, otherwise runs the
// injected preflight.
func (r *Runtime) handleSwitchModel(cmd Command) {
	if r.activeTaskID != "" {
		r.emit(Event{Family: FamilyWarning, Name: "ModelSwitchRejected", Data: map[string]any{
			"reason": "a task is active",
		}})
		return
	}

	if r.switchModel != nil {
		if err := r.switchModel(cmd.ModelProfile); err != nil {
			r.emit(Event{Family: FamilyWarning, Name: "ModelSwitchFailed", Data: map[string]any{
				"profile": cmd.ModelProfile, "error": err.Error(),
			}})
			return
		}
	}
	r.emit(Event{Family: FamilyModel, Name: "ProfileSwitched", Data: map[string]any{"profile": cmd.ModelProfile}})
}

// handleSessionNew persists the current session, resets the agent loop,
// and starts a fresh session id.
func (r *Runtime) handleSessionNew() {
	r.persistCurrentSession()
	r.agent.Reset()
	r.activeSession = r.newSessionID()
	r.emit(Event{Family: FamilySession, Name: "Created", SessionID: r.activeSession})
}

// handleSessionResume persists the current session, loads the target one
// (the most recently updated, when last is true), and restores the agent
// loop's history and tracker state from its snapshot.
func (r *Runtime) handleSessionResume(id SessionID, last bool) {
	if r.store == nil {
		r.emit(Event{Family: FamilyError, Name: "SessionResumeFailed", Data: map[string]any{
			"error": "no session store configured",
		}})
		return
	}

	r.persistCurrentSession()

	target := id
	if last {
		lastID, err := r.store.LastID()
		if err != nil {
			r.emit(Event{Family: FamilyError, Name: "SessionResumeFailed", Data: map[string]any{"error": err.Error()}})
			return
		}
		target = lastID
	}

	snap, err := r.store.Load(target)
	if err != nil {
		r.emit(Event{Family: FamilyError, Name: "SessionResumeFailed", Data: map[string]any{
			"error": err.Error(), "session_id": string(target),
		}})
		return
	}

	r.agent.ReplaceHistory(snap.Messages)
	r.agent.RestoreTracker(snap.TrackerState)
	r.activeSession = target

	if err := r.store.Save(target, snap); err != nil { // "refresh-save it"
		r.emit(Event{Family: FamilyError, Name: "SessionPersistFailed", Data: map[string]any{"error": err.Error()}})
	}
	r.emit(Event{Family: FamilySession, Name: "Resumed", SessionID: target})
}

// handleSessionCompact runs an unconditional compaction of the active
// session's history and persists the result.
func (r *Runtime) handleSessionCompact() {
	summary, err := r.agent.Compact(r.rootCtx)
	if err != nil {
		r.emit(Event{Family: FamilyError, Name: "CompactionFailed", Data: map[string]any{
			"kind": string(err.Kind), "message": err.Message,
		}})
		return
	}
	r.persistCurrentSession()
	r.emit(Event{Family: FamilySession, Name: "Compacted", SessionID: r.activeSession, Data: map[string]any{
		"summary": summary,
	}})
}

// handleShutdown denies every pending approval and cancels the active task
// before the event loop returns.
func (r *Runtime) handleShutdown() {
	for id, pa := range r.pending {
		r.resolvePending(pa, false)
		delete(r.pending, id)
	}
	if r.activeCancel != nil {
		r.activeCancel()
	}
	r.emit(Event{Family: FamilyLifecycle, Name: "ShuttingDown"})
}

// persistCurrentSession saves a fresh AgentSessionSnapshot for the active
// session, if any. No-op when no store is configured or no session is
// active yet (e.g. before the first SessionNew/SessionResume).
func (r *Runtime) persistCurrentSession() {
	if r.store == nil || r.activeSession == "" {
		return
	}
	snap := AgentSessionSnapshot{Messages: r.agent.History()}
	if tracker := r.agent.Tracker(); tracker != nil {
		snap.TrackerState = tracker.ToSnapshot()
	}
	if err := r.store.Save(r.activeSession, snap); err != nil {
		r.emit(Event{Family: FamilyError, Name: "SessionPersistFailed", Data: map[string]any{"error": err.Error()}})
	}
}

// resolvePending delivers a decision to a waiting RequestApproval call.
// Buffered 1 so this never blocks the actor loop even if the waiter
// goroutine already gave up (e.g. its ctx was cancelled independently).
func (r *Runtime) resolvePending(pa *pendingApproval, decision bool) {
	select {
	case pa.resume <- decision:
	default:
	}
}

// handleApprovalRequest fails closed with no active task, short-circuits
// under an auto-resolving policy, else registers the request and emits
// WaitingApproval.
func (r *Runtime) handleApprovalRequest(req brokerRequest) {
	taskPtr := r.currentTask.Load()
	if taskPtr == nil {
		req.reply <- deniedErr("no active task")
		return
	}
	taskID := *taskPtr

	if decision, resolved := r.policy.resolve(time.Now()); resolved {
		req.reply <- approvalResult(decision)
		return
	}

	id := r.newApprovalID()
	pa := &pendingApproval{taskID: taskID, resume: make(chan bool, 1)}
	r.pending[id] = pa

	r.emit(Event{Family: FamilyTask, Name: "WaitingApproval", TaskID: taskID, Data: map[string]any{
		"approval_id": id, "summary": req.summary,
	}})

	go func() {
		select {
		case decision := <-pa.resume:
			req.reply <- approvalResult(decision)
		case <-req.ctx.Done():
			req.reply <- req.ctx.Err()
		}
	}()
}

func approvalResult(decision bool) error {
	if decision {
		return nil
	}
	return deniedErr("rejected by approval policy")
}

// onReasoning, onWarning, onToolCallRequested, onToolStream, and
// onToolResult are agent.Hooks wired in at construction; they run on the
// task goroutine (inside agent.Loop.Send), tagging every event with the
// task id that owns the currently running Send.
func (r *Runtime) onReasoning(text string) {
	r.emit(Event{Family: FamilyModel, Name: "ReasoningDelta", TaskID: r.currentTaskID(), Data: map[string]any{
		"text": text,
	}})
}

func (r *Runtime) onWarning(message string) {
	r.emit(Event{Family: FamilyWarning, Name: "AgentWarning", TaskID: r.currentTaskID(), Data: map[string]any{
		"message": message,
	}})
}

func (r *Runtime) onToolCallRequested(callID, name, argumentsJSON string) {
	r.emit(Event{Family: FamilyTool, Name: "CallRequested", TaskID: r.currentTaskID(), Data: map[string]any{
		"call_id": callID, "name": name, "arguments": argumentsJSON,
	}})
}

func (r *Runtime) onToolStream(callID string, ev tool.StreamEvent) {
	r.emit(Event{Family: FamilyTool, Name: "Stream", TaskID: r.currentTaskID(), Data: map[string]any{
		"call_id": callID, "event": ev,
	}})
}

func (r *Runtime) onToolResult(callID string, result *tool.Result, toolErr *tool.Error) {
	data := map[string]any{"call_id": callID}
	if toolErr != nil {
		data["error"] = toolErr.Message
		data["kind"] = string(toolErr.Kind)
	} else if result != nil {
		data["output"] = result.Output
		data["metadata"] = result.Metadata
	}
	r.emit(Event{Family: FamilyTool, Name: "Result", TaskID: r.currentTaskID(), Data: data})
}

func (r *Runtime) currentTaskID() TaskID {
	if p := r.currentTask.Load(); p != nil {
		return *p
	}
	return ""
}
