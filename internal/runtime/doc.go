// Package runtime fronts a single agent.Loop with an actor contract: one
// command channel in, one event stream out, a monotonic per-runtime
// sequence number on every emitted envelope, and at most one active task
// at a time.
//
// Three things distinguish it from a plain request/response wrapper around
// agent.Loop:
//
//   - SubmitPrompt rejects instead of queueing when a task is already
//     active, rather than queuing a waiter to run once the current task
//     finishes.
//   - An approval broker sits between the shell tool and the actor loop:
//     a register-then-await handoff narrowed to a boolean decision plus a
//     policy (Ask/All/None/Until) that can auto-resolve requests without a
//     human.
//   - Every emitted event carries a monotonically increasing sequence
//     number, so a consumer can detect a gap or reorder in its event
//     stream.
//
// Runtime owns constructing the agent.Loop it fronts (see New) so its own
// hooks and approval broker can be wired in at construction instead of
// patched in afterward.
package runtime
