package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/0xfe/buddyx/internal/runtime"
)

// commandRequest is the wire shape of POST /command's body. kind selects
// which runtime.Command constructor to call; the remaining fields are
// interpreted according to kind and left zero otherwise.
type commandRequest struct {
	Kind string `json:"kind"`

	Prompt string `json:"prompt,omitempty"`

	ApprovalID       string `json:"approval_id,omitempty"`
	ApprovalDecision bool   `json:"approval_decision,omitempty"`

	TaskID string `json:"task_id,omitempty"`

	Policy *policyRequest `json:"policy,omitempty"`

	ModelProfile string `json:"model_profile,omitempty"`

	SessionID string `json:"session_id,omitempty"`
}

// policyRequest decodes {"mode": "ask"|"all"|"none"} or
// {"mode": "until", "until": <RFC3339>}; an absent policy or empty mode
// means ask.
type policyRequest struct {
	Mode  string `json:"mode,omitempty"`
	Until string `json:"until,omitempty"`
}

func decodePolicy(p *policyRequest) (runtime.ApprovalPolicy, error) {
	if p == nil {
		return runtime.PolicyAsk(), nil
	}
	switch p.Mode {
	case "", "ask":
		return runtime.PolicyAsk(), nil
	case "all":
		return runtime.PolicyAll(), nil
	case "none":
		return runtime.PolicyNone(), nil
	case "until":
		deadline, err := time.Parse(time.RFC3339, p.Until)
		if err != nil {
			return runtime.ApprovalPolicy{}, fmt.Errorf("invalid until timestamp: %w", err)
		}
		return runtime.PolicyUntil(deadline), nil
	default:
		return runtime.ApprovalPolicy{}, fmt.Errorf("unknown policy mode %q", p.Mode)
	}
}

func decodeCommand(req commandRequest) (runtime.Command, error) {
	switch req.Kind {
	case "submit_prompt":
		return runtime.SubmitPrompt(req.Prompt), nil
	case "approve":
		return runtime.Approve(runtime.ApprovalID(req.ApprovalID), req.ApprovalDecision), nil
	case "cancel_task":
		return runtime.CancelTask(runtime.TaskID(req.TaskID)), nil
	case "set_approval_policy":
		policy, err := decodePolicy(req.Policy)
		if err != nil {
			return runtime.Command{}, err
		}
		return runtime.SetApprovalPolicy(policy), nil
	case "switch_model":
		return runtime.SwitchModel(req.ModelProfile), nil
	case "session_new":
		return runtime.SessionNew(), nil
	case "session_resume":
		return runtime.SessionResume(runtime.SessionID(req.SessionID)), nil
	case "session_resume_last":
		return runtime.SessionResumeLast(), nil
	case "session_compact":
		return runtime.SessionCompact(), nil
	case "shutdown":
		return runtime.Shutdown(), nil
	default:
		return runtime.Command{}, fmt.Errorf("unknown command kind %q", req.Kind)
	}
}

// postCommand decodes one JSON RuntimeCommand and submits it to the
// runtime. Submission is fire-and-forget at the HTTP layer: the runtime
// applies the command asynchronously and reports outcomes over /event.
func (s *Server) postCommand(w http.ResponseWriter, r *http.Request) {
	var req commandRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeInvalidRequest, "invalid JSON body: "+err.Error())
		return
	}

	cmd, err := decodeCommand(req)
	if err != nil {
		writeError(w, http.StatusBadRequest, ErrCodeInvalidRequest, err.Error())
		return
	}

	s.rt.Submit(cmd)
	writeSuccess(w)
}
