package convo

// Sanitize applies the pre-request history sanitization rules:
//   - drop assistant messages whose text is empty/whitespace AND whose
//     tool-call list is empty (a "sanitizable" turn),
//   - drop tool-call entries with empty/invalid metadata (missing id or name),
//   - drop Extra fields whose value is null or empty.
//
// Sanitizing history twice must equal sanitizing it once.
func Sanitize(history []Message) []Message {
	out := make([]Message, 0, len(history))
	for _, msg := range history {
		if msg.Role == RoleAssistant && !msg.HasText() && len(msg.ToolCalls) == 0 {
			continue
		}

		if len(msg.ToolCalls) > 0 {
			calls := make([]ToolCall, 0, len(msg.ToolCalls))
			for _, tc := range msg.ToolCalls {
				if tc.ID == "" || tc.Name == "" {
					continue
				}
				calls = append(calls, tc)
			}
			msg.ToolCalls = calls
		}

		msg.Extra = dropEmptyExtra(msg.Extra)
		out = append(out, msg)
	}
	return out
}

func dropEmptyExtra(extra ExtraBag) ExtraBag {
	if len(extra) == 0 {
		return extra
	}
	out := make(ExtraBag, len(extra))
	for k, v := range extra {
		if len(v) == 0 || string(v) == "null" || string(v) == `""` || string(v) == "[]" || string(v) == "{}" {
			continue
		}
		out[k] = v
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
