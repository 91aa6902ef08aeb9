package conversation

// ModelView returns the messages that are safe to send to the model.
//
// Window eviction can cut an assistant tool-call message away from its tool
// results, or leave results whose request is gone. Chat APIs reject both, so
// tool results are dropped unless an earlier assistant message in the view
// requested them, and assistant tool-call messages whose results are all
// missing lose their tool calls (and are dropped when nothing else remains).
// The input is not modified.
func ModelView(messages []Message) []Message {
	answered := make(map[string]bool)
	for _, m := range messages {
		if m.Role == RoleTool && m.ToolCallID != "" {
			answered[m.ToolCallID] = true
		}
	}

	requested := make(map[string]bool)
	out := make([]Message, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case RoleTool:
			if !requested[m.ToolCallID] {
				continue
			}
		case RoleAssistant:
			if len(m.ToolCalls) > 0 {
				kept := make([]ToolCall, 0, len(m.ToolCalls))
				for _, call := range m.ToolCalls {
					if answered[call.ID] {
						kept = append(kept, call)
						requested[call.ID] = true
					}
				}
				m.ToolCalls = kept
				if len(kept) == 0 {
					m.ToolCalls = nil
					if m.Content == "" {
						continue
					}
				}
			}
		}
		out = append(out, m)
	}
	return out
}
