package agent

import (
	"bytes"
	"encoding/json"

	"github.com/tmc/langchaingo/llms"

	"github.com/memohai/supportdesk/internal/conversation"
	"github.com/memohai/supportdesk/internal/tools"
)

// toLLMMessages renders the system prompt and the model view of history.
func toLLMMessages(systemPrompt string, history []conversation.Message) []llms.MessageContent {
	out := make([]llms.MessageContent, 0, len(history)+1)
	if systemPrompt != "" {
		out = append(out, llms.TextParts(llms.ChatMessageTypeSystem, systemPrompt))
	}
	for _, msg := range history {
		switch msg.Role {
		case conversation.RoleUser:
			out = append(out, llms.TextParts(llms.ChatMessageTypeHuman, msg.Content))
		case conversation.RoleAssistant:
			mc := llms.MessageContent{Role: llms.ChatMessageTypeAI}
			if msg.Content != "" || len(msg.ToolCalls) == 0 {
				mc.Parts = append(mc.Parts, llms.TextContent{Text: msg.Content})
			}
			for _, call := range msg.ToolCalls {
				mc.Parts = append(mc.Parts, llms.ToolCall{
					ID:   call.ID,
					Type: "function",
					FunctionCall: &llms.FunctionCall{
						Name:      call.Function.Name,
						Arguments: call.Function.Arguments,
					},
				})
			}
			out = append(out, mc)
		case conversation.RoleTool:
			out = append(out, llms.MessageContent{
				Role: llms.ChatMessageTypeTool,
				Parts: []llms.ContentPart{llms.ToolCallResponse{
					ToolCallID: msg.ToolCallID,
					Name:       msg.Name,
					Content:    msg.Content,
				}},
			})
		}
	}
	return out
}

func toLLMTools(descs []tools.Descriptor) []llms.Tool {
	out := make([]llms.Tool, 0, len(descs))
	for _, d := range descs {
		out = append(out, llms.Tool{
			Type: "function",
			Function: &llms.FunctionDefinition{
				Name:        d.Name,
				Description: d.Description,
				Parameters:  d.Parameters,
			},
		})
	}
	return out
}

func fromLLMToolCalls(calls []llms.ToolCall) []conversation.ToolCall {
	out := make([]conversation.ToolCall, 0, len(calls))
	for _, c := range calls {
		tc := conversation.ToolCall{ID: c.ID, Type: c.Type}
		if tc.Type == "" {
			tc.Type = "function"
		}
		if c.FunctionCall != nil {
			tc.Function = conversation.ToolCallFunction{
				Name:      c.FunctionCall.Name,
				Arguments: c.FunctionCall.Arguments,
			}
		}
		out = append(out, tc)
	}
	return out
}

// isToolCallChunk reports whether a streamed chunk is a serialized tool call
// delta rather than assistant text.
func isToolCallChunk(chunk []byte) bool {
	trimmed := bytes.TrimSpace(chunk)
	if len(trimmed) < 2 || trimmed[0] != '[' {
		return false
	}
	var calls []map[string]any
	if err := json.Unmarshal(trimmed, &calls); err != nil || len(calls) == 0 {
		return false
	}
	for _, c := range calls {
		if _, ok := c["function"]; ok {
			return true
		}
		if t, _ := c["type"].(string); t == "function" {
			return true
		}
	}
	return false
}
