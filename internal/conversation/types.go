// Package conversation defines chat transcript types and the bounded
// per-session message window.
package conversation

import (
	"time"

	"github.com/google/uuid"
)

// Message role constants.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// Message is one entry of a session transcript. ID is assigned when the
// message enters the window and is stable afterwards.
type Message struct {
	ID         string     `json:"id,omitempty"`
	Role       string     `json:"role"`
	Content    string     `json:"content"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
	Name       string     `json:"name,omitempty"`
	CreatedAt  time.Time  `json:"created_at,omitempty"`
}

// ToolCall is an assistant request to run a tool.
type ToolCall struct {
	ID       string           `json:"id"`
	Type     string           `json:"type"`
	Function ToolCallFunction `json:"function"`
}

// ToolCallFunction names the tool and carries JSON-encoded arguments.
type ToolCallFunction struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// NewMessage builds a message with a fresh ID.
func NewMessage(role, content string) Message {
	return Message{
		ID:        uuid.NewString(),
		Role:      role,
		Content:   content,
		CreatedAt: time.Now().UTC(),
	}
}

// UserMessage builds a customer message.
func UserMessage(content string) Message { return NewMessage(RoleUser, content) }

// AssistantMessage builds an assistant reply, optionally carrying tool calls.
func AssistantMessage(content string, calls ...ToolCall) Message {
	msg := NewMessage(RoleAssistant, content)
	if len(calls) > 0 {
		msg.ToolCalls = append([]ToolCall(nil), calls...)
	}
	return msg
}

// ToolMessage builds a tool result for callID.
func ToolMessage(callID, name, content string) Message {
	msg := NewMessage(RoleTool, content)
	msg.ToolCallID = callID
	msg.Name = name
	return msg
}
