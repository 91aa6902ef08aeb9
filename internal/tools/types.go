// Package tools defines the agent tool contract, the tool registry and the
// filter that keeps tool output away from the model.
package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrToolNotFound indicates no registered tool owns the requested name.
var ErrToolNotFound = errors.New("tool not found")

// Descriptor is the function-calling schema advertised to the model.
type Descriptor struct {
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Parameters  map[string]any `json:"parameters"`
}

// Call is one tool invocation requested by the model.
type Call struct {
	ID        string
	Name      string
	Arguments map[string]any
	// SessionID is the chat session the turn belongs to.
	SessionID string
}

// Result is what a tool produced. Content is what the model would see.
type Result struct {
	CallID  string
	Name    string
	Content string
}

// Tool is a business tool the agent can call.
type Tool interface {
	Descriptor() Descriptor
	Execute(ctx context.Context, call Call) (Result, error)
}

// Handler runs one call.
type Handler func(ctx context.Context, call Call) (Result, error)

// Middleware wraps a Handler.
type Middleware func(Handler) Handler

// ParseArguments decodes the JSON argument string sent by the model.
// An empty string decodes to an empty map.
func ParseArguments(raw string) (map[string]any, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return map[string]any{}, nil
	}
	var args map[string]any
	if err := json.Unmarshal([]byte(raw), &args); err != nil {
		return map[string]any{}, fmt.Errorf("decode tool arguments: %w", err)
	}
	if args == nil {
		args = map[string]any{}
	}
	return args, nil
}

func StringArg(arguments map[string]any, key string) string {
	if arguments == nil {
		return ""
	}
	raw, ok := arguments[key]
	if !ok || raw == nil {
		return ""
	}
	switch value := raw.(type) {
	case string:
		return strings.TrimSpace(value)
	default:
		return strings.TrimSpace(fmt.Sprintf("%v", raw))
	}
}

// StringArgs returns the non-empty string values of every key in keys.
func StringArgs(arguments map[string]any, keys []string) map[string]string {
	out := make(map[string]string, len(keys))
	for _, key := range keys {
		if value := StringArg(arguments, key); value != "" {
			out[key] = value
		}
	}
	return out
}

// ObjectSchema builds a JSON schema object with string properties.
func ObjectSchema(required []string, properties map[string]string) map[string]any {
	props := make(map[string]any, len(properties))
	for name, desc := range properties {
		props[name] = map[string]any{"type": "string", "description": desc}
	}
	schema := map[string]any{
		"type":       "object",
		"properties": props,
	}
	if len(required) > 0 {
		schema["required"] = append([]string(nil), required...)
	}
	return schema
}
