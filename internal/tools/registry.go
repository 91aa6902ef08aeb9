package tools

import (
	"context"
	"fmt"
	"sort"
	"strings"
)

// Registry stores tools by name.
type Registry struct {
	items map[string]Tool
}

func NewRegistry() *Registry {
	return &Registry{
		items: map[string]Tool{},
	}
}

func (r *Registry) Register(tool Tool) error {
	if tool == nil {
		return fmt.Errorf("tool is required")
	}
	desc := tool.Descriptor()
	name := strings.TrimSpace(desc.Name)
	if name == "" {
		return fmt.Errorf("tool name is required")
	}
	if _, exists := r.items[name]; exists {
		return fmt.Errorf("tool already registered: %s", name)
	}
	r.items[name] = tool
	return nil
}

func (r *Registry) Lookup(name string) (Tool, bool) {
	tool, ok := r.items[strings.TrimSpace(name)]
	return tool, ok
}

// Len reports the number of registered tools.
func (r *Registry) Len() int { return len(r.items) }

// List returns descriptors sorted by name. Missing parameter schemas are
// replaced with an empty object schema.
func (r *Registry) List() []Descriptor {
	if len(r.items) == 0 {
		return []Descriptor{}
	}
	names := make([]string, 0, len(r.items))
	for name := range r.items {
		names = append(names, name)
	}
	sort.Strings(names)
	out := make([]Descriptor, 0, len(names))
	for _, name := range names {
		desc := r.items[name].Descriptor()
		desc.Name = name
		if desc.Parameters == nil {
			desc.Parameters = map[string]any{
				"type":       "object",
				"properties": map[string]any{},
			}
		}
		out = append(out, desc)
	}
	return out
}

// Restrict returns a registry holding only the named tools. An empty allow
// list returns r itself. Unknown names are reported as an error.
func (r *Registry) Restrict(allow []string) (*Registry, error) {
	if len(allow) == 0 {
		return r, nil
	}
	out := NewRegistry()
	for _, name := range allow {
		tool, ok := r.Lookup(name)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrToolNotFound, name)
		}
		if err := out.Register(tool); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// Dispatch runs the named tool.
func (r *Registry) Dispatch(ctx context.Context, call Call) (Result, error) {
	tool, ok := r.Lookup(call.Name)
	if !ok {
		return Result{CallID: call.ID, Name: call.Name}, fmt.Errorf("%w: %s", ErrToolNotFound, call.Name)
	}
	if call.Arguments == nil {
		call.Arguments = map[string]any{}
	}
	return tool.Execute(ctx, call)
}
