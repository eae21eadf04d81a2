// Package tools exposes agent-callable actions by name: the RAG pair plus thin
// adapters over notification, search, file and calendar services.
package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
)

var (
	// ErrUnknownTool is returned when no tool has the requested name.
	ErrUnknownTool = errors.New("unknown tool")
	// ErrInvalidArguments is returned when tool arguments cannot be decoded.
	ErrInvalidArguments = errors.New("invalid tool arguments")
)

// Handler runs a tool with a JSON object of arguments and returns its text output.
type Handler func(ctx context.Context, args json.RawMessage) (string, error)

// Tool is a named action.
type Tool struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Handler     Handler `json:"-"`
}

// Definition names and describes a tool.
type Definition struct {
	Name        string
	Description string
}

// Registry holds tools in registration order.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]*Tool
	order []string
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]*Tool)}
}

// Register adds t. Names must be unique.
func (r *Registry) Register(t Tool) error {
	if t.Name == "" || t.Handler == nil {
		return errors.New("tool needs a name and a handler")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tools[t.Name]; ok {
		return fmt.Errorf("tool %q already registered", t.Name)
	}
	r.tools[t.Name] = &t
	r.order = append(r.order, t.Name)
	return nil
}

// Get returns the tool with name.
func (r *Registry) Get(name string) (*Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[name]
	return t, ok
}

// List returns every tool in registration order.
func (r *Registry) List() []Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Tool, len(r.order))
	for i, name := range r.order {
		out[i] = *r.tools[name]
	}
	return out
}

// Call runs the named tool.
func (r *Registry) Call(ctx context.Context, name string, args json.RawMessage) (string, error) {
	t, ok := r.Get(name)
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownTool, name)
	}
	return t.Handler(ctx, args)
}

// Typed adapts fn to a Handler by decoding the arguments into In. Empty or null
// arguments leave In at its zero value.
func Typed[In any](fn func(context.Context, In) (string, error)) Handler {
	return func(ctx context.Context, args json.RawMessage) (string, error) {
		var in In
		trimmed := bytes.TrimSpace(args)
		if len(trimmed) > 0 && !bytes.Equal(trimmed, []byte("null")) {
			if err := json.Unmarshal(trimmed, &in); err != nil {
				return "", fmt.Errorf("%w: %v", ErrInvalidArguments, err)
			}
		}
		return fn(ctx, in)
	}
}

// add registers fn under d.
func add[In any](r *Registry, d Definition, fn func(context.Context, In) (string, error)) error {
	return r.Register(Tool{Name: d.Name, Description: d.Description, Handler: Typed(fn)})
}
