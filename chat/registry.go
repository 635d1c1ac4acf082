package chat

import (
	"context"
	"encoding/json"

	"github.com/taskflow/assistant/llm"
)

// ToolHandler executes one tool call. userID comes from the authenticated
// caller context, never from model-provided arguments. The returned string
// is natural-language text fed back to the model.
type ToolHandler func(ctx context.Context, userID string, args json.RawMessage) (string, error)

// ToolDef pairs a tool's call schema with its handler.
type ToolDef struct {
	Schema  llm.Tool
	Handler ToolHandler
}

// Registry maps tool names to their definitions. It is populated at startup
// and read-only afterwards.
type Registry struct {
	names []string
	defs  map[string]ToolDef
}

// NewRegistry creates an empty tool registry.
func NewRegistry() *Registry {
	return &Registry{defs: make(map[string]ToolDef)}
}

// Register adds a tool definition. Registering the same name twice replaces
// the previous definition.
func (r *Registry) Register(def ToolDef) {
	name := def.Schema.Function.Name
	if _, ok := r.defs[name]; !ok {
		r.names = append(r.names, name)
	}
	r.defs[name] = def
}

// Lookup returns the definition for a tool name.
func (r *Registry) Lookup(name string) (ToolDef, bool) {
	def, ok := r.defs[name]
	return def, ok
}

// Schemas returns all tool schemas in registration order, for the model
// gateway.
func (r *Registry) Schemas() []llm.Tool {
	schemas := make([]llm.Tool, 0, len(r.names))
	for _, name := range r.names {
		schemas = append(schemas, r.defs[name].Schema)
	}
	return schemas
}
