package tools

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/google/jsonschema-go/jsonschema"

	"fableforge/internal/combat"
	"fableforge/internal/game"
	"fableforge/internal/memory"
	"fableforge/internal/store"
)

// Kind classifies a tool for the dispatch contract: queries never mutate
// state, mutations are the only path through which the world changes.
type Kind string

const (
	KindQuery    Kind = "query"
	KindMutation Kind = "mutation"
)

// Param declares one tool argument for validation and schema export.
type Param struct {
	Type        string // integer, number, string, boolean, object, array
	Description string
	Required    bool
	Enum        []string
	Minimum     *float64
	Maximum     *float64
	Items       string // element type for arrays
}

// Tool is one declarative entry in the registry.
type Tool struct {
	Name        string
	Description string
	Kind        Kind
	Params      map[string]Param
	Handler     func(ctx context.Context, args Args) (any, error)
}

// Registry holds the full tool catalogue and is the orchestrator's single
// gateway to game state.
type Registry struct {
	store  store.Store
	combat *combat.Manager
	memory *memory.Manager
	log    *slog.Logger

	tools map[string]*Tool
	names []string
}

func NewRegistry(st store.Store, cm *combat.Manager, mm *memory.Manager, log *slog.Logger) *Registry {
	if log == nil {
		log = slog.Default()
	}
	r := &Registry{
		store:  st,
		combat: cm,
		memory: mm,
		log:    log,
		tools:  make(map[string]*Tool),
	}
	r.registerQueries()
	r.registerCharacterTools()
	r.registerItemTools()
	r.registerWorldTools()
	r.registerCombatTools()
	r.registerMemoryTools()
	return r
}

func (r *Registry) register(t *Tool) {
	if _, exists := r.tools[t.Name]; exists {
		panic(fmt.Sprintf("tool %q registered twice", t.Name))
	}
	r.tools[t.Name] = t
	r.names = append(r.names, t.Name)
}

// Lookup returns the named tool, for MCP registration.
func (r *Registry) Lookup(name string) (*Tool, bool) {
	t, ok := r.tools[name]
	return t, ok
}

// Dispatch validates and executes one call. Handler errors are translated
// into error results, never propagated: a failed tool is information for the
// generator, not a turn abort.
func (r *Registry) Dispatch(ctx context.Context, call game.ToolCall) game.ToolResult {
	t, ok := r.tools[call.Name]
	if !ok {
		return errorResult(game.UnknownToolf("unknown tool %q", call.Name))
	}
	if err := validateArgs(t.Params, call.Args); err != nil {
		return errorResult(err)
	}
	payload, err := t.Handler(ctx, Args(call.Args))
	if err != nil {
		r.log.Debug("tool call failed",
			"tool", call.Name, "kind", game.KindOf(err), "error", err)
		return errorResult(err)
	}
	return game.ToolResult{Status: game.StatusOK, Payload: payload}
}

func errorResult(err error) game.ToolResult {
	return game.ToolResult{
		Status:    game.StatusError,
		ErrorKind: game.KindOf(err),
		Message:   err.Error(),
	}
}

// Descriptor is one catalogue entry: everything a generator, MCP client, or
// test fixture needs to call the tool.
type Descriptor struct {
	Name        string             `json:"name"`
	Description string             `json:"description"`
	Kind        Kind               `json:"kind"`
	Schema      *jsonschema.Schema `json:"schema"`
}

// Catalog exports the registry in registration order.
func (r *Registry) Catalog() []Descriptor {
	out := make([]Descriptor, 0, len(r.names))
	for _, name := range r.names {
		t := r.tools[name]
		out = append(out, Descriptor{
			Name:        t.Name,
			Description: t.Description,
			Kind:        t.Kind,
			Schema:      t.Schema(),
		})
	}
	return out
}

// Schema renders the declared params as a JSON Schema object.
func (t *Tool) Schema() *jsonschema.Schema {
	props := make(map[string]*jsonschema.Schema, len(t.Params))
	var required []string
	for name, p := range t.Params {
		s := &jsonschema.Schema{
			Type:        p.Type,
			Description: p.Description,
			Minimum:     p.Minimum,
			Maximum:     p.Maximum,
		}
		if len(p.Enum) > 0 {
			for _, e := range p.Enum {
				s.Enum = append(s.Enum, e)
			}
		}
		if p.Type == "array" && p.Items != "" {
			s.Items = &jsonschema.Schema{Type: p.Items}
		}
		props[name] = s
		if p.Required {
			required = append(required, name)
		}
	}
	sort.Strings(required)
	return &jsonschema.Schema{Type: "object", Properties: props, Required: required}
}

func validateArgs(params map[string]Param, args map[string]any) error {
	for name := range args {
		if _, ok := params[name]; !ok {
			return game.Validationf("unexpected argument %q", name)
		}
	}
	for name, p := range params {
		v, ok := args[name]
		if !ok || v == nil {
			if p.Required {
				return game.Validationf("missing required argument %q", name)
			}
			continue
		}
		if err := checkType(name, p, v); err != nil {
			return err
		}
	}
	return nil
}

func checkType(name string, p Param, v any) error {
	switch p.Type {
	case "integer":
		n, ok := toInt64(v)
		if !ok {
			return game.Validationf("argument %q must be an integer, got %T", name, v)
		}
		return checkRange(name, p, float64(n))
	case "number":
		f, ok := toFloat64(v)
		if !ok {
			return game.Validationf("argument %q must be a number, got %T", name, v)
		}
		return checkRange(name, p, f)
	case "string":
		s, ok := v.(string)
		if !ok {
			return game.Validationf("argument %q must be a string, got %T", name, v)
		}
		return checkEnum(name, p, s)
	case "boolean":
		if _, ok := v.(bool); !ok {
			return game.Validationf("argument %q must be a boolean, got %T", name, v)
		}
	case "object":
		if _, ok := v.(map[string]any); !ok {
			return game.Validationf("argument %q must be an object, got %T", name, v)
		}
	case "array":
		items, ok := v.([]any)
		if !ok {
			return game.Validationf("argument %q must be an array, got %T", name, v)
		}
		if p.Items == "integer" {
			for i, item := range items {
				if _, ok := toInt64(item); !ok {
					return game.Validationf("argument %q[%d] must be an integer, got %T", name, i, item)
				}
			}
		}
	}
	return nil
}

func checkRange(name string, p Param, f float64) error {
	if p.Minimum != nil && f < *p.Minimum {
		return game.Validationf("argument %q must be at least %v, got %v", name, *p.Minimum, f)
	}
	if p.Maximum != nil && f > *p.Maximum {
		return game.Validationf("argument %q must be at most %v, got %v", name, *p.Maximum, f)
	}
	return nil
}

func checkEnum(name string, p Param, s string) error {
	if len(p.Enum) == 0 {
		return nil
	}
	for _, e := range p.Enum {
		if s == e {
			return nil
		}
	}
	return game.Validationf("argument %q must be one of %v, got %q", name, p.Enum, s)
}

func minimum(v float64) *float64 { return &v }
func maximum(v float64) *float64 { return &v }
