package gm

import (
	"context"

	"fableforge/internal/tools"
)

// Message roles on the generator wire.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// ToolCall is one call requested by the generator. ID pairs the result
// message with the request on providers that demand it.
type ToolCall struct {
	ID   string
	Name string
	Args map[string]any
}

// Message is one entry in the conversation sent to the generator.
type Message struct {
	Role      string
	Content   string
	ToolCalls []ToolCall // assistant messages only
	CallID    string     // tool messages only
}

// Completion is one generator response: either narrative text, tool calls
// to execute first, or both.
type Completion struct {
	Text  string
	Calls []ToolCall
}

// Generator produces the narrator side of the conversation. Implementations
// classify failures with game error kinds: a timeout surfaces as
// GeneratorTimeoutError, an unreachable backend as GeneratorUnavailableError.
type Generator interface {
	Generate(ctx context.Context, msgs []Message, catalog []tools.Descriptor) (*Completion, error)
}
