package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"fableforge/internal/game"
)

// registerTools mirrors the whole registry catalogue onto the MCP server.
// Each tool keeps its declared JSON Schema, so hosts see the same contract
// the built-in generator does.
func (s *Server) registerTools() {
	for _, d := range s.registry.Catalog() {
		tool := &sdk.Tool{
			Name:        d.Name,
			Description: d.Description,
			InputSchema: d.Schema,
		}
		name := d.Name
		s.mcp.AddTool(tool, func(ctx context.Context, req *sdk.CallToolRequest) (*sdk.CallToolResult, error) {
			return s.callTool(ctx, name, req.Params.Arguments)
		})
	}
}

// callTool decodes the raw arguments and dispatches through the registry.
// Tool failures come back as error results with IsError set, not protocol
// errors: the calling model is expected to read them and adapt.
func (s *Server) callTool(ctx context.Context, name string, raw json.RawMessage) (*sdk.CallToolResult, error) {
	var args map[string]any
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &args); err != nil {
			return nil, fmt.Errorf("decode arguments for %s: %w", name, err)
		}
	}

	res := s.registry.Dispatch(ctx, game.ToolCall{Name: name, Args: args})
	if !res.OK() {
		s.log.Debug("tool call failed", "tool", name, "kind", res.ErrorKind, "message", res.Message)
	}
	body, err := json.Marshal(res)
	if err != nil {
		return nil, fmt.Errorf("encode result for %s: %w", name, err)
	}
	return &sdk.CallToolResult{
		Content: []sdk.Content{&sdk.TextContent{Text: string(body)}},
		IsError: !res.OK(),
	}, nil
}
