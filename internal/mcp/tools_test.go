package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"fableforge/internal/combat"
	"fableforge/internal/game"
	"fableforge/internal/memory"
	"fableforge/internal/store/sqlite"
	"fableforge/internal/tools"
)

func newTestServer(t *testing.T) (*Server, *game.Player) {
	t.Helper()
	ctx := context.Background()
	c, err := sqlite.New(ctx, "sqlite://:memory:")
	if err != nil {
		t.Fatalf("sqlite.New: %v", err)
	}
	t.Cleanup(func() { c.Close(ctx) })
	if err := c.EnsureSchema(ctx); err != nil {
		t.Fatalf("EnsureSchema: %v", err)
	}
	p := &game.Player{Name: "Aria", Class: "ranger", Level: 1, Health: 20, MaxHealth: 20, Gold: 10}
	if _, err := c.CreatePlayer(ctx, p); err != nil {
		t.Fatalf("CreatePlayer: %v", err)
	}

	mem := memory.New(c, nil, memory.DefaultConfig(), nil)
	cm := combat.New(c, mem, nil)
	reg := tools.NewRegistry(c, cm, mem, nil)
	return NewServer(reg, "test", nil), p
}

func resultText(t *testing.T, res *sdk.CallToolResult) game.ToolResult {
	t.Helper()
	if len(res.Content) != 1 {
		t.Fatalf("content blocks = %d, want 1", len(res.Content))
	}
	text, ok := res.Content[0].(*sdk.TextContent)
	if !ok {
		t.Fatalf("content type %T", res.Content[0])
	}
	var out game.ToolResult
	if err := json.Unmarshal([]byte(text.Text), &out); err != nil {
		t.Fatalf("decode result: %v", err)
	}
	return out
}

func TestCallToolQuery(t *testing.T) {
	s, p := newTestServer(t)

	raw := json.RawMessage(fmt.Sprintf(`{"player_id":%d}`, p.ID))
	res, err := s.callTool(context.Background(), "get_player_info", raw)
	if err != nil {
		t.Fatalf("callTool: %v", err)
	}
	if res.IsError {
		t.Fatalf("IsError set: %+v", res)
	}
	out := resultText(t, res)
	if !out.OK() {
		t.Fatalf("result = %+v", out)
	}
	payload, ok := out.Payload.(map[string]any)
	if !ok || payload["name"] != "Aria" {
		t.Errorf("payload = %v", out.Payload)
	}
}

func TestCallToolMutation(t *testing.T) {
	s, p := newTestServer(t)

	raw := json.RawMessage(fmt.Sprintf(`{"player_id":%d,"gold_change":15}`, p.ID))
	res, err := s.callTool(context.Background(), "update_player_gold", raw)
	if err != nil {
		t.Fatalf("callTool: %v", err)
	}
	out := resultText(t, res)
	if !out.OK() {
		t.Fatalf("result = %+v", out)
	}
	if payload := out.Payload.(map[string]any); payload["new_gold"] != float64(25) {
		t.Errorf("new_gold = %v, want 25", payload["new_gold"])
	}
}

func TestCallToolErrorResult(t *testing.T) {
	s, _ := newTestServer(t)

	res, err := s.callTool(context.Background(), "get_player_info", json.RawMessage(`{"player_id":999}`))
	if err != nil {
		t.Fatalf("callTool must not surface tool errors as protocol errors: %v", err)
	}
	if !res.IsError {
		t.Fatal("IsError not set for failed call")
	}
	out := resultText(t, res)
	if out.ErrorKind != game.KindNotFound {
		t.Errorf("error kind = %s, want NotFoundError", out.ErrorKind)
	}
}

func TestCallToolValidation(t *testing.T) {
	s, p := newTestServer(t)

	raw := json.RawMessage(fmt.Sprintf(`{"player_id":%d,"mood":"sly"}`, p.ID))
	res, err := s.callTool(context.Background(), "get_player_info", raw)
	if err != nil {
		t.Fatalf("callTool: %v", err)
	}
	out := resultText(t, res)
	if out.ErrorKind != game.KindValidation {
		t.Errorf("error kind = %s, want ValidationError", out.ErrorKind)
	}
}

func TestCallToolMalformedArguments(t *testing.T) {
	s, _ := newTestServer(t)
	if _, err := s.callTool(context.Background(), "get_player_info", json.RawMessage(`{`)); err == nil {
		t.Fatal("malformed JSON must be a protocol error")
	}
}
