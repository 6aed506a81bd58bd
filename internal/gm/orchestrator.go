package gm

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"fableforge/internal/game"
	"fableforge/internal/memory"
	"fableforge/internal/store"
	"fableforge/internal/tools"
)

// DefaultMaxToolRounds bounds how many generate-dispatch cycles one turn may
// take before it is aborted.
const DefaultMaxToolRounds = 8

// Orchestrator runs the turn loop: gather context, let the generator narrate
// and call tools, persist the exchange. Turns are serialized per player; a
// second concurrent turn for the same player fails fast with a conflict.
type Orchestrator struct {
	store    store.Store
	memory   *memory.Manager
	registry *tools.Registry
	gen      Generator
	log      *slog.Logger

	maxToolRounds int

	mu     sync.Mutex
	active map[int64]bool
}

func New(st store.Store, mem *memory.Manager, reg *tools.Registry, gen Generator, log *slog.Logger) *Orchestrator {
	if log == nil {
		log = slog.Default()
	}
	return &Orchestrator{
		store:         st,
		memory:        mem,
		registry:      reg,
		gen:           gen,
		log:           log,
		maxToolRounds: DefaultMaxToolRounds,
		active:        make(map[int64]bool),
	}
}

// SetMaxToolRounds overrides the per-turn tool round bound.
func (o *Orchestrator) SetMaxToolRounds(n int) {
	if n > 0 {
		o.maxToolRounds = n
	}
}

// TurnResult is what one completed turn produced.
type TurnResult struct {
	Narrative string
	Calls     []game.ExecutedCall
}

func (o *Orchestrator) acquire(playerID int64) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.active[playerID] {
		return false
	}
	o.active[playerID] = true
	return true
}

func (o *Orchestrator) release(playerID int64) {
	o.mu.Lock()
	delete(o.active, playerID)
	o.mu.Unlock()
}

// TakeTurn runs one full player turn. On generator failure the turn is not
// persisted, but tool effects already dispatched in earlier rounds stand:
// mutations are durable the moment they execute.
func (o *Orchestrator) TakeTurn(ctx context.Context, playerID int64, input string) (*TurnResult, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return nil, game.Validationf("player input must not be empty")
	}
	if !o.acquire(playerID) {
		return nil, game.Conflictf("a turn for player %d is already in progress", playerID)
	}
	defer o.release(playerID)

	mctx, err := o.memory.Context(ctx, playerID, 0, -1)
	if err != nil {
		return nil, err
	}
	snap, err := o.buildSnapshot(ctx, playerID)
	if err != nil {
		return nil, err
	}

	msgs := o.conversation(mctx, snap, input)
	catalog := o.registry.Catalog()

	var narrative string
	var executed []game.ExecutedCall
	for round := 0; ; round++ {
		if round >= o.maxToolRounds {
			return nil, game.Conflictf("turn exceeded %d tool rounds without a narrative", o.maxToolRounds)
		}
		comp, err := o.gen.Generate(ctx, msgs, catalog)
		if err != nil {
			return nil, err
		}
		if len(comp.Calls) == 0 {
			narrative = comp.Text
			break
		}
		msgs = append(msgs, Message{Role: RoleAssistant, Content: comp.Text, ToolCalls: comp.Calls})
		for _, call := range comp.Calls {
			res := o.registry.Dispatch(ctx, game.ToolCall{Name: call.Name, Args: call.Args})
			executed = append(executed, game.ExecutedCall{Tool: call.Name, Args: call.Args, Status: res.Status})
			o.log.Info("tool dispatched",
				"player_id", playerID, "tool", call.Name, "status", res.Status)
			msgs = append(msgs, Message{Role: RoleTool, CallID: call.ID, Content: encodeResult(res)})
		}
	}

	// Turns taken during an encounter carry its tag so end_combat can fold
	// them into the fight summary.
	var tags []string
	if snap.Combat != nil {
		tags = []string{game.CombatTag(snap.Combat.ID)}
	}
	playerTurn := &game.Turn{PlayerID: playerID, Role: game.RolePlayer, Content: input, Tags: tags}
	if err := o.memory.AppendTurn(ctx, playerTurn); err != nil {
		return nil, err
	}
	narratorTurn := &game.Turn{
		PlayerID:  playerID,
		Role:      game.RoleNarrator,
		Content:   narrative,
		Tags:      tags,
		ToolCalls: executed,
	}
	if err := o.memory.AppendTurn(ctx, narratorTurn); err != nil {
		return nil, err
	}

	o.log.Info("turn completed",
		"player_id", playerID, "tool_calls", len(executed), "narrative_len", len(narrative))
	return &TurnResult{Narrative: narrative, Calls: executed}, nil
}

// conversation assembles the generator input: system prompt with world
// snapshot and archive summaries, then the recent window, then the new input.
func (o *Orchestrator) conversation(mctx *memory.Context, snap *Snapshot, input string) []Message {
	var system strings.Builder
	system.WriteString(systemPrompt)
	system.WriteString("\n\n")
	system.WriteString(snap.Format())
	if len(mctx.Summaries) > 0 {
		system.WriteString("\n## Previous Sessions\n")
		for _, a := range mctx.Summaries {
			fmt.Fprintf(&system, "- Session %d, %s: %s\n", a.Number, a.Title, a.Summary)
		}
		system.WriteString("(Use search_memories or recall_session for anything older.)\n")
	}

	msgs := make([]Message, 0, len(mctx.Recent)+2)
	msgs = append(msgs, Message{Role: RoleSystem, Content: system.String()})
	for _, t := range mctx.Recent {
		role := RoleUser
		if t.Role == game.RoleNarrator {
			role = RoleAssistant
		}
		msgs = append(msgs, Message{Role: role, Content: t.Content})
	}
	return append(msgs, Message{Role: RoleUser, Content: input})
}

func encodeResult(res game.ToolResult) string {
	b, err := json.Marshal(res)
	if err != nil {
		return fmt.Sprintf(`{"status":"error","message":%q}`, err.Error())
	}
	return string(b)
}
