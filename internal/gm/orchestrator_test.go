package gm

import (
	"context"
	"strings"
	"sync"
	"testing"

	"fableforge/internal/combat"
	"fableforge/internal/game"
	"fableforge/internal/memory"
	"fableforge/internal/store"
	"fableforge/internal/store/sqlite"
	"fableforge/internal/tools"
)

// fakeGenerator replays a script of responses and records every
// conversation it was shown.
type fakeGenerator struct {
	mu     sync.Mutex
	script []func(msgs []Message) (*Completion, error)
	round  int
	seen   [][]Message
}

func (g *fakeGenerator) Generate(_ context.Context, msgs []Message, _ []tools.Descriptor) (*Completion, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.seen = append(g.seen, msgs)
	if g.round >= len(g.script) {
		return &Completion{Text: "The tale continues."}, nil
	}
	fn := g.script[g.round]
	g.round++
	return fn(msgs)
}

type fixture struct {
	store  store.Store
	memory *memory.Manager
	player *game.Player
	loc    *game.Location
}

func newFixture(t *testing.T) *fixture {
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
	loc := &game.Location{Name: "Millbrook", Description: "A sleepy riverside village.", LocationType: "town"}
	if _, err := c.CreateLocation(ctx, loc); err != nil {
		t.Fatalf("CreateLocation: %v", err)
	}
	p := &game.Player{Name: "Aria", Class: "ranger", Level: 1, Health: 20, MaxHealth: 20, Gold: 10, LocationID: loc.ID}
	if _, err := c.CreatePlayer(ctx, p); err != nil {
		t.Fatalf("CreatePlayer: %v", err)
	}
	mem := memory.New(c, nil, memory.DefaultConfig(), nil)
	return &fixture{store: c, memory: mem, player: p, loc: loc}
}

func (f *fixture) orchestrator(gen Generator) *Orchestrator {
	cm := combat.New(f.store, f.memory, nil)
	reg := tools.NewRegistry(f.store, cm, f.memory, nil)
	return New(f.store, f.memory, reg, gen, nil)
}

func TestTurnPersistsBothSides(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	gen := &fakeGenerator{script: []func(msgs []Message) (*Completion, error){
		func([]Message) (*Completion, error) {
			return &Completion{Calls: []ToolCall{{
				ID:   "call_1",
				Name: "update_player_health",
				Args: map[string]any{"player_id": f.player.ID, "health_change": -5},
			}}}, nil
		},
		func(msgs []Message) (*Completion, error) {
			last := msgs[len(msgs)-1]
			if last.Role != RoleTool || !strings.Contains(last.Content, `"status":"ok"`) {
				t.Errorf("tool result not fed back: %+v", last)
			}
			return &Completion{Text: "The arrow grazes your shoulder."}, nil
		},
	}}
	o := f.orchestrator(gen)

	res, err := o.TakeTurn(ctx, f.player.ID, "I charge the bandit.")
	if err != nil {
		t.Fatalf("TakeTurn: %v", err)
	}
	if res.Narrative != "The arrow grazes your shoulder." {
		t.Errorf("narrative = %q", res.Narrative)
	}
	if len(res.Calls) != 1 || res.Calls[0].Tool != "update_player_health" || res.Calls[0].Status != game.StatusOK {
		t.Errorf("executed calls = %+v", res.Calls)
	}

	// The mutation went through the tool, the sole mutation path.
	p, err := f.store.GetPlayer(ctx, f.player.ID)
	if err != nil {
		t.Fatalf("GetPlayer: %v", err)
	}
	if p.Health != 15 {
		t.Errorf("health = %d, want 15", p.Health)
	}

	window, err := f.store.ListWindow(ctx, f.player.ID)
	if err != nil {
		t.Fatalf("ListWindow: %v", err)
	}
	if len(window) != 2 {
		t.Fatalf("window = %d turns, want player+narrator", len(window))
	}
	if window[0].Role != game.RolePlayer || window[0].Content != "I charge the bandit." {
		t.Errorf("player turn = %+v", window[0])
	}
	if window[1].Role != game.RoleNarrator || len(window[1].ToolCalls) != 1 {
		t.Errorf("narrator turn = %+v", window[1])
	}
}

func TestSystemPromptCarriesSnapshot(t *testing.T) {
	f := newFixture(t)
	gen := &fakeGenerator{}
	o := f.orchestrator(gen)

	if _, err := o.TakeTurn(context.Background(), f.player.ID, "I look around."); err != nil {
		t.Fatalf("TakeTurn: %v", err)
	}
	system := gen.seen[0][0]
	if system.Role != RoleSystem {
		t.Fatalf("first message role = %s", system.Role)
	}
	for _, want := range []string{"Aria", "Millbrook", "Health: 20/20", "Gold: 10"} {
		if !strings.Contains(system.Content, want) {
			t.Errorf("system prompt missing %q", want)
		}
	}
}

func TestCombatTurnsTagged(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	wolf := &game.NPC{Name: "Dire Wolf", NPCType: "beast", Health: 12, MaxHealth: 12,
		Behavior: game.BehaviorHostile, LocationID: f.loc.ID}
	if _, err := f.store.CreateNPC(ctx, wolf); err != nil {
		t.Fatalf("CreateNPC: %v", err)
	}
	cm := combat.New(f.store, f.memory, nil)
	s, err := cm.Initiate(ctx, f.player.ID, "The wolf lunges.",
		[]game.CharacterRef{{Type: game.CharacterNPC, ID: wolf.ID}})
	if err != nil {
		t.Fatalf("Initiate: %v", err)
	}

	gen := &fakeGenerator{}
	o := f.orchestrator(gen)
	if _, err := o.TakeTurn(ctx, f.player.ID, "I swing my blade."); err != nil {
		t.Fatalf("TakeTurn: %v", err)
	}

	system := gen.seen[0][0]
	if !strings.Contains(system.Content, "ACTIVE COMBAT") {
		t.Errorf("system prompt missing combat block:\n%s", system.Content)
	}

	window, err := f.store.ListWindow(ctx, f.player.ID)
	if err != nil {
		t.Fatalf("ListWindow: %v", err)
	}
	if len(window) != 2 {
		t.Fatalf("window = %d turns, want 2", len(window))
	}
	tag := game.CombatTag(s.ID)
	for _, turn := range window {
		if len(turn.Tags) != 1 || turn.Tags[0] != tag {
			t.Errorf("%s turn tags = %v, want [%s]", turn.Role, turn.Tags, tag)
		}
	}

	// Ending the fight folds the tagged turns into the summary.
	if _, err := cm.End(ctx, s.ID, "victory", "The wolf falls."); err != nil {
		t.Fatalf("End: %v", err)
	}
	window, err = f.store.ListWindow(ctx, f.player.ID)
	if err != nil {
		t.Fatalf("ListWindow after end: %v", err)
	}
	if len(window) != 1 || window[0].Content != "The wolf falls." {
		t.Errorf("window after compression = %+v", window)
	}
}

func TestUnknownToolFedBack(t *testing.T) {
	f := newFixture(t)
	gen := &fakeGenerator{script: []func(msgs []Message) (*Completion, error){
		func([]Message) (*Completion, error) {
			return &Completion{Calls: []ToolCall{{ID: "call_1", Name: "summon_dragon"}}}, nil
		},
		func(msgs []Message) (*Completion, error) {
			last := msgs[len(msgs)-1]
			if !strings.Contains(last.Content, string(game.KindUnknownTool)) {
				t.Errorf("unknown-tool kind not fed back: %s", last.Content)
			}
			return &Completion{Text: "No dragons answer your call."}, nil
		},
	}}
	o := f.orchestrator(gen)

	res, err := o.TakeTurn(context.Background(), f.player.ID, "I summon a dragon.")
	if err != nil {
		t.Fatalf("TakeTurn: %v", err)
	}
	if len(res.Calls) != 1 || res.Calls[0].Status != game.StatusError {
		t.Errorf("executed calls = %+v", res.Calls)
	}
}

func TestToolRoundBound(t *testing.T) {
	f := newFixture(t)
	gen := &fakeGenerator{script: nil}
	looping := func([]Message) (*Completion, error) {
		return &Completion{Calls: []ToolCall{{
			Name: "get_player_info",
			Args: map[string]any{"player_id": f.player.ID},
		}}}, nil
	}
	for i := 0; i < 20; i++ {
		gen.script = append(gen.script, looping)
	}
	o := f.orchestrator(gen)
	o.SetMaxToolRounds(3)

	_, err := o.TakeTurn(context.Background(), f.player.ID, "Endless bookkeeping.")
	if !game.IsKind(err, game.KindConflict) {
		t.Fatalf("err = %v, want conflict on round bound", err)
	}
	// An aborted turn is never persisted.
	window, werr := f.store.ListWindow(context.Background(), f.player.ID)
	if werr != nil {
		t.Fatalf("ListWindow: %v", werr)
	}
	if len(window) != 0 {
		t.Errorf("aborted turn persisted %d turns", len(window))
	}
}

func TestGeneratorFailureKeepsCommittedEffects(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	gen := &fakeGenerator{script: []func(msgs []Message) (*Completion, error){
		func([]Message) (*Completion, error) {
			return &Completion{Calls: []ToolCall{{
				Name: "update_player_gold",
				Args: map[string]any{"player_id": f.player.ID, "gold_change": 5},
			}}}, nil
		},
		func([]Message) (*Completion, error) {
			return nil, game.GeneratorTimeoutf("model took too long")
		},
	}}
	o := f.orchestrator(gen)

	_, err := o.TakeTurn(ctx, f.player.ID, "I haggle.")
	if !game.IsKind(err, game.KindGeneratorTimeout) {
		t.Fatalf("err = %v, want generator timeout", err)
	}

	// The dispatched mutation stands even though the turn aborted.
	p, err := f.store.GetPlayer(ctx, f.player.ID)
	if err != nil {
		t.Fatalf("GetPlayer: %v", err)
	}
	if p.Gold != 15 {
		t.Errorf("gold = %d, want 15", p.Gold)
	}
	window, err := f.store.ListWindow(ctx, f.player.ID)
	if err != nil {
		t.Fatalf("ListWindow: %v", err)
	}
	if len(window) != 0 {
		t.Errorf("aborted turn persisted %d turns", len(window))
	}
}

func TestTurnsSerializedPerPlayer(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	entered := make(chan struct{})
	proceed := make(chan struct{})
	gen := &fakeGenerator{script: []func(msgs []Message) (*Completion, error){
		func([]Message) (*Completion, error) {
			close(entered)
			<-proceed
			return &Completion{Text: "Done."}, nil
		},
	}}
	o := f.orchestrator(gen)

	errc := make(chan error, 1)
	go func() {
		_, err := o.TakeTurn(ctx, f.player.ID, "First action.")
		errc <- err
	}()
	<-entered

	if _, err := o.TakeTurn(ctx, f.player.ID, "Second action."); !game.IsKind(err, game.KindConflict) {
		t.Errorf("concurrent turn err = %v, want conflict", err)
	}
	close(proceed)
	if err := <-errc; err != nil {
		t.Fatalf("first turn: %v", err)
	}

	// The lock is released once the first turn completes.
	if _, err := o.TakeTurn(ctx, f.player.ID, "Third action."); err != nil {
		t.Errorf("turn after release: %v", err)
	}
}

func TestEmptyInputRejected(t *testing.T) {
	f := newFixture(t)
	o := f.orchestrator(&fakeGenerator{})
	if _, err := o.TakeTurn(context.Background(), f.player.ID, "   "); !game.IsKind(err, game.KindValidation) {
		t.Errorf("err = %v, want validation", err)
	}
}
