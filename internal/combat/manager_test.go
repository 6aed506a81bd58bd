package combat

import (
	"context"
	"testing"

	"fableforge/internal/game"
	"fableforge/internal/memory"
	"fableforge/internal/store"
	"fableforge/internal/store/sqlite"
)

type world struct {
	store  store.Store
	player *game.Player
	wolf   *game.NPC
	bandit *game.NPC
}

func newWorld(t *testing.T) *world {
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

	p := &game.Player{Name: "Aria", Health: 20, MaxHealth: 20}
	if _, err := c.CreatePlayer(ctx, p); err != nil {
		t.Fatalf("CreatePlayer: %v", err)
	}
	wolf := &game.NPC{Name: "Dire Wolf", NPCType: "beast", Health: 12, MaxHealth: 12,
		Behavior: game.BehaviorHostile}
	if _, err := c.CreateNPC(ctx, wolf); err != nil {
		t.Fatalf("CreateNPC wolf: %v", err)
	}
	bandit := &game.NPC{Name: "Bandit", NPCType: "humanoid", Health: 15, MaxHealth: 15,
		Behavior: game.BehaviorAggressive}
	if _, err := c.CreateNPC(ctx, bandit); err != nil {
		t.Fatalf("CreateNPC bandit: %v", err)
	}
	return &world{store: c, player: p, wolf: wolf, bandit: bandit}
}

func npcRef(n *game.NPC) game.CharacterRef {
	return game.CharacterRef{Type: game.CharacterNPC, ID: n.ID}
}

func TestCombatLifecycle(t *testing.T) {
	w := newWorld(t)
	ctx := context.Background()
	mem := memory.New(w.store, nil, memory.DefaultConfig(), nil)
	m := New(w.store, mem, nil)

	s, err := m.Initiate(ctx, w.player.ID, "Ambushed on the forest road", []game.CharacterRef{npcRef(w.wolf)})
	if err != nil {
		t.Fatalf("Initiate: %v", err)
	}
	if len(s.TeamPlayer) != 1 || s.TeamPlayer[0].Ref.Type != game.CharacterPC {
		t.Fatalf("player not on own team: %+v", s.TeamPlayer)
	}
	if s.TeamPlayer[0].HP != 20 || s.TeamEnemy[0].HP != 12 {
		t.Errorf("HP snapshots = %d/%d, want 20/12", s.TeamPlayer[0].HP, s.TeamEnemy[0].HP)
	}

	// A second initiate while the first is live must conflict.
	if _, err := m.Initiate(ctx, w.player.ID, "again", nil); !game.IsKind(err, game.KindConflict) {
		t.Errorf("second initiate kind = %v, want ConflictError", game.KindOf(err))
	}

	s, err = m.AddCombatant(ctx, s.ID, npcRef(w.bandit), game.TeamEnemy)
	if err != nil {
		t.Fatalf("AddCombatant: %v", err)
	}
	if len(s.TeamEnemy) != 2 {
		t.Fatalf("enemy team = %d, want 2", len(s.TeamEnemy))
	}
	if _, err := m.AddCombatant(ctx, s.ID, npcRef(w.bandit), game.TeamEnemy); !game.IsKind(err, game.KindConflict) {
		t.Errorf("duplicate combatant kind = %v, want ConflictError", game.KindOf(err))
	}

	// The delta moves the cached roster and the authoritative NPC record by
	// the same amount.
	s, err = m.UpdateHP(ctx, s.ID, npcRef(w.wolf), -8)
	if err != nil {
		t.Fatalf("UpdateHP: %v", err)
	}
	if s.Combatant(npcRef(w.wolf)).HP != 4 {
		t.Errorf("roster HP = %d, want 4", s.Combatant(npcRef(w.wolf)).HP)
	}
	wolf, err := w.store.GetNPC(ctx, w.wolf.ID)
	if err != nil {
		t.Fatalf("GetNPC: %v", err)
	}
	if wolf.Health != 4 {
		t.Errorf("authoritative NPC health = %d, want 4", wolf.Health)
	}

	// Overkill is clamped to 0, healing to MaxHP.
	s, err = m.UpdateHP(ctx, s.ID, npcRef(w.wolf), -15)
	if err != nil {
		t.Fatalf("UpdateHP overkill: %v", err)
	}
	if s.Combatant(npcRef(w.wolf)).HP != 0 {
		t.Errorf("HP after overkill = %d, want 0", s.Combatant(npcRef(w.wolf)).HP)
	}
	s, err = m.UpdateHP(ctx, s.ID, npcRef(w.wolf), 99)
	if err != nil {
		t.Fatalf("UpdateHP heal: %v", err)
	}
	if s.Combatant(npcRef(w.wolf)).HP != 12 {
		t.Errorf("HP after overheal = %d, want MaxHP 12", s.Combatant(npcRef(w.wolf)).HP)
	}

	s, err = m.RemoveCombatant(ctx, s.ID, npcRef(w.bandit))
	if err != nil {
		t.Fatalf("RemoveCombatant: %v", err)
	}
	if len(s.TeamEnemy) != 1 {
		t.Errorf("enemy team after flight = %d, want 1", len(s.TeamEnemy))
	}

	s, err = m.End(ctx, s.ID, "victory", "Aria slew the dire wolf; the bandit fled.")
	if err != nil {
		t.Fatalf("End: %v", err)
	}
	if s.Active() || s.EndedAt.IsZero() {
		t.Errorf("session not closed: status=%s ended_at=%v", s.Status, s.EndedAt)
	}

	if _, err := m.End(ctx, s.ID, "victory", ""); !game.IsKind(err, game.KindConflict) {
		t.Errorf("double end kind = %v, want ConflictError", game.KindOf(err))
	}

	active, err := m.ActiveCombat(ctx, w.player.ID)
	if err != nil {
		t.Fatalf("ActiveCombat: %v", err)
	}
	if active != nil {
		t.Errorf("ActiveCombat after end = %+v, want nil", active)
	}

	// A new encounter can start now.
	if _, err := m.Initiate(ctx, w.player.ID, "round two", nil); err != nil {
		t.Errorf("initiate after end: %v", err)
	}
}

func TestEndCompressesCombatTurns(t *testing.T) {
	w := newWorld(t)
	ctx := context.Background()
	mem := memory.New(w.store, nil, memory.DefaultConfig(), nil)
	m := New(w.store, mem, nil)

	s, err := m.Initiate(ctx, w.player.ID, "", []game.CharacterRef{npcRef(w.wolf)})
	if err != nil {
		t.Fatalf("Initiate: %v", err)
	}

	tag := game.CombatTag(s.ID)
	turns := []struct {
		content string
		tags    []string
	}{
		{"I walk the forest path.", nil},
		{"A wolf lunges!", []string{tag}},
		{"I strike back.", []string{tag, "dice:17"}},
		{"It whimpers and dies.", []string{tag}},
	}
	for _, tc := range turns {
		turn := &game.Turn{PlayerID: w.player.ID, Role: game.RolePlayer, Content: tc.content, Tags: tc.tags}
		if err := mem.AppendTurn(ctx, turn); err != nil {
			t.Fatalf("AppendTurn: %v", err)
		}
	}

	if _, err := m.End(ctx, s.ID, "victory", "A wolf attacked and was slain."); err != nil {
		t.Fatalf("End: %v", err)
	}

	window, err := w.store.ListWindow(ctx, w.player.ID)
	if err != nil {
		t.Fatalf("ListWindow: %v", err)
	}
	if len(window) != 2 {
		t.Fatalf("window = %d turns, want 2 (blow-by-blow folded away)", len(window))
	}
	if window[1].Content != "A wolf attacked and was slain." {
		t.Errorf("summary turn = %q", window[1].Content)
	}
	if window[1].Role != game.RoleNarrator {
		t.Errorf("summary role = %s, want narrator", window[1].Role)
	}
}

func TestReconcile(t *testing.T) {
	w := newWorld(t)
	ctx := context.Background()
	m := New(w.store, nil, nil)

	s, err := m.Initiate(ctx, w.player.ID, "", []game.CharacterRef{npcRef(w.wolf)})
	if err != nil {
		t.Fatalf("Initiate: %v", err)
	}

	// Drift the authoritative record behind the roster's back.
	wolf, err := w.store.GetNPC(ctx, w.wolf.ID)
	if err != nil {
		t.Fatalf("GetNPC: %v", err)
	}
	wolf.Health = 3
	if err := w.store.UpdateNPC(ctx, wolf); err != nil {
		t.Fatalf("UpdateNPC: %v", err)
	}

	s, err = m.Reconcile(ctx, s.ID)
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if got := s.Combatant(npcRef(w.wolf)).HP; got != 3 {
		t.Errorf("reconciled roster HP = %d, want 3", got)
	}
}
