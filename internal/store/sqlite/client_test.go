package sqlite

import (
	"context"
	"testing"

	"fableforge/internal/game"
)

func newTestClient(t *testing.T) *Client {
	t.Helper()
	ctx := context.Background()
	c, err := New(ctx, "sqlite://:memory:")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { c.Close(context.Background()) })
	if err := c.EnsureSchema(ctx); err != nil {
		t.Fatalf("EnsureSchema: %v", err)
	}
	return c
}

func seedPlayer(t *testing.T, c *Client) *game.Player {
	t.Helper()
	ctx := context.Background()
	loc := &game.Location{Name: "Millbrook", Description: "A quiet village."}
	if _, err := c.CreateLocation(ctx, loc); err != nil {
		t.Fatalf("CreateLocation: %v", err)
	}
	p := &game.Player{
		Name: "Aria", Class: "ranger", Level: 1,
		Health: 20, MaxHealth: 20, Gold: 10, LocationID: loc.ID,
	}
	if _, err := c.CreatePlayer(ctx, p); err != nil {
		t.Fatalf("CreatePlayer: %v", err)
	}
	return p
}

func TestPlayerRoundTrip(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()
	p := seedPlayer(t, c)

	got, err := c.GetPlayer(ctx, p.ID)
	if err != nil {
		t.Fatalf("GetPlayer: %v", err)
	}
	if got.Name != "Aria" || got.Health != 20 || got.LocationID != p.LocationID {
		t.Errorf("GetPlayer = %+v, want name Aria, health 20", got)
	}

	got.Health = 12
	got.Gold = 35
	if err := c.UpdatePlayer(ctx, got); err != nil {
		t.Fatalf("UpdatePlayer: %v", err)
	}
	again, err := c.GetPlayer(ctx, p.ID)
	if err != nil {
		t.Fatalf("GetPlayer after update: %v", err)
	}
	if again.Health != 12 || again.Gold != 35 {
		t.Errorf("after update health=%d gold=%d, want 12 and 35", again.Health, again.Gold)
	}

	_, err = c.GetPlayer(ctx, 9999)
	if !game.IsKind(err, game.KindNotFound) {
		t.Errorf("GetPlayer(9999) kind = %v, want NotFoundError", game.KindOf(err))
	}
}

func TestTurnSequencing(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()
	p := seedPlayer(t, c)

	for i, content := range []string{"I look around.", "You see a well.", "I approach it."} {
		role := game.RolePlayer
		if i == 1 {
			role = game.RoleNarrator
		}
		turn := &game.Turn{PlayerID: p.ID, Role: role, Content: content}
		if err := c.AppendTurn(ctx, turn); err != nil {
			t.Fatalf("AppendTurn %d: %v", i, err)
		}
		if turn.Seq != int64(i+1) {
			t.Errorf("turn %d got seq %d, want %d", i, turn.Seq, i+1)
		}
	}

	window, err := c.ListWindow(ctx, p.ID)
	if err != nil {
		t.Fatalf("ListWindow: %v", err)
	}
	if len(window) != 3 {
		t.Fatalf("window has %d turns, want 3", len(window))
	}
	for i := 1; i < len(window); i++ {
		if window[i].Seq <= window[i-1].Seq {
			t.Errorf("window not ordered: seq %d after %d", window[i].Seq, window[i-1].Seq)
		}
	}

	recent, err := c.RecentTurns(ctx, p.ID, 2)
	if err != nil {
		t.Fatalf("RecentTurns: %v", err)
	}
	if len(recent) != 2 || recent[0].Content != "You see a well." || recent[1].Content != "I approach it." {
		t.Errorf("RecentTurns = %+v, want last two in chronological order", recent)
	}
}

func TestArchiveTurns(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()
	p := seedPlayer(t, c)

	var ids []int64
	for i := 0; i < 6; i++ {
		turn := &game.Turn{PlayerID: p.ID, Role: game.RolePlayer, Content: "turn"}
		if err := c.AppendTurn(ctx, turn); err != nil {
			t.Fatalf("AppendTurn: %v", err)
		}
		ids = append(ids, turn.ID)
	}

	a := &game.Archive{
		PlayerID: p.ID, Title: "Chapter 1", Summary: "The journey begins.",
		Keywords: []string{"well", "village"}, SeqStart: 1, SeqEnd: 4,
	}
	if _, err := c.ArchiveTurns(ctx, a, ids[:4]); err != nil {
		t.Fatalf("ArchiveTurns: %v", err)
	}
	if a.Number != 1 {
		t.Errorf("first archive number = %d, want 1", a.Number)
	}

	n, err := c.CountWindow(ctx, p.ID)
	if err != nil {
		t.Fatalf("CountWindow: %v", err)
	}
	if n != 2 {
		t.Errorf("window after archiving = %d turns, want 2", n)
	}

	archived, err := c.ListArchivedTurns(ctx, a.ID)
	if err != nil {
		t.Fatalf("ListArchivedTurns: %v", err)
	}
	if len(archived) != 4 {
		t.Errorf("archive holds %d turns, want 4", len(archived))
	}

	// Archiving an already-archived turn must fail rather than double count.
	b := &game.Archive{PlayerID: p.ID, SeqStart: 1, SeqEnd: 2}
	if _, err := c.ArchiveTurns(ctx, b, ids[:2]); !game.IsKind(err, game.KindConflict) {
		t.Errorf("re-archiving kind = %v, want ConflictError", game.KindOf(err))
	}
}

func TestSearchArchives(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()
	p := seedPlayer(t, c)

	for i, kw := range [][]string{{"dragon", "cave"}, {"market", "thief"}} {
		turn := &game.Turn{PlayerID: p.ID, Role: game.RolePlayer, Content: "turn"}
		if err := c.AppendTurn(ctx, turn); err != nil {
			t.Fatalf("AppendTurn: %v", err)
		}
		a := &game.Archive{
			PlayerID: p.ID, Title: "Chapter", Summary: "Events unfold.",
			Keywords: kw, SeqStart: turn.Seq, SeqEnd: turn.Seq,
		}
		if _, err := c.ArchiveTurns(ctx, a, []int64{turn.ID}); err != nil {
			t.Fatalf("ArchiveTurns %d: %v", i, err)
		}
	}

	hits, err := c.SearchArchives(ctx, p.ID, "DRAGON")
	if err != nil {
		t.Fatalf("SearchArchives: %v", err)
	}
	if len(hits) != 1 || hits[0].Number != 1 {
		t.Errorf("search for DRAGON = %+v, want archive number 1", hits)
	}

	all, err := c.ListArchives(ctx, p.ID, 0)
	if err != nil {
		t.Fatalf("ListArchives: %v", err)
	}
	if len(all) != 2 || all[0].Number != 2 {
		t.Errorf("ListArchives = %+v, want 2 archives newest first", all)
	}
}

func TestCompressTaggedTurns(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()
	p := seedPlayer(t, c)

	contents := []struct {
		text string
		tags []string
	}{
		{"I enter the cave.", nil},
		{"A wolf attacks!", []string{game.CombatTag(7)}},
		{"I swing my sword.", []string{game.CombatTag(7), "dice:15"}},
		{"The wolf falls.", []string{game.CombatTag(7)}},
		{"I catch my breath.", nil},
	}
	for _, tc := range contents {
		turn := &game.Turn{PlayerID: p.ID, Role: game.RolePlayer, Content: tc.text, Tags: tc.tags}
		if err := c.AppendTurn(ctx, turn); err != nil {
			t.Fatalf("AppendTurn: %v", err)
		}
	}

	summary := &game.Turn{Role: game.RoleNarrator, Content: "You fought off a wolf in the cave."}
	removed, err := c.CompressTaggedTurns(ctx, p.ID, game.CombatTag(7), summary)
	if err != nil {
		t.Fatalf("CompressTaggedTurns: %v", err)
	}
	if removed != 3 {
		t.Errorf("removed %d turns, want 3", removed)
	}
	if summary.Seq != 2 {
		t.Errorf("summary seq = %d, want 2 (first removed slot)", summary.Seq)
	}

	window, err := c.ListWindow(ctx, p.ID)
	if err != nil {
		t.Fatalf("ListWindow: %v", err)
	}
	want := []string{"I enter the cave.", "You fought off a wolf in the cave.", "I catch my breath."}
	if len(window) != len(want) {
		t.Fatalf("window = %d turns, want %d", len(window), len(want))
	}
	for i, w := range want {
		if window[i].Content != w {
			t.Errorf("window[%d] = %q, want %q", i, window[i].Content, w)
		}
	}

	// No matches is a no-op, not an error.
	removed, err = c.CompressTaggedTurns(ctx, p.ID, game.CombatTag(99), summary)
	if err != nil || removed != 0 {
		t.Errorf("compressing absent tag = (%d, %v), want (0, nil)", removed, err)
	}
}

func TestSingleActiveCombat(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()
	p := seedPlayer(t, c)

	ref := game.CharacterRef{Type: game.CharacterPC, ID: p.ID}
	s := &game.CombatSession{
		PlayerID: p.ID, Status: game.CombatActive,
		TeamPlayer: []game.Combatant{{Ref: ref, Name: "Aria", HP: 20, MaxHP: 20}},
	}
	if _, err := c.CreateCombatSession(ctx, s); err != nil {
		t.Fatalf("CreateCombatSession: %v", err)
	}

	dup := &game.CombatSession{PlayerID: p.ID, Status: game.CombatActive}
	if _, err := c.CreateCombatSession(ctx, dup); !game.IsKind(err, game.KindConflict) {
		t.Errorf("second active combat kind = %v, want ConflictError", game.KindOf(err))
	}

	s.Status = game.CombatEnded
	if err := c.UpdateCombatSession(ctx, s); err != nil {
		t.Fatalf("UpdateCombatSession: %v", err)
	}
	if _, err := c.CreateCombatSession(ctx, dup); err != nil {
		t.Errorf("new combat after ending previous: %v", err)
	}

	active, err := c.GetActiveCombat(ctx, p.ID)
	if err != nil {
		t.Fatalf("GetActiveCombat: %v", err)
	}
	if active == nil || active.ID != dup.ID {
		t.Errorf("GetActiveCombat = %+v, want session %d", active, dup.ID)
	}
}

func TestItemTransferAndConsume(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()
	p := seedPlayer(t, c)

	tmpl := &game.ItemTemplate{Name: "Healing Potion", Category: "potion"}
	if _, err := c.CreateItemTemplate(ctx, tmpl); err != nil {
		t.Fatalf("CreateItemTemplate: %v", err)
	}

	ground := game.OwnerRef{Type: game.OwnerNone, LocationID: p.LocationID}
	inst := &game.ItemInstance{TemplateID: tmpl.ID, Owner: ground, Quantity: 3}
	if _, err := c.CreateItemInstance(ctx, inst); err != nil {
		t.Fatalf("CreateItemInstance: %v", err)
	}

	toPlayer := game.OwnerRef{Type: game.OwnerPC, ID: p.ID}
	if err := c.TransferItem(ctx, inst.ID, ground, toPlayer); err != nil {
		t.Fatalf("TransferItem: %v", err)
	}

	// Stale expectation must conflict, not silently move.
	if err := c.TransferItem(ctx, inst.ID, ground, toPlayer); !game.IsKind(err, game.KindConflict) {
		t.Errorf("stale transfer kind = %v, want ConflictError", game.KindOf(err))
	}

	left, err := c.ConsumeItem(ctx, inst.ID, 2)
	if err != nil {
		t.Fatalf("ConsumeItem: %v", err)
	}
	if left != 1 {
		t.Errorf("remaining quantity = %d, want 1", left)
	}

	if _, err := c.ConsumeItem(ctx, inst.ID, 5); !game.IsKind(err, game.KindConflict) {
		t.Errorf("over-consume kind = %v, want ConflictError", game.KindOf(err))
	}

	left, err = c.ConsumeItem(ctx, inst.ID, 1)
	if err != nil || left != 0 {
		t.Fatalf("final ConsumeItem = (%d, %v), want (0, nil)", left, err)
	}
	if _, err := c.GetItemInstance(ctx, inst.ID); !game.IsKind(err, game.KindNotFound) {
		t.Errorf("consumed instance kind = %v, want NotFoundError", game.KindOf(err))
	}
}

func TestRelationshipUpsert(t *testing.T) {
	c := newTestClient(t)
	ctx := context.Background()
	p := seedPlayer(t, c)

	npc := &game.NPC{Name: "Bram", NPCType: "merchant", Health: 10, MaxHealth: 10,
		LocationID: p.LocationID, Behavior: game.BehaviorPassive}
	if _, err := c.CreateNPC(ctx, npc); err != nil {
		t.Fatalf("CreateNPC: %v", err)
	}

	pc := game.CharacterRef{Type: game.CharacterPC, ID: p.ID}
	nr := game.CharacterRef{Type: game.CharacterNPC, ID: npc.ID}

	r := &game.Relationship{Source: nr, Target: pc, Score: 30, Notes: "sold him a map"}
	if err := c.UpsertRelationship(ctx, r); err != nil {
		t.Fatalf("UpsertRelationship: %v", err)
	}

	// Lookup with operands swapped resolves the same canonical pair.
	got, err := c.GetRelationship(ctx, pc, nr)
	if err != nil {
		t.Fatalf("GetRelationship: %v", err)
	}
	if got.Score != 30 || got.Notes != "sold him a map" {
		t.Errorf("GetRelationship = %+v, want score 30", got)
	}

	r.Score = 150 // clamped on write
	r.Notes = ""
	if err := c.UpsertRelationship(ctx, r); err != nil {
		t.Fatalf("UpsertRelationship update: %v", err)
	}
	got, err = c.GetRelationship(ctx, nr, pc)
	if err != nil {
		t.Fatalf("GetRelationship after update: %v", err)
	}
	if got.Score != game.RelationshipMax {
		t.Errorf("score = %d, want clamped to %d", got.Score, game.RelationshipMax)
	}
	if got.Notes != "sold him a map" {
		t.Errorf("empty notes overwrote existing notes: %q", got.Notes)
	}
}
