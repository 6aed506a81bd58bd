package memory

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"fableforge/internal/game"
	"fableforge/internal/store"
	"fableforge/internal/store/sqlite"
)

type fakeSummarizer struct {
	fail  bool
	calls int
}

func (f *fakeSummarizer) Summarize(ctx context.Context, turns []game.Turn) (string, string, []string, error) {
	f.calls++
	if f.fail {
		return "", "", nil, errors.New("model unavailable")
	}
	title := fmt.Sprintf("Chapter of %d turns", len(turns))
	return title, "The hero pressed on.", []string{"hero", "journey"}, nil
}

func newTestStore(t *testing.T) store.Store {
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
	return c
}

func newTestPlayer(t *testing.T, st store.Store) *game.Player {
	t.Helper()
	ctx := context.Background()
	p := &game.Player{Name: "Aria", Health: 20, MaxHealth: 20}
	if _, err := st.CreatePlayer(ctx, p); err != nil {
		t.Fatalf("CreatePlayer: %v", err)
	}
	return p
}

func testConfig() Config {
	return Config{MaxTurns: 20, MinTurns: 10, SummariesInContext: 5}
}

func appendTurns(t *testing.T, m *Manager, playerID int64, n int) {
	t.Helper()
	ctx := context.Background()
	for i := 0; i < n; i++ {
		role := game.RolePlayer
		if i%2 == 1 {
			role = game.RoleNarrator
		}
		turn := &game.Turn{PlayerID: playerID, Role: role, Content: fmt.Sprintf("turn %d", i+1)}
		if err := m.AppendTurn(ctx, turn); err != nil {
			t.Fatalf("AppendTurn %d: %v", i+1, err)
		}
	}
}

func TestArchivingKeepsNewestTurns(t *testing.T) {
	st := newTestStore(t)
	p := newTestPlayer(t, st)
	sum := &fakeSummarizer{}
	m := New(st, sum, testConfig(), nil)
	ctx := context.Background()

	appendTurns(t, m, p.ID, 19)
	if n, _ := st.CountWindow(ctx, p.ID); n != 19 {
		t.Fatalf("window below limit = %d turns, want 19 (no archive yet)", n)
	}

	// The 20th turn reaches the threshold: the oldest 10 are archived so
	// the newest 10 remain.
	turn20 := &game.Turn{PlayerID: p.ID, Role: game.RoleNarrator, Content: "turn 20"}
	if err := m.AppendTurn(ctx, turn20); err != nil {
		t.Fatalf("AppendTurn 20: %v", err)
	}
	n, err := st.CountWindow(ctx, p.ID)
	if err != nil {
		t.Fatalf("CountWindow: %v", err)
	}
	if n != 10 {
		t.Errorf("window after archive = %d turns, want 10", n)
	}

	archives, err := st.ListArchives(ctx, p.ID, 0)
	if err != nil {
		t.Fatalf("ListArchives: %v", err)
	}
	if len(archives) != 1 {
		t.Fatalf("archives = %d, want 1", len(archives))
	}
	a := archives[0]
	if a.SeqStart != 1 || a.SeqEnd != 10 {
		t.Errorf("archive covers seq %d..%d, want 1..10", a.SeqStart, a.SeqEnd)
	}
	if a.NeedsSummary {
		t.Error("archive still flagged needs_summary after successful summarization")
	}
	if a.Summary != "The hero pressed on." {
		t.Errorf("archive summary = %q", a.Summary)
	}

	turns, err := st.ListArchivedTurns(ctx, a.ID)
	if err != nil {
		t.Fatalf("ListArchivedTurns: %v", err)
	}
	if len(turns) != 10 {
		t.Errorf("archived transcript = %d turns, want 10", len(turns))
	}

	window, err := st.ListWindow(ctx, p.ID)
	if err != nil {
		t.Fatalf("ListWindow: %v", err)
	}
	if window[0].Content != "turn 11" || window[len(window)-1].Content != "turn 20" {
		t.Errorf("window spans %q..%q, want turn 11..turn 20",
			window[0].Content, window[len(window)-1].Content)
	}
}

func TestSummarizerFailureKeepsTurns(t *testing.T) {
	st := newTestStore(t)
	p := newTestPlayer(t, st)
	sum := &fakeSummarizer{fail: true}
	m := New(st, sum, testConfig(), nil)
	ctx := context.Background()

	appendTurns(t, m, p.ID, 20)

	archives, err := st.ListArchives(ctx, p.ID, 0)
	if err != nil {
		t.Fatalf("ListArchives: %v", err)
	}
	if len(archives) != 1 {
		t.Fatalf("archives = %d, want 1 despite summarizer failure", len(archives))
	}
	a := archives[0]
	if !a.NeedsSummary {
		t.Error("archive not flagged needs_summary after summarizer failure")
	}
	if a.Summary == "" {
		t.Error("placeholder summary missing")
	}
	turns, err := st.ListArchivedTurns(ctx, a.ID)
	if err != nil {
		t.Fatalf("ListArchivedTurns: %v", err)
	}
	if len(turns) != 10 {
		t.Errorf("archived transcript = %d turns, want 10 (none lost)", len(turns))
	}

	// Once the summarizer recovers, the retry pass fills the summary in.
	sum.fail = false
	filled, err := m.RetryPendingSummaries(ctx, p.ID)
	if err != nil {
		t.Fatalf("RetryPendingSummaries: %v", err)
	}
	if filled != 1 {
		t.Errorf("retry filled %d archives, want 1", filled)
	}
	pending, err := st.ListArchivesNeedingSummary(ctx, p.ID)
	if err != nil {
		t.Fatalf("ListArchivesNeedingSummary: %v", err)
	}
	if len(pending) != 0 {
		t.Errorf("%d archives still pending after retry", len(pending))
	}
}

func TestContextShape(t *testing.T) {
	st := newTestStore(t)
	p := newTestPlayer(t, st)
	m := New(st, &fakeSummarizer{}, testConfig(), nil)
	ctx := context.Background()

	// Two archive cycles: turns pile up past the limit twice.
	appendTurns(t, m, p.ID, 21)
	appendTurns(t, m, p.ID, 11)

	mc, err := m.Context(ctx, p.ID, 5, 5)
	if err != nil {
		t.Fatalf("Context: %v", err)
	}
	if len(mc.Summaries) != 2 {
		t.Fatalf("context summaries = %d, want 2", len(mc.Summaries))
	}
	if mc.Summaries[0].Number != 1 || mc.Summaries[1].Number != 2 {
		t.Errorf("summaries ordered %d, %d; want oldest first",
			mc.Summaries[0].Number, mc.Summaries[1].Number)
	}
	if len(mc.Recent) != 5 {
		t.Fatalf("context recent = %d turns, want 5", len(mc.Recent))
	}
	for i := 1; i < len(mc.Recent); i++ {
		if mc.Recent[i].Seq <= mc.Recent[i-1].Seq {
			t.Errorf("recent turns out of order at %d", i)
		}
	}

	// Same inputs, same output.
	again, err := m.Context(ctx, p.ID, 5, 5)
	if err != nil {
		t.Fatalf("Context again: %v", err)
	}
	if len(again.Recent) != len(mc.Recent) || again.Recent[0].ID != mc.Recent[0].ID {
		t.Error("context not deterministic for unchanged state")
	}
}

func TestRecallAndSearch(t *testing.T) {
	st := newTestStore(t)
	p := newTestPlayer(t, st)
	m := New(st, &fakeSummarizer{}, testConfig(), nil)
	ctx := context.Background()

	appendTurns(t, m, p.ID, 20)

	a, turns, err := m.Recall(ctx, p.ID, 1)
	if err != nil {
		t.Fatalf("Recall: %v", err)
	}
	if a.Number != 1 || len(turns) != 10 {
		t.Errorf("Recall = archive %d with %d turns, want 1 with 10", a.Number, len(turns))
	}

	if _, _, err := m.Recall(ctx, p.ID, 99); !game.IsKind(err, game.KindNotFound) {
		t.Errorf("Recall(99) kind = %v, want NotFoundError", game.KindOf(err))
	}

	hits, err := m.Search(ctx, p.ID, "hero")
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(hits) != 1 {
		t.Errorf("search hits = %d, want 1", len(hits))
	}
	if _, err := m.Search(ctx, p.ID, ""); !game.IsKind(err, game.KindValidation) {
		t.Errorf("empty search kind = %v, want ValidationError", game.KindOf(err))
	}
}
