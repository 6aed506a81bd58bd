package memory

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"fableforge/internal/game"
	"fableforge/internal/store"
)

// Summarizer condenses a batch of turns into an archive summary. The llm
// package provides the production implementation.
type Summarizer interface {
	Summarize(ctx context.Context, turns []game.Turn) (title, summary string, keywords []string, err error)
}

// Config controls the archiving policy. When the active window reaches
// MaxTurns, the oldest turns are archived so that MinTurns remain.
type Config struct {
	MaxTurns           int
	MinTurns           int
	SummariesInContext int
}

func DefaultConfig() Config {
	return Config{
		MaxTurns:           30,
		MinTurns:           15,
		SummariesInContext: 5,
	}
}

func (c Config) Validate() error {
	if c.MaxTurns <= 0 {
		return game.Validationf("session.max_turns must be positive, got %d", c.MaxTurns)
	}
	if c.MinTurns <= 0 {
		return game.Validationf("session.min_turns must be positive, got %d", c.MinTurns)
	}
	if c.MinTurns >= c.MaxTurns {
		return game.Validationf("session.min_turns (%d) must be below session.max_turns (%d)", c.MinTurns, c.MaxTurns)
	}
	if c.SummariesInContext < 0 {
		return game.Validationf("session.summaries_in_context must not be negative, got %d", c.SummariesInContext)
	}
	return nil
}

// Manager owns the per-player story log: the active window, the archive
// chapters behind it, and the summaries that bridge the two.
type Manager struct {
	store      store.Store
	summarizer Summarizer
	cfg        Config
	log        *slog.Logger
}

func New(st store.Store, summarizer Summarizer, cfg Config, log *slog.Logger) *Manager {
	if log == nil {
		log = slog.Default()
	}
	return &Manager{store: st, summarizer: summarizer, cfg: cfg, log: log}
}

// AppendTurn persists the turn and then runs the archiving check, so the
// window can sit at the limit only transiently within this call.
func (m *Manager) AppendTurn(ctx context.Context, t *game.Turn) error {
	if err := m.store.AppendTurn(ctx, t); err != nil {
		return err
	}
	return m.maybeArchive(ctx, t.PlayerID)
}

func (m *Manager) maybeArchive(ctx context.Context, playerID int64) error {
	count, err := m.store.CountWindow(ctx, playerID)
	if err != nil {
		return err
	}
	if count < m.cfg.MaxTurns {
		return nil
	}

	window, err := m.store.ListWindow(ctx, playerID)
	if err != nil {
		return err
	}
	overflow := len(window) - m.cfg.MinTurns
	if overflow <= 0 {
		return nil
	}
	batch := window[:overflow]

	ids := make([]int64, len(batch))
	for i, t := range batch {
		ids[i] = t.ID
	}

	// The archive row is written with a placeholder before summarization is
	// attempted, so a summarizer outage can never lose turns.
	a := &game.Archive{
		PlayerID:     playerID,
		Title:        placeholderTitle(batch),
		Summary:      placeholderSummary(batch),
		SeqStart:     batch[0].Seq,
		SeqEnd:       batch[len(batch)-1].Seq,
		NeedsSummary: true,
	}
	if _, err := m.store.ArchiveTurns(ctx, a, ids); err != nil {
		return fmt.Errorf("archiving %d turns for player %d: %w", len(batch), playerID, err)
	}
	m.log.Info("archived session turns",
		"player_id", playerID, "archive", a.Number, "turns", len(batch))

	m.summarizeArchive(ctx, a, batch)
	return nil
}

func (m *Manager) summarizeArchive(ctx context.Context, a *game.Archive, turns []game.Turn) {
	if m.summarizer == nil {
		return
	}
	title, summary, keywords, err := m.summarizer.Summarize(ctx, turns)
	if err != nil {
		m.log.Warn("summarization failed, keeping placeholder",
			"player_id", a.PlayerID, "archive", a.Number, "error", err)
		return
	}
	if err := m.store.SetArchiveSummary(ctx, a.ID, title, summary, keywords); err != nil {
		m.log.Warn("storing archive summary failed",
			"player_id", a.PlayerID, "archive", a.Number, "error", err)
		return
	}
	a.Title = title
	a.Summary = summary
	a.Keywords = keywords
	a.NeedsSummary = false
}

func placeholderTitle(turns []game.Turn) string {
	return fmt.Sprintf("Turns %d to %d", turns[0].Seq, turns[len(turns)-1].Seq)
}

func placeholderSummary(turns []game.Turn) string {
	return fmt.Sprintf("Summary pending for %d turns recorded around %s.",
		len(turns), turns[len(turns)-1].CreatedAt.Format(time.RFC3339))
}

// RetryPendingSummaries re-runs summarization for archives still carrying a
// placeholder. Returns how many were filled in.
func (m *Manager) RetryPendingSummaries(ctx context.Context, playerID int64) (int, error) {
	pending, err := m.store.ListArchivesNeedingSummary(ctx, playerID)
	if err != nil {
		return 0, err
	}
	filled := 0
	for i := range pending {
		a := &pending[i]
		turns, err := m.store.ListArchivedTurns(ctx, a.ID)
		if err != nil {
			return filled, err
		}
		m.summarizeArchive(ctx, a, turns)
		if !a.NeedsSummary {
			filled++
		}
	}
	return filled, nil
}

// Context is the memory slice handed to the prompt builder: the most recent
// archive summaries (oldest of the selection first) and the newest window
// turns in chronological order.
type Context struct {
	Summaries []game.Archive
	Recent    []game.Turn
}

func (m *Manager) Context(ctx context.Context, playerID int64, nRecent, nSummaries int) (*Context, error) {
	if nSummaries < 0 {
		nSummaries = m.cfg.SummariesInContext
	}
	summaries, err := m.store.ListArchives(ctx, playerID, nSummaries)
	if err != nil {
		return nil, err
	}
	// ListArchives is newest first; the prompt reads them oldest first.
	for i, j := 0, len(summaries)-1; i < j; i, j = i+1, j-1 {
		summaries[i], summaries[j] = summaries[j], summaries[i]
	}

	if nRecent <= 0 {
		nRecent = m.cfg.MaxTurns
	}
	recent, err := m.store.RecentTurns(ctx, playerID, nRecent)
	if err != nil {
		return nil, err
	}
	return &Context{Summaries: summaries, Recent: recent}, nil
}

func (m *Manager) Search(ctx context.Context, playerID int64, query string) ([]game.Archive, error) {
	if query == "" {
		return nil, game.Validationf("search query must not be empty")
	}
	return m.store.SearchArchives(ctx, playerID, query)
}

// Recall returns an archived chapter by its per-player number together with
// its full transcript.
func (m *Manager) Recall(ctx context.Context, playerID, number int64) (*game.Archive, []game.Turn, error) {
	a, err := m.store.GetArchive(ctx, playerID, number)
	if err != nil {
		return nil, nil, err
	}
	turns, err := m.store.ListArchivedTurns(ctx, a.ID)
	if err != nil {
		return nil, nil, err
	}
	return a, turns, nil
}

// CompressTagged folds every window turn carrying tag into a single narrator
// turn holding summary. Returns the number of turns removed.
func (m *Manager) CompressTagged(ctx context.Context, playerID int64, tag, summary string) (int, error) {
	if tag == "" {
		return 0, game.Validationf("compression tag must not be empty")
	}
	replacement := &game.Turn{
		PlayerID: playerID,
		Role:     game.RoleNarrator,
		Content:  summary,
	}
	removed, err := m.store.CompressTaggedTurns(ctx, playerID, tag, replacement)
	if err != nil {
		return 0, err
	}
	if removed > 0 {
		m.log.Info("compressed tagged turns",
			"player_id", playerID, "tag", tag, "removed", removed)
	}
	return removed, nil
}
