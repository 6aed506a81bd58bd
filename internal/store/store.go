package store

import (
	"context"

	"fableforge/internal/game"
)

// Store is the durable world state contract. Implementations must make the
// composite operations (TransferItem, ConsumeItem, ApplyCombatHP,
// ArchiveTurns, CompressTaggedTurns) atomic: they either fully apply or
// leave prior state unchanged.
//
// Missing entities surface as game.KindNotFound errors; invariant
// violations (unexpected owner, second active combat) as game.KindConflict.
type Store interface {
	Close(ctx context.Context) error
	EnsureSchema(ctx context.Context) error

	// Players
	CreatePlayer(ctx context.Context, p *game.Player) (int64, error)
	GetPlayer(ctx context.Context, id int64) (*game.Player, error)
	UpdatePlayer(ctx context.Context, p *game.Player) error

	// NPCs
	CreateNPC(ctx context.Context, n *game.NPC) (int64, error)
	GetNPC(ctx context.Context, id int64) (*game.NPC, error)
	UpdateNPC(ctx context.Context, n *game.NPC) error
	ListNPCsAtLocation(ctx context.Context, locationID int64) ([]game.NPC, error)
	ListCompanions(ctx context.Context, playerID int64) ([]game.NPC, error)

	// Locations
	CreateLocation(ctx context.Context, l *game.Location) (int64, error)
	GetLocation(ctx context.Context, id int64) (*game.Location, error)
	ListLocations(ctx context.Context) ([]game.Location, error)

	// Item templates and instances
	CreateItemTemplate(ctx context.Context, t *game.ItemTemplate) (int64, error)
	GetItemTemplate(ctx context.Context, id int64) (*game.ItemTemplate, error)
	ListItemTemplates(ctx context.Context, category string) ([]game.ItemTemplate, error)
	CreateItemInstance(ctx context.Context, it *game.ItemInstance) (int64, error)
	GetItemInstance(ctx context.Context, id int64) (*game.ItemInstance, error)
	ListItemsByOwner(ctx context.Context, ownerType game.OwnerType, ownerID int64) ([]game.ItemInstance, error)
	ListItemsAtLocation(ctx context.Context, locationID int64) ([]game.ItemInstance, error)
	// TransferItem re-checks the current owner against expect before
	// flipping ownership; mismatch is a conflict and nothing changes.
	TransferItem(ctx context.Context, instanceID int64, expect, to game.OwnerRef) error
	// ConsumeItem decrements quantity by n and deletes the row when it
	// reaches zero. Returns the remaining quantity.
	ConsumeItem(ctx context.Context, instanceID int64, n int) (int, error)

	// Relationships. Pairs are canonicalized by the caller via
	// game.CanonicalPair before lookup.
	GetRelationship(ctx context.Context, source, target game.CharacterRef) (*game.Relationship, error)
	UpsertRelationship(ctx context.Context, r *game.Relationship) error

	// Quests
	CreateQuest(ctx context.Context, q *game.Quest) (int64, error)
	GetQuest(ctx context.Context, id int64) (*game.Quest, error)
	UpdateQuest(ctx context.Context, q *game.Quest) error
	ListQuests(ctx context.Context, playerID int64, activeOnly bool) ([]game.Quest, error)

	// Combat. CreateCombatSession fails with a conflict when the player
	// already has an active session. GetActiveCombat returns (nil, nil)
	// when the player is not in combat.
	CreateCombatSession(ctx context.Context, s *game.CombatSession) (int64, error)
	GetCombatSession(ctx context.Context, id int64) (*game.CombatSession, error)
	GetActiveCombat(ctx context.Context, playerID int64) (*game.CombatSession, error)
	UpdateCombatSession(ctx context.Context, s *game.CombatSession) error
	// ApplyCombatHP persists the session rosters and sets the referenced
	// character's authoritative health to hp in one transaction.
	ApplyCombatHP(ctx context.Context, s *game.CombatSession, ref game.CharacterRef, hp int) error

	// Story log. AppendTurn allocates the next per-player sequence number
	// and fills t.ID and t.Seq.
	AppendTurn(ctx context.Context, t *game.Turn) error
	ListWindow(ctx context.Context, playerID int64) ([]game.Turn, error)
	CountWindow(ctx context.Context, playerID int64) (int, error)
	RecentTurns(ctx context.Context, playerID int64, n int) ([]game.Turn, error)
	// CompressTaggedTurns removes every window turn carrying tag and
	// inserts replacement at the first removed position. Returns the
	// number of turns removed (zero is not an error).
	CompressTaggedTurns(ctx context.Context, playerID int64, tag string, replacement *game.Turn) (int, error)

	// Archives. ArchiveTurns creates the archive row and moves the given
	// turns out of the active window in one transaction.
	ArchiveTurns(ctx context.Context, a *game.Archive, turnIDs []int64) (int64, error)
	SetArchiveSummary(ctx context.Context, archiveID int64, title, summary string, keywords []string) error
	GetArchive(ctx context.Context, playerID, number int64) (*game.Archive, error)
	ListArchives(ctx context.Context, playerID int64, limit int) ([]game.Archive, error)
	ListArchivesNeedingSummary(ctx context.Context, playerID int64) ([]game.Archive, error)
	ListArchivedTurns(ctx context.Context, archiveID int64) ([]game.Turn, error)
	SearchArchives(ctx context.Context, playerID int64, query string) ([]game.Archive, error)
}
