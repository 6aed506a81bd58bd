package gm

import (
	"context"
	"fmt"
	"strings"

	"fableforge/internal/game"
)

// Snapshot is everything the generator should know about the world before
// narrating, gathered in one pass so the common case needs no query tools.
type Snapshot struct {
	Player    *game.Player
	Location  *game.Location
	Inventory []itemLine
	Ground    []itemLine
	NPCs      []game.NPC
	Companion []game.NPC
	Quests    []game.Quest
	Combat    *game.CombatSession
}

type itemLine struct {
	InstanceID int64
	Name       string
	Quantity   int
}

const inventoryPreview = 10

func (o *Orchestrator) buildSnapshot(ctx context.Context, playerID int64) (*Snapshot, error) {
	p, err := o.store.GetPlayer(ctx, playerID)
	if err != nil {
		return nil, err
	}
	snap := &Snapshot{Player: p}

	if p.LocationID != 0 {
		loc, err := o.store.GetLocation(ctx, p.LocationID)
		if err != nil && !game.IsKind(err, game.KindNotFound) {
			return nil, err
		}
		snap.Location = loc
		if loc != nil {
			npcs, err := o.store.ListNPCsAtLocation(ctx, loc.ID)
			if err != nil {
				return nil, err
			}
			snap.NPCs = npcs

			ground, err := o.store.ListItemsAtLocation(ctx, loc.ID)
			if err != nil {
				return nil, err
			}
			snap.Ground, err = o.itemLines(ctx, ground)
			if err != nil {
				return nil, err
			}
		}
	}

	inv, err := o.store.ListItemsByOwner(ctx, game.OwnerPC, playerID)
	if err != nil {
		return nil, err
	}
	if snap.Inventory, err = o.itemLines(ctx, inv); err != nil {
		return nil, err
	}

	if snap.Companion, err = o.store.ListCompanions(ctx, playerID); err != nil {
		return nil, err
	}
	if snap.Quests, err = o.store.ListQuests(ctx, playerID, true); err != nil {
		return nil, err
	}
	if snap.Combat, err = o.store.GetActiveCombat(ctx, playerID); err != nil {
		return nil, err
	}
	return snap, nil
}

func (o *Orchestrator) itemLines(ctx context.Context, items []game.ItemInstance) ([]itemLine, error) {
	out := make([]itemLine, 0, len(items))
	for _, it := range items {
		name := it.CustomName
		if name == "" {
			t, err := o.store.GetItemTemplate(ctx, it.TemplateID)
			if err != nil {
				if !game.IsKind(err, game.KindNotFound) {
					return nil, err
				}
				name = "Unknown item"
			} else {
				name = t.Name
			}
		}
		out = append(out, itemLine{InstanceID: it.ID, Name: name, Quantity: it.Quantity})
	}
	return out, nil
}

// Format renders the snapshot for the system prompt, with hints pointing at
// the query tools that return the ids mutations need.
func (s *Snapshot) Format() string {
	var b strings.Builder
	p := s.Player

	fmt.Fprintf(&b, "## Current Session\n")
	fmt.Fprintf(&b, "- Player: %s (ID: %d)\n", p.Name, p.ID)
	fmt.Fprintf(&b, "- Class: %s | Level: %d\n", p.Class, p.Level)
	fmt.Fprintf(&b, "- Health: %d/%d\n", p.Health, p.MaxHealth)
	fmt.Fprintf(&b, "- Gold: %d\n", p.Gold)

	if s.Location != nil {
		fmt.Fprintf(&b, "\n## Current Location: %s (%s)\n", s.Location.Name, s.Location.LocationType)
		if s.Location.Description != "" {
			fmt.Fprintf(&b, "%s\n", s.Location.Description)
		}
	}

	fmt.Fprintf(&b, "\n## Inventory (%d items)\n", len(s.Inventory))
	if len(s.Inventory) == 0 {
		b.WriteString("- Empty\n")
	}
	for i, it := range s.Inventory {
		if i == inventoryPreview {
			fmt.Fprintf(&b, "- ...and %d more (use get_player_inventory for the full list)\n", len(s.Inventory)-inventoryPreview)
			break
		}
		fmt.Fprintf(&b, "- %s x%d (instance_id:%d)\n", it.Name, it.Quantity, it.InstanceID)
	}

	fmt.Fprintf(&b, "\n## Companions (%d)\n", len(s.Companion))
	if len(s.Companion) == 0 {
		b.WriteString("- None following\n")
	}
	companionIDs := make(map[int64]bool, len(s.Companion))
	for _, n := range s.Companion {
		companionIDs[n.ID] = true
		fmt.Fprintf(&b, "- %s (ID:%d) - %s, HP:%d/%d\n", n.Name, n.ID, n.NPCType, n.Health, n.MaxHealth)
	}

	others := 0
	for _, n := range s.NPCs {
		if !companionIDs[n.ID] {
			others++
		}
	}
	fmt.Fprintf(&b, "\n## Other NPCs Here (%d)\n", others)
	if others == 0 {
		b.WriteString("- None\n")
	}
	for _, n := range s.NPCs {
		if companionIDs[n.ID] {
			continue
		}
		fmt.Fprintf(&b, "- %s (ID:%d) - %s, %s, HP:%d/%d\n",
			n.Name, n.ID, n.NPCType, n.Behavior, n.Health, n.MaxHealth)
	}
	b.WriteString("(Use get_npc_info(npc_id) for dialogue and relationships.)\n")

	fmt.Fprintf(&b, "\n## Items on Ground (%d)\n", len(s.Ground))
	if len(s.Ground) == 0 {
		b.WriteString("- None\n")
	}
	for _, it := range s.Ground {
		fmt.Fprintf(&b, "- %s x%d (instance_id:%d)\n", it.Name, it.Quantity, it.InstanceID)
	}
	b.WriteString("(Use pickup_item(player_id, item_instance_id) to pick up.)\n")

	fmt.Fprintf(&b, "\n## Active Quests (%d)\n", len(s.Quests))
	if len(s.Quests) == 0 {
		b.WriteString("- None\n")
	}
	for _, q := range s.Quests {
		fmt.Fprintf(&b, "- %s (ID:%d)\n", q.Title, q.ID)
	}

	if s.Combat != nil {
		fmt.Fprintf(&b, "\n%s\n", s.Combat.PromptSummary())
		fmt.Fprintf(&b, "(session_id:%d; use update_combat_hp for damage and end_combat when the fight resolves.)\n", s.Combat.ID)
	}

	return b.String()
}
