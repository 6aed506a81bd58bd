package tools

import (
	"context"

	"fableforge/internal/game"
)

func (r *Registry) registerQueries() {
	r.register(&Tool{
		Name:        "get_player_info",
		Description: "Get detailed information about a player character including stats, inventory, and current location.",
		Kind:        KindQuery,
		Params: map[string]Param{
			"player_id": {Type: "integer", Description: "player character id", Required: true},
		},
		Handler: func(ctx context.Context, args Args) (any, error) {
			p, err := r.store.GetPlayer(ctx, args.Int64("player_id"))
			if err != nil {
				return nil, err
			}
			payload := map[string]any{
				"id":          p.ID,
				"name":        p.Name,
				"class":       p.Class,
				"level":       p.Level,
				"health":      p.Health,
				"max_health":  p.MaxHealth,
				"experience":  p.Experience,
				"gold":        p.Gold,
				"description": p.Description,
			}
			if p.LocationID != 0 {
				if loc, err := r.store.GetLocation(ctx, p.LocationID); err == nil {
					payload["location"] = map[string]any{
						"id": loc.ID, "name": loc.Name, "description": loc.Description,
					}
				}
			}
			inventory, err := r.inventoryEntries(ctx, game.OwnerPC, p.ID)
			if err != nil {
				return nil, err
			}
			payload["inventory"] = inventory
			return payload, nil
		},
	})

	r.register(&Tool{
		Name:        "get_location_info",
		Description: "Get information about a location including NPCs and items present there.",
		Kind:        KindQuery,
		Params: map[string]Param{
			"location_id": {Type: "integer", Description: "location id", Required: true},
		},
		Handler: func(ctx context.Context, args Args) (any, error) {
			loc, err := r.store.GetLocation(ctx, args.Int64("location_id"))
			if err != nil {
				return nil, err
			}
			npcs, err := r.store.ListNPCsAtLocation(ctx, loc.ID)
			if err != nil {
				return nil, err
			}
			npcEntries := make([]map[string]any, 0, len(npcs))
			for _, n := range npcs {
				npcEntries = append(npcEntries, map[string]any{
					"id": n.ID, "name": n.Name, "type": n.NPCType, "behavior": string(n.Behavior),
				})
			}
			items, err := r.groundEntries(ctx, loc.ID)
			if err != nil {
				return nil, err
			}
			return map[string]any{
				"id":          loc.ID,
				"name":        loc.Name,
				"description": loc.Description,
				"type":        loc.LocationType,
				"npcs":        npcEntries,
				"items":       items,
			}, nil
		},
	})

	r.register(&Tool{
		Name:        "get_npc_info",
		Description: "Get detailed information about an NPC including disposition and inventory.",
		Kind:        KindQuery,
		Params: map[string]Param{
			"npc_id": {Type: "integer", Description: "NPC id", Required: true},
		},
		Handler: func(ctx context.Context, args Args) (any, error) {
			n, err := r.store.GetNPC(ctx, args.Int64("npc_id"))
			if err != nil {
				return nil, err
			}
			payload := map[string]any{
				"id":          n.ID,
				"name":        n.Name,
				"type":        n.NPCType,
				"description": n.Description,
				"dialogue":    n.Dialogue,
				"health":      n.Health,
				"max_health":  n.MaxHealth,
				"behavior":    string(n.Behavior),
				"disposition": n.Disposition,
				"attitude":    string(game.DispositionFor(n.Disposition)),
			}
			if n.LocationID != 0 {
				if loc, err := r.store.GetLocation(ctx, n.LocationID); err == nil {
					payload["location"] = map[string]any{"id": loc.ID, "name": loc.Name}
				}
			}
			if n.FollowingPlayerID != 0 {
				payload["following_player_id"] = n.FollowingPlayerID
			}
			return payload, nil
		},
	})

	r.register(&Tool{
		Name:        "get_npcs_at_location",
		Description: "Get all NPCs at a specific location.",
		Kind:        KindQuery,
		Params: map[string]Param{
			"location_id": {Type: "integer", Description: "location id", Required: true},
		},
		Handler: func(ctx context.Context, args Args) (any, error) {
			npcs, err := r.store.ListNPCsAtLocation(ctx, args.Int64("location_id"))
			if err != nil {
				return nil, err
			}
			out := make([]map[string]any, 0, len(npcs))
			for _, n := range npcs {
				out = append(out, map[string]any{
					"id":          n.ID,
					"name":        n.Name,
					"type":        n.NPCType,
					"health":      n.Health,
					"max_health":  n.MaxHealth,
					"behavior":    string(n.Behavior),
					"disposition": n.Disposition,
				})
			}
			return out, nil
		},
	})

	r.register(&Tool{
		Name:        "get_relationship",
		Description: "Get the relationship between two characters. Types are 'PC' or 'NPC'.",
		Kind:        KindQuery,
		Params:      relationshipPairParams(),
		Handler: func(ctx context.Context, args Args) (any, error) {
			source, target, err := relationshipPair(args)
			if err != nil {
				return nil, err
			}
			rel, err := r.store.GetRelationship(ctx, source, target)
			if game.IsKind(err, game.KindNotFound) {
				return map[string]any{
					"exists":      false,
					"value":       0,
					"disposition": string(game.DispositionNeutral),
					"notes":       "No established relationship",
				}, nil
			}
			if err != nil {
				return nil, err
			}
			return map[string]any{
				"exists":           true,
				"value":            rel.Score,
				"disposition":      string(rel.Disposition()),
				"notes":            rel.Notes,
				"last_interaction": rel.LastInteraction,
			}, nil
		},
	})

	r.register(&Tool{
		Name:        "get_player_quests",
		Description: "Get all quests associated with a player character.",
		Kind:        KindQuery,
		Params: map[string]Param{
			"player_id":   {Type: "integer", Description: "player character id", Required: true},
			"active_only": {Type: "boolean", Description: "only return quests still in progress"},
		},
		Handler: func(ctx context.Context, args Args) (any, error) {
			quests, err := r.store.ListQuests(ctx, args.Int64("player_id"), args.Bool("active_only"))
			if err != nil {
				return nil, err
			}
			out := make([]map[string]any, 0, len(quests))
			for _, q := range quests {
				out = append(out, map[string]any{
					"id":                q.ID,
					"title":             q.Title,
					"description":       q.Description,
					"active":            q.Active,
					"completed":         q.Completed,
					"reward_gold":       q.RewardGold,
					"reward_experience": q.RewardExperience,
				})
			}
			return out, nil
		},
	})

	r.register(&Tool{
		Name:        "list_locations",
		Description: "List every location in the world.",
		Kind:        KindQuery,
		Params:      map[string]Param{},
		Handler: func(ctx context.Context, args Args) (any, error) {
			locations, err := r.store.ListLocations(ctx)
			if err != nil {
				return nil, err
			}
			out := make([]map[string]any, 0, len(locations))
			for _, l := range locations {
				out = append(out, map[string]any{
					"id": l.ID, "name": l.Name, "description": l.Description, "type": l.LocationType,
				})
			}
			return out, nil
		},
	})

	r.register(&Tool{
		Name:        "list_item_templates",
		Description: "List item templates, optionally filtered by category.",
		Kind:        KindQuery,
		Params: map[string]Param{
			"category": {Type: "string", Description: "category filter", Enum: game.ItemCategories()},
		},
		Handler: func(ctx context.Context, args Args) (any, error) {
			templates, err := r.store.ListItemTemplates(ctx, args.String("category"))
			if err != nil {
				return nil, err
			}
			out := make([]map[string]any, 0, len(templates))
			for _, t := range templates {
				out = append(out, map[string]any{
					"id":          t.ID,
					"name":        t.Name,
					"category":    t.Category,
					"rarity":      t.Rarity,
					"description": t.Description,
					"weight":      t.Weight,
				})
			}
			return out, nil
		},
	})

	r.register(&Tool{
		Name:        "get_items_at_location",
		Description: "Get all items lying on the ground at a location.",
		Kind:        KindQuery,
		Params: map[string]Param{
			"location_id": {Type: "integer", Description: "location id", Required: true},
		},
		Handler: func(ctx context.Context, args Args) (any, error) {
			return r.groundEntries(ctx, args.Int64("location_id"))
		},
	})

	r.register(&Tool{
		Name:        "get_player_inventory",
		Description: "Get every item instance a player is carrying.",
		Kind:        KindQuery,
		Params: map[string]Param{
			"player_id": {Type: "integer", Description: "player character id", Required: true},
		},
		Handler: func(ctx context.Context, args Args) (any, error) {
			return r.inventoryEntries(ctx, game.OwnerPC, args.Int64("player_id"))
		},
	})

	r.register(&Tool{
		Name:        "get_npc_inventory",
		Description: "Get every item instance an NPC is carrying.",
		Kind:        KindQuery,
		Params: map[string]Param{
			"npc_id": {Type: "integer", Description: "NPC id", Required: true},
		},
		Handler: func(ctx context.Context, args Args) (any, error) {
			return r.inventoryEntries(ctx, game.OwnerNPC, args.Int64("npc_id"))
		},
	})
}

func (r *Registry) inventoryEntries(ctx context.Context, ownerType game.OwnerType, ownerID int64) ([]map[string]any, error) {
	items, err := r.store.ListItemsByOwner(ctx, ownerType, ownerID)
	if err != nil {
		return nil, err
	}
	return r.itemEntries(ctx, items)
}

func (r *Registry) groundEntries(ctx context.Context, locationID int64) ([]map[string]any, error) {
	items, err := r.store.ListItemsAtLocation(ctx, locationID)
	if err != nil {
		return nil, err
	}
	return r.itemEntries(ctx, items)
}

func (r *Registry) itemEntries(ctx context.Context, items []game.ItemInstance) ([]map[string]any, error) {
	out := make([]map[string]any, 0, len(items))
	for _, it := range items {
		entry := map[string]any{
			"instance_id": it.ID,
			"quantity":    it.Quantity,
			"equipped":    it.Equipped,
		}
		name := it.CustomName
		if t, err := r.store.GetItemTemplate(ctx, it.TemplateID); err == nil {
			if name == "" {
				name = t.Name
			}
			entry["category"] = t.Category
			entry["rarity"] = t.Rarity
		}
		if name == "" {
			name = "Unknown item"
		}
		entry["name"] = name
		if len(it.Buffs) > 0 {
			entry["buffs"] = it.Buffs
		}
		if len(it.Flaws) > 0 {
			entry["flaws"] = it.Flaws
		}
		out = append(out, entry)
	}
	return out, nil
}

func relationshipPairParams() map[string]Param {
	return map[string]Param{
		"source_type": {Type: "string", Description: "source character type", Required: true, Enum: []string{"PC", "NPC"}},
		"source_id":   {Type: "integer", Description: "source character id", Required: true},
		"target_type": {Type: "string", Description: "target character type", Required: true, Enum: []string{"PC", "NPC"}},
		"target_id":   {Type: "integer", Description: "target character id", Required: true},
	}
}

// relationshipPair parses and canonicalizes the four pair arguments, so
// (A,B) and (B,A) always resolve to the same record.
func relationshipPair(args Args) (game.CharacterRef, game.CharacterRef, error) {
	sourceType, err := game.ParseCharacterType(args.String("source_type"))
	if err != nil {
		return game.CharacterRef{}, game.CharacterRef{}, err
	}
	targetType, err := game.ParseCharacterType(args.String("target_type"))
	if err != nil {
		return game.CharacterRef{}, game.CharacterRef{}, err
	}
	source := game.CharacterRef{Type: sourceType, ID: args.Int64("source_id")}
	target := game.CharacterRef{Type: targetType, ID: args.Int64("target_id")}
	source, target = game.CanonicalPair(source, target)
	return source, target, nil
}
