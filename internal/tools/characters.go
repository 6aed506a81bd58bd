package tools

import (
	"context"

	"fableforge/internal/game"
)

// Experience needed per level. Level-ups raise max health and fully heal.
const (
	xpPerLevel        = 100
	levelUpHealthGain = 10
)

func (r *Registry) registerCharacterTools() {
	r.register(&Tool{
		Name:        "update_player_health",
		Description: "Add or remove health from a player. Use negative values for damage.",
		Kind:        KindMutation,
		Params: map[string]Param{
			"player_id":     {Type: "integer", Description: "player character id", Required: true},
			"health_change": {Type: "integer", Description: "delta, negative for damage", Required: true},
		},
		Handler: func(ctx context.Context, args Args) (any, error) {
			p, err := r.store.GetPlayer(ctx, args.Int64("player_id"))
			if err != nil {
				return nil, err
			}
			change := args.Int("health_change")
			p.Health = clamp(p.Health+change, 0, p.MaxHealth)
			if err := r.store.UpdatePlayer(ctx, p); err != nil {
				return nil, err
			}
			return map[string]any{
				"updated":    true,
				"new_health": p.Health,
				"max_health": p.MaxHealth,
				"change":     change,
				"is_dead":    p.Health <= 0,
			}, nil
		},
	})

	r.register(&Tool{
		Name:        "update_player_gold",
		Description: "Add or remove gold from a player. Use negative values to remove gold. Gold never goes below zero.",
		Kind:        KindMutation,
		Params: map[string]Param{
			"player_id":   {Type: "integer", Description: "player character id", Required: true},
			"gold_change": {Type: "integer", Description: "delta, negative to spend", Required: true},
		},
		Handler: func(ctx context.Context, args Args) (any, error) {
			p, err := r.store.GetPlayer(ctx, args.Int64("player_id"))
			if err != nil {
				return nil, err
			}
			change := args.Int("gold_change")
			p.Gold = p.Gold + change
			if p.Gold < 0 {
				p.Gold = 0
			}
			if err := r.store.UpdatePlayer(ctx, p); err != nil {
				return nil, err
			}
			return map[string]any{"updated": true, "new_gold": p.Gold, "change": change}, nil
		},
	})

	r.register(&Tool{
		Name:        "update_player_experience",
		Description: "Add experience to a player. Level-ups happen automatically at 100 experience per level.",
		Kind:        KindMutation,
		Params: map[string]Param{
			"player_id":  {Type: "integer", Description: "player character id", Required: true},
			"exp_change": {Type: "integer", Description: "experience to add", Required: true, Minimum: minimum(0)},
		},
		Handler: func(ctx context.Context, args Args) (any, error) {
			p, err := r.store.GetPlayer(ctx, args.Int64("player_id"))
			if err != nil {
				return nil, err
			}
			change := args.Int("exp_change")
			p.Experience += change

			levelsGained := 0
			for p.Experience >= xpPerLevel {
				p.Experience -= xpPerLevel
				p.Level++
				p.MaxHealth += levelUpHealthGain
				p.Health = p.MaxHealth
				levelsGained++
			}
			if err := r.store.UpdatePlayer(ctx, p); err != nil {
				return nil, err
			}
			payload := map[string]any{
				"updated":     true,
				"exp_gained":  change,
				"current_exp": p.Experience,
				"level":       p.Level,
			}
			if levelsGained > 0 {
				payload["leveled_up"] = true
				payload["levels_gained"] = levelsGained
				payload["new_max_health"] = p.MaxHealth
			}
			return payload, nil
		},
	})

	r.register(&Tool{
		Name:        "move_player",
		Description: "Move a player to a new location.",
		Kind:        KindMutation,
		Params: map[string]Param{
			"player_id":   {Type: "integer", Description: "player character id", Required: true},
			"location_id": {Type: "integer", Description: "destination location id", Required: true},
		},
		Handler: func(ctx context.Context, args Args) (any, error) {
			p, err := r.store.GetPlayer(ctx, args.Int64("player_id"))
			if err != nil {
				return nil, err
			}
			loc, err := r.store.GetLocation(ctx, args.Int64("location_id"))
			if err != nil {
				return nil, err
			}
			from := p.LocationID
			p.LocationID = loc.ID
			if err := r.store.UpdatePlayer(ctx, p); err != nil {
				return nil, err
			}
			return map[string]any{
				"moved":            true,
				"player":           p.Name,
				"from_location_id": from,
				"to_location": map[string]any{
					"id": loc.ID, "name": loc.Name, "description": loc.Description,
				},
			}, nil
		},
	})

	r.register(&Tool{
		Name:        "create_npc",
		Description: "Create a new NPC in the world.",
		Kind:        KindMutation,
		Params: map[string]Param{
			"name":             {Type: "string", Description: "NPC name", Required: true},
			"npc_type":         {Type: "string", Description: "kind of NPC, e.g. merchant, guard, beast", Required: true},
			"location_id":      {Type: "integer", Description: "starting location id", Required: true},
			"description":      {Type: "string", Description: "appearance and role"},
			"dialogue":         {Type: "string", Description: "signature line or speech style"},
			"behavior_state":   {Type: "string", Description: "initial behavior", Enum: game.BehaviorStates()},
			"base_disposition": {Type: "integer", Description: "initial disposition toward the player", Minimum: minimum(-100), Maximum: maximum(100)},
		},
		Handler: func(ctx context.Context, args Args) (any, error) {
			loc, err := r.store.GetLocation(ctx, args.Int64("location_id"))
			if err != nil {
				return nil, err
			}
			behavior := game.BehaviorPassive
			if args.Has("behavior_state") {
				behavior, err = game.ParseBehaviorState(args.String("behavior_state"))
				if err != nil {
					return nil, err
				}
			}
			n := &game.NPC{
				Name:        args.String("name"),
				NPCType:     args.String("npc_type"),
				Description: args.String("description"),
				Dialogue:    args.String("dialogue"),
				Health:      50,
				MaxHealth:   50,
				Behavior:    behavior,
				Disposition: args.Int("base_disposition"),
				LocationID:  loc.ID,
			}
			if _, err := r.store.CreateNPC(ctx, n); err != nil {
				return nil, err
			}
			return map[string]any{
				"created": true, "npc_id": n.ID, "name": n.Name, "location": loc.Name,
			}, nil
		},
	})

	r.register(&Tool{
		Name:        "move_npc",
		Description: "Move an NPC to a new location.",
		Kind:        KindMutation,
		Params: map[string]Param{
			"npc_id":      {Type: "integer", Description: "NPC id", Required: true},
			"location_id": {Type: "integer", Description: "destination location id", Required: true},
		},
		Handler: func(ctx context.Context, args Args) (any, error) {
			n, err := r.store.GetNPC(ctx, args.Int64("npc_id"))
			if err != nil {
				return nil, err
			}
			loc, err := r.store.GetLocation(ctx, args.Int64("location_id"))
			if err != nil {
				return nil, err
			}
			from := n.LocationID
			n.LocationID = loc.ID
			if err := r.store.UpdateNPC(ctx, n); err != nil {
				return nil, err
			}
			return map[string]any{
				"moved":            true,
				"npc":              n.Name,
				"from_location_id": from,
				"to_location":      map[string]any{"id": loc.ID, "name": loc.Name},
			}, nil
		},
	})

	r.register(&Tool{
		Name:        "update_npc_health",
		Description: "Add or remove health from an NPC. Use negative values for damage.",
		Kind:        KindMutation,
		Params: map[string]Param{
			"npc_id":        {Type: "integer", Description: "NPC id", Required: true},
			"health_change": {Type: "integer", Description: "delta, negative for damage", Required: true},
		},
		Handler: func(ctx context.Context, args Args) (any, error) {
			n, err := r.store.GetNPC(ctx, args.Int64("npc_id"))
			if err != nil {
				return nil, err
			}
			change := args.Int("health_change")
			n.Health = clamp(n.Health+change, 0, n.MaxHealth)
			if err := r.store.UpdateNPC(ctx, n); err != nil {
				return nil, err
			}
			return map[string]any{
				"updated":    true,
				"npc":        n.Name,
				"new_health": n.Health,
				"max_health": n.MaxHealth,
				"change":     change,
				"is_dead":    n.Health <= 0,
			}, nil
		},
	})

	r.register(&Tool{
		Name:        "update_npc_behavior",
		Description: "Update an NPC's behavior state.",
		Kind:        KindMutation,
		Params: map[string]Param{
			"npc_id":         {Type: "integer", Description: "NPC id", Required: true},
			"behavior_state": {Type: "string", Description: "new behavior", Required: true, Enum: game.BehaviorStates()},
		},
		Handler: func(ctx context.Context, args Args) (any, error) {
			n, err := r.store.GetNPC(ctx, args.Int64("npc_id"))
			if err != nil {
				return nil, err
			}
			state, err := game.ParseBehaviorState(args.String("behavior_state"))
			if err != nil {
				return nil, err
			}
			old := n.Behavior
			n.Behavior = state
			if err := r.store.UpdateNPC(ctx, n); err != nil {
				return nil, err
			}
			return map[string]any{
				"updated": true, "npc": n.Name,
				"old_behavior": string(old), "new_behavior": string(state),
			}, nil
		},
	})

	r.register(&Tool{
		Name:        "update_npc_disposition",
		Description: "Shift an NPC's disposition toward the player. The result stays within -100 to 100.",
		Kind:        KindMutation,
		Params: map[string]Param{
			"npc_id":             {Type: "integer", Description: "NPC id", Required: true},
			"disposition_change": {Type: "integer", Description: "delta, negative to worsen", Required: true},
		},
		Handler: func(ctx context.Context, args Args) (any, error) {
			n, err := r.store.GetNPC(ctx, args.Int64("npc_id"))
			if err != nil {
				return nil, err
			}
			n.Disposition = game.ClampScore(n.Disposition + args.Int("disposition_change"))
			if err := r.store.UpdateNPC(ctx, n); err != nil {
				return nil, err
			}
			return map[string]any{
				"updated":         true,
				"npc":             n.Name,
				"new_disposition": n.Disposition,
				"attitude":        string(game.DispositionFor(n.Disposition)),
			}, nil
		},
	})

	r.register(&Tool{
		Name:        "update_relationship",
		Description: "Shift the relationship between two characters. The delta is added to the current value and the result stays within -100 to 100.",
		Kind:        KindMutation,
		Params: mergeParams(relationshipPairParams(), map[string]Param{
			"value_change": {Type: "integer", Description: "delta to apply", Required: true},
			"notes":        {Type: "string", Description: "replacement notes; empty keeps existing notes"},
		}),
		Handler: func(ctx context.Context, args Args) (any, error) {
			source, target, err := relationshipPair(args)
			if err != nil {
				return nil, err
			}
			current := 0
			created := true
			if rel, err := r.store.GetRelationship(ctx, source, target); err == nil {
				current = rel.Score
				created = false
			} else if !game.IsKind(err, game.KindNotFound) {
				return nil, err
			}

			rel := &game.Relationship{
				Source: source,
				Target: target,
				Score:  game.ClampScore(current + args.Int("value_change")),
				Notes:  args.String("notes"),
			}
			if err := r.store.UpsertRelationship(ctx, rel); err != nil {
				return nil, err
			}
			return map[string]any{
				"created":     created,
				"updated":     !created,
				"new_value":   rel.Score,
				"disposition": string(game.DispositionFor(rel.Score)),
			}, nil
		},
	})
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func mergeParams(base, extra map[string]Param) map[string]Param {
	out := make(map[string]Param, len(base)+len(extra))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range extra {
		out[k] = v
	}
	return out
}
