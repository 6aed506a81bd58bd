package tools

import (
	"context"

	"fableforge/internal/game"
)

func (r *Registry) registerCombatTools() {
	r.register(&Tool{
		Name:        "initiate_combat",
		Description: "Start a combat session for a player against one or more NPCs. Only one combat can be active per player.",
		Kind:        KindMutation,
		Params: map[string]Param{
			"player_id":     {Type: "integer", Description: "player character id", Required: true},
			"description":   {Type: "string", Description: "how the fight started"},
			"enemy_npc_ids": {Type: "array", Description: "NPC ids on the enemy team", Items: "integer", Required: true},
		},
		Handler: func(ctx context.Context, args Args) (any, error) {
			npcIDs := args.Int64Slice("enemy_npc_ids")
			if len(npcIDs) == 0 {
				return nil, game.Validationf("enemy_npc_ids must name at least one NPC")
			}
			enemies := make([]game.CharacterRef, len(npcIDs))
			for i, id := range npcIDs {
				enemies[i] = game.CharacterRef{Type: game.CharacterNPC, ID: id}
			}
			s, err := r.combat.Initiate(ctx, args.Int64("player_id"), args.String("description"), enemies)
			if err != nil {
				return nil, err
			}
			return map[string]any{
				"combat_started": true,
				"session_id":     s.ID,
				"description":    s.Description,
				"team_player":    rosterEntries(s.TeamPlayer),
				"team_enemy":     rosterEntries(s.TeamEnemy),
			}, nil
		},
	})

	r.register(&Tool{
		Name:        "add_combatant",
		Description: "Add a character to one side of an active combat session.",
		Kind:        KindMutation,
		Params: map[string]Param{
			"session_id":     {Type: "integer", Description: "combat session id", Required: true},
			"character_type": {Type: "string", Description: "kind of character", Required: true, Enum: []string{"PC", "NPC"}},
			"character_id":   {Type: "integer", Description: "character id", Required: true},
			"team":           {Type: "string", Description: "which side they join", Required: true, Enum: []string{"player", "enemy"}},
		},
		Handler: func(ctx context.Context, args Args) (any, error) {
			ref, err := characterRef(args)
			if err != nil {
				return nil, err
			}
			team, err := game.ParseTeam(args.String("team"))
			if err != nil {
				return nil, err
			}
			s, err := r.combat.AddCombatant(ctx, args.Int64("session_id"), ref, team)
			if err != nil {
				return nil, err
			}
			return map[string]any{
				"added":       true,
				"session_id":  s.ID,
				"team_player": rosterEntries(s.TeamPlayer),
				"team_enemy":  rosterEntries(s.TeamEnemy),
			}, nil
		},
	})

	r.register(&Tool{
		Name:        "remove_combatant",
		Description: "Remove a character from an active combat session, e.g. when they flee.",
		Kind:        KindMutation,
		Params: map[string]Param{
			"session_id":     {Type: "integer", Description: "combat session id", Required: true},
			"character_type": {Type: "string", Description: "kind of character", Required: true, Enum: []string{"PC", "NPC"}},
			"character_id":   {Type: "integer", Description: "character id", Required: true},
		},
		Handler: func(ctx context.Context, args Args) (any, error) {
			ref, err := characterRef(args)
			if err != nil {
				return nil, err
			}
			s, err := r.combat.RemoveCombatant(ctx, args.Int64("session_id"), ref)
			if err != nil {
				return nil, err
			}
			return map[string]any{
				"removed":     true,
				"session_id":  s.ID,
				"team_player": rosterEntries(s.TeamPlayer),
				"team_enemy":  rosterEntries(s.TeamEnemy),
			}, nil
		},
	})

	r.register(&Tool{
		Name:        "update_combat_hp",
		Description: "Apply damage or healing to a combatant inside an active combat. Writes through to the character sheet.",
		Kind:        KindMutation,
		Params: map[string]Param{
			"session_id":     {Type: "integer", Description: "combat session id", Required: true},
			"character_type": {Type: "string", Description: "kind of character", Required: true, Enum: []string{"PC", "NPC"}},
			"character_id":   {Type: "integer", Description: "character id", Required: true},
			"delta":          {Type: "integer", Description: "hit point change, negative for damage", Required: true},
		},
		Handler: func(ctx context.Context, args Args) (any, error) {
			ref, err := characterRef(args)
			if err != nil {
				return nil, err
			}
			s, err := r.combat.UpdateHP(ctx, args.Int64("session_id"), ref, args.Int("delta"))
			if err != nil {
				return nil, err
			}
			c := s.Combatant(ref)
			if c == nil {
				return nil, game.NotFoundf("combatant %s not in session %d", ref, s.ID)
			}
			return map[string]any{
				"updated": true,
				"name":    c.Name,
				"hp":      c.HP,
				"max_hp":  c.MaxHP,
				"is_down": c.HP <= 0,
			}, nil
		},
	})

	r.register(&Tool{
		Name:        "end_combat",
		Description: "End an active combat session with an outcome and replace the blow-by-blow turns with a short summary.",
		Kind:        KindMutation,
		Params: map[string]Param{
			"session_id": {Type: "integer", Description: "combat session id", Required: true},
			"outcome":    {Type: "string", Description: "how it ended", Required: true, Enum: []string{"victory", "defeat", "fled", "truce"}},
			"summary":    {Type: "string", Description: "one or two sentences covering the whole fight"},
		},
		Handler: func(ctx context.Context, args Args) (any, error) {
			s, err := r.combat.End(ctx, args.Int64("session_id"), args.String("outcome"), args.String("summary"))
			if err != nil {
				return nil, err
			}
			return map[string]any{
				"combat_ended": true,
				"session_id":   s.ID,
				"outcome":      s.Outcome,
				"summary":      s.Summary,
			}, nil
		},
	})

	r.register(&Tool{
		Name:        "get_combat_status",
		Description: "Check whether a player is in combat and read both rosters.",
		Kind:        KindQuery,
		Params: map[string]Param{
			"player_id": {Type: "integer", Description: "player character id", Required: true},
		},
		Handler: func(ctx context.Context, args Args) (any, error) {
			s, err := r.combat.ActiveCombat(ctx, args.Int64("player_id"))
			if err != nil {
				return nil, err
			}
			if s == nil {
				return map[string]any{"in_combat": false}, nil
			}
			return map[string]any{
				"in_combat":   true,
				"session_id":  s.ID,
				"description": s.Description,
				"team_player": rosterEntries(s.TeamPlayer),
				"team_enemy":  rosterEntries(s.TeamEnemy),
			}, nil
		},
	})
}

func characterRef(args Args) (game.CharacterRef, error) {
	t, err := game.ParseCharacterType(args.String("character_type"))
	if err != nil {
		return game.CharacterRef{}, err
	}
	return game.CharacterRef{Type: t, ID: args.Int64("character_id")}, nil
}

func rosterEntries(team []game.Combatant) []map[string]any {
	out := make([]map[string]any, len(team))
	for i, c := range team {
		out[i] = map[string]any{
			"type":   string(c.Ref.Type),
			"id":     c.Ref.ID,
			"name":   c.Name,
			"hp":     c.HP,
			"max_hp": c.MaxHP,
		}
	}
	return out
}
