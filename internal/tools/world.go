package tools

import (
	"context"

	"fableforge/internal/game"
)

func (r *Registry) registerWorldTools() {
	r.register(&Tool{
		Name:        "create_location",
		Description: "Create a new location when the story takes the player somewhere that does not exist yet.",
		Kind:        KindMutation,
		Params: map[string]Param{
			"name":          {Type: "string", Description: "location name", Required: true},
			"description":   {Type: "string", Description: "what the place looks and feels like", Required: true},
			"location_type": {Type: "string", Description: "kind of place, e.g. town, dungeon, wilderness"},
		},
		Handler: func(ctx context.Context, args Args) (any, error) {
			loc := &game.Location{
				Name:         args.String("name"),
				Description:  args.String("description"),
				LocationType: args.StringOr("location_type", "area"),
			}
			if _, err := r.store.CreateLocation(ctx, loc); err != nil {
				return nil, err
			}
			return map[string]any{
				"created":     true,
				"location_id": loc.ID,
				"name":        loc.Name,
				"type":        loc.LocationType,
			}, nil
		},
	})

	r.register(&Tool{
		Name:        "create_quest",
		Description: "Record a new quest for a player.",
		Kind:        KindMutation,
		Params: map[string]Param{
			"player_id":         {Type: "integer", Description: "player character id", Required: true},
			"title":             {Type: "string", Description: "short quest title", Required: true},
			"description":       {Type: "string", Description: "what must be done and why", Required: true},
			"reward_gold":       {Type: "integer", Description: "gold on completion", Minimum: minimum(0)},
			"reward_experience": {Type: "integer", Description: "experience on completion", Minimum: minimum(0)},
		},
		Handler: func(ctx context.Context, args Args) (any, error) {
			p, err := r.store.GetPlayer(ctx, args.Int64("player_id"))
			if err != nil {
				return nil, err
			}
			q := &game.Quest{
				PlayerID:         p.ID,
				Title:            args.String("title"),
				Description:      args.String("description"),
				RewardGold:       args.IntOr("reward_gold", 0),
				RewardExperience: args.IntOr("reward_experience", 0),
				Active:           true,
			}
			if _, err := r.store.CreateQuest(ctx, q); err != nil {
				return nil, err
			}
			return map[string]any{
				"created":  true,
				"quest_id": q.ID,
				"title":    q.Title,
				"player":   p.Name,
			}, nil
		},
	})

	r.register(&Tool{
		Name:        "update_quest_status",
		Description: "Mark a quest completed or toggle whether it is active. Completing a quest deactivates it.",
		Kind:        KindMutation,
		Params: map[string]Param{
			"quest_id":     {Type: "integer", Description: "quest id", Required: true},
			"is_active":    {Type: "boolean", Description: "whether the quest is still in progress"},
			"is_completed": {Type: "boolean", Description: "whether the quest is finished"},
		},
		Handler: func(ctx context.Context, args Args) (any, error) {
			q, err := r.store.GetQuest(ctx, args.Int64("quest_id"))
			if err != nil {
				return nil, err
			}
			if args.Has("is_active") {
				q.Active = args.Bool("is_active")
			}
			if args.Has("is_completed") {
				q.Completed = args.Bool("is_completed")
			}
			if q.Completed {
				q.Active = false
			}
			if err := r.store.UpdateQuest(ctx, q); err != nil {
				return nil, err
			}
			return map[string]any{
				"updated":   true,
				"quest_id":  q.ID,
				"title":     q.Title,
				"active":    q.Active,
				"completed": q.Completed,
			}, nil
		},
	})
}
