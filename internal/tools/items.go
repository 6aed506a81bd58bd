package tools

import (
	"context"
	"fmt"

	"fableforge/internal/game"
)

func (r *Registry) registerItemTools() {
	r.register(&Tool{
		Name:        "pickup_item",
		Description: "Player picks up an item from the ground. Use get_items_at_location first to find the instance id.",
		Kind:        KindMutation,
		Params: map[string]Param{
			"player_id":        {Type: "integer", Description: "player character id", Required: true},
			"item_instance_id": {Type: "integer", Description: "item instance id", Required: true},
		},
		Handler: func(ctx context.Context, args Args) (any, error) {
			p, err := r.store.GetPlayer(ctx, args.Int64("player_id"))
			if err != nil {
				return nil, err
			}
			it, err := r.store.GetItemInstance(ctx, args.Int64("item_instance_id"))
			if err != nil {
				return nil, err
			}
			if it.Owner.Type != game.OwnerNone {
				return nil, game.Conflictf("item instance %d is not on the ground", it.ID)
			}
			to := game.OwnerRef{Type: game.OwnerPC, ID: p.ID}
			if err := r.store.TransferItem(ctx, it.ID, it.Owner, to); err != nil {
				return nil, err
			}
			return map[string]any{
				"picked_up":   true,
				"item":        r.itemName(ctx, it),
				"instance_id": it.ID,
				"quantity":    it.Quantity,
				"player":      p.Name,
			}, nil
		},
	})

	r.register(&Tool{
		Name:        "drop_item",
		Description: "Player drops an item from inventory onto the ground at a location.",
		Kind:        KindMutation,
		Params: map[string]Param{
			"player_id":        {Type: "integer", Description: "player character id", Required: true},
			"item_instance_id": {Type: "integer", Description: "item instance id", Required: true},
			"location_id":      {Type: "integer", Description: "where the item lands", Required: true},
		},
		Handler: func(ctx context.Context, args Args) (any, error) {
			playerID := args.Int64("player_id")
			it, err := r.store.GetItemInstance(ctx, args.Int64("item_instance_id"))
			if err != nil {
				return nil, err
			}
			expect := game.OwnerRef{Type: game.OwnerPC, ID: playerID}
			if it.Owner != expect {
				return nil, game.Conflictf("item instance %d is not in player %d's inventory", it.ID, playerID)
			}
			loc, err := r.store.GetLocation(ctx, args.Int64("location_id"))
			if err != nil {
				return nil, err
			}
			to := game.OwnerRef{Type: game.OwnerNone, LocationID: loc.ID}
			if err := r.store.TransferItem(ctx, it.ID, expect, to); err != nil {
				return nil, err
			}
			return map[string]any{
				"dropped":     true,
				"item":        r.itemName(ctx, it),
				"instance_id": it.ID,
				"location":    loc.Name,
			}, nil
		},
	})

	r.register(&Tool{
		Name:        "transfer_item",
		Description: "Transfer an existing item instance between owners. new_owner_type is PC, NPC, or NONE to drop on the ground (then provide location_id).",
		Kind:        KindMutation,
		Params: map[string]Param{
			"item_instance_id": {Type: "integer", Description: "item instance id", Required: true},
			"new_owner_type":   {Type: "string", Description: "destination owner type", Required: true, Enum: []string{"PC", "NPC", "NONE"}},
			"new_owner_id":     {Type: "integer", Description: "destination character id, for PC or NPC"},
			"location_id":      {Type: "integer", Description: "destination location id, for NONE"},
		},
		Handler: func(ctx context.Context, args Args) (any, error) {
			it, err := r.store.GetItemInstance(ctx, args.Int64("item_instance_id"))
			if err != nil {
				return nil, err
			}
			ownerType, err := game.ParseOwnerType(args.String("new_owner_type"))
			if err != nil {
				return nil, err
			}
			to := game.OwnerRef{Type: ownerType}
			if ownerType == game.OwnerNone {
				to.LocationID = args.Int64("location_id")
			} else {
				to.ID = args.Int64("new_owner_id")
			}
			if err := to.Validate(); err != nil {
				return nil, err
			}
			if err := r.store.TransferItem(ctx, it.ID, it.Owner, to); err != nil {
				return nil, err
			}
			return map[string]any{
				"transferred": true,
				"item":        r.itemName(ctx, it),
				"from":        describeOwner(it.Owner),
				"to":          describeOwner(to),
			}, nil
		},
	})

	r.register(&Tool{
		Name:        "consume_item_instance",
		Description: "Consume units of an item instance, e.g. drinking a potion. The instance disappears when the last unit is used.",
		Kind:        KindMutation,
		Params: map[string]Param{
			"item_instance_id": {Type: "integer", Description: "item instance id", Required: true},
			"quantity":         {Type: "integer", Description: "units to consume, default 1", Minimum: minimum(1)},
		},
		Handler: func(ctx context.Context, args Args) (any, error) {
			it, err := r.store.GetItemInstance(ctx, args.Int64("item_instance_id"))
			if err != nil {
				return nil, err
			}
			n := args.IntOr("quantity", 1)
			remaining, err := r.store.ConsumeItem(ctx, it.ID, n)
			if err != nil {
				return nil, err
			}
			return map[string]any{
				"consumed":  true,
				"item":      r.itemName(ctx, it),
				"quantity":  n,
				"remaining": remaining,
				"depleted":  remaining == 0,
			}, nil
		},
	})

	r.register(&Tool{
		Name:        "create_item_for_player",
		Description: "Create a new item instance from a template and give it to a player. This creates items out of thin air; to move an existing item use transfer_item.",
		Kind:        KindMutation,
		Params: map[string]Param{
			"player_id":   {Type: "integer", Description: "player character id", Required: true},
			"template_id": {Type: "integer", Description: "item template id", Required: true},
			"quantity":    {Type: "integer", Description: "units, default 1", Minimum: minimum(1)},
			"custom_name": {Type: "string", Description: "unique name overriding the template"},
		},
		Handler: func(ctx context.Context, args Args) (any, error) {
			p, err := r.store.GetPlayer(ctx, args.Int64("player_id"))
			if err != nil {
				return nil, err
			}
			owner := game.OwnerRef{Type: game.OwnerPC, ID: p.ID}
			it, err := r.mintItem(ctx, args, owner)
			if err != nil {
				return nil, err
			}
			return map[string]any{
				"created":     true,
				"instance_id": it.ID,
				"item_name":   r.itemName(ctx, it),
				"quantity":    it.Quantity,
				"to_player":   p.Name,
			}, nil
		},
	})

	r.register(&Tool{
		Name:        "create_item_for_npc",
		Description: "Create a new item instance from a template and give it to an NPC, for inventory setup.",
		Kind:        KindMutation,
		Params: map[string]Param{
			"npc_id":      {Type: "integer", Description: "NPC id", Required: true},
			"template_id": {Type: "integer", Description: "item template id", Required: true},
			"quantity":    {Type: "integer", Description: "units, default 1", Minimum: minimum(1)},
			"custom_name": {Type: "string", Description: "unique name overriding the template"},
		},
		Handler: func(ctx context.Context, args Args) (any, error) {
			n, err := r.store.GetNPC(ctx, args.Int64("npc_id"))
			if err != nil {
				return nil, err
			}
			owner := game.OwnerRef{Type: game.OwnerNPC, ID: n.ID}
			it, err := r.mintItem(ctx, args, owner)
			if err != nil {
				return nil, err
			}
			return map[string]any{
				"given":       true,
				"instance_id": it.ID,
				"item_name":   r.itemName(ctx, it),
				"to_npc":      n.Name,
			}, nil
		},
	})

	r.register(&Tool{
		Name:        "spawn_item_at_location",
		Description: "Spawn an item on the ground at a location.",
		Kind:        KindMutation,
		Params: map[string]Param{
			"template_id": {Type: "integer", Description: "item template id", Required: true},
			"location_id": {Type: "integer", Description: "where the item appears", Required: true},
			"quantity":    {Type: "integer", Description: "units, default 1", Minimum: minimum(1)},
			"custom_name": {Type: "string", Description: "unique name overriding the template"},
		},
		Handler: func(ctx context.Context, args Args) (any, error) {
			loc, err := r.store.GetLocation(ctx, args.Int64("location_id"))
			if err != nil {
				return nil, err
			}
			owner := game.OwnerRef{Type: game.OwnerNone, LocationID: loc.ID}
			it, err := r.mintItem(ctx, args, owner)
			if err != nil {
				return nil, err
			}
			return map[string]any{
				"spawned":     true,
				"instance_id": it.ID,
				"item_name":   r.itemName(ctx, it),
				"location":    loc.Name,
			}, nil
		},
	})

	r.register(&Tool{
		Name:        "create_item_template",
		Description: "Create a new item template. Categories: weapon, armor, potion, food, quest, material, misc.",
		Kind:        KindMutation,
		Params: map[string]Param{
			"name":        {Type: "string", Description: "template name", Required: true},
			"category":    {Type: "string", Description: "item category", Required: true, Enum: game.ItemCategories()},
			"description": {Type: "string", Description: "what the item is", Required: true},
			"rarity":      {Type: "string", Description: "rarity tier, default common"},
			"weight":      {Type: "integer", Description: "carry weight, default 1", Minimum: minimum(0)},
			"properties":  {Type: "object", Description: "free-form mechanical properties"},
		},
		Handler: func(ctx context.Context, args Args) (any, error) {
			t := &game.ItemTemplate{
				Name:        args.String("name"),
				Category:    args.String("category"),
				Rarity:      args.StringOr("rarity", "common"),
				Description: args.String("description"),
				Weight:      args.IntOr("weight", 1),
				Properties:  args.Map("properties"),
			}
			if _, err := r.store.CreateItemTemplate(ctx, t); err != nil {
				return nil, err
			}
			return map[string]any{
				"created":     true,
				"template_id": t.ID,
				"name":        t.Name,
				"category":    t.Category,
				"rarity":      t.Rarity,
			}, nil
		},
	})
}

// mintItem creates a fresh instance from shared template/quantity/custom_name
// arguments for the given owner.
func (r *Registry) mintItem(ctx context.Context, args Args, owner game.OwnerRef) (*game.ItemInstance, error) {
	t, err := r.store.GetItemTemplate(ctx, args.Int64("template_id"))
	if err != nil {
		return nil, err
	}
	it := &game.ItemInstance{
		TemplateID: t.ID,
		Owner:      owner,
		Quantity:   args.IntOr("quantity", 1),
		CustomName: args.String("custom_name"),
	}
	if _, err := r.store.CreateItemInstance(ctx, it); err != nil {
		return nil, err
	}
	return it, nil
}

func (r *Registry) itemName(ctx context.Context, it *game.ItemInstance) string {
	if it.CustomName != "" {
		return it.CustomName
	}
	if t, err := r.store.GetItemTemplate(ctx, it.TemplateID); err == nil {
		return t.Name
	}
	return "Unknown item"
}

func describeOwner(o game.OwnerRef) string {
	if o.Type == game.OwnerNone {
		return "ground"
	}
	return fmt.Sprintf("%s:%d", o.Type, o.ID)
}
