package seed

import (
	"context"
	"testing"

	"fableforge/internal/game"
	"fableforge/internal/store/sqlite"
)

const testSeed = `
locations:
  - name: The Rusty Tankard
    description: A cozy tavern with a crackling fireplace.
    type: settlement
  - name: Whispering Woods
    description: A dense forest where the trees seem to murmur.
    type: wilderness

item_templates:
  - name: Iron Sword
    category: weapon
    description: A sturdy iron blade.
    weight: 3
    properties:
      damage: 5
  - name: Healing Potion
    category: potion
    description: Restores a modest amount of health.
    properties:
      heal_amount: 25
  - name: Bread
    category: food
    description: A fresh loaf.

npcs:
  - name: Greta Ironbrew
    type: merchant
    description: A stout dwarven barkeep with a booming laugh.
    dialogue: Welcome to the Rusty Tankard! What can I get you?
    health: 40
    max_health: 40
    behavior: passive
    disposition: 30
    location: The Rusty Tankard

players:
  - name: Aria
    class: ranger
    health: 20
    gold: 10
    location: The Rusty Tankard

items:
  - template: Healing Potion
    quantity: 2
    player: Aria
  - template: Bread
    quantity: 5
    npc: Greta Ironbrew
  - template: Iron Sword
    custom_name: Rusted Longsword
    flaws: [rusted]
    location: Whispering Woods
`

func parseDoc(t *testing.T, text string) *Document {
	t.Helper()
	doc, err := Parse([]byte(text))
	if err != nil {
		t.Fatalf("parse seed: %v", err)
	}
	return doc
}

func TestApply(t *testing.T) {
	ctx := context.Background()
	db, err := sqlite.New(ctx, "sqlite://:memory:")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { db.Close(ctx) })
	if err := db.EnsureSchema(ctx); err != nil {
		t.Fatalf("schema: %v", err)
	}

	doc := parseDoc(t, testSeed)
	if err := doc.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}

	res, err := Apply(ctx, db, doc)
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if res.Locations != 2 || res.Templates != 3 || res.NPCs != 1 || res.Players != 1 || res.Items != 3 {
		t.Fatalf("unexpected counts: %+v", res)
	}

	seeded, err := Seeded(ctx, db)
	if err != nil {
		t.Fatalf("seeded check: %v", err)
	}
	if !seeded {
		t.Fatal("Seeded returned false after apply")
	}

	locations, err := db.ListLocations(ctx)
	if err != nil {
		t.Fatalf("list locations: %v", err)
	}
	byName := make(map[string]game.Location, len(locations))
	for _, l := range locations {
		byName[l.Name] = l
	}
	tavern, ok := byName["The Rusty Tankard"]
	if !ok {
		t.Fatal("tavern not created")
	}
	if tavern.LocationType != "settlement" {
		t.Fatalf("tavern type = %q", tavern.LocationType)
	}

	npcs, err := db.ListNPCsAtLocation(ctx, tavern.ID)
	if err != nil {
		t.Fatalf("list npcs: %v", err)
	}
	if len(npcs) != 1 || npcs[0].Name != "Greta Ironbrew" {
		t.Fatalf("npcs at tavern = %+v", npcs)
	}
	if npcs[0].Behavior != game.BehaviorPassive || npcs[0].Disposition != 30 {
		t.Fatalf("npc state = behavior %q disposition %d", npcs[0].Behavior, npcs[0].Disposition)
	}

	ariaID, ok := res.PlayerIDs["Aria"]
	if !ok {
		t.Fatal("player ID for Aria not recorded")
	}
	aria, err := db.GetPlayer(ctx, ariaID)
	if err != nil {
		t.Fatalf("get player: %v", err)
	}
	if aria.LocationID != tavern.ID || aria.Gold != 10 || aria.MaxHealth != 20 || aria.Level != 1 {
		t.Fatalf("player state = %+v", aria)
	}

	inv, err := db.ListItemsByOwner(ctx, game.OwnerPC, aria.ID)
	if err != nil {
		t.Fatalf("list inventory: %v", err)
	}
	if len(inv) != 1 || inv[0].Quantity != 2 {
		t.Fatalf("inventory = %+v", inv)
	}

	woods := byName["Whispering Woods"]
	ground, err := db.ListItemsAtLocation(ctx, woods.ID)
	if err != nil {
		t.Fatalf("list ground items: %v", err)
	}
	if len(ground) != 1 || ground[0].CustomName != "Rusted Longsword" {
		t.Fatalf("ground items = %+v", ground)
	}
	if len(ground[0].Flaws) != 1 || ground[0].Flaws[0] != "rusted" {
		t.Fatalf("flaws = %v", ground[0].Flaws)
	}
}

func TestValidateRejectsBadDocuments(t *testing.T) {
	cases := []struct {
		name string
		text string
	}{
		{"duplicate location", `
locations:
  - name: Town
  - name: Town
`},
		{"bad category", `
item_templates:
  - name: Widget
    category: gadget
`},
		{"bad behavior", `
npcs:
  - name: Grig
    behavior: berserk
`},
		{"unknown npc location", `
npcs:
  - name: Grig
    location: Nowhere
`},
		{"item without owner", `
item_templates:
  - name: Bread
    category: food
items:
  - template: Bread
`},
		{"item with two owners", `
locations:
  - name: Town
players:
  - name: Aria
    location: Town
item_templates:
  - name: Bread
    category: food
items:
  - template: Bread
    player: Aria
    location: Town
`},
		{"unknown template", `
items:
  - template: Vorpal Blade
    location: Town
`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			doc := parseDoc(t, tc.text)
			err := doc.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !game.IsKind(err, game.KindValidation) {
				t.Fatalf("error kind = %v", err)
			}
		})
	}
}
