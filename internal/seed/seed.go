// Package seed loads a YAML world definition and writes it through the
// store: locations, item templates, NPCs, players, and starting items.
package seed

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"fableforge/internal/game"
	"fableforge/internal/store"
)

// Document is one world seed file. Entities reference each other by name,
// resolved during Apply in declaration order: locations and templates first,
// then characters, then items.
type Document struct {
	Locations     []LocationSeed `yaml:"locations"`
	ItemTemplates []TemplateSeed `yaml:"item_templates"`
	NPCs          []NPCSeed      `yaml:"npcs"`
	Players       []PlayerSeed   `yaml:"players"`
	Items         []ItemSeed     `yaml:"items"`
}

type LocationSeed struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Type        string `yaml:"type"`
}

type TemplateSeed struct {
	Name        string         `yaml:"name"`
	Category    string         `yaml:"category"`
	Description string         `yaml:"description"`
	Rarity      string         `yaml:"rarity"`
	Weight      int            `yaml:"weight"`
	Properties  map[string]any `yaml:"properties"`
}

type NPCSeed struct {
	Name        string `yaml:"name"`
	Type        string `yaml:"type"`
	Description string `yaml:"description"`
	Dialogue    string `yaml:"dialogue"`
	Health      int    `yaml:"health"`
	MaxHealth   int    `yaml:"max_health"`
	Behavior    string `yaml:"behavior"`
	Disposition int    `yaml:"disposition"`
	Location    string `yaml:"location"`
}

type PlayerSeed struct {
	Name        string `yaml:"name"`
	Class       string `yaml:"class"`
	Description string `yaml:"description"`
	Health      int    `yaml:"health"`
	MaxHealth   int    `yaml:"max_health"`
	Gold        int    `yaml:"gold"`
	Location    string `yaml:"location"`
}

// ItemSeed places one instance. Exactly one of Player, NPC, or Location
// names the owner.
type ItemSeed struct {
	Template   string   `yaml:"template"`
	Quantity   int      `yaml:"quantity"`
	CustomName string   `yaml:"custom_name"`
	Buffs      []string `yaml:"buffs"`
	Flaws      []string `yaml:"flaws"`
	Player     string   `yaml:"player"`
	NPC        string   `yaml:"npc"`
	Location   string   `yaml:"location"`
}

// Result counts what Apply wrote. PlayerIDs maps seeded player names to
// their assigned IDs so callers can report them.
type Result struct {
	Locations int
	Templates int
	NPCs      int
	Players   int
	Items     int

	PlayerIDs map[string]int64
}

// Load reads and validates a seed file.
func Load(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}
	doc, err := Parse(data)
	if err != nil {
		return nil, err
	}
	if err := doc.Validate(); err != nil {
		return nil, err
	}
	return doc, nil
}

// Parse unmarshals seed YAML without validating it.
func Parse(data []byte) (*Document, error) {
	var doc Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse seed file: %w", err)
	}
	return &doc, nil
}

// Validate checks names, enums, and cross-references before anything is
// written. A valid document applies cleanly or the store is at fault.
func (d *Document) Validate() error {
	locations := make(map[string]bool, len(d.Locations))
	for i, l := range d.Locations {
		if l.Name == "" {
			return game.Validationf("locations[%d]: name is required", i)
		}
		if locations[l.Name] {
			return game.Validationf("duplicate location %q", l.Name)
		}
		locations[l.Name] = true
	}

	templates := make(map[string]bool, len(d.ItemTemplates))
	for i, t := range d.ItemTemplates {
		if t.Name == "" {
			return game.Validationf("item_templates[%d]: name is required", i)
		}
		if templates[t.Name] {
			return game.Validationf("duplicate item template %q", t.Name)
		}
		if !game.ValidItemCategory(t.Category) {
			return game.Validationf("item template %q: invalid category %q", t.Name, t.Category)
		}
		templates[t.Name] = true
	}

	npcs := make(map[string]bool, len(d.NPCs))
	for i, n := range d.NPCs {
		if n.Name == "" {
			return game.Validationf("npcs[%d]: name is required", i)
		}
		if npcs[n.Name] {
			return game.Validationf("duplicate npc %q", n.Name)
		}
		if n.Behavior != "" {
			if _, err := game.ParseBehaviorState(n.Behavior); err != nil {
				return game.Validationf("npc %q: %v", n.Name, err)
			}
		}
		if n.Location != "" && !locations[n.Location] {
			return game.Validationf("npc %q: unknown location %q", n.Name, n.Location)
		}
		npcs[n.Name] = true
	}

	players := make(map[string]bool, len(d.Players))
	for i, p := range d.Players {
		if p.Name == "" {
			return game.Validationf("players[%d]: name is required", i)
		}
		if players[p.Name] {
			return game.Validationf("duplicate player %q", p.Name)
		}
		if p.Location != "" && !locations[p.Location] {
			return game.Validationf("player %q: unknown location %q", p.Name, p.Location)
		}
		players[p.Name] = true
	}

	for i, it := range d.Items {
		if it.Template == "" {
			return game.Validationf("items[%d]: template is required", i)
		}
		if !templates[it.Template] {
			return game.Validationf("items[%d]: unknown template %q", i, it.Template)
		}
		owners := 0
		if it.Player != "" {
			owners++
			if !players[it.Player] {
				return game.Validationf("items[%d]: unknown player %q", i, it.Player)
			}
		}
		if it.NPC != "" {
			owners++
			if !npcs[it.NPC] {
				return game.Validationf("items[%d]: unknown npc %q", i, it.NPC)
			}
		}
		if it.Location != "" {
			owners++
			if !locations[it.Location] {
				return game.Validationf("items[%d]: unknown location %q", i, it.Location)
			}
		}
		if owners != 1 {
			return game.Validationf("items[%d]: exactly one of player, npc, or location must be set", i)
		}
	}
	return nil
}

// Apply writes the document through the store and returns counts. It is not
// idempotent; callers guard against double-seeding (see Seeded).
func Apply(ctx context.Context, db store.Store, doc *Document) (*Result, error) {
	res := &Result{PlayerIDs: make(map[string]int64, len(doc.Players))}

	locationIDs := make(map[string]int64, len(doc.Locations))
	for _, l := range doc.Locations {
		loc := &game.Location{Name: l.Name, Description: l.Description, LocationType: l.Type}
		id, err := db.CreateLocation(ctx, loc)
		if err != nil {
			return res, fmt.Errorf("create location %q: %w", l.Name, err)
		}
		locationIDs[l.Name] = id
		res.Locations++
	}

	templateIDs := make(map[string]int64, len(doc.ItemTemplates))
	for _, t := range doc.ItemTemplates {
		rarity := t.Rarity
		if rarity == "" {
			rarity = "common"
		}
		weight := t.Weight
		if weight == 0 {
			weight = 1
		}
		tpl := &game.ItemTemplate{
			Name:        t.Name,
			Category:    t.Category,
			Rarity:      rarity,
			Description: t.Description,
			Weight:      weight,
			Properties:  t.Properties,
		}
		id, err := db.CreateItemTemplate(ctx, tpl)
		if err != nil {
			return res, fmt.Errorf("create item template %q: %w", t.Name, err)
		}
		templateIDs[t.Name] = id
		res.Templates++
	}

	npcIDs := make(map[string]int64, len(doc.NPCs))
	for _, n := range doc.NPCs {
		behavior := game.BehaviorPassive
		if n.Behavior != "" {
			behavior, _ = game.ParseBehaviorState(n.Behavior)
		}
		health := n.Health
		if health == 0 {
			health = 50
		}
		maxHealth := n.MaxHealth
		if maxHealth == 0 {
			maxHealth = health
		}
		npc := &game.NPC{
			Name:        n.Name,
			NPCType:     n.Type,
			Description: n.Description,
			Dialogue:    n.Dialogue,
			Health:      health,
			MaxHealth:   maxHealth,
			Behavior:    behavior,
			Disposition: game.ClampScore(n.Disposition),
			LocationID:  locationIDs[n.Location],
		}
		id, err := db.CreateNPC(ctx, npc)
		if err != nil {
			return res, fmt.Errorf("create npc %q: %w", n.Name, err)
		}
		npcIDs[n.Name] = id
		res.NPCs++
	}

	playerIDs := make(map[string]int64, len(doc.Players))
	for _, p := range doc.Players {
		health := p.Health
		if health == 0 {
			health = 100
		}
		maxHealth := p.MaxHealth
		if maxHealth == 0 {
			maxHealth = health
		}
		player := &game.Player{
			Name:        p.Name,
			Class:       p.Class,
			Level:       1,
			Health:      health,
			MaxHealth:   maxHealth,
			Gold:        p.Gold,
			Description: p.Description,
			LocationID:  locationIDs[p.Location],
		}
		id, err := db.CreatePlayer(ctx, player)
		if err != nil {
			return res, fmt.Errorf("create player %q: %w", p.Name, err)
		}
		playerIDs[p.Name] = id
		res.PlayerIDs[p.Name] = id
		res.Players++
	}

	for i, it := range doc.Items {
		var owner game.OwnerRef
		switch {
		case it.Player != "":
			owner = game.OwnerRef{Type: game.OwnerPC, ID: playerIDs[it.Player]}
		case it.NPC != "":
			owner = game.OwnerRef{Type: game.OwnerNPC, ID: npcIDs[it.NPC]}
		default:
			owner = game.OwnerRef{Type: game.OwnerNone, LocationID: locationIDs[it.Location]}
		}
		quantity := it.Quantity
		if quantity == 0 {
			quantity = 1
		}
		inst := &game.ItemInstance{
			TemplateID: templateIDs[it.Template],
			Owner:      owner,
			Quantity:   quantity,
			CustomName: it.CustomName,
			Buffs:      it.Buffs,
			Flaws:      it.Flaws,
		}
		if _, err := db.CreateItemInstance(ctx, inst); err != nil {
			return res, fmt.Errorf("items[%d] (%s): %w", i, it.Template, err)
		}
		res.Items++
	}
	return res, nil
}

// Seeded reports whether the world already has any locations, the same
// guard the seed command uses to refuse a second run.
func Seeded(ctx context.Context, db store.Store) (bool, error) {
	locations, err := db.ListLocations(ctx)
	if err != nil {
		return false, err
	}
	return len(locations) > 0, nil
}
