package game

import "time"

// OwnerType extends CharacterType with NONE for items lying on the ground.
type OwnerType string

const (
	OwnerPC   OwnerType = "PC"
	OwnerNPC  OwnerType = "NPC"
	OwnerNone OwnerType = "NONE"
)

func ParseOwnerType(s string) (OwnerType, error) {
	switch OwnerType(s) {
	case OwnerPC, OwnerNPC, OwnerNone:
		return OwnerType(s), nil
	default:
		return "", Validationf("invalid owner type %q, expected PC, NPC or NONE", s)
	}
}

// OwnerRef is where an item instance currently lives: held by a character
// (ID set, LocationID zero) or on the ground (NONE, LocationID set).
// Exactly one of the two is meaningful at a time.
type OwnerRef struct {
	Type       OwnerType `json:"type"`
	ID         int64     `json:"id,omitempty"`
	LocationID int64     `json:"location_id,omitempty"`
}

func (o OwnerRef) Validate() error {
	switch o.Type {
	case OwnerPC, OwnerNPC:
		if o.ID == 0 {
			return Validationf("%s owner requires an owner id", o.Type)
		}
		if o.LocationID != 0 {
			return Validationf("owned items carry no location")
		}
	case OwnerNone:
		if o.ID != 0 {
			return Validationf("ground items carry no owner id")
		}
		if o.LocationID == 0 {
			return Validationf("ground items require a location id")
		}
	default:
		return Validationf("invalid owner type %q", o.Type)
	}
	return nil
}

type Location struct {
	ID           int64
	Name         string
	Description  string
	LocationType string
	CreatedAt    time.Time
}

// ItemTemplate is the immutable blueprint an instance is stamped from.
type ItemTemplate struct {
	ID          int64
	Name        string
	Category    string
	Rarity      string
	Description string
	Weight      int
	Properties  map[string]any
	CreatedAt   time.Time
}

var itemCategories = []string{"weapon", "armor", "potion", "food", "quest", "material", "misc"}

func ValidItemCategory(s string) bool {
	for _, c := range itemCategories {
		if s == c {
			return true
		}
	}
	return false
}

// ItemCategories returns the closed category vocabulary.
func ItemCategories() []string {
	out := make([]string, len(itemCategories))
	copy(out, itemCategories)
	return out
}

// ItemInstance is a concrete world object. Buffs and flaws make each copy
// unique; they are free-form strings interpreted narratively.
type ItemInstance struct {
	ID           int64
	TemplateID   int64
	Owner        OwnerRef
	Quantity     int
	CustomName   string
	Buffs        []string
	Flaws        []string
	Enchantments map[string]any
	Equipped     bool
	CreatedAt    time.Time
}

type Quest struct {
	ID               int64
	PlayerID         int64
	Title            string
	Description      string
	Active           bool
	Completed        bool
	RewardGold       int
	RewardExperience int
	CreatedAt        time.Time
}
