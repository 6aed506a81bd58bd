package game

import (
	"fmt"
	"time"
)

// CharacterType discriminates player characters from NPCs. Tool handlers
// switch exhaustively over it; an unrecognized value is a validation error,
// never a silent default.
type CharacterType string

const (
	CharacterPC  CharacterType = "PC"
	CharacterNPC CharacterType = "NPC"
)

func ParseCharacterType(s string) (CharacterType, error) {
	switch CharacterType(s) {
	case CharacterPC:
		return CharacterPC, nil
	case CharacterNPC:
		return CharacterNPC, nil
	default:
		return "", Validationf("invalid character type %q, expected PC or NPC", s)
	}
}

// CharacterRef identifies a PC or NPC without committing to either table.
type CharacterRef struct {
	Type CharacterType `json:"type"`
	ID   int64         `json:"id"`
}

func (r CharacterRef) String() string {
	return fmt.Sprintf("%s:%d", r.Type, r.ID)
}

// Less orders refs by type then id. Used to canonicalize relationship pairs.
func (r CharacterRef) Less(other CharacterRef) bool {
	if r.Type != other.Type {
		return r.Type < other.Type
	}
	return r.ID < other.ID
}

// BehaviorState describes how an NPC reacts to the party.
type BehaviorState string

const (
	BehaviorPassive    BehaviorState = "passive"
	BehaviorDefensive  BehaviorState = "defensive"
	BehaviorAggressive BehaviorState = "aggressive"
	BehaviorHostile    BehaviorState = "hostile"
	BehaviorProtective BehaviorState = "protective"
)

// BehaviorStates returns the closed behavior vocabulary.
func BehaviorStates() []string {
	return []string{
		string(BehaviorPassive), string(BehaviorDefensive), string(BehaviorAggressive),
		string(BehaviorHostile), string(BehaviorProtective),
	}
}

func ParseBehaviorState(s string) (BehaviorState, error) {
	switch BehaviorState(s) {
	case BehaviorPassive, BehaviorDefensive, BehaviorAggressive, BehaviorHostile, BehaviorProtective:
		return BehaviorState(s), nil
	default:
		return "", Validationf("invalid behavior state %q", s)
	}
}

type Player struct {
	ID          int64
	Name        string
	Class       string
	Level       int
	Health      int
	MaxHealth   int
	Experience  int
	Gold        int
	Description string
	LocationID  int64
	CreatedAt   time.Time
}

type NPC struct {
	ID                int64
	Name              string
	NPCType           string
	Description       string
	Dialogue          string
	Health            int
	MaxHealth         int
	Behavior          BehaviorState
	Disposition       int
	LocationID        int64
	FollowingPlayerID int64
	CreatedAt         time.Time
}
