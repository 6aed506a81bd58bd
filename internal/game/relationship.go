package game

import "time"

// Disposition is the discrete band a relationship score falls into.
type Disposition string

const (
	DispositionHostile    Disposition = "hostile"
	DispositionUnfriendly Disposition = "unfriendly"
	DispositionNeutral    Disposition = "neutral"
	DispositionFriendly   Disposition = "friendly"
	DispositionAllied     Disposition = "allied"
)

const (
	RelationshipMin = -100
	RelationshipMax = 100
)

// Relationship is a canonicalized numeric bond between two characters.
// Source always orders before Target (see CanonicalPair), so (A,B) and
// (B,A) resolve to the same record.
type Relationship struct {
	ID              int64
	Source          CharacterRef
	Target          CharacterRef
	Score           int
	Notes           string
	LastInteraction time.Time
}

func (r Relationship) Disposition() Disposition {
	return DispositionFor(r.Score)
}

// DispositionFor maps a score in [-100, 100] to its band.
func DispositionFor(score int) Disposition {
	switch {
	case score <= -60:
		return DispositionHostile
	case score <= -20:
		return DispositionUnfriendly
	case score < 20:
		return DispositionNeutral
	case score < 60:
		return DispositionFriendly
	default:
		return DispositionAllied
	}
}

// ClampScore bounds a relationship score to the valid range.
func ClampScore(score int) int {
	if score < RelationshipMin {
		return RelationshipMin
	}
	if score > RelationshipMax {
		return RelationshipMax
	}
	return score
}

// CanonicalPair orders two character refs so the same pair always keys the
// same relationship record regardless of argument order.
func CanonicalPair(a, b CharacterRef) (CharacterRef, CharacterRef) {
	if b.Less(a) {
		return b, a
	}
	return a, b
}
