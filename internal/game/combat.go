package game

import (
	"fmt"
	"strings"
	"time"
)

// Combat session statuses.
const (
	CombatActive = "active"
	CombatEnded  = "ended"
)

// Combatant is one roster entry. HP here is a cached mirror of the
// authoritative character record, resynchronized on every mutating call.
type Combatant struct {
	Ref   CharacterRef `json:"ref"`
	Name  string       `json:"name"`
	HP    int          `json:"hp"`
	MaxHP int          `json:"max_hp"`
}

// Combat teams.
const (
	TeamPlayer = "player"
	TeamEnemy  = "enemy"
)

func ParseTeam(s string) (string, error) {
	switch s {
	case TeamPlayer, TeamEnemy:
		return s, nil
	default:
		return "", Validationf("invalid team %q, expected player or enemy", s)
	}
}

// CombatSession is the durable record of one encounter. At most one active
// session exists per player at any time.
type CombatSession struct {
	ID          int64
	PlayerID    int64
	Status      string
	Description string
	TeamPlayer  []Combatant
	TeamEnemy   []Combatant
	Outcome     string
	Summary     string
	CreatedAt   time.Time
	EndedAt     time.Time
}

func (s *CombatSession) Active() bool { return s.Status == CombatActive }

// Combatant finds a roster entry in either team, or nil.
func (s *CombatSession) Combatant(ref CharacterRef) *Combatant {
	for i := range s.TeamPlayer {
		if s.TeamPlayer[i].Ref == ref {
			return &s.TeamPlayer[i]
		}
	}
	for i := range s.TeamEnemy {
		if s.TeamEnemy[i].Ref == ref {
			return &s.TeamEnemy[i]
		}
	}
	return nil
}

// RemoveCombatant drops ref from whichever team holds it. Returns false if
// the ref is not on either roster.
func (s *CombatSession) RemoveCombatant(ref CharacterRef) bool {
	for i := range s.TeamPlayer {
		if s.TeamPlayer[i].Ref == ref {
			s.TeamPlayer = append(s.TeamPlayer[:i], s.TeamPlayer[i+1:]...)
			return true
		}
	}
	for i := range s.TeamEnemy {
		if s.TeamEnemy[i].Ref == ref {
			s.TeamEnemy = append(s.TeamEnemy[:i], s.TeamEnemy[i+1:]...)
			return true
		}
	}
	return false
}

// PromptSummary renders the combat state for the system prompt.
func (s *CombatSession) PromptSummary() string {
	var b strings.Builder
	desc := s.Description
	if desc == "" {
		desc = "Battle in progress"
	}
	fmt.Fprintf(&b, "## ACTIVE COMBAT: %s\n", desc)
	writeTeam(&b, "Your Team", s.TeamPlayer)
	writeTeam(&b, "Enemy Team", s.TeamEnemy)
	b.WriteString("\nUse combat tools to track damage, add or remove combatants, or end combat.")
	return b.String()
}

func writeTeam(b *strings.Builder, label string, team []Combatant) {
	fmt.Fprintf(b, "\n%s:\n", label)
	if len(team) == 0 {
		b.WriteString("- (none)\n")
		return
	}
	for _, c := range team {
		state := "DOWN"
		if c.HP > 0 {
			state = fmt.Sprintf("%d%% HP", c.HP*100/max(c.MaxHP, 1))
		}
		fmt.Fprintf(b, "- %s (%s): %d/%d (%s)\n", c.Name, c.Ref, c.HP, c.MaxHP, state)
	}
}
