package game

import (
	"strings"
	"testing"
)

func TestPromptSummary(t *testing.T) {
	s := &CombatSession{
		ID:          7,
		Status:      CombatActive,
		Description: "Ambush at the bridge",
		TeamPlayer: []Combatant{
			{Ref: CharacterRef{Type: CharacterPC, ID: 1}, Name: "Aria", HP: 10, MaxHP: 20},
		},
		TeamEnemy: []Combatant{
			{Ref: CharacterRef{Type: CharacterNPC, ID: 5}, Name: "Dire Wolf", HP: 0, MaxHP: 12},
		},
	}

	out := s.PromptSummary()
	for _, want := range []string{
		"## ACTIVE COMBAT: Ambush at the bridge",
		"Your Team:",
		"Enemy Team:",
		"Aria (PC:1): 10/20 (50% HP)",
		"Dire Wolf (NPC:5): 0/12 (DOWN)",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("PromptSummary missing %q in:\n%s", want, out)
		}
	}
}

func TestPromptSummaryEmptySides(t *testing.T) {
	s := &CombatSession{ID: 1, Status: CombatActive}
	out := s.PromptSummary()
	if !strings.Contains(out, "## ACTIVE COMBAT: Battle in progress") {
		t.Errorf("missing default description in:\n%s", out)
	}
	if strings.Count(out, "- (none)") != 2 {
		t.Errorf("empty rosters not marked in:\n%s", out)
	}
}
