package game

import "testing"

func TestDispositionFor(t *testing.T) {
	tests := []struct {
		score    int
		expected Disposition
	}{
		{-100, DispositionHostile},
		{-60, DispositionHostile},
		{-59, DispositionUnfriendly},
		{-20, DispositionUnfriendly},
		{-19, DispositionNeutral},
		{0, DispositionNeutral},
		{19, DispositionNeutral},
		{20, DispositionFriendly},
		{59, DispositionFriendly},
		{60, DispositionAllied},
		{100, DispositionAllied},
	}

	for _, tt := range tests {
		if got := DispositionFor(tt.score); got != tt.expected {
			t.Errorf("DispositionFor(%d) = %q, want %q", tt.score, got, tt.expected)
		}
	}
}

func TestClampScore(t *testing.T) {
	tests := []struct {
		in, out int
	}{
		{-250, -100},
		{-100, -100},
		{0, 0},
		{100, 100},
		{999, 100},
	}
	for _, tt := range tests {
		if got := ClampScore(tt.in); got != tt.out {
			t.Errorf("ClampScore(%d) = %d, want %d", tt.in, got, tt.out)
		}
	}
}

func TestCanonicalPair(t *testing.T) {
	pc1 := CharacterRef{Type: CharacterPC, ID: 1}
	npc5 := CharacterRef{Type: CharacterNPC, ID: 5}

	a, b := CanonicalPair(pc1, npc5)
	a2, b2 := CanonicalPair(npc5, pc1)
	if a != a2 || b != b2 {
		t.Fatalf("pair order not canonical: (%v,%v) vs (%v,%v)", a, b, a2, b2)
	}

	t.Run("same type ordered by id", func(t *testing.T) {
		lo, hi := CanonicalPair(CharacterRef{Type: CharacterNPC, ID: 9}, CharacterRef{Type: CharacterNPC, ID: 2})
		if lo.ID != 2 || hi.ID != 9 {
			t.Fatalf("got (%v,%v)", lo, hi)
		}
	})
}
