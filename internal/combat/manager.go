package combat

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"fableforge/internal/game"
	"fableforge/internal/store"
)

// Compressor folds tagged story turns into a single summary turn once an
// encounter ends. The memory package provides the production implementation.
type Compressor interface {
	CompressTagged(ctx context.Context, playerID int64, tag, summary string) (int, error)
}

// Manager drives the combat session state machine. All roster HP values are
// cached mirrors; the character tables stay authoritative and both are
// written together through the store.
type Manager struct {
	store      store.Store
	compressor Compressor
	log        *slog.Logger
}

func New(st store.Store, compressor Compressor, log *slog.Logger) *Manager {
	if log == nil {
		log = slog.Default()
	}
	return &Manager{store: st, compressor: compressor, log: log}
}

// Initiate opens a session for the player. The player character is always
// placed on the player team; enemies join the enemy roster. HP is snapshotted
// from the authoritative records at this moment.
func (m *Manager) Initiate(ctx context.Context, playerID int64, description string, enemies []game.CharacterRef) (*game.CombatSession, error) {
	player, err := m.store.GetPlayer(ctx, playerID)
	if err != nil {
		return nil, err
	}

	s := &game.CombatSession{
		PlayerID:    playerID,
		Status:      game.CombatActive,
		Description: description,
		TeamPlayer: []game.Combatant{{
			Ref:   game.CharacterRef{Type: game.CharacterPC, ID: playerID},
			Name:  player.Name,
			HP:    player.Health,
			MaxHP: player.MaxHealth,
		}},
	}
	for _, ref := range enemies {
		c, err := m.snapshot(ctx, ref)
		if err != nil {
			return nil, err
		}
		s.TeamEnemy = append(s.TeamEnemy, *c)
	}

	if _, err := m.store.CreateCombatSession(ctx, s); err != nil {
		return nil, err
	}
	m.log.Info("combat initiated",
		"player_id", playerID, "session_id", s.ID, "enemies", len(s.TeamEnemy))
	return s, nil
}

func (m *Manager) snapshot(ctx context.Context, ref game.CharacterRef) (*game.Combatant, error) {
	switch ref.Type {
	case game.CharacterPC:
		p, err := m.store.GetPlayer(ctx, ref.ID)
		if err != nil {
			return nil, err
		}
		return &game.Combatant{Ref: ref, Name: p.Name, HP: p.Health, MaxHP: p.MaxHealth}, nil
	case game.CharacterNPC:
		n, err := m.store.GetNPC(ctx, ref.ID)
		if err != nil {
			return nil, err
		}
		return &game.Combatant{Ref: ref, Name: n.Name, HP: n.Health, MaxHP: n.MaxHealth}, nil
	default:
		return nil, game.Validationf("invalid character type %q", ref.Type)
	}
}

func (m *Manager) session(ctx context.Context, sessionID int64) (*game.CombatSession, error) {
	s, err := m.store.GetCombatSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return s, nil
}

func (m *Manager) activeSession(ctx context.Context, sessionID int64) (*game.CombatSession, error) {
	s, err := m.session(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if !s.Active() {
		return nil, game.Conflictf("combat session %d has already ended", sessionID)
	}
	return s, nil
}

// AddCombatant snapshots the character and appends it to the given team.
func (m *Manager) AddCombatant(ctx context.Context, sessionID int64, ref game.CharacterRef, team string) (*game.CombatSession, error) {
	team, err := game.ParseTeam(team)
	if err != nil {
		return nil, err
	}
	s, err := m.activeSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if s.Combatant(ref) != nil {
		return nil, game.Conflictf("%s is already in combat session %d", ref, sessionID)
	}

	c, err := m.snapshot(ctx, ref)
	if err != nil {
		return nil, err
	}
	if team == game.TeamPlayer {
		s.TeamPlayer = append(s.TeamPlayer, *c)
	} else {
		s.TeamEnemy = append(s.TeamEnemy, *c)
	}
	if err := m.store.UpdateCombatSession(ctx, s); err != nil {
		return nil, err
	}
	return s, nil
}

// RemoveCombatant drops the character from the roster, for flight, death
// cleanup, or surrender.
func (m *Manager) RemoveCombatant(ctx context.Context, sessionID int64, ref game.CharacterRef) (*game.CombatSession, error) {
	s, err := m.activeSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if !s.RemoveCombatant(ref) {
		return nil, game.NotFoundf("%s is not in combat session %d", ref, sessionID)
	}
	if err := m.store.UpdateCombatSession(ctx, s); err != nil {
		return nil, err
	}
	return s, nil
}

// UpdateHP applies delta to a combatant's HP on the cached roster and the
// authoritative character record together, clamping to [0, MaxHP]. On
// storage failure nothing is kept: the session is re-read on the next call.
func (m *Manager) UpdateHP(ctx context.Context, sessionID int64, ref game.CharacterRef, delta int) (*game.CombatSession, error) {
	s, err := m.activeSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	c := s.Combatant(ref)
	if c == nil {
		return nil, game.NotFoundf("%s is not in combat session %d", ref, sessionID)
	}
	hp := c.HP + delta
	if hp < 0 {
		hp = 0
	}
	if hp > c.MaxHP {
		hp = c.MaxHP
	}
	c.HP = hp

	if err := m.store.ApplyCombatHP(ctx, s, ref, hp); err != nil {
		return nil, err
	}
	return s, nil
}

// End closes an active session, records the outcome, and compresses the
// combat-tagged turns into a single summary turn. Ending twice is a conflict.
func (m *Manager) End(ctx context.Context, sessionID int64, outcome, summary string) (*game.CombatSession, error) {
	s, err := m.session(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if !s.Active() {
		return nil, game.Conflictf("combat session %d has already ended", sessionID)
	}

	s.Status = game.CombatEnded
	s.Outcome = outcome
	s.Summary = summary
	s.EndedAt = time.Now().UTC()
	if err := m.store.UpdateCombatSession(ctx, s); err != nil {
		return nil, err
	}
	m.log.Info("combat ended",
		"player_id", s.PlayerID, "session_id", s.ID, "outcome", outcome)

	if m.compressor != nil {
		text := summary
		if text == "" {
			text = fmt.Sprintf("Combat concluded: %s.", outcome)
		}
		removed, err := m.compressor.CompressTagged(ctx, s.PlayerID, game.CombatTag(s.ID), text)
		if err != nil {
			// The session is already closed; compression can run again later.
			m.log.Warn("combat turn compression failed",
				"session_id", s.ID, "error", err)
		} else if removed > 0 {
			m.log.Info("combat turns compressed",
				"session_id", s.ID, "removed", removed)
		}
	}
	return s, nil
}

// ActiveCombat returns the player's active session, or nil when out of
// combat.
func (m *Manager) ActiveCombat(ctx context.Context, playerID int64) (*game.CombatSession, error) {
	return m.store.GetActiveCombat(ctx, playerID)
}

// Reconcile rebuilds the cached roster HP from the authoritative character
// records, for recovery after a crash between the two writes in older data.
func (m *Manager) Reconcile(ctx context.Context, sessionID int64) (*game.CombatSession, error) {
	s, err := m.activeSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	for _, team := range [][]game.Combatant{s.TeamPlayer, s.TeamEnemy} {
		for i := range team {
			fresh, err := m.snapshot(ctx, team[i].Ref)
			if err != nil {
				return nil, err
			}
			team[i].HP = fresh.HP
			team[i].MaxHP = fresh.MaxHP
		}
	}
	if err := m.store.UpdateCombatSession(ctx, s); err != nil {
		return nil, err
	}
	return s, nil
}
