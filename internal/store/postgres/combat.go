package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"fableforge/internal/game"
)

func (c *Client) CreateCombatSession(ctx context.Context, s *game.CombatSession) (int64, error) {
	teamPlayer, err := marshalJSON(s.TeamPlayer)
	if err != nil {
		return 0, err
	}
	teamEnemy, err := marshalJSON(s.TeamEnemy)
	if err != nil {
		return 0, err
	}
	if s.Status == "" {
		s.Status = game.CombatActive
	}
	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now().UTC()
	}
	err = c.pool.QueryRow(ctx, `
	INSERT INTO combat_sessions (player_id, status, description, team_player, team_enemy, outcome, summary, created_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	RETURNING id`,
		s.PlayerID, s.Status, s.Description, teamPlayer, teamEnemy, s.Outcome, s.Summary,
		s.CreatedAt,
	).Scan(&s.ID)
	if isUniqueViolation(err) {
		// uq_combat_active: one active session per player.
		return 0, game.Conflictf("player %d already has an active combat session", s.PlayerID)
	}
	if err != nil {
		return 0, fmt.Errorf("creating combat session: %w", err)
	}
	return s.ID, nil
}

const combatColumns = `id, player_id, status, description, team_player, team_enemy, outcome, summary, created_at, ended_at`

func scanCombat(row pgx.Row) (*game.CombatSession, error) {
	var s game.CombatSession
	var teamPlayer, teamEnemy []byte
	var endedAt *time.Time
	err := row.Scan(&s.ID, &s.PlayerID, &s.Status, &s.Description, &teamPlayer, &teamEnemy,
		&s.Outcome, &s.Summary, &s.CreatedAt, &endedAt)
	if err != nil {
		return nil, err
	}
	if err := unmarshalTeam(teamPlayer, &s.TeamPlayer); err != nil {
		return nil, err
	}
	if err := unmarshalTeam(teamEnemy, &s.TeamEnemy); err != nil {
		return nil, err
	}
	if endedAt != nil {
		s.EndedAt = *endedAt
	}
	return &s, nil
}

func unmarshalTeam(data []byte, team *[]game.Combatant) error {
	if len(data) == 0 || string(data) == "[]" {
		*team = nil
		return nil
	}
	if err := json.Unmarshal(data, team); err != nil {
		return fmt.Errorf("unmarshaling combat team: %w", err)
	}
	return nil
}

func (c *Client) GetCombatSession(ctx context.Context, id int64) (*game.CombatSession, error) {
	row := c.pool.QueryRow(ctx, `SELECT `+combatColumns+` FROM combat_sessions WHERE id = $1`, id)
	s, err := scanCombat(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, game.NotFoundf("combat session %d not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("getting combat session %d: %w", id, err)
	}
	return s, nil
}

func (c *Client) GetActiveCombat(ctx context.Context, playerID int64) (*game.CombatSession, error) {
	row := c.pool.QueryRow(ctx,
		`SELECT `+combatColumns+` FROM combat_sessions WHERE player_id = $1 AND status = 'active'`, playerID)
	s, err := scanCombat(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting active combat for player %d: %w", playerID, err)
	}
	return s, nil
}

func (c *Client) UpdateCombatSession(ctx context.Context, s *game.CombatSession) error {
	teamPlayer, err := marshalJSON(s.TeamPlayer)
	if err != nil {
		return err
	}
	teamEnemy, err := marshalJSON(s.TeamEnemy)
	if err != nil {
		return err
	}
	var endedAt *time.Time
	if !s.EndedAt.IsZero() {
		endedAt = &s.EndedAt
	}
	tag, err := c.pool.Exec(ctx, `
	UPDATE combat_sessions SET status = $1, description = $2, team_player = $3, team_enemy = $4,
		outcome = $5, summary = $6, ended_at = $7
	WHERE id = $8`,
		s.Status, s.Description, teamPlayer, teamEnemy, s.Outcome, s.Summary, endedAt, s.ID,
	)
	if err != nil {
		return fmt.Errorf("updating combat session %d: %w", s.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return game.NotFoundf("combat session %d not found", s.ID)
	}
	return nil
}

// ApplyCombatHP writes the cached roster and the authoritative character
// health in one transaction so the two can never diverge.
func (c *Client) ApplyCombatHP(ctx context.Context, s *game.CombatSession, ref game.CharacterRef, hp int) error {
	teamPlayer, err := marshalJSON(s.TeamPlayer)
	if err != nil {
		return err
	}
	teamEnemy, err := marshalJSON(s.TeamEnemy)
	if err != nil {
		return err
	}
	return c.withTx(ctx, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx,
			`UPDATE combat_sessions SET team_player = $1, team_enemy = $2 WHERE id = $3 AND status = 'active'`,
			teamPlayer, teamEnemy, s.ID,
		)
		if err != nil {
			return fmt.Errorf("updating combat session %d rosters: %w", s.ID, err)
		}
		if tag.RowsAffected() == 0 {
			return game.Conflictf("combat session %d is not active", s.ID)
		}

		var table string
		switch ref.Type {
		case game.CharacterPC:
			table = "players"
		case game.CharacterNPC:
			table = "npcs"
		default:
			return game.Validationf("invalid character type %q", ref.Type)
		}
		tag, err = tx.Exec(ctx,
			fmt.Sprintf(`UPDATE %s SET health = $1 WHERE id = $2`, table), hp, ref.ID)
		if err != nil {
			return fmt.Errorf("updating %s %d health: %w", ref.Type, ref.ID, err)
		}
		if tag.RowsAffected() == 0 {
			return game.NotFoundf("%s %d not found", ref.Type, ref.ID)
		}
		return nil
	})
}
