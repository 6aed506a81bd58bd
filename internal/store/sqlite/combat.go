package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

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
	res, err := c.db.ExecContext(ctx, `
	INSERT INTO combat_sessions (player_id, status, description, team_player, team_enemy, outcome, summary, created_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		s.PlayerID, s.Status, s.Description, teamPlayer, teamEnemy, s.Outcome, s.Summary,
		formatTime(s.CreatedAt),
	)
	if isUniqueViolation(err) {
		// uq_combat_active: one active session per player.
		return 0, game.Conflictf("player %d already has an active combat session", s.PlayerID)
	}
	if err != nil {
		return 0, fmt.Errorf("creating combat session: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("reading combat session id: %w", err)
	}
	s.ID = id
	return id, nil
}

const combatColumns = `id, player_id, status, description, team_player, team_enemy, outcome, summary, created_at, ended_at`

func scanCombat(row interface{ Scan(...any) error }) (*game.CombatSession, error) {
	var s game.CombatSession
	var teamPlayer, teamEnemy, createdAt string
	var endedAt sql.NullString
	err := row.Scan(&s.ID, &s.PlayerID, &s.Status, &s.Description, &teamPlayer, &teamEnemy,
		&s.Outcome, &s.Summary, &createdAt, &endedAt)
	if err != nil {
		return nil, err
	}
	if err := unmarshalTeam(teamPlayer, &s.TeamPlayer); err != nil {
		return nil, err
	}
	if err := unmarshalTeam(teamEnemy, &s.TeamEnemy); err != nil {
		return nil, err
	}
	s.CreatedAt = parseTime(createdAt)
	if endedAt.Valid {
		s.EndedAt = parseTime(endedAt.String)
	}
	return &s, nil
}

func unmarshalTeam(data string, team *[]game.Combatant) error {
	if data == "" || data == "[]" {
		*team = nil
		return nil
	}
	if err := jsonUnmarshal(data, team); err != nil {
		return fmt.Errorf("unmarshaling combat team: %w", err)
	}
	return nil
}

func (c *Client) GetCombatSession(ctx context.Context, id int64) (*game.CombatSession, error) {
	row := c.db.QueryRowContext(ctx, `SELECT `+combatColumns+` FROM combat_sessions WHERE id = ?`, id)
	s, err := scanCombat(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, game.NotFoundf("combat session %d not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("getting combat session %d: %w", id, err)
	}
	return s, nil
}

func (c *Client) GetActiveCombat(ctx context.Context, playerID int64) (*game.CombatSession, error) {
	row := c.db.QueryRowContext(ctx,
		`SELECT `+combatColumns+` FROM combat_sessions WHERE player_id = ? AND status = 'active'`, playerID)
	s, err := scanCombat(row)
	if errors.Is(err, sql.ErrNoRows) {
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
	var endedAt any
	if !s.EndedAt.IsZero() {
		endedAt = formatTime(s.EndedAt)
	}
	res, err := c.db.ExecContext(ctx, `
	UPDATE combat_sessions SET status = ?, description = ?, team_player = ?, team_enemy = ?,
		outcome = ?, summary = ?, ended_at = ?
	WHERE id = ?`,
		s.Status, s.Description, teamPlayer, teamEnemy, s.Outcome, s.Summary, endedAt, s.ID,
	)
	if err != nil {
		return fmt.Errorf("updating combat session %d: %w", s.ID, err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("updating combat session %d: %w", s.ID, err)
	}
	if rows == 0 {
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
	return c.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`UPDATE combat_sessions SET team_player = ?, team_enemy = ? WHERE id = ? AND status = 'active'`,
			teamPlayer, teamEnemy, s.ID,
		)
		if err != nil {
			return fmt.Errorf("updating combat session %d rosters: %w", s.ID, err)
		}
		rows, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("updating combat session %d rosters: %w", s.ID, err)
		}
		if rows == 0 {
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
		res, err = tx.ExecContext(ctx,
			fmt.Sprintf(`UPDATE %s SET health = ? WHERE id = ?`, table), hp, ref.ID)
		if err != nil {
			return fmt.Errorf("updating %s %d health: %w", ref.Type, ref.ID, err)
		}
		rows, err = res.RowsAffected()
		if err != nil {
			return fmt.Errorf("updating %s %d health: %w", ref.Type, ref.ID, err)
		}
		if rows == 0 {
			return game.NotFoundf("%s %d not found", ref.Type, ref.ID)
		}
		return nil
	})
}
