package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"fableforge/internal/game"
)

func (c *Client) CreateQuest(ctx context.Context, q *game.Quest) (int64, error) {
	if q.CreatedAt.IsZero() {
		q.CreatedAt = time.Now().UTC()
	}
	err := c.pool.QueryRow(ctx, `
	INSERT INTO quests (player_id, title, description, active, completed, reward_gold, reward_experience, created_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	RETURNING id`,
		q.PlayerID, q.Title, q.Description, q.Active, q.Completed,
		q.RewardGold, q.RewardExperience, q.CreatedAt,
	).Scan(&q.ID)
	if err != nil {
		return 0, fmt.Errorf("creating quest: %w", err)
	}
	return q.ID, nil
}

const questColumns = `id, player_id, title, description, active, completed, reward_gold, reward_experience, created_at`

func scanQuest(row pgx.Row) (*game.Quest, error) {
	var q game.Quest
	err := row.Scan(&q.ID, &q.PlayerID, &q.Title, &q.Description, &q.Active,
		&q.Completed, &q.RewardGold, &q.RewardExperience, &q.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &q, nil
}

func (c *Client) GetQuest(ctx context.Context, id int64) (*game.Quest, error) {
	row := c.pool.QueryRow(ctx, `SELECT `+questColumns+` FROM quests WHERE id = $1`, id)
	q, err := scanQuest(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, game.NotFoundf("quest %d not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("getting quest %d: %w", id, err)
	}
	return q, nil
}

func (c *Client) UpdateQuest(ctx context.Context, q *game.Quest) error {
	tag, err := c.pool.Exec(ctx, `
	UPDATE quests SET title = $1, description = $2, active = $3, completed = $4,
		reward_gold = $5, reward_experience = $6
	WHERE id = $7`,
		q.Title, q.Description, q.Active, q.Completed, q.RewardGold, q.RewardExperience, q.ID,
	)
	if err != nil {
		return fmt.Errorf("updating quest %d: %w", q.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return game.NotFoundf("quest %d not found", q.ID)
	}
	return nil
}

func (c *Client) ListQuests(ctx context.Context, playerID int64, activeOnly bool) ([]game.Quest, error) {
	query := `SELECT ` + questColumns + ` FROM quests WHERE player_id = $1`
	if activeOnly {
		query += ` AND active = TRUE`
	}
	query += ` ORDER BY id`

	rows, err := c.pool.Query(ctx, query, playerID)
	if err != nil {
		return nil, fmt.Errorf("listing quests: %w", err)
	}
	defer rows.Close()

	var quests []game.Quest
	for rows.Next() {
		q, err := scanQuest(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning quest: %w", err)
		}
		quests = append(quests, *q)
	}
	return quests, rows.Err()
}
