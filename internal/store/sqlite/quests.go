package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"fableforge/internal/game"
)

func (c *Client) CreateQuest(ctx context.Context, q *game.Quest) (int64, error) {
	if q.CreatedAt.IsZero() {
		q.CreatedAt = time.Now().UTC()
	}
	res, err := c.db.ExecContext(ctx, `
	INSERT INTO quests (player_id, title, description, active, completed, reward_gold, reward_experience, created_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		q.PlayerID, q.Title, q.Description, q.Active, q.Completed,
		q.RewardGold, q.RewardExperience, formatTime(q.CreatedAt),
	)
	if err != nil {
		return 0, fmt.Errorf("creating quest: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("reading quest id: %w", err)
	}
	q.ID = id
	return id, nil
}

const questColumns = `id, player_id, title, description, active, completed, reward_gold, reward_experience, created_at`

func scanQuest(row interface{ Scan(...any) error }) (*game.Quest, error) {
	var q game.Quest
	var createdAt string
	err := row.Scan(&q.ID, &q.PlayerID, &q.Title, &q.Description, &q.Active,
		&q.Completed, &q.RewardGold, &q.RewardExperience, &createdAt)
	if err != nil {
		return nil, err
	}
	q.CreatedAt = parseTime(createdAt)
	return &q, nil
}

func (c *Client) GetQuest(ctx context.Context, id int64) (*game.Quest, error) {
	row := c.db.QueryRowContext(ctx, `SELECT `+questColumns+` FROM quests WHERE id = ?`, id)
	q, err := scanQuest(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, game.NotFoundf("quest %d not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("getting quest %d: %w", id, err)
	}
	return q, nil
}

func (c *Client) UpdateQuest(ctx context.Context, q *game.Quest) error {
	res, err := c.db.ExecContext(ctx, `
	UPDATE quests SET title = ?, description = ?, active = ?, completed = ?,
		reward_gold = ?, reward_experience = ?
	WHERE id = ?`,
		q.Title, q.Description, q.Active, q.Completed, q.RewardGold, q.RewardExperience, q.ID,
	)
	if err != nil {
		return fmt.Errorf("updating quest %d: %w", q.ID, err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("updating quest %d: %w", q.ID, err)
	}
	if rows == 0 {
		return game.NotFoundf("quest %d not found", q.ID)
	}
	return nil
}

func (c *Client) ListQuests(ctx context.Context, playerID int64, activeOnly bool) ([]game.Quest, error) {
	query := `SELECT ` + questColumns + ` FROM quests WHERE player_id = ?`
	if activeOnly {
		query += ` AND active = 1`
	}
	query += ` ORDER BY id`

	rows, err := c.db.QueryContext(ctx, query, playerID)
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
