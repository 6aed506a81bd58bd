package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"fableforge/internal/game"
)

func (c *Client) CreatePlayer(ctx context.Context, p *game.Player) (int64, error) {
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	err := c.pool.QueryRow(ctx, `
	INSERT INTO players (name, class, level, health, max_health, experience, gold, description, location_id, created_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	RETURNING id`,
		p.Name, p.Class, p.Level, p.Health, p.MaxHealth, p.Experience, p.Gold,
		p.Description, nullID(p.LocationID), p.CreatedAt,
	).Scan(&p.ID)
	if err != nil {
		return 0, fmt.Errorf("creating player: %w", err)
	}
	return p.ID, nil
}

const playerColumns = `id, name, class, level, health, max_health, experience, gold, description, location_id, created_at`

func scanPlayer(row pgx.Row) (*game.Player, error) {
	var p game.Player
	var locID *int64
	err := row.Scan(&p.ID, &p.Name, &p.Class, &p.Level, &p.Health, &p.MaxHealth,
		&p.Experience, &p.Gold, &p.Description, &locID, &p.CreatedAt)
	if err != nil {
		return nil, err
	}
	p.LocationID = fromNullID(locID)
	return &p, nil
}

func (c *Client) GetPlayer(ctx context.Context, id int64) (*game.Player, error) {
	row := c.pool.QueryRow(ctx, `SELECT `+playerColumns+` FROM players WHERE id = $1`, id)
	p, err := scanPlayer(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, game.NotFoundf("player %d not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("getting player %d: %w", id, err)
	}
	return p, nil
}

func (c *Client) UpdatePlayer(ctx context.Context, p *game.Player) error {
	tag, err := c.pool.Exec(ctx, `
	UPDATE players SET name = $1, class = $2, level = $3, health = $4, max_health = $5,
		experience = $6, gold = $7, description = $8, location_id = $9
	WHERE id = $10`,
		p.Name, p.Class, p.Level, p.Health, p.MaxHealth, p.Experience, p.Gold,
		p.Description, nullID(p.LocationID), p.ID,
	)
	if err != nil {
		return fmt.Errorf("updating player %d: %w", p.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return game.NotFoundf("player %d not found", p.ID)
	}
	return nil
}

func (c *Client) CreateNPC(ctx context.Context, n *game.NPC) (int64, error) {
	if n.Behavior == "" {
		n.Behavior = game.BehaviorPassive
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}
	err := c.pool.QueryRow(ctx, `
	INSERT INTO npcs (name, npc_type, description, dialogue, health, max_health, behavior, disposition, location_id, following_player_id, created_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	RETURNING id`,
		n.Name, n.NPCType, n.Description, n.Dialogue, n.Health, n.MaxHealth,
		string(n.Behavior), n.Disposition, nullID(n.LocationID), nullID(n.FollowingPlayerID),
		n.CreatedAt,
	).Scan(&n.ID)
	if err != nil {
		return 0, fmt.Errorf("creating npc: %w", err)
	}
	return n.ID, nil
}

const npcColumns = `id, name, npc_type, description, dialogue, health, max_health, behavior, disposition, location_id, following_player_id, created_at`

func scanNPC(row pgx.Row) (*game.NPC, error) {
	var n game.NPC
	var behavior string
	var locID, followID *int64
	err := row.Scan(&n.ID, &n.Name, &n.NPCType, &n.Description, &n.Dialogue,
		&n.Health, &n.MaxHealth, &behavior, &n.Disposition, &locID, &followID, &n.CreatedAt)
	if err != nil {
		return nil, err
	}
	n.Behavior = game.BehaviorState(behavior)
	n.LocationID = fromNullID(locID)
	n.FollowingPlayerID = fromNullID(followID)
	return &n, nil
}

func (c *Client) GetNPC(ctx context.Context, id int64) (*game.NPC, error) {
	row := c.pool.QueryRow(ctx, `SELECT `+npcColumns+` FROM npcs WHERE id = $1`, id)
	n, err := scanNPC(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, game.NotFoundf("npc %d not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("getting npc %d: %w", id, err)
	}
	return n, nil
}

func (c *Client) UpdateNPC(ctx context.Context, n *game.NPC) error {
	tag, err := c.pool.Exec(ctx, `
	UPDATE npcs SET name = $1, npc_type = $2, description = $3, dialogue = $4, health = $5,
		max_health = $6, behavior = $7, disposition = $8, location_id = $9, following_player_id = $10
	WHERE id = $11`,
		n.Name, n.NPCType, n.Description, n.Dialogue, n.Health, n.MaxHealth,
		string(n.Behavior), n.Disposition, nullID(n.LocationID), nullID(n.FollowingPlayerID), n.ID,
	)
	if err != nil {
		return fmt.Errorf("updating npc %d: %w", n.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return game.NotFoundf("npc %d not found", n.ID)
	}
	return nil
}

func (c *Client) ListNPCsAtLocation(ctx context.Context, locationID int64) ([]game.NPC, error) {
	return c.listNPCs(ctx, `SELECT `+npcColumns+` FROM npcs WHERE location_id = $1 ORDER BY id`, locationID)
}

func (c *Client) ListCompanions(ctx context.Context, playerID int64) ([]game.NPC, error) {
	return c.listNPCs(ctx, `SELECT `+npcColumns+` FROM npcs WHERE following_player_id = $1 ORDER BY id`, playerID)
}

func (c *Client) listNPCs(ctx context.Context, query string, arg int64) ([]game.NPC, error) {
	rows, err := c.pool.Query(ctx, query, arg)
	if err != nil {
		return nil, fmt.Errorf("listing npcs: %w", err)
	}
	defer rows.Close()

	var npcs []game.NPC
	for rows.Next() {
		n, err := scanNPC(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning npc: %w", err)
		}
		npcs = append(npcs, *n)
	}
	return npcs, rows.Err()
}
