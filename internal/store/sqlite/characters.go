package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"fableforge/internal/game"
)

func (c *Client) CreatePlayer(ctx context.Context, p *game.Player) (int64, error) {
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now().UTC()
	}
	res, err := c.db.ExecContext(ctx, `
	INSERT INTO players (name, class, level, health, max_health, experience, gold, description, location_id, created_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.Name, p.Class, p.Level, p.Health, p.MaxHealth, p.Experience, p.Gold,
		p.Description, nullID(p.LocationID), formatTime(p.CreatedAt),
	)
	if err != nil {
		return 0, fmt.Errorf("creating player: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("reading player id: %w", err)
	}
	p.ID = id
	return id, nil
}

const playerColumns = `id, name, class, level, health, max_health, experience, gold, description, location_id, created_at`

func scanPlayer(row interface{ Scan(...any) error }) (*game.Player, error) {
	var p game.Player
	var locID sql.NullInt64
	var createdAt string
	err := row.Scan(&p.ID, &p.Name, &p.Class, &p.Level, &p.Health, &p.MaxHealth,
		&p.Experience, &p.Gold, &p.Description, &locID, &createdAt)
	if err != nil {
		return nil, err
	}
	p.LocationID = fromNullID(locID)
	p.CreatedAt = parseTime(createdAt)
	return &p, nil
}

func (c *Client) GetPlayer(ctx context.Context, id int64) (*game.Player, error) {
	row := c.db.QueryRowContext(ctx, `SELECT `+playerColumns+` FROM players WHERE id = ?`, id)
	p, err := scanPlayer(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, game.NotFoundf("player %d not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("getting player %d: %w", id, err)
	}
	return p, nil
}

func (c *Client) UpdatePlayer(ctx context.Context, p *game.Player) error {
	res, err := c.db.ExecContext(ctx, `
	UPDATE players SET name = ?, class = ?, level = ?, health = ?, max_health = ?,
		experience = ?, gold = ?, description = ?, location_id = ?
	WHERE id = ?`,
		p.Name, p.Class, p.Level, p.Health, p.MaxHealth, p.Experience, p.Gold,
		p.Description, nullID(p.LocationID), p.ID,
	)
	if err != nil {
		return fmt.Errorf("updating player %d: %w", p.ID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("updating player %d: %w", p.ID, err)
	}
	if n == 0 {
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
	res, err := c.db.ExecContext(ctx, `
	INSERT INTO npcs (name, npc_type, description, dialogue, health, max_health, behavior, disposition, location_id, following_player_id, created_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		n.Name, n.NPCType, n.Description, n.Dialogue, n.Health, n.MaxHealth,
		string(n.Behavior), n.Disposition, nullID(n.LocationID), nullID(n.FollowingPlayerID),
		formatTime(n.CreatedAt),
	)
	if err != nil {
		return 0, fmt.Errorf("creating npc: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("reading npc id: %w", err)
	}
	n.ID = id
	return id, nil
}

const npcColumns = `id, name, npc_type, description, dialogue, health, max_health, behavior, disposition, location_id, following_player_id, created_at`

func scanNPC(row interface{ Scan(...any) error }) (*game.NPC, error) {
	var n game.NPC
	var behavior, createdAt string
	var locID, followID sql.NullInt64
	err := row.Scan(&n.ID, &n.Name, &n.NPCType, &n.Description, &n.Dialogue,
		&n.Health, &n.MaxHealth, &behavior, &n.Disposition, &locID, &followID, &createdAt)
	if err != nil {
		return nil, err
	}
	n.Behavior = game.BehaviorState(behavior)
	n.LocationID = fromNullID(locID)
	n.FollowingPlayerID = fromNullID(followID)
	n.CreatedAt = parseTime(createdAt)
	return &n, nil
}

func (c *Client) GetNPC(ctx context.Context, id int64) (*game.NPC, error) {
	row := c.db.QueryRowContext(ctx, `SELECT `+npcColumns+` FROM npcs WHERE id = ?`, id)
	n, err := scanNPC(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, game.NotFoundf("npc %d not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("getting npc %d: %w", id, err)
	}
	return n, nil
}

func (c *Client) UpdateNPC(ctx context.Context, n *game.NPC) error {
	res, err := c.db.ExecContext(ctx, `
	UPDATE npcs SET name = ?, npc_type = ?, description = ?, dialogue = ?, health = ?,
		max_health = ?, behavior = ?, disposition = ?, location_id = ?, following_player_id = ?
	WHERE id = ?`,
		n.Name, n.NPCType, n.Description, n.Dialogue, n.Health, n.MaxHealth,
		string(n.Behavior), n.Disposition, nullID(n.LocationID), nullID(n.FollowingPlayerID), n.ID,
	)
	if err != nil {
		return fmt.Errorf("updating npc %d: %w", n.ID, err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("updating npc %d: %w", n.ID, err)
	}
	if rows == 0 {
		return game.NotFoundf("npc %d not found", n.ID)
	}
	return nil
}

func (c *Client) ListNPCsAtLocation(ctx context.Context, locationID int64) ([]game.NPC, error) {
	return c.listNPCs(ctx, `SELECT `+npcColumns+` FROM npcs WHERE location_id = ? ORDER BY id`, locationID)
}

func (c *Client) ListCompanions(ctx context.Context, playerID int64) ([]game.NPC, error) {
	return c.listNPCs(ctx, `SELECT `+npcColumns+` FROM npcs WHERE following_player_id = ? ORDER BY id`, playerID)
}

func (c *Client) listNPCs(ctx context.Context, query string, arg int64) ([]game.NPC, error) {
	rows, err := c.db.QueryContext(ctx, query, arg)
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
