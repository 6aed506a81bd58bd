package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"fableforge/internal/game"
)

func (c *Client) CreateLocation(ctx context.Context, l *game.Location) (int64, error) {
	if l.CreatedAt.IsZero() {
		l.CreatedAt = time.Now().UTC()
	}
	err := c.pool.QueryRow(ctx, `
	INSERT INTO locations (name, description, location_type, created_at)
	VALUES ($1, $2, $3, $4)
	RETURNING id`,
		l.Name, l.Description, l.LocationType, l.CreatedAt,
	).Scan(&l.ID)
	if err != nil {
		return 0, fmt.Errorf("creating location: %w", err)
	}
	return l.ID, nil
}

func (c *Client) GetLocation(ctx context.Context, id int64) (*game.Location, error) {
	var l game.Location
	err := c.pool.QueryRow(ctx,
		`SELECT id, name, description, location_type, created_at FROM locations WHERE id = $1`, id,
	).Scan(&l.ID, &l.Name, &l.Description, &l.LocationType, &l.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, game.NotFoundf("location %d not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("getting location %d: %w", id, err)
	}
	return &l, nil
}

func (c *Client) ListLocations(ctx context.Context) ([]game.Location, error) {
	rows, err := c.pool.Query(ctx,
		`SELECT id, name, description, location_type, created_at FROM locations ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("listing locations: %w", err)
	}
	defer rows.Close()

	var locations []game.Location
	for rows.Next() {
		var l game.Location
		if err := rows.Scan(&l.ID, &l.Name, &l.Description, &l.LocationType, &l.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning location: %w", err)
		}
		locations = append(locations, l)
	}
	return locations, rows.Err()
}

func (c *Client) CreateItemTemplate(ctx context.Context, t *game.ItemTemplate) (int64, error) {
	props, err := marshalJSON(t.Properties)
	if err != nil {
		return 0, err
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}
	err = c.pool.QueryRow(ctx, `
	INSERT INTO item_templates (name, category, rarity, description, weight, properties, created_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7)
	RETURNING id`,
		t.Name, t.Category, t.Rarity, t.Description, t.Weight, props, t.CreatedAt,
	).Scan(&t.ID)
	if err != nil {
		return 0, fmt.Errorf("creating item template: %w", err)
	}
	return t.ID, nil
}

const templateColumns = `id, name, category, rarity, description, weight, properties, created_at`

func scanTemplate(row pgx.Row) (*game.ItemTemplate, error) {
	var t game.ItemTemplate
	var props []byte
	err := row.Scan(&t.ID, &t.Name, &t.Category, &t.Rarity, &t.Description, &t.Weight, &props, &t.CreatedAt)
	if err != nil {
		return nil, err
	}
	t.Properties = unmarshalMap(props)
	return &t, nil
}

func (c *Client) GetItemTemplate(ctx context.Context, id int64) (*game.ItemTemplate, error) {
	row := c.pool.QueryRow(ctx, `SELECT `+templateColumns+` FROM item_templates WHERE id = $1`, id)
	t, err := scanTemplate(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, game.NotFoundf("item template %d not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("getting item template %d: %w", id, err)
	}
	return t, nil
}

func (c *Client) ListItemTemplates(ctx context.Context, category string) ([]game.ItemTemplate, error) {
	query := `SELECT ` + templateColumns + ` FROM item_templates`
	args := []any{}
	if category != "" {
		query += ` WHERE category = $1`
		args = append(args, category)
	}
	query += ` ORDER BY id`

	rows, err := c.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing item templates: %w", err)
	}
	defer rows.Close()

	var templates []game.ItemTemplate
	for rows.Next() {
		t, err := scanTemplate(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning item template: %w", err)
		}
		templates = append(templates, *t)
	}
	return templates, rows.Err()
}
