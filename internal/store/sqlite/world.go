package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"fableforge/internal/game"
)

func (c *Client) CreateLocation(ctx context.Context, l *game.Location) (int64, error) {
	if l.CreatedAt.IsZero() {
		l.CreatedAt = time.Now().UTC()
	}
	res, err := c.db.ExecContext(ctx, `
	INSERT INTO locations (name, description, location_type, created_at)
	VALUES (?, ?, ?, ?)`,
		l.Name, l.Description, l.LocationType, formatTime(l.CreatedAt),
	)
	if err != nil {
		return 0, fmt.Errorf("creating location: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("reading location id: %w", err)
	}
	l.ID = id
	return id, nil
}

func (c *Client) GetLocation(ctx context.Context, id int64) (*game.Location, error) {
	var l game.Location
	var createdAt string
	err := c.db.QueryRowContext(ctx,
		`SELECT id, name, description, location_type, created_at FROM locations WHERE id = ?`, id,
	).Scan(&l.ID, &l.Name, &l.Description, &l.LocationType, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, game.NotFoundf("location %d not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("getting location %d: %w", id, err)
	}
	l.CreatedAt = parseTime(createdAt)
	return &l, nil
}

func (c *Client) ListLocations(ctx context.Context) ([]game.Location, error) {
	rows, err := c.db.QueryContext(ctx,
		`SELECT id, name, description, location_type, created_at FROM locations ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("listing locations: %w", err)
	}
	defer rows.Close()

	var locations []game.Location
	for rows.Next() {
		var l game.Location
		var createdAt string
		if err := rows.Scan(&l.ID, &l.Name, &l.Description, &l.LocationType, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning location: %w", err)
		}
		l.CreatedAt = parseTime(createdAt)
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
	res, err := c.db.ExecContext(ctx, `
	INSERT INTO item_templates (name, category, rarity, description, weight, properties, created_at)
	VALUES (?, ?, ?, ?, ?, ?, ?)`,
		t.Name, t.Category, t.Rarity, t.Description, t.Weight, props, formatTime(t.CreatedAt),
	)
	if err != nil {
		return 0, fmt.Errorf("creating item template: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("reading template id: %w", err)
	}
	t.ID = id
	return id, nil
}

const templateColumns = `id, name, category, rarity, description, weight, properties, created_at`

func scanTemplate(row interface{ Scan(...any) error }) (*game.ItemTemplate, error) {
	var t game.ItemTemplate
	var props, createdAt string
	err := row.Scan(&t.ID, &t.Name, &t.Category, &t.Rarity, &t.Description, &t.Weight, &props, &createdAt)
	if err != nil {
		return nil, err
	}
	t.Properties = unmarshalMap(props)
	t.CreatedAt = parseTime(createdAt)
	return &t, nil
}

func (c *Client) GetItemTemplate(ctx context.Context, id int64) (*game.ItemTemplate, error) {
	row := c.db.QueryRowContext(ctx, `SELECT `+templateColumns+` FROM item_templates WHERE id = ?`, id)
	t, err := scanTemplate(row)
	if errors.Is(err, sql.ErrNoRows) {
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
		query += ` WHERE category = ?`
		args = append(args, category)
	}
	query += ` ORDER BY id`

	rows, err := c.db.QueryContext(ctx, query, args...)
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
