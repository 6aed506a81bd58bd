package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"fableforge/internal/game"
)

func (c *Client) CreateItemInstance(ctx context.Context, it *game.ItemInstance) (int64, error) {
	if err := it.Owner.Validate(); err != nil {
		return 0, err
	}
	buffs, err := marshalJSON(it.Buffs)
	if err != nil {
		return 0, err
	}
	flaws, err := marshalJSON(it.Flaws)
	if err != nil {
		return 0, err
	}
	ench, err := marshalJSON(it.Enchantments)
	if err != nil {
		return 0, err
	}
	if it.Quantity <= 0 {
		it.Quantity = 1
	}
	if it.CreatedAt.IsZero() {
		it.CreatedAt = time.Now().UTC()
	}
	res, err := c.db.ExecContext(ctx, `
	INSERT INTO item_instances (template_id, owner_type, owner_id, location_id, quantity, custom_name, buffs, flaws, enchantments, equipped, created_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		it.TemplateID, string(it.Owner.Type), nullID(it.Owner.ID), nullID(it.Owner.LocationID),
		it.Quantity, it.CustomName, buffs, flaws, ench, it.Equipped, formatTime(it.CreatedAt),
	)
	if err != nil {
		return 0, fmt.Errorf("creating item instance: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("reading item instance id: %w", err)
	}
	it.ID = id
	return id, nil
}

const instanceColumns = `id, template_id, owner_type, owner_id, location_id, quantity, custom_name, buffs, flaws, enchantments, equipped, created_at`

func scanInstance(row interface{ Scan(...any) error }) (*game.ItemInstance, error) {
	var it game.ItemInstance
	var ownerType, buffs, flaws, ench, createdAt string
	var ownerID, locID sql.NullInt64
	err := row.Scan(&it.ID, &it.TemplateID, &ownerType, &ownerID, &locID, &it.Quantity,
		&it.CustomName, &buffs, &flaws, &ench, &it.Equipped, &createdAt)
	if err != nil {
		return nil, err
	}
	it.Owner = game.OwnerRef{
		Type:       game.OwnerType(ownerType),
		ID:         fromNullID(ownerID),
		LocationID: fromNullID(locID),
	}
	it.Buffs = unmarshalStrings(buffs)
	it.Flaws = unmarshalStrings(flaws)
	it.Enchantments = unmarshalMap(ench)
	it.CreatedAt = parseTime(createdAt)
	return &it, nil
}

func (c *Client) GetItemInstance(ctx context.Context, id int64) (*game.ItemInstance, error) {
	row := c.db.QueryRowContext(ctx, `SELECT `+instanceColumns+` FROM item_instances WHERE id = ?`, id)
	it, err := scanInstance(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, game.NotFoundf("item instance %d not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("getting item instance %d: %w", id, err)
	}
	return it, nil
}

func (c *Client) ListItemsByOwner(ctx context.Context, ownerType game.OwnerType, ownerID int64) ([]game.ItemInstance, error) {
	return c.listInstances(ctx,
		`SELECT `+instanceColumns+` FROM item_instances WHERE owner_type = ? AND owner_id = ? ORDER BY id`,
		string(ownerType), ownerID)
}

func (c *Client) ListItemsAtLocation(ctx context.Context, locationID int64) ([]game.ItemInstance, error) {
	return c.listInstances(ctx,
		`SELECT `+instanceColumns+` FROM item_instances WHERE owner_type = 'NONE' AND location_id = ? ORDER BY id`,
		locationID)
}

func (c *Client) listInstances(ctx context.Context, query string, args ...any) ([]game.ItemInstance, error) {
	rows, err := c.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing item instances: %w", err)
	}
	defer rows.Close()

	var items []game.ItemInstance
	for rows.Next() {
		it, err := scanInstance(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning item instance: %w", err)
		}
		items = append(items, *it)
	}
	return items, rows.Err()
}

// TransferItem flips ownership only if the instance still matches expect.
// The check and the write happen in one transaction so a concurrent
// transfer cannot interleave.
func (c *Client) TransferItem(ctx context.Context, instanceID int64, expect, to game.OwnerRef) error {
	if err := to.Validate(); err != nil {
		return err
	}
	return c.withTx(ctx, func(tx *sql.Tx) error {
		var ownerType string
		var ownerID, locID sql.NullInt64
		err := tx.QueryRowContext(ctx,
			`SELECT owner_type, owner_id, location_id FROM item_instances WHERE id = ?`, instanceID,
		).Scan(&ownerType, &ownerID, &locID)
		if errors.Is(err, sql.ErrNoRows) {
			return game.NotFoundf("item instance %d not found", instanceID)
		}
		if err != nil {
			return fmt.Errorf("reading item instance %d: %w", instanceID, err)
		}

		current := game.OwnerRef{
			Type:       game.OwnerType(ownerType),
			ID:         fromNullID(ownerID),
			LocationID: fromNullID(locID),
		}
		if current != expect {
			return game.Conflictf("item instance %d is held by %s, not %s", instanceID, describeOwner(current), describeOwner(expect))
		}

		_, err = tx.ExecContext(ctx,
			`UPDATE item_instances SET owner_type = ?, owner_id = ?, location_id = ?, equipped = 0 WHERE id = ?`,
			string(to.Type), nullID(to.ID), nullID(to.LocationID), instanceID,
		)
		if err != nil {
			return fmt.Errorf("transferring item instance %d: %w", instanceID, err)
		}
		return nil
	})
}

func describeOwner(o game.OwnerRef) string {
	if o.Type == game.OwnerNone {
		return fmt.Sprintf("ground at location %d", o.LocationID)
	}
	return fmt.Sprintf("%s %d", o.Type, o.ID)
}

// ConsumeItem decrements quantity and deletes the row at zero, so no
// instance ever lingers with quantity 0.
func (c *Client) ConsumeItem(ctx context.Context, instanceID int64, n int) (int, error) {
	if n <= 0 {
		return 0, game.Validationf("consume count must be positive, got %d", n)
	}
	remaining := 0
	err := c.withTx(ctx, func(tx *sql.Tx) error {
		var quantity int
		err := tx.QueryRowContext(ctx,
			`SELECT quantity FROM item_instances WHERE id = ?`, instanceID,
		).Scan(&quantity)
		if errors.Is(err, sql.ErrNoRows) {
			return game.NotFoundf("item instance %d not found", instanceID)
		}
		if err != nil {
			return fmt.Errorf("reading item instance %d: %w", instanceID, err)
		}
		if n > quantity {
			return game.Conflictf("item instance %d has quantity %d, cannot consume %d", instanceID, quantity, n)
		}

		remaining = quantity - n
		if remaining == 0 {
			if _, err := tx.ExecContext(ctx, `DELETE FROM item_instances WHERE id = ?`, instanceID); err != nil {
				return fmt.Errorf("deleting consumed item instance %d: %w", instanceID, err)
			}
			return nil
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE item_instances SET quantity = ? WHERE id = ?`, remaining, instanceID); err != nil {
			return fmt.Errorf("updating item instance %d quantity: %w", instanceID, err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return remaining, nil
}
