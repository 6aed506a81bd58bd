package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

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
	err = c.pool.QueryRow(ctx, `
	INSERT INTO item_instances (template_id, owner_type, owner_id, location_id, quantity, custom_name, buffs, flaws, enchantments, equipped, created_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	RETURNING id`,
		it.TemplateID, string(it.Owner.Type), nullID(it.Owner.ID), nullID(it.Owner.LocationID),
		it.Quantity, it.CustomName, buffs, flaws, ench, it.Equipped, it.CreatedAt,
	).Scan(&it.ID)
	if err != nil {
		return 0, fmt.Errorf("creating item instance: %w", err)
	}
	return it.ID, nil
}

const instanceColumns = `id, template_id, owner_type, owner_id, location_id, quantity, custom_name, buffs, flaws, enchantments, equipped, created_at`

func scanInstance(row pgx.Row) (*game.ItemInstance, error) {
	var it game.ItemInstance
	var ownerType string
	var buffs, flaws, ench []byte
	var ownerID, locID *int64
	err := row.Scan(&it.ID, &it.TemplateID, &ownerType, &ownerID, &locID, &it.Quantity,
		&it.CustomName, &buffs, &flaws, &ench, &it.Equipped, &it.CreatedAt)
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
	return &it, nil
}

func (c *Client) GetItemInstance(ctx context.Context, id int64) (*game.ItemInstance, error) {
	row := c.pool.QueryRow(ctx, `SELECT `+instanceColumns+` FROM item_instances WHERE id = $1`, id)
	it, err := scanInstance(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, game.NotFoundf("item instance %d not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("getting item instance %d: %w", id, err)
	}
	return it, nil
}

func (c *Client) ListItemsByOwner(ctx context.Context, ownerType game.OwnerType, ownerID int64) ([]game.ItemInstance, error) {
	return c.listInstances(ctx,
		`SELECT `+instanceColumns+` FROM item_instances WHERE owner_type = $1 AND owner_id = $2 ORDER BY id`,
		string(ownerType), ownerID)
}

func (c *Client) ListItemsAtLocation(ctx context.Context, locationID int64) ([]game.ItemInstance, error) {
	return c.listInstances(ctx,
		`SELECT `+instanceColumns+` FROM item_instances WHERE owner_type = 'NONE' AND location_id = $1 ORDER BY id`,
		locationID)
}

func (c *Client) listInstances(ctx context.Context, query string, args ...any) ([]game.ItemInstance, error) {
	rows, err := c.pool.Query(ctx, query, args...)
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
// The row is locked for the duration of the check.
func (c *Client) TransferItem(ctx context.Context, instanceID int64, expect, to game.OwnerRef) error {
	if err := to.Validate(); err != nil {
		return err
	}
	return c.withTx(ctx, func(tx pgx.Tx) error {
		var ownerType string
		var ownerID, locID *int64
		err := tx.QueryRow(ctx,
			`SELECT owner_type, owner_id, location_id FROM item_instances WHERE id = $1 FOR UPDATE`, instanceID,
		).Scan(&ownerType, &ownerID, &locID)
		if errors.Is(err, pgx.ErrNoRows) {
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

		_, err = tx.Exec(ctx,
			`UPDATE item_instances SET owner_type = $1, owner_id = $2, location_id = $3, equipped = FALSE WHERE id = $4`,
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
	err := c.withTx(ctx, func(tx pgx.Tx) error {
		var quantity int
		err := tx.QueryRow(ctx,
			`SELECT quantity FROM item_instances WHERE id = $1 FOR UPDATE`, instanceID,
		).Scan(&quantity)
		if errors.Is(err, pgx.ErrNoRows) {
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
			if _, err := tx.Exec(ctx, `DELETE FROM item_instances WHERE id = $1`, instanceID); err != nil {
				return fmt.Errorf("deleting consumed item instance %d: %w", instanceID, err)
			}
			return nil
		}
		if _, err := tx.Exec(ctx,
			`UPDATE item_instances SET quantity = $1 WHERE id = $2`, remaining, instanceID); err != nil {
			return fmt.Errorf("updating item instance %d quantity: %w", instanceID, err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return remaining, nil
}
