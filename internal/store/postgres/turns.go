package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"fableforge/internal/game"
)

// AppendTurn allocates the next sequence number and inserts in one
// transaction, keeping per-player sequence numbers strictly increasing in
// append order.
func (c *Client) AppendTurn(ctx context.Context, t *game.Turn) error {
	tags, err := marshalJSON(t.Tags)
	if err != nil {
		return err
	}
	calls, err := marshalJSON(t.ToolCalls)
	if err != nil {
		return err
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}
	return c.withTx(ctx, func(tx pgx.Tx) error {
		var seq int64
		err := tx.QueryRow(ctx,
			`SELECT COALESCE(MAX(seq), 0) + 1 FROM turns WHERE player_id = $1`, t.PlayerID,
		).Scan(&seq)
		if err != nil {
			return fmt.Errorf("allocating turn sequence: %w", err)
		}

		err = tx.QueryRow(ctx, `
		INSERT INTO turns (player_id, seq, role, content, tags, tool_calls, archive_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, NULL, $7)
		RETURNING id`,
			t.PlayerID, seq, string(t.Role), t.Content, tags, calls, t.CreatedAt,
		).Scan(&t.ID)
		if err != nil {
			return fmt.Errorf("appending turn: %w", err)
		}
		t.Seq = seq
		return nil
	})
}

const turnColumns = `id, player_id, seq, role, content, tags, tool_calls, created_at`

func scanTurn(row pgx.Row) (*game.Turn, error) {
	var t game.Turn
	var role string
	var tags, calls []byte
	err := row.Scan(&t.ID, &t.PlayerID, &t.Seq, &role, &t.Content, &tags, &calls, &t.CreatedAt)
	if err != nil {
		return nil, err
	}
	t.Role = game.Role(role)
	t.Tags = unmarshalStrings(tags)
	if len(calls) > 0 && string(calls) != "[]" && string(calls) != "null" {
		if err := json.Unmarshal(calls, &t.ToolCalls); err != nil {
			return nil, fmt.Errorf("unmarshaling tool calls: %w", err)
		}
	}
	return &t, nil
}

func (c *Client) ListWindow(ctx context.Context, playerID int64) ([]game.Turn, error) {
	return c.listTurns(ctx,
		`SELECT `+turnColumns+` FROM turns WHERE player_id = $1 AND archive_id IS NULL ORDER BY seq`,
		playerID)
}

func (c *Client) CountWindow(ctx context.Context, playerID int64) (int, error) {
	var n int
	err := c.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM turns WHERE player_id = $1 AND archive_id IS NULL`, playerID,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("counting window turns: %w", err)
	}
	return n, nil
}

// RecentTurns returns the n newest window turns in chronological order.
func (c *Client) RecentTurns(ctx context.Context, playerID int64, n int) ([]game.Turn, error) {
	turns, err := c.listTurns(ctx,
		`SELECT `+turnColumns+` FROM turns WHERE player_id = $1 AND archive_id IS NULL ORDER BY seq DESC LIMIT $2`,
		playerID, n)
	if err != nil {
		return nil, err
	}
	for i, j := 0, len(turns)-1; i < j; i, j = i+1, j-1 {
		turns[i], turns[j] = turns[j], turns[i]
	}
	return turns, nil
}

func (c *Client) listTurns(ctx context.Context, query string, args ...any) ([]game.Turn, error) {
	rows, err := c.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing turns: %w", err)
	}
	defer rows.Close()

	var turns []game.Turn
	for rows.Next() {
		t, err := scanTurn(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning turn: %w", err)
		}
		turns = append(turns, *t)
	}
	return turns, rows.Err()
}

// CompressTaggedTurns deletes every window turn carrying tag and inserts
// replacement at the first removed turn's sequence slot. Untagged turns keep
// their sequence numbers, so ordering is preserved exactly.
func (c *Client) CompressTaggedTurns(ctx context.Context, playerID int64, tag string, replacement *game.Turn) (int, error) {
	removed := 0
	err := c.withTx(ctx, func(tx pgx.Tx) error {
		rows, err := tx.Query(ctx,
			`SELECT id, seq, tags FROM turns WHERE player_id = $1 AND archive_id IS NULL ORDER BY seq FOR UPDATE`,
			playerID)
		if err != nil {
			return fmt.Errorf("listing window turns: %w", err)
		}

		var taggedIDs []int64
		var firstSeq int64
		for rows.Next() {
			var id, seq int64
			var tags []byte
			if err := rows.Scan(&id, &seq, &tags); err != nil {
				rows.Close()
				return fmt.Errorf("scanning turn tags: %w", err)
			}
			if game.HasTag(unmarshalStrings(tags), tag) {
				if len(taggedIDs) == 0 {
					firstSeq = seq
				}
				taggedIDs = append(taggedIDs, id)
			}
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return fmt.Errorf("listing window turns: %w", err)
		}
		rows.Close()

		if len(taggedIDs) == 0 {
			return nil
		}

		for _, id := range taggedIDs {
			if _, err := tx.Exec(ctx, `DELETE FROM turns WHERE id = $1`, id); err != nil {
				return fmt.Errorf("removing tagged turn %d: %w", id, err)
			}
		}

		tags, err := marshalJSON(replacement.Tags)
		if err != nil {
			return err
		}
		calls, err := marshalJSON(replacement.ToolCalls)
		if err != nil {
			return err
		}
		if replacement.CreatedAt.IsZero() {
			replacement.CreatedAt = time.Now().UTC()
		}
		err = tx.QueryRow(ctx, `
		INSERT INTO turns (player_id, seq, role, content, tags, tool_calls, archive_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, NULL, $7)
		RETURNING id`,
			playerID, firstSeq, string(replacement.Role), replacement.Content, tags, calls,
			replacement.CreatedAt,
		).Scan(&replacement.ID)
		if err != nil {
			return fmt.Errorf("inserting compression summary turn: %w", err)
		}
		replacement.PlayerID = playerID
		replacement.Seq = firstSeq
		removed = len(taggedIDs)
		return nil
	})
	if err != nil {
		return 0, err
	}
	return removed, nil
}
