package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

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
	return c.withTx(ctx, func(tx *sql.Tx) error {
		var seq int64
		err := tx.QueryRowContext(ctx,
			`SELECT COALESCE(MAX(seq), 0) + 1 FROM turns WHERE player_id = ?`, t.PlayerID,
		).Scan(&seq)
		if err != nil {
			return fmt.Errorf("allocating turn sequence: %w", err)
		}

		res, err := tx.ExecContext(ctx, `
		INSERT INTO turns (player_id, seq, role, content, tags, tool_calls, archive_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, NULL, ?)`,
			t.PlayerID, seq, string(t.Role), t.Content, tags, calls, formatTime(t.CreatedAt),
		)
		if err != nil {
			return fmt.Errorf("appending turn: %w", err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("reading turn id: %w", err)
		}
		t.ID = id
		t.Seq = seq
		return nil
	})
}

const turnColumns = `id, player_id, seq, role, content, tags, tool_calls, created_at`

func scanTurn(row interface{ Scan(...any) error }) (*game.Turn, error) {
	var t game.Turn
	var role, tags, calls, createdAt string
	err := row.Scan(&t.ID, &t.PlayerID, &t.Seq, &role, &t.Content, &tags, &calls, &createdAt)
	if err != nil {
		return nil, err
	}
	t.Role = game.Role(role)
	t.Tags = unmarshalStrings(tags)
	if calls != "" && calls != "[]" && calls != "null" {
		if err := jsonUnmarshal(calls, &t.ToolCalls); err != nil {
			return nil, fmt.Errorf("unmarshaling tool calls: %w", err)
		}
	}
	t.CreatedAt = parseTime(createdAt)
	return &t, nil
}

func (c *Client) ListWindow(ctx context.Context, playerID int64) ([]game.Turn, error) {
	return c.listTurns(ctx,
		`SELECT `+turnColumns+` FROM turns WHERE player_id = ? AND archive_id IS NULL ORDER BY seq`,
		playerID)
}

func (c *Client) CountWindow(ctx context.Context, playerID int64) (int, error) {
	var n int
	err := c.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM turns WHERE player_id = ? AND archive_id IS NULL`, playerID,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("counting window turns: %w", err)
	}
	return n, nil
}

// RecentTurns returns the n newest window turns in chronological order.
func (c *Client) RecentTurns(ctx context.Context, playerID int64, n int) ([]game.Turn, error) {
	turns, err := c.listTurns(ctx,
		`SELECT `+turnColumns+` FROM turns WHERE player_id = ? AND archive_id IS NULL ORDER BY seq DESC LIMIT ?`,
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
	rows, err := c.db.QueryContext(ctx, query, args...)
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
	err := c.withTx(ctx, func(tx *sql.Tx) error {
		rows, err := tx.QueryContext(ctx,
			`SELECT id, seq, tags FROM turns WHERE player_id = ? AND archive_id IS NULL ORDER BY seq`,
			playerID)
		if err != nil {
			return fmt.Errorf("listing window turns: %w", err)
		}

		var taggedIDs []int64
		var firstSeq int64
		for rows.Next() {
			var id, seq int64
			var tags string
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
			if _, err := tx.ExecContext(ctx, `DELETE FROM turns WHERE id = ?`, id); err != nil {
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
		res, err := tx.ExecContext(ctx, `
		INSERT INTO turns (player_id, seq, role, content, tags, tool_calls, archive_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, NULL, ?)`,
			playerID, firstSeq, string(replacement.Role), replacement.Content, tags, calls,
			formatTime(replacement.CreatedAt),
		)
		if err != nil {
			return fmt.Errorf("inserting compression summary turn: %w", err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("reading summary turn id: %w", err)
		}
		replacement.ID = id
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
