package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"fableforge/internal/game"
)

// ArchiveTurns creates an archive record and moves the given turns out of the
// active window in one transaction. Archives are numbered per player starting
// at 1, so number 1 is always the player's oldest chapter.
func (c *Client) ArchiveTurns(ctx context.Context, a *game.Archive, turnIDs []int64) (int64, error) {
	if len(turnIDs) == 0 {
		return 0, game.Validationf("cannot archive zero turns")
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
	keywords, err := marshalJSON(a.Keywords)
	if err != nil {
		return 0, err
	}
	err = c.withTx(ctx, func(tx *sql.Tx) error {
		var number int64
		err := tx.QueryRowContext(ctx,
			`SELECT COALESCE(MAX(number), 0) + 1 FROM archives WHERE player_id = ?`, a.PlayerID,
		).Scan(&number)
		if err != nil {
			return fmt.Errorf("allocating archive number: %w", err)
		}

		res, err := tx.ExecContext(ctx, `
		INSERT INTO archives (player_id, number, title, summary, keywords, seq_start, seq_end, needs_summary, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			a.PlayerID, number, a.Title, a.Summary, keywords,
			a.SeqStart, a.SeqEnd, a.NeedsSummary, formatTime(a.CreatedAt),
		)
		if err != nil {
			return fmt.Errorf("creating archive: %w", err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("reading archive id: %w", err)
		}

		placeholders := strings.Repeat("?, ", len(turnIDs))
		placeholders = placeholders[:len(placeholders)-2]
		args := make([]any, 0, len(turnIDs)+2)
		args = append(args, id, a.PlayerID)
		for _, tid := range turnIDs {
			args = append(args, tid)
		}
		upd, err := tx.ExecContext(ctx,
			`UPDATE turns SET archive_id = ? WHERE player_id = ? AND archive_id IS NULL AND id IN (`+placeholders+`)`,
			args...)
		if err != nil {
			return fmt.Errorf("moving turns into archive: %w", err)
		}
		moved, err := upd.RowsAffected()
		if err != nil {
			return fmt.Errorf("checking archived turns: %w", err)
		}
		if moved != int64(len(turnIDs)) {
			return game.Conflictf("archived %d of %d turns, window changed underneath", moved, len(turnIDs))
		}

		a.ID = id
		a.Number = number
		return nil
	})
	if err != nil {
		return 0, err
	}
	return a.ID, nil
}

func (c *Client) SetArchiveSummary(ctx context.Context, id int64, title, summary string, keywords []string) error {
	kw, err := marshalJSON(keywords)
	if err != nil {
		return err
	}
	res, err := c.db.ExecContext(ctx,
		`UPDATE archives SET title = ?, summary = ?, keywords = ?, needs_summary = 0 WHERE id = ?`,
		title, summary, kw, id)
	if err != nil {
		return fmt.Errorf("updating archive summary: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking archive update: %w", err)
	}
	if n == 0 {
		return game.NotFoundf("archive %d not found", id)
	}
	return nil
}

const archiveColumns = `id, player_id, number, title, summary, keywords, seq_start, seq_end, needs_summary, created_at`

func scanArchive(row interface{ Scan(...any) error }) (*game.Archive, error) {
	var a game.Archive
	var keywords, createdAt string
	err := row.Scan(&a.ID, &a.PlayerID, &a.Number, &a.Title, &a.Summary, &keywords,
		&a.SeqStart, &a.SeqEnd, &a.NeedsSummary, &createdAt)
	if err != nil {
		return nil, err
	}
	a.Keywords = unmarshalStrings(keywords)
	a.CreatedAt = parseTime(createdAt)
	return &a, nil
}

func (c *Client) GetArchive(ctx context.Context, playerID, number int64) (*game.Archive, error) {
	row := c.db.QueryRowContext(ctx,
		`SELECT `+archiveColumns+` FROM archives WHERE player_id = ? AND number = ?`,
		playerID, number)
	a, err := scanArchive(row)
	if err == sql.ErrNoRows {
		return nil, game.NotFoundf("archive %d not found for player %d", number, playerID)
	}
	if err != nil {
		return nil, fmt.Errorf("getting archive: %w", err)
	}
	return a, nil
}

// ListArchives returns the player's archives newest first. A limit of 0 or
// less returns all of them.
func (c *Client) ListArchives(ctx context.Context, playerID int64, limit int) ([]game.Archive, error) {
	query := `SELECT ` + archiveColumns + ` FROM archives WHERE player_id = ? ORDER BY number DESC`
	args := []any{playerID}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	return c.listArchives(ctx, query, args...)
}

func (c *Client) ListArchivesNeedingSummary(ctx context.Context, playerID int64) ([]game.Archive, error) {
	return c.listArchives(ctx,
		`SELECT `+archiveColumns+` FROM archives WHERE player_id = ? AND needs_summary = 1 ORDER BY number`,
		playerID)
}

func (c *Client) ListArchivedTurns(ctx context.Context, archiveID int64) ([]game.Turn, error) {
	return c.listTurns(ctx,
		`SELECT `+turnColumns+` FROM turns WHERE archive_id = ? ORDER BY seq`,
		archiveID)
}

// SearchArchives matches the query case-insensitively against title, summary
// and keywords, newest archives first.
func (c *Client) SearchArchives(ctx context.Context, playerID int64, query string) ([]game.Archive, error) {
	pattern := "%" + strings.ToLower(query) + "%"
	return c.listArchives(ctx, `
	SELECT `+archiveColumns+` FROM archives
	WHERE player_id = ?
	  AND (LOWER(title) LIKE ? OR LOWER(summary) LIKE ? OR LOWER(keywords) LIKE ?)
	ORDER BY number DESC`,
		playerID, pattern, pattern, pattern)
}

func (c *Client) listArchives(ctx context.Context, query string, args ...any) ([]game.Archive, error) {
	rows, err := c.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing archives: %w", err)
	}
	defer rows.Close()

	var archives []game.Archive
	for rows.Next() {
		a, err := scanArchive(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning archive: %w", err)
		}
		archives = append(archives, *a)
	}
	return archives, rows.Err()
}
