package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

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
	err = c.withTx(ctx, func(tx pgx.Tx) error {
		var number int64
		err := tx.QueryRow(ctx,
			`SELECT COALESCE(MAX(number), 0) + 1 FROM archives WHERE player_id = $1`, a.PlayerID,
		).Scan(&number)
		if err != nil {
			return fmt.Errorf("allocating archive number: %w", err)
		}

		var id int64
		err = tx.QueryRow(ctx, `
		INSERT INTO archives (player_id, number, title, summary, keywords, seq_start, seq_end, needs_summary, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id`,
			a.PlayerID, number, a.Title, a.Summary, keywords,
			a.SeqStart, a.SeqEnd, a.NeedsSummary, a.CreatedAt,
		).Scan(&id)
		if err != nil {
			return fmt.Errorf("creating archive: %w", err)
		}

		tag, err := tx.Exec(ctx,
			`UPDATE turns SET archive_id = $1 WHERE player_id = $2 AND archive_id IS NULL AND id = ANY($3)`,
			id, a.PlayerID, turnIDs)
		if err != nil {
			return fmt.Errorf("moving turns into archive: %w", err)
		}
		if tag.RowsAffected() != int64(len(turnIDs)) {
			return game.Conflictf("archived %d of %d turns, window changed underneath", tag.RowsAffected(), len(turnIDs))
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
	tag, err := c.pool.Exec(ctx,
		`UPDATE archives SET title = $1, summary = $2, keywords = $3, needs_summary = FALSE WHERE id = $4`,
		title, summary, kw, id)
	if err != nil {
		return fmt.Errorf("updating archive summary: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return game.NotFoundf("archive %d not found", id)
	}
	return nil
}

const archiveColumns = `id, player_id, number, title, summary, keywords, seq_start, seq_end, needs_summary, created_at`

func scanArchive(row pgx.Row) (*game.Archive, error) {
	var a game.Archive
	var keywords []byte
	err := row.Scan(&a.ID, &a.PlayerID, &a.Number, &a.Title, &a.Summary, &keywords,
		&a.SeqStart, &a.SeqEnd, &a.NeedsSummary, &a.CreatedAt)
	if err != nil {
		return nil, err
	}
	a.Keywords = unmarshalStrings(keywords)
	return &a, nil
}

func (c *Client) GetArchive(ctx context.Context, playerID, number int64) (*game.Archive, error) {
	row := c.pool.QueryRow(ctx,
		`SELECT `+archiveColumns+` FROM archives WHERE player_id = $1 AND number = $2`,
		playerID, number)
	a, err := scanArchive(row)
	if errors.Is(err, pgx.ErrNoRows) {
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
	query := `SELECT ` + archiveColumns + ` FROM archives WHERE player_id = $1 ORDER BY number DESC`
	args := []any{playerID}
	if limit > 0 {
		query += ` LIMIT $2`
		args = append(args, limit)
	}
	return c.listArchives(ctx, query, args...)
}

func (c *Client) ListArchivesNeedingSummary(ctx context.Context, playerID int64) ([]game.Archive, error) {
	return c.listArchives(ctx,
		`SELECT `+archiveColumns+` FROM archives WHERE player_id = $1 AND needs_summary = TRUE ORDER BY number`,
		playerID)
}

func (c *Client) ListArchivedTurns(ctx context.Context, archiveID int64) ([]game.Turn, error) {
	return c.listTurns(ctx,
		`SELECT `+turnColumns+` FROM turns WHERE archive_id = $1 ORDER BY seq`,
		archiveID)
}

// SearchArchives matches the query case-insensitively against title, summary
// and keywords, newest archives first.
func (c *Client) SearchArchives(ctx context.Context, playerID int64, query string) ([]game.Archive, error) {
	pattern := "%" + strings.ToLower(query) + "%"
	return c.listArchives(ctx, `
	SELECT `+archiveColumns+` FROM archives
	WHERE player_id = $1
	  AND (LOWER(title) LIKE $2 OR LOWER(summary) LIKE $2 OR LOWER(keywords::text) LIKE $2)
	ORDER BY number DESC`,
		playerID, pattern)
}

func (c *Client) listArchives(ctx context.Context, query string, args ...any) ([]game.Archive, error) {
	rows, err := c.pool.Query(ctx, query, args...)
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
