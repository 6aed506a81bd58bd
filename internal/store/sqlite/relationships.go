package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"fableforge/internal/game"
)

func (c *Client) GetRelationship(ctx context.Context, source, target game.CharacterRef) (*game.Relationship, error) {
	var r game.Relationship
	var srcType, tgtType, lastInteraction string
	err := c.db.QueryRowContext(ctx, `
	SELECT id, source_type, source_id, target_type, target_id, score, notes, last_interaction
	FROM relationships
	WHERE source_type = ? AND source_id = ? AND target_type = ? AND target_id = ?`,
		string(source.Type), source.ID, string(target.Type), target.ID,
	).Scan(&r.ID, &srcType, &r.Source.ID, &tgtType, &r.Target.ID, &r.Score, &r.Notes, &lastInteraction)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, game.NotFoundf("no relationship between %s and %s", source, target)
	}
	if err != nil {
		return nil, fmt.Errorf("getting relationship %s/%s: %w", source, target, err)
	}
	r.Source.Type = game.CharacterType(srcType)
	r.Target.Type = game.CharacterType(tgtType)
	r.LastInteraction = parseTime(lastInteraction)
	return &r, nil
}

func (c *Client) UpsertRelationship(ctx context.Context, r *game.Relationship) error {
	r.Score = game.ClampScore(r.Score)
	if r.LastInteraction.IsZero() {
		r.LastInteraction = time.Now().UTC()
	}
	_, err := c.db.ExecContext(ctx, `
	INSERT INTO relationships (source_type, source_id, target_type, target_id, score, notes, last_interaction)
	VALUES (?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT (source_type, source_id, target_type, target_id) DO UPDATE SET
		score = excluded.score,
		notes = CASE WHEN excluded.notes != '' THEN excluded.notes ELSE relationships.notes END,
		last_interaction = excluded.last_interaction`,
		string(r.Source.Type), r.Source.ID, string(r.Target.Type), r.Target.ID,
		r.Score, r.Notes, formatTime(r.LastInteraction),
	)
	if err != nil {
		return fmt.Errorf("upserting relationship %s/%s: %w", r.Source, r.Target, err)
	}
	return nil
}
