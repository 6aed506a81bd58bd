package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"fableforge/internal/game"
)

func (c *Client) GetRelationship(ctx context.Context, source, target game.CharacterRef) (*game.Relationship, error) {
	var r game.Relationship
	var srcType, tgtType string
	err := c.pool.QueryRow(ctx, `
	SELECT id, source_type, source_id, target_type, target_id, score, notes, last_interaction
	FROM relationships
	WHERE source_type = $1 AND source_id = $2 AND target_type = $3 AND target_id = $4`,
		string(source.Type), source.ID, string(target.Type), target.ID,
	).Scan(&r.ID, &srcType, &r.Source.ID, &tgtType, &r.Target.ID, &r.Score, &r.Notes, &r.LastInteraction)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, game.NotFoundf("no relationship between %s and %s", source, target)
	}
	if err != nil {
		return nil, fmt.Errorf("getting relationship %s/%s: %w", source, target, err)
	}
	r.Source.Type = game.CharacterType(srcType)
	r.Target.Type = game.CharacterType(tgtType)
	return &r, nil
}

func (c *Client) UpsertRelationship(ctx context.Context, r *game.Relationship) error {
	r.Score = game.ClampScore(r.Score)
	if r.LastInteraction.IsZero() {
		r.LastInteraction = time.Now().UTC()
	}
	_, err := c.pool.Exec(ctx, `
	INSERT INTO relationships (source_type, source_id, target_type, target_id, score, notes, last_interaction)
	VALUES ($1, $2, $3, $4, $5, $6, $7)
	ON CONFLICT (source_type, source_id, target_type, target_id) DO UPDATE SET
		score = EXCLUDED.score,
		notes = CASE WHEN EXCLUDED.notes != '' THEN EXCLUDED.notes ELSE relationships.notes END,
		last_interaction = EXCLUDED.last_interaction`,
		string(r.Source.Type), r.Source.ID, string(r.Target.Type), r.Target.ID,
		r.Score, r.Notes, r.LastInteraction,
	)
	if err != nil {
		return fmt.Errorf("upserting relationship %s/%s: %w", r.Source, r.Target, err)
	}
	return nil
}
