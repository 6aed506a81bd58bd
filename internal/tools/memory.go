package tools

import (
	"context"

	"fableforge/internal/game"
)

func (r *Registry) registerMemoryTools() {
	r.register(&Tool{
		Name:        "search_memories",
		Description: "Search archived session summaries by keyword when the player refers to something from a past session.",
		Kind:        KindQuery,
		Params: map[string]Param{
			"player_id": {Type: "integer", Description: "player character id", Required: true},
			"query":     {Type: "string", Description: "words to look for in titles, summaries, and keywords", Required: true},
		},
		Handler: func(ctx context.Context, args Args) (any, error) {
			archives, err := r.memory.Search(ctx, args.Int64("player_id"), args.String("query"))
			if err != nil {
				return nil, err
			}
			return map[string]any{
				"matches": archiveEntries(archives),
				"count":   len(archives),
			}, nil
		},
	})

	r.register(&Tool{
		Name:        "recall_session",
		Description: "Read back one archived session in full: its summary plus the original turn transcript.",
		Kind:        KindQuery,
		Params: map[string]Param{
			"player_id":      {Type: "integer", Description: "player character id", Required: true},
			"session_number": {Type: "integer", Description: "archive number from search_memories", Required: true, Minimum: minimum(1)},
		},
		Handler: func(ctx context.Context, args Args) (any, error) {
			archive, turns, err := r.memory.Recall(ctx, args.Int64("player_id"), args.Int64("session_number"))
			if err != nil {
				return nil, err
			}
			transcript := make([]map[string]any, len(turns))
			for i, t := range turns {
				transcript[i] = map[string]any{
					"role":    string(t.Role),
					"content": t.Content,
				}
			}
			return map[string]any{
				"session_number": archive.Number,
				"title":          archive.Title,
				"summary":        archive.Summary,
				"keywords":       archive.Keywords,
				"transcript":     transcript,
			}, nil
		},
	})
}

func archiveEntries(archives []game.Archive) []map[string]any {
	out := make([]map[string]any, len(archives))
	for i, a := range archives {
		out[i] = map[string]any{
			"session_number": a.Number,
			"title":          a.Title,
			"summary":        a.Summary,
			"keywords":       a.Keywords,
		}
	}
	return out
}
