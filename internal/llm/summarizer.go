package llm

import (
	"context"
	"fmt"
	"strings"

	"fableforge/internal/game"
)

// Summarize condenses an archived span of turns into a title, a short
// summary, and search keywords. It satisfies memory.Summarizer.
func (c *Client) Summarize(ctx context.Context, turns []game.Turn) (string, string, []string, error) {
	if len(turns) == 0 {
		return "", "", nil, game.Validationf("nothing to summarize")
	}
	req := chatRequest{
		Model: c.cfg.SummaryModel,
		Messages: []chatMessage{
			{Role: "system", Content: "You are a helpful assistant that summarizes RPG game sessions."},
			{Role: "user", Content: fmt.Sprintf(summaryPrompt, formatTranscript(turns))},
		},
		Temperature: 0.3,
		MaxTokens:   500,
	}
	resp, err := c.complete(ctx, req)
	if err != nil {
		return "", "", nil, err
	}
	if len(resp.Choices) == 0 {
		return "", "", nil, game.GeneratorUnavailable(fmt.Errorf("summary response carried no choices"))
	}
	title, summary, keywords := parseSummary(resp.Choices[0].Message.Content)
	if title == "" && summary == "" {
		return "", "", nil, game.GeneratorUnavailable(fmt.Errorf("summary response had no TITLE or SUMMARY line"))
	}
	return title, summary, keywords, nil
}

const summaryPrompt = `Analyze this RPG game session conversation and provide:

1. Title: a short 3-8 word title for this session (e.g., "Meeting Bob the Blacksmith")
2. Summary: a 2-4 sentence summary of key events, decisions, and outcomes
3. Keywords: important names, places, items, and events (comma-separated)

Focus on information that would be useful to recall later:
- NPC names and their roles/relationships
- Locations visited
- Quests started/completed
- Important items acquired
- Key decisions made
- Promises, debts, or unfinished business

CONVERSATION:
%s

Respond in this exact format:
TITLE: [title here]
SUMMARY: [summary here]
KEYWORDS: [keyword1, keyword2, keyword3, ...]`

const transcriptLimit = 8000

func formatTranscript(turns []game.Turn) string {
	var b strings.Builder
	for _, t := range turns {
		speaker := "PLAYER"
		if t.Role == game.RoleNarrator {
			speaker = "GAME MASTER"
		}
		fmt.Fprintf(&b, "%s: %s\n", speaker, t.Content)
	}
	s := b.String()
	if len(s) > transcriptLimit {
		s = s[:transcriptLimit]
	}
	return s
}

// parseSummary reads the TITLE/SUMMARY/KEYWORDS line format. Missing lines
// come back empty; the caller decides whether that is fatal.
func parseSummary(text string) (title, summary string, keywords []string) {
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(line, "TITLE:"):
			title = strings.TrimSpace(strings.TrimPrefix(line, "TITLE:"))
		case strings.HasPrefix(line, "SUMMARY:"):
			summary = strings.TrimSpace(strings.TrimPrefix(line, "SUMMARY:"))
		case strings.HasPrefix(line, "KEYWORDS:"):
			raw := strings.TrimPrefix(line, "KEYWORDS:")
			for _, kw := range strings.Split(raw, ",") {
				kw = strings.ToLower(strings.TrimSpace(kw))
				if kw != "" {
					keywords = append(keywords, kw)
				}
			}
		}
	}
	return title, summary, keywords
}
