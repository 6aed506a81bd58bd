package game

import (
	"fmt"
	"strings"
	"time"
)

// Role is who produced a turn in the story log.
type Role string

const (
	RolePlayer   Role = "player"
	RoleNarrator Role = "narrator"
)

// Stable tag vocabulary. Tags beyond these are free-form labels.
const (
	TagCritical     = "critical"
	TagFumble       = "fumble"
	TagSessionStart = "session_start"
)

func DiceTag(n int) string { return fmt.Sprintf("dice:%d", n) }

func CombatTag(sessionID int64) string { return fmt.Sprintf("combat:%d", sessionID) }

// HasTag reports whether tags contains tag exactly.
func HasTag(tags []string, tag string) bool {
	for _, t := range tags {
		if t == tag {
			return true
		}
	}
	return false
}

// Turn is one player-or-narrator message unit. Immutable once written,
// except that tag compression may replace a tagged span wholesale.
type Turn struct {
	ID        int64
	PlayerID  int64
	Seq       int64
	Role      Role
	Content   string
	Tags      []string
	ToolCalls []ExecutedCall
	CreatedAt time.Time
}

// ExecutedCall records a tool call carried on the narrator turn that
// produced it, for transparency.
type ExecutedCall struct {
	Tool   string         `json:"tool"`
	Args   map[string]any `json:"args,omitempty"`
	Status string         `json:"status"`
}

// ToolCall is a request from the generator.
type ToolCall struct {
	Name string
	Args map[string]any
}

// Tool result statuses.
const (
	StatusOK    = "ok"
	StatusError = "error"
)

// ToolResult is the structured outcome of one dispatched call.
type ToolResult struct {
	Status    string `json:"status"`
	Payload   any    `json:"payload,omitempty"`
	ErrorKind Kind   `json:"error_kind,omitempty"`
	Message   string `json:"message,omitempty"`
}

func (r ToolResult) OK() bool { return r.Status == StatusOK }

// Archive is a compacted, summarized, immutable span of older turns.
// Number is per-player and monotone: 1 is the oldest archive.
type Archive struct {
	ID           int64
	PlayerID     int64
	Number       int64
	Title        string
	Summary      string
	Keywords     []string
	SeqStart     int64
	SeqEnd       int64
	NeedsSummary bool
	CreatedAt    time.Time
}

// MatchesQuery reports whether the archive's summary, title or keywords
// contain the query as a case-insensitive substring.
func (a Archive) MatchesQuery(query string) bool {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return false
	}
	if strings.Contains(strings.ToLower(a.Summary), q) || strings.Contains(strings.ToLower(a.Title), q) {
		return true
	}
	for _, kw := range a.Keywords {
		if strings.Contains(strings.ToLower(kw), q) {
			return true
		}
	}
	return false
}
