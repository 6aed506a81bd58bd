package sqlite

import (
	"context"
	"fmt"
)

func (c *Client) EnsureSchema(ctx context.Context) error {
	ddl := `
	CREATE TABLE IF NOT EXISTS locations (
		id            INTEGER PRIMARY KEY AUTOINCREMENT,
		name          TEXT NOT NULL,
		description   TEXT DEFAULT '',
		location_type TEXT DEFAULT '',
		created_at    TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS players (
		id          INTEGER PRIMARY KEY AUTOINCREMENT,
		name        TEXT NOT NULL,
		class       TEXT DEFAULT '',
		level       INTEGER NOT NULL DEFAULT 1,
		health      INTEGER NOT NULL DEFAULT 100,
		max_health  INTEGER NOT NULL DEFAULT 100,
		experience  INTEGER NOT NULL DEFAULT 0,
		gold        INTEGER NOT NULL DEFAULT 0,
		description TEXT DEFAULT '',
		location_id INTEGER REFERENCES locations(id),
		created_at  TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS npcs (
		id                  INTEGER PRIMARY KEY AUTOINCREMENT,
		name                TEXT NOT NULL,
		npc_type            TEXT DEFAULT '',
		description         TEXT DEFAULT '',
		dialogue            TEXT DEFAULT '',
		health              INTEGER NOT NULL DEFAULT 50,
		max_health          INTEGER NOT NULL DEFAULT 50,
		behavior            TEXT NOT NULL DEFAULT 'passive',
		disposition         INTEGER NOT NULL DEFAULT 0,
		location_id         INTEGER REFERENCES locations(id),
		following_player_id INTEGER REFERENCES players(id),
		created_at          TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS item_templates (
		id          INTEGER PRIMARY KEY AUTOINCREMENT,
		name        TEXT NOT NULL,
		category    TEXT NOT NULL,
		rarity      TEXT NOT NULL DEFAULT 'common',
		description TEXT DEFAULT '',
		weight      INTEGER NOT NULL DEFAULT 1,
		properties  TEXT NOT NULL DEFAULT '{}',
		created_at  TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS item_instances (
		id           INTEGER PRIMARY KEY AUTOINCREMENT,
		template_id  INTEGER NOT NULL REFERENCES item_templates(id),
		owner_type   TEXT NOT NULL DEFAULT 'NONE',
		owner_id     INTEGER,
		location_id  INTEGER REFERENCES locations(id),
		quantity     INTEGER NOT NULL DEFAULT 1,
		custom_name  TEXT DEFAULT '',
		buffs        TEXT NOT NULL DEFAULT '[]',
		flaws        TEXT NOT NULL DEFAULT '[]',
		enchantments TEXT NOT NULL DEFAULT '{}',
		equipped     INTEGER NOT NULL DEFAULT 0,
		created_at   TEXT NOT NULL,
		CONSTRAINT ck_owner_or_ground CHECK (
			(owner_type = 'NONE' AND owner_id IS NULL AND location_id IS NOT NULL)
			OR (owner_type != 'NONE' AND owner_id IS NOT NULL AND location_id IS NULL)
		)
	);

	CREATE TABLE IF NOT EXISTS relationships (
		id               INTEGER PRIMARY KEY AUTOINCREMENT,
		source_type      TEXT NOT NULL,
		source_id        INTEGER NOT NULL,
		target_type      TEXT NOT NULL,
		target_id        INTEGER NOT NULL,
		score            INTEGER NOT NULL DEFAULT 0 CHECK (score BETWEEN -100 AND 100),
		notes            TEXT DEFAULT '',
		last_interaction TEXT NOT NULL,
		CONSTRAINT uq_relationship_pair UNIQUE (source_type, source_id, target_type, target_id)
	);

	CREATE TABLE IF NOT EXISTS quests (
		id                INTEGER PRIMARY KEY AUTOINCREMENT,
		player_id         INTEGER NOT NULL REFERENCES players(id),
		title             TEXT NOT NULL,
		description       TEXT DEFAULT '',
		active            INTEGER NOT NULL DEFAULT 1,
		completed         INTEGER NOT NULL DEFAULT 0,
		reward_gold       INTEGER NOT NULL DEFAULT 0,
		reward_experience INTEGER NOT NULL DEFAULT 0,
		created_at        TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS combat_sessions (
		id          INTEGER PRIMARY KEY AUTOINCREMENT,
		player_id   INTEGER NOT NULL REFERENCES players(id),
		status      TEXT NOT NULL DEFAULT 'active',
		description TEXT DEFAULT '',
		team_player TEXT NOT NULL DEFAULT '[]',
		team_enemy  TEXT NOT NULL DEFAULT '[]',
		outcome     TEXT DEFAULT '',
		summary     TEXT DEFAULT '',
		created_at  TEXT NOT NULL,
		ended_at    TEXT
	);

	CREATE TABLE IF NOT EXISTS archives (
		id            INTEGER PRIMARY KEY AUTOINCREMENT,
		player_id     INTEGER NOT NULL REFERENCES players(id),
		number        INTEGER NOT NULL,
		title         TEXT NOT NULL DEFAULT '',
		summary       TEXT NOT NULL DEFAULT '',
		keywords      TEXT NOT NULL DEFAULT '[]',
		seq_start     INTEGER NOT NULL,
		seq_end       INTEGER NOT NULL,
		needs_summary INTEGER NOT NULL DEFAULT 0,
		created_at    TEXT NOT NULL,
		CONSTRAINT uq_archive_number UNIQUE (player_id, number)
	);

	CREATE TABLE IF NOT EXISTS turns (
		id         INTEGER PRIMARY KEY AUTOINCREMENT,
		player_id  INTEGER NOT NULL REFERENCES players(id),
		seq        INTEGER NOT NULL,
		role       TEXT NOT NULL,
		content    TEXT NOT NULL,
		tags       TEXT NOT NULL DEFAULT '[]',
		tool_calls TEXT NOT NULL DEFAULT '[]',
		archive_id INTEGER REFERENCES archives(id),
		created_at TEXT NOT NULL,
		CONSTRAINT uq_turn_seq UNIQUE (player_id, seq)
	);

	CREATE UNIQUE INDEX IF NOT EXISTS uq_combat_active ON combat_sessions (player_id) WHERE status = 'active';
	CREATE INDEX IF NOT EXISTS idx_npcs_location ON npcs (location_id);
	CREATE INDEX IF NOT EXISTS idx_npcs_following ON npcs (following_player_id) WHERE following_player_id IS NOT NULL;
	CREATE INDEX IF NOT EXISTS idx_items_owner ON item_instances (owner_type, owner_id);
	CREATE INDEX IF NOT EXISTS idx_items_location ON item_instances (location_id) WHERE location_id IS NOT NULL;
	CREATE INDEX IF NOT EXISTS idx_quests_player ON quests (player_id);
	CREATE INDEX IF NOT EXISTS idx_combat_player ON combat_sessions (player_id);
	CREATE INDEX IF NOT EXISTS idx_turns_window ON turns (player_id, seq) WHERE archive_id IS NULL;
	CREATE INDEX IF NOT EXISTS idx_turns_archive ON turns (archive_id) WHERE archive_id IS NOT NULL;
	CREATE INDEX IF NOT EXISTS idx_archives_player ON archives (player_id, number);
	`

	if _, err := c.db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("ensuring schema: %w", err)
	}
	return nil
}
