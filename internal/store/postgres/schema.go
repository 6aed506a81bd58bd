package postgres

import (
	"context"
	"fmt"
)

func (c *Client) EnsureSchema(ctx context.Context) error {
	ddl := `
	CREATE TABLE IF NOT EXISTS locations (
		id            BIGSERIAL PRIMARY KEY,
		name          TEXT NOT NULL,
		description   TEXT NOT NULL DEFAULT '',
		location_type TEXT NOT NULL DEFAULT '',
		created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
	);

	CREATE TABLE IF NOT EXISTS players (
		id          BIGSERIAL PRIMARY KEY,
		name        TEXT NOT NULL,
		class       TEXT NOT NULL DEFAULT '',
		level       INTEGER NOT NULL DEFAULT 1,
		health      INTEGER NOT NULL DEFAULT 100,
		max_health  INTEGER NOT NULL DEFAULT 100,
		experience  INTEGER NOT NULL DEFAULT 0,
		gold        INTEGER NOT NULL DEFAULT 0,
		description TEXT NOT NULL DEFAULT '',
		location_id BIGINT REFERENCES locations(id),
		created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
	);

	CREATE TABLE IF NOT EXISTS npcs (
		id                  BIGSERIAL PRIMARY KEY,
		name                TEXT NOT NULL,
		npc_type            TEXT NOT NULL DEFAULT '',
		description         TEXT NOT NULL DEFAULT '',
		dialogue            TEXT NOT NULL DEFAULT '',
		health              INTEGER NOT NULL DEFAULT 50,
		max_health          INTEGER NOT NULL DEFAULT 50,
		behavior            TEXT NOT NULL DEFAULT 'passive',
		disposition         INTEGER NOT NULL DEFAULT 0,
		location_id         BIGINT REFERENCES locations(id),
		following_player_id BIGINT REFERENCES players(id),
		created_at          TIMESTAMPTZ NOT NULL DEFAULT now()
	);

	CREATE TABLE IF NOT EXISTS item_templates (
		id          BIGSERIAL PRIMARY KEY,
		name        TEXT NOT NULL,
		category    TEXT NOT NULL,
		rarity      TEXT NOT NULL DEFAULT 'common',
		description TEXT NOT NULL DEFAULT '',
		weight      INTEGER NOT NULL DEFAULT 1,
		properties  JSONB NOT NULL DEFAULT '{}',
		created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
	);

	CREATE TABLE IF NOT EXISTS item_instances (
		id           BIGSERIAL PRIMARY KEY,
		template_id  BIGINT NOT NULL REFERENCES item_templates(id),
		owner_type   TEXT NOT NULL DEFAULT 'NONE',
		owner_id     BIGINT,
		location_id  BIGINT REFERENCES locations(id),
		quantity     INTEGER NOT NULL DEFAULT 1,
		custom_name  TEXT NOT NULL DEFAULT '',
		buffs        JSONB NOT NULL DEFAULT '[]',
		flaws        JSONB NOT NULL DEFAULT '[]',
		enchantments JSONB NOT NULL DEFAULT '{}',
		equipped     BOOLEAN NOT NULL DEFAULT FALSE,
		created_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
		CONSTRAINT ck_owner_or_ground CHECK (
			(owner_type = 'NONE' AND owner_id IS NULL AND location_id IS NOT NULL)
			OR (owner_type != 'NONE' AND owner_id IS NOT NULL AND location_id IS NULL)
		)
	);

	CREATE TABLE IF NOT EXISTS relationships (
		id               BIGSERIAL PRIMARY KEY,
		source_type      TEXT NOT NULL,
		source_id        BIGINT NOT NULL,
		target_type      TEXT NOT NULL,
		target_id        BIGINT NOT NULL,
		score            INTEGER NOT NULL DEFAULT 0 CHECK (score BETWEEN -100 AND 100),
		notes            TEXT NOT NULL DEFAULT '',
		last_interaction TIMESTAMPTZ NOT NULL DEFAULT now(),
		CONSTRAINT uq_relationship_pair UNIQUE (source_type, source_id, target_type, target_id)
	);

	CREATE TABLE IF NOT EXISTS quests (
		id                BIGSERIAL PRIMARY KEY,
		player_id         BIGINT NOT NULL REFERENCES players(id),
		title             TEXT NOT NULL,
		description       TEXT NOT NULL DEFAULT '',
		active            BOOLEAN NOT NULL DEFAULT TRUE,
		completed         BOOLEAN NOT NULL DEFAULT FALSE,
		reward_gold       INTEGER NOT NULL DEFAULT 0,
		reward_experience INTEGER NOT NULL DEFAULT 0,
		created_at        TIMESTAMPTZ NOT NULL DEFAULT now()
	);

	CREATE TABLE IF NOT EXISTS combat_sessions (
		id          BIGSERIAL PRIMARY KEY,
		player_id   BIGINT NOT NULL REFERENCES players(id),
		status      TEXT NOT NULL DEFAULT 'active',
		description TEXT NOT NULL DEFAULT '',
		team_player JSONB NOT NULL DEFAULT '[]',
		team_enemy  JSONB NOT NULL DEFAULT '[]',
		outcome     TEXT NOT NULL DEFAULT '',
		summary     TEXT NOT NULL DEFAULT '',
		created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
		ended_at    TIMESTAMPTZ
	);

	CREATE TABLE IF NOT EXISTS archives (
		id            BIGSERIAL PRIMARY KEY,
		player_id     BIGINT NOT NULL REFERENCES players(id),
		number        BIGINT NOT NULL,
		title         TEXT NOT NULL DEFAULT '',
		summary       TEXT NOT NULL DEFAULT '',
		keywords      JSONB NOT NULL DEFAULT '[]',
		seq_start     BIGINT NOT NULL,
		seq_end       BIGINT NOT NULL,
		needs_summary BOOLEAN NOT NULL DEFAULT FALSE,
		created_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
		CONSTRAINT uq_archive_number UNIQUE (player_id, number)
	);

	CREATE TABLE IF NOT EXISTS turns (
		id         BIGSERIAL PRIMARY KEY,
		player_id  BIGINT NOT NULL REFERENCES players(id),
		seq        BIGINT NOT NULL,
		role       TEXT NOT NULL,
		content    TEXT NOT NULL,
		tags       JSONB NOT NULL DEFAULT '[]',
		tool_calls JSONB NOT NULL DEFAULT '[]',
		archive_id BIGINT REFERENCES archives(id),
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
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

	if _, err := c.pool.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("ensuring schema: %w", err)
	}
	return nil
}
