package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

const validConfig = `database:
  dsn: sqlite://fableforge.db
llm:
  base_url: https://openrouter.ai/api/v1
  api_key: secret
  model: anthropic/claude-sonnet-4
  temperature: 0.7
  timeout: 90s
session:
  max_turns: 20
  min_turns: 10
  summaries_in_context: 3
gm:
  max_tool_rounds: 6
`

func TestLoad(t *testing.T) {
	t.Run("valid config loads", func(t *testing.T) {
		cfg, err := Load(writeTempConfig(t, validConfig))
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if cfg.Database.DSN != "sqlite://fableforge.db" {
			t.Fatalf("unexpected dsn %q", cfg.Database.DSN)
		}
		if cfg.GM.MaxToolRounds != 6 {
			t.Fatalf("unexpected max_tool_rounds %d", cfg.GM.MaxToolRounds)
		}

		lc := cfg.LLMConfig()
		if lc.Model != "anthropic/claude-sonnet-4" || lc.Timeout != 90*time.Second {
			t.Fatalf("unexpected llm config %+v", lc)
		}

		mc := cfg.MemoryConfig()
		if mc.MaxTurns != 20 || mc.MinTurns != 10 || mc.SummariesInContext != 3 {
			t.Fatalf("unexpected memory config %+v", mc)
		}
	})

	t.Run("memory defaults fill gaps", func(t *testing.T) {
		cfg, err := Load(writeTempConfig(t, "database:\n  dsn: \"sqlite://:memory:\"\nllm:\n  model: gpt-4o\n"))
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		mc := cfg.MemoryConfig()
		if mc.MaxTurns != 30 || mc.MinTurns != 15 || mc.SummariesInContext != 5 {
			t.Fatalf("defaults not applied: %+v", mc)
		}
	})

	t.Run("api key from environment", func(t *testing.T) {
		t.Setenv("FABLEFORGE_API_KEY", "env-secret")
		cfg, err := Load(writeTempConfig(t, validConfig))
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if cfg.LLM.APIKey != "env-secret" {
			t.Fatalf("env override not applied, got %q", cfg.LLM.APIKey)
		}
	})

	t.Run("missing dsn", func(t *testing.T) {
		if _, err := Load(writeTempConfig(t, "llm:\n  model: gpt-4o\n")); err == nil {
			t.Fatalf("expected error")
		}
	})

	t.Run("unknown dsn scheme", func(t *testing.T) {
		if _, err := Load(writeTempConfig(t, "database:\n  dsn: mysql://host/db\nllm:\n  model: gpt-4o\n")); err == nil {
			t.Fatalf("expected error")
		}
	})

	t.Run("missing model", func(t *testing.T) {
		if _, err := Load(writeTempConfig(t, "database:\n  dsn: sqlite://:memory:\n")); err == nil {
			t.Fatalf("expected error")
		}
	})

	t.Run("bad timeout", func(t *testing.T) {
		if _, err := Load(writeTempConfig(t, "database:\n  dsn: sqlite://:memory:\nllm:\n  model: gpt-4o\n  timeout: soon\n")); err == nil {
			t.Fatalf("expected error")
		}
	})

	t.Run("min turns above max", func(t *testing.T) {
		if _, err := Load(writeTempConfig(t, "database:\n  dsn: sqlite://:memory:\nllm:\n  model: gpt-4o\nsession:\n  max_turns: 10\n  min_turns: 12\n")); err == nil {
			t.Fatalf("expected error")
		}
	})

	t.Run("file not found", func(t *testing.T) {
		if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
			t.Fatalf("expected error")
		}
	})

	t.Run("invalid yaml", func(t *testing.T) {
		if _, err := Load(writeTempConfig(t, "database: [\n")); err == nil {
			t.Fatalf("expected error")
		}
	})
}

func writeTempConfig(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "fableforge.yaml")
	if err := os.WriteFile(path, []byte(contents), 0o600); err != nil {
		t.Fatalf("writing temp config: %v", err)
	}
	return path
}
