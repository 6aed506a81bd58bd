// Package config loads the fableforge.yaml file shared by every command.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"fableforge/internal/llm"
	"fableforge/internal/memory"
)

// DefaultPath is where commands look for configuration unless --config
// points elsewhere.
const DefaultPath = "fableforge.yaml"

// apiKeyEnv overrides llm.api_key so the secret can stay out of the file.
const apiKeyEnv = "FABLEFORGE_API_KEY"

type Config struct {
	Database DatabaseConfig `yaml:"database"`
	LLM      LLMConfig      `yaml:"llm"`
	Session  SessionConfig  `yaml:"session"`
	GM       GMConfig       `yaml:"gm"`
}

type DatabaseConfig struct {
	DSN string `yaml:"dsn"`
}

// LLMConfig mirrors llm.Config with the timeout as a duration string so it
// reads naturally in YAML ("90s", "2m").
type LLMConfig struct {
	BaseURL      string  `yaml:"base_url"`
	APIKey       string  `yaml:"api_key"`
	Model        string  `yaml:"model"`
	SummaryModel string  `yaml:"summary_model"`
	Temperature  float64 `yaml:"temperature"`
	Timeout      string  `yaml:"timeout"`
}

type SessionConfig struct {
	MaxTurns           int `yaml:"max_turns"`
	MinTurns           int `yaml:"min_turns"`
	SummariesInContext int `yaml:"summaries_in_context"`
}

type GMConfig struct {
	MaxToolRounds int `yaml:"max_tool_rounds"`
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	if key := os.Getenv(apiKeyEnv); key != "" {
		cfg.LLM.APIKey = key
	}

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	return &cfg, nil
}

func validate(cfg *Config) error {
	dsn := strings.TrimSpace(cfg.Database.DSN)
	if dsn == "" {
		return fmt.Errorf("database.dsn is required")
	}
	if !strings.HasPrefix(dsn, "sqlite://") && !strings.HasPrefix(dsn, "postgres://") && !strings.HasPrefix(dsn, "postgresql://") {
		return fmt.Errorf("database.dsn must use a sqlite:// or postgres:// scheme")
	}
	if strings.TrimSpace(cfg.LLM.Model) == "" {
		return fmt.Errorf("llm.model is required")
	}
	if cfg.LLM.Timeout != "" {
		if _, err := time.ParseDuration(cfg.LLM.Timeout); err != nil {
			return fmt.Errorf("llm.timeout: %w", err)
		}
	}
	if cfg.Session.MaxTurns < 0 || cfg.Session.MinTurns < 0 || cfg.Session.SummariesInContext < 0 {
		return fmt.Errorf("session values must not be negative")
	}
	if cfg.Session.MaxTurns > 0 && cfg.Session.MinTurns >= cfg.Session.MaxTurns {
		return fmt.Errorf("session.min_turns must be below session.max_turns")
	}
	if cfg.GM.MaxToolRounds < 0 {
		return fmt.Errorf("gm.max_tool_rounds must not be negative")
	}
	return nil
}

// LLMConfig converts the file section into the client's config. Timeout has
// already been checked by Load.
func (c *Config) LLMConfig() llm.Config {
	var timeout time.Duration
	if c.LLM.Timeout != "" {
		timeout, _ = time.ParseDuration(c.LLM.Timeout)
	}
	return llm.Config{
		BaseURL:      c.LLM.BaseURL,
		APIKey:       c.LLM.APIKey,
		Model:        c.LLM.Model,
		SummaryModel: c.LLM.SummaryModel,
		Temperature:  c.LLM.Temperature,
		Timeout:      timeout,
	}
}

// MemoryConfig returns the archiver settings, falling back to the defaults
// for any field the file leaves at zero.
func (c *Config) MemoryConfig() memory.Config {
	out := memory.DefaultConfig()
	if c.Session.MaxTurns > 0 {
		out.MaxTurns = c.Session.MaxTurns
	}
	if c.Session.MinTurns > 0 {
		out.MinTurns = c.Session.MinTurns
	}
	if c.Session.SummariesInContext > 0 {
		out.SummariesInContext = c.Session.SummariesInContext
	}
	return out
}
