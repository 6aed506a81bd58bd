package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

const starterConfig = `database:
  dsn: sqlite://fableforge.db

llm:
  base_url: https://openrouter.ai/api/v1
  # Set the key here or export FABLEFORGE_API_KEY.
  api_key: ""
  model: anthropic/claude-sonnet-4
  temperature: 0.8
  timeout: 120s

session:
  max_turns: 30
  min_turns: 15
  summaries_in_context: 5

gm:
  max_tool_rounds: 8
`

const starterWorld = `locations:
  - name: The Rusty Tankard
    description: A cozy tavern with a crackling fireplace, the smell of stew, and a boisterous crowd.
    type: settlement
  - name: Whispering Woods
    description: A dense forest where the trees seem to murmur secrets to those who listen.
    type: wilderness

item_templates:
  - name: Iron Sword
    category: weapon
    description: A sturdy iron blade, unremarkable but dependable.
    weight: 3
    properties:
      damage: 5
  - name: Healing Potion
    category: potion
    description: A crimson draught that knits wounds closed.
    properties:
      heal_amount: 25
  - name: Bread
    category: food
    description: A fresh loaf, still warm.
  - name: Torch
    category: misc
    description: A pitch-soaked torch, good for an hour of light.
  - name: Traveler's Cape
    category: armor
    description: A weathered cape that keeps the rain off.

npcs:
  - name: Greta Ironbrew
    type: merchant
    description: A stout dwarven barkeep with a booming laugh and a sharp eye for coin.
    dialogue: Welcome to the Rusty Tankard! What can I get you?
    health: 40
    max_health: 40
    behavior: passive
    disposition: 30
    location: The Rusty Tankard

items:
  - template: Bread
    quantity: 5
    npc: Greta Ironbrew
  - template: Healing Potion
    quantity: 3
    npc: Greta Ironbrew
  - template: Torch
    location: Whispering Woods
`

func initCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Write a starter fableforge.yaml and world.yaml",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInit(cmd)
		},
	}
}

func runInit(cmd *cobra.Command) error {
	configPath := "fableforge.yaml"
	worldPath := "world.yaml"
	if _, err := os.Stat(configPath); err == nil {
		return fmt.Errorf("%s already exists", configPath)
	}
	if _, err := os.Stat(worldPath); err == nil {
		return fmt.Errorf("%s already exists", worldPath)
	}

	if err := os.WriteFile(configPath, []byte(starterConfig), 0o600); err != nil {
		return fmt.Errorf("writing %s: %w", configPath, err)
	}
	if err := os.WriteFile(worldPath, []byte(starterWorld), 0o600); err != nil {
		return fmt.Errorf("writing %s: %w", worldPath, err)
	}

	cmd.Printf("Wrote %s and %s.\n", configPath, worldPath)
	cmd.Println("Next: fableforge seed --player <name>, then fableforge play.")
	return nil
}
