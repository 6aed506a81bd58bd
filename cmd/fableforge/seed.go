package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"fableforge/internal/seed"
)

func seedCmd() *cobra.Command {
	var worldPath string
	var playerName string
	var playerClass string
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Create the schema and load the world seed file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSeed(cmd, worldPath, playerName, playerClass)
		},
	}
	cmd.Flags().StringVar(&worldPath, "world", "world.yaml", "World seed file")
	cmd.Flags().StringVar(&playerName, "player", "", "Also create a player character with this name")
	cmd.Flags().StringVar(&playerClass, "class", "adventurer", "Class for the created player")
	return cmd
}

func runSeed(cmd *cobra.Command, worldPath, playerName, playerClass string) error {
	ctx := context.Background()

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	doc, err := seed.Load(worldPath)
	if err != nil {
		return err
	}
	if playerName != "" {
		doc.Players = append(doc.Players, seed.PlayerSeed{
			Name:     playerName,
			Class:    playerClass,
			Health:   100,
			Gold:     10,
			Location: firstLocation(doc),
		})
		if err := doc.Validate(); err != nil {
			return err
		}
	}

	db, err := openStore(ctx, cfg.Database.DSN)
	if err != nil {
		return err
	}
	defer db.Close(ctx)

	if err := db.EnsureSchema(ctx); err != nil {
		return err
	}

	seeded, err := seed.Seeded(ctx, db)
	if err != nil {
		return err
	}
	if seeded {
		return fmt.Errorf("world already seeded; remove the database to start over")
	}

	result, err := seed.Apply(ctx, db, doc)
	if err != nil {
		return err
	}

	cmd.Println("World seeded.")
	cmd.Printf("  Locations:      %d\n", result.Locations)
	cmd.Printf("  Item templates: %d\n", result.Templates)
	cmd.Printf("  NPCs:           %d\n", result.NPCs)
	cmd.Printf("  Players:        %d\n", result.Players)
	cmd.Printf("  Items:          %d\n", result.Items)
	for name, id := range result.PlayerIDs {
		cmd.Printf("Player %q has ID %d.\n", name, id)
	}
	return nil
}

func firstLocation(doc *seed.Document) string {
	if len(doc.Locations) == 0 {
		return ""
	}
	return doc.Locations[0].Name
}
