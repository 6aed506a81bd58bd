package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"fableforge/internal/combat"
	"fableforge/internal/game"
	"fableforge/internal/gm"
	"fableforge/internal/llm"
	"fableforge/internal/memory"
	"fableforge/internal/tools"
)

func playCmd() *cobra.Command {
	var playerID int64
	cmd := &cobra.Command{
		Use:   "play",
		Short: "Start an interactive session with the game master",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPlay(cmd, playerID)
		},
	}
	cmd.Flags().Int64Var(&playerID, "player", 0, "Player character ID")
	cmd.MarkFlagRequired("player")
	return cmd
}

func runPlay(cmd *cobra.Command, playerID int64) error {
	ctx := context.Background()
	log := newLogger(cmd)

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	db, err := openStore(ctx, cfg.Database.DSN)
	if err != nil {
		return err
	}
	defer db.Close(ctx)

	if err := db.EnsureSchema(ctx); err != nil {
		return err
	}

	player, err := db.GetPlayer(ctx, playerID)
	if err != nil {
		return err
	}

	client := llm.New(cfg.LLMConfig(), log)
	mem := memory.New(db, client, cfg.MemoryConfig(), log)
	cm := combat.New(db, mem, log)
	registry := tools.NewRegistry(db, cm, mem, log)

	orch := gm.New(db, mem, registry, client, log)
	if cfg.GM.MaxToolRounds > 0 {
		orch.SetMaxToolRounds(cfg.GM.MaxToolRounds)
	}

	cmd.Printf("Playing as %s (level %d %s). Type your actions; 'quit' to leave.\n\n", player.Name, player.Level, player.Class)

	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 0, 64*1024), 64*1024)
	for {
		cmd.Print("> ")
		if !scanner.Scan() {
			break
		}
		input := strings.TrimSpace(scanner.Text())
		switch input {
		case "":
			continue
		case "quit", "exit":
			cmd.Println("Farewell, adventurer.")
			return nil
		}

		result, err := orch.TakeTurn(ctx, playerID, input)
		if err != nil {
			printTurnError(cmd, err)
			continue
		}
		for _, call := range result.Calls {
			log.Debug("tool call", "tool", call.Tool, "status", call.Status)
		}
		cmd.Printf("\n%s\n\n", result.Narrative)
	}
	return scanner.Err()
}

func printTurnError(cmd *cobra.Command, err error) {
	switch game.KindOf(err) {
	case game.KindGeneratorTimeout:
		fmt.Fprintln(cmd.ErrOrStderr(), "The game master is taking too long. Try again.")
	case game.KindGeneratorUnavailable:
		fmt.Fprintln(cmd.ErrOrStderr(), "The game master is unreachable. Check the llm settings and try again.")
	default:
		fmt.Fprintf(cmd.ErrOrStderr(), "Error: %v\n", err)
	}
}
