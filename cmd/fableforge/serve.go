package main

import (
	"context"

	"github.com/spf13/cobra"

	"fableforge/internal/combat"
	"fableforge/internal/llm"
	"fableforge/internal/mcp"
	"fableforge/internal/memory"
	"fableforge/internal/tools"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Expose the game tools as an MCP server over stdio",
		Args:  cobra.NoArgs,
		RunE:  runServe,
	}
}

func runServe(cmd *cobra.Command, args []string) error {
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

	client := llm.New(cfg.LLMConfig(), log)
	mem := memory.New(db, client, cfg.MemoryConfig(), log)
	cm := combat.New(db, mem, log)
	registry := tools.NewRegistry(db, cm, mem, log)

	server := mcp.NewServer(registry, version, log)
	log.Info("serving MCP over stdio")
	return server.Run(ctx, &sdk.StdioTransport{})
}
