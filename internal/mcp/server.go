// Package mcp exposes the game tool registry over the Model Context
// Protocol, so any MCP-capable model host can act as the game master.
package mcp

import (
	"context"
	"log/slog"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"fableforge/internal/tools"
)

type Server struct {
	registry *tools.Registry
	log      *slog.Logger
	mcp      *sdk.Server
}

func NewServer(registry *tools.Registry, version string, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	s := &Server{
		registry: registry,
		log:      log,
		mcp: sdk.NewServer(&sdk.Implementation{
			Name:    "fableforge",
			Version: version,
		}, nil),
	}
	s.registerTools()
	return s
}

func (s *Server) Run(ctx context.Context, transport sdk.Transport) error {
	return s.mcp.Run(ctx, transport)
}
