package main

import (
	"os"

	"github.com/spf13/cobra"
)

func main() {
	root := &cobra.Command{
		Use:   "fableforge",
		Short: "LLM game master backend for persistent RPG worlds",
	}
	root.Version = version
	root.SetVersionTemplate("{{.Version}}\n")
	root.PersistentFlags().String("config", "", "Path to fableforge.yaml")
	root.PersistentFlags().Bool("verbose", false, "Enable debug logging")
	root.AddCommand(initCmd())
	root.AddCommand(seedCmd())
	root.AddCommand(serveCmd())
	root.AddCommand(playCmd())
	root.AddCommand(versionCmd())
	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}
