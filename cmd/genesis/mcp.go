package main

import (
	"github.com/spf13/cobra"

	"genesis/internal/app"
)

func newMCPCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve the current session to an agent over MCP stdio",
		Long: `Serve the configured session over the Model Context Protocol on
stdin/stdout. A running desktop app sees every edit and is asked to approve
destructive calls.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.ServeMCP(c.cfg)
		},
	}
}
