package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"genesis/internal/config"
)

// cli holds what PersistentPreRunE resolved for the subcommands.
type cli struct {
	configDir string
	cfg       *config.Config
}

func newRootCmd() *cobra.Command {
	c := &cli{}
	root := &cobra.Command{
		Use:           "genesis",
		Short:         "Genesis builds one-page sites from blocks",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Name() == "version" {
				return nil
			}
			cfg, err := config.Load(c.configDir)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			c.cfg = cfg
			return nil
		},
	}
	root.PersistentFlags().StringVar(&c.configDir, "config", config.DefaultDir(), "directory holding config.yaml")

	root.AddCommand(
		newMCPCmd(c),
		newExportCmd(c),
		newPreviewCmd(c),
		newVersionCmd(),
	)
	return root
}
