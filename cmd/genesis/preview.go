package main

import (
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"genesis/internal/app"
)

func newPreviewCmd(c *cli) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "preview",
		Short: "Serve a live preview of the current session",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			if addr != "" {
				c.cfg.PreviewAddr = addr
			}
			rt, err := app.OpenRuntime(c.cfg, nil, app.RuntimeOptions{})
			if err != nil {
				return err
			}
			defer rt.Close(cmd.Context())
			rt.StartBackground(ctx, false)

			// Another process edits the session; follow it.
			stop := followSession(ctx, rt)
			defer stop()
			return rt.Preview.ListenAndServe(ctx, c.cfg.PreviewAddr)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from preview_addr)")
	return cmd
}
