package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"genesis/internal/export"
	"genesis/internal/service"
	"genesis/internal/storage"
)

type exportFlags struct {
	project  string
	out      string
	template string
}

func newExportCmd(c *cli) *cobra.Command {
	f := &exportFlags{}
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export a project.json as a static site zip",
		Long: `Re-import a project snapshot, such as the project.json inside an earlier
export, and package it again. Images in the images/ folder next to the
project file are re-attached. The session of the desktop app is not touched.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := f.out
			if out == "" {
				out = c.cfg.DownloadDir
			}
			res, err := runExport(cmd, c, f.project, out, f.template)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s (%d blocks, %d images, %d bytes)\n",
				res.Location, res.Blocks, res.Images, res.Size)
			return nil
		},
	}
	cmd.Flags().StringVar(&f.project, "project", "", "path of project.json")
	cmd.Flags().StringVar(&f.out, "out", "", "directory the zip is written to (default from download_dir)")
	cmd.Flags().StringVar(&f.template, "template", "", "override the project's template (card or landing)")
	cmd.MarkFlagRequired("project")
	return cmd
}

func runExport(cmd *cobra.Command, c *cli, project, out, template string) (export.Result, error) {
	ctx := cmd.Context()
	logger := c.cfg.NewLogger(cmd.ErrOrStderr())

	// A throwaway in-memory session keeps the user's document out of it.
	builder := service.NewBuilderService(service.BuilderOptions{
		Session:      storage.NewMemoryKV(),
		Durable:      storage.NewMemoryKV(),
		HistoryLimit: c.cfg.HistoryLimit,
		Logger:       logger,
	})
	defer builder.Close()

	if _, err := service.ImportProjectFile(ctx, builder, project); err != nil {
		return export.Result{}, err
	}
	if template != "" {
		if err := builder.SetActiveTemplate(ctx, template); err != nil {
			return export.Result{}, err
		}
	}

	exporter := service.NewExportService(builder, export.NewPipeline(export.DirDownloader{Dir: out}), service.ExportOptions{
		SessionID: "cli",
		Target:    "dir",
		AssetWait: c.cfg.AssetWait,
		Logger:    logger,
	})
	return exporter.ExportSite(ctx)
}
