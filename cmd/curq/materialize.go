package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/steveyegge/curq/internal/materializer"
)

var materializeCmd = &cobra.Command{
	Use:   "materialize",
	Short: "Execute the view manifest in dependency order and write Parquet outputs",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := context.Background()
		rt, err := buildRuntime(ctx)
		if err != nil {
			return err
		}
		defer rt.logger.Sync() //nolint:errcheck

		manifest, err := materializer.LoadManifestDir(rt.fileConfig.ManifestRoot, rt.cfg.TableNameOrDefault())
		if err != nil {
			return err
		}

		report, err := rt.materializer.Run(ctx, rt.cfg, manifest)
		if report != nil {
			cmd.Printf("produced=%d failed=%d skipped=%d\n", len(report.Produced), len(report.Failed), len(report.Skipped))
			for _, name := range report.Failed {
				cmd.PrintErrf("failed view: %s\n", name)
			}
			for _, name := range report.Skipped {
				cmd.PrintErrf("skipped view: %s\n", name)
			}
		}
		return err
	},
}
