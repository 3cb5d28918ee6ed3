package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/steveyegge/curq/internal/discovery"
	"github.com/steveyegge/curq/internal/transfer"
)

var syncParallelism int

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Mirror the configured remote prefix's partitions into the local cache",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := context.Background()
		rt, err := buildRuntime(ctx)
		if err != nil {
			return err
		}
		defer rt.logger.Sync() //nolint:errcheck

		result, err := discovery.Discover(ctx, rt.s3Client, rt.cfg)
		if err != nil {
			return err
		}
		if len(result.SkippedPartitions) > 0 {
			cmd.PrintErrf("skipped %d unparseable partition(s)\n", len(result.SkippedPartitions))
		}

		report, err := transfer.Sync(ctx, rt.s3Downloader(), rt.cfg, result.Files, transfer.Options{Parallelism: syncParallelism})
		if err != nil {
			return err
		}

		cmd.Printf("transferred=%d skipped=%d failed=%d bytes=%d\n",
			len(report.Transferred), len(report.Skipped), len(report.Failed), report.TotalBytes)
		for _, f := range report.Failed {
			cmd.PrintErrf("failed: %s: %v\n", f.File.ObjectKey, f.Err)
		}
		return nil
	},
}

func init() {
	syncCmd.Flags().IntVar(&syncParallelism, "parallelism", 0, "concurrent file transfers (defaults to 4)")
}
