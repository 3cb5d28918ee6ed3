package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/steveyegge/curq/internal/discovery"
)

var discoverCmd = &cobra.Command{
	Use:   "discover",
	Short: "List the remote partitions and files within the configured date window",
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

		for _, f := range result.Files {
			cmd.Printf("%s\t%d\n", f.ObjectKey, f.SizeBytes)
		}
		cmd.PrintErrf("files=%d skipped_partitions=%d\n", len(result.Files), len(result.SkippedPartitions))
		for _, p := range result.SkippedPartitions {
			cmd.PrintErrf("skipped: %s\n", p)
		}
		return nil
	},
}
