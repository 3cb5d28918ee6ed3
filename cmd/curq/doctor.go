package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/steveyegge/curq/internal/cache"
	"github.com/steveyegge/curq/internal/discovery"
	"github.com/steveyegge/curq/internal/transfer"
)

// doctorCmd is a supplemented operational surface, not part of the core
// query/sync/materialize path: cache completeness per partition, whether a
// sync is currently running, and whether credentials resolve at all. None
// of it prints secret material.
var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Report local cache completeness, lock state, and credential resolution",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := context.Background()
		rt, err := buildRuntime(ctx)
		if err != nil {
			cmd.PrintErrf("credential resolution: FAILED: %v\n", err)
			return nil
		}
		defer rt.logger.Sync() //nolint:errcheck
		cmd.Println("credential resolution: OK")

		held, err := transfer.LockStatus(rt.cfg.LocalRoot)
		if err != nil {
			cmd.PrintErrf("sync lock: unknown: %v\n", err)
		} else if held {
			cmd.Println("sync lock: HELD (a sync is currently running)")
		} else {
			cmd.Println("sync lock: free")
		}

		result, derr := discovery.Discover(ctx, rt.s3Client, rt.cfg)
		if derr != nil {
			cmd.PrintErrf("remote discovery: FAILED: %v\n", derr)
			return nil
		}
		if len(result.SkippedPartitions) > 0 {
			cmd.Printf("remote: %d unparseable partition name(s) skipped\n", len(result.SkippedPartitions))
		}

		statuses, err := cache.Status(rt.cfg, result.Files)
		if err != nil {
			return err
		}
		if len(statuses) == 0 {
			cmd.Println("local cache: empty or disabled")
			return nil
		}
		for part, st := range statuses {
			completeness := "incomplete"
			if st.Complete {
				completeness = "complete"
			}
			cmd.Printf("partition %s=%s: %d files, %d bytes, %s\n",
				part.ExportType, part.KeyValue, st.FileCount, st.TotalBytes, completeness)
		}
		return nil
	},
}
