package main

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/steveyegge/curq/internal/dispatcher"
	"github.com/steveyegge/curq/internal/render"
)

var (
	queryRowLimit    int
	queryForceRemote bool
)

var queryCmd = &cobra.Command{
	Use:   "query <target>",
	Short: "Run an ad-hoc SQL string, a stored .sql file, or a direct columnar file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		format, err := render.ParseFormat(outputFormat)
		if err != nil {
			return err
		}

		ctx := context.Background()
		rt, err := buildRuntime(ctx)
		if err != nil {
			return err
		}
		defer rt.logger.Sync() //nolint:errcheck

		rowLimit := queryRowLimit
		if rowLimit <= 0 {
			rowLimit = rt.cfg.MaxRows
		}

		frame, meta, err := rt.dispatcher.Query(ctx, args[0], rt.cfg, dispatcher.Options{
			ForceRemote: queryForceRemote,
			RowLimit:    rowLimit,
			Deadline:    rt.cfg.Deadline,
		})
		if err != nil {
			return err
		}

		cmd.PrintErrf("source=%s rows=%d engine=%s time=%s\n", meta.DataSource, meta.Rows, meta.Engine, meta.ExecutionTime)
		return render.Write(os.Stdout, frame, format)
	},
}

func init() {
	queryCmd.Flags().IntVar(&queryRowLimit, "row-limit", 0, "maximum rows to return (defaults to the config's max_rows)")
	queryCmd.Flags().BoolVar(&queryForceRemote, "force-remote", false, "bypass the local cache even if it is usable")
}
