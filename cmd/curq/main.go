// Command curq is the reference CLI for the data plane implemented under
// internal/: partition discovery, local cache sync, ad-hoc/stored/direct-
// file queries, and view materialization. Its structure (persistent flags
// set in init(), one file per subcommand, SilenceUsage/SilenceErrors on the
// root command with the error printed once in main) mirrors the teacher's
// cmd/bd-examples/main.go.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/steveyegge/curq/internal/telemetry"
)

var (
	configPath   string
	outputFormat string
	jsonLog      bool
)

var rootCmd = &cobra.Command{
	Use:           "curq",
	Short:         "Query AWS Cost-and-Usage-Report exports without a warehouse",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "curq.yaml", "path to the data-source config file")
	rootCmd.PersistentFlags().StringVar(&outputFormat, "format", "table", "output format: table, json, or csv")
	rootCmd.PersistentFlags().BoolVar(&jsonLog, "json-log", false, "emit structured logs as JSON regardless of terminal")

	rootCmd.AddCommand(queryCmd)
	rootCmd.AddCommand(syncCmd)
	rootCmd.AddCommand(materializeCmd)
	rootCmd.AddCommand(discoverCmd)
	rootCmd.AddCommand(doctorCmd)
}

func main() {
	shutdown := telemetry.Init()
	defer shutdown(context.Background()) //nolint:errcheck

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
