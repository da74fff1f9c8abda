package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "agency-sync-server",
	Short: "Keeps the agency document in sync with CouchDB and serves it to dashboards",
	// Without a subcommand the server runs, as the container entrypoint expects.
	RunE:          runServe,
	SilenceUsage:  true,
	SilenceErrors: true,
}

var (
	serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP and websocket server",
		RunE:  runServe,
	}
	syncCmd = &cobra.Command{
		Use:   "sync",
		Short: "Recompute the dashboard rollup and persist it",
		RunE:  runSync,
	}
	reportCmd = &cobra.Command{
		Use:   "report",
		Short: "Print the report for the last persisted rollup",
		RunE:  runReport,
	}
	seedCmd = &cobra.Command{
		Use:   "seed",
		Short: "Write the bundled catalog if the remote document is empty",
		RunE:  runSeed,
	}

	forceSync bool
)

func init() {
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(syncCmd)
	syncCmd.Flags().BoolVarP(&forceSync, "force", "f", false, "Recompute even if the rollup is still fresh")
	rootCmd.AddCommand(reportCmd)
	rootCmd.AddCommand(seedCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
