// Multistore serves a registry of named vector stores with a debug
// inspector, and doubles as the CLI for managing a running server.
//
// Usage:
//
//	# Start the server with ~/.config/multistore/config.yaml
//	multistore serve
//
//	# Register a store on a running server
//	multistore stores register events --option collection=log
//
//	# Point the inspector at it
//	multistore inspector switch events
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

// Version information (set via ldflags during build)
var (
	version   = "dev"
	gitCommit = "unknown"
	buildDate = "unknown"
)

var (
	// serverURL is the base URL of the multistore HTTP API.
	serverURL string
	// outputAsJSON switches client commands to JSON output.
	outputAsJSON bool
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "multistore",
	Short: "Named vector store registry with a debug inspector",
	Long: `multistore keeps a set of named vector stores behind one HTTP API.

Run "multistore serve" to start the server. The other commands talk to a
running server at --server.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: false,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "http://localhost:9191", "multistore server URL")
	rootCmd.PersistentFlags().BoolVar(&outputAsJSON, "json", false, "Output results as JSON")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(storesCmd)
	rootCmd.AddCommand(inspectorCmd)
	rootCmd.AddCommand(healthCmd)
	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, _ []string) {
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "multistore by Fyrsmith Labs\n")
		fmt.Fprintf(out, "Version:    %s\n", version)
		fmt.Fprintf(out, "Commit:     %s\n", gitCommit)
		fmt.Fprintf(out, "Build Date: %s\n", buildDate)
	},
}
