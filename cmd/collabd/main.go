// Collabd is the collaboration object store daemon.
//
// It persists tenant-scoped, typed collaboration objects (notes,
// annotations, saved queries, workspaces) in a search-engine index and
// fronts them with an access-controlled HTTP API.
//
// Usage:
//
//	# Start the daemon
//	collabd serve
//
//	# Create the backing index and exit
//	collabd provision
//
//	# Mint a development bearer token
//	collabd token --user alice --tenant acme --role analysts
//
// Configuration comes from a YAML file (--config) overridden by
// COLLABD_* environment variables. See internal/config for details.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version information (set via ldflags during build)
var (
	version   = "dev"
	gitCommit = "unknown"
	buildDate = "unknown"
)

// configPath is the --config flag shared by every subcommand.
var configPath string

var rootCmd = &cobra.Command{
	Use:   "collabd",
	Short: "Collaboration object store daemon",
	Long: `collabd stores tenant-scoped collaboration objects (notes, annotations,
saved queries, workspaces) in a search-engine index and serves them over
an access-controlled HTTP API.`,
	SilenceUsage: true,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Run: func(cmd *cobra.Command, args []string) {
		printVersion()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to YAML config file")
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(provisionCmd)
	rootCmd.AddCommand(tokenCmd)
	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// printVersion prints version information
func printVersion() {
	fmt.Printf("collabd by Fyrsmith Labs\n")
	fmt.Printf("Version:    %s\n", version)
	fmt.Printf("Commit:     %s\n", gitCommit)
	fmt.Printf("Build Date: %s\n", buildDate)
}
