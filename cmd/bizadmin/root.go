package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/artpar/bizadmin/core/channel/cli"
)

var (
	// Global flags
	cfgFile     string
	catalogFile string
	verbose     bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "bizadmin",
	Short: "Metadata-driven business admin over a REST backend",
	Long: `bizadmin renders tables, forms and a dashboard for every module in a
catalog document, against an existing REST backend.

Quick start:
  bizadmin validate          # Check config and catalog
  bizadmin serve             # Start the web UI

Records:
  bizadmin modules           # List configured modules
  bizadmin <module> list     # List records of a module
  bizadmin dashboard         # Print dashboard statistics`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", defaultConfigPath, "config file path")
	rootCmd.PersistentFlags().StringVar(&catalogFile, "catalog", "", "catalog file path (overrides catalog.path)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "write logs to stderr")

	rootCmd.AddGroup(
		&cobra.Group{ID: "admin", Title: "Admin Commands:"},
		&cobra.Group{ID: cli.ModuleGroup, Title: "Module Commands:"},
	)
}

const defaultConfigPath = "bizadmin.yaml"
