package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/artpar/bizadmin/bootstrap"
	"github.com/artpar/bizadmin/config"
)

var hotReload bool

var serveCmd = &cobra.Command{
	Use:     "serve",
	Short:   "Start the web UI",
	GroupID: "admin",
	Long: `Start the bizadmin web server.

The server will:
  - Load configuration from bizadmin.yaml (or --config)
  - Or load configuration from BIZADMIN_* environment variables
  - Load the module catalog (catalog.path or --catalog)
  - Serve the dashboard, module tables and forms

Environment variables (for Docker deployments):
  BIZADMIN_BACKEND_URL      - REST backend base URL (required)
  BIZADMIN_CATALOG_PATH     - Catalog document (default: catalog.json)
  BIZADMIN_SERVER_PORT      - Server port (default: 8080)
  BIZADMIN_LOG_LEVEL        - Log level: debug, info, warn, error
  BIZADMIN_METRICS_ENABLED  - Expose Prometheus metrics

Examples:
  bizadmin serve
  bizadmin serve --config /etc/bizadmin/config.yaml
  bizadmin serve --hot-reload=false

  # Docker (env vars only):
  BIZADMIN_BACKEND_URL=http://api:3000 bizadmin serve`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().BoolVar(&hotReload, "hot-reload", true, "reload logging settings when the config file changes")
}

func runServe(cmd *cobra.Command, args []string) error {
	hasConfigFile := false
	if _, err := os.Stat(cfgFile); err == nil {
		hasConfigFile = true
	}

	if !hasConfigFile && !config.HasEnvConfig() {
		out := cmd.OutOrStdout()
		fmt.Fprintln(out, "No configuration found.")
		fmt.Fprintln(out)
		fmt.Fprintf(out, "Option 1: Create %s (see bizadmin.example.yaml)\n", cfgFile)
		fmt.Fprintln(out, "Option 2: Set BIZADMIN_BACKEND_URL environment variable")
		fmt.Fprintln(out)
		fmt.Fprintln(out, "Example (env vars):")
		fmt.Fprintln(out, "  BIZADMIN_BACKEND_URL=http://localhost:3000 bizadmin serve")
		return nil
	}

	app, err := bootstrap.New(bootstrap.Options{
		ConfigPath:  cfgFile,
		CatalogPath: catalogFile,
		Watch:       hasConfigFile && hotReload,
		Version:     version,
	})
	if err != nil {
		return fmt.Errorf("error initializing: %w", err)
	}

	// Run (blocks until shutdown)
	return app.Run()
}
