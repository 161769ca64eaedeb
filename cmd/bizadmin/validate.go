package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/artpar/bizadmin/adapters/remote"
	"github.com/artpar/bizadmin/config"
	"github.com/artpar/bizadmin/core/schema"
)

var validateCmd = &cobra.Command{
	Use:     "validate",
	Short:   "Validate configuration and catalog before deployment",
	GroupID: "admin",
	Long: `Validate the bizadmin configuration and module catalog.

Checks:
  - Config file (or BIZADMIN_* environment) is valid
  - Catalog document parses and every relation resolves
  - Backend is reachable (optional)

Examples:
  bizadmin validate
  bizadmin validate --config /etc/bizadmin/config.yaml --check-backend`,
	RunE: runValidate,
}

var validateCheckBackend bool

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().BoolVar(&validateCheckBackend, "check-backend", false, "check if the backend is reachable")
}

func runValidate(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	source := cfgFile
	if _, err := os.Stat(cfgFile); err != nil {
		if !config.HasEnvConfig() {
			fmt.Fprintf(out, "  %s Config file exists\n", crossMark)
			return fmt.Errorf("config file not found: %s", cfgFile)
		}
		source = "environment"
	}
	fmt.Fprintf(out, "Validating %s...\n\n", source)

	cfg, err := loadConfig(cfgFile, catalogFile)
	if err != nil {
		fmt.Fprintf(out, "  %s Config valid\n", crossMark)
		return fmt.Errorf("config error: %w", err)
	}
	fmt.Fprintf(out, "  %s Config valid\n", checkMark)
	fmt.Fprintf(out, "  %s Backend: %s\n", checkMark, cfg.Backend.URL)
	fmt.Fprintf(out, "  %s Listen: %s\n", checkMark, cfg.Server.Addr())

	catalog, err := schema.LoadCatalog(cfg.Catalog.Path)
	if err != nil {
		fmt.Fprintf(out, "  %s Catalog %s\n", crossMark, cfg.Catalog.Path)
		return fmt.Errorf("catalog error: %w", err)
	}
	fmt.Fprintf(out, "  %s Catalog %s: %d modules, %d navigation items\n",
		checkMark, cfg.Catalog.Path, catalog.Len(), len(catalog.Navigation()))

	if validateCheckBackend {
		if err := checkBackendReachable(cmd.Context(), cfg); err != nil {
			fmt.Fprintf(out, "  %s Backend reachable\n", crossMark)
			fmt.Fprintf(out, "      Error: %v\n", err)
		} else {
			fmt.Fprintf(out, "  %s Backend reachable\n", checkMark)
		}
	}

	fmt.Fprintln(out)
	fmt.Fprintln(out, "Configuration is valid.")
	return nil
}

func checkBackendReachable(ctx context.Context, cfg *config.Config) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	client := remote.NewClient(remote.ClientConfig{
		BaseURL: cfg.Backend.URL,
		APIKey:  cfg.Backend.APIKey,
		Headers: cfg.Backend.Headers,
		Timeout: 5 * time.Second,
		Logger:  zerolog.Nop(),
	})
	return client.Ping(ctx)
}

const (
	checkMark = "\033[32m✓\033[0m"
	crossMark = "\033[31m✗\033[0m"
)
