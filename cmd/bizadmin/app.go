package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"github.com/artpar/bizadmin/bootstrap"
	"github.com/artpar/bizadmin/config"
	"github.com/artpar/bizadmin/core/channel/cli"
	"github.com/artpar/bizadmin/core/formatter"
	"github.com/artpar/bizadmin/core/schema"
	"github.com/artpar/bizadmin/core/table"
)

var (
	appMu     sync.Mutex
	sharedApp *bootstrap.App
)

// loadConfig reads the config file (or environment) and applies the
// --catalog override.
func loadConfig(cfgPath, catalogPath string) (*config.Config, error) {
	cfg, err := config.LoadWithFallback(cfgPath)
	if err != nil {
		return nil, err
	}
	if catalogPath != "" {
		cfg.Catalog.Path = catalogPath
	}
	return cfg, nil
}

// commandApp returns the application shared by the commands of one
// invocation, building it on first use. Nothing is served.
func commandApp() (*bootstrap.App, error) {
	appMu.Lock()
	defer appMu.Unlock()
	if sharedApp != nil {
		return sharedApp, nil
	}

	cfg, err := loadConfig(cfgFile, catalogFile)
	if err != nil {
		return nil, err
	}
	app, err := bootstrap.NewWithConfig(cfg, bootstrap.Options{
		Version:   version,
		LogOutput: logOutput(),
	})
	if err != nil {
		return nil, err
	}
	sharedApp = app
	return app, nil
}

func closeApp() {
	appMu.Lock()
	defer appMu.Unlock()
	if sharedApp != nil {
		sharedApp.Shutdown()
		sharedApp = nil
	}
}

func logOutput() io.Writer {
	if verbose {
		return os.Stderr
	}
	return io.Discard
}

func moduleTable(ctx context.Context, key string) (*table.Table, error) {
	app, err := commandApp()
	if err != nil {
		return nil, err
	}
	return app.Table(key)
}

// registerModules adds one command group per catalog module. Flags are not
// parsed yet, so --config and --catalog are read from the raw arguments.
// Without a usable config or catalog the module commands are simply absent.
func registerModules(args []string) {
	cfg, err := loadConfig(
		flagValue(args, "--config", "-c", defaultConfigPath),
		flagValue(args, "--catalog", "", ""),
	)
	if err != nil {
		return
	}
	catalog, err := schema.LoadCatalog(cfg.Catalog.Path)
	if err != nil {
		return
	}

	ch := cli.New(rootCmd, moduleTable, cli.Options{
		Cells: formatter.NewCells(cfg.UI.CurrencySymbol),
	})
	for _, err := range ch.RegisterAll(catalog) {
		if hasFlag(args, "--verbose", "-v") {
			fmt.Fprintf(os.Stderr, "warning: %v\n", err)
		}
	}
}

// flagValue finds a string flag in raw arguments.
func flagValue(args []string, long, short, def string) string {
	for i, a := range args {
		if a == "--" {
			break
		}
		for _, name := range []string{long, short} {
			if name == "" {
				continue
			}
			switch {
			case a == name && i+1 < len(args):
				return args[i+1]
			case strings.HasPrefix(a, name+"="):
				return strings.TrimPrefix(a, name+"=")
			}
		}
	}
	return def
}

func hasFlag(args []string, long, short string) bool {
	for _, a := range args {
		if a == "--" {
			break
		}
		if a == long || a == short || a == long+"=true" {
			return true
		}
	}
	return false
}

func init() {
	rootCmd.PersistentPostRun = func(cmd *cobra.Command, args []string) {
		closeApp()
	}
}
