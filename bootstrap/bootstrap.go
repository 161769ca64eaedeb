// Package bootstrap wires all dependencies and starts the application.
// Configuration comes from a YAML file (or BIZADMIN_* environment
// variables); the module catalog is loaded once at startup.
package bootstrap

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	apihttp "github.com/artpar/bizadmin/adapters/http"
	"github.com/artpar/bizadmin/adapters/metrics"
	"github.com/artpar/bizadmin/adapters/remote"
	"github.com/artpar/bizadmin/config"
	"github.com/artpar/bizadmin/core/dashboard"
	"github.com/artpar/bizadmin/core/events"
	"github.com/artpar/bizadmin/core/relation"
	"github.com/artpar/bizadmin/core/schema"
	"github.com/artpar/bizadmin/core/table"
	"github.com/artpar/bizadmin/web"
)

// App represents the running application.
type App struct {
	Logger     zerolog.Logger
	Config     *config.Config
	Catalog    *schema.Catalog
	Client     *remote.Client
	Bus        *events.Bus
	Relations  *relation.Loader
	Tables     *web.Tables
	Dashboard  *dashboard.Service
	Metrics    *metrics.Collector
	HTTPServer *http.Server

	holder *config.Holder
	output *logOutput
}

// Options provides optional configuration for application initialization.
type Options struct {
	// ConfigPath is the YAML config file. When empty, or when the file
	// does not exist, configuration comes from the environment.
	ConfigPath string

	// CatalogPath overrides catalog.path from the config.
	CatalogPath string

	// Watch enables hot reload of the config file and SIGHUP handling.
	Watch bool

	// Version is reported by /version.
	Version string

	// LogOutput defaults to stdout.
	LogOutput io.Writer
}

// New loads configuration and the catalog and wires every component. No
// network traffic happens until a page or command needs data.
func New(opts Options) (*App, error) {
	cfg, err := config.LoadWithFallback(opts.ConfigPath)
	if err != nil {
		return nil, err
	}
	if opts.CatalogPath != "" {
		cfg.Catalog.Path = opts.CatalogPath
	}
	return NewWithConfig(cfg, opts)
}

// NewWithConfig wires the application from an already loaded config.
func NewWithConfig(cfg *config.Config, opts Options) (*App, error) {
	logger, output := setupLogger(cfg.Logging, opts.LogOutput)
	logger.Info().Str("backend", cfg.Backend.URL).Msg("initializing bizadmin")

	catalog, err := schema.LoadCatalog(cfg.Catalog.Path)
	if err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}
	logger.Info().
		Str("path", cfg.Catalog.Path).
		Int("modules", catalog.Len()).
		Msg("catalog loaded")

	a := &App{
		Logger:  logger,
		Config:  cfg,
		Catalog: catalog,
		output:  output,
	}

	if cfg.Metrics.Enabled {
		a.Metrics = metrics.New()
		logger.Info().Str("path", cfg.Metrics.Path).Msg("prometheus metrics enabled")
	}

	a.Client = remote.NewClient(remote.ClientConfig{
		BaseURL:     cfg.Backend.URL,
		APIKey:      cfg.Backend.APIKey,
		Timeout:     cfg.Backend.Timeout,
		Headers:     cfg.Backend.Headers,
		ReadRetries: cfg.Backend.ReadRetries,
		RetryWait:   cfg.Backend.RetryWait,
		Logger:      logger.With().Str("component", "remote").Logger(),
		Metrics:     a.Metrics,
	})
	a.Bus = events.NewBus(logger.With().Str("component", "events").Logger())
	a.Relations = relation.NewLoader(catalog, a.Client, relation.Options{
		TTL:     cfg.Relations.TTL,
		Bus:     a.Bus,
		Logger:  logger.With().Str("component", "relation").Logger(),
		Metrics: a.Metrics,
	})
	a.Tables = web.NewTables(catalog, a.newTable)
	a.Dashboard = dashboard.NewService(a.Client, dashboard.Options{
		CurrencySymbol: cfg.UI.CurrencySymbol,
		Logger:         logger.With().Str("component", "dashboard").Logger(),
	})

	if err := a.initHTTPServer(opts.Version); err != nil {
		return nil, fmt.Errorf("init http server: %w", err)
	}

	if opts.Watch && opts.ConfigPath != "" {
		if err := a.watchConfig(opts.ConfigPath); err != nil {
			logger.Warn().Err(err).Msg("config hot reload disabled")
		}
	}

	return a, nil
}

// Table returns the long-lived table of a module.
func (a *App) Table(key string) (*table.Table, error) {
	return a.Tables.Get(key)
}

func (a *App) newTable(mod schema.ModuleConfig) *table.Table {
	return table.New(mod, table.Deps{
		Client:         a.Client,
		Bus:            a.Bus,
		Relations:      a.Relations,
		Logger:         a.Logger.With().Str("component", "table").Logger(),
		Metrics:        a.Metrics,
		CurrencySymbol: a.Config.UI.CurrencySymbol,
		PageSize:       a.Config.UI.PageSize,
		StaleAfter:     a.Config.UI.StaleAfter,
	})
}

func (a *App) initHTTPServer(version string) error {
	cfg := a.Config

	webHandler, err := web.NewHandler(web.Deps{
		Catalog:        a.Catalog,
		Tables:         a.Tables,
		Dashboard:      a.Dashboard,
		Notices:        web.NewNotices(web.DefaultNoticeTTL),
		Logger:         a.Logger.With().Str("component", "web").Logger(),
		AppName:        cfg.UI.AppName,
		RedirectDelay:  cfg.UI.RedirectDelay,
		CurrencySymbol: cfg.UI.CurrencySymbol,
	})
	if err != nil {
		return err
	}

	routerCfg := apihttp.RouterConfig{
		Catalog:        a.Catalog,
		WebHandler:     webHandler.Router(),
		Version:        version,
		RequestTimeout: cfg.Server.WriteTimeout,
		EnableOpenAPI:  cfg.Server.OpenAPI,
	}
	if a.Metrics != nil {
		routerCfg.Metrics = a.Metrics
		routerCfg.MetricsPath = cfg.Metrics.Path
	}
	router := apihttp.NewRouter(apihttp.NewHealthHandler(a.Client), a.Logger, routerCfg)

	a.HTTPServer = &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
	return nil
}

func (a *App) watchConfig(path string) error {
	holder, err := config.NewHolder(path, a.Logger.With().Str("component", "config").Logger())
	if err != nil {
		return err
	}
	holder.SetMetrics(a.Metrics)
	holder.OnChange(func(cfg *config.Config) {
		applyLevel(cfg.Logging.Level)
		a.output.setFormat(cfg.Logging.Format)
	})
	if err := holder.WatchFile(); err != nil {
		holder.Stop()
		return err
	}
	holder.WatchSignals()
	a.holder = holder
	return nil
}

// Run starts the HTTP server and blocks until SIGINT/SIGTERM or a server
// error.
func (a *App) Run() error {
	errCh := make(chan error, 1)
	go func() {
		a.Logger.Info().
			Str("addr", a.HTTPServer.Addr).
			Msg("starting http server")
		if err := a.HTTPServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case sig := <-quit:
		a.Logger.Info().Str("signal", sig.String()).Msg("shutting down")
	}

	return a.Shutdown()
}

// Shutdown gracefully stops the application. In-flight backend requests of
// every table are cancelled and their late responses discarded.
func (a *App) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if a.holder != nil {
		a.holder.Stop()
	}

	var err error
	if a.HTTPServer != nil {
		if err = a.HTTPServer.Shutdown(ctx); err != nil {
			a.Logger.Error().Err(err).Msg("http server shutdown error")
		}
	}

	if a.Tables != nil {
		a.Tables.Close()
	}

	a.Logger.Info().Msg("shutdown complete")
	return err
}
