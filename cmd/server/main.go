/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the bond calculator API server.
  Handles configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load configuration (file, then BONDCALC_* environment)
  2. Build the logger
  3. Open the catalog store (SQLite or in-memory)
  4. Seed empty regions from the cached JSON files
  5. Wire refresher, search index and scheduler
  6. Start server with graceful shutdown

COMMAND-LINE FLAGS:
  -config  Path to a YAML/TOML config file (optional)

ENVIRONMENT:
  Every config key can be overridden, e.g.
    BONDCALC_SERVER_PORT=3000
    BONDCALC_DATABASE_PATH=./data/bond.db
    BONDCALC_CATALOG_REFRESH_ON_START=true

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop the refresh scheduler
  2. Stop accepting new connections
  3. Wait for active requests (server.shutdown_timeout)
  4. Close database connection

SEE ALSO:
  - api/server.go: Router configuration
  - config/config.go: Settings and defaults
*/
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/bondcalc/bond-engine/api"
	"github.com/bondcalc/bond-engine/bond"
	"github.com/bondcalc/bond-engine/bond/store"
	"github.com/bondcalc/bond-engine/config"
	"github.com/bondcalc/bond-engine/fetch"
	"github.com/bondcalc/bond-engine/observability"
	"github.com/bondcalc/bond-engine/store/sqlite"
)

// catalogStore is what the server needs from its storage.
type catalogStore interface {
	bond.Catalog
	fetch.CatalogWriter
	api.RefreshLog
}

func main() {
	configPath := flag.String("config", "", "config file path")
	flag.Parse()

	if err := run(*configPath); err != nil {
		fmt.Fprintf(os.Stderr, "server: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logger, err := observability.NewLogger(cfg.Logging)
	if err != nil {
		return err
	}
	defer logger.Sync()

	est, err := cfg.Estimator.Estimator()
	if err != nil {
		return err
	}
	regions, err := cfg.Catalog.ParsedRegions()
	if err != nil {
		return err
	}

	ctx := context.Background()

	// Initialize store
	catalog, closeStore, err := openStore(cfg.Database)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer closeStore()

	if err := seedFromFiles(ctx, cfg.Catalog.DataDir, catalog, logger); err != nil {
		logger.Warn("loading cached catalog files failed", zap.String("dir", cfg.Catalog.DataDir), zap.Error(err))
	}

	search, err := bond.NewSearchIndex(catalog, cfg.Catalog.SearchCacheSize)
	if err != nil {
		return err
	}

	client := fetch.NewClientFromConfig(cfg.Catalog, logger.Named("fetch"))
	refresher := fetch.NewRefresher(client, catalog, logger.Named("refresh"))
	refresher.OnRefresh(func(region bond.Region) {
		search.Invalidate()
		if cfg.Catalog.DataDir == "" {
			return
		}
		// keep the JSON cache in step so a restart without a database
		// serves the same catalog
		if err := writeCatalogCache(ctx, catalog, cfg.Catalog.DataDir, region); err != nil {
			logger.Warn("writing catalog cache failed", zap.String("region", string(region)), zap.Error(err))
		}
	})

	// Initialize handler
	handler := api.NewHandler(catalog, search, est, logger.Named("api"))
	handler.Refresher = refresher
	handler.Refreshes = catalog

	scheduler := api.NewRefreshScheduler(refresher, regions, logger)
	scheduler.Interval = cfg.Catalog.RefreshInterval
	scheduler.RunOnStart = cfg.Catalog.RefreshOnStart
	scheduler.Start()
	defer scheduler.Stop()

	server := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      api.NewRouter(handler, cfg.Server.CORSOrigins),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Start server in goroutine
	serveErr := make(chan error, 1)
	go func() {
		logger.Info("server starting", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-quit:
		logger.Info("shutting down", zap.String("signal", sig.String()))
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
	}

	scheduler.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	logger.Info("server stopped")
	return nil
}

// openStore opens SQLite when a path is configured, otherwise memory.
func openStore(cfg config.DatabaseConfig) (catalogStore, func(), error) {
	if cfg.Path == "" {
		return store.NewMemory(), func() {}, nil
	}
	db, err := sqlite.New(cfg.Path)
	if err != nil {
		return nil, nil, err
	}
	return db, func() { db.Close() }, nil
}

// seedFromFiles copies cached JSON regions into dst when dst has no
// servants for that region yet.
func seedFromFiles(ctx context.Context, dir string, dst catalogStore, logger *zap.Logger) error {
	if dir == "" {
		return nil
	}
	files := store.NewMemory()
	report, err := files.LoadFiles(ctx, dir)
	if err != nil {
		return err
	}
	if len(report.Skipped) > 0 {
		logger.Info("skipped catalog entries", zap.Int("count", len(report.Skipped)))
	}

	for _, region := range []bond.Region{bond.RegionNA, bond.RegionJP} {
		existing, err := dst.Servants(ctx, region)
		if err != nil {
			return err
		}
		if len(existing) > 0 {
			continue
		}
		servants, _ := files.Servants(ctx, region)
		if len(servants) == 0 {
			continue
		}
		quests, _ := files.Quests(ctx, region)
		if err := dst.ReplaceCatalog(ctx, region, servants, quests); err != nil {
			return err
		}
		logger.Info("catalog loaded from files",
			zap.String("region", string(region)),
			zap.Int("servants", len(servants)),
			zap.Int("quests", len(quests)),
		)
	}
	return nil
}

// writeCatalogCache writes region's catalog to dir. Nothing is written
// when the catalog cannot be read.
func writeCatalogCache(ctx context.Context, catalog bond.Catalog, dir string, region bond.Region) error {
	servants, err := catalog.Servants(ctx, region)
	if err != nil {
		return fmt.Errorf("read servants: %w", err)
	}
	quests, err := catalog.Quests(ctx, region)
	if err != nil {
		return fmt.Errorf("read quests: %w", err)
	}
	return fetch.WriteJSON(dir, region, servants, quests)
}
