/*
main.go - Catalog download tool

PURPOSE:
  Downloads the servant and quest catalog for one or more regions and
  writes servants[_jp].json and quests[_jp].json into the data directory.
  When a database path is configured, the SQLite cache is replaced too.

COMMAND-LINE FLAGS:
  -config  Path to a YAML/TOML config file (optional)
  -region  NA, JP or "all" (default: all configured regions)
  -out     Output directory (default: catalog.data_dir)

EXIT STATUS:
  Non-zero when any region failed. Regions that succeeded keep their
  new files.

EXAMPLES:
  ./fetch -region=jp
  BONDCALC_DATABASE_PATH=./data/bond.db ./fetch

SEE ALSO:
  - fetch/client.go: Downloads
  - fetch/refresh.go: Refresher and WriteJSON
*/
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/bondcalc/bond-engine/bond"
	"github.com/bondcalc/bond-engine/bond/store"
	"github.com/bondcalc/bond-engine/config"
	"github.com/bondcalc/bond-engine/fetch"
	"github.com/bondcalc/bond-engine/observability"
	"github.com/bondcalc/bond-engine/store/sqlite"
)

func main() {
	configPath := flag.String("config", "", "config file path")
	regionFlag := flag.String("region", "all", "region to download: NA, JP or all")
	outDir := flag.String("out", "", "output directory (default: catalog.data_dir)")
	flag.Parse()

	if err := run(*configPath, *regionFlag, *outDir); err != nil {
		fmt.Fprintf(os.Stderr, "fetch: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath, regionFlag, outDir string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if outDir == "" {
		outDir = cfg.Catalog.DataDir
	}

	logger, err := observability.NewLogger(cfg.Logging)
	if err != nil {
		return err
	}
	defer logger.Sync()

	regions, err := selectRegions(cfg.Catalog, regionFlag)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	mem := store.NewMemory()
	writers := teeWriter{mem}
	if cfg.Database.Path != "" {
		db, err := sqlite.New(cfg.Database.Path)
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer db.Close()
		writers = append(writers, db)
	}

	client := fetch.NewClientFromConfig(cfg.Catalog, logger.Named("fetch"))
	refresher := fetch.NewRefresher(client, writers, logger.Named("refresh"))

	var errs []error
	for _, region := range regions {
		result, err := refresher.Refresh(ctx, region)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", region, err))
			continue
		}

		servants, _ := mem.Servants(ctx, region)
		quests, _ := mem.Quests(ctx, region)
		if err := fetch.WriteJSON(outDir, region, servants, quests); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", region, err))
			continue
		}
		fmt.Printf("%s: %d servants, %d quests, %d skipped -> %s\n",
			region, result.Servants, result.Quests, result.Skipped, outDir)
	}
	return errors.Join(errs...)
}

func selectRegions(cfg config.CatalogConfig, flagValue string) ([]bond.Region, error) {
	if strings.EqualFold(flagValue, "all") || flagValue == "" {
		return cfg.ParsedRegions()
	}
	region, err := bond.ParseRegion(flagValue)
	if err != nil {
		return nil, err
	}
	return []bond.Region{region}, nil
}

// teeWriter sends every write to each writer in order.
type teeWriter []fetch.CatalogWriter

func (t teeWriter) ReplaceCatalog(ctx context.Context, region bond.Region, servants []bond.Servant, quests []bond.Quest) error {
	for _, w := range t {
		if err := w.ReplaceCatalog(ctx, region, servants, quests); err != nil {
			return err
		}
	}
	return nil
}

func (t teeWriter) RecordRefresh(ctx context.Context, run bond.RefreshRun) error {
	for _, w := range t {
		if err := w.RecordRefresh(ctx, run); err != nil {
			return err
		}
	}
	return nil
}
