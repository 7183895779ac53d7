package fetch

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/bondcalc/bond-engine/bond"
	"github.com/bondcalc/bond-engine/factory"
)

// Source downloads a region's catalog. *Client is the production Source.
type Source interface {
	FetchServants(ctx context.Context, region bond.Region) ([]bond.Servant, *factory.Report, error)
	FetchQuests(ctx context.Context, region bond.Region) ([]bond.Quest, *factory.Report, error)
}

// CatalogWriter stores refreshed catalogs and the refresh history.
type CatalogWriter interface {
	ReplaceCatalog(ctx context.Context, region bond.Region, servants []bond.Servant, quests []bond.Quest) error
	RecordRefresh(ctx context.Context, run bond.RefreshRun) error
}

// =============================================================================
// REFRESHER
// =============================================================================

// Refresher downloads a region and replaces it in a CatalogWriter.
// Refreshes are serialized; a second call waits for the first.
type Refresher struct {
	source Source
	writer CatalogWriter
	logger *zap.Logger

	mu        sync.Mutex
	listeners []func(bond.Region)

	// Now is the clock used for run timestamps.
	Now func() time.Time
}

func NewRefresher(source Source, writer CatalogWriter, logger *zap.Logger) *Refresher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Refresher{
		source: source,
		writer: writer,
		logger: logger,
		Now:    time.Now,
	}
}

// OnRefresh registers fn to run after every successful refresh.
func (r *Refresher) OnRefresh(fn func(bond.Region)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.listeners = append(r.listeners, fn)
}

// Refresh downloads region and replaces its catalog. The returned run is
// also recorded in the writer, failed or not.
func (r *Refresher) Refresh(ctx context.Context, region bond.Region) (bond.RefreshRun, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	run := bond.RefreshRun{
		ID:        uuid.NewString(),
		Region:    region,
		StartedAt: r.Now(),
	}
	log := r.logger.With(zap.String("refresh_id", run.ID), zap.String("region", string(region)))
	log.Info("catalog refresh started")

	if err := r.writer.RecordRefresh(ctx, run); err != nil {
		return run, fmt.Errorf("record refresh start: %w", err)
	}

	servants, quests, skipped, err := r.download(ctx, region)
	if err == nil {
		err = r.writer.ReplaceCatalog(ctx, region, servants, quests)
	}

	run.FinishedAt = r.Now()
	run.Servants = len(servants)
	run.Quests = len(quests)
	run.Skipped = skipped
	if err != nil {
		run.Error = err.Error()
	}
	// record the outcome even when ctx was cancelled mid-refresh
	if recErr := r.writer.RecordRefresh(context.WithoutCancel(ctx), run); recErr != nil {
		log.Error("recording refresh result failed", zap.Error(recErr))
	}

	if err != nil {
		log.Error("catalog refresh failed", zap.Error(err))
		return run, err
	}

	log.Info("catalog refresh finished",
		zap.Int("servants", run.Servants),
		zap.Int("quests", run.Quests),
		zap.Int("skipped", run.Skipped),
		zap.Duration("elapsed", run.FinishedAt.Sub(run.StartedAt)),
	)
	for _, fn := range r.listeners {
		fn(region)
	}
	return run, nil
}

func (r *Refresher) download(ctx context.Context, region bond.Region) ([]bond.Servant, []bond.Quest, int, error) {
	var (
		servants   []bond.Servant
		quests     []bond.Quest
		sRep, qRep *factory.Report
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		servants, sRep, err = r.source.FetchServants(gctx, region)
		return err
	})
	g.Go(func() error {
		var err error
		quests, qRep, err = r.source.FetchQuests(gctx, region)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, nil, 0, err
	}

	total := &factory.Report{}
	total.Merge(sRep)
	total.Merge(qRep)
	return servants, quests, len(total.Skipped), nil
}

// =============================================================================
// STATIC FILES
// =============================================================================

// WriteJSON writes servants[_jp].json and quests[_jp].json into dir,
// the files bond/store.Memory.LoadFiles reads back.
func WriteJSON(dir string, region bond.Region, servants []bond.Servant, quests []bond.Quest) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}
	// LoadFiles rejects "null"
	if servants == nil {
		servants = []bond.Servant{}
	}
	if quests == nil {
		quests = []bond.Quest{}
	}
	if err := writeIndented(filepath.Join(dir, "servants"+region.FileSuffix()+".json"), servants); err != nil {
		return err
	}
	return writeIndented(filepath.Join(dir, "quests"+region.FileSuffix()+".json"), quests)
}

func writeIndented(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}
	// write then rename so readers never see a partial file
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return os.Rename(tmp, path)
}
