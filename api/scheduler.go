/*
scheduler.go - Automated catalog refresh scheduler

PURPOSE:
  Periodically downloads every configured region so the servant and quest
  catalog follows game updates without a restart.

DESIGN:
  - Runs a background goroutine with configurable refresh interval
  - Refreshes regions one after another; a failed region does not stop
    the others
  - Every attempt is recorded by the Refresher for the admin history

CONFIGURATION:
  - Interval:   How often to refresh (catalog.refresh_interval, default 24h)
  - RunOnStart: Refresh once immediately (catalog.refresh_on_start)
  - Enabled:    Whether the scheduler is active (interval > 0)

USAGE:
  scheduler := NewRefreshScheduler(refresher, regions, logger)
  scheduler.Start()
  // ... later
  scheduler.Stop()

SEE ALSO:
  - handlers.go: TriggerRefresh endpoint (manual refresh)
  - fetch/refresh.go: Refresher
*/
package api

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/bondcalc/bond-engine/bond"
)

// RefreshScheduler handles automated catalog refreshes.
type RefreshScheduler struct {
	Refresher  CatalogRefresher
	Regions    []bond.Region
	Interval   time.Duration
	RunOnStart bool
	Enabled    bool

	// Timeout bounds one pass over all regions.
	Timeout time.Duration

	logger *zap.Logger
	ticker *time.Ticker
	stop   chan struct{}
	wg     sync.WaitGroup
	mu     sync.Mutex
}

// NewRefreshScheduler creates a new scheduler.
func NewRefreshScheduler(refresher CatalogRefresher, regions []bond.Region, logger *zap.Logger) *RefreshScheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RefreshScheduler{
		Refresher: refresher,
		Regions:   regions,
		Interval:  24 * time.Hour,
		Enabled:   true,
		Timeout:   10 * time.Minute,
		logger:    logger.Named("scheduler"),
		stop:      make(chan struct{}),
	}
}

// Start begins the scheduler.
func (rs *RefreshScheduler) Start() {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	if !rs.Enabled || rs.Interval <= 0 {
		rs.logger.Info("disabled, not starting")
		return
	}
	if rs.ticker != nil {
		return
	}

	rs.ticker = time.NewTicker(rs.Interval)
	rs.wg.Add(1)

	go rs.run()

	rs.logger.Info("started", zap.Duration("interval", rs.Interval), zap.Int("regions", len(rs.Regions)))
}

// Stop stops the scheduler and waits for a running pass to finish.
func (rs *RefreshScheduler) Stop() {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	if rs.ticker != nil {
		rs.ticker.Stop()
		close(rs.stop)
		rs.wg.Wait()
		rs.ticker = nil
		rs.logger.Info("stopped")
	}
}

func (rs *RefreshScheduler) run() {
	defer rs.wg.Done()

	if rs.RunOnStart {
		rs.RunNow()
	}

	for {
		select {
		case <-rs.ticker.C:
			rs.RunNow()
		case <-rs.stop:
			return
		}
	}
}

// RunNow refreshes every region once and returns the number that
// succeeded. A Stop during the pass cancels the remaining downloads.
func (rs *RefreshScheduler) RunNow() int {
	ctx, cancel := context.WithTimeout(context.Background(), rs.Timeout)
	defer cancel()

	go func() {
		select {
		case <-rs.stop:
			cancel()
		case <-ctx.Done():
		}
	}()

	ok := 0
	for _, region := range rs.Regions {
		if ctx.Err() != nil {
			break
		}
		if _, err := rs.Refresher.Refresh(ctx, region); err != nil {
			rs.logger.Warn("region refresh failed", zap.String("region", string(region)), zap.Error(err))
			continue
		}
		ok++
	}

	rs.logger.Info("refresh pass completed", zap.Int("succeeded", ok), zap.Int("regions", len(rs.Regions)))
	return ok
}
