// Package store provides in-memory Catalog implementations.
package store

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/bondcalc/bond-engine/bond"
	"github.com/bondcalc/bond-engine/factory"
)

// =============================================================================
// MEMORY CATALOG - In-memory implementation (for testing/dev and static files)
// =============================================================================

type Memory struct {
	mu        sync.RWMutex
	servants  map[bond.Region][]bond.Servant
	quests    map[bond.Region][]bond.Quest
	refreshes []bond.RefreshRun
}

func NewMemory() *Memory {
	return &Memory{
		servants: make(map[bond.Region][]bond.Servant),
		quests:   make(map[bond.Region][]bond.Quest),
	}
}

// ReplaceCatalog swaps a region's servants and quests in one step.
func (m *Memory) ReplaceCatalog(_ context.Context, region bond.Region, servants []bond.Servant, quests []bond.Quest) error {
	s := append([]bond.Servant(nil), servants...)
	sort.SliceStable(s, func(i, j int) bool { return s[i].CollectionNo < s[j].CollectionNo })
	q := append([]bond.Quest(nil), quests...)
	sort.SliceStable(q, func(i, j int) bool { return q[i].ID < q[j].ID })

	m.mu.Lock()
	defer m.mu.Unlock()
	m.servants[region] = s
	m.quests[region] = q
	return nil
}

// RecordRefresh adds run to the history, or replaces the entry with the
// same ID in place.
func (m *Memory) RecordRefresh(_ context.Context, run bond.RefreshRun) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.refreshes {
		if m.refreshes[i].ID == run.ID {
			m.refreshes[i] = run
			return nil
		}
	}
	m.refreshes = append(m.refreshes, run)
	return nil
}

// Refreshes returns the most recent runs first.
func (m *Memory) Refreshes(_ context.Context, limit int) ([]bond.RefreshRun, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]bond.RefreshRun, 0, len(m.refreshes))
	for i := len(m.refreshes) - 1; i >= 0; i-- {
		out = append(out, m.refreshes[i])
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

// =============================================================================
// CATALOG READS
// =============================================================================

func (m *Memory) Servants(_ context.Context, region bond.Region) ([]bond.Servant, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]bond.Servant(nil), m.servants[region]...), nil
}

func (m *Memory) Servant(_ context.Context, region bond.Region, id int) (*bond.Servant, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, s := range m.servants[region] {
		if s.ID == id {
			s := s
			return &s, nil
		}
	}
	return nil, &bond.NotFoundError{Kind: "servant", Region: region, ID: id}
}

func (m *Memory) Quests(_ context.Context, region bond.Region) ([]bond.Quest, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]bond.Quest(nil), m.quests[region]...), nil
}

func (m *Memory) Quest(_ context.Context, region bond.Region, id int) (*bond.Quest, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	quests := m.quests[region]
	i := sort.Search(len(quests), func(i int) bool { return quests[i].ID >= id })
	if i < len(quests) && quests[i].ID == id {
		q := quests[i]
		return &q, nil
	}
	return nil, &bond.NotFoundError{Kind: "quest", Region: region, ID: id}
}

// =============================================================================
// STATIC FILES
// =============================================================================

// LoadFiles reads servants[_jp].json and quests[_jp].json from dir for
// both regions. Missing files are skipped; a region is only replaced
// when its servants file exists.
func (m *Memory) LoadFiles(ctx context.Context, dir string) (*factory.Report, error) {
	total := &factory.Report{}
	for _, region := range []bond.Region{bond.RegionNA, bond.RegionJP} {
		servantsRaw, err := readOptional(filepath.Join(dir, "servants"+region.FileSuffix()+".json"))
		if err != nil {
			return nil, err
		}
		if servantsRaw == nil {
			continue
		}
		servants, report, err := factory.ParseLocalServants(servantsRaw)
		if err != nil {
			return nil, fmt.Errorf("load %s servants: %w", region, err)
		}
		total.Merge(report)

		var quests []bond.Quest
		questsRaw, err := readOptional(filepath.Join(dir, "quests"+region.FileSuffix()+".json"))
		if err != nil {
			return nil, err
		}
		if questsRaw != nil {
			quests, report, err = factory.ParseLocalQuests(questsRaw)
			if err != nil {
				return nil, fmt.Errorf("load %s quests: %w", region, err)
			}
			total.Merge(report)
		}

		if err := m.ReplaceCatalog(ctx, region, servants, quests); err != nil {
			return nil, err
		}
	}
	return total, nil
}

func readOptional(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return data, nil
}
