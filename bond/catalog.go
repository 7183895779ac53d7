/*
catalog.go - Catalog provider interface

PURPOSE:
  Source of servants and quests for a region. The engine never reads the
  catalog itself; callers look up a servant's bond table and a quest's
  activity and pass plain values to the engine.

IMPLEMENTATIONS:
  - bond/store/memory.go: In-memory, loaded from the cached JSON files
  - store/sqlite/sqlite.go: SQLite cache filled by the fetch refresher

SEE ALSO:
  - search.go: Fuzzy servant search over a Catalog
  - fetch/: Downloads and refreshes the catalog
*/
package bond

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrNotFound is returned when a catalog lookup has no match.
var ErrNotFound = errors.New("not found")

// NotFoundError names the missing record.
type NotFoundError struct {
	Kind   string
	Region Region
	ID     int
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %d not found in %s catalog", e.Kind, e.ID, e.Region)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// IsNotFound reports whether err is a catalog miss.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// =============================================================================
// CATALOG - Read side
// =============================================================================

// Catalog provides servants and quests per region.
type Catalog interface {
	// Servants returns all servants ordered by collection number.
	Servants(ctx context.Context, region Region) ([]Servant, error)

	// Servant looks up a servant by its Atlas id.
	Servant(ctx context.Context, region Region, id int) (*Servant, error)

	// Quests returns all quests ordered by id.
	Quests(ctx context.Context, region Region) ([]Quest, error)

	// Quest looks up a quest by id.
	Quest(ctx context.Context, region Region, id int) (*Quest, error)
}

// FarmableQuests filters a quest list to those repeatable for AP.
func FarmableQuests(quests []Quest) []Quest {
	out := make([]Quest, 0, len(quests))
	for _, q := range quests {
		if q.Farmable() && q.BaseBond() > 0 {
			out = append(out, q)
		}
	}
	return out
}

// =============================================================================
// REFRESH RUNS - History of catalog downloads
// =============================================================================

// RefreshRun records one catalog refresh.
type RefreshRun struct {
	ID         string    `json:"id"`
	Region     Region    `json:"region"`
	StartedAt  time.Time `json:"startedAt"`
	FinishedAt time.Time `json:"finishedAt"`
	Servants   int       `json:"servants"`
	Quests     int       `json:"quests"`
	Skipped    int       `json:"skipped"`
	Error      string    `json:"error,omitempty"`
}

// Succeeded reports whether the run completed without error.
func (r RefreshRun) Succeeded() bool {
	return r.Error == ""
}
