/*
Package sqlite provides a SQLite-backed catalog cache.

PURPOSE:
  Keeps the last downloaded servant and quest catalog per region so the
  server can answer lookups without hitting Atlas Academy, and records
  every refresh run for the admin endpoints.

INTERFACES IMPLEMENTED:
  bond.Catalog:        Servant and quest lookups
  fetch.CatalogWriter: Catalog replacement and refresh history

KEY TABLES:
  servants:          One row per (region, servant id), bond table as JSON
  quests:            One row per (region, quest id), bond per phase as JSON
  catalog_refreshes: History of refresh runs

REPLACEMENT:
  ReplaceCatalog deletes and reinserts a region's rows in one SQL
  transaction. Readers see either the old or the new catalog.

CONCURRENCY:
  Uses sync.RWMutex for thread-safety on top of SQLite's own locking.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging):
  - Multiple readers don't block
  - Single writer at a time

USAGE:
  store, err := sqlite.New("./data/catalog.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

  refresher := fetch.NewRefresher(client, store, logger)

SEE ALSO:
  - bond/catalog.go: Catalog interface
  - bond/store/memory.go: In-memory implementation
  - fetch/refresh.go: Fills this store
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/bondcalc/bond-engine/bond"
)

// timeLayout has fixed-width fractions so stored times sort as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Store implements the catalog interfaces using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// every :memory: connection is a separate database
	if dbPath == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS servants (
		region TEXT NOT NULL,
		id INTEGER NOT NULL,
		collection_no INTEGER NOT NULL,
		name TEXT NOT NULL,
		class_name TEXT NOT NULL,
		rarity INTEGER NOT NULL,
		cost INTEGER NOT NULL,
		bond_growth_json TEXT NOT NULL,
		traits_json TEXT,
		PRIMARY KEY (region, id)
	);

	CREATE INDEX IF NOT EXISTS idx_servants_region_collection
		ON servants(region, collection_no);

	CREATE TABLE IF NOT EXISTS quests (
		region TEXT NOT NULL,
		id INTEGER NOT NULL,
		name TEXT NOT NULL,
		spot_name TEXT,
		war_long_name TEXT,
		quest_type TEXT NOT NULL,
		consume_type TEXT,
		after_clear TEXT,
		ap INTEGER NOT NULL,
		bond_json TEXT NOT NULL,
		capped BOOLEAN NOT NULL DEFAULT FALSE,
		PRIMARY KEY (region, id)
	);

	CREATE TABLE IF NOT EXISTS catalog_refreshes (
		id TEXT PRIMARY KEY,
		region TEXT NOT NULL,
		started_at TEXT NOT NULL,
		finished_at TEXT,
		servants INTEGER NOT NULL DEFAULT 0,
		quests INTEGER NOT NULL DEFAULT 0,
		skipped INTEGER NOT NULL DEFAULT 0,
		error TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_refreshes_started
		ON catalog_refreshes(started_at DESC);
	`
	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// CATALOG WRITES
// =============================================================================

// ReplaceCatalog swaps a region's servants and quests atomically.
func (s *Store) ReplaceCatalog(ctx context.Context, region bond.Region, servants []bond.Servant, quests []bond.Quest) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	if _, err := sqlTx.ExecContext(ctx, "DELETE FROM servants WHERE region = ?", string(region)); err != nil {
		return fmt.Errorf("failed to clear servants: %w", err)
	}
	if _, err := sqlTx.ExecContext(ctx, "DELETE FROM quests WHERE region = ?", string(region)); err != nil {
		return fmt.Errorf("failed to clear quests: %w", err)
	}

	servantStmt, err := sqlTx.PrepareContext(ctx, `
		INSERT INTO servants (region, id, collection_no, name, class_name, rarity, cost, bond_growth_json, traits_json)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return err
	}
	defer servantStmt.Close()

	for _, sv := range servants {
		growth, err := json.Marshal(sv.BondGrowth)
		if err != nil {
			return err
		}
		traits, err := json.Marshal(sv.Traits)
		if err != nil {
			return err
		}
		if _, err := servantStmt.ExecContext(ctx,
			string(region), sv.ID, sv.CollectionNo, sv.Name, sv.ClassName,
			sv.Rarity, sv.Cost, string(growth), string(traits),
		); err != nil {
			return fmt.Errorf("failed to insert servant %d: %w", sv.ID, err)
		}
	}

	questStmt, err := sqlTx.PrepareContext(ctx, `
		INSERT INTO quests (region, id, name, spot_name, war_long_name, quest_type, consume_type, after_clear, ap, bond_json, capped)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return err
	}
	defer questStmt.Close()

	for _, q := range quests {
		bondJSON, err := json.Marshal(q.Bond)
		if err != nil {
			return err
		}
		if _, err := questStmt.ExecContext(ctx,
			string(region), q.ID, q.Name, nullString(q.SpotName), nullString(q.WarLongName),
			q.QuestType, nullString(q.ConsumeType), nullString(q.AfterClear),
			q.AP, string(bondJSON), q.Capped,
		); err != nil {
			return fmt.Errorf("failed to insert quest %d: %w", q.ID, err)
		}
	}

	return sqlTx.Commit()
}

// =============================================================================
// CATALOG READS
// =============================================================================

const servantColumns = "id, collection_no, name, class_name, rarity, cost, bond_growth_json, traits_json"

// Servants returns a region's servants ordered by collection number.
func (s *Store) Servants(ctx context.Context, region bond.Region) ([]bond.Servant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT "+servantColumns+" FROM servants WHERE region = ? ORDER BY collection_no, id",
		string(region),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var servants []bond.Servant
	for rows.Next() {
		sv, err := scanServant(rows)
		if err != nil {
			return nil, err
		}
		servants = append(servants, sv)
	}
	return servants, rows.Err()
}

// Servant looks up one servant.
func (s *Store) Servant(ctx context.Context, region bond.Region, id int) (*bond.Servant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx,
		"SELECT "+servantColumns+" FROM servants WHERE region = ? AND id = ?",
		string(region), id,
	)
	sv, err := scanServant(row)
	if err == sql.ErrNoRows {
		return nil, &bond.NotFoundError{Kind: "servant", Region: region, ID: id}
	}
	if err != nil {
		return nil, err
	}
	return &sv, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanServant(row scanner) (bond.Servant, error) {
	var sv bond.Servant
	var growth string
	var traits sql.NullString
	if err := row.Scan(&sv.ID, &sv.CollectionNo, &sv.Name, &sv.ClassName, &sv.Rarity, &sv.Cost, &growth, &traits); err != nil {
		return bond.Servant{}, err
	}
	if err := json.Unmarshal([]byte(growth), &sv.BondGrowth); err != nil {
		return bond.Servant{}, fmt.Errorf("servant %d: bad bond growth: %w", sv.ID, err)
	}
	if traits.Valid && traits.String != "null" {
		if err := json.Unmarshal([]byte(traits.String), &sv.Traits); err != nil {
			return bond.Servant{}, fmt.Errorf("servant %d: bad traits: %w", sv.ID, err)
		}
	}
	return sv, nil
}

const questColumns = "id, name, spot_name, war_long_name, quest_type, consume_type, after_clear, ap, bond_json, capped"

// Quests returns a region's quests ordered by id.
func (s *Store) Quests(ctx context.Context, region bond.Region) ([]bond.Quest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT "+questColumns+" FROM quests WHERE region = ? ORDER BY id",
		string(region),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var quests []bond.Quest
	for rows.Next() {
		q, err := scanQuest(rows)
		if err != nil {
			return nil, err
		}
		quests = append(quests, q)
	}
	return quests, rows.Err()
}

// Quest looks up one quest.
func (s *Store) Quest(ctx context.Context, region bond.Region, id int) (*bond.Quest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx,
		"SELECT "+questColumns+" FROM quests WHERE region = ? AND id = ?",
		string(region), id,
	)
	q, err := scanQuest(row)
	if err == sql.ErrNoRows {
		return nil, &bond.NotFoundError{Kind: "quest", Region: region, ID: id}
	}
	if err != nil {
		return nil, err
	}
	return &q, nil
}

func scanQuest(row scanner) (bond.Quest, error) {
	var q bond.Quest
	var spot, war, consume, after sql.NullString
	var bondJSON string
	if err := row.Scan(&q.ID, &q.Name, &spot, &war, &q.QuestType, &consume, &after, &q.AP, &bondJSON, &q.Capped); err != nil {
		return bond.Quest{}, err
	}
	q.SpotName = spot.String
	q.WarLongName = war.String
	q.ConsumeType = consume.String
	q.AfterClear = after.String
	if err := json.Unmarshal([]byte(bondJSON), &q.Bond); err != nil {
		return bond.Quest{}, fmt.Errorf("quest %d: bad bond map: %w", q.ID, err)
	}
	return q, nil
}

// =============================================================================
// REFRESH HISTORY
// =============================================================================

// RecordRefresh saves a refresh run. Saving the same id again updates it.
func (s *Store) RecordRefresh(ctx context.Context, r bond.RefreshRun) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `
		INSERT INTO catalog_refreshes (id, region, started_at, finished_at, servants, quests, skipped, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			finished_at = excluded.finished_at,
			servants = excluded.servants,
			quests = excluded.quests,
			skipped = excluded.skipped,
			error = excluded.error
	`

	var finishedAt *string
	if !r.FinishedAt.IsZero() {
		f := r.FinishedAt.UTC().Format(timeLayout)
		finishedAt = &f
	}

	_, err := s.db.ExecContext(ctx, query,
		r.ID, string(r.Region), r.StartedAt.UTC().Format(timeLayout), finishedAt,
		r.Servants, r.Quests, r.Skipped, nullString(r.Error),
	)
	return err
}

// Refreshes returns the most recent refresh runs first.
func (s *Store) Refreshes(ctx context.Context, limit int) ([]bond.RefreshRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `
		SELECT id, region, started_at, finished_at, servants, quests, skipped, error
		FROM catalog_refreshes
		ORDER BY started_at DESC
	`
	var args []any
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []bond.RefreshRun
	for rows.Next() {
		var r bond.RefreshRun
		var region, startedAt string
		var finishedAt, errText sql.NullString
		if err := rows.Scan(&r.ID, &region, &startedAt, &finishedAt, &r.Servants, &r.Quests, &r.Skipped, &errText); err != nil {
			return nil, err
		}
		r.Region = bond.Region(region)
		r.StartedAt, _ = time.Parse(timeLayout, startedAt)
		if finishedAt.Valid {
			r.FinishedAt, _ = time.Parse(timeLayout, finishedAt.String)
		}
		r.Error = errText.String
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// Helper functions

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
