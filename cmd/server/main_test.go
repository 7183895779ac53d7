package main

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bondcalc/bond-engine/bond"
	"github.com/bondcalc/bond-engine/bond/store"
	"github.com/bondcalc/bond-engine/fetch"
	"github.com/bondcalc/bond-engine/generic"
)

// brokenCatalog serves servants but fails every quest read.
type brokenCatalog struct {
	*store.Memory
}

func (brokenCatalog) Quests(context.Context, bond.Region) ([]bond.Quest, error) {
	return nil, errors.New("database is locked")
}

func testServants() []bond.Servant {
	return []bond.Servant{
		{ID: 100100, CollectionNo: 2, Name: "Altria Pendragon", ClassName: "saber", Cost: 16,
			BondGrowth: generic.MilestoneTable{1000, 3000}},
	}
}

func TestWriteCatalogCache(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	mem := store.NewMemory()
	require.NoError(t, mem.ReplaceCatalog(ctx, bond.RegionNA, testServants(), nil))

	require.NoError(t, writeCatalogCache(ctx, mem, dir, bond.RegionNA))

	loaded := store.NewMemory()
	_, err := loaded.LoadFiles(ctx, dir)
	require.NoError(t, err)
	servants, err := loaded.Servants(ctx, bond.RegionNA)
	require.NoError(t, err)
	assert.Len(t, servants, 1)
}

func TestWriteCatalogCache_ReadFailureKeepsFiles(t *testing.T) {
	// GIVEN: A good cache on disk
	ctx := context.Background()
	dir := t.TempDir()
	require.NoError(t, fetch.WriteJSON(dir, bond.RegionNA, testServants(), nil))

	// WHEN: The catalog fails to read quests
	broken := brokenCatalog{Memory: store.NewMemory()}
	err := writeCatalogCache(ctx, broken, dir, bond.RegionNA)

	// THEN: The error is returned and the cache is untouched
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database is locked")

	loaded := store.NewMemory()
	_, err = loaded.LoadFiles(ctx, dir)
	require.NoError(t, err)
	servants, err := loaded.Servants(ctx, bond.RegionNA)
	require.NoError(t, err)
	assert.Len(t, servants, 1)
}
