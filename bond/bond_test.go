package bond_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bondcalc/bond-engine/bond"
	"github.com/bondcalc/bond-engine/generic"
)

// =============================================================================
// TEST SETUP
// =============================================================================

type fakeCatalog struct {
	servants []bond.Servant
	calls    int
}

func (f *fakeCatalog) Servants(context.Context, bond.Region) ([]bond.Servant, error) {
	f.calls++
	return f.servants, nil
}

func (f *fakeCatalog) Servant(_ context.Context, region bond.Region, id int) (*bond.Servant, error) {
	return nil, &bond.NotFoundError{Kind: "servant", Region: region, ID: id}
}

func (f *fakeCatalog) Quests(context.Context, bond.Region) ([]bond.Quest, error) {
	return nil, nil
}

func (f *fakeCatalog) Quest(_ context.Context, region bond.Region, id int) (*bond.Quest, error) {
	return nil, &bond.NotFoundError{Kind: "quest", Region: region, ID: id}
}

func testServants() []bond.Servant {
	return []bond.Servant{
		{ID: 800100, CollectionNo: 1, Name: "Mash Kyrielight", ClassName: "shielder", BondGrowth: generic.MilestoneTable{1000, 2500}},
		{ID: 100100, CollectionNo: 2, Name: "Altria Pendragon", ClassName: "saber", BondGrowth: generic.MilestoneTable{1000, 2500}},
		{ID: 301900, CollectionNo: 119, Name: "Altria Pendragon (Lancer)", ClassName: "lancer", BondGrowth: generic.MilestoneTable{1000, 2500}},
	}
}

// =============================================================================
// REGION
// =============================================================================

func TestParseRegion(t *testing.T) {
	for in, want := range map[string]bond.Region{"": bond.RegionNA, "na": bond.RegionNA, " JP ": bond.RegionJP} {
		got, err := bond.ParseRegion(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := bond.ParseRegion("kr")
	assert.ErrorIs(t, err, generic.ErrInvalidInput)

	assert.Equal(t, "_jp", bond.RegionJP.FileSuffix())
	assert.Equal(t, "", bond.RegionNA.FileSuffix())
}

// =============================================================================
// SERVANTS AND QUESTS
// =============================================================================

func TestServant_LevelOptions(t *testing.T) {
	s := bond.Servant{BondGrowth: generic.MilestoneTable{1000, 2500, 4500}}

	opts := s.LevelOptions()

	require.Len(t, opts, 4)
	assert.Equal(t, "Bond 0 (0 pts)", opts[0].Label)
	assert.Equal(t, 2, opts[2].Level)
	assert.Equal(t, 2500, opts[2].Points)
	assert.Equal(t, "Bond 2 (2,500 pts)", opts[2].Label)
}

func TestServant_ClassLabel(t *testing.T) {
	assert.Equal(t, "Saber", bond.Servant{ClassName: "saber"}.ClassLabel())
	assert.Equal(t, "AlterEgo", bond.Servant{ClassName: "alterEgo"}.ClassLabel())
	assert.Equal(t, "", bond.Servant{}.ClassLabel())
}

func TestQuest_BaseBondUsesLowestPhase(t *testing.T) {
	q := bond.Quest{Bond: map[int]int{3: 1200, 1: 815, 2: 900}}
	assert.Equal(t, 815, q.BaseBond())

	assert.Equal(t, 0, bond.Quest{}.BaseBond())
}

func TestQuest_Farmable(t *testing.T) {
	q := bond.Quest{QuestType: "free", ConsumeType: "ap", AfterClear: "repeatLast"}
	assert.True(t, q.Farmable())

	q.AfterClear = "resetInterval"
	assert.True(t, q.Farmable())

	q.AfterClear = "close"
	assert.False(t, q.Farmable())

	q = bond.Quest{QuestType: "main", ConsumeType: "ap", AfterClear: "repeatLast"}
	assert.False(t, q.Farmable())
}

func TestQuest_ActivityCarriesCap(t *testing.T) {
	q := bond.Quest{
		ID:          94000001,
		Name:        "Bleached Earth 90**",
		SpotName:    "Frozen Field",
		WarLongName: "Lostbelt No.1",
		AP:          40,
		Bond:        map[int]int{1: 3797},
		Capped:      true,
	}

	a := q.Activity()

	assert.Equal(t, "94000001", a.ID)
	assert.Equal(t, "Frozen Field (LB1 - Anastasia)", a.Name)
	assert.Equal(t, 40, a.Cost)
	assert.Equal(t, 3797, a.BaseYield)
	assert.True(t, a.Capped)
}

func TestFarmableQuests_DropsQuestsWithoutBond(t *testing.T) {
	farm := bond.Quest{ID: 1, QuestType: "free", ConsumeType: "ap", AfterClear: "repeatLast", Bond: map[int]int{1: 815}}
	noBond := bond.Quest{ID: 2, QuestType: "free", ConsumeType: "ap", AfterClear: "repeatLast"}
	story := bond.Quest{ID: 3, QuestType: "main", ConsumeType: "ap", AfterClear: "close", Bond: map[int]int{1: 500}}

	got := bond.FarmableQuests([]bond.Quest{farm, noBond, story})

	require.Len(t, got, 1)
	assert.Equal(t, 1, got[0].ID)
}

func TestIsBleachedEarth(t *testing.T) {
	assert.True(t, bond.IsBleachedEarth("", "Bleached Earth Quest"))
	assert.False(t, bond.IsBleachedEarth("Daily Quest", "Extreme"))
}

func TestWarDisplayName(t *testing.T) {
	cases := map[string]string{
		"Lostbelt No.5.5: Ancient Ocean of the Dreadnought Gods, Atlantis": "LB5.1 - Atlantis",
		"Pseudo-Singularity I: Quarantined Territory of Malice, Shinjuku":  "EoR 1 - Shinjuku",
		"Epic of Remnant II: Subterranean World Agartha":                    "EoR 2 - Agartha",
		"Pseudo-Parallel World: Shimousa":                                   "EoR 3 - Shimousa",
		"Pseudo-Singularity IV: Forbidden Advent Salem":                     "EoR 4 - Salem",
		"Singularity F":                                                     "Singularity F - Fuyuki",
		"Lostbelt No.6":                                                     "LB6 - Avalon le Fae",
		"Some Event War":                                                    "Some Event War",
	}
	for in, want := range cases {
		assert.Equal(t, want, bond.WarDisplayName(in), in)
	}
}

func TestFormatNumber(t *testing.T) {
	assert.Equal(t, "0", bond.FormatNumber(0))
	assert.Equal(t, "999", bond.FormatNumber(999))
	assert.Equal(t, "1,000", bond.FormatNumber(1000))
	assert.Equal(t, "1,234,567", bond.FormatNumber(1234567))
	assert.Equal(t, "-1,000", bond.FormatNumber(-1000))
}

// =============================================================================
// PRESETS
// =============================================================================

func TestPresetGroups_EmbeddedDataIsValid(t *testing.T) {
	groups := bond.PresetGroups()

	require.Len(t, groups, 4)
	assert.Equal(t, "Dailies", groups[0].Label)
	assert.Equal(t, "Bleached Earth", groups[2].Label)
	for _, p := range groups[2].Presets {
		assert.True(t, p.Capped, p.Key)
	}
	for _, p := range groups[1].Presets {
		assert.False(t, p.Capped, p.Key)
	}
}

func TestLookupPreset(t *testing.T) {
	p, ok := bond.LookupPreset("free_quest_80")
	require.True(t, ok)
	assert.Equal(t, 21, p.AP)
	assert.Equal(t, 815, p.Bond)
	assert.Equal(t, "Free Quest Lv80 (21 AP)", p.Label())

	_, ok = bond.LookupPreset("missing")
	assert.False(t, ok)
}

func TestParsePresets_RejectsBadData(t *testing.T) {
	_, err := bond.ParsePresets([]byte("groups:\n  - label: A\n    presets:\n      - key: a\n        ap: 0\n        bond: 10\n"))
	assert.Error(t, err)

	_, err = bond.ParsePresets([]byte("groups:\n  - label: A\n    presets:\n      - {key: a, ap: 1, bond: 1}\n      - {key: a, ap: 1, bond: 1}\n"))
	assert.Error(t, err)

	_, err = bond.ParsePresets([]byte("groups: ["))
	assert.Error(t, err)
}

func TestPreset_BleachedEarthCountsDaysByClears(t *testing.T) {
	// GIVEN: 35,000 points left and the best Bleached Earth quest
	p, ok := bond.LookupPreset("bleached_90ss")
	require.True(t, ok)

	// WHEN: Estimating with the game's constants
	est, err := bond.Estimator().Estimate(35000, p.Activity(), generic.NoModifiers())
	require.NoError(t, err)

	// THEN: 10 runs at 3 clears per day
	assert.Equal(t, 3797, est.BondPerRun)
	assert.Equal(t, 10, est.RunsNeeded)
	assert.Equal(t, 400, est.TotalCost)
	assert.Equal(t, 4, est.DaysNeeded)
	assert.True(t, est.Capped)
}

// =============================================================================
// SEARCH
// =============================================================================

func TestSearchIndex_FuzzyMatch(t *testing.T) {
	idx, err := bond.NewSearchIndex(&fakeCatalog{servants: testServants()}, 0)
	require.NoError(t, err)

	got, err := idx.Search(context.Background(), bond.RegionNA, "mash", 0)
	require.NoError(t, err)
	require.NotEmpty(t, got)
	assert.Equal(t, "Mash Kyrielight", got[0].Name)

	got, err = idx.Search(context.Background(), bond.RegionNA, "Altria", 0)
	require.NoError(t, err)
	assert.Len(t, got, 2)

	got, err = idx.Search(context.Background(), bond.RegionNA, "lancer", 0)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 119, got[0].CollectionNo)
}

func TestSearchIndex_EmptyQueryListsAll(t *testing.T) {
	idx, err := bond.NewSearchIndex(&fakeCatalog{servants: testServants()}, 0)
	require.NoError(t, err)

	got, err := idx.Search(context.Background(), bond.RegionNA, "  ", 2)
	require.NoError(t, err)

	require.Len(t, got, 2)
	assert.Equal(t, 1, got[0].CollectionNo)
	assert.Equal(t, 2, got[1].CollectionNo)
}

func TestSearchIndex_CachesUntilInvalidated(t *testing.T) {
	catalog := &fakeCatalog{servants: testServants()}
	idx, err := bond.NewSearchIndex(catalog, 8)
	require.NoError(t, err)
	ctx := context.Background()

	_, err = idx.Search(ctx, bond.RegionNA, "mash", 0)
	require.NoError(t, err)
	_, err = idx.Search(ctx, bond.RegionNA, "MASH ", 0)
	require.NoError(t, err)
	assert.Equal(t, 1, catalog.calls)

	idx.Invalidate()
	_, err = idx.Search(ctx, bond.RegionNA, "mash", 0)
	require.NoError(t, err)
	assert.Equal(t, 2, catalog.calls)
}

func TestSearchIndex_ResultsAreCallerOwned(t *testing.T) {
	catalog := &fakeCatalog{servants: testServants()}
	idx, err := bond.NewSearchIndex(catalog, 8)
	require.NoError(t, err)
	ctx := context.Background()

	all, err := idx.Search(ctx, bond.RegionNA, "", 0)
	require.NoError(t, err)
	all[0].Name = "Changed"

	found, err := idx.Search(ctx, bond.RegionNA, "mash", 0)
	require.NoError(t, err)
	require.NotEmpty(t, found)
	found[0].Name = "Changed"

	again, err := idx.Search(ctx, bond.RegionNA, "", 0)
	require.NoError(t, err)
	assert.Equal(t, "Mash Kyrielight", again[0].Name)
	assert.Equal(t, "Mash Kyrielight", catalog.servants[0].Name)

	again, err = idx.Search(ctx, bond.RegionNA, "mash", 0)
	require.NoError(t, err)
	assert.Equal(t, "Mash Kyrielight", again[0].Name)
}

func TestNotFoundError(t *testing.T) {
	err := error(&bond.NotFoundError{Kind: "servant", Region: bond.RegionJP, ID: 7})
	assert.True(t, bond.IsNotFound(err))
	assert.Equal(t, "servant 7 not found in JP catalog", err.Error())
}
