/*
handlers_test.go - Unit tests for API handlers

Tests for:
- Catalog endpoints (search, servant detail, quests, presets)
- Calculation endpoints and their error mapping
- Admin refresh endpoints
- Refresh scheduler
*/
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/bondcalc/bond-engine/bond"
	"github.com/bondcalc/bond-engine/bond/store"
	"github.com/bondcalc/bond-engine/generic"
)

// =============================================================================
// TEST SETUP
// =============================================================================

type fakeRefresher struct {
	mu      sync.Mutex
	regions []bond.Region
	err     error
}

func (f *fakeRefresher) Refresh(_ context.Context, region bond.Region) (bond.RefreshRun, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.regions = append(f.regions, region)
	run := bond.RefreshRun{ID: "run-1", Region: region, Servants: 2, Quests: 2}
	if f.err != nil {
		run.Error = f.err.Error()
	}
	return run, f.err
}

func (f *fakeRefresher) fail(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}

func (f *fakeRefresher) calls() []bond.Region {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]bond.Region(nil), f.regions...)
}

func setupServer(t *testing.T) (*httptest.Server, *Handler, *store.Memory) {
	t.Helper()
	ctx := context.Background()

	mem := store.NewMemory()
	require.NoError(t, mem.ReplaceCatalog(ctx, bond.RegionNA,
		[]bond.Servant{
			{ID: 800100, CollectionNo: 1, Name: "Mash Kyrielight", ClassName: "shielder", Rarity: 4, Cost: 0,
				BondGrowth: generic.MilestoneTable{1000, 3000, 6000, 10000, 15000}},
			{ID: 100100, CollectionNo: 2, Name: "Altria Pendragon", ClassName: "saber", Rarity: 5, Cost: 16,
				BondGrowth: generic.MilestoneTable{1000, 3000, 6000, 10000, 15000}},
		},
		[]bond.Quest{
			{ID: 93000001, Name: "Ochanomizu", SpotName: "Ochanomizu", WarLongName: "Singularity F",
				QuestType: "free", ConsumeType: "ap", AfterClear: "repeatLast", AP: 21, Bond: map[int]int{3: 815}},
			{ID: 94000001, Name: "Story Quest", QuestType: "main", ConsumeType: "ap", AfterClear: "close", AP: 10},
		},
	))

	search, err := bond.NewSearchIndex(mem, 16)
	require.NoError(t, err)

	h := NewHandler(mem, search, bond.Estimator(), zap.NewNop())
	h.Refreshes = mem

	srv := httptest.NewServer(NewRouter(h, nil))
	t.Cleanup(srv.Close)
	return srv, h, mem
}

func getJSON(t *testing.T, url string, out any) int {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func postJSON(t *testing.T, url string, body any, out any) int {
	t.Helper()
	data, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(url, "application/json", bytes.NewReader(data))
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func intPtr(n int) *int { return &n }

// =============================================================================
// CATALOG ENDPOINTS
// =============================================================================

func TestListServants_Search(t *testing.T) {
	srv, _, _ := setupServer(t)

	var all []ServantDTO
	assert.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/api/servants", &all))
	assert.Len(t, all, 2)

	var hits []ServantDTO
	assert.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/api/servants?q=altria&region=na", &hits))
	require.Len(t, hits, 1)
	assert.Equal(t, "Altria Pendragon", hits[0].Name)
	assert.Equal(t, "Saber", hits[0].ClassLabel)
	assert.Equal(t, 5, hits[0].MaxBondLevel)
	assert.Empty(t, hits[0].Levels)
}

func TestListServants_BadRegion(t *testing.T) {
	srv, _, _ := setupServer(t)

	var errResp ErrorResponse
	assert.Equal(t, http.StatusBadRequest, getJSON(t, srv.URL+"/api/servants?region=kr", &errResp))
	assert.Contains(t, errResp.Error, "region")
}

func TestGetServant(t *testing.T) {
	srv, _, _ := setupServer(t)

	var s ServantDTO
	assert.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/api/servants/100100", &s))
	require.Len(t, s.Levels, 6)
	assert.Equal(t, "Bond 0 (0 pts)", s.Levels[0].Label)
	assert.Equal(t, "Bond 5 (15,000 pts)", s.Levels[5].Label)
}

func TestGetServant_NotFound(t *testing.T) {
	srv, _, _ := setupServer(t)

	assert.Equal(t, http.StatusNotFound, getJSON(t, srv.URL+"/api/servants/1", nil))
	// JP catalog is empty in this fixture
	assert.Equal(t, http.StatusNotFound, getJSON(t, srv.URL+"/api/servants/100100?region=jp", nil))
	assert.Equal(t, http.StatusBadRequest, getJSON(t, srv.URL+"/api/servants/abc", nil))
}

func TestListQuests_Farmable(t *testing.T) {
	srv, _, _ := setupServer(t)

	var all []QuestDTO
	assert.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/api/quests", &all))
	assert.Len(t, all, 2)

	var farmable []QuestDTO
	assert.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/api/quests?farmable=true", &farmable))
	require.Len(t, farmable, 1)
	assert.Equal(t, 815, farmable[0].BaseBond)
	assert.Equal(t, "Ochanomizu (Singularity F - Fuyuki)", farmable[0].DisplayName)
}

func TestListPresets(t *testing.T) {
	srv, _, _ := setupServer(t)

	var groups []PresetGroupDTO
	assert.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/api/presets", &groups))
	require.Len(t, groups, 4)
	assert.Equal(t, "Bleached Earth", groups[2].Label)
	for _, p := range groups[2].Presets {
		assert.True(t, p.Capped, p.Key)
	}
}

// =============================================================================
// CALCULATION ENDPOINTS
// =============================================================================

func TestPointsNeeded_WithPointsLeft(t *testing.T) {
	srv, _, _ := setupServer(t)

	// GIVEN: Bond 2 with 1,000 left of the 3,000 step to Bond 3
	req := PointsNeededRequest{
		TableSource: TableSource{ServantID: intPtr(100100)},
		Current:     LevelSelectionDTO{Level: 2, PointsLeft: 1000},
		TargetLevel: 3,
	}

	// WHEN: Resolving
	var resp PointsNeededDTO
	status := postJSON(t, srv.URL+"/api/bond/points-needed", req, &resp)

	// THEN: Only the points left remain
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, 1000, resp.PointsNeeded)
	assert.Equal(t, 3000, resp.PointsToNext)
	assert.Equal(t, 5, resp.MaxLevel)
}

func TestPointsNeeded_ExplicitTable(t *testing.T) {
	srv, _, _ := setupServer(t)

	req := PointsNeededRequest{
		TableSource: TableSource{Milestones: []int{1000, 2500, 4500}},
		Current:     LevelSelectionDTO{Level: 2, PointsLeft: 300},
		TargetLevel: 3,
	}
	var resp PointsNeededDTO
	assert.Equal(t, http.StatusOK, postJSON(t, srv.URL+"/api/bond/points-needed", req, &resp))
	assert.Equal(t, 300, resp.PointsNeeded)
}

func TestPointsNeeded_InvalidLevel(t *testing.T) {
	srv, _, _ := setupServer(t)

	req := PointsNeededRequest{
		TableSource: TableSource{ServantID: intPtr(100100)},
		TargetLevel: 9,
	}
	var errResp ErrorResponse
	assert.Equal(t, http.StatusBadRequest, postJSON(t, srv.URL+"/api/bond/points-needed", req, &errResp))
	assert.Equal(t, "The target bond level must be between 0 and 5.", errResp.Error)
}

func TestPointsNeeded_UnsortedTable(t *testing.T) {
	srv, _, _ := setupServer(t)

	req := PointsNeededRequest{
		TableSource: TableSource{Milestones: []int{1000, 500}},
		TargetLevel: 2,
	}
	assert.Equal(t, http.StatusBadRequest, postJSON(t, srv.URL+"/api/bond/points-needed", req, nil))
}

func TestApplyModifiers(t *testing.T) {
	srv, _, _ := setupServer(t)

	// floor(815*1.10)=896, +50 = 946, floor(946*1.20)=1135
	req := ModifiersRequest{
		BaseBond:  815,
		Modifiers: ModifiersDTO{PercentBonus: 10, Heroic: true, Frontline: true, FrontlinePercent: "0.20"},
	}
	var resp ModifiersResultDTO
	assert.Equal(t, http.StatusOK, postJSON(t, srv.URL+"/api/bond/modifiers", req, &resp))
	assert.Equal(t, 1135, resp.BondPerRun)
}

func TestApplyModifiers_RejectsFrontlinePercent(t *testing.T) {
	srv, _, _ := setupServer(t)

	req := ModifiersRequest{BaseBond: 815, Modifiers: ModifiersDTO{Frontline: true, FrontlinePercent: "0.5"}}
	assert.Equal(t, http.StatusBadRequest, postJSON(t, srv.URL+"/api/bond/modifiers", req, nil))
}

func TestEstimate_CappedPreset(t *testing.T) {
	srv, _, _ := setupServer(t)

	// GIVEN: 35,000 points on Bleached Earth 90** (3,797 per run)
	req := EstimateRequest{PointsNeeded: 35000, Activity: ActivityDTO{Preset: "bleached_90ss"}}

	// WHEN: Estimating
	var est EstimateDTO
	status := postJSON(t, srv.URL+"/api/bond/estimate", req, &est)

	// THEN: Days follow the 3-runs-per-day cap, not AP regen
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "ready", est.Status)
	assert.Equal(t, 10, est.RunsNeeded)
	assert.Equal(t, 400, est.TotalAP)
	assert.Equal(t, 4, est.DaysNeeded)
	assert.True(t, est.Capped)
	assert.Equal(t, "25", est.EstimatedMinutes)
}

func TestEstimate_CustomActivity(t *testing.T) {
	srv, _, _ := setupServer(t)

	req := EstimateRequest{
		PointsNeeded: 10000,
		Activity:     ActivityDTO{Custom: &CustomActivityDTO{BondPerRun: "1,000", APPerRun: "40"}},
	}
	var est EstimateDTO
	assert.Equal(t, http.StatusOK, postJSON(t, srv.URL+"/api/bond/estimate", req, &est))
	assert.Equal(t, 10, est.RunsNeeded)
	assert.Equal(t, 400, est.TotalAP)
	assert.Equal(t, 2, est.DaysNeeded)
	assert.Equal(t, "Custom Quest", est.QuestName)
}

func TestEstimate_InvalidCustomValues(t *testing.T) {
	srv, _, _ := setupServer(t)

	req := EstimateRequest{
		PointsNeeded: 10000,
		Activity:     ActivityDTO{Custom: &CustomActivityDTO{BondPerRun: "abc", APPerRun: "40"}},
	}
	assert.Equal(t, http.StatusBadRequest, postJSON(t, srv.URL+"/api/bond/estimate", req, nil))
}

func TestEstimate_DegenerateYield(t *testing.T) {
	srv, _, _ := setupServer(t)

	// the story quest grants no bond
	req := EstimateRequest{PointsNeeded: 1000, Activity: ActivityDTO{QuestID: intPtr(94000001)}}
	var errResp ErrorResponse
	assert.Equal(t, http.StatusBadRequest, postJSON(t, srv.URL+"/api/bond/estimate", req, &errResp))
	assert.Equal(t, "The selected quest gives no bond points per run.", errResp.Error)
}

func TestEstimate_HugePointsNeeded(t *testing.T) {
	srv, _, _ := setupServer(t)

	req := EstimateRequest{PointsNeeded: math.MaxInt, Activity: ActivityDTO{Preset: "bleached_90ss"}}
	var errResp ErrorResponse
	assert.Equal(t, http.StatusBadRequest, postJSON(t, srv.URL+"/api/bond/estimate", req, &errResp))
	assert.Contains(t, errResp.Error, "too large to estimate")
}

func TestPlan_Ready(t *testing.T) {
	srv, _, _ := setupServer(t)

	// GIVEN: Bond 2 -> Bond 5 (12,000 points) on an 815-bond quest
	req := PlanRequest{
		TableSource: TableSource{ServantID: intPtr(100100)},
		Current:     &LevelSelectionDTO{Level: 2},
		TargetLevel: intPtr(5),
		Activity:    &ActivityDTO{QuestID: intPtr(93000001)},
	}

	// WHEN: Planning
	var plan PlanDTO
	status := postJSON(t, srv.URL+"/api/bond/plan", req, &plan)

	// THEN: 15 runs of 21 AP
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "ready", plan.Status)
	assert.Equal(t, 12000, plan.PointsNeeded)
	require.NotNil(t, plan.Estimate)
	assert.Equal(t, 815, plan.Estimate.BondPerRun)
	assert.Equal(t, 15, plan.Estimate.RunsNeeded)
	assert.Equal(t, 315, plan.Estimate.TotalAP)
	assert.Equal(t, 2, plan.Estimate.DaysNeeded)
	assert.Equal(t, "37.5", plan.Estimate.EstimatedMinutes)
	assert.Equal(t, "Ochanomizu (Singularity F - Fuyuki)", plan.Estimate.QuestName)
}

func TestPlan_WithModifiers(t *testing.T) {
	srv, _, _ := setupServer(t)

	req := PlanRequest{
		TableSource: TableSource{ServantID: intPtr(100100)},
		Current:     &LevelSelectionDTO{Level: 2},
		TargetLevel: intPtr(5),
		Activity:    &ActivityDTO{QuestID: intPtr(93000001)},
		Modifiers:   ModifiersDTO{PercentBonus: 10, Heroic: true, Frontline: true},
	}
	var plan PlanDTO
	assert.Equal(t, http.StatusOK, postJSON(t, srv.URL+"/api/bond/plan", req, &plan))
	require.NotNil(t, plan.Estimate)
	assert.Equal(t, 1135, plan.Estimate.BondPerRun)
	assert.Equal(t, 11, plan.Estimate.RunsNeeded)
}

func TestPlan_NotReady(t *testing.T) {
	srv, _, _ := setupServer(t)

	var idle PlanDTO
	assert.Equal(t, http.StatusOK, postJSON(t, srv.URL+"/api/bond/plan", PlanRequest{}, &idle))
	assert.Equal(t, "not_ready", idle.Status)
	assert.Nil(t, idle.Estimate)

	// points are known but no quest yet
	req := PlanRequest{
		TableSource: TableSource{ServantID: intPtr(100100)},
		Current:     &LevelSelectionDTO{Level: 2},
		TargetLevel: intPtr(5),
	}
	var partial PlanDTO
	assert.Equal(t, http.StatusOK, postJSON(t, srv.URL+"/api/bond/plan", req, &partial))
	assert.Equal(t, "not_ready", partial.Status)
	assert.Equal(t, 12000, partial.PointsNeeded)
	assert.Equal(t, "Please select a quest", partial.Message)
}

func TestPlan_GoalReached(t *testing.T) {
	srv, _, _ := setupServer(t)

	req := PlanRequest{
		TableSource: TableSource{ServantID: intPtr(100100)},
		Current:     &LevelSelectionDTO{Level: 5},
		TargetLevel: intPtr(3),
		Activity:    &ActivityDTO{Preset: "free_quest_80"},
	}
	var plan PlanDTO
	assert.Equal(t, http.StatusOK, postJSON(t, srv.URL+"/api/bond/plan", req, &plan))
	assert.Equal(t, "goal_reached", plan.Status)
	require.NotNil(t, plan.Estimate)
	assert.Zero(t, plan.Estimate.RunsNeeded)
	assert.Equal(t, "Target bond level already reached!", plan.Message)
}

func TestPlan_UnknownPreset(t *testing.T) {
	srv, _, _ := setupServer(t)

	req := PlanRequest{
		TableSource: TableSource{ServantID: intPtr(100100)},
		Current:     &LevelSelectionDTO{Level: 0},
		TargetLevel: intPtr(1),
		Activity:    &ActivityDTO{Preset: "no_such_preset"},
	}
	assert.Equal(t, http.StatusBadRequest, postJSON(t, srv.URL+"/api/bond/plan", req, nil))
}

func TestPlan_MalformedBody(t *testing.T) {
	srv, _, _ := setupServer(t)

	resp, err := http.Post(srv.URL+"/api/bond/plan", "application/json", bytes.NewBufferString("{"))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

// =============================================================================
// ADMIN ENDPOINTS
// =============================================================================

func TestTriggerRefresh(t *testing.T) {
	srv, h, _ := setupServer(t)

	// without a refresher the endpoint is unavailable
	assert.Equal(t, http.StatusServiceUnavailable, postJSON(t, srv.URL+"/api/admin/refresh", RefreshRequest{}, nil))

	fake := &fakeRefresher{}
	withRefresher := *h
	withRefresher.Refresher = fake
	srv2 := httptest.NewServer(NewRouter(&withRefresher, nil))
	defer srv2.Close()

	var run bond.RefreshRun
	assert.Equal(t, http.StatusOK, postJSON(t, srv2.URL+"/api/admin/refresh", RefreshRequest{Region: "jp"}, &run))
	assert.Equal(t, bond.RegionJP, run.Region)
	assert.Equal(t, []bond.Region{bond.RegionJP}, fake.calls())

	// region can also come from the query string
	resp, err := http.Post(srv2.URL+"/api/admin/refresh?region=na", "application/json", nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, []bond.Region{bond.RegionJP, bond.RegionNA}, fake.calls())

	fake.fail(errors.New("upstream down"))
	assert.Equal(t, http.StatusBadGateway, postJSON(t, srv2.URL+"/api/admin/refresh", RefreshRequest{}, &run))
	assert.Equal(t, "upstream down", run.Error)
}

func TestListRefreshes(t *testing.T) {
	srv, _, mem := setupServer(t)
	ctx := context.Background()

	start := time.Date(2026, 3, 1, 4, 0, 0, 0, time.UTC)
	require.NoError(t, mem.RecordRefresh(ctx, bond.RefreshRun{ID: "a", Region: bond.RegionNA, StartedAt: start}))
	require.NoError(t, mem.RecordRefresh(ctx, bond.RefreshRun{ID: "b", Region: bond.RegionJP, StartedAt: start.Add(time.Hour)}))

	var runs []bond.RefreshRun
	assert.Equal(t, http.StatusOK, getJSON(t, srv.URL+"/api/admin/refreshes?limit=1", &runs))
	require.Len(t, runs, 1)
	assert.Equal(t, "b", runs[0].ID)
}

// =============================================================================
// SCHEDULER
// =============================================================================

func TestRefreshScheduler_RunNow(t *testing.T) {
	fake := &fakeRefresher{}
	rs := NewRefreshScheduler(fake, []bond.Region{bond.RegionNA, bond.RegionJP}, nil)

	assert.Equal(t, 2, rs.RunNow())
	assert.Equal(t, []bond.Region{bond.RegionNA, bond.RegionJP}, fake.calls())
}

func TestRefreshScheduler_FailedRegionDoesNotStopOthers(t *testing.T) {
	fake := &fakeRefresher{err: errors.New("boom")}
	rs := NewRefreshScheduler(fake, []bond.Region{bond.RegionNA, bond.RegionJP}, nil)

	assert.Equal(t, 0, rs.RunNow())
	assert.Len(t, fake.calls(), 2)
}

func TestRefreshScheduler_RunOnStart(t *testing.T) {
	fake := &fakeRefresher{}
	rs := NewRefreshScheduler(fake, []bond.Region{bond.RegionNA}, nil)
	rs.Interval = time.Hour
	rs.RunOnStart = true

	rs.Start()
	assert.Eventually(t, func() bool { return len(fake.calls()) == 1 }, time.Second, 10*time.Millisecond)
	rs.Stop()
	// second Stop is a no-op
	rs.Stop()
}

func TestRefreshScheduler_Disabled(t *testing.T) {
	fake := &fakeRefresher{}
	rs := NewRefreshScheduler(fake, []bond.Region{bond.RegionNA}, nil)
	rs.Interval = 0
	rs.RunOnStart = true

	rs.Start()
	rs.Stop()
	assert.Empty(t, fake.calls())
}
