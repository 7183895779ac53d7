package main

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/aws/aws-lambda-go/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/bondcalc/bond-engine/api"
	"github.com/bondcalc/bond-engine/bond"
	"github.com/bondcalc/bond-engine/config"
	"github.com/bondcalc/bond-engine/fetch"
	"github.com/bondcalc/bond-engine/generic"
)

func newTestFunction(t *testing.T, dataDir string) *function {
	t.Helper()
	cfg := config.Default()
	cfg.Catalog.DataDir = dataDir
	f, err := newFunction(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)
	return f
}

func invoke(t *testing.T, f *function, path, body string) events.LambdaFunctionURLResponse {
	t.Helper()
	resp, err := f.handle(context.Background(), events.LambdaFunctionURLRequest{RawPath: path, Body: body})
	require.NoError(t, err)
	return resp
}

func TestHandle_PlanWithExplicitTable(t *testing.T) {
	f := newTestFunction(t, "")

	resp := invoke(t, f, "/plan", `{
		"milestones": [1000, 3000, 6000, 10000, 15000],
		"current": {"level": 2},
		"targetLevel": 5,
		"activity": {"preset": "free_quest_80"}
	}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var plan api.PlanDTO
	require.NoError(t, json.Unmarshal([]byte(resp.Body), &plan))
	assert.Equal(t, "ready", plan.Status)
	assert.Equal(t, 12000, plan.PointsNeeded)
	assert.Equal(t, 15, plan.Estimate.RunsNeeded)
}

func TestHandle_Base64Body(t *testing.T) {
	f := newTestFunction(t, "")

	body := base64.StdEncoding.EncodeToString([]byte(`{"baseBond": 815, "modifiers": {"percentBonus": 10}}`))
	resp, err := f.handle(context.Background(), events.LambdaFunctionURLRequest{
		RawPath: "/modifiers", Body: body, IsBase64Encoded: true,
	})
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var result api.ModifiersResultDTO
	require.NoError(t, json.Unmarshal([]byte(resp.Body), &result))
	assert.Equal(t, 896, result.BondPerRun)
}

func TestHandle_ServantFromBundledCatalog(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, fetch.WriteJSON(dir, bond.RegionJP, []bond.Servant{
		{ID: 100100, CollectionNo: 2, Name: "Altria Pendragon", ClassName: "saber", Cost: 16,
			BondGrowth: generic.MilestoneTable{1000, 3000}},
	}, nil))
	f := newTestFunction(t, dir)

	resp := invoke(t, f, "/points-needed", `{"region": "JP", "servantId": 100100, "targetLevel": 2}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var points api.PointsNeededDTO
	require.NoError(t, json.Unmarshal([]byte(resp.Body), &points))
	assert.Equal(t, 3000, points.PointsNeeded)

	missing := invoke(t, f, "/points-needed", `{"region": "NA", "servantId": 100100, "targetLevel": 2}`)
	assert.Equal(t, http.StatusNotFound, missing.StatusCode)
}

func TestHandle_Errors(t *testing.T) {
	f := newTestFunction(t, "")

	assert.Equal(t, http.StatusBadRequest, invoke(t, f, "/plan", `{`).StatusCode)

	resp := invoke(t, f, "/estimate", `{"pointsNeeded": 100, "activity": {"custom": {"bondPerRun": "0", "apPerRun": "40"}}}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var errBody api.ErrorResponse
	require.NoError(t, json.Unmarshal([]byte(resp.Body), &errBody))
	assert.Contains(t, errBody.Error, "bond points per run")
}
