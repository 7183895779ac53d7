/*
handlers.go - HTTP API handlers for the bond calculator

PURPOSE:
  Exposes the bond progression engine and the servant/quest catalog via
  REST API. Handles HTTP request/response, JSON serialization, and
  delegates to the engine through Resolver.

ENDPOINTS:
  Catalog:
    GET    /api/servants               Search servants (?region=&q=&limit=)
    GET    /api/servants/{id}          Servant with bond level options
    GET    /api/quests                 List quests (?region=&farmable=)
    GET    /api/presets                Quick-list quest presets
    GET    /api/frontline-options      Allowed frontline bonuses

  Calculation:
    POST   /api/bond/points-needed     Milestone resolver
    POST   /api/bond/modifiers         Modifier pipeline
    POST   /api/bond/estimate          Run estimator
    POST   /api/bond/plan              Full selection

  Admin:
    POST   /api/admin/refresh          Download a region's catalog now
    GET    /api/admin/refreshes        Refresh history

ARCHITECTURE:
  Handler struct holds all dependencies:
  - Catalog: servant and quest lookups
  - Search: fuzzy servant search with its result cache
  - Resolver: request to engine input
  - Refresher/Refreshes: optional, admin endpoints answer 503 without them

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: InvalidLevel, InvalidInput, DegenerateYield, malformed bodies
  - 404: Servant or quest not in the catalog
  - 503: Admin endpoint without a refresher
  - 500: Internal errors
  The "error" field carries generic.UserMessage for engine errors.

SECURITY NOTE:
  Currently NO authentication or authorization. All endpoints are public,
  including the admin refresh.

SEE ALSO:
  - dto.go: Request/response data structures
  - resolve.go: Request resolution
  - server.go: Router setup and middleware
*/
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/bondcalc/bond-engine/bond"
	"github.com/bondcalc/bond-engine/generic"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// CatalogRefresher downloads and replaces one region's catalog.
type CatalogRefresher interface {
	Refresh(ctx context.Context, region bond.Region) (bond.RefreshRun, error)
}

// RefreshLog lists past refreshes, newest first.
type RefreshLog interface {
	Refreshes(ctx context.Context, limit int) ([]bond.RefreshRun, error)
}

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Catalog  bond.Catalog
	Search   *bond.SearchIndex
	Resolver *Resolver

	Refresher CatalogRefresher
	Refreshes RefreshLog

	Logger *zap.Logger
}

// NewHandler creates a handler over catalog.
func NewHandler(catalog bond.Catalog, search *bond.SearchIndex, est generic.Estimator, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		Catalog:  catalog,
		Search:   search,
		Resolver: NewResolver(catalog, est),
		Logger:   logger,
	}
}

// =============================================================================
// CATALOG ENDPOINTS
// =============================================================================

// ListServants handles GET /api/servants
func (h *Handler) ListServants(w http.ResponseWriter, r *http.Request) {
	region, err := bond.ParseRegion(r.URL.Query().Get("region"))
	if err != nil {
		h.writeEngineError(w, err)
		return
	}

	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		limit, err = strconv.Atoi(v)
		if err != nil || limit < 0 {
			writeError(w, http.StatusBadRequest, "Invalid limit", err)
			return
		}
	}

	servants, err := h.Search.Search(r.Context(), region, r.URL.Query().Get("q"), limit)
	if err != nil {
		h.writeEngineError(w, err)
		return
	}

	dtos := make([]ServantDTO, len(servants))
	for i, s := range servants {
		dtos[i] = toServantDTO(s, false)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetServant handles GET /api/servants/{id}
func (h *Handler) GetServant(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid servant id", err)
		return
	}
	region, err := bond.ParseRegion(r.URL.Query().Get("region"))
	if err != nil {
		h.writeEngineError(w, err)
		return
	}

	servant, err := h.Catalog.Servant(r.Context(), region, id)
	if err != nil {
		h.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toServantDTO(*servant, true))
}

// ListQuests handles GET /api/quests
func (h *Handler) ListQuests(w http.ResponseWriter, r *http.Request) {
	region, err := bond.ParseRegion(r.URL.Query().Get("region"))
	if err != nil {
		h.writeEngineError(w, err)
		return
	}

	quests, err := h.Catalog.Quests(r.Context(), region)
	if err != nil {
		h.writeEngineError(w, err)
		return
	}
	if farmable, _ := strconv.ParseBool(r.URL.Query().Get("farmable")); farmable {
		quests = bond.FarmableQuests(quests)
	}

	dtos := make([]QuestDTO, len(quests))
	for i, q := range quests {
		dtos[i] = toQuestDTO(q)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// ListPresets handles GET /api/presets
func (h *Handler) ListPresets(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, toPresetGroupDTOs(bond.PresetGroups()))
}

// ListFrontlineOptions handles GET /api/frontline-options
func (h *Handler) ListFrontlineOptions(w http.ResponseWriter, r *http.Request) {
	type option struct {
		Label   string `json:"label"`
		Percent string `json:"percent"`
	}
	opts := make([]option, len(bond.FrontlineOptions))
	for i, o := range bond.FrontlineOptions {
		opts[i] = option{Label: o.Label, Percent: o.Percent.StringFixed(2)}
	}
	writeJSON(w, http.StatusOK, opts)
}

// =============================================================================
// CALCULATION ENDPOINTS
// =============================================================================

// PointsNeeded handles POST /api/bond/points-needed
func (h *Handler) PointsNeeded(w http.ResponseWriter, r *http.Request) {
	var req PointsNeededRequest
	if !decodeBody(w, r, &req) {
		return
	}
	resp, err := h.Resolver.PointsNeeded(r.Context(), req)
	if err != nil {
		h.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// ApplyModifiers handles POST /api/bond/modifiers
func (h *Handler) ApplyModifiers(w http.ResponseWriter, r *http.Request) {
	var req ModifiersRequest
	if !decodeBody(w, r, &req) {
		return
	}
	resp, err := h.Resolver.BondPerRun(req)
	if err != nil {
		h.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// Estimate handles POST /api/bond/estimate
func (h *Handler) Estimate(w http.ResponseWriter, r *http.Request) {
	var req EstimateRequest
	if !decodeBody(w, r, &req) {
		return
	}
	resp, err := h.Resolver.Estimate(r.Context(), req)
	if err != nil {
		h.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// Plan handles POST /api/bond/plan
func (h *Handler) Plan(w http.ResponseWriter, r *http.Request) {
	var req PlanRequest
	if !decodeBody(w, r, &req) {
		return
	}
	resp, err := h.Resolver.Plan(r.Context(), req)
	if err != nil {
		h.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// =============================================================================
// ADMIN ENDPOINTS
// =============================================================================

// TriggerRefresh handles POST /api/admin/refresh
func (h *Handler) TriggerRefresh(w http.ResponseWriter, r *http.Request) {
	if h.Refresher == nil {
		writeError(w, http.StatusServiceUnavailable, "Catalog refresh is not configured", nil)
		return
	}

	var req RefreshRequest
	if r.ContentLength > 0 {
		if !decodeBody(w, r, &req) {
			return
		}
	}
	if req.Region == "" {
		req.Region = r.URL.Query().Get("region")
	}
	region, err := bond.ParseRegion(req.Region)
	if err != nil {
		h.writeEngineError(w, err)
		return
	}

	run, err := h.Refresher.Refresh(r.Context(), region)
	if err != nil {
		h.Logger.Warn("manual refresh failed", zap.String("region", string(region)), zap.Error(err))
		writeJSON(w, http.StatusBadGateway, run)
		return
	}
	writeJSON(w, http.StatusOK, run)
}

// ListRefreshes handles GET /api/admin/refreshes
func (h *Handler) ListRefreshes(w http.ResponseWriter, r *http.Request) {
	if h.Refreshes == nil {
		writeError(w, http.StatusServiceUnavailable, "Refresh history is not configured", nil)
		return
	}

	limit := 20
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "Invalid limit", err)
			return
		}
		limit = n
	}

	runs, err := h.Refreshes.Refreshes(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list refreshes", err)
		return
	}
	if runs == nil {
		runs = []bond.RefreshRun{}
	}
	writeJSON(w, http.StatusOK, runs)
}

// =============================================================================
// HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// writeEngineError maps engine and catalog errors to a status code.
func (h *Handler) writeEngineError(w http.ResponseWriter, err error) {
	switch {
	case generic.IsClientError(err):
		writeError(w, http.StatusBadRequest, generic.UserMessage(err), err)
	case bond.IsNotFound(err):
		writeError(w, http.StatusNotFound, "Not found", err)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		writeError(w, http.StatusServiceUnavailable, "Request cancelled", err)
	default:
		h.Logger.Error("request failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Internal error", err)
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return false
	}
	return true
}
